package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/qs3c/yardconnect/config"
)

var ErrNotConfigured = errors.New("smtp is not configured")

// Sender 发送 HTML 邮件，调用方负责传入带超时的 ctx
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// SMTPSender 基于 gomail 的 SMTP 发送器
type SMTPSender struct {
	cfg     *config.EmailConfig
	dialer  *gomail.Dialer
	timeout time.Duration
}

func NewSMTPSender(cfg *config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		cfg:     cfg,
		dialer:  gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.Username, cfg.Password),
		timeout: cfg.Timeout(),
	}
}

// Send 发送邮件，超过配置的超时时间或 ctx 取消即返回错误
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if s.cfg.SMTPHost == "" {
		return ErrNotConfigured
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// gomail 不支持 ctx，拨号和发送放到 goroutine 里，由 ctx 控制等待时间。
	// 调用方放弃后不再投递，避免超时返回后邮件仍然发出。
	// 已进入 DATA 阶段的发送无法撤回。
	done := make(chan error, 1)
	go func() {
		done <- s.deliver(ctx, m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email to %s: %w", to, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send email to %s: %w", to, ctx.Err())
	}
}

// deliver 拨号成功后再检查一次 ctx，已放弃的发送直接 QUIT
func (s *SMTPSender) deliver(ctx context.Context, m *gomail.Message) error {
	sc, err := s.dialer.Dial()
	if err != nil {
		return err
	}
	defer sc.Close()

	if err := ctx.Err(); err != nil {
		return err
	}
	return gomail.Send(sc, m)
}
