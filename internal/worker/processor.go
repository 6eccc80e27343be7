package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/qs3c/yardconnect/internal/pkg/email"
	"github.com/qs3c/yardconnect/internal/pkg/queue"
)

const defaultMaxAttempts = 3

// Requeuer 失败的通知重新入队
type Requeuer interface {
	Push(ctx context.Context, msg *queue.NotificationMessage) error
}

// Processor 通知邮件处理器
type Processor struct {
	sender      email.Sender
	requeue     Requeuer
	maxAttempts int
}

// NewProcessor 创建通知处理器，requeue 为 nil 时失败不重试
func NewProcessor(sender email.Sender, requeue Requeuer) *Processor {
	return &Processor{
		sender:      sender,
		requeue:     requeue,
		maxAttempts: defaultMaxAttempts,
	}
}

// Process 发送一条通知邮件
func (p *Processor) Process(ctx context.Context, msg *queue.NotificationMessage) error {
	var (
		subject, body string
		err           error
	)

	switch msg.Kind {
	case queue.KindNewReview:
		subject, body, err = email.NewReviewEmail(msg.ProfileName, msg.Rating, msg.Comment)
	default:
		slog.Warn("unknown notification kind dropped", "kind", msg.Kind)
		return nil
	}
	if err != nil {
		return fmt.Errorf("render %s email: %w", msg.Kind, err)
	}

	if err := p.sender.Send(ctx, msg.To, subject, body); err != nil {
		return p.retry(ctx, msg, err)
	}

	slog.Info("notification sent", "kind", msg.Kind, "review_id", msg.ReviewID)
	return nil
}

// retry 未超过最大次数时重新入队
func (p *Processor) retry(ctx context.Context, msg *queue.NotificationMessage, cause error) error {
	msg.Attempts++
	if p.requeue == nil || msg.Attempts >= p.maxAttempts {
		return fmt.Errorf("send notification for review %d (attempt %d): %w", msg.ReviewID, msg.Attempts, cause)
	}

	if err := p.requeue.Push(ctx, msg); err != nil {
		return fmt.Errorf("requeue notification for review %d: %w", msg.ReviewID, err)
	}
	slog.Warn("notification requeued", "review_id", msg.ReviewID, "attempt", msg.Attempts, "error", cause)
	return nil
}
