package testutil

import (
	"context"
	"sync"
)

// SentEmail 记录的一封邮件
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// FakeSender 记录发送请求的邮件发送器，Err 非空时每次发送都失败
type FakeSender struct {
	mu   sync.Mutex
	Sent []SentEmail
	Err  error
}

func (f *FakeSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Sent = append(f.Sent, SentEmail{To: to, Subject: subject, Body: htmlBody})
	return f.Err
}

// Count 已尝试发送的次数
func (f *FakeSender) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Sent)
}

// Last 最后一封邮件
func (f *FakeSender) Last() SentEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Sent) == 0 {
		return SentEmail{}
	}
	return f.Sent[len(f.Sent)-1]
}
