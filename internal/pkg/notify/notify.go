package notify

import (
	"context"
	"errors"
	"time"

	"github.com/qs3c/yardconnect/internal/pkg/pubsub"
	"github.com/qs3c/yardconnect/internal/pkg/queue"
)

// ReviewNotice 一条已发布评价的通知内容
type ReviewNotice struct {
	OwnerAccountID int64
	OwnerEmail     string
	ProfileID      int64
	ProfileName    string
	ReviewID       int64
	Rating         int
	Comment        string
	Verified       bool // 匿名评价经邮箱验证
	CreatedAt      time.Time
}

// Dispatcher 把评价事件推送到实时频道并排队通知邮件
type Dispatcher struct {
	publisher *pubsub.Publisher
	queue     *queue.Queue
}

func NewDispatcher(publisher *pubsub.Publisher, q *queue.Queue) *Dispatcher {
	return &Dispatcher{publisher: publisher, queue: q}
}

// ReviewPublished 两个通道互不影响，返回合并后的错误
func (d *Dispatcher) ReviewPublished(ctx context.Context, n *ReviewNotice) error {
	var errs []error

	if d.publisher != nil {
		err := d.publisher.PublishReview(ctx, &pubsub.ReviewEvent{
			AccountID:   n.OwnerAccountID,
			ProfileID:   n.ProfileID,
			ProfileName: n.ProfileName,
			ReviewID:    n.ReviewID,
			Rating:      n.Rating,
			Comment:     n.Comment,
			Verified:    n.Verified,
			CreatedAt:   n.CreatedAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			errs = append(errs, err)
		}
	}

	if d.queue != nil && n.OwnerEmail != "" {
		err := d.queue.Push(ctx, &queue.NotificationMessage{
			Kind:        queue.KindNewReview,
			To:          n.OwnerEmail,
			ProfileID:   n.ProfileID,
			ProfileName: n.ProfileName,
			ReviewID:    n.ReviewID,
			Rating:      n.Rating,
			Comment:     n.Comment,
		})
		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
