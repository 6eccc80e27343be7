package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelReviewEvents = "review_events"
)

// 事件类型
const (
	EventReviewPublished = "review_published"
)

// ReviewEvent 评价发布事件，推送给资料所属账号
type ReviewEvent struct {
	Type        string `json:"type"`
	AccountID   int64  `json:"account_id"` // 资料所属账号
	ProfileID   int64  `json:"profile_id"`
	ProfileName string `json:"profile_name"`
	ReviewID    int64  `json:"review_id"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment,omitempty"`
	Verified    bool   `json:"verified"`
	CreatedAt   string `json:"created_at"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishReview 发布评价事件
func (p *Publisher) PublishReview(ctx context.Context, event *ReviewEvent) error {
	if event.Type == "" {
		event.Type = EventReviewPublished
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal review event: %w", err)
	}

	return p.client.Publish(ctx, ChannelReviewEvents, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅评价事件，直到 ctx 结束
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*ReviewEvent)) error {
	sub := s.client.Subscribe(ctx, ChannelReviewEvents)
	defer sub.Close()

	// 等待订阅确认，避免订阅建立前的消息丢失
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event ReviewEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}
