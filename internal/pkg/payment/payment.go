package payment

import (
	"context"
	"errors"
)

// 支付回调事件类型
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventInvoicePaid         = "invoice.payment_succeeded"
	EventInvoiceFailed       = "invoice.payment_failed"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

var (
	ErrNotConfigured    = errors.New("payment provider is not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// CheckoutParams 创建支付会话所需信息
type CheckoutParams struct {
	AccountID   int64
	Email       string
	Plan        string
	ProfileName string
}

// CheckoutSession 支付会话
type CheckoutSession struct {
	ID  string
	URL string
}

// Event 解析后的支付回调事件，字段按事件类型部分填充
type Event struct {
	ID              string
	Type            string
	AccountID       int64  // 来自 metadata，未携带时为 0
	SubscriptionRef string // 订阅 id
	PaymentRef      string // payment intent id
	Amount          int64  // 单位：分
	PeriodEnd       int64  // unix 秒，未知时为 0
	Payload         []byte
}

// Gateway 支付服务商
type Gateway interface {
	CreateCheckout(ctx context.Context, params *CheckoutParams) (*CheckoutSession, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionRef string) error
	ParseEvent(payload []byte, signature string) (*Event, error)
}
