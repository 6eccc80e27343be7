package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	SubscriptionNone      = "none"
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionExpired   = "expired"
)

const PaymentCompleted = "completed"

// Subscription 账号的订阅记录，只由支付回调修改
type Subscription struct {
	ID          int64      `gorm:"primaryKey" json:"id"`
	AccountID   int64      `gorm:"not null;uniqueIndex" json:"account_id"`
	Plan        string     `gorm:"size:50;not null" json:"plan"`
	Amount      int64      `json:"amount"` // 单位：分
	Status      string     `gorm:"size:20;default:none;index" json:"status"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	ProviderRef *string    `gorm:"size:100;index" json:"provider_ref,omitempty"` // Stripe subscription id
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Payments []*Payment `gorm:"foreignKey:SubscriptionID" json:"payments,omitempty"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

type Payment struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	AccountID      int64     `gorm:"not null;index" json:"account_id"`
	SubscriptionID int64     `gorm:"not null;index" json:"subscription_id"`
	Amount         int64     `json:"amount"`
	Status         string    `gorm:"size:20;not null" json:"status"`
	ProviderRef    string    `gorm:"size:100" json:"provider_ref,omitempty"` // Stripe payment intent id
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// PaymentEvent 已处理的支付回调事件，用于幂等和审计
type PaymentEvent struct {
	ID          int64          `gorm:"primaryKey" json:"id"`
	EventID     string         `gorm:"size:100;uniqueIndex;not null" json:"event_id"`
	Type        string         `gorm:"size:100;not null" json:"type"`
	Payload     datatypes.JSON `json:"payload"`
	ProcessedAt time.Time      `json:"processed_at"`
}

func (PaymentEvent) TableName() string {
	return "payment_events"
}
