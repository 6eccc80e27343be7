package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/yardconnect/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Transaction 在事务中执行 fn，fn 收到绑定事务的 repository
func (r *SubscriptionRepository) Transaction(ctx context.Context, fn func(repo *SubscriptionRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SubscriptionRepository{db: tx})
	})
}

// GetByAccountID 获取账号的订阅
func (r *SubscriptionRepository) GetByAccountID(ctx context.Context, accountID int64) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetByProviderRef 根据 Stripe subscription id 获取订阅
func (r *SubscriptionRepository) GetByProviderRef(ctx context.Context, ref string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Where("provider_ref = ?", ref).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Activate 创建或更新账号订阅为 active
func (r *SubscriptionRepository) Activate(ctx context.Context, accountID int64, plan string, amount int64, providerRef *string, endDate time.Time) (*model.Subscription, error) {
	sub, err := r.GetByAccountID(ctx, accountID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	if sub == nil {
		sub = &model.Subscription{
			AccountID:   accountID,
			Plan:        plan,
			Amount:      amount,
			Status:      model.SubscriptionActive,
			StartDate:   now,
			EndDate:     &endDate,
			ProviderRef: providerRef,
		}
		if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
			return nil, err
		}
		return sub, nil
	}

	sub.Plan = plan
	sub.Amount = amount
	sub.Status = model.SubscriptionActive
	sub.EndDate = &endDate
	if providerRef != nil {
		sub.ProviderRef = providerRef
	}
	if err := r.db.WithContext(ctx).Save(sub).Error; err != nil {
		return nil, err
	}
	return sub, nil
}

// UpdateStatus 更新订阅状态，endDate 为 nil 时不修改到期时间
func (r *SubscriptionRepository) UpdateStatus(ctx context.Context, id int64, status string, endDate *time.Time) error {
	fields := map[string]interface{}{"status": status}
	if endDate != nil {
		fields["end_date"] = *endDate
	}
	return r.db.WithContext(ctx).Model(&model.Subscription{}).Where("id = ?", id).Updates(fields).Error
}

// CreatePayment 创建支付记录
func (r *SubscriptionRepository) CreatePayment(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// ListPayments 获取订阅最近的支付记录
func (r *SubscriptionRepository) ListPayments(ctx context.Context, subscriptionID int64, limit int) ([]*model.Payment, error) {
	var payments []*model.Payment
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, err
	}
	return payments, nil
}

// RecordEvent 记录已处理的回调事件，重复事件返回 false
func (r *SubscriptionRepository) RecordEvent(ctx context.Context, event *model.PaymentEvent) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.PaymentEvent{}).
		Where("event_id = ?", event.EventID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
