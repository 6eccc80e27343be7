package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/qs3c/yardconnect/config"
	"github.com/qs3c/yardconnect/internal/model"
	"github.com/qs3c/yardconnect/internal/model/dto"
	"github.com/qs3c/yardconnect/internal/pkg/logger"
	"github.com/qs3c/yardconnect/internal/pkg/payment"
	"github.com/qs3c/yardconnect/internal/repository"
)

const (
	PlanSubscription = "subscription"
	recentPayments   = 5
)

type SubscriptionService struct {
	subRepo     *repository.SubscriptionRepository
	accountRepo *repository.AccountRepository
	profileRepo *repository.ProfileRepository
	gateway     payment.Gateway
	cfg         *config.Config
	now         func() time.Time
}

func NewSubscriptionService(
	subRepo *repository.SubscriptionRepository,
	accountRepo *repository.AccountRepository,
	profileRepo *repository.ProfileRepository,
	gateway payment.Gateway,
	cfg *config.Config,
) *SubscriptionService {
	return &SubscriptionService{
		subRepo:     subRepo,
		accountRepo: accountRepo,
		profileRepo: profileRepo,
		gateway:     gateway,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Plans 可订阅的套餐
func (s *SubscriptionService) Plans() []*dto.PlanInfo {
	return []*dto.PlanInfo{{
		ID:       PlanSubscription,
		Name:     s.cfg.Stripe.PlanName,
		Amount:   s.cfg.Stripe.Amount,
		Currency: "usd",
		Interval: "month",
		Features: s.cfg.Stripe.Features,
	}}
}

// GetMine 当前账号的订阅和最近的支付记录
func (s *SubscriptionService) GetMine(ctx context.Context, accountID int64) (*dto.SubscriptionInfo, error) {
	sub, err := s.subRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.SubscriptionInfo{Status: model.SubscriptionNone}, nil
		}
		return nil, dependencyError("load subscription", err)
	}

	payments, err := s.subRepo.ListPayments(ctx, sub.ID, recentPayments)
	if err != nil {
		return nil, dependencyError("list payments", err)
	}

	info := &dto.SubscriptionInfo{
		ID:        sub.ID,
		Plan:      sub.Plan,
		Amount:    sub.Amount,
		Status:    sub.Status,
		StartDate: sub.StartDate.Format(time.RFC3339),
		Payments:  make([]*dto.PaymentItem, len(payments)),
	}
	if sub.EndDate != nil {
		info.EndDate = sub.EndDate.Format(time.RFC3339)
	}
	for i, p := range payments {
		info.Payments[i] = &dto.PaymentItem{
			ID:        p.ID,
			Amount:    p.Amount,
			Status:    p.Status,
			CreatedAt: p.CreatedAt.Format(time.RFC3339),
		}
	}
	return info, nil
}

// CreateCheckout 创建支付会话，需要先创建资料
func (s *SubscriptionService) CreateCheckout(ctx context.Context, accountID int64) (*dto.CheckoutResponse, error) {
	if s.gateway == nil {
		return nil, ErrPaymentDisabled
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, dependencyError("load account", err)
	}

	profile, err := s.profileRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, dependencyError("load profile", err)
	}

	sub, err := s.subRepo.GetByAccountID(ctx, accountID)
	if err == nil && sub.Status == model.SubscriptionActive {
		return nil, ErrSubscriptionActive
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dependencyError("load subscription", err)
	}

	sess, err := s.gateway.CreateCheckout(ctx, &payment.CheckoutParams{
		AccountID:   accountID,
		Email:       account.Email,
		Plan:        PlanSubscription,
		ProfileName: profile.Name,
	})
	if err != nil {
		return nil, dependencyError("create checkout session", err)
	}

	return &dto.CheckoutResponse{SessionID: sess.ID, URL: sess.URL}, nil
}

// Cancel 取消订阅，资料随即从市场下架
func (s *SubscriptionService) Cancel(ctx context.Context, accountID int64) error {
	sub, err := s.subRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubscriptionNotFound
		}
		return dependencyError("load subscription", err)
	}

	if sub.ProviderRef != nil && s.gateway != nil {
		if err := s.gateway.CancelAtPeriodEnd(ctx, *sub.ProviderRef); err != nil {
			return dependencyError("cancel at provider", err)
		}
	}

	if err := s.subRepo.UpdateStatus(ctx, sub.ID, model.SubscriptionCancelled, nil); err != nil {
		return dependencyError("update subscription", err)
	}

	logger.FromContext(ctx).Info("subscription cancelled", "account_id", accountID, "subscription_id", sub.ID)
	return nil
}

// HandleWebhook 处理支付回调，同一事件只处理一次
func (s *SubscriptionService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.gateway == nil {
		return ErrPaymentDisabled
	}

	event, err := s.gateway.ParseEvent(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			return ErrPaymentDisabled
		}
		return &kindError{kind: ErrValidation, msg: ErrInvalidSignature.Error(), err: err}
	}

	log := logger.FromContext(ctx).With("event_id", event.ID, "event_type", event.Type)

	return s.subRepo.Transaction(ctx, func(repo *repository.SubscriptionRepository) error {
		inserted, err := repo.RecordEvent(ctx, &model.PaymentEvent{
			EventID:     event.ID,
			Type:        event.Type,
			Payload:     datatypes.JSON(event.Payload),
			ProcessedAt: s.now(),
		})
		if err != nil {
			return dependencyError("record event", err)
		}
		if !inserted {
			log.Info("duplicate payment event skipped")
			return nil
		}

		switch event.Type {
		case payment.EventCheckoutCompleted:
			return s.onCheckoutCompleted(ctx, repo, event)
		case payment.EventInvoicePaid:
			return s.onInvoicePaid(ctx, repo, event)
		case payment.EventInvoiceFailed:
			return s.setStatus(ctx, repo, event, model.SubscriptionExpired)
		case payment.EventSubscriptionDeleted:
			return s.setStatus(ctx, repo, event, model.SubscriptionCancelled)
		default:
			log.Info("payment event ignored")
			return nil
		}
	})
}

func (s *SubscriptionService) onCheckoutCompleted(ctx context.Context, repo *repository.SubscriptionRepository, event *payment.Event) error {
	if event.AccountID == 0 {
		return validationError("checkout session without account_id")
	}

	amount := event.Amount
	if amount == 0 {
		amount = s.cfg.Stripe.Amount
	}

	var ref *string
	if event.SubscriptionRef != "" {
		ref = &event.SubscriptionRef
	}

	sub, err := repo.Activate(ctx, event.AccountID, PlanSubscription, amount, ref, s.periodEnd(0))
	if err != nil {
		return dependencyError("activate subscription", err)
	}

	if err := repo.CreatePayment(ctx, &model.Payment{
		AccountID:      event.AccountID,
		SubscriptionID: sub.ID,
		Amount:         amount,
		Status:         model.PaymentCompleted,
		ProviderRef:    event.PaymentRef,
	}); err != nil {
		return dependencyError("record payment", err)
	}

	logger.FromContext(ctx).Info("subscription activated", "account_id", event.AccountID, "subscription_id", sub.ID)
	return nil
}

func (s *SubscriptionService) onInvoicePaid(ctx context.Context, repo *repository.SubscriptionRepository, event *payment.Event) error {
	sub, err := s.findSubscription(ctx, repo, event)
	if err != nil || sub == nil {
		return err
	}

	end := s.periodEnd(event.PeriodEnd)
	if err := repo.UpdateStatus(ctx, sub.ID, model.SubscriptionActive, &end); err != nil {
		return dependencyError("update subscription", err)
	}

	if err := repo.CreatePayment(ctx, &model.Payment{
		AccountID:      sub.AccountID,
		SubscriptionID: sub.ID,
		Amount:         event.Amount,
		Status:         model.PaymentCompleted,
		ProviderRef:    event.PaymentRef,
	}); err != nil {
		return dependencyError("record payment", err)
	}
	return nil
}

func (s *SubscriptionService) setStatus(ctx context.Context, repo *repository.SubscriptionRepository, event *payment.Event, status string) error {
	sub, err := s.findSubscription(ctx, repo, event)
	if err != nil || sub == nil {
		return err
	}

	if err := repo.UpdateStatus(ctx, sub.ID, status, nil); err != nil {
		return dependencyError("update subscription", err)
	}

	logger.FromContext(ctx).Info("subscription status changed",
		"account_id", sub.AccountID, "subscription_id", sub.ID, "status", status)
	return nil
}

// findSubscription 先按服务商订阅 id，再按 metadata 中的账号查找，找不到时忽略事件
func (s *SubscriptionService) findSubscription(ctx context.Context, repo *repository.SubscriptionRepository, event *payment.Event) (*model.Subscription, error) {
	var (
		sub *model.Subscription
		err = gorm.ErrRecordNotFound
	)
	if event.SubscriptionRef != "" {
		sub, err = repo.GetByProviderRef(ctx, event.SubscriptionRef)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) && event.AccountID != 0 {
		sub, err = repo.GetByAccountID(ctx, event.AccountID)
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.FromContext(ctx).Warn("payment event for unknown subscription",
				"event_id", event.ID, "subscription_ref", event.SubscriptionRef)
			return nil, nil
		}
		return nil, dependencyError("load subscription", err)
	}
	return sub, nil
}

// periodEnd 优先使用服务商给出的周期结束时间
func (s *SubscriptionService) periodEnd(unix int64) time.Time {
	if unix > 0 {
		return time.Unix(unix, 0).UTC()
	}
	days := s.cfg.Stripe.PeriodDays
	if days <= 0 {
		days = 30
	}
	return s.now().AddDate(0, 0, days)
}
