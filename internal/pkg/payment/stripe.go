package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/qs3c/yardconnect/config"
)

// StripeGateway 基于 Stripe Checkout 的订阅支付
type StripeGateway struct {
	api *client.API
	cfg *config.StripeConfig
}

func NewStripeGateway(cfg *config.StripeConfig) *StripeGateway {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)
	return &StripeGateway{api: api, cfg: cfg}
}

// CreateCheckout 创建订阅模式的支付会话
func (g *StripeGateway) CreateCheckout(ctx context.Context, p *CheckoutParams) (*CheckoutSession, error) {
	if g.cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}

	accountID := strconv.FormatInt(p.AccountID, 10)
	metadata := map[string]string{
		"account_id":   accountID,
		"plan":         p.Plan,
		"profile_name": p.ProfileName,
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems:         []*stripe.CheckoutSessionLineItemParams{g.lineItem()},
		SuccessURL:        stripe.String(g.cfg.SuccessURL),
		CancelURL:         stripe.String(g.cfg.CancelURL),
		ClientReferenceID: stripe.String(accountID),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: metadata,
		},
	}
	if p.Email != "" {
		params.CustomerEmail = stripe.String(p.Email)
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// lineItem 配置了 price id 时直接引用，否则按金额内联
func (g *StripeGateway) lineItem() *stripe.CheckoutSessionLineItemParams {
	if g.cfg.PriceID != "" {
		return &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(g.cfg.PriceID),
			Quantity: stripe.Int64(1),
		}
	}
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(string(stripe.CurrencyUSD)),
			UnitAmount: stripe.Int64(g.cfg.Amount),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(g.cfg.PlanName),
			},
			Recurring: &stripe.CheckoutSessionLineItemPriceDataRecurringParams{
				Interval: stripe.String(string(stripe.PriceRecurringIntervalMonth)),
			},
		},
		Quantity: stripe.Int64(1),
	}
}

// CancelAtPeriodEnd 到期后不再续费
func (g *StripeGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionRef string) error {
	if g.cfg.SecretKey == "" {
		return ErrNotConfigured
	}

	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	if _, err := g.api.Subscriptions.Update(subscriptionRef, params); err != nil {
		return fmt.Errorf("cancel subscription %s: %w", subscriptionRef, err)
	}
	return nil
}

// ParseEvent 校验签名并提取订阅相关字段
func (g *StripeGateway) ParseEvent(payload []byte, signature string) (*Event, error) {
	if g.cfg.WebhookSecret == "" {
		return nil, ErrNotConfigured
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signature, g.cfg.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	event := &Event{
		ID:      evt.ID,
		Type:    string(evt.Type),
		Payload: payload,
	}
	if evt.Data == nil {
		return event, nil
	}

	switch event.Type {
	case EventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		event.AccountID = accountFromMetadata(sess.Metadata, sess.ClientReferenceID)
		event.Amount = sess.AmountTotal
		if sess.Subscription != nil {
			event.SubscriptionRef = sess.Subscription.ID
		}
		if sess.PaymentIntent != nil {
			event.PaymentRef = sess.PaymentIntent.ID
		}

	case EventInvoicePaid, EventInvoiceFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(evt.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		event.Amount = inv.AmountPaid
		if inv.Subscription != nil {
			event.SubscriptionRef = inv.Subscription.ID
			event.AccountID = accountFromMetadata(inv.Subscription.Metadata, "")
		}
		if inv.PaymentIntent != nil {
			event.PaymentRef = inv.PaymentIntent.ID
		}
		event.PeriodEnd = inv.PeriodEnd

	case EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		event.SubscriptionRef = sub.ID
		event.AccountID = accountFromMetadata(sub.Metadata, "")
		event.PeriodEnd = sub.CurrentPeriodEnd
	}

	return event, nil
}

func accountFromMetadata(metadata map[string]string, fallback string) int64 {
	raw := metadata["account_id"]
	if raw == "" {
		raw = fallback
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
