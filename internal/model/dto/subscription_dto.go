package dto

// PlanInfo 订阅套餐
type PlanInfo struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Amount   int64    `json:"amount"`
	Currency string   `json:"currency"`
	Interval string   `json:"interval"`
	Features []string `json:"features"`
}

// SubscriptionInfo 订阅详情
type SubscriptionInfo struct {
	ID        int64          `json:"id,omitempty"`
	Plan      string         `json:"plan,omitempty"`
	Amount    int64          `json:"amount,omitempty"`
	Status    string         `json:"status"`
	StartDate string         `json:"start_date,omitempty"`
	EndDate   string         `json:"end_date,omitempty"`
	Payments  []*PaymentItem `json:"payments,omitempty"`
}

// PaymentItem 支付记录
type PaymentItem struct {
	ID        int64  `json:"id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// CheckoutResponse 支付会话
type CheckoutResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}
