package dto

// ProfileRequest 创建或更新服务者资料
type ProfileRequest struct {
	Name     string   `json:"name" validate:"required,min=1,max=100"`
	Location string   `json:"location" validate:"required,min=1,max=200"`
	Zip      string   `json:"zip" validate:"required,min=5,max=20"`
	Age      int      `json:"age" validate:"gte=16,lte=100"`
	Price    float64  `json:"price" validate:"gte=0"`
	Email    string   `json:"email" validate:"required,loose_email"`
	Services []string `json:"services" validate:"min=1,dive,required,max=100"`
	Bio      string   `json:"bio" validate:"min=10,max=500"`
	Photo    *string  `json:"photo,omitempty" validate:"omitempty,url"`
}

// ProfileFilter 市场搜索条件
type ProfileFilter struct {
	Location string   `form:"location"`
	Service  string   `form:"service"`
	MinPrice *float64 `form:"min_price"`
	MaxPrice *float64 `form:"max_price"`
}

// ProfileItem 公开资料项
type ProfileItem struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Location      string   `json:"location"`
	Zip           string   `json:"zip"`
	Age           int      `json:"age"`
	Price         float64  `json:"price"`
	Email         string   `json:"email"`
	Bio           string   `json:"bio"`
	Photo         *string  `json:"photo,omitempty"`
	Services      []string `json:"services"`
	AverageRating float64  `json:"average_rating"`
	ReviewCount   int64    `json:"review_count"`
	CreatedAt     string   `json:"created_at"`
}

// MyProfileResponse 当前账号的资料与发布状态
type MyProfileResponse struct {
	*ProfileItem
	IsPublished        bool   `json:"is_published"`
	SubscriptionStatus string `json:"subscription_status"`
	SubscriptionPlan   string `json:"subscription_plan,omitempty"`
	SubscriptionAmount int64  `json:"subscription_amount,omitempty"`
}
