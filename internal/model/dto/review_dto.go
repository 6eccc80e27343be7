package dto

// SubmitReviewRequest 匿名评价提交（需邮箱验证）
type SubmitReviewRequest struct {
	Email   string `json:"email" validate:"required,loose_email"`
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"max=500"`
}

// SubmitReviewResponse 提交结果
type SubmitReviewResponse struct {
	ProfileName string `json:"profile_name"`
}

// CreateReviewRequest 登录用户直接评价
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"max=500"`
}

// ReviewItem 评价项
type ReviewItem struct {
	ID        int64  `json:"id"`
	ProfileID int64  `json:"profile_id"`
	AccountID *int64 `json:"account_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	Verified  bool   `json:"verified"` // 匿名评价经邮箱验证
	CreatedAt string `json:"created_at"`
}
