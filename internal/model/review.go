package model

import (
	"fmt"
	"strings"
	"time"
)

const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 500
)

// Review 已发布的评价，发布后不再修改
// AccountID 为空表示通过邮件验证的匿名评价
type Review struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	ProfileID int64     `gorm:"not null;uniqueIndex:idx_review_profile_account;index" json:"profile_id"`
	AccountID *int64    `gorm:"uniqueIndex:idx_review_profile_account" json:"account_id"`
	Rating    int       `gorm:"not null" json:"rating"`
	Comment   string    `gorm:"size:2000" json:"comment"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	Profile *Profile `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Review) TableName() string {
	return "reviews"
}

// PendingReview 等待邮箱验证的评价
type PendingReview struct {
	ID         int64      `gorm:"primaryKey" json:"id"`
	ProfileID  int64      `gorm:"not null;index" json:"profile_id"`
	Email      string     `gorm:"size:100;not null" json:"email"`
	Rating     int        `gorm:"not null" json:"rating"`
	Comment    string     `gorm:"size:2000" json:"comment"`
	Token      string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	PendingKey *string    `gorm:"size:200;uniqueIndex" json:"-"` // 未验证时为 profileID:email，验证或过期后置空
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`

	Profile *Profile `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"-"`
}

func (PendingReview) TableName() string {
	return "pending_reviews"
}

// IsVerified 是否已验证
func (p *PendingReview) IsVerified() bool {
	return p.VerifiedAt != nil
}

// IsExpired 在 ttl 之外仍未验证则视为过期，ttl 为 0 时永不过期
func (p *PendingReview) IsExpired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 || p.IsVerified() {
		return false
	}
	return now.Sub(p.CreatedAt) > ttl
}

// PendingKeyFor 生成 (profile, email) 的去重键，邮箱不区分大小写
func PendingKeyFor(profileID int64, email string) string {
	return fmt.Sprintf("%d:%s", profileID, strings.ToLower(strings.TrimSpace(email)))
}
