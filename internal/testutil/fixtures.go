package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/yardconnect/internal/model"
)

var seq int64

func next() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestAccount 创建测试账号
func TestAccount(t *testing.T, db *gorm.DB, opts ...func(*model.Account)) *model.Account {
	t.Helper()

	account := &model.Account{
		Email:        fmt.Sprintf("worker_%d@example.com", next()),
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuvwxyz123456", // bcrypt hash placeholder
		Role:         model.RoleYardWorker,
	}

	for _, opt := range opts {
		opt(account)
	}

	if err := db.Create(account).Error; err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}

	return account
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.Account) {
	return func(a *model.Account) {
		a.Email = email
	}
}

// WithPasswordHash 设置密码哈希
func WithPasswordHash(hash string) func(*model.Account) {
	return func(a *model.Account) {
		a.PasswordHash = hash
	}
}

// WithRole 设置角色
func WithRole(role string) func(*model.Account) {
	return func(a *model.Account) {
		a.Role = role
	}
}

// TestProfile 创建测试资料
func TestProfile(t *testing.T, db *gorm.DB, accountID int64, opts ...func(*model.Profile)) *model.Profile {
	t.Helper()

	n := next()
	profile := &model.Profile{
		AccountID: accountID,
		Name:      fmt.Sprintf("Yard Worker %d", n),
		Location:  "Austin, TX",
		Zip:       "78701",
		Age:       30,
		Price:     25,
		Email:     fmt.Sprintf("contact_%d@example.com", n),
		Bio:       "Reliable lawn care and garden maintenance.",
	}

	for _, opt := range opts {
		opt(profile)
	}

	// 服务标签按名称复用，避免唯一索引冲突
	wanted := profile.Services
	profile.Services = nil
	if err := db.Create(profile).Error; err != nil {
		t.Fatalf("Failed to create test profile: %v", err)
	}

	for _, svc := range wanted {
		var category model.ServiceCategory
		if err := db.Where(model.ServiceCategory{Name: svc.Name}).FirstOrCreate(&category).Error; err != nil {
			t.Fatalf("Failed to create service category: %v", err)
		}
		profile.Services = append(profile.Services, &category)
	}
	if len(profile.Services) > 0 {
		if err := db.Model(profile).Association("Services").Replace(profile.Services); err != nil {
			t.Fatalf("Failed to attach services: %v", err)
		}
	}

	return profile
}

// WithProfileName 设置资料名称
func WithProfileName(name string) func(*model.Profile) {
	return func(p *model.Profile) {
		p.Name = name
	}
}

// WithLocation 设置地区和邮编
func WithLocation(location, zip string) func(*model.Profile) {
	return func(p *model.Profile) {
		p.Location = location
		p.Zip = zip
	}
}

// WithPrice 设置每小时价格
func WithPrice(price float64) func(*model.Profile) {
	return func(p *model.Profile) {
		p.Price = price
	}
}

// WithServices 设置服务标签
func WithServices(names ...string) func(*model.Profile) {
	return func(p *model.Profile) {
		for _, name := range names {
			p.Services = append(p.Services, &model.ServiceCategory{Name: name})
		}
	}
}

// WithCreatedAt 设置创建时间
func WithCreatedAt(at time.Time) func(*model.Profile) {
	return func(p *model.Profile) {
		p.CreatedAt = at.UTC()
	}
}

// TestSubscription 为账号创建订阅
func TestSubscription(t *testing.T, db *gorm.DB, accountID int64, status string) *model.Subscription {
	t.Helper()

	end := time.Now().AddDate(0, 0, 30)
	ref := fmt.Sprintf("sub_test_%d", next())
	sub := &model.Subscription{
		AccountID:   accountID,
		Plan:        "subscription",
		Amount:      1000,
		Status:      status,
		StartDate:   time.Now(),
		EndDate:     &end,
		ProviderRef: &ref,
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// TestReview 创建已发布评价，accountID 为 nil 表示匿名
func TestReview(t *testing.T, db *gorm.DB, profileID int64, accountID *int64, rating int) *model.Review {
	t.Helper()

	review := &model.Review{
		ProfileID: profileID,
		AccountID: accountID,
		Rating:    rating,
		Comment:   fmt.Sprintf("Review %d", next()),
	}

	if err := db.Create(review).Error; err != nil {
		t.Fatalf("Failed to create test review: %v", err)
	}

	return review
}

// TestPendingReview 创建未验证评价
func TestPendingReview(t *testing.T, db *gorm.DB, profileID int64, email string, opts ...func(*model.PendingReview)) *model.PendingReview {
	t.Helper()

	key := model.PendingKeyFor(profileID, email)
	pending := &model.PendingReview{
		ProfileID:  profileID,
		Email:      email,
		Rating:     5,
		Comment:    "Great work",
		Token:      fmt.Sprintf("%064d", next()),
		PendingKey: &key,
	}

	for _, opt := range opts {
		opt(pending)
	}

	if err := db.Create(pending).Error; err != nil {
		t.Fatalf("Failed to create test pending review: %v", err)
	}

	return pending
}

// WithPendingCreatedAt 设置待验证评价创建时间
func WithPendingCreatedAt(at time.Time) func(*model.PendingReview) {
	return func(p *model.PendingReview) {
		p.CreatedAt = at.UTC()
	}
}

// WithVerifiedAt 标记为已验证
func WithVerifiedAt(at time.Time) func(*model.PendingReview) {
	return func(p *model.PendingReview) {
		at = at.UTC()
		p.VerifiedAt = &at
		p.PendingKey = nil
	}
}
