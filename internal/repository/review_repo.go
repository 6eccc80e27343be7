package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/yardconnect/internal/model"
)

// ErrPendingConsumed 待验证评价已被其他请求验证
var ErrPendingConsumed = errors.New("pending review already consumed")

// RatingStat 单个资料的评分统计
type RatingStat struct {
	ProfileID     int64
	AverageRating float64
	ReviewCount   int64
}

type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create 创建评价
func (r *ReviewRepository) Create(ctx context.Context, review *model.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// ExistsByAccount 账号是否已评价过该资料
func (r *ReviewRepository) ExistsByAccount(ctx context.Context, profileID, accountID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Review{}).
		Where("profile_id = ? AND account_id = ?", profileID, accountID).
		Count(&count).Error
	return count > 0, err
}

// ListByProfile 按时间倒序获取资料的评价
func (r *ReviewRepository) ListByProfile(ctx context.Context, profileID int64, limit int) ([]*model.Review, error) {
	var reviews []*model.Review
	err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// RatingStats 批量统计平均分和评价数，没有评价的资料不在结果中
func (r *ReviewRepository) RatingStats(ctx context.Context, profileIDs []int64) (map[int64]RatingStat, error) {
	stats := make(map[int64]RatingStat, len(profileIDs))
	if len(profileIDs) == 0 {
		return stats, nil
	}

	var rows []RatingStat
	err := r.db.WithContext(ctx).Model(&model.Review{}).
		Select("profile_id, AVG(rating) AS average_rating, COUNT(*) AS review_count").
		Where("profile_id IN ?", profileIDs).
		Group("profile_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		stats[row.ProfileID] = row
	}
	return stats, nil
}

// PublishPending 在同一事务中标记待验证评价已验证并发布评价
// 条件更新保证同一 token 只会发布一次，并发请求返回 ErrPendingConsumed
func (r *ReviewRepository) PublishPending(ctx context.Context, pendingID int64, now time.Time) (*model.Review, error) {
	now = now.UTC()
	var review *model.Review
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.PendingReview{}).
			Where("id = ? AND verified_at IS NULL", pendingID).
			Updates(map[string]interface{}{
				"verified_at": now,
				"pending_key": nil,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPendingConsumed
		}

		var pending model.PendingReview
		if err := tx.Where("id = ?", pendingID).First(&pending).Error; err != nil {
			return err
		}

		review = &model.Review{
			ProfileID: pending.ProfileID,
			Rating:    pending.Rating,
			Comment:   pending.Comment,
			CreatedAt: now,
		}
		return tx.Create(review).Error
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}
