package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/yardconnect/internal/model"
)

type PendingReviewRepository struct {
	db *gorm.DB
}

func NewPendingReviewRepository(db *gorm.DB) *PendingReviewRepository {
	return &PendingReviewRepository{db: db}
}

// Create 创建待验证评价，同一 (profile, email) 已有未验证记录时返回 gorm.ErrDuplicatedKey
func (r *PendingReviewRepository) Create(ctx context.Context, pending *model.PendingReview) error {
	key := model.PendingKeyFor(pending.ProfileID, pending.Email)
	pending.PendingKey = &key
	return r.db.WithContext(ctx).Create(pending).Error
}

// GetByToken 按 token 精确查找
func (r *PendingReviewRepository) GetByToken(ctx context.Context, token string) (*model.PendingReview, error) {
	var pending model.PendingReview
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&pending).Error
	if err != nil {
		return nil, err
	}
	return &pending, nil
}

// FindUnverified 查找 (profile, email) 当前未验证的记录
func (r *PendingReviewRepository) FindUnverified(ctx context.Context, profileID int64, email string) (*model.PendingReview, error) {
	var pending model.PendingReview
	err := r.db.WithContext(ctx).
		Where("pending_key = ?", model.PendingKeyFor(profileID, email)).
		First(&pending).Error
	if err != nil {
		return nil, err
	}
	return &pending, nil
}

// Delete 删除记录
func (r *PendingReviewRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.PendingReview{}, id).Error
}

// Release 释放去重键，使同一 (profile, email) 可以重新提交
func (r *PendingReviewRepository) Release(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&model.PendingReview{}).
		Where("id = ? AND verified_at IS NULL", id).
		Update("pending_key", nil).Error
}

// ReleaseExpired 释放创建时间早于 before 的未验证记录
func (r *PendingReviewRepository) ReleaseExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.PendingReview{}).
		Where("verified_at IS NULL AND pending_key IS NOT NULL AND created_at < ?", before.UTC()).
		Update("pending_key", nil)
	return result.RowsAffected, result.Error
}

// CountExpired 统计早于 before 的未验证记录
func (r *PendingReviewRepository) CountExpired(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PendingReview{}).
		Where("verified_at IS NULL AND created_at < ?", before.UTC()).
		Count(&count).Error
	return count, err
}

// DeleteExpired 删除早于 before 的未验证记录
func (r *PendingReviewRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("verified_at IS NULL AND created_at < ?", before.UTC()).
		Delete(&model.PendingReview{})
	return result.RowsAffected, result.Error
}

// CountUnverified 统计所有仍在等待验证的记录，包括已过期未清理的
func (r *PendingReviewRepository) CountUnverified(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.PendingReview{}).
		Where("verified_at IS NULL").
		Count(&count).Error
	return count, err
}
