package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/qs3c/yardconnect/internal/model"
)

// ProfileFilter 市场搜索条件，空值表示不过滤
type ProfileFilter struct {
	Location string // 匹配 location 或 zip，不区分大小写
	Service  string // 匹配任一服务标签，不区分大小写
	MinPrice *float64
	MaxPrice *float64
}

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID 获取资料及服务标签
func (r *ProfileRepository) GetByID(ctx context.Context, id int64) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Preload("Services").Where("id = ?", id).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetByAccountID 获取账号的资料
func (r *ProfileRepository) GetByAccountID(ctx context.Context, accountID int64) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).Preload("Services").Where("account_id = ?", accountID).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Exists 检查资料是否存在
func (r *ProfileRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Profile{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Upsert 按账号创建或更新资料，服务标签整体替换
// 返回 created 表示是否为首次创建
func (r *ProfileRepository) Upsert(ctx context.Context, profile *model.Profile, serviceNames []string) (created bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		services, err := ensureCategories(tx, serviceNames)
		if err != nil {
			return err
		}

		var existing model.Profile
		err = tx.Where("account_id = ?", profile.AccountID).First(&existing).Error
		switch {
		case err == nil:
			profile.ID = existing.ID
			profile.CreatedAt = existing.CreatedAt
			columns := []string{"name", "location", "zip", "age", "price", "email", "bio"}
			// 未提供照片时保留已上传的照片
			if profile.Photo != nil {
				columns = append(columns, "photo")
			} else {
				profile.Photo = existing.Photo
			}
			if err := tx.Model(&existing).Select(columns).Updates(profile).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			if err := tx.Omit("Services").Create(profile).Error; err != nil {
				return err
			}
		default:
			return err
		}

		if err := tx.Model(profile).Association("Services").Replace(services); err != nil {
			return err
		}
		profile.Services = services
		return nil
	})
	return created, err
}

// ensureCategories 按名称查找或创建服务标签
func ensureCategories(tx *gorm.DB, names []string) ([]*model.ServiceCategory, error) {
	seen := make(map[string]struct{}, len(names))
	categories := make([]*model.ServiceCategory, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(name)]; ok {
			continue
		}
		seen[strings.ToLower(name)] = struct{}{}

		var category model.ServiceCategory
		err := tx.Where("LOWER(name) = ?", strings.ToLower(name)).First(&category).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			category = model.ServiceCategory{Name: name}
			err = tx.Create(&category).Error
		}
		if err != nil {
			return nil, err
		}
		categories = append(categories, &category)
	}
	return categories, nil
}

// UpdatePhoto 更新资料照片
func (r *ProfileRepository) UpdatePhoto(ctx context.Context, accountID int64, photoURL string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Profile{}).
		Where("account_id = ?", accountID).
		Update("photo", photoURL)
	return result.RowsAffected, result.Error
}

// Delete 删除资料，评价与待验证评价随外键级联删除
func (r *ProfileRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("profile_id = ?", id).Delete(&model.PendingReview{}).Error; err != nil {
			return err
		}
		if err := tx.Where("profile_id = ?", id).Delete(&model.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Profile{ID: id}).Association("Services").Clear(); err != nil {
			return err
		}
		return tx.Delete(&model.Profile{}, id).Error
	})
}

// visibleQuery 只保留订阅状态为 active 的账号的资料
func (r *ProfileRepository) visibleQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&model.Profile{}).
		Joins("JOIN subscriptions ON subscriptions.account_id = profiles.account_id AND subscriptions.status = ?",
			model.SubscriptionActive)
}

// ListVisible 市场搜索，每次查询都重新计算可见性
func (r *ProfileRepository) ListVisible(ctx context.Context, filter ProfileFilter, limit, offset int) ([]*model.Profile, int64, error) {
	query := r.visibleQuery(ctx)

	if filter.Location != "" {
		like := "%" + strings.ToLower(filter.Location) + "%"
		query = query.Where("(LOWER(profiles.location) LIKE ? OR LOWER(profiles.zip) LIKE ?)", like, like)
	}
	if filter.Service != "" {
		like := "%" + strings.ToLower(filter.Service) + "%"
		query = query.Where(`EXISTS (SELECT 1 FROM profile_services ps
			JOIN service_categories sc ON sc.id = ps.service_category_id
			WHERE ps.profile_id = profiles.id AND LOWER(sc.name) LIKE ?)`, like)
	}
	if filter.MinPrice != nil {
		query = query.Where("profiles.price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("profiles.price <= ?", *filter.MaxPrice)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var profiles []*model.Profile
	err := query.Preload("Services").
		Order("profiles.created_at DESC").
		Order("profiles.id DESC").
		Offset(offset).Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, 0, err
	}

	return profiles, total, nil
}

// IsVisible 资料当前是否出现在市场搜索中
func (r *ProfileRepository) IsVisible(ctx context.Context, id int64) (bool, error) {
	var count int64
	err := r.visibleQuery(ctx).Where("profiles.id = ?", id).Count(&count).Error
	return count > 0, err
}
