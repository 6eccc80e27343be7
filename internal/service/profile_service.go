package service

import (
	"context"
	"errors"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"gorm.io/gorm"

	"github.com/qs3c/yardconnect/config"
	"github.com/qs3c/yardconnect/internal/model"
	"github.com/qs3c/yardconnect/internal/model/dto"
	"github.com/qs3c/yardconnect/internal/pkg/validate"
	"github.com/qs3c/yardconnect/internal/repository"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// PhotoStore 资料照片存储
type PhotoStore interface {
	UploadProfilePhoto(accountID int64, data []byte, ext, contentType string) (string, error)
}

type ProfileService struct {
	profileRepo *repository.ProfileRepository
	reviewRepo  *repository.ReviewRepository
	subRepo     *repository.SubscriptionRepository
	photos      PhotoStore
	cfg         *config.Config
}

func NewProfileService(
	profileRepo *repository.ProfileRepository,
	reviewRepo *repository.ReviewRepository,
	subRepo *repository.SubscriptionRepository,
	photos PhotoStore,
	cfg *config.Config,
) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		reviewRepo:  reviewRepo,
		subRepo:     subRepo,
		photos:      photos,
		cfg:         cfg,
	}
}

// Upsert 创建或更新当前账号的资料，created 表示首次创建
func (s *ProfileService) Upsert(ctx context.Context, accountID int64, req *dto.ProfileRequest) (*dto.ProfileItem, bool, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, false, validationError("%s", err.Error())
	}

	profile := &model.Profile{
		AccountID: accountID,
		Name:      strings.TrimSpace(req.Name),
		Location:  strings.TrimSpace(req.Location),
		Zip:       strings.TrimSpace(req.Zip),
		Age:       req.Age,
		Price:     req.Price,
		Email:     req.Email,
		Bio:       req.Bio,
		Photo:     req.Photo,
	}

	created, err := s.profileRepo.Upsert(ctx, profile, req.Services)
	if err != nil {
		return nil, false, dependencyError("save profile", err)
	}

	item, err := s.GetPublic(ctx, profile.ID)
	if err != nil {
		return nil, false, err
	}
	return item, created, nil
}

// GetMine 当前账号的资料、发布状态和订阅信息
func (s *ProfileService) GetMine(ctx context.Context, accountID int64) (*dto.MyProfileResponse, error) {
	profile, err := s.profileRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, dependencyError("load profile", err)
	}

	items, err := s.withRatings(ctx, []*model.Profile{profile})
	if err != nil {
		return nil, err
	}

	resp := &dto.MyProfileResponse{
		ProfileItem:        items[0],
		SubscriptionStatus: model.SubscriptionNone,
	}

	sub, err := s.subRepo.GetByAccountID(ctx, accountID)
	switch {
	case err == nil:
		resp.SubscriptionStatus = sub.Status
		resp.SubscriptionPlan = sub.Plan
		resp.SubscriptionAmount = sub.Amount
		resp.IsPublished = sub.Status == model.SubscriptionActive
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, dependencyError("load subscription", err)
	}

	return resp, nil
}

// GetPublic 按 ID 获取资料，不要求资料可见
func (s *ProfileService) GetPublic(ctx context.Context, profileID int64) (*dto.ProfileItem, error) {
	profile, err := s.profileRepo.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, dependencyError("load profile", err)
	}

	items, err := s.withRatings(ctx, []*model.Profile{profile})
	if err != nil {
		return nil, err
	}
	return items[0], nil
}

// ClampListWindow 规范化 limit/offset：limit 默认 20、上限 100，offset 不小于 0
func ClampListWindow(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ListVisible 市场搜索，只返回订阅有效的资料，按创建时间倒序
func (s *ProfileService) ListVisible(ctx context.Context, filter *dto.ProfileFilter, limit, offset int) ([]*dto.ProfileItem, int64, error) {
	limit, offset = ClampListWindow(limit, offset)

	var f repository.ProfileFilter
	if filter != nil {
		f = repository.ProfileFilter{
			Location: strings.TrimSpace(filter.Location),
			Service:  strings.TrimSpace(filter.Service),
			MinPrice: filter.MinPrice,
			MaxPrice: filter.MaxPrice,
		}
	}

	profiles, total, err := s.profileRepo.ListVisible(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, dependencyError("list profiles", err)
	}

	items, err := s.withRatings(ctx, profiles)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Delete 删除当前账号的资料，评价与待验证评价一并删除
func (s *ProfileService) Delete(ctx context.Context, accountID int64) error {
	profile, err := s.profileRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProfileNotFound
		}
		return dependencyError("load profile", err)
	}

	if err := s.profileRepo.Delete(ctx, profile.ID); err != nil {
		return dependencyError("delete profile", err)
	}
	return nil
}

// IsVisible 资料当前是否出现在市场搜索中
func (s *ProfileService) IsVisible(ctx context.Context, profileID int64) (bool, error) {
	visible, err := s.profileRepo.IsVisible(ctx, profileID)
	if err != nil {
		return false, dependencyError("check visibility", err)
	}
	return visible, nil
}

// UploadPhoto 上传资料照片并写回资料
func (s *ProfileService) UploadPhoto(ctx context.Context, accountID int64, file io.Reader, filename string) (string, error) {
	if s.photos == nil {
		return "", ErrStorageDisabled
	}

	if _, err := s.profileRepo.GetByAccountID(ctx, accountID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrProfileNotFound
		}
		return "", dependencyError("load profile", err)
	}

	maxSize := s.cfg.Upload.MaxPhotoSize
	if maxSize <= 0 {
		maxSize = 5 << 20
	}
	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return "", validationError("read photo: %v", err)
	}
	if int64(len(data)) > maxSize {
		return "", ErrPhotoTooLarge
	}

	// 以文件内容判断类型，不信任文件名
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return "", ErrInvalidPhoto
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if mimeForExt(ext) != mime.String() {
		ext = mime.Extension()
	}

	url, err := s.photos.UploadProfilePhoto(accountID, data, ext, mime.String())
	if err != nil {
		return "", dependencyError("upload photo", err)
	}

	if _, err := s.profileRepo.UpdatePhoto(ctx, accountID, url); err != nil {
		return "", dependencyError("save photo", err)
	}
	return url, nil
}

func mimeForExt(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return ""
	}
}

// withRatings 批量附加评分统计
func (s *ProfileService) withRatings(ctx context.Context, profiles []*model.Profile) ([]*dto.ProfileItem, error) {
	ids := make([]int64, len(profiles))
	for i, p := range profiles {
		ids[i] = p.ID
	}

	stats, err := s.reviewRepo.RatingStats(ctx, ids)
	if err != nil {
		return nil, dependencyError("load ratings", err)
	}

	items := make([]*dto.ProfileItem, len(profiles))
	for i, p := range profiles {
		stat := stats[p.ID]
		items[i] = &dto.ProfileItem{
			ID:            p.ID,
			Name:          p.Name,
			Location:      p.Location,
			Zip:           p.Zip,
			Age:           p.Age,
			Price:         p.Price,
			Email:         p.Email,
			Bio:           p.Bio,
			Photo:         p.Photo,
			Services:      p.ServiceNames(),
			AverageRating: RoundRating(stat.AverageRating, stat.ReviewCount),
			ReviewCount:   stat.ReviewCount,
			CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		}
	}
	return items, nil
}

// RoundRating 平均分保留一位小数，没有评价时为 0
func RoundRating(avg float64, count int64) float64 {
	if count == 0 {
		return 0
	}
	return math.Round(avg*10) / 10
}
