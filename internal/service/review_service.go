package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/yardconnect/config"
	"github.com/qs3c/yardconnect/internal/model"
	"github.com/qs3c/yardconnect/internal/model/dto"
	"github.com/qs3c/yardconnect/internal/pkg/email"
	"github.com/qs3c/yardconnect/internal/pkg/logger"
	"github.com/qs3c/yardconnect/internal/pkg/notify"
	"github.com/qs3c/yardconnect/internal/pkg/validate"
	"github.com/qs3c/yardconnect/internal/repository"
)

const (
	defaultReviewLimit = 20
	maxReviewLimit     = 100
)

// ReviewNotifier 评价发布后的通知，失败只记录日志
type ReviewNotifier interface {
	ReviewPublished(ctx context.Context, n *notify.ReviewNotice) error
}

type ReviewService struct {
	profileRepo *repository.ProfileRepository
	reviewRepo  *repository.ReviewRepository
	pendingRepo *repository.PendingReviewRepository
	sender      email.Sender
	notifier    ReviewNotifier
	cfg         *config.Config
	now         func() time.Time
}

func NewReviewService(
	profileRepo *repository.ProfileRepository,
	reviewRepo *repository.ReviewRepository,
	pendingRepo *repository.PendingReviewRepository,
	sender email.Sender,
	notifier ReviewNotifier,
	cfg *config.Config,
) *ReviewService {
	return &ReviewService{
		profileRepo: profileRepo,
		reviewRepo:  reviewRepo,
		pendingRepo: pendingRepo,
		sender:      sender,
		notifier:    notifier,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SubmitPendingReview 匿名提交评价，发送验证邮件后等待确认
// 返回资料名称用于提示
func (s *ReviewService) SubmitPendingReview(ctx context.Context, profileID int64, emailAddr string, rating int, comment string) (string, error) {
	profile, err := s.getProfile(ctx, profileID)
	if err != nil {
		return "", err
	}

	emailAddr = strings.TrimSpace(emailAddr)
	req := &dto.SubmitReviewRequest{Email: emailAddr, Rating: rating, Comment: comment}
	if err := validate.Struct(req); err != nil {
		return "", validationError("%s", err.Error())
	}

	// 同一邮箱对同一资料只能有一条待验证记录
	existing, err := s.pendingRepo.FindUnverified(ctx, profileID, emailAddr)
	switch {
	case err == nil:
		if !existing.IsExpired(s.cfg.Review.PendingTTL(), s.now()) {
			return "", ErrPendingReviewExists
		}
		if err := s.pendingRepo.Release(ctx, existing.ID); err != nil {
			return "", dependencyError("release expired pending review", err)
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", dependencyError("load pending review", err)
	}

	pending := &model.PendingReview{
		ProfileID: profileID,
		Email:     emailAddr,
		Rating:    rating,
		Comment:   comment,
		Token:     NewVerificationToken(),
		CreatedAt: s.now(),
	}
	if err := s.pendingRepo.Create(ctx, pending); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", ErrPendingReviewExists
		}
		return "", dependencyError("save pending review", err)
	}

	if err := s.sendVerification(ctx, profile, pending); err != nil {
		// 邮件未发出则撤回记录，允许重新提交
		if delErr := s.pendingRepo.Delete(context.WithoutCancel(ctx), pending.ID); delErr != nil {
			logger.FromContext(ctx).Error("rollback pending review failed",
				"pending_id", pending.ID, "error", delErr)
		}
		return "", dependencyError("send verification email", err)
	}

	logger.FromContext(ctx).Info("pending review submitted",
		"profile_id", profileID, "pending_id", pending.ID)
	return profile.Name, nil
}

func (s *ReviewService) sendVerification(ctx context.Context, profile *model.Profile, pending *model.PendingReview) error {
	link := strings.TrimRight(s.cfg.Review.VerifyBaseURL, "/") + "/" + pending.Token
	subject, body, err := email.VerificationEmail(profile.Name, pending.Rating, pending.Comment, link)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Email.Timeout())
	defer cancel()
	return s.sender.Send(ctx, pending.Email, subject, body)
}

// VerifyPendingReview 通过邮件链接确认评价并发布
func (s *ReviewService) VerifyPendingReview(ctx context.Context, token string) (*model.Review, string, error) {
	if token == "" {
		return nil, "", ErrReviewLinkInvalid
	}

	pending, err := s.pendingRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrReviewLinkInvalid
		}
		return nil, "", dependencyError("load pending review", err)
	}

	if pending.IsVerified() {
		return nil, "", ErrReviewAlreadyVerified
	}
	if pending.IsExpired(s.cfg.Review.PendingTTL(), s.now()) {
		return nil, "", ErrReviewLinkInvalid
	}

	review, err := s.reviewRepo.PublishPending(ctx, pending.ID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrPendingConsumed) {
			return nil, "", ErrReviewAlreadyVerified
		}
		return nil, "", dependencyError("publish review", err)
	}

	profile, err := s.profileRepo.GetByID(ctx, pending.ProfileID)
	if err != nil {
		// 评价已提交，资料读取失败不影响结果
		logger.FromContext(ctx).Warn("load profile after verify failed",
			"profile_id", pending.ProfileID, "error", err)
		return review, "", nil
	}

	s.notify(ctx, profile, review, true)
	return review, profile.Name, nil
}

// CreateAuthenticatedReview 登录账号直接发布评价
func (s *ReviewService) CreateAuthenticatedReview(ctx context.Context, profileID, accountID int64, rating int, comment string) (*model.Review, error) {
	profile, err := s.getProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}

	if profile.AccountID == accountID {
		return nil, ErrOwnProfileReview
	}

	req := &dto.CreateReviewRequest{Rating: rating, Comment: comment}
	if err := validate.Struct(req); err != nil {
		return nil, validationError("%s", err.Error())
	}

	exists, err := s.reviewRepo.ExistsByAccount(ctx, profileID, accountID)
	if err != nil {
		return nil, dependencyError("check existing review", err)
	}
	if exists {
		return nil, ErrReviewExists
	}

	review := &model.Review{
		ProfileID: profileID,
		AccountID: &accountID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: s.now(),
	}
	if err := s.reviewRepo.Create(ctx, review); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrReviewExists
		}
		return nil, dependencyError("save review", err)
	}

	s.notify(ctx, profile, review, false)
	return review, nil
}

// ListProfileReviews 资料的评价列表，按时间倒序
func (s *ReviewService) ListProfileReviews(ctx context.Context, profileID int64, limit int) ([]*model.Review, error) {
	exists, err := s.profileRepo.Exists(ctx, profileID)
	if err != nil {
		return nil, dependencyError("load profile", err)
	}
	if !exists {
		return nil, ErrProfileNotFound
	}

	if limit <= 0 {
		limit = defaultReviewLimit
	}
	if limit > maxReviewLimit {
		limit = maxReviewLimit
	}

	reviews, err := s.reviewRepo.ListByProfile(ctx, profileID, limit)
	if err != nil {
		return nil, dependencyError("list reviews", err)
	}
	return reviews, nil
}

// ReleaseExpired 释放过期的待验证记录，未启用有效期时不做任何事
func (s *ReviewService) ReleaseExpired(ctx context.Context) (int64, error) {
	ttl := s.cfg.Review.PendingTTL()
	if ttl <= 0 {
		return 0, nil
	}
	return s.pendingRepo.ReleaseExpired(ctx, s.now().Add(-ttl))
}

func (s *ReviewService) getProfile(ctx context.Context, profileID int64) (*model.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, dependencyError("load profile", err)
	}
	return profile, nil
}

func (s *ReviewService) notify(ctx context.Context, profile *model.Profile, review *model.Review, verified bool) {
	if s.notifier == nil {
		return
	}

	err := s.notifier.ReviewPublished(ctx, &notify.ReviewNotice{
		OwnerAccountID: profile.AccountID,
		OwnerEmail:     profile.Email,
		ProfileID:      profile.ID,
		ProfileName:    profile.Name,
		ReviewID:       review.ID,
		Rating:         review.Rating,
		Comment:        review.Comment,
		Verified:       verified,
		CreatedAt:      review.CreatedAt,
	})
	if err != nil {
		logger.FromContext(ctx).Warn("review notification failed",
			"review_id", review.ID, "error", err)
	}
}

// ToReviewItem 转换为响应结构
func ToReviewItem(r *model.Review) *dto.ReviewItem {
	return &dto.ReviewItem{
		ID:        r.ID,
		ProfileID: r.ProfileID,
		AccountID: r.AccountID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		Verified:  r.AccountID == nil,
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
}

var _ ReviewNotifier = (*notify.Dispatcher)(nil)
