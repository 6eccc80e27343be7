package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/yardconnect/config"
	"github.com/qs3c/yardconnect/internal/model"
	"github.com/qs3c/yardconnect/internal/model/dto"
	"github.com/qs3c/yardconnect/internal/pkg/jwt"
	"github.com/qs3c/yardconnect/internal/pkg/validate"
	"github.com/qs3c/yardconnect/internal/repository"
)

type AuthService struct {
	accountRepo *repository.AccountRepository
	cfg         *config.Config
}

func NewAuthService(accountRepo *repository.AccountRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		accountRepo: accountRepo,
		cfg:         cfg,
	}
}

// Register 注册账号并直接登录
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !validate.IsEmail(email) {
		return nil, validationError("email must be a valid email address")
	}
	if len(req.Password) < 8 {
		return nil, validationError("password must be at least 8 characters")
	}

	role := req.Role
	if role == "" {
		role = model.RoleYardWorker
	}
	if role != model.RoleYardWorker && role != model.RoleClient {
		return nil, validationError("role must be one of: yard_worker, client")
	}

	// 检查邮箱是否存在
	exists, err := s.accountRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, dependencyError("check email", err)
	}
	if exists {
		return nil, ErrEmailExists
	}

	// 加密密码
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		Email:        email,
		PasswordHash: string(hashed),
		Role:         role,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		return nil, dependencyError("create account", err)
	}

	return s.issue(account)
}

// Login 邮箱密码登录
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	account, err := s.accountRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, dependencyError("load account", err)
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(account)
}

// Me 当前账号信息
func (s *AuthService) Me(ctx context.Context, accountID int64) (*dto.AccountInfo, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, dependencyError("load account", err)
	}
	return buildAccountInfo(account), nil
}

func (s *AuthService) issue(account *model.Account) (*dto.AuthResponse, error) {
	token, err := jwt.GenerateToken(account.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		Token:   token,
		Account: buildAccountInfo(account),
	}, nil
}

func buildAccountInfo(account *model.Account) *dto.AccountInfo {
	return &dto.AccountInfo{
		ID:        account.ID,
		Email:     account.Email,
		Role:      account.Role,
		CreatedAt: account.CreatedAt.Format(time.RFC3339),
	}
}
