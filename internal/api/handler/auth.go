package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/yardconnect/internal/api/middleware"
	"github.com/qs3c/yardconnect/internal/model/dto"
	"github.com/qs3c/yardconnect/internal/pkg/response"
	"github.com/qs3c/yardconnect/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register 注册账号
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "account created", resp)
}

// Login 登录
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "login successful", resp)
}

// Me 当前登录账号
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	accountID, _ := middleware.GetAccountID(c)

	info, err := h.authService.Me(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, info)
}
