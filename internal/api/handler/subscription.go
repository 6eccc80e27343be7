package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/yardconnect/internal/api/middleware"
	"github.com/qs3c/yardconnect/internal/pkg/logger"
	"github.com/qs3c/yardconnect/internal/pkg/response"
	"github.com/qs3c/yardconnect/internal/service"
)

const maxWebhookBody = 64 << 10

type SubscriptionHandler struct {
	subService *service.SubscriptionService
}

func NewSubscriptionHandler(subService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subService: subService,
	}
}

// Plans 套餐列表
// GET /api/v1/subscription/plans
func (h *SubscriptionHandler) Plans(c *gin.Context) {
	response.Success(c, h.subService.Plans())
}

// GetMine 当前订阅
// GET /api/v1/subscription
func (h *SubscriptionHandler) GetMine(c *gin.Context) {
	accountID, _ := middleware.GetAccountID(c)

	info, err := h.subService.GetMine(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, info)
}

// Checkout 创建支付会话
// POST /api/v1/subscription/checkout
func (h *SubscriptionHandler) Checkout(c *gin.Context) {
	accountID, _ := middleware.GetAccountID(c)

	resp, err := h.subService.CreateCheckout(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// Cancel 取消订阅
// DELETE /api/v1/subscription
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	accountID, _ := middleware.GetAccountID(c)

	if err := h.subService.Cancel(c.Request.Context(), accountID); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "subscription cancelled", nil)
}

// Webhook 支付回调，使用真实 HTTP 状态码让 Stripe 决定是否重试
// POST /api/v1/webhooks/stripe
func (h *SubscriptionHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil || len(payload) > maxWebhookBody {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
		return
	}

	err = h.subService.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"received": true})
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.FromContext(c.Request.Context()).Error("webhook processing failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
	}
}
