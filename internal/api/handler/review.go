package handler

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/yardconnect/internal/api/middleware"
	"github.com/qs3c/yardconnect/internal/model/dto"
	"github.com/qs3c/yardconnect/internal/pkg/logger"
	"github.com/qs3c/yardconnect/internal/pkg/response"
	"github.com/qs3c/yardconnect/internal/service"
)

var verifyPage = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}} | YardConnect</title></head>
<body style="font-family: Arial, sans-serif; max-width: 560px; margin: 48px auto; color: #333;">
  <h1 style="color: {{.Color}};">{{.Title}}</h1>
  <p>{{.Message}}</p>
</body>
</html>`))

type verifyView struct {
	Title   string
	Message string
	Color   string
}

type ReviewHandler struct {
	reviewService *service.ReviewService
}

func NewReviewHandler(reviewService *service.ReviewService) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
	}
}

// List 资料的已发布评价
// GET /api/v1/profiles/:id/reviews?limit=20
func (h *ReviewHandler) List(c *gin.Context) {
	profileID, ok := pathID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	reviews, err := h.reviewService.ListProfileReviews(c.Request.Context(), profileID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]*dto.ReviewItem, 0, len(reviews))
	for _, r := range reviews {
		items = append(items, service.ToReviewItem(r))
	}
	response.Success(c, items)
}

// Create 登录账号直接评价
// POST /api/v1/profiles/:id/reviews
func (h *ReviewHandler) Create(c *gin.Context) {
	profileID, ok := pathID(c)
	if !ok {
		return
	}
	accountID, _ := middleware.GetAccountID(c)

	var req dto.CreateReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	review, err := h.reviewService.CreateAuthenticatedReview(c.Request.Context(), profileID, accountID, req.Rating, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "review published", service.ToReviewItem(review))
}

// SubmitPending 匿名提交，需通过邮件确认
// POST /api/v1/profiles/:id/reviews/pending
func (h *ReviewHandler) SubmitPending(c *gin.Context) {
	profileID, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	name, err := h.reviewService.SubmitPendingReview(c.Request.Context(), profileID, req.Email, req.Rating, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "check your email to confirm your review",
		&dto.SubmitReviewResponse{ProfileName: name})
}

// Verify 邮件中的确认链接，返回 HTML 页面
// GET /api/v1/reviews/verify/:token
func (h *ReviewHandler) Verify(c *gin.Context) {
	_, name, err := h.reviewService.VerifyPendingReview(c.Request.Context(), c.Param("token"))

	status := http.StatusOK
	view := verifyView{Title: "Review verified", Color: "#2e7d32"}
	switch {
	case err == nil:
		view.Message = "Thanks! Your review is now published."
		if name != "" {
			view.Message = "Thanks! Your review of " + name + " is now published."
		}
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
		view = verifyView{Title: "Link not valid", Color: "#c62828",
			Message: "This verification link is invalid or has expired."}
	case errors.Is(err, service.ErrAlreadyVerified):
		status = http.StatusConflict
		view = verifyView{Title: "Already verified", Color: "#ef6c00",
			Message: "This review has already been verified."}
	case errors.Is(err, service.ErrDependency):
		status = http.StatusServiceUnavailable
		view = verifyView{Title: "Please try again", Color: "#c62828",
			Message: "We could not verify your review right now. Please try the link again shortly."}
	default:
		status = http.StatusInternalServerError
		view = verifyView{Title: "Something went wrong", Color: "#c62828",
			Message: "We could not verify your review."}
	}
	if err != nil {
		logger.FromContext(c.Request.Context()).Info("review verification rejected", "error", err)
	}

	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := verifyPage.Execute(c.Writer, view); err != nil {
		logger.FromContext(c.Request.Context()).Error("render verify page", "error", err)
	}
}
