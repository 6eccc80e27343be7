package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/yardconnect/internal/api/middleware"
	"github.com/qs3c/yardconnect/internal/model/dto"
	"github.com/qs3c/yardconnect/internal/pkg/response"
	"github.com/qs3c/yardconnect/internal/service"
)

type ProfileHandler struct {
	profileService *service.ProfileService
}

func NewProfileHandler(profileService *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
	}
}

// List 市场列表，只返回订阅有效的资料
// GET /api/v1/profiles?limit=20&offset=0&location=&service=&min_price=&max_price=
func (h *ProfileHandler) List(c *gin.Context) {
	var filter dto.ProfileFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	limit, offset := listWindow(c)

	items, total, err := h.profileService.ListVisible(c.Request.Context(), &filter, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessPage(c, total, limit, offset, items)
}

// Get 公开资料详情
// GET /api/v1/profiles/:id
func (h *ProfileHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	item, err := h.profileService.GetPublic(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	visible, err := h.profileService.IsVisible(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{
		"profile":      item,
		"is_published": visible,
	})
}

// GetMine 当前账号的资料
// GET /api/v1/me/profile
func (h *ProfileHandler) GetMine(c *gin.Context) {
	accountID, _ := middleware.GetAccountID(c)

	resp, err := h.profileService.GetMine(c.Request.Context(), accountID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// Upsert 创建或更新资料
// PUT /api/v1/me/profile
func (h *ProfileHandler) Upsert(c *gin.Context) {
	accountID, _ := middleware.GetAccountID(c)

	var req dto.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	item, created, err := h.profileService.Upsert(c.Request.Context(), accountID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	msg := "profile updated"
	if created {
		msg = "profile created"
	}
	response.SuccessWithMessage(c, msg, item)
}

// Delete 删除自己的资料
// DELETE /api/v1/me/profile
func (h *ProfileHandler) Delete(c *gin.Context) {
	accountID, _ := middleware.GetAccountID(c)

	if err := h.profileService.Delete(c.Request.Context(), accountID); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "profile deleted", nil)
}

// UploadPhoto 上传资料照片
// POST /api/v1/me/profile/photo (multipart, 字段 photo)
func (h *ProfileHandler) UploadPhoto(c *gin.Context) {
	accountID, _ := middleware.GetAccountID(c)

	fh, err := c.FormFile("photo")
	if err != nil {
		response.ParamError(c, "photo file is required")
		return
	}

	file, err := fh.Open()
	if err != nil {
		response.ParamError(c, "cannot read photo")
		return
	}
	defer file.Close()

	url, err := h.profileService.UploadPhoto(c.Request.Context(), accountID, file, fh.Filename)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, gin.H{"photo": url})
}

// pathID 解析 :id，失败时已写响应
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "invalid id")
		return 0, false
	}
	return id, true
}

// listWindow 读取 limit/offset，无法解析时按 0 处理
func listWindow(c *gin.Context) (int, int) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	return service.ClampListWindow(limit, offset)
}
