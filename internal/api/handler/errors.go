package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/yardconnect/internal/pkg/logger"
	"github.com/qs3c/yardconnect/internal/pkg/response"
	"github.com/qs3c/yardconnect/internal/service"
)

// respondError 按业务错误类别写统一响应
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.AuthError(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrConflict):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrAlreadyVerified):
		response.AlreadyVerifiedError(c, err.Error())
	case errors.Is(err, service.ErrDependency):
		logger.FromContext(c.Request.Context()).Warn("dependency failure",
			"path", c.FullPath(), "error", err)
		response.DependencyError(c, "")
	default:
		logger.FromContext(c.Request.Context()).Error("unhandled error",
			"path", c.FullPath(), "error", err)
		response.ServerError(c, "")
	}
}
