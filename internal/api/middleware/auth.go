package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/yardconnect/internal/pkg/jwt"
	"github.com/qs3c/yardconnect/internal/pkg/logger"
	"github.com/qs3c/yardconnect/internal/pkg/response"
)

const (
	AccountIDKey = "accountID"
)

// BearerToken 解析 Authorization 头，scheme 不区分大小写
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Auth JWT 认证中间件，通过后账号 ID 写入 gin 上下文和请求 logger
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "missing authorization header")
			c.Abort()
			return
		}

		tokenString, ok := BearerToken(authHeader)
		if !ok {
			response.AuthError(c, "authorization header must use the Bearer scheme")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrExpiredToken) {
				msg = "token has expired, please log in again"
			}
			response.AuthError(c, msg)
			c.Abort()
			return
		}

		c.Set(AccountIDKey, claims.AccountID)
		ctx := c.Request.Context()
		l := logger.FromContext(ctx).With("account_id", claims.AccountID)
		c.Request = c.Request.WithContext(logger.WithContext(ctx, l))
		c.Next()
	}
}

// GetAccountID 从上下文获取账号 ID
func GetAccountID(c *gin.Context) (int64, bool) {
	accountID, exists := c.Get(AccountIDKey)
	if !exists {
		return 0, false
	}
	id, ok := accountID.(int64)
	return id, ok
}
