package middleware

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/Ludium-Official/ludium-world-payment/pkg/errors"
	"github.com/Ludium-Official/ludium-world-payment/pkg/logger"
)

const (
	// UserRightHeader 上游网关注入的用户身份头
	UserRightHeader = "x-user-right"
	// UserKey context 中的用户身份键名
	UserKey = "user"
)

// UserRight 用户身份与权限
type UserRight struct {
	ID          string `json:"id"`
	Admin       bool   `json:"adm"`
	Provider    bool   `json:"prv"`
	Contributor bool   `json:"crt"`
}

// Auth 解析 x-user-right 头, 缺失或非法时返回 401
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(UserRightHeader)
		if raw == "" {
			abortWithError(c, apperrors.New(apperrors.KindUnauthorized, "no auth information"))
			return
		}

		var user UserRight
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			logger.Warn("failed to parse x-user-right", zap.Error(err))
			abortWithError(c, apperrors.New(apperrors.KindUnauthorized, "invalid auth information"))
			return
		}
		if _, err := uuid.Parse(user.ID); err != nil {
			abortWithError(c, apperrors.New(apperrors.KindUnauthorized, "invalid auth information"))
			return
		}

		c.Set(UserKey, &user)
		c.Next()
	}
}

// RequireAdmin 要求管理员权限, 必须在 Auth 之后
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortWithError(c, apperrors.New(apperrors.KindUnauthorized, "no auth information"))
			return
		}
		if !user.Admin {
			abortWithError(c, apperrors.New(apperrors.KindForbidden, "admin permission required"))
			return
		}
		c.Next()
	}
}

// CurrentUser 从 context 获取用户身份
func CurrentUser(c *gin.Context) (*UserRight, bool) {
	v, exists := c.Get(UserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*UserRight)
	return user, ok
}
