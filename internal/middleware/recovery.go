// Package middleware 提供 HTTP 中间件
package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Ludium-Official/ludium-world-payment/internal/dto"
	apperrors "github.com/Ludium-Official/ludium-world-payment/pkg/errors"
	"github.com/Ludium-Official/ludium-world-payment/pkg/logger"
)

// Recovery 返回 panic 恢复中间件
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
					zap.ByteString("stack", debug.Stack()),
				)

				abortWithError(c, apperrors.New(apperrors.KindInternal, "internal server error"))
			}
		}()
		c.Next()
	}
}

func abortWithError(c *gin.Context, err *apperrors.Error) {
	c.AbortWithStatusJSON(err.HTTPStatus(), dto.NewErrorResponse(err))
}
