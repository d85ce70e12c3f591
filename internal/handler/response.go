// Package handler 提供 HTTP 请求处理
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Ludium-Official/ludium-world-payment/internal/dto"
	apperrors "github.com/Ludium-Official/ludium-world-payment/pkg/errors"
	"github.com/Ludium-Official/ludium-world-payment/pkg/logger"
)

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created 返回创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error 返回错误响应, 非业务错误按 500 处理且不暴露原始信息
func Error(c *gin.Context, err error) {
	bizErr := apperrors.FromError(err)
	if bizErr.Kind == apperrors.KindInternal {
		logger.WithContext(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(bizErr.HTTPStatus(), dto.NewErrorResponse(bizErr))
}

// BadRequest 返回参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, apperrors.New(apperrors.KindInvalidParams, message))
}
