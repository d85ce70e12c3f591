package handler

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger 依赖健康检查
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc 函数适配 Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler 健康检查处理器
type HealthHandler struct {
	ready atomic.Bool
	deps  map[string]Pinger
}

// NewHealthHandler 创建健康检查处理器, deps 为 名称 -> 检查
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// SetReady 设置就绪状态
func (h *HealthHandler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Live 存活探针
// GET /health
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready 就绪探针
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.ready.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "service initializing",
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	allOK := true
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = err.Error()
			allOK = false
			continue
		}
		checks[name] = "ok"
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status": map[bool]string{true: "ready", false: "degraded"}[allOK],
		"checks": checks,
	})
}
