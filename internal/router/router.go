// Package router 注册 HTTP 中间件与路由
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Ludium-Official/ludium-world-payment/internal/handler"
	"github.com/Ludium-Official/ludium-world-payment/internal/middleware"
)

// Router 路由器
type Router struct {
	engine             *gin.Engine
	rewardClaimHandler *handler.RewardClaimHandler
	referenceHandler   *handler.ReferenceHandler
	healthHandler      *handler.HealthHandler
}

// NewRouter 创建路由器
func NewRouter(
	rewardClaimHandler *handler.RewardClaimHandler,
	referenceHandler *handler.ReferenceHandler,
	healthHandler *handler.HealthHandler,
) *Router {
	return &Router{
		engine:             gin.New(),
		rewardClaimHandler: rewardClaimHandler,
		referenceHandler:   referenceHandler,
		healthHandler:      healthHandler,
	}
}

// Engine 返回 gin 引擎
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Setup 注册中间件与路由
func (r *Router) Setup() *gin.Engine {
	r.registerMiddleware()
	r.registerRoutes()
	return r.engine
}

func (r *Router) registerMiddleware() {
	r.engine.Use(
		middleware.Recovery(),
		middleware.Trace(),
		middleware.Logger(),
		middleware.Metrics(),
	)
}

func (r *Router) registerRoutes() {
	r.engine.GET("/health", r.healthHandler.Live)
	r.engine.GET("/health/ready", r.healthHandler.Ready)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 参考数据无需认证
	r.engine.GET("/coins", r.referenceHandler.ListCoins)
	r.engine.GET("/coins/:id", r.referenceHandler.GetCoin)
	r.engine.GET("/coins/:id/networks", r.referenceHandler.ListCoinNetworksByCoin)
	r.engine.GET("/networks", r.referenceHandler.ListNetworks)
	r.engine.GET("/networks/:id", r.referenceHandler.GetNetwork)
	r.engine.GET("/coin-networks", r.referenceHandler.ListCoinNetworks)

	authed := r.engine.Group("", middleware.Auth())
	{
		authed.POST("/reward-claims", r.rewardClaimHandler.CreateRewardClaim)
		authed.GET("/me/reward-claims", r.rewardClaimHandler.ListMyRewardClaims)
	}

	admin := authed.Group("", middleware.RequireAdmin())
	{
		admin.PUT("/reward-claims/:id/approve", r.rewardClaimHandler.ApproveRewardClaim)
		admin.PUT("/reward-claims/:id/reject", r.rewardClaimHandler.RejectRewardClaim)
	}
}
