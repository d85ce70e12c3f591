package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Ludium-Official/ludium-world-payment/internal/dto"
)

// ReferenceService 参考数据服务接口
type ReferenceService interface {
	ListCoins(ctx context.Context) ([]*dto.CoinResponse, error)
	GetCoin(ctx context.Context, id string) (*dto.CoinResponse, error)
	ListCoinNetworksByCoin(ctx context.Context, coinID string) ([]*dto.CoinNetworkResponse, error)
	ListNetworks(ctx context.Context) ([]*dto.NetworkResponse, error)
	GetNetwork(ctx context.Context, id string) (*dto.NetworkResponse, error)
	ListCoinNetworks(ctx context.Context) ([]*dto.CoinNetworkResponse, error)
}

// ReferenceHandler 代币/网络查询处理器
type ReferenceHandler struct {
	svc ReferenceService
}

// NewReferenceHandler 创建参考数据处理器
func NewReferenceHandler(svc ReferenceService) *ReferenceHandler {
	return &ReferenceHandler{svc: svc}
}

// ListCoins GET /coins
func (h *ReferenceHandler) ListCoins(c *gin.Context) {
	respond(c, func(ctx context.Context) (interface{}, error) { return h.svc.ListCoins(ctx) })
}

// GetCoin GET /coins/:id
func (h *ReferenceHandler) GetCoin(c *gin.Context) {
	id := c.Param("id")
	respond(c, func(ctx context.Context) (interface{}, error) { return h.svc.GetCoin(ctx, id) })
}

// ListCoinNetworksByCoin GET /coins/:id/networks
func (h *ReferenceHandler) ListCoinNetworksByCoin(c *gin.Context) {
	id := c.Param("id")
	respond(c, func(ctx context.Context) (interface{}, error) { return h.svc.ListCoinNetworksByCoin(ctx, id) })
}

// ListNetworks GET /networks
func (h *ReferenceHandler) ListNetworks(c *gin.Context) {
	respond(c, func(ctx context.Context) (interface{}, error) { return h.svc.ListNetworks(ctx) })
}

// GetNetwork GET /networks/:id
func (h *ReferenceHandler) GetNetwork(c *gin.Context) {
	id := c.Param("id")
	respond(c, func(ctx context.Context) (interface{}, error) { return h.svc.GetNetwork(ctx, id) })
}

// ListCoinNetworks GET /coin-networks
func (h *ReferenceHandler) ListCoinNetworks(c *gin.Context) {
	respond(c, func(ctx context.Context) (interface{}, error) { return h.svc.ListCoinNetworks(ctx) })
}

func respond(c *gin.Context, fn func(ctx context.Context) (interface{}, error)) {
	data, err := fn(c.Request.Context())
	if err != nil {
		Error(c, err)
		return
	}
	Success(c, data)
}
