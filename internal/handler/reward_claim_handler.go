package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Ludium-Official/ludium-world-payment/internal/dto"
	"github.com/Ludium-Official/ludium-world-payment/internal/middleware"
	apperrors "github.com/Ludium-Official/ludium-world-payment/pkg/errors"
)

// RewardClaimService 领取服务接口
type RewardClaimService interface {
	CreateRewardClaim(ctx context.Context, userID string, req *dto.CreateRewardClaimRequest) (*dto.RewardClaimResponse, error)
	ListMyRewardClaims(ctx context.Context, userID string) ([]*dto.RewardClaimResponse, error)
	ApproveRewardClaim(ctx context.Context, adminID, claimID, txHash string) (*dto.RewardClaimResponse, error)
	RejectRewardClaim(ctx context.Context, adminID, claimID string) (*dto.RewardClaimResponse, error)
}

// RewardClaimHandler 领取处理器
type RewardClaimHandler struct {
	svc RewardClaimService
}

// NewRewardClaimHandler 创建领取处理器
func NewRewardClaimHandler(svc RewardClaimService) *RewardClaimHandler {
	return &RewardClaimHandler{svc: svc}
}

// CreateRewardClaim 创建领取并结算
// POST /reward-claims
func (h *RewardClaimHandler) CreateRewardClaim(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		Error(c, apperrors.New(apperrors.KindUnauthorized, "no auth information"))
		return
	}

	var req dto.CreateRewardClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	resp, err := h.svc.CreateRewardClaim(c.Request.Context(), user.ID, &req)
	if err != nil {
		Error(c, err)
		return
	}

	Created(c, resp)
}

// ListMyRewardClaims 当前用户的领取记录
// GET /me/reward-claims
func (h *RewardClaimHandler) ListMyRewardClaims(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		Error(c, apperrors.New(apperrors.KindUnauthorized, "no auth information"))
		return
	}

	resp, err := h.svc.ListMyRewardClaims(c.Request.Context(), user.ID)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, resp)
}

// ApproveRewardClaim 管理员批准
// PUT /reward-claims/:id/approve
func (h *RewardClaimHandler) ApproveRewardClaim(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	// 请求体可选
	var req dto.ApproveRewardClaimRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}

	resp, err := h.svc.ApproveRewardClaim(c.Request.Context(), user.ID, c.Param("id"), req.TransactionHash)
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, resp)
}

// RejectRewardClaim 管理员拒绝
// PUT /reward-claims/:id/reject
func (h *RewardClaimHandler) RejectRewardClaim(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)

	resp, err := h.svc.RejectRewardClaim(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		Error(c, err)
		return
	}

	Success(c, resp)
}
