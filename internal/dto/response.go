package dto

import (
	"github.com/Ludium-Official/ludium-world-payment/internal/model"
	apperrors "github.com/Ludium-Official/ludium-world-payment/pkg/errors"
)

// CodeSuccess 成功响应码
const CodeSuccess = "SUCCESS"

// Response 统一响应结构
type Response struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 从业务错误创建错误响应
func NewErrorResponse(err *apperrors.Error) *Response {
	resp := &Response{
		Code:    err.Code(),
		Message: err.Message,
	}
	if len(err.Details) > 0 {
		resp.Data = err.Details
	}
	return resp
}

// ========== 参考数据 ==========

// CoinResponse 代币
type CoinResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	CoinType string `json:"coin_type"`
	Decimals int    `json:"decimals"`
}

// NetworkResponse 网络
type NetworkResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// CoinNetworkResponse 代币-网络组合
type CoinNetworkResponse struct {
	ID              string           `json:"id"`
	ContractAddress *string          `json:"contract_address"`
	Coin            *CoinResponse    `json:"coin,omitempty"`
	Network         *NetworkResponse `json:"network,omitempty"`
}

// NewCoinResponse 转换代币
func NewCoinResponse(c *model.Coin) *CoinResponse {
	if c == nil {
		return nil
	}
	return &CoinResponse{
		ID:       c.ID,
		Name:     c.Name,
		Symbol:   c.Symbol,
		CoinType: c.CoinType.String(),
		Decimals: c.Decimals,
	}
}

// NewNetworkResponse 转换网络
func NewNetworkResponse(n *model.Network) *NetworkResponse {
	if n == nil {
		return nil
	}
	return &NetworkResponse{
		ID:   n.ID,
		Name: n.Name,
		Code: n.Code,
	}
}

// NewCoinNetworkResponse 转换代币-网络组合, coin/network 可为空
func NewCoinNetworkResponse(cn *model.CoinNetwork, coin *model.Coin, network *model.Network) *CoinNetworkResponse {
	if cn == nil {
		return nil
	}
	return &CoinNetworkResponse{
		ID:              cn.ID,
		ContractAddress: cn.ContractAddress,
		Coin:            NewCoinResponse(coin),
		Network:         NewNetworkResponse(network),
	}
}

// NewCoinNetworkDetailResponse 转换三元组
func NewCoinNetworkDetailResponse(d *model.CoinNetworkDetail) *CoinNetworkResponse {
	if d == nil {
		return nil
	}
	return NewCoinNetworkResponse(d.CoinNetwork, d.Coin, d.Network)
}

// ========== 奖励领取 ==========

// RewardClaimDetailResponse 结算明细
type RewardClaimDetailResponse struct {
	ID                string `json:"id"`
	TransactionHash   string `json:"transaction_hash"`
	SendedUserID      string `json:"sended_user_id"`
	SendedUserAddress string `json:"sended_user_address"`
	FailureReason     string `json:"failure_reason,omitempty"`
	CreatedDate       int64  `json:"created_date"`
}

// RewardClaimResponse 领取记录 + 代币网络 + 最新明细
type RewardClaimResponse struct {
	ID                string                     `json:"id"`
	ResourceType      string                     `json:"resource_type"`
	ResourceID        string                     `json:"resource_id"`
	UserID            string                     `json:"user_id"`
	RewardClaimStatus string                     `json:"reward_claim_status"`
	Amount            string                     `json:"amount"` // 最小单位
	UserAddress       string                     `json:"user_address"`
	CreatedDate       int64                      `json:"created_date"`
	UpdatedDate       int64                      `json:"updated_date"`
	CoinNetwork       *CoinNetworkResponse       `json:"coin_network,omitempty"`
	Detail            *RewardClaimDetailResponse `json:"reward_claim_detail,omitempty"`
}

// NewRewardClaimDetailResponse 转换明细
func NewRewardClaimDetailResponse(d *model.RewardClaimDetail) *RewardClaimDetailResponse {
	if d == nil {
		return nil
	}
	return &RewardClaimDetailResponse{
		ID:                d.ID,
		TransactionHash:   d.TransactionHash,
		SendedUserID:      d.SendedUserID,
		SendedUserAddress: d.SendedUserAddress,
		FailureReason:     d.FailureReason,
		CreatedDate:       d.CreatedAt,
	}
}

// NewRewardClaimResponse 组合领取视图
func NewRewardClaimResponse(claim *model.RewardClaim, coinNetwork *model.CoinNetworkDetail, detail *model.RewardClaimDetail) *RewardClaimResponse {
	return &RewardClaimResponse{
		ID:                claim.ID,
		ResourceType:      claim.ResourceType.String(),
		ResourceID:        claim.ResourceID,
		UserID:            claim.UserID,
		RewardClaimStatus: claim.Status.String(),
		Amount:            claim.Amount.String(),
		UserAddress:       claim.UserAddress,
		CreatedDate:       claim.CreatedAt,
		UpdatedDate:       claim.UpdatedAt,
		CoinNetwork:       NewCoinNetworkDetailResponse(coinNetwork),
		Detail:            NewRewardClaimDetailResponse(detail),
	}
}
