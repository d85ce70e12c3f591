package model

// RewardClaimEvent 结算结果事件, 由 kafka 发布给下游
type RewardClaimEvent struct {
	RewardClaimID   string            `json:"reward_claim_id"`
	ResourceType    ResourceType      `json:"resource_type"`
	ResourceID      string            `json:"resource_id"`
	UserID          string            `json:"user_id"`
	UserAddress     string            `json:"user_address"`
	CoinNetworkID   string            `json:"coin_network_id"`
	Amount          string            `json:"amount"` // 最小单位
	Status          RewardClaimStatus `json:"status"`
	TransactionHash string            `json:"transaction_hash,omitempty"`
	FailureReason   string            `json:"failure_reason,omitempty"`
	OccurredAt      int64             `json:"occurred_at"`
}

// NewRewardClaimEvent 根据领取记录构建事件
func NewRewardClaimEvent(claim *RewardClaim, txHash, reason string, at int64) *RewardClaimEvent {
	return &RewardClaimEvent{
		RewardClaimID:   claim.ID,
		ResourceType:    claim.ResourceType,
		ResourceID:      claim.ResourceID,
		UserID:          claim.UserID,
		UserAddress:     claim.UserAddress,
		CoinNetworkID:   claim.CoinNetworkID,
		Amount:          claim.Amount.String(),
		Status:          claim.Status,
		TransactionHash: txHash,
		FailureReason:   reason,
		OccurredAt:      at,
	}
}
