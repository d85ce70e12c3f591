package dto

// ========== 奖励领取 ==========

// CreateRewardClaimRequest 创建领取请求
type CreateRewardClaimRequest struct {
	ResourceID    string `json:"resource_id" binding:"required"`
	ResourceType  string `json:"resource_type" binding:"required"` // MISSION / DETAILED_POSTING, 大小写不敏感
	CoinNetworkID string `json:"coin_network_id" binding:"required"`
	Amount        string `json:"amount" binding:"required"` // 十进制字符串
	UserAddress   string `json:"user_address" binding:"required"`
}

// ApproveRewardClaimRequest 管理员批准请求, 交易哈希可选
type ApproveRewardClaimRequest struct {
	TransactionHash string `json:"transaction_hash"`
}
