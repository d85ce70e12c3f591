package model

// RewardClaimDetail 到达链上的一次结算尝试, 只追加不修改
type RewardClaimDetail struct {
	ID                string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	RewardClaimID     string `gorm:"column:reward_claim_id;type:uuid;not null;index:idx_reward_claim_detail_claim_created,priority:1" json:"reward_claim_id"`
	TransactionHash   string `gorm:"column:transaction_hash;type:varchar(66);not null" json:"transaction_hash"`
	SendedUserID      string `gorm:"column:sended_user_id;type:uuid;not null" json:"sended_user_id"`
	SendedUserAddress string `gorm:"column:sended_user_address;type:varchar(128);not null" json:"sended_user_address"`
	FailureReason     string `gorm:"column:failure_reason;type:varchar(500)" json:"failure_reason,omitempty"`
	CreatedAt         int64  `gorm:"column:created_date;type:bigint;not null;autoCreateTime:milli;index:idx_reward_claim_detail_claim_created,priority:2" json:"created_date"`
	UpdatedAt         int64  `gorm:"column:updated_date;type:bigint;not null;autoUpdateTime:milli" json:"updated_date"`
}

// TableName 返回表名
func (RewardClaimDetail) TableName() string {
	return "reward_claim_detail"
}
