package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ResourceType 可领取奖励的资源类型, 取值即存储字面量
type ResourceType string

const (
	ResourceTypeMission         ResourceType = "MISSION"
	ResourceTypeDetailedPosting ResourceType = "DETAILED_POSTING"
)

// ParseResourceType 大小写不敏感地解析资源类型
func ParseResourceType(s string) (ResourceType, bool) {
	switch ResourceType(strings.ToUpper(strings.TrimSpace(s))) {
	case ResourceTypeMission:
		return ResourceTypeMission, true
	case ResourceTypeDetailedPosting:
		return ResourceTypeDetailedPosting, true
	}
	return "", false
}

func (t ResourceType) String() string {
	return string(t)
}

// RewardClaimStatus 领取状态
//
//	READY --> TRANSACTION_APPROVED (终态)
//	  \----> TRANSACTION_FAILED --(下一次相同请求复活)--> READY
type RewardClaimStatus string

const (
	RewardClaimStatusReady               RewardClaimStatus = "READY"
	RewardClaimStatusTransactionApproved RewardClaimStatus = "TRANSACTION_APPROVED"
	RewardClaimStatusTransactionFailed   RewardClaimStatus = "TRANSACTION_FAILED"
)

func (s RewardClaimStatus) String() string {
	return string(s)
}

// IsValid 是否为已知状态
func (s RewardClaimStatus) IsValid() bool {
	switch s {
	case RewardClaimStatusReady, RewardClaimStatusTransactionApproved, RewardClaimStatusTransactionFailed:
		return true
	}
	return false
}

// IsClaimed 已领取或领取中, 后续相同请求视为重复
func (s RewardClaimStatus) IsClaimed() bool {
	return s == RewardClaimStatusReady || s == RewardClaimStatusTransactionApproved
}

// IsResurrectable 仅失败状态可以复活
func (s RewardClaimStatus) IsResurrectable() bool {
	return s == RewardClaimStatusTransactionFailed
}

// ClaimKey 幂等键
type ClaimKey struct {
	ResourceType ResourceType
	ResourceID   string
	UserID       string
}

// RewardClaim 奖励领取记录, (resource_type, resource_id, user_id) 唯一
type RewardClaim struct {
	ID            string            `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ResourceType  ResourceType      `gorm:"column:resource_type;type:varchar(32);not null;uniqueIndex:uk_reward_claim_resource_user,priority:1" json:"resource_type"`
	ResourceID    string            `gorm:"column:resource_id;type:uuid;not null;uniqueIndex:uk_reward_claim_resource_user,priority:2" json:"resource_id"`
	UserID        string            `gorm:"column:user_id;type:uuid;not null;uniqueIndex:uk_reward_claim_resource_user,priority:3;index" json:"user_id"`
	CoinNetworkID string            `gorm:"column:coin_network_id;type:uuid;not null" json:"coin_network_id"`
	Status        RewardClaimStatus `gorm:"column:reward_claim_status;type:varchar(32);not null;default:READY" json:"reward_claim_status"`
	Amount        decimal.Decimal   `gorm:"column:amount;type:numeric(78,0);not null" json:"amount"` // 最小单位
	UserAddress   string            `gorm:"column:user_address;type:varchar(128);not null" json:"user_address"`
	CreatedAt     int64             `gorm:"column:created_date;type:bigint;not null;autoCreateTime:milli" json:"created_date"`
	UpdatedAt     int64             `gorm:"column:updated_date;type:bigint;not null;autoUpdateTime:milli" json:"updated_date"`

	// SettlementAttemptID 进入 READY 时生成, 离开 READY 时清空; 结算结果只能由同一次尝试写入
	SettlementAttemptID string `gorm:"column:settlement_attempt_id;type:varchar(36);not null;default:''" json:"-"`
	SettlementStartedAt int64  `gorm:"column:settlement_started_date;type:bigint;not null;default:0" json:"-"`
}

// TableName 返回表名
func (RewardClaim) TableName() string {
	return "reward_claim"
}

// SettlementLive 结算尝试在 staleBefore (毫秒) 之后开始, 转账可能仍在进行
func (c *RewardClaim) SettlementLive(staleBefore int64) bool {
	return c.Status == RewardClaimStatusReady && c.SettlementAttemptID != "" && c.SettlementStartedAt > staleBefore
}

// Key 返回幂等键
func (c *RewardClaim) Key() ClaimKey {
	return ClaimKey{ResourceType: c.ResourceType, ResourceID: c.ResourceID, UserID: c.UserID}
}

// ClaimTerms 一次领取请求的支付条款, 复活时覆盖旧条款
type ClaimTerms struct {
	CoinNetworkID string
	Amount        decimal.Decimal
	UserAddress   string
}

// RewardClaimWithDetail 领取记录及其最新一条明细 (可能为空)
type RewardClaimWithDetail struct {
	Claim  *RewardClaim
	Detail *RewardClaimDetail
}
