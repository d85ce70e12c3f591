package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DetailedPostingStatusApprove 审核通过
const DetailedPostingStatusApprove = "APPROVE"

// DetailedPosting 详细招募帖, 表由招募服务维护
type DetailedPosting struct {
	DetailID     string           `gorm:"column:detail_id;type:uuid;primaryKey" json:"detail_id"`
	PostingID    string           `gorm:"column:posting_id;type:uuid;not null" json:"posting_id"`
	Title        *string          `gorm:"column:title" json:"title"`
	Status       string           `gorm:"column:status;type:varchar(32)" json:"status"`
	RewardToken  *string          `gorm:"column:reward_token;type:uuid" json:"reward_token"`
	RewardAmount *decimal.Decimal `gorm:"column:reward_amount;type:numeric" json:"reward_amount"`
	CreateAt     time.Time        `gorm:"column:create_at" json:"create_at"`
	UpdateAt     time.Time        `gorm:"column:update_at" json:"update_at"`
}

// TableName 返回表名
func (DetailedPosting) TableName() string {
	return "detailed_posting"
}

// IsApproved 是否审核通过
func (p *DetailedPosting) IsApproved() bool {
	return p.Status == DetailedPostingStatusApprove
}
