package model

import "time"

// MissionSubmitStatusApprove 审核通过
const MissionSubmitStatusApprove = "APPROVE"

// MissionSubmit 用户的任务提交, 表由任务服务维护
type MissionSubmit struct {
	MissionID   string    `gorm:"column:mission_id;type:uuid;primaryKey" json:"mission_id"`
	UsrID       string    `gorm:"column:usr_id;type:uuid;primaryKey" json:"usr_id"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	Status      string    `gorm:"column:status;type:varchar(32)" json:"status"` // APPROVE, SUBMIT
	CreateAt    time.Time `gorm:"column:create_at" json:"create_at"`
}

// TableName 返回表名
func (MissionSubmit) TableName() string {
	return "mission_submit"
}

// IsApproved 是否审核通过
func (m *MissionSubmit) IsApproved() bool {
	return m.Status == MissionSubmitStatusApprove
}
