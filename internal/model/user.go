package model

// User 平台用户, 表由用户服务维护, 本服务只读
type User struct {
	ID        string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Nick      string `gorm:"column:nick;type:varchar(30)" json:"nick"`
	SelfIntro string `gorm:"column:self_intro;type:varchar(100)" json:"self_intro"`
	PhnNmb    string `gorm:"column:phn_nmb;type:varchar(32)" json:"-"`
}

// TableName 返回表名
func (User) TableName() string {
	return "tb_ldm_usr"
}
