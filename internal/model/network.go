package model

// Network 区块链网络
type Network struct {
	ID        string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string `gorm:"column:name;type:varchar(64);not null" json:"name"`
	Code      string `gorm:"column:code;type:varchar(32);not null;uniqueIndex" json:"code"`
	CreatedAt int64  `gorm:"column:created_date;type:bigint;not null;autoCreateTime:milli" json:"created_date"`
	UpdatedAt int64  `gorm:"column:updated_date;type:bigint;not null;autoUpdateTime:milli" json:"updated_date"`
}

// TableName 返回表名
func (Network) TableName() string {
	return "network"
}
