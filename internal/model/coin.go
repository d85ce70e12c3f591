package model

import "strings"

// CoinType 代币类型
type CoinType string

const (
	CoinTypeNative CoinType = "NATIVE"
	CoinTypeFT     CoinType = "FT"
	CoinTypeNFT    CoinType = "NFT"
)

// ParseCoinType 大小写不敏感地解析代币类型
func ParseCoinType(s string) (CoinType, bool) {
	switch CoinType(strings.ToUpper(s)) {
	case CoinTypeNative:
		return CoinTypeNative, true
	case CoinTypeFT:
		return CoinTypeFT, true
	case CoinTypeNFT:
		return CoinTypeNFT, true
	}
	return "", false
}

func (t CoinType) String() string {
	return string(t)
}

// Coin 代币
type Coin struct {
	ID        string   `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string   `gorm:"column:name;type:varchar(64);not null" json:"name"`
	Symbol    string   `gorm:"column:symbol;type:varchar(16);not null" json:"symbol"`
	CoinType  CoinType `gorm:"column:coin_type;type:varchar(16);not null" json:"coin_type"`
	Decimals  int      `gorm:"column:decimals;type:int;not null;default:0" json:"decimals"`
	CreatedAt int64    `gorm:"column:created_date;type:bigint;not null;autoCreateTime:milli" json:"created_date"`
	UpdatedAt int64    `gorm:"column:updated_date;type:bigint;not null;autoUpdateTime:milli" json:"updated_date"`
}

// TableName 返回表名
func (Coin) TableName() string {
	return "coin"
}
