package model

// CoinNetwork 代币在某个网络上的部署, FT 必须有合约地址
type CoinNetwork struct {
	ID              string  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CoinID          string  `gorm:"column:coin_id;type:uuid;not null;index" json:"coin_id"`
	NetworkID       string  `gorm:"column:network_id;type:uuid;not null;index" json:"network_id"`
	ContractAddress *string `gorm:"column:contract_address;type:varchar(128)" json:"contract_address"`
	CreatedAt       int64   `gorm:"column:created_date;type:bigint;not null;autoCreateTime:milli" json:"created_date"`
	UpdatedAt       int64   `gorm:"column:updated_date;type:bigint;not null;autoUpdateTime:milli" json:"updated_date"`
}

// TableName 返回表名
func (CoinNetwork) TableName() string {
	return "coin_network"
}

// Contract 合约地址, 未配置时返回空串
func (cn *CoinNetwork) Contract() string {
	if cn.ContractAddress == nil {
		return ""
	}
	return *cn.ContractAddress
}

// CoinNetworkDetail (CoinNetwork, Coin, Network) 三元组
type CoinNetworkDetail struct {
	CoinNetwork *CoinNetwork
	Coin        *Coin
	Network     *Network
}
