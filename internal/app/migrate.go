package app

import (
	"gorm.io/gorm"

	"github.com/Ludium-Official/ludium-world-payment/internal/model"
)

// AutoMigrate 同步表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.MissionSubmit{},
		&model.DetailedPosting{},
		&model.Coin{},
		&model.Network{},
		&model.CoinNetwork{},
		&model.RewardClaim{},
		&model.RewardClaimDetail{},
	)
}
