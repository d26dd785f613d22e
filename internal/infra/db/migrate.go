package db

import (
	"supplychain/internal/domain/model"

	"gorm.io/gorm"
)

// テーブル作成（開発・テスト用）
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Product{},
		&model.Transporter{},
		&model.Inventory{},
		&model.InventoryAdjustment{},
		&model.Order{},
		&model.TrackingEvent{},
	)
}
