package model

import "time"

//在庫調整の履歴（追加・直接変更）

type InventoryAdjustment struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	InventoryID int64     `gorm:"not null;index" json:"inventory_id"`
	ActorUserID int64     `gorm:"not null;index" json:"actor_user_id"`
	Delta       int64     `gorm:"not null" json:"delta"`
	Reason      string    `gorm:"type:varchar(255);not null" json:"reason"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
