package model

import "time"

// 売り手の在庫（ストア）。
// (user_id, product_id, role) で一意。quantityは0未満にならない。
type Inventory struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_inventory_owner" json:"user_id"`
	ProductID int64     `gorm:"not null;uniqueIndex:idx_inventory_owner;index" json:"product_id"`
	Role      Role      `gorm:"type:varchar(20);not null;uniqueIndex:idx_inventory_owner" json:"role"`
	Quantity  int64     `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
