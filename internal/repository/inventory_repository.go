package repository

import (
	"context"

	"supplychain/internal/domain/model"
)

// ストア一覧の絞り込み
type StoreFilter struct {
	SellerID *int64
	Role     *model.Role
}

type InventoryRepository interface {
	FindByID(ctx context.Context, inventoryID int64) (model.Inventory, error)
	// 直接調整・削除用（FOR UPDATE）
	FindByIDForUpdate(ctx context.Context, inventoryID int64) (model.Inventory, error)
	// 注文作成用（FOR SHARE）
	FindByIDForShare(ctx context.Context, inventoryID int64) (model.Inventory, error)
	FindByOwner(ctx context.Context, userID, productID int64, role model.Role) (model.Inventory, error)

	Create(ctx context.Context, inv model.Inventory) (model.Inventory, error)

	// 在庫が足りるときだけ減算
	DecreaseIfEnough(ctx context.Context, inventoryID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセル・返品）
	Increase(ctx context.Context, inventoryID int64, qty int64) error

	// 在庫の現在値を設定
	SetQuantity(ctx context.Context, inventoryID int64, qty int64) error

	Delete(ctx context.Context, inventoryID int64) error

	ListByOwner(ctx context.Context, userID int64, role model.Role) ([]model.Inventory, error)

	// quantity > 0 のものだけ
	ListInStock(ctx context.Context, f StoreFilter) ([]model.Inventory, error)

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
