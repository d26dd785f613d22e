package repository

import (
	"context"
	"time"

	"supplychain/internal/domain/model"
)

// 遷移で書き換える列だけ
type OrderTransitionUpdate struct {
	Status        model.OrderStatus
	TransporterID *int64
	StockReserved bool
	UpdatedAt     time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// 遷移の前に注文行をロックする
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	Create(ctx context.Context, order model.Order) (model.Order, error)
	ApplyTransition(ctx context.Context, orderID int64, u OrderTransitionUpdate) error

	ListByBuyer(ctx context.Context, buyerID int64, page int, limit int) ([]model.Order, int64, error)
	ListBySeller(ctx context.Context, sellerID int64, page int, limit int) ([]model.Order, int64, error)

	// 在庫削除の可否（終わっていない注文の数）
	CountOpenByInventory(ctx context.Context, inventoryID int64) (int64, error)
}
