package usecase

import (
	"context"
	"errors"

	repo "supplychain/internal/repository"
)

// 在庫の確保。足りなければINSUFFICIENT_STOCK。
// 注文ステータスの変更と同じTxの中でだけ呼ぶ。
func reserveStock(ctx context.Context, inv repo.InventoryRepository, inventoryID int64, qty int64) error {
	ok, err := inv.DecreaseIfEnough(ctx, inventoryID, qty)
	if err != nil {
		return dbError(err)
	}
	if ok {
		return nil
	}

	//0件更新 = 在庫不足 or 在庫自体がない
	if _, err := inv.FindByID(ctx, inventoryID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "inventory not found")
		}
		return dbError(err)
	}
	return NewError(KindInsufficientStock, "insufficient stock")
}

// 在庫戻し。上限チェックはしない。
func releaseStock(ctx context.Context, inv repo.InventoryRepository, inventoryID int64, qty int64) error {
	if err := inv.Increase(ctx, inventoryID, qty); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "inventory not found")
		}
		return dbError(err)
	}
	return nil
}
