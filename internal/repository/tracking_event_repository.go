package repository

import (
	"context"

	"supplychain/internal/domain/model"
)

// 追跡イベントは追記と一覧だけ（更新・削除なし）
type TrackingEventRepository interface {
	Append(ctx context.Context, ev model.TrackingEvent) (model.TrackingEvent, error)
	// timestamp, id の昇順
	ListByOrderID(ctx context.Context, orderID int64) ([]model.TrackingEvent, error)
}
