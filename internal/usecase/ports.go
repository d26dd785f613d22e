package usecase

import (
	"context"
	"time"

	"supplychain/internal/domain/model"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// コミット後に追跡イベントを外へ流す（at-most-once、失敗してもロールバックしない）
type TrackingNotifier interface {
	PublishTracking(ctx context.Context, order model.Order, ev model.TrackingEvent) error
}

// 追跡タイムラインの読み取りキャッシュ
type TrackingCache interface {
	Get(ctx context.Context, orderID int64) ([]model.TrackingEvent, bool, error)
	Set(ctx context.Context, orderID int64, events []model.TrackingEvent) error
	Invalidate(ctx context.Context, orderID int64) error
}

type nopNotifier struct{}

func (nopNotifier) PublishTracking(context.Context, model.Order, model.TrackingEvent) error {
	return nil
}

type nopCache struct{}

func (nopCache) Get(context.Context, int64) ([]model.TrackingEvent, bool, error) {
	return nil, false, nil
}
func (nopCache) Set(context.Context, int64, []model.TrackingEvent) error { return nil }
func (nopCache) Invalidate(context.Context, int64) error                { return nil }
