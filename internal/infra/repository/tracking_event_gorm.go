package repository

import (
	"context"

	"supplychain/internal/domain/model"

	"gorm.io/gorm"
)

type TrackingEventGormRepository struct {
	db *gorm.DB
}

func NewTrackingEventGormRepository(db *gorm.DB) *TrackingEventGormRepository {
	return &TrackingEventGormRepository{db: db}
}

func (r *TrackingEventGormRepository) Append(ctx context.Context, ev model.TrackingEvent) (model.TrackingEvent, error) {
	if err := r.db.WithContext(ctx).Create(&ev).Error; err != nil {
		return model.TrackingEvent{}, err
	}
	return ev, nil
}

func (r *TrackingEventGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.TrackingEvent, error) {
	var items []model.TrackingEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("timestamp asc").
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return []model.TrackingEvent{}, err
	}
	return items, nil
}
