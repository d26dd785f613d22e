package repository

import (
	"context"

	"supplychain/internal/domain/model"
	repo "supplychain/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	return r.find(r.db.WithContext(ctx), orderID)
}

// SELECT ... FOR UPDATE
func (r *OrderGormRepository) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), orderID)
}

func (r *OrderGormRepository) find(q *gorm.DB, orderID int64) (model.Order, error) {
	var o model.Order
	err := q.Where("id = ?", orderID).First(&o).Error
	if isNotFound(err) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (model.Order, error) {
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		return model.Order{}, err
	}
	return order, nil
}

func (r *OrderGormRepository) ApplyTransition(ctx context.Context, orderID int64, u repo.OrderTransitionUpdate) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"status":         u.Status,
			"transporter_id": u.TransporterID,
			"stock_reserved": u.StockReserved,
			"updated_at":     u.UpdatedAt,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) ListByBuyer(ctx context.Context, buyerID int64, page int, limit int) ([]model.Order, int64, error) {
	return r.listBy(ctx, "buyer_id = ?", buyerID, page, limit)
}

func (r *OrderGormRepository) ListBySeller(ctx context.Context, sellerID int64, page int, limit int) ([]model.Order, int64, error) {
	return r.listBy(ctx, "seller_id = ?", sellerID, page, limit)
}

func (r *OrderGormRepository) listBy(ctx context.Context, cond string, userID int64, page int, limit int) ([]model.Order, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where(cond, userID).
		Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	var items []model.Order
	offset := (page - 1) * limit
	err := r.db.WithContext(ctx).
		Where(cond, userID).
		Order("order_date desc").
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.Order{}, 0, err
	}

	return items, total, nil
}

// 在庫を確保したままのCANCELLED（RETURNED待ち）も数える
func (r *OrderGormRepository) CountOpenByInventory(ctx context.Context, inventoryID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("inventory_id = ?", inventoryID).
		Where("(status IN ? OR stock_reserved = ?)", model.OpenOrderStatuses, true).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}
