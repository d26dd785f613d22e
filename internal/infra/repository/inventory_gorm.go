package repository

import (
	"context"
	"errors"

	"supplychain/internal/domain/model"
	repo "supplychain/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

func (r *InventoryGormRepository) FindByID(ctx context.Context, inventoryID int64) (model.Inventory, error) {
	return r.find(r.db.WithContext(ctx), inventoryID)
}

func (r *InventoryGormRepository) FindByIDForUpdate(ctx context.Context, inventoryID int64) (model.Inventory, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), inventoryID)
}

func (r *InventoryGormRepository) FindByIDForShare(ctx context.Context, inventoryID int64) (model.Inventory, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "SHARE"}), inventoryID)
}

func (r *InventoryGormRepository) find(q *gorm.DB, inventoryID int64) (model.Inventory, error) {
	var inv model.Inventory
	err := q.Where("id = ?", inventoryID).First(&inv).Error
	if isNotFound(err) {
		return model.Inventory{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Inventory{}, err
	}
	return inv, nil
}

func (r *InventoryGormRepository) FindByOwner(ctx context.Context, userID, productID int64, role model.Role) (model.Inventory, error) {
	var inv model.Inventory
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND product_id = ? AND role = ?", userID, productID, role).
		First(&inv).Error
	if isNotFound(err) {
		return model.Inventory{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Inventory{}, err
	}
	return inv, nil
}

// 同じ(user, product, role)が同時に作られたら既存の行を返す
func (r *InventoryGormRepository) Create(ctx context.Context, inv model.Inventory) (model.Inventory, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "role"}},
			DoNothing: true,
		}).
		Create(&inv)
	if res.Error != nil {
		return model.Inventory{}, res.Error
	}
	if res.RowsAffected == 0 {
		return r.FindByOwner(ctx, inv.UserID, inv.ProductID, inv.Role)
	}
	return inv, nil
}

// 在庫が足りるときだけ減らす
func (r *InventoryGormRepository) DecreaseIfEnough(ctx context.Context, inventoryID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("id = ? AND quantity >= ?", inventoryID, qty).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": gorm.Expr("now()"),
		})

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

// 在庫戻し（キャンセル・返品）
func (r *InventoryGormRepository) Increase(ctx context.Context, inventoryID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("id = ?", inventoryID).
		Updates(map[string]interface{}{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_at": gorm.Expr("now()"),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 在庫の現在値を設定
func (r *InventoryGormRepository) SetQuantity(ctx context.Context, inventoryID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("id = ?", inventoryID).
		Updates(map[string]interface{}{
			"quantity":   qty,
			"updated_at": gorm.Expr("now()"),
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *InventoryGormRepository) Delete(ctx context.Context, inventoryID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Inventory{}, inventoryID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *InventoryGormRepository) ListByOwner(ctx context.Context, userID int64, role model.Role) ([]model.Inventory, error) {
	var items []model.Inventory
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Order("product_id asc").
		Find(&items).Error
	if err != nil {
		return []model.Inventory{}, err
	}
	return items, nil
}

func (r *InventoryGormRepository) ListInStock(ctx context.Context, f repo.StoreFilter) ([]model.Inventory, error) {
	q := r.db.WithContext(ctx).Model(&model.Inventory{}).Where("quantity > 0")

	if f.SellerID != nil {
		q = q.Where("user_id = ?", *f.SellerID)
	}
	if f.Role != nil {
		q = q.Where("role = ?", *f.Role)
	}

	var items []model.Inventory
	if err := q.Order("user_id asc").Order("role asc").Order("product_id asc").Find(&items).Error; err != nil {
		return []model.Inventory{}, err
	}
	return items, nil
}

// 調整履歴作成
func (r *InventoryGormRepository) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	if err := r.db.WithContext(ctx).Create(&adj).Error; err != nil {
		return err
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
