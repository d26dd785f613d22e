package repository

import (
	"context"

	"supplychain/internal/domain/model"
	repo "supplychain/internal/repository"

	"gorm.io/gorm"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// IDで商品を取得
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	if isNotFound(err) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// ストア一覧で商品名を出すためにまとめて取得
func (r *ProductGormRepository) FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}
	var products []model.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id asc").Find(&products).Error; err != nil {
		return []model.Product{}, err
	}
	return products, nil
}

type TransporterGormRepository struct {
	db *gorm.DB
}

func NewTransporterGormRepository(db *gorm.DB) *TransporterGormRepository {
	return &TransporterGormRepository{db: db}
}

func (r *TransporterGormRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Transporter{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
