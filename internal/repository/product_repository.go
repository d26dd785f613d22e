package repository

import (
	"context"
	"errors"

	"supplychain/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 商品カタログの読み取りだけを約束。
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error)
}

// 配送業者の存在確認
type TransporterRepository interface {
	Exists(ctx context.Context, id int64) (bool, error)
}
