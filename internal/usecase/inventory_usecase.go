package usecase

import (
	"context"
	"errors"

	"supplychain/internal/domain/model"
	repo "supplychain/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 在庫調整の理由
const (
	ReasonStockAdded  = "stock added"
	ReasonQuantitySet = "quantity set"
	ReasonRemoved     = "removed from store"
)

type InventoryUsecase struct {
	tx     repo.TransactionManager
	logger *zap.Logger
}

func NewInventoryUsecase(tx repo.TransactionManager, logger *zap.Logger) *InventoryUsecase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryUsecase{tx: tx, logger: logger}
}

type AddStockInput struct {
	ProductID int64
	Quantity  int64
}

type StoreProduct struct {
	InventoryID int64           `json:"inventory_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
}

// 売り手（user + role）ごとのストア
type Store struct {
	SellerID   int64          `json:"seller_id"`
	SellerRole model.Role     `json:"seller_role"`
	Products   []StoreProduct `json:"products"`
}

// ストアに商品を追加。あれば加算、なければ作成。
func (u *InventoryUsecase) AddStock(ctx context.Context, ident model.Identity, in AddStockInput) (model.Inventory, error) {
	if !ident.CanSell() {
		return model.Inventory{}, NewError(KindUnauthorized, "role cannot manage a store")
	}
	if in.ProductID <= 0 {
		return model.Inventory{}, NewError(KindInvalidInput, "invalid product_id")
	}
	if in.Quantity <= 0 {
		return model.Inventory{}, NewError(KindInvalidQuantity, "quantity must be > 0")
	}

	var out model.Inventory
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Products().FindByID(ctx, in.ProductID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewError(KindNotFound, "product not found")
			}
			return dbError(err)
		}

		inv, err := r.Inventory().FindByOwner(ctx, ident.UserID, in.ProductID, ident.ActiveRole)
		if errors.Is(err, repo.ErrNotFound) {
			inv, err = r.Inventory().Create(ctx, model.Inventory{
				UserID:    ident.UserID,
				ProductID: in.ProductID,
				Role:      ident.ActiveRole,
			})
		}
		if err != nil {
			return dbError(err)
		}

		if err := releaseStock(ctx, r.Inventory(), inv.ID, in.Quantity); err != nil {
			return err
		}
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			InventoryID: inv.ID,
			ActorUserID: ident.UserID,
			Delta:       in.Quantity,
			Reason:      ReasonStockAdded,
		}); err != nil {
			return dbError(err)
		}

		out, err = r.Inventory().FindByID(ctx, inv.ID)
		if err != nil {
			return dbError(err)
		}
		return nil
	})
	if err != nil {
		return model.Inventory{}, normalize(err)
	}

	u.logger.Info("stock added",
		zap.Int64("inventory_id", out.ID),
		zap.Int64("user_id", ident.UserID),
		zap.Int64("delta", in.Quantity),
	)
	return out, nil
}

// 在庫の直接変更（setAbsolute）
func (u *InventoryUsecase) SetQuantity(ctx context.Context, ident model.Identity, inventoryID int64, qty int64) (model.Inventory, error) {
	if inventoryID <= 0 {
		return model.Inventory{}, NewError(KindInvalidInput, "invalid id")
	}
	if qty < 0 {
		return model.Inventory{}, NewError(KindInvalidQuantity, "quantity cannot be negative")
	}

	var out model.Inventory
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		inv, err := u.lockOwned(ctx, r, ident, inventoryID)
		if err != nil {
			return err
		}

		if err := r.Inventory().SetQuantity(ctx, inv.ID, qty); err != nil {
			return dbError(err)
		}
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			InventoryID: inv.ID,
			ActorUserID: ident.UserID,
			Delta:       qty - inv.Quantity,
			Reason:      ReasonQuantitySet,
		}); err != nil {
			return dbError(err)
		}

		inv.Quantity = qty
		out = inv
		return nil
	})
	if err != nil {
		return model.Inventory{}, normalize(err)
	}

	u.logger.Info("stock quantity set",
		zap.Int64("inventory_id", out.ID),
		zap.Int64("user_id", ident.UserID),
		zap.Int64("quantity", qty),
	)
	return out, nil
}

// ストアから削除。終わっていない注文があれば消せない。
func (u *InventoryUsecase) Remove(ctx context.Context, ident model.Identity, inventoryID int64) error {
	if inventoryID <= 0 {
		return NewError(KindInvalidInput, "invalid id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		inv, err := u.lockOwned(ctx, r, ident, inventoryID)
		if err != nil {
			return err
		}

		open, err := r.Orders().CountOpenByInventory(ctx, inv.ID)
		if err != nil {
			return dbError(err)
		}
		if open > 0 {
			return NewError(KindConflictingOpenOrders, "cannot remove: there are open orders for this inventory")
		}

		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			InventoryID: inv.ID,
			ActorUserID: ident.UserID,
			Delta:       -inv.Quantity,
			Reason:      ReasonRemoved,
		}); err != nil {
			return dbError(err)
		}
		if err := r.Inventory().Delete(ctx, inv.ID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewError(KindNotFound, "inventory not found")
			}
			return dbError(err)
		}
		return nil
	})
	if err != nil {
		return normalize(err)
	}

	u.logger.Info("inventory removed", zap.Int64("inventory_id", inventoryID), zap.Int64("user_id", ident.UserID))
	return nil
}

// 自分のストア（今のロール分だけ）
func (u *InventoryUsecase) ListMine(ctx context.Context, ident model.Identity) ([]model.Inventory, error) {
	if !ident.CanSell() {
		return []model.Inventory{}, NewError(KindUnauthorized, "role cannot manage a store")
	}

	var out []model.Inventory
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, err := r.Inventory().ListByOwner(ctx, ident.UserID, ident.ActiveRole)
		if err != nil {
			return dbError(err)
		}
		out = items
		return nil
	})
	if err != nil {
		return []model.Inventory{}, normalize(err)
	}
	return out, nil
}

// 在庫があるストアの一覧（誰でも見られる）
func (u *InventoryUsecase) ListStores(ctx context.Context) ([]Store, error) {
	var out []Store
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		stores, err := u.loadStores(ctx, r, repo.StoreFilter{})
		if err != nil {
			return err
		}
		out = stores
		return nil
	})
	if err != nil {
		return []Store{}, normalize(err)
	}
	return out, nil
}

// 1つのストア。空ならNOT_FOUND。
func (u *InventoryUsecase) GetStore(ctx context.Context, sellerID int64, role model.Role) (Store, error) {
	if sellerID <= 0 {
		return Store{}, NewError(KindInvalidInput, "invalid seller id")
	}
	if !role.IsSeller() {
		return Store{}, NewError(KindInvalidInput, "invalid role")
	}

	var out Store
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		stores, err := u.loadStores(ctx, r, repo.StoreFilter{SellerID: &sellerID, Role: &role})
		if err != nil {
			return err
		}
		if len(stores) == 0 {
			return NewError(KindNotFound, "store not found or empty")
		}
		out = stores[0]
		return nil
	})
	if err != nil {
		return Store{}, normalize(err)
	}
	return out, nil
}

func (u *InventoryUsecase) loadStores(ctx context.Context, r repo.TxRepos, f repo.StoreFilter) ([]Store, error) {
	items, err := r.Inventory().ListInStock(ctx, f)
	if err != nil {
		return nil, dbError(err)
	}

	ids := make([]int64, 0, len(items))
	seen := map[int64]bool{}
	for _, inv := range items {
		if !seen[inv.ProductID] {
			seen[inv.ProductID] = true
			ids = append(ids, inv.ProductID)
		}
	}
	products, err := r.Products().FindByIDs(ctx, ids)
	if err != nil {
		return nil, dbError(err)
	}
	byID := make(map[int64]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	return groupStores(items, byID), nil
}

// (seller, role)ごとにまとめる。順番は在庫の並び順のまま。
func groupStores(items []model.Inventory, products map[int64]model.Product) []Store {
	type key struct {
		seller int64
		role   model.Role
	}
	index := map[key]int{}
	stores := []Store{}

	for _, inv := range items {
		k := key{seller: inv.UserID, role: inv.Role}
		i, ok := index[k]
		if !ok {
			i = len(stores)
			index[k] = i
			stores = append(stores, Store{SellerID: inv.UserID, SellerRole: inv.Role, Products: []StoreProduct{}})
		}
		p := products[inv.ProductID]
		stores[i].Products = append(stores[i].Products, StoreProduct{
			InventoryID: inv.ID,
			ProductID:   inv.ProductID,
			ProductName: p.Name,
			Category:    p.Category,
			Description: p.Description,
			Price:       p.Price,
			Quantity:    inv.Quantity,
		})
	}
	return stores
}

// 行ロックして持ち主（user + 今のロール）を確認
func (u *InventoryUsecase) lockOwned(ctx context.Context, r repo.TxRepos, ident model.Identity, inventoryID int64) (model.Inventory, error) {
	inv, err := r.Inventory().FindByIDForUpdate(ctx, inventoryID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Inventory{}, NewError(KindNotFound, "inventory not found")
	}
	if err != nil {
		return model.Inventory{}, dbError(err)
	}
	if !ident.CanSell() || inv.UserID != ident.UserID || inv.Role != ident.ActiveRole {
		return model.Inventory{}, NewError(KindUnauthorized, "you do not own this inventory")
	}
	return inv, nil
}
