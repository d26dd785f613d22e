package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"supplychain/internal/domain/model"
	repo "supplychain/internal/repository"
	"supplychain/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders       repo.OrderRepository
	inventory    repo.InventoryRepository
	events       repo.TrackingEventRepository
	products     repo.ProductRepository
	transporters repo.TransporterRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository                 { return r.orders }
func (r *TxReposMock) Inventory() repo.InventoryRepository          { return r.inventory }
func (r *TxReposMock) TrackingEvents() repo.TrackingEventRepository { return r.events }
func (r *TxReposMock) Products() repo.ProductRepository             { return r.products }
func (r *TxReposMock) Transporters() repo.TransporterRepository     { return r.transporters }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	panic("not used in transition tests")
}

func (m *OrderRepoMock) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (model.Order, error) {
	panic("not used in transition tests")
}

func (m *OrderRepoMock) ApplyTransition(ctx context.Context, orderID int64, u repo.OrderTransitionUpdate) error {
	args := m.Called(ctx, orderID, u)
	return args.Error(0)
}

func (m *OrderRepoMock) ListByBuyer(ctx context.Context, buyerID int64, page int, limit int) ([]model.Order, int64, error) {
	panic("not used in transition tests")
}

func (m *OrderRepoMock) ListBySeller(ctx context.Context, sellerID int64, page int, limit int) ([]model.Order, int64, error) {
	panic("not used in transition tests")
}

func (m *OrderRepoMock) CountOpenByInventory(ctx context.Context, inventoryID int64) (int64, error) {
	panic("not used in transition tests")
}

type InventoryRepoMock struct{ mock.Mock }

func (m *InventoryRepoMock) FindByID(ctx context.Context, inventoryID int64) (model.Inventory, error) {
	args := m.Called(ctx, inventoryID)
	inv, _ := args.Get(0).(model.Inventory)
	return inv, args.Error(1)
}

func (m *InventoryRepoMock) FindByIDForUpdate(ctx context.Context, inventoryID int64) (model.Inventory, error) {
	panic("not used in transition tests")
}

func (m *InventoryRepoMock) FindByIDForShare(ctx context.Context, inventoryID int64) (model.Inventory, error) {
	panic("not used in transition tests")
}

func (m *InventoryRepoMock) FindByOwner(ctx context.Context, userID, productID int64, role model.Role) (model.Inventory, error) {
	panic("not used in transition tests")
}

func (m *InventoryRepoMock) Create(ctx context.Context, inv model.Inventory) (model.Inventory, error) {
	panic("not used in transition tests")
}

func (m *InventoryRepoMock) DecreaseIfEnough(ctx context.Context, inventoryID int64, qty int64) (bool, error) {
	args := m.Called(ctx, inventoryID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *InventoryRepoMock) Increase(ctx context.Context, inventoryID int64, qty int64) error {
	args := m.Called(ctx, inventoryID, qty)
	return args.Error(0)
}

func (m *InventoryRepoMock) SetQuantity(ctx context.Context, inventoryID int64, qty int64) error {
	panic("not used in transition tests")
}

func (m *InventoryRepoMock) Delete(ctx context.Context, inventoryID int64) error {
	panic("not used in transition tests")
}

func (m *InventoryRepoMock) ListByOwner(ctx context.Context, userID int64, role model.Role) ([]model.Inventory, error) {
	panic("not used in transition tests")
}

func (m *InventoryRepoMock) ListInStock(ctx context.Context, f repo.StoreFilter) ([]model.Inventory, error) {
	panic("not used in transition tests")
}

func (m *InventoryRepoMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	panic("not used in transition tests")
}

type EventRepoMock struct{ mock.Mock }

func (m *EventRepoMock) Append(ctx context.Context, ev model.TrackingEvent) (model.TrackingEvent, error) {
	args := m.Called(ctx, ev)
	out, _ := args.Get(0).(model.TrackingEvent)
	return out, args.Error(1)
}

func (m *EventRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.TrackingEvent, error) {
	panic("not used in transition tests")
}

type TransporterRepoMock struct{ mock.Mock }

func (m *TransporterRepoMock) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// =====================
// Helper: error contains（Errorの実装詳細に依存しない）
// =====================

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

func pendingOrder(id int64) model.Order {
	return model.Order{
		ID:          id,
		BuyerID:     buyer.UserID,
		SellerID:    seller.UserID,
		InventoryID: 7,
		Quantity:    2,
		Status:      model.OrderStatusPending,
		UpdatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// =====================
// ProcessOrder tests
// =====================

func TestOrderUsecase_Cancel_InvalidID(t *testing.T) {
	tx := new(TxManagerMock)
	uc := usecase.NewOrderUsecase(tx)

	_, err := uc.CancelOrder(context.Background(), buyer, 0)
	assertErrContains(t, err, "invalid id")
	tx.AssertNotCalled(t, "WithinTx", mock.Anything)
}

func TestOrderUsecase_Approve_ReservesAndAppends(t *testing.T) {
	ctx := context.Background()

	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)
	invRepo := new(InventoryRepoMock)
	eventsRepo := new(EventRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo, inventory: invRepo, events: eventsRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByIDForUpdate", mock.Anything, int64(50)).Return(pendingOrder(50), nil)
	invRepo.On("DecreaseIfEnough", mock.Anything, int64(7), int64(2)).Return(true, nil)
	ordersRepo.On("ApplyTransition", mock.Anything, int64(50), mock.MatchedBy(func(u repo.OrderTransitionUpdate) bool {
		return u.Status == model.OrderStatusApproved && u.StockReserved && !u.UpdatedAt.IsZero()
	})).Return(nil)
	eventsRepo.On("Append", mock.Anything, mock.MatchedBy(func(ev model.TrackingEvent) bool {
		if ev.OrderID != 50 || ev.Status != model.OrderStatusApproved {
			return false
		}
		//売り手 -> 買い手
		return ev.FromUserID == seller.UserID && ev.ToUserID == buyer.UserID
	})).Return(model.TrackingEvent{ID: 1}, nil)

	uc := usecase.NewOrderUsecase(tx)

	o, err := uc.ProcessOrder(ctx, seller, 50, usecase.DecisionApprove)
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusApproved, o.Status)

	tx.AssertExpectations(t)
	ordersRepo.AssertExpectations(t)
	invRepo.AssertExpectations(t)
	eventsRepo.AssertExpectations(t)
	invRepo.AssertNotCalled(t, "Increase", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderUsecase_Approve_InsufficientStock_NoWrites(t *testing.T) {
	ctx := context.Background()

	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)
	invRepo := new(InventoryRepoMock)
	eventsRepo := new(EventRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo, inventory: invRepo, events: eventsRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByIDForUpdate", mock.Anything, int64(50)).Return(pendingOrder(50), nil)
	invRepo.On("DecreaseIfEnough", mock.Anything, int64(7), int64(2)).Return(false, nil)
	invRepo.On("FindByID", mock.Anything, int64(7)).Return(model.Inventory{ID: 7, Quantity: 1}, nil)

	uc := usecase.NewOrderUsecase(tx)

	_, err := uc.ProcessOrder(ctx, seller, 50, usecase.DecisionApprove)
	assertErrContains(t, err, "insufficient stock")
	assert.Equal(t, usecase.KindInsufficientStock, usecase.KindOf(err))

	ordersRepo.AssertNotCalled(t, "ApplyTransition", mock.Anything, mock.Anything, mock.Anything)
	eventsRepo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestOrderUsecase_Approve_MissingInventory(t *testing.T) {
	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)
	invRepo := new(InventoryRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo, inventory: invRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	ordersRepo.On("FindByIDForUpdate", mock.Anything, int64(50)).Return(pendingOrder(50), nil)
	invRepo.On("DecreaseIfEnough", mock.Anything, int64(7), int64(2)).Return(false, nil)
	invRepo.On("FindByID", mock.Anything, int64(7)).Return(model.Inventory{}, repo.ErrNotFound)

	uc := usecase.NewOrderUsecase(tx)

	_, err := uc.ProcessOrder(context.Background(), seller, 50, usecase.DecisionApprove)
	assert.Equal(t, usecase.KindNotFound, usecase.KindOf(err))
}

func TestOrderUsecase_StorageError_IsInternalAndUnwraps(t *testing.T) {
	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	cause := errors.New("connection reset")
	ordersRepo.On("FindByIDForUpdate", mock.Anything, int64(50)).Return(model.Order{}, cause)

	uc := usecase.NewOrderUsecase(tx)

	_, err := uc.CancelOrder(context.Background(), buyer, 50)
	assert.Equal(t, usecase.KindInternal, usecase.KindOf(err))
	assert.ErrorIs(t, err, cause)
}

func TestOrderUsecase_CancelApproved_ReleasesOnce(t *testing.T) {
	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)
	invRepo := new(InventoryRepoMock)
	eventsRepo := new(EventRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo, inventory: invRepo, events: eventsRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	o := pendingOrder(50)
	o.Status = model.OrderStatusApproved
	o.StockReserved = true
	ordersRepo.On("FindByIDForUpdate", mock.Anything, int64(50)).Return(o, nil)
	invRepo.On("Increase", mock.Anything, int64(7), int64(2)).Return(nil).Once()
	ordersRepo.On("ApplyTransition", mock.Anything, int64(50), mock.MatchedBy(func(u repo.OrderTransitionUpdate) bool {
		return u.Status == model.OrderStatusCancelled && !u.StockReserved
	})).Return(nil)
	eventsRepo.On("Append", mock.Anything, mock.MatchedBy(func(ev model.TrackingEvent) bool {
		//買い手 -> 売り手
		return ev.FromUserID == buyer.UserID && ev.ToUserID == seller.UserID && ev.Description == "Order cancelled by buyer"
	})).Return(model.TrackingEvent{ID: 2}, nil)

	uc := usecase.NewOrderUsecase(tx)

	_, err := uc.CancelOrder(context.Background(), buyer, 50)
	assert.NoError(t, err)

	invRepo.AssertExpectations(t)
	ordersRepo.AssertExpectations(t)
	eventsRepo.AssertExpectations(t)
}

func TestOrderUsecase_InTransit_UnknownTransporter(t *testing.T) {
	tx := new(TxManagerMock)
	ordersRepo := new(OrderRepoMock)
	trRepo := new(TransporterRepoMock)

	tx.Repos = &TxReposMock{orders: ordersRepo, transporters: trRepo}
	tx.On("WithinTx", mock.Anything).Return(nil)

	o := pendingOrder(50)
	o.Status = model.OrderStatusProcessing
	ordersRepo.On("FindByIDForUpdate", mock.Anything, int64(50)).Return(o, nil)
	trRepo.On("Exists", mock.Anything, int64(8)).Return(false, nil)

	uc := usecase.NewOrderUsecase(tx)

	tid := int64(8)
	_, err := uc.UpdateStatus(context.Background(), seller, 50, usecase.UpdateStatusInput{
		Status:        model.OrderStatusInTransit,
		TransporterID: &tid,
	})
	assertErrContains(t, err, "transporter not found")
	ordersRepo.AssertNotCalled(t, "ApplyTransition", mock.Anything, mock.Anything, mock.Anything)
}
