package usecase_test

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"supplychain/internal/domain/model"
	repo "supplychain/internal/repository"

	"github.com/shopspring/decimal"
)

// =====================
// インメモリのTxManager（直列実行 + 失敗時は巻き戻し）
// =====================

type memStore struct {
	mu sync.Mutex

	products     map[int64]model.Product
	transporters map[int64]model.Transporter
	inventory    map[int64]model.Inventory
	orders       map[int64]model.Order
	events       []model.TrackingEvent
	adjustments  []model.InventoryAdjustment
	nextID       int64

	// 追記で返すエラー（ロールバック確認用）
	appendErr error
}

func newMemStore() *memStore {
	return &memStore{
		products:     map[int64]model.Product{},
		transporters: map[int64]model.Transporter{},
		inventory:    map[int64]model.Inventory{},
		orders:       map[int64]model.Order{},
		nextID:       1000,
	}
}

type memSnapshot struct {
	inventory   map[int64]model.Inventory
	orders      map[int64]model.Order
	events      []model.TrackingEvent
	adjustments []model.InventoryAdjustment
	nextID      int64
}

func (s *memStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memSnapshot{
		inventory:   maps.Clone(s.inventory),
		orders:      maps.Clone(s.orders),
		events:      slices.Clone(s.events),
		adjustments: slices.Clone(s.adjustments),
		nextID:      s.nextID,
	}
	if err := fn(memRepos{s: s}); err != nil {
		s.inventory = snap.inventory
		s.orders = snap.orders
		s.events = snap.events
		s.adjustments = snap.adjustments
		s.nextID = snap.nextID
		return err
	}
	return nil
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

// seed系（Tx外から呼ぶ）
func (s *memStore) addProduct(name string, price string) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := model.Product{ID: s.id(), Name: name, Price: decimal.RequireFromString(price)}
	s.products[p.ID] = p
	return p
}

func (s *memStore) addTransporter(name string) model.Transporter {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := model.Transporter{ID: s.id(), Name: name}
	s.transporters[t.ID] = t
	return t
}

func (s *memStore) addInventory(userID, productID int64, role model.Role, qty int64) model.Inventory {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv := model.Inventory{ID: s.id(), UserID: userID, ProductID: productID, Role: role, Quantity: qty}
	s.inventory[inv.ID] = inv
	return inv
}

func (s *memStore) quantity(inventoryID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inventory[inventoryID].Quantity
}

func (s *memStore) order(orderID int64) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[orderID]
}

func (s *memStore) eventsOf(orderID int64) []model.TrackingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.TrackingEvent{}
	for _, ev := range s.events {
		if ev.OrderID == orderID {
			out = append(out, ev)
		}
	}
	return out
}

func (s *memStore) eventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *memStore) adjustmentsOf(inventoryID int64) []model.InventoryAdjustment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.InventoryAdjustment{}
	for _, a := range s.adjustments {
		if a.InventoryID == inventoryID {
			out = append(out, a)
		}
	}
	return out
}

type memRepos struct{ s *memStore }

func (r memRepos) Orders() repo.OrderRepository                 { return memOrders{r.s} }
func (r memRepos) Inventory() repo.InventoryRepository          { return memInventory{r.s} }
func (r memRepos) TrackingEvents() repo.TrackingEventRepository { return memEvents{r.s} }
func (r memRepos) Products() repo.ProductRepository             { return memProducts{r.s} }
func (r memRepos) Transporters() repo.TransporterRepository     { return memTransporters{r.s} }

// =====================
// inventory
// =====================

type memInventory struct{ s *memStore }

func (m memInventory) FindByID(ctx context.Context, id int64) (model.Inventory, error) {
	inv, ok := m.s.inventory[id]
	if !ok {
		return model.Inventory{}, repo.ErrNotFound
	}
	return inv, nil
}

func (m memInventory) FindByIDForUpdate(ctx context.Context, id int64) (model.Inventory, error) {
	return m.FindByID(ctx, id)
}

func (m memInventory) FindByIDForShare(ctx context.Context, id int64) (model.Inventory, error) {
	return m.FindByID(ctx, id)
}

func (m memInventory) FindByOwner(ctx context.Context, userID, productID int64, role model.Role) (model.Inventory, error) {
	for _, inv := range m.s.inventory {
		if inv.UserID == userID && inv.ProductID == productID && inv.Role == role {
			return inv, nil
		}
	}
	return model.Inventory{}, repo.ErrNotFound
}

func (m memInventory) Create(ctx context.Context, inv model.Inventory) (model.Inventory, error) {
	if found, err := m.FindByOwner(ctx, inv.UserID, inv.ProductID, inv.Role); err == nil {
		return found, nil
	}
	inv.ID = m.s.id()
	m.s.inventory[inv.ID] = inv
	return inv, nil
}

func (m memInventory) DecreaseIfEnough(ctx context.Context, id int64, qty int64) (bool, error) {
	inv, ok := m.s.inventory[id]
	if !ok || inv.Quantity < qty {
		return false, nil
	}
	inv.Quantity -= qty
	m.s.inventory[id] = inv
	return true, nil
}

func (m memInventory) Increase(ctx context.Context, id int64, qty int64) error {
	inv, ok := m.s.inventory[id]
	if !ok {
		return repo.ErrNotFound
	}
	inv.Quantity += qty
	m.s.inventory[id] = inv
	return nil
}

func (m memInventory) SetQuantity(ctx context.Context, id int64, qty int64) error {
	inv, ok := m.s.inventory[id]
	if !ok {
		return repo.ErrNotFound
	}
	inv.Quantity = qty
	m.s.inventory[id] = inv
	return nil
}

func (m memInventory) Delete(ctx context.Context, id int64) error {
	if _, ok := m.s.inventory[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.s.inventory, id)
	return nil
}

func (m memInventory) ListByOwner(ctx context.Context, userID int64, role model.Role) ([]model.Inventory, error) {
	out := []model.Inventory{}
	for _, inv := range m.s.inventory {
		if inv.UserID == userID && inv.Role == role {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memInventory) ListInStock(ctx context.Context, f repo.StoreFilter) ([]model.Inventory, error) {
	out := []model.Inventory{}
	for _, inv := range m.s.inventory {
		if inv.Quantity <= 0 {
			continue
		}
		if f.SellerID != nil && inv.UserID != *f.SellerID {
			continue
		}
		if f.Role != nil && inv.Role != *f.Role {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if a.Role != b.Role {
			return a.Role < b.Role
		}
		return a.ProductID < b.ProductID
	})
	return out, nil
}

func (m memInventory) CreateAdjustment(ctx context.Context, a model.InventoryAdjustment) error {
	a.ID = m.s.id()
	m.s.adjustments = append(m.s.adjustments, a)
	return nil
}

// =====================
// orders
// =====================

type memOrders struct{ s *memStore }

func (m memOrders) FindByID(ctx context.Context, id int64) (model.Order, error) {
	o, ok := m.s.orders[id]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (m memOrders) FindByIDForUpdate(ctx context.Context, id int64) (model.Order, error) {
	return m.FindByID(ctx, id)
}

func (m memOrders) Create(ctx context.Context, o model.Order) (model.Order, error) {
	o.ID = m.s.id()
	m.s.orders[o.ID] = o
	return o, nil
}

func (m memOrders) ApplyTransition(ctx context.Context, id int64, u repo.OrderTransitionUpdate) error {
	o, ok := m.s.orders[id]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = u.Status
	o.TransporterID = u.TransporterID
	o.StockReserved = u.StockReserved
	o.UpdatedAt = u.UpdatedAt
	m.s.orders[id] = o
	return nil
}

func (m memOrders) ListByBuyer(ctx context.Context, buyerID int64, page, limit int) ([]model.Order, int64, error) {
	return m.list(func(o model.Order) bool { return o.BuyerID == buyerID }, page, limit)
}

func (m memOrders) ListBySeller(ctx context.Context, sellerID int64, page, limit int) ([]model.Order, int64, error) {
	return m.list(func(o model.Order) bool { return o.SellerID == sellerID }, page, limit)
}

func (m memOrders) list(match func(model.Order) bool, page, limit int) ([]model.Order, int64, error) {
	all := []model.Order{}
	for _, o := range m.s.orders {
		if match(o) {
			all = append(all, o)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].OrderDate.Equal(all[j].OrderDate) {
			return all[i].OrderDate.After(all[j].OrderDate)
		}
		return all[i].ID > all[j].ID
	})
	start := (page - 1) * limit
	if start >= len(all) {
		return []model.Order{}, int64(len(all)), nil
	}
	end := min(start+limit, len(all))
	return all[start:end], int64(len(all)), nil
}

func (m memOrders) CountOpenByInventory(ctx context.Context, inventoryID int64) (int64, error) {
	var n int64
	for _, o := range m.s.orders {
		if o.InventoryID == inventoryID && (o.Status.IsOpen() || o.StockReserved) {
			n++
		}
	}
	return n, nil
}

// =====================
// events / catalog
// =====================

type memEvents struct{ s *memStore }

func (m memEvents) Append(ctx context.Context, ev model.TrackingEvent) (model.TrackingEvent, error) {
	if m.s.appendErr != nil {
		return model.TrackingEvent{}, m.s.appendErr
	}
	ev.ID = m.s.id()
	m.s.events = append(m.s.events, ev)
	return ev, nil
}

func (m memEvents) ListByOrderID(ctx context.Context, orderID int64) ([]model.TrackingEvent, error) {
	out := []model.TrackingEvent{}
	for _, ev := range m.s.events {
		if ev.OrderID == orderID {
			out = append(out, ev)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type memProducts struct{ s *memStore }

func (m memProducts) FindByID(ctx context.Context, id int64) (model.Product, error) {
	p, ok := m.s.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (m memProducts) FindByIDs(ctx context.Context, ids []int64) ([]model.Product, error) {
	out := []model.Product{}
	for _, id := range ids {
		if p, ok := m.s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type memTransporters struct{ s *memStore }

func (m memTransporters) Exists(ctx context.Context, id int64) (bool, error) {
	_, ok := m.s.transporters[id]
	return ok, nil
}

// =====================
// clock
// =====================

// 呼ばれるたびに1秒進む
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}
