package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"supplychain/internal/domain/model"
	repo "supplychain/internal/repository"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "supplychain/usecase"

type OrderUsecase struct {
	tx       repo.TransactionManager
	notifier TrackingNotifier
	cache    TrackingCache
	clock    Clock
	logger   *zap.Logger
	tracer   trace.Tracer
}

type OrderOption func(*OrderUsecase)

func WithNotifier(n TrackingNotifier) OrderOption {
	return func(u *OrderUsecase) {
		if n != nil {
			u.notifier = n
		}
	}
}

func WithTrackingCache(c TrackingCache) OrderOption {
	return func(u *OrderUsecase) {
		if c != nil {
			u.cache = c
		}
	}
}

func WithClock(c Clock) OrderOption {
	return func(u *OrderUsecase) {
		if c != nil {
			u.clock = c
		}
	}
}

func WithLogger(l *zap.Logger) OrderOption {
	return func(u *OrderUsecase) {
		if l != nil {
			u.logger = l
		}
	}
}

// DI
func NewOrderUsecase(tx repo.TransactionManager, opts ...OrderOption) *OrderUsecase {
	u := &OrderUsecase{
		tx:       tx,
		notifier: nopNotifier{},
		cache:    nopCache{},
		clock:    systemClock{},
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type PlaceOrderInput struct {
	ProductID       int64
	InventoryID     int64
	SellerID        int64
	Quantity        int64
	DeliveryAddress string
}

// 売り手の承認/却下
type ProcessDecision string

const (
	DecisionApprove ProcessDecision = "APPROVE"
	DecisionReject  ProcessDecision = "REJECT"
)

// 買い手の受け取り確認
type DeliveryDecision string

const (
	DeliveryConfirm DeliveryDecision = "CONFIRM"
	DeliveryReject  DeliveryDecision = "REJECT"
)

type UpdateStatusInput struct {
	Status        model.OrderStatus
	TransporterID *int64
	Description   string
}

type OrderDetail struct {
	Order  model.Order           `json:"order"`
	Events []model.TrackingEvent `json:"tracking_events"`
}

type OrderListOutput struct {
	Items []model.Order `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// 注文作成（PENDING）。在庫はまだ確保しない。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, ident model.Identity, in PlaceOrderInput) (model.Order, error) {
	ctx, span := u.tracer.Start(ctx, "order.place")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user.id", ident.UserID),
		attribute.Int64("inventory.id", in.InventoryID),
		attribute.Int64("order.quantity", in.Quantity),
	)

	if !ident.CanBuy() {
		return model.Order{}, u.fail(span, NewError(KindUnauthorized, "role cannot place orders"))
	}
	if in.Quantity <= 0 {
		return model.Order{}, u.fail(span, NewError(KindInvalidQuantity, "quantity must be > 0"))
	}
	if in.ProductID <= 0 || in.InventoryID <= 0 || in.SellerID <= 0 {
		return model.Order{}, u.fail(span, NewError(KindInvalidInput, "invalid id"))
	}
	address := strings.TrimSpace(in.DeliveryAddress)
	if address == "" {
		return model.Order{}, u.fail(span, NewError(KindInvalidInput, "delivery_address is required"))
	}

	var created model.Order
	var ev model.TrackingEvent

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		inv, err := r.Inventory().FindByIDForShare(ctx, in.InventoryID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "inventory not found")
		}
		if err != nil {
			return dbError(err)
		}

		//在庫の持ち主と指定された売り手が一致するか
		if inv.UserID != in.SellerID {
			return NewError(KindInvalidSeller, "invalid seller for this inventory")
		}
		if inv.ProductID != in.ProductID {
			return NewError(KindNotFound, "product does not match inventory")
		}
		//自分の店からは買えない
		if inv.UserID == ident.UserID {
			return NewError(KindInvalidSeller, "cannot order from yourself")
		}
		//目安のチェック（確保は承認時）
		if inv.Quantity < in.Quantity {
			return NewError(KindInsufficientStock, fmt.Sprintf("insufficient stock. available: %d", inv.Quantity))
		}

		p, err := r.Products().FindByID(ctx, in.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "product not found")
		}
		if err != nil {
			return dbError(err)
		}

		now := u.now()
		created, err = r.Orders().Create(ctx, model.Order{
			BuyerID:             ident.UserID,
			SellerID:            inv.UserID,
			ProductID:           p.ID,
			InventoryID:         inv.ID,
			Quantity:            in.Quantity,
			ProductNameSnapshot: p.Name,
			UnitPriceSnapshot:   p.Price,
			TotalAmount:         p.Price.Mul(decimal.NewFromInt(in.Quantity)),
			DeliveryAddress:     address,
			Status:              model.OrderStatusPending,
			OrderDate:           now,
			UpdatedAt:           now,
		})
		if err != nil {
			return dbError(err)
		}

		//作成イベント（買い手 -> 売り手）
		ev, err = r.TrackingEvents().Append(ctx, model.TrackingEvent{
			OrderID:     created.ID,
			FromUserID:  ident.UserID,
			ToUserID:    inv.UserID,
			Status:      model.OrderStatusPending,
			Description: fmt.Sprintf("Order placed for %d x %s", in.Quantity, p.Name),
			Timestamp:   now,
		})
		if err != nil {
			return dbError(err)
		}
		return nil
	})
	if err != nil {
		return model.Order{}, u.fail(span, normalize(err))
	}

	span.SetAttributes(attribute.Int64("order.id", created.ID))
	u.logger.Info("order placed",
		zap.Int64("order_id", created.ID),
		zap.Int64("buyer_id", created.BuyerID),
		zap.Int64("seller_id", created.SellerID),
		zap.Int64("quantity", created.Quantity),
	)
	u.afterCommit(ctx, created, ev)
	return created, nil
}

// 売り手の承認（在庫確保）/却下
func (u *OrderUsecase) ProcessOrder(ctx context.Context, ident model.Identity, orderID int64, decision ProcessDecision) (model.Order, error) {
	switch decision {
	case DecisionApprove:
		return u.applyAction(ctx, ident, orderID, model.ActionApprove, model.PartySeller, model.OrderStatusApproved, actionInput{})
	case DecisionReject:
		return u.applyAction(ctx, ident, orderID, model.ActionReject, model.PartySeller, model.OrderStatusCancelled, actionInput{})
	}
	return model.Order{}, NewError(KindInvalidInput, "action must be APPROVE or REJECT")
}

// 売り手のステータス更新（PROCESSING / IN_TRANSIT / CANCELLED / RETURNED）
func (u *OrderUsecase) UpdateStatus(ctx context.Context, ident model.Identity, orderID int64, in UpdateStatusInput) (model.Order, error) {
	if !in.Status.Valid() {
		return model.Order{}, NewError(KindInvalidInput, "invalid status")
	}
	//表にない目的ステータスはロード後にINVALID_TRANSITIONにする
	action, _ := model.SellerActionForStatus(in.Status)
	return u.applyAction(ctx, ident, orderID, action, model.PartySeller, in.Status, actionInput{
		transporterID: in.TransporterID,
		description:   strings.TrimSpace(in.Description),
	})
}

// 買い手のキャンセル
func (u *OrderUsecase) CancelOrder(ctx context.Context, ident model.Identity, orderID int64) (model.Order, error) {
	return u.applyAction(ctx, ident, orderID, model.ActionCancel, model.PartyBuyer, model.OrderStatusCancelled, actionInput{})
}

// 買い手の受け取り確認/拒否。拒否では在庫を戻さない（RETURNEDで戻す）。
func (u *OrderUsecase) ConfirmDelivery(ctx context.Context, ident model.Identity, orderID int64, decision DeliveryDecision) (model.Order, error) {
	switch decision {
	case DeliveryConfirm:
		return u.applyAction(ctx, ident, orderID, model.ActionConfirmDelivery, model.PartyBuyer, model.OrderStatusDelivered, actionInput{})
	case DeliveryReject:
		return u.applyAction(ctx, ident, orderID, model.ActionRejectDelivery, model.PartyBuyer, model.OrderStatusCancelled, actionInput{})
	}
	return model.Order{}, NewError(KindInvalidInput, "action must be CONFIRM or REJECT")
}

type actionInput struct {
	transporterID *int64
	description   string
}

// すべての遷移はここを通る。
// 注文行ロック -> 所有者チェック -> 遷移表 -> 在庫 -> 注文更新 -> イベント追記 を1Txで。
func (u *OrderUsecase) applyAction(
	ctx context.Context,
	ident model.Identity,
	orderID int64,
	action model.OrderAction,
	party model.Party,
	target model.OrderStatus,
	in actionInput,
) (model.Order, error) {
	ctx, span := u.tracer.Start(ctx, "order.transition")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.action", string(action)),
		attribute.String("order.target", string(target)),
		attribute.Int64("user.id", ident.UserID),
	)

	if orderID <= 0 {
		return model.Order{}, u.fail(span, NewError(KindInvalidInput, "invalid id"))
	}

	var updated model.Order
	var ev model.TrackingEvent
	var from model.OrderStatus

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "order not found")
		}
		if err != nil {
			return dbError(err)
		}
		from = o.Status

		//遷移が正しくても他人ならUNAUTHORIZED
		if err := authorizeParty(ident, o, party); err != nil {
			return err
		}

		tr, ok := model.LookupTransition(o.Status, action, party)
		if !ok {
			return newTransitionError(o.Status, target)
		}

		upd := repo.OrderTransitionUpdate{
			Status:        tr.To,
			TransporterID: o.TransporterID,
			StockReserved: o.StockReserved,
		}

		if tr.RequiresTransporter {
			if in.transporterID == nil || *in.transporterID <= 0 {
				return NewError(KindTransporterNotFound, "transporter_id is required")
			}
			exists, err := r.Transporters().Exists(ctx, *in.transporterID)
			if err != nil {
				return dbError(err)
			}
			if !exists {
				return NewError(KindTransporterNotFound, "transporter not found")
			}
			tid := *in.transporterID
			upd.TransporterID = &tid
		}

		switch tr.Ledger {
		case model.LedgerReserve:
			if err := reserveStock(ctx, r.Inventory(), o.InventoryID, o.Quantity); err != nil {
				return err
			}
			upd.StockReserved = true
		case model.LedgerRelease:
			//確保中の分だけ戻す（二重戻しを防ぐ）
			if o.StockReserved {
				if err := releaseStock(ctx, r.Inventory(), o.InventoryID, o.Quantity); err != nil {
					return err
				}
				upd.StockReserved = false
			}
		}

		now := eventTime(u.now(), o.UpdatedAt)
		upd.UpdatedAt = now
		if err := r.Orders().ApplyTransition(ctx, o.ID, upd); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewError(KindNotFound, "order not found")
			}
			return dbError(err)
		}

		desc := tr.Description
		if in.description != "" {
			desc = in.description
		}
		fromUser, toUser := o.SellerID, o.BuyerID
		if party == model.PartyBuyer {
			fromUser, toUser = o.BuyerID, o.SellerID
		}
		ev, err = r.TrackingEvents().Append(ctx, model.TrackingEvent{
			OrderID:     o.ID,
			FromUserID:  fromUser,
			ToUserID:    toUser,
			Status:      tr.To,
			Description: desc,
			Timestamp:   now,
		})
		if err != nil {
			return dbError(err)
		}

		o.Status = upd.Status
		o.TransporterID = upd.TransporterID
		o.StockReserved = upd.StockReserved
		o.UpdatedAt = now
		updated = o
		return nil
	})
	if err != nil {
		return model.Order{}, u.fail(span, normalize(err))
	}

	u.logger.Info("order status changed",
		zap.Int64("order_id", updated.ID),
		zap.String("action", string(action)),
		zap.String("from", string(from)),
		zap.String("to", string(updated.Status)),
		zap.Int64("actor_id", ident.UserID),
	)
	u.afterCommit(ctx, updated, ev)
	return updated, nil
}

// 売り手の追跡メモ（ステータスは変えない）
func (u *OrderUsecase) AddTrackingNote(ctx context.Context, ident model.Identity, orderID int64, description string) (model.TrackingEvent, error) {
	ctx, span := u.tracer.Start(ctx, "order.tracking_note")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID), attribute.Int64("user.id", ident.UserID))

	description = strings.TrimSpace(description)
	if orderID <= 0 {
		return model.TrackingEvent{}, u.fail(span, NewError(KindInvalidInput, "invalid id"))
	}
	if description == "" {
		return model.TrackingEvent{}, u.fail(span, NewError(KindInvalidInput, "description is required"))
	}

	var order model.Order
	var ev model.TrackingEvent

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "order not found")
		}
		if err != nil {
			return dbError(err)
		}
		if err := authorizeParty(ident, o, model.PartySeller); err != nil {
			return err
		}
		if !o.Status.AcceptsTrackingNote() {
			return &Error{
				Kind:    KindInvalidTransition,
				Message: fmt.Sprintf("cannot add tracking events for order with status: %s", o.Status),
				From:    o.Status,
				To:      o.Status,
			}
		}

		//updated_atも進めて、イベント時刻が戻らないようにする
		now := eventTime(u.now(), o.UpdatedAt)
		if err := r.Orders().ApplyTransition(ctx, o.ID, repo.OrderTransitionUpdate{
			Status:        o.Status,
			TransporterID: o.TransporterID,
			StockReserved: o.StockReserved,
			UpdatedAt:     now,
		}); err != nil {
			return dbError(err)
		}

		ev, err = r.TrackingEvents().Append(ctx, model.TrackingEvent{
			OrderID:     o.ID,
			FromUserID:  ident.UserID,
			ToUserID:    o.BuyerID,
			Status:      o.Status,
			Description: description,
			Timestamp:   now,
		})
		if err != nil {
			return dbError(err)
		}
		o.UpdatedAt = now
		order = o
		return nil
	})
	if err != nil {
		return model.TrackingEvent{}, u.fail(span, normalize(err))
	}

	u.afterCommit(ctx, order, ev)
	return ev, nil
}

// 注文詳細（買い手か売り手だけ）
func (u *OrderUsecase) GetOrder(ctx context.Context, ident model.Identity, orderID int64) (OrderDetail, error) {
	if orderID <= 0 {
		return OrderDetail{}, NewError(KindInvalidInput, "invalid id")
	}

	var out OrderDetail
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := loadForReader(ctx, r, ident, orderID)
		if err != nil {
			return err
		}
		events, err := u.timeline(ctx, r, orderID)
		if err != nil {
			return err
		}
		out = OrderDetail{Order: o, Events: events}
		return nil
	})
	if err != nil {
		return OrderDetail{}, normalize(err)
	}
	return out, nil
}

// 追跡イベント一覧（時刻、IDの昇順）
func (u *OrderUsecase) ListTrackingEvents(ctx context.Context, ident model.Identity, orderID int64) ([]model.TrackingEvent, error) {
	if orderID <= 0 {
		return []model.TrackingEvent{}, NewError(KindInvalidInput, "invalid id")
	}

	var out []model.TrackingEvent
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := loadForReader(ctx, r, ident, orderID); err != nil {
			return err
		}
		events, err := u.timeline(ctx, r, orderID)
		if err != nil {
			return err
		}
		out = events
		return nil
	})
	if err != nil {
		return []model.TrackingEvent{}, normalize(err)
	}
	return out, nil
}

func (u *OrderUsecase) ListBuyerOrders(ctx context.Context, ident model.Identity, page, limit int) (OrderListOutput, error) {
	if !ident.CanBuy() {
		return OrderListOutput{}, NewError(KindUnauthorized, "role cannot view buyer orders")
	}
	return u.list(ctx, page, limit, func(r repo.TxRepos) ([]model.Order, int64, error) {
		return r.Orders().ListByBuyer(ctx, ident.UserID, page, limit)
	})
}

func (u *OrderUsecase) ListSellerOrders(ctx context.Context, ident model.Identity, page, limit int) (OrderListOutput, error) {
	if !ident.CanSell() {
		return OrderListOutput{}, NewError(KindUnauthorized, "role cannot view seller orders")
	}
	return u.list(ctx, page, limit, func(r repo.TxRepos) ([]model.Order, int64, error) {
		return r.Orders().ListBySeller(ctx, ident.UserID, page, limit)
	})
}

func (u *OrderUsecase) list(ctx context.Context, page, limit int, fetch func(r repo.TxRepos) ([]model.Order, int64, error)) (OrderListOutput, error) {
	if page < 1 {
		return OrderListOutput{}, NewError(KindInvalidInput, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, NewError(KindInvalidInput, "invalid limit")
	}

	var out OrderListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := fetch(r)
		if err != nil {
			return dbError(err)
		}
		out = OrderListOutput{Items: items, Total: total, Page: page, Limit: limit}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, normalize(err)
	}
	return out, nil
}

// キャッシュを先に見る。なければDBから読んで入れる。
func (u *OrderUsecase) timeline(ctx context.Context, r repo.TxRepos, orderID int64) ([]model.TrackingEvent, error) {
	if events, ok, err := u.cache.Get(ctx, orderID); err != nil {
		u.logger.Warn("tracking cache get failed", zap.Int64("order_id", orderID), zap.Error(err))
	} else if ok {
		return events, nil
	}

	events, err := r.TrackingEvents().ListByOrderID(ctx, orderID)
	if err != nil {
		return nil, dbError(err)
	}
	if err := u.cache.Set(ctx, orderID, events); err != nil {
		u.logger.Warn("tracking cache set failed", zap.Int64("order_id", orderID), zap.Error(err))
	}
	return events, nil
}

// コミット後の後処理。失敗してもログだけ。
func (u *OrderUsecase) afterCommit(ctx context.Context, o model.Order, ev model.TrackingEvent) {
	ctx = context.WithoutCancel(ctx)
	if err := u.cache.Invalidate(ctx, o.ID); err != nil {
		u.logger.Warn("tracking cache invalidate failed", zap.Int64("order_id", o.ID), zap.Error(err))
	}
	if err := u.notifier.PublishTracking(ctx, o, ev); err != nil {
		u.logger.Warn("tracking notification failed",
			zap.Int64("order_id", o.ID),
			zap.Int64("event_id", ev.ID),
			zap.Error(err),
		)
	}
}

func (u *OrderUsecase) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(KindOf(err)))
	if KindOf(err) == KindInternal {
		u.logger.Error("order operation failed", zap.Error(err))
	} else {
		u.logger.Debug("order operation rejected", zap.String("kind", string(KindOf(err))), zap.Error(err))
	}
	return err
}

func (u *OrderUsecase) now() time.Time {
	return u.clock.Now().UTC().Truncate(time.Microsecond)
}

// 同じ注文のイベント時刻は前回より戻さない
func eventTime(now, last time.Time) time.Time {
	if now.Before(last) {
		return last
	}
	return now
}

func authorizeParty(ident model.Identity, o model.Order, party model.Party) error {
	switch party {
	case model.PartyBuyer:
		if !ident.CanBuy() || o.BuyerID != ident.UserID {
			return NewError(KindUnauthorized, "only the buyer can perform this action")
		}
	case model.PartySeller:
		if !ident.CanSell() || o.SellerID != ident.UserID {
			return NewError(KindUnauthorized, "only the seller can perform this action")
		}
	default:
		return NewError(KindUnauthorized, "unknown party")
	}
	return nil
}

// 閲覧は買い手か売り手だけ
func loadForReader(ctx context.Context, r repo.TxRepos, ident model.Identity, orderID int64) (model.Order, error) {
	o, err := r.Orders().FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewError(KindNotFound, "order not found")
	}
	if err != nil {
		return model.Order{}, dbError(err)
	}
	if ident.UserID <= 0 || (o.BuyerID != ident.UserID && o.SellerID != ident.UserID) {
		return model.Order{}, NewError(KindUnauthorized, "you cannot view this order")
	}
	return o, nil
}
