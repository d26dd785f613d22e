package model

import "fmt"

// 注文に対する操作
type OrderAction string

const (
	//売り手
	ActionApprove        OrderAction = "APPROVE"
	ActionReject         OrderAction = "REJECT"
	ActionMarkProcessing OrderAction = "MARK_PROCESSING"
	ActionMarkInTransit  OrderAction = "MARK_IN_TRANSIT"
	ActionMarkCancelled  OrderAction = "MARK_CANCELLED"
	ActionMarkReturned   OrderAction = "MARK_RETURNED"

	//買い手
	ActionCancel          OrderAction = "CANCEL"
	ActionConfirmDelivery OrderAction = "CONFIRM_DELIVERY"
	ActionRejectDelivery  OrderAction = "REJECT_DELIVERY"
)

// 操作する側（買い手 / 売り手）
type Party string

const (
	PartyBuyer  Party = "BUYER"
	PartySeller Party = "SELLER"
)

// 遷移に伴う在庫の動き
type LedgerEffect int

const (
	LedgerNone LedgerEffect = iota
	LedgerReserve
	LedgerRelease
)

type Transition struct {
	From   OrderStatus
	Action OrderAction
	Actor  Party
	To     OrderStatus
	Ledger LedgerEffect
	//IN_TRANSITは配送業者IDが必須
	RequiresTransporter bool
	Description         string
}

type transitionKey struct {
	from   OrderStatus
	action OrderAction
	actor  Party
}

var transitionTable = []Transition{
	{From: OrderStatusPending, Action: ActionApprove, Actor: PartySeller, To: OrderStatusApproved, Ledger: LedgerReserve,
		Description: "Order approved by seller. Stock reserved."},
	{From: OrderStatusPending, Action: ActionReject, Actor: PartySeller, To: OrderStatusCancelled,
		Description: "Order rejected by seller"},

	{From: OrderStatusPending, Action: ActionCancel, Actor: PartyBuyer, To: OrderStatusCancelled,
		Description: "Order cancelled by buyer"},
	{From: OrderStatusApproved, Action: ActionCancel, Actor: PartyBuyer, To: OrderStatusCancelled, Ledger: LedgerRelease,
		Description: "Order cancelled by buyer"},
	{From: OrderStatusProcessing, Action: ActionCancel, Actor: PartyBuyer, To: OrderStatusCancelled, Ledger: LedgerRelease,
		Description: "Order cancelled by buyer"},
	{From: OrderStatusInTransit, Action: ActionCancel, Actor: PartyBuyer, To: OrderStatusCancelled, Ledger: LedgerRelease,
		Description: "Order cancelled by buyer"},

	{From: OrderStatusApproved, Action: ActionMarkProcessing, Actor: PartySeller, To: OrderStatusProcessing,
		Description: "Order status updated to PROCESSING"},
	{From: OrderStatusProcessing, Action: ActionMarkInTransit, Actor: PartySeller, To: OrderStatusInTransit, RequiresTransporter: true,
		Description: "Order status updated to IN_TRANSIT"},
	{From: OrderStatusApproved, Action: ActionMarkCancelled, Actor: PartySeller, To: OrderStatusCancelled,
		Description: "Order status updated to CANCELLED"},
	{From: OrderStatusProcessing, Action: ActionMarkCancelled, Actor: PartySeller, To: OrderStatusCancelled,
		Description: "Order status updated to CANCELLED"},
	{From: OrderStatusCancelled, Action: ActionMarkReturned, Actor: PartySeller, To: OrderStatusReturned, Ledger: LedgerRelease,
		Description: "Order status updated to RETURNED"},

	{From: OrderStatusInTransit, Action: ActionConfirmDelivery, Actor: PartyBuyer, To: OrderStatusDelivered,
		Description: "Product received and confirmed by buyer"},
	//在庫はRETURNEDで戻す（ここでは戻さない）
	{From: OrderStatusInTransit, Action: ActionRejectDelivery, Actor: PartyBuyer, To: OrderStatusCancelled,
		Description: "Product rejected by buyer. Awaiting return."},
}

var transitions = func() map[transitionKey]Transition {
	m := make(map[transitionKey]Transition, len(transitionTable))
	for _, t := range transitionTable {
		k := transitionKey{from: t.From, action: t.Action, actor: t.Actor}
		if _, dup := m[k]; dup {
			panic(fmt.Sprintf("duplicate transition %s %s %s", t.From, t.Action, t.Actor))
		}
		m[k] = t
	}
	return m
}()

// 遷移表を1か所で引く。見つからなければ不正な遷移。
func LookupTransition(from OrderStatus, action OrderAction, actor Party) (Transition, bool) {
	t, ok := transitions[transitionKey{from: from, action: action, actor: actor}]
	return t, ok
}

// 遷移表のコピー（テスト・ドキュメント用）
func Transitions() []Transition {
	out := make([]Transition, len(transitionTable))
	copy(out, transitionTable)
	return out
}

// その操作をするのは買い手か売り手か
func (a OrderAction) Party() Party {
	switch a {
	case ActionCancel, ActionConfirmDelivery, ActionRejectDelivery:
		return PartyBuyer
	default:
		return PartySeller
	}
}

// 操作が目指すステータス（エラーメッセージの from/to 用）
func (a OrderAction) Target() OrderStatus {
	switch a {
	case ActionApprove:
		return OrderStatusApproved
	case ActionReject, ActionCancel, ActionMarkCancelled, ActionRejectDelivery:
		return OrderStatusCancelled
	case ActionMarkProcessing:
		return OrderStatusProcessing
	case ActionMarkInTransit:
		return OrderStatusInTransit
	case ActionMarkReturned:
		return OrderStatusReturned
	case ActionConfirmDelivery:
		return OrderStatusDelivered
	}
	return ""
}

// 売り手のステータス更新（PATCH /orders/:id/status）を操作に変換
func SellerActionForStatus(status OrderStatus) (OrderAction, bool) {
	switch status {
	case OrderStatusProcessing:
		return ActionMarkProcessing, true
	case OrderStatusInTransit:
		return ActionMarkInTransit, true
	case OrderStatusCancelled:
		return ActionMarkCancelled, true
	case OrderStatusReturned:
		return ActionMarkReturned, true
	}
	return "", false
}

// 追跡メモを追加できるステータス
func (s OrderStatus) AcceptsTrackingNote() bool {
	return s == OrderStatusApproved || s == OrderStatusProcessing || s == OrderStatusInTransit
}
