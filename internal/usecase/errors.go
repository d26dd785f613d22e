package usecase

import (
	"errors"
	"fmt"

	"supplychain/internal/domain/model"
)

// 失敗の種類。HTTPのステータスへの変換はhandler側でやる。
type ErrorKind string

const (
	KindNotFound              ErrorKind = "NOT_FOUND"
	KindUnauthorized          ErrorKind = "UNAUTHORIZED"
	KindInvalidTransition     ErrorKind = "INVALID_TRANSITION"
	KindInsufficientStock     ErrorKind = "INSUFFICIENT_STOCK"
	KindInvalidSeller         ErrorKind = "INVALID_SELLER"
	KindTransporterNotFound   ErrorKind = "TRANSPORTER_NOT_FOUND"
	KindConflictingOpenOrders ErrorKind = "CONFLICTING_OPEN_ORDERS"
	KindInvalidQuantity       ErrorKind = "INVALID_QUANTITY"
	KindInvalidInput          ErrorKind = "INVALID_INPUT"
	KindInternal              ErrorKind = "INTERNAL"
)

type Error struct {
	Kind    ErrorKind
	Message string
	// INVALID_TRANSITIONのときだけ入る
	From model.OrderStatus
	To   model.OrderStatus
	// DBエラーなど元のエラー
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// *Error以外はINTERNAL扱い
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return KindInternal
}

// 元のエラーを包む（再試行の判定で使う）
func dbError(err error) error {
	return &Error{Kind: KindInternal, Message: "db error", Err: err}
}

func newTransitionError(from, to model.OrderStatus) error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("cannot change order status from %s to %s", from, to),
		From:    from,
		To:      to,
	}
}

// Tx外に出てきたエラーを必ず*Errorにそろえる
func normalize(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsError(err); ok {
		return err
	}
	return dbError(err)
}
