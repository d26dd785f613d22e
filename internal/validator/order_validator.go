package validator

import (
	"strings"
	"unicode/utf8"

	"supplychain/internal/domain/model"
	"supplychain/internal/usecase"
)

const (
	MaxDeliveryAddressLen = 500
	MaxDescriptionLen     = 1000
	MaxPageLimit          = 100
)

func invalid(msg string) error {
	return usecase.NewError(usecase.KindInvalidInput, msg)
}

// 注文作成の入力を検証
func ValidatePlaceOrder(in usecase.PlaceOrderInput) error {
	// 必須チェック
	if in.ProductID <= 0 {
		return invalid("product_id is required")
	}
	if in.InventoryID <= 0 {
		return invalid("inventory_id is required")
	}
	if in.SellerID <= 0 {
		return invalid("seller_id is required")
	}
	if in.Quantity <= 0 {
		return usecase.NewError(usecase.KindInvalidQuantity, "quantity must be > 0")
	}

	addr := strings.TrimSpace(in.DeliveryAddress)
	if addr == "" {
		return invalid("delivery_address is required")
	}
	if utf8.RuneCountInString(addr) > MaxDeliveryAddressLen {
		return invalid("delivery_address too long")
	}
	return nil
}

// 売り手の承認/却下
func ValidateProcessDecision(action string) (usecase.ProcessDecision, error) {
	switch d := usecase.ProcessDecision(strings.ToUpper(strings.TrimSpace(action))); d {
	case usecase.DecisionApprove, usecase.DecisionReject:
		return d, nil
	}
	return "", invalid("action must be APPROVE or REJECT")
}

// 買い手の受け取り確認/拒否
func ValidateDeliveryDecision(action string) (usecase.DeliveryDecision, error) {
	switch d := usecase.DeliveryDecision(strings.ToUpper(strings.TrimSpace(action))); d {
	case usecase.DeliveryConfirm, usecase.DeliveryReject:
		return d, nil
	}
	return "", invalid("action must be CONFIRM or REJECT")
}

// ステータス更新の入力を検証（遷移の可否はusecaseで見る）
func ValidateUpdateStatus(in usecase.UpdateStatusInput) error {
	if !in.Status.Valid() {
		return invalid("invalid status")
	}
	if in.TransporterID != nil && *in.TransporterID <= 0 {
		return invalid("invalid transporter_id")
	}
	if utf8.RuneCountInString(in.Description) > MaxDescriptionLen {
		return invalid("description too long")
	}
	return nil
}

func ValidateTrackingNote(description string) error {
	d := strings.TrimSpace(description)
	if d == "" {
		return invalid("description is required")
	}
	if utf8.RuneCountInString(d) > MaxDescriptionLen {
		return invalid("description too long")
	}
	return nil
}

func ValidateAddStock(in usecase.AddStockInput) error {
	if in.ProductID <= 0 {
		return invalid("product_id is required")
	}
	if in.Quantity <= 0 {
		return usecase.NewError(usecase.KindInvalidQuantity, "quantity must be > 0")
	}
	return nil
}

func ValidateSetQuantity(qty int64) error {
	if qty < 0 {
		return usecase.NewError(usecase.KindInvalidQuantity, "quantity cannot be negative")
	}
	return nil
}

// ストアのロール（クエリ）
func ValidateStoreRole(raw string) (model.Role, error) {
	r := model.Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !r.IsSeller() {
		return "", invalid("role must be SUPPLIER, DISTRIBUTOR or RETAILER")
	}
	return r, nil
}

func ValidatePage(page, limit int) error {
	if page < 1 {
		return invalid("invalid page")
	}
	if limit < 1 || limit > MaxPageLimit {
		return invalid("invalid limit")
	}
	return nil
}
