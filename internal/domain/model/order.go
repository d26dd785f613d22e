package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusApproved   OrderStatus = "APPROVED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusInTransit  OrderStatus = "IN_TRANSIT"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusReturned   OrderStatus = "RETURNED"
)

var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusApproved,
	OrderStatusProcessing,
	OrderStatusInTransit,
	OrderStatusDelivered,
	OrderStatusCancelled,
	OrderStatusReturned,
}

// 在庫削除をブロックする（まだ終わっていない）ステータス
var OpenOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusApproved,
	OrderStatusProcessing,
	OrderStatusInTransit,
}

func (s OrderStatus) Valid() bool {
	for _, v := range AllOrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsOpen() bool {
	for _, v := range OpenOrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// 1注文 = 1在庫 × 数量。
// TotalAmountは作成時に確定し、あとで商品価格が変わっても変えない。
type Order struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	BuyerID             int64           `gorm:"not null;index" json:"buyer_id"`
	SellerID            int64           `gorm:"not null;index" json:"seller_id"`
	ProductID           int64           `gorm:"not null;index" json:"product_id"`
	InventoryID         int64           `gorm:"not null;index" json:"inventory_id"`
	Quantity            int64           `gorm:"not null;check:quantity > 0" json:"quantity"`
	ProductNameSnapshot string          `gorm:"type:varchar(255);not null" json:"product_name_snapshot"`
	UnitPriceSnapshot   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price_snapshot"`
	TotalAmount         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_amount"`
	DeliveryAddress     string          `gorm:"type:text;not null" json:"delivery_address"`
	TransporterID       *int64          `gorm:"index" json:"transporter_id"`
	Status              OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	//承認で在庫を確保した状態か（戻したらfalse）
	StockReserved bool      `gorm:"not null;default:false" json:"stock_reserved"`
	OrderDate     time.Time `gorm:"not null" json:"order_date"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}
