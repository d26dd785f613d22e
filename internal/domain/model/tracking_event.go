package model

import "time"

// 注文の追跡イベント。追記のみで更新・削除はしない。
// 「誰から」「誰へ」「どのステータスで」を残す。
type TrackingEvent struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64       `gorm:"not null;index" json:"order_id"`
	FromUserID  int64       `gorm:"not null" json:"from_user_id"`
	ToUserID    int64       `gorm:"not null" json:"to_user_id"`
	Status      OrderStatus `gorm:"type:varchar(20);not null" json:"status"`
	Description string      `gorm:"type:text;not null" json:"description"`
	Timestamp   time.Time   `gorm:"not null;index" json:"timestamp"`
}
