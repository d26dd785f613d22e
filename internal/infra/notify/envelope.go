package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"supplychain/internal/domain/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
)

const (
	EventTrackingAppended = "OrderTrackingAppended"
	envelopeVersion       = 1
	producerName          = "supplychain-api"
)

type Envelope struct {
	EventID       string          `json:"event_id"` // uuid
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type TrackingPayload struct {
	OrderID       int64             `json:"order_id"`
	EventID       int64             `json:"tracking_event_id"`
	BuyerID       int64             `json:"buyer_id"`
	SellerID      int64             `json:"seller_id"`
	FromUserID    int64             `json:"from_user_id"`
	ToUserID      int64             `json:"to_user_id"`
	Status        model.OrderStatus `json:"status"`
	Description   string            `json:"description"`
	Quantity      int64             `json:"quantity"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	TransporterID *int64            `json:"transporter_id,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// 注文と追跡イベントから通知メッセージを作る
func NewTrackingEnvelope(ctx context.Context, o model.Order, ev model.TrackingEvent) (Envelope, error) {
	payload, err := json.Marshal(TrackingPayload{
		OrderID:       o.ID,
		EventID:       ev.ID,
		BuyerID:       o.BuyerID,
		SellerID:      o.SellerID,
		FromUserID:    ev.FromUserID,
		ToUserID:      ev.ToUserID,
		Status:        ev.Status,
		Description:   ev.Description,
		Quantity:      o.Quantity,
		TotalAmount:   o.TotalAmount,
		TransporterID: o.TransporterID,
		Timestamp:     ev.Timestamp,
	})
	if err != nil {
		return Envelope{}, fmt.Errorf("encode tracking payload: %w", err)
	}

	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventTrackingAppended,
		EventVersion:  envelopeVersion,
		OccurredAt:    ev.Timestamp,
		Producer:      producerName,
		CorrelationID: strconv.FormatInt(o.ID, 10),
		Payload:       payload,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		env.TraceID = sc.TraceID().String()
	}
	return env, nil
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
