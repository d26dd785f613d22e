package notify

import (
	"context"
	"fmt"

	"supplychain/internal/domain/model"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// 追跡イベントをKafkaへ流す。キーは注文IDなので同じ注文は同じパーティション。
type KafkaNotifier struct {
	w      messageWriter
	logger *zap.Logger
}

func NewKafkaNotifier(brokers []string, topic string, logger *zap.Logger) *KafkaNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				logger.Warn("kafka write failed", zap.Int("messages", len(msgs)), zap.Error(err))
			}
		},
	}
	return &KafkaNotifier{w: w, logger: logger}
}

func newKafkaNotifierWithWriter(w messageWriter, logger *zap.Logger) *KafkaNotifier {
	return &KafkaNotifier{w: w, logger: logger}
}

func (n *KafkaNotifier) PublishTracking(ctx context.Context, o model.Order, ev model.TrackingEvent) error {
	env, err := NewTrackingEnvelope(ctx, o, ev)
	if err != nil {
		return err
	}
	body, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(env.CorrelationID),
		Value: body,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	}
	if err := n.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish: %w", err)
	}
	return nil
}

// 非同期分を書き出してから閉じる
func (n *KafkaNotifier) Close() error {
	return n.w.Close()
}
