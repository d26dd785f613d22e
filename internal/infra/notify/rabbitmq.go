package notify

import (
	"context"
	"fmt"

	"supplychain/internal/domain/model"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// 追跡イベントをRabbitMQのキューへ流す
type RabbitMQNotifier struct {
	conn   *amqp.Connection
	ch     amqpChannel
	queue  string
	logger *zap.Logger
}

func NewRabbitMQNotifier(url, queue string, logger *zap.Logger) (*RabbitMQNotifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // queue name
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	logger.Info("rabbitmq notifier ready", zap.String("queue", queue))
	return &RabbitMQNotifier{conn: conn, ch: ch, queue: queue, logger: logger}, nil
}

func newRabbitMQNotifierWithChannel(ch amqpChannel, queue string, logger *zap.Logger) *RabbitMQNotifier {
	return &RabbitMQNotifier{ch: ch, queue: queue, logger: logger}
}

func (n *RabbitMQNotifier) PublishTracking(ctx context.Context, o model.Order, ev model.TrackingEvent) error {
	env, err := NewTrackingEnvelope(ctx, o, ev)
	if err != nil {
		return err
	}
	body, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	err = n.ch.PublishWithContext(ctx,
		"",      // exchange
		n.queue, // routing key (queue name)
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     env.EventID,
			CorrelationId: env.CorrelationID,
			Type:          env.EventType,
			Timestamp:     env.OccurredAt,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

func (n *RabbitMQNotifier) Close() error {
	if n.ch != nil {
		_ = n.ch.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
