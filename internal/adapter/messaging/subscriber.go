package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/rl1809/event-pos/internal/core/domain"
)

type Subscriber struct {
	ch     *amqp.Channel
	logger *zap.Logger
}

func NewSubscriber(ch *amqp.Channel, logger *zap.Logger) *Subscriber {
	return &Subscriber{ch: ch, logger: logger}
}

// SubscribeOrderCommitted binds an exclusive queue to order.committed and hands
// each event to handler from a background goroutine. Handler errors are logged;
// delivery is auto-acked.
func (s *Subscriber) SubscribeOrderCommitted(ctx context.Context, handler func(context.Context, domain.OrderCommitted) error) error {
	q, err := s.ch.QueueDeclare(
		"",    // random name
		false, // non-durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("could not declare queue: %w", err)
	}

	if err := s.ch.QueueBind(q.Name, OrderCommittedKey, ExchangeName, false, nil); err != nil {
		return fmt.Errorf("could not bind queue: %w", err)
	}

	msgs, err := s.ch.Consume(
		q.Name, // queue
		"",     // consumer tag
		true,   // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("could not start consume: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				var event domain.OrderCommitted
				if err := json.Unmarshal(d.Body, &event); err != nil {
					s.logger.Warn("dropping malformed order event", zap.String("message_id", d.MessageId), zap.Error(err))
					continue
				}
				if err := handler(ctx, event); err != nil {
					s.logger.Warn("order event handler failed", zap.Int64("order_id", event.OrderID), zap.Error(err))
				}
			}
		}
	}()

	return nil
}
