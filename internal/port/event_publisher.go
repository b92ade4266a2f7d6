package port

import (
	"context"

	"github.com/rl1809/event-pos/internal/core/domain"
)

type OrderEventPublisher interface {
	PublishOrderCommitted(ctx context.Context, event domain.OrderCommitted) error
}

// OrderEventPublisherFunc adapts a function to OrderEventPublisher.
type OrderEventPublisherFunc func(ctx context.Context, event domain.OrderCommitted) error

func (f OrderEventPublisherFunc) PublishOrderCommitted(ctx context.Context, event domain.OrderCommitted) error {
	return f(ctx, event)
}

type OrderEventSubscriber interface {
	// SubscribeOrderCommitted starts delivering events to handler in the background until ctx is done
	SubscribeOrderCommitted(ctx context.Context, handler func(context.Context, domain.OrderCommitted) error) error
}
