package interfaces

import (
	"context"

	"github.com/YelzhanWeb/comanda/internal/domain"
)

// EventPublisher is the fire-and-forget entry point services use after commit.
// Implementations must not block the caller on slow consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event)
}

// EventSink delivers one event to its destination (local hub or broker).
type EventSink interface {
	Deliver(ctx context.Context, event domain.Event) error
}

// Интерфейсы Messaging (Adapter/RabbitMQ)
type MessagePublisher interface {
	PublishEvent(ctx context.Context, event domain.Event) error
}

type MessageConsumer interface {
	ConsumeEvents(ctx context.Context, handler EventMessageHandler) error
}

type EventMessageHandler func(ctx context.Context, body []byte) error
