package notify

import (
	"context"

	"github.com/YelzhanWeb/comanda/internal/domain"
	"github.com/YelzhanWeb/comanda/internal/interfaces"
)

// BrokerSink forwards events to the message broker, which fans them out to
// the hub of every api instance.
type BrokerSink struct {
	publisher interfaces.MessagePublisher
}

func NewBrokerSink(publisher interfaces.MessagePublisher) *BrokerSink {
	return &BrokerSink{publisher: publisher}
}

func (s *BrokerSink) Deliver(ctx context.Context, event domain.Event) error {
	return s.publisher.PublishEvent(ctx, event)
}
