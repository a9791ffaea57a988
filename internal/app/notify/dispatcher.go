package notify

import (
	"context"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/domain"
	"github.com/YelzhanWeb/comanda/internal/interfaces"
)

// Dispatcher decouples services from event delivery. Publish only enqueues;
// Run hands queued events to the sink on its own goroutine.
type Dispatcher struct {
	queue  chan domain.Event
	sink   interfaces.EventSink
	logger logger.Logger
}

func NewDispatcher(sink interfaces.EventSink, buffer int, logger logger.Logger) *Dispatcher {
	if buffer <= 0 {
		buffer = 1
	}
	return &Dispatcher{
		queue:  make(chan domain.Event, buffer),
		sink:   sink,
		logger: logger,
	}
}

// Publish drops the event when the queue is full rather than block the caller.
func (d *Dispatcher) Publish(_ context.Context, event domain.Event) {
	select {
	case d.queue <- event:
	default:
		d.logger.Error("event_dropped", "Dispatch queue full, event dropped", "", map[string]interface{}{
			"venue_id":  event.VenueID,
			"type":      event.Type,
			"entity_id": event.EntityID,
		}, nil)
	}
}

// Run delivers until ctx is canceled, then flushes what is already queued.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.flush()
			return nil
		case event := <-d.queue:
			d.deliver(ctx, event)
		}
	}
}

func (d *Dispatcher) flush() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(context.Background(), event)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, event domain.Event) {
	if err := d.sink.Deliver(ctx, event); err != nil {
		d.logger.Error("event_delivery_failed", "Failed to deliver event", "", map[string]interface{}{
			"venue_id": event.VenueID,
			"type":     event.Type,
		}, err)
	}
}
