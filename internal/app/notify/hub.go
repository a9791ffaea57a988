package notify

import (
	"context"
	"sync"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/domain"
)

// Hub fans venue events out to the live subscribers of that venue. Delivery is
// at-most-once: a subscriber whose buffer is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int64]map[*Subscription]struct{}
	buffer int
	logger logger.Logger
}

// Subscription is one open stream of a venue's events.
type Subscription struct {
	VenueID int64
	ch      chan domain.Event
}

// Events is closed when the subscription is removed from the hub.
func (s *Subscription) Events() <-chan domain.Event {
	return s.ch
}

func NewHub(buffer int, logger logger.Logger) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{
		subs:   make(map[int64]map[*Subscription]struct{}),
		buffer: buffer,
		logger: logger,
	}
}

func (h *Hub) Subscribe(venueID int64) *Subscription {
	sub := &Subscription{VenueID: venueID, ch: make(chan domain.Event, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs[venueID] == nil {
		h.subs[venueID] = make(map[*Subscription]struct{})
	}
	h.subs[venueID][sub] = struct{}{}
	return sub
}

// Unsubscribe removes sub and closes its channel. Calling it twice is safe.
func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	venue := h.subs[sub.VenueID]
	if _, ok := venue[sub]; !ok {
		return
	}
	delete(venue, sub)
	if len(venue) == 0 {
		delete(h.subs, sub.VenueID)
	}
	close(sub.ch)
}

// Deliver never blocks on a slow subscriber.
func (h *Hub) Deliver(_ context.Context, event domain.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[event.VenueID] {
		select {
		case sub.ch <- event:
		default:
			h.logger.Debug("event_dropped", "Subscriber buffer full, event dropped", "", map[string]interface{}{
				"venue_id": event.VenueID,
				"type":     event.Type,
			})
		}
	}
	return nil
}

// Subscribers reports how many streams of venueID are open.
func (h *Hub) Subscribers(venueID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[venueID])
}
