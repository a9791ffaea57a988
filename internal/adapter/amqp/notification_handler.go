package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/domain"
	"github.com/YelzhanWeb/comanda/internal/interfaces"
)

// NotificationHandler decodes venue events coming off the broker. With a sink
// it forwards them (api mode feeds its local hub); without one it only logs.
type NotificationHandler struct {
	sink   interfaces.EventSink
	logger logger.Logger
}

func NewNotificationHandler(sink interfaces.EventSink, logger logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		sink:   sink,
		logger: logger,
	}
}

func (h *NotificationHandler) HandleEvent(ctx context.Context, body []byte) error {
	var event domain.Event
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Error("message_parse_failed", "Failed to parse event", "", nil, err)
		return err
	}

	h.logger.Debug("notification_received", fmt.Sprintf("Received %s for venue %d", event.Type, event.VenueID),
		"", map[string]interface{}{
			"venue_id":  event.VenueID,
			"type":      event.Type,
			"entity_id": event.EntityID,
		})

	if h.sink == nil {
		h.logger.Info("venue_event", fmt.Sprintf("Venue %d: %s #%d", event.VenueID, event.Type, event.EntityID),
			"", map[string]interface{}{"data": event.Data})
		return nil
	}

	return h.sink.Deliver(ctx, event)
}
