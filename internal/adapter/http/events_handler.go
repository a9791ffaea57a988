package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/app/notify"
	"github.com/YelzhanWeb/comanda/internal/domain"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
)

type EventsHandler struct {
	hub       *notify.Hub
	heartbeat time.Duration
	logger    logger.Logger
}

func NewEventsHandler(hub *notify.Hub, heartbeat time.Duration, logger logger.Logger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &EventsHandler{
		hub:       hub,
		heartbeat: heartbeat,
		logger:    logger,
	}
}

// Stream pushes the caller's venue events as Server-Sent Events until the
// client goes away. A heartbeat is sent right away and then periodically.
func (h *EventsHandler) Stream(c *gin.Context) {
	actor := actorFrom(c)
	sub := h.hub.Subscribe(actor.VenueID)
	defer h.hub.Unsubscribe(sub)

	h.logger.Debug("stream_opened", "Event stream opened", requestID(c), map[string]interface{}{
		"venue_id": actor.VenueID,
		"actor_id": actor.UserID,
	})

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	var seq int64
	send := func(event domain.Event) {
		seq++
		c.Render(-1, sse.Event{
			Id:    strconv.FormatInt(seq, 10),
			Event: string(event.Type),
			Data:  event,
		})
		c.Writer.Flush()
	}

	send(domain.NewEvent(domain.EventHeartbeat, actor.VenueID, 0, nil))
	for {
		select {
		case <-c.Request.Context().Done():
			h.logger.Debug("stream_closed", "Event stream closed", requestID(c), map[string]interface{}{"venue_id": actor.VenueID})
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			send(event)
		case <-ticker.C:
			send(domain.NewEvent(domain.EventHeartbeat, actor.VenueID, 0, nil))
		}
	}
}
