// Package stream consumes the server-sent venue event stream.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/domain"
)

// Handler receives every decoded event, heartbeats included.
type Handler func(ctx context.Context, event domain.Event)

type Subscriber struct {
	url            string
	venueID        int64
	actorID        int64
	client         *http.Client
	reconnectDelay time.Duration
	logger         logger.Logger
}

func NewSubscriber(baseURL string, venueID, actorID int64, reconnectDelay time.Duration, logger logger.Logger) *Subscriber {
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &Subscriber{
		url:            strings.TrimRight(baseURL, "/") + "/events",
		venueID:        venueID,
		actorID:        actorID,
		client:         &http.Client{},
		reconnectDelay: reconnectDelay,
		logger:         logger,
	}
}

// Run keeps a stream open until ctx is canceled, reconnecting after a fixed
// delay whenever it drops. It never gives up on its own.
func (s *Subscriber) Run(ctx context.Context, handle Handler) error {
	for {
		err := s.stream(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}

		s.logger.Error("stream_disconnected",
			fmt.Sprintf("Event stream lost, reconnecting in %s", s.reconnectDelay), "", nil, err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.reconnectDelay):
		}
	}
}

func (s *Subscriber) stream(ctx context.Context, handle Handler) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("X-Venue-ID", strconv.FormatInt(s.venueID, 10))
	req.Header.Set("X-Actor-ID", strconv.FormatInt(s.actorID, 10))

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	s.logger.Info("stream_connected", "Event stream connected", "", map[string]interface{}{"venue_id": s.venueID})

	if err := Parse(resp.Body, func(event domain.Event) { handle(ctx, event) }); err != nil {
		return err
	}
	return io.ErrUnexpectedEOF
}

// Parse reads a text/event-stream body and calls emit for every complete
// event whose data is a JSON encoded domain.Event. Other frames are skipped.
func Parse(r io.Reader, emit func(domain.Event)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	flush := func() {
		if data.Len() == 0 {
			return
		}
		var event domain.Event
		if err := json.Unmarshal([]byte(data.String()), &event); err == nil && event.Type != "" {
			emit(event)
		}
		data.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	flush()

	return scanner.Err()
}
