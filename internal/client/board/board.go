// Package board keeps a terminal view of a venue's kitchen tickets current.
package board

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/client/retryqueue"
	"github.com/YelzhanWeb/comanda/internal/client/stream"
	"github.com/YelzhanWeb/comanda/internal/domain"

	"golang.org/x/sync/errgroup"
)

// activePath lists only the tickets the board shows.
var activePath = "/tickets?" + url.Values{"status": {
	string(domain.TicketStatusQueue),
	string(domain.TicketStatusPreparing),
	string(domain.TicketStatusReady),
}}.Encode()

// Ticket is the part of the ticket resource the board shows.
type Ticket struct {
	ID           int64     `json:"id"`
	OrderID      int64     `json:"order_id"`
	TicketNumber int       `json:"ticket_number"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

var columns = []domain.TicketStatus{
	domain.TicketStatusQueue,
	domain.TicketStatusPreparing,
	domain.TicketStatusReady,
}

type Board struct {
	// mu serializes redraws from the stream and the poller.
	mu sync.Mutex

	api          retryqueue.Sender
	out          io.Writer
	pollInterval time.Duration
	logger       logger.Logger
}

func New(api retryqueue.Sender, out io.Writer, pollInterval time.Duration, logger logger.Logger) *Board {
	if pollInterval <= 0 {
		pollInterval = 20 * time.Second
	}
	return &Board{api: api, out: out, pollInterval: pollInterval, logger: logger}
}

// Run refreshes on every ticket related event and on a fixed poll interval,
// which covers events missed while the stream was down.
func (b *Board) Run(ctx context.Context, sub *stream.Subscriber) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sub.Run(ctx, b.HandleEvent)
	})

	g.Go(func() error {
		ticker := time.NewTicker(b.pollInterval)
		defer ticker.Stop()

		b.refresh(ctx)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				b.refresh(ctx)
			}
		}
	})

	return g.Wait()
}

func (b *Board) HandleEvent(ctx context.Context, event domain.Event) {
	switch event.Type {
	case domain.EventNewOrder, domain.EventTicketCreated, domain.EventTicketUpdated, domain.EventOrderUpdated:
		b.refresh(ctx)
	}
}

func (b *Board) refresh(ctx context.Context) {
	if err := b.Refresh(ctx); err != nil && ctx.Err() == nil {
		b.logger.Error("board_refresh_failed", "Failed to refresh kitchen board", "", nil, err)
	}
}

// Refresh fetches the open tickets and redraws the board.
func (b *Board) Refresh(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	tickets, err := b.fetch(ctx)
	if err != nil {
		return err
	}
	return Render(b.out, tickets)
}

func (b *Board) fetch(ctx context.Context) ([]Ticket, error) {
	resp, err := b.api.Send(ctx, retryqueue.Request{Method: http.MethodGet, Path: activePath})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &retryqueue.RejectedError{StatusCode: resp.StatusCode, Body: resp.Body}
	}

	var tickets []Ticket
	if err := json.Unmarshal(resp.Body, &tickets); err != nil {
		return nil, fmt.Errorf("failed to decode tickets: %w", err)
	}
	return tickets, nil
}

// Render writes one column per active status; delivered tickets are left out.
func Render(w io.Writer, tickets []Ticket) error {
	byStatus := make(map[string][]Ticket, len(columns))
	for _, t := range tickets {
		byStatus[t.Status] = append(byStatus[t.Status], t)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, status := range columns {
		fmt.Fprintf(tw, "%s (%d)\t", status, len(byStatus[string(status)]))
		for _, t := range byStatus[string(status)] {
			fmt.Fprintf(tw, "#%d\t", t.TicketNumber)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}
