package postgres

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/comanda/internal/domain"
)

type ticketRepository struct {
	q Querier
}

const ticketColumns = `
	id, order_id, venue_id, ticket_number, status,
	created_at, updated_at, started_at, ready_at, delivered_at`

// NextNumber bumps the per-venue, per-day counter. The row lock taken by the
// upsert serializes concurrent order creations of the same venue.
func (r *ticketRepository) NextNumber(ctx context.Context, venueID int64, day string) (int, error) {
	query := `
		INSERT INTO ticket_counters (venue_id, business_day, last_number)
		VALUES ($1, $2::date, 1)
		ON CONFLICT (venue_id, business_day)
		DO UPDATE SET last_number = ticket_counters.last_number + 1
		RETURNING last_number
	`
	var n int
	if err := r.q.QueryRow(ctx, query, venueID, day).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to allocate ticket number: %w", err)
	}
	return n, nil
}

func (r *ticketRepository) Create(ctx context.Context, t *domain.KitchenTicket) error {
	query := `
		INSERT INTO kitchen_tickets (order_id, venue_id, ticket_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		t.OrderID, t.VenueID, t.TicketNumber, t.Status, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to insert kitchen ticket: %w", err)
	}
	return nil
}

func (r *ticketRepository) FindByID(ctx context.Context, venueID, id int64) (*domain.KitchenTicket, error) {
	query := `SELECT` + ticketColumns + ` FROM kitchen_tickets WHERE id = $1 AND venue_id = $2`
	t, err := scanTicket(r.q.QueryRow(ctx, query, id, venueID))
	if err != nil {
		return nil, notFound(err, "ticket")
	}
	return t, nil
}

func (r *ticketRepository) FindForUpdate(ctx context.Context, venueID, id int64) (*domain.KitchenTicket, error) {
	query := `SELECT` + ticketColumns + ` FROM kitchen_tickets WHERE id = $1 AND venue_id = $2 FOR UPDATE`
	t, err := scanTicket(r.q.QueryRow(ctx, query, id, venueID))
	if err != nil {
		return nil, notFound(err, "ticket")
	}
	return t, nil
}

func (r *ticketRepository) FindByOrder(ctx context.Context, venueID, orderID int64) (*domain.KitchenTicket, error) {
	query := `SELECT` + ticketColumns + ` FROM kitchen_tickets WHERE order_id = $1 AND venue_id = $2`
	t, err := scanTicket(r.q.QueryRow(ctx, query, orderID, venueID))
	if err != nil {
		return nil, notFound(err, "ticket")
	}
	return t, nil
}

func (r *ticketRepository) Update(ctx context.Context, t *domain.KitchenTicket) error {
	query := `
		UPDATE kitchen_tickets
		SET status = $1, updated_at = $2, started_at = $3, ready_at = $4, delivered_at = $5
		WHERE id = $6 AND venue_id = $7
	`
	tag, err := r.q.Exec(ctx, query,
		t.Status, t.UpdatedAt, t.StartedAt, t.ReadyAt, t.DeliveredAt, t.ID, t.VenueID,
	)
	if err != nil {
		return fmt.Errorf("failed to update kitchen ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("ticket not found")
	}
	return nil
}

func (r *ticketRepository) List(ctx context.Context, venueID int64, statuses []domain.TicketStatus) ([]*domain.KitchenTicket, error) {
	query := `SELECT` + ticketColumns + `
		FROM kitchen_tickets
		WHERE venue_id = $1 AND (cardinality($2::text[]) = 0 OR status = ANY($2))
		ORDER BY id
	`
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}

	rows, err := r.q.Query(ctx, query, venueID, names)
	if err != nil {
		return nil, fmt.Errorf("failed to list kitchen tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*domain.KitchenTicket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan kitchen ticket: %w", err)
		}
		tickets = append(tickets, t)
	}

	return tickets, rows.Err()
}

func scanTicket(row Row) (*domain.KitchenTicket, error) {
	var t domain.KitchenTicket
	err := row.Scan(
		&t.ID, &t.OrderID, &t.VenueID, &t.TicketNumber, &t.Status,
		&t.CreatedAt, &t.UpdatedAt, &t.StartedAt, &t.ReadyAt, &t.DeliveredAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
