package postgres

import (
	"context"
	"fmt"

	"github.com/YelzhanWeb/comanda/internal/domain"
)

type paymentRepository struct {
	q Querier
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (order_id, venue_id, method, amount, received_by, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		payment.OrderID, payment.VenueID, payment.Method, payment.Amount,
		payment.ReceivedBy, payment.ReceivedAt,
	).Scan(&payment.ID)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, venueID, id int64) (*domain.Payment, error) {
	query := `
		SELECT id, order_id, venue_id, method, amount, received_by, received_at
		FROM payments
		WHERE id = $1 AND venue_id = $2
	`
	var p domain.Payment
	err := r.q.QueryRow(ctx, query, id, venueID).Scan(
		&p.ID, &p.OrderID, &p.VenueID, &p.Method, &p.Amount, &p.ReceivedBy, &p.ReceivedAt,
	)
	if err != nil {
		return nil, notFound(err, "payment")
	}
	return &p, nil
}

func (r *paymentRepository) ListByOrder(ctx context.Context, venueID, orderID int64) ([]*domain.Payment, error) {
	query := `
		SELECT id, order_id, venue_id, method, amount, received_by, received_at
		FROM payments
		WHERE order_id = $1 AND venue_id = $2
		ORDER BY id
	`
	rows, err := r.q.Query(ctx, query, orderID, venueID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.VenueID, &p.Method, &p.Amount, &p.ReceivedBy, &p.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, &p)
	}

	return payments, rows.Err()
}
