package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/YelzhanWeb/comanda/internal/domain"
	"github.com/YelzhanWeb/comanda/internal/interfaces"

	"github.com/jackc/pgx/v5"
)

//go:embed schema.sql
var schema string

// EnsureSchema creates missing tables and indexes. Every statement is idempotent.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

type Store struct {
	db DB
}

func NewStore(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.Repositories) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// no-op once committed
	defer tx.Rollback(ctx)

	if err := fn(ctx, repositories{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) Products() interfaces.ProductRepository        { return repositories{q: s.db}.Products() }
func (s *Store) Venues() interfaces.VenueRepository            { return repositories{q: s.db}.Venues() }
func (s *Store) Orders() interfaces.OrderRepository            { return repositories{q: s.db}.Orders() }
func (s *Store) Payments() interfaces.PaymentRepository        { return repositories{q: s.db}.Payments() }
func (s *Store) Tickets() interfaces.TicketRepository          { return repositories{q: s.db}.Tickets() }
func (s *Store) Idempotency() interfaces.IdempotencyRepository { return repositories{q: s.db}.Idempotency() }

type repositories struct {
	q Querier
}

func (r repositories) Products() interfaces.ProductRepository { return &productRepository{q: r.q} }
func (r repositories) Venues() interfaces.VenueRepository     { return &venueRepository{q: r.q} }
func (r repositories) Orders() interfaces.OrderRepository     { return &orderRepository{q: r.q} }
func (r repositories) Payments() interfaces.PaymentRepository { return &paymentRepository{q: r.q} }
func (r repositories) Tickets() interfaces.TicketRepository   { return &ticketRepository{q: r.q} }
func (r repositories) Idempotency() interfaces.IdempotencyRepository {
	return &idempotencyRepository{q: r.q}
}

// notFound converts pgx.ErrNoRows into a domain not-found error.
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewNotFoundError(what + " not found")
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}
