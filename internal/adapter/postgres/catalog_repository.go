package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/YelzhanWeb/comanda/internal/domain"

	"github.com/jackc/pgx/v5"
)

type productRepository struct {
	q Querier
}

func (r *productRepository) FindByIDs(ctx context.Context, venueID int64, ids []int64) (map[int64]*domain.Product, error) {
	query := `
		SELECT id, venue_id, name, price, active
		FROM products
		WHERE venue_id = $1 AND id = ANY($2)
	`
	rows, err := r.q.Query(ctx, query, venueID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make(map[int64]*domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.VenueID, &p.Name, &p.Price, &p.Active); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[p.ID] = &p
	}

	return products, rows.Err()
}

func (r *productRepository) List(ctx context.Context, venueID int64, activeOnly bool) ([]*domain.Product, error) {
	query := `
		SELECT id, venue_id, name, price, active
		FROM products
		WHERE venue_id = $1 AND (NOT $2 OR active)
		ORDER BY id
	`
	rows, err := r.q.Query(ctx, query, venueID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.VenueID, &p.Name, &p.Price, &p.Active); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, &p)
	}

	return products, rows.Err()
}

type venueRepository struct {
	q Querier
}

func (r *venueRepository) Capabilities(ctx context.Context, venueID int64) (domain.Capabilities, error) {
	query := `SELECT orders_enabled, kitchen_enabled, reports_enabled FROM venues WHERE id = $1`

	var c domain.Capabilities
	err := r.q.QueryRow(ctx, query, venueID).Scan(&c.OrdersEnabled, &c.KitchenEnabled, &c.ReportsEnabled)
	if err != nil {
		return domain.Capabilities{}, notFound(err, "venue")
	}
	return c, nil
}

type idempotencyRepository struct {
	q Querier
}

func (r *idempotencyRepository) Find(ctx context.Context, venueID int64, scope, key string, since time.Time) (int64, bool, error) {
	query := `
		SELECT resource_id
		FROM idempotency_keys
		WHERE venue_id = $1 AND scope = $2 AND key = $3 AND created_at >= $4
	`
	var id int64
	err := r.q.QueryRow(ctx, query, venueID, scope, key, since).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return id, true, nil
}

// Save waits on a concurrent uncommitted insert of the same key; when that one
// commits the upsert affects no row and the caller sees a duplicate.
func (r *idempotencyRepository) Save(ctx context.Context, rec domain.IdempotencyRecord, since time.Time) (bool, error) {
	query := `
		INSERT INTO idempotency_keys (venue_id, scope, key, resource_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (venue_id, scope, key)
		DO UPDATE SET resource_id = EXCLUDED.resource_id, created_at = EXCLUDED.created_at
		WHERE idempotency_keys.created_at < $6
	`
	tag, err := r.q.Exec(ctx, query, rec.VenueID, rec.Scope, rec.Key, rec.ResourceID, rec.CreatedAt, since)
	if err != nil {
		return false, fmt.Errorf("failed to save idempotency key: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
