package retryqueue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS queue_items (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    id TEXT NOT NULL UNIQUE,
    operation TEXT NOT NULL,
    method TEXT NOT NULL,
    path TEXT NOT NULL,
    payload BLOB,
    idempotency_key TEXT NOT NULL,
    enqueued_at INTEGER NOT NULL,
    retry_count INTEGER NOT NULL DEFAULT 0
);
`

// Store persists queue items in a local SQLite file so pending mutations
// survive a client restart. Items come back in insertion order.
type Store struct {
	db *sql.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}

	// single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create queue schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Append(ctx context.Context, item Item) error {
	query := `
		INSERT INTO queue_items (id, operation, method, path, payload, idempotency_key, enqueued_at, retry_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		item.ID.String(), item.Operation, item.Method, item.Path, []byte(item.Payload),
		item.IdempotencyKey, item.EnqueuedAt.UnixNano(), item.RetryCount,
	)
	if err != nil {
		return fmt.Errorf("failed to append queue item: %w", err)
	}
	return nil
}

// Head returns the oldest item, or nil when the queue is empty.
func (s *Store) Head(ctx context.Context) (*Item, error) {
	query := `
		SELECT id, operation, method, path, payload, idempotency_key, enqueued_at, retry_count
		FROM queue_items
		ORDER BY seq
		LIMIT 1
	`
	item, err := scanItem(s.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read queue head: %w", err)
	}
	return item, nil
}

func (s *Store) List(ctx context.Context) ([]Item, error) {
	query := `
		SELECT id, operation, method, path, payload, idempotency_key, enqueued_at, retry_count
		FROM queue_items
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// IncrementRetry bumps the item's failure counter and returns the new value.
func (s *Store) IncrementRetry(ctx context.Context, id uuid.UUID) (int, error) {
	if _, err := s.db.ExecContext(ctx, `UPDATE queue_items SET retry_count = retry_count + 1 WHERE id = ?`, id.String()); err != nil {
		return 0, fmt.Errorf("failed to update retry count: %w", err)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT retry_count FROM queue_items WHERE id = ?`, id.String()).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to read retry count: %w", err)
	}
	return n, nil
}

func (s *Store) Remove(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM queue_items WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to remove queue item: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM queue_items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue items: %w", err)
	}
	return n, nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM queue_items`); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*Item, error) {
	var (
		item     Item
		id       string
		payload  []byte
		enqueued int64
	)
	err := row.Scan(&id, &item.Operation, &item.Method, &item.Path, &payload,
		&item.IdempotencyKey, &enqueued, &item.RetryCount)
	if err != nil {
		return nil, err
	}

	item.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid item id %q: %w", id, err)
	}
	item.Payload = payload
	item.EnqueuedAt = time.Unix(0, enqueued).UTC()
	return &item, nil
}
