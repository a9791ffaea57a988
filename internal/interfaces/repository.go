package interfaces

import (
	"context"
	"time"

	"github.com/YelzhanWeb/comanda/internal/domain"
)

// Интерфейсы Репозиториев (Adapter/Postgres, Adapter/Memory)
type ProductRepository interface {
	FindByIDs(ctx context.Context, venueID int64, ids []int64) (map[int64]*domain.Product, error)
	List(ctx context.Context, venueID int64, activeOnly bool) ([]*domain.Product, error)
}

type VenueRepository interface {
	Capabilities(ctx context.Context, venueID int64) (domain.Capabilities, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, venueID, id int64) (*domain.Order, error)
	// FindForUpdate locks the order row until the surrounding transaction ends.
	FindForUpdate(ctx context.Context, venueID, id int64) (*domain.Order, error)
	Update(ctx context.Context, order *domain.Order) error
	List(ctx context.Context, venueID int64, status *domain.OrderStatus) ([]*domain.Order, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	FindByID(ctx context.Context, venueID, id int64) (*domain.Payment, error)
	ListByOrder(ctx context.Context, venueID, orderID int64) ([]*domain.Payment, error)
}

type TicketRepository interface {
	// NextNumber increments and returns the venue's ticket counter for day.
	NextNumber(ctx context.Context, venueID int64, day string) (int, error)
	Create(ctx context.Context, ticket *domain.KitchenTicket) error
	FindByID(ctx context.Context, venueID, id int64) (*domain.KitchenTicket, error)
	FindForUpdate(ctx context.Context, venueID, id int64) (*domain.KitchenTicket, error)
	FindByOrder(ctx context.Context, venueID, orderID int64) (*domain.KitchenTicket, error)
	Update(ctx context.Context, ticket *domain.KitchenTicket) error
	// List returns the venue's tickets in any of statuses, or all of them
	// when statuses is empty.
	List(ctx context.Context, venueID int64, statuses []domain.TicketStatus) ([]*domain.KitchenTicket, error)
}

type IdempotencyRepository interface {
	// Find returns the resource bound to key if it was recorded after since.
	Find(ctx context.Context, venueID int64, scope, key string, since time.Time) (int64, bool, error)
	// Save binds rec.Key to rec.ResourceID. It reports false when a live
	// (recorded after since) binding for the key already exists.
	Save(ctx context.Context, rec domain.IdempotencyRecord, since time.Time) (bool, error)
}

// Repositories groups the repositories sharing one connection or transaction.
type Repositories interface {
	Products() ProductRepository
	Venues() VenueRepository
	Orders() OrderRepository
	Payments() PaymentRepository
	Tickets() TicketRepository
	Idempotency() IdempotencyRepository
}

// Store runs fn inside a single transaction. Any error returned by fn rolls
// the whole transaction back.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repositories) error) error
}
