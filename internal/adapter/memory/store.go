// Package memory is an in-process implementation of interfaces.Store.
//
// Transactions are fully serialized and work on a copy of the data that is
// swapped in only on commit, so a failed transaction leaves nothing behind.
// Writes can be made to fail on demand to exercise rollback paths.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/YelzhanWeb/comanda/internal/domain"
	"github.com/YelzhanWeb/comanda/internal/interfaces"
)

type Store struct {
	mu     sync.Mutex
	data   *state
	faults map[string]error
}

type state struct {
	nextID   int64
	venues   map[int64]domain.Capabilities
	products map[int64]domain.Product
	orders   map[int64]domain.Order
	items    map[int64][]domain.OrderItem
	payments []domain.Payment
	tickets  map[int64]domain.KitchenTicket
	counters map[string]int
	idem     map[string]domain.IdempotencyRecord
}

func New() *Store {
	return &Store{
		data: &state{
			venues:   make(map[int64]domain.Capabilities),
			products: make(map[int64]domain.Product),
			orders:   make(map[int64]domain.Order),
			items:    make(map[int64][]domain.OrderItem),
			tickets:  make(map[int64]domain.KitchenTicket),
			counters: make(map[string]int),
			idem:     make(map[string]domain.IdempotencyRecord),
		},
		faults: make(map[string]error),
	}
}

// SetCapabilities registers a venue.
func (s *Store) SetCapabilities(venueID int64, caps domain.Capabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.venues[venueID] = caps
}

// AddProduct inserts a catalog entry and returns it with its ID.
func (s *Store) AddProduct(p domain.Product) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.nextID++
	p.ID = s.data.nextID
	s.data.products[p.ID] = p
	return p
}

// FailOn makes the named write operation (e.g. "tickets.create") return err
// until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx interfaces.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.data.clone()
	tx := &repos{
		faults: s.faults,
		run:    func(op func(st *state) error) error { return op(work) },
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Outside a transaction every call is its own single-statement commit.

func (s *Store) Products() interfaces.ProductRepository        { return s.autocommit().Products() }
func (s *Store) Venues() interfaces.VenueRepository            { return s.autocommit().Venues() }
func (s *Store) Orders() interfaces.OrderRepository            { return s.autocommit().Orders() }
func (s *Store) Payments() interfaces.PaymentRepository        { return s.autocommit().Payments() }
func (s *Store) Tickets() interfaces.TicketRepository          { return s.autocommit().Tickets() }
func (s *Store) Idempotency() interfaces.IdempotencyRepository { return s.autocommit().Idempotency() }

func (s *Store) autocommit() *repos {
	return &repos{
		faults: s.faults,
		run: func(op func(st *state) error) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			return op(s.data)
		},
	}
}

func (st *state) clone() *state {
	c := &state{
		nextID:   st.nextID,
		venues:   make(map[int64]domain.Capabilities, len(st.venues)),
		products: make(map[int64]domain.Product, len(st.products)),
		orders:   make(map[int64]domain.Order, len(st.orders)),
		items:    make(map[int64][]domain.OrderItem, len(st.items)),
		payments: append([]domain.Payment(nil), st.payments...),
		tickets:  make(map[int64]domain.KitchenTicket, len(st.tickets)),
		counters: make(map[string]int, len(st.counters)),
		idem:     make(map[string]domain.IdempotencyRecord, len(st.idem)),
	}
	for k, v := range st.venues {
		c.venues[k] = v
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.orders {
		c.orders[k] = v
	}
	for k, v := range st.items {
		c.items[k] = append([]domain.OrderItem(nil), v...)
	}
	for k, v := range st.tickets {
		c.tickets[k] = v
	}
	for k, v := range st.counters {
		c.counters[k] = v
	}
	for k, v := range st.idem {
		c.idem[k] = v
	}
	return c
}

func counterKey(venueID int64, day string) string {
	return fmt.Sprintf("%d/%s", venueID, day)
}

func idemKey(venueID int64, scope, key string) string {
	return fmt.Sprintf("%d/%s/%s", venueID, scope, key)
}
