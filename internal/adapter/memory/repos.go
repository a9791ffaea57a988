package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/YelzhanWeb/comanda/internal/domain"
	"github.com/YelzhanWeb/comanda/internal/interfaces"
)

type repos struct {
	run    func(op func(st *state) error) error
	faults map[string]error
}

func (r *repos) Products() interfaces.ProductRepository        { return productRepo{r} }
func (r *repos) Venues() interfaces.VenueRepository            { return venueRepo{r} }
func (r *repos) Orders() interfaces.OrderRepository            { return orderRepo{r} }
func (r *repos) Payments() interfaces.PaymentRepository        { return paymentRepo{r} }
func (r *repos) Tickets() interfaces.TicketRepository          { return ticketRepo{r} }
func (r *repos) Idempotency() interfaces.IdempotencyRepository { return idemRepo{r} }

func (r *repos) fault(op string) error {
	return r.faults[op]
}

type productRepo struct{ *repos }

func (r productRepo) FindByIDs(_ context.Context, venueID int64, ids []int64) (map[int64]*domain.Product, error) {
	out := make(map[int64]*domain.Product, len(ids))
	err := r.run(func(st *state) error {
		for _, id := range ids {
			p, ok := st.products[id]
			if ok && p.VenueID == venueID {
				out[id] = &p
			}
		}
		return nil
	})
	return out, err
}

func (r productRepo) List(_ context.Context, venueID int64, activeOnly bool) ([]*domain.Product, error) {
	var out []*domain.Product
	err := r.run(func(st *state) error {
		for _, p := range st.products {
			if p.VenueID != venueID || (activeOnly && !p.Active) {
				continue
			}
			p := p
			out = append(out, &p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

type venueRepo struct{ *repos }

func (r venueRepo) Capabilities(_ context.Context, venueID int64) (domain.Capabilities, error) {
	var caps domain.Capabilities
	err := r.run(func(st *state) error {
		c, ok := st.venues[venueID]
		if !ok {
			return domain.NewNotFoundError("venue not found")
		}
		caps = c
		return nil
	})
	return caps, err
}

type orderRepo struct{ *repos }

func (r orderRepo) Create(_ context.Context, order *domain.Order) error {
	return r.run(func(st *state) error {
		if err := r.fault("orders.create"); err != nil {
			return err
		}
		st.nextID++
		order.ID = st.nextID

		items := make([]domain.OrderItem, len(order.Items))
		for i := range order.Items {
			if err := r.fault("order_items.create"); err != nil {
				return err
			}
			st.nextID++
			order.Items[i].ID = st.nextID
			order.Items[i].OrderID = order.ID
			items[i] = order.Items[i]
		}

		stored := *order
		stored.Items = nil
		stored.Ticket = nil
		st.orders[order.ID] = stored
		st.items[order.ID] = items
		return nil
	})
}

func (r orderRepo) FindByID(_ context.Context, venueID, id int64) (*domain.Order, error) {
	var out *domain.Order
	err := r.run(func(st *state) error {
		o, ok := st.orders[id]
		if !ok || o.VenueID != venueID {
			return domain.NewNotFoundError("order not found")
		}
		o.Items = append([]domain.OrderItem(nil), st.items[id]...)
		out = &o
		return nil
	})
	return out, err
}

// FindForUpdate needs no extra locking: transactions are already serialized.
func (r orderRepo) FindForUpdate(ctx context.Context, venueID, id int64) (*domain.Order, error) {
	return r.FindByID(ctx, venueID, id)
}

func (r orderRepo) Update(_ context.Context, order *domain.Order) error {
	return r.run(func(st *state) error {
		if err := r.fault("orders.update"); err != nil {
			return err
		}
		if _, ok := st.orders[order.ID]; !ok {
			return domain.NewNotFoundError("order not found")
		}
		stored := *order
		stored.Items = nil
		stored.Ticket = nil
		st.orders[order.ID] = stored
		return nil
	})
}

func (r orderRepo) List(_ context.Context, venueID int64, status *domain.OrderStatus) ([]*domain.Order, error) {
	var out []*domain.Order
	err := r.run(func(st *state) error {
		for id, o := range st.orders {
			if o.VenueID != venueID || (status != nil && o.Status != *status) {
				continue
			}
			o := o
			o.Items = append([]domain.OrderItem(nil), st.items[id]...)
			out = append(out, &o)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

type paymentRepo struct{ *repos }

func (r paymentRepo) Create(_ context.Context, payment *domain.Payment) error {
	return r.run(func(st *state) error {
		if err := r.fault("payments.create"); err != nil {
			return err
		}
		st.nextID++
		payment.ID = st.nextID
		st.payments = append(st.payments, *payment)
		return nil
	})
}

func (r paymentRepo) FindByID(_ context.Context, venueID, id int64) (*domain.Payment, error) {
	var out *domain.Payment
	err := r.run(func(st *state) error {
		for _, p := range st.payments {
			if p.ID == id && p.VenueID == venueID {
				p := p
				out = &p
				return nil
			}
		}
		return domain.NewNotFoundError("payment not found")
	})
	return out, err
}

func (r paymentRepo) ListByOrder(_ context.Context, venueID, orderID int64) ([]*domain.Payment, error) {
	var out []*domain.Payment
	err := r.run(func(st *state) error {
		for _, p := range st.payments {
			if p.OrderID == orderID && p.VenueID == venueID {
				p := p
				out = append(out, &p)
			}
		}
		return nil
	})
	return out, err
}

type ticketRepo struct{ *repos }

func (r ticketRepo) NextNumber(_ context.Context, venueID int64, day string) (int, error) {
	var n int
	err := r.run(func(st *state) error {
		key := counterKey(venueID, day)
		st.counters[key]++
		n = st.counters[key]
		return nil
	})
	return n, err
}

func (r ticketRepo) Create(_ context.Context, ticket *domain.KitchenTicket) error {
	return r.run(func(st *state) error {
		if err := r.fault("tickets.create"); err != nil {
			return err
		}
		st.nextID++
		ticket.ID = st.nextID
		st.tickets[ticket.ID] = *ticket
		return nil
	})
}

func (r ticketRepo) FindByID(_ context.Context, venueID, id int64) (*domain.KitchenTicket, error) {
	var out *domain.KitchenTicket
	err := r.run(func(st *state) error {
		t, ok := st.tickets[id]
		if !ok || t.VenueID != venueID {
			return domain.NewNotFoundError("ticket not found")
		}
		out = &t
		return nil
	})
	return out, err
}

func (r ticketRepo) FindForUpdate(ctx context.Context, venueID, id int64) (*domain.KitchenTicket, error) {
	return r.FindByID(ctx, venueID, id)
}

func (r ticketRepo) FindByOrder(_ context.Context, venueID, orderID int64) (*domain.KitchenTicket, error) {
	var out *domain.KitchenTicket
	err := r.run(func(st *state) error {
		for _, t := range st.tickets {
			if t.OrderID == orderID && t.VenueID == venueID {
				t := t
				out = &t
				return nil
			}
		}
		return domain.NewNotFoundError("ticket not found")
	})
	return out, err
}

func (r ticketRepo) Update(_ context.Context, ticket *domain.KitchenTicket) error {
	return r.run(func(st *state) error {
		if err := r.fault("tickets.update"); err != nil {
			return err
		}
		if _, ok := st.tickets[ticket.ID]; !ok {
			return domain.NewNotFoundError("ticket not found")
		}
		st.tickets[ticket.ID] = *ticket
		return nil
	})
}

func (r ticketRepo) List(_ context.Context, venueID int64, statuses []domain.TicketStatus) ([]*domain.KitchenTicket, error) {
	var out []*domain.KitchenTicket
	err := r.run(func(st *state) error {
		for _, t := range st.tickets {
			if t.VenueID != venueID || (len(statuses) > 0 && !slices.Contains(statuses, t.Status)) {
				continue
			}
			t := t
			out = append(out, &t)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

type idemRepo struct{ *repos }

func (r idemRepo) Find(_ context.Context, venueID int64, scope, key string, since time.Time) (int64, bool, error) {
	var (
		id    int64
		found bool
	)
	err := r.run(func(st *state) error {
		rec, ok := st.idem[idemKey(venueID, scope, key)]
		if ok && !rec.CreatedAt.Before(since) {
			id, found = rec.ResourceID, true
		}
		return nil
	})
	return id, found, err
}

func (r idemRepo) Save(_ context.Context, rec domain.IdempotencyRecord, since time.Time) (bool, error) {
	var saved bool
	err := r.run(func(st *state) error {
		k := idemKey(rec.VenueID, rec.Scope, rec.Key)
		if old, ok := st.idem[k]; ok && !old.CreatedAt.Before(since) {
			return nil
		}
		st.idem[k] = rec
		saved = true
		return nil
	})
	return saved, err
}
