package order_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/adapter/memory"
	"github.com/YelzhanWeb/comanda/internal/app/order"
	"github.com/YelzhanWeb/comanda/internal/app/venue"
	"github.com/YelzhanWeb/comanda/internal/domain"
	"github.com/YelzhanWeb/comanda/internal/interfaces"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	venueID = int64(1)
	otherID = int64(2)
	userID  = int64(42)
)

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Publish(_ context.Context, e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store   *memory.Store
	events  *recorder
	service *order.Service
	burger  domain.Product
	soda    domain.Product
	retired domain.Product
	foreign domain.Product
}

func setup(t *testing.T, caps domain.Capabilities) *fixture {
	t.Helper()

	store := memory.New()
	store.SetCapabilities(venueID, caps)
	store.SetCapabilities(otherID, domain.Capabilities{OrdersEnabled: true, KitchenEnabled: true})

	f := &fixture{
		store:   store,
		events:  &recorder{},
		burger:  store.AddProduct(domain.Product{VenueID: venueID, Name: "Burger", Price: decimal.RequireFromString("8.00"), Active: true}),
		soda:    store.AddProduct(domain.Product{VenueID: venueID, Name: "Soda", Price: decimal.RequireFromString("5.00"), Active: true}),
		retired: store.AddProduct(domain.Product{VenueID: venueID, Name: "Old Special", Price: decimal.RequireFromString("3.00"), Active: false}),
		foreign: store.AddProduct(domain.Product{VenueID: otherID, Name: "Elsewhere", Price: decimal.RequireFromString("1.00"), Active: true}),
	}
	f.service = order.NewService(
		store,
		venue.NewResolver(store.Venues(), time.Minute),
		f.events,
		logger.NewNop(),
		time.UTC,
		24*time.Hour,
	)
	return f
}

func allEnabled() domain.Capabilities {
	return domain.Capabilities{OrdersEnabled: true, KitchenEnabled: true}
}

func (f *fixture) standardOrder(key string) interfaces.CreateOrderCommand {
	code := "T4"
	return interfaces.CreateOrderCommand{
		Actor: domain.Actor{VenueID: venueID, UserID: userID},
		Code:  &code,
		Items: []interfaces.CreateOrderItemCommand{
			{ProductID: f.burger.ID, Quantity: 2},
			{ProductID: f.soda.ID, Quantity: 1},
		},
		IdempotencyKey: key,
	}
}

func TestCreateOrder_PricesFromCatalogAndNumbersTickets(t *testing.T) {
	f := setup(t, allEnabled())
	ctx := context.Background()

	first, err := f.service.CreateOrder(ctx, f.standardOrder(""))
	require.NoError(t, err)

	assert.NotZero(t, first.ID)
	assert.Equal(t, "21.00", first.TotalAmount.StringFixed(2))
	assert.Equal(t, domain.OrderStatusOpen, first.Status)
	assert.Equal(t, domain.PaymentStatusUnpaid, first.PaymentStatus)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "8.00", first.Items[0].UnitPrice.StringFixed(2))
	require.NotNil(t, first.Ticket)
	assert.Equal(t, 1, first.Ticket.TicketNumber)
	assert.Equal(t, domain.TicketStatusQueue, first.Ticket.Status)

	second, err := f.service.CreateOrder(ctx, f.standardOrder(""))
	require.NoError(t, err)
	require.NotNil(t, second.Ticket)
	assert.Equal(t, 2, second.Ticket.TicketNumber)

	assert.Equal(t, []domain.EventType{
		domain.EventNewOrder, domain.EventTicketCreated,
		domain.EventNewOrder, domain.EventTicketCreated,
	}, f.events.types())

	got, err := f.service.GetOrder(ctx, venueID, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Ticket)
	assert.Equal(t, first.Ticket.ID, got.Ticket.ID)
	assert.Len(t, got.Items, 2)
}

func TestCreateOrder_TicketNumbersArePerVenue(t *testing.T) {
	f := setup(t, allEnabled())
	ctx := context.Background()

	_, err := f.service.CreateOrder(ctx, f.standardOrder(""))
	require.NoError(t, err)

	other, err := f.service.CreateOrder(ctx, interfaces.CreateOrderCommand{
		Actor: domain.Actor{VenueID: otherID, UserID: 7},
		Items: []interfaces.CreateOrderItemCommand{{ProductID: f.foreign.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	require.NotNil(t, other.Ticket)
	assert.Equal(t, 1, other.Ticket.TicketNumber)
}

func TestCreateOrder_KitchenDisabledSkipsTicket(t *testing.T) {
	f := setup(t, domain.Capabilities{OrdersEnabled: true})

	o, err := f.service.CreateOrder(context.Background(), f.standardOrder(""))
	require.NoError(t, err)
	assert.Nil(t, o.Ticket)
	assert.Equal(t, []domain.EventType{domain.EventNewOrder}, f.events.types())

	tickets, err := f.store.Tickets().List(context.Background(), venueID, nil)
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestCreateOrder_OrdersDisabledIsForbidden(t *testing.T) {
	f := setup(t, domain.Capabilities{KitchenEnabled: true})

	_, err := f.service.CreateOrder(context.Background(), f.standardOrder(""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	assert.Empty(t, f.events.types())
}

func TestCreateOrder_Validation(t *testing.T) {
	f := setup(t, allEnabled())
	actor := domain.Actor{VenueID: venueID, UserID: userID}

	tests := []struct {
		name  string
		items []interfaces.CreateOrderItemCommand
	}{
		{"no items", nil},
		{"inactive product", []interfaces.CreateOrderItemCommand{{ProductID: f.retired.ID, Quantity: 1}}},
		{"product of another venue", []interfaces.CreateOrderItemCommand{{ProductID: f.foreign.ID, Quantity: 1}}},
		{"unknown product", []interfaces.CreateOrderItemCommand{{ProductID: 9999, Quantity: 1}}},
		{"zero quantity", []interfaces.CreateOrderItemCommand{{ProductID: f.burger.ID, Quantity: 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateOrder(context.Background(), interfaces.CreateOrderCommand{Actor: actor, Items: tt.items})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
		})
	}

	orders, err := f.service.ListOrders(context.Background(), venueID, nil)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, f.events.types())
}

func TestCreateOrder_TicketFailureRollsBackOrder(t *testing.T) {
	f := setup(t, allEnabled())
	ctx := context.Background()

	f.store.FailOn("tickets.create", errors.New("disk full"))
	_, err := f.service.CreateOrder(ctx, f.standardOrder(""))
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKind(""), domain.KindOf(err))

	orders, err := f.service.ListOrders(ctx, venueID, nil)
	require.NoError(t, err)
	assert.Empty(t, orders, "order must not survive a failed ticket insert")
	assert.Empty(t, f.events.types())

	// the counter increment was rolled back with the rest
	f.store.FailOn("tickets.create", nil)
	o, err := f.service.CreateOrder(ctx, f.standardOrder(""))
	require.NoError(t, err)
	assert.Equal(t, 1, o.Ticket.TicketNumber)
}

func TestCreateOrder_IdempotencyKeyReplays(t *testing.T) {
	f := setup(t, allEnabled())
	ctx := context.Background()

	first, err := f.service.CreateOrder(ctx, f.standardOrder("k-1"))
	require.NoError(t, err)
	again, err := f.service.CreateOrder(ctx, f.standardOrder("k-1"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	require.NotNil(t, again.Ticket)
	assert.Equal(t, first.Ticket.TicketNumber, again.Ticket.TicketNumber)

	orders, err := f.service.ListOrders(ctx, venueID, nil)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Equal(t, []domain.EventType{domain.EventNewOrder, domain.EventTicketCreated}, f.events.types())

	// same key in another venue is a different request
	other := f.standardOrder("k-1")
	other.Actor.VenueID = otherID
	other.Items = []interfaces.CreateOrderItemCommand{{ProductID: f.foreign.ID, Quantity: 1}}
	o, err := f.service.CreateOrder(ctx, other)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, o.ID)
}

func TestLifecycle_CancelCloseUpdate(t *testing.T) {
	f := setup(t, allEnabled())
	ctx := context.Background()
	actor := domain.Actor{VenueID: venueID, UserID: userID}

	toCancel, err := f.service.CreateOrder(ctx, f.standardOrder(""))
	require.NoError(t, err)
	toClose, err := f.service.CreateOrder(ctx, f.standardOrder(""))
	require.NoError(t, err)

	canceled, err := f.service.CancelOrder(ctx, actor, toCancel.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCanceled, canceled.Status)

	_, err = f.service.CancelOrder(ctx, actor, toCancel.ID)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	_, err = f.service.CloseOrder(ctx, actor, toCancel.ID)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	name := "Ana"
	updated, err := f.service.UpdateOrder(ctx, actor, toClose.ID, domain.OrderPatch{CustomerName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ana", *updated.CustomerName)
	assert.Equal(t, "T4", *updated.Code)
	assert.Equal(t, "21.00", updated.TotalAmount.StringFixed(2))

	closed, err := f.service.CloseOrder(ctx, actor, toClose.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusClosed, closed.Status)
	assert.NotNil(t, closed.ClosedAt)

	_, err = f.service.UpdateOrder(ctx, actor, toClose.ID, domain.OrderPatch{CustomerName: &name})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	status := domain.OrderStatusOpen
	open, err := f.service.ListOrders(ctx, venueID, &status)
	require.NoError(t, err)
	assert.Empty(t, open)

	types := f.events.types()
	assert.Equal(t, domain.EventOrderUpdated, types[len(types)-1])
}

func TestVenueIsolation(t *testing.T) {
	f := setup(t, allEnabled())
	ctx := context.Background()

	o, err := f.service.CreateOrder(ctx, f.standardOrder(""))
	require.NoError(t, err)

	_, err = f.service.GetOrder(ctx, otherID, o.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.service.CancelOrder(ctx, domain.Actor{VenueID: otherID, UserID: 7}, o.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	orders, err := f.service.ListOrders(ctx, otherID, nil)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestListOrders_RejectsUnknownStatus(t *testing.T) {
	f := setup(t, allEnabled())
	status := domain.OrderStatus("pending")

	_, err := f.service.ListOrders(context.Background(), venueID, &status)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestListProducts_ActiveOnly(t *testing.T) {
	f := setup(t, allEnabled())

	products, err := f.service.ListProducts(context.Background(), venueID)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Burger", products[0].Name)
	assert.Equal(t, "Soda", products[1].Name)
}
