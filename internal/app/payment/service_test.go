package payment_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/adapter/memory"
	"github.com/YelzhanWeb/comanda/internal/app/payment"
	"github.com/YelzhanWeb/comanda/internal/domain"
	"github.com/YelzhanWeb/comanda/internal/interfaces"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const venueID = int64(1)

var cashier = domain.Actor{VenueID: venueID, UserID: 5}

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

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setup(t *testing.T) (*memory.Store, *payment.Service, *recorder) {
	t.Helper()
	store := memory.New()
	store.SetCapabilities(venueID, domain.Capabilities{OrdersEnabled: true})
	events := &recorder{}
	return store, payment.NewService(store, events, logger.NewNop(), 24*time.Hour), events
}

// seedOrder stores an open order worth 21.00 (2 × 8.00 + 5.00).
func seedOrder(t *testing.T, store *memory.Store) *domain.Order {
	t.Helper()
	burger := store.AddProduct(domain.Product{VenueID: venueID, Name: "Burger", Price: amount("8.00"), Active: true})
	soda := store.AddProduct(domain.Product{VenueID: venueID, Name: "Soda", Price: amount("5.00"), Active: true})

	i1, err := domain.NewOrderItem(venueID, &burger, 2, nil)
	require.NoError(t, err)
	i2, err := domain.NewOrderItem(venueID, &soda, 1, nil)
	require.NoError(t, err)
	order, err := domain.NewOrder(venueID, nil, nil, []domain.OrderItem{i1, i2}, 1)
	require.NoError(t, err)

	require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, tx interfaces.Repositories) error {
		return tx.Orders().Create(ctx, order)
	}))
	return order
}

func pay(orderID int64, method domain.PaymentMethod, value, key string) interfaces.RecordPaymentCommand {
	return interfaces.RecordPaymentCommand{
		Actor:          cashier,
		OrderID:        orderID,
		Method:         method,
		Amount:         amount(value),
		IdempotencyKey: key,
	}
}

func TestRecordPayment_PartialThenPaidClosesOrder(t *testing.T) {
	store, svc, events := setup(t)
	order := seedOrder(t, store)
	ctx := context.Background()

	res, err := svc.RecordPayment(ctx, pay(order.ID, domain.PaymentMethodCash, "10", ""))
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, domain.PaymentStatusPartial, res.Order.PaymentStatus)
	assert.Equal(t, domain.OrderStatusOpen, res.Order.Status)
	assert.Equal(t, "10.00", res.Order.PaidAmount.StringFixed(2))
	assert.Equal(t, cashier.UserID, res.Payment.ReceivedBy)

	res, err = svc.RecordPayment(ctx, pay(order.ID, domain.PaymentMethodPix, "11", ""))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, res.Order.PaymentStatus)
	assert.Equal(t, domain.OrderStatusClosed, res.Order.Status)
	assert.Equal(t, "21.00", res.Order.PaidAmount.StringFixed(2))
	assert.NotNil(t, res.Order.ClosedAt)

	_, err = svc.RecordPayment(ctx, pay(order.ID, domain.PaymentMethodCard, "1", ""))
	assert.True(t, errors.Is(err, domain.ErrConflict))

	payments, err := svc.ListPayments(ctx, venueID, order.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, domain.PaymentMethodCash, payments[0].Method)
	assert.Equal(t, domain.PaymentMethodPix, payments[1].Method)

	assert.Equal(t, []domain.EventType{domain.EventOrderUpdated, domain.EventOrderPaid}, events.types())
}

func TestRecordPayment_CanceledOrderIsConflict(t *testing.T) {
	store, svc, events := setup(t)
	order := seedOrder(t, store)
	ctx := context.Background()

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx interfaces.Repositories) error {
		o, err := tx.Orders().FindForUpdate(ctx, venueID, order.ID)
		if err != nil {
			return err
		}
		if err := o.Cancel(time.Now()); err != nil {
			return err
		}
		return tx.Orders().Update(ctx, o)
	}))

	_, err := svc.RecordPayment(ctx, pay(order.ID, domain.PaymentMethodCash, "5", ""))
	assert.True(t, errors.Is(err, domain.ErrConflict))

	payments, err := svc.ListPayments(ctx, venueID, order.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
	assert.Empty(t, events.types())
}

func TestRecordPayment_ConcurrentPaymentsAllCount(t *testing.T) {
	store, svc, _ := setup(t)
	order := seedOrder(t, store)

	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := svc.RecordPayment(ctx, pay(order.ID, domain.PaymentMethodCash, "1.50", ""))
			return err
		})
	}
	require.NoError(t, g.Wait())

	got, err := store.Orders().FindByID(context.Background(), venueID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "15.00", got.PaidAmount.StringFixed(2))
	assert.Equal(t, domain.PaymentStatusPartial, got.PaymentStatus)

	payments, err := svc.ListPayments(context.Background(), venueID, order.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 10)
}

func TestRecordPayment_IdempotencyKey(t *testing.T) {
	store, svc, events := setup(t)
	order := seedOrder(t, store)
	ctx := context.Background()

	first, err := svc.RecordPayment(ctx, pay(order.ID, domain.PaymentMethodCard, "10", "pay-1"))
	require.NoError(t, err)
	again, err := svc.RecordPayment(ctx, pay(order.ID, domain.PaymentMethodCard, "10", "pay-1"))
	require.NoError(t, err)

	assert.False(t, first.Replayed)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.Payment.ID, again.Payment.ID)
	assert.Equal(t, "10.00", again.Order.PaidAmount.StringFixed(2))
	assert.Len(t, events.types(), 1)

	// without a key a retry is a second payment
	_, err = svc.RecordPayment(ctx, pay(order.ID, domain.PaymentMethodCard, "5", ""))
	require.NoError(t, err)
	res, err := svc.RecordPayment(ctx, pay(order.ID, domain.PaymentMethodCard, "5", ""))
	require.NoError(t, err)
	assert.Equal(t, "20.00", res.Order.PaidAmount.StringFixed(2))

	payments, err := svc.ListPayments(ctx, venueID, order.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 3)
}

func TestRecordPayment_KeyReusedForAnotherRequestIsConflict(t *testing.T) {
	store, svc, events := setup(t)
	first := seedOrder(t, store)
	second := seedOrder(t, store)
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, pay(first.ID, domain.PaymentMethodCard, "5", "k1"))
	require.NoError(t, err)

	tests := []struct {
		name string
		cmd  interfaces.RecordPaymentCommand
	}{
		{"other order", pay(second.ID, domain.PaymentMethodCard, "21", "k1")},
		{"other amount", pay(first.ID, domain.PaymentMethodCard, "6", "k1")},
		{"other method", pay(first.ID, domain.PaymentMethodCash, "5", "k1")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordPayment(ctx, tt.cmd)
			require.Error(t, err)
			var de *domain.Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, domain.KindConflict, de.Kind)
			assert.Equal(t, domain.MsgKeyReused, de.Message)
		})
	}

	got, err := store.Orders().FindByID(ctx, venueID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusUnpaid, got.PaymentStatus)
	assert.Len(t, events.types(), 1)

	// a fresh key pays the second order
	res, err := svc.RecordPayment(ctx, pay(second.ID, domain.PaymentMethodCard, "21", "k2"))
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, second.ID, res.Payment.OrderID)
	assert.Equal(t, domain.PaymentStatusPaid, res.Order.PaymentStatus)
}

func TestRecordPayment_FailedUpdateRollsBackLedger(t *testing.T) {
	store, svc, events := setup(t)
	order := seedOrder(t, store)
	ctx := context.Background()

	store.FailOn("orders.update", errors.New("connection reset"))
	_, err := svc.RecordPayment(ctx, pay(order.ID, domain.PaymentMethodCash, "10", ""))
	require.Error(t, err)
	store.FailOn("orders.update", nil)

	payments, err := svc.ListPayments(ctx, venueID, order.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	got, err := store.Orders().FindByID(ctx, venueID, order.ID)
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.IsZero())
	assert.Equal(t, domain.PaymentStatusUnpaid, got.PaymentStatus)
	assert.Empty(t, events.types())
}

func TestRecordPayment_Validation(t *testing.T) {
	store, svc, _ := setup(t)
	order := seedOrder(t, store)
	ctx := context.Background()

	tests := []struct {
		name   string
		method domain.PaymentMethod
		value  string
		field  string
	}{
		{"unknown method", "bitcoin", "10", "method"},
		{"zero amount", domain.PaymentMethodCash, "0", "amount"},
		{"negative amount", domain.PaymentMethodCash, "-3", "amount"},
		{"sub-cent amount", domain.PaymentMethodCash, "0.001", "amount"},
		{"three decimals", domain.PaymentMethodCash, "20.995", "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordPayment(ctx, pay(order.ID, tt.method, tt.value, ""))
			require.Error(t, err)
			var de *domain.Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, domain.KindValidation, de.Kind)
			assert.Equal(t, tt.field, de.Field)
		})
	}
}

func TestPayments_AreVenueScoped(t *testing.T) {
	store, svc, _ := setup(t)
	order := seedOrder(t, store)
	ctx := context.Background()

	stranger := pay(order.ID, domain.PaymentMethodCash, "5", "")
	stranger.Actor = domain.Actor{VenueID: 99, UserID: 1}
	_, err := svc.RecordPayment(ctx, stranger)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = svc.ListPayments(ctx, 99, order.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
