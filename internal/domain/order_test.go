package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string {
	return &s
}

func testProducts() (burger, soda *Product) {
	burger = &Product{ID: 1, VenueID: 7, Name: "Burger", Price: dec("8.00"), Active: true}
	soda = &Product{ID: 2, VenueID: 7, Name: "Soda", Price: dec("5.00"), Active: true}
	return burger, soda
}

func newTestOrder(t *testing.T) *Order {
	t.Helper()
	burger, soda := testProducts()

	i1, err := NewOrderItem(7, burger, 2, nil)
	require.NoError(t, err)
	i2, err := NewOrderItem(7, soda, 1, strPtr("  no ice "))
	require.NoError(t, err)

	order, err := NewOrder(7, strPtr("T4"), nil, []OrderItem{i1, i2}, 42)
	require.NoError(t, err)
	return order
}

func TestNewOrder_TotalIsSumOfItemSubtotals(t *testing.T) {
	order := newTestOrder(t)

	assert.True(t, order.TotalAmount.Equal(dec("21.00")), "total = %s", order.TotalAmount)
	assert.Equal(t, "21.00", order.TotalAmount.StringFixed(2))
	assert.True(t, order.PaidAmount.IsZero())
	assert.Equal(t, OrderStatusOpen, order.Status)
	assert.Equal(t, PaymentStatusUnpaid, order.PaymentStatus)
	assert.Equal(t, int64(42), order.CreatedBy)
	assert.Nil(t, order.ClosedAt)
	require.Len(t, order.Items, 2)
	assert.Equal(t, "no ice", *order.Items[1].Note)
	assert.Equal(t, "Burger", order.Items[0].ProductName)
}

func TestNewOrder_RequiresItems(t *testing.T) {
	_, err := NewOrder(7, nil, nil, nil, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestNewOrderItem_Rejections(t *testing.T) {
	burger, _ := testProducts()
	inactive := &Product{ID: 3, VenueID: 7, Name: "Old", Price: dec("1.00"), Active: false}
	foreign := &Product{ID: 4, VenueID: 8, Name: "Other", Price: dec("1.00"), Active: true}
	fractional := &Product{ID: 5, VenueID: 7, Name: "Gum", Price: dec("0.005"), Active: true}

	tests := []struct {
		name    string
		product *Product
		qty     int
		msg     string
	}{
		{"unknown product", nil, 1, MsgProductUnknown},
		{"other venue", foreign, 1, MsgProductUnknown},
		{"inactive", inactive, 1, MsgProductInactive},
		{"sub-cent price", fractional, 1, MsgPricePrecision},
		{"zero quantity", burger, 0, MsgQuantityPositive},
		{"negative quantity", burger, -2, MsgQuantityPositive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrderItem(7, tt.product, tt.qty, nil)
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))
			var de *Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.msg, de.Message)
		})
	}
}

func TestApplyPayment_PartialThenPaidCloses(t *testing.T) {
	order := newTestOrder(t)
	now := time.Now().UTC()

	require.NoError(t, order.ApplyPayment(dec("10"), now))
	assert.Equal(t, PaymentStatusPartial, order.PaymentStatus)
	assert.Equal(t, OrderStatusOpen, order.Status)
	assert.Equal(t, "10.00", order.PaidAmount.StringFixed(2))

	require.NoError(t, order.ApplyPayment(dec("11"), now))
	assert.Equal(t, PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, OrderStatusClosed, order.Status)
	assert.Equal(t, "21.00", order.PaidAmount.StringFixed(2))
	require.NotNil(t, order.ClosedAt)

	err := order.ApplyPayment(dec("1"), now)
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestApplyPayment_OverpaymentSaturates(t *testing.T) {
	order := newTestOrder(t)

	require.NoError(t, order.ApplyPayment(dec("25"), time.Now()))
	assert.Equal(t, PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, OrderStatusClosed, order.Status)
	assert.Equal(t, "25.00", order.PaidAmount.StringFixed(2))
}

func TestApplyPayment_RejectsNonPositive(t *testing.T) {
	order := newTestOrder(t)

	assert.True(t, errors.Is(order.ApplyPayment(decimal.Zero, time.Now()), ErrValidation))
	assert.True(t, errors.Is(order.ApplyPayment(dec("-1"), time.Now()), ErrValidation))
	assert.True(t, order.PaidAmount.IsZero())
}

func TestApplyPayment_RejectsSubCentAmounts(t *testing.T) {
	order := newTestOrder(t)

	for _, v := range []string{"20.995", "0.001"} {
		err := order.ApplyPayment(dec(v), time.Now())
		require.Error(t, err, v)
		var de *Error
		require.True(t, errors.As(err, &de))
		assert.Equal(t, KindValidation, de.Kind)
		assert.Equal(t, MsgAmountPrecision, de.Message)
	}
	assert.True(t, order.PaidAmount.IsZero())
	assert.Equal(t, PaymentStatusUnpaid, order.PaymentStatus)

	// trailing zeros beyond the cents are fine
	require.NoError(t, order.ApplyPayment(dec("21.000"), time.Now()))
	assert.Equal(t, PaymentStatusPaid, order.PaymentStatus)
}

func TestDerivePaymentStatus(t *testing.T) {
	tests := []struct {
		paid, total string
		want        PaymentStatus
	}{
		{"0", "21", PaymentStatusUnpaid},
		{"0.01", "21", PaymentStatusPartial},
		{"20.99", "21", PaymentStatusPartial},
		{"21", "21", PaymentStatusPaid},
		{"30", "21", PaymentStatusPaid},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DerivePaymentStatus(dec(tt.paid), dec(tt.total)), "paid=%s total=%s", tt.paid, tt.total)
	}
}

func TestCancelAndClose_OnlyFromOpen(t *testing.T) {
	now := time.Now().UTC()

	canceled := newTestOrder(t)
	require.NoError(t, canceled.Cancel(now))
	assert.Equal(t, OrderStatusCanceled, canceled.Status)
	assert.Nil(t, canceled.ClosedAt)
	assert.True(t, errors.Is(canceled.Cancel(now), ErrConflict))
	assert.True(t, errors.Is(canceled.Close(now), ErrConflict))

	closed := newTestOrder(t)
	require.NoError(t, closed.Close(now))
	assert.Equal(t, OrderStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.True(t, errors.Is(closed.Cancel(now), ErrConflict))
}

func TestApplyPatch(t *testing.T) {
	order := newTestOrder(t)
	now := time.Now().UTC()

	require.NoError(t, order.ApplyPatch(OrderPatch{CustomerName: strPtr(" Ana ")}, now))
	assert.Equal(t, "Ana", *order.CustomerName)
	assert.Equal(t, "T4", *order.Code)
	assert.Equal(t, "21.00", order.TotalAmount.StringFixed(2))

	require.NoError(t, order.Close(now))
	assert.True(t, errors.Is(order.ApplyPatch(OrderPatch{Code: strPtr("T5")}, now), ErrConflict))
}

func TestCheckPatchFields(t *testing.T) {
	assert.NoError(t, CheckPatchFields([]string{"code"}))
	assert.NoError(t, CheckPatchFields([]string{"customer_name", "code"}))

	for _, field := range []string{"total_amount", "paid_amount", "status", "payment_status", "venue_id"} {
		err := CheckPatchFields([]string{"code", field})
		require.Error(t, err, field)
		var de *Error
		require.True(t, errors.As(err, &de))
		assert.Equal(t, field, de.Field)
		assert.Equal(t, KindValidation, de.Kind)
	}
}
