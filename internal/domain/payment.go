package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is an append-only settlement against an order.
type Payment struct {
	ID         int64
	OrderID    int64
	VenueID    int64
	Method     PaymentMethod
	Amount     decimal.Decimal
	ReceivedBy int64
	ReceivedAt time.Time
}

func NewPayment(order *Order, method PaymentMethod, amount decimal.Decimal, receivedBy int64, now time.Time) (*Payment, error) {
	if !method.Valid() {
		return nil, NewValidationError("method", MsgPaymentMethod)
	}
	if err := checkPaymentAmount(amount); err != nil {
		return nil, err
	}

	return &Payment{
		OrderID:    order.ID,
		VenueID:    order.VenueID,
		Method:     method,
		Amount:     amount,
		ReceivedBy: receivedBy,
		ReceivedAt: now,
	}, nil
}

// Matches reports whether p is what a request for the same order, method and
// amount would have recorded.
func (p *Payment) Matches(orderID int64, method PaymentMethod, amount decimal.Decimal) bool {
	return p.OrderID == orderID && p.Method == method && p.Amount.Equal(amount)
}

// HasCents reports whether v fits the two decimal places money is stored with.
func HasCents(v decimal.Decimal) bool {
	return v.Equal(v.Round(2))
}

func checkPaymentAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return NewValidationError("amount", MsgAmountPositive)
	}
	if !HasCents(amount) {
		return NewValidationError("amount", MsgAmountPrecision)
	}
	return nil
}
