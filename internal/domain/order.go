package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order is one open tab (comanda) of a venue.
type Order struct {
	ID            int64
	VenueID       int64
	Code          *string
	CustomerName  *string
	Status        OrderStatus
	PaymentStatus PaymentStatus
	TotalAmount   decimal.Decimal
	PaidAmount    decimal.Decimal
	CreatedBy     int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ClosedAt      *time.Time
	Items         []OrderItem
	Ticket        *KitchenTicket
}

// OrderItem is a product line priced when the order was created.
type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   *int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Note        *string
}

// OrderPatch carries the metadata an order update may change.
type OrderPatch struct {
	Code         *string
	CustomerName *string
}

func (p OrderPatch) Empty() bool {
	return p.Code == nil && p.CustomerName == nil
}

// patchableFields are the wire names accepted by an order update.
var patchableFields = map[string]bool{
	"code":          true,
	"customer_name": true,
}

// CheckPatchFields rejects any field an order update does not own, including
// totals and statuses which belong to the payment and lifecycle operations.
func CheckPatchFields(fields []string) error {
	sort.Strings(fields)
	for _, f := range fields {
		if !patchableFields[f] {
			return NewValidationError(f, MsgFieldNotPatchable)
		}
	}
	return nil
}

// NewOrderItem prices qty units of product at its current catalog price.
func NewOrderItem(venueID int64, product *Product, qty int, note *string) (OrderItem, error) {
	if product == nil || product.VenueID != venueID {
		return OrderItem{}, NewValidationError("items", MsgProductUnknown)
	}
	if !product.Active {
		return OrderItem{}, NewValidationError("items", MsgProductInactive)
	}
	if !HasCents(product.Price) {
		return OrderItem{}, NewValidationError("items", MsgPricePrecision)
	}
	if qty <= 0 {
		return OrderItem{}, NewValidationError("items", MsgQuantityPositive)
	}

	id := product.ID
	return OrderItem{
		ProductID:   &id,
		ProductName: product.Name,
		Quantity:    qty,
		UnitPrice:   product.Price,
		Note:        trimmed(note),
	}, nil
}

// Subtotal is UnitPrice × Quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NewOrder creates an open, unpaid order and computes its total from the items.
func NewOrder(venueID int64, code, customerName *string, items []OrderItem, createdBy int64) (*Order, error) {
	if len(items) == 0 {
		return nil, NewValidationError("items", MsgItemsRequired)
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, NewValidationError("items", MsgQuantityPositive)
		}
	}

	now := time.Now().UTC()
	order := &Order{
		VenueID:       venueID,
		Code:          trimmed(code),
		CustomerName:  trimmed(customerName),
		Status:        OrderStatusOpen,
		PaymentStatus: PaymentStatusUnpaid,
		PaidAmount:    decimal.Zero,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
		Items:         items,
	}
	order.CalculateTotal()

	return order, nil
}

// CalculateTotal sets TotalAmount to the sum of the item subtotals.
func (o *Order) CalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	o.TotalAmount = total
}

func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusOpen
}

// Cancel moves an open order to the terminal canceled state.
func (o *Order) Cancel(now time.Time) error {
	if !o.IsOpen() {
		return NewConflictError(MsgOrderNotOpen)
	}
	o.Status = OrderStatusCanceled
	o.UpdatedAt = now
	return nil
}

// Close is the manual close of an open order.
func (o *Order) Close(now time.Time) error {
	if !o.IsOpen() {
		return NewConflictError(MsgOrderNotOpen)
	}
	o.Status = OrderStatusClosed
	o.ClosedAt = &now
	o.UpdatedAt = now
	return nil
}

// ApplyPatch updates the order metadata of an open order.
func (o *Order) ApplyPatch(p OrderPatch, now time.Time) error {
	if !o.IsOpen() {
		return NewConflictError(MsgOrderNotOpen)
	}
	if p.Code != nil {
		o.Code = trimmed(p.Code)
	}
	if p.CustomerName != nil {
		o.CustomerName = trimmed(p.CustomerName)
	}
	o.UpdatedAt = now
	return nil
}

// ApplyPayment adds amount to the running paid total. A payment that settles
// the order closes it.
func (o *Order) ApplyPayment(amount decimal.Decimal, now time.Time) error {
	if err := checkPaymentAmount(amount); err != nil {
		return err
	}
	if !o.IsOpen() {
		return NewConflictError(MsgOrderNotOpen)
	}

	o.PaidAmount = o.PaidAmount.Add(amount)
	o.PaymentStatus = DerivePaymentStatus(o.PaidAmount, o.TotalAmount)
	o.UpdatedAt = now
	if o.PaymentStatus == PaymentStatusPaid {
		o.Status = OrderStatusClosed
		o.ClosedAt = &now
	}
	return nil
}

// DerivePaymentStatus saturates at paid once paid reaches total.
func DerivePaymentStatus(paid, total decimal.Decimal) PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return PaymentStatusPaid
	case paid.IsZero():
		return PaymentStatusUnpaid
	default:
		return PaymentStatusPartial
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
