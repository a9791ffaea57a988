package domain

type OrderStatus string

const (
	OrderStatusOpen     OrderStatus = "open"
	OrderStatusClosed   OrderStatus = "closed"
	OrderStatusCanceled OrderStatus = "canceled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusOpen, OrderStatusClosed, OrderStatusCanceled:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusPaid    PaymentStatus = "paid"
)

type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodPix  PaymentMethod = "pix"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodPix:
		return true
	}
	return false
}

type TicketStatus string

const (
	TicketStatusQueue     TicketStatus = "queue"
	TicketStatusPreparing TicketStatus = "preparing"
	TicketStatusReady     TicketStatus = "ready"
	TicketStatusDelivered TicketStatus = "delivered"
)

// ticketFlow is the only order a ticket may move through.
var ticketFlow = []TicketStatus{
	TicketStatusQueue,
	TicketStatusPreparing,
	TicketStatusReady,
	TicketStatusDelivered,
}

func (s TicketStatus) Valid() bool {
	return s.index() >= 0
}

// Next returns the status that follows s, or false when s is terminal.
func (s TicketStatus) Next() (TicketStatus, bool) {
	i := s.index()
	if i < 0 || i == len(ticketFlow)-1 {
		return "", false
	}
	return ticketFlow[i+1], true
}

func (s TicketStatus) index() int {
	for i, st := range ticketFlow {
		if st == s {
			return i
		}
	}
	return -1
}
