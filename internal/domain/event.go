package domain

import "time"

type EventType string

const (
	EventNewOrder      EventType = "new_order"
	EventOrderUpdated  EventType = "order_updated"
	EventOrderPaid     EventType = "order_paid"
	EventTicketCreated EventType = "ticket_created"
	EventTicketUpdated EventType = "ticket_updated"
	EventHeartbeat     EventType = "heartbeat"
)

// Event is a state-change hint pushed to the clients of one venue. Consumers
// refetch on receipt; the event is not the source of truth.
type Event struct {
	Type      EventType `json:"type"`
	VenueID   int64     `json:"venue_id"`
	EntityID  int64     `json:"entity_id"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEvent(t EventType, venueID, entityID int64, data any) Event {
	return Event{
		Type:      t,
		VenueID:   venueID,
		EntityID:  entityID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// OrderSnapshot is the event payload describing an order.
type OrderSnapshot struct {
	Code          *string       `json:"code,omitempty"`
	CustomerName  *string       `json:"customer_name,omitempty"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	TotalAmount   string        `json:"total_amount"`
	PaidAmount    string        `json:"paid_amount"`
}

func SnapshotOrder(o *Order) OrderSnapshot {
	return OrderSnapshot{
		Code:          o.Code,
		CustomerName:  o.CustomerName,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		TotalAmount:   o.TotalAmount.StringFixed(2),
		PaidAmount:    o.PaidAmount.StringFixed(2),
	}
}

// TicketSnapshot is the event payload describing a kitchen ticket.
type TicketSnapshot struct {
	OrderID      int64        `json:"order_id"`
	TicketNumber int          `json:"ticket_number"`
	Status       TicketStatus `json:"status"`
}

func SnapshotTicket(t *KitchenTicket) TicketSnapshot {
	return TicketSnapshot{
		OrderID:      t.OrderID,
		TicketNumber: t.TicketNumber,
		Status:       t.Status,
	}
}
