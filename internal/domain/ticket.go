package domain

import "time"

// KitchenTicket is the fulfillment unit of an order routed to the kitchen.
type KitchenTicket struct {
	ID           int64
	OrderID      int64
	VenueID      int64
	TicketNumber int
	Status       TicketStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    *time.Time
	ReadyAt      *time.Time
	DeliveredAt  *time.Time
}

func NewKitchenTicket(order *Order, number int) *KitchenTicket {
	return &KitchenTicket{
		OrderID:      order.ID,
		VenueID:      order.VenueID,
		TicketNumber: number,
		Status:       TicketStatusQueue,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.CreatedAt,
	}
}

// Advance moves the ticket exactly one step forward.
func (t *KitchenTicket) Advance(now time.Time) error {
	next, ok := t.Status.Next()
	if !ok {
		return NewConflictError(MsgTicketDelivered)
	}
	return t.TransitionTo(next, now)
}

// TransitionTo moves the ticket to status, which must be the immediate
// successor of the current status.
func (t *KitchenTicket) TransitionTo(status TicketStatus, now time.Time) error {
	if !status.Valid() {
		return NewValidationError("status", MsgTicketStatusUnknown)
	}
	next, ok := t.Status.Next()
	if !ok {
		return NewConflictError(MsgTicketDelivered)
	}
	if status != next {
		return NewConflictError(MsgTicketSkip)
	}

	t.Status = status
	t.UpdatedAt = now
	switch status {
	case TicketStatusPreparing:
		t.StartedAt = &now
	case TicketStatusReady:
		t.ReadyAt = &now
	case TicketStatusDelivered:
		t.DeliveredAt = &now
	}
	return nil
}

// BusinessDay is the calendar day a ticket number sequence belongs to.
func BusinessDay(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}
