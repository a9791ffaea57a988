package kitchen

import (
	"context"
	"time"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/domain"
	"github.com/YelzhanWeb/comanda/internal/interfaces"
)

type Service struct {
	store  interfaces.Store
	events interfaces.EventPublisher
	logger logger.Logger
}

func NewService(store interfaces.Store, events interfaces.EventPublisher, logger logger.Logger) *Service {
	return &Service{
		store:  store,
		events: events,
		logger: logger,
	}
}

// Advance moves the ticket one step along queue → preparing → ready → delivered.
func (s *Service) Advance(ctx context.Context, actor domain.Actor, ticketID int64) (*domain.KitchenTicket, error) {
	return s.transition(ctx, actor, ticketID, "ticket_advanced", func(t *domain.KitchenTicket, now time.Time) error {
		return t.Advance(now)
	})
}

// SetStatus accepts only the immediate successor of the current status.
func (s *Service) SetStatus(ctx context.Context, actor domain.Actor, ticketID int64, status domain.TicketStatus) (*domain.KitchenTicket, error) {
	if !status.Valid() {
		return nil, domain.NewValidationError("status", domain.MsgTicketStatusUnknown)
	}
	return s.transition(ctx, actor, ticketID, "ticket_status_set", func(t *domain.KitchenTicket, now time.Time) error {
		return t.TransitionTo(status, now)
	})
}

func (s *Service) transition(
	ctx context.Context,
	actor domain.Actor,
	ticketID int64,
	action string,
	change func(t *domain.KitchenTicket, now time.Time) error,
) (*domain.KitchenTicket, error) {
	var (
		ticket *domain.KitchenTicket
		from   domain.TicketStatus
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx interfaces.Repositories) error {
		var err error
		// 1. Блокировка тикета на время перехода
		ticket, err = tx.Tickets().FindForUpdate(ctx, actor.VenueID, ticketID)
		if err != nil {
			return err
		}
		from = ticket.Status

		if err := change(ticket, time.Now().UTC()); err != nil {
			return err
		}
		return tx.Tickets().Update(ctx, ticket)
	})
	if err != nil {
		details := map[string]interface{}{"venue_id": actor.VenueID, "ticket_id": ticketID}
		if domain.KindOf(err) != "" {
			s.logger.Debug(action+"_rejected", err.Error(), "", details)
		} else {
			s.logger.Error(action+"_failed", "Failed to change ticket status", "", details, err)
		}
		return nil, err
	}

	s.logger.Info(action, "Ticket status changed", "", map[string]interface{}{
		"venue_id":      actor.VenueID,
		"ticket_id":     ticket.ID,
		"ticket_number": ticket.TicketNumber,
		"from":          from,
		"to":            ticket.Status,
		"actor_id":      actor.UserID,
	})
	s.events.Publish(ctx, domain.NewEvent(domain.EventTicketUpdated, actor.VenueID, ticket.ID, domain.SnapshotTicket(ticket)))

	return ticket, nil
}

func (s *Service) GetTicket(ctx context.Context, venueID, ticketID int64) (*domain.KitchenTicket, error) {
	return s.store.Tickets().FindByID(ctx, venueID, ticketID)
}

// ListTickets filters by any of statuses; an empty filter lists every ticket.
func (s *Service) ListTickets(ctx context.Context, venueID int64, statuses []domain.TicketStatus) ([]*domain.KitchenTicket, error) {
	for _, status := range statuses {
		if !status.Valid() {
			return nil, domain.NewValidationError("status", domain.MsgTicketStatusUnknown)
		}
	}
	return s.store.Tickets().List(ctx, venueID, statuses)
}
