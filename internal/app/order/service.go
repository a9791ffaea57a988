package order

import (
	"context"
	"errors"
	"time"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/domain"
	"github.com/YelzhanWeb/comanda/internal/interfaces"
)

type Service struct {
	store        interfaces.Store
	capabilities interfaces.CapabilityResolver
	events       interfaces.EventPublisher
	logger       logger.Logger
	location     *time.Location
	idemWindow   time.Duration
}

func NewService(
	store interfaces.Store,
	capabilities interfaces.CapabilityResolver,
	events interfaces.EventPublisher,
	logger logger.Logger,
	location *time.Location,
	idemWindow time.Duration,
) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		store:        store,
		capabilities: capabilities,
		events:       events,
		logger:       logger,
		location:     location,
		idemWindow:   idemWindow,
	}
}

func (s *Service) CreateOrder(ctx context.Context, cmd interfaces.CreateOrderCommand) (*domain.Order, error) {
	venueID := cmd.Actor.VenueID

	// 1. Проверка включенных модулей заведения
	caps, err := s.capabilities.Resolve(ctx, venueID)
	if err != nil {
		return nil, err
	}
	if !caps.OrdersEnabled {
		return nil, domain.NewForbiddenError(domain.MsgOrdersDisabled)
	}
	if len(cmd.Items) == 0 {
		return nil, domain.NewValidationError("items", domain.MsgItemsRequired)
	}

	var (
		order    *domain.Order
		replayed bool
	)
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx interfaces.Repositories) error {
		now := time.Now().UTC()
		since := now.Add(-s.idemWindow)

		// 2. Повторный запрос с тем же ключом возвращает уже созданный заказ
		if cmd.IdempotencyKey != "" {
			id, ok, err := tx.Idempotency().Find(ctx, venueID, domain.ScopeCreateOrder, cmd.IdempotencyKey, since)
			if err != nil {
				return err
			}
			if ok {
				replayed = true
				order, err = loadOrder(ctx, tx, venueID, id)
				return err
			}
		}

		// 3. Цены берутся из каталога, а не от клиента
		ids := make([]int64, 0, len(cmd.Items))
		for _, item := range cmd.Items {
			ids = append(ids, item.ProductID)
		}
		products, err := tx.Products().FindByIDs(ctx, venueID, ids)
		if err != nil {
			return err
		}

		items := make([]domain.OrderItem, 0, len(cmd.Items))
		for _, in := range cmd.Items {
			item, err := domain.NewOrderItem(venueID, products[in.ProductID], in.Quantity, in.Note)
			if err != nil {
				return err
			}
			items = append(items, item)
		}

		order, err = domain.NewOrder(venueID, cmd.Code, cmd.CustomerName, items, cmd.Actor.UserID)
		if err != nil {
			return err
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return err
		}

		// 4. Тикет для кухни в той же транзакции
		if caps.KitchenEnabled {
			number, err := tx.Tickets().NextNumber(ctx, venueID, domain.BusinessDay(order.CreatedAt, s.location))
			if err != nil {
				return err
			}
			ticket := domain.NewKitchenTicket(order, number)
			if err := tx.Tickets().Create(ctx, ticket); err != nil {
				return err
			}
			order.Ticket = ticket
		}

		if cmd.IdempotencyKey != "" {
			saved, err := tx.Idempotency().Save(ctx, domain.IdempotencyRecord{
				VenueID:    venueID,
				Scope:      domain.ScopeCreateOrder,
				Key:        cmd.IdempotencyKey,
				ResourceID: order.ID,
				CreatedAt:  now,
			}, since)
			if err != nil {
				return err
			}
			if !saved {
				return domain.NewConflictError(domain.MsgDuplicateRequest)
			}
		}
		return nil
	})
	if err != nil {
		s.logError("order_create_failed", "Failed to create order", err, nil)
		return nil, err
	}

	if replayed {
		s.logger.Info("order_create_replayed", "Idempotency key matched an existing order", "",
			map[string]interface{}{"venue_id": venueID, "order_id": order.ID})
		return order, nil
	}

	s.logger.Info("order_created", "Order created", "", map[string]interface{}{
		"venue_id":     venueID,
		"order_id":     order.ID,
		"total_amount": order.TotalAmount.StringFixed(2),
		"items":        len(order.Items),
	})

	// 5. Уведомления только после коммита
	s.events.Publish(ctx, domain.NewEvent(domain.EventNewOrder, venueID, order.ID, domain.SnapshotOrder(order)))
	if order.Ticket != nil {
		s.events.Publish(ctx, domain.NewEvent(domain.EventTicketCreated, venueID, order.Ticket.ID, domain.SnapshotTicket(order.Ticket)))
	}

	return order, nil
}

func (s *Service) CancelOrder(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error) {
	return s.mutate(ctx, actor, orderID, "order_canceled", func(o *domain.Order, now time.Time) error {
		return o.Cancel(now)
	})
}

func (s *Service) CloseOrder(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error) {
	return s.mutate(ctx, actor, orderID, "order_closed", func(o *domain.Order, now time.Time) error {
		return o.Close(now)
	})
}

func (s *Service) UpdateOrder(ctx context.Context, actor domain.Actor, orderID int64, patch domain.OrderPatch) (*domain.Order, error) {
	return s.mutate(ctx, actor, orderID, "order_updated", func(o *domain.Order, now time.Time) error {
		return o.ApplyPatch(patch, now)
	})
}

// mutate applies change to the locked order row and emits order_updated once
// the change is committed.
func (s *Service) mutate(
	ctx context.Context,
	actor domain.Actor,
	orderID int64,
	action string,
	change func(o *domain.Order, now time.Time) error,
) (*domain.Order, error) {
	var order *domain.Order
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx interfaces.Repositories) error {
		var err error
		order, err = tx.Orders().FindForUpdate(ctx, actor.VenueID, orderID)
		if err != nil {
			return err
		}
		if err := change(order, time.Now().UTC()); err != nil {
			return err
		}
		return tx.Orders().Update(ctx, order)
	})
	if err != nil {
		s.logError(action+"_failed", "Failed to change order", err, map[string]interface{}{"order_id": orderID})
		return nil, err
	}

	s.logger.Info(action, "Order changed", "", map[string]interface{}{
		"venue_id": actor.VenueID,
		"order_id": order.ID,
		"actor_id": actor.UserID,
		"status":   order.Status,
	})
	s.events.Publish(ctx, domain.NewEvent(domain.EventOrderUpdated, actor.VenueID, order.ID, domain.SnapshotOrder(order)))

	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, venueID, orderID int64) (*domain.Order, error) {
	return loadOrder(ctx, s.store, venueID, orderID)
}

func (s *Service) ListOrders(ctx context.Context, venueID int64, status *domain.OrderStatus) ([]*domain.Order, error) {
	if status != nil && !status.Valid() {
		return nil, domain.NewValidationError("status", domain.MsgOrderStatusUnknown)
	}
	return s.store.Orders().List(ctx, venueID, status)
}

func (s *Service) ListProducts(ctx context.Context, venueID int64) ([]*domain.Product, error) {
	return s.store.Products().List(ctx, venueID, true)
}

// loadOrder reads an order with its kitchen ticket, when it has one.
func loadOrder(ctx context.Context, repos interfaces.Repositories, venueID, orderID int64) (*domain.Order, error) {
	order, err := repos.Orders().FindByID(ctx, venueID, orderID)
	if err != nil {
		return nil, err
	}

	ticket, err := repos.Tickets().FindByOrder(ctx, venueID, orderID)
	switch {
	case err == nil:
		order.Ticket = ticket
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, err
	}
	return order, nil
}

// logError keeps expected business rejections at debug level.
func (s *Service) logError(action, message string, err error, details map[string]interface{}) {
	if domain.KindOf(err) != "" {
		s.logger.Debug(action, err.Error(), "", details)
		return
	}
	s.logger.Error(action, message, "", details, err)
}
