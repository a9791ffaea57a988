package payment

import (
	"context"
	"time"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/domain"
	"github.com/YelzhanWeb/comanda/internal/interfaces"
)

type Service struct {
	store      interfaces.Store
	events     interfaces.EventPublisher
	logger     logger.Logger
	idemWindow time.Duration
}

func NewService(store interfaces.Store, events interfaces.EventPublisher, logger logger.Logger, idemWindow time.Duration) *Service {
	return &Service{
		store:      store,
		events:     events,
		logger:     logger,
		idemWindow: idemWindow,
	}
}

// RecordPayment appends a payment to the ledger and updates the order's paid
// total in one transaction. The order row stays locked until commit, so
// concurrent payments against one order are applied one after another.
func (s *Service) RecordPayment(ctx context.Context, cmd interfaces.RecordPaymentCommand) (*interfaces.PaymentResult, error) {
	if !cmd.Method.Valid() {
		return nil, domain.NewValidationError("method", domain.MsgPaymentMethod)
	}
	if !cmd.Amount.IsPositive() {
		return nil, domain.NewValidationError("amount", domain.MsgAmountPositive)
	}
	if !domain.HasCents(cmd.Amount) {
		return nil, domain.NewValidationError("amount", domain.MsgAmountPrecision)
	}

	venueID := cmd.Actor.VenueID
	result := &interfaces.PaymentResult{}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx interfaces.Repositories) error {
		now := time.Now().UTC()
		since := now.Add(-s.idemWindow)

		if cmd.IdempotencyKey != "" {
			id, ok, err := tx.Idempotency().Find(ctx, venueID, domain.ScopeRecordPayment, cmd.IdempotencyKey, since)
			if err != nil {
				return err
			}
			if ok {
				return replay(ctx, tx, cmd, id, result)
			}
		}

		// 1. Блокировка строки заказа до конца транзакции
		order, err := tx.Orders().FindForUpdate(ctx, venueID, cmd.OrderID)
		if err != nil {
			return err
		}

		payment, err := domain.NewPayment(order, cmd.Method, cmd.Amount, cmd.Actor.UserID, now)
		if err != nil {
			return err
		}
		// 2. Пересчет суммы и статусов; полная оплата закрывает заказ
		if err := order.ApplyPayment(cmd.Amount, now); err != nil {
			return err
		}

		if err := tx.Payments().Create(ctx, payment); err != nil {
			return err
		}
		if err := tx.Orders().Update(ctx, order); err != nil {
			return err
		}

		if cmd.IdempotencyKey != "" {
			saved, err := tx.Idempotency().Save(ctx, domain.IdempotencyRecord{
				VenueID:    venueID,
				Scope:      domain.ScopeRecordPayment,
				Key:        cmd.IdempotencyKey,
				ResourceID: payment.ID,
				CreatedAt:  now,
			}, since)
			if err != nil {
				return err
			}
			if !saved {
				return domain.NewConflictError(domain.MsgDuplicateRequest)
			}
		}

		result.Payment = payment
		result.Order = order
		return nil
	})
	if err != nil {
		details := map[string]interface{}{"venue_id": venueID, "order_id": cmd.OrderID}
		if domain.KindOf(err) != "" {
			s.logger.Debug("payment_rejected", err.Error(), "", details)
		} else {
			s.logger.Error("payment_failed", "Failed to record payment", "", details, err)
		}
		return nil, err
	}

	if result.Replayed {
		s.logger.Info("payment_replayed", "Idempotency key matched an existing payment", "", map[string]interface{}{
			"venue_id":   venueID,
			"payment_id": result.Payment.ID,
		})
		return result, nil
	}

	order := result.Order
	s.logger.Info("payment_recorded", "Payment recorded", "", map[string]interface{}{
		"venue_id":       venueID,
		"order_id":       order.ID,
		"payment_id":     result.Payment.ID,
		"method":         result.Payment.Method,
		"amount":         result.Payment.Amount.StringFixed(2),
		"paid_amount":    order.PaidAmount.StringFixed(2),
		"payment_status": order.PaymentStatus,
	})

	eventType := domain.EventOrderUpdated
	if order.PaymentStatus == domain.PaymentStatusPaid {
		eventType = domain.EventOrderPaid
	}
	s.events.Publish(ctx, domain.NewEvent(eventType, venueID, order.ID, domain.SnapshotOrder(order)))

	return result, nil
}

// replay fills result with the payment an earlier request recorded under the
// same key, together with the order as it is now. A key reused for another
// order, method or amount is a conflict.
func replay(ctx context.Context, tx interfaces.Repositories, cmd interfaces.RecordPaymentCommand, paymentID int64, result *interfaces.PaymentResult) error {
	venueID := cmd.Actor.VenueID
	payment, err := tx.Payments().FindByID(ctx, venueID, paymentID)
	if err != nil {
		return err
	}
	if !payment.Matches(cmd.OrderID, cmd.Method, cmd.Amount) {
		return domain.NewConflictError(domain.MsgKeyReused)
	}
	order, err := tx.Orders().FindByID(ctx, venueID, payment.OrderID)
	if err != nil {
		return err
	}

	result.Payment = payment
	result.Order = order
	result.Replayed = true
	return nil
}

func (s *Service) ListPayments(ctx context.Context, venueID, orderID int64) ([]*domain.Payment, error) {
	// 404 for foreign or unknown orders rather than an empty list
	if _, err := s.store.Orders().FindByID(ctx, venueID, orderID); err != nil {
		return nil, err
	}
	return s.store.Payments().ListByOrder(ctx, venueID, orderID)
}
