package interfaces

import (
	"context"

	"github.com/YelzhanWeb/comanda/internal/domain"
	"github.com/shopspring/decimal"
)

// Команды для сервисов
type CreateOrderCommand struct {
	Actor          domain.Actor
	Code           *string
	CustomerName   *string
	Items          []CreateOrderItemCommand
	IdempotencyKey string
}

type CreateOrderItemCommand struct {
	ProductID int64
	Quantity  int
	Note      *string
}

type RecordPaymentCommand struct {
	Actor          domain.Actor
	OrderID        int64
	Method         domain.PaymentMethod
	Amount         decimal.Decimal
	IdempotencyKey string
}

// PaymentResult is the committed payment together with the order state it produced.
// Replayed is set when an idempotency key matched an earlier request.
type PaymentResult struct {
	Payment  *domain.Payment
	Order    *domain.Order
	Replayed bool
}

// Интерфейсы Сервисов (Business Logic)
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error)
	CancelOrder(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error)
	CloseOrder(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error)
	UpdateOrder(ctx context.Context, actor domain.Actor, orderID int64, patch domain.OrderPatch) (*domain.Order, error)
	GetOrder(ctx context.Context, venueID, orderID int64) (*domain.Order, error)
	ListOrders(ctx context.Context, venueID int64, status *domain.OrderStatus) ([]*domain.Order, error)
	ListProducts(ctx context.Context, venueID int64) ([]*domain.Product, error)
}

type PaymentService interface {
	RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (*PaymentResult, error)
	ListPayments(ctx context.Context, venueID, orderID int64) ([]*domain.Payment, error)
}

type KitchenService interface {
	Advance(ctx context.Context, actor domain.Actor, ticketID int64) (*domain.KitchenTicket, error)
	SetStatus(ctx context.Context, actor domain.Actor, ticketID int64, status domain.TicketStatus) (*domain.KitchenTicket, error)
	GetTicket(ctx context.Context, venueID, ticketID int64) (*domain.KitchenTicket, error)
	ListTickets(ctx context.Context, venueID int64, statuses []domain.TicketStatus) ([]*domain.KitchenTicket, error)
}

type CapabilityResolver interface {
	Resolve(ctx context.Context, venueID int64) (domain.Capabilities, error)
}
