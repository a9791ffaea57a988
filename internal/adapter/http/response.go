package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/domain"

	"github.com/gin-gonic/gin"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type OrderItemResponse struct {
	ID          int64   `json:"id"`
	ProductID   *int64  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   string  `json:"unit_price"`
	Subtotal    string  `json:"subtotal"`
	Note        *string `json:"note,omitempty"`
}

type OrderResponse struct {
	ID            int64               `json:"id"`
	VenueID       int64               `json:"venue_id"`
	Code          *string             `json:"code"`
	CustomerName  *string             `json:"customer_name"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"payment_status"`
	TotalAmount   string              `json:"total_amount"`
	PaidAmount    string              `json:"paid_amount"`
	CreatedBy     int64               `json:"created_by"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	ClosedAt      *time.Time          `json:"closed_at"`
	Items         []OrderItemResponse `json:"items"`
	Ticket        *TicketResponse     `json:"ticket,omitempty"`
}

type TicketResponse struct {
	ID           int64      `json:"id"`
	OrderID      int64      `json:"order_id"`
	TicketNumber int        `json:"ticket_number"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	StartedAt    *time.Time `json:"started_at"`
	ReadyAt      *time.Time `json:"ready_at"`
	DeliveredAt  *time.Time `json:"delivered_at"`
}

type PaymentResponse struct {
	ID         int64     `json:"id"`
	OrderID    int64     `json:"order_id"`
	Method     string    `json:"method"`
	Amount     string    `json:"amount"`
	ReceivedBy int64     `json:"received_by"`
	ReceivedAt time.Time `json:"received_at"`
}

type ProductResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
}

func toOrderResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Subtotal:    item.Subtotal().StringFixed(2),
			Note:        item.Note,
		})
	}

	resp := OrderResponse{
		ID:            o.ID,
		VenueID:       o.VenueID,
		Code:          o.Code,
		CustomerName:  o.CustomerName,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		TotalAmount:   o.TotalAmount.StringFixed(2),
		PaidAmount:    o.PaidAmount.StringFixed(2),
		CreatedBy:     o.CreatedBy,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		ClosedAt:      o.ClosedAt,
		Items:         items,
	}
	if o.Ticket != nil {
		t := toTicketResponse(o.Ticket)
		resp.Ticket = &t
	}
	return resp
}

func toTicketResponse(t *domain.KitchenTicket) TicketResponse {
	return TicketResponse{
		ID:           t.ID,
		OrderID:      t.OrderID,
		TicketNumber: t.TicketNumber,
		Status:       string(t.Status),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		StartedAt:    t.StartedAt,
		ReadyAt:      t.ReadyAt,
		DeliveredAt:  t.DeliveredAt,
	}
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:         p.ID,
		OrderID:    p.OrderID,
		Method:     string(p.Method),
		Amount:     p.Amount.StringFixed(2),
		ReceivedBy: p.ReceivedBy,
		ReceivedAt: p.ReceivedAt,
	}
}

// respondError maps domain error kinds to status codes. Anything that is not a
// domain error is logged and reported as a generic 500.
func respondError(c *gin.Context, log logger.Logger, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		log.Error("request_failed", "Unexpected error", requestID(c), map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}

	switch de.Kind {
	case domain.KindValidation:
		resp := ErrorResponse{Error: "Validation failed"}
		resp.Errors = []ValidationError{{Field: de.Field, Message: de.Message}}
		c.AbortWithStatusJSON(http.StatusBadRequest, resp)
	case domain.KindNotFound:
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Error: de.Message})
	case domain.KindConflict:
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Error: de.Message})
	case domain.KindForbidden:
		c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Error: de.Message})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	}
}

func respondBadBody(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error:  "Invalid request body",
		Errors: []ValidationError{{Field: "body", Message: err.Error()}},
	})
}

// pathID reads the positive integer :id route parameter.
func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", "id must be a positive integer")
	}
	return id, nil
}
