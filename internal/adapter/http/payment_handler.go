package http

import (
	"net/http"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/domain"
	"github.com/YelzhanWeb/comanda/internal/interfaces"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	service interfaces.PaymentService
	logger  logger.Logger
}

func NewPaymentHandler(service interfaces.PaymentService, logger logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger,
	}
}

// RecordPaymentRequest accepts the amount as a JSON number or a decimal string.
type RecordPaymentRequest struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type RecordPaymentResponse struct {
	Payment PaymentResponse `json:"payment"`
	Order   OrderResponse   `json:"order"`
}

func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	orderID, err := pathID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c, err)
		return
	}

	result, err := h.service.RecordPayment(c.Request.Context(), interfaces.RecordPaymentCommand{
		Actor:          actorFrom(c),
		OrderID:        orderID,
		Method:         domain.PaymentMethod(req.Method),
		Amount:         req.Amount,
		IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, RecordPaymentResponse{
		Payment: toPaymentResponse(result.Payment),
		Order:   toOrderResponse(result.Order),
	})
}

func (h *PaymentHandler) ListPayments(c *gin.Context) {
	orderID, err := pathID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	payments, err := h.service.ListPayments(c.Request.Context(), actorFrom(c).VenueID, orderID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		resp = append(resp, toPaymentResponse(p))
	}
	c.JSON(http.StatusOK, resp)
}
