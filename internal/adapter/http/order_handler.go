package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/domain"
	"github.com/YelzhanWeb/comanda/internal/interfaces"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	service interfaces.OrderService
	logger  logger.Logger
}

func NewOrderHandler(service interfaces.OrderService, logger logger.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger,
	}
}

// CreateOrderRequest carries no prices: items are priced from the catalog.
type CreateOrderRequest struct {
	Code         *string            `json:"code"`
	CustomerName *string            `json:"customer_name"`
	Items        []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Note      *string `json:"note"`
}

type UpdateOrderRequest struct {
	Code         *string `json:"code"`
	CustomerName *string `json:"customer_name"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c, err)
		return
	}

	// Валидация входных данных до обращения к сервису
	var errs []ValidationError
	if len(req.Items) == 0 {
		errs = append(errs, ValidationError{Field: "items", Message: domain.MsgItemsRequired})
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			errs = append(errs, ValidationError{Field: "items.quantity", Message: domain.MsgQuantityPositive})
			break
		}
	}
	if len(errs) > 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Errors: errs})
		return
	}

	items := make([]interfaces.CreateOrderItemCommand, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, interfaces.CreateOrderItemCommand{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Note:      item.Note,
		})
	}

	order, err := h.service.CreateOrder(c.Request.Context(), interfaces.CreateOrderCommand{
		Actor:          actorFrom(c),
		Code:           req.Code,
		CustomerName:   req.CustomerName,
		Items:          items,
		IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), actorFrom(c).VenueID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	var status *domain.OrderStatus
	if s := c.Query("status"); s != "" {
		v := domain.OrderStatus(s)
		status = &v
	}

	orders, err := h.service.ListOrders(c.Request.Context(), actorFrom(c).VenueID, status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	c.JSON(http.StatusOK, resp)
}

// UpdateOrder changes order metadata only. Totals and statuses are owned by
// payments and the lifecycle endpoints, so naming them is a validation error.
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		respondBadBody(c, err)
		return
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		respondBadBody(c, err)
		return
	}
	fields := make([]string, 0, len(raw))
	for f := range raw {
		fields = append(fields, f)
	}
	if err := domain.CheckPatchFields(fields); err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req UpdateOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondBadBody(c, err)
		return
	}
	patch := domain.OrderPatch{Code: req.Code, CustomerName: req.CustomerName}
	if patch.Empty() {
		respondError(c, h.logger, domain.NewValidationError("body", domain.MsgPatchEmpty))
		return
	}

	order, err := h.service.UpdateOrder(c.Request.Context(), actorFrom(c), id, patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) CancelOrder(c *gin.Context) {
	h.lifecycle(c, h.service.CancelOrder)
}

func (h *OrderHandler) CloseOrder(c *gin.Context) {
	h.lifecycle(c, h.service.CloseOrder)
}

func (h *OrderHandler) lifecycle(c *gin.Context, op func(ctx context.Context, actor domain.Actor, orderID int64) (*domain.Order, error)) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	order, err := op(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) ListProducts(c *gin.Context) {
	products, err := h.service.ListProducts(c.Request.Context(), actorFrom(c).VenueID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, ProductResponse{ID: p.ID, Name: p.Name, Price: p.Price.StringFixed(2)})
	}
	c.JSON(http.StatusOK, resp)
}
