package http

import (
	"net/http"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/domain"
	"github.com/YelzhanWeb/comanda/internal/interfaces"

	"github.com/gin-gonic/gin"
)

type KitchenHandler struct {
	service interfaces.KitchenService
	logger  logger.Logger
}

func NewKitchenHandler(service interfaces.KitchenService, logger logger.Logger) *KitchenHandler {
	return &KitchenHandler{
		service: service,
		logger:  logger,
	}
}

type SetTicketStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *KitchenHandler) ListTickets(c *gin.Context) {
	// ?status=queue&status=preparing matches either
	var statuses []domain.TicketStatus
	for _, s := range c.QueryArray("status") {
		if s != "" {
			statuses = append(statuses, domain.TicketStatus(s))
		}
	}

	tickets, err := h.service.ListTickets(c.Request.Context(), actorFrom(c).VenueID, statuses)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		resp = append(resp, toTicketResponse(t))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *KitchenHandler) GetTicket(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ticket, err := h.service.GetTicket(c.Request.Context(), actorFrom(c).VenueID, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toTicketResponse(ticket))
}

func (h *KitchenHandler) Advance(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ticket, err := h.service.Advance(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toTicketResponse(ticket))
}

func (h *KitchenHandler) SetStatus(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	var req SetTicketStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadBody(c, err)
		return
	}

	ticket, err := h.service.SetStatus(c.Request.Context(), actorFrom(c), id, domain.TicketStatus(req.Status))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, toTicketResponse(ticket))
}
