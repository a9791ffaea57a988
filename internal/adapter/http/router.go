package http

import (
	"context"
	"net/http"
	"time"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Orders   *OrderHandler
	Payments *PaymentHandler
	Kitchen  *KitchenHandler
	Events   *EventsHandler
	// Health reports whether dependencies are reachable; nil means always healthy.
	Health func(ctx context.Context) error
}

func NewRouter(cfg config.HTTPConfig, h Handlers, logger logger.Logger) *gin.Engine {
	r := gin.New()
	r.Use(LoggingMiddleware(logger), RecoveryMiddleware(logger))

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH"},
			AllowHeaders:     []string{"Origin", "Content-Type", HeaderVenueID, HeaderActorID, HeaderIdempotencyKey, HeaderRequestID},
			ExposeHeaders:    []string{HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) {
		if h.Health != nil {
			if err := h.Health(c.Request.Context()); err != nil {
				logger.Error("health_check_failed", "Dependency unavailable", requestID(c), nil, err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/")
	api.Use(IdentityMiddleware())
	{
		api.GET("/products", h.Orders.ListProducts)

		api.POST("/orders", h.Orders.CreateOrder)
		api.GET("/orders", h.Orders.ListOrders)
		api.GET("/orders/:id", h.Orders.GetOrder)
		api.PATCH("/orders/:id", h.Orders.UpdateOrder)
		api.POST("/orders/:id/cancel", h.Orders.CancelOrder)
		api.POST("/orders/:id/close", h.Orders.CloseOrder)
		api.POST("/orders/:id/payments", h.Payments.RecordPayment)
		api.GET("/orders/:id/payments", h.Payments.ListPayments)

		api.GET("/tickets", h.Kitchen.ListTickets)
		api.GET("/tickets/:id", h.Kitchen.GetTicket)
		api.POST("/tickets/:id/advance", h.Kitchen.Advance)
		api.PUT("/tickets/:id/status", h.Kitchen.SetStatus)

		api.GET("/events", h.Events.Stream)
	}

	return r
}
