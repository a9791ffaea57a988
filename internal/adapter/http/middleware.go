package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	HeaderRequestID      = "X-Request-ID"
	HeaderVenueID        = "X-Venue-ID"
	HeaderActorID        = "X-Actor-ID"
	HeaderIdempotencyKey = "Idempotency-Key"

	ctxRequestID = "request_id"
	ctxActor     = "actor"
)

// LoggingMiddleware tags every request with an ID (taken from X-Request-ID
// when the client sent one) and logs its outcome.
func LoggingMiddleware(logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ctxRequestID, requestID)
		c.Header(HeaderRequestID, requestID)

		logger.Debug("http_request", fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path), requestID, map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		})

		c.Next()

		logger.Debug("http_response", "Request completed", requestID, map[string]interface{}{
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}
}

func RecoveryMiddleware(logger logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic_recovered", "Panic recovered", requestID(c), nil, fmt.Errorf("%v", err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
			}
		}()
		c.Next()
	}
}

// IdentityMiddleware reads the venue and actor resolved by the auth layer in
// front of this service. Requests without them are rejected.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		venueID, err := strconv.ParseInt(c.GetHeader(HeaderVenueID), 10, 64)
		if err != nil || venueID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing or invalid " + HeaderVenueID})
			return
		}
		actorID, err := strconv.ParseInt(c.GetHeader(HeaderActorID), 10, 64)
		if err != nil || actorID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing or invalid " + HeaderActorID})
			return
		}

		c.Set(ctxActor, domain.Actor{VenueID: venueID, UserID: actorID})
		c.Next()
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	v, _ := c.Get(ctxActor)
	actor, _ := v.(domain.Actor)
	return actor
}

func requestID(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}
