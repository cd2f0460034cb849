package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shoplinkhq/chatstore/internal/bot"
	"github.com/shoplinkhq/chatstore/internal/chat"
)

// HealthChecker reports whether the backing document store is reachable.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler exposes the webhook and health endpoints.
type Handler struct {
	bot    *bot.Service
	health HealthChecker
}

// NewHandler creates a new handler instance.
func NewHandler(botService *bot.Service, health HealthChecker) *Handler {
	return &Handler{bot: botService, health: health}
}

// Health checks the health of the service.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if h.health != nil {
		if err := h.health.Health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":   "Document store connection failed",
				"message": err.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "chatstore",
		"timestamp": time.Now().UTC(),
	})
}

// HandleUpdate receives one transport update and processes it to
// completion. The transport serializes deliveries per user, so handler
// concurrency only spans different users.
func (h *Handler) HandleUpdate(c *gin.Context) {
	var upd chat.Update
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid update",
			"message": err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()
	h.bot.HandleUpdate(ctx, upd)

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
