package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/nba-ripple/internal/engine"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	engine    *engine.Engine
	startedAt time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(eng *engine.Engine) *HealthHandler {
	return &HealthHandler{engine: eng, startedAt: time.Now()}
}

// Health handles GET /health. Liveness only: it never touches artifacts.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// Ready handles GET /ready: the service is ready once dataset and model
// artifacts load.
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.engine.Ready(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
