package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	provider string
}

// NewHealthHandler creates a new HealthHandler reporting the configured
// primary provider.
func NewHealthHandler(provider string) *HealthHandler {
	return &HealthHandler{provider: provider}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
func (h *HealthHandler) Readiness(c *gin.Context) {
	if h.provider == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "no parser provider configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "provider": h.provider})
}
