package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	now func() time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{now: time.Now}
}

// Health returns the health status of the process
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "linemaint-api",
	})
}

// MaintenanceHealth handles GET /api/v1/maintenance/health.
func (h *HealthHandler) MaintenanceHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "maintenance",
		"timestamp": h.now().Format(time.RFC3339),
	})
}
