package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/linemaint/internal/domain"
	"github.com/timmy/linemaint/internal/logger"
)

// StatsProvider reports how many failure reports are in each status.
type StatsProvider interface {
	Stats(ctx context.Context) (map[domain.ReportStatus]int64, error)
}

// AdminHandler handles administrative endpoints.
type AdminHandler struct {
	stats  StatsProvider
	logger *logger.Logger
}

// NewAdminHandler creates a new admin handler.
// Parameters:
//   - stats: source of per-status counts.
//   - log: logger instance.
// Returns:
//   - *AdminHandler: initialized handler.
func NewAdminHandler(stats StatsProvider, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		stats:  stats,
		logger: log,
	}
}

// log returns a logger from Gin context if available, otherwise returns the handler's logger
func (h *AdminHandler) log(c *gin.Context) *logger.Logger {
	if l := logger.FromContext(c.Request.Context()); l != logger.GetDefault() || h.logger == nil {
		return l
	}
	return h.logger
}

// StatsResponse represents the report statistics.
type StatsResponse struct {
	Total    int64                         `json:"total"`
	ByStatus map[domain.ReportStatus]int64 `json:"by_status"`
}

// Stats handles GET /api/v1/maintenance/stats.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AdminHandler) Stats(c *gin.Context) {
	counts, err := h.stats.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := StatsResponse{ByStatus: counts}
	for _, n := range counts {
		resp.Total += n
	}
	h.log(c).WithField(logger.FieldCount, resp.Total).Debug("Stats requested")
	c.JSON(http.StatusOK, resp)
}
