package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/timmy/linemaint/internal/domain"
	"github.com/timmy/linemaint/internal/logger"
)

// FailureReportHandler handles the failure report endpoints.
type FailureReportHandler struct {
	reports domain.ReportStore
}

// NewFailureReportHandler creates a new failure report handler.
// Parameters:
//   - reports: store that applies the lifecycle rules.
// Returns:
//   - *FailureReportHandler: initialized handler.
func NewFailureReportHandler(reports domain.ReportStore) *FailureReportHandler {
	return &FailureReportHandler{reports: reports}
}

// withReport tags the request logger with the report id from the path.
func withReport(c *gin.Context) string {
	id := c.Param("id")
	c.Request = c.Request.WithContext(logger.SetReportID(c.Request.Context(), id))
	return id
}

// Create handles POST /api/v1/maintenance/failure-reports.
func (h *FailureReportHandler) Create(c *gin.Context) {
	var req domain.ReportCreate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err.Error())
		return
	}

	report, err := h.reports.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// List handles GET /api/v1/maintenance/failure-reports.
// Query parameters status_filter and line_id are optional.
func (h *FailureReportHandler) List(c *gin.Context) {
	filter := domain.ListFilter{
		Status: domain.ReportStatus(c.Query("status_filter")),
		LineID: c.Query("line_id"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		respondInvalidRequest(c, fmt.Sprintf("status_filter: must be one of open, in_progress, closed, got %q", filter.Status))
		return
	}

	reports, err := h.reports.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

// Get handles GET /api/v1/maintenance/failure-reports/:id.
func (h *FailureReportHandler) Get(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), withReport(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Update handles PATCH /api/v1/maintenance/failure-reports/:id.
func (h *FailureReportHandler) Update(c *gin.Context) {
	id := withReport(c)
	var req domain.ReportUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err.Error())
		return
	}

	report, err := h.reports.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Close handles POST /api/v1/maintenance/failure-reports/:id/close.
// The JSON body is optional and may carry comments or completed_at.
func (h *FailureReportHandler) Close(c *gin.Context) {
	id := withReport(c)
	var req domain.ReportUpdate
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondInvalidRequest(c, err.Error())
		return
	}

	report, err := h.reports.Close(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// MarkWorkerArrived handles POST /api/v1/maintenance/failure-reports/:id/worker-arrived.
func (h *FailureReportHandler) MarkWorkerArrived(c *gin.Context) {
	report, err := h.reports.MarkWorkerArrived(c.Request.Context(), withReport(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// UploadPhoto handles POST /api/v1/maintenance/failure-reports/:id/photos.
// The photo is read from the multipart field "file".
func (h *FailureReportHandler) UploadPhoto(c *gin.Context) {
	id := withReport(c)
	header, err := c.FormFile("file")
	if err != nil {
		respondInvalidRequest(c, "file: field required")
		return
	}
	file, err := header.Open()
	if err != nil {
		respondError(c, fmt.Errorf("failed to open uploaded file: %w", err))
		return
	}
	defer file.Close()

	report, err := h.reports.UploadPhoto(c.Request.Context(), id, domain.Photo{
		Filename: header.Filename,
		Content:  file,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Delete handles DELETE /api/v1/maintenance/failure-reports/:id.
func (h *FailureReportHandler) Delete(c *gin.Context) {
	if err := h.reports.Delete(c.Request.Context(), withReport(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
