package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/timmy/linemaint/internal/domain"
	"github.com/timmy/linemaint/internal/logger"
)

// ErrorBody is the "error" member of every error response.
type ErrorBody struct {
	Message string   `json:"message"`
	Detail  any      `json:"detail,omitempty"`
	Type    string   `json:"type"`
	Field   string   `json:"field,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func abortWithError(c *gin.Context, status int, body ErrorBody) {
	c.AbortWithStatusJSON(status, gin.H{"error": body})
}

// respondError maps service errors onto the error envelope.
func respondError(c *gin.Context, err error) {
	log := logger.FromContext(c.Request.Context())

	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		log.WithError(err).Warn("Request rejected")
		abortWithError(c, http.StatusBadRequest, ErrorBody{
			Message: ve.Message,
			Type:    "ValidationError",
			Field:   ve.Field,
		})
	case errors.Is(err, domain.ErrNotFound):
		log.WithError(err).Warn("Resource not found")
		abortWithError(c, http.StatusNotFound, ErrorBody{
			Message: err.Error(),
			Type:    "NotFoundError",
		})
	default:
		logger.CtxError(c.Request.Context(), "Unhandled error: %v", err)
		abortWithError(c, http.StatusInternalServerError, ErrorBody{
			Message: "Internal server error",
			Detail:  "An unexpected error occurred",
			Type:    "InternalServerError",
		})
	}
}

// respondInvalidRequest reports a malformed request body or query, before any
// service call was made.
func respondInvalidRequest(c *gin.Context, problems ...string) {
	logger.CtxWarn(c.Request.Context(), "Invalid request data: %s", strings.Join(problems, "; "))
	abortWithError(c, http.StatusUnprocessableEntity, ErrorBody{
		Message: "Validation error",
		Detail:  "Invalid request data",
		Type:    "ValidationError",
		Errors:  problems,
	})
}

// NoRoute answers unknown paths with the error envelope.
func NoRoute(c *gin.Context) {
	abortWithError(c, http.StatusNotFound, ErrorBody{Message: "Not Found", Type: "HTTPException"})
}

// NoMethod answers known paths with an unsupported method.
func NoMethod(c *gin.Context) {
	abortWithError(c, http.StatusMethodNotAllowed, ErrorBody{Message: "Method Not Allowed", Type: "HTTPException"})
}
