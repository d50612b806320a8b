package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/timmy/linemaint/internal/storage"
)

// PhotoOpener resolves a stored photo to its content or a public URL.
type PhotoOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// PhotoHandler serves stored evidence photos.
type PhotoHandler struct {
	photos PhotoOpener
}

// NewPhotoHandler creates a new photo handler.
func NewPhotoHandler(photos PhotoOpener) *PhotoHandler {
	return &PhotoHandler{photos: photos}
}

// Serve handles GET /api/v1/maintenance/photos/*key. The key is a photo
// reference as stored on a report, e.g. "uploads/pump_20250115_103000_1a2b3c4d.jpg".
func (h *PhotoHandler) Serve(c *gin.Context) {
	key := path.Clean(strings.TrimPrefix(c.Param("key"), "/"))
	if !strings.HasPrefix(key, storage.PhotoPrefix+"/") {
		NoRoute(c)
		return
	}

	rc, url, err := h.photos.Open(c.Request.Context(), key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		abortWithError(c, http.StatusNotFound, ErrorBody{Message: "Photo not found", Type: "NotFoundError"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if url != "" {
		c.Redirect(http.StatusFound, url)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, rc, map[string]string{
		"Cache-Control": "public, max-age=86400",
	})
}
