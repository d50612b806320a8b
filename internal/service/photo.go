package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/timmy/linemaint/internal/domain"
	"github.com/timmy/linemaint/internal/logger"
	"github.com/timmy/linemaint/internal/storage"
)

const defaultMaxPhotoSize = 10 * 1024 * 1024

var defaultPhotoExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// PhotoConfig holds upload limits for evidence photos.
type PhotoConfig struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

// StoredPhoto describes one photo after it was written to object storage.
type StoredPhoto struct {
	Key         string
	Size        int64
	ContentType string
	Width       int
	Height      int
}

// PhotoService validates evidence photos and writes them to object storage.
type PhotoService struct {
	storage storage.ObjectStorage
	logger  *logger.Logger
	maxSize int64
	allowed []string
	now     func() time.Time
}

// NewPhotoService creates a new photo service.
// Parameters:
//   - objectStorage: destination for accepted photos.
//   - log: logger instance.
//   - cfg: upload limits; nil or zero fields use 10 MiB and jpg/jpeg/png/webp.
// Returns:
//   - *PhotoService: initialized photo service.
func NewPhotoService(objectStorage storage.ObjectStorage, log *logger.Logger, cfg *PhotoConfig) *PhotoService {
	s := &PhotoService{
		storage: objectStorage,
		logger:  log,
		maxSize: defaultMaxPhotoSize,
		allowed: defaultPhotoExtensions,
		now:     time.Now,
	}
	if cfg != nil {
		if cfg.MaxFileSize > 0 {
			s.maxSize = cfg.MaxFileSize
		}
		if len(cfg.AllowedExtensions) > 0 {
			s.allowed = make([]string, 0, len(cfg.AllowedExtensions))
			for _, ext := range cfg.AllowedExtensions {
				ext = strings.ToLower(strings.TrimSpace(ext))
				if !strings.HasPrefix(ext, ".") {
					ext = "." + ext
				}
				s.allowed = append(s.allowed, ext)
			}
		}
	}
	return s
}

// MaxFileSize returns the largest accepted photo in bytes.
func (s *PhotoService) MaxFileSize() int64 {
	return s.maxSize
}

func (s *PhotoService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != logger.GetDefault() || s.logger == nil {
		return l
	}
	return s.logger
}

// Store validates the photo and uploads it under a unique key.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - photo: file name and content supplied by the caller.
// Returns:
//   - *StoredPhoto: the stored object's key and metadata.
//   - error: *domain.ValidationError for rejected files, or the upload error.
func (s *PhotoService) Store(ctx context.Context, photo domain.Photo) (*StoredPhoto, error) {
	if strings.TrimSpace(photo.Filename) == "" || photo.Content == nil {
		return nil, &domain.ValidationError{Field: "file", Message: "File must have a filename"}
	}
	ext := strings.ToLower(filepath.Ext(photo.Filename))
	if !s.extensionAllowed(ext) {
		return nil, &domain.ValidationError{
			Field:   "file",
			Message: "File type not allowed. Allowed types: " + strings.Join(s.allowed, ", "),
		}
	}

	data, err := io.ReadAll(io.LimitReader(photo.Content, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, &domain.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %gMB", float64(s.maxSize)/(1024*1024)),
		}
	}
	if len(data) == 0 {
		return nil, &domain.ValidationError{Field: "file", Message: "File is empty"}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.ValidationError{Field: "file", Message: "File is not a valid JPEG, PNG or WebP image"}
	}

	key := storage.PhotoKey(storage.UniqueFilename(photo.Filename, s.now()))
	contentType := getContentType(format)
	if err := s.storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	s.log(ctx).WithFields(logger.Fields{
		"key":            key,
		logger.FieldSize: len(data),
		"format":         format,
	}).Info("Photo stored")

	return &StoredPhoto{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: contentType,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, nil
}

// Remove deletes stored photos. Failures are logged and skipped.
func (s *PhotoService) Remove(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.log(ctx).WithError(err).WithField("key", key).Warn("Failed to delete photo")
		}
	}
}

// Open returns the stored photo for key, or its public URL when the storage
// backend serves objects itself.
func (s *PhotoService) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if url := s.storage.GetURL(key); strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return nil, url, nil
	}
	rc, err := s.storage.Download(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return rc, "", nil
}

func (s *PhotoService) extensionAllowed(ext string) bool {
	for _, allowed := range s.allowed {
		if ext == allowed {
			return true
		}
	}
	return false
}

func getContentType(format string) string {
	switch format {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
