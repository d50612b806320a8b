package reportstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/timmy/linemaint/internal/domain"
	"github.com/timmy/linemaint/internal/storage"
)

// MemoryStore is an in-process ReportStore. It applies the same lifecycle
// rules as the backend and keeps uploaded photo bytes in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*domain.FailureReport
	photos  map[string][]byte
	opts    options
}

var _ domain.ReportStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &MemoryStore{
		reports: make(map[string]*domain.FailureReport),
		photos:  make(map[string][]byte),
		opts:    o,
	}
}

// List returns copies of the matching reports, newest first.
func (s *MemoryStore) List(ctx context.Context, filter domain.ListFilter) ([]domain.FailureReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := make([]domain.FailureReport, 0, len(s.reports))
	for _, r := range s.reports {
		if filter.Matches(r) {
			reports = append(reports, *r.Clone())
		}
	}
	slices.SortFunc(reports, func(a, b domain.FailureReport) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return reports, nil
}

// Get returns a copy of one report.
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.FailureReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, domain.NotFound(id)
	}
	return r.Clone(), nil
}

// Create stores a new open report.
func (s *MemoryStore) Create(ctx context.Context, in domain.ReportCreate) (*domain.FailureReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.opts.newID()
	if _, exists := s.reports[id]; exists {
		return nil, fmt.Errorf("failed to create report: id %s already in use", id)
	}
	r, err := domain.NewFailureReport(id, in, s.opts.now())
	if err != nil {
		return nil, err
	}
	s.reports[id] = r
	return r.Clone(), nil
}

// Update applies a partial update atomically.
func (s *MemoryStore) Update(ctx context.Context, id string, u domain.ReportUpdate) (*domain.FailureReport, error) {
	return s.mutate(ctx, id, func(r *domain.FailureReport) error {
		return r.Apply(u, s.opts.now())
	})
}

// Close closes the report. A second close is rejected.
func (s *MemoryStore) Close(ctx context.Context, id string, u domain.ReportUpdate) (*domain.FailureReport, error) {
	return s.mutate(ctx, id, func(r *domain.FailureReport) error {
		return r.CloseWith(u, s.opts.now())
	})
}

// MarkWorkerArrived records the technician's arrival.
func (s *MemoryStore) MarkWorkerArrived(ctx context.Context, id string) (*domain.FailureReport, error) {
	return s.mutate(ctx, id, func(r *domain.FailureReport) error {
		return r.MarkWorkerArrived(s.opts.now())
	})
}

// UploadPhoto keeps the photo bytes and appends a reference under the
// uploads prefix.
func (s *MemoryStore) UploadPhoto(ctx context.Context, id string, photo domain.Photo) (*domain.FailureReport, error) {
	if strings.TrimSpace(photo.Filename) == "" || photo.Content == nil {
		return nil, &domain.ValidationError{Field: "file", Message: "a named photo file is required"}
	}
	data, err := io.ReadAll(photo.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if len(data) == 0 {
		return nil, &domain.ValidationError{Field: "file", Message: "empty file not allowed"}
	}

	key := storage.PhotoKey(storage.UniqueFilename(photo.Filename, s.opts.now()))
	return s.mutate(ctx, id, func(r *domain.FailureReport) error {
		if err := r.AddPhoto(key); err != nil {
			return err
		}
		s.photos[key] = data
		return nil
	})
}

// Photo returns the bytes stored for a photo reference.
func (s *MemoryStore) Photo(ref string) (io.Reader, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.photos[ref]
	if !ok {
		return nil, false
	}
	return bytes.NewReader(data), true
}

// Delete removes a report and its photos.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok {
		return domain.NotFound(id)
	}
	for _, ref := range r.PhotoURLs {
		delete(s.photos, ref)
	}
	delete(s.reports, id)
	return nil
}

// mutate runs fn on the stored report under the write lock. fn either
// succeeds or leaves the report untouched.
func (s *MemoryStore) mutate(ctx context.Context, id string, fn func(*domain.FailureReport) error) (*domain.FailureReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, domain.NotFound(id)
	}
	next := r.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	s.reports[id] = next
	return next.Clone(), nil
}
