package reportstore

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/timmy/linemaint/internal/apiclient"
	"github.com/timmy/linemaint/internal/domain"
	"github.com/timmy/linemaint/internal/logger"
)

const basePath = "/maintenance/failure-reports"

// HTTPStore is the ReportStore backed by the maintenance API. Transitions
// that the lifecycle rules forbid are rejected locally with a
// *domain.ValidationError and never sent.
type HTTPStore struct {
	client *apiclient.Client
	opts   options
}

var _ domain.ReportStore = (*HTTPStore)(nil)

// NewHTTPStore creates an HTTPStore on top of client.
func NewHTTPStore(client *apiclient.Client, opts ...Option) *HTTPStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &HTTPStore{client: client, opts: o}
}

func reportPath(id string) string {
	return basePath + "/" + url.PathEscape(id)
}

// List returns reports matching filter, newest first.
func (s *HTTPStore) List(ctx context.Context, filter domain.ListFilter) ([]domain.FailureReport, error) {
	params := url.Values{}
	if filter.Status != "" {
		params.Set("status_filter", string(filter.Status))
	}
	if filter.LineID != "" {
		params.Set("line_id", filter.LineID)
	}

	var reports []domain.FailureReport
	if err := s.client.Get(ctx, basePath, params, &reports); err != nil {
		return nil, translate("", err)
	}
	if reports == nil {
		reports = []domain.FailureReport{}
	}
	return reports, nil
}

// Get returns a single report.
func (s *HTTPStore) Get(ctx context.Context, id string) (*domain.FailureReport, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	var report domain.FailureReport
	if err := s.client.Get(ctx, reportPath(id), nil, &report); err != nil {
		return nil, translate(id, err)
	}
	return &report, nil
}

// GetMany fetches several reports concurrently. The result keeps the order of
// ids; the first failure cancels the remaining requests.
func (s *HTTPStore) GetMany(ctx context.Context, ids ...string) ([]*domain.FailureReport, error) {
	reports := make([]*domain.FailureReport, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			r, err := s.Get(gctx, id)
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// Create reports a new failure.
func (s *HTTPStore) Create(ctx context.Context, in domain.ReportCreate) (*domain.FailureReport, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var report domain.FailureReport
	if err := s.client.Post(ctx, basePath, in, &report); err != nil {
		return nil, translate("", err)
	}
	logger.CtxInfo(logger.SetReportID(ctx, report.ID), "failure report created on line %s", report.LineID)
	return &report, nil
}

// Update replays the update on the current server state before sending it,
// so an illegal transition costs one read and no write.
func (s *HTTPStore) Update(ctx context.Context, id string, u domain.ReportUpdate) (*domain.FailureReport, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := current.Clone().Apply(u, s.opts.now()); err != nil {
		return nil, rejectedLocally(ctx, id, err)
	}

	var report domain.FailureReport
	if err := s.client.Patch(ctx, reportPath(id), u, &report); err != nil {
		return nil, translate(id, err)
	}
	return &report, nil
}

// Close closes the report through the dedicated close endpoint, so the
// backend rejects a second close instead of treating it as a no-op.
func (s *HTTPStore) Close(ctx context.Context, id string, u domain.ReportUpdate) (*domain.FailureReport, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := current.Clone().CloseWith(u, s.opts.now()); err != nil {
		return nil, rejectedLocally(ctx, id, err)
	}

	var report domain.FailureReport
	if err := s.client.Post(ctx, reportPath(id)+"/close", u, &report); err != nil {
		return nil, translate(id, err)
	}
	logger.CtxInfo(logger.SetReportID(ctx, id), "failure report closed after %d minutes", durationOf(&report))
	return &report, nil
}

// MarkWorkerArrived records the technician's arrival.
func (s *HTTPStore) MarkWorkerArrived(ctx context.Context, id string) (*domain.FailureReport, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := current.Clone().MarkWorkerArrived(s.opts.now()); err != nil {
		return nil, rejectedLocally(ctx, id, err)
	}

	var report domain.FailureReport
	if err := s.client.Post(ctx, reportPath(id)+"/worker-arrived", nil, &report); err != nil {
		return nil, translate(id, err)
	}
	return &report, nil
}

// UploadPhoto sends one evidence file as multipart field "file".
func (s *HTTPStore) UploadPhoto(ctx context.Context, id string, photo domain.Photo) (*domain.FailureReport, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	if strings.TrimSpace(photo.Filename) == "" || photo.Content == nil {
		return nil, &domain.ValidationError{Field: "file", Message: "a named photo file is required"}
	}

	var report domain.FailureReport
	file := apiclient.File{Name: photo.Filename, Reader: photo.Content}
	if err := s.client.Upload(ctx, reportPath(id)+"/photos", file, &report); err != nil {
		return nil, translate(id, err)
	}
	return &report, nil
}

// Delete removes a report.
func (s *HTTPStore) Delete(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}
	if err := s.client.Delete(ctx, reportPath(id), nil); err != nil {
		return translate(id, err)
	}
	return nil
}

// rejectedLocally notes a transition refused before any write was sent.
func rejectedLocally(ctx context.Context, id string, err error) error {
	logger.CtxDebug(logger.SetReportID(ctx, id), "transition rejected locally: %v", err)
	return err
}

func durationOf(r *domain.FailureReport) int {
	if r.TotalDurationMinutes == nil {
		return 0
	}
	return *r.TotalDurationMinutes
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &domain.ValidationError{Field: "id", Message: "report id is required"}
	}
	return nil
}

// rejection keeps the transport error while exposing its domain meaning, so
// both errors.As(err, *apiclient.APIError) and errors.Is(err,
// domain.ErrNotFound) hold.
type rejection struct {
	cause  error
	apiErr *apiclient.APIError
}

func (r *rejection) Error() string   { return r.apiErr.Error() }
func (r *rejection) Unwrap() []error { return []error{r.cause, r.apiErr} }

func translate(id string, err error) error {
	apiErr, ok := apiclient.AsAPIError(err)
	if !ok {
		return err
	}
	switch {
	case apiErr.Status == http.StatusNotFound && id != "":
		return &rejection{cause: domain.NotFound(id), apiErr: apiErr}
	case apiErr.Detail.Type == "ValidationError":
		return &rejection{
			cause:  &domain.ValidationError{Field: apiErr.Detail.Field, Message: apiclient.UserMessage(apiErr)},
			apiErr: apiErr,
		}
	}
	return err
}
