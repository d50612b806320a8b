package service

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/linemaint/internal/domain"
	"github.com/timmy/linemaint/internal/logger"
	"github.com/timmy/linemaint/internal/repository"
)

// MaintenanceService drives failure reports through their lifecycle on top of
// the database repository and photo storage.
type MaintenanceService struct {
	reports *repository.FailureReportRepository
	photos  *PhotoService
	logger  *logger.Logger
	now     func() time.Time
	newID   func() string
}

// MaintenanceConfig holds optional overrides for the maintenance service.
type MaintenanceConfig struct {
	Clock       func() time.Time
	IDGenerator func() string
}

var _ domain.ReportStore = (*MaintenanceService)(nil)

// NewMaintenanceService creates a new maintenance service.
// Parameters:
//   - reports: failure report repository.
//   - photos: photo service used for evidence uploads.
//   - log: logger instance.
//   - cfg: optional clock and id overrides; nil uses time.Now at microsecond
//     precision, which is what postgres stores, and domain.NewReportID.
// Returns:
//   - *MaintenanceService: initialized service.
func NewMaintenanceService(
	reports *repository.FailureReportRepository,
	photos *PhotoService,
	log *logger.Logger,
	cfg *MaintenanceConfig,
) *MaintenanceService {
	s := &MaintenanceService{
		reports: reports,
		photos:  photos,
		logger:  log,
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID:   domain.NewReportID,
	}
	if cfg != nil {
		if cfg.Clock != nil {
			s.now = cfg.Clock
		}
		if cfg.IDGenerator != nil {
			s.newID = cfg.IDGenerator
		}
	}
	return s
}

func (s *MaintenanceService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != logger.GetDefault() || s.logger == nil {
		return l
	}
	return s.logger
}

// List returns reports matching filter, newest first.
func (s *MaintenanceService) List(ctx context.Context, filter domain.ListFilter) ([]domain.FailureReport, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &domain.ValidationError{Field: "status_filter", Message: fmt.Sprintf("unknown status %q", filter.Status)}
	}
	return s.reports.List(ctx, filter)
}

// Get returns a single report.
func (s *MaintenanceService) Get(ctx context.Context, id string) (*domain.FailureReport, error) {
	return s.reports.GetByID(ctx, id)
}

// Create reports a new failure. The stored report is open with no photos.
func (s *MaintenanceService) Create(ctx context.Context, in domain.ReportCreate) (*domain.FailureReport, error) {
	report, err := domain.NewFailureReport(s.newID(), in, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldReportID: report.ID,
		logger.FieldLineID:   report.LineID,
		"priority":           report.Priority,
	}).Info("Failure report created")
	return report, nil
}

// Update applies a partial update under the lifecycle rules.
func (s *MaintenanceService) Update(ctx context.Context, id string, u domain.ReportUpdate) (*domain.FailureReport, error) {
	var before domain.ReportStatus
	report, err := s.reports.Update(ctx, id, func(r *domain.FailureReport) error {
		before = r.Status
		return r.Apply(u, s.now())
	})
	if err != nil {
		return nil, err
	}

	entry := s.log(ctx).WithFields(logger.Fields{
		logger.FieldReportID: report.ID,
		logger.FieldStatus:   report.Status,
	})
	if before != report.Status {
		entry = entry.WithField("previous_status", before)
		if report.TotalDurationMinutes != nil {
			entry = entry.WithField("total_duration_minutes", *report.TotalDurationMinutes)
		}
		entry.Info("Failure report status changed")
	} else {
		entry.Debug("Failure report updated")
	}
	return report, nil
}

// Close closes the report and records its repair duration. A second close
// is rejected.
func (s *MaintenanceService) Close(ctx context.Context, id string, u domain.ReportUpdate) (*domain.FailureReport, error) {
	var before domain.ReportStatus
	report, err := s.reports.Update(ctx, id, func(r *domain.FailureReport) error {
		before = r.Status
		return r.CloseWith(u, s.now())
	})
	if err != nil {
		return nil, err
	}

	entry := s.log(ctx).WithFields(logger.Fields{
		logger.FieldReportID: report.ID,
		logger.FieldStatus:   report.Status,
		"previous_status":    before,
	})
	if report.TotalDurationMinutes != nil {
		entry = entry.WithField("total_duration_minutes", *report.TotalDurationMinutes)
	}
	entry.Info("Failure report closed")
	return report, nil
}

// MarkWorkerArrived records the technician's arrival on an open report.
func (s *MaintenanceService) MarkWorkerArrived(ctx context.Context, id string) (*domain.FailureReport, error) {
	report, err := s.reports.Update(ctx, id, func(r *domain.FailureReport) error {
		return r.MarkWorkerArrived(s.now())
	})
	if err != nil {
		return nil, err
	}
	s.log(ctx).WithField(logger.FieldReportID, report.ID).Info("Worker arrived")
	return report, nil
}

// UploadPhoto stores one evidence photo and appends its reference. The stored
// object is removed again when the report cannot be updated.
func (s *MaintenanceService) UploadPhoto(ctx context.Context, id string, photo domain.Photo) (*domain.FailureReport, error) {
	if _, err := s.reports.GetByID(ctx, id); err != nil {
		return nil, err
	}

	stored, err := s.photos.Store(ctx, photo)
	if err != nil {
		return nil, err
	}

	report, err := s.reports.Update(ctx, id, func(r *domain.FailureReport) error {
		return r.AddPhoto(stored.Key)
	})
	if err != nil {
		s.photos.Remove(context.WithoutCancel(ctx), stored.Key)
		return nil, err
	}

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldReportID: report.ID,
		logger.FieldCount:    len(report.PhotoURLs),
	}).Info("Photo attached to failure report")
	return report, nil
}

// Delete removes a report and, best effort, its stored photos.
func (s *MaintenanceService) Delete(ctx context.Context, id string) error {
	report, err := s.reports.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.photos.Remove(context.WithoutCancel(ctx), report.PhotoURLs...)

	s.log(ctx).WithField(logger.FieldReportID, id).Info("Failure report deleted")
	return nil
}

// Stats returns the number of reports per status. Every status is present.
func (s *MaintenanceService) Stats(ctx context.Context) (map[domain.ReportStatus]int64, error) {
	counts, err := s.reports.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range []domain.ReportStatus{domain.StatusOpen, domain.StatusInProgress, domain.StatusClosed} {
		if _, ok := counts[st]; !ok {
			counts[st] = 0
		}
	}
	return counts, nil
}
