package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/timmy/linemaint/internal/domain"
)

// FailureReportRepository handles failure report persistence.
type FailureReportRepository struct {
	db *gorm.DB
}

// NewFailureReportRepository creates a new FailureReportRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *FailureReportRepository: repository instance bound to db.
func NewFailureReportRepository(db *gorm.DB) *FailureReportRepository {
	return &FailureReportRepository{db: db}
}

// Create inserts a new report after checking its invariants.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - report: report to persist.
// Returns:
//   - error: *domain.ValidationError for an invalid report, or the insert error.
func (r *FailureReportRepository) Create(ctx context.Context, report *domain.FailureReport) error {
	if err := report.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to create failure report: %w", err)
	}
	return nil
}

// GetByID retrieves a report by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: report ID.
// Returns:
//   - *domain.FailureReport: report if found.
//   - error: wraps domain.ErrNotFound when no row matches.
func (r *FailureReportRepository) GetByID(ctx context.Context, id string) (*domain.FailureReport, error) {
	return getByID(r.db.WithContext(ctx), id)
}

func getByID(db *gorm.DB, id string) (*domain.FailureReport, error) {
	var report domain.FailureReport
	if err := db.First(&report, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound(id)
		}
		return nil, fmt.Errorf("failed to get failure report: %w", err)
	}
	return &report, nil
}

// List retrieves reports matching filter, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - filter: optional status and line constraints.
// Returns:
//   - []domain.FailureReport: matching reports, never nil.
//   - error: non-nil if the query fails.
func (r *FailureReportRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.FailureReport, error) {
	query := r.db.WithContext(ctx).Model(&domain.FailureReport{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.LineID != "" {
		query = query.Where("line_id = ?", filter.LineID)
	}

	reports := []domain.FailureReport{}
	if err := query.Order("created_at DESC").Order("id ASC").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("failed to list failure reports: %w", err)
	}
	return reports, nil
}

// CountByStatus returns the number of reports per status.
func (r *FailureReportRepository) CountByStatus(ctx context.Context) (map[domain.ReportStatus]int64, error) {
	var rows []struct {
		Status domain.ReportStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&domain.FailureReport{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count failure reports: %w", err)
	}

	counts := make(map[domain.ReportStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Update loads the report inside a transaction, lets fn mutate it, checks the
// invariants and saves it. The row is locked where the driver supports it, so
// concurrent updates of one report are applied one after another.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: report ID.
//   - fn: mutation; returning an error aborts the update.
// Returns:
//   - *domain.FailureReport: the saved report.
//   - error: fn's error, a not-found error, or the save error.
func (r *FailureReportRepository) Update(ctx context.Context, id string, fn func(*domain.FailureReport) error) (*domain.FailureReport, error) {
	var saved *domain.FailureReport
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		report, err := getByID(tx.Clauses(clause.Locking{Strength: "UPDATE"}), id)
		if err != nil {
			return err
		}
		if err := fn(report); err != nil {
			return err
		}
		if err := report.Validate(); err != nil {
			return err
		}
		if err := tx.Save(report).Error; err != nil {
			return fmt.Errorf("failed to update failure report: %w", err)
		}
		saved = report
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// Delete removes a report and returns what was deleted.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: report ID.
// Returns:
//   - *domain.FailureReport: the deleted report.
//   - error: wraps domain.ErrNotFound when no row matches.
func (r *FailureReportRepository) Delete(ctx context.Context, id string) (*domain.FailureReport, error) {
	var deleted *domain.FailureReport
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		report, err := getByID(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(&domain.FailureReport{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("failed to delete failure report: %w", err)
		}
		deleted = report
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
