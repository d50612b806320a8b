package domain

import (
	"context"
	"io"
)

// Photo is one evidence file selected by the caller for upload.
type Photo struct {
	Filename string
	Content  io.Reader
}

// ReportStore defines the operations callers use to drive a report through
// its lifecycle. Implementations must return *ValidationError for illegal
// transitions and an error wrapping ErrNotFound (or an equivalent transport
// error) for unknown ids. Concurrent calls are allowed and unserialized.
type ReportStore interface {
	// List returns reports matching filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]FailureReport, error)

	// Get returns a single report.
	Get(ctx context.Context, id string) (*FailureReport, error)

	// Create reports a new failure; the result is open.
	Create(ctx context.Context, in ReportCreate) (*FailureReport, error)

	// Update applies a partial update.
	Update(ctx context.Context, id string, u ReportUpdate) (*FailureReport, error)

	// Close closes the report, applying u in the same step. Closing a
	// closed report is a ValidationError.
	Close(ctx context.Context, id string, u ReportUpdate) (*FailureReport, error)

	// MarkWorkerArrived records the technician's arrival.
	MarkWorkerArrived(ctx context.Context, id string) (*FailureReport, error)

	// UploadPhoto stores one evidence file and appends its reference.
	UploadPhoto(ctx context.Context, id string, photo Photo) (*FailureReport, error)

	// Delete removes a report. Administrative cleanup only; not constrained
	// by the lifecycle.
	Delete(ctx context.Context, id string) error
}
