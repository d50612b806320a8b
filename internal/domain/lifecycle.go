package domain

import (
	"fmt"
	"strings"
	"time"
)

// NewFailureReport builds a freshly reported failure in the open state.
// Parameters:
//   - id: opaque identifier assigned by the store.
//   - in: creation payload; validated before use.
//   - now: creation time.
// Returns:
//   - *FailureReport: the new report.
//   - error: *ValidationError if a precondition fails.
func NewFailureReport(id string, in ReportCreate, now time.Time) (*FailureReport, error) {
	if strings.TrimSpace(id) == "" {
		return nil, newValidationError("id", "id is required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &FailureReport{
		ID:          id,
		LineID:      strings.TrimSpace(in.LineID),
		LineName:    in.LineName,
		Description: in.Description,
		ReportedBy:  in.ReportedBy,
		Priority:    in.Priority.OrDefault(),
		Status:      StatusOpen,
		PhotoURLs:   StringArray{},
		CreatedAt:   now,
	}, nil
}

// MarkWorkerArrived records the technician's arrival. It is an evidence
// timestamp, not a status transition, and can be recorded once while the
// report is still open.
func (r *FailureReport) MarkWorkerArrived(now time.Time) error {
	if r.WorkerArrivedAt != nil {
		return newValidationError("worker_arrived_at", "worker arrival is already recorded")
	}
	if r.Status != StatusOpen {
		return newValidationError("status",
			fmt.Sprintf("worker arrival can only be recorded on an open report, current status is %s", r.Status))
	}
	t := notBefore(now, r.CreatedAt)
	r.WorkerArrivedAt = &t
	return nil
}

// Start moves the report to in_progress. Starting an in-progress report is a no-op.
func (r *FailureReport) Start(now time.Time) error {
	s := StatusInProgress
	return r.Apply(ReportUpdate{Status: &s}, now)
}

// Close resolves the report. Closing twice is rejected.
func (r *FailureReport) Close(now time.Time) error {
	return r.CloseWith(ReportUpdate{}, now)
}

// CloseWith closes the report and applies u in the same step, typically the
// closing comments or an explicit completed_at. Unlike an update that repeats
// status=closed, closing a closed report is a ValidationError.
func (r *FailureReport) CloseWith(u ReportUpdate, now time.Time) error {
	if r.Status.IsTerminal() {
		return newValidationError("status", "report is already closed")
	}
	s := StatusClosed
	if u.Status != nil && *u.Status != s {
		return newValidationError("status", fmt.Sprintf("closing cannot set status to %s", *u.Status))
	}
	u.Status = &s
	return r.Apply(u, now)
}

// AddPhoto appends one evidence reference. Photos may be attached at any
// status; a reference already on the report is not added twice.
func (r *FailureReport) AddPhoto(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return newValidationError("photo_urls", "photo reference cannot be empty")
	}
	if r.PhotoURLs.contains(ref) {
		return nil
	}
	r.PhotoURLs = append(r.PhotoURLs, ref)
	return nil
}

// Apply performs a partial update. The update is tried on a copy and only
// committed when every invariant still holds, so a rejected update leaves r
// unchanged. Fields whose supplied value equals the stored one are no-ops.
func (r *FailureReport) Apply(u ReportUpdate, now time.Time) error {
	if err := u.Validate(); err != nil {
		return err
	}
	next := r.Clone()
	if err := next.apply(u, now); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*r = *next
	return nil
}

func (r *FailureReport) apply(u ReportUpdate, now time.Time) error {
	closed := r.Status == StatusClosed
	target := r.Status
	if u.Status != nil {
		target = *u.Status
	}
	if target.rank() < r.Status.rank() {
		return newValidationError("status",
			fmt.Sprintf("cannot move report from %s back to %s", r.Status, target))
	}

	if u.Description != nil && *u.Description != r.Description {
		if closed {
			return closedEdit("description")
		}
		r.Description = *u.Description
	}
	if u.AssignedTo != nil && *u.AssignedTo != r.AssignedTo {
		if closed {
			return closedEdit("assigned_to")
		}
		r.AssignedTo = *u.AssignedTo
	}
	// comments stay editable after closing
	if u.Comments != nil {
		r.Comments = *u.Comments
	}
	if u.PhotoURLs != nil && !equalStrings(u.PhotoURLs, r.PhotoURLs) {
		if closed {
			return closedEdit("photo_urls")
		}
		if !StringArray(u.PhotoURLs).hasPrefix(r.PhotoURLs) {
			return newValidationError("photo_urls", "photo references are append-only")
		}
		r.PhotoURLs = append(StringArray{}, u.PhotoURLs...)
	}
	if u.WorkerArrivedAt != nil && !sameTime(u.WorkerArrivedAt, r.WorkerArrivedAt) {
		if closed {
			return closedEdit("worker_arrived_at")
		}
		if r.WorkerArrivedAt != nil {
			return newValidationError("worker_arrived_at", "worker arrival is already recorded")
		}
		r.WorkerArrivedAt = cloneTime(u.WorkerArrivedAt)
	}
	if u.CompletedAt != nil && !sameTime(u.CompletedAt, r.CompletedAt) {
		if r.CompletedAt != nil {
			return newValidationError("completed_at", "completed_at is already set and cannot be changed")
		}
		if target != StatusClosed {
			return newValidationError("completed_at", "completed_at can only be set when closing the report")
		}
		r.CompletedAt = cloneTime(u.CompletedAt)
	}

	switch target {
	case StatusInProgress:
		if r.StartTime == nil {
			t := notBefore(now, r.latest(false))
			r.StartTime = &t
		}
	case StatusClosed:
		if r.CompletedAt == nil {
			t := notBefore(now, r.latest(true))
			r.CompletedAt = &t
		}
		d := DurationMinutes(r.CreatedAt, *r.CompletedAt)
		r.TotalDurationMinutes = &d
	}
	r.Status = target
	return nil
}

// Validate checks the full invariant set of a report.
func (r *FailureReport) Validate() error {
	switch {
	case strings.TrimSpace(r.ID) == "":
		return newValidationError("id", "id is required")
	case strings.TrimSpace(r.LineID) == "":
		return newValidationError("line_id", "line_id is required")
	case strings.TrimSpace(r.Description) == "":
		return newValidationError("description", "description is required")
	case strings.TrimSpace(r.ReportedBy) == "":
		return newValidationError("reported_by", "reported_by is required")
	case !r.Status.Valid():
		return newValidationError("status", fmt.Sprintf("unknown status %q", r.Status))
	case !r.Priority.Valid():
		return newValidationError("priority", fmt.Sprintf("unknown priority %q", r.Priority))
	}

	prevName, prev := "created_at", r.CreatedAt
	for _, ts := range []struct {
		name string
		at   *time.Time
	}{
		{"worker_arrived_at", r.WorkerArrivedAt},
		{"start_time", r.StartTime},
		{"completed_at", r.CompletedAt},
	} {
		if ts.at == nil {
			continue
		}
		if ts.at.Before(prev) {
			return newValidationError(ts.name, fmt.Sprintf("%s must not be earlier than %s", ts.name, prevName))
		}
		prevName, prev = ts.name, *ts.at
	}

	if (r.Status == StatusClosed) != (r.CompletedAt != nil) {
		return newValidationError("completed_at", "completed_at must be set exactly when the report is closed")
	}
	if r.CompletedAt == nil {
		if r.TotalDurationMinutes != nil {
			return newValidationError("total_duration_minutes", "duration requires completed_at")
		}
	} else if r.TotalDurationMinutes == nil || *r.TotalDurationMinutes != DurationMinutes(r.CreatedAt, *r.CompletedAt) {
		return newValidationError("total_duration_minutes", "duration does not match created_at and completed_at")
	}

	for _, ref := range r.PhotoURLs {
		if strings.TrimSpace(ref) == "" {
			return newValidationError("photo_urls", "photo reference cannot be empty")
		}
	}
	return nil
}

// DurationMinutes returns the whole minutes between createdAt and
// completedAt, never negative.
func DurationMinutes(createdAt, completedAt time.Time) int {
	d := completedAt.Sub(createdAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// latest returns the newest timestamp a derived start (or completion, when
// includeStart is set) must not precede.
func (r *FailureReport) latest(includeStart bool) time.Time {
	t := r.CreatedAt
	if r.WorkerArrivedAt != nil && r.WorkerArrivedAt.After(t) {
		t = *r.WorkerArrivedAt
	}
	if includeStart && r.StartTime != nil && r.StartTime.After(t) {
		t = *r.StartTime
	}
	return t
}

func closedEdit(field string) error {
	return newValidationError(field, "report is closed; only comments can be edited")
}

func notBefore(t, floor time.Time) time.Time {
	if t.Before(floor) {
		return floor
	}
	return t
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalStrings(a []string, b StringArray) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
