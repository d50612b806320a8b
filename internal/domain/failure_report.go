package domain

import (
	"strings"
	"time"
)

// ReportStatus represents the lifecycle state of a failure report.
// Values include StatusOpen, StatusInProgress, and StatusClosed.
type ReportStatus string

const (
	StatusOpen       ReportStatus = "open"
	StatusInProgress ReportStatus = "in_progress"
	StatusClosed     ReportStatus = "closed"
)

// Valid reports whether s is one of the known statuses.
func (s ReportStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// IsTerminal returns true if no further status transitions are possible.
func (s ReportStatus) IsTerminal() bool {
	return s == StatusClosed
}

// rank orders statuses along the only legal direction of travel.
func (s ReportStatus) rank() int {
	switch s {
	case StatusOpen:
		return 0
	case StatusInProgress:
		return 1
	case StatusClosed:
		return 2
	}
	return -1
}

// Priority is the urgency a reporter attached to a failure.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority. The empty priority is valid
// and means normal.
func (p Priority) Valid() bool {
	switch p {
	case "", PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// OrDefault returns PriorityNormal for an absent priority.
func (p Priority) OrDefault() Priority {
	if p == "" {
		return PriorityNormal
	}
	return p
}

// FailureReport represents one reported equipment malfunction on a production line.
// LineName is a snapshot taken at creation and is never re-synced.
type FailureReport struct {
	ID                   string       `gorm:"type:text;primaryKey" json:"id"`
	LineID               string       `gorm:"type:text;not null;index:idx_failure_reports_line" json:"line_id"`
	LineName             string       `gorm:"type:text" json:"line_name"`
	Description          string       `gorm:"type:text;not null" json:"description"`
	ReportedBy           string       `gorm:"type:text;not null" json:"reported_by"`
	Priority             Priority     `gorm:"type:text;default:normal" json:"priority,omitempty"`
	Status               ReportStatus `gorm:"type:text;not null;index:idx_failure_reports_status;default:open" json:"status"`
	AssignedTo           string       `gorm:"type:text" json:"assigned_to,omitempty"`
	Comments             string       `gorm:"type:text" json:"comments,omitempty"`
	PhotoURLs            StringArray  `gorm:"type:text" json:"photo_urls"`
	CreatedAt            time.Time    `gorm:"index:idx_failure_reports_created" json:"created_at"`
	StartTime            *time.Time   `json:"start_time,omitempty"`
	WorkerArrivedAt      *time.Time   `json:"worker_arrived_at,omitempty"`
	CompletedAt          *time.Time   `json:"completed_at,omitempty"`
	TotalDurationMinutes *int         `json:"total_duration_minutes,omitempty"`
	UpdatedAt            time.Time    `json:"-"`
}

// TableName returns the database table name for FailureReport.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (FailureReport) TableName() string {
	return "failure_reports"
}

// Clone returns a deep copy so transitions can be tried without touching r.
func (r *FailureReport) Clone() *FailureReport {
	c := *r
	if r.PhotoURLs != nil {
		c.PhotoURLs = append(StringArray{}, r.PhotoURLs...)
	}
	c.StartTime = cloneTime(r.StartTime)
	c.WorkerArrivedAt = cloneTime(r.WorkerArrivedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	if r.TotalDurationMinutes != nil {
		d := *r.TotalDurationMinutes
		c.TotalDurationMinutes = &d
	}
	return &c
}

// ReportCreate is the payload accepted when a new failure is reported.
type ReportCreate struct {
	LineID      string   `json:"line_id"`
	LineName    string   `json:"line_name"`
	Description string   `json:"description"`
	ReportedBy  string   `json:"reported_by"`
	Priority    Priority `json:"priority,omitempty"`
}

// Validate checks the creation preconditions.
func (c ReportCreate) Validate() error {
	if strings.TrimSpace(c.LineID) == "" {
		return newValidationError("line_id", "line_id is required")
	}
	if strings.TrimSpace(c.Description) == "" {
		return newValidationError("description", "description is required")
	}
	if strings.TrimSpace(c.ReportedBy) == "" {
		return newValidationError("reported_by", "reported_by is required")
	}
	if !c.Priority.Valid() {
		return newValidationError("priority", "priority must be one of low, normal, high, urgent")
	}
	return nil
}

// ReportUpdate carries a partial update. Nil fields are left untouched.
type ReportUpdate struct {
	Description     *string       `json:"description,omitempty"`
	Status          *ReportStatus `json:"status,omitempty"`
	AssignedTo      *string       `json:"assigned_to,omitempty"`
	Comments        *string       `json:"comments,omitempty"`
	PhotoURLs       []string      `json:"photo_urls,omitempty"`
	WorkerArrivedAt *time.Time    `json:"worker_arrived_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
}

// Validate checks the update in isolation, without looking at the stored report.
func (u ReportUpdate) Validate() error {
	if u.Status != nil && !u.Status.Valid() {
		return newValidationError("status", "status must be one of open, in_progress, closed")
	}
	if u.Description != nil && strings.TrimSpace(*u.Description) == "" {
		return newValidationError("description", "description cannot be empty")
	}
	for _, ref := range u.PhotoURLs {
		if strings.TrimSpace(ref) == "" {
			return newValidationError("photo_urls", "photo reference cannot be empty")
		}
	}
	return nil
}

// IsEmpty reports whether the update supplies no fields at all.
func (u ReportUpdate) IsEmpty() bool {
	return u.Description == nil && u.Status == nil && u.AssignedTo == nil &&
		u.Comments == nil && u.PhotoURLs == nil && u.WorkerArrivedAt == nil &&
		u.CompletedAt == nil
}

// ListFilter narrows a report listing. Zero values match everything.
type ListFilter struct {
	Status ReportStatus
	LineID string
}

// Matches reports whether r passes the filter.
func (f ListFilter) Matches(r *FailureReport) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.LineID != "" && r.LineID != f.LineID {
		return false
	}
	return true
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
