package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func newOpenReport(t *testing.T) *FailureReport {
	t.Helper()
	r, err := NewFailureReport("fr_0001", ReportCreate{
		LineID:      "L1",
		LineName:    "Line A",
		Description: "motor noise",
		ReportedBy:  "Op1",
	}, t0)
	if err != nil {
		t.Fatalf("NewFailureReport() error = %v", err)
	}
	return r
}

func strPtr(s string) *string { return &s }

func statusPtr(s ReportStatus) *ReportStatus { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func assertValidation(t *testing.T, err error, field string) {
	t.Helper()
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if field != "" && ve.Field != field {
		t.Errorf("ValidationError.Field = %q, want %q", ve.Field, field)
	}
}

func TestNewFailureReport(t *testing.T) {
	r := newOpenReport(t)

	if r.Status != StatusOpen {
		t.Errorf("status = %s, want open", r.Status)
	}
	if r.Priority != PriorityNormal {
		t.Errorf("priority = %q, want normal", r.Priority)
	}
	if r.PhotoURLs == nil || len(r.PhotoURLs) != 0 {
		t.Errorf("photo_urls = %v, want empty non-nil", r.PhotoURLs)
	}
	if !r.CreatedAt.Equal(t0) {
		t.Errorf("created_at = %v, want %v", r.CreatedAt, t0)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestNewFailureReport_Preconditions(t *testing.T) {
	tests := []struct {
		name  string
		in    ReportCreate
		field string
	}{
		{"missing line", ReportCreate{Description: "d", ReportedBy: "r"}, "line_id"},
		{"blank description", ReportCreate{LineID: "L1", Description: "  ", ReportedBy: "r"}, "description"},
		{"missing reporter", ReportCreate{LineID: "L1", Description: "d"}, "reported_by"},
		{"unknown priority", ReportCreate{LineID: "L1", Description: "d", ReportedBy: "r", Priority: "asap"}, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFailureReport("fr_x", tt.in, t0)
			assertValidation(t, err, tt.field)
		})
	}
}

func TestMarkWorkerArrived(t *testing.T) {
	r := newOpenReport(t)
	first := t0.Add(2 * time.Minute)

	if err := r.MarkWorkerArrived(first); err != nil {
		t.Fatalf("MarkWorkerArrived() error = %v", err)
	}
	if r.Status != StatusOpen {
		t.Errorf("status = %s, want open", r.Status)
	}

	err := r.MarkWorkerArrived(first.Add(time.Minute))
	assertValidation(t, err, "worker_arrived_at")
	if !r.WorkerArrivedAt.Equal(first) {
		t.Errorf("worker_arrived_at overwritten: %v", r.WorkerArrivedAt)
	}
}

func TestMarkWorkerArrived_RequiresOpen(t *testing.T) {
	r := newOpenReport(t)
	if err := r.Start(t0.Add(time.Minute)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	assertValidation(t, r.MarkWorkerArrived(t0.Add(2*time.Minute)), "status")
	if r.WorkerArrivedAt != nil {
		t.Errorf("worker_arrived_at = %v, want unset", r.WorkerArrivedAt)
	}
}

func TestMarkWorkerArrived_ClampsToCreatedAt(t *testing.T) {
	r := newOpenReport(t)
	if err := r.MarkWorkerArrived(t0.Add(-time.Hour)); err != nil {
		t.Fatalf("MarkWorkerArrived() error = %v", err)
	}
	if !r.WorkerArrivedAt.Equal(t0) {
		t.Errorf("worker_arrived_at = %v, want %v", r.WorkerArrivedAt, t0)
	}
}

func TestDurationMinutes(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{"125 seconds", 125 * time.Second, 2},
		{"zero", 0, 0},
		{"just under a minute", 59 * time.Second, 0},
		{"negative clamps", -5 * time.Minute, 0},
		{"hours", 3*time.Hour + 30*time.Second, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DurationMinutes(t0, t0.Add(tt.elapsed)); got != tt.want {
				t.Errorf("DurationMinutes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClose_ComputesDuration(t *testing.T) {
	r := newOpenReport(t)
	if err := r.Close(t0.Add(125 * time.Second)); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if r.Status != StatusClosed {
		t.Errorf("status = %s, want closed", r.Status)
	}
	if r.TotalDurationMinutes == nil || *r.TotalDurationMinutes != 2 {
		t.Errorf("total_duration_minutes = %v, want 2", r.TotalDurationMinutes)
	}
}

func TestClose_Twice(t *testing.T) {
	r := newOpenReport(t)
	if err := r.Close(t0.Add(time.Minute)); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	completed := *r.CompletedAt
	assertValidation(t, r.Close(t0.Add(time.Hour)), "status")
	if !r.CompletedAt.Equal(completed) {
		t.Errorf("completed_at rewound to %v", r.CompletedAt)
	}
}

func TestCloseWith(t *testing.T) {
	r := newOpenReport(t)
	comments := "replaced bearing"
	if err := r.CloseWith(ReportUpdate{Comments: &comments}, t0.Add(3*time.Minute)); err != nil {
		t.Fatalf("CloseWith() error = %v", err)
	}
	if r.Status != StatusClosed || r.Comments != comments {
		t.Errorf("after CloseWith: status %s, comments %q", r.Status, r.Comments)
	}

	// Repeating status=closed through Apply stays a no-op; an explicit close does not.
	closed := StatusClosed
	if err := r.Apply(ReportUpdate{Status: &closed}, t0.Add(time.Hour)); err != nil {
		t.Errorf("Apply(status=closed) on closed report error = %v", err)
	}
	assertValidation(t, r.CloseWith(ReportUpdate{Comments: &comments}, t0.Add(time.Hour)), "status")
}

func TestCloseWith_RejectsOtherStatus(t *testing.T) {
	r := newOpenReport(t)
	s := StatusInProgress
	assertValidation(t, r.CloseWith(ReportUpdate{Status: &s}, t0.Add(time.Minute)), "status")
	if r.Status != StatusOpen {
		t.Errorf("status = %s, want open", r.Status)
	}
}

func TestApply_TerminalState(t *testing.T) {
	r := newOpenReport(t)
	if err := r.Close(t0.Add(time.Minute)); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	for _, s := range []ReportStatus{StatusOpen, StatusInProgress} {
		t.Run(string(s), func(t *testing.T) {
			err := r.Apply(ReportUpdate{Status: statusPtr(s)}, t0.Add(time.Hour))
			assertValidation(t, err, "status")
			if r.Status != StatusClosed {
				t.Errorf("status = %s, want closed", r.Status)
			}
		})
	}

	t.Run("same status is a no-op", func(t *testing.T) {
		before := r.Clone()
		if err := r.Apply(ReportUpdate{Status: statusPtr(StatusClosed)}, t0.Add(time.Hour)); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if diff := cmp.Diff(before, r); diff != "" {
			t.Errorf("report changed (-before +after):\n%s", diff)
		}
	})

	t.Run("comments stay editable", func(t *testing.T) {
		if err := r.Apply(ReportUpdate{Comments: strPtr("replaced bearing")}, t0.Add(time.Hour)); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if r.Comments != "replaced bearing" {
			t.Errorf("comments = %q", r.Comments)
		}
	})

	t.Run("other edits rejected", func(t *testing.T) {
		assertValidation(t, r.Apply(ReportUpdate{AssignedTo: strPtr("Bob")}, t0), "assigned_to")
		assertValidation(t, r.Apply(ReportUpdate{Description: strPtr("other")}, t0), "description")
	})

	t.Run("identical edits are no-ops", func(t *testing.T) {
		if err := r.Apply(ReportUpdate{Description: strPtr(r.Description)}, t0); err != nil {
			t.Errorf("Apply() error = %v", err)
		}
	})
}

func TestApply_NoRegressionFromInProgress(t *testing.T) {
	r := newOpenReport(t)
	if err := r.Start(t0.Add(time.Minute)); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	assertValidation(t, r.Apply(ReportUpdate{Status: statusPtr(StatusOpen)}, t0), "status")
}

func TestApply_InProgressIsIdempotent(t *testing.T) {
	r := newOpenReport(t)
	start := t0.Add(3 * time.Minute)
	if err := r.Start(start); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.Start(start.Add(time.Hour)); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if !r.StartTime.Equal(start) {
		t.Errorf("start_time = %v, want %v", r.StartTime, start)
	}
}

func TestApply_PartialUpdate(t *testing.T) {
	r := newOpenReport(t)
	if err := r.Apply(ReportUpdate{Comments: strPtr("A")}, t0); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if err := r.Apply(ReportUpdate{AssignedTo: strPtr("X")}, t0); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if r.Comments != "A" {
		t.Errorf("comments = %q, want A", r.Comments)
	}
	if r.AssignedTo != "X" {
		t.Errorf("assigned_to = %q, want X", r.AssignedTo)
	}
	if r.Status != StatusOpen {
		t.Errorf("status = %s, want open", r.Status)
	}
}

func TestApply_RejectedUpdateIsAtomic(t *testing.T) {
	r := newOpenReport(t)
	before := r.Clone()

	err := r.Apply(ReportUpdate{
		AssignedTo:  strPtr("Bob"),
		CompletedAt: timePtr(t0.Add(time.Hour)),
	}, t0.Add(time.Minute))
	assertValidation(t, err, "completed_at")

	if diff := cmp.Diff(before, r); diff != "" {
		t.Errorf("report changed after rejected update (-before +after):\n%s", diff)
	}
}

func TestApply_ExplicitTimestamps(t *testing.T) {
	t.Run("completed_at with close", func(t *testing.T) {
		r := newOpenReport(t)
		done := t0.Add(90 * time.Minute)
		err := r.Apply(ReportUpdate{Status: statusPtr(StatusClosed), CompletedAt: &done}, t0.Add(5*time.Hour))
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
		if !r.CompletedAt.Equal(done) || *r.TotalDurationMinutes != 90 {
			t.Errorf("completed_at = %v, duration = %v", r.CompletedAt, *r.TotalDurationMinutes)
		}
	})

	t.Run("completed_at before created_at", func(t *testing.T) {
		r := newOpenReport(t)
		err := r.Apply(ReportUpdate{Status: statusPtr(StatusClosed), CompletedAt: timePtr(t0.Add(-time.Minute))}, t0)
		assertValidation(t, err, "completed_at")
	})

	t.Run("worker_arrived_at after start_time", func(t *testing.T) {
		r := newOpenReport(t)
		if err := r.Start(t0.Add(time.Minute)); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		err := r.Apply(ReportUpdate{WorkerArrivedAt: timePtr(t0.Add(time.Hour))}, t0)
		assertValidation(t, err, "start_time")
	})

	t.Run("worker_arrived_at twice", func(t *testing.T) {
		r := newOpenReport(t)
		if err := r.MarkWorkerArrived(t0.Add(time.Minute)); err != nil {
			t.Fatalf("MarkWorkerArrived() error = %v", err)
		}
		err := r.Apply(ReportUpdate{WorkerArrivedAt: timePtr(t0.Add(2 * time.Minute))}, t0)
		assertValidation(t, err, "worker_arrived_at")
	})
}

func TestApply_PhotoURLsAppendOnly(t *testing.T) {
	r := newOpenReport(t)
	if err := r.AddPhoto("uploads/a.jpg"); err != nil {
		t.Fatalf("AddPhoto() error = %v", err)
	}

	if err := r.Apply(ReportUpdate{PhotoURLs: []string{"uploads/a.jpg", "uploads/b.jpg"}}, t0); err != nil {
		t.Fatalf("append error = %v", err)
	}
	assertValidation(t, r.Apply(ReportUpdate{PhotoURLs: []string{"uploads/b.jpg"}}, t0), "photo_urls")

	want := StringArray{"uploads/a.jpg", "uploads/b.jpg"}
	if diff := cmp.Diff(want, r.PhotoURLs); diff != "" {
		t.Errorf("photo_urls mismatch (-want +got):\n%s", diff)
	}
}

func TestAddPhoto_AnyStatus(t *testing.T) {
	r := newOpenReport(t)
	if err := r.Close(t0.Add(time.Minute)); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := r.AddPhoto("uploads/after.png"); err != nil {
		t.Fatalf("AddPhoto() on closed report error = %v", err)
	}
	if err := r.AddPhoto("uploads/after.png"); err != nil {
		t.Fatalf("AddPhoto() duplicate error = %v", err)
	}
	if len(r.PhotoURLs) != 1 {
		t.Errorf("photo_urls = %v, want one entry", r.PhotoURLs)
	}
	assertValidation(t, r.AddPhoto(" "), "photo_urls")
}

func TestMonotonicTimestamps(t *testing.T) {
	r := newOpenReport(t)
	// clock running backwards must not break ordering
	if err := r.MarkWorkerArrived(t0.Add(10 * time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := r.Start(t0.Add(5 * time.Minute)); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(t0.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	if r.WorkerArrivedAt.Before(r.CreatedAt) ||
		r.StartTime.Before(*r.WorkerArrivedAt) ||
		r.CompletedAt.Before(*r.StartTime) {
		t.Errorf("timestamps out of order: created=%v arrived=%v start=%v completed=%v",
			r.CreatedAt, r.WorkerArrivedAt, r.StartTime, r.CompletedAt)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLifecycleScenario(t *testing.T) {
	r := newOpenReport(t)
	if r.Status != StatusOpen || len(r.PhotoURLs) != 0 {
		t.Fatalf("unexpected new report: %+v", r)
	}

	if err := r.MarkWorkerArrived(t0.Add(time.Minute)); err != nil {
		t.Fatalf("MarkWorkerArrived() error = %v", err)
	}
	if r.WorkerArrivedAt == nil || r.Status != StatusOpen {
		t.Fatalf("after arrival: status=%s arrived=%v", r.Status, r.WorkerArrivedAt)
	}

	if err := r.Apply(ReportUpdate{Status: statusPtr(StatusInProgress)}, t0.Add(2*time.Minute)); err != nil {
		t.Fatalf("start error = %v", err)
	}
	if r.StartTime == nil || r.Status != StatusInProgress {
		t.Fatalf("after start: status=%s start=%v", r.Status, r.StartTime)
	}

	if err := r.AddPhoto("uploads/evidence.jpg"); err != nil {
		t.Fatalf("AddPhoto() error = %v", err)
	}
	if len(r.PhotoURLs) != 1 {
		t.Fatalf("photo_urls = %v", r.PhotoURLs)
	}

	if err := r.Apply(ReportUpdate{Status: statusPtr(StatusClosed)}, t0.Add(47*time.Minute)); err != nil {
		t.Fatalf("close error = %v", err)
	}
	if r.CompletedAt == nil || r.TotalDurationMinutes == nil || *r.TotalDurationMinutes != 47 {
		t.Fatalf("after close: completed=%v duration=%v", r.CompletedAt, r.TotalDurationMinutes)
	}

	assertValidation(t, r.Apply(ReportUpdate{Status: statusPtr(StatusOpen)}, t0.Add(time.Hour)), "status")
}

func TestValidate_DetectsInconsistentDuration(t *testing.T) {
	r := newOpenReport(t)
	if err := r.Close(t0.Add(10 * time.Minute)); err != nil {
		t.Fatal(err)
	}
	wrong := 3
	r.TotalDurationMinutes = &wrong
	assertValidation(t, r.Validate(), "total_duration_minutes")
}

func TestListFilter_Matches(t *testing.T) {
	r := newOpenReport(t)
	tests := []struct {
		name   string
		filter ListFilter
		want   bool
	}{
		{"empty", ListFilter{}, true},
		{"status match", ListFilter{Status: StatusOpen}, true},
		{"status miss", ListFilter{Status: StatusClosed}, false},
		{"line match", ListFilter{LineID: "L1"}, true},
		{"line miss", ListFilter{LineID: "L2"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(r); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
