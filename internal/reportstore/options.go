package reportstore

import (
	"time"

	"github.com/timmy/linemaint/internal/domain"
)

type options struct {
	now   func() time.Time
	newID func() string
}

func defaultOptions() options {
	return options{
		now:   func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		newID: domain.NewReportID,
	}
}

// Option customizes a store.
type Option func(*options)

// WithClock sets the time source used for transition timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator sets the report id generator. Only MemoryStore issues ids.
func WithIDGenerator(newID func() string) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}
