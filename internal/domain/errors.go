package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned (wrapped) when a report id does not exist.
var ErrNotFound = errors.New("failure report not found")

// NotFound wraps ErrNotFound with the missing id.
func NotFound(id string) error {
	return fmt.Errorf("failure report with ID '%s' not found: %w", id, ErrNotFound)
}

// ValidationError reports a request that would break a report invariant.
// It is distinct from transport failures: the request reached its target and
// was semantically invalid.
type ValidationError struct {
	Field   string
	Message string
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error in field '%s': %s", e.Field, e.Message)
	}
	return "validation error: " + e.Message
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
