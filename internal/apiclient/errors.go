package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	networkErrorMessage   = "Network request failed"
	networkErrorDetail    = "Network error. Please check your connection."
	unexpectedErrorDetail = "An unexpected error occurred"
	validationErrorType   = "ValidationError"
)

// ErrorKind classifies how a request failed.
type ErrorKind int

const (
	// KindNetwork means no response was received.
	KindNetwork ErrorKind = iota + 1
	// KindServerRejected means the server answered with a non-2xx status and
	// a structured JSON body.
	KindServerRejected
	// KindServerRejectedOpaque means the server answered with a non-2xx status
	// and a body that carries no structured detail.
	KindServerRejectedOpaque
	// KindInternal means the client failed locally, for example while decoding
	// a response or because the caller canceled the request.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServerRejected:
		return "server_rejected"
	case KindServerRejectedOpaque:
		return "server_rejected_opaque"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// ErrorDetail is the structured payload the server returned with a failure.
// Raw keeps the whole object so fields not modeled here are not lost.
type ErrorDetail struct {
	Message string          `json:"message,omitempty"`
	Type    string          `json:"type,omitempty"`
	Field   string          `json:"field,omitempty"`
	Detail  json.RawMessage `json:"detail,omitempty"`
	Raw     json.RawMessage `json:"-"`
}

// DetailText returns the server's detail field as plain text.
func (d ErrorDetail) DetailText() string {
	if len(d.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(d.Detail, &s); err == nil {
		return s
	}
	return string(d.Detail)
}

// APIError is the single error type returned by Client. Status is 0 for
// network failures and 500 for internal failures.
type APIError struct {
	Status  int
	Detail  ErrorDetail
	Message string
	Kind    ErrorKind
	Err     error
}

// NewAPIError builds an error from a status, a detail payload and a message.
// The kind is derived from the status.
func NewAPIError(status int, detail ErrorDetail, message string) *APIError {
	kind := KindServerRejected
	if status == 0 {
		kind = KindNetwork
	}
	return &APIError{Status: status, Detail: detail, Message: message, Kind: kind}
}

func (e *APIError) Error() string {
	if e.Err != nil && e.Message != e.Err.Error() {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func networkError(cause error) *APIError {
	return &APIError{
		Status:  0,
		Detail:  ErrorDetail{Message: networkErrorDetail},
		Message: networkErrorMessage,
		Kind:    KindNetwork,
		Err:     cause,
	}
}

func internalError(cause error) *APIError {
	return &APIError{
		Status:  http.StatusInternalServerError,
		Detail:  ErrorDetail{Message: unexpectedErrorDetail},
		Message: cause.Error(),
		Kind:    KindInternal,
		Err:     cause,
	}
}

func opaqueError(status int, verb string) *APIError {
	return &APIError{
		Status:  status,
		Detail:  ErrorDetail{Message: fmt.Sprintf("HTTP error! status: %d", status)},
		Message: fmt.Sprintf("%s failed with status %d", verb, status),
		Kind:    KindServerRejectedOpaque,
	}
}

// AsAPIError unwraps err to an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNetworkError reports whether err is a failure to reach the server.
func IsNetworkError(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Status == 0
}

// IsNotFound reports whether the server answered 404.
func IsNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Status == http.StatusNotFound
}

// IsValidationError reports whether the server rejected the request as
// invalid, either with 422 or with a ValidationError payload.
func IsValidationError(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	return apiErr.Status == http.StatusUnprocessableEntity || apiErr.Detail.Type == validationErrorType
}

// UserMessage returns text suitable for showing to an operator.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if apiErr, ok := AsAPIError(err); ok {
		if msg := strings.TrimSpace(apiErr.Detail.Message); msg != "" {
			return msg
		}
		return apiErr.Message
	}
	return err.Error()
}
