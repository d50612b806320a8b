package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, carried through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldReportID is the failure report being worked on
	FieldReportID = "report_id"

	// FieldLineID is the production line of the report
	FieldLineID = "line_id"
)

// Metric fields, attached to single entries for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
	FieldMethod     = "method"
	FieldURL        = "url"
)
