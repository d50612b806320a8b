package domain

import (
	"strings"

	"github.com/google/uuid"
)

// ReportIDPrefix marks identifiers issued for failure reports.
const ReportIDPrefix = "fr_"

// NewReportID returns a fresh report identifier such as "fr_3f9a12bc".
func NewReportID() string {
	return ReportIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
