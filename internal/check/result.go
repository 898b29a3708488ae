package check

import (
	"fmt"
	"time"
)

// Status represents the health state of a resource.
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// severity orders statuses for worst-of aggregation. Skipped is outside the
// ordering and must be excluded by the caller.
func (s Status) severity() int {
	switch s {
	case StatusError:
		return 2
	case StatusWarning:
		return 1
	default:
		return 0
	}
}

// Worse reports whether s is a worse condition than other.
func (s Status) Worse(other Status) bool {
	return s.severity() > other.severity()
}

// Valid reports whether s is one of the defined status values.
func (s Status) Valid() bool {
	switch s {
	case StatusHealthy, StatusWarning, StatusError, StatusSkipped:
		return true
	}
	return false
}

// Result is the outcome of a single resource check.
type Result struct {
	ResourceName string            `json:"resource"`
	Status       Status            `json:"status"`
	Message      string            `json:"message,omitempty"`
	Duration     time.Duration     `json:"duration_ns"`
	CheckedAt    time.Time         `json:"checked_at"`
	Meta         map[string]string `json:"meta,omitempty"`
}

// Report is what a check function returns: the observed condition of the
// probed resource. The engine fills in identity, timing, and caching.
type Report struct {
	Status  Status
	Message string
	Meta    map[string]string
}

// Healthy is a convenience report for a resource found in good shape.
func Healthy(message string) Report {
	return Report{Status: StatusHealthy, Message: message}
}

// Warningf builds a warning report.
func Warningf(format string, args ...any) Report {
	return Report{Status: StatusWarning, Message: fmt.Sprintf(format, args...)}
}

// Errorf builds an error report.
func Errorf(format string, args ...any) Report {
	return Report{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}
