package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the ingestion core. Callers classify with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrAuth              = errors.New("authentication error")
	ErrForbidden         = errors.New("access denied")
	ErrRateLimitExceeded = errors.New("rate limit retries exhausted")
	ErrUpstream          = errors.New("upstream error")
	ErrNetwork           = errors.New("network error")
	ErrCircuitOpen       = errors.New("circuit breaker is open")
	ErrRecordWrite       = errors.New("record write failed")
	ErrTenantNotFound    = errors.New("tenant not found")
	ErrSyncInProgress    = errors.New("sync already in progress")
)

// APIError describes a failed call to the Shopify Admin API.
type APIError struct {
	Kind       error // one of the sentinel errors above
	Method     string
	Path       string
	StatusCode int // zero when no response was received
	Attempts   int
	Message    string // truncated response body
	Err        error  // transport error, if any
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("shopify %s %s: %v", e.Method, e.Path, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the underlying transport error
func (e *APIError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// RecordWriteError is a single-record failure inside a pipeline. It never escapes the pipeline.
type RecordWriteError struct {
	Resource ResourceType
	RecordID string
	Err      error
}

func (e *RecordWriteError) Error() string {
	return fmt.Sprintf("failed to write %s %s: %v", e.Resource, e.RecordID, e.Err)
}

func (e *RecordWriteError) Unwrap() []error {
	return []error{ErrRecordWrite, e.Err}
}
