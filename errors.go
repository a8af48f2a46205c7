package skyfetch

import (
	"errors"
	"fmt"
	"time"
)

// Error type constants classifying terminal failures.
const (
	// ErrorTypeClient marks 4xx responses; the request is presumed
	// permanently invalid and is never retried.
	ErrorTypeClient = "Client"
	// ErrorTypeServer marks 5xx responses; retryable.
	ErrorTypeServer = "Server"
	// ErrorTypeNetwork marks connection failures and timeouts; retryable.
	ErrorTypeNetwork = "Network"
	// ErrorTypeParse marks malformed upstream payloads; never retried.
	ErrorTypeParse = "Parse"
	// ErrorTypeDisposed marks requests failed by Close while still pending.
	ErrorTypeDisposed = "Disposed"
	// ErrorTypeCache marks storage I/O failures. These never surface from
	// Get; they degrade to a cache miss with a warning log.
	ErrorTypeCache = "Cache"
	// ErrorTypeRateLimit marks requests denied by the local rate limiter.
	ErrorTypeRateLimit = "RateLimit"
	// ErrorTypeCircuitOpen marks requests short-circuited by the breaker.
	ErrorTypeCircuitOpen = "CircuitOpen"
	// ErrorTypeValidation marks invalid client configuration.
	ErrorTypeValidation = "Validation"
)

// Sentinel errors for common failure scenarios
var (
	// ErrClosed is returned for requests submitted after Close.
	ErrClosed = errors.New("skyfetch: client closed")

	// ErrCacheMiss is returned by cache lookups that found no usable entry.
	ErrCacheMiss = errors.New("skyfetch: cache miss")
)

// Error is a classified fetch failure carrying request diagnostics.
type Error struct {
	Type       string
	Message    string
	Cause      error
	RequestID  string
	URL        string
	StatusCode int
	Attempt    int
	MaxRetries int
	Timestamp  time.Time
	Duration   time.Duration
}

// Error implements error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.RequestID != "" {
		msg = fmt.Sprintf("[%s] %s", e.RequestID, msg)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxRetries)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*Error); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// IsRetryable determines if an error represents a transient failure that might
// succeed on retry. Returns true for network errors, timeouts and 5xx server
// responses. Returns false for 4xx client errors, parse failures and disposal.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var fetchErr *Error
	if errors.As(err, &fetchErr) {
		switch fetchErr.Type {
		case ErrorTypeNetwork, ErrorTypeServer, ErrorTypeRateLimit:
			return true
		default:
			return false
		}
	}

	return false
}

// IsStaleServable reports whether a failure is eligible for the stale-cache
// fallback. Disposal is excluded: a closing client must not hand out data.
func IsStaleServable(err error) bool {
	var fetchErr *Error
	if errors.As(err, &fetchErr) {
		return fetchErr.Type != ErrorTypeDisposed
	}
	return false
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *Error) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}
	info := fmt.Sprintf("Error Type: %s\n", e.Type)
	info += fmt.Sprintf("Message: %s\n", e.Message)
	if e.RequestID != "" {
		info += fmt.Sprintf("Request ID: %s\n", e.RequestID)
	}
	if e.URL != "" {
		info += fmt.Sprintf("URL: %s\n", e.URL)
	}
	if e.StatusCode > 0 {
		info += fmt.Sprintf("Status Code: %d\n", e.StatusCode)
	}
	if e.Attempt > 0 {
		info += fmt.Sprintf("Attempt: %d/%d\n", e.Attempt, e.MaxRetries)
	}
	if !e.Timestamp.IsZero() {
		info += fmt.Sprintf("Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Duration > 0 {
		info += fmt.Sprintf("Duration: %v\n", e.Duration)
	}
	if e.Cause != nil {
		info += fmt.Sprintf("Cause: %v\n", e.Cause)
	}
	return info
}
