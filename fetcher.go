package skyfetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/George-Cain/Ride-or-Drive-Weather-sub000/internal/backoff"
)

// fetcher performs one logical fetch: a bounded sequence of attempts with
// failure classification and backoff over the transport primitive.
type fetcher struct {
	transport   Transport
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *RateLimiter

	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64
	jitter     float64
	calculator *backoff.Calculator

	logger  Logger
	debug   *DebugConfig
	metrics *MetricsCollector
}

// Fetch runs up to maxRetries attempts against rawURL and returns the parsed
// payload or a classified error.
//
// Classification: 2xx parses the body (malformed JSON is a non-retryable
// parse failure); 4xx is a non-retryable client failure; 5xx and transport
// errors are retryable up to the attempt limit, sleeping a backoff delay
// between attempts.
func (f *fetcher) Fetch(ctx context.Context, rawURL string, timeout time.Duration, requestID string) (json.RawMessage, error) {
	endpoint := endpointFromURL(rawURL)
	var lastErr error

	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if attempt > 1 {
			delay := f.calculator.Calculate(attempt-1, f.baseDelay, f.maxDelay, f.multiplier, f.jitter)

			if f.debugEnabled(f.debug.LogRetries) {
				f.logger.Info("scheduling retry", "requestID", requestID, "attempt", attempt, "maxRetries", f.maxRetries, "backoff", delay, "endpoint", endpoint)
			}
			if f.metrics != nil {
				f.metrics.RecordRetry(endpoint, attempt)
			}

			if err := sleepContext(ctx, delay); err != nil {
				return nil, f.classify(ErrorTypeNetwork, "request canceled during backoff", err, rawURL, 0, attempt, requestID)
			}
		}

		if f.rateLimiter != nil && !f.rateLimiter.Allow() {
			if f.debugEnabled(f.debug.LogRequests) {
				f.logger.Warn("rate limit exceeded", "requestID", requestID, "endpoint", endpoint)
			}
			if f.metrics != nil {
				f.metrics.RecordError(ErrorTypeRateLimit, endpoint)
			}
			return nil, f.classify(ErrorTypeRateLimit, "rate limit exceeded", nil, rawURL, 0, attempt, requestID)
		}

		status, body, err := f.roundTrip(ctx, rawURL, timeout)

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				if f.metrics != nil {
					f.metrics.RecordError(ErrorTypeCircuitOpen, endpoint)
				}
				return nil, f.classify(ErrorTypeCircuitOpen, "circuit breaker is open", err, rawURL, 0, attempt, requestID)
			}

			lastErr = f.classify(ErrorTypeNetwork, "network request failed", err, rawURL, 0, attempt, requestID)
			if f.metrics != nil {
				f.metrics.RecordError(ErrorTypeNetwork, endpoint)
			}

			// No point in further attempts once the caller has gone away.
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}

		switch {
		case status >= 200 && status < 300:
			if !json.Valid(body) {
				if f.metrics != nil {
					f.metrics.RecordError(ErrorTypeParse, endpoint)
				}
				return nil, f.classify(ErrorTypeParse, "malformed response payload", nil, rawURL, status, attempt, requestID)
			}
			return json.RawMessage(body), nil

		case status >= 400 && status < 500:
			if f.metrics != nil {
				f.metrics.RecordError(ErrorTypeClient, endpoint)
			}
			return nil, f.classify(ErrorTypeClient, "request rejected by server", nil, rawURL, status, attempt, requestID)

		default:
			lastErr = f.classify(ErrorTypeServer, "server error response", nil, rawURL, status, attempt, requestID)
			if f.metrics != nil {
				f.metrics.RecordError(ErrorTypeServer, endpoint)
			}
		}
	}

	return nil, lastErr
}

func (f *fetcher) roundTrip(ctx context.Context, rawURL string, timeout time.Duration) (int, []byte, error) {
	if f.breaker == nil {
		return f.transport.Get(ctx, rawURL, timeout)
	}

	type roundTripResult struct {
		status int
		body   []byte
	}

	result, err := f.breaker.Execute(func() (interface{}, error) {
		status, body, err := f.transport.Get(ctx, rawURL, timeout)
		if err != nil {
			return nil, err
		}
		if status >= 500 {
			// Count upstream failures against the breaker but keep the
			// response for normal classification.
			return roundTripResult{status: status, body: body}, errServerStatus
		}
		return roundTripResult{status: status, body: body}, nil
	})

	if err != nil && !errors.Is(err, errServerStatus) {
		return 0, nil, err
	}

	rt, ok := result.(roundTripResult)
	if !ok {
		return 0, nil, err
	}
	return rt.status, rt.body, nil
}

// errServerStatus feeds 5xx responses into the breaker failure count while
// still delivering the status to the retry loop.
var errServerStatus = errors.New("skyfetch: server error status")

func (f *fetcher) classify(errorType, message string, cause error, rawURL string, status, attempt int, requestID string) *Error {
	return &Error{
		Type:       errorType,
		Message:    message,
		Cause:      cause,
		RequestID:  requestID,
		URL:        rawURL,
		StatusCode: status,
		Attempt:    attempt,
		MaxRetries: f.maxRetries,
		Timestamp:  time.Now(),
	}
}

func (f *fetcher) debugEnabled(flag bool) bool {
	return f.debug != nil && f.debug.Enabled && flag && f.logger != nil
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func endpointFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}

	host := u.Host
	path := u.Path
	if path == "" || path == "/" {
		return host + "/"
	}
	return host + path
}
