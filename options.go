package skyfetch

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/George-Cain/Ride-or-Drive-Weather-sub000/internal/backoff"
)

// WithMaxRetries sets the total number of attempts per logical fetch.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBaseDelay sets the base backoff delay between retry attempts.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// WithMaxDelay caps the backoff delay.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithBackoffMultiplier sets the multiplier used by the exponential strategy.
func WithBackoffMultiplier(f float64) Option {
	return func(c *Client) {
		c.multiplier = f
	}
}

// WithJitter sets the jitter factor for backoff (0.0 to 1.0).
func WithJitter(f float64) Option {
	return func(c *Client) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		c.jitter = f
	}
}

// WithBackoffStrategy selects the backoff algorithm; linear jitter is the default.
func WithBackoffStrategy(s backoff.Strategy) Option {
	return func(c *Client) {
		c.strategy = s
	}
}

// WithTimeout sets the default per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxConcurrency bounds the number of simultaneously active fetches.
func WithMaxConcurrency(n int) Option {
	return func(c *Client) {
		c.maxConcurrency = n
	}
}

// WithStore sets the persistent key-value backend for the cache.
func WithStore(store Store) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithCachePrefix sets the key prefix used in the persistent store.
func WithCachePrefix(prefix string) Option {
	return func(c *Client) {
		c.cachePrefix = prefix
	}
}

// WithMaxCacheEntries bounds the number of retained cache entries.
func WithMaxCacheEntries(n int) Option {
	return func(c *Client) {
		c.maxEntries = n
	}
}

// WithTTLPolicy sets the resource-class TTL policy.
func WithTTLPolicy(policy TTLPolicy) Option {
	return func(c *Client) {
		c.ttlPolicy = policy
	}
}

// WithTransport sets a custom one-GET transport primitive, replacing the
// pooled HTTP transport.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithHeader sets headers added to every outgoing request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		c.header = header
	}
}

// WithIdleTimeout sets how long an unused pooled connection survives.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.idleTimeout = d
	}
}

// WithSweepInterval sets how often the pool looks for idle connections.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Client) {
		c.sweepInterval = d
	}
}

// WithRateLimiter limits outgoing attempts with a token bucket.
func WithRateLimiter(maxTokens int, refillRate time.Duration) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(maxTokens, refillRate)
	}
}

// WithCircuitBreaker wraps the transport in a circuit breaker.
func WithCircuitBreaker(settings gobreaker.Settings) Option {
	return func(c *Client) {
		c.breakerSettings = &settings
	}
}

// WithMetrics enables Prometheus metrics collection on the default registry.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets a custom logger for debug output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with a simple console logger.
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithDebug enables debug logging with default configuration.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// ValidateConfiguration checks the client configuration for values that
// would make requests misbehave.
func (c *Client) ValidateConfiguration() error {
	var problems []string

	if c.maxRetries < 1 {
		problems = append(problems, fmt.Sprintf("maxRetries must be at least 1, got %d", c.maxRetries))
	}
	if c.baseDelay <= 0 {
		problems = append(problems, fmt.Sprintf("baseDelay must be positive, got %v", c.baseDelay))
	}
	if c.maxDelay < c.baseDelay {
		problems = append(problems, fmt.Sprintf("maxDelay %v is below baseDelay %v", c.maxDelay, c.baseDelay))
	}
	if c.timeout <= 0 {
		problems = append(problems, fmt.Sprintf("timeout must be positive, got %v", c.timeout))
	}
	if c.maxConcurrency < 1 {
		problems = append(problems, fmt.Sprintf("maxConcurrency must be at least 1, got %d", c.maxConcurrency))
	}
	if c.maxEntries < 1 {
		problems = append(problems, fmt.Sprintf("maxCacheEntries must be at least 1, got %d", c.maxEntries))
	}
	if c.ttlPolicy == nil {
		problems = append(problems, "ttlPolicy must not be nil")
	}

	if len(problems) == 0 {
		return nil
	}

	return &Error{
		Type:      ErrorTypeValidation,
		Message:   fmt.Sprintf("invalid configuration: %v", problems),
		Timestamp: time.Now(),
	}
}
