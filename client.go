package skyfetch

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/George-Cain/Ride-or-Drive-Weather-sub000/internal/backoff"
)

// Default policy set. One consistent configuration is used for every
// resource class instead of per-call-site constants.
const (
	DefaultMaxRetries     = 3
	DefaultBaseDelay      = 500 * time.Millisecond
	DefaultMaxDelay       = 5 * time.Second
	DefaultJitter         = 0.1
	DefaultTimeout        = 10 * time.Second
	DefaultMaxConcurrency = 4
	DefaultMaxEntries     = 100
	DefaultIdleTimeout    = 90 * time.Second
	DefaultSweepInterval  = 30 * time.Second
	DefaultCachePrefix    = "weather_cache_"

	// Per-resource-class cache lifetimes.
	DefaultCurrentTTL  = 10 * time.Minute
	DefaultForecastTTL = time.Hour
	DefaultTTL         = 30 * time.Minute
)

// Client is the single entry point for fetching weather JSON resources. It
// layers a persistent TTL cache, request de-duplication, bounded-concurrency
// scheduling, classified retries and per-host connection pooling around one
// HTTP GET primitive. Safe for concurrent use.
type Client struct {
	maxRetries     int
	baseDelay      time.Duration
	maxDelay       time.Duration
	multiplier     float64
	jitter         float64
	timeout        time.Duration
	maxConcurrency int
	maxEntries     int
	cachePrefix    string
	idleTimeout    time.Duration
	sweepInterval  time.Duration
	ttlPolicy      TTLPolicy
	strategy       backoff.Strategy
	header         http.Header

	store           Store
	transport       Transport
	rateLimiter     *RateLimiter
	breakerSettings *gobreaker.Settings
	logger          Logger
	metrics         *MetricsCollector
	debug           *DebugConfig

	cache    *CacheStore
	pool     *ConnectionPool
	fetch    *fetcher
	inflight *inflightTracker
	sched    *scheduler

	closed          atomic.Bool
	validationError error
}

// New constructs a Client using the provided functional options. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		maxRetries:     DefaultMaxRetries,
		baseDelay:      DefaultBaseDelay,
		maxDelay:       DefaultMaxDelay,
		multiplier:     2.0,
		jitter:         DefaultJitter,
		timeout:        DefaultTimeout,
		maxConcurrency: DefaultMaxConcurrency,
		maxEntries:     DefaultMaxEntries,
		cachePrefix:    DefaultCachePrefix,
		idleTimeout:    DefaultIdleTimeout,
		sweepInterval:  DefaultSweepInterval,
		ttlPolicy:      DefaultTTLPolicy,
		strategy:       backoff.LinearJitterStrategy{},
		debug:          DefaultDebugConfig(),
	}

	for _, option := range options {
		option(client)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	if client.debug == nil {
		client.debug = DefaultDebugConfig()
	}

	if client.store == nil {
		client.store = NewMemoryStore()
	}
	client.cache = NewCacheStore(client.store, client.cachePrefix, client.maxEntries, client.logger)
	client.pool = NewConnectionPool(client.idleTimeout, client.sweepInterval, client.logger)
	if client.transport == nil {
		client.transport = newPoolTransport(client.pool, client.header)
	}

	var breaker *gobreaker.CircuitBreaker
	if client.breakerSettings != nil {
		breaker = gobreaker.NewCircuitBreaker(*client.breakerSettings)
	}

	client.fetch = &fetcher{
		transport:   client.transport,
		breaker:     breaker,
		rateLimiter: client.rateLimiter,
		maxRetries:  client.maxRetries,
		baseDelay:   client.baseDelay,
		maxDelay:    client.maxDelay,
		multiplier:  client.multiplier,
		jitter:      client.jitter,
		calculator:  backoff.NewCalculator(client.strategy),
		logger:      client.logger,
		debug:       client.debug,
		metrics:     client.metrics,
	}
	client.inflight = newInflightTracker()
	client.sched = newScheduler(client.maxConcurrency, client.metrics, client.logger, client.debug)

	return client
}

// DefaultTTLPolicy assigns cache lifetimes by resource class: current
// conditions change quickly and get a short TTL, forecasts a longer one.
func DefaultTTLPolicy(rawURL string) time.Duration {
	switch {
	case strings.Contains(rawURL, "current"):
		return DefaultCurrentTTL
	case strings.Contains(rawURL, "forecast"):
		return DefaultForecastTTL
	default:
		return DefaultTTL
	}
}

// Get fetches the JSON resource at rawURL with the given query parameters.
//
// The call checks the fresh cache first, then joins or starts the single
// in-flight fetch for the resource, waiting for a concurrency slot if the
// scheduler is at capacity. On success the payload is cached and returned; on
// terminal failure an expired cache entry is returned marked stale when
// opts.AllowOffline is set, otherwise the classified error surfaces.
//
// A nil opts uses DefaultFetchOptions.
func (c *Client) Get(ctx context.Context, rawURL string, params map[string]string, opts *FetchOptions) (*Result, error) {
	if c.closed.Load() {
		return nil, disposedError("client closed")
	}
	if opts == nil {
		opts = DefaultFetchOptions()
	}

	start := time.Now()
	endpoint := endpointFromURL(rawURL)

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}

	fullURL, err := BuildURL(rawURL, params)
	if err != nil {
		return nil, &Error{
			Type:      ErrorTypeClient,
			Message:   "invalid request URL",
			Cause:     err,
			RequestID: requestID,
			URL:       rawURL,
			Timestamp: time.Now(),
		}
	}

	key := GenerateKey(rawURL, params)
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = c.ttlPolicy(rawURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	if c.debugEnabled(c.debug.LogRequests) {
		c.logger.Debug("starting request", "requestID", requestID, "url", fullURL, "key", key, "ttl", ttl)
	}
	if c.metrics != nil {
		c.metrics.RecordRequestStart(endpoint)
		defer c.metrics.RecordRequestEnd(endpoint)
	}

	if opts.UseCache {
		if entry, ok := c.cache.Get(key, ttl); ok {
			if c.debugEnabled(c.debug.LogCache) {
				c.logger.Debug("cache hit", "requestID", requestID, "key", key)
			}
			if c.metrics != nil {
				c.metrics.RecordCacheHit(endpoint)
				c.metrics.RecordRequest(endpoint, http.StatusOK, time.Since(start))
			}
			return &Result{
				Data:      entry.Data,
				FromCache: true,
				FetchedAt: entry.CreatedAt,
			}, nil
		}

		if c.metrics != nil {
			c.metrics.RecordCacheMiss(endpoint)
		}
		if c.debugEnabled(c.debug.LogCache) {
			c.logger.Debug("cache miss", "requestID", requestID, "key", key)
		}
	}

	result, err, owner := c.inflight.Do(ctx, key, func() (*Result, error) {
		return c.sched.Run(ctx, false, func() (*Result, error) {
			data, fetchErr := c.fetch.Fetch(ctx, fullURL, timeout, requestID)
			if fetchErr != nil {
				return nil, fetchErr
			}

			now := time.Now()
			c.cache.Put(key, data, now)
			if c.metrics != nil {
				c.metrics.RecordCacheSize(c.cache.Len())
				c.metrics.RecordPoolSize(c.pool.Len())
			}

			return &Result{Data: data, FetchedAt: now}, nil
		})
	})

	if !owner && c.debugEnabled(c.debug.LogDedup) {
		c.logger.Debug("attached to in-flight request", "requestID", requestID, "key", key)
	}
	if !owner && err == nil && c.metrics != nil {
		c.metrics.RecordDeduplicationHit(endpoint)
	}

	if err != nil {
		if opts.AllowOffline && IsStaleServable(err) {
			if stale, ok := c.cache.GetStale(key); ok {
				if c.debugEnabled(c.debug.LogCache) {
					c.logger.Warn("fetch failed, serving stale cache entry", "requestID", requestID, "key", key, "error", err)
				}
				if c.metrics != nil {
					c.metrics.RecordStaleServed(endpoint)
					c.metrics.RecordRequest(endpoint, http.StatusOK, time.Since(start))
				}
				return &Result{
					Data:      stale.Data,
					Stale:     true,
					FromCache: true,
					FetchedAt: stale.CreatedAt,
				}, nil
			}
		}

		if c.metrics != nil {
			c.metrics.RecordRequest(endpoint, errorStatusCode(err), time.Since(start))
		}
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.RecordRequest(endpoint, http.StatusOK, time.Since(start))
	}
	return result, nil
}

// RemoveCached invalidates the cache entry for the given request.
func (c *Client) RemoveCached(rawURL string, params map[string]string) {
	c.cache.Remove(GenerateKey(rawURL, params))
}

// ClearCache invalidates every cached entry.
func (c *Client) ClearCache() {
	c.cache.Clear()
}

// Close disposes the client: pending in-flight and queued requests fail with
// a Disposed error, the connection pool sweep stops, and future Get calls are
// rejected. Safe to call more than once.
func (c *Client) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.inflight.dispose()
	c.sched.dispose()
	c.pool.Close()
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

func (c *Client) debugEnabled(flag bool) bool {
	return c.debug != nil && c.debug.Enabled && flag && c.logger != nil
}

func errorStatusCode(err error) int {
	var fetchErr *Error
	if errors.As(err, &fetchErr) {
		return fetchErr.StatusCode
	}
	return 0
}
