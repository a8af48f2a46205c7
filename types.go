package skyfetch

import (
	"context"
	"encoding/json"
	"time"
)

// Store is the persistent key-value capability the cache persists through.
// Implementations must be safe for concurrent use. The bool reports presence;
// an error reports storage I/O failure, which the cache treats as a miss
// rather than a fatal condition.
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// Transport performs a single HTTP GET and returns the status code and body.
// It is the lowest-level primitive the fetch layer builds on; caching, retry
// and scheduling policy all live above it.
type Transport interface {
	Get(ctx context.Context, rawURL string, timeout time.Duration) (int, []byte, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, rawURL string, timeout time.Duration) (int, []byte, error)

// Get implements Transport.
func (f TransportFunc) Get(ctx context.Context, rawURL string, timeout time.Duration) (int, []byte, error) {
	return f(ctx, rawURL, timeout)
}

// TTLPolicy maps a request URL to the cache lifetime of its resource class.
type TTLPolicy func(rawURL string) time.Duration

// FetchOptions control a single Get call. The zero value disables caching and
// offline fallback; use DefaultFetchOptions for the common configuration.
type FetchOptions struct {
	// UseCache enables the fresh-cache fast path before any network activity.
	UseCache bool

	// AllowOffline enables the stale-cache fallback after a failed fetch.
	AllowOffline bool

	// TTL overrides the client's TTL policy for this call when positive.
	TTL time.Duration

	// Timeout overrides the client's per-attempt timeout when positive.
	Timeout time.Duration
}

// DefaultFetchOptions returns the options used when Get receives nil options.
func DefaultFetchOptions() *FetchOptions {
	return &FetchOptions{
		UseCache:     true,
		AllowOffline: true,
	}
}

// Result is the outcome of a successful Get. Data holds the raw JSON payload.
// Stale is set when the value came from an expired cache entry after a failed
// fetch; callers presenting the data must surface that flag.
type Result struct {
	Data      json.RawMessage
	Stale     bool
	FromCache bool
	FetchedAt time.Time
}

// Option configures a Client at construction time.
type Option func(*Client)
