// Package skyfetch is the resilient HTTP request layer of the Ride or Drive
// Weather app: a cache-aware fetcher for JSON weather resources shared by
// independent call sites that may request the same resource concurrently.
//
// Reliability primitives, composed around a single lower-level "perform one
// HTTP GET" transport:
//
//   - Persistent TTL cache with per-resource-class lifetimes and
//     size-bounded oldest-first eviction
//   - Stale-cache fallback when the network is unavailable
//   - Request de-duplication (at most one fetch in flight per resource)
//   - Bounded concurrency with strict FIFO queuing of the excess
//   - Bounded retries with failure classification and backoff
//   - Per-host connection pooling with idle sweep
//   - Prometheus metrics and lightweight structured debug logging
//
// Design goals:
//   - Small surface area: functional options configure everything
//   - One consistent retry/TTL policy set instead of per-call-site drift
//   - Safe concurrent use of a single *Client instance
//   - Storage-engine agnostic: persistence goes through a plain key-value
//     Store capability
//
// Typical usage:
//
//	client := skyfetch.New(
//	    skyfetch.WithMaxRetries(3),
//	    skyfetch.WithMaxConcurrency(4),
//	    skyfetch.WithStore(skyfetch.NewMemoryStore()),
//	)
//	defer client.Close()
//	res, err := client.Get(ctx, currentConditionsURL, map[string]string{
//	    "lat": "40.71", "lon": "-74.00",
//	}, nil)
//
// A caller always receives either a value (fresh, or explicitly marked stale)
// or a classified failure; it never hangs indefinitely and never receives
// stale data without the staleness flag.
package skyfetch
