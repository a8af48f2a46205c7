package skyfetch

import (
	"context"
	"sync"
)

// inflightEntry is an in-flight fetch shared between callers. The owner
// resolves it exactly once; every waiter observes the identical result.
type inflightEntry struct {
	result  *Result
	err     error
	done    chan struct{}
	mu      sync.Mutex
	waiters int
}

// inflightTracker collapses concurrent fetches for the same resource key into
// a single underlying operation.
type inflightTracker struct {
	mu      sync.Mutex
	entries map[string]*inflightEntry
	closed  bool
}

func newInflightTracker() *inflightTracker {
	return &inflightTracker{
		entries: make(map[string]*inflightEntry),
	}
}

// getOrCreate returns an existing entry (owner=false) or registers a new one
// (owner=true). Returns a disposed error once the tracker is closed.
func (t *inflightTracker) getOrCreate(key string) (*inflightEntry, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, false, disposedError("client closed before request started")
	}

	if entry, exists := t.entries[key]; exists {
		entry.mu.Lock()
		entry.waiters++
		entry.mu.Unlock()
		return entry, false, nil
	}

	entry := &inflightEntry{
		done:    make(chan struct{}),
		waiters: 1,
	}
	t.entries[key] = entry
	return entry, true, nil
}

// complete resolves an entry, releases its waiters and removes it from the
// table. Entries never outlive their resolution, so a key can be fetched
// again immediately after the previous fetch settles.
func (t *inflightTracker) complete(key string, result *Result, err error) {
	t.mu.Lock()
	entry, exists := t.entries[key]
	delete(t.entries, key)
	t.mu.Unlock()

	if !exists {
		return
	}

	entry.mu.Lock()
	entry.result = result
	entry.err = err
	entry.mu.Unlock()
	close(entry.done)
}

// wait blocks until the owning request completes or ctx cancels. A waiter
// abandoning interest does not cancel the shared fetch.
func (e *inflightEntry) wait(ctx context.Context) (*Result, error) {
	select {
	case <-e.done:
		e.mu.Lock()
		result := e.result
		err := e.err
		e.mu.Unlock()
		return result, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Do executes fn at most once per key across concurrent callers. The owner
// invokes fn and broadcasts its outcome; everyone attached to the same key
// receives that same result or error.
func (t *inflightTracker) Do(ctx context.Context, key string, fn func() (*Result, error)) (*Result, error, bool) {
	entry, owner, err := t.getOrCreate(key)
	if err != nil {
		return nil, err, false
	}

	if !owner {
		result, err := entry.wait(ctx)
		return result, err, false
	}

	result, fnErr := fn()
	t.complete(key, result, fnErr)
	return result, fnErr, true
}

// dispose fails every pending entry and rejects future calls. Used for
// orderly shutdown so no waiter is left pending forever.
func (t *inflightTracker) dispose() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	pending := t.entries
	t.entries = make(map[string]*inflightEntry)
	t.mu.Unlock()

	for _, entry := range pending {
		entry.mu.Lock()
		entry.err = disposedError("client closed with request in flight")
		entry.mu.Unlock()
		close(entry.done)
	}
}

func disposedError(message string) *Error {
	return &Error{
		Type:    ErrorTypeDisposed,
		Message: message,
		Cause:   ErrClosed,
	}
}
