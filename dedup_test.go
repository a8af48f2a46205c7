package skyfetch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func TestDedupSingleExecution(t *testing.T) {
	tracker := newInflightTracker()

	var calls int32
	release := make(chan struct{})
	started := make(chan struct{})

	fn := func() (*Result, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return &Result{Data: json.RawMessage(`{"temp":21}`)}, nil
	}

	const waiters = 5
	results := make([]*Result, waiters)

	var g errgroup.Group
	g.Go(func() error {
		res, err, owner := tracker.Do(context.Background(), "key", fn)
		if !owner {
			t.Error("First caller should own the fetch")
		}
		results[0] = res
		return err
	})

	<-started
	for i := 1; i < waiters; i++ {
		i := i
		g.Go(func() error {
			res, err, owner := tracker.Do(context.Background(), "key", fn)
			if owner {
				t.Error("Duplicate caller should not own the fetch")
			}
			results[i] = res
			return err
		})
	}

	// Give the waiters time to attach before resolving.
	time.Sleep(50 * time.Millisecond)
	close(release)

	if err := g.Wait(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected exactly 1 execution, got %d", got)
	}
	for i, res := range results {
		if res != results[0] {
			t.Errorf("Caller %d received a different result instance", i)
		}
	}
}

func TestDedupErrorBroadcast(t *testing.T) {
	tracker := newInflightTracker()
	wantErr := &Error{Type: ErrorTypeServer, Message: "server error response"}

	release := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, 3)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0], _ = tracker.Do(context.Background(), "key", func() (*Result, error) {
			<-release
			return nil, wantErr
		})
	}()

	time.Sleep(20 * time.Millisecond)
	for i := 1; i < 3; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i], _ = tracker.Do(context.Background(), "key", func() (*Result, error) {
				t.Error("Duplicate caller must not execute the operation")
				return nil, nil
			})
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, wantErr) {
			t.Errorf("Caller %d: expected broadcast error, got %v", i, err)
		}
	}
}

func TestDedupEntryRemovedAfterResolution(t *testing.T) {
	tracker := newInflightTracker()

	var calls int32
	fn := func() (*Result, error) {
		atomic.AddInt32(&calls, 1)
		return &Result{}, nil
	}

	if _, err, _ := tracker.Do(context.Background(), "key", fn); err != nil {
		t.Fatal(err)
	}
	if _, err, _ := tracker.Do(context.Background(), "key", fn); err != nil {
		t.Fatal(err)
	}

	// Sequential calls are separate fetches: the entry is destroyed the
	// moment it resolves.
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected 2 executions for sequential calls, got %d", got)
	}
}

func TestDedupWaiterContextCancel(t *testing.T) {
	tracker := newInflightTracker()

	release := make(chan struct{})
	defer close(release)
	go func() {
		_, _, _ = tracker.Do(context.Background(), "key", func() (*Result, error) {
			<-release
			return &Result{}, nil
		})
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err, owner := tracker.Do(ctx, "key", func() (*Result, error) {
		return &Result{}, nil
	})
	if owner {
		t.Fatal("Caller should have attached as waiter")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDedupDispose(t *testing.T) {
	tracker := newInflightTracker()

	release := make(chan struct{})
	defer close(release)
	waiterErr := make(chan error, 1)

	go func() {
		_, _, _ = tracker.Do(context.Background(), "key", func() (*Result, error) {
			<-release
			return &Result{}, nil
		})
	}()
	time.Sleep(20 * time.Millisecond)

	go func() {
		_, err, _ := tracker.Do(context.Background(), "key", func() (*Result, error) {
			t.Error("Waiter must not execute the operation")
			return nil, nil
		})
		waiterErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	tracker.dispose()

	select {
	case err := <-waiterErr:
		var fetchErr *Error
		if !errors.As(err, &fetchErr) || fetchErr.Type != ErrorTypeDisposed {
			t.Errorf("Expected Disposed error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Waiter was left pending after dispose")
	}

	_, err, _ := tracker.Do(context.Background(), "other", func() (*Result, error) {
		return &Result{}, nil
	})
	var fetchErr *Error
	if !errors.As(err, &fetchErr) || fetchErr.Type != ErrorTypeDisposed {
		t.Errorf("Expected Disposed error after dispose, got %v", err)
	}
}
