package skyfetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerConcurrencyBound(t *testing.T) {
	s := newScheduler(2, nil, nil, nil)

	var active, peak int32
	release := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Run(context.Background(), false, func() (*Result, error) {
				n := atomic.AddInt32(&active, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				<-release
				atomic.AddInt32(&active, -1)
				return &Result{}, nil
			})
		}()
	}

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&active); got != 2 {
		t.Errorf("Expected exactly 2 active operations, got %d", got)
	}

	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&peak); got > 2 {
		t.Errorf("Concurrency bound violated: peak %d", got)
	}
}

func TestSchedulerFIFOOrder(t *testing.T) {
	s := newScheduler(1, nil, nil, nil)

	block := make(chan struct{})
	holderRunning := make(chan struct{})
	go func() {
		_, _ = s.Run(context.Background(), false, func() (*Result, error) {
			close(holderRunning)
			<-block
			return &Result{}, nil
		})
	}()
	<-holderRunning

	const queued = 5
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 0; i < queued; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Run(context.Background(), false, func() (*Result, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return &Result{}, nil
			})
		}()
		// Serialize enqueueing so submission order is deterministic.
		time.Sleep(20 * time.Millisecond)
	}

	close(block)
	wg.Wait()

	for i, got := range order {
		if got != i {
			t.Fatalf("Expected FIFO dispatch order, got %v", order)
		}
	}
}

func TestSchedulerBypassQueue(t *testing.T) {
	s := newScheduler(1, nil, nil, nil)

	block := make(chan struct{})
	holderRunning := make(chan struct{})
	go func() {
		_, _ = s.Run(context.Background(), false, func() (*Result, error) {
			close(holderRunning)
			<-block
			return &Result{}, nil
		})
	}()
	<-holderRunning
	defer close(block)

	// An already-counted caller must run immediately even at capacity.
	done := make(chan struct{})
	go func() {
		_, _ = s.Run(context.Background(), true, func() (*Result, error) {
			close(done)
			return &Result{}, nil
		})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("bypassQueue call did not run at capacity")
	}
}

func TestSchedulerQueuedContextCancel(t *testing.T) {
	s := newScheduler(1, nil, nil, nil)

	block := make(chan struct{})
	holderRunning := make(chan struct{})
	go func() {
		_, _ = s.Run(context.Background(), false, func() (*Result, error) {
			close(holderRunning)
			<-block
			return &Result{}, nil
		})
	}()
	<-holderRunning
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := s.Run(ctx, false, func() (*Result, error) {
			t.Error("Canceled call must not execute")
			return nil, nil
		})
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Queued call did not observe cancellation")
	}
}

func TestSchedulerDispose(t *testing.T) {
	s := newScheduler(1, nil, nil, nil)

	block := make(chan struct{})
	holderRunning := make(chan struct{})
	go func() {
		_, _ = s.Run(context.Background(), false, func() (*Result, error) {
			close(holderRunning)
			<-block
			return &Result{}, nil
		})
	}()
	<-holderRunning
	defer close(block)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background(), false, func() (*Result, error) {
			t.Error("Disposed call must not execute")
			return nil, nil
		})
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)

	s.dispose()

	select {
	case err := <-errCh:
		var fetchErr *Error
		if !errors.As(err, &fetchErr) || fetchErr.Type != ErrorTypeDisposed {
			t.Errorf("Expected Disposed error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Queued call was left pending after dispose")
	}

	_, err := s.Run(context.Background(), false, func() (*Result, error) {
		return &Result{}, nil
	})
	var fetchErr *Error
	if !errors.As(err, &fetchErr) || fetchErr.Type != ErrorTypeDisposed {
		t.Errorf("Expected Disposed error after dispose, got %v", err)
	}
}
