package skyfetch

import (
	"context"
	"sync"
)

// schedWaiter is one queued call. Exactly one value is ever delivered on ch:
// nil grants the slot, a disposed error rejects the call.
type schedWaiter struct {
	ch chan error
}

// scheduler bounds the number of simultaneously active fetches. Excess calls
// queue in strict FIFO order and are dispatched as capacity frees.
type scheduler struct {
	mu             sync.Mutex
	maxConcurrency int
	active         int
	queue          []*schedWaiter
	closed         bool

	metrics *MetricsCollector
	logger  Logger
	debug   *DebugConfig
}

func newScheduler(maxConcurrency int, metrics *MetricsCollector, logger Logger, debug *DebugConfig) *scheduler {
	return &scheduler{
		maxConcurrency: maxConcurrency,
		metrics:        metrics,
		logger:         logger,
		debug:          debug,
	}
}

// Run executes fn once a concurrency slot is available. bypassQueue runs fn
// immediately without counting against the budget, for calls that already
// hold a slot and must not be counted twice.
func (s *scheduler) Run(ctx context.Context, bypassQueue bool, fn func() (*Result, error)) (*Result, error) {
	if bypassQueue {
		return fn()
	}

	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	return fn()
}

func (s *scheduler) acquire(ctx context.Context) error {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()
		return disposedError("client closed before request was scheduled")
	}

	if s.active < s.maxConcurrency {
		s.active++
		s.mu.Unlock()
		return nil
	}

	w := &schedWaiter{ch: make(chan error, 1)}
	s.queue = append(s.queue, w)
	depth := len(s.queue)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordQueueDepth(depth)
	}
	if s.debugLoggable() {
		s.logger.Debug("request queued", "queueDepth", depth)
	}

	select {
	case err := <-w.ch:
		return err
	case <-ctx.Done():
		s.mu.Lock()
		for i, queued := range s.queue {
			if queued == w {
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				s.mu.Unlock()
				return ctx.Err()
			}
		}
		s.mu.Unlock()

		// A grant raced the cancellation; take it so the slot is not lost.
		if err := <-w.ch; err != nil {
			return err
		}
		s.release()
		return ctx.Err()
	}
}

// release frees a slot; ownership transfers directly to the queue head when
// one is waiting, preserving submission order.
func (s *scheduler) release() {
	s.mu.Lock()

	if len(s.queue) > 0 {
		w := s.queue[0]
		s.queue = s.queue[1:]
		depth := len(s.queue)
		s.mu.Unlock()

		w.ch <- nil

		if s.metrics != nil {
			s.metrics.RecordQueueDepth(depth)
		}
		return
	}

	s.active--
	s.mu.Unlock()
}

// dispose rejects every queued call and all future submissions.
func (s *scheduler) dispose() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	queued := s.queue
	s.queue = nil
	s.mu.Unlock()

	for _, w := range queued {
		w.ch <- disposedError("client closed with request queued")
	}
	if s.metrics != nil {
		s.metrics.RecordQueueDepth(0)
	}
}

func (s *scheduler) debugLoggable() bool {
	return s.debug != nil && s.debug.Enabled && s.debug.LogScheduler && s.logger != nil
}
