// Package scheduler dispatches orders onto a bounded pool of lifecycle
// workers.
//
// Each order id is run by at most one worker at a time. Workers check for
// cancellation between orders and the runner checks between stages, so
// cancelling the context passed to Start stops in-flight orders at their next
// checkpoint. Once the processed-count limit is reached no further orders
// start; orders still queued stay in the order store as Registered and are
// reported by Pending.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Chrich02/pizzashop/internal/queue"
)

const (
	// DefaultWorkers is the worker pool size.
	DefaultWorkers = 4

	// DefaultMaxProcessed is the processed-count threshold after which no
	// new orders start.
	DefaultMaxProcessed = 100
)

var (
	// ErrAlreadyScheduled is returned when an order id is already queued or
	// running.
	ErrAlreadyScheduled = errors.New("order already scheduled")

	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("scheduler closed")
)

// Runner advances one order until it finishes or ctx is cancelled.
type Runner interface {
	Run(ctx context.Context, orderID int64) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, orderID int64) error

func (f RunnerFunc) Run(ctx context.Context, orderID int64) error {
	return f(ctx, orderID)
}

// Stats counts what the scheduler has done so far.
type Stats struct {
	Dispatched int `json:"dispatched"`
	Processed  int `json:"processed"`
	Failed     int `json:"failed"`
	Stopped    int `json:"stopped"`
	Running    int `json:"running"`
	Queued     int `json:"queued"`
}

// Scheduler is a bounded worker pool over a FIFO of order ids.
type Scheduler struct {
	runner       Runner
	workers      int
	maxProcessed int
	queue        *queue.Queue[int64]

	mu       sync.Mutex
	inflight map[int64]bool // id -> running
	stats    Stats
	changed  chan struct{}
	started  bool
	closed   bool
	done     chan struct{}
	wg       sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers sets the pool size. Values below 1 are ignored.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithMaxProcessed sets the processed-count threshold. Zero or less disables
// the limit.
func WithMaxProcessed(n int) Option {
	return func(s *Scheduler) { s.maxProcessed = n }
}

// New creates a scheduler. Call Start to launch the workers.
func New(runner Runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		runner:       runner,
		workers:      DefaultWorkers,
		maxProcessed: DefaultMaxProcessed,
		queue:        queue.New[int64](),
		inflight:     make(map[int64]bool),
		changed:      make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the workers. They run until ctx is cancelled, or until Close
// is called and the queue has drained.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	s.started = true

	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.work(ctx, i)
	}
	slog.Debug("scheduler started", "workers", s.workers, "max_processed", s.maxProcessed)
	return nil
}

// Dispatch queues an order id. Orders queued after the processed-count limit
// is reached are accepted but never started.
func (s *Scheduler) Dispatch(orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if _, ok := s.inflight[orderID]; ok {
		return fmt.Errorf("order %d: %w", orderID, ErrAlreadyScheduled)
	}

	s.inflight[orderID] = false
	s.queue.Enqueue(orderID)
	s.stats.Dispatched++
	s.broadcastLocked()
	return nil
}

// Close stops accepting orders. Workers finish the queue (unless the limit
// has been reached) and exit.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.queue.Close()
	close(s.done)
	s.broadcastLocked()
}

// Wait blocks until every worker has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Idle blocks until nothing is running and nothing startable is queued, or
// ctx is done.
func (s *Scheduler) Idle(ctx context.Context) error {
	for {
		s.mu.Lock()
		idle := s.stats.Running == 0 && (len(s.inflight) == 0 || s.limitReachedLocked())
		changed := s.changed
		s.mu.Unlock()

		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stats
	st.Queued = len(s.inflight) - st.Running
	return st
}

// LimitReached reports whether the processed-count threshold stops new work.
func (s *Scheduler) LimitReached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limitReachedLocked()
}

// Pending returns the queued ids that have not started, in ascending order.
func (s *Scheduler) Pending() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []int64
	for id, running := range s.inflight {
		if !running {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// limitReachedLocked counts running orders against the limit so concurrent
// workers never start more than maxProcessed orders. Caller holds s.mu.
func (s *Scheduler) limitReachedLocked() bool {
	return s.maxProcessed > 0 && s.stats.Processed+s.stats.Running >= s.maxProcessed
}

// broadcastLocked wakes every Idle waiter. Caller holds s.mu.
func (s *Scheduler) broadcastLocked() {
	close(s.changed)
	s.changed = make(chan struct{})
}

func (s *Scheduler) work(ctx context.Context, worker int) {
	defer s.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		if id, ok := s.next(); ok {
			s.execute(ctx, worker, id)
			continue
		}

		if s.LimitReached() {
			select {
			case <-ctx.Done():
			case <-s.done:
			}
			return
		}
		if s.queue.Closed() {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-s.queue.Wait():
		}
	}
}

// next takes the front id and marks it running, unless the limit forbids
// starting anything.
func (s *Scheduler) next() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limitReachedLocked() {
		return 0, false
	}
	id, ok := s.queue.TryDequeue()
	if !ok {
		return 0, false
	}
	s.inflight[id] = true
	s.stats.Running++
	s.broadcastLocked()
	return id, true
}

func (s *Scheduler) execute(ctx context.Context, worker int, orderID int64) {
	slog.Debug("worker picked order", "worker", worker, "order_id", orderID)
	err := s.run(ctx, orderID)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats.Running--
	delete(s.inflight, orderID)

	switch {
	case err == nil:
		s.stats.Processed++
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.stats.Stopped++
		slog.Info("order stopped", "worker", worker, "order_id", orderID)
	default:
		s.stats.Processed++
		s.stats.Failed++
		slog.Warn("order failed", "worker", worker, "order_id", orderID, "error", err)
	}

	if s.limitReachedLocked() && s.stats.Running == 0 {
		slog.Info("processed limit reached", "processed", s.stats.Processed, "queued", len(s.inflight))
	}
	s.broadcastLocked()
}

// run shields the pool from a panicking runner.
func (s *Scheduler) run(ctx context.Context, orderID int64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("order %d: runner panic: %v", orderID, r)
		}
	}()
	return s.runner.Run(ctx, orderID)
}
