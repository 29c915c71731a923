package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultInterval is the sweep cadence used when none is configured.
const DefaultInterval = 5 * time.Second

// SweepFunc runs one full sweep. It must return once ctx is cancelled.
type SweepFunc func(ctx context.Context)

// SchedulerStats is a point-in-time view of scheduler counters.
type SchedulerStats struct {
	// Sweeps is the number of sweeps started.
	Sweeps uint64 `json:"sweeps"`

	// Skipped is the number of ticks dropped because a sweep was in flight.
	Skipped uint64 `json:"skipped_ticks"`

	// InFlight reports whether a sweep is running right now.
	InFlight bool `json:"in_flight"`
}

// TickSource creates the tick channel that drives the scheduler and a
// function that stops it. The default wraps [time.NewTicker].
type TickSource func(d time.Duration) (<-chan time.Time, func())

// SchedulerOption configures a [Scheduler].
type SchedulerOption func(*Scheduler)

// WithTickSource replaces the ticker that drives sweeps.
func WithTickSource(src TickSource) SchedulerOption {
	return func(s *Scheduler) {
		if src != nil {
			s.ticks = src
		}
	}
}

// Scheduler fires sweeps at a fixed cadence.
//
// One sweep runs immediately on [Scheduler.Start], then one per tick. The
// cadence does not depend on sweep duration. Sweeps never overlap: a tick
// that arrives while a sweep is still running is dropped, counted in
// [SchedulerStats.Skipped] and logged, and the next tick after the sweep
// finishes starts a sweep as normal.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	interval time.Duration
	sweep    SweepFunc
	logger   *slog.Logger
	ticks    TickSource

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	inFlight atomic.Bool
	sweeps   atomic.Uint64
	skipped  atomic.Uint64
}

// NewScheduler creates a [Scheduler] that calls sweep every interval.
//
// A non-positive interval falls back to [DefaultInterval]; a nil logger to
// slog.Default(). The scheduler does nothing until [Scheduler.Start].
func NewScheduler(interval time.Duration, sweep SweepFunc, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		interval: interval,
		sweep:    sweep,
		logger:   logger,
		ticks:    systemTicker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func systemTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Start begins the sweep loop in a background goroutine and returns
// immediately.
//
// The loop runs until ctx is cancelled or [Scheduler.Stop] is called.
// If ctx is nil, context.Background() is used. Start is idempotent, and a
// no-op after Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	s.mu.Unlock()

	go s.loop(ctx)
}

// Stop halts the loop and waits for an in-flight sweep to return.
//
// Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Stats returns the current scheduler counters.
func (s *Scheduler) Stats() SchedulerStats {
	return SchedulerStats{
		Sweeps:   s.sweeps.Load(),
		Skipped:  s.skipped.Load(),
		InFlight: s.inFlight.Load(),
	}
}

// Interval returns the sweep cadence.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticks, stop := s.ticks(s.interval)
	defer stop()

	s.trigger(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			s.trigger(ctx)
		}
	}
}

// trigger starts a sweep unless one is already in flight.
func (s *Scheduler) trigger(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		skipped := s.skipped.Add(1)
		s.logger.Warn("sweep still in flight, skipping tick",
			"interval", s.interval.String(),
			"skipped_total", skipped,
		)
		return
	}

	// the loop goroutine holds a wg slot, so this Add never races Wait at zero
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.inFlight.Store(false)
		s.runSweep(ctx)
	}()
}

// runSweep calls the sweep function with panic recovery.
// A panicking sweep is logged with a correlation ID and does not stop the
// scheduler.
func (s *Scheduler) runSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			correlationID := uuid.NewString()
			s.logger.Error("sweep panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	s.sweeps.Add(1)
	s.sweep(ctx)
}
