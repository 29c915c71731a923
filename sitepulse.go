package sitepulse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/sitepulse/dashboard"
	"github.com/jpalmerr/sitepulse/internal/hub"
	"github.com/jpalmerr/sitepulse/internal/poller"
	"github.com/jpalmerr/sitepulse/internal/server"
	"github.com/jpalmerr/sitepulse/internal/store"
)

const (
	defaultCheckInterval  = poller.DefaultInterval
	defaultProbeTimeout   = poller.DefaultTimeout
	defaultPort           = 3000
	defaultHistoryLimit   = store.DefaultHistoryLimit
	defaultObserverBuffer = hub.DefaultBuffer
)

// ErrAlreadyStarted is returned by [Monitor.Start] on a second call.
var ErrAlreadyStarted = errors.New("monitor already started")

// ErrSweepInFlight is returned by [Monitor.Sweep] while another sweep is
// still running.
var ErrSweepInFlight = errors.New("sweep already in flight")

// Monitor checks a fixed set of targets on a fixed cadence and pushes the
// resulting state to connected observers.
//
// Monitor is created using [New] with functional options and started with
// [Monitor.Start]. The target set is fixed for the lifetime of the Monitor.
//
// The typical lifecycle is:
//
//	m, err := sitepulse.New(sitepulse.WithTarget(t))
//	if err != nil {
//	    slog.Error("failed to create monitor", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	m.Start(ctx) // blocks until context cancelled
type Monitor struct {
	title          string
	targets        []Target
	checkInterval  time.Duration
	port           int
	logger         *slog.Logger
	sweepCallbacks []func(SweepReport)
	tickSource     poller.TickSource

	registry *store.Registry
	hub      *hub.Hub
	prober   *poller.Prober
	sweeping atomic.Bool

	mu        sync.Mutex
	started   bool
	scheduler *poller.Scheduler
	addr      string
}

// New creates a [Monitor] with the given options.
//
// At least one target must be configured via [WithTarget] or [WithTargets],
// and target URLs must be unique. Other options have defaults:
//   - Check interval: 5 seconds
//   - Probe timeout: 5 seconds
//   - Port: 3000
//   - Max concurrency: unlimited (one goroutine per target)
//   - History limit: 500 results per target
//   - Observer buffer: 16 snapshots
//
// Before the first sweep every target reports [OutcomeUnknown].
func New(opts ...Option) (*Monitor, error) {
	cfg := &monitorConfig{
		targets:        []Target{},
		checkInterval:  defaultCheckInterval,
		probeTimeout:   defaultProbeTimeout,
		port:           defaultPort,
		historyLimit:   defaultHistoryLimit,
		observerBuffer: defaultObserverBuffer,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if len(cfg.targets) == 0 {
		return nil, errors.New("at least one target is required")
	}

	seen := make(map[string]bool, len(cfg.targets))
	for _, t := range cfg.targets {
		if t.url == "" {
			return nil, errors.New("target has no URL; use NewTarget")
		}
		if seen[t.url] {
			return nil, fmt.Errorf("duplicate target URL: %q", t.url)
		}
		seen[t.url] = true
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	registry, err := store.NewRegistry(toStoreTargets(cfg.targets), cfg.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to register targets: %w", err)
	}

	return &Monitor{
		title:          cfg.title,
		targets:        cfg.targets,
		checkInterval:  cfg.checkInterval,
		port:           cfg.port,
		logger:         logger,
		sweepCallbacks: cfg.sweepCallbacks,
		tickSource:     cfg.tickSource,
		registry:       registry,
		hub:            hub.New(registry.Initial(), cfg.observerBuffer, logger),
		prober:         poller.NewProber(cfg.probeTimeout, cfg.maxConcurrency, logger),
	}, nil
}

// Start begins sweeping targets and serving observers.
//
// Start is a blocking call that runs until ctx is cancelled:
//
//   - The HTTP server starts on the configured port
//   - One sweep runs immediately, then one per check interval
//   - Every completed sweep is published to all connected observers
//
// On cancellation the scheduler is stopped (an in-flight sweep is abandoned
// before it touches state), observers are disconnected and the server shuts
// down. A Monitor can be started once.
//
// Returns nil on graceful shutdown, or an error if the HTTP server fails to
// start.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	if ctx.Err() != nil {
		return nil
	}

	m.logger.Info("sitepulse starting", "target_count", len(m.targets))
	m.logger.Info("checks configured", "interval", m.checkInterval.String())

	httpServer := server.NewServer(m.hub, m.port, dashboard.Assets, m.title, func() any { return m.Stats() }, m.logger)
	addr, err := httpServer.Start(ctx)
	if err != nil {
		m.hub.Close()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	var schedOpts []poller.SchedulerOption
	if m.tickSource != nil {
		schedOpts = append(schedOpts, poller.WithTickSource(m.tickSource))
	}
	scheduler := poller.NewScheduler(m.checkInterval, m.runSweep, m.logger, schedOpts...)

	m.mu.Lock()
	m.scheduler = scheduler
	m.addr = addr.String()
	m.mu.Unlock()

	dashboardURL := "http://" + addr.String()
	if tcp, ok := addr.(*net.TCPAddr); ok {
		dashboardURL = fmt.Sprintf("http://localhost:%d", tcp.Port)
	}
	m.logger.Info("dashboard available", "url", dashboardURL)

	scheduler.Start(ctx)

	<-ctx.Done()
	scheduler.Stop()
	m.hub.Close()
	m.prober.Close()
	m.logger.Info("sitepulse stopped")
	return nil
}

// Sweep probes every target once, applies the results and publishes the new
// state to observers.
//
// Start calls Sweep on every tick. It can also be called directly, without
// Start, for a one-off check. At most one sweep runs at a time: a call made
// while another sweep is running, scheduled or not, returns
// [ErrSweepInFlight] without contacting any target. If ctx is cancelled
// before the probes finish the sweep is abandoned: no state changes and an
// error wrapping ctx.Err() is returned.
func (m *Monitor) Sweep(ctx context.Context) (SweepReport, error) {
	if !m.sweeping.CompareAndSwap(false, true) {
		m.logger.Warn("sweep skipped, previous sweep still running")
		return SweepReport{}, ErrSweepInFlight
	}
	defer m.sweeping.Store(false)

	sweepID := uuid.NewString()
	log := m.logger.With("sweep_id", sweepID)
	startedAt := time.Now()

	results := m.prober.ProbeAll(ctx, m.registry.Targets())

	if err := ctx.Err(); err != nil {
		log.Debug("sweep abandoned", "error", err)
		return SweepReport{}, fmt.Errorf("sweep %s abandoned: %w", sweepID, err)
	}

	completedAt := time.Now()
	snap, err := m.registry.ApplySweep(results, completedAt)
	if err != nil {
		log.Error("sweep rejected", "error", err)
		return SweepReport{}, fmt.Errorf("sweep %s rejected: %w", sweepID, err)
	}
	m.hub.Publish(snap)

	report := SweepReport{
		ID:          sweepID,
		Seq:         snap.Seq(),
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Results:     make([]CheckResult, len(results)),
	}
	for i, r := range results {
		report.Results[i] = toPublicResult(r)

		attrs := []any{
			"url", r.URL,
			"outcome", r.Outcome.String(),
			"status_code", r.StatusCode,
			"latency_ms", r.Latency.Milliseconds(),
		}
		if r.Err != "" {
			log.Warn("target offline", append(attrs, "error", r.Err)...)
		} else {
			log.Debug("target checked", attrs...)
		}
	}

	log.Info("sweep completed",
		"seq", report.Seq,
		"online", report.Online(),
		"offline", report.Offline(),
		"duration_ms", report.Duration().Milliseconds(),
	)

	for _, cb := range m.sweepCallbacks {
		invokeCallbackSafe(cb, report, log)
	}

	return report, nil
}

// runSweep adapts Sweep to the scheduler; errors are already logged.
func (m *Monitor) runSweep(ctx context.Context) {
	_, _ = m.Sweep(ctx)
}

// Status returns the current state of every target in registration order.
func (m *Monitor) Status() []TargetStatus {
	snap := m.hub.Latest()
	websites := snap.Websites()
	out := make([]TargetStatus, len(websites))
	for i, ws := range websites {
		hist := make([]CheckResult, len(ws.History))
		for j, r := range ws.History {
			hist[j] = toPublicResult(r)
		}
		out[i] = TargetStatus{
			URL:     ws.URL,
			Status:  Outcome(ws.Status),
			History: hist,
		}
	}
	return out
}

// Stats returns the monitor's scheduler and broadcast counters.
func (m *Monitor) Stats() Stats {
	hs := m.hub.Stats()
	st := Stats{
		Observers: hs.Observers,
		Published: hs.Published,
		Dropped:   hs.Dropped,
	}

	m.mu.Lock()
	scheduler := m.scheduler
	m.mu.Unlock()

	if scheduler != nil {
		ss := scheduler.Stats()
		st.Sweeps = ss.Sweeps
		st.SkippedTicks = ss.Skipped
		st.InFlight = ss.InFlight
	}
	return st
}

// Targets returns a copy of the configured targets in registration order.
func (m *Monitor) Targets() []Target {
	cp := make([]Target, len(m.targets))
	copy(cp, m.targets)
	return cp
}

// Port returns the configured HTTP port.
func (m *Monitor) Port() int {
	return m.port
}

// Addr returns the address the HTTP server listens on, or "" before
// [Monitor.Start] has bound it.
func (m *Monitor) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addr
}

// CheckInterval returns the configured interval between sweeps.
func (m *Monitor) CheckInterval() time.Duration {
	return m.checkInterval
}

func toStoreTargets(targets []Target) []store.Target {
	out := make([]store.Target, len(targets))
	for i, t := range targets {
		out[i] = store.Target{
			URL:            t.url,
			Timeout:        t.timeout,
			ExpectedStatus: t.expectedStatus,
			Headers:        copyMap(t.headers),
		}
	}
	return out
}

func toPublicResult(r store.CheckResult) CheckResult {
	return CheckResult{
		URL:        r.URL,
		CheckedAt:  r.CheckedAt,
		Outcome:    Outcome(r.Outcome),
		StatusCode: r.StatusCode,
		Latency:    r.Latency,
		Error:      r.Err,
	}
}

// invokeCallbackSafe calls a sweep callback with panic recovery.
// Panics are logged but do not propagate. Each callback gets its own copy
// of the results.
func invokeCallbackSafe(cb func(SweepReport), report SweepReport, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("sweep callback panicked", "panic", r)
		}
	}()
	report.Results = append([]CheckResult(nil), report.Results...)
	cb(report)
}
