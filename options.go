package sitepulse

import (
	"errors"
	"log/slog"
	"time"

	"github.com/jpalmerr/sitepulse/internal/poller"
)

// monitorConfig holds mutable state during Monitor construction.
type monitorConfig struct {
	title          string
	targets        []Target
	checkInterval  time.Duration
	probeTimeout   time.Duration
	port           int
	maxConcurrency int
	historyLimit   int
	observerBuffer int
	logger         *slog.Logger
	sweepCallbacks []func(SweepReport)
	tickSource     poller.TickSource
}

// Option configures a [Monitor] during construction.
//
// Options return an error if validation fails.
//
// Built-in options: [WithTarget], [WithTargets], [WithCheckInterval],
// [WithProbeTimeout], [WithPort], [WithMaxConcurrency], [WithHistoryLimit],
// [WithObserverBuffer], [WithLogger], [WithSweepCallback], [WithTitle].
type Option func(*monitorConfig) error

// WithTarget adds a single [Target] to the monitored set.
//
// Can be called multiple times. At least one target must be configured for
// [New] to succeed, and target URLs must be unique.
func WithTarget(t Target) Option {
	return func(cfg *monitorConfig) error {
		cfg.targets = append(cfg.targets, t)
		return nil
	}
}

// WithTargets adds multiple [Target] values to the monitored set.
//
// Equivalent to calling [WithTarget] for each one, in order.
func WithTargets(targets ...Target) Option {
	return func(cfg *monitorConfig) error {
		cfg.targets = append(cfg.targets, targets...)
		return nil
	}
}

// WithCheckInterval sets how often a sweep over all targets starts.
//
// Sweeps start on a fixed cadence regardless of how long each one takes. A
// sweep that outlasts the interval causes the next tick to be skipped.
// Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithCheckInterval(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return errors.New("check interval must be positive")
		}
		cfg.checkInterval = d
		return nil
	}
}

// WithProbeTimeout sets the default per-probe timeout for targets that do
// not set their own via [WithTimeout]. Defaults to 5 seconds.
//
// Returns an error if the duration is zero or negative.
func WithProbeTimeout(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return errors.New("probe timeout must be positive")
		}
		cfg.probeTimeout = d
		return nil
	}
}

// WithPort sets the HTTP port observers connect to.
//
// Port 0 binds any free port; see [Monitor.Addr]. Defaults to 3000.
//
// Returns an error if the port is outside 0-65535.
func WithPort(port int) Option {
	return func(cfg *monitorConfig) error {
		if port < 0 || port > 65535 {
			return errors.New("port must be between 0 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithMaxConcurrency caps how many probes run at once during a sweep.
//
// Zero, the default, probes every target in its own goroutine so no probe
// waits on another.
//
// Returns an error if n is negative.
func WithMaxConcurrency(n int) Option {
	return func(cfg *monitorConfig) error {
		if n < 0 {
			return errors.New("max concurrency must not be negative")
		}
		cfg.maxConcurrency = n
		return nil
	}
}

// WithHistoryLimit sets how many results are kept per target. Older results
// are evicted first. Defaults to 500.
//
// Returns an error if n is not positive.
func WithHistoryLimit(n int) Option {
	return func(cfg *monitorConfig) error {
		if n <= 0 {
			return errors.New("history limit must be positive")
		}
		cfg.historyLimit = n
		return nil
	}
}

// WithObserverBuffer sets how many snapshots may queue for one observer
// before the oldest queued snapshot is dropped. Defaults to 16.
//
// Returns an error if n is not positive.
func WithObserverBuffer(n int) Option {
	return func(cfg *monitorConfig) error {
		if n <= 0 {
			return errors.New("observer buffer must be positive")
		}
		cfg.observerBuffer = n
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *monitorConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithSweepCallback registers a function called after every completed sweep.
//
// Callbacks run after the new state has been published to observers, in
// registration order, on the sweep goroutine. They must not block: a slow
// callback delays the end of the sweep and so can cause skipped ticks.
// Panics within callbacks are recovered and logged.
//
// Example:
//
//	m, err := sitepulse.New(
//	    sitepulse.WithTargets(targets...),
//	    sitepulse.WithSweepCallback(func(r sitepulse.SweepReport) {
//	        if r.Offline() > 0 {
//	            log.Printf("%d targets offline", r.Offline())
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithSweepCallback(cb func(SweepReport)) Option {
	return func(cfg *monitorConfig) error {
		if cb == nil {
			return nil
		}
		cfg.sweepCallbacks = append(cfg.sweepCallbacks, cb)
		return nil
	}
}

// WithTitle sets the dashboard title. Defaults to "SitePulse".
func WithTitle(title string) Option {
	return func(cfg *monitorConfig) error {
		cfg.title = title
		return nil
	}
}

// withTickSource replaces the scheduler's ticker.
func withTickSource(src poller.TickSource) Option {
	return func(cfg *monitorConfig) error {
		cfg.tickSource = src
		return nil
	}
}
