// Package sitepulse monitors the uptime of a fixed set of websites and
// pushes live status to connected dashboards.
//
// A [Monitor] probes every configured target on a fixed cadence, keeps a
// bounded history of results per target and broadcasts a full snapshot of
// that state to every connected observer after each sweep. Observers are
// browsers subscribed to the Server-Sent Events stream at /api/sse; the
// embedded dashboard at / is one such observer.
//
// # Quick Start
//
//	t, _ := sitepulse.NewTarget("https://example.com")
//	m, _ := sitepulse.New(sitepulse.WithTarget(t))
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	m.Start(ctx) // blocks until context is cancelled
//
// # Configuration
//
//	m, err := sitepulse.New(
//	    sitepulse.WithTargets(t1, t2),
//	    sitepulse.WithCheckInterval(10 * time.Second),
//	    sitepulse.WithPort(8080),
//	    sitepulse.WithHistoryLimit(100),
//	)
//
// Targets take their own options:
//
//	t, err := sitepulse.NewTarget("https://api.example.com/health",
//	    sitepulse.WithTimeout(2 * time.Second),
//	    sitepulse.WithExpectedStatus(204),
//	    sitepulse.WithHeaders("Authorization", "Bearer token"),
//	)
//
// # Outcomes
//
// A probe is [OutcomeOnline] when the target answers with a 2xx status (or
// exactly the expected status, when one is set) within its timeout, and
// [OutcomeOffline] otherwise. Targets report [OutcomeUnknown] until their
// first sweep completes.
//
// # Sweeps
//
// One sweep runs immediately on Start and then once per check interval. A
// tick that arrives while the previous sweep is still running is skipped
// and counted in [Stats]. A sweep interrupted by shutdown is abandoned and
// never reaches observers.
//
// # Architecture
//
//   - internal/store: target registry, bounded histories and immutable snapshots
//   - internal/poller: HTTP prober and sweep scheduler
//   - internal/hub: fan-out of snapshots to observers
//   - internal/server: HTTP API, SSE stream and dashboard
//   - internal/logging: slog construction with optional file rotation
//   - config: YAML configuration for the sitepulse command
//   - dashboard: embedded web UI assets
package sitepulse
