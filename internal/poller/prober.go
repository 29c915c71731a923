package poller

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jpalmerr/sitepulse/internal/store"
)

// DefaultTimeout bounds a probe when neither the target nor the prober
// sets a timeout.
const DefaultTimeout = 5 * time.Second

// maxDrainBytes caps how much of a response body is read (and discarded)
// so the connection can go back to the pool.
const maxDrainBytes = 64 << 10

// connection pooling limits to prevent resource exhaustion when probing many targets
const (
	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 60 * time.Second
)

// Prober performs reachability checks against HTTP targets.
//
// Prober uses per-request timeouts via context rather than a client-wide
// timeout, so each target may carry its own limit. A probe never returns an
// error: every failure mode is classified as [store.OutcomeOffline].
type Prober struct {
	httpClient     *http.Client
	timeout        time.Duration
	maxConcurrency int
	logger         *slog.Logger
}

// NewProber creates a [Prober].
//
// Parameters:
//   - timeout: default per-probe timeout (DefaultTimeout if <= 0)
//   - maxConcurrency: probes in flight during [Prober.ProbeAll]; <= 0 means
//     one goroutine per target
//   - logger: logger for probe diagnostics (slog.Default() if nil)
func NewProber(timeout time.Duration, maxConcurrency int, logger *slog.Logger) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		httpClient: &http.Client{
			// no client timeout - every request carries its own deadline
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
		timeout:        timeout,
		maxConcurrency: maxConcurrency,
		logger:         logger,
	}
}

// Probe issues one GET request against t and classifies the outcome.
//
// The request is bounded by t.Timeout, or the prober default when unset.
// If t.ExpectedStatus is set only that status is online; otherwise any 2xx
// status is online. Transport errors, timeouts and any other status are
// offline, with the cause recorded in [store.CheckResult.Err]. No retries.
func (p *Prober) Probe(ctx context.Context, t store.Target) store.CheckResult {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = p.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.URL, nil)
	if err != nil {
		return p.offline(t.URL, start, 0, fmt.Errorf("failed to create request: %w", err))
	}
	for key, value := range t.Headers {
		req.Header.Set(key, value)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return p.offline(t.URL, start, 0, fmt.Errorf("request failed: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if err := classify(resp.StatusCode, t.ExpectedStatus); err != nil {
		return p.offline(t.URL, start, resp.StatusCode, err)
	}

	return store.CheckResult{
		URL:        t.URL,
		CheckedAt:  time.Now(),
		Outcome:    store.OutcomeOnline,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
}

// ProbeAll probes every target concurrently and returns one result per
// target, in the same order as targets. It returns once every probe has
// finished; cancelling ctx makes outstanding probes finish early as offline.
func (p *Prober) ProbeAll(ctx context.Context, targets []store.Target) []store.CheckResult {
	results := make([]store.CheckResult, len(targets))
	if len(targets) == 0 {
		return results
	}

	workers := p.maxConcurrency
	if workers <= 0 || workers > len(targets) {
		workers = len(targets)
	}

	jobs := make(chan int, len(targets))
	for i := range targets {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.Probe(ctx, targets[i])
			}
		}()
	}
	wg.Wait()

	return results
}

// Close releases idle pooled connections. The prober stays usable.
func (p *Prober) Close() {
	if p == nil || p.httpClient == nil {
		return
	}
	if transport, ok := p.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

func (p *Prober) offline(url string, start time.Time, code int, err error) store.CheckResult {
	p.logger.Debug("probe offline", "url", url, "status_code", code, "error", err.Error())
	return store.CheckResult{
		URL:        url,
		CheckedAt:  time.Now(),
		Outcome:    store.OutcomeOffline,
		StatusCode: code,
		Latency:    time.Since(start),
		Err:        err.Error(),
	}
}

// classify returns nil when code counts as online.
func classify(code, expected int) error {
	if expected != 0 {
		if code != expected {
			return fmt.Errorf("expected status %d, got %d", expected, code)
		}
		return nil
	}
	if code < 200 || code > 299 {
		return fmt.Errorf("unexpected status %d", code)
	}
	return nil
}
