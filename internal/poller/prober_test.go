package poller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/http/httptrace"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jpalmerr/sitepulse/internal/store"
)

func statusServer(t *testing.T, code int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestProber_Probe_Classification(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected int
		want     store.Outcome
	}{
		{name: "200 online", code: http.StatusOK, want: store.OutcomeOnline},
		{name: "204 online", code: http.StatusNoContent, want: store.OutcomeOnline},
		{name: "301 offline", code: http.StatusMovedPermanently, want: store.OutcomeOffline},
		{name: "404 offline", code: http.StatusNotFound, want: store.OutcomeOffline},
		{name: "500 offline", code: http.StatusInternalServerError, want: store.OutcomeOffline},
		{name: "expected 200 gets 204", code: http.StatusNoContent, expected: http.StatusOK, want: store.OutcomeOffline},
		{name: "expected 418 gets 418", code: http.StatusTeapot, expected: http.StatusTeapot, want: store.OutcomeOnline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := statusServer(t, tt.code)
			p := NewProber(time.Second, 0, testLogger())
			defer p.Close()

			res := p.Probe(context.Background(), store.Target{URL: server.URL, ExpectedStatus: tt.expected})

			if res.Outcome != tt.want {
				t.Errorf("Outcome = %v, want %v (err=%q)", res.Outcome, tt.want, res.Err)
			}
			if res.StatusCode != tt.code {
				t.Errorf("StatusCode = %d, want %d", res.StatusCode, tt.code)
			}
			if res.URL != server.URL {
				t.Errorf("URL = %q, want %q", res.URL, server.URL)
			}
			if res.CheckedAt.IsZero() {
				t.Error("CheckedAt is zero")
			}
			if tt.want == store.OutcomeOffline && res.Err == "" {
				t.Error("Err is empty for offline result")
			}
		})
	}
}

func TestProber_Probe_TimeoutIsOffline(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	p := NewProber(time.Second, 0, testLogger())
	defer p.Close()

	start := time.Now()
	res := p.Probe(context.Background(), store.Target{URL: server.URL, Timeout: 50 * time.Millisecond})

	if res.Outcome != store.OutcomeOffline {
		t.Errorf("Outcome = %v, want %v", res.Outcome, store.OutcomeOffline)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("probe took %v, want it bounded by the target timeout", elapsed)
	}
}

func TestProber_Probe_UnreachableIsOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	p := NewProber(time.Second, 0, testLogger())
	res := p.Probe(context.Background(), store.Target{URL: url})

	if res.Outcome != store.OutcomeOffline {
		t.Errorf("Outcome = %v, want %v", res.Outcome, store.OutcomeOffline)
	}
	if res.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", res.StatusCode)
	}
	if !strings.Contains(res.Err, "request failed") {
		t.Errorf("Err = %q, want transport error", res.Err)
	}
}

func TestProber_Probe_InvalidURLIsOffline(t *testing.T) {
	p := NewProber(time.Second, 0, testLogger())
	res := p.Probe(context.Background(), store.Target{URL: "://bad"})

	if res.Outcome != store.OutcomeOffline {
		t.Errorf("Outcome = %v, want %v", res.Outcome, store.OutcomeOffline)
	}
}

func TestProber_Probe_SendsHeaders(t *testing.T) {
	var got atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewProber(time.Second, 0, testLogger())
	res := p.Probe(context.Background(), store.Target{
		URL:     server.URL,
		Headers: map[string]string{"Authorization": "Bearer abc"},
	})

	if res.Outcome != store.OutcomeOnline {
		t.Fatalf("Outcome = %v, want %v", res.Outcome, store.OutcomeOnline)
	}
	if v, _ := got.Load().(string); v != "Bearer abc" {
		t.Errorf("Authorization header = %q, want %q", v, "Bearer abc")
	}
}

func TestProber_ProbeAll_PreservesOrder(t *testing.T) {
	up := statusServer(t, http.StatusOK)
	down := statusServer(t, http.StatusServiceUnavailable)

	targets := []store.Target{
		{URL: down.URL + "/1"},
		{URL: up.URL + "/2"},
		{URL: down.URL + "/3"},
		{URL: up.URL + "/4"},
	}
	want := []store.Outcome{store.OutcomeOffline, store.OutcomeOnline, store.OutcomeOffline, store.OutcomeOnline}

	for _, workers := range []int{0, 1, 2, 10} {
		p := NewProber(time.Second, workers, testLogger())
		results := p.ProbeAll(context.Background(), targets)

		if len(results) != len(targets) {
			t.Fatalf("workers=%d: len(results) = %d, want %d", workers, len(results), len(targets))
		}
		for i, res := range results {
			if res.URL != targets[i].URL {
				t.Errorf("workers=%d: results[%d].URL = %q, want %q", workers, i, res.URL, targets[i].URL)
			}
			if res.Outcome != want[i] {
				t.Errorf("workers=%d: results[%d].Outcome = %v, want %v", workers, i, res.Outcome, want[i])
			}
		}
		p.Close()
	}
}

// TestProber_ProbeAll_Concurrent verifies that one slow target does not
// delay the others: total time is bounded by the slowest probe, not the sum.
func TestProber_ProbeAll_Concurrent(t *testing.T) {
	const delay = 200 * time.Millisecond
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	targets := make([]store.Target, 5)
	for i := range targets {
		targets[i] = store.Target{URL: server.URL + "/" + string(rune('a'+i))}
	}

	p := NewProber(2*time.Second, 0, testLogger())
	defer p.Close()

	start := time.Now()
	results := p.ProbeAll(context.Background(), targets)
	elapsed := time.Since(start)

	for i, res := range results {
		if res.Outcome != store.OutcomeOnline {
			t.Errorf("results[%d].Outcome = %v, want %v", i, res.Outcome, store.OutcomeOnline)
		}
	}
	if elapsed >= delay*time.Duration(len(targets)) {
		t.Errorf("ProbeAll took %v, probes appear to run sequentially", elapsed)
	}
}

func TestProber_ProbeAll_Empty(t *testing.T) {
	p := NewProber(time.Second, 0, testLogger())
	if got := p.ProbeAll(context.Background(), nil); len(got) != 0 {
		t.Errorf("ProbeAll(nil) len = %d, want 0", len(got))
	}
}

func TestProber_ProbeAll_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	p := NewProber(10*time.Second, 0, testLogger())
	done := make(chan []store.CheckResult, 1)
	go func() { done <- p.ProbeAll(ctx, []store.Target{{URL: server.URL}}) }()

	select {
	case results := <-done:
		if results[0].Outcome != store.OutcomeOffline {
			t.Errorf("Outcome = %v, want %v", results[0].Outcome, store.OutcomeOffline)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ProbeAll did not return after context cancellation")
	}
}

// TestProber_ConnectionReuse verifies that sequential probes against the
// same host reuse pooled connections.
func TestProber_ConnectionReuse(t *testing.T) {
	server := statusServer(t, http.StatusOK)
	p := NewProber(5*time.Second, 0, testLogger())
	defer p.Close()

	var reusedCount atomic.Int32
	trace := &httptrace.ClientTrace{
		GotConn: func(info httptrace.GotConnInfo) {
			if info.Reused {
				reusedCount.Add(1)
			}
		},
	}

	const numRequests = 5
	for i := 0; i < numRequests; i++ {
		ctx := httptrace.WithClientTrace(context.Background(), trace)
		if res := p.Probe(ctx, store.Target{URL: server.URL}); res.Outcome != store.OutcomeOnline {
			t.Fatalf("request %d: Outcome = %v (%s)", i, res.Outcome, res.Err)
		}
	}

	if got := int(reusedCount.Load()); got < numRequests-2 {
		t.Errorf("expected at least %d reused connections, got %d", numRequests-2, got)
	}
}

func TestProber_Close_Idempotent(t *testing.T) {
	p := NewProber(0, 0, nil)
	p.Close()
	p.Close()

	var nilProber *Prober
	nilProber.Close()
}
