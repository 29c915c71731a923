package main

import (
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// mockState tracks whether a mock site is up and when it next flips.
type mockState struct {
	up           bool
	nextChangeAt time.Time
}

// newMockSites returns a handler serving /sites/{name}. Each site starts up
// and flips between up (200) and down (503) every 20-60 seconds. The site
// named "slow" answers after a delay longer than the demo probe timeout.
func newMockSites() http.Handler {
	var (
		states = make(map[string]*mockState)
		mu     sync.Mutex
	)

	r := chi.NewRouter()
	r.Get("/sites/{name}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		// simulate small latency variance
		delay := time.Duration(20+rand.Intn(100)) * time.Millisecond
		if name == "slow" {
			delay = 3 * time.Second
		}
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}

		mu.Lock()
		state, exists := states[name]
		if !exists {
			state = &mockState{
				up:           true,
				nextChangeAt: time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second),
			}
			states[name] = state
		}
		if time.Now().After(state.nextChangeAt) {
			state.up = !state.up
			state.nextChangeAt = time.Now().Add(time.Duration(20+rand.Intn(41)) * time.Second)
			slog.Info("mock site flipped", "site", name, "up", state.up)
		}
		up := state.up
		mu.Unlock()

		if !up {
			http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// StartMockSites serves the mock sites on addr until the process exits.
func StartMockSites(addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newMockSites(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("mock server error", "error", err)
	}
}
