package store

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// DefaultHistoryLimit is the per-target history capacity used when
// [NewRegistry] is given a non-positive limit.
const DefaultHistoryLimit = 500

// Registry holds the fixed set of monitored targets and their history.
//
// The target set is fixed at construction. History and status change only
// inside [Registry.ApplySweep], which holds the registry lock for the whole
// merge-and-snapshot step. Everything else reads immutable [Snapshot]
// values.
type Registry struct {
	targets   []Target
	index     map[string]int
	initial   *Snapshot
	mu        sync.Mutex
	histories []*History
	seq       uint64
}

// NewRegistry creates a registry for targets in the given order.
//
// Returns an error if targets is empty, a URL is empty or a URL appears
// more than once.
func NewRegistry(targets []Target, historyLimit int) (*Registry, error) {
	if len(targets) == 0 {
		return nil, errors.New("at least one target is required")
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}

	r := &Registry{
		targets:   make([]Target, len(targets)),
		index:     make(map[string]int, len(targets)),
		histories: make([]*History, len(targets)),
	}
	for i, t := range targets {
		if t.URL == "" {
			return nil, fmt.Errorf("targets[%d]: url is required", i)
		}
		if _, dup := r.index[t.URL]; dup {
			return nil, fmt.Errorf("duplicate target url: %q", t.URL)
		}
		t.Headers = copyHeaders(t.Headers)
		r.targets[i] = t
		r.index[t.URL] = i
		r.histories[i] = NewHistory(historyLimit)
	}
	r.initial = r.buildLocked(time.Now())
	return r, nil
}

// Targets returns a copy of the registered targets in registration order.
func (r *Registry) Targets() []Target {
	out := make([]Target, len(r.targets))
	for i, t := range r.targets {
		t.Headers = copyHeaders(t.Headers)
		out[i] = t
	}
	return out
}

// Len returns the number of registered targets.
func (r *Registry) Len() int {
	return len(r.targets)
}

// Initial returns the snapshot taken at construction, in which every
// target is [OutcomeUnknown] with an empty history.
func (r *Registry) Initial() *Snapshot {
	return r.initial
}

// ApplySweep merges one sweep's results and returns the resulting snapshot.
//
// results must contain exactly one result per registered target, in any
// order. The batch is validated before anything is changed; on error the
// registry is left untouched and the error wraps one of [ErrUnknownTarget],
// [ErrDuplicateResult], [ErrMissingResult] or [ErrInvalidOutcome].
//
// at is the sweep completion time. It becomes the snapshot timestamp and
// replaces CheckedAt on every recorded entry, so all entries added by one
// sweep share the snapshot's time.
func (r *Registry) ApplySweep(results []CheckResult, at time.Time) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slots := make([]int, len(results))
	seen := make([]bool, len(r.targets))
	for i, res := range results {
		idx, ok := r.index[res.URL]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTarget, res.URL)
		}
		if seen[idx] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateResult, res.URL)
		}
		if !res.Outcome.valid() {
			return nil, fmt.Errorf("%w %q for %q", ErrInvalidOutcome, res.Outcome, res.URL)
		}
		seen[idx] = true
		slots[i] = idx
	}
	for idx, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingResult, r.targets[idx].URL)
		}
	}

	for i, res := range results {
		res.CheckedAt = at
		r.histories[slots[i]].Append(res)
	}
	r.seq++
	return r.buildLocked(at), nil
}

// buildLocked assembles a snapshot from the current histories.
// Caller must hold r.mu (or be the constructor).
func (r *Registry) buildLocked(at time.Time) *Snapshot {
	websites := make([]TargetState, len(r.targets))
	for i, t := range r.targets {
		h := r.histories[i]
		status := OutcomeUnknown
		if last, ok := h.Last(); ok {
			status = last.Outcome
		}
		websites[i] = TargetState{
			URL:     t.URL,
			Status:  status,
			History: h.Entries(),
		}
	}
	return &Snapshot{
		seq:       r.seq,
		websites:  websites,
		timestamp: at,
	}
}

func copyHeaders(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
