package sitepulse

import "time"

// Outcome is the result of probing a target.
//
// The string values are part of the wire format sent to observers.
type Outcome string

const (
	// OutcomeOnline means the target answered with an accepted status.
	OutcomeOnline Outcome = "Online"

	// OutcomeOffline means the probe failed: wrong status, transport error
	// or timeout.
	OutcomeOffline Outcome = "Offline"

	// OutcomeUnknown is reported for a target that has not been probed yet.
	OutcomeUnknown Outcome = "Unknown"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}

// CheckResult holds the outcome of probing a single target once.
type CheckResult struct {
	// URL identifies the probed target.
	URL string `json:"url"`

	// CheckedAt is when the probe completed. Entries in
	// [TargetStatus.History] carry the completion time of the sweep that
	// recorded them instead.
	CheckedAt time.Time `json:"checked_at"`

	// Outcome is either [OutcomeOnline] or [OutcomeOffline].
	Outcome Outcome `json:"outcome"`

	// StatusCode is the HTTP status received. Zero if no response arrived.
	StatusCode int `json:"status_code,omitempty"`

	// Latency is the time taken by the probe.
	Latency time.Duration `json:"latency_ns"`

	// Error describes why the probe was offline. Empty when online.
	Error string `json:"error,omitempty"`
}

// TargetStatus is the current state of one target.
type TargetStatus struct {
	// URL identifies the target.
	URL string `json:"url"`

	// Status equals the outcome of the newest History entry, or
	// [OutcomeUnknown] when History is empty.
	Status Outcome `json:"status"`

	// History holds past results, oldest first, bounded by the history limit.
	History []CheckResult `json:"history"`
}

// SweepReport summarises one completed sweep.
type SweepReport struct {
	// ID correlates the sweep with its log lines.
	ID string `json:"id"`

	// Seq is the snapshot sequence number the sweep produced.
	Seq uint64 `json:"seq"`

	// StartedAt and CompletedAt bracket the sweep.
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	// Results holds one result per target in registration order.
	Results []CheckResult `json:"results"`
}

// Duration returns how long the sweep took.
func (r SweepReport) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Online returns how many targets were online.
func (r SweepReport) Online() int {
	return r.count(OutcomeOnline)
}

// Offline returns how many targets were offline.
func (r SweepReport) Offline() int {
	return r.count(OutcomeOffline)
}

func (r SweepReport) count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Stats is a point-in-time view of the monitor's counters.
type Stats struct {
	Sweeps       uint64 `json:"sweeps"`
	SkippedTicks uint64 `json:"skipped_ticks"`
	InFlight     bool   `json:"in_flight"`
	Observers    int    `json:"observers"`
	Published    uint64 `json:"published"`
	Dropped      uint64 `json:"dropped"`
}
