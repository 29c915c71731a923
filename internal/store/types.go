package store

import (
	"errors"
	"time"
)

// Outcome is the reachability classification of a target.
//
// The string values are part of the wire format and must not change.
type Outcome string

const (
	// OutcomeOnline means the last probe received a successful HTTP response.
	OutcomeOnline Outcome = "Online"

	// OutcomeOffline means the last probe failed for any reason.
	OutcomeOffline Outcome = "Offline"

	// OutcomeUnknown is reported for a target that has not been probed yet.
	// A probe never produces it.
	OutcomeUnknown Outcome = "Unknown"
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	return string(o)
}

// valid reports whether o is an outcome a probe may record.
func (o Outcome) valid() bool {
	return o == OutcomeOnline || o == OutcomeOffline
}

// Sentinel errors returned by [Registry.ApplySweep]. Each one indicates a
// malformed sweep, which is a programming error rather than a runtime
// condition.
var (
	ErrUnknownTarget   = errors.New("result for unknown target")
	ErrDuplicateResult = errors.New("duplicate result for target")
	ErrMissingResult   = errors.New("missing result for target")
	ErrInvalidOutcome  = errors.New("invalid outcome")
)

// Target is a monitored HTTP endpoint.
//
// URL is the target's identity and is unique within a [Registry]. The
// remaining fields tune how the target is probed.
type Target struct {
	// URL is the endpoint that is requested with GET.
	URL string

	// Timeout bounds a single probe. Zero means the prober's default.
	Timeout time.Duration

	// ExpectedStatus pins the only HTTP status treated as online.
	// Zero means any 2xx status is online.
	ExpectedStatus int

	// Headers are sent with every probe request.
	Headers map[string]string
}

// CheckResult is the outcome of one probe against one target.
//
// A CheckResult is created once and never modified afterwards.
type CheckResult struct {
	// URL identifies the probed target.
	URL string

	// CheckedAt is when the probe completed.
	CheckedAt time.Time

	// Outcome is either OutcomeOnline or OutcomeOffline.
	Outcome Outcome

	// StatusCode is the HTTP status received, or 0 if none was.
	StatusCode int

	// Latency is the time the probe took.
	Latency time.Duration

	// Err describes why the probe was classified offline. Empty when online.
	Err string
}

// TargetState is one target's state inside a [Snapshot].
type TargetState struct {
	URL     string
	Status  Outcome
	History []CheckResult
}
