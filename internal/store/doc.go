// Package store holds the monitored targets and their check history.
//
// This package is internal to SitePulse. It owns the only mutable state in
// the monitoring core and exposes it exclusively through immutable values.
//
// The main components are:
//
//   - [Registry]: the fixed set of targets with per-target history. Its
//     [Registry.ApplySweep] method is the state aggregator: it merges one
//     sweep's results and returns a brand-new [Snapshot].
//   - [History]: a fixed-capacity ring of [CheckResult] values per target.
//   - [Snapshot]: a point-in-time view of every target, safe to share
//     between any number of goroutines because it is never modified.
//
// The registry has a single writer (the sweep that calls ApplySweep) and
// any number of readers, all of which only ever see snapshots. Readers
// therefore never take the registry lock.
package store
