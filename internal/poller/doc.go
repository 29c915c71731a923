// Package poller provides the probing and sweep scheduling for sitepulse.
//
// This package is internal to sitepulse. It issues reachability checks
// against every monitored target and fires those checks on a fixed cadence.
//
// The main components are:
//
//   - [Prober]: HTTP reachability check with per-target timeout and pooled
//     connections; [Prober.ProbeAll] fans out over all targets concurrently
//   - [Scheduler]: fixed-cadence trigger that never overlaps sweeps and
//     drops ticks that arrive while a sweep is still running
//
// Users of the sitepulse library should not need to interact with this
// package directly. Configuration is done through the main sitepulse package.
package poller
