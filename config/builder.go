package config

import (
	"log/slog"
	"sort"

	"github.com/jpalmerr/sitepulse"
)

// BuildTargets converts parsed configuration into SDK Target objects,
// preserving the order they appear in the file.
//
// Per-target timeouts are left unset when the target does not override
// the global timeout, so the monitor's probe timeout applies.
func BuildTargets(cfg *Config) ([]sitepulse.Target, error) {
	targets := make([]sitepulse.Target, 0, len(cfg.Targets))
	for _, tc := range cfg.Targets {
		t, err := buildTarget(tc)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// buildTarget converts a single TargetConfig to an SDK Target.
func buildTarget(tc TargetConfig) (sitepulse.Target, error) {
	var opts []sitepulse.TargetOption

	if tc.Timeout != 0 {
		opts = append(opts, sitepulse.WithTimeout(tc.Timeout.Duration()))
	}

	if tc.ExpectedStatus != 0 {
		opts = append(opts, sitepulse.WithExpectedStatus(tc.ExpectedStatus))
	}

	if len(tc.Headers) > 0 {
		opts = append(opts, sitepulse.WithHeaders(mapToKeyValuePairs(tc.Headers)...))
	}

	return sitepulse.NewTarget(tc.URL, opts...)
}

// MonitorOptions returns the SDK options described by cfg, targets
// included. logger may be nil.
func MonitorOptions(cfg *Config, logger *slog.Logger) ([]sitepulse.Option, error) {
	targets, err := BuildTargets(cfg)
	if err != nil {
		return nil, err
	}

	opts := []sitepulse.Option{
		sitepulse.WithTargets(targets...),
		sitepulse.WithPort(cfg.Port),
		sitepulse.WithCheckInterval(cfg.CheckInterval.Duration()),
		sitepulse.WithProbeTimeout(cfg.Timeout.Duration()),
		sitepulse.WithMaxConcurrency(cfg.MaxConcurrency),
		sitepulse.WithHistoryLimit(cfg.HistoryLimit),
		sitepulse.WithObserverBuffer(cfg.ObserverBuffer),
	}
	if cfg.Title != "" {
		opts = append(opts, sitepulse.WithTitle(cfg.Title))
	}
	if logger != nil {
		opts = append(opts, sitepulse.WithLogger(logger))
	}
	return opts, nil
}

// mapToKeyValuePairs converts a map to a sorted slice of key-value pairs.
func mapToKeyValuePairs(m map[string]string) []string {
	// sort keys for deterministic ordering
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(m)*2)
	for _, k := range keys {
		pairs = append(pairs, k, m[k])
	}
	return pairs
}
