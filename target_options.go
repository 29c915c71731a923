package sitepulse

import (
	"errors"
	"time"
)

// targetConfig holds mutable state during target construction.
type targetConfig struct {
	timeout        time.Duration
	expectedStatus int
	headers        map[string]string
}

// TargetOption configures a [Target] during construction.
//
// Built-in options: [WithTimeout], [WithExpectedStatus], [WithHeaders].
type TargetOption func(*targetConfig) error

// WithTimeout sets the probe timeout for this target.
//
// A probe that does not complete within this duration marks the target
// offline for that sweep. Without this option the monitor-wide probe
// timeout applies.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) TargetOption {
	return func(cfg *targetConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithExpectedStatus pins the HTTP status code counted as online.
//
// By default any 2xx status is online. With this option only code is.
//
// Returns an error if code is not a valid HTTP status (100-599).
func WithExpectedStatus(code int) TargetOption {
	return func(cfg *targetConfig) error {
		if code < 100 || code > 599 {
			return errors.New("expected status must be between 100 and 599")
		}
		cfg.expectedStatus = code
		return nil
	}
}

// WithHeaders adds custom HTTP headers to probe requests for this target.
//
// Accepts variadic key-value pairs. The number of arguments must be even.
//
// Example:
//
//	t, err := sitepulse.NewTarget(url,
//	    sitepulse.WithHeaders("Authorization", "Bearer token123"),
//	)
//
// Returns an error if an odd number of arguments is provided.
func WithHeaders(keyValues ...string) TargetOption {
	return func(cfg *targetConfig) error {
		if len(keyValues)%2 != 0 {
			return errors.New("WithHeaders requires an even number of arguments (key-value pairs)")
		}
		if cfg.headers == nil {
			cfg.headers = make(map[string]string, len(keyValues)/2)
		}
		for i := 0; i < len(keyValues); i += 2 {
			cfg.headers[keyValues[i]] = keyValues[i+1]
		}
		return nil
	}
}
