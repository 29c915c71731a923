package sitepulse

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Target is a website to monitor.
//
// Target is immutable after creation via [NewTarget]. The URL identifies the
// target and must be unique within a [Monitor]. All fields are private with
// getter methods that return copies of mutable data (maps).
type Target struct {
	url            string
	timeout        time.Duration
	expectedStatus int
	headers        map[string]string
}

// URL returns the target URL. It is also the target's identifier.
func (t Target) URL() string {
	return t.url
}

// Timeout returns the per-probe timeout for this target.
// Zero means the monitor's probe timeout applies (see [WithProbeTimeout]).
func (t Target) Timeout() time.Duration {
	return t.timeout
}

// ExpectedStatus returns the only HTTP status counted as online.
// Zero means any 2xx status is online.
func (t Target) ExpectedStatus() int {
	return t.expectedStatus
}

// Headers returns a copy of the custom HTTP headers sent with every probe.
// Returns nil if no custom headers are set.
func (t Target) Headers() map[string]string {
	return copyMap(t.headers)
}

// NewTarget creates a [Target] for rawURL.
//
// rawURL must be an absolute http:// or https:// URL with a host.
//
// Example:
//
//	t, err := sitepulse.NewTarget("https://example.com",
//	    sitepulse.WithTimeout(3 * time.Second),
//	    sitepulse.WithExpectedStatus(204),
//	)
func NewTarget(rawURL string, opts ...TargetOption) (Target, error) {
	if rawURL == "" {
		return Target{}, errors.New("target URL cannot be empty")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return Target{}, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return Target{}, errors.New("URL must have a scheme (http:// or https://)")
	}
	if parsedURL.Host == "" {
		return Target{}, errors.New("URL must have a host")
	}

	cfg := &targetConfig{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Target{}, err
		}
	}

	return Target{
		url:            rawURL,
		timeout:        cfg.timeout,
		expectedStatus: cfg.expectedStatus,
		headers:        cfg.headers,
	}, nil
}

// MustTarget is like [NewTarget] but panics on error. Intended for
// hard-coded target lists.
func MustTarget(rawURL string, opts ...TargetOption) Target {
	t, err := NewTarget(rawURL, opts...)
	if err != nil {
		panic(fmt.Sprintf("sitepulse: invalid target %q: %v", rawURL, err))
	}
	return t
}

// copyMap returns a shallow copy of the map.
func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
