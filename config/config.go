// Package config provides YAML configuration parsing for SitePulse.
//
// This package enables running SitePulse as a standalone binary with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	title: Production
//	port: 3000
//	check_interval: 5s
//	timeout: 5s
//
//	log:
//	  level: info
//	  format: json
//	  file: /var/log/sitepulse/sitepulse.log
//
//	targets:
//	  - https://example.com
//	  - url: https://api.example.com/health
//	    timeout: 2s
//	    expected_status: 204
//	    headers:
//	      Authorization: Bearer ${API_TOKEN}
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"
)

// Defaults applied by [Parse] to unset fields.
const (
	DefaultPort           = 3000
	DefaultCheckInterval  = 5 * time.Second
	DefaultTimeout        = 5 * time.Second
	DefaultHistoryLimit   = 500
	DefaultObserverBuffer = 16
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// minCheckInterval prevents accidental hammering of targets with overly
// aggressive sweeps.
const minCheckInterval = 1 * time.Second

// Config is the root configuration structure for SitePulse.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Title is the dashboard title. Defaults to "SitePulse" if not set.
	Title string `yaml:"title" json:"title"`

	// Port is the HTTP server port. Defaults to 3000.
	Port int `yaml:"port" json:"port"`

	// CheckInterval is the time between sweeps.
	// Accepts duration strings like "10s", "1m". Defaults to 5s.
	CheckInterval Duration `yaml:"check_interval" json:"check_interval"`

	// Timeout is the default per-probe timeout. Defaults to 5s.
	Timeout Duration `yaml:"timeout" json:"timeout"`

	// MaxConcurrency bounds the number of probes in flight during a sweep.
	// Zero means one goroutine per target.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency"`

	// HistoryLimit is the number of results retained per target.
	// Defaults to 500.
	HistoryLimit int `yaml:"history_limit" json:"history_limit"`

	// ObserverBuffer is the number of snapshots queued per observer.
	// Defaults to 16.
	ObserverBuffer int `yaml:"observer_buffer" json:"observer_buffer"`

	Log LogConfig `yaml:"log" json:"log"`

	// Targets are the websites to monitor, in display order.
	Targets []TargetConfig `yaml:"targets" json:"targets"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn or error. Defaults to info.
	Level string `yaml:"level" json:"level"`

	// Format is "text" or "json". Defaults to text.
	Format string `yaml:"format" json:"format"`

	// File, when set, also writes logs to a size-rotated file.
	File string `yaml:"file" json:"file"`

	MaxSizeMB  int `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int `yaml:"max_backups" json:"max_backups"`
}

// TargetConfig defines a single monitored website.
//
// It supports two formats in YAML:
//
// Shorthand string:
//
//	targets:
//	  - https://example.com
//
// Structured object:
//
//	targets:
//	  - url: https://example.com
//	    timeout: 2s
type TargetConfig struct {
	// URL is the address probed with GET.
	// Supports environment variable substitution: ${VAR} or ${VAR:-default}
	URL string `yaml:"url" json:"url"`

	// Timeout overrides the global timeout for this target.
	Timeout Duration `yaml:"timeout" json:"timeout"`

	// ExpectedStatus, when set, is the only status code counted as online.
	// Otherwise any 2xx is online.
	ExpectedStatus int `yaml:"expected_status" json:"expected_status"`

	// Headers are custom HTTP headers sent with each probe.
	// Values support environment variable substitution.
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// MarshalText renders the duration as a string like "5s".
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration().String()), nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML implements yaml.Unmarshaler for TargetConfig.
func (t *TargetConfig) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&t.URL)
	case yaml.MappingNode:
		// alias type avoids infinite recursion
		type raw TargetConfig
		var r raw
		if err := node.Decode(&r); err != nil {
			return err
		}
		*t = TargetConfig(r)
		return nil
	default:
		return fmt.Errorf("target must be a URL string or object, got %v", node.Kind)
	}
}

// Validate implements validation.Validatable for TargetConfig.
func (t TargetConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.URL,
			validation.Required,
			is.URL,
			validation.By(validateHTTPURL),
		),
		validation.Field(&t.Timeout,
			validation.By(validatePositiveDuration),
		),
		validation.Field(&t.ExpectedStatus,
			validation.When(t.ExpectedStatus != 0, validation.Min(100), validation.Max(599)),
		),
	)
}

// Validate implements validation.Validatable for LogConfig.
func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level,
			validation.Required,
			validation.In("debug", "info", "warn", "warning", "error"),
		),
		validation.Field(&l.Format,
			validation.Required,
			validation.In("text", "json"),
		),
		validation.Field(&l.MaxSizeMB, validation.Min(0)),
		validation.Field(&l.MaxBackups, validation.Min(0)),
	)
}

// Validate checks the whole configuration. [Parse] calls it after applying
// defaults; call it again after overriding fields by hand.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port,
			validation.Min(0),
			validation.Max(65535),
		),
		validation.Field(&c.CheckInterval,
			validation.Required,
			validation.By(validateCheckInterval),
		),
		validation.Field(&c.Timeout,
			validation.Required,
			validation.By(validatePositiveDuration),
		),
		validation.Field(&c.MaxConcurrency, validation.Min(0)),
		validation.Field(&c.HistoryLimit, validation.Required, validation.Min(1)),
		validation.Field(&c.ObserverBuffer, validation.Required, validation.Min(1)),
		validation.Field(&c.Log),
		validation.Field(&c.Targets,
			validation.Required.Error("at least one target must be defined"),
			validation.By(validateUniqueURLs),
		),
	)
}

func validateCheckInterval(value interface{}) error {
	d, ok := value.(Duration)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a Duration")
	}
	if d.Duration() < minCheckInterval {
		return validation.NewError("validation_interval_too_short",
			fmt.Sprintf("must be at least %s", minCheckInterval))
	}
	return nil
}

func validatePositiveDuration(value interface{}) error {
	d, ok := value.(Duration)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a Duration")
	}
	if d < 0 {
		return validation.NewError("validation_negative_duration", "cannot be negative")
	}
	return nil
}

func validateHTTPURL(value interface{}) error {
	raw, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}
	if parsed.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}
	return nil
}

func validateUniqueURLs(value interface{}) error {
	targets, ok := value.([]TargetConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a list of targets")
	}

	seen := make(map[string]int, len(targets))
	for i, t := range targets {
		if j, dup := seen[t.URL]; dup {
			return validation.NewError("validation_duplicate_url",
				fmt.Sprintf("targets %d and %d share URL %q", j, i, t.URL))
		}
		seen[t.URL] = i
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		sub := envVarPattern.FindStringSubmatch(match)
		name := sub[1]
		hasDefault := sub[2] != ""

		value, exists := os.LookupEnv(name)
		if !exists {
			if hasDefault {
				return sub[3]
			}
			firstErr = fmt.Errorf("environment variable %q is not set", name)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
//
// Environment variables in target URLs and header values are expanded
// before validation. Returns an error if the file cannot be read, parsed
// or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Defaults are applied for every unset field, environment variables are
// expanded, and the result is validated.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expand(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.CheckInterval == 0 {
		c.CheckInterval = Duration(DefaultCheckInterval)
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(DefaultTimeout)
	}
	if c.HistoryLimit == 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.ObserverBuffer == 0 {
		c.ObserverBuffer = DefaultObserverBuffer
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// expand substitutes environment variables in target URLs and header values.
func (c *Config) expand() error {
	for i := range c.Targets {
		t := &c.Targets[i]

		if t.URL == "" {
			return fmt.Errorf("targets[%d]: url is required", i)
		}
		expanded, err := expandEnvVars(t.URL)
		if err != nil {
			return fmt.Errorf("targets[%d]: url: %w", i, err)
		}
		t.URL = expanded

		for k, v := range t.Headers {
			expanded, err := expandEnvVars(v)
			if err != nil {
				return fmt.Errorf("targets[%d] (%s): headers[%s]: %w", i, t.URL, k, err)
			}
			t.Headers[k] = expanded
		}
	}
	return nil
}

// ErrNoConfig is returned by [Resolve] when no config path is given and
// none of the default locations exist.
var ErrNoConfig = errors.New("no config file found")

// DefaultPaths are searched in order by [Resolve].
var DefaultPaths = []string{"sitepulse.yaml", "sitepulse.yml", "config/sitepulse.yaml"}

// Resolve returns path if non-empty, otherwise the first of [DefaultPaths]
// that exists.
func Resolve(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", ErrNoConfig
}
