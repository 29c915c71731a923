package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jpalmerr/sitepulse/config"
	"github.com/jpalmerr/sitepulse/internal/logging"
)

const (
	flagConfig    = "config"
	flagPort      = "port"
	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"
)

// settings keys and the environment variables that feed them, highest
// priority first
var envBindings = map[string][]string{
	"config":     {"SITEPULSE_CONFIG"},
	"port":       {"SITEPULSE_PORT", "PORT"},
	"log.level":  {"SITEPULSE_LOG_LEVEL"},
	"log.format": {"SITEPULSE_LOG_FORMAT"},
}

var flagBindings = map[string]string{
	"config":     flagConfig,
	"port":       flagPort,
	"log.level":  flagLogLevel,
	"log.format": flagLogFormat,
}

// addLogFlags registers the logging overrides on cmd.
func addLogFlags(cmd *cobra.Command) {
	cmd.Flags().String(flagLogLevel, "", "log level: debug, info, warn, error (overrides config)")
	cmd.Flags().String(flagLogFormat, "", "log format: text or json (overrides config)")
}

// loadConfig resolves the config file, loads it and applies flag and
// environment overrides. Flags win over environment variables, which win
// over the file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	for key, flag := range flagBindings {
		if f := cmd.Flag(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
			}
		}
	}
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	path, err := config.Resolve(v.GetString("config"))
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if v.IsSet("port") {
		port, err := strconv.Atoi(v.GetString("port"))
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", v.GetString("port"), err)
		}
		cfg.Port = port
	}
	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.format") {
		cfg.Log.Format = v.GetString("log.format")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger described by cfg, writing to
// cmd's error stream.
func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, io.Closer, error) {
	return logging.New(logging.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Output:     cmd.ErrOrStderr(),
	})
}
