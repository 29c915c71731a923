package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/sitepulse"
	"github.com/jpalmerr/sitepulse/config"
)

const (
	shutdownTimeout = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the monitor and dashboard server",
		Long: `Start the SitePulse monitor and dashboard server.

The server will:
  - Load configuration from the YAML file
  - Sweep all configured targets immediately and then on every interval
  - Serve the dashboard UI and the live SSE stream on the configured port

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  sitepulse serve -c sitepulse.yaml
  PORT=8080 sitepulse serve --config /etc/sitepulse/sitepulse.yaml`,
		RunE: runServe,
	}

	cmd.Flags().Int(flagPort, config.DefaultPort, "HTTP port (overrides config)")
	addLogFlags(cmd)
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := newLogger(cmd, cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = closer.Close() }()

	logger.Info("config loaded", "targets", len(cfg.Targets))
	logger.Info("starting server",
		"port", cfg.Port,
		"check_interval", cfg.CheckInterval.Duration().String(),
	)

	opts, err := config.MonitorOptions(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build targets: %w", err)
	}

	m, err := sitepulse.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- m.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
