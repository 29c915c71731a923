package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a config file",
		Long: `Validate a SitePulse configuration file without starting the server.

This command parses the YAML, expands environment variables, applies flag
and environment overrides and validates all fields. It's useful for CI/CD
pipelines or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  sitepulse validate -c sitepulse.yaml
  sitepulse validate --config /etc/sitepulse/sitepulse.yaml`,
		RunE: runValidate,
	}

	cmd.Flags().Int(flagPort, 0, "HTTP port (overrides config)")
	addLogFlags(cmd)
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:           %d\n", cfg.Port)
	fmt.Fprintf(out, "  Check interval: %s\n", cfg.CheckInterval.Duration())
	fmt.Fprintf(out, "  Probe timeout:  %s\n", cfg.Timeout.Duration())
	fmt.Fprintf(out, "  History limit:  %d\n", cfg.HistoryLimit)
	fmt.Fprintf(out, "  Targets:        %d\n", len(cfg.Targets))
	for _, t := range cfg.Targets {
		fmt.Fprintf(out, "    - %s\n", t.URL)
	}

	return nil
}
