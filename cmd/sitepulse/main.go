// Package main is the entry point for the sitepulse CLI.
//
// SitePulse can be run either as a library (SDK) or as a standalone binary
// with YAML configuration. This CLI provides the standalone binary approach.
//
// Usage:
//
//	sitepulse serve -c sitepulse.yaml    # Start the monitor and dashboard
//	sitepulse validate -c sitepulse.yaml # Validate configuration
//	sitepulse check -c sitepulse.yaml    # Probe every target once
//	sitepulse version                    # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// newRootCmd builds the command tree. Each call returns independent flag
// state.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sitepulse",
		Short: "Live uptime monitor for a fixed set of websites",
		Long: `SitePulse checks a fixed list of websites on a fixed cadence and
pushes their live status to connected browsers over Server-Sent Events.

Quick start:
  1. Create a config file (sitepulse.yaml)
  2. Run: sitepulse serve -c sitepulse.yaml
  3. Open http://localhost:3000 in your browser

Example config:
  check_interval: 5s
  targets:
    - https://example.com
    - url: https://api.example.com/health
      timeout: 2s

Settings can be overridden with flags or environment variables:
  --port, SITEPULSE_PORT or PORT
  --log-level, SITEPULSE_LOG_LEVEL
  --log-format, SITEPULSE_LOG_FORMAT
  --config, SITEPULSE_CONFIG`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringP(flagConfig, "c", "", "path to config file (default: ./sitepulse.yaml)")

	root.AddCommand(
		newServeCmd(),
		newValidateCmd(),
		newCheckCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, and build date of this sitepulse binary.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "sitepulse %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func main() {
	Execute()
}
