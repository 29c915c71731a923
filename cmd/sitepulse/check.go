package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/sitepulse"
	"github.com/jpalmerr/sitepulse/config"
)

const flagJSON = "json"

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Probe every target once and print the results",
		Long: `Run a single sweep over every configured target and print the results,
without starting the server.

Exit codes:
  0 - Every target is online
  1 - One or more targets are offline, or the config is invalid

Example:
  sitepulse check -c sitepulse.yaml
  sitepulse check -c sitepulse.yaml --json`,
		RunE: runCheck,
	}

	cmd.Flags().Bool(flagJSON, false, "print the sweep report as JSON")
	addLogFlags(cmd)
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := newLogger(cmd, cfg)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = closer.Close() }()

	opts, err := config.MonitorOptions(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to build targets: %w", err)
	}

	m, err := sitepulse.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create monitor: %w", err)
	}

	report, err := m.Sweep(cmd.Context())
	if err != nil {
		return err
	}

	asJSON, _ := cmd.Flags().GetBool(flagJSON)
	if asJSON {
		if err := writeReportJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	} else {
		writeReportTable(cmd.OutOrStdout(), report)
	}

	if n := report.Offline(); n > 0 {
		return fmt.Errorf("%d of %d targets offline", n, len(report.Results))
	}
	return nil
}

func writeReportJSON(out io.Writer, report sitepulse.SweepReport) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func writeReportTable(out io.Writer, report sitepulse.SweepReport) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "URL\tSTATUS\tCODE\tLATENCY\tERROR")
	for _, r := range report.Results {
		code := "-"
		if r.StatusCode > 0 {
			code = fmt.Sprint(r.StatusCode)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.URL,
			r.Outcome,
			code,
			r.Latency.Round(time.Millisecond),
			r.Error,
		)
	}
	_ = w.Flush()
}
