// Command example runs a SitePulse monitor against a local set of mock
// websites.
//
// Usage:
//
//	go run ./example              # mock sites plus dashboard on :3000
//	go run ./example -mock-only   # mock sites only, for the CLI:
//	go run ./cmd/sitepulse serve -c example/sitepulse.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/sitepulse"
)

const mockAddr = "localhost:9999"

func main() {
	mockOnly := flag.Bool("mock-only", false, "serve the mock sites without the monitor")
	flag.Parse()

	if *mockOnly {
		fmt.Printf("Mock sites on http://%s/sites/{name}\n", mockAddr)
		StartMockSites(mockAddr)
		return
	}

	// start mock sites (see mock_server.go)
	go StartMockSites(mockAddr)
	time.Sleep(100 * time.Millisecond)

	var targets []sitepulse.Target
	for _, name := range []string{"shop", "blog", "docs"} {
		targets = append(targets, sitepulse.MustTarget("http://"+mockAddr+"/sites/"+name))
	}
	// always exceeds its timeout
	targets = append(targets, sitepulse.MustTarget("http://"+mockAddr+"/sites/slow",
		sitepulse.WithTimeout(time.Second),
	))

	m, err := sitepulse.New(
		sitepulse.WithTargets(targets...),
		sitepulse.WithCheckInterval(5*time.Second),
		sitepulse.WithPort(3000),
		sitepulse.WithTitle("SitePulse Demo"),
		sitepulse.WithSweepCallback(func(r sitepulse.SweepReport) {
			if r.Offline() > 0 {
				slog.Warn("sites offline", "count", r.Offline(), "seq", r.Seq)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create monitor", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  SitePulse Demo")
	fmt.Println()
	fmt.Println("  Open http://localhost:3000 in your browser")
	fmt.Println("  Targets: 3 mock sites flipping up/down, 1 slow site")
	fmt.Println("  Press Ctrl+C to stop")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := m.Start(ctx); err != nil {
		slog.Error("sitepulse error", "error", err)
		os.Exit(1)
	}
}
