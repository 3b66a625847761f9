// Package main runs the dashboard headless: it mounts the sync engine
// against a live upstream and periodically prints the current page and
// connection state, which is enough to watch the store converge.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"token-dashboard/internal/config"
	"token-dashboard/internal/dashboard"
	"token-dashboard/internal/logging"
	"token-dashboard/internal/stream"
)

func main() {
	configPath := flag.String("config", os.Getenv("DASHBOARD_CONFIG"), "Path to YAML config file")
	renderInterval := flag.Duration("render-interval", 5*time.Second, "How often to print the current view")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logging.New(*debug || cfg.Debug)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	d := dashboard.New(dashboard.Options{
		Config: cfg,
		Log:    log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("mounting dashboard",
		zap.String("api", cfg.APIBaseURL),
		zap.String("ws", cfg.WSURL))
	d.Mount(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(*renderInterval)
	defer ticker.Stop()

	for {
		select {
		case sig := <-sigCh:
			log.Info("shutting down", zap.Stringer("signal", sig))
			d.Unmount()
			log.Info("shutdown complete")
			return
		case <-ticker.C:
			render(d)
		}
	}
}

// render prints one page of the view plus connection health.
func render(d *dashboard.Dashboard) {
	res := d.View()
	cs := d.ConnState()

	fmt.Printf("-- %s | page %d/%d | %d tokens", cs.Status, res.Page, res.TotalPages, res.Total)
	if cs.Status == stream.StatusGivenUp {
		fmt.Printf(" | reconnect exhausted, call Retry")
	}
	if msg := d.SnapshotError(); msg != "" {
		fmt.Printf(" | snapshot: %s", msg)
	}
	fmt.Println()

	for _, t := range res.Tokens {
		fmt.Printf("%-14s %12.4f %+7.2f%% vol %14.0f liq %14.0f %s\n",
			t.Pair, t.Price, t.Change24h, t.Volume24h, t.Liquidity, t.Category)
	}
}
