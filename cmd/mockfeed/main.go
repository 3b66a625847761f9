// Package main runs the mock upstream: the REST snapshot API and the
// WebSocket event feed over a single listener. It exists so the
// dashboard can be exercised end to end without a real exchange.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"token-dashboard/internal/config"
	"token-dashboard/internal/logging"
	"token-dashboard/internal/mock"
)

func main() {
	configPath := flag.String("config", os.Getenv("DASHBOARD_CONFIG"), "Path to YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	seed := flag.Int64("seed", 42, "Universe seed")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	log, err := logging.New(*debug || cfg.Debug)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	gen := mock.NewGenerator(*seed)
	srv := mock.NewServer(gen, log.Named("mock"))

	httpSrv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("mock upstream listening", zap.String("addr", cfg.ListenAddr))
		errCh <- httpSrv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.Stringer("signal", sig))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown incomplete", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}

	log.Info("shutdown complete")
}
