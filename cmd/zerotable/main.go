// zerotable is the database daemon: it opens the store and serves the
// HTTP API until interrupted.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/zerotable/zerotable/internal/catalog"
	"github.com/zerotable/zerotable/internal/config"
	"github.com/zerotable/zerotable/internal/engine"
	"github.com/zerotable/zerotable/internal/logger"
	"github.com/zerotable/zerotable/internal/metrics"
	"github.com/zerotable/zerotable/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	dataDir := flag.String("data-dir", "", "data directory (overrides config)")
	addr := flag.String("addr", "", "http listen address (overrides config)")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (overrides config)")
	flag.Parse()

	log := logger.Default()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("load config: %v", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *addr != "" {
		cfg.HTTP.Addr = *addr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	log.SetLevel(logger.ParseLevel(cfg.Log.Level))

	m := metrics.New()
	eng, err := engine.Open(cfg.DataDir, log, engine.Options{Metrics: m})
	if err != nil {
		log.Error("open engine: %v", err)
		os.Exit(1)
	}
	defer eng.Close()

	cat := catalog.New(eng, log)
	srv, err := server.New(cfg, eng, cat, m, log)
	if err != nil {
		log.Error("init server: %v", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received %s, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			log.Error("server: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown: %v", err)
	}
	if err := eng.Close(); err != nil {
		log.Error("close engine: %v", err)
	}
}
