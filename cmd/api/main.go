package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Tsinling0525/journeyflow/cmd/api/server"
	"github.com/Tsinling0525/journeyflow/config"
	"github.com/Tsinling0525/journeyflow/logging"
)

func main() {
	path := flag.String("config", "", "Path to config file (default ./"+config.DefaultFile+" when present)")
	flag.Parse()

	cfg, err := config.Load(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := server.Serve(ctx, cfg, logger); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}
