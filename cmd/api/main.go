package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/markdave123-py/Docsift/internal/app"
	"github.com/markdave123-py/Docsift/internal/config"
)

func main() {
	cfg := config.LoadConfig()
	log := cfg.NewLogger(os.Stdout)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	tuning, err := config.LoadTuning(cfg.HeuristicsFile)
	if err != nil {
		log.Error("invalid tuning file", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx, cfg, tuning, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	log.Info("docsift is running", "port", cfg.Port, "ingest_workers", cfg.IngestWorkers)
	if err := application.Run(ctx); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shut down cleanly")
}
