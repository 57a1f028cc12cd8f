// Package main provides the leaderboard collector entry point.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/leaderboard-collector/internal/adapter"
	"github.com/leaderboard-collector/internal/config"
	"github.com/leaderboard-collector/internal/logging"
	"github.com/leaderboard-collector/internal/ratelimit"
	"github.com/leaderboard-collector/internal/retry"
	"github.com/leaderboard-collector/internal/service"
	"github.com/leaderboard-collector/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Fatal("Failed to load configuration")
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.ParseLogFormat(cfg.Logging.Format))
	logger := logging.GetGlobalLogger()

	// Cancel the run on SIGINT/SIGTERM; nothing is written for an aborted fetch
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	gate, err := ratelimit.NewGate(&ratelimit.GateConfig{
		Mode:     cfg.Fetch.ThrottleMode,
		Interval: cfg.Fetch.Interval,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create request gate")
	}

	collector, err := service.NewCollectorService(&service.CollectorConfig{
		Fetcher:       adapter.NewElixirClient(cfg.API.BaseURL, cfg.API.RequestTimeout),
		Gate:          gate,
		Retry:         retry.DefaultRetryConfig(cfg.Fetch.MaxAttempts),
		PageSize:      cfg.API.PageSize,
		ProgressEvery: cfg.Fetch.ProgressEvery,
		StrictCount:   cfg.Fetch.StrictCount,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create collector")
	}

	sink, err := storage.NewSink(ctx, cfg)
	if err != nil {
		logger.WithError(err).WithField("format", cfg.Output.Format).Fatal("Failed to open output sink")
	}

	exporter, err := service.NewExportService(collector, sink, cfg.Output.KeepPartial)
	if err != nil {
		_ = sink.Close()
		logger.WithError(err).Fatal("Failed to create export service")
	}

	logger.WithFields(map[string]interface{}{
		"base_url":  cfg.API.BaseURL,
		"page_size": cfg.API.PageSize,
		"format":    cfg.Output.Format,
		"target":    sink.Target(),
	}).Info("Collector starting")

	_, runErr := exporter.Run(ctx)
	if err := sink.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close output sink")
	}
	if runErr != nil {
		logger.WithError(runErr).Fatal("Leaderboard export failed")
	}
}
