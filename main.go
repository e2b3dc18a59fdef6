package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chrono-scraper/config"
	"chrono-scraper/pipeline"
	"chrono-scraper/scraper"
	"chrono-scraper/services"
	"chrono-scraper/storage"
	"chrono-scraper/utils"
)

// Exit codes: 0 — all categories completed; 1 — the run could not start
// (bad configuration or no database connection); 2 — the run completed
// but some categories failed.
const (
	exitOK      = 0
	exitFatal   = 1
	exitPartial = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Watch price ingestion starting ===")
	logger.Info("Config — categories: %s | limit: %d | concurrency: %d | delay: %ds | mode: %s | adapter: %s",
		strings.Join(cfg.Categories, ", "), cfg.FetchLimit, cfg.MaxConcurrency,
		cfg.CategoryDelaySec, cfg.ReconcileMode, cfg.SourceAdapter)

	mode, err := services.ParseMode(cfg.ReconcileMode)
	if err != nil {
		logger.Error("Invalid configuration: %v", err)
		return exitFatal
	}

	source, err := scraper.New(cfg, logger)
	if err != nil {
		logger.Error("Invalid configuration: %v", err)
		return exitFatal
	}

	store, err := storage.NewPostgres(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		return exitFatal
	}
	defer store.Close()

	var archive pipeline.Archiver
	if cfg.CSVOutputPath != "" {
		csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
		if err != nil {
			logger.Warn("Raw feed archive disabled: %v", err)
		} else {
			defer csvWriter.Close()
			archive = csvWriter
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pipeline.New(cfg, logger, source, store, mode, archive)
	summary := runner.Run(ctx)

	logger.Info("=== Run summary ===")
	logger.Info("Elapsed: %v | processed: %d | inserted: %d | updated: %d | unchanged: %d | excluded: %d | detail rows: %d",
		summary.Elapsed.Round(time.Millisecond), summary.Processed, summary.Inserted,
		summary.Updated, summary.Unchanged, summary.Excluded, summary.DetailRows)
	logger.Info("Coerced fields: %d | failed writes: %d", summary.CoercedFields, summary.FailedWrites)

	if failed := summary.FailedCategories(); len(failed) > 0 {
		logger.Error("Failed categories: %s", strings.Join(failed, ", "))
	}

	snaps, err := store.FetchDay(ctx, summary.Day)
	if err != nil {
		logger.Error("Failed to fetch today's rows for the market report: %v", err)
	} else {
		insights := services.NewInsightService(logger)
		insights.Print(insights.Generate(snaps))
	}

	if !summary.AllSucceeded() {
		return exitPartial
	}
	return exitOK
}
