// Package main contains the historical importer. It ingests a Telegram
// desktop chat export (result.json) into the tagstats database.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mvibes/tagstats/internal/config"
	"github.com/mvibes/tagstats/internal/database"
	"github.com/mvibes/tagstats/internal/export"
	"github.com/mvibes/tagstats/internal/ingest"
	"github.com/mvibes/tagstats/internal/logger"

	_ "go.uber.org/automaxprocs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

func run(ctx context.Context) int {
	exportPath := flag.String("export", "result.json", "Path to the Telegram chat export file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.LogLevel, cfg.LogFormat)

	f, err := os.Open(*exportPath)
	if err != nil {
		log.Error("Failed to open export file", "path", *exportPath, "error", err)
		return 1
	}
	defer f.Close()

	chatID, events, err := export.Parse(f)
	if err != nil {
		log.Error("Failed to parse export file", "path", *exportPath, "error", err)
		return 1
	}
	log.Info("Parsed chat export", "chat_id", chatID, "messages", len(events))

	db, err := database.NewDB(cfg.DBPath)
	if err != nil {
		log.Error("Failed to open database", "path", cfg.DBPath, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	pipeline := ingest.NewPipeline(store, ingest.NewResolver(cfg.ResolverMaxHops), log)
	result, err := pipeline.ProcessBatch(ctx, events)
	if err != nil {
		log.Error("Import failed", "chat_id", chatID, "error", err)
		return 1
	}

	log.Info("Import finished",
		"chat_id", chatID,
		"stored", result.Stored,
		"hashtags", result.Hashtags,
		"duplicates", result.Duplicates,
		"unresolved", result.Unresolved,
		"skipped", result.Skipped)
	return 0
}
