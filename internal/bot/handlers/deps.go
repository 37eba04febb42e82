package handlers

import (
	"log/slog"

	"github.com/mvibes/tagstats/internal/bot/tasks"
	"github.com/mvibes/tagstats/internal/config"
	"github.com/mvibes/tagstats/internal/database"
	"github.com/mvibes/tagstats/internal/ingest"
)

// HandlerDeps provides dependencies for Telegram command and message
// handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    database.Store
	Pipeline *ingest.Pipeline
	Digests  *tasks.DigestRegistry
}
