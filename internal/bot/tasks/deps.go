package tasks

import (
	"log/slog"

	tgbot "github.com/go-telegram/bot"

	"github.com/mvibes/tagstats/internal/config"
	"github.com/mvibes/tagstats/internal/database"
)

// TaskDeps provides dependencies for scheduled tasks.
type TaskDeps struct {
	Logger  *slog.Logger
	Config  *config.Config
	Store   database.Store
	Bot     *tgbot.Bot
	Digests *DigestRegistry
}
