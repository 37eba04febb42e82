package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mvibes/tagstats/internal/ingest"
	"github.com/mvibes/tagstats/internal/telegram"
)

// NewIngestHandler returns the default handler feeding every non-command
// message (and edit) through the ingestion pipeline.
func NewIngestHandler(deps HandlerDeps) bot.HandlerFunc {
	return ingestHandler{deps}.Handle
}

type ingestHandler struct {
	deps HandlerDeps
}

func (h ingestHandler) Handle(ctx context.Context, _ *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "ingest")

	msg := update.Message
	edited := false
	if msg == nil && update.EditedMessage != nil {
		msg = update.EditedMessage
		edited = true
	}
	if msg == nil {
		return
	}
	if strings.HasPrefix(msg.Text, "/") {
		// Commands are handled elsewhere and carry no attributable content.
		return
	}

	ev := telegram.EventFromMessage(msg, edited)
	if ev == nil {
		return
	}

	result, err := h.deps.Pipeline.Process(ctx, ev, telegram.NewEmbeddedFetcher(msg))
	if err != nil {
		log.ErrorContext(ctx, "Failed to ingest message",
			"chat_id", ev.Chat.ID, "message_id", ev.MessageID, "error", err)
		return
	}

	if result.Outcome == ingest.OutcomeStored {
		log.InfoContext(ctx, "Ingested message",
			"chat_id", ev.Chat.ID, "message_id", ev.MessageID,
			"hashtags", result.Hashtags, "edited", edited)
	}
}
