package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewWeeklyHandler returns a handler for /weekly or /disable_weekly, toggling
// the chat's weekly digest subscription.
func NewWeeklyHandler(deps HandlerDeps, enable bool) bot.HandlerFunc {
	return weeklyHandler{deps: deps, enable: enable}.Handle
}

type weeklyHandler struct {
	deps   HandlerDeps
	enable bool
}

func (h weeklyHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "weekly")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	var text string
	if h.enable {
		h.deps.Digests.Enable(chatID)
		text = "Weekly digest enabled for this chat."
	} else {
		h.deps.Digests.Disable(chatID)
		text = "Weekly digest disabled for this chat."
	}
	log.InfoContext(ctx, "Toggled weekly digest", "chat_id", chatID, "enabled", h.enable)

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send weekly toggle reply", "error", err, "chat_id", chatID)
	}
}
