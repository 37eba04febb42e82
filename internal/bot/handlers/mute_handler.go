package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mvibes/tagstats/internal/database"
)

// NewMuteHandler returns a handler for /mute or /unmute, toggling a tag's
// presence in the chat's leaderboard exclusion list.
func NewMuteHandler(deps HandlerDeps, mute bool) bot.HandlerFunc {
	return muteHandler{deps: deps, mute: mute}.Handle
}

type muteHandler struct {
	deps HandlerDeps
	mute bool
}

func (h muteHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "mute")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	tag := normalizeTag(commandArg(update.Message.Text))
	if tag == "" {
		usage := "Usage: /mute <hashtag>"
		if !h.mute {
			usage = "Usage: /unmute <hashtag>"
		}
		h.reply(ctx, b, chatID, usage)
		return
	}

	muted := &database.MutedHashtag{
		ChatID:  chatID,
		UserID:  update.Message.From.ID,
		Hashtag: tag,
	}

	var err error
	var confirmation string
	if h.mute {
		err = h.deps.Store.MuteHashtag(ctx, muted)
		confirmation = fmt.Sprintf("%s is now hidden from leaderboards.", tag)
	} else {
		err = h.deps.Store.UnmuteHashtag(ctx, muted)
		confirmation = fmt.Sprintf("%s is back on the leaderboards.", tag)
	}
	if err != nil {
		log.ErrorContext(ctx, "Failed to toggle muted hashtag",
			"tag", tag, "chat_id", chatID, "mute", h.mute, "error", err)
		h.reply(ctx, b, chatID, "Something went wrong, try again later.")
		return
	}

	h.reply(ctx, b, chatID, confirmation)
}

func (h muteHandler) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send mute reply", "error", err, "chat_id", chatID)
	}
}
