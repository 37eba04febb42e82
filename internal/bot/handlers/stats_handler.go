package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const (
	statsTagLimit         = 10
	statsContributorLimit = 5
)

// NewStatsHandler returns a handler for the /stats command, posting the
// chat's tag and contributor leaderboards plus the music-service breakdown.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps}.Handle
}

type statsHandler struct {
	deps HandlerDeps
}

func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	var blocks []string

	tags, err := h.deps.Store.TopTags(ctx, chatID, statsTagLimit)
	if err != nil {
		log.ErrorContext(ctx, "Failed to query top tags", "chat_id", chatID, "error", err)
		h.reply(ctx, b, chatID, "Something went wrong, try again later.")
		return
	}
	blocks = append(blocks, formatTagLeaderboard(tags))

	top, err := h.deps.Store.TopContributors(ctx, chatID, statsContributorLimit)
	if err != nil {
		log.ErrorContext(ctx, "Failed to query top contributors", "chat_id", chatID, "error", err)
	} else if block := formatContributors("Top contributors:", top); block != "" {
		blocks = append(blocks, block)
	}

	bottom, err := h.deps.Store.BottomContributors(ctx, chatID, statsContributorLimit)
	if err != nil {
		log.ErrorContext(ctx, "Failed to query bottom contributors", "chat_id", chatID, "error", err)
	} else if block := formatContributors("Quietest contributors:", bottom); block != "" {
		blocks = append(blocks, block)
	}

	services, err := h.deps.Store.MusicServiceBreakdown(ctx, chatID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to query service breakdown", "chat_id", chatID, "error", err)
	} else if block := formatServices(services); block != "" {
		blocks = append(blocks, block)
	}

	h.reply(ctx, b, chatID, strings.Join(blocks, "\n"))
}

func (h statsHandler) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send stats reply", "error", err, "chat_id", chatID)
	}
}
