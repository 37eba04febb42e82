package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewTagHandler returns a handler for the /tag command, reporting link
// volume, first author, and top contributor for one hashtag.
func NewTagHandler(deps HandlerDeps) bot.HandlerFunc {
	return tagHandler{deps}.Handle
}

type tagHandler struct {
	deps HandlerDeps
}

func (h tagHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "tag")

	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	tag := normalizeTag(commandArg(update.Message.Text))
	if tag == "" {
		h.reply(ctx, b, chatID, "Usage: /tag <hashtag>")
		return
	}

	links, err := h.deps.Store.LinksByTag(ctx, chatID, tag)
	if err != nil {
		log.ErrorContext(ctx, "Failed to query tag links", "tag", tag, "chat_id", chatID, "error", err)
		h.reply(ctx, b, chatID, "Something went wrong, try again later.")
		return
	}
	if links == nil {
		h.reply(ctx, b, chatID, fmt.Sprintf("No links recorded for %s yet.", tag))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %d links\n", links.Hashtag, links.Links)

	author, err := h.deps.Store.FirstAuthorOfTag(ctx, chatID, tag)
	if err != nil {
		log.ErrorContext(ctx, "Failed to query first author", "tag", tag, "chat_id", chatID, "error", err)
	} else if author != nil {
		fmt.Fprintf(&sb, "First used by %s on %s\n",
			displayName(author.FirstName, author.LastName, author.Username),
			author.Date.Format("2006-01-02"))
	}

	contributor, err := h.deps.Store.TopContributorOfTag(ctx, chatID, tag)
	if err != nil {
		log.ErrorContext(ctx, "Failed to query top contributor", "tag", tag, "chat_id", chatID, "error", err)
	} else if contributor != nil {
		fmt.Fprintf(&sb, "Most used by %s (%d messages)",
			displayName(contributor.FirstName, contributor.LastName, contributor.Username),
			contributor.Count)
	}

	h.reply(ctx, b, chatID, sb.String())
}

func (h tagHandler) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send tag reply", "error", err, "chat_id", chatID)
	}
}
