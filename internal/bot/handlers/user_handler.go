package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewUserHandler returns a handler for the /user command, reporting a user's
// introduced tags, link volume, and foreign-link tagging activity. Without an
// argument it reports on the sender.
func NewUserHandler(deps HandlerDeps) bot.HandlerFunc {
	return userHandler{deps}.Handle
}

type userHandler struct {
	deps HandlerDeps
}

func (h userHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "user")

	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	userID := update.Message.From.ID
	if arg := commandArg(update.Message.Text); arg != "" {
		username := strings.TrimPrefix(arg, "@")
		id, found, err := h.deps.Store.UserIDByUsername(ctx, username)
		if err != nil {
			log.ErrorContext(ctx, "Failed to look up username", "username", username, "error", err)
			h.reply(ctx, b, chatID, "Something went wrong, try again later.")
			return
		}
		if !found {
			h.reply(ctx, b, chatID, fmt.Sprintf("I don't know @%s yet.", username))
			return
		}
		userID = id
	}

	var sb strings.Builder

	tags, err := h.deps.Store.TagsByAuthor(ctx, chatID, userID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to query user tags", "user_id", userID, "chat_id", chatID, "error", err)
		h.reply(ctx, b, chatID, "Something went wrong, try again later.")
		return
	}
	if tags != nil {
		fmt.Fprintf(&sb, "%s introduced %d tags: %s\n",
			displayName(tags.FirstName, tags.LastName, tags.Username),
			tags.Count, strings.Join(tags.Tags(), " "))
	}

	links, err := h.deps.Store.LinksByAuthor(ctx, chatID, userID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to query user links", "user_id", userID, "chat_id", chatID, "error", err)
	} else if links != nil {
		fmt.Fprintf(&sb, "Links shared: %d\n", links.Links)
	}

	foreign, err := h.deps.Store.ForeignTagEvents(ctx, chatID, userID)
	if err != nil {
		log.ErrorContext(ctx, "Failed to query foreign tag events", "user_id", userID, "chat_id", chatID, "error", err)
	} else if len(foreign) > 0 {
		fmt.Fprintf(&sb, "Tagged other people's links %d times\n", len(foreign))
	}

	if sb.Len() == 0 {
		h.reply(ctx, b, chatID, "No activity recorded for that user in this chat.")
		return
	}
	h.reply(ctx, b, chatID, strings.TrimRight(sb.String(), "\n"))
}

func (h userHandler) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to send user reply", "error", err, "chat_id", chatID)
	}
}
