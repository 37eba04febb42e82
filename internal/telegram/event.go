package telegram

import (
	"context"
	"time"

	"github.com/go-telegram/bot/models"

	"github.com/mvibes/tagstats/internal/ingest"
)

// EventFromMessage converts a Telegram message into a normalized ingestion
// event. Caption and caption entities stand in for text when the message is a
// media post. Returns nil when the message carries no usable author.
func EventFromMessage(msg *models.Message, edited bool) *ingest.Event {
	if msg == nil || msg.From == nil {
		return nil
	}

	text := msg.Text
	entities := msg.Entities
	if text == "" && msg.Caption != "" {
		text = msg.Caption
		entities = msg.CaptionEntities
	}

	ev := &ingest.Event{
		MessageID: int64(msg.ID),
		Chat: ingest.Chat{
			ID:   msg.Chat.ID,
			Type: string(msg.Chat.Type),
		},
		Sender: ingest.Sender{
			ID:        msg.From.ID,
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
			Username:  msg.From.Username,
			IsBot:     msg.From.IsBot,
		},
		Date:      time.Unix(int64(msg.Date), 0).UTC(),
		Text:      text,
		Entities:  convertEntities(entities),
		Forwarded: msg.ForwardOrigin != nil,
		Edited:    edited,
	}

	if msg.ReplyToMessage != nil {
		ev.ReplyTo = &ingest.MessageRef{
			ChatID:    msg.Chat.ID,
			MessageID: int64(msg.ReplyToMessage.ID),
		}
	}
	return ev
}

func convertEntities(entities []models.MessageEntity) []ingest.Entity {
	if len(entities) == 0 {
		return nil
	}

	converted := make([]ingest.Entity, 0, len(entities))
	for _, e := range entities {
		var kind ingest.EntityKind
		switch e.Type {
		case models.MessageEntityTypeURL:
			kind = ingest.EntityURL
		case models.MessageEntityTypeTextLink:
			kind = ingest.EntityTextLink
		case models.MessageEntityTypeHashtag:
			kind = ingest.EntityHashtag
		case models.MessageEntityTypeMention:
			kind = ingest.EntityMention
		case models.MessageEntityTypeTextMention:
			kind = ingest.EntityTextMention
		default:
			continue
		}

		entity := ingest.Entity{
			Kind:   kind,
			Offset: e.Offset,
			Length: e.Length,
			URL:    e.URL,
		}
		if e.User != nil {
			entity.UserID = e.User.ID
		}
		converted = append(converted, entity)
	}
	return converted
}

// EmbeddedFetcher serves reply-parent lookups from the reply chain embedded
// in one update. The bot API embeds only the immediate parent, so live
// resolution usually terminates after one hop; refs outside the embedded
// chain resolve to nothing rather than an error.
type EmbeddedFetcher struct {
	byRef map[ingest.MessageRef]*ingest.Event
}

// NewEmbeddedFetcher indexes the message's embedded reply ancestors.
func NewEmbeddedFetcher(msg *models.Message) *EmbeddedFetcher {
	f := &EmbeddedFetcher{byRef: make(map[ingest.MessageRef]*ingest.Event)}
	if msg == nil {
		return f
	}
	for parent := msg.ReplyToMessage; parent != nil; parent = parent.ReplyToMessage {
		ev := EventFromMessage(parent, false)
		if ev == nil {
			break
		}
		ref := ingest.MessageRef{ChatID: ev.Chat.ID, MessageID: ev.MessageID}
		if _, ok := f.byRef[ref]; ok {
			break
		}
		f.byRef[ref] = ev
	}
	return f
}

// FetchMessage implements ingest.ParentFetcher.
func (f *EmbeddedFetcher) FetchMessage(_ context.Context, ref ingest.MessageRef) (*ingest.Event, error) {
	return f.byRef[ref], nil
}
