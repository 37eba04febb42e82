package telegram_test

import (
	"context"
	"testing"

	"github.com/go-telegram/bot/models"

	"github.com/mvibes/tagstats/internal/ingest"
	"github.com/mvibes/tagstats/internal/telegram"
)

func TestEventFromMessage(t *testing.T) {
	t.Parallel()

	msg := &models.Message{
		ID:   42,
		Date: 1683000000,
		Chat: models.Chat{ID: -100, Type: models.ChatTypeSupergroup},
		From: &models.User{ID: 7, FirstName: "Alice", LastName: "A", Username: "alice"},
		Text: "https://x.test #rock @bob",
		Entities: []models.MessageEntity{
			{Type: models.MessageEntityTypeURL, Offset: 0, Length: 14},
			{Type: models.MessageEntityTypeHashtag, Offset: 15, Length: 5},
			{Type: models.MessageEntityTypeMention, Offset: 21, Length: 4},
			{Type: models.MessageEntityTypeBold, Offset: 0, Length: 5},
		},
		ReplyToMessage: &models.Message{
			ID:   41,
			Date: 1682990000,
			Chat: models.Chat{ID: -100, Type: models.ChatTypeSupergroup},
			From: &models.User{ID: 8, FirstName: "Bob"},
			Text: "earlier",
		},
	}

	ev := telegram.EventFromMessage(msg, false)
	if ev == nil {
		t.Fatal("EventFromMessage() = nil")
	}
	if ev.MessageID != 42 || ev.Chat.ID != -100 || ev.Chat.Type != "supergroup" {
		t.Errorf("event identity = %+v", ev)
	}
	if ev.Sender.ID != 7 || ev.Sender.Username != "alice" {
		t.Errorf("event sender = %+v", ev.Sender)
	}
	// The bold entity has no extractor mapping and is dropped.
	if len(ev.Entities) != 3 {
		t.Fatalf("entities = %d, want 3", len(ev.Entities))
	}
	if ev.ReplyTo == nil || ev.ReplyTo.MessageID != 41 || ev.ReplyTo.ChatID != -100 {
		t.Errorf("ReplyTo = %+v, want message 41 in chat -100", ev.ReplyTo)
	}

	urls, tags := ingest.Extract(ev)
	if len(urls) != 1 || urls[0] != "https://x.test" {
		t.Errorf("Extract() urls = %v", urls)
	}
	if len(tags) != 1 || tags[0] != "#rock" {
		t.Errorf("Extract() hashtags = %v", tags)
	}
}

func TestEventFromMessageCaptionFallback(t *testing.T) {
	t.Parallel()

	msg := &models.Message{
		ID:      1,
		Date:    1683000000,
		Chat:    models.Chat{ID: -1, Type: models.ChatTypeGroup},
		From:    &models.User{ID: 7, FirstName: "Alice"},
		Caption: "#rock",
		CaptionEntities: []models.MessageEntity{
			{Type: models.MessageEntityTypeHashtag, Offset: 0, Length: 5},
		},
	}

	ev := telegram.EventFromMessage(msg, false)
	if ev == nil {
		t.Fatal("EventFromMessage() = nil")
	}
	if ev.Text != "#rock" {
		t.Errorf("Text = %q, want caption text", ev.Text)
	}
	_, tags := ingest.Extract(ev)
	if len(tags) != 1 || tags[0] != "#rock" {
		t.Errorf("Extract() hashtags = %v", tags)
	}
}

func TestEventFromMessageNilSender(t *testing.T) {
	t.Parallel()

	msg := &models.Message{ID: 1, Chat: models.Chat{ID: -1}}
	if ev := telegram.EventFromMessage(msg, false); ev != nil {
		t.Errorf("EventFromMessage() = %+v, want nil without a sender", ev)
	}
}

func TestEmbeddedFetcher(t *testing.T) {
	t.Parallel()

	msg := &models.Message{
		ID:   3,
		Date: 1683000000,
		Chat: models.Chat{ID: -1, Type: models.ChatTypeGroup},
		From: &models.User{ID: 7, FirstName: "Alice"},
		ReplyToMessage: &models.Message{
			ID:   2,
			Date: 1682990000,
			Chat: models.Chat{ID: -1, Type: models.ChatTypeGroup},
			From: &models.User{ID: 8, FirstName: "Bob"},
			Text: "https://x.test",
			Entities: []models.MessageEntity{
				{Type: models.MessageEntityTypeURL, Offset: 0, Length: 14},
			},
		},
	}

	fetcher := telegram.NewEmbeddedFetcher(msg)
	ctx := context.Background()

	parent, err := fetcher.FetchMessage(ctx, ingest.MessageRef{ChatID: -1, MessageID: 2})
	if err != nil {
		t.Fatalf("FetchMessage() error = %v", err)
	}
	if parent == nil || parent.MessageID != 2 {
		t.Fatalf("FetchMessage() = %+v, want the embedded parent", parent)
	}

	missing, err := fetcher.FetchMessage(ctx, ingest.MessageRef{ChatID: -1, MessageID: 99})
	if err != nil {
		t.Fatalf("FetchMessage() error = %v", err)
	}
	if missing != nil {
		t.Errorf("FetchMessage(unknown) = %+v, want nil", missing)
	}
}
