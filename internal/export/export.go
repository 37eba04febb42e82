// Package export parses Telegram desktop chat export files (result.json)
// into normalized ingestion events for historical import.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/mvibes/tagstats/internal/ingest"
)

// dump mirrors the top level of a chat export file.
type dump struct {
	ID       int64         `json:"id"`
	Type     string        `json:"type"`
	Messages []dumpMessage `json:"messages"`
}

type dumpMessage struct {
	ID               int64        `json:"id"`
	Type             string       `json:"type"`
	Date             string       `json:"date"`
	From             string       `json:"from"`
	FromID           string       `json:"from_id"`
	ForwardedFrom    string       `json:"forwarded_from"`
	ReplyToMessageID int64        `json:"reply_to_message_id"`
	TextEntities     []dumpEntity `json:"text_entities"`
}

type dumpEntity struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Href string `json:"href"`
}

// exportDateLayout is the timestamp format used by desktop exports. The
// values are in the exporting client's local time; we treat them as UTC for
// lack of zone information.
const exportDateLayout = "2006-01-02T15:04:05"

// Parse reads a chat export and returns its chat id and the messages as
// ingestion events, preserving export order (oldest first). Service messages
// and messages from channels or deleted accounts are skipped.
func Parse(r io.Reader) (chatID int64, events []*ingest.Event, err error) {
	var d dump
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return 0, nil, fmt.Errorf("failed to decode export: %w", err)
	}

	chatType := normalizeChatType(d.Type)
	for _, msg := range d.Messages {
		ev, convErr := eventFromDump(d.ID, chatType, msg)
		if convErr != nil {
			return 0, nil, convErr
		}
		if ev != nil {
			events = append(events, ev)
		}
	}
	return d.ID, events, nil
}

func eventFromDump(chatID int64, chatType string, msg dumpMessage) (*ingest.Event, error) {
	if msg.Type != "message" {
		return nil, nil
	}

	// from_id is "user12345" for accounts, "channel..." for channel posts.
	userID, ok := parseUserID(msg.FromID)
	if !ok {
		return nil, nil
	}

	date, err := time.Parse(exportDateLayout, msg.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to parse date of message %d: %w", msg.ID, err)
	}

	var text strings.Builder
	var entities []ingest.Entity
	for _, e := range msg.TextEntities {
		text.WriteString(e.Text)
		entity, ok := convertEntity(e)
		if ok {
			entities = append(entities, entity)
		}
	}

	ev := &ingest.Event{
		MessageID: msg.ID,
		Chat:      ingest.Chat{ID: chatID, Type: chatType},
		Sender:    ingest.Sender{ID: userID, FirstName: msg.From},
		Date:      date.UTC(),
		Text:      text.String(),
		Entities:  entities,
		Forwarded: msg.ForwardedFrom != "",
	}
	if msg.ReplyToMessageID != 0 {
		ev.ReplyTo = &ingest.MessageRef{ChatID: chatID, MessageID: msg.ReplyToMessageID}
	}
	return ev, nil
}

// convertEntity maps an export entity to an ingestion entity. Export
// entities carry their text inline, so offsets are never needed.
func convertEntity(e dumpEntity) (ingest.Entity, bool) {
	switch e.Type {
	case "link":
		return ingest.Entity{Kind: ingest.EntityURL, Text: e.Text}, true
	case "text_link":
		return ingest.Entity{Kind: ingest.EntityTextLink, URL: e.Href, Text: e.Text}, true
	case "hashtag":
		return ingest.Entity{Kind: ingest.EntityHashtag, Text: e.Text}, true
	case "mention":
		return ingest.Entity{Kind: ingest.EntityMention, Text: e.Text}, true
	case "mention_name":
		return ingest.Entity{Kind: ingest.EntityTextMention, Text: e.Text}, true
	default:
		return ingest.Entity{}, false
	}
}

func parseUserID(fromID string) (int64, bool) {
	raw, ok := strings.CutPrefix(fromID, "user")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func normalizeChatType(exportType string) string {
	switch exportType {
	case "personal_chat", "saved_messages", "bot_chat":
		return "private"
	case "private_group":
		return "group"
	case "private_supergroup", "public_supergroup":
		return "supergroup"
	case "private_channel", "public_channel":
		return "channel"
	default:
		return "group"
	}
}
