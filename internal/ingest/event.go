// Package ingest turns normalized inbound chat events into persisted message
// and hashtag-attribution rows. It covers entity-span extraction, reply-chain
// resolution of hashtag-only messages, and the per-message ingestion pipeline.
package ingest

import "time"

// EntityKind enumerates the annotation kinds the extractor understands. The
// set is closed: extraction dispatches on it exhaustively and ignores any
// other value.
type EntityKind int

const (
	// EntityURL marks a literal URL substring at the span's offset.
	EntityURL EntityKind = iota
	// EntityTextLink marks visible text whose link target lives in the
	// entity's URL field, not in the message text.
	EntityTextLink
	// EntityHashtag marks a #tag substring.
	EntityHashtag
	// EntityMention marks an @username substring.
	EntityMention
	// EntityTextMention marks visible text referring to a user without a
	// username; the user id lives in the entity's UserID field.
	EntityTextMention
)

// Entity is one annotated span of a message. Offset and Length are measured
// in UTF-16 code units, matching the platform's wire encoding. Text, when
// set, is the span's substring precomputed by the transport; extraction
// prefers it over slicing so export formats without reliable offsets still
// work.
type Entity struct {
	Kind   EntityKind
	Offset int
	Length int
	URL    string
	UserID int64
	Text   string
}

// MessageRef identifies a message by its platform-native coordinates.
type MessageRef struct {
	ChatID    int64
	MessageID int64
}

// Chat is the conversation an event belongs to.
type Chat struct {
	ID   int64
	Type string
}

// Sender is the event's author.
type Sender struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
	IsBot     bool
}

// Event is a normalized inbound message, independent of any transport. The
// transport layer builds one per platform update; the historical importer
// builds them from export files.
type Event struct {
	MessageID int64
	Chat      Chat
	Sender    Sender
	Date      time.Time
	Text      string
	Entities  []Entity

	// ReplyTo is the immediate reply parent, nil when the message is not a
	// reply.
	ReplyTo *MessageRef
	// Forwarded marks the message as a copy of content authored elsewhere.
	Forwarded bool
	// Edited marks the event as an edit of a previously delivered message.
	Edited bool
}
