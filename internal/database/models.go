package database

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Chat types as delivered by the messaging platform.
const (
	ChatTypePrivate    = "private"
	ChatTypeGroup      = "group"
	ChatTypeSupergroup = "supergroup"
	ChatTypeChannel    = "channel"
)

// User represents a chat participant. The ID is the platform identity and is
// never reassigned; name and username are refreshed on overwrite upserts.
type User struct {
	ID        int64  `db:"id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Username  string `db:"username"`
	IsBot     bool   `db:"is_bot"`
}

// Chat represents a conversation the bot observes.
type Chat struct {
	ID   int64  `db:"id"`
	Type string `db:"type"`
}

// URLList stores an ordered list of URLs as a JSON text column. SQLite has no
// array type, so the list is serialized on write and parsed on read.
type URLList []string

// Value implements driver.Valuer.
func (u URLList) Value() (driver.Value, error) {
	if u == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(u))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal url list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (u *URLList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*u = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into URLList", src)
	}
	if len(data) == 0 {
		*u = nil
		return nil
	}
	return json.Unmarshal(data, (*[]string)(u))
}

// Message represents a stored chat message. ID is the surrogate key assigned
// by the store; (MessageID, ChatID) is the natural key and must be unique.
// URLCount mirrors len(URLs) so aggregate queries can sum link volume without
// parsing the JSON column.
type Message struct {
	ID        int64     `db:"id"`
	MessageID int64     `db:"message_id"`
	UserID    int64     `db:"user_id"`
	ChatID    int64     `db:"chat_id"`
	Date      time.Time `db:"date"`
	URLs      URLList   `db:"urls"`
	URLCount  int       `db:"url_count"`
	Text      string    `db:"text"`
}

// Hashtag attributes one hashtag occurrence to the message it appears in.
// LinkedMessage points at the URL-bearing message the tag is about when the
// tagging message itself carried no URLs; it is null when the message is its
// own subject.
type Hashtag struct {
	ID            int64         `db:"id"`
	Message       int64         `db:"message"`
	LinkedMessage sql.NullInt64 `db:"linked_message"`
	Hashtag       string        `db:"hashtag"`
}

// MutedHashtag is an opt-out entry suppressing a tag from leaderboard
// aggregation in one chat.
type MutedHashtag struct {
	ChatID  int64  `db:"chat_id"`
	UserID  int64  `db:"user_id"`
	Hashtag string `db:"hashtag"`
}
