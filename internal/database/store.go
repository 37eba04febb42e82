package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// UpsertResult reports the outcome of a single-row upsert. Inserted is false
// when the row already existed and the conflict policy left it untouched;
// callers must treat that as a no-op, not an error.
type UpsertResult struct {
	ID       int64
	Inserted bool
}

// Store defines the interface for database operations. Writes use explicit
// conflict policies: overwrite=false silently ignores a conflicting natural
// key, overwrite=true replaces the mutable fields while leaving identity
// fields untouched.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// UpsertUser inserts or refreshes a user. On conflict with overwrite
	// enabled the name fields and username are replaced; the id and bot flag
	// are never touched.
	UpsertUser(ctx context.Context, user *User, overwrite bool) error

	// UpsertUsers bulk-upserts users and returns the number of rows written.
	UpsertUsers(ctx context.Context, users []User, overwrite bool) (int64, error)

	// UpsertChat inserts or corrects a chat. On conflict with overwrite
	// enabled only the type is replaced.
	UpsertChat(ctx context.Context, chat *Chat, overwrite bool) error

	// UpsertChats bulk-upserts chats and returns the number of rows written.
	UpsertChats(ctx context.Context, chats []Chat, overwrite bool) (int64, error)

	// UpsertMessage inserts a message keyed on its natural
	// (message_id, chat_id) pair. With overwrite enabled a conflicting row
	// has its date, urls, and text replaced in place, preserving the
	// surrogate id. The result carries the surrogate id and whether a row
	// was actually written.
	UpsertMessage(ctx context.Context, message *Message, overwrite bool) (UpsertResult, error)

	// UpsertHashtag attaches a hashtag to a stored message. On a conflicting
	// (message, hashtag) pair with overwrite enabled the linked_message
	// reference is updated; without overwrite the row is left as is.
	// Referencing a message id that does not exist is a fatal error.
	UpsertHashtag(ctx context.Context, hashtag *Hashtag, overwrite bool) error

	// UserIDByUsername resolves a username to the user id. Exact,
	// case-sensitive match; an arbitrary row wins if duplicates exist.
	UserIDByUsername(ctx context.Context, username string) (int64, bool, error)

	// MessageIDByNaturalKey resolves a platform (chat_id, message_id) pair to
	// the surrogate message id.
	MessageIDByNaturalKey(ctx context.Context, chatID, messageID int64) (int64, bool, error)

	// MuteHashtag adds a tag to the chat's leaderboard exclusion list.
	MuteHashtag(ctx context.Context, muted *MutedHashtag) error

	// UnmuteHashtag removes a tag from the chat's exclusion list.
	UnmuteHashtag(ctx context.Context, muted *MutedHashtag) error

	// Aggregate read-only views, all scoped to one chat.

	// LinksByTag returns the summed link count of all messages that contain
	// or are linked from the tag. Returns nil when the tag is unknown.
	LinksByTag(ctx context.Context, chatID int64, tag string) (*TagLinks, error)

	// FirstAuthorOfTag returns the author and message of the tag's earliest
	// use. Returns nil when the tag is unknown.
	FirstAuthorOfTag(ctx context.Context, chatID int64, tag string) (*TagAuthor, error)

	// TopContributorOfTag returns the user with the most messages carrying
	// the tag. Returns nil when the tag is unknown.
	TopContributorOfTag(ctx context.Context, chatID int64, tag string) (*TagContributor, error)

	// TagsByAuthor returns the count and set of tags the user introduced
	// first in the chat. Returns nil when the user introduced none.
	TagsByAuthor(ctx context.Context, chatID, userID int64) (*AuthorTags, error)

	// LinksByAuthor returns the user's total link count in the chat.
	// Returns nil when the user has no stored messages there.
	LinksByAuthor(ctx context.Context, chatID, userID int64) (*AuthorLinks, error)

	// ForeignTagEvents lists occurrences of the user tagging a link-bearing
	// message authored by someone else.
	ForeignTagEvents(ctx context.Context, chatID, userID int64) ([]ForeignTagEvent, error)

	// AllTags lists every active tag in the chat, muted tags excluded,
	// ordered by name.
	AllTags(ctx context.Context, chatID int64) ([]string, error)

	// TopTags ranks tags by summed link count descending, tag name ascending
	// on ties, muted tags excluded.
	TopTags(ctx context.Context, chatID int64, limit int) ([]TagLinks, error)

	// TopContributors ranks users by total link count descending.
	TopContributors(ctx context.Context, chatID int64, limit int) ([]Contributor, error)

	// BottomContributors ranks users by total link count ascending.
	BottomContributors(ctx context.Context, chatID int64, limit int) ([]Contributor, error)

	// TopContributorsByDateRange ranks users by link count over messages
	// dated in [from, to).
	TopContributorsByDateRange(ctx context.Context, chatID int64, from, to time.Time, limit int) ([]Contributor, error)

	// MusicServiceBreakdown buckets every chat URL into a known music
	// service provider, with uncategorized links under ServiceOther.
	MusicServiceBreakdown(ctx context.Context, chatID int64) ([]ServiceLinks, error)
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const (
	upsertUserIgnore = `
        INSERT INTO users (id, first_name, last_name, username, is_bot)
        VALUES (:id, :first_name, :last_name, :username, :is_bot)
        ON CONFLICT (id) DO NOTHING;
    `
	upsertUserOverwrite = `
        INSERT INTO users (id, first_name, last_name, username, is_bot)
        VALUES (:id, :first_name, :last_name, :username, :is_bot)
        ON CONFLICT (id) DO UPDATE SET
            first_name = excluded.first_name,
            last_name = excluded.last_name,
            username = excluded.username;
    `
)

func (s *sqlxStore) UpsertUser(ctx context.Context, user *User, overwrite bool) error {
	if user == nil {
		return fmt.Errorf("cannot upsert nil user")
	}

	query := upsertUserIgnore
	if overwrite {
		query = upsertUserOverwrite
	}

	if _, err := s.db.NamedExecContext(ctx, query, user); err != nil {
		s.logger.ErrorContext(ctx, "Error upserting user", "user_id", user.ID, "error", err)
		return fmt.Errorf("failed to upsert user %d: %w", user.ID, err)
	}
	return nil
}

func (s *sqlxStore) UpsertUsers(ctx context.Context, users []User, overwrite bool) (int64, error) {
	if len(users) == 0 {
		return 0, nil
	}

	query := upsertUserIgnore
	if overwrite {
		query = upsertUserOverwrite
	}

	var written int64
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		for i := range users {
			result, err := tx.NamedExecContext(ctx, query, &users[i])
			if err != nil {
				return fmt.Errorf("failed to upsert user %d: %w", users[i].ID, err)
			}
			if affected, err := result.RowsAffected(); err == nil {
				written += affected
			}
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error bulk-upserting users", "count", len(users), "error", err)
		return 0, err
	}

	s.logger.DebugContext(ctx, "Bulk-upserted users", "count", len(users), "written", written)
	return written, nil
}

const (
	upsertChatIgnore = `
        INSERT INTO chats (id, type) VALUES (:id, :type)
        ON CONFLICT (id) DO NOTHING;
    `
	upsertChatOverwrite = `
        INSERT INTO chats (id, type) VALUES (:id, :type)
        ON CONFLICT (id) DO UPDATE SET type = excluded.type;
    `
)

func (s *sqlxStore) UpsertChat(ctx context.Context, chat *Chat, overwrite bool) error {
	if chat == nil {
		return fmt.Errorf("cannot upsert nil chat")
	}

	query := upsertChatIgnore
	if overwrite {
		query = upsertChatOverwrite
	}

	if _, err := s.db.NamedExecContext(ctx, query, chat); err != nil {
		s.logger.ErrorContext(ctx, "Error upserting chat", "chat_id", chat.ID, "error", err)
		return fmt.Errorf("failed to upsert chat %d: %w", chat.ID, err)
	}
	return nil
}

func (s *sqlxStore) UpsertChats(ctx context.Context, chats []Chat, overwrite bool) (int64, error) {
	if len(chats) == 0 {
		return 0, nil
	}

	query := upsertChatIgnore
	if overwrite {
		query = upsertChatOverwrite
	}

	var written int64
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		for i := range chats {
			result, err := tx.NamedExecContext(ctx, query, &chats[i])
			if err != nil {
				return fmt.Errorf("failed to upsert chat %d: %w", chats[i].ID, err)
			}
			if affected, err := result.RowsAffected(); err == nil {
				written += affected
			}
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error bulk-upserting chats", "count", len(chats), "error", err)
		return 0, err
	}

	return written, nil
}

const (
	upsertMessageIgnore = `
        INSERT INTO messages (message_id, user_id, chat_id, date, urls, url_count, text)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (message_id, chat_id) DO NOTHING
        RETURNING id;
    `
	upsertMessageOverwrite = `
        INSERT INTO messages (message_id, user_id, chat_id, date, urls, url_count, text)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (message_id, chat_id) DO UPDATE SET
            date = excluded.date,
            urls = excluded.urls,
            url_count = excluded.url_count,
            text = excluded.text
        RETURNING id;
    `
)

func (s *sqlxStore) UpsertMessage(ctx context.Context, message *Message, overwrite bool) (UpsertResult, error) {
	if message == nil {
		return UpsertResult{}, fmt.Errorf("cannot upsert nil message")
	}
	if message.ChatID == 0 {
		return UpsertResult{}, fmt.Errorf("message must have a non-zero chat_id")
	}
	if message.UserID == 0 {
		return UpsertResult{}, fmt.Errorf("message must have a non-zero user_id")
	}
	if message.Date.IsZero() {
		return UpsertResult{}, fmt.Errorf("message must have a non-zero date")
	}

	message.URLCount = len(message.URLs)
	message.Date = message.Date.UTC()

	query := upsertMessageIgnore
	if overwrite {
		query = upsertMessageOverwrite
	}

	var id int64
	err := s.db.QueryRowxContext(ctx, query,
		message.MessageID, message.UserID, message.ChatID,
		message.Date, message.URLs, message.URLCount, message.Text,
	).Scan(&id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Conflict under the ignore policy: nothing was written. Look up the
		// existing surrogate id so callers still know which row holds the
		// natural key.
		existing, found, lookupErr := s.MessageIDByNaturalKey(ctx, message.ChatID, message.MessageID)
		if lookupErr != nil {
			return UpsertResult{}, lookupErr
		}
		if found {
			message.ID = existing
		}
		s.logger.DebugContext(ctx, "Message upsert was a no-op",
			"chat_id", message.ChatID, "message_id", message.MessageID)
		return UpsertResult{ID: existing, Inserted: false}, nil

	case err != nil:
		s.logger.ErrorContext(ctx, "Error upserting message",
			"chat_id", message.ChatID, "message_id", message.MessageID, "error", err)
		return UpsertResult{}, fmt.Errorf("failed to upsert message (chat %d, message %d): %w",
			message.ChatID, message.MessageID, err)
	}

	message.ID = id
	return UpsertResult{ID: id, Inserted: true}, nil
}

const (
	upsertHashtagIgnore = `
        INSERT INTO hashtags (message, linked_message, hashtag)
        VALUES (:message, :linked_message, :hashtag)
        ON CONFLICT (message, hashtag) DO NOTHING;
    `
	upsertHashtagOverwrite = `
        INSERT INTO hashtags (message, linked_message, hashtag)
        VALUES (:message, :linked_message, :hashtag)
        ON CONFLICT (message, hashtag) DO UPDATE SET
            linked_message = excluded.linked_message;
    `
)

func (s *sqlxStore) UpsertHashtag(ctx context.Context, hashtag *Hashtag, overwrite bool) error {
	if hashtag == nil {
		return fmt.Errorf("cannot upsert nil hashtag")
	}
	if hashtag.Hashtag == "" {
		return fmt.Errorf("hashtag must be non-empty")
	}

	query := upsertHashtagIgnore
	if overwrite {
		query = upsertHashtagOverwrite
	}

	if _, err := s.db.NamedExecContext(ctx, query, hashtag); err != nil {
		// A foreign key failure here means the caller attached the tag to a
		// message that was never stored; that is a sequencing bug, so the
		// error propagates rather than being swallowed.
		s.logger.ErrorContext(ctx, "Error upserting hashtag",
			"message", hashtag.Message, "hashtag", hashtag.Hashtag, "error", err)
		return fmt.Errorf("failed to upsert hashtag %q for message %d: %w",
			hashtag.Hashtag, hashtag.Message, err)
	}
	return nil
}

func (s *sqlxStore) UserIDByUsername(ctx context.Context, username string) (int64, bool, error) {
	var id int64
	query := `SELECT id FROM users WHERE username = ? LIMIT 1`

	err := s.db.GetContext(ctx, &id, query, username)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, false, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error looking up user by username", "username", username, "error", err)
		return 0, false, fmt.Errorf("failed to look up user %q: %w", username, err)
	}
	return id, true, nil
}

func (s *sqlxStore) MessageIDByNaturalKey(ctx context.Context, chatID, messageID int64) (int64, bool, error) {
	var id int64
	query := `SELECT id FROM messages WHERE chat_id = ? AND message_id = ?`

	err := s.db.GetContext(ctx, &id, query, chatID, messageID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return 0, false, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error looking up message by natural key",
			"chat_id", chatID, "message_id", messageID, "error", err)
		return 0, false, fmt.Errorf("failed to look up message (chat %d, message %d): %w",
			chatID, messageID, err)
	}
	return id, true, nil
}

func (s *sqlxStore) MuteHashtag(ctx context.Context, muted *MutedHashtag) error {
	if muted == nil {
		return fmt.Errorf("cannot mute nil hashtag entry")
	}

	query := `
        INSERT INTO muted_hashtags (chat_id, user_id, hashtag)
        VALUES (:chat_id, :user_id, :hashtag)
        ON CONFLICT (chat_id, user_id, hashtag) DO NOTHING;
    `
	if _, err := s.db.NamedExecContext(ctx, query, muted); err != nil {
		return fmt.Errorf("failed to mute hashtag %q in chat %d: %w", muted.Hashtag, muted.ChatID, err)
	}
	return nil
}

func (s *sqlxStore) UnmuteHashtag(ctx context.Context, muted *MutedHashtag) error {
	if muted == nil {
		return fmt.Errorf("cannot unmute nil hashtag entry")
	}

	query := `DELETE FROM muted_hashtags WHERE chat_id = :chat_id AND user_id = :user_id AND hashtag = :hashtag`
	if _, err := s.db.NamedExecContext(ctx, query, muted); err != nil {
		return fmt.Errorf("failed to unmute hashtag %q in chat %d: %w", muted.Hashtag, muted.ChatID, err)
	}
	return nil
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *sqlxStore) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.Warn("Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil
	return nil
}
