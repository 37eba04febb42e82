package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/mvibes/tagstats/internal/database"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil)
}

func seedChatAndUser(t *testing.T, store database.Store, chatID, userID int64) {
	t.Helper()

	ctx := context.Background()
	if err := store.UpsertChat(ctx, &database.Chat{ID: chatID, Type: database.ChatTypeSupergroup}, false); err != nil {
		t.Fatalf("UpsertChat() error = %v", err)
	}
	if err := store.UpsertUser(ctx, &database.User{ID: userID, FirstName: "Test"}, false); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}
}

func TestUpsertUserConflictPolicies(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	original := &database.User{ID: 7, FirstName: "Alice", Username: "alice", IsBot: false}
	if err := store.UpsertUser(ctx, original, false); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}

	// Ignore policy leaves the stored row untouched.
	if err := store.UpsertUser(ctx, &database.User{ID: 7, FirstName: "Changed"}, false); err != nil {
		t.Fatalf("UpsertUser() ignore error = %v", err)
	}
	id, found, err := store.UserIDByUsername(ctx, "alice")
	if err != nil || !found || id != 7 {
		t.Fatalf("UserIDByUsername(alice) = (%d, %v, %v), want (7, true, nil)", id, found, err)
	}

	// Overwrite refreshes the mutable fields.
	updated := &database.User{ID: 7, FirstName: "Alice", Username: "alice_new", IsBot: true}
	if err := store.UpsertUser(ctx, updated, true); err != nil {
		t.Fatalf("UpsertUser() overwrite error = %v", err)
	}
	if _, found, _ := store.UserIDByUsername(ctx, "alice"); found {
		t.Error("old username still resolves after overwrite")
	}
	if _, found, _ := store.UserIDByUsername(ctx, "alice_new"); !found {
		t.Error("new username does not resolve after overwrite")
	}
}

func TestUpsertUsersBulk(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	users := []database.User{
		{ID: 1, FirstName: "A"},
		{ID: 2, FirstName: "B"},
		{ID: 3, FirstName: "C"},
	}
	written, err := store.UpsertUsers(ctx, users, false)
	if err != nil {
		t.Fatalf("UpsertUsers() error = %v", err)
	}
	if written != 3 {
		t.Errorf("UpsertUsers() written = %d, want 3", written)
	}

	// Re-running under the ignore policy writes nothing.
	written, err = store.UpsertUsers(ctx, users, false)
	if err != nil {
		t.Fatalf("UpsertUsers() second run error = %v", err)
	}
	if written != 0 {
		t.Errorf("UpsertUsers() second run written = %d, want 0", written)
	}
}

func TestUpsertMessageIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	seedChatAndUser(t, store, -100, 1)

	msg := &database.Message{
		MessageID: 42,
		UserID:    1,
		ChatID:    -100,
		Date:      time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC),
		URLs:      database.URLList{"https://example.com"},
		Text:      "https://example.com #rock",
	}

	first, err := store.UpsertMessage(ctx, msg, false)
	if err != nil {
		t.Fatalf("UpsertMessage() error = %v", err)
	}
	if !first.Inserted {
		t.Fatal("first UpsertMessage() reported no insert")
	}
	if first.ID == 0 {
		t.Fatal("first UpsertMessage() returned zero id")
	}

	// Same natural key under the ignore policy is a no-op that still yields
	// the existing surrogate id.
	dup := &database.Message{
		MessageID: 42,
		UserID:    1,
		ChatID:    -100,
		Date:      time.Date(2023, 5, 2, 12, 0, 0, 0, time.UTC),
		Text:      "different text",
	}
	second, err := store.UpsertMessage(ctx, dup, false)
	if err != nil {
		t.Fatalf("UpsertMessage() duplicate error = %v", err)
	}
	if second.Inserted {
		t.Error("duplicate UpsertMessage() reported an insert")
	}
	if second.ID != first.ID {
		t.Errorf("duplicate UpsertMessage() id = %d, want %d", second.ID, first.ID)
	}
}

func TestUpsertMessageOverwritePreservesSurrogateID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	seedChatAndUser(t, store, -100, 1)

	msg := &database.Message{
		MessageID: 42,
		UserID:    1,
		ChatID:    -100,
		Date:      time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC),
		Text:      "original",
	}
	first, err := store.UpsertMessage(ctx, msg, false)
	if err != nil {
		t.Fatalf("UpsertMessage() error = %v", err)
	}

	edited := &database.Message{
		MessageID: 42,
		UserID:    1,
		ChatID:    -100,
		Date:      time.Date(2023, 5, 1, 12, 5, 0, 0, time.UTC),
		URLs:      database.URLList{"https://example.com/fixed"},
		Text:      "edited https://example.com/fixed",
	}
	second, err := store.UpsertMessage(ctx, edited, true)
	if err != nil {
		t.Fatalf("UpsertMessage() overwrite error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("overwrite changed surrogate id: %d -> %d", first.ID, second.ID)
	}
	if !second.Inserted {
		t.Error("overwrite UpsertMessage() reported no write")
	}
	if edited.URLCount != 1 {
		t.Errorf("URLCount = %d, want 1", edited.URLCount)
	}
}

func TestUpsertMessageValidation(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		msg  *database.Message
	}{
		{"nil message", nil},
		{"missing chat", &database.Message{MessageID: 1, UserID: 1, Date: time.Now()}},
		{"missing user", &database.Message{MessageID: 1, ChatID: -1, Date: time.Now()}},
		{"missing date", &database.Message{MessageID: 1, UserID: 1, ChatID: -1}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := store.UpsertMessage(ctx, tt.msg, false); err == nil {
				t.Error("UpsertMessage() expected error, got nil")
			}
		})
	}
}

func TestUpsertHashtagRequiresStoredMessage(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	err := store.UpsertHashtag(ctx, &database.Hashtag{Message: 9999, Hashtag: "#rock"}, false)
	if err == nil {
		t.Error("UpsertHashtag() with dangling message reference expected error, got nil")
	}
}

func TestUpsertHashtagConflictPolicies(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	seedChatAndUser(t, store, -100, 1)

	date := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	linkMsg := &database.Message{MessageID: 1, UserID: 1, ChatID: -100, Date: date, URLs: database.URLList{"https://x.test"}}
	if _, err := store.UpsertMessage(ctx, linkMsg, false); err != nil {
		t.Fatalf("UpsertMessage() error = %v", err)
	}
	tagMsg := &database.Message{MessageID: 2, UserID: 1, ChatID: -100, Date: date.Add(time.Minute), Text: "#rock"}
	if _, err := store.UpsertMessage(ctx, tagMsg, false); err != nil {
		t.Fatalf("UpsertMessage() error = %v", err)
	}

	tag := &database.Hashtag{Message: tagMsg.ID, Hashtag: "#rock"}
	if err := store.UpsertHashtag(ctx, tag, false); err != nil {
		t.Fatalf("UpsertHashtag() error = %v", err)
	}

	// Duplicate (message, hashtag) under the ignore policy is silent.
	if err := store.UpsertHashtag(ctx, tag, false); err != nil {
		t.Fatalf("UpsertHashtag() duplicate error = %v", err)
	}

	// Overwrite can late-bind the linked message.
	linked := &database.Hashtag{Message: tagMsg.ID, Hashtag: "#rock"}
	linked.LinkedMessage.Int64 = linkMsg.ID
	linked.LinkedMessage.Valid = true
	if err := store.UpsertHashtag(ctx, linked, true); err != nil {
		t.Fatalf("UpsertHashtag() overwrite error = %v", err)
	}

	row, err := store.LinksByTag(ctx, -100, "#rock")
	if err != nil {
		t.Fatalf("LinksByTag() error = %v", err)
	}
	if row == nil || row.Links != 1 {
		t.Errorf("LinksByTag() = %+v, want 1 link through the late-bound parent", row)
	}
}

func TestMessageIDByNaturalKeyScopedByChat(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	seedChatAndUser(t, store, -100, 1)
	if err := store.UpsertChat(ctx, &database.Chat{ID: -200, Type: database.ChatTypeGroup}, false); err != nil {
		t.Fatalf("UpsertChat() error = %v", err)
	}

	date := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	a := &database.Message{MessageID: 42, UserID: 1, ChatID: -100, Date: date}
	b := &database.Message{MessageID: 42, UserID: 1, ChatID: -200, Date: date}
	if _, err := store.UpsertMessage(ctx, a, false); err != nil {
		t.Fatalf("UpsertMessage() error = %v", err)
	}
	if _, err := store.UpsertMessage(ctx, b, false); err != nil {
		t.Fatalf("UpsertMessage() error = %v", err)
	}

	id, found, err := store.MessageIDByNaturalKey(ctx, -200, 42)
	if err != nil || !found {
		t.Fatalf("MessageIDByNaturalKey() = (%d, %v, %v)", id, found, err)
	}
	if id != b.ID {
		t.Errorf("MessageIDByNaturalKey(-200, 42) = %d, want %d", id, b.ID)
	}

	_, found, err = store.MessageIDByNaturalKey(ctx, -300, 42)
	if err != nil {
		t.Fatalf("MessageIDByNaturalKey() error = %v", err)
	}
	if found {
		t.Error("MessageIDByNaturalKey() found a message in an unknown chat")
	}
}

func TestMuteUnmuteHashtag(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()
	seedChatAndUser(t, store, -100, 1)

	muted := &database.MutedHashtag{ChatID: -100, UserID: 1, Hashtag: "#weekly_stats"}
	if err := store.MuteHashtag(ctx, muted); err != nil {
		t.Fatalf("MuteHashtag() error = %v", err)
	}
	// Muting twice is a no-op.
	if err := store.MuteHashtag(ctx, muted); err != nil {
		t.Fatalf("MuteHashtag() repeat error = %v", err)
	}
	if err := store.UnmuteHashtag(ctx, muted); err != nil {
		t.Fatalf("UnmuteHashtag() error = %v", err)
	}
	// Unmuting an absent entry is also a no-op.
	if err := store.UnmuteHashtag(ctx, muted); err != nil {
		t.Fatalf("UnmuteHashtag() repeat error = %v", err)
	}
}
