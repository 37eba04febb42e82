package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mvibes/tagstats/internal/database"
)

// Store is the slice of the data access layer the pipeline writes through.
type Store interface {
	UpsertUser(ctx context.Context, user *database.User, overwrite bool) error
	UpsertUsers(ctx context.Context, users []database.User, overwrite bool) (int64, error)
	UpsertChat(ctx context.Context, chat *database.Chat, overwrite bool) error
	UpsertChats(ctx context.Context, chats []database.Chat, overwrite bool) (int64, error)
	UpsertMessage(ctx context.Context, message *database.Message, overwrite bool) (database.UpsertResult, error)
	UpsertHashtag(ctx context.Context, hashtag *database.Hashtag, overwrite bool) error
	MessageIDByNaturalKey(ctx context.Context, chatID, messageID int64) (int64, bool, error)
}

// Outcome is the terminal state of one pipeline run.
type Outcome int

const (
	// OutcomeSkipped means the message carried no URLs and no hashtags.
	OutcomeSkipped Outcome = iota
	// OutcomeUnresolved means a hashtag-only message's reply chain reached
	// no link-bearing ancestor; nothing was stored.
	OutcomeUnresolved
	// OutcomeDuplicate means the message row already existed and the run
	// stopped before writing attributions.
	OutcomeDuplicate
	// OutcomeStored means the message row was written, with zero or more
	// hashtag attributions.
	OutcomeStored
)

// String reports the outcome name for logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeUnresolved:
		return "unresolved"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeStored:
		return "stored"
	default:
		return "unknown"
	}
}

// Result summarizes one pipeline run.
type Result struct {
	Outcome Outcome
	// MessageID is the stored message's surrogate id, set for stored and
	// duplicate outcomes.
	MessageID int64
	// Hashtags is the number of attribution rows written.
	Hashtags int
}

// Pipeline orchestrates extraction, reply-chain resolution, and persistence
// for inbound message events.
type Pipeline struct {
	store    Store
	resolver *Resolver
	logger   *slog.Logger
}

// NewPipeline creates a Pipeline writing through store, using resolver for
// hashtag-only messages.
func NewPipeline(store Store, resolver *Resolver, logger *slog.Logger) *Pipeline {
	if resolver == nil {
		resolver = NewResolver(DefaultMaxHops)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		store:    store,
		resolver: resolver,
		logger:   logger.With("component", "pipeline"),
	}
}

// Process runs the live ingestion state machine for one event. The fetcher
// backs reply-parent lookups during resolution. Author and chat profiles are
// refreshed on conflict since live events carry current profile data.
func (p *Pipeline) Process(ctx context.Context, ev *Event, fetcher ParentFetcher) (Result, error) {
	return p.process(ctx, ev, fetcher, true)
}

func (p *Pipeline) process(ctx context.Context, ev *Event, fetcher ParentFetcher, refreshProfiles bool) (Result, error) {
	if ev == nil {
		return Result{}, errors.New("cannot process nil event")
	}

	urls, hashtags := Extract(ev)
	if len(urls) == 0 && len(hashtags) == 0 {
		return Result{Outcome: OutcomeSkipped}, nil
	}

	// Hashtag-only messages tag an earlier link; find it before anything is
	// written so an unresolvable message leaves no trace.
	var linked sql.NullInt64
	if len(hashtags) > 0 && len(urls) == 0 {
		ancestor, err := p.resolver.Resolve(ctx, ev, fetcher)
		if errors.Is(err, ErrUnresolved) {
			p.logger.DebugContext(ctx, "Dropping hashtag-only message with no resolvable parent",
				"chat_id", ev.Chat.ID, "message_id", ev.MessageID)
			return Result{Outcome: OutcomeUnresolved}, nil
		}
		if err != nil {
			return Result{}, fmt.Errorf("failed to resolve reply chain (chat %d, message %d): %w",
				ev.Chat.ID, ev.MessageID, err)
		}

		// The ancestor may predate ingestion; attribution then stands
		// without a linked message rather than failing.
		id, found, err := p.store.MessageIDByNaturalKey(ctx, ancestor.Chat.ID, ancestor.MessageID)
		if err != nil {
			return Result{}, err
		}
		if found {
			linked = sql.NullInt64{Int64: id, Valid: true}
		}
	}

	user := &database.User{
		ID:        ev.Sender.ID,
		FirstName: ev.Sender.FirstName,
		LastName:  ev.Sender.LastName,
		Username:  ev.Sender.Username,
		IsBot:     ev.Sender.IsBot,
	}
	if err := p.store.UpsertUser(ctx, user, refreshProfiles); err != nil {
		return Result{}, err
	}
	chat := &database.Chat{ID: ev.Chat.ID, Type: ev.Chat.Type}
	if err := p.store.UpsertChat(ctx, chat, false); err != nil {
		return Result{}, err
	}

	message := &database.Message{
		MessageID: ev.MessageID,
		UserID:    ev.Sender.ID,
		ChatID:    ev.Chat.ID,
		Date:      ev.Date,
		URLs:      database.URLList(urls),
		Text:      ev.Text,
	}
	upserted, err := p.store.UpsertMessage(ctx, message, ev.Edited)
	if err != nil {
		return Result{}, err
	}
	if !upserted.Inserted {
		// Already stored and this is not an edit: write no attributions
		// against the stale row.
		return Result{Outcome: OutcomeDuplicate, MessageID: upserted.ID}, nil
	}

	if ev.Forwarded {
		// Forwarded content's tags belong to the original author's context,
		// not the forwarding event. The message row itself (and its URLs)
		// stays.
		return Result{Outcome: OutcomeStored, MessageID: upserted.ID}, nil
	}

	written := 0
	for _, tag := range hashtags {
		h := &database.Hashtag{Message: upserted.ID, LinkedMessage: linked, Hashtag: tag}
		if err := p.store.UpsertHashtag(ctx, h, ev.Edited); err != nil {
			return Result{}, err
		}
		written++
	}

	p.logger.DebugContext(ctx, "Ingested message",
		"chat_id", ev.Chat.ID, "message_id", ev.MessageID,
		"urls", len(urls), "hashtags", written, "linked", linked.Valid)
	return Result{Outcome: OutcomeStored, MessageID: upserted.ID, Hashtags: written}, nil
}

// BatchResult aggregates outcomes over one historical import run.
type BatchResult struct {
	Skipped    int
	Unresolved int
	Duplicates int
	Stored     int
	Hashtags   int
}

// ProcessBatch ingests an ordered sequence of historical events, oldest
// first, so reply-chain targets are persisted before messages referencing
// them. Users and chats are bulk-upserted up front without profile refresh;
// reply parents resolve against the batch itself, not the platform.
func (p *Pipeline) ProcessBatch(ctx context.Context, events []*Event) (BatchResult, error) {
	var result BatchResult
	if len(events) == 0 {
		return result, nil
	}

	users := make(map[int64]database.User)
	chats := make(map[int64]database.Chat)
	byRef := make(map[MessageRef]*Event, len(events))
	for _, ev := range events {
		if ev == nil {
			continue
		}
		if _, ok := users[ev.Sender.ID]; !ok {
			users[ev.Sender.ID] = database.User{
				ID:        ev.Sender.ID,
				FirstName: ev.Sender.FirstName,
				LastName:  ev.Sender.LastName,
				Username:  ev.Sender.Username,
				IsBot:     ev.Sender.IsBot,
			}
		}
		if _, ok := chats[ev.Chat.ID]; !ok {
			chats[ev.Chat.ID] = database.Chat{ID: ev.Chat.ID, Type: ev.Chat.Type}
		}
		byRef[MessageRef{ChatID: ev.Chat.ID, MessageID: ev.MessageID}] = ev
	}

	userRows := make([]database.User, 0, len(users))
	for _, u := range users {
		userRows = append(userRows, u)
	}
	if _, err := p.store.UpsertUsers(ctx, userRows, false); err != nil {
		return result, err
	}
	chatRows := make([]database.Chat, 0, len(chats))
	for _, c := range chats {
		chatRows = append(chatRows, c)
	}
	if _, err := p.store.UpsertChats(ctx, chatRows, false); err != nil {
		return result, err
	}

	fetcher := ParentFetcherFunc(func(_ context.Context, ref MessageRef) (*Event, error) {
		return byRef[ref], nil
	})

	for _, ev := range events {
		if ev == nil {
			continue
		}
		res, err := p.process(ctx, ev, fetcher, false)
		if err != nil {
			return result, fmt.Errorf("failed to ingest message %d: %w", ev.MessageID, err)
		}
		switch res.Outcome {
		case OutcomeSkipped:
			result.Skipped++
		case OutcomeUnresolved:
			result.Unresolved++
		case OutcomeDuplicate:
			result.Duplicates++
		case OutcomeStored:
			result.Stored++
			result.Hashtags += res.Hashtags
		}
	}
	return result, nil
}
