package ingest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mvibes/tagstats/internal/ingest"
)

// chainFetcher serves events from a fixed map, counting fetches.
type chainFetcher struct {
	messages map[ingest.MessageRef]*ingest.Event
	fetches  int
}

func (f *chainFetcher) FetchMessage(_ context.Context, ref ingest.MessageRef) (*ingest.Event, error) {
	f.fetches++
	return f.messages[ref], nil
}

func urlEvent(chatID, messageID int64, link string) *ingest.Event {
	return &ingest.Event{
		MessageID: messageID,
		Chat:      ingest.Chat{ID: chatID},
		Text:      link,
		Entities: []ingest.Entity{
			{Kind: ingest.EntityURL, Offset: 0, Length: len(link)},
		},
	}
}

func replyEvent(chatID, messageID, parentID int64) *ingest.Event {
	return &ingest.Event{
		MessageID: messageID,
		Chat:      ingest.Chat{ID: chatID},
		ReplyTo:   &ingest.MessageRef{ChatID: chatID, MessageID: parentID},
	}
}

func TestResolveWalksChainToLinkBearingAncestor(t *testing.T) {
	t.Parallel()

	// 3 replies to 2 replies to 1, and only 1 carries a URL.
	fetcher := &chainFetcher{messages: map[ingest.MessageRef]*ingest.Event{
		{ChatID: -1, MessageID: 1}: urlEvent(-1, 1, "https://x.test"),
		{ChatID: -1, MessageID: 2}: replyEvent(-1, 2, 1),
	}}
	ev := replyEvent(-1, 3, 2)

	resolver := ingest.NewResolver(10)
	ancestor, err := resolver.Resolve(context.Background(), ev, fetcher)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if ancestor.MessageID != 1 {
		t.Errorf("Resolve() ancestor = %d, want 1", ancestor.MessageID)
	}
	if fetcher.fetches != 2 {
		t.Errorf("Resolve() fetches = %d, want 2", fetcher.fetches)
	}
}

func TestResolveNotAReply(t *testing.T) {
	t.Parallel()

	resolver := ingest.NewResolver(10)
	ev := &ingest.Event{MessageID: 5, Chat: ingest.Chat{ID: -1}}

	_, err := resolver.Resolve(context.Background(), ev, &chainFetcher{})
	if !errors.Is(err, ingest.ErrUnresolved) {
		t.Errorf("Resolve() error = %v, want ErrUnresolved", err)
	}
}

func TestResolveChainEndsWithoutLink(t *testing.T) {
	t.Parallel()

	// Parent exists but has neither a URL nor a further parent.
	fetcher := &chainFetcher{messages: map[ingest.MessageRef]*ingest.Event{
		{ChatID: -1, MessageID: 1}: {MessageID: 1, Chat: ingest.Chat{ID: -1}, Text: "no link"},
	}}
	ev := replyEvent(-1, 2, 1)

	resolver := ingest.NewResolver(10)
	_, err := resolver.Resolve(context.Background(), ev, fetcher)
	if !errors.Is(err, ingest.ErrUnresolved) {
		t.Errorf("Resolve() error = %v, want ErrUnresolved", err)
	}
}

func TestResolveMissingParent(t *testing.T) {
	t.Parallel()

	fetcher := &chainFetcher{messages: map[ingest.MessageRef]*ingest.Event{}}
	ev := replyEvent(-1, 2, 1)

	resolver := ingest.NewResolver(10)
	_, err := resolver.Resolve(context.Background(), ev, fetcher)
	if !errors.Is(err, ingest.ErrUnresolved) {
		t.Errorf("Resolve() error = %v, want ErrUnresolved", err)
	}
}

func TestResolveCycleTerminates(t *testing.T) {
	t.Parallel()

	// 1 and 2 reply to each other.
	fetcher := &chainFetcher{messages: map[ingest.MessageRef]*ingest.Event{
		{ChatID: -1, MessageID: 1}: replyEvent(-1, 1, 2),
		{ChatID: -1, MessageID: 2}: replyEvent(-1, 2, 1),
	}}
	ev := replyEvent(-1, 3, 1)

	resolver := ingest.NewResolver(100)
	_, err := resolver.Resolve(context.Background(), ev, fetcher)
	if !errors.Is(err, ingest.ErrUnresolved) {
		t.Errorf("Resolve() error = %v, want ErrUnresolved", err)
	}
	if fetcher.fetches > 3 {
		t.Errorf("Resolve() fetches = %d, cycle was not detected early", fetcher.fetches)
	}
}

func TestResolveHopBound(t *testing.T) {
	t.Parallel()

	// A chain of 5 hops with the URL at the far end, but only 3 hops allowed.
	fetcher := &chainFetcher{messages: map[ingest.MessageRef]*ingest.Event{
		{ChatID: -1, MessageID: 1}: urlEvent(-1, 1, "https://x.test"),
		{ChatID: -1, MessageID: 2}: replyEvent(-1, 2, 1),
		{ChatID: -1, MessageID: 3}: replyEvent(-1, 3, 2),
		{ChatID: -1, MessageID: 4}: replyEvent(-1, 4, 3),
		{ChatID: -1, MessageID: 5}: replyEvent(-1, 5, 4),
	}}
	ev := replyEvent(-1, 6, 5)

	resolver := ingest.NewResolver(3)
	_, err := resolver.Resolve(context.Background(), ev, fetcher)
	if !errors.Is(err, ingest.ErrUnresolved) {
		t.Errorf("Resolve() error = %v, want ErrUnresolved past hop bound", err)
	}
	if fetcher.fetches != 3 {
		t.Errorf("Resolve() fetches = %d, want 3", fetcher.fetches)
	}
}

func TestResolveFetchErrorPropagates(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("platform unreachable")
	fetcher := ingest.ParentFetcherFunc(func(context.Context, ingest.MessageRef) (*ingest.Event, error) {
		return nil, wantErr
	})
	ev := replyEvent(-1, 2, 1)

	resolver := ingest.NewResolver(10)
	_, err := resolver.Resolve(context.Background(), ev, fetcher)
	if !errors.Is(err, wantErr) {
		t.Errorf("Resolve() error = %v, want wrapped fetch error", err)
	}
	if errors.Is(err, ingest.ErrUnresolved) {
		t.Error("Resolve() conflated a fetch failure with an unresolved chain")
	}
}
