package ingest

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnresolved reports that a reply chain legitimately ended without
// reaching a URL-bearing ancestor: the message was not a reply, the chain ran
// out, it exceeded the hop bound, or it looped. It is distinct from fetch
// failures, which wrap the underlying transport error and may be retried.
var ErrUnresolved = errors.New("reply chain has no link-bearing ancestor")

// DefaultMaxHops bounds the resolver's upward walk when no explicit limit is
// configured.
const DefaultMaxHops = 10

// ParentFetcher retrieves the normalized event a reference points at. Live
// ingestion backs this with the messaging platform; historical import backs
// it with the in-memory export.
type ParentFetcher interface {
	FetchMessage(ctx context.Context, ref MessageRef) (*Event, error)
}

// ParentFetcherFunc adapts a function to the ParentFetcher interface.
type ParentFetcherFunc func(ctx context.Context, ref MessageRef) (*Event, error)

func (f ParentFetcherFunc) FetchMessage(ctx context.Context, ref MessageRef) (*Event, error) {
	return f(ctx, ref)
}

// Resolver walks a hashtag-only message's reply chain upward looking for the
// nearest ancestor carrying at least one URL.
type Resolver struct {
	maxHops int
}

// NewResolver returns a Resolver bounded at maxHops parent fetches;
// non-positive values fall back to DefaultMaxHops.
func NewResolver(maxHops int) *Resolver {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	return &Resolver{maxHops: maxHops}
}

// Resolve returns the nearest link-bearing ancestor of ev. It fails with
// ErrUnresolved when ev is not a reply, the chain ends or loops, or the hop
// bound is exceeded. Fetch failures propagate wrapped so callers can tell a
// dead chain from an unreachable platform.
func (r *Resolver) Resolve(ctx context.Context, ev *Event, fetcher ParentFetcher) (*Event, error) {
	if ev == nil || ev.ReplyTo == nil {
		return nil, ErrUnresolved
	}
	if fetcher == nil {
		return nil, errors.New("resolver requires a parent fetcher")
	}

	seen := map[MessageRef]struct{}{
		{ChatID: ev.Chat.ID, MessageID: ev.MessageID}: {},
	}

	ref := *ev.ReplyTo
	for hop := 0; hop < r.maxHops; hop++ {
		if _, ok := seen[ref]; ok {
			return nil, ErrUnresolved
		}
		seen[ref] = struct{}{}

		parent, err := fetcher.FetchMessage(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch reply parent (chat %d, message %d): %w",
				ref.ChatID, ref.MessageID, err)
		}
		if parent == nil {
			return nil, ErrUnresolved
		}

		if urls, _ := Extract(parent); len(urls) > 0 {
			return parent, nil
		}
		if parent.ReplyTo == nil {
			return nil, ErrUnresolved
		}
		ref = *parent.ReplyTo
	}
	return nil, ErrUnresolved
}
