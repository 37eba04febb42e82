package ingest_test

import (
	"reflect"
	"testing"

	"github.com/mvibes/tagstats/internal/ingest"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		event        *ingest.Event
		wantURLs     []string
		wantHashtags []string
	}{
		{
			name:  "nil event",
			event: nil,
		},
		{
			name:  "no entities",
			event: &ingest.Event{Text: "plain text with no annotations"},
		},
		{
			name: "plain url",
			event: &ingest.Event{
				Text: "check https://example.com/track out",
				Entities: []ingest.Entity{
					{Kind: ingest.EntityURL, Offset: 6, Length: 25},
				},
			},
			wantURLs: []string{"https://example.com/track"},
		},
		{
			name: "text link uses embedded target",
			event: &ingest.Event{
				Text: "this song",
				Entities: []ingest.Entity{
					{Kind: ingest.EntityTextLink, Offset: 0, Length: 9, URL: "https://example.com/hidden"},
				},
			},
			wantURLs: []string{"https://example.com/hidden"},
		},
		{
			name: "hashtags in source order",
			event: &ingest.Event{
				Text: "#rock and #jazz",
				Entities: []ingest.Entity{
					{Kind: ingest.EntityHashtag, Offset: 0, Length: 5},
					{Kind: ingest.EntityHashtag, Offset: 10, Length: 5},
				},
			},
			wantHashtags: []string{"#rock", "#jazz"},
		},
		{
			name: "mentions contribute nothing",
			event: &ingest.Event{
				Text: "@alice and Bob",
				Entities: []ingest.Entity{
					{Kind: ingest.EntityMention, Offset: 0, Length: 6},
					{Kind: ingest.EntityTextMention, Offset: 11, Length: 3, UserID: 2},
				},
			},
		},
		{
			name: "offsets are utf-16 code units",
			event: &ingest.Event{
				// The emoji occupies two UTF-16 code units, shifting every
				// later offset by one relative to a rune count.
				Text: "\U0001F3B5 https://x.test #tag",
				Entities: []ingest.Entity{
					{Kind: ingest.EntityURL, Offset: 3, Length: 14},
					{Kind: ingest.EntityHashtag, Offset: 18, Length: 4},
				},
			},
			wantURLs:     []string{"https://x.test"},
			wantHashtags: []string{"#tag"},
		},
		{
			name: "precomputed span text wins over offsets",
			event: &ingest.Event{
				Text: "irrelevant",
				Entities: []ingest.Entity{
					{Kind: ingest.EntityHashtag, Text: "#fromexport"},
				},
			},
			wantHashtags: []string{"#fromexport"},
		},
		{
			name: "out of range span is dropped",
			event: &ingest.Event{
				Text: "short",
				Entities: []ingest.Entity{
					{Kind: ingest.EntityURL, Offset: 2, Length: 50},
					{Kind: ingest.EntityHashtag, Offset: 0, Length: 5},
				},
			},
			wantHashtags: []string{"short"},
		},
		{
			name: "mixed urls and tags keep source order",
			event: &ingest.Event{
				Text: "#a https://one.test https://two.test",
				Entities: []ingest.Entity{
					{Kind: ingest.EntityHashtag, Offset: 0, Length: 2},
					{Kind: ingest.EntityURL, Offset: 3, Length: 16},
					{Kind: ingest.EntityURL, Offset: 20, Length: 16},
				},
			},
			wantURLs:     []string{"https://one.test", "https://two.test"},
			wantHashtags: []string{"#a"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			urls, hashtags := ingest.Extract(tt.event)
			if !reflect.DeepEqual(urls, tt.wantURLs) {
				t.Errorf("Extract() urls = %v, want %v", urls, tt.wantURLs)
			}
			if !reflect.DeepEqual(hashtags, tt.wantHashtags) {
				t.Errorf("Extract() hashtags = %v, want %v", hashtags, tt.wantHashtags)
			}
		})
	}
}
