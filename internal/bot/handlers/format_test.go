package handlers

import (
	"strings"
	"testing"

	"github.com/mvibes/tagstats/internal/database"
)

func TestCommandArg(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"no argument", "/tag", ""},
		{"simple argument", "/tag rock", "rock"},
		{"hash kept", "/tag #rock", "#rock"},
		{"trailing spaces trimmed", "/tag  rock  ", "rock"},
		{"not a command", "just text", ""},
		{"argument with spaces", "/user first last", "first last"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := commandArg(tt.text); got != tt.want {
				t.Errorf("commandArg(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestNormalizeTag(t *testing.T) {
	t.Parallel()

	if got := normalizeTag("rock"); got != "#rock" {
		t.Errorf("normalizeTag(rock) = %q, want #rock", got)
	}
	if got := normalizeTag("#rock"); got != "#rock" {
		t.Errorf("normalizeTag(#rock) = %q, want #rock", got)
	}
	if got := normalizeTag(""); got != "" {
		t.Errorf("normalizeTag(empty) = %q, want empty", got)
	}
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                          string
		firstName, lastName, username string
		want                          string
	}{
		{"username wins", "Alice", "A", "alice", "@alice"},
		{"full name", "Alice", "Smith", "", "Alice Smith"},
		{"first name only", "Alice", "", "", "Alice"},
		{"nothing known", "", "", "", "someone"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := displayName(tt.firstName, tt.lastName, tt.username); got != tt.want {
				t.Errorf("displayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatTagLeaderboard(t *testing.T) {
	t.Parallel()

	if got := formatTagLeaderboard(nil); !strings.Contains(got, "No tags") {
		t.Errorf("formatTagLeaderboard(nil) = %q", got)
	}

	rows := []database.TagLinks{
		{Hashtag: "#rock", Links: 3},
		{Hashtag: "#jazz", Links: 1},
	}
	got := formatTagLeaderboard(rows)
	if !strings.Contains(got, "1. #rock: 3") || !strings.Contains(got, "2. #jazz: 1") {
		t.Errorf("formatTagLeaderboard() = %q", got)
	}
}

func TestFormatContributors(t *testing.T) {
	t.Parallel()

	if got := formatContributors("Top:", nil); got != "" {
		t.Errorf("formatContributors(empty) = %q, want empty", got)
	}

	rows := []database.Contributor{
		{UserID: 1, Username: "alice", Links: 5},
		{UserID: 2, FirstName: "Bob", Links: 2},
	}
	got := formatContributors("Top contributors:", rows)
	if !strings.Contains(got, "1. @alice: 5") || !strings.Contains(got, "2. Bob: 2") {
		t.Errorf("formatContributors() = %q", got)
	}
}
