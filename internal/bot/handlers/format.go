package handlers

import (
	"fmt"
	"strings"

	"github.com/mvibes/tagstats/internal/database"
)

// displayName renders a user reference for replies, preferring the username.
func displayName(firstName, lastName, username string) string {
	if username != "" {
		return "@" + username
	}
	name := firstName
	if lastName != "" {
		name += " " + lastName
	}
	if name == "" {
		name = "someone"
	}
	return name
}

// commandArg returns the trimmed argument after a /command prefix.
func commandArg(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	parts := strings.SplitN(text, " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// normalizeTag ensures a user-supplied tag argument carries the # prefix.
func normalizeTag(arg string) string {
	if arg == "" {
		return ""
	}
	if !strings.HasPrefix(arg, "#") {
		arg = "#" + arg
	}
	return arg
}

// formatTagLeaderboard renders the top-tags block of /stats.
func formatTagLeaderboard(rows []database.TagLinks) string {
	if len(rows) == 0 {
		return "No tags recorded yet."
	}
	var sb strings.Builder
	sb.WriteString("Top tags by links:\n")
	for i, row := range rows {
		fmt.Fprintf(&sb, "%d. %s: %d\n", i+1, row.Hashtag, row.Links)
	}
	return sb.String()
}

// formatContributors renders a contributor leaderboard block.
func formatContributors(header string, rows []database.Contributor) string {
	if len(rows) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(header + "\n")
	for i, row := range rows {
		fmt.Fprintf(&sb, "%d. %s: %d\n", i+1, displayName(row.FirstName, row.LastName, row.Username), row.Links)
	}
	return sb.String()
}

// formatServices renders the music-service breakdown block.
func formatServices(rows []database.ServiceLinks) string {
	if len(rows) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("Links by service:\n")
	for _, row := range rows {
		fmt.Fprintf(&sb, "%s: %d\n", row.Service, row.Links)
	}
	return sb.String()
}
