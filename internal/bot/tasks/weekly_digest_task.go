package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/mvibes/tagstats/internal/database"
)

// newWeeklyDigestTask creates the scheduled task that posts last week's
// contributor leaderboard to every subscribed chat.
func newWeeklyDigestTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "weekly_digest")

	return func(ctx context.Context) error {
		chats := deps.Digests.Chats()
		if len(chats) == 0 {
			log.DebugContext(ctx, "No chats subscribed to the weekly digest")
			return nil
		}

		from, to := previousWeek(time.Now().UTC())
		log.InfoContext(ctx, "Building weekly digest",
			"chats", len(chats),
			"from", from.Format(time.DateOnly),
			"to", to.Format(time.DateOnly))

		var failed int
		for _, chatID := range chats {
			rows, err := deps.Store.TopContributorsByDateRange(ctx, chatID, from, to, deps.Config.DigestLimit)
			if err != nil {
				log.ErrorContext(ctx, "Failed to build digest for chat", "chat_id", chatID, "error", err)
				failed++
				continue
			}

			text := formatDigest(from, to, rows)
			if text == "" {
				log.DebugContext(ctx, "No activity last week, skipping digest", "chat_id", chatID)
				continue
			}

			if _, err := deps.Bot.SendMessage(ctx, &tgbot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
				log.ErrorContext(ctx, "Failed to send digest", "chat_id", chatID, "error", err)
				failed++
			}
		}

		if failed > 0 {
			return fmt.Errorf("weekly digest failed for %d of %d chats", failed, len(chats))
		}
		return nil
	}
}

// previousWeek returns the [Monday 00:00, next Monday 00:00) window of the
// week before now, in UTC.
func previousWeek(now time.Time) (from, to time.Time) {
	now = now.UTC()
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	thisMonday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -daysSinceMonday)
	return thisMonday.AddDate(0, 0, -7), thisMonday
}

// formatDigest renders the leaderboard message. Returns an empty string when
// nobody shared a link last week.
func formatDigest(from, to time.Time, rows []database.Contributor) string {
	active := rows[:0]
	for _, row := range rows {
		if row.Links > 0 {
			active = append(active, row)
		}
	}
	if len(active) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Link leaderboard for %s - %s\n\n",
		from.Format("Jan 2"), to.AddDate(0, 0, -1).Format("Jan 2"))

	medals := []string{"\U0001F947", "\U0001F948", "\U0001F949"}
	for i, row := range active {
		prefix := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			prefix = medals[i]
		}
		fmt.Fprintf(&sb, "%s %s: %d\n", prefix, contributorName(row), row.Links)
	}

	sb.WriteString("\n#weekly_stats")
	return sb.String()
}

func contributorName(row database.Contributor) string {
	if row.Username != "" {
		return "@" + row.Username
	}
	name := row.FirstName
	if row.LastName != "" {
		name += " " + row.LastName
	}
	return name
}
