package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// TagLinks is a tag's summed link count over the messages that contain or are
// linked from it.
type TagLinks struct {
	Hashtag string `db:"hashtag"`
	Links   int64  `db:"links"`
}

// TagAuthor identifies the first chronological use of a tag.
type TagAuthor struct {
	Hashtag   string    `db:"hashtag"`
	UserID    int64     `db:"user_id"`
	FirstName string    `db:"first_name"`
	LastName  string    `db:"last_name"`
	Username  string    `db:"username"`
	Text      string    `db:"text"`
	Date      time.Time `db:"date"`
}

// TagContributor is the user with the most messages carrying a tag.
type TagContributor struct {
	Hashtag   string `db:"hashtag"`
	UserID    int64  `db:"user_id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Username  string `db:"username"`
	Count     int64  `db:"count"`
}

// AuthorTags summarizes the tags a user introduced first in a chat.
type AuthorTags struct {
	UserID    int64  `db:"user_id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Username  string `db:"username"`
	Count     int64  `db:"count"`
	TagList   string `db:"tag_list"`
}

// Tags splits the aggregated tag list into individual hashtags.
func (a *AuthorTags) Tags() []string {
	if a == nil || a.TagList == "" {
		return nil
	}
	return strings.Split(a.TagList, ",")
}

// AuthorLinks is a user's total link count in a chat.
type AuthorLinks struct {
	UserID    int64  `db:"user_id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Username  string `db:"username"`
	Links     int64  `db:"links"`
}

// ForeignTagEvent records a user tagging a link-bearing message authored by
// someone else.
type ForeignTagEvent struct {
	Hashtag         string `db:"hashtag"`
	TaggedMessage   int64  `db:"tagged_message"`
	TaggerID        int64  `db:"tagger_id"`
	MessageWithLink int64  `db:"message_with_link"`
	LinkAuthorID    int64  `db:"link_author_id"`
}

// Contributor is one row of a link-volume leaderboard.
type Contributor struct {
	UserID    int64  `db:"user_id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Username  string `db:"username"`
	Links     int64  `db:"links"`
}

// ServiceOther is the bucket for links matching no known music service.
const ServiceOther = "other"

// ServiceLinks is a music-service bucket with its link count.
type ServiceLinks struct {
	Service string
	Links   int64
}

func (s *sqlxStore) LinksByTag(ctx context.Context, chatID int64, tag string) (*TagLinks, error) {
	var row TagLinks
	query := `
        SELECT h.hashtag AS hashtag, SUM(m.url_count) AS links
        FROM hashtags h
            JOIN messages m ON m.id = h.message OR m.id = h.linked_message
        WHERE h.hashtag = ? AND m.chat_id = ?
        GROUP BY h.hashtag;
    `

	err := s.db.GetContext(ctx, &row, query, tag, chatID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to count links for tag %q in chat %d: %w", tag, chatID, err)
	}
	return &row, nil
}

func (s *sqlxStore) FirstAuthorOfTag(ctx context.Context, chatID int64, tag string) (*TagAuthor, error) {
	var row TagAuthor
	query := `
        SELECT h.hashtag AS hashtag, u.id AS user_id, u.first_name, u.last_name, u.username,
               m.text AS text, m.date AS date
        FROM hashtags h
            JOIN messages m ON h.message = m.id
            JOIN users u ON m.user_id = u.id
            JOIN (
                SELECT h.hashtag AS hashtag, MIN(m.date) AS first_date
                FROM hashtags h
                    JOIN messages m ON h.message = m.id
                WHERE h.hashtag = ? AND m.chat_id = ?
                GROUP BY h.hashtag
            ) f ON h.hashtag = f.hashtag AND m.date = f.first_date
        WHERE m.chat_id = ?
        LIMIT 1;
    `

	err := s.db.GetContext(ctx, &row, query, tag, chatID, chatID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to find first author of tag %q in chat %d: %w", tag, chatID, err)
	}
	return &row, nil
}

func (s *sqlxStore) TopContributorOfTag(ctx context.Context, chatID int64, tag string) (*TagContributor, error) {
	var row TagContributor
	query := `
        SELECT h.hashtag AS hashtag, u.id AS user_id, u.first_name, u.last_name, u.username,
               COUNT(h.message) AS count
        FROM hashtags h
            JOIN messages m ON h.message = m.id
            JOIN users u ON m.user_id = u.id
        WHERE h.hashtag = ? AND m.chat_id = ?
        GROUP BY h.hashtag, u.id, u.first_name, u.last_name, u.username
        ORDER BY count DESC
        LIMIT 1;
    `

	err := s.db.GetContext(ctx, &row, query, tag, chatID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to find top contributor of tag %q in chat %d: %w", tag, chatID, err)
	}
	return &row, nil
}

func (s *sqlxStore) TagsByAuthor(ctx context.Context, chatID, userID int64) (*AuthorTags, error) {
	var row AuthorTags
	query := `
        SELECT u.id AS user_id, u.first_name, u.last_name, u.username,
               COUNT(h.hashtag) AS count,
               GROUP_CONCAT(DISTINCT h.hashtag) AS tag_list
        FROM hashtags h
            JOIN messages m ON h.message = m.id
            JOIN users u ON m.user_id = u.id
            JOIN (
                SELECT h.hashtag AS hashtag, MIN(m.date) AS first_date
                FROM hashtags h
                    JOIN messages m ON h.message = m.id
                WHERE m.chat_id = ?
                GROUP BY h.hashtag
            ) f ON h.hashtag = f.hashtag AND m.date = f.first_date
        WHERE u.id = ? AND m.chat_id = ?
        GROUP BY u.id, u.first_name, u.last_name, u.username;
    `

	err := s.db.GetContext(ctx, &row, query, chatID, userID, chatID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to collect tags for user %d in chat %d: %w", userID, chatID, err)
	}
	return &row, nil
}

func (s *sqlxStore) LinksByAuthor(ctx context.Context, chatID, userID int64) (*AuthorLinks, error) {
	var row AuthorLinks
	query := `
        SELECT u.id AS user_id, u.first_name, u.last_name, u.username,
               COALESCE(SUM(m.url_count), 0) AS links
        FROM users u
            JOIN messages m ON m.user_id = u.id
        WHERE u.id = ? AND m.chat_id = ?
        GROUP BY u.id, u.first_name, u.last_name, u.username;
    `

	err := s.db.GetContext(ctx, &row, query, userID, chatID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("failed to count links for user %d in chat %d: %w", userID, chatID, err)
	}
	return &row, nil
}

func (s *sqlxStore) ForeignTagEvents(ctx context.Context, chatID, userID int64) ([]ForeignTagEvent, error) {
	var rows []ForeignTagEvent
	query := `
        SELECT h.hashtag AS hashtag, m.id AS tagged_message, u.id AS tagger_id,
               m2.id AS message_with_link, u2.id AS link_author_id
        FROM hashtags h
            JOIN messages m ON h.message = m.id
            JOIN users u ON m.user_id = u.id
            JOIN messages m2 ON h.linked_message = m2.id
            JOIN users u2 ON m2.user_id = u2.id
        WHERE u.id <> u2.id AND u.id = ? AND m.chat_id = ?;
    `

	if err := s.db.SelectContext(ctx, &rows, query, userID, chatID); err != nil {
		return nil, fmt.Errorf("failed to list foreign tag events for user %d in chat %d: %w", userID, chatID, err)
	}
	return rows, nil
}

func (s *sqlxStore) AllTags(ctx context.Context, chatID int64) ([]string, error) {
	var tags []string
	query := `
        SELECT DISTINCT h.hashtag
        FROM hashtags h
            JOIN messages m ON m.id = h.message
            LEFT JOIN muted_hashtags mh ON h.hashtag = mh.hashtag AND mh.chat_id = m.chat_id
        WHERE mh.hashtag IS NULL AND m.chat_id = ?
        ORDER BY h.hashtag;
    `

	if err := s.db.SelectContext(ctx, &tags, query, chatID); err != nil {
		return nil, fmt.Errorf("failed to list tags for chat %d: %w", chatID, err)
	}
	return tags, nil
}

func (s *sqlxStore) TopTags(ctx context.Context, chatID int64, limit int) ([]TagLinks, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []TagLinks
	query := `
        SELECT h.hashtag AS hashtag, SUM(m.url_count) AS links
        FROM hashtags h
            JOIN messages m ON m.id = h.message OR m.id = h.linked_message
            LEFT JOIN muted_hashtags mh ON h.hashtag = mh.hashtag AND mh.chat_id = m.chat_id
        WHERE mh.hashtag IS NULL AND m.chat_id = ?
        GROUP BY h.hashtag
        ORDER BY links DESC, h.hashtag ASC
        LIMIT ?;
    `

	if err := s.db.SelectContext(ctx, &rows, query, chatID, limit); err != nil {
		return nil, fmt.Errorf("failed to rank tags for chat %d: %w", chatID, err)
	}
	return rows, nil
}

const contributorsQuery = `
    SELECT u.id AS user_id, u.first_name, u.last_name, u.username,
           COALESCE(SUM(m.url_count), 0) AS links
    FROM users u
        JOIN messages m ON m.user_id = u.id
    WHERE m.chat_id = ?
    GROUP BY u.id, u.first_name, u.last_name, u.username
    ORDER BY links %s
    LIMIT ?;
`

func (s *sqlxStore) TopContributors(ctx context.Context, chatID int64, limit int) ([]Contributor, error) {
	return s.contributors(ctx, chatID, limit, "DESC")
}

func (s *sqlxStore) BottomContributors(ctx context.Context, chatID int64, limit int) ([]Contributor, error) {
	return s.contributors(ctx, chatID, limit, "ASC")
}

func (s *sqlxStore) contributors(ctx context.Context, chatID int64, limit int, order string) ([]Contributor, error) {
	if limit <= 0 {
		limit = 5
	}

	var rows []Contributor
	query := fmt.Sprintf(contributorsQuery, order)
	if err := s.db.SelectContext(ctx, &rows, query, chatID, limit); err != nil {
		return nil, fmt.Errorf("failed to rank contributors for chat %d: %w", chatID, err)
	}
	return rows, nil
}

func (s *sqlxStore) TopContributorsByDateRange(ctx context.Context, chatID int64, from, to time.Time, limit int) ([]Contributor, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []Contributor
	query := `
        SELECT u.id AS user_id, u.first_name, u.last_name, u.username,
               COALESCE(SUM(m.url_count), 0) AS links
        FROM users u
            JOIN messages m ON m.user_id = u.id
        WHERE m.chat_id = ? AND m.date >= ? AND m.date < ?
        GROUP BY u.id, u.first_name, u.last_name, u.username
        ORDER BY links DESC
        LIMIT ?;
    `

	if err := s.db.SelectContext(ctx, &rows, query, chatID, from.UTC(), to.UTC(), limit); err != nil {
		return nil, fmt.Errorf("failed to rank contributors for chat %d between %s and %s: %w",
			chatID, from.Format(time.DateOnly), to.Format(time.DateOnly), err)
	}
	return rows, nil
}

func (s *sqlxStore) MusicServiceBreakdown(ctx context.Context, chatID int64) ([]ServiceLinks, error) {
	var lists []URLList
	query := `SELECT urls FROM messages WHERE chat_id = ? AND url_count > 0`

	if err := s.db.SelectContext(ctx, &lists, query, chatID); err != nil {
		return nil, fmt.Errorf("failed to load urls for chat %d: %w", chatID, err)
	}

	counts := make(map[string]int64)
	for _, list := range lists {
		for _, link := range list {
			counts[categorizeURL(link)]++
		}
	}

	rows := make([]ServiceLinks, 0, len(counts))
	for service, links := range counts {
		rows = append(rows, ServiceLinks{Service: service, Links: links})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Links != rows[j].Links {
			return rows[i].Links > rows[j].Links
		}
		return rows[i].Service < rows[j].Service
	})
	return rows, nil
}

// categorizeURL buckets a link into a music service provider by host and
// path. Links matching no provider fall into ServiceOther.
func categorizeURL(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ServiceOther
	}

	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.Path)

	switch {
	case host == "open.spotify.com":
		return "spotify"
	case host == "youtu.be" || host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		return "youtube"
	case host == "deezer.com" || strings.HasSuffix(host, ".deezer.com"):
		return "deezer"
	case host == "itunes.apple.com" || host == "music.apple.com":
		return "itunes"
	case host == "play.google.com" && strings.HasPrefix(path, "/music"):
		return "google"
	case host == "soundcloud.com" || strings.HasSuffix(host, ".soundcloud.com"):
		return "soundcloud"
	default:
		return ServiceOther
	}
}
