package database

import (
	"time"

	"github.com/lib/pq"
)

// Feed is a subscribed source together with its fetch bookkeeping.
type Feed struct {
	ID                   string     `db:"id"`
	URL                  string     `db:"url"`
	Title                *string    `db:"title"`
	Description          *string    `db:"description"`
	LastFetchTime        *time.Time `db:"last_fetch_time"`
	LastSuccessfulFetch  *time.Time `db:"last_successful_fetch"`
	UpdateFrequencyHours *int       `db:"update_frequency_hours"`
	ErrorCount           int        `db:"error_count"`
	LastError            *string    `db:"last_error"`
	IsActive             bool       `db:"is_active"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
	ETag                 *string    `db:"etag"`
	LastModified         *string    `db:"last_modified"`
}

// FeedEntry is one raw item extracted from a feed. Identity is
// (feed_id, guid) when a GUID is present, with (feed_id, url) as the
// uniqueness backstop either way.
type FeedEntry struct {
	ID            string         `db:"id"`
	FeedID        string         `db:"feed_id"`
	GUID          *string        `db:"guid"`
	URL           string         `db:"url"`
	Title         string         `db:"title"`
	Description   *string        `db:"description"`
	Content       *string        `db:"content"`
	Author        *string        `db:"author"`
	PublishedAt   *time.Time     `db:"published_at"`
	UpdatedAt     *time.Time     `db:"updated_at"`
	Tags          pq.StringArray `db:"tags"`
	CreatedAt     time.Time      `db:"created_at"`
	LastProcessed *time.Time     `db:"last_processed"`
}

// InputItem is the normalized projection of an accepted entry.
// URI is unique across all feeds, not just within one.
type InputItem struct {
	ID          string    `db:"id"`
	FeedID      string    `db:"feed_id"`
	URI         string    `db:"uri"`
	Title       string    `db:"title"`
	Description *string   `db:"description"`
	Content     *string   `db:"content"`
	VisionData  []byte    `db:"vision_data"`
	TextContent string    `db:"text_content"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Stats holds row counts for diagnostics.
type Stats struct {
	Feeds       int `db:"feeds"`
	ActiveFeeds int `db:"active_feeds"`
	Entries     int `db:"entries"`
	Items       int `db:"items"`
}
