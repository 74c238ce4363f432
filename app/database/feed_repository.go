package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateFeed is returned by Register when the URL is already known.
var ErrDuplicateFeed = errors.New("feed already registered")

// ErrFeedNotFound is returned when a feed ID or URL does not exist.
var ErrFeedNotFound = errors.New("feed not found")

// FeedRepository is the feed registry: it owns all mutation of the feeds
// table. Deactivation policy is the caller's decision; the repository only
// exposes the error counter and the Deactivate operation.
type FeedRepository struct {
	db *DB
}

func NewFeedRepository(db *DB) *FeedRepository {
	return &FeedRepository{db: db}
}

// Register creates a feed with a clean slate: zero errors, active, no
// cached validators.
func (r *FeedRepository) Register(ctx context.Context, url string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO feeds (url)
		VALUES ($1)
		ON CONFLICT (url) DO NOTHING
		RETURNING id
	`, url).Scan(&id)

	if err == sql.ErrNoRows {
		return "", fmt.Errorf("register %s: %w", url, ErrDuplicateFeed)
	}
	if err != nil {
		return "", fmt.Errorf("failed to register feed: %w", err)
	}

	return id, nil
}

// ListDue returns active feeds whose last fetch is at least
// max(update_frequency_hours, defaultIntervalHours) hours old, never-fetched
// feeds first, then oldest fetch first.
func (r *FeedRepository) ListDue(ctx context.Context, now time.Time, defaultIntervalHours int) ([]Feed, error) {
	var feeds []Feed
	err := r.db.SelectContext(ctx, &feeds, `
		SELECT * FROM feeds
		WHERE is_active = TRUE
		  AND (last_fetch_time IS NULL
		       OR last_fetch_time <= $1::timestamptz
		           - make_interval(hours => GREATEST(COALESCE(update_frequency_hours, 0), $2)))
		ORDER BY last_fetch_time ASC NULLS FIRST
	`, now, defaultIntervalHours)
	if err != nil {
		return nil, fmt.Errorf("failed to list due feeds: %w", err)
	}

	return feeds, nil
}

// RecordSuccess resets the error state and stores fresh validators. Empty
// validator values keep the stored ones, so a 304 cycle does not erase the
// headers that produced it.
func (r *FeedRepository) RecordSuccess(ctx context.Context, feedID, etag, lastModified string, fetchedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE feeds
		SET last_fetch_time = $2,
		    last_successful_fetch = $2,
		    error_count = 0,
		    last_error = NULL,
		    etag = CASE WHEN $3 <> '' THEN $3 ELSE etag END,
		    last_modified = CASE WHEN $4 <> '' THEN $4 ELSE last_modified END,
		    updated_at = NOW()
		WHERE id = $1
	`, feedID, fetchedAt, etag, lastModified)
	if err != nil {
		return fmt.Errorf("failed to record success: %w", err)
	}

	return r.requireRow(res)
}

// RecordFailure bumps the error counter and stores the message. Cached
// validators and last_successful_fetch are deliberately left alone so a
// conditional fetch can still succeed once the remote recovers.
func (r *FeedRepository) RecordFailure(ctx context.Context, feedID, message string, fetchedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE feeds
		SET last_fetch_time = $2,
		    error_count = error_count + 1,
		    last_error = $3,
		    updated_at = NOW()
		WHERE id = $1
	`, feedID, fetchedAt, message)
	if err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}

	return r.requireRow(res)
}

// Deactivate soft-disables a feed; it will no longer be scheduled.
func (r *FeedRepository) Deactivate(ctx context.Context, feedID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE feeds SET is_active = FALSE, updated_at = NOW() WHERE id = $1
	`, feedID)
	if err != nil {
		return fmt.Errorf("failed to deactivate feed: %w", err)
	}

	return r.requireRow(res)
}

// UpdateInfo stores the title/description parsed out of the feed document.
func (r *FeedRepository) UpdateInfo(ctx context.Context, feedID, title, description string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE feeds
		SET title = NULLIF($2, ''),
		    description = NULLIF($3, ''),
		    updated_at = NOW()
		WHERE id = $1
	`, feedID, title, description)
	if err != nil {
		return fmt.Errorf("failed to update feed info: %w", err)
	}

	return nil
}

// SetUpdateFrequency stores a per-feed scheduling hint in hours.
func (r *FeedRepository) SetUpdateFrequency(ctx context.Context, feedID string, hours int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE feeds SET update_frequency_hours = $2, updated_at = NOW() WHERE id = $1
	`, feedID, hours)
	if err != nil {
		return fmt.Errorf("failed to set update frequency: %w", err)
	}

	return r.requireRow(res)
}

func (r *FeedRepository) GetFeed(ctx context.Context, feedID string) (*Feed, error) {
	var feed Feed
	err := r.db.GetContext(ctx, &feed, `SELECT * FROM feeds WHERE id = $1`, feedID)
	if err == sql.ErrNoRows {
		return nil, ErrFeedNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}

	return &feed, nil
}

func (r *FeedRepository) GetFeedByURL(ctx context.Context, url string) (*Feed, error) {
	var feed Feed
	err := r.db.GetContext(ctx, &feed, `SELECT * FROM feeds WHERE url = $1`, url)
	if err == sql.ErrNoRows {
		return nil, ErrFeedNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed by URL: %w", err)
	}

	return &feed, nil
}

func (r *FeedRepository) ListAll(ctx context.Context) ([]Feed, error) {
	var feeds []Feed
	err := r.db.SelectContext(ctx, &feeds, `SELECT * FROM feeds ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}

	return feeds, nil
}

// Delete hard-deletes a feed; entries and items go with it via cascade.
func (r *FeedRepository) Delete(ctx context.Context, feedID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM feeds WHERE id = $1`, feedID)
	if err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}

	return r.requireRow(res)
}

func (r *FeedRepository) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := r.db.GetContext(ctx, &stats, `
		SELECT
			(SELECT COUNT(*) FROM feeds) AS feeds,
			(SELECT COUNT(*) FROM feeds WHERE is_active = TRUE) AS active_feeds,
			(SELECT COUNT(*) FROM feed_entries) AS entries,
			(SELECT COUNT(*) FROM input_items) AS items
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return &stats, nil
}

func (r *FeedRepository) requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrFeedNotFound
	}
	return nil
}
