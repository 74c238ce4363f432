package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var _ EntryStore = (*SQLEntryStore)(nil)

// SQLEntryStore implements EntryStore on Postgres.
type SQLEntryStore struct {
	db *DB
}

func NewEntryStore(db *DB) *SQLEntryStore {
	return &SQLEntryStore{db: db}
}

func (s *SQLEntryStore) Transact(ctx context.Context, fn func(EntryTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&sqlEntryTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback failed: %v (after: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

type sqlEntryTx struct {
	tx *sqlx.Tx
}

func (t *sqlEntryTx) FindEntryByGUID(ctx context.Context, feedID, guid string) (*FeedEntry, error) {
	var entry FeedEntry
	err := t.tx.GetContext(ctx, &entry, `
		SELECT * FROM feed_entries WHERE feed_id = $1 AND guid = $2
	`, feedID, guid)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find entry by guid: %w", err)
	}

	return &entry, nil
}

func (t *sqlEntryTx) FindEntryByURL(ctx context.Context, feedID, url string) (*FeedEntry, error) {
	var entry FeedEntry
	err := t.tx.GetContext(ctx, &entry, `
		SELECT * FROM feed_entries WHERE feed_id = $1 AND url = $2
	`, feedID, url)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find entry by url: %w", err)
	}

	return &entry, nil
}

func (t *sqlEntryTx) InsertEntry(ctx context.Context, entry *FeedEntry) error {
	err := t.tx.QueryRowxContext(ctx, `
		INSERT INTO feed_entries (
			feed_id, guid, url, title, description, content, author,
			published_at, updated_at, tags
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`, entry.FeedID, entry.GUID, entry.URL, entry.Title, entry.Description,
		entry.Content, entry.Author, entry.PublishedAt, entry.UpdatedAt,
		entry.Tags).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}

	return nil
}

// UpdateEntry refreshes the mutable fields of an existing row. Identity and
// created_at stay as they were on first sighting.
func (t *sqlEntryTx) UpdateEntry(ctx context.Context, entry *FeedEntry) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE feed_entries
		SET guid = $2,
		    title = $3,
		    description = $4,
		    content = $5,
		    author = $6,
		    published_at = $7,
		    updated_at = $8,
		    tags = $9
		WHERE id = $1
	`, entry.ID, entry.GUID, entry.Title, entry.Description, entry.Content,
		entry.Author, entry.PublishedAt, entry.UpdatedAt, entry.Tags)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}

	return nil
}

// UpsertInputItem writes the normalized projection. URI uniqueness is
// global, so the most recent write wins regardless of which feed produced it.
func (t *sqlEntryTx) UpsertInputItem(ctx context.Context, item *InputItem) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO input_items (
			feed_id, uri, title, description, content, vision_data, text_content
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (uri) DO UPDATE SET
			feed_id = EXCLUDED.feed_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			content = EXCLUDED.content,
			vision_data = EXCLUDED.vision_data,
			text_content = EXCLUDED.text_content,
			updated_at = NOW()
	`, item.FeedID, item.URI, item.Title, item.Description, item.Content,
		item.VisionData, item.TextContent)
	if err != nil {
		return fmt.Errorf("failed to upsert input item: %w", err)
	}

	return nil
}

func (t *sqlEntryTx) MarkEntryProcessed(ctx context.Context, entryID string, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE feed_entries SET last_processed = $2 WHERE id = $1
	`, entryID, at)
	if err != nil {
		return fmt.Errorf("failed to mark entry processed: %w", err)
	}

	return nil
}
