// Package ingester persists parsed entries. Within a feed, identity is
// the GUID when present and the URL otherwise, with the URL acting as a
// uniqueness backstop either way. A feed's batch lands in one
// transaction: all rows commit or none do.
package ingester

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/okhov/feedsink/app/database"
	"github.com/okhov/feedsink/app/parser"
)

// Report summarizes one feed's batch. A re-sighted entry counts as
// updated whether or not its fields changed. Skipped counts entries
// with no URL, which the parser should never emit.
type Report struct {
	Inserted int
	Updated  int
	Skipped  int
}

type Engine struct {
	store database.EntryStore
}

func New(store database.EntryStore) *Engine {
	return &Engine{store: store}
}

// Persist writes a feed's parsed entries and their normalized input
// items in a single transaction.
func (e *Engine) Persist(ctx context.Context, feedID string, entries []parser.RawEntry) (Report, error) {
	report := Report{}
	now := time.Now().UTC()

	err := e.store.Transact(ctx, func(tx database.EntryTx) error {
		for i := range entries {
			raw := &entries[i]

			if raw.URL == "" {
				report.Skipped++
				slog.Warn("Skipping entry without URL", "feed_id", feedID)
				continue
			}

			existing, err := e.findExisting(ctx, tx, feedID, raw)
			if err != nil {
				return err
			}

			var entry *database.FeedEntry
			if existing != nil {
				entry = mergeEntry(existing, raw)
				if err := tx.UpdateEntry(ctx, entry); err != nil {
					return fmt.Errorf("failed to update entry %s: %w", raw.URL, err)
				}
				report.Updated++
			} else {
				entry = buildEntry(feedID, raw)
				if err := tx.InsertEntry(ctx, entry); err != nil {
					return fmt.Errorf("failed to insert entry %s: %w", raw.URL, err)
				}
				report.Inserted++
			}

			if err := tx.UpsertInputItem(ctx, deriveInputItem(feedID, entry)); err != nil {
				return fmt.Errorf("failed to upsert input item %s: %w", raw.URL, err)
			}
			if err := tx.MarkEntryProcessed(ctx, entry.ID, now); err != nil {
				return fmt.Errorf("failed to mark entry %s processed: %w", entry.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	return report, nil
}

// findExisting looks up by GUID first, then by URL. The URL lookup runs
// even for GUID-bearing entries: a new GUID pointing at an already-stored
// URL must update that row, not collide with it.
func (e *Engine) findExisting(ctx context.Context, tx database.EntryTx, feedID string, raw *parser.RawEntry) (*database.FeedEntry, error) {
	if raw.GUID != "" {
		entry, err := tx.FindEntryByGUID(ctx, feedID, raw.GUID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up entry by guid: %w", err)
		}
		if entry != nil {
			return entry, nil
		}
	}

	entry, err := tx.FindEntryByURL(ctx, feedID, raw.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to look up entry by url: %w", err)
	}
	return entry, nil
}

func buildEntry(feedID string, raw *parser.RawEntry) *database.FeedEntry {
	return &database.FeedEntry{
		FeedID:      feedID,
		GUID:        optional(raw.GUID),
		URL:         raw.URL,
		Title:       raw.Title,
		Description: optional(raw.Description),
		Content:     optional(raw.Content),
		Author:      optional(raw.Author),
		PublishedAt: raw.PublishedAt,
		UpdatedAt:   raw.UpdatedAt,
		Tags:        raw.Tags,
	}
}

// mergeEntry refreshes a stored entry from a new sighting. ID and
// created_at survive; a GUID once recorded is never cleared by a later
// sighting that omits it.
func mergeEntry(existing *database.FeedEntry, raw *parser.RawEntry) *database.FeedEntry {
	entry := buildEntry(existing.FeedID, raw)
	entry.ID = existing.ID
	entry.CreatedAt = existing.CreatedAt
	if entry.GUID == nil {
		entry.GUID = existing.GUID
	}
	return entry
}

func deriveInputItem(feedID string, entry *database.FeedEntry) *database.InputItem {
	return &database.InputItem{
		FeedID:      feedID,
		URI:         entry.URL,
		Title:       entry.Title,
		Description: entry.Description,
		Content:     entry.Content,
		VisionData:  []byte{},
		TextContent: fmt.Sprintf("Title: %s\n\nDescription: %s\n\nContent: %s",
			entry.Title, deref(entry.Description), deref(entry.Content)),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
