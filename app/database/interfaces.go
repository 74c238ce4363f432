package database

import (
	"context"
	"time"
)

// EntryStore hands out transactional units of work over feed entries and
// input items. One Transact call covers one feed's batch for one cycle:
// either every row op inside fn commits, or none do.
type EntryStore interface {
	Transact(ctx context.Context, fn func(EntryTx) error) error
}

// EntryTx is the row-level vocabulary the dedup engine speaks. Find
// methods return (nil, nil) when no row matches.
type EntryTx interface {
	FindEntryByGUID(ctx context.Context, feedID, guid string) (*FeedEntry, error)
	FindEntryByURL(ctx context.Context, feedID, url string) (*FeedEntry, error)
	InsertEntry(ctx context.Context, entry *FeedEntry) error
	UpdateEntry(ctx context.Context, entry *FeedEntry) error
	UpsertInputItem(ctx context.Context, item *InputItem) error
	MarkEntryProcessed(ctx context.Context, entryID string, at time.Time) error
}
