package aggregator

import (
	"context"
	"time"

	"github.com/okhov/feedsink/app/database"
	"github.com/okhov/feedsink/app/fetcher"
	"github.com/okhov/feedsink/app/ingester"
	"github.com/okhov/feedsink/app/parser"
)

// Registry is the slice of the feed repository the aggregator drives:
// scheduling reads plus fetch bookkeeping writes.
type Registry interface {
	ListDue(ctx context.Context, now time.Time, defaultIntervalHours int) ([]database.Feed, error)
	RecordSuccess(ctx context.Context, feedID, etag, lastModified string, fetchedAt time.Time) error
	RecordFailure(ctx context.Context, feedID, message string, fetchedAt time.Time) error
	UpdateInfo(ctx context.Context, feedID, title, description string) error
	GetFeed(ctx context.Context, feedID string) (*database.Feed, error)
	Deactivate(ctx context.Context, feedID string) error
}

type Fetcher interface {
	Fetch(ctx context.Context, url, etag, lastModified string) (*fetcher.Result, error)
}

type Parser interface {
	Parse(data []byte) (*parser.Result, error)
}

type Engine interface {
	Persist(ctx context.Context, feedID string, entries []parser.RawEntry) (ingester.Report, error)
}
