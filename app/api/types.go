package api

import (
	"context"

	"github.com/okhov/feedsink/app/database"
)

// FeedRegistry is the slice of the feed repository the ops API drives.
type FeedRegistry interface {
	Register(ctx context.Context, url string) (string, error)
	GetFeed(ctx context.Context, feedID string) (*database.Feed, error)
	GetFeedByURL(ctx context.Context, url string) (*database.Feed, error)
	ListAll(ctx context.Context) ([]database.Feed, error)
	Deactivate(ctx context.Context, feedID string) error
	Delete(ctx context.Context, feedID string) error
	SetUpdateFrequency(ctx context.Context, feedID string, hours int) error
	GetStats(ctx context.Context) (*database.Stats, error)
}

var _ FeedRegistry = (*database.FeedRepository)(nil)

type Handler struct {
	feedRepo FeedRegistry
}

func NewHandler(feedRepo FeedRegistry) *Handler {
	return &Handler{feedRepo: feedRepo}
}
