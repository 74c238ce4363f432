// Package aggregator runs the fetch-parse-persist pipeline over every
// due feed. A cycle fans feeds out to a bounded worker pool; one feed's
// failure is recorded against that feed and never aborts the cycle.
package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/okhov/feedsink/app/database"
	"github.com/okhov/feedsink/app/fetcher"
	"github.com/okhov/feedsink/app/ingester"
)

type Config struct {
	WorkerCount          int
	CycleInterval        time.Duration
	DefaultIntervalHours int
	// ErrorThreshold deactivates a feed once its consecutive error count
	// reaches this value. Zero disables the policy.
	ErrorThreshold int
}

type FeedStatus string

const (
	StatusFetched     FeedStatus = "fetched"
	StatusNotModified FeedStatus = "not_modified"
	StatusFailed      FeedStatus = "failed"
)

// FeedReport is the outcome of one feed's pass through the pipeline.
type FeedReport struct {
	FeedID string
	URL    string
	Status FeedStatus
	ingester.Report
	Deactivated bool
	Err         error
}

// CycleReport aggregates the per-feed outcomes of one cycle.
type CycleReport struct {
	Feeds       int
	Fetched     int
	NotModified int
	Failed      int
	Deactivated int
	Inserted    int
	Updated     int
	Skipped     int
	Duration    time.Duration
}

type Aggregator struct {
	registry Registry
	fetcher  Fetcher
	parser   Parser
	engine   Engine
	config   Config
}

func New(registry Registry, fetcher Fetcher, parser Parser, engine Engine, config Config) *Aggregator {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	return &Aggregator{
		registry: registry,
		fetcher:  fetcher,
		parser:   parser,
		engine:   engine,
		config:   config,
	}
}

// Run loops cycles until ctx is cancelled, starting with an immediate one.
func (a *Aggregator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.config.CycleInterval)
	defer ticker.Stop()

	a.runAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.runAndLog(ctx)
		}
	}
}

func (a *Aggregator) runAndLog(ctx context.Context) {
	report, err := a.RunCycle(ctx)
	if err != nil {
		slog.Error("Aggregation cycle failed", "error", err)
		return
	}

	slog.Info("Aggregation cycle completed",
		"feeds", report.Feeds,
		"fetched", report.Fetched,
		"not_modified", report.NotModified,
		"failed", report.Failed,
		"deactivated", report.Deactivated,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"duration", report.Duration.String())
}

// RunCycle processes every due feed once through a bounded worker pool.
func (a *Aggregator) RunCycle(ctx context.Context) (*CycleReport, error) {
	started := time.Now()

	feeds, err := a.registry.ListDue(ctx, started.UTC(), a.config.DefaultIntervalHours)
	if err != nil {
		return nil, err
	}

	jobs := make(chan database.Feed)
	results := make(chan FeedReport, len(feeds))

	var wg sync.WaitGroup
	for i := 0; i < a.config.WorkerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for feed := range jobs {
				results <- a.processFeed(ctx, feed)
			}
		}()
	}

	for _, feed := range feeds {
		jobs <- feed
	}
	close(jobs)
	wg.Wait()
	close(results)

	reports := make([]FeedReport, 0, len(feeds))
	for report := range results {
		reports = append(reports, report)
	}

	cycle := aggregate(reports)
	cycle.Duration = time.Since(started)
	return cycle, nil
}

func aggregate(reports []FeedReport) *CycleReport {
	return &CycleReport{
		Feeds:       len(reports),
		Fetched:     lo.CountBy(reports, func(r FeedReport) bool { return r.Status == StatusFetched }),
		NotModified: lo.CountBy(reports, func(r FeedReport) bool { return r.Status == StatusNotModified }),
		Failed:      lo.CountBy(reports, func(r FeedReport) bool { return r.Status == StatusFailed }),
		Deactivated: lo.CountBy(reports, func(r FeedReport) bool { return r.Deactivated }),
		Inserted:    lo.SumBy(reports, func(r FeedReport) int { return r.Inserted }),
		Updated:     lo.SumBy(reports, func(r FeedReport) int { return r.Updated }),
		Skipped:     lo.SumBy(reports, func(r FeedReport) int { return r.Skipped }),
	}
}

func (a *Aggregator) processFeed(ctx context.Context, feed database.Feed) FeedReport {
	report := FeedReport{FeedID: feed.ID, URL: feed.URL}

	result, err := a.fetcher.Fetch(ctx, feed.URL, deref(feed.ETag), deref(feed.LastModified))
	if err != nil {
		return a.fail(ctx, report, "fetch failed", err)
	}

	if result.Status == fetcher.StatusNotModified {
		// Nothing to parse; the cycle still counts as a successful contact.
		if err := a.registry.RecordSuccess(ctx, feed.ID, "", "", time.Now().UTC()); err != nil {
			slog.Error("Failed to record success", "feed_id", feed.ID, "error", err)
		}
		report.Status = StatusNotModified
		slog.Debug("Feed not modified", "url", feed.URL)
		return report
	}

	parsed, err := a.parser.Parse(result.Body)
	if err != nil {
		return a.fail(ctx, report, "parse failed", err)
	}

	persisted, err := a.engine.Persist(ctx, feed.ID, parsed.Entries)
	if err != nil {
		return a.fail(ctx, report, "persist failed", err)
	}
	report.Report = persisted

	if err := a.registry.UpdateInfo(ctx, feed.ID, parsed.Title, parsed.Description); err != nil {
		slog.Warn("Failed to update feed info", "feed_id", feed.ID, "error", err)
	}
	if err := a.registry.RecordSuccess(ctx, feed.ID, result.ETag, result.LastModified, time.Now().UTC()); err != nil {
		slog.Error("Failed to record success", "feed_id", feed.ID, "error", err)
	}

	report.Status = StatusFetched
	slog.Info("Feed processed",
		"url", feed.URL,
		"inserted", persisted.Inserted,
		"updated", persisted.Updated,
		"skipped", persisted.Skipped)
	return report
}

// fail records the failure against the feed and applies the deactivation
// policy. The pipeline error is preserved in the report even when the
// bookkeeping writes themselves fail. Cancellation is not a feed failure:
// work aborted by shutdown is discarded without touching the error count.
func (a *Aggregator) fail(ctx context.Context, report FeedReport, stage string, cause error) FeedReport {
	report.Status = StatusFailed
	report.Err = cause

	if errors.Is(cause, context.Canceled) {
		slog.Debug("Feed processing cancelled", "url", report.URL, "stage", stage)
		return report
	}

	slog.Warn("Feed processing failed", "url", report.URL, "stage", stage, "error", cause)

	if err := a.registry.RecordFailure(ctx, report.FeedID, cause.Error(), time.Now().UTC()); err != nil {
		slog.Error("Failed to record failure", "feed_id", report.FeedID, "error", err)
		return report
	}

	report.Deactivated = a.applyErrorPolicy(ctx, report.FeedID)
	return report
}

func (a *Aggregator) applyErrorPolicy(ctx context.Context, feedID string) bool {
	if a.config.ErrorThreshold <= 0 {
		return false
	}

	feed, err := a.registry.GetFeed(ctx, feedID)
	if err != nil {
		slog.Error("Failed to read feed for error policy", "feed_id", feedID, "error", err)
		return false
	}
	if feed.ErrorCount < a.config.ErrorThreshold {
		return false
	}

	if err := a.registry.Deactivate(ctx, feedID); err != nil {
		slog.Error("Failed to deactivate feed", "feed_id", feedID, "error", err)
		return false
	}

	slog.Warn("Feed deactivated after repeated errors",
		"url", feed.URL, "error_count", feed.ErrorCount)
	return true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
