package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okhov/feedsink/app/aggregator"
	"github.com/okhov/feedsink/app/api"
	"github.com/okhov/feedsink/app/cfg"
	"github.com/okhov/feedsink/app/database"
	"github.com/okhov/feedsink/app/fetcher"
	"github.com/okhov/feedsink/app/ingester"
	"github.com/okhov/feedsink/app/parser"
)

func main() {
	config, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if config == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogger(config.Debug)

	if err := run(config); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func run(config *cfg.Cfg) error {
	slog.Info("Starting feedsink", "version", config.Version)

	db, err := database.NewConnection(config.DBHost, config.DBPort, config.DBUser,
		config.DBPassword, config.DBName)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	feedRepo := database.NewFeedRepository(db)
	entryStore := database.NewEntryStore(db)

	registerStartupFeeds(feedRepo, config.AddFeeds)

	feedFetcher := fetcher.New(fetcher.Config{
		UserAgent:     config.UserAgent,
		Timeout:       time.Duration(config.FetchTimeout) * time.Second,
		MaxRetries:    config.MaxRetries,
		RetryDelay:    time.Duration(config.RetryDelay) * time.Second,
		MaxRetryDelay: time.Duration(config.MaxRetryDelay) * time.Second,
		MaxBodySize:   int64(config.MaxFeedSizeMB) << 20,
		MaxRedirects:  config.MaxRedirects,
		RespectRobots: config.RespectRobots,
	})
	feedParser := parser.New()
	engine := ingester.New(entryStore)

	agg := aggregator.New(feedRepo, feedFetcher, feedParser, engine, aggregator.Config{
		WorkerCount:          config.WorkerCount,
		CycleInterval:        time.Duration(config.CycleInterval) * time.Second,
		DefaultIntervalHours: config.DefaultIntervalHours,
		ErrorThreshold:       config.ErrorThreshold,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.Once {
		report, err := agg.RunCycle(ctx)
		if err != nil {
			return fmt.Errorf("aggregation cycle failed: %w", err)
		}
		slog.Info("Single cycle completed",
			"feeds", report.Feeds,
			"fetched", report.Fetched,
			"not_modified", report.NotModified,
			"failed", report.Failed,
			"inserted", report.Inserted,
			"updated", report.Updated)
		return nil
	}

	var httpServer *http.Server
	serverErrChan := make(chan error, 1)
	if config.Port != "" {
		handler := api.NewHandler(feedRepo)
		httpServer = &http.Server{
			Addr:         ":" + config.Port,
			Handler:      api.NewServer(handler),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		}

		go func() {
			slog.Info("Starting HTTP server", "port", config.Port)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
			}
		}()
	} else {
		slog.Info("HTTP server disabled (no port configured)")
	}

	aggDone := make(chan error, 1)
	go func() {
		aggDone <- agg.Run(ctx)
	}()

	slog.Info("Aggregation loop started",
		"workers", config.WorkerCount,
		"cycle_interval", config.CycleInterval,
		"error_threshold", config.ErrorThreshold)

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
		stop()
	}

	if err := <-aggDone; err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Aggregation loop error", "error", err)
	}

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}

	slog.Info("Shutdown complete")
	return nil
}

// registerStartupFeeds registers --add-feed URLs. Duplicates are fine;
// the registry already knows them.
func registerStartupFeeds(feedRepo *database.FeedRepository, urls []string) {
	for _, url := range urls {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		id, err := feedRepo.Register(ctx, url)
		cancel()

		switch {
		case errors.Is(err, database.ErrDuplicateFeed):
			slog.Debug("Feed already registered", "url", url)
		case err != nil:
			slog.Warn("Failed to register feed", "url", url, "error", err)
		default:
			slog.Info("Feed registered", "id", id, "url", url)
		}
	}
}
