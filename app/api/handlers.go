// Package api exposes the operational HTTP surface: health, stats, and
// feed registry management.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/okhov/feedsink/app/cfg"
	"github.com/okhov/feedsink/app/database"
)

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"status":    "ok",
		"version":   cfg.GetVersion(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if stats, err := h.feedRepo.GetStats(c.Request.Context()); err == nil {
		health["feeds"] = stats.Feeds
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.feedRepo.GetStats(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "get_stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds":        stats.Feeds,
		"active_feeds": stats.ActiveFeeds,
		"entries":      stats.Entries,
		"items":        stats.Items,
	})
}

func (h *Handler) ListFeeds(c *gin.Context) {
	feeds, err := h.feedRepo.ListAll(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_feeds", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	out := make([]gin.H, 0, len(feeds))
	for _, feed := range feeds {
		out = append(out, feedInfo(&feed))
	}

	c.JSON(http.StatusOK, gin.H{
		"feeds": out,
		"total": len(out),
	})
}

func (h *Handler) GetFeed(c *gin.Context) {
	feed, err := h.feedRepo.GetFeed(c.Request.Context(), c.Param("id"))
	if errors.Is(err, database.ErrFeedNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "get_feed", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, feedInfo(feed))
}

type registerRequest struct {
	URL string `json:"url" binding:"required"`
}

func (h *Handler) RegisterFeed(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid url field"})
		return
	}

	parsed, err := url.Parse(req.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL must be absolute http or https"})
		return
	}

	id, err := h.feedRepo.Register(c.Request.Context(), req.URL)
	if errors.Is(err, database.ErrDuplicateFeed) {
		conflict := gin.H{"error": "Feed already registered"}
		if existing, lookupErr := h.feedRepo.GetFeedByURL(c.Request.Context(), req.URL); lookupErr == nil {
			conflict["id"] = existing.ID
		}
		c.JSON(http.StatusConflict, conflict)
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "register_feed", "url", req.URL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Feed registered", "id", id, "url", req.URL)
	c.JSON(http.StatusCreated, gin.H{"id": id, "url": req.URL})
}

func (h *Handler) DeactivateFeed(c *gin.Context) {
	id := c.Param("id")

	err := h.feedRepo.Deactivate(c.Request.Context(), id)
	if errors.Is(err, database.ErrFeedNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "deactivate_feed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Feed deactivated", "id", id)
	c.JSON(http.StatusOK, gin.H{"id": id, "active": false})
}

func (h *Handler) DeleteFeed(c *gin.Context) {
	id := c.Param("id")

	err := h.feedRepo.Delete(c.Request.Context(), id)
	if errors.Is(err, database.ErrFeedNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "delete_feed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Feed deleted", "id", id)
	c.JSON(http.StatusOK, gin.H{"id": id, "deleted": true})
}

type frequencyRequest struct {
	Hours *int `json:"hours" binding:"required"`
}

// SetFrequency stores a per-feed scheduling hint. Zero hours clears the
// hint back to the global default interval.
func (h *Handler) SetFrequency(c *gin.Context) {
	id := c.Param("id")

	var req frequencyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Hours == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid hours field"})
		return
	}
	if *req.Hours < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Hours must not be negative"})
		return
	}

	err := h.feedRepo.SetUpdateFrequency(c.Request.Context(), id, *req.Hours)
	if errors.Is(err, database.ErrFeedNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Feed not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "set_frequency", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Feed frequency updated", "id", id, "hours", *req.Hours)
	c.JSON(http.StatusOK, gin.H{"id": id, "update_frequency_hours": *req.Hours})
}

func feedInfo(feed *database.Feed) gin.H {
	return gin.H{
		"id":                    feed.ID,
		"url":                   feed.URL,
		"title":                 feed.Title,
		"description":           feed.Description,
		"active":                feed.IsActive,
		"error_count":           feed.ErrorCount,
		"last_error":            feed.LastError,
		"last_fetch_time":       feed.LastFetchTime,
		"last_successful_fetch": feed.LastSuccessfulFetch,
		"created_at":            feed.CreatedAt,
		"updated_at":            feed.UpdatedAt,
	}
}
