package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsCache evaluates robots.txt per host, caching the parsed policy.
// Fetch failures are treated as "allowed": an unreachable robots.txt must
// not take a whole feed host offline.
type robotsCache struct {
	client    *http.Client
	userAgent string

	mu    sync.RWMutex
	cache map[string]*robotstxt.RobotsData
}

func newRobotsCache(client *http.Client, userAgent string) *robotsCache {
	return &robotsCache{
		client:    client,
		userAgent: userAgent,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

func (r *robotsCache) Allowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("failed to parse URL: %w", err)
	}

	host := u.Scheme + "://" + u.Host

	r.mu.RLock()
	data, ok := r.cache[host]
	r.mu.RUnlock()

	if !ok {
		data = r.fetch(ctx, host)
		r.mu.Lock()
		r.cache[host] = data
		r.mu.Unlock()
	}

	if data == nil {
		return true, nil
	}

	return data.TestAgent(u.Path, r.userAgent), nil
}

// fetch returns nil when no usable policy could be retrieved.
func (r *robotsCache) fetch(ctx context.Context, host string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		slog.Debug("robots.txt unreachable, allowing fetches", "host", host, "error", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512*1024))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		slog.Debug("robots.txt unparseable, allowing fetches", "host", host, "error", err)
		return nil
	}

	return data
}
