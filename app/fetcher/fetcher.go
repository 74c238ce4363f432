// Package fetcher implements conditional HTTP fetching of feed documents:
// ETag/Last-Modified validators, size and redirect bounds, optional
// robots.txt checks, and bounded retries with exponential backoff.
package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

type Fetcher struct {
	client *http.Client
	config Config
	robots *robotsCache
}

func New(config Config) *Fetcher {
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			MaxIdleConnsPerHost: 5,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > config.MaxRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}

	return &Fetcher{
		client: client,
		config: config,
		robots: newRobotsCache(client, config.UserAgent),
	}
}

// Fetch retrieves a feed document, sending the stored validators as
// conditional request headers. It has no side effects beyond the network
// call; recording the outcome is the caller's job.
func (f *Fetcher) Fetch(ctx context.Context, url, etag, lastModified string) (*Result, error) {
	if f.config.RespectRobots {
		allowed, err := f.robots.Allowed(ctx, url)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("fetch %s: %w", url, ErrRobotsDisallowed)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= f.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt-1, f.config.RetryDelay, f.config.MaxRetryDelay)
			slog.Debug("Retrying fetch", "url", url, "attempt", attempt, "delay", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := f.attempt(ctx, url, etag, lastModified)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

func (f *Fetcher) attempt(ctx context.Context, url, etag, lastModified string) (*Result, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.config.UserAgent)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &Result{Status: StatusNotModified, HTTPStatus: resp.StatusCode}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpStatusError{status: resp.StatusCode, url: url}
	}

	// Read one byte past the cap so oversize is detected without ever
	// surfacing a truncated document.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.config.MaxBodySize+1))
	if err != nil {
		if isDecodeError(err) {
			return nil, fmt.Errorf("fetch %s: %w: %v", url, ErrDecode, err)
		}
		if attemptCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("fetch %s: %w", url, ErrTimeout)
		}
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > f.config.MaxBodySize {
		return nil, fmt.Errorf("fetch %s: %w (> %d bytes)", url, ErrTooLarge, f.config.MaxBodySize)
	}

	return &Result{
		Status:       StatusFetched,
		Body:         body,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
		HTTPStatus:   resp.StatusCode,
	}, nil
}

type httpStatusError struct {
	status int
	url    string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %d %s", e.url, e.status, http.StatusText(e.status))
}

func classifyTransportError(url string, err error) error {
	if errors.Is(err, ErrTooManyRedirects) {
		return fmt.Errorf("fetch %s: %w", url, ErrTooManyRedirects)
	}
	if isTimeout(err) {
		return fmt.Errorf("fetch %s: %w", url, ErrTimeout)
	}
	return fmt.Errorf("fetch %s: %w", url, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isDecodeError(err error) bool {
	var corrupt flate.CorruptInputError
	return errors.Is(err, gzip.ErrHeader) ||
		errors.Is(err, gzip.ErrChecksum) ||
		errors.As(err, &corrupt)
}

// retryable limits in-cycle retries to timeouts and server-side errors;
// everything else waits for the next scheduled cycle.
func retryable(err error) bool {
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.status >= 500 || statusErr.status == http.StatusTooManyRequests
	}
	return false
}
