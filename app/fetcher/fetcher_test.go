package fetcher

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		UserAgent:     "feedsink-test/1.0",
		Timeout:       2 * time.Second,
		MaxRetries:    0,
		RetryDelay:    time.Millisecond,
		MaxRetryDelay: 10 * time.Millisecond,
		MaxBodySize:   1 << 20,
		MaxRedirects:  5,
	}
}

func TestFetchCapturesValidators(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Last-Modified", "Mon, 03 Jul 2023 10:00:00 GMT")
		w.Write([]byte("<rss></rss>"))
	}))
	defer server.Close()

	f := New(testConfig())
	result, err := f.Fetch(context.Background(), server.URL, "", "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Status != StatusFetched {
		t.Errorf("Expected StatusFetched, got: %d", result.Status)
	}
	if string(result.Body) != "<rss></rss>" {
		t.Errorf("Unexpected body: %q", result.Body)
	}
	if result.ETag != `"v1"` {
		t.Errorf("Expected ETag to be captured, got: %q", result.ETag)
	}
	if result.LastModified != "Mon, 03 Jul 2023 10:00:00 GMT" {
		t.Errorf("Expected Last-Modified to be captured, got: %q", result.LastModified)
	}
}

func TestFetchNotModified(t *testing.T) {
	var conditionalSeen atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") == `"v1"` {
			conditionalSeen.Store(true)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte("<rss></rss>"))
	}))
	defer server.Close()

	f := New(testConfig())

	first, err := f.Fetch(context.Background(), server.URL, "", "")
	if err != nil {
		t.Fatalf("First fetch failed: %v", err)
	}
	if first.Status != StatusFetched {
		t.Fatalf("Expected first fetch to return a document")
	}

	second, err := f.Fetch(context.Background(), server.URL, first.ETag, first.LastModified)
	if err != nil {
		t.Fatalf("Second fetch failed: %v", err)
	}
	if second.Status != StatusNotModified {
		t.Errorf("Expected StatusNotModified on second fetch, got: %d", second.Status)
	}
	if len(second.Body) != 0 {
		t.Errorf("Expected empty body for 304, got %d bytes", len(second.Body))
	}
	if !conditionalSeen.Load() {
		t.Error("Expected If-None-Match header to be sent")
	}
}

func TestFetchTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer server.Close()

	config := testConfig()
	config.MaxBodySize = 1024

	f := New(config)
	_, err := f.Fetch(context.Background(), server.URL, "", "")
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Expected ErrTooLarge, got: %v", err)
	}
}

func TestFetchTooManyRedirects(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusMovedPermanently)
	}))
	defer server.Close()

	config := testConfig()
	config.MaxRedirects = 3

	f := New(config)
	_, err := f.Fetch(context.Background(), server.URL, "", "")
	if !errors.Is(err, ErrTooManyRedirects) {
		t.Errorf("Expected ErrTooManyRedirects, got: %v", err)
	}
}

func TestFetchTimeoutRetriesBounded(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	config := testConfig()
	config.Timeout = 50 * time.Millisecond
	config.MaxRetries = 2

	f := New(config)
	_, err := f.Fetch(context.Background(), server.URL, "", "")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got: %v", err)
	}

	if got := attempts.Load(); got != 3 {
		t.Errorf("Expected exactly max_retries+1 = 3 attempts, got: %d", got)
	}
}

func TestFetchNoRetryOnClientError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	config := testConfig()
	config.MaxRetries = 3

	f := New(config)
	_, err := f.Fetch(context.Background(), server.URL, "", "")
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("Expected a single attempt for a 4xx response, got: %d", got)
	}
}

func TestFetchRetriesServerError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("<rss></rss>"))
	}))
	defer server.Close()

	config := testConfig()
	config.MaxRetries = 3

	f := New(config)
	result, err := f.Fetch(context.Background(), server.URL, "", "")
	if err != nil {
		t.Fatalf("Expected fetch to recover after 5xx, got: %v", err)
	}
	if result.Status != StatusFetched {
		t.Errorf("Expected StatusFetched, got: %d", result.Status)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("Expected 3 attempts, got: %d", got)
	}
}

func TestFetchRobotsDisallowed(t *testing.T) {
	var feedRequested atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
		case "/private/feed.xml":
			feedRequested.Store(true)
			w.Write([]byte("<rss></rss>"))
		default:
			w.Write([]byte("<rss></rss>"))
		}
	}))
	defer server.Close()

	config := testConfig()
	config.RespectRobots = true

	f := New(config)
	_, err := f.Fetch(context.Background(), server.URL+"/private/feed.xml", "", "")
	if !errors.Is(err, ErrRobotsDisallowed) {
		t.Fatalf("Expected ErrRobotsDisallowed, got: %v", err)
	}
	if feedRequested.Load() {
		t.Error("Disallowed URL must not be requested")
	}

	// Allowed paths on the same host still fetch, and the policy is cached.
	result, err := f.Fetch(context.Background(), server.URL+"/public/feed.xml", "", "")
	if err != nil {
		t.Fatalf("Expected allowed fetch to succeed, got: %v", err)
	}
	if result.Status != StatusFetched {
		t.Errorf("Expected StatusFetched, got: %d", result.Status)
	}
}

func TestFetchGzipTransparent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte("<rss><channel></channel></rss>"))
		gz.Close()
	}))
	defer server.Close()

	f := New(testConfig())
	result, err := f.Fetch(context.Background(), server.URL, "", "")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(result.Body) != "<rss><channel></channel></rss>" {
		t.Errorf("Expected decompressed body, got: %q", result.Body)
	}
}
