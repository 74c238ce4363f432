package fetcher

import "time"

// Config holds the fetch policy knobs. Defaults mirror what a polite
// aggregator wants: short per-attempt timeouts, a handful of retries,
// bounded redirects and body size.
type Config struct {
	UserAgent     string
	Timeout       time.Duration // per attempt
	MaxRetries    int           // retries after the first attempt
	RetryDelay    time.Duration // base backoff delay
	MaxRetryDelay time.Duration // backoff cap
	MaxBodySize   int64         // bytes
	MaxRedirects  int
	RespectRobots bool
}

type Status int

const (
	// StatusFetched means the server returned a fresh document.
	StatusFetched Status = iota
	// StatusNotModified means the stored validators still match (HTTP 304).
	// This is success without new data; the caller must not treat it as an
	// error and must skip parsing.
	StatusNotModified
)

// Result is the outcome of a successful fetch attempt.
type Result struct {
	Status       Status
	Body         []byte
	ETag         string
	LastModified string
	HTTPStatus   int
}
