package fetcher

import "errors"

// Failure classes. All of them are retryable on a later cycle and none is
// fatal to the feed's registration; within a cycle only timeouts and 5xx
// responses are retried.
var (
	ErrTooLarge         = errors.New("response exceeds maximum size")
	ErrTimeout          = errors.New("fetch timed out")
	ErrTooManyRedirects = errors.New("too many redirects")
	ErrRobotsDisallowed = errors.New("disallowed by robots.txt")
	ErrDecode           = errors.New("failed to decode response body")
)
