package fetcher

import "time"

// backoffDelay returns the delay before retry number attempt (0-based):
// base doubled per attempt, capped at max. Pure so it can be tested
// without any I/O.
func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}

	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}

	if delay > max {
		return max
	}
	return delay
}
