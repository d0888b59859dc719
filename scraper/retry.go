package scraper

import (
	"time"
)

// WithRetry runs op up to maxAttempts times with a fixed delay between
// attempts. Only transient fetch errors are retried; a permanent error
// aborts immediately. The result of the first successful attempt is
// returned, otherwise the error of the last one.
func WithRetry(maxAttempts int, delay time.Duration, op func() (string, error)) (string, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !IsTransient(err) {
			return "", err
		}
		if attempt < maxAttempts {
			time.Sleep(delay)
		}
	}

	return "", lastErr
}
