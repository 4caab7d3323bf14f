package github

import (
	"context"
	"time"
)

// retry runs fn up to attempts times. Only errors wrapped with RetryableError
// are retried. The wait after the n-th failed attempt is n*backoff, so the
// total delay is bounded by backoff*attempts*(attempts-1)/2.
func retry(ctx context.Context, attempts int, backoff time.Duration, fn func(attempt int) error, onRetry func(attempt int, err error)) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := 1; i <= attempts; i++ {
		if err := fn(i); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts {
			if onRetry != nil {
				onRetry(i, lastErr)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff * time.Duration(i)):
			}
		}
	}
	return lastErr
}
