package pathstore

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// MaxRetries is the number of attempts Retry makes.
const MaxRetries = 3

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// Retry calls fn up to MaxRetries times while it fails with a retryable
// error, sleeping with Backoff between attempts. wait is called before each
// sleep and may be nil.
func Retry(ctx context.Context, fn func() error, wait func(attempt int, err error)) error {
	var err error
	for attempt := range MaxRetries {
		err = fn()
		if err == nil || !IsRetryable(err) || attempt == MaxRetries-1 {
			return err
		}
		if wait != nil {
			wait(attempt, err)
		}
		select {
		case <-time.After(backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// backoff is swapped out by tests.
var backoff = Backoff
