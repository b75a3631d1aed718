package helpdesk

import (
	"context"
	"errors"
	"time"
)

var ErrRetriesExhausted = errors.New("helpdesk retries exhausted")

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 5 * time.Second
)

// WithRetry runs op, retrying only on throttle errors. The sleep before
// attempt n+1 is the larger of the server's Retry-After hint and
// baseDelay*n. Any other failure propagates immediately. Exhausting all
// attempts returns ErrRetriesExhausted wrapping the last throttle error.
func WithRetry(ctx context.Context, op func(context.Context) error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		var throttle *ThrottleError
		if !errors.As(err, &throttle) {
			return err
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}

		delay := baseDelay * time.Duration(attempt)
		if throttle.RetryAfter > delay {
			delay = throttle.RetryAfter
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return errors.Join(ErrRetriesExhausted, lastErr)
}
