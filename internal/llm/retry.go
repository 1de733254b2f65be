package llm

import (
	"context"
	"errors"
	"math"
	"time"
)

const (
	maxRetries  = 2
	baseBackoff = 500 * time.Millisecond
)

// retryableError marks a provider call failure worth retrying: transport
// errors, 429 and 5xx responses. Auth failures and malformed responses are
// not retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// withRetry runs fn up to maxRetries+1 times with exponential backoff between
// attempts. Only retryable errors trigger another attempt.
func withRetry(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
		text, err := fn(ctx)
		if err == nil {
			return text, nil
		}
		if !isRetryable(err) {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}
