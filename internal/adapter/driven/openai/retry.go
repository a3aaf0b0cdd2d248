package openai

import (
	"context"
	"errors"
	"time"
)

// transientError marks failures worth retrying (rate limits, 5xx, network).
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// retryWithBackoff runs fn up to maxRetries+1 times with exponential backoff.
// Only transient errors are retried; anything else fails immediately. After
// the budget is exhausted the last error is returned — callers treat it as an
// empty response, they do not retry the whole run.
func retryWithBackoff(ctx context.Context, maxRetries int, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var te *transientError
		if !errors.As(lastErr, &te) {
			return lastErr
		}

		if attempt < maxRetries {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}
