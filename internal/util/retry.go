// ABOUTME: Retry helpers for embedding and generation service calls
// ABOUTME: Exponential backoff with jitter, bounded by the caller's context
package util

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// maxBackoff bounds a single wait between attempts
const maxBackoff = 30 * time.Second

// CalculateBackoff returns base * 2^attempt, capped at 30s, with up to 25% jitter either way
func CalculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	if attempt <= 0 || baseDelay <= 0 {
		return 0
	}
	if attempt > 30 {
		attempt = 30
	}
	backoff := baseDelay * time.Duration(1<<uint(attempt))
	if backoff > maxBackoff || backoff <= 0 {
		backoff = maxBackoff
	}
	half := int64(backoff) / 2
	if half <= 0 {
		return backoff
	}
	jitter := time.Duration(rand.Int64N(half)) - backoff/4
	return backoff + jitter
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err so Retry returns it immediately
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn up to maxRetries+1 times, sleeping with backoff between
// attempts. It stops early on a Permanent error or when ctx is done.
func Retry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(ctx context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(CalculateBackoff(baseDelay, attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return goerr.Wrap(ctx.Err(), "retry cancelled", goerr.V("attempts", attempt))
			case <-timer.C:
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
	}

	return goerr.Wrap(lastErr, "all attempts failed", goerr.V("attempts", maxRetries+1))
}
