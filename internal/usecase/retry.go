package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/raumania/assistant/internal/domain"
)

// exponentialBackoff returns the wait before retry attempt n (0-based): 500ms, 1s, 2s, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * 500 * time.Millisecond
}

// retryPolicy bounds calls to an external model service
type retryPolicy struct {
	maxAttempts    int
	attemptTimeout time.Duration
	backoff        func(attempt int) time.Duration
}

// isRetryable reports whether a failed attempt may be repeated.
// Only transient service failures and per-attempt deadline breaches qualify;
// a cancelled or expired parent context never does.
func isRetryable(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	return errors.Is(err, domain.ErrServiceUnavailable) || errors.Is(err, context.DeadlineExceeded)
}

// do runs fn until it succeeds, fails with a non-retryable error, or attempts run out.
// Each attempt gets its own deadline when attemptTimeout is set.
func (p retryPolicy) do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := max(p.maxAttempts, 1)
	backoff := p.backoff
	if backoff == nil {
		backoff = exponentialBackoff
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(attempt - 1)):
			}
		}

		attemptCtx, cancel := ctx, context.CancelFunc(func() {})
		if p.attemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, p.attemptTimeout)
		}
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(ctx, err) {
			break
		}
	}
	return lastErr
}
