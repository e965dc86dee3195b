package sdk

import (
	"context"
	"time"
)

// RetryPolicy bounds how a single logical request is retried per status
// class. Rate limiting and server errors back off exponentially from
// BaseDelay; a conflict gets at most one retry after a fixed short delay,
// independent of the other counters.
type RetryPolicy struct {
	MaxRetries429 int
	MaxRetries500 int
	RetryConflict bool
	BaseDelay     time.Duration
	ConflictDelay time.Duration
}

// WritePolicy is the default policy for mutation calls: up to three
// retries on 429, two on 500, one on 409.
func WritePolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries429: 3,
		MaxRetries500: 2,
		RetryConflict: true,
		BaseDelay:     200 * time.Millisecond,
		ConflictDelay: 100 * time.Millisecond,
	}
}

// ReadPolicy is the default policy for reads: no retries. Callers that
// want resilient reads opt in explicitly.
func ReadPolicy() RetryPolicy {
	return RetryPolicy{}
}

// maxAttempts is the overall attempt bound. The single conflict retry is
// bounded separately and does not extend it.
func (p RetryPolicy) maxAttempts() int {
	return max(p.MaxRetries429, p.MaxRetries500) + 1
}

// delay returns the backoff before the attempt following zero-based
// attempt n: base, base*2, base*4, ...
func (p RetryPolicy) delay(attempt int) time.Duration {
	return p.BaseDelay << attempt
}

// sleep waits for d or until ctx is cancelled, whichever comes first.
// An abandoned caller must not leave a retry loop sleeping in the
// background.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
