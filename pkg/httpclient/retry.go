package httpclient

import (
	"context"
	"time"
)

// RetryPolicy controls the fetch loop: a fixed rate limit delay before
// every attempt, then exponential backoff between failed attempts.
type RetryPolicy struct {
	MaxRetries     int
	BaseDelay      time.Duration
	RateLimitDelay time.Duration
}

// DefaultRetryPolicy mirrors the ingestion defaults: three attempts,
// one second between requests, one second backoff base.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		BaseDelay:      time.Second,
		RateLimitDelay: time.Second,
	}
}

// backoffDelay returns the sleep before retrying after the given
// zero-based attempt.
func (p RetryPolicy) backoffDelay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// sleep waits for d or until the context is done, whichever first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
