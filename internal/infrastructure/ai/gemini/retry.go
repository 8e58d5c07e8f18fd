package gemini

import (
	"context"
	"math/rand/v2"
	"time"

	domain "github.com/alchemorsel/recipeforge/internal/domain/generation"
)

// Clock performs the waits between attempts
type Clock interface {
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the latter case
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock sleeps on a timer
type RealClock struct{}

// Sleep implements Clock
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
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

// RetryPolicy decides how often and how long the client retries
type RetryPolicy struct {
	// MaxAttempts caps the per-call budget when positive
	MaxAttempts int
	// Backoff returns the wait after the failed attempt with zero-based index attempt
	Backoff func(attempt int) time.Duration
	// Retryable reports whether a failed attempt may be repeated
	Retryable func(err error) bool
}

// DefaultRetryPolicy waits base*2^i plus jitter in [0, maxJitter) and retries
// network failures and every non-2xx status except 400
func DefaultRetryPolicy(base, maxJitter time.Duration) RetryPolicy {
	return RetryPolicy{
		Backoff:   ExponentialBackoff(base, maxJitter, randomJitter),
		Retryable: domain.IsRetryable,
	}
}

// MaxBackoff is the longest wait ExponentialBackoff returns before jitter
const MaxBackoff = 24 * time.Hour

// ExponentialBackoff builds a Backoff func. Waits saturate at MaxBackoff. jitter
// receives maxJitter and must return a value in [0, maxJitter).
func ExponentialBackoff(base, maxJitter time.Duration, jitter func(time.Duration) time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 0 {
			attempt = 0
		}
		wait := MaxBackoff
		if base <= MaxBackoff>>uint(attempt) {
			wait = base << uint(attempt)
		}
		if maxJitter > 0 && jitter != nil {
			wait += jitter(maxJitter)
		}
		return wait
	}
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}

// budget resolves the effective attempt count for one call
func (p RetryPolicy) budget(maxAttempts int) int {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if p.MaxAttempts > 0 && maxAttempts > p.MaxAttempts {
		maxAttempts = p.MaxAttempts
	}
	return maxAttempts
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Backoff == nil {
		p.Backoff = ExponentialBackoff(time.Second, time.Second, randomJitter)
	}
	if p.Retryable == nil {
		p.Retryable = domain.IsRetryable
	}
	return p
}
