package client

import (
	"math"
	"time"
)

// RetryPolicy controls how many attempts a request gets and how long to wait
// between attempts. A MaxAttempts of 1 disables retries while still letting
// the surrounding circuit breaker track failures.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

const (
	defaultRetryBaseDelay = 100 * time.Millisecond
	defaultRetryMaxDelay  = 5 * time.Second
)

// DefaultRetryPolicy returns a single-attempt policy: no automatic retries,
// but requests still flow through the circuit breaker so repeated upstream
// failures get short-circuited.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: defaultMaxRetryAttempts,
		Backoff:     exponentialBackoff,
	}
}

// NewRetryPolicy builds a policy with exponential backoff, capped at
// defaultRetryMaxDelay, for up to maxAttempts tries.
func NewRetryPolicy(maxAttempts int) *RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = defaultMaxRetryAttempts
	}
	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff:     exponentialBackoff,
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := defaultRetryBaseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > defaultRetryMaxDelay {
		return defaultRetryMaxDelay
	}
	return delay
}
