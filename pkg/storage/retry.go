package storage

import (
	"math"
	"time"
)

// RetryPolicy. delay before retry attempt+1 (attempt counts from 0), false to give up.
type RetryPolicy interface {
	Backoff(attempt int) (time.Duration, bool)
}

// NoRetry. failed tiles are abandoned.
type NoRetry struct{}

func (NoRetry) Backoff(int) (time.Duration, bool) {
	return 0, false
}

type ExponentialBackoff struct {
	MaxRetries int
	Base       time.Duration
	Max        time.Duration
}

func NewExponentialBackoff(maxRetries int, base, maxDelay time.Duration) ExponentialBackoff {
	return ExponentialBackoff{MaxRetries: maxRetries, Base: base, Max: maxDelay}
}

func (b ExponentialBackoff) Backoff(attempt int) (time.Duration, bool) {
	if attempt >= b.MaxRetries {
		return 0, false
	}
	delay := time.Duration(float64(b.Base) * math.Pow(2, float64(attempt)))
	if b.Max > 0 && delay > b.Max {
		delay = b.Max
	}
	return delay, true
}
