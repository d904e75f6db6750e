package errors

import (
	"math/rand"
	"time"
)

// Retrier runs an operation with exponential backoff and jitter while the
// classifier reports the failure as transient.
type Retrier struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
}

// NewRetrier returns a retrier with the defaults used for optimistic
// transaction conflicts: 10ms initial delay, 1s cap, 5 attempts.
func NewRetrier() *Retrier {
	return &Retrier{
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     time.Second,
		MaxAttempts:  5,
	}
}

// Do runs fn until it succeeds, fails permanently, or the attempt budget
// runs out. The last error is returned in the exhausted case.
func (r *Retrier) Do(fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < r.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !ShouldRetry(err) {
			return err
		}
		if attempt == r.MaxAttempts-1 {
			break
		}
		time.Sleep(r.backoff(attempt))
	}
	return lastErr
}

// backoff is initialDelay * 2^attempt, capped, with ±25% jitter.
func (r *Retrier) backoff(attempt int) time.Duration {
	delay := r.InitialDelay * time.Duration(1<<uint(attempt))
	if delay > r.MaxDelay {
		delay = r.MaxDelay
	}
	jitter := time.Duration(float64(delay) * 0.25 * (rand.Float64()*2 - 1))
	delay += jitter
	if delay < 0 {
		delay = r.InitialDelay
	}
	return delay
}
