package generation

import (
	"context"
	"math/rand/v2"
	"time"
)

// BackoffPolicy computes the pause after a failed attempt.
type BackoffPolicy struct {
	Base   time.Duration
	Max    time.Duration
	Jitter time.Duration
}

func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Base:   time.Second,
		Max:    10 * time.Second,
		Jitter: time.Second,
	}
}

// Delay returns min(2^attempt*Base + jitter, Max). attempt is 1 after the first failure and
// jitter is expected in [0, Jitter).
func (p BackoffPolicy) Delay(attempt int, jitter time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// 2^attempt overflows long before attempt reaches 63; anything that large is capped anyway.
	if attempt > 30 {
		return p.Max
	}
	d := time.Duration(1<<attempt)*p.Base + jitter
	if d > p.Max || d < 0 {
		return p.Max
	}
	return d
}

// RandomJitter draws a uniform jitter in [0, max).
func RandomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}

// SleepContext pauses for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
