package generation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay(t *testing.T) {
	p := DefaultBackoffPolicy()

	assert.Equal(t, 2*time.Second, p.Delay(1, 0))
	assert.Equal(t, 4*time.Second, p.Delay(2, 0))
	assert.Equal(t, 8*time.Second, p.Delay(3, 0))
	assert.Equal(t, 10*time.Second, p.Delay(4, 0))
	assert.Equal(t, 10*time.Second, p.Delay(5, 0))
	assert.Equal(t, 10*time.Second, p.Delay(64, 0))

	assert.Equal(t, 2*time.Second+999*time.Millisecond, p.Delay(1, 999*time.Millisecond))
	assert.Equal(t, 10*time.Second, p.Delay(3, 2500*time.Millisecond))
}

func TestBackoffDelayNeverExceedsMax(t *testing.T) {
	p := DefaultBackoffPolicy()
	for attempt := 1; attempt <= 10; attempt++ {
		for i := 0; i < 50; i++ {
			d := p.Delay(attempt, RandomJitter(p.Jitter))
			assert.LessOrEqual(t, d, p.Max)
			assert.GreaterOrEqual(t, d, time.Second<<1)
		}
	}
}

func TestRandomJitterRange(t *testing.T) {
	assert.Zero(t, RandomJitter(0))
	for i := 0; i < 100; i++ {
		j := RandomJitter(time.Second)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.Less(t, j, time.Second)
	}
}

func TestSleepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := SleepContext(ctx, time.Minute)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
