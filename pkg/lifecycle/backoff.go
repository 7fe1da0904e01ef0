package lifecycle

import (
	"context"
	"math/rand"
	"time"

	"github.com/jonboulle/clockwork"
)

// Backoff implements exponential backoff with jitter.
type Backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
	clock   clockwork.Clock
}

// NewBackoff creates a new backoff with the given initial and max durations.
func NewBackoff(initial, max time.Duration) *Backoff {
	return NewBackoffWithClock(clockwork.NewRealClock(), initial, max)
}

// NewBackoffWithClock creates a backoff that sleeps on clock.
func NewBackoffWithClock(clock clockwork.Clock, initial, max time.Duration) *Backoff {
	return &Backoff{
		initial: initial,
		max:     max,
		current: initial,
		clock:   clock,
	}
}

// Wait sleeps for the current backoff duration and increases it.
// It returns ctx.Err() if ctx is canceled first.
func (b *Backoff) Wait(ctx context.Context) error {
	// Add jitter: ±20%
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	sleep := time.Duration(float64(b.current) + jitter)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}

	t := b.clock.NewTimer(sleep)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return nil
	}
}

// Reset resets the backoff to the initial duration.
func (b *Backoff) Reset() {
	b.current = b.initial
}

// Current returns the current backoff duration.
func (b *Backoff) Current() time.Duration {
	return b.current
}
