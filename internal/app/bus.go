package app

import (
	"context"

	"github.com/bft-labs/stationd/internal/domain"
)

// DefaultBusCapacity is the number of notifications buffered between the
// driver adapters and the event observer.
const DefaultBusCapacity = 16

// Bus carries driver notifications into the event observer. It is bounded:
// Publish blocks while the buffer is full.
type Bus struct {
	ch chan domain.Notification
}

// NewBus creates a bus buffering up to capacity notifications.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultBusCapacity
	}
	return &Bus{ch: make(chan domain.Notification, capacity)}
}

// Publish enqueues n, waiting for room until ctx ends.
func (b *Bus) Publish(ctx context.Context, n domain.Notification) error {
	select {
	case b.ch <- n:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of queued notifications.
func (b *Bus) Len() int { return len(b.ch) }

func (b *Bus) recv() <-chan domain.Notification { return b.ch }

// waker is a one-slot signal. Signals sent while one is pending coalesce.
type waker chan struct{}

func newWaker() waker { return make(waker, 1) }

func (w waker) signal() {
	select {
	case w <- struct{}{}:
	default:
	}
}
