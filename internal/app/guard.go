package app

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/stationd/internal/domain"
	"github.com/bft-labs/stationd/internal/ports"
	"github.com/bft-labs/stationd/pkg/log"
)

// Default attempt deadlines, measured from the attempt's submission. The
// hard deadline stays below the supplicant's own authentication timeout.
const (
	DefaultEarlyWarning = 30 * time.Second
	DefaultHardAbort    = 35 * time.Second
)

// TimeoutGuard arms the early-warning and hard-abort deadlines for one
// attempt at a time. Deadlines are scheduled callbacks on the clock; a
// callback whose attempt has already resolved does nothing.
type TimeoutGuard struct {
	clock        clockwork.Clock
	conn         *ConnectionContext
	probe        ports.Supplicant
	sink         ports.EventSink
	logger       log.Logger
	wake         waker
	earlyWarning time.Duration
	hardAbort    time.Duration

	mu     sync.Mutex
	timers []clockwork.Timer
}

func newTimeoutGuard(clock clockwork.Clock, conn *ConnectionContext, probe ports.Supplicant, sink ports.EventSink, logger log.Logger, wake waker, early, hard time.Duration) *TimeoutGuard {
	return &TimeoutGuard{
		clock:        clock,
		conn:         conn,
		probe:        probe,
		sink:         sink,
		logger:       log.Component(logger, "guard"),
		wake:         wake,
		earlyWarning: early,
		hardAbort:    hard,
	}
}

// Arm schedules both deadlines for attempt gen, relative to
// rec.SubmittedAt. Any previously armed deadlines are cancelled.
func (g *TimeoutGuard) Arm(ctx context.Context, gen uint64, rec domain.AttemptRecord) {
	g.Cancel()

	elapsed := g.clock.Since(rec.SubmittedAt)
	early := g.clock.AfterFunc(remaining(g.earlyWarning, elapsed), func() {
		g.onEarlyWarning(ctx, gen, rec)
	})
	hard := g.clock.AfterFunc(remaining(g.hardAbort, elapsed), func() {
		g.onHardAbort(gen, rec)
	})

	g.mu.Lock()
	g.timers = append(g.timers, early, hard)
	g.mu.Unlock()
}

// Cancel stops any armed deadlines.
func (g *TimeoutGuard) Cancel() {
	g.mu.Lock()
	timers := g.timers
	g.timers = nil
	g.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
}

func (g *TimeoutGuard) onEarlyWarning(ctx context.Context, gen uint64, rec domain.AttemptRecord) {
	if !g.conn.InFlight(gen) {
		return
	}
	snap, err := g.probe.QueryStatus(ctx)
	if err != nil {
		g.logger.Warn("early warning: status probe failed",
			log.String("attempt", rec.ID),
			log.Err(err),
		)
		return
	}
	// The probe may have raced with resolution.
	if !g.conn.InFlight(gen) {
		return
	}
	g.logger.Warn("attempt still unresolved",
		log.String("attempt", rec.ID),
		log.Duration("after", g.earlyWarning),
		log.String("driver_state", snap.State.String()),
	)
	g.sink.OnEarlyWarning(rec, snap)
}

func (g *TimeoutGuard) onHardAbort(gen uint64, rec domain.AttemptRecord) {
	if !g.conn.ForceTimeout(gen) {
		return
	}
	g.logger.Error("attempt aborted",
		log.String("attempt", rec.ID),
		log.Duration("after", g.hardAbort),
	)
	g.wake.signal()
}

func remaining(deadline, elapsed time.Duration) time.Duration {
	if d := deadline - elapsed; d > 0 {
		return d
	}
	return 0
}
