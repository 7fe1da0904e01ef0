package app

import (
	"context"

	"github.com/bft-labs/stationd/internal/domain"
	"github.com/bft-labs/stationd/internal/ports"
	"github.com/bft-labs/stationd/pkg/log"
)

// EventObserver drains the notification bus and folds each notification
// into the connection context. It runs on its own goroutine, apart from
// the orchestrator loop.
type EventObserver struct {
	conn   *ConnectionContext
	bus    *Bus
	sink   ports.EventSink
	logger log.Logger
	wake   waker
}

func newEventObserver(conn *ConnectionContext, bus *Bus, sink ports.EventSink, logger log.Logger, wake waker) *EventObserver {
	return &EventObserver{
		conn:   conn,
		bus:    bus,
		sink:   sink,
		logger: log.Component(logger, "observer"),
		wake:   wake,
	}
}

// Run processes notifications until ctx is canceled.
func (o *EventObserver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-o.bus.recv():
			o.Handle(n)
		}
	}
}

// Handle applies a single notification.
func (o *EventObserver) Handle(n domain.Notification) {
	switch n.Kind {
	case domain.NotifyConnectResult:
		if !o.conn.ApplyConnectResult(n.Status) {
			o.logger.Debug("connect result ignored",
				log.Int("status", n.Status),
				log.Bool("connected", o.conn.IsConnected()),
			)
			return
		}
		o.logger.Info("connect result", log.Int("status", n.Status))
		if n.Status == 0 {
			o.sink.OnLinkChange(true)
		}
		o.wake.signal()

	case domain.NotifyDisconnectResult:
		wasConnected := o.conn.IsConnected()
		kind := o.conn.ApplyDisconnectResult(n.Status)
		o.logger.Info("disconnect result",
			log.String("kind", kind.String()),
			log.Int("status", n.Status),
		)
		if wasConnected && !o.conn.IsConnected() {
			o.sink.OnLinkChange(false)
		}
		o.wake.signal()

	case domain.NotifyLeaseBound:
		o.conn.setAddress(n.Address)
		o.logger.Info("address lease bound", log.String("address", n.Address))
		o.sink.OnLeaseBound(n.Address)

	default:
		o.logger.Warn("unknown notification", log.String("kind", n.Kind.String()))
	}
}
