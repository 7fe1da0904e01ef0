package station

import (
	"context"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/stationd/internal/app"
	"github.com/bft-labs/stationd/internal/domain"
	"github.com/bft-labs/stationd/internal/ports"
	"github.com/bft-labs/stationd/pkg/lifecycle"
	"github.com/bft-labs/stationd/pkg/log"
)

// Re-exported collaborator types so callers can supply their own
// implementations.
type (
	Logger           = log.Logger
	RadioDriver      = ports.RadioDriver
	PowerSequencer   = ports.PowerSequencer
	ReadinessWaiter  = ports.ReadinessWaiter
	StateRepository  = ports.StateRepository
	EventSink        = ports.EventSink
	Notifier         = ports.Notifier
	Notification     = domain.Notification
	AttemptRecord    = domain.AttemptRecord
	Outcome          = domain.Outcome
	LinkState        = domain.LinkStateSnapshot
	Stats            = domain.Stats
	ConnectionStatus = app.ConnectionStatus
)

// DriverFactory builds a radio driver that reports its asynchronous results
// to n.
type DriverFactory func(n Notifier) (RadioDriver, error)

// Service is a background task started with the station and stopped with
// it. Run must return once ctx is canceled.
type Service interface {
	Name() string
	Run(ctx context.Context) error
}

// Option configures optional behavior of Station.
type Option func(*options)

type options struct {
	logger       log.Logger
	clock        clockwork.Clock
	driver       DriverFactory
	power        ports.PowerSequencer
	ready        ports.ReadinessWaiter
	stateRepo    ports.StateRepository
	sinks        []ports.EventSink
	eventHandler EventHandler
	services     []Service
}

func defaultOptions() options {
	return options{
		logger: log.NoopLogger{},
		clock:  clockwork.NewRealClock(),
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithDriver replaces the wpa_supplicant driver.
func WithDriver(factory DriverFactory) Option {
	return func(o *options) {
		o.driver = factory
	}
}

// WithPowerSequencer replaces the GPIO power sequencer.
func WithPowerSequencer(p PowerSequencer) Option {
	return func(o *options) {
		o.power = p
	}
}

// WithReadiness replaces the control socket readiness check.
func WithReadiness(r ReadinessWaiter) Option {
	return func(o *options) {
		o.ready = r
	}
}

// WithStateRepository replaces the JSON state file.
func WithStateRepository(r StateRepository) Option {
	return func(o *options) {
		o.stateRepo = r
	}
}

// WithEventSink adds a receiver for connection events. Sinks are called in
// registration order.
func WithEventSink(sink EventSink) Option {
	return func(o *options) {
		o.sinks = append(o.sinks, sink)
	}
}

// WithEventHandler sets a handler for lifecycle state changes.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithService runs svc alongside the connection loop.
func WithService(svc Service) Option {
	return func(o *options) {
		o.services = append(o.services, svc)
	}
}

// State is the lifecycle state of a Station.
type State = lifecycle.State

const (
	StateStopped  = lifecycle.StateStopped
	StateStarting = lifecycle.StateStarting
	StateRunning  = lifecycle.StateRunning
	StateStopping = lifecycle.StateStopping
	StateCrashed  = lifecycle.StateCrashed
)

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives lifecycle transitions. It is called synchronously
// and should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
}

type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current lifecycle.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}
