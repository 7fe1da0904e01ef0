package station

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/bft-labs/stationd/internal/adapters/fs"
	"github.com/bft-labs/stationd/internal/adapters/fswatch"
	"github.com/bft-labs/stationd/internal/adapters/gpio"
	"github.com/bft-labs/stationd/internal/adapters/netif"
	"github.com/bft-labs/stationd/internal/adapters/wpa"
	"github.com/bft-labs/stationd/internal/app"
	"github.com/bft-labs/stationd/internal/domain"
	"github.com/bft-labs/stationd/internal/ports"
	"github.com/bft-labs/stationd/pkg/lifecycle"
	"github.com/bft-labs/stationd/pkg/log"
)

// Station keeps one wireless interface associated with a single network.
// Use New() to create an instance, then Start() to begin connecting.
type Station struct {
	config    Config
	creds     domain.Credentials
	opts      options
	lifecycle *lifecycle.DefaultManager
	bus       *app.Bus
	sink      ports.EventSink
	logger    log.Logger

	mu     sync.RWMutex
	orch   *app.Orchestrator
	closer io.Closer
	done   chan struct{}
	err    error
}

// New creates a Station in StateStopped. It returns an error if the
// configuration is invalid or an injected driver cannot be built.
func New(cfg Config, opts ...Option) (*Station, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}
	creds, err := cfg.Credentials()
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	s := &Station{
		config:    cfg,
		creds:     creds,
		opts:      o,
		lifecycle: lifecycle.NewManagerWithClock(o.clock, o.logger, emitter),
		bus:       app.NewBus(app.DefaultBusCapacity),
		sink:      app.NewMultiSink(o.sinks...),
		logger:    log.Component(o.logger, "station"),
	}

	if o.driver != nil {
		driver, err := o.driver(s.bus)
		if err != nil {
			return nil, fmt.Errorf("build driver: %w", err)
		}
		if s.orch, err = s.build(driver); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// build wires the orchestrator around driver using the configured or
// default collaborators.
func (s *Station) build(driver ports.RadioDriver) (*app.Orchestrator, error) {
	o := s.opts

	power := o.power
	if power == nil && s.config.GPIO.Enabled() {
		power = gpio.New(gpio.Config{
			Root:      s.config.GPIO.Root,
			BuckPin:   s.config.GPIO.BuckPin,
			EnablePin: s.config.GPIO.EnablePin,
			ActiveLow: s.config.GPIO.ActiveLow,
		}, o.clock, o.logger)
	}

	ready := o.ready
	if ready == nil && o.driver == nil {
		ready = fswatch.NewReadinessWaiter(s.config.ControlDir, s.config.Interface, o.logger)
	}

	repo := o.stateRepo
	if repo == nil && s.config.StateDir != "" {
		repo = fs.NewStatsFileRepository(s.config.StateDir)
	}

	return app.NewOrchestrator(s.config.orchestratorConfig(s.creds), app.Dependencies{
		Driver:    driver,
		Power:     power,
		Ready:     ready,
		StateRepo: repo,
		Sink:      s.sink,
		Bus:       s.bus,
		Clock:     o.clock,
		Logger:    o.logger,
	})
}

// radio joins the supplicant and interface halves of the default driver.
type radio struct {
	*wpa.Driver
	*netif.Link
}

// Start begins connecting in the background and returns immediately. The
// provided context bounds the lifetime of the station.
func (s *Station) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(lifecycle.StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.lifecycle.SetCancel(cancel)

	services := append([]Service(nil), s.opts.services...)

	// A crashed run leaves its dialed driver behind.
	if s.closer != nil {
		_ = s.closer.Close()
		s.closer = nil
		s.orch = nil
	}

	if s.orch == nil {
		d, err := wpa.Dial(runCtx, s.config.Interface, s.bus, s.opts.logger)
		if err != nil {
			cancel()
			_ = s.lifecycle.TransitionTo(lifecycle.StateCrashed, "driver unavailable")
			return fmt.Errorf("dial supplicant: %w", err)
		}
		orch, err := s.build(radio{Driver: d, Link: netif.New(s.config.Interface, s.opts.logger)})
		if err != nil {
			_ = d.Close()
			cancel()
			_ = s.lifecycle.TransitionTo(lifecycle.StateCrashed, err.Error())
			return err
		}
		s.orch = orch
		s.closer = d
		services = append(services, namedService{"supplicant", d.Run})
	}

	if s.config.LeaseFile != "" {
		w := fswatch.NewLeaseWatcher(s.config.LeaseFile, s.bus, s.opts.logger)
		services = append(services, namedService{"lease", w.Run})
	}

	for _, svc := range services {
		svc := svc
		s.lifecycle.Go(func() {
			if err := svc.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("service stopped", log.String("service", svc.Name()), log.Err(err))
			}
		})
	}

	orch := s.orch
	done := make(chan struct{})
	s.done = done
	s.err = nil

	s.lifecycle.Go(func() {
		defer close(done)

		if err := s.lifecycle.TransitionTo(lifecycle.StateRunning, "connection loop starting"); err != nil {
			s.logger.Error("failed to transition to running", log.Err(err))
			return
		}

		err := orch.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("connection loop stopped", log.Err(err))
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			cancel()
			_ = s.lifecycle.TransitionTo(lifecycle.StateCrashed, err.Error())
		}
	})

	return nil
}

// Stop cancels the connection loop and its services and waits up to
// lifecycle.ShutdownTimeout for them to return.
func (s *Station) Stop() error {
	s.mu.Lock()
	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(lifecycle.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	s.lifecycle.Cancel()
	s.mu.Unlock()

	err := s.lifecycle.WaitWithTimeout(lifecycle.ShutdownTimeout)

	s.mu.Lock()
	if s.closer != nil {
		if cerr := s.closer.Close(); cerr != nil {
			s.logger.Warn("close driver", log.Err(cerr))
		}
		s.closer = nil
		s.orch = nil
	}
	s.mu.Unlock()

	if err != nil {
		_ = s.lifecycle.TransitionTo(lifecycle.StateCrashed, "shutdown timeout")
	} else {
		_ = s.lifecycle.TransitionTo(lifecycle.StateStopped, "graceful shutdown")
	}
	return err
}

// Done is closed when the connection loop of the current run returns. It
// is nil before the first Start.
func (s *Station) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

// Err returns the error that ended the connection loop, if any.
func (s *Station) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// State returns the current lifecycle state.
func (s *Station) State() State {
	return s.lifecycle.State()
}

// Notifier returns the bus drivers publish their results on.
func (s *Station) Notifier() Notifier {
	return s.bus
}

func (s *Station) orchestrator() *app.Orchestrator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orch
}

// IsConnected reports whether the link is up.
func (s *Station) IsConnected() bool {
	if o := s.orchestrator(); o != nil {
		return o.IsConnected()
	}
	return false
}

// Status returns a copy of the connection state.
func (s *Station) Status() ConnectionStatus {
	if o := s.orchestrator(); o != nil {
		return o.Status()
	}
	return ConnectionStatus{}
}

// Stats returns the connection counters.
func (s *Station) Stats() Stats {
	if o := s.orchestrator(); o != nil {
		return o.Stats()
	}
	return Stats{}
}

// Probe reads the live link state from the driver.
func (s *Station) Probe(ctx context.Context) (LinkState, error) {
	o := s.orchestrator()
	if o == nil {
		return LinkState{}, domain.ErrNotRunning
	}
	return o.Probe(ctx)
}

// Disconnect drops the link and keeps it down until Reconnect.
func (s *Station) Disconnect(ctx context.Context) error {
	o := s.orchestrator()
	if o == nil {
		return domain.ErrNotRunning
	}
	return o.Disconnect(ctx)
}

// Reconnect resumes connection attempts after Disconnect.
func (s *Station) Reconnect() {
	if o := s.orchestrator(); o != nil {
		o.Reconnect()
	}
}

type namedService struct {
	name string
	run  func(context.Context) error
}

func (n namedService) Name() string                  { return n.name }
func (n namedService) Run(ctx context.Context) error { return n.run(ctx) }
