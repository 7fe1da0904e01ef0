package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/stationd/internal/domain"
	"github.com/bft-labs/stationd/internal/ports"
	"github.com/bft-labs/stationd/pkg/log"
)

// Default loop tunables.
const (
	DefaultPollInterval      = 300 * time.Millisecond
	DefaultRecoveryBackoff   = 5 * time.Second
	DefaultMaxRetries        = 10
	DefaultCooldown          = 30 * time.Second
	DefaultStartupDelay      = 10 * time.Second
	DefaultPreAttemptDelay   = 5 * time.Second
	DefaultStatusLogInterval = time.Minute
)

// Config contains configuration for the orchestrator loop.
type Config struct {
	Credentials domain.Credentials

	PollInterval      time.Duration
	EarlyWarning      time.Duration
	HardAbort         time.Duration
	RecoveryBackoff   time.Duration
	MaxRetries        int
	Cooldown          time.Duration
	StartupDelay      time.Duration
	PreAttemptDelay   time.Duration
	StatusLogInterval time.Duration

	// ResetRetriesOnSuccess zeroes retry_count once a link comes up, so a
	// later drop starts a fresh cycle.
	ResetRetriesOnSuccess bool

	Recovery RecoveryConfig
}

// DefaultConfig returns the loop defaults for creds.
func DefaultConfig(creds domain.Credentials) Config {
	return Config{
		Credentials:           creds,
		PollInterval:          DefaultPollInterval,
		EarlyWarning:          DefaultEarlyWarning,
		HardAbort:             DefaultHardAbort,
		RecoveryBackoff:       DefaultRecoveryBackoff,
		MaxRetries:            DefaultMaxRetries,
		Cooldown:              DefaultCooldown,
		StartupDelay:          DefaultStartupDelay,
		PreAttemptDelay:       DefaultPreAttemptDelay,
		StatusLogInterval:     DefaultStatusLogInterval,
		ResetRetriesOnSuccess: true,
		Recovery:              DefaultRecoveryConfig(),
	}
}

// Dependencies are the collaborators the orchestrator drives.
type Dependencies struct {
	Driver    ports.RadioDriver
	Power     ports.PowerSequencer
	Ready     ports.ReadinessWaiter
	StateRepo ports.StateRepository
	Sink      ports.EventSink
	Bus       *Bus
	Clock     clockwork.Clock
	Logger    log.Logger
}

// Orchestrator owns the retry loop. It submits one attempt at a time, waits
// for it to resolve, and runs recovery before the next one.
type Orchestrator struct {
	cfg       Config
	clock     clockwork.Clock
	conn      *ConnectionContext
	bus       *Bus
	observer  *EventObserver
	guard     *TimeoutGuard
	recovery  *RecoveryEscalator
	driver    ports.RadioDriver
	ready     ports.ReadinessWaiter
	stateRepo ports.StateRepository
	sink      ports.EventSink
	logger    log.Logger
	wake      waker

	statsMu sync.Mutex
	stats   domain.Stats
}

// NewOrchestrator wires the core components together.
func NewOrchestrator(cfg Config, deps Dependencies) (*Orchestrator, error) {
	if deps.Driver == nil {
		return nil, fmt.Errorf("%w: radio driver is required", domain.ErrInvalidConfig)
	}
	if cfg.HardAbort <= cfg.EarlyWarning {
		return nil, fmt.Errorf("%w: hard-abort deadline must exceed early warning", domain.ErrInvalidConfig)
	}
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("%w: max retries must be at least 1", domain.ErrInvalidConfig)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.StatusLogInterval <= 0 {
		cfg.StatusLogInterval = DefaultStatusLogInterval
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = log.NoopLogger{}
	}
	if deps.Sink == nil {
		deps.Sink = NopSink{}
	}
	if deps.Bus == nil {
		deps.Bus = NewBus(DefaultBusCapacity)
	}

	conn := NewConnectionContext()
	wake := newWaker()

	return &Orchestrator{
		cfg:       cfg,
		clock:     deps.Clock,
		conn:      conn,
		bus:       deps.Bus,
		observer:  newEventObserver(conn, deps.Bus, deps.Sink, deps.Logger, wake),
		guard:     newTimeoutGuard(deps.Clock, conn, deps.Driver, deps.Sink, deps.Logger, wake, cfg.EarlyWarning, cfg.HardAbort),
		recovery:  newRecoveryEscalator(deps.Clock, deps.Driver, deps.Power, deps.Ready, cfg.Recovery, deps.Logger),
		driver:    deps.Driver,
		ready:     deps.Ready,
		stateRepo: deps.StateRepo,
		sink:      deps.Sink,
		logger:    log.Component(deps.Logger, "orchestrator"),
		wake:      wake,
	}, nil
}

// Bus returns the bus driver adapters publish notifications on.
func (o *Orchestrator) Bus() *Bus { return o.bus }

// IsConnected reports whether the link is up.
func (o *Orchestrator) IsConnected() bool { return o.conn.IsConnected() }

// Status returns a copy of the connection context.
func (o *Orchestrator) Status() ConnectionStatus { return o.conn.Snapshot() }

// Stats returns a copy of the connection counters.
func (o *Orchestrator) Stats() domain.Stats {
	o.statsMu.Lock()
	defer o.statsMu.Unlock()
	return o.stats
}

// Probe reads the driver status.
func (o *Orchestrator) Probe(ctx context.Context) (domain.LinkStateSnapshot, error) {
	return o.driver.QueryStatus(ctx)
}

// Disconnect drops the link and holds the loop until Reconnect is called.
func (o *Orchestrator) Disconnect(ctx context.Context) error {
	if !o.conn.IsConnected() {
		return domain.ErrNotConnected
	}
	o.conn.Hold()
	o.conn.RequestDisconnect()
	if err := o.driver.SubmitDisconnect(ctx); err != nil {
		o.conn.AbandonDisconnect()
		o.conn.Release()
		return fmt.Errorf("%w: %v", domain.ErrDriverRejected, err)
	}
	o.logger.Info("disconnect requested")
	return nil
}

// Reconnect releases a hold placed by Disconnect.
func (o *Orchestrator) Reconnect() {
	o.conn.Release()
	o.wake.signal()
	o.logger.Info("reconnect requested")
}

// Run executes the connection loop until ctx is canceled. It returns early
// only for configuration errors.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		o.observer.Run(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
		o.guard.Cancel()
	}()

	o.conn.Reset()
	o.loadStats(ctx)

	if err := o.startup(ctx); err != nil {
		return err
	}

	for {
		if err := o.park(ctx); err != nil {
			return err
		}
		if err := sleepCtx(ctx, o.clock, o.cfg.PreAttemptDelay); err != nil {
			return err
		}

		outcome, err := o.attempt(ctx)
		if err != nil {
			return err
		}

		if outcome.Connected {
			if o.cfg.ResetRetriesOnSuccess {
				o.conn.ResetRetries()
			}
			continue
		}

		action, rerr := o.recovery.Recover(ctx)
		if rerr != nil {
			o.logger.Warn("recovery incomplete",
				log.String("action", action.String()),
				log.Err(rerr),
			)
		}
		o.sink.OnRecovery(action, rerr)
		o.updateStats(ctx, func(s *domain.Stats) { s.RecordRecovery(action) })
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := sleepCtx(ctx, o.clock, o.cfg.RecoveryBackoff); err != nil {
			return err
		}

		if retries := o.conn.RetryCount(); retries >= o.cfg.MaxRetries {
			o.logger.Warn("max retries reached, cooling down",
				log.Int("retries", retries),
				log.Duration("cooldown", o.cfg.Cooldown),
			)
			if err := sleepCtx(ctx, o.clock, o.cfg.Cooldown); err != nil {
				return err
			}
			o.conn.ResetRetries()
		}
	}
}

// startup brings the interface up and waits for the supplicant.
func (o *Orchestrator) startup(ctx context.Context) error {
	snap, err := o.driver.QueryStatus(ctx)
	if err != nil || snap.State == domain.StateDisabled {
		o.logger.Info("bringing interface up")
		if err := o.driver.InterfaceUp(ctx); err != nil {
			o.logger.Warn("interface up failed", log.Err(err))
		}
		if err := sleepCtx(ctx, o.clock, o.cfg.Recovery.SoftSettle); err != nil {
			return err
		}
		if snap, err = o.driver.QueryStatus(ctx); err != nil || snap.State == domain.StateDisabled {
			if err := o.driver.InterfaceCarrierOn(ctx); err != nil {
				o.logger.Warn("forcing carrier failed", log.Err(err))
			}
		}
	}

	if o.ready != nil {
		if err := waitReady(ctx, o.ready, o.cfg.Recovery.ReadinessTimeout); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.logger.Warn("supplicant not ready, continuing", log.Err(err))
		}
	}

	o.logger.Info("waiting for radio to stabilize", log.Duration("delay", o.cfg.StartupDelay))
	return sleepCtx(ctx, o.clock, o.cfg.StartupDelay)
}

// park blocks while the link is up or the loop is on hold.
func (o *Orchestrator) park(ctx context.Context) error {
	if o.conn.Idle() {
		return nil
	}
	ticker := o.clock.NewTicker(o.cfg.StatusLogInterval)
	defer ticker.Stop()

	for !o.conn.Idle() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-o.wake:
		case <-ticker.Chan():
			o.logStatus(ctx)
		}
	}
	o.logger.Info("link down, resuming attempts")
	return nil
}

// attempt runs one retry cycle: the primary submission plus at most one
// relaxed-MFP fallback for secured networks.
func (o *Orchestrator) attempt(ctx context.Context) (domain.Outcome, error) {
	o.ensureCarrier(ctx)

	rec, err := domain.NewAttempt(o.cfg.Credentials, o.clock.Now())
	if err != nil {
		o.logger.Error("invalid credentials", log.Err(err))
		return domain.Outcome{}, err
	}
	gen, retry := o.conn.BeginAttempt(rec.SubmittedAt)

	o.logger.Info("connecting",
		log.String("attempt", rec.ID),
		log.String("ssid", rec.SSID),
		log.String("security", rec.Security.String()),
		log.Int("key_length", rec.KeyLength()),
		log.Int("retry", retry),
		log.Int("max_retries", o.cfg.MaxRetries),
	)

	outcome, err := o.submitAndWait(ctx, gen, rec, retry)
	if err != nil {
		return outcome, err
	}

	if !outcome.Connected && !outcome.TimedOut && rec.CanFallback() {
		rec = rec.WithRelaxedMFP(o.clock.Now())
		gen = o.conn.ReopenAttempt(rec.SubmittedAt)
		o.updateStats(ctx, func(s *domain.Stats) { s.Fallbacks++ })
		o.logger.Info("retrying with relaxed management frame protection",
			log.String("attempt", rec.ID),
			log.String("reason", outcome.Reason()),
		)
		if outcome, err = o.submitAndWait(ctx, gen, rec, retry); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

func (o *Orchestrator) submitAndWait(ctx context.Context, gen uint64, rec domain.AttemptRecord, retry int) (domain.Outcome, error) {
	o.guard.Arm(ctx, gen, rec)
	defer o.guard.Cancel()

	o.sink.OnAttemptStarted(rec, retry)
	if err := o.driver.SubmitConnect(ctx, rec); err != nil {
		o.logger.Warn("connect rejected by driver",
			log.String("attempt", rec.ID),
			log.Err(err),
		)
		o.conn.Fail(gen, domain.StatusRejected)
	}

	outcome, err := o.await(ctx, rec)
	if err != nil {
		return outcome, err
	}

	elapsed := o.clock.Since(rec.SubmittedAt)
	if outcome.Connected {
		o.logger.Info("connected",
			log.String("attempt", rec.ID),
			log.Duration("elapsed", elapsed),
		)
	} else {
		o.logger.Warn("attempt failed",
			log.String("attempt", rec.ID),
			log.String("reason", outcome.Reason()),
			log.Int("status", outcome.Status),
			log.Duration("elapsed", elapsed),
		)
	}
	o.sink.OnAttemptResolved(rec, retry, outcome, elapsed)
	o.updateStats(ctx, func(s *domain.Stats) { s.RecordOutcome(outcome, o.clock.Now()) })
	return outcome, nil
}

// await polls the connection context until the attempt resolves. The
// observer and the hard-abort deadline wake it early.
func (o *Orchestrator) await(ctx context.Context, rec domain.AttemptRecord) (domain.Outcome, error) {
	ticker := o.clock.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if outcome, ok := o.conn.TakeResult(); ok {
			return outcome, nil
		}
		select {
		case <-ctx.Done():
			return domain.Outcome{}, ctx.Err()
		case <-o.wake:
		case <-ticker.Chan():
			o.logger.Debug("waiting for connect result",
				log.String("attempt", rec.ID),
				log.Duration("elapsed", o.clock.Since(rec.SubmittedAt)),
			)
		}
	}
}

// ensureCarrier forces the link on when the interface reports disabled.
func (o *Orchestrator) ensureCarrier(ctx context.Context) {
	snap, err := o.driver.QueryStatus(ctx)
	if err != nil {
		o.logger.Warn("status probe failed", log.Err(err))
		return
	}
	if snap.State != domain.StateDisabled {
		return
	}
	o.logger.Info("interface disabled, forcing carrier on")
	if err := o.driver.InterfaceCarrierOn(ctx); err != nil {
		o.logger.Warn("forcing carrier failed", log.Err(err))
		return
	}
	_ = sleepCtx(ctx, o.clock, o.cfg.Recovery.SoftSettle)
}

func (o *Orchestrator) logStatus(ctx context.Context) {
	snap, err := o.driver.QueryStatus(ctx)
	if err != nil {
		o.logger.Warn("status probe failed", log.Err(err))
		return
	}
	st := o.conn.Snapshot()
	o.logger.Info("link status",
		log.Bool("connected", st.Connected),
		log.Bool("held", st.Held),
		log.String("driver_state", snap.State.String()),
		log.String("ssid", snap.SSID),
		log.String("band", snap.Band.String()),
		log.Int("channel", snap.Channel),
		log.Int("rssi", snap.RSSI),
		log.String("address", st.Address),
	)
}

func (o *Orchestrator) loadStats(ctx context.Context) {
	if o.stateRepo == nil {
		return
	}
	stats, err := o.stateRepo.Load(ctx)
	if err != nil {
		o.logger.Error("failed to load stats", log.Err(err))
		return
	}
	o.statsMu.Lock()
	o.stats = stats
	o.statsMu.Unlock()
}

func (o *Orchestrator) updateStats(ctx context.Context, fn func(*domain.Stats)) {
	o.statsMu.Lock()
	fn(&o.stats)
	stats := o.stats
	o.statsMu.Unlock()

	if o.stateRepo == nil {
		return
	}
	// Persist even when ctx is being canceled so the last outcome survives.
	if err := o.stateRepo.Save(context.WithoutCancel(ctx), stats); err != nil && !errors.Is(err, context.Canceled) {
		o.logger.Error("failed to save stats", log.Err(err))
	}
}
