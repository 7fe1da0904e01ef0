package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/stationd/internal/domain"
	"github.com/bft-labs/stationd/internal/ports"
	"github.com/bft-labs/stationd/pkg/log"
)

// RecoveryConfig holds the settle intervals of both remediation paths.
type RecoveryConfig struct {
	SoftSettle       time.Duration
	SoftStabilize    time.Duration
	PowerDownSettle  time.Duration
	PowerStabilize   time.Duration
	PowerExtended    time.Duration
	ReadinessTimeout time.Duration
}

// DefaultRecoveryConfig returns the intervals used on the reference board.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		SoftSettle:       500 * time.Millisecond,
		SoftStabilize:    time.Second,
		PowerDownSettle:  100 * time.Millisecond,
		PowerStabilize:   time.Second,
		PowerExtended:    2 * time.Second,
		ReadinessTimeout: 10 * time.Second,
	}
}

// RecoveryEscalator picks and runs the remediation for a failed attempt.
// Recover blocks the caller for the whole procedure and keeps no state
// between calls.
type RecoveryEscalator struct {
	clock  clockwork.Clock
	driver ports.RadioDriver
	power  ports.PowerSequencer
	ready  ports.ReadinessWaiter
	cfg    RecoveryConfig
	logger log.Logger
}

func newRecoveryEscalator(clock clockwork.Clock, driver ports.RadioDriver, power ports.PowerSequencer, ready ports.ReadinessWaiter, cfg RecoveryConfig, logger log.Logger) *RecoveryEscalator {
	return &RecoveryEscalator{
		clock:  clock,
		driver: driver,
		power:  power,
		ready:  ready,
		cfg:    cfg,
		logger: log.Component(logger, "recovery"),
	}
}

// Recover probes the driver, chooses an action and executes it. Step
// failures do not stop the procedure; they are joined into the returned
// error alongside the action that was taken.
func (r *RecoveryEscalator) Recover(ctx context.Context) (domain.RecoveryAction, error) {
	snap, err := r.driver.QueryStatus(ctx)
	if err != nil {
		r.logger.Warn("status probe failed before recovery", log.Err(err))
	}
	action := domain.ChooseRecovery(snap)
	if action == domain.PowerCycleReset && r.power == nil {
		r.logger.Warn("no power sequencer, falling back to interface reset")
		action = domain.SoftInterfaceReset
	}

	r.logger.Info("recovering",
		log.String("action", action.String()),
		log.String("driver_state", snap.State.String()),
	)

	switch action {
	case domain.PowerCycleReset:
		return action, r.powerCycle(ctx)
	default:
		return action, r.softReset(ctx)
	}
}

func (r *RecoveryEscalator) softReset(ctx context.Context) error {
	var errs []error
	if err := r.driver.InterfaceDown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("interface down: %w", err))
	}
	if err := sleepCtx(ctx, r.clock, r.cfg.SoftSettle); err != nil {
		return errors.Join(append(errs, err)...)
	}
	if err := r.driver.InterfaceUp(ctx); err != nil {
		errs = append(errs, fmt.Errorf("interface up: %w", err))
	}
	if err := sleepCtx(ctx, r.clock, r.cfg.SoftStabilize); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (r *RecoveryEscalator) powerCycle(ctx context.Context) error {
	var errs []error
	if err := r.driver.InterfaceDown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("interface down: %w", err))
	}
	if err := sleepCtx(ctx, r.clock, r.cfg.PowerDownSettle); err != nil {
		return errors.Join(append(errs, err)...)
	}
	if err := r.power.PowerCycle(ctx); err != nil {
		errs = append(errs, fmt.Errorf("power cycle: %w", err))
	}
	if err := r.driver.InterfaceUp(ctx); err != nil {
		errs = append(errs, fmt.Errorf("interface up: %w", err))
	}
	if err := sleepCtx(ctx, r.clock, r.cfg.PowerStabilize+r.cfg.PowerExtended); err != nil {
		return errors.Join(append(errs, err)...)
	}
	if r.ready != nil {
		if err := waitReady(ctx, r.ready, r.cfg.ReadinessTimeout); err != nil {
			errs = append(errs, fmt.Errorf("wait for supplicant: %w", err))
		}
	}
	return errors.Join(errs...)
}

// sleepCtx waits d on clock. A non-positive d returns at once.
func sleepCtx(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return nil
	}
}

// waitReady bounds w.WaitReady by timeout when it is positive.
func waitReady(ctx context.Context, w ports.ReadinessWaiter, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return w.WaitReady(ctx)
}
