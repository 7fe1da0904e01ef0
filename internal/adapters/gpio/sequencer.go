// Package gpio power-cycles the radio module through the sysfs GPIO
// interface.
package gpio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/stationd/pkg/log"
)

// DefaultRoot is the sysfs GPIO class directory.
const DefaultRoot = "/sys/class/gpio"

// Rail selects which supply line a step drives.
type Rail int

const (
	RailBoth Rail = iota
	// RailBuck is the module's buck regulator enable.
	RailBuck
	// RailEnable is the module's IO supply / chip enable.
	RailEnable
)

func (r Rail) String() string {
	switch r {
	case RailBuck:
		return "buck"
	case RailEnable:
		return "enable"
	default:
		return "both"
	}
}

// Step drives a rail and then waits.
type Step struct {
	Rail Rail
	High bool
	Wait time.Duration
}

// DefaultSequence is the power-up order the radio module requires: both
// rails low, buck then IO supply released, buck raised first.
func DefaultSequence() []Step {
	return []Step{
		{Rail: RailBoth, High: false, Wait: 60 * time.Millisecond},
		{Rail: RailBuck, High: false, Wait: 100 * time.Millisecond},
		{Rail: RailEnable, High: false, Wait: 100 * time.Millisecond},
		{Rail: RailBuck, High: true, Wait: time.Second},
		{Rail: RailEnable, High: true, Wait: 5 * time.Second},
	}
}

// Config selects the pins and sysfs root.
type Config struct {
	Root      string
	BuckPin   int
	EnablePin int
	ActiveLow bool
	Sequence  []Step
}

// Sequencer implements ports.PowerSequencer.
type Sequencer struct {
	cfg    Config
	clock  clockwork.Clock
	logger log.Logger
}

// New creates a sequencer. Missing Root and Sequence get defaults.
func New(cfg Config, clock clockwork.Clock, logger log.Logger) *Sequencer {
	if cfg.Root == "" {
		cfg.Root = DefaultRoot
	}
	if len(cfg.Sequence) == 0 {
		cfg.Sequence = DefaultSequence()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Sequencer{cfg: cfg, clock: clock, logger: log.Component(logger, "gpio")}
}

// PowerCycle runs the sequence. If a step fails the remaining steps still
// run and both rails are driven high before returning, so the module is
// never left unpowered.
func (s *Sequencer) PowerCycle(ctx context.Context) error {
	var errs []error
	for _, pin := range []int{s.cfg.BuckPin, s.cfg.EnablePin} {
		if err := s.prepare(pin); err != nil {
			return err
		}
	}

	s.logger.Info("power cycling radio", log.Int("buck_pin", s.cfg.BuckPin), log.Int("enable_pin", s.cfg.EnablePin))
	for i, step := range s.cfg.Sequence {
		if err := s.drive(step.Rail, step.High); err != nil {
			errs = append(errs, fmt.Errorf("step %d (%s): %w", i, step.Rail, err))
		}
		if err := s.sleep(ctx, step.Wait); err != nil {
			errs = append(errs, err)
			break
		}
	}

	if len(errs) > 0 {
		if err := s.drive(RailBoth, true); err != nil {
			errs = append(errs, fmt.Errorf("restore power: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (s *Sequencer) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := s.clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return nil
	}
}

func (s *Sequencer) drive(r Rail, high bool) error {
	var errs []error
	if r == RailBoth || r == RailBuck {
		errs = append(errs, s.write(s.cfg.BuckPin, "value", level(high)))
	}
	if r == RailBoth || r == RailEnable {
		errs = append(errs, s.write(s.cfg.EnablePin, "value", level(high)))
	}
	return errors.Join(errs...)
}

// prepare exports pin if needed and configures it as an output.
func (s *Sequencer) prepare(pin int) error {
	dir := s.pinDir(pin)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.WriteFile(filepath.Join(s.cfg.Root, "export"), []byte(strconv.Itoa(pin)), 0o644); err != nil {
			return fmt.Errorf("export gpio %d: %w", pin, err)
		}
	}
	if err := s.write(pin, "direction", "out"); err != nil {
		return err
	}
	activeLow := "0"
	if s.cfg.ActiveLow {
		activeLow = "1"
	}
	return s.write(pin, "active_low", activeLow)
}

func (s *Sequencer) write(pin int, attr, value string) error {
	path := filepath.Join(s.pinDir(pin), attr)
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *Sequencer) pinDir(pin int) string {
	return filepath.Join(s.cfg.Root, "gpio"+strconv.Itoa(pin))
}

func level(high bool) string {
	if high {
		return "1"
	}
	return "0"
}
