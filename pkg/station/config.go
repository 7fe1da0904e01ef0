package station

import (
	"errors"
	"fmt"
	"time"

	"github.com/bft-labs/stationd/internal/app"
	"github.com/bft-labs/stationd/internal/domain"
)

// Config configures a Station. Zero durations and counts are replaced by
// defaults in SetDefaults.
type Config struct {
	// Interface is the wireless network interface, e.g. "wlan0".
	Interface string

	// SSID, Key, Security and Band describe the single target network.
	// Security is one of auto, open, wpa2-psk or wpa3-sae.
	SSID     string
	Key      string
	Security string
	Band     string

	// ControlDir holds the supplicant control sockets.
	ControlDir string

	// LeaseFile is the DHCP client lease watched for address changes.
	// Empty disables lease tracking.
	LeaseFile string

	// StateDir holds station.json. Empty disables persistence.
	StateDir string

	GPIO GPIOConfig

	PollInterval      time.Duration
	EarlyWarning      time.Duration
	HardAbort         time.Duration
	RecoveryBackoff   time.Duration
	MaxRetries        int
	Cooldown          time.Duration
	StartupDelay      time.Duration
	PreAttemptDelay   time.Duration
	StatusLogInterval time.Duration

	SoftSettle     time.Duration
	SoftStabilize  time.Duration
	PowerStabilize time.Duration

	// KeepRetriesOnSuccess keeps counting retries across successful
	// connections instead of starting each outage from zero.
	KeepRetriesOnSuccess bool
}

// GPIOConfig selects the power rails of the radio module. Power cycling is
// only available when both pins are set.
type GPIOConfig struct {
	Root      string
	BuckPin   int
	EnablePin int
	ActiveLow bool
}

// Enabled reports whether a power sequencer can be built.
func (g GPIOConfig) Enabled() bool {
	return g.BuckPin > 0 && g.EnablePin > 0
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Interface == "" {
		c.Interface = "wlan0"
	}
	rc := app.DefaultRecoveryConfig()
	setDuration(&c.PollInterval, app.DefaultPollInterval)
	setDuration(&c.EarlyWarning, app.DefaultEarlyWarning)
	setDuration(&c.HardAbort, app.DefaultHardAbort)
	setDuration(&c.RecoveryBackoff, app.DefaultRecoveryBackoff)
	setDuration(&c.Cooldown, app.DefaultCooldown)
	setDuration(&c.StartupDelay, app.DefaultStartupDelay)
	setDuration(&c.PreAttemptDelay, app.DefaultPreAttemptDelay)
	setDuration(&c.StatusLogInterval, app.DefaultStatusLogInterval)
	setDuration(&c.SoftSettle, rc.SoftSettle)
	setDuration(&c.SoftStabilize, rc.SoftStabilize)
	setDuration(&c.PowerStabilize, rc.PowerStabilize)
	if c.MaxRetries == 0 {
		c.MaxRetries = app.DefaultMaxRetries
	}
}

func setDuration(dst *time.Duration, def time.Duration) {
	if *dst == 0 {
		*dst = def
	}
}

// Credentials resolves the target network.
func (c Config) Credentials() (domain.Credentials, error) {
	sec, err := domain.ParseSecurity(c.Security, c.Key)
	if err != nil {
		return domain.Credentials{}, err
	}
	band, err := domain.ParseBand(c.Band)
	if err != nil {
		return domain.Credentials{}, err
	}
	return domain.Credentials{SSID: c.SSID, Key: c.Key, Security: sec, Band: band}, nil
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Interface == "" {
		errs = append(errs, fmt.Errorf("%w: interface is required", domain.ErrInvalidConfig))
	}
	creds, err := c.Credentials()
	if err != nil {
		errs = append(errs, err)
	} else if err := creds.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.PollInterval < 0 || c.RecoveryBackoff < 0 || c.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("%w: intervals must not be negative", domain.ErrInvalidConfig))
	}
	if c.HardAbort <= c.EarlyWarning {
		errs = append(errs, fmt.Errorf("%w: hard-abort %s must exceed early-warning %s",
			domain.ErrInvalidConfig, c.HardAbort, c.EarlyWarning))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("%w: max retries must be at least 1", domain.ErrInvalidConfig))
	}
	return errors.Join(errs...)
}

func (c Config) orchestratorConfig(creds domain.Credentials) app.Config {
	oc := app.DefaultConfig(creds)
	oc.PollInterval = c.PollInterval
	oc.EarlyWarning = c.EarlyWarning
	oc.HardAbort = c.HardAbort
	oc.RecoveryBackoff = c.RecoveryBackoff
	oc.MaxRetries = c.MaxRetries
	oc.Cooldown = c.Cooldown
	oc.StartupDelay = c.StartupDelay
	oc.PreAttemptDelay = c.PreAttemptDelay
	oc.StatusLogInterval = c.StatusLogInterval
	oc.ResetRetriesOnSuccess = !c.KeepRetriesOnSuccess
	oc.Recovery.SoftSettle = c.SoftSettle
	oc.Recovery.SoftStabilize = c.SoftStabilize
	oc.Recovery.PowerStabilize = c.PowerStabilize
	return oc
}
