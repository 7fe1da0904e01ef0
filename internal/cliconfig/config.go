package cliconfig

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bft-labs/stationd/internal/adapters/fswatch"
	"github.com/bft-labs/stationd/internal/app"
	"github.com/bft-labs/stationd/pkg/log"
	"github.com/bft-labs/stationd/pkg/station"
)

// DefaultListen is the default address of the local control API.
const DefaultListen = "127.0.0.1:8711"

// Config holds CLI configuration for stationd.
type Config struct {
	Interface string
	SSID      string
	PSK       string
	Security  string
	Band      string

	PollInterval      time.Duration
	EarlyWarning      time.Duration
	HardAbort         time.Duration
	RecoveryBackoff   time.Duration
	MaxRetries        int
	Cooldown          time.Duration
	StartupDelay      time.Duration
	PreAttemptDelay   time.Duration
	StatusLogInterval time.Duration
	SoftSettle        time.Duration
	SoftStabilize     time.Duration
	PowerStabilize    time.Duration

	ResetRetriesOnSuccess bool

	ControlDir string
	LeaseFile  string
	StateDir   string

	GPIORoot      string
	BuckPin       int
	EnablePin     int
	GPIOActiveLow bool

	Listen string

	MQTTBroker   string
	MQTTTopic    string
	MQTTUsername string
	MQTTPassword string

	LogLevel string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	rc := app.DefaultRecoveryConfig()
	return Config{
		Interface:             "wlan0",
		Security:              "auto",
		Band:                  "any",
		PollInterval:          app.DefaultPollInterval,
		EarlyWarning:          app.DefaultEarlyWarning,
		HardAbort:             app.DefaultHardAbort,
		RecoveryBackoff:       app.DefaultRecoveryBackoff,
		MaxRetries:            app.DefaultMaxRetries,
		Cooldown:              app.DefaultCooldown,
		StartupDelay:          app.DefaultStartupDelay,
		PreAttemptDelay:       app.DefaultPreAttemptDelay,
		StatusLogInterval:     app.DefaultStatusLogInterval,
		SoftSettle:            rc.SoftSettle,
		SoftStabilize:         rc.SoftStabilize,
		PowerStabilize:        rc.PowerStabilize,
		ResetRetriesOnSuccess: true,
		ControlDir:            fswatch.DefaultControlDir,
		GPIORoot:              "/sys/class/gpio",
		Listen:                DefaultListen,
		MQTTTopic:             "stationd",
		LogLevel:              "info",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error
	for name, d := range map[string]time.Duration{
		"poll":                c.PollInterval,
		"early-warning":       c.EarlyWarning,
		"hard-abort":          c.HardAbort,
		"recovery-backoff":    c.RecoveryBackoff,
		"cooldown":            c.Cooldown,
		"status-log-interval": c.StatusLogInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if (c.BuckPin > 0) != (c.EnablePin > 0) {
		errs = append(errs, fmt.Errorf("buck-pin and enable-pin must be set together"))
	}
	if err := c.StationConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// StationConfig converts the CLI configuration for the station library.
func (c Config) StationConfig() station.Config {
	return station.Config{
		Interface:  c.Interface,
		SSID:       c.SSID,
		Key:        c.PSK,
		Security:   c.Security,
		Band:       c.Band,
		ControlDir: c.ControlDir,
		LeaseFile:  c.LeaseFile,
		StateDir:   c.StateDir,
		GPIO: station.GPIOConfig{
			Root:      c.GPIORoot,
			BuckPin:   c.BuckPin,
			EnablePin: c.EnablePin,
			ActiveLow: c.GPIOActiveLow,
		},
		PollInterval:         c.PollInterval,
		EarlyWarning:         c.EarlyWarning,
		HardAbort:            c.HardAbort,
		RecoveryBackoff:      c.RecoveryBackoff,
		MaxRetries:           c.MaxRetries,
		Cooldown:             c.Cooldown,
		StartupDelay:         c.StartupDelay,
		PreAttemptDelay:      c.PreAttemptDelay,
		StatusLogInterval:    c.StatusLogInterval,
		SoftSettle:           c.SoftSettle,
		SoftStabilize:        c.SoftStabilize,
		PowerStabilize:       c.PowerStabilize,
		KeepRetriesOnSuccess: !c.ResetRetriesOnSuccess,
	}
}

// Masked returns a copy safe to log.
func (c Config) Masked() Config {
	if c.PSK != "" {
		c.PSK = "*****"
	}
	if c.MQTTPassword != "" {
		c.MQTTPassword = "*****"
	}
	return c
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
