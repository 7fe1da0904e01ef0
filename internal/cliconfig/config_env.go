package cliconfig

import "os"

// EnvPrefix prefixes every environment variable stationd reads.
const EnvPrefix = "STATIOND_"

// ApplyEnvConfig applies configuration from environment variables (STATIOND_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("interface", env("INTERFACE"), &cfg.Interface)
	s.setString("ssid", env("SSID"), &cfg.SSID)
	s.setString("psk", env("PSK"), &cfg.PSK)
	s.setString("security", env("SECURITY"), &cfg.Security)
	s.setString("band", env("BAND"), &cfg.Band)
	s.setString("control-dir", env("CONTROL_DIR"), &cfg.ControlDir)
	s.setString("lease-file", env("LEASE_FILE"), &cfg.LeaseFile)
	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)
	s.setString("gpio-root", env("GPIO_ROOT"), &cfg.GPIORoot)
	s.setString("listen", env("LISTEN"), &cfg.Listen)
	s.setString("mqtt-broker", env("MQTT_BROKER"), &cfg.MQTTBroker)
	s.setString("mqtt-topic", env("MQTT_TOPIC"), &cfg.MQTTTopic)
	s.setString("mqtt-username", env("MQTT_USERNAME"), &cfg.MQTTUsername)
	s.setString("mqtt-password", env("MQTT_PASSWORD"), &cfg.MQTTPassword)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("poll", env("POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("early-warning", env("EARLY_WARNING"), &cfg.EarlyWarning); err != nil {
		return err
	}
	if err := s.setDuration("hard-abort", env("HARD_ABORT"), &cfg.HardAbort); err != nil {
		return err
	}
	if err := s.setDuration("recovery-backoff", env("RECOVERY_BACKOFF"), &cfg.RecoveryBackoff); err != nil {
		return err
	}
	if err := s.setDuration("cooldown", env("COOLDOWN"), &cfg.Cooldown); err != nil {
		return err
	}
	if err := s.setDuration("startup-delay", env("STARTUP_DELAY"), &cfg.StartupDelay); err != nil {
		return err
	}
	if err := s.setDuration("pre-attempt-delay", env("PRE_ATTEMPT_DELAY"), &cfg.PreAttemptDelay); err != nil {
		return err
	}
	if err := s.setDuration("status-log-interval", env("STATUS_LOG_INTERVAL"), &cfg.StatusLogInterval); err != nil {
		return err
	}
	if err := s.setDuration("soft-settle", env("SOFT_SETTLE"), &cfg.SoftSettle); err != nil {
		return err
	}
	if err := s.setDuration("soft-stabilize", env("SOFT_STABILIZE"), &cfg.SoftStabilize); err != nil {
		return err
	}
	if err := s.setDuration("power-stabilize", env("POWER_STABILIZE"), &cfg.PowerStabilize); err != nil {
		return err
	}

	if err := s.setIntFromString("max-retries", env("MAX_RETRIES"), &cfg.MaxRetries); err != nil {
		return err
	}
	if err := s.setIntFromString("buck-pin", env("BUCK_PIN"), &cfg.BuckPin); err != nil {
		return err
	}
	if err := s.setIntFromString("enable-pin", env("ENABLE_PIN"), &cfg.EnablePin); err != nil {
		return err
	}

	s.setBoolFromString("reset-retries-on-success", env("RESET_RETRIES_ON_SUCCESS"), &cfg.ResetRetriesOnSuccess)
	s.setBoolFromString("gpio-active-low", env("GPIO_ACTIVE_LOW"), &cfg.GPIOActiveLow)

	return nil
}
