package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Interface string `toml:"interface"`
	SSID      string `toml:"ssid"`
	PSK       string `toml:"psk"`
	Security  string `toml:"security"`
	Band      string `toml:"band"`

	PollInterval      string `toml:"poll_interval"`
	EarlyWarning      string `toml:"early_warning"`
	HardAbort         string `toml:"hard_abort"`
	RecoveryBackoff   string `toml:"recovery_backoff"`
	MaxRetries        int    `toml:"max_retries"`
	Cooldown          string `toml:"cooldown"`
	StartupDelay      string `toml:"startup_delay"`
	PreAttemptDelay   string `toml:"pre_attempt_delay"`
	StatusLogInterval string `toml:"status_log_interval"`
	SoftSettle        string `toml:"soft_settle"`
	SoftStabilize     string `toml:"soft_stabilize"`
	PowerStabilize    string `toml:"power_stabilize"`

	ResetRetriesOnSuccess *bool `toml:"reset_retries_on_success"`

	ControlDir string `toml:"control_dir"`
	LeaseFile  string `toml:"lease_file"`
	StateDir   string `toml:"state_dir"`

	GPIO struct {
		Root      string `toml:"root"`
		BuckPin   int    `toml:"buck_pin"`
		EnablePin int    `toml:"enable_pin"`
		ActiveLow *bool  `toml:"active_low"`
	} `toml:"gpio"`

	Listen string `toml:"listen"`

	MQTT struct {
		Broker   string `toml:"broker"`
		Topic    string `toml:"topic"`
		Username string `toml:"username"`
		Password string `toml:"password"`
	} `toml:"mqtt"`

	LogLevel string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.stationd/config.toml, or "" without a home
// directory.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".stationd", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("interface", fc.Interface, &cfg.Interface)
	s.setString("ssid", fc.SSID, &cfg.SSID)
	s.setString("psk", fc.PSK, &cfg.PSK)
	s.setString("security", fc.Security, &cfg.Security)
	s.setString("band", fc.Band, &cfg.Band)
	s.setString("control-dir", fc.ControlDir, &cfg.ControlDir)
	s.setString("lease-file", fc.LeaseFile, &cfg.LeaseFile)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("gpio-root", fc.GPIO.Root, &cfg.GPIORoot)
	s.setString("listen", fc.Listen, &cfg.Listen)
	s.setString("mqtt-broker", fc.MQTT.Broker, &cfg.MQTTBroker)
	s.setString("mqtt-topic", fc.MQTT.Topic, &cfg.MQTTTopic)
	s.setString("mqtt-username", fc.MQTT.Username, &cfg.MQTTUsername)
	s.setString("mqtt-password", fc.MQTT.Password, &cfg.MQTTPassword)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"poll", fc.PollInterval, &cfg.PollInterval},
		{"early-warning", fc.EarlyWarning, &cfg.EarlyWarning},
		{"hard-abort", fc.HardAbort, &cfg.HardAbort},
		{"recovery-backoff", fc.RecoveryBackoff, &cfg.RecoveryBackoff},
		{"cooldown", fc.Cooldown, &cfg.Cooldown},
		{"startup-delay", fc.StartupDelay, &cfg.StartupDelay},
		{"pre-attempt-delay", fc.PreAttemptDelay, &cfg.PreAttemptDelay},
		{"status-log-interval", fc.StatusLogInterval, &cfg.StatusLogInterval},
		{"soft-settle", fc.SoftSettle, &cfg.SoftSettle},
		{"soft-stabilize", fc.SoftStabilize, &cfg.SoftStabilize},
		{"power-stabilize", fc.PowerStabilize, &cfg.PowerStabilize},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("max-retries", fc.MaxRetries, &cfg.MaxRetries)
	s.setInt("buck-pin", fc.GPIO.BuckPin, &cfg.BuckPin)
	s.setInt("enable-pin", fc.GPIO.EnablePin, &cfg.EnablePin)

	s.setBool("reset-retries-on-success", fc.ResetRetriesOnSuccess, &cfg.ResetRetriesOnSuccess)
	s.setBool("gpio-active-low", fc.GPIO.ActiveLow, &cfg.GPIOActiveLow)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
