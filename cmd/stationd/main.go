package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/stationd/internal/adapters/httpapi"
	"github.com/bft-labs/stationd/internal/adapters/metrics"
	"github.com/bft-labs/stationd/internal/adapters/mqtt"
	"github.com/bft-labs/stationd/internal/cliconfig"
	"github.com/bft-labs/stationd/pkg/log"
	"github.com/bft-labs/stationd/pkg/station"
)

const helpDescription = `
Keep a wireless interface associated with one network, unattended.

Highlights:
  - Bounds every connect attempt with an early warning and a hard abort.
  - Recovers a stuck radio by bouncing the interface or power-cycling it.
  - Configure via file, env (STATIOND_*), or flags.
  - Exposes status, manual disconnect/reconnect and metrics over HTTP.
`

var exampleUsage = strings.TrimSpace(`
  stationd --ssid workshop --psk "correct horse battery"
  stationd --config /etc/stationd/config.toml --buck-pin 17 --enable-pin 27
  stationd status
  stationd disconnect && stationd reconnect
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:          "stationd",
		Short:        "Wireless station connection manager",
		Long:         strings.TrimSpace(helpDescription),
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.stationd/config.toml)")

	f := root.Flags()
	f.StringVar(&cfg.Interface, "interface", cfg.Interface, "wireless network interface")
	f.StringVar(&cfg.SSID, "ssid", cfg.SSID, "network name")
	f.StringVar(&cfg.PSK, "psk", cfg.PSK, "pre-shared key or SAE password")
	f.StringVar(&cfg.Security, "security", cfg.Security, "auto, open, wpa2-psk or wpa3-sae")
	f.StringVar(&cfg.Band, "band", cfg.Band, "2.4, 5 or any")

	f.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "status poll interval while an attempt is pending")
	f.DurationVar(&cfg.EarlyWarning, "early-warning", cfg.EarlyWarning, "deadline for the early warning probe")
	f.DurationVar(&cfg.HardAbort, "hard-abort", cfg.HardAbort, "deadline after which a pending attempt is abandoned")
	f.DurationVar(&cfg.RecoveryBackoff, "recovery-backoff", cfg.RecoveryBackoff, "wait after recovery before the next attempt")
	f.IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "attempts before cooling down")
	f.DurationVar(&cfg.Cooldown, "cooldown", cfg.Cooldown, "pause after max retries")
	f.DurationVar(&cfg.StartupDelay, "startup-delay", cfg.StartupDelay, "radio stabilization delay at startup")
	f.DurationVar(&cfg.PreAttemptDelay, "pre-attempt-delay", cfg.PreAttemptDelay, "delay before each attempt")
	f.DurationVar(&cfg.StatusLogInterval, "status-log-interval", cfg.StatusLogInterval, "link status log interval while connected")
	f.DurationVar(&cfg.SoftSettle, "soft-settle", cfg.SoftSettle, "interface down time during a soft reset")
	f.DurationVar(&cfg.SoftStabilize, "soft-stabilize", cfg.SoftStabilize, "wait after bringing the interface back up")
	f.DurationVar(&cfg.PowerStabilize, "power-stabilize", cfg.PowerStabilize, "wait after a power cycle")
	f.BoolVar(&cfg.ResetRetriesOnSuccess, "reset-retries-on-success", cfg.ResetRetriesOnSuccess, "start each outage with a fresh retry count")

	f.StringVar(&cfg.ControlDir, "control-dir", cfg.ControlDir, "wpa_supplicant control socket directory")
	f.StringVar(&cfg.LeaseFile, "lease-file", cfg.LeaseFile, "DHCP lease file to watch (optional)")
	f.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for station.json (optional)")

	f.StringVar(&cfg.GPIORoot, "gpio-root", cfg.GPIORoot, "sysfs GPIO root")
	f.IntVar(&cfg.BuckPin, "buck-pin", cfg.BuckPin, "GPIO of the radio buck regulator enable")
	f.IntVar(&cfg.EnablePin, "enable-pin", cfg.EnablePin, "GPIO of the radio chip enable")
	f.BoolVar(&cfg.GPIOActiveLow, "gpio-active-low", cfg.GPIOActiveLow, "invert both power rails")

	f.StringVar(&cfg.Listen, "listen", cfg.Listen, "control API address (empty disables)")
	f.StringVar(&cfg.MQTTBroker, "mqtt-broker", cfg.MQTTBroker, "MQTT broker URL for events (optional)")
	f.StringVar(&cfg.MQTTTopic, "mqtt-topic", cfg.MQTTTopic, "MQTT topic prefix")
	f.StringVar(&cfg.MQTTUsername, "mqtt-username", cfg.MQTTUsername, "MQTT username")
	f.StringVar(&cfg.MQTTPassword, "mqtt-password", cfg.MQTTPassword, "MQTT password")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	root.AddCommand(clientCommands()...)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers the config file and STATIOND_* variables under any
// flags given on the command line.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	} else if cfgPath != "" {
		return fmt.Errorf("config file %s not found", cfgPath)
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

func run(cfg cliconfig.Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := log.NewZerologAdapter(level)
	logger.Info("configuration", log.Any("config", cfg.Masked()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsSink := metrics.New()
	opts := []station.Option{
		station.WithLogger(logger),
		station.WithEventSink(metricsSink),
	}

	if cfg.MQTTBroker != "" {
		sink, client, err := mqtt.Connect(ctx, mqtt.Config{
			Broker:   cfg.MQTTBroker,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
			Topic:    cfg.MQTTTopic,
			QoS:      1,
		}, logger)
		if err != nil {
			logger.Warn("mqtt unavailable, continuing without", log.Err(err))
		} else {
			defer client.Disconnect(250)
			opts = append(opts, station.WithEventSink(sink))
		}
	}

	st, err := station.New(cfg.StationConfig(), opts...)
	if err != nil {
		return fmt.Errorf("create station: %w", err)
	}
	if err := st.Start(ctx); err != nil {
		return fmt.Errorf("start station: %w", err)
	}

	serverErr := make(chan error, 1)
	if cfg.Listen != "" {
		srv := httpapi.NewServer(st, metricsSink.Handler(), logger)
		go func() { serverErr <- srv.ListenAndServe(ctx, cfg.Listen) }()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("received signal, stopping")
	case <-st.Done():
		runErr = st.Err()
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("control api: %w", err)
		}
	}
	stop()

	if err := st.Stop(); err != nil && !errors.Is(err, station.ErrNotRunning) {
		return errors.Join(runErr, fmt.Errorf("stop station: %w", err))
	}
	return runErr
}
