// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// Ports are the boundaries between the connection manager core and the
// hardware, daemons and sinks it drives. They say what the core needs
// without saying how it is done.
//
// # Port Interfaces
//
//   - [Supplicant]: Submits connect/disconnect requests and reads driver status
//   - [LinkControl]: Brings the network interface up or down
//   - [RadioDriver]: Supplicant and LinkControl together
//   - [PowerSequencer]: Power-cycles the radio module
//   - [ReadinessWaiter]: Blocks until the driver control channel exists
//   - [Notifier]: Carries driver notifications into the core
//   - [StateRepository]: Persists connection counters
//   - [EventSink]: Receives lifecycle events for metrics and telemetry
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with D-Bus,
// ioctl, sysfs, fsnotify, Prometheus and MQTT.
package ports
