package domain

import "errors"

// Configuration errors are fatal to the attempt and are not retried with the
// same parameters.
var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("stationd: invalid configuration")

	// ErrEmptySSID is returned when no network name is configured.
	ErrEmptySSID = errors.New("stationd: ssid is empty")

	// ErrSSIDTooLong is returned when the network name exceeds MaxSSIDLength bytes.
	ErrSSIDTooLong = errors.New("stationd: ssid longer than 32 bytes")

	// ErrInvalidKey is returned when key material does not fit the security mode.
	ErrInvalidKey = errors.New("stationd: invalid pre-shared key")
)

// Attempt errors drive the retry loop.
var (
	// ErrDriverRejected is returned when the driver refuses a request before
	// any notification is produced.
	ErrDriverRejected = errors.New("stationd: driver rejected request")

	// ErrAuthFailed marks a connect result carrying a non-zero status.
	ErrAuthFailed = errors.New("stationd: authentication failed")

	// ErrTimeout marks an attempt resolved by the hard-abort deadline.
	ErrTimeout = errors.New("stationd: attempt timed out")

	// ErrNotConnected is returned by Disconnect when there is no link to drop.
	ErrNotConnected = errors.New("stationd: not connected")

	// ErrUnsupported is returned by adapters on platforms they cannot drive.
	ErrUnsupported = errors.New("stationd: unsupported on this platform")
)

// Lifecycle errors are returned by the public API.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("stationd: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("stationd: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("stationd: shutdown timeout")
)

// IsConfigError reports whether err belongs to the configuration class.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrEmptySSID) ||
		errors.Is(err, ErrSSIDTooLong) ||
		errors.Is(err, ErrInvalidKey)
}
