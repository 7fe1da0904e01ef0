package station

import "github.com/bft-labs/stationd/internal/domain"

// Errors returned by the station API. Compare with errors.Is.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrNotConnected    = domain.ErrNotConnected
	ErrDriverRejected  = domain.ErrDriverRejected
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrEmptySSID       = domain.ErrEmptySSID
	ErrSSIDTooLong     = domain.ErrSSIDTooLong
	ErrInvalidKey      = domain.ErrInvalidKey
)
