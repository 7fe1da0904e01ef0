package ports

import (
	"context"

	"github.com/bft-labs/stationd/internal/domain"
)

// Supplicant is the request side of the radio driver. Results of
// SubmitConnect and SubmitDisconnect arrive later as notifications on the
// event bus; a returned error means the request was refused outright.
type Supplicant interface {
	// SubmitConnect asks the driver to associate using rec.
	SubmitConnect(ctx context.Context, rec domain.AttemptRecord) error

	// SubmitDisconnect asks the driver to drop the current association.
	SubmitDisconnect(ctx context.Context) error

	// QueryStatus reads the current link state.
	QueryStatus(ctx context.Context) (domain.LinkStateSnapshot, error)
}

// LinkControl toggles the network interface.
type LinkControl interface {
	InterfaceUp(ctx context.Context) error
	InterfaceDown(ctx context.Context) error

	// InterfaceCarrierOn forces the logical link on after the interface is
	// already administratively up.
	InterfaceCarrierOn(ctx context.Context) error
}

// RadioDriver combines the supplicant and interface controls.
type RadioDriver interface {
	Supplicant
	LinkControl
}

// PowerSequencer power-cycles the radio module. It must leave the module
// powered when it returns, even on error.
type PowerSequencer interface {
	PowerCycle(ctx context.Context) error
}

// ReadinessWaiter blocks until the driver is able to accept requests.
type ReadinessWaiter interface {
	WaitReady(ctx context.Context) error
}

// Notifier accepts asynchronous driver notifications. Publish may block
// while the consumer is behind and returns ctx.Err() if ctx ends first.
type Notifier interface {
	Publish(ctx context.Context, n domain.Notification) error
}
