// Package netif toggles a network interface's administrative state.
package netif

import (
	"context"

	"github.com/bft-labs/stationd/pkg/log"
)

// Link implements ports.LinkControl for one interface.
type Link struct {
	name   string
	logger log.Logger
}

// New returns a Link controlling the interface called name.
func New(name string, logger log.Logger) *Link {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Link{name: name, logger: log.Component(logger, "netif")}
}

// Name returns the interface name.
func (l *Link) Name() string { return l.name }

// InterfaceUp sets IFF_UP.
func (l *Link) InterfaceUp(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.logger.Debug("interface up", log.String("interface", l.name))
	return setFlags(l.name, flagUp, 0)
}

// InterfaceDown clears IFF_UP.
func (l *Link) InterfaceDown(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.logger.Debug("interface down", log.String("interface", l.name))
	return setFlags(l.name, 0, flagUp)
}

// InterfaceCarrierOn forces the operational state on when the interface is
// up but reports no carrier.
func (l *Link) InterfaceCarrierOn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	flags, err := getFlags(l.name)
	if err != nil {
		return err
	}
	if flags&flagRunning != 0 {
		return nil
	}
	l.logger.Info("forcing carrier on", log.String("interface", l.name))
	return setFlags(l.name, flagUp|flagRunning, 0)
}

// State reports whether the interface is up and has carrier.
func (l *Link) State() (up, running bool, err error) {
	flags, err := getFlags(l.name)
	if err != nil {
		return false, false, err
	}
	return flags&flagUp != 0, flags&flagRunning != 0, nil
}

// applyFlags returns cur with set bits added and clear bits removed.
func applyFlags(cur, set, clear uint16) uint16 {
	return (cur | set) &^ clear
}
