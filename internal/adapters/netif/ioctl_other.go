//go:build !linux

package netif

import (
	"fmt"

	"github.com/bft-labs/stationd/internal/domain"
)

const (
	flagUp      = uint16(1 << 0)
	flagRunning = uint16(1 << 6)
)

func getFlags(name string) (uint16, error) {
	return 0, fmt.Errorf("netif: %s: %w", name, domain.ErrUnsupported)
}

func setFlags(name string, set, clear uint16) error {
	return fmt.Errorf("netif: %s: %w", name, domain.ErrUnsupported)
}
