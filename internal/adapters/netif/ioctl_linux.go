//go:build linux

package netif

import (
	"fmt"

	"golang.org/x/sys/unix"
)

const (
	flagUp      = uint16(unix.IFF_UP)
	flagRunning = uint16(unix.IFF_RUNNING)
)

func withSocket(fn func(fd int) error) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("netif: socket: %w", err)
	}
	defer unix.Close(fd)
	return fn(fd)
}

func getFlags(name string) (uint16, error) {
	var flags uint16
	err := withSocket(func(fd int) error {
		ifr, err := unix.NewIfreq(name)
		if err != nil {
			return fmt.Errorf("netif: %s: %w", name, err)
		}
		if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
			return fmt.Errorf("netif: get flags %s: %w", name, err)
		}
		flags = ifr.Uint16()
		return nil
	})
	return flags, err
}

func setFlags(name string, set, clear uint16) error {
	return withSocket(func(fd int) error {
		ifr, err := unix.NewIfreq(name)
		if err != nil {
			return fmt.Errorf("netif: %s: %w", name, err)
		}
		if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
			return fmt.Errorf("netif: get flags %s: %w", name, err)
		}
		ifr.SetUint16(applyFlags(ifr.Uint16(), set, clear))
		if err := unix.IoctlIfreq(fd, unix.SIOCSIFFLAGS, ifr); err != nil {
			return fmt.Errorf("netif: set flags %s: %w", name, err)
		}
		return nil
	})
}
