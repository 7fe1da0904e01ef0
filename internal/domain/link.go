package domain

import (
	"fmt"
	"strings"
)

// DriverState is the coarse state of the radio driver.
type DriverState int

const (
	StateUnknown DriverState = iota
	// StateDisabled means the interface is administratively down or the
	// supplicant has no control over it.
	StateDisabled
	StateIdle
	StateScanning
	StateAssociating
	StateAssociated
)

// String returns a human-readable representation of the state.
func (s DriverState) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateAssociating:
		return "associating"
	case StateAssociated:
		return "associated"
	default:
		return "unknown"
	}
}

// Band is the radio frequency band.
type Band int

const (
	BandAny Band = iota
	Band2_4GHz
	Band5GHz
	Band6GHz
)

func (b Band) String() string {
	switch b {
	case Band2_4GHz:
		return "2.4GHz"
	case Band5GHz:
		return "5GHz"
	case Band6GHz:
		return "6GHz"
	default:
		return "any"
	}
}

// ParseBand accepts "2.4", "5", "6" or "any".
func ParseBand(s string) (Band, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "auto":
		return BandAny, nil
	case "2.4", "2.4ghz", "2g":
		return Band2_4GHz, nil
	case "5", "5ghz", "5g":
		return Band5GHz, nil
	case "6", "6ghz", "6g":
		return Band6GHz, nil
	default:
		return BandAny, fmt.Errorf("%w: unknown band %q", ErrInvalidConfig, s)
	}
}

// BandForFrequency maps a centre frequency in MHz to its band.
func BandForFrequency(mhz int) Band {
	switch {
	case mhz >= 2400 && mhz < 2500:
		return Band2_4GHz
	case mhz >= 5150 && mhz < 5925:
		return Band5GHz
	case mhz >= 5925 && mhz <= 7125:
		return Band6GHz
	default:
		return BandAny
	}
}

// ChannelForFrequency maps a centre frequency in MHz to its channel number,
// or 0 when the frequency is not a known channel.
func ChannelForFrequency(mhz int) int {
	switch {
	case mhz == 2484:
		return 14
	case mhz >= 2412 && mhz <= 2472:
		return (mhz - 2407) / 5
	case mhz >= 5160 && mhz <= 5885:
		return (mhz - 5000) / 5
	case mhz >= 5955 && mhz <= 7115:
		return (mhz - 5950) / 5
	default:
		return 0
	}
}

// Security is the key management scheme of the target network.
type Security int

const (
	SecurityOpen Security = iota
	SecurityWPA2PSK
	SecurityWPA3SAE
)

func (s Security) String() string {
	switch s {
	case SecurityWPA2PSK:
		return "wpa2-psk"
	case SecurityWPA3SAE:
		return "wpa3-sae"
	default:
		return "open"
	}
}

// MFP is the protected-management-frame policy submitted with an attempt.
type MFP int

const (
	MFPDisabled MFP = iota
	MFPOptional
	MFPRequired
)

func (m MFP) String() string {
	switch m {
	case MFPOptional:
		return "optional"
	case MFPRequired:
		return "required"
	default:
		return "disabled"
	}
}

// LinkStateSnapshot is one read of the driver status. It is recomputed on
// every probe and never mutated.
type LinkStateSnapshot struct {
	State         DriverState `json:"state"`
	InterfaceMode string      `json:"interface_mode,omitempty"`
	LinkMode      string      `json:"link_mode,omitempty"`
	SSID          string      `json:"ssid,omitempty"`
	BSSID         string      `json:"bssid,omitempty"`
	Band          Band        `json:"band"`
	Channel       int         `json:"channel,omitempty"`
	Security      Security    `json:"security"`
	RSSI          int         `json:"rssi,omitempty"`
}

// Associated reports whether the snapshot shows a usable link.
func (s LinkStateSnapshot) Associated() bool {
	return s.State == StateAssociated
}

// MarshalText renders the state for JSON and log output.
func (s DriverState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// MarshalText renders the band for JSON and log output.
func (b Band) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

// MarshalText renders the security mode for JSON and log output.
func (s Security) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
