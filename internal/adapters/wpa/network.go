package wpa

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/bft-labs/stationd/internal/domain"
)

// wpa_supplicant interface states as reported by the State property.
const (
	stateDisabled       = "interface_disabled"
	stateDisconnected   = "disconnected"
	stateInactive       = "inactive"
	stateScanning       = "scanning"
	stateAuthenticating = "authenticating"
	stateAssociating    = "associating"
	stateAssociated     = "associated"
	stateFourWay        = "4way_handshake"
	stateGroupHandshake = "group_handshake"
	stateCompleted      = "completed"
)

// mapState converts a supplicant state to the coarse driver state.
func mapState(s string) domain.DriverState {
	switch s {
	case stateDisabled:
		return domain.StateDisabled
	case stateDisconnected, stateInactive:
		return domain.StateIdle
	case stateScanning:
		return domain.StateScanning
	case stateAuthenticating, stateAssociating, stateAssociated, stateFourWay, stateGroupHandshake:
		return domain.StateAssociating
	case stateCompleted:
		return domain.StateAssociated
	default:
		return domain.StateUnknown
	}
}

var (
	channels24 = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}
	channels5  = []int{36, 40, 44, 48, 52, 56, 60, 64, 100, 104, 108, 112, 116, 120, 124, 128, 132, 136, 140, 144, 149, 153, 157, 161, 165}
)

// freqList renders the freq_list network option for band, or "" for any.
func freqList(band domain.Band) string {
	var freqs []string
	switch band {
	case domain.Band2_4GHz:
		for _, ch := range channels24 {
			freqs = append(freqs, strconv.Itoa(2407+5*ch))
		}
	case domain.Band5GHz:
		for _, ch := range channels5 {
			freqs = append(freqs, strconv.Itoa(5000+5*ch))
		}
	default:
		return ""
	}
	return strings.Join(freqs, " ")
}

// networkConfig builds the AddNetwork argument for rec.
func networkConfig(rec domain.AttemptRecord) (map[string]dbus.Variant, error) {
	cfg := map[string]dbus.Variant{
		"ssid":      dbus.MakeVariant(rec.SSID),
		"scan_ssid": dbus.MakeVariant(uint32(1)),
	}

	mfp := rec.MFP
	switch rec.Security {
	case domain.SecurityOpen:
		cfg["key_mgmt"] = dbus.MakeVariant("NONE")
	case domain.SecurityWPA2PSK:
		cfg["key_mgmt"] = dbus.MakeVariant("WPA-PSK")
		cfg["psk"] = dbus.MakeVariant(string(rec.Key))
	case domain.SecurityWPA3SAE:
		cfg["key_mgmt"] = dbus.MakeVariant("SAE")
		cfg["sae_password"] = dbus.MakeVariant(string(rec.Key))
		// SAE mandates protected management frames unless relaxed.
		if mfp == domain.MFPDisabled {
			mfp = domain.MFPRequired
		}
	default:
		return nil, fmt.Errorf("%w: security %v", domain.ErrInvalidConfig, rec.Security)
	}
	cfg["ieee80211w"] = dbus.MakeVariant(uint32(mfp))

	if fl := freqList(rec.Band); fl != "" {
		cfg["freq_list"] = dbus.MakeVariant(fl)
	}
	if rec.Channel > 0 {
		cfg["frequency"] = dbus.MakeVariant(int32(channelFrequency(rec.Band, rec.Channel)))
	}
	return cfg, nil
}

func channelFrequency(band domain.Band, ch int) int {
	switch {
	case band == domain.Band2_4GHz && ch == 14:
		return 2484
	case band == domain.Band2_4GHz || (band == domain.BandAny && ch <= 14):
		return 2407 + 5*ch
	case band == domain.Band6GHz:
		return 5950 + 5*ch
	default:
		return 5000 + 5*ch
	}
}

// variantAs extracts a typed value from a property map.
func variantAs[T any](props map[string]dbus.Variant, key string) (T, bool) {
	var zero T
	v, ok := props[key]
	if !ok {
		return zero, false
	}
	val, ok := v.Value().(T)
	return val, ok
}
