package wpa

import (
	"strings"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/stationd/internal/domain"
	"github.com/bft-labs/stationd/pkg/log"
)

func TestMapState(t *testing.T) {
	tests := map[string]domain.DriverState{
		"interface_disabled": domain.StateDisabled,
		"disconnected":       domain.StateIdle,
		"inactive":           domain.StateIdle,
		"scanning":           domain.StateScanning,
		"authenticating":     domain.StateAssociating,
		"4way_handshake":     domain.StateAssociating,
		"completed":          domain.StateAssociated,
		"bogus":              domain.StateUnknown,
	}
	for in, want := range tests {
		assert.Equal(t, want, mapState(in), in)
	}
}

func TestNetworkConfig(t *testing.T) {
	t.Run("open", func(t *testing.T) {
		rec, err := domain.NewAttempt(domain.Credentials{SSID: "LabNet"}, time.Now())
		require.NoError(t, err)
		cfg, err := networkConfig(rec)
		require.NoError(t, err)

		assert.Equal(t, "NONE", cfg["key_mgmt"].Value())
		assert.NotContains(t, cfg, "psk")
		assert.Equal(t, uint32(0), cfg["ieee80211w"].Value())
		assert.NotContains(t, cfg, "freq_list")
	})

	t.Run("wpa2 relaxed", func(t *testing.T) {
		rec, err := domain.NewAttempt(domain.Credentials{
			SSID: "LabNet", Key: "secret123", Security: domain.SecurityWPA2PSK, Band: domain.Band2_4GHz,
		}, time.Now())
		require.NoError(t, err)
		cfg, err := networkConfig(rec.WithRelaxedMFP(time.Now()))
		require.NoError(t, err)

		assert.Equal(t, "WPA-PSK", cfg["key_mgmt"].Value())
		assert.Equal(t, "secret123", cfg["psk"].Value())
		assert.Equal(t, uint32(1), cfg["ieee80211w"].Value())
		fl, _ := cfg["freq_list"].Value().(string)
		assert.True(t, strings.HasPrefix(fl, "2412 2417"), fl)
	})

	t.Run("sae requires mfp", func(t *testing.T) {
		rec, err := domain.NewAttempt(domain.Credentials{SSID: "LabNet", Key: "pw", Security: domain.SecurityWPA3SAE}, time.Now())
		require.NoError(t, err)
		cfg, err := networkConfig(rec)
		require.NoError(t, err)

		assert.Equal(t, "SAE", cfg["key_mgmt"].Value())
		assert.Equal(t, uint32(2), cfg["ieee80211w"].Value())
	})
}

func TestFreqList(t *testing.T) {
	assert.Empty(t, freqList(domain.BandAny))
	assert.True(t, strings.HasSuffix(freqList(domain.Band5GHz), "5825"))
}

func changes(kv ...interface{}) map[string]dbus.Variant {
	m := map[string]dbus.Variant{}
	for i := 0; i < len(kv); i += 2 {
		m[kv[i].(string)] = dbus.MakeVariant(kv[i+1])
	}
	return m
}

func TestApplyChanges(t *testing.T) {
	now := time.Now()
	d := &Driver{logger: log.NoopLogger{}, state: stateDisconnected, pending: true}

	assert.Empty(t, d.applyChanges(changes("State", stateScanning), now))
	assert.Empty(t, d.applyChanges(changes("State", stateAssociating), now))

	got := d.applyChanges(changes("State", stateDisconnected, "DisconnectReason", int32(-15)), now)
	require.Len(t, got, 1)
	assert.Equal(t, domain.NotifyConnectResult, got[0].Kind)
	assert.Equal(t, 15, got[0].Status)

	assert.Empty(t, d.applyChanges(changes("DisconnectReason", int32(3)), now), "no attempt pending")

	d.pending = true
	got = d.applyChanges(changes("State", stateCompleted), now)
	require.Len(t, got, 1)
	assert.Equal(t, domain.ConnectResult(0, now), got[0])

	assert.Empty(t, d.applyChanges(changes("State", stateFourWay), now), "rekey is not a drop")
	assert.Empty(t, d.applyChanges(changes("State", stateCompleted), now))

	got = d.applyChanges(changes("State", stateDisconnected), now)
	require.Len(t, got, 1)
	assert.Equal(t, domain.NotifyDisconnectResult, got[0].Kind)
}

func TestApplyBSS(t *testing.T) {
	var snap domain.LinkStateSnapshot
	applyBSS(&snap, changes(
		"SSID", []byte("LabNet"),
		"BSSID", []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01},
		"Frequency", uint16(5180),
		"Signal", int16(-61),
	))

	assert.Equal(t, "LabNet", snap.SSID)
	assert.Equal(t, "de:ad:be:ef:00:01", snap.BSSID)
	assert.Equal(t, domain.Band5GHz, snap.Band)
	assert.Equal(t, 36, snap.Channel)
	assert.Equal(t, -61, snap.RSSI)
}
