package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxSSIDLength is the 802.11 limit on network name length in bytes.
const MaxSSIDLength = 32

// Credentials describe the single configured network target.
type Credentials struct {
	SSID     string
	Key      string
	Security Security
	Band     Band
}

// ParseSecurity resolves a configured security mode. "auto" picks open when
// key is empty and WPA2-PSK otherwise.
func ParseSecurity(mode, key string) (Security, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		if key == "" {
			return SecurityOpen, nil
		}
		return SecurityWPA2PSK, nil
	case "open", "none":
		return SecurityOpen, nil
	case "wpa2-psk", "wpa2", "psk", "wpa-psk":
		return SecurityWPA2PSK, nil
	case "wpa3-sae", "wpa3", "sae":
		return SecurityWPA3SAE, nil
	default:
		return SecurityOpen, fmt.Errorf("%w: unknown security mode %q", ErrInvalidConfig, mode)
	}
}

// Validate checks the credentials against the security mode.
func (c Credentials) Validate() error {
	if c.SSID == "" {
		return ErrEmptySSID
	}
	if len(c.SSID) > MaxSSIDLength {
		return ErrSSIDTooLong
	}
	switch c.Security {
	case SecurityOpen:
		return nil
	case SecurityWPA2PSK:
		n := len(c.Key)
		if n == 64 {
			if _, err := hex.DecodeString(c.Key); err != nil {
				return fmt.Errorf("%w: 64-character key must be hex", ErrInvalidKey)
			}
			return nil
		}
		if n < 8 || n > 63 {
			return fmt.Errorf("%w: passphrase must be 8..63 characters, got %d", ErrInvalidKey, n)
		}
		return nil
	case SecurityWPA3SAE:
		if c.Key == "" {
			return fmt.Errorf("%w: sae password is empty", ErrInvalidKey)
		}
		return nil
	default:
		return fmt.Errorf("%w: security %d", ErrInvalidConfig, c.Security)
	}
}

// Secured reports whether the target needs key material.
func (c Credentials) Secured() bool {
	return c.Security != SecurityOpen
}

// FallbackVariant names the parameter relaxation used by a sub-attempt.
type FallbackVariant int

const (
	FallbackNone FallbackVariant = iota
	// FallbackRelaxedMFP resubmits with protected management frames optional.
	FallbackRelaxedMFP
)

func (f FallbackVariant) String() string {
	if f == FallbackRelaxedMFP {
		return "relaxed-mfp"
	}
	return "none"
}

// AttemptRecord holds the parameters actually submitted for one connect
// attempt. It lives until the attempt resolves.
type AttemptRecord struct {
	ID          string
	SSID        string
	Key         []byte
	Security    Security
	MFP         MFP
	Band        Band
	Channel     int // 0 means any
	SubmittedAt time.Time
	Fallback    FallbackVariant
}

// NewAttempt builds the record for a fresh submission. An open network
// carries no key material even when a key is configured.
func NewAttempt(c Credentials, now time.Time) (AttemptRecord, error) {
	if err := c.Validate(); err != nil {
		return AttemptRecord{}, err
	}
	rec := AttemptRecord{
		ID:          uuid.NewString(),
		SSID:        c.SSID,
		Security:    c.Security,
		MFP:         MFPDisabled,
		Band:        c.Band,
		SubmittedAt: now,
	}
	if c.Secured() {
		rec.Key = []byte(c.Key)
	}
	return rec, nil
}

// KeyLength returns the number of key bytes submitted.
func (r AttemptRecord) KeyLength() int {
	return len(r.Key)
}

// Secured reports whether the record carries key material.
func (r AttemptRecord) Secured() bool {
	return r.Security != SecurityOpen
}

// CanFallback reports whether one relaxed resubmission is still allowed.
func (r AttemptRecord) CanFallback() bool {
	return r.Secured() && r.Fallback == FallbackNone
}

// WithRelaxedMFP returns a copy submitted at now with MFP optional.
func (r AttemptRecord) WithRelaxedMFP(now time.Time) AttemptRecord {
	r.MFP = MFPOptional
	r.Fallback = FallbackRelaxedMFP
	r.SubmittedAt = now
	return r
}
