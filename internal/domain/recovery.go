package domain

// RecoveryAction is the remediation chosen after a failed or stuck attempt.
type RecoveryAction int

const (
	RecoveryNone RecoveryAction = iota
	// SoftInterfaceReset bounces the network interface.
	SoftInterfaceReset
	// PowerCycleReset power-cycles the radio hardware.
	PowerCycleReset
)

func (a RecoveryAction) String() string {
	switch a {
	case SoftInterfaceReset:
		return "soft-interface-reset"
	case PowerCycleReset:
		return "power-cycle-reset"
	default:
		return "none"
	}
}

// ChooseRecovery picks the remediation for a failure observed with snap.
// A driver stuck mid-scan is considered wedged and gets the hardware path.
func ChooseRecovery(snap LinkStateSnapshot) RecoveryAction {
	if snap.State == StateScanning {
		return PowerCycleReset
	}
	return SoftInterfaceReset
}
