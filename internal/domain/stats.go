package domain

import "time"

// Stats are connection counters persisted across restarts.
type Stats struct {
	Attempts          uint64    `json:"attempts"`
	Successes         uint64    `json:"successes"`
	Failures          uint64    `json:"failures"`
	Timeouts          uint64    `json:"timeouts"`
	Fallbacks         uint64    `json:"fallbacks"`
	SoftResets        uint64    `json:"soft_resets"`
	PowerCycles       uint64    `json:"power_cycles"`
	LastConnectedAt   time.Time `json:"last_connected_at,omitempty"`
	LastFailureAt     time.Time `json:"last_failure_at,omitempty"`
	LastFailureReason string    `json:"last_failure_reason,omitempty"`
}

// RecordOutcome folds a resolved attempt into the counters.
func (s *Stats) RecordOutcome(o Outcome, at time.Time) {
	s.Attempts++
	if o.Connected {
		s.Successes++
		s.LastConnectedAt = at
		return
	}
	s.Failures++
	if o.TimedOut {
		s.Timeouts++
	}
	s.LastFailureAt = at
	s.LastFailureReason = o.Reason()
}

// RecordRecovery counts an executed remediation.
func (s *Stats) RecordRecovery(a RecoveryAction) {
	switch a {
	case SoftInterfaceReset:
		s.SoftResets++
	case PowerCycleReset:
		s.PowerCycles++
	}
}
