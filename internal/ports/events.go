package ports

import (
	"time"

	"github.com/bft-labs/stationd/internal/domain"
)

// EventSink receives connection lifecycle events. Implementations must not
// block; they are called from the orchestrator and observer goroutines.
type EventSink interface {
	OnAttemptStarted(rec domain.AttemptRecord, retry int)
	OnAttemptResolved(rec domain.AttemptRecord, retry int, outcome domain.Outcome, elapsed time.Duration)
	OnEarlyWarning(rec domain.AttemptRecord, snap domain.LinkStateSnapshot)
	OnRecovery(action domain.RecoveryAction, err error)
	OnLinkChange(connected bool)
	OnLeaseBound(addr string)
}
