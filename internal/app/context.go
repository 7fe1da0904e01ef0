package app

import (
	"sync"
	"time"

	"github.com/bft-labs/stationd/internal/domain"
)

// DisconnectKind classifies a disconnect-result notification.
type DisconnectKind int

const (
	// DisconnectRequested answers a disconnect the orchestrator asked for.
	DisconnectRequested DisconnectKind = iota
	// DisconnectUnsolicited is a link drop nobody asked for.
	DisconnectUnsolicited
)

func (k DisconnectKind) String() string {
	if k == DisconnectRequested {
		return "requested"
	}
	return "unsolicited"
}

// ConnectionStatus is a point-in-time copy of the connection context.
type ConnectionStatus struct {
	Connected           bool      `json:"connected"`
	ResultPending       bool      `json:"result_pending"`
	DisconnectRequested bool      `json:"disconnect_requested"`
	TimedOut            bool      `json:"timed_out"`
	Held                bool      `json:"held"`
	RetryCount          int       `json:"retry_count"`
	AttemptStartedAt    time.Time `json:"attempt_started_at"`
	Generation          uint64    `json:"generation"`
	Address             string    `json:"address,omitempty"`
}

// ConnectionContext is the connection state shared by the orchestrator, the
// event observer and the timeout guard. Every method is a single atomic
// read-then-act step under one mutex.
//
// Each attempt is identified by a generation. Once an attempt resolves it is
// no longer in flight and later results or deadlines for it are ignored.
type ConnectionContext struct {
	mu sync.Mutex

	connected           bool
	resultPending       bool
	disconnectRequested bool
	timedOut            bool
	retryCount          int
	attemptStartedAt    time.Time

	result   domain.Outcome
	gen      uint64
	inFlight bool
	held     bool
	address  string
}

// NewConnectionContext returns a context in its zero state.
func NewConnectionContext() *ConnectionContext {
	return &ConnectionContext{}
}

// Reset returns the context to its zero state. The generation keeps
// counting so callbacks armed before the reset stay stale.
func (c *ConnectionContext) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.resultPending = false
	c.disconnectRequested = false
	c.timedOut = false
	c.retryCount = 0
	c.attemptStartedAt = time.Time{}
	c.result = domain.Outcome{}
	c.inFlight = false
	c.held = false
	c.address = ""
}

// BeginAttempt starts a new retry cycle. It returns the attempt generation
// and the retry count after incrementing it.
func (c *ConnectionContext) BeginAttempt(now time.Time) (uint64, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryCount++
	c.attemptStartedAt = now
	c.connected = false
	c.resultPending = false
	c.timedOut = false
	c.result = domain.Outcome{}
	c.gen++
	c.inFlight = true
	return c.gen, c.retryCount
}

// ReopenAttempt starts a fallback sub-attempt within the current retry
// cycle. retry_count is unchanged.
func (c *ConnectionContext) ReopenAttempt(now time.Time) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attemptStartedAt = now
	c.resultPending = false
	c.timedOut = false
	c.result = domain.Outcome{}
	c.gen++
	c.inFlight = true
	return c.gen
}

// ApplyConnectResult folds a connect-result notification into the context.
// It returns false when the result was ignored: the link is already up or
// no attempt is in flight.
func (c *ConnectionContext) ApplyConnectResult(status int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected || !c.inFlight {
		return false
	}
	c.connected = status == 0
	c.result = domain.Outcome{Connected: c.connected, Status: status}
	c.resultPending = true
	c.inFlight = false
	return true
}

// Fail resolves attempt gen as failed without a notification, as when the
// driver refuses the connect call.
func (c *ConnectionContext) Fail(gen uint64, status int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inFlight || c.gen != gen {
		return false
	}
	c.connected = false
	c.result = domain.Outcome{Status: status}
	c.resultPending = true
	c.inFlight = false
	return true
}

// ForceTimeout resolves attempt gen as timed out. A deadline belonging to an
// attempt that already resolved is a no-op.
func (c *ConnectionContext) ForceTimeout(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inFlight || c.gen != gen {
		return false
	}
	c.timedOut = true
	c.result = domain.Outcome{TimedOut: true}
	c.resultPending = true
	c.inFlight = false
	return true
}

// TakeResult consumes a pending result. The outcome is the one fixed when
// the attempt resolved; result_pending is cleared in the same critical
// section.
func (c *ConnectionContext) TakeResult() (domain.Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.resultPending {
		return domain.Outcome{}, false
	}
	c.resultPending = false
	return c.result, true
}

// InFlight reports whether attempt gen is still unresolved.
func (c *ConnectionContext) InFlight(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight && c.gen == gen
}

// IsConnected reports whether the link is up.
func (c *ConnectionContext) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// RequestDisconnect marks the next disconnect-result as expected.
func (c *ConnectionContext) RequestDisconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectRequested = true
}

// AbandonDisconnect clears a request the driver refused.
func (c *ConnectionContext) AbandonDisconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectRequested = false
}

// ApplyDisconnectResult folds a disconnect-result notification into the
// context and reports whether it answered a request.
func (c *ConnectionContext) ApplyDisconnectResult(status int) DisconnectKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disconnectRequested {
		c.disconnectRequested = false
		if status == 0 {
			c.connected = false
		}
		return DisconnectRequested
	}
	c.connected = false
	return DisconnectUnsolicited
}

// Hold keeps the orchestrator from starting new attempts.
func (c *ConnectionContext) Hold() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.held = true
}

// Release undoes Hold.
func (c *ConnectionContext) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.held = false
}

// Held reports whether new attempts are on hold.
func (c *ConnectionContext) Held() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held
}

// Idle reports whether the orchestrator should start another attempt.
func (c *ConnectionContext) Idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.connected && !c.held
}

// RetryCount returns the number of attempts in the current retry cycle.
func (c *ConnectionContext) RetryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retryCount
}

// ResetRetries sets retry_count back to zero.
func (c *ConnectionContext) ResetRetries() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retryCount = 0
}

func (c *ConnectionContext) setAddress(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.address = addr
}

// Snapshot returns a copy of the current state.
func (c *ConnectionContext) Snapshot() ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ConnectionStatus{
		Connected:           c.connected,
		ResultPending:       c.resultPending,
		DisconnectRequested: c.disconnectRequested,
		TimedOut:            c.timedOut,
		Held:                c.held,
		RetryCount:          c.retryCount,
		AttemptStartedAt:    c.attemptStartedAt,
		Generation:          c.gen,
		Address:             c.address,
	}
}
