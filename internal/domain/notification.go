package domain

import "time"

// NotificationKind identifies an asynchronous driver or network event.
type NotificationKind int

const (
	NotifyConnectResult NotificationKind = iota + 1
	NotifyDisconnectResult
	NotifyLeaseBound
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyConnectResult:
		return "connect-result"
	case NotifyDisconnectResult:
		return "disconnect-result"
	case NotifyLeaseBound:
		return "lease-bound"
	default:
		return "unknown"
	}
}

// Notification is delivered from the driver side into the event observer.
// Status is zero on success; Address is only set for lease-bound events.
type Notification struct {
	Kind    NotificationKind
	Status  int
	Address string
	At      time.Time
}

// ConnectResult builds a connect-result notification.
func ConnectResult(status int, at time.Time) Notification {
	return Notification{Kind: NotifyConnectResult, Status: status, At: at}
}

// DisconnectResult builds a disconnect-result notification.
func DisconnectResult(status int, at time.Time) Notification {
	return Notification{Kind: NotifyDisconnectResult, Status: status, At: at}
}

// LeaseBound builds an address-lease notification.
func LeaseBound(addr string, at time.Time) Notification {
	return Notification{Kind: NotifyLeaseBound, Address: addr, At: at}
}

// StatusRejected is the synthetic status recorded when the driver refuses
// the connect call itself.
const StatusRejected = -1

// Outcome is how a resolved attempt ended.
type Outcome struct {
	Connected bool
	TimedOut  bool
	Status    int
}

// Err classifies a failed outcome. It returns nil for a connected outcome.
func (o Outcome) Err() error {
	switch {
	case o.Connected:
		return nil
	case o.TimedOut:
		return ErrTimeout
	case o.Status == StatusRejected:
		return ErrDriverRejected
	default:
		return ErrAuthFailed
	}
}

// Reason is a short label for logs and metrics.
func (o Outcome) Reason() string {
	switch {
	case o.Connected:
		return "connected"
	case o.TimedOut:
		return "timeout"
	case o.Status == StatusRejected:
		return "rejected"
	default:
		return "auth-failed"
	}
}
