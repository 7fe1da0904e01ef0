package app

import (
	"time"

	"github.com/bft-labs/stationd/internal/domain"
	"github.com/bft-labs/stationd/internal/ports"
)

// NopSink discards all events.
type NopSink struct{}

func (NopSink) OnAttemptStarted(domain.AttemptRecord, int)                                 {}
func (NopSink) OnAttemptResolved(domain.AttemptRecord, int, domain.Outcome, time.Duration) {}
func (NopSink) OnEarlyWarning(domain.AttemptRecord, domain.LinkStateSnapshot)              {}
func (NopSink) OnRecovery(domain.RecoveryAction, error)                                    {}
func (NopSink) OnLinkChange(bool)                                                          {}
func (NopSink) OnLeaseBound(string)                                                        {}

// MultiSink fans events out to several sinks in order.
type MultiSink []ports.EventSink

// NewMultiSink drops nil sinks and returns NopSink when none remain.
func NewMultiSink(sinks ...ports.EventSink) ports.EventSink {
	var m MultiSink
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	switch len(m) {
	case 0:
		return NopSink{}
	case 1:
		return m[0]
	}
	return m
}

func (m MultiSink) OnAttemptStarted(rec domain.AttemptRecord, retry int) {
	for _, s := range m {
		s.OnAttemptStarted(rec, retry)
	}
}

func (m MultiSink) OnAttemptResolved(rec domain.AttemptRecord, retry int, o domain.Outcome, elapsed time.Duration) {
	for _, s := range m {
		s.OnAttemptResolved(rec, retry, o, elapsed)
	}
}

func (m MultiSink) OnEarlyWarning(rec domain.AttemptRecord, snap domain.LinkStateSnapshot) {
	for _, s := range m {
		s.OnEarlyWarning(rec, snap)
	}
}

func (m MultiSink) OnRecovery(a domain.RecoveryAction, err error) {
	for _, s := range m {
		s.OnRecovery(a, err)
	}
}

func (m MultiSink) OnLinkChange(connected bool) {
	for _, s := range m {
		s.OnLinkChange(connected)
	}
}

func (m MultiSink) OnLeaseBound(addr string) {
	for _, s := range m {
		s.OnLeaseBound(addr)
	}
}
