// Package metrics exports connection lifecycle events as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bft-labs/stationd/internal/domain"
)

const namespace = "stationd"

// Sink is an EventSink backed by a private registry.
type Sink struct {
	registry *prometheus.Registry

	attempts      *prometheus.CounterVec
	attemptTime   prometheus.Histogram
	earlyWarnings prometheus.Counter
	recoveries    *prometheus.CounterVec
	connected     prometheus.Gauge
	retry         prometheus.Gauge
	leases        prometheus.Counter
}

// New registers the station metrics on a fresh registry.
func New() *Sink {
	s := &Sink{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Resolved connection attempts by outcome.",
		}, []string{"outcome"}),
		attemptTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "attempt_duration_seconds",
			Help:      "Time from submission to resolution.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 35, 60},
		}),
		earlyWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "early_warnings_total",
			Help:      "Attempts still pending at the early warning deadline.",
		}),
		recoveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recoveries_total",
			Help:      "Recovery actions by kind and result.",
		}, []string{"action", "result"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected",
			Help:      "1 while the station link is up.",
		}),
		retry: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "retry_count",
			Help:      "Retry counter of the most recent attempt.",
		}),
		leases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leases_total",
			Help:      "Address leases bound.",
		}),
	}
	s.registry.MustRegister(
		s.attempts, s.attemptTime, s.earlyWarnings, s.recoveries,
		s.connected, s.retry, s.leases,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return s
}

// Registry exposes the underlying registry.
func (s *Sink) Registry() *prometheus.Registry { return s.registry }

// Handler serves the registry in the Prometheus exposition format.
func (s *Sink) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func (s *Sink) OnAttemptStarted(_ domain.AttemptRecord, retry int) {
	s.retry.Set(float64(retry))
}

func (s *Sink) OnAttemptResolved(_ domain.AttemptRecord, _ int, o domain.Outcome, elapsed time.Duration) {
	s.attempts.WithLabelValues(o.Reason()).Inc()
	s.attemptTime.Observe(elapsed.Seconds())
}

func (s *Sink) OnEarlyWarning(domain.AttemptRecord, domain.LinkStateSnapshot) {
	s.earlyWarnings.Inc()
}

func (s *Sink) OnRecovery(a domain.RecoveryAction, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.recoveries.WithLabelValues(a.String(), result).Inc()
}

func (s *Sink) OnLinkChange(connected bool) {
	if connected {
		s.connected.Set(1)
		return
	}
	s.connected.Set(0)
}

func (s *Sink) OnLeaseBound(string) {
	s.leases.Inc()
}
