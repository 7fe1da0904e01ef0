package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/stationd/internal/domain"
)

func TestSink_Attempts(t *testing.T) {
	s := New()
	rec := domain.AttemptRecord{}

	s.OnAttemptStarted(rec, 3)
	s.OnAttemptResolved(rec, 3, domain.Outcome{Connected: true}, 2*time.Second)
	s.OnAttemptResolved(rec, 4, domain.Outcome{TimedOut: true}, 35*time.Second)
	s.OnAttemptResolved(rec, 5, domain.Outcome{TimedOut: true}, 35*time.Second)

	assert.Equal(t, 3.0, testutil.ToFloat64(s.retry))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.attempts.WithLabelValues("connected")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.attempts.WithLabelValues("timeout")))

	families, err := s.Registry().Gather()
	require.NoError(t, err)
	var samples uint64
	for _, mf := range families {
		if mf.GetName() == "stationd_attempt_duration_seconds" {
			samples = mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	assert.Equal(t, uint64(3), samples)
}

func TestSink_RecoveryAndLink(t *testing.T) {
	s := New()

	s.OnRecovery(domain.SoftInterfaceReset, nil)
	s.OnRecovery(domain.PowerCycleReset, errors.New("gpio"))
	s.OnLinkChange(true)
	s.OnEarlyWarning(domain.AttemptRecord{}, domain.LinkStateSnapshot{})
	s.OnLeaseBound("10.0.0.2")

	assert.Equal(t, 1.0, testutil.ToFloat64(s.recoveries.WithLabelValues(domain.SoftInterfaceReset.String(), "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.recoveries.WithLabelValues(domain.PowerCycleReset.String(), "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.connected))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.earlyWarnings))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.leases))

	s.OnLinkChange(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(s.connected))
}

func TestSink_Handler(t *testing.T) {
	s := New()
	s.OnLinkChange(true)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "stationd_connected 1"))
}
