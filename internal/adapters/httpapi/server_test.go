package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/stationd/internal/app"
	"github.com/bft-labs/stationd/internal/domain"
)

type fakeController struct {
	status        app.ConnectionStatus
	probeErr      error
	disconnectErr error
	reconnects    int
}

func (f *fakeController) Status() app.ConnectionStatus { return f.status }
func (f *fakeController) Stats() domain.Stats          { return domain.Stats{Attempts: 4, Successes: 1} }

func (f *fakeController) Probe(context.Context) (domain.LinkStateSnapshot, error) {
	if f.probeErr != nil {
		return domain.LinkStateSnapshot{}, f.probeErr
	}
	return domain.LinkStateSnapshot{State: domain.StateAssociated, SSID: "lab", Channel: 36}, nil
}

func (f *fakeController) Disconnect(context.Context) error { return f.disconnectErr }
func (f *fakeController) Reconnect()                       { f.reconnects++ }

func do(t *testing.T, s *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestServer_Status(t *testing.T) {
	ctrl := &fakeController{status: app.ConnectionStatus{Connected: true, RetryCount: 2, Address: "10.0.0.7"}}
	s := NewServer(ctrl, nil, nil)

	rec := do(t, s, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Connection.Connected)
	assert.Equal(t, 2, resp.Connection.RetryCount)
	assert.Equal(t, "10.0.0.7", resp.Connection.Address)
	assert.Equal(t, uint64(4), resp.Stats.Attempts)
	require.NotNil(t, resp.Link)
	assert.Equal(t, "lab", resp.Link.SSID)
	assert.Empty(t, resp.LinkError)
}

func TestServer_StatusProbeError(t *testing.T) {
	s := NewServer(&fakeController{probeErr: errors.New("bus down")}, nil, nil)

	rec := do(t, s, http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Link)
	assert.Equal(t, "bus down", resp.LinkError)
}

func TestServer_Disconnect(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"accepted", nil, http.StatusAccepted},
		{"not connected", domain.ErrNotConnected, http.StatusConflict},
		{"driver rejected", domain.ErrDriverRejected, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(&fakeController{disconnectErr: tt.err}, nil, nil)
			rec := do(t, s, http.MethodPost, "/disconnect")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestServer_Reconnect(t *testing.T) {
	ctrl := &fakeController{}
	s := NewServer(ctrl, nil, nil)

	rec := do(t, s, http.MethodPost, "/reconnect")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, ctrl.reconnects)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("stationd_connected 1\n"))
	})
	s := NewServer(&fakeController{}, metrics, nil)

	rec := do(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stationd_connected 1\n", rec.Body.String())
}

func TestServer_NoMetricsRoute(t *testing.T) {
	s := NewServer(&fakeController{}, nil, nil)
	rec := do(t, s, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
