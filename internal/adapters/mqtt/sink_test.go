package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/stationd/internal/domain"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, message{topic: topic, retained: retained, payload: payload.([]byte)})
	return doneToken{err: p.err}
}

func (p *fakePublisher) last(t *testing.T) message {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.msgs)
	return p.msgs[len(p.msgs)-1]
}

func newTestSink(pub Publisher) *Sink {
	s := NewSink(pub, "home/station", 1, nil)
	s.now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func TestSink_AttemptTopics(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestSink(pub)
	rec := domain.AttemptRecord{ID: "a1", SSID: "lab", Security: domain.SecurityWPA2PSK}

	s.OnAttemptStarted(rec, 2)
	msg := pub.last(t)
	assert.Equal(t, "home/station/attempt", msg.topic)
	assert.False(t, msg.retained)

	s.OnAttemptResolved(rec.WithRelaxedMFP(time.Now()), 2, domain.Outcome{Status: 15}, 1500*time.Millisecond)
	msg = pub.last(t)
	assert.Equal(t, "home/station/outcome", msg.topic)

	var ev map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &ev))
	assert.Equal(t, "a1", ev["id"])
	assert.Equal(t, "auth-failed", ev["outcome"])
	assert.Equal(t, "relaxed-mfp", ev["fallback"])
	assert.EqualValues(t, 15, ev["status"])
	assert.EqualValues(t, 1500, ev["elapsed_ms"])
	assert.NotContains(t, string(msg.payload), "key")
}

func TestSink_LinkIsRetained(t *testing.T) {
	pub := &fakePublisher{}
	s := newTestSink(pub)

	s.OnLinkChange(true)
	msg := pub.last(t)
	assert.Equal(t, "home/station/link", msg.topic)
	assert.True(t, msg.retained)
	assert.JSONEq(t, `{"at":"2025-01-01T00:00:00Z","connected":true}`, string(msg.payload))
}

func TestSink_RecoveryAndLease(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker gone")}
	s := newTestSink(pub)

	s.OnRecovery(domain.PowerCycleReset, errors.New("gpio write"))
	msg := pub.last(t)
	assert.Equal(t, "home/station/recovery", msg.topic)
	assert.JSONEq(t, `{"at":"2025-01-01T00:00:00Z","action":"power-cycle-reset","error":"gpio write"}`, string(msg.payload))

	s.OnLeaseBound("192.168.4.20")
	msg = pub.last(t)
	assert.Equal(t, "home/station/lease", msg.topic)
	assert.JSONEq(t, `{"at":"2025-01-01T00:00:00Z","address":"192.168.4.20"}`, string(msg.payload))
}

func TestNewSink_DefaultTopic(t *testing.T) {
	pub := &fakePublisher{}
	s := NewSink(pub, "", 0, nil)
	s.OnLeaseBound("10.0.0.1")
	assert.Equal(t, "stationd/lease", pub.last(t).topic)
}
