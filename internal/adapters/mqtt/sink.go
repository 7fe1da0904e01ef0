// Package mqtt publishes connection lifecycle events to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/bft-labs/stationd/internal/domain"
	"github.com/bft-labs/stationd/pkg/log"
)

// Config selects the broker and topic prefix.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// Publisher is the part of a paho client the sink uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Sink publishes each event as a JSON document under Topic.
type Sink struct {
	pub     Publisher
	topic   string
	qos     byte
	timeout time.Duration
	logger  log.Logger
	now     func() time.Time
}

// NewSink wraps an already connected publisher.
func NewSink(pub Publisher, topic string, qos byte, logger log.Logger) *Sink {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	if topic == "" {
		topic = "stationd"
	}
	return &Sink{
		pub:     pub,
		topic:   topic,
		qos:     qos,
		timeout: 5 * time.Second,
		logger:  log.Component(logger, "mqtt"),
		now:     time.Now,
	}
}

// Connect dials the broker and returns a sink plus the client to
// disconnect on shutdown.
func Connect(ctx context.Context, cfg Config, logger log.Logger) (*Sink, paho.Client, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("%s-%d", path.Base(os.Args[0]), os.Getpid())
	}
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	client := paho.NewClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		client.Disconnect(250)
		return nil, nil, ctx.Err()
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("connect %s: %w", cfg.Broker, err)
	}
	return NewSink(client, cfg.Topic, cfg.QoS, logger), client, nil
}

type attemptEvent struct {
	At        time.Time `json:"at"`
	ID        string    `json:"id"`
	SSID      string    `json:"ssid"`
	Retry     int       `json:"retry"`
	Security  string    `json:"security"`
	Fallback  string    `json:"fallback,omitempty"`
	Outcome   string    `json:"outcome,omitempty"`
	Status    int       `json:"status,omitempty"`
	ElapsedMS int64     `json:"elapsed_ms,omitempty"`
}

type warningEvent struct {
	At    time.Time                `json:"at"`
	SSID  string                   `json:"ssid"`
	State domain.LinkStateSnapshot `json:"link"`
}

type recoveryEvent struct {
	At     time.Time `json:"at"`
	Action string    `json:"action"`
	Error  string    `json:"error,omitempty"`
}

type linkEvent struct {
	At        time.Time `json:"at"`
	Connected bool      `json:"connected"`
}

type leaseEvent struct {
	At      time.Time `json:"at"`
	Address string    `json:"address"`
}

func (s *Sink) OnAttemptStarted(rec domain.AttemptRecord, retry int) {
	s.publish("attempt", attemptEvent{
		At:       s.now(),
		ID:       rec.ID,
		SSID:     rec.SSID,
		Retry:    retry,
		Security: rec.Security.String(),
		Fallback: fallbackLabel(rec),
	})
}

func (s *Sink) OnAttemptResolved(rec domain.AttemptRecord, retry int, o domain.Outcome, elapsed time.Duration) {
	s.publish("outcome", attemptEvent{
		At:        s.now(),
		ID:        rec.ID,
		SSID:      rec.SSID,
		Retry:     retry,
		Security:  rec.Security.String(),
		Fallback:  fallbackLabel(rec),
		Outcome:   o.Reason(),
		Status:    o.Status,
		ElapsedMS: elapsed.Milliseconds(),
	})
}

func (s *Sink) OnEarlyWarning(rec domain.AttemptRecord, snap domain.LinkStateSnapshot) {
	s.publish("warning", warningEvent{At: s.now(), SSID: rec.SSID, State: snap})
}

func (s *Sink) OnRecovery(a domain.RecoveryAction, err error) {
	ev := recoveryEvent{At: s.now(), Action: a.String()}
	if err != nil {
		ev.Error = err.Error()
	}
	s.publish("recovery", ev)
}

func (s *Sink) OnLinkChange(connected bool) {
	s.publish("link", linkEvent{At: s.now(), Connected: connected})
}

func (s *Sink) OnLeaseBound(addr string) {
	s.publish("lease", leaseEvent{At: s.now(), Address: addr})
}

// publish never blocks the caller; delivery errors are logged.
func (s *Sink) publish(suffix string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("encode event", log.String("topic", suffix), log.Err(err))
		return
	}
	topic := s.topic + "/" + suffix
	token := s.pub.Publish(topic, s.qos, suffix == "link", payload)
	go func() {
		if !token.WaitTimeout(s.timeout) {
			s.logger.Warn("publish timed out", log.String("topic", topic))
			return
		}
		if err := token.Error(); err != nil {
			s.logger.Warn("publish failed", log.String("topic", topic), log.Err(err))
		}
	}()
}

func fallbackLabel(rec domain.AttemptRecord) string {
	if rec.Fallback == domain.FallbackNone {
		return ""
	}
	return rec.Fallback.String()
}
