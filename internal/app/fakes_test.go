package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/stationd/internal/domain"
)

var errRefused = errors.New("refused")

// fakeDriver records every call. onConnect decides what happens to the
// n-th submission (1-based): it may return an error or publish
// notifications on bus.
type fakeDriver struct {
	mu        sync.Mutex
	bus       *Bus
	state     domain.DriverState
	calls     []string
	submitted []domain.AttemptRecord
	onConnect func(d *fakeDriver, rec domain.AttemptRecord, n int) error
}

func newFakeDriver(bus *Bus) *fakeDriver {
	return &fakeDriver{bus: bus, state: domain.StateIdle}
}

func (d *fakeDriver) record(call string) {
	d.mu.Lock()
	d.calls = append(d.calls, call)
	d.mu.Unlock()
}

func (d *fakeDriver) SubmitConnect(ctx context.Context, rec domain.AttemptRecord) error {
	d.mu.Lock()
	d.calls = append(d.calls, "connect")
	d.submitted = append(d.submitted, rec)
	n := len(d.submitted)
	fn := d.onConnect
	d.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(d, rec, n)
}

func (d *fakeDriver) SubmitDisconnect(ctx context.Context) error {
	d.record("disconnect")
	d.notify(domain.DisconnectResult(0, time.Time{}))
	return nil
}

func (d *fakeDriver) QueryStatus(ctx context.Context) (domain.LinkStateSnapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return domain.LinkStateSnapshot{State: d.state, SSID: "LabNet"}, nil
}

func (d *fakeDriver) InterfaceUp(ctx context.Context) error {
	d.record("up")
	return nil
}

func (d *fakeDriver) InterfaceDown(ctx context.Context) error {
	d.record("down")
	return nil
}

func (d *fakeDriver) InterfaceCarrierOn(ctx context.Context) error {
	d.record("carrier")
	d.setState(domain.StateIdle)
	return nil
}

func (d *fakeDriver) setState(s domain.DriverState) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// notify delivers n asynchronously, the way a real driver callback would.
func (d *fakeDriver) notify(n domain.Notification) {
	go func() { _ = d.bus.Publish(context.Background(), n) }()
}

func (d *fakeDriver) Submitted() []domain.AttemptRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.AttemptRecord(nil), d.submitted...)
}

func (d *fakeDriver) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDriver) count(call string) int {
	n := 0
	for _, c := range d.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

// fakePower records power cycles into the driver's call log.
type fakePower struct {
	driver *fakeDriver
	err    error
}

func (p *fakePower) PowerCycle(ctx context.Context) error {
	p.driver.record("power")
	return p.err
}

type readyNow struct{}

func (readyNow) WaitReady(ctx context.Context) error { return nil }

type resolved struct {
	rec     domain.AttemptRecord
	retry   int
	outcome domain.Outcome
}

// recordingSink captures events for assertions.
type recordingSink struct {
	mu         sync.Mutex
	started    []int
	resolved   []resolved
	warnings   []domain.LinkStateSnapshot
	recoveries []domain.RecoveryAction
	links      []bool
	leases     []string
}

func (s *recordingSink) OnAttemptStarted(rec domain.AttemptRecord, retry int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, retry)
}

func (s *recordingSink) OnAttemptResolved(rec domain.AttemptRecord, retry int, o domain.Outcome, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved = append(s.resolved, resolved{rec, retry, o})
}

func (s *recordingSink) OnEarlyWarning(rec domain.AttemptRecord, snap domain.LinkStateSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, snap)
}

func (s *recordingSink) OnRecovery(a domain.RecoveryAction, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recoveries = append(s.recoveries, a)
}

func (s *recordingSink) OnLinkChange(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = append(s.links, connected)
}

func (s *recordingSink) OnLeaseBound(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leases = append(s.leases, addr)
}

func (s *recordingSink) Started() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.started...)
}

func (s *recordingSink) Resolved() []resolved {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]resolved(nil), s.resolved...)
}

func (s *recordingSink) Recoveries() []domain.RecoveryAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RecoveryAction(nil), s.recoveries...)
}

func (s *recordingSink) Warnings() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.warnings)
}

func (s *recordingSink) Leases() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.leases...)
}

// memRepo is an in-memory StateRepository.
type memRepo struct {
	mu    sync.Mutex
	stats domain.Stats
	saves int
}

func (r *memRepo) Load(ctx context.Context) (domain.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats, nil
}

func (r *memRepo) Save(ctx context.Context, s domain.Stats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = s
	r.saves++
	return nil
}

// harness runs an orchestrator against fakes with every delay zeroed, so
// only the attempt deadlines and the cooldown depend on the fake clock.
type harness struct {
	t      *testing.T
	clock  *clockwork.FakeClock
	bus    *Bus
	driver *fakeDriver
	power  *fakePower
	sink   *recordingSink
	repo   *memRepo
	orch   *Orchestrator
	cancel context.CancelFunc
	done   chan error
}

func testConfig(creds domain.Credentials) Config {
	cfg := DefaultConfig(creds)
	cfg.PollInterval = time.Hour
	cfg.StatusLogInterval = time.Hour
	cfg.RecoveryBackoff = 0
	cfg.StartupDelay = 0
	cfg.PreAttemptDelay = 0
	cfg.Cooldown = time.Hour
	cfg.Recovery = RecoveryConfig{}
	return cfg
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		clock: clockwork.NewFakeClock(),
		bus:   NewBus(DefaultBusCapacity),
		sink:  &recordingSink{},
		repo:  &memRepo{},
	}
	h.driver = newFakeDriver(h.bus)
	h.power = &fakePower{driver: h.driver}

	orch, err := NewOrchestrator(cfg, Dependencies{
		Driver:    h.driver,
		Power:     h.power,
		Ready:     readyNow{},
		StateRepo: h.repo,
		Sink:      h.sink,
		Bus:       h.bus,
		Clock:     h.clock,
	})
	require.NoError(t, err)
	h.orch = orch
	return h
}

func (h *harness) start() {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan error, 1)
	go func() { h.done <- h.orch.Run(ctx) }()
	h.t.Cleanup(h.stop)
}

func (h *harness) stop() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		h.t.Error("orchestrator did not stop")
	}
	h.cancel = nil
}

// advanceUntil moves the fake clock forward in steps until cond holds.
func (h *harness) advanceUntil(step time.Duration, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			h.t.Fatal("condition not reached")
		}
		h.clock.Advance(step)
		time.Sleep(time.Millisecond)
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, time.Millisecond)
}

func (r *memRepo) Saves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}
