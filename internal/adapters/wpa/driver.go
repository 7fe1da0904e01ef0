package wpa

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/bft-labs/stationd/internal/domain"
	"github.com/bft-labs/stationd/internal/ports"
	"github.com/bft-labs/stationd/pkg/lifecycle"
	"github.com/bft-labs/stationd/pkg/log"
)

const (
	service    = "fi.w1.wpa_supplicant1"
	rootPath   = dbus.ObjectPath("/fi/w1/wpa_supplicant1")
	ifaceIface = service + ".Interface"
	bssIface   = service + ".BSS"
	propsIface = "org.freedesktop.DBus.Properties"
)

var errSignalsClosed = errors.New("wpa: signal channel closed")

// busConn is the subset of *dbus.Conn the driver uses.
type busConn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	AddMatchSignal(options ...dbus.MatchOption) error
	RemoveMatchSignal(options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
	Close() error
}

// Driver talks to wpa_supplicant over the system D-Bus. It implements
// ports.Supplicant and turns interface state changes into notifications.
type Driver struct {
	ifname   string
	notifier ports.Notifier
	logger   log.Logger

	mu        sync.Mutex
	conn      busConn
	path      dbus.ObjectPath
	state     string
	pending   bool
	security  domain.Security
	connected bool
}

// Dial connects to the system bus and resolves ifname, registering it with
// the supplicant when it is not managed yet.
func Dial(ctx context.Context, ifname string, notifier ports.Notifier, logger log.Logger) (*Driver, error) {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	d := &Driver{
		ifname:   ifname,
		notifier: notifier,
		logger:   log.Component(logger, "wpa"),
	}
	if err := d.redial(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Driver) redial(ctx context.Context) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connect system bus: %w", err)
	}
	path, err := resolveInterface(ctx, conn, d.ifname)
	if err != nil {
		conn.Close()
		return err
	}

	d.mu.Lock()
	old := d.conn
	d.conn = conn
	d.path = path
	d.mu.Unlock()

	if old != nil {
		old.Close()
	}
	d.logger.Info("attached to supplicant", log.String("interface", d.ifname), log.String("path", string(path)))
	return nil
}

func resolveInterface(ctx context.Context, conn busConn, ifname string) (dbus.ObjectPath, error) {
	obj := conn.Object(service, rootPath)

	var path dbus.ObjectPath
	err := obj.CallWithContext(ctx, service+".GetInterface", 0, ifname).Store(&path)
	if err == nil {
		return path, nil
	}
	args := map[string]dbus.Variant{"Ifname": dbus.MakeVariant(ifname)}
	if cerr := obj.CallWithContext(ctx, service+".CreateInterface", 0, args).Store(&path); cerr != nil {
		return "", fmt.Errorf("resolve interface %s: %w", ifname, errors.Join(err, cerr))
	}
	return path, nil
}

func (d *Driver) object() (busConn, dbus.BusObject) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn, d.conn.Object(service, d.path)
}

// SubmitConnect replaces the configured networks with rec and selects it.
// The result arrives later as a connect-result notification.
func (d *Driver) SubmitConnect(ctx context.Context, rec domain.AttemptRecord) error {
	cfg, err := networkConfig(rec)
	if err != nil {
		return err
	}
	_, obj := d.object()

	if c := obj.CallWithContext(ctx, ifaceIface+".RemoveAllNetworks", 0); c.Err != nil {
		return fmt.Errorf("remove networks: %w", c.Err)
	}
	var network dbus.ObjectPath
	if err := obj.CallWithContext(ctx, ifaceIface+".AddNetwork", 0, cfg).Store(&network); err != nil {
		return fmt.Errorf("add network: %w", err)
	}

	d.mu.Lock()
	d.pending = true
	d.security = rec.Security
	d.mu.Unlock()

	if c := obj.CallWithContext(ctx, ifaceIface+".SelectNetwork", 0, network); c.Err != nil {
		d.mu.Lock()
		d.pending = false
		d.mu.Unlock()
		return fmt.Errorf("select network: %w", c.Err)
	}
	return nil
}

// SubmitDisconnect drops the current association.
func (d *Driver) SubmitDisconnect(ctx context.Context) error {
	_, obj := d.object()
	if c := obj.CallWithContext(ctx, ifaceIface+".Disconnect", 0); c.Err != nil {
		return fmt.Errorf("disconnect: %w", c.Err)
	}
	return nil
}

// QueryStatus reads the interface and current BSS properties.
func (d *Driver) QueryStatus(ctx context.Context) (domain.LinkStateSnapshot, error) {
	conn, obj := d.object()

	var props map[string]dbus.Variant
	if err := obj.CallWithContext(ctx, propsIface+".GetAll", 0, ifaceIface).Store(&props); err != nil {
		return domain.LinkStateSnapshot{}, fmt.Errorf("query status: %w", err)
	}
	raw, _ := variantAs[string](props, "State")
	snap := domain.LinkStateSnapshot{
		State:         mapState(raw),
		InterfaceMode: "managed",
		LinkMode:      raw,
	}

	bss, ok := variantAs[dbus.ObjectPath](props, "CurrentBSS")
	if !ok || bss == "/" || !bss.IsValid() {
		return snap, nil
	}
	var bssProps map[string]dbus.Variant
	err := conn.Object(service, bss).CallWithContext(ctx, propsIface+".GetAll", 0, bssIface).Store(&bssProps)
	if err != nil {
		d.logger.Debug("bss properties unavailable", log.Err(err))
		return snap, nil
	}
	applyBSS(&snap, bssProps)

	d.mu.Lock()
	snap.Security = d.security
	d.mu.Unlock()
	return snap, nil
}

func applyBSS(snap *domain.LinkStateSnapshot, props map[string]dbus.Variant) {
	if ssid, ok := variantAs[[]byte](props, "SSID"); ok {
		snap.SSID = string(ssid)
	}
	if bssid, ok := variantAs[[]byte](props, "BSSID"); ok && len(bssid) == 6 {
		snap.BSSID = net.HardwareAddr(bssid).String()
	}
	if freq, ok := variantAs[uint16](props, "Frequency"); ok {
		snap.Band = domain.BandForFrequency(int(freq))
		snap.Channel = domain.ChannelForFrequency(int(freq))
	}
	if sig, ok := variantAs[int16](props, "Signal"); ok {
		snap.RSSI = int(sig)
	}
}

// Run forwards supplicant signals as notifications until ctx ends. A lost
// bus connection is redialed with backoff.
func (d *Driver) Run(ctx context.Context) error {
	backoff := lifecycle.NewBackoff(time.Second, 30*time.Second)
	for {
		err := d.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d.logger.Warn("supplicant signals lost", log.Err(err))
		if err := backoff.Wait(ctx); err != nil {
			return err
		}
		if err := d.redial(ctx); err != nil {
			d.logger.Warn("redial failed", log.Err(err))
			continue
		}
		backoff.Reset()
	}
}

func (d *Driver) listen(ctx context.Context) error {
	d.mu.Lock()
	conn, path := d.conn, d.path
	d.mu.Unlock()

	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(propsIface),
		dbus.WithMatchMember("PropertiesChanged"),
	}
	if err := conn.AddMatchSignal(match...); err != nil {
		return fmt.Errorf("add match: %w", err)
	}
	defer conn.RemoveMatchSignal(match...)

	ch := make(chan *dbus.Signal, 32)
	conn.Signal(ch)
	defer conn.RemoveSignal(ch)

	if v, err := conn.Object(service, path).GetProperty(ifaceIface + ".State"); err == nil {
		if s, ok := v.Value().(string); ok {
			d.mu.Lock()
			d.state = s
			d.connected = s == stateCompleted
			d.mu.Unlock()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-ch:
			if !ok {
				return errSignalsClosed
			}
			d.handleSignal(ctx, path, sig)
		}
	}
}

func (d *Driver) handleSignal(ctx context.Context, path dbus.ObjectPath, sig *dbus.Signal) {
	if sig.Path != path || sig.Name != propsIface+".PropertiesChanged" || len(sig.Body) < 2 {
		return
	}
	if iface, _ := sig.Body[0].(string); iface != ifaceIface {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}
	for _, n := range d.applyChanges(changed, time.Now()) {
		if err := d.notifier.Publish(ctx, n); err != nil {
			d.logger.Warn("notification dropped", log.String("kind", n.Kind.String()), log.Err(err))
		}
	}
}

// applyChanges updates the tracked supplicant state and returns the
// notifications the change implies.
func (d *Driver) applyChanges(changed map[string]dbus.Variant, now time.Time) []domain.Notification {
	reason := 0
	if r, ok := variantAs[int32](changed, "DisconnectReason"); ok && r != 0 {
		reason = abs(int(r))
	}
	if r, ok := variantAs[int32](changed, "AuthStatusCode"); ok && r != 0 {
		reason = abs(int(r))
	}
	next, hasState := variantAs[string](changed, "State")

	d.mu.Lock()
	defer d.mu.Unlock()

	if hasState {
		d.logger.Debug("supplicant state", log.String("from", d.state), log.String("to", next))
		d.state = next
	}

	switch {
	case hasState && next == stateCompleted && !d.connected:
		d.connected = true
		d.pending = false
		return []domain.Notification{domain.ConnectResult(0, now)}

	case hasState && d.connected && next != stateCompleted && mapState(next) != domain.StateAssociating:
		d.connected = false
		return []domain.Notification{domain.DisconnectResult(0, now)}

	case d.pending && reason != 0:
		d.pending = false
		return []domain.Notification{domain.ConnectResult(reason, now)}
	}
	return nil
}

// Close releases the bus connection.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
