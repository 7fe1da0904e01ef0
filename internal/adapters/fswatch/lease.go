package fswatch

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/stationd/internal/domain"
	"github.com/bft-labs/stationd/internal/ports"
	"github.com/bft-labs/stationd/pkg/log"
)

// LeaseWatcher publishes a lease-bound notification whenever the DHCP
// client writes a lease file carrying a new address.
type LeaseWatcher struct {
	path     string
	notifier ports.Notifier
	logger   log.Logger
	debounce time.Duration

	mu   sync.Mutex
	last string
}

// NewLeaseWatcher watches the lease file at path.
func NewLeaseWatcher(path string, notifier ports.Notifier, logger log.Logger) *LeaseWatcher {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &LeaseWatcher{
		path:     path,
		notifier: notifier,
		logger:   log.Component(logger, "lease"),
		debounce: 100 * time.Millisecond,
	}
}

// Run watches until ctx ends.
func (w *LeaseWatcher) Run(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create lease dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	// A lease may already be present.
	w.check(ctx)

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			w.check(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", log.Err(err))
		}
	}
}

func (w *LeaseWatcher) check(ctx context.Context) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn("read lease", log.Err(err))
		}
		return
	}
	addr, ok := ParseLease(data)
	if !ok {
		return
	}

	w.mu.Lock()
	changed := addr != w.last
	w.last = addr
	w.mu.Unlock()
	if !changed {
		return
	}
	if err := w.notifier.Publish(ctx, domain.LeaseBound(addr, time.Now())); err != nil {
		w.logger.Warn("lease notification dropped", log.Err(err))
	}
}

// ParseLease extracts the bound address from a systemd-networkd lease
// (ADDRESS=) or a dhclient lease (fixed-address). The last lease in a
// dhclient file wins.
func ParseLease(data []byte) (string, bool) {
	var addr string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		var candidate string
		switch {
		case strings.HasPrefix(line, "ADDRESS="):
			candidate = strings.TrimPrefix(line, "ADDRESS=")
		case strings.HasPrefix(line, "fixed-address "):
			candidate = strings.TrimSuffix(strings.TrimPrefix(line, "fixed-address "), ";")
		default:
			continue
		}
		if ip, err := netip.ParseAddr(strings.TrimSpace(candidate)); err == nil {
			addr = ip.String()
		}
	}
	return addr, addr != ""
}
