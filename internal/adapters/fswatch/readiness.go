// Package fswatch watches the filesystem for supplicant and DHCP client
// activity.
package fswatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/stationd/pkg/log"
)

// DefaultControlDir is where wpa_supplicant creates its control sockets.
const DefaultControlDir = "/var/run/wpa_supplicant"

// ReadinessWaiter reports the supplicant ready once its control socket for
// the interface exists.
type ReadinessWaiter struct {
	dir    string
	ifname string
	logger log.Logger
}

// NewReadinessWaiter watches dir for a socket named ifname.
func NewReadinessWaiter(dir, ifname string, logger log.Logger) *ReadinessWaiter {
	if dir == "" {
		dir = DefaultControlDir
	}
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &ReadinessWaiter{dir: dir, ifname: ifname, logger: log.Component(logger, "readiness")}
}

// Path returns the control socket path waited for.
func (w *ReadinessWaiter) Path() string {
	return filepath.Join(w.dir, w.ifname)
}

// WaitReady blocks until the control socket exists or ctx ends.
func (w *ReadinessWaiter) WaitReady(ctx context.Context) error {
	if exists(w.Path()) {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create control dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	// The socket may have appeared before the watch was in place.
	if exists(w.Path()) {
		return nil
	}

	w.logger.Info("waiting for supplicant", log.String("socket", w.Path()))
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("supplicant not ready: %w", ctx.Err())
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			if filepath.Base(event.Name) == w.ifname && event.Op&fsnotify.Create != 0 {
				w.logger.Info("supplicant ready")
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher closed")
			}
			w.logger.Warn("watcher error", log.Err(err))
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
