package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/stationd/internal/domain"
)

type recordingNotifier struct {
	mu    sync.Mutex
	notes []domain.Notification
}

func (r *recordingNotifier) Publish(ctx context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return nil
}

func (r *recordingNotifier) addresses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notes {
		out = append(out, n.Address)
	}
	return out
}

func TestReadinessWaiter_AlreadyPresent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wlan0"), nil, 0o600))

	w := NewReadinessWaiter(dir, "wlan0", nil)
	assert.NoError(t, w.WaitReady(context.Background()))
}

func TestReadinessWaiter_WaitsForSocket(t *testing.T) {
	dir := t.TempDir()
	w := NewReadinessWaiter(dir, "wlan0", nil)

	done := make(chan error, 1)
	go func() { done <- w.WaitReady(context.Background()) }()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wlan1"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wlan0"), nil, 0o600))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("WaitReady did not return")
	}
}

func TestReadinessWaiter_Timeout(t *testing.T) {
	w := NewReadinessWaiter(t.TempDir(), "wlan0", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, w.WaitReady(ctx), context.DeadlineExceeded)
}

func TestParseLease(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		want   string
		wantOK bool
	}{
		{"networkd", "# comment\nADDRESS=192.168.4.20\nNETMASK=255.255.255.0\n", "192.168.4.20", true},
		{"dhclient last wins", "lease {\n  fixed-address 10.0.0.5;\n}\nlease {\n  fixed-address 10.0.0.9;\n}\n", "10.0.0.9", true},
		{"garbage", "ADDRESS=not-an-ip\n", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLease([]byte(tt.data))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLeaseWatcher_PublishesNewAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leases", "wlan0")
	n := &recordingNotifier{}
	w := NewLeaseWatcher(path, n, nil)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Dir(path))
		return err == nil
	}, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("ADDRESS=192.168.4.20\n"), 0o600))
	require.Eventually(t, func() bool { return len(n.addresses()) == 1 }, 2*time.Second, 5*time.Millisecond)

	// Rewriting the same address is not a new lease.
	require.NoError(t, os.WriteFile(path, []byte("ADDRESS=192.168.4.20\n"), 0o600))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("ADDRESS=192.168.4.21\n"), 0o600))
	require.Eventually(t, func() bool { return len(n.addresses()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"192.168.4.20", "192.168.4.21"}, n.addresses())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
