package trigger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRequester struct{ n atomic.Int32 }

func (c *countingRequester) RequestCheck() { c.n.Add(1) }

func TestPollerRequestsOnInterval(t *testing.T) {
	req := &countingRequester{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewPoller(10 * time.Millisecond).Run(ctx, req) }()

	assert.Eventually(t, func() bool { return req.n.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, "poll", NewPoller(time.Second).Name())
}

func startWatcher(t *testing.T, path string, onChange func(string) error) (*countingRequester, context.CancelFunc) {
	t.Helper()
	w, err := NewConfigWatcher(path, 20*time.Millisecond, onChange)
	require.NoError(t, err)
	assert.Equal(t, "config", w.Name())

	req := &countingRequester{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx, req)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return req, cancel
}

func TestConfigWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gcpd.yml")
	require.NoError(t, os.WriteFile(path, []byte("branch: a\n"), 0o644))

	var reloads atomic.Int32
	req, _ := startWatcher(t, path, func(p string) error {
		assert.Equal(t, path, p)
		reloads.Add(1)
		return nil
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("branch: b%d\n", i)), 0o644))
	}

	assert.Eventually(t, func() bool { return req.n.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return req.n.Load() > 1 }, 150*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, int32(1), reloads.Load())
}

func TestConfigWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gcpd.yml")
	require.NoError(t, os.WriteFile(path, []byte("branch: a\n"), 0o644))

	req, _ := startWatcher(t, path, nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yml"), []byte("x"), 0o644))

	assert.Never(t, func() bool { return req.n.Load() > 0 }, 150*time.Millisecond, 10*time.Millisecond)
}

func TestConfigWatcherSkipsRequestOnReloadError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gcpd.yml")
	require.NoError(t, os.WriteFile(path, []byte("branch: a\n"), 0o644))

	var attempts atomic.Int32
	req, _ := startWatcher(t, path, func(string) error {
		attempts.Add(1)
		return fmt.Errorf("invalid")
	})
	require.NoError(t, os.WriteFile(path, []byte("branch: [\n"), 0o644))

	assert.Eventually(t, func() bool { return attempts.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, req.n.Load())
}

func TestConfigWatcherMissingDirectory(t *testing.T) {
	_, err := NewConfigWatcher(filepath.Join(t.TempDir(), "missing", "gcpd.yml"), 0, nil)
	assert.Error(t, err)
}
