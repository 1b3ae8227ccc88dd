package trigger

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/gcpd/logging"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// ConfigWatcher reloads the configuration file when it changes and then
// requests a pass.
type ConfigWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	target   string
	debounce time.Duration
	onChange func(path string) error
	logger   *logrus.Entry
}

// NewConfigWatcher watches path. onChange is called after writes settle;
// a pass is requested only when it returns nil.
func NewConfigWatcher(path string, debounce time.Duration, onChange func(path string) error) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	logger := logging.NewLogger("config-watcher")

	// Editors replace files by rename, so watch the directory.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}

	// fsnotify doesn't follow symlinks; watch the target's directory too.
	target := abs
	if resolved, err := filepath.EvalSymlinks(abs); err == nil && resolved != abs {
		target = resolved
		if filepath.Dir(resolved) != filepath.Dir(abs) {
			if err := watcher.Add(filepath.Dir(resolved)); err != nil {
				logger.WithError(err).Warnf("Failed to watch symlink target dir %s", filepath.Dir(resolved))
			}
		}
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &ConfigWatcher{
		watcher:  watcher,
		path:     abs,
		target:   target,
		debounce: debounce,
		onChange: onChange,
		logger:   logger.WithField("file", abs),
	}, nil
}

// Name returns the trigger's name.
func (w *ConfigWatcher) Name() string { return "config" }

// Run begins watching for changes. It blocks until ctx is canceled.
func (w *ConfigWatcher) Run(ctx context.Context, req Requester) error {
	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.handleChange(req)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Errorf("Watcher error: %v", err)
		}
	}
}

func (w *ConfigWatcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == w.path || name == w.target
}

func (w *ConfigWatcher) handleChange(req Requester) {
	w.logger.Info("Config changed")
	if w.onChange != nil {
		if err := w.onChange(w.path); err != nil {
			w.logger.WithError(err).Warn("Config reload failed; keeping previous settings")
			return
		}
	}
	req.RequestCheck()
}

// Close stops the watcher and releases resources.
func (w *ConfigWatcher) Close() error {
	return w.watcher.Close()
}
