package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/regwave/regwave/internal/logging"
)

// defaultDebounce coalesces the burst of filesystem events an editor save
// produces into a single reload.
const defaultDebounce = 500 * time.Millisecond

// ReloadCallback receives every successfully reloaded configuration. A
// returned error is logged; the watcher keeps the previous config and
// keeps watching.
type ReloadCallback func(cfg *Config) error

// Watcher hot-reloads the configuration file. An invalid file during a
// reload is logged and ignored; the last valid config stays in effect.
// Implements lifecycle.Component.
type Watcher struct {
	path     string
	debounce time.Duration
	callback ReloadCallback
	logger   *logging.Logger

	mu      sync.Mutex
	timer   *time.Timer
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(path string, callback ReloadCallback) *Watcher {
	return &Watcher{
		path:     path,
		debounce: defaultDebounce,
		callback: callback,
		logger:   logging.GetLogger("config.watcher"),
		stopped:  make(chan struct{}),
	}
}

// Start launches the watch loop. The initial config is assumed loaded by
// the caller; only subsequent changes trigger the callback.
func (w *Watcher) Start(ctx context.Context) error {
	watchCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		cancel()
		return err
	}
	// Watch the directory: editors replace files on save, and a watch on
	// the old inode would go silent after the first rename.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		cancel()
		return err
	}

	go w.watchLoop(watchCtx, fsw)
	w.logger.Info("watching %s", w.path)
	return nil
}

// Stop ends the watch loop.
func (w *Watcher) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}
	select {
	case <-w.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}
	w.logger.Info("config watcher stopped")
	return nil
}

// Name identifies the watcher to the lifecycle manager.
func (w *Watcher) Name() string {
	return "config-watcher"
}

func (w *Watcher) watchLoop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.stopped)
	defer func() { _ = fsw.Close() }()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.ErrorWithErr("watch error", err)
		case <-ctx.Done():
			return
		}
	}
}

// scheduleReload resets the debounce timer; only the last event of a
// burst triggers the reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.ErrorWithErr("config reload rejected, keeping previous config", err)
		return
	}
	if err := w.callback(cfg); err != nil {
		w.logger.ErrorWithErr("config reload callback failed", err)
		return
	}
	w.logger.Info("config reloaded from %s", w.path)
}
