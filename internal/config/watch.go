package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce coalesces the event bursts editors produce when saving.
const reloadDebounce = 200 * time.Millisecond

// Watcher reloads the configuration when the file changes on disk. It
// watches the containing directory, not the file, so atomic-rename saves
// keep working.
type Watcher struct {
	path     string
	onChange func(*Config)
	logger   *zap.Logger

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	debounce *time.Timer
	quit     chan struct{}
	done     chan struct{}
	started  bool
}

// NewWatcher creates a watcher for the config file at path. onChange runs
// with each successfully reloaded configuration.
func NewWatcher(path string, onChange func(*Config), logger *zap.Logger) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		logger:   logger,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins watching. The current file state is not re-delivered;
// callers load once before starting.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return fmt.Errorf("config watcher already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return fmt.Errorf("watch config directory: %w", err)
	}
	w.fsw = fsw
	w.started = true
	go w.loop()
	return nil
}

// Stop ends watching. Safe to call without a prior Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.started = false
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()

	close(w.quit)
	w.fsw.Close()
	<-w.done
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.quit:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(reloadDebounce, w.reload)
}

// reload re-reads the file. A failed load keeps the previous
// configuration in effect.
func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous", zap.Error(err))
		return
	}
	w.logger.Info("configuration reloaded", zap.String("path", w.path))
	w.onChange(cfg)
}
