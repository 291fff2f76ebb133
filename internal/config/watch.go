package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/logger"
)

const reloadDebounce = 100 * time.Millisecond

// ReloadEvent carries the result of re-reading the config file.
type ReloadEvent struct {
	Config *Config
	Err    error
}

// Watcher reloads the configuration when its YAML file changes.
type Watcher struct {
	override func(*Config)
	path     string
	watcher  *fsnotify.Watcher
	events   chan ReloadEvent
	stop     chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher starts watching the directory containing path. override, if
// not nil, is applied to every reloaded config before validation.
func NewWatcher(path string, override func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}

	// Watch the directory so editors that replace the file are caught
	if err := fw.Add(filepath.Dir(path)); err != nil {
		if closeErr := fw.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	w := &Watcher{
		override: override,
		path:     path,
		watcher:  fw,
		events:   make(chan ReloadEvent, 4),
		stop:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Events returns the channel reload results are delivered on.
func (w *Watcher) Events() <-chan ReloadEvent {
	return w.events
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.timer = time.AfterFunc(reloadDebounce, w.reload)
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.send(ReloadEvent{Err: err})

		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadWith(w.path, w.override)
	if err != nil {
		logger.Warn("config reload failed", "path", w.path, "error", err)
		w.send(ReloadEvent{Err: err})
		return
	}
	logger.Info("config reloaded", "path", w.path)
	w.send(ReloadEvent{Config: cfg})
}

// send delivers without blocking, dropping the oldest pending event.
func (w *Watcher) send(ev ReloadEvent) {
	select {
	case w.events <- ev:
	default:
		select {
		case <-w.events:
		default:
		}
		select {
		case w.events <- ev:
		default:
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.stop)

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	return w.watcher.Close()
}
