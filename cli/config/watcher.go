package config

import (
	"context"
	"os"
	"sync"
	"time"
)

// DefaultReloadInterval is the polling interval used when none is set.
const DefaultReloadInterval = 2 * time.Second

// ReloadFunc receives the freshly loaded config, or the load error.
// A failed load leaves the caller's current config in effect.
type ReloadFunc func(cfg *Config, err error)

// Watcher polls a config file and reloads it when its modification time or
// size changes.
type Watcher struct {
	path     string
	interval time.Duration
	fn       ReloadFunc

	mu      sync.Mutex
	modTime time.Time
	size    int64
	missing bool
}

// NewWatcher creates a watcher for path. The file's current state is the
// baseline; only later changes trigger fn.
func NewWatcher(path string, interval time.Duration, fn ReloadFunc) *Watcher {
	if interval <= 0 {
		interval = DefaultReloadInterval
	}
	w := &Watcher{path: path, interval: interval, fn: fn}
	if info, err := os.Stat(path); err == nil {
		w.modTime = info.ModTime()
		w.size = info.Size()
	} else {
		w.missing = true
	}
	return w
}

// Poll checks the file once and reloads it if it changed.
// Returns true when fn was called.
func (w *Watcher) Poll() bool {
	w.mu.Lock()
	info, err := os.Stat(w.path)
	if err != nil {
		// Removal is not a reload; the next write is.
		w.missing = true
		w.mu.Unlock()
		return false
	}
	if !w.missing && info.ModTime().Equal(w.modTime) && info.Size() == w.size {
		w.mu.Unlock()
		return false
	}
	w.modTime = info.ModTime()
	w.size = info.Size()
	w.missing = false
	w.mu.Unlock()

	cfg, err := Load(w.path)
	if err == nil {
		err = cfg.Validate()
		if err != nil {
			cfg = nil
		}
	}
	if w.fn != nil {
		w.fn(cfg, err)
	}
	return true
}

// Run polls until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Poll()
		}
	}
}
