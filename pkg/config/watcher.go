package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithDebounce sets how long the file must stay quiet before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounce = d }
}

// WithWatcherLogger sets the watcher's logger.
func WithWatcherLogger(l *log.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// Watcher reloads a [Store] when its config file changes on disk.
//
// The directory holding the file is watched rather than the file itself so
// editors that save by renaming a temporary file over it are noticed.
// Watcher implements suture.Service through Serve.
type Watcher struct {
	store    *Store
	debounce time.Duration
	logger   *log.Logger
}

// NewWatcher creates a Watcher for store. The store must have a file path.
func NewWatcher(store *Store, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		store:    store,
		debounce: 500 * time.Millisecond,
		logger:   store.logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Watcher) String() string { return "config-watcher" }

// Serve watches until ctx is cancelled.
func (w *Watcher) Serve(ctx context.Context) error {
	path := w.store.Path()
	if path == "" {
		return errors.New("config watcher: store has no file")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: create fsnotify: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("config watcher: watch %s: %w", dir, err)
	}
	w.logger.Debug("watching config", "path", path)

	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	var pending time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fsw.Events:
			if !ok {
				return errors.New("config watcher: event channel closed")
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.Now()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("config watcher: error channel closed")
			}
			w.logger.Error("config watcher", "err", err)

		case now := <-ticker.C:
			if pending.IsZero() || now.Sub(pending) < w.debounce {
				continue
			}
			pending = time.Time{}
			if _, err := w.store.Reload(); err != nil {
				w.logger.Error("reload config", "path", path, "err", err)
			}
		}
	}
}
