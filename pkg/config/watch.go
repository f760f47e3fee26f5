package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the bursts of events editors emit on save.
const reloadDelay = 100 * time.Millisecond

// Watch reloads the file at path whenever it changes and passes each
// valid configuration to fn. Invalid files are logged and skipped. The
// parent directory is watched so atomic renames are seen. Watch returns
// once the watcher is running; it stops when ctx is done.
func Watch(ctx context.Context, path string, fn func(*Config), logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return fmt.Errorf("config: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer w.Close()
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(reloadDelay)
				} else {
					timer.Reset(reloadDelay)
				}
				fire = timer.C

			case <-fire:
				fire = nil
				cfg, err := Load(abs)
				if err != nil {
					logger.Warn("config: reload failed", "path", abs, "err", err)
					continue
				}
				logger.Info("config: reloaded", "path", abs)
				fn(cfg)

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("config: watcher error", "err", err)
			}
		}
	}()
	return nil
}
