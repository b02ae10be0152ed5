package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	appLog "eventcal/internal/log"
)

// Watch reloads the config at path whenever it changes on disk and hands
// the new value to onChange. It watches the parent directory: Save and most
// editors replace the file by rename. A config that fails to load is logged
// and skipped.
//
// Watch returns once the watcher is running; it stops when ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				// Rename and Remove fire for the old name; the replacement
				// arrives as Create.
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				cfg, err := Load(abs)
				if err != nil {
					appLog.Error("config reload failed", err, "path", abs)
					continue
				}
				appLog.Info("config reloaded", "path", abs, "calendars", len(cfg.Calendars))
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				appLog.Error("config watcher error", err, "path", abs)
			}
		}
	}()

	return nil
}
