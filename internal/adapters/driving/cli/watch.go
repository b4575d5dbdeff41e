package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/casemap/internal/logger"
)

// watchDebounce coalesces the burst of events editors emit for one save.
const watchDebounce = 500 * time.Millisecond

// isInputChange reports whether event rewrote the file at path. Editors often
// save through a temporary file and a rename, which shows up as a Create.
func isInputChange(event fsnotify.Event, path string) bool {
	if filepath.Clean(event.Name) != filepath.Clean(path) {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write)
}

// watchFile calls fn every time the file at path changes, until ctx is done.
// The parent directory is watched so that replaced files keep being seen.
func watchFile(ctx context.Context, path string, debounce time.Duration, fn func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if isInputChange(event, path) {
				logger.Debug("%s: %s", event.Op, event.Name)
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		case <-timer.C:
			if err := fn(ctx); err != nil {
				logger.Error("run failed: %v", err)
			}
		}
	}
}
