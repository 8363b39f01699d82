package file

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/versesync/internal/core/ports/driven"
)

// Ensure ConfigStore implements the watcher interface.
var _ driven.ConfigWatcher = (*ConfigStore)(nil)

// watchDebounce collapses the burst of events a single editor save produces.
const watchDebounce = 100 * time.Millisecond

// Watch reloads the configuration whenever the file changes and calls
// onChange after each successful reload. The directory is watched rather
// than the file so atomic renames by editors are seen. Blocks until ctx
// is cancelled.
func (s *ConfigStore) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.filePath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	timer := time.NewTimer(watchDebounce)
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
			if filepath.Clean(event.Name) != filepath.Clean(s.filePath) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("config: watcher error: %v", err)

		case <-timer.C:
			if err := s.Load(); err != nil {
				// Keep the previous values until the file parses again.
				log.Printf("config: reload failed: %v", err)
				continue
			}
			if onChange != nil {
				onChange()
			}
		}
	}
}
