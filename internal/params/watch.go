package params

import (
	"context"
	"fmt"
	"path/filepath"

	"bringupctl/pkg/logging"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange each time the file at path is written or recreated,
// until ctx is done. The parent directory is watched so editors that replace
// the file through a rename are still seen.
func Watch(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				logging.Debug("Params", "Parameter file %s changed (%s)", target, event.Op)
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("Params", "Watcher error on %s: %v", target, err)
		}
	}
}
