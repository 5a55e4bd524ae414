package pivot

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchCatalog reloads the catalog at path whenever it changes and passes
// the new catalog to onChange. A file that fails to load is logged and
// skipped. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file, so replacing the
// file by rename or swapping a symlinked directory (Kubernetes ConfigMaps)
// keeps the watch alive.
func WatchCatalog(ctx context.Context, path string, logger *slog.Logger, onChange func(Catalog)) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	path = filepath.Clean(path)
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	logger.Info("watching pivot catalog", "path", path)

	target := resolve(path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			changed := false
			if filepath.Base(event.Name) == name {
				changed = event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
			} else if event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				// a sibling changed; reload only if our symlink now points elsewhere
				if now := resolve(path); now != target {
					target = now
					changed = true
				}
			}
			if !changed {
				continue
			}

			catalog, err := LoadCatalog(path)
			if err != nil {
				logger.Error("catalog reload failed, keeping previous catalog", "path", path, "error", err)
				continue
			}
			target = resolve(path)

			logger.Info("pivot catalog reloaded", "path", path, "profiles", len(catalog))
			onChange(catalog)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("catalog watcher error", "error", err)
		}
	}
}

// resolve returns the file path points to after following symlinks, or ""
// while it does not exist.
func resolve(path string) string {
	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		return ""
	}
	return real
}
