package tourservice

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadCallback is called after the project document has been reloaded
// because of an external change to the workspace file.
type ReloadCallback func()

// Watch starts an fsnotify watcher on the workspace root and reloads the
// project document whenever project.json is rewritten outside the service
// (for example by a sync client or a manual edit). Events are debounced so
// a burst of writes results in a single reload.
//
// Reload failures are logged and the last good document stays in effect.
func Watch(ctx context.Context, svc *Service, workspaceRoot string, logger *slog.Logger, cb ReloadCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(workspaceRoot); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", workspaceRoot))

	// reloadTimer debounces reloads across write bursts. Editors and sync
	// tools tend to fire several Write events for a single save.
	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reloadCh:
			if err := svc.Reload(ctx); err != nil {
				logger.Warn("watcher: reload failed, keeping last good document",
					slog.String("error", err.Error()))
				continue
			}
			logger.Debug("watcher: project reloaded")
			if cb != nil {
				cb()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if filepath.Base(ev.Name) != ProjectFile {
				continue
			}

			// Atomic saves show up as Create (rename over the old file),
			// plain saves as Write. Remove/Rename of the document itself
			// is treated the same: the next reload decides what to keep.
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
