package filestore

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last file event before
// checking for changes.
const DefaultDebounce = 200 * time.Millisecond

// ChangeFunc is called with the record files that changed on disk since the
// store last read or wrote them.
type ChangeFunc func(changed []string)

// Watch watches the store directory until ctx is cancelled and calls cb after
// external edits to nodes.yaml or edges.yaml. Bursts of events are debounced;
// writes made through f itself are not reported.
func Watch(ctx context.Context, f *FS, debounce time.Duration, logger *slog.Logger, cb ChangeFunc) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory, not the files: atomic renames replace the inode.
	if err := w.Add(f.root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", f.root))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			var changed []string
			for _, name := range []string{NodesFile, EdgesFile} {
				if f.Changed(name) {
					changed = append(changed, name)
				}
			}
			if len(changed) == 0 {
				logger.Debug("watcher: no external changes")
				continue
			}
			logger.Info("watcher: record files changed", slog.Any("files", changed))
			if cb != nil {
				cb(changed)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			switch filepath.Base(ev.Name) {
			case NodesFile, EdgesFile:
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					schedule()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
