package aspect

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pollInterval rescans the directory in case events were missed, as
// happens on some network and bind-mounted file systems.
var pollInterval = 5 * time.Second

// Watch keeps the library in sync with its directory until ctx is done.
// Written images are re-read; created, removed and renamed files trigger a
// rescan followed by a Load of the new files. It returns ctx.Err() on
// cancellation.
func (l *Library) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(l.dir); err != nil {
		return fmt.Errorf("watch %s: %w", l.dir, err)
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			if !IsImage(name) {
				continue
			}

			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					l.forget(name)
				}
				l.rescan(ctx)
			case event.Has(fsnotify.Write):
				l.forget(name)
				if err := l.Reload(ctx, name); err != nil {
					// Partially written files fail to decode; the final
					// write event retries.
					l.logger.Debug("reload failed", "file", name, "err", err)
				}
			}

		case <-ticker.C:
			l.rescan(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("watch error", "dir", l.dir, "err", err)
		}
	}
}

func (l *Library) rescan(ctx context.Context) {
	changed, err := l.scan()
	if err != nil {
		l.logger.Warn("rescan failed", "err", err)
		return
	}
	if !changed {
		return
	}
	l.logger.Debug("image listing changed", "dir", l.dir, "files", l.Len())
	l.notify(ListingChanged)
	// Load lists again; the listing is unchanged by then so it does not
	// notify twice.
	if err := l.Load(ctx); err != nil && ctx.Err() == nil {
		l.logger.Warn("load failed", "err", err)
	}
}
