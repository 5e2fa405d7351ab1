package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/five82/apodesk/internal/apod"
)

const watchDebounce = 250 * time.Millisecond

// Watch calls fn with the reloaded record whenever another writer replaces
// the slot. The directory is watched rather than the file because Save
// renames over it. Watch returns once the watcher is running; it stops when
// ctx is cancelled.
func (f *File) Watch(ctx context.Context, fn func(apod.Record)) error {
	dir := filepath.Dir(f.path)
	name := filepath.Base(f.path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create cache watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch cache dir %s: %w", dir, err)
	}

	f.log.Debug().Str("path", f.path).Msg("watching cache slot")

	go func() {
		defer func() { _ = watcher.Close() }()

		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != name {
					continue
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(watchDebounce)
				} else {
					timer.Reset(watchDebounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				if r, ok := f.Load(); ok {
					fn(r)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.log.Error().Err(err).Msg("cache watcher error")
			}
		}
	}()
	return nil
}
