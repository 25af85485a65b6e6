package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// DirWatcher watches the data directory for external edits to the JSONL
// files and reloads the matching table. This makes hand-editing a user's
// data files with a text editor safe while the server runs.
//
// fsnotify does not recurse, so the users directory and each user directory
// are watched individually; new user directories are picked up from create
// events.
type DirWatcher struct {
	store   *Store
	watcher *fsnotify.Watcher
}

// NewDirWatcher starts watching the store's data directory. Cancel ctx to
// stop.
func NewDirWatcher(ctx context.Context, store *Store) (*DirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	usersDir := store.Root()
	if err := w.Add(usersDir); err != nil {
		_ = w.Close()
		return nil, err
	}
	entries, err := os.ReadDir(usersDir)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := w.Add(filepath.Join(usersDir, e.Name())); err != nil {
				slog.WarnContext(ctx, "Failed to watch user directory", "dir", e.Name(), "err", err)
			}
		}
	}
	d := &DirWatcher{store: store, watcher: w}
	go d.run(ctx)
	return d, nil
}

func (d *DirWatcher) run(ctx context.Context) {
	defer func() { _ = d.watcher.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			d.handle(ctx, event)
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			slog.WarnContext(ctx, "Filesystem watch error", "err", err)
		}
	}
}

func (d *DirWatcher) handle(ctx context.Context, event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := d.watcher.Add(event.Name); err != nil {
				slog.WarnContext(ctx, "Failed to watch new user directory", "dir", event.Name, "err", err)
			}
			return
		}
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	matched, err := d.store.ReloadPath(event.Name)
	if err != nil {
		slog.WarnContext(ctx, "Failed to reload table after external edit", "path", event.Name, "err", err)
		return
	}
	if matched {
		slog.InfoContext(ctx, "Reloaded table after external edit", "path", event.Name)
	}
}
