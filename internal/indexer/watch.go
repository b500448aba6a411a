package indexer

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// StartWatching creates the OS-level watcher backing live re-indexing and
// starts its event loop. Safe to call once per Indexer; a failure (e.g. the
// inotify instance limit) is returned to the caller and leaves the indexer
// running scan-only, since every watch call below degrades to a no-op once
// ix.watcher is nil.
func (ix *Indexer) StartWatching(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	ix.mu.Lock()
	ix.watcher = w
	ix.mu.Unlock()

	go ix.watchLoop(ctx, w)

	return nil
}

// Close releases the watcher's OS resources, if one was started.
func (ix *Indexer) Close() error {
	ix.mu.Lock()
	w := ix.watcher
	ix.watcher = nil
	ix.mu.Unlock()

	if w == nil {
		return nil
	}

	return w.Close()
}

func (ix *Indexer) watchLoop(ctx context.Context, w *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			_ = w.Close()
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}

			ix.handleWatchEvent(ctx, ev)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}

			if ix.log != nil {
				ix.log.WithField("error", err.Error()).Warn("filesystem watch error")
			}
		}
	}
}

// handleWatchEvent re-enqueues the containing directory for create/remove
// (so worklist dedup naturally rescans it and picks up a new entry; a
// removed file's entry is not dropped from the environments) and reparses
// the single file directly for write, skipping the directory listing
// entirely.
func (ix *Indexer) handleWatchEvent(ctx context.Context, ev fsnotify.Event) {
	if !isWatchedName(ev.Name) {
		return
	}

	switch {
	case ev.Op&fsnotify.Write != 0:
		ix.indexFile(ev.Name)
	case ev.Op&(fsnotify.Create|fsnotify.Remove) != 0:
		ix.AddDirectories([]string{filepath.Dir(ev.Name)}, 0)
		ix.Kick(ctx)
	}
}

func isWatchedName(path string) bool {
	name := filepath.Base(path)
	if strings.EqualFold(name, "qmldir") {
		return true
	}

	return recognizedExtensions[strings.ToLower(filepath.Ext(name))]
}

// watchDir registers dir with the running watcher, best-effort: a failure
// (the directory vanished between enumeration and Add, or no watcher was
// started) is logged and otherwise ignored rather than aborting the scan.
func (ix *Indexer) watchDir(dir string) {
	ix.mu.Lock()
	w := ix.watcher
	ix.mu.Unlock()

	if w == nil {
		return
	}

	if err := w.Add(dir); err != nil && ix.log != nil {
		ix.log.WithField("path", dir).WithField("error", err.Error()).Warn("failed to watch directory")
	}
}
