// Package indexer implements the recursive directory scanner that
// populates the project-wide environments from disk: the background
// counterpart to internal/updater, which keeps open documents current.
package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/semaphore"

	"github.com/SeleniaProject/qmlls/internal/environ"
	"github.com/SeleniaProject/qmlls/internal/log"
)

// recognizedExtensions are the file extensions the indexer parses.
var recognizedExtensions = map[string]bool{
	".qml":      true,
	".js":       true,
	".mjs":      true,
	".qmltypes": true,
}

// entry is one worklist item: a directory to scan, with a depth budget
// bounding how many more levels of subdirectories will be queued from it.
type entry struct {
	path           string
	depthRemaining int
}

// Indexer scans directories into the current environment, promoting
// structurally valid parses into the valid environment. Bound to a single
// concurrent worker, per the worker-bound=1 design: indexing is I/O- and
// parse-heavy but not meant to race ahead of the machine it runs on.
type Indexer struct {
	mu       sync.Mutex
	worklist []entry
	doneCost int
	inFlight int

	stopping atomic.Bool
	sem      *semaphore.Weighted
	watcher  *fsnotify.Watcher

	current *environ.Environment
	valid   *environ.Environment

	resolver environ.DependencyResolver

	onProgress func(done, total int)

	log *log.Entry
}

// New creates an Indexer writing into current and promoting good parses
// into valid, using resolver to follow import statements to dependency
// files.
func New(current, valid *environ.Environment, resolver environ.DependencyResolver, logger *log.Entry) *Indexer {
	return &Indexer{
		current:  current,
		valid:    valid,
		resolver: resolver,
		sem:      semaphore.NewWeighted(1),
		log:      logger,
	}
}

// OnProgress registers a callback invoked after each unit of work with a
// monotonically non-decreasing done count and the current total estimate.
func (ix *Indexer) OnProgress(f func(done, total int)) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.onProgress = f
}

// AddDirectories enqueues paths for scanning, deduplicating against
// already-queued entries by longest-prefix match: a path that is a
// subpath of one already queued is dropped, and a path that is an ancestor
// of already-queued entries absorbs them.
func (ix *Indexer) AddDirectories(paths []string, depthBudget int) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, p := range paths {
		clean := filepath.Clean(p)

		if ix.isSubpathOfQueuedLocked(clean) {
			continue
		}

		ix.worklist = dropDescendantsLocked(ix.worklist, clean)
		ix.worklist = append(ix.worklist, entry{path: clean, depthRemaining: depthBudget})
	}
}

func (ix *Indexer) isSubpathOfQueuedLocked(p string) bool {
	for _, e := range ix.worklist {
		if p == e.path || strings.HasPrefix(p, e.path+string(filepath.Separator)) {
			return true
		}
	}

	return false
}

func dropDescendantsLocked(worklist []entry, ancestor string) []entry {
	out := worklist[:0]

	for _, e := range worklist {
		if e.path == ancestor || strings.HasPrefix(e.path, ancestor+string(filepath.Separator)) {
			continue
		}

		out = append(out, e)
	}

	return out
}

// Cancel sets the stopping flag; the worker checks it between directories
// and between files, and does not interrupt a unit already in progress.
func (ix *Indexer) Cancel() {
	ix.stopping.Store(true)
}

// Reset clears the stopping flag so a new Kick can start fresh work.
func (ix *Indexer) Reset() {
	ix.stopping.Store(false)
}

// Kick spawns a worker goroutine if the worklist is non-empty and the
// worker bound (1) is not already saturated. It returns immediately; the
// worker runs until the worklist drains or Cancel is observed.
func (ix *Indexer) Kick(ctx context.Context) {
	if !ix.sem.TryAcquire(1) {
		return
	}

	go func() {
		defer ix.sem.Release(1)
		ix.run(ctx)
	}()
}

func (ix *Indexer) run(ctx context.Context) {
	for {
		if ix.stopping.Load() {
			return
		}

		next, ok := ix.popLocked()
		if !ok {
			return
		}

		ix.processDirectory(ctx, next)
		ix.reportProgress()
	}
}

func (ix *Indexer) popLocked() (entry, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if len(ix.worklist) == 0 {
		return entry{}, false
	}

	next := ix.worklist[0]
	ix.worklist = ix.worklist[1:]
	ix.inFlight++

	return next, true
}

func (ix *Indexer) processDirectory(ctx context.Context, e entry) {
	defer func() {
		ix.mu.Lock()
		ix.inFlight--
		ix.mu.Unlock()
	}()

	dirEntries, err := os.ReadDir(e.path)
	if err != nil {
		if ix.log != nil {
			ix.log.WithField("path", e.path).WithField("error", err.Error()).Warn("directory enumeration failed")
		}

		return
	}

	ix.watchDir(e.path)

	var subdirs []string

	for _, de := range dirEntries {
		if ix.stopping.Load() {
			return
		}

		full := filepath.Join(e.path, de.Name())

		if de.IsDir() {
			if e.depthRemaining > 0 {
				subdirs = append(subdirs, full)
			}

			continue
		}

		if recognizedExtensions[strings.ToLower(filepath.Ext(de.Name()))] {
			ix.indexFile(full)
		}
	}

	if len(subdirs) > 0 {
		ix.AddDirectories(subdirs, e.depthRemaining-1)
	}

	ix.mu.Lock()
	ix.doneCost++
	ix.mu.Unlock()
}

// indexFile parses path into a staged copy of the current environment and
// commits it. A parse failure is logged and the file is still committed to
// current (with whatever partial arena resulted) but never promoted to
// valid — the file must not silently disappear from current just because
// it fails to parse.
func (ix *Indexer) indexFile(path string) {
	stage := ix.current.StageCopy()

	src, err := os.ReadFile(path)
	if err != nil {
		if ix.log != nil {
			ix.log.WithField("path", path).WithField("error", err.Error()).Warn("failed to read file")
		}

		return
	}

	arena, parseErr := stage.LoadFile(path, string(src), environ.LoadOptions{WithScriptExpressions: true})
	if parseErr != nil && ix.log != nil {
		ix.log.WithField("path", path).WithField("error", parseErr.Error()).Warn("failed to parse file")
	}

	if ix.resolver != nil {
		_ = stage.LoadPendingDependencies(ix.resolver, func(p string) (string, error) {
			b, err := os.ReadFile(p)
			return string(b), err
		})
	}

	stage.Commit(ix.current)

	if parseErr == nil {
		validStage := ix.valid.StageCopy()
		if _, err := validStage.LoadFile(path, string(src), environ.LoadOptions{WithScriptExpressions: true}); err == nil {
			validStage.Commit(ix.valid)
		}
	}

	_ = arena
}

func (ix *Indexer) reportProgress() {
	ix.mu.Lock()
	done := ix.doneCost
	total := done + ix.inFlight + len(ix.worklist)
	cb := ix.onProgress
	ix.mu.Unlock()

	if cb != nil {
		cb(done, total)
	}
}
