// Package updater implements OpenDocUpdater: the per-URL re-parse unit
// that keeps each open document's published snapshot current as the user
// types, independent of the background directory indexer.
package updater

import (
	"context"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/SeleniaProject/qmlls/internal/environ"
	"github.com/SeleniaProject/qmlls/internal/log"
	"github.com/SeleniaProject/qmlls/internal/registry"
)

// CoalesceDelay is the heuristic delay before an invalid parse is re-queued
// for another attempt, giving rapid keystrokes a chance to settle before
// a failed parse becomes the published snapshot. Not a correctness
// guarantee — only ever shortens perceived latency of showing a stale
// "valid" snapshot.
const CoalesceDelay = 400 * time.Millisecond

// Updater re-parses modified open documents and publishes snapshots.
// Bound to a single concurrent worker (semaphore weight 1), independent of
// the Indexer's own bound, since the two run against different triggers
// (user edits vs. directory scans) and neither should be starved by the
// other's backlog.
type Updater struct {
	mu      sync.Mutex
	pending map[string]bool
	order   []string // round-robin order of pending URLs
	gen     map[string]int64

	registry *registry.Registry
	current  *environ.Environment
	valid    *environ.Environment
	resolver environ.DependencyResolver

	sem *semaphore.Weighted
	log *log.Entry
}

// New creates an Updater operating against reg's open documents, staging
// re-parses from current and promoting valid ones into valid.
func New(reg *registry.Registry, current, valid *environ.Environment, resolver environ.DependencyResolver, logger *log.Entry) *Updater {
	return &Updater{
		pending:  make(map[string]bool),
		gen:      make(map[string]int64),
		registry: reg,
		current:  current,
		valid:    valid,
		resolver: resolver,
		sem:      semaphore.NewWeighted(1),
		log:      logger,
	}
}

// Enqueue marks u as needing a re-parse and kicks the worker.
func (u *Updater) Enqueue(ctx context.Context, url string) {
	u.mu.Lock()
	u.gen[url]++

	if !u.pending[url] {
		u.pending[url] = true
		u.order = append(u.order, url)
	}
	u.mu.Unlock()

	u.kick(ctx)
}

func (u *Updater) kick(ctx context.Context) {
	if !u.sem.TryAcquire(1) {
		return
	}

	go func() {
		defer u.sem.Release(1)
		u.drain(ctx)
	}()
}

func (u *Updater) drain(ctx context.Context) {
	for {
		url, ok := u.popLocked()
		if !ok {
			return
		}

		u.processOne(ctx, url)
	}
}

func (u *Updater) popLocked() (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if len(u.order) == 0 {
		return "", false
	}

	url := u.order[0]
	u.order = u.order[1:]
	delete(u.pending, url)

	return url, true
}

// processOne performs the four-step unit of work for url.
func (u *Updater) processOne(ctx context.Context, url string) {
	od := u.registry.OpenDocumentAt(url)
	if od == nil {
		return
	}

	rNow, hasVersion := od.TextDocument.Version()
	if !hasVersion {
		return
	}

	snap := od.Snapshot()
	if snap.DocVersion != nil && *snap.DocVersion == rNow {
		return
	}

	u.mu.Lock()
	generation := u.gen[url]
	u.mu.Unlock()

	path, ok := u.registry.UrlToPath(url, registry.Force)
	if !ok {
		return
	}

	currentText := od.TextDocument.Text()

	stage := u.current.StageCopy()
	arena, parseErr := stage.LoadFile(path, currentText, environ.LoadOptions{WithScriptExpressions: true})

	if u.resolver != nil {
		_ = stage.LoadPendingDependencies(u.resolver, func(p string) (string, error) {
			b, err := os.ReadFile(p)
			return string(b), err
		})
	}

	stage.Commit(u.current)

	isValid := parseErr == nil
	var validArena = arena

	if isValid {
		validStage := u.valid.StageCopy()
		if _, err := validStage.LoadFile(path, currentText, environ.LoadOptions{WithScriptExpressions: true}); err == nil {
			validStage.Commit(u.valid)
		} else {
			isValid = false
		}
	}

	published := u.registry.UpdateSnapshotIfCurrent(url, rNow, func(cur registry.Snapshot) registry.Snapshot {
		next := cur

		if cur.DocVersion == nil || *cur.DocVersion < rNow {
			v := rNow
			next.DocVersion = &v
			next.Doc = arena
		}

		if isValid && (cur.ValidDocVersion == nil || *cur.ValidDocVersion < rNow) {
			v := rNow
			next.ValidDocVersion = &v
			next.ValidDoc = validArena
		}

		return next
	})

	if published && !isValid {
		u.scheduleCoalesce(ctx, url, generation)
	}
}

// scheduleCoalesce re-enqueues url after CoalesceDelay unless a newer edit
// (tracked by the generation counter) has arrived in the meantime, in
// which case that edit's own enqueue already supersedes this one.
func (u *Updater) scheduleCoalesce(ctx context.Context, url string, atGeneration int64) {
	u.mu.Lock()
	g := u.gen[url]
	u.mu.Unlock()

	if g != atGeneration {
		return
	}

	time.AfterFunc(CoalesceDelay, func() {
		u.mu.Lock()
		stillCurrent := u.gen[url] == atGeneration
		u.mu.Unlock()

		if stillCurrent {
			u.Enqueue(ctx, url)
		}
	})
}
