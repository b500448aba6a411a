// Package environ implements the two project-wide parse containers the
// coordinator maintains: current_env (the latest parse of every known
// file, valid or not) and valid_env (the last known-good parse of each
// file). Both are Environment values with identical behavior; which one a
// caller means is a matter of which variable holds it.
package environ

import (
	"encoding/binary"
	"fmt"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/SeleniaProject/qmlls/internal/dom"
	"github.com/SeleniaProject/qmlls/internal/text"
)

// LoadOptions controls how deeply LoadFile analyzes a file beyond syntax.
type LoadOptions struct {
	WithScriptExpressions bool
	WithSemanticAnalysis  bool
}

// fileEntry is one parsed file held by an Environment.
type fileEntry struct {
	arena *dom.Arena
	path  string
}

// Environment is an owning container of parsed files keyed by canonical
// path. It is internally single-writer: readers obtain immutable handles
// to individual files (the returned *dom.Arena is never mutated in place
// once published), while all structural changes go through StageCopy +
// Commit, or RemovePath.
type Environment struct {
	mu    sync.RWMutex
	files map[string]fileEntry

	refCache sync.Map // [16]byte -> interface{}
}

// New creates an empty Environment.
func New() *Environment {
	return &Environment{files: make(map[string]fileEntry)}
}

// File returns the arena for path, if loaded.
func (e *Environment) File(path string) (*dom.Arena, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	entry, ok := e.files[path]
	if !ok {
		return nil, false
	}

	return entry.arena, true
}

// Paths returns every path currently loaded.
func (e *Environment) Paths() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]string, 0, len(e.files))
	for p := range e.files {
		out = append(out, p)
	}

	return out
}

// RemovePath drops path (and its memoized reference-cache entries) from e.
func (e *Environment) RemovePath(path string) {
	e.mu.Lock()
	delete(e.files, path)
	e.mu.Unlock()

	e.ClearReferenceCache()
}

// ClearReferenceCache invalidates every memoized prototype-chain lookup.
// Called whenever a commit changes the shape of the file table in a way
// that could make a cached resolution stale.
func (e *Environment) ClearReferenceCache() {
	e.refCache.Range(func(k, _ interface{}) bool {
		e.refCache.Delete(k)
		return true
	})
}

// cacheKey hashes (path, version) into a fixed-size key for the reference
// cache. blake2b is used purely as a fast, well-distributed hash here —
// there is no security requirement on this key.
func cacheKey(path string, version int) [16]byte {
	h, _ := blake2b.New(16, nil)

	h.Write([]byte(path))

	var v [8]byte
	binary.LittleEndian.PutUint64(v[:], uint64(version))
	h.Write(v[:])

	var out [16]byte
	copy(out[:], h.Sum(nil))

	return out
}

// CachedReference returns a memoized value for (path, version), if any.
func (e *Environment) CachedReference(path string, version int) (interface{}, bool) {
	return e.refCache.Load(cacheKey(path, version))
}

// SetCachedReference memoizes value for (path, version).
func (e *Environment) SetCachedReference(path string, version int, value interface{}) {
	e.refCache.Store(cacheKey(path, version), value)
}

// StageHandle collects additions against a base Environment without
// mutating it; the base's existing files remain visible through the
// handle, layered under whatever the handle stages on top.
type StageHandle struct {
	base    *Environment
	staged  map[string]fileEntry
	imports []string // module names encountered while loading, pending resolution
}

// StageCopy returns a handle sharing e's file table and collecting staged
// additions.
func (e *Environment) StageCopy() *StageHandle {
	return &StageHandle{base: e, staged: make(map[string]fileEntry)}
}

// File looks up path first in the stage, then in the base environment.
func (h *StageHandle) File(path string) (*dom.Arena, bool) {
	if entry, ok := h.staged[path]; ok {
		return entry.arena, true
	}

	return h.base.File(path)
}

// LoadFile parses source (the file's content, already read from disk or
// taken from an open document's in-memory buffer) and stages it at path.
// opts currently only gates the shallow script-expression parse this
// package's dom collaborator performs; WithSemanticAnalysis is reserved —
// scope resolution lives outside this package's scope.
func (h *StageHandle) LoadFile(path, source string, opts LoadOptions) (*dom.Arena, error) {
	arena, diags := dom.Parse(path, source)

	h.staged[path] = fileEntry{arena: arena, path: path}

	for _, idx := range arena.Items[arena.Root()].Children {
		item := arena.Get(idx)
		if item.Kind == dom.KindImport && item.Name != "" {
			h.imports = append(h.imports, item.Name)
		}
	}

	if diags.HasErrors() {
		return arena, fmt.Errorf("parse of %s has %d error(s)", path, len(diags.GetErrors()))
	}

	return arena, nil
}

// LoadFileFromDocument stages a file from an open in-memory document
// rather than disk, parsing the document's current text. The document's
// version is not read.
func (h *StageHandle) LoadFileFromDocument(path string, doc *text.Document, opts LoadOptions) (*dom.Arena, error) {
	return h.LoadFile(path, doc.Text(), opts)
}

// PendingImports returns the module names collected by LoadFile calls made
// on this handle so far, for LoadPendingDependencies to resolve.
func (h *StageHandle) PendingImports() []string {
	return append([]string(nil), h.imports...)
}

// DependencyResolver resolves a module import name to zero or more
// additional file paths that must be parsed to make the staged file set
// self-consistent. Implemented by internal/indexer against build
// directories; kept as an interface here so environ has no dependency on
// the filesystem-scanning policy.
type DependencyResolver interface {
	ResolveModule(name string) ([]string, error)
}

// LoadPendingDependencies resolves every import collected so far via
// resolver, loading each resulting path (if not already staged or present
// in the base) from disk.
func (h *StageHandle) LoadPendingDependencies(resolver DependencyResolver, readFile func(string) (string, error)) error {
	seen := make(map[string]bool)

	for _, name := range h.imports {
		paths, err := resolver.ResolveModule(name)
		if err != nil {
			continue
		}

		for _, p := range paths {
			if seen[p] {
				continue
			}

			seen[p] = true

			if _, ok := h.File(p); ok {
				continue
			}

			src, err := readFile(p)
			if err != nil {
				continue
			}

			if _, err := h.LoadFile(p, src, LoadOptions{}); err != nil {
				continue
			}
		}
	}

	return nil
}

// Commit atomically merges the stage into target. Commit and RemovePath
// are the only mutating operations on an Environment's file table; target's writer lock
// is held for the duration, which is bounded (a map merge), never I/O.
func (h *StageHandle) Commit(target *Environment) {
	target.mu.Lock()
	for path, entry := range h.staged {
		target.files[path] = entry
	}
	target.mu.Unlock()

	target.ClearReferenceCache()
}
