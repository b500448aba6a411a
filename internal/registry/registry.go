// Package registry implements the process-wide map from document URL to
// open document state, URL/path canonicalization, and the per-root build
// directory registry that the environment loader consults when resolving
// import statements against compiled output.
package registry

import (
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SeleniaProject/qmlls/internal/dom"
	"github.com/SeleniaProject/qmlls/internal/errors"
	"github.com/SeleniaProject/qmlls/internal/text"
)

// LookupMode controls whether url_to_path may recompute a cache miss from
// scratch (Force) or must answer strictly from the existing cache (Cached).
type LookupMode int

const (
	Cached LookupMode = iota
	Force
)

// Snapshot is the per-URL published view an analysis module reads: the
// latest parse and the latest structurally-valid parse, each tagged with
// the document version they were produced from.
type Snapshot struct {
	DocVersion      *int
	Doc             *dom.Arena
	ValidDocVersion *int
	ValidDoc        *dom.Arena
	ScopeVersion    *int
	DepLoadTime     time.Time
}

// clone returns a value copy of the snapshot; DomItem arenas are treated as
// reference-counted-handle-cheap to copy because callers never mutate an
// arena in place once published.
func (s Snapshot) clone() Snapshot { return s }

// OpenDocument pairs a mutable text buffer with its most recently published
// snapshot. Owned by the Registry; destroyed on close.
type OpenDocument struct {
	TextDocument *text.Document
	mu           sync.RWMutex
	snapshot     Snapshot
}

func (o *OpenDocument) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.snapshot.clone()
}

func (o *OpenDocument) setSnapshot(s Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.snapshot = s
}

// SnapshotListener is notified once a new snapshot has been published for
// a URL. The registry itself does not schedule anything from this signal —
// internal/coordinator subscribes to drain pending requests.
type SnapshotListener func(u string)

// Registry is the process-wide document map plus URL/path cache and build
// directory registry (C2).
type Registry struct {
	mu sync.RWMutex

	docs map[string]*OpenDocument

	urlToPathCache map[string]string
	pathToURLCache map[string]string

	roots           []string
	buildDirsByRoot map[string][]string

	listeners []SnapshotListener
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		docs:            make(map[string]*OpenDocument),
		urlToPathCache:  make(map[string]string),
		pathToURLCache:  make(map[string]string),
		buildDirsByRoot: make(map[string][]string),
	}
}

// OnSnapshotUpdated registers a listener invoked after PublishSnapshot.
func (r *Registry) OnSnapshotUpdated(l SnapshotListener) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.listeners = append(r.listeners, l)
}

func (r *Registry) emitSnapshotUpdated(u string) {
	r.mu.RLock()
	listeners := append([]SnapshotListener(nil), r.listeners...)
	r.mu.RUnlock()

	for _, l := range listeners {
		l(u)
	}
}

// Open creates a fresh OpenDocument for u with an empty snapshot.
func (r *Registry) Open(u, path, initialText string, version int) *OpenDocument {
	r.mu.Lock()
	defer r.mu.Unlock()

	od := &OpenDocument{TextDocument: text.New(u, initialText, version)}
	r.docs[u] = od

	if path != "" {
		r.urlToPathCache[u] = path
		r.pathToURLCache[path] = u
	}

	return od
}

// Change applies an incremental edit under the document's own lock and
// reports whether the edit was accepted (version advanced).
func (r *Registry) Change(u string, rng text.Range, newText string, version int) error {
	od := r.OpenDocumentAt(u)
	if od == nil {
		return errors.UnknownDocument(u)
	}

	return od.TextDocument.ApplyChange(rng, newText, version)
}

// Close removes the OpenDocument for u.
func (r *Registry) Close(u string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.docs, u)
}

// OpenDocumentAt returns the OpenDocument for u, or nil.
func (r *Registry) OpenDocumentAt(u string) *OpenDocument {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.docs[u]
}

// Snapshot returns a copy of the current snapshot for u.
func (r *Registry) Snapshot(u string) (Snapshot, bool) {
	od := r.OpenDocumentAt(u)
	if od == nil {
		return Snapshot{}, false
	}

	return od.Snapshot(), true
}

// PublishSnapshot atomically replaces the snapshot for u, honoring the
// non-regression invariant: doc_version must be non-decreasing, and
// valid_doc_version must never exceed doc_version. Returns false if the
// document was closed, or if the publish was stale or would break the
// second rule, and was therefore discarded.
func (r *Registry) PublishSnapshot(u string, next Snapshot) bool {
	od := r.OpenDocumentAt(u)
	if od == nil {
		return false
	}

	od.mu.Lock()

	cur := od.snapshot
	if cur.DocVersion != nil && next.DocVersion != nil && *next.DocVersion < *cur.DocVersion {
		od.mu.Unlock()
		return false
	}

	if next.ValidDocVersion != nil && next.DocVersion != nil && *next.ValidDocVersion > *next.DocVersion {
		od.mu.Unlock()
		return false
	}

	od.snapshot = next
	od.mu.Unlock()

	r.emitSnapshotUpdated(u)

	return true
}

// UpdateSnapshotIfCurrent implements the OpenDocUpdater unit-of-work
// commit step: if the document was closed meanwhile, or its text version
// has since advanced past rNow, the result is dropped. Otherwise apply is
// called with the current snapshot under the document's lock and its
// return value becomes the new snapshot; apply must use the same rNow for
// every comparison it makes, so a snapshot never regresses even under
// concurrent updates.
func (r *Registry) UpdateSnapshotIfCurrent(u string, rNow int, apply func(cur Snapshot) Snapshot) bool {
	od := r.OpenDocumentAt(u)
	if od == nil {
		return false
	}

	if v, has := od.TextDocument.Version(); has && v > rNow {
		return false
	}

	od.mu.Lock()
	od.snapshot = apply(od.snapshot)
	od.mu.Unlock()

	r.emitSnapshotUpdated(u)

	return true
}

// UrlToPath canonicalizes a document URL to a filesystem path, consulting
// the two-direction cache first. In Cached mode a miss returns ("", false)
// without attempting to parse the URL; in Force mode a miss is computed
// (file:// URL decoding) and the result is cached both ways.
func (r *Registry) UrlToPath(u string, mode LookupMode) (string, bool) {
	r.mu.RLock()
	if p, ok := r.urlToPathCache[u]; ok {
		r.mu.RUnlock()
		return p, true
	}
	r.mu.RUnlock()

	if mode == Cached {
		return "", false
	}

	p, ok := decodeFileURL(u)
	if !ok {
		return "", false
	}

	r.mu.Lock()
	r.urlToPathCache[u] = p
	r.pathToURLCache[p] = u
	r.mu.Unlock()

	return p, true
}

// PathToUrl is the inverse of UrlToPath.
func (r *Registry) PathToUrl(path string, mode LookupMode) (string, bool) {
	r.mu.RLock()
	if u, ok := r.pathToURLCache[path]; ok {
		r.mu.RUnlock()
		return u, true
	}
	r.mu.RUnlock()

	if mode == Cached {
		return "", false
	}

	u := encodeFileURL(path)

	r.mu.Lock()
	r.urlToPathCache[u] = path
	r.pathToURLCache[path] = u
	r.mu.Unlock()

	return u, true
}

func decodeFileURL(u string) (string, bool) {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Scheme != "file" {
		return "", false
	}

	p := parsed.Path
	if isWindowsDrivePath(p) {
		p = strings.TrimPrefix(p, "/")
	}

	return filepath.FromSlash(p), true
}

func encodeFileURL(path string) string {
	slashed := filepath.ToSlash(path)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}

	u := url.URL{Scheme: "file", Path: slashed}

	return u.String()
}

func isWindowsDrivePath(p string) bool {
	return len(p) >= 3 && p[0] == '/' && p[2] == ':'
}

// AddRoot registers a workspace root URL.
func (r *Registry) AddRoot(rootURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.roots {
		if existing == rootURL {
			return
		}
	}

	r.roots = append(r.roots, rootURL)
	sort.Slice(r.roots, func(i, j int) bool { return len(r.roots[i]) > len(r.roots[j]) })
}

// RemoveRoot unregisters a workspace root URL and its build dirs.
func (r *Registry) RemoveRoot(rootURL string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.roots[:0]

	for _, existing := range r.roots {
		if existing != rootURL {
			out = append(out, existing)
		}
	}

	r.roots = out
	delete(r.buildDirsByRoot, rootURL)
}

// SetBuildDirs registers explicit build directories for rootURL, as set by
// the $/addBuildDirs extension or initial workspace folder setup. Passing
// rootURL = "" sets the empty-root default.
func (r *Registry) SetBuildDirs(rootURL string, dirs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buildDirsByRoot[rootURL] = append([]string(nil), dirs...)
}

// matchingRoot returns the longest registered root URL that is a prefix of
// fileURL, and whether any root matched.
func (r *Registry) matchingRoot(fileURL string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, root := range r.roots {
		if strings.HasPrefix(fileURL, root) {
			return root, true
		}
	}

	return "", false
}

func (r *Registry) explicitBuildDirs(root string) ([]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dirs, ok := r.buildDirsByRoot[root]

	return dirs, ok
}
