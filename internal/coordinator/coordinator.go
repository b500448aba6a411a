// Package coordinator implements RequestCoordinator: the per-module queue
// that holds an LSP request until a snapshot of sufficient version has been
// published for its URL, then dispatches it onto a shared worker pool.
package coordinator

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/SeleniaProject/qmlls/internal/errors"
	"github.com/SeleniaProject/qmlls/internal/registry"
)

// PendingRequest is one queued request awaiting a snapshot of sufficient
// version for its URL.
type PendingRequest struct {
	URL        string
	MinVersion int
	Params     interface{}

	seq int64 // insertion order, for LIFO tie-break

	Process func(ctx context.Context, snap registry.Snapshot, params interface{}) (interface{}, *errors.StandardError)
	Send    func(value interface{})
	SendErr func(code, message string)
}

// Coordinator holds one module's pending-request multimap and dispatches
// ready requests onto a shared worker pool. One Coordinator per analysis
// module (completion, hover, references, ...); all share the same
// underlying Registry snapshot-updated signal and the same worker Pool.
type Coordinator struct {
	mu      sync.Mutex
	pending map[string][]*PendingRequest
	nextSeq int64

	reg  *registry.Registry
	pool *Pool
}

// New creates a Coordinator subscribed to reg's snapshot-updated signal.
func New(reg *registry.Registry, pool *Pool) *Coordinator {
	c := &Coordinator{
		pending: make(map[string][]*PendingRequest),
		reg:     reg,
		pool:    pool,
	}

	reg.OnSnapshotUpdated(c.onSnapshotUpdated)

	return c
}

// Receive enqueues req and, if a snapshot already satisfies its
// min_version, dispatches it immediately — treated as a synthetic
// snapshot_updated event rather than a special case, so the gating check
// only ever lives in one place.
func (c *Coordinator) Receive(req *PendingRequest) {
	c.mu.Lock()
	c.nextSeq++
	req.seq = c.nextSeq
	c.pending[req.URL] = append(c.pending[req.URL], req)
	c.mu.Unlock()

	c.onSnapshotUpdated(req.URL)
}

// onSnapshotUpdated atomically collects every pending request for u whose
// min_version is now satisfied, removes them from the map, and schedules
// each on the worker pool in LIFO order (the most recently received ready
// request runs first, since it is most likely to reflect what the user is
// currently looking at).
func (c *Coordinator) onSnapshotUpdated(u string) {
	snap, ok := c.reg.Snapshot(u)
	if !ok {
		return
	}

	if snap.DocVersion == nil {
		return
	}

	ready := c.takeReadyLocked(u, *snap.DocVersion)

	sort.Slice(ready, func(i, j int) bool { return ready[i].seq > ready[j].seq })

	for _, req := range ready {
		c.pool.Submit(func(ctx context.Context) error {
			return c.run(ctx, req, snap)
		})
	}
}

func (c *Coordinator) takeReadyLocked(u string, docVersion int) []*PendingRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	all := c.pending[u]
	var ready, keep []*PendingRequest

	for _, req := range all {
		if req.MinVersion <= docVersion {
			ready = append(ready, req)
		} else {
			keep = append(keep, req)
		}
	}

	if len(keep) == 0 {
		delete(c.pending, u)
	} else {
		c.pending[u] = keep
	}

	return ready
}

// run invokes req.Process and guarantees exactly one of Send/SendErr fires,
// recovering a panicking module into a WorkerPanic error response rather
// than losing the request's responder.
func (c *Coordinator) run(ctx context.Context, req *PendingRequest, snap registry.Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			se := errors.WorkerPanic(r)
			req.SendErr(string(se.Category)+":"+se.Code, se.Message)
		}
	}()

	value, se := req.Process(ctx, snap, req.Params)
	if se != nil {
		req.SendErr(string(se.Category)+":"+se.Code, se.Message)
		return nil
	}

	req.Send(value)

	return nil
}

// CancelAll drops every pending request for u, invoking SendErr with a
// cancellation error for each.
func (c *Coordinator) CancelAll(u string) {
	c.mu.Lock()
	reqs := c.pending[u]
	delete(c.pending, u)
	c.mu.Unlock()

	for _, req := range reqs {
		se := errors.RequestCancelled(u)
		req.SendErr(string(se.Category)+":"+se.Code, se.Message)
	}
}

// Pool is the shared worker pool every Coordinator schedules ready
// requests onto. Backed by errgroup so a panic-free worker failure
// propagates through Wait without taking the whole process down —
// coordinator.run already recovers per-request panics, so Pool's own
// errgroup never actually sees a returned error in practice, but the type
// keeps that guarantee explicit rather than assumed.
type Pool struct {
	g   *errgroup.Group
	ctx context.Context
	sem chan struct{}
}

// NewPool creates a Pool bounding concurrent request processing to
// maxWorkers.
func NewPool(ctx context.Context, maxWorkers int) *Pool {
	g, gctx := errgroup.WithContext(ctx)

	return &Pool{
		g:   g,
		ctx: gctx,
		sem: make(chan struct{}, maxWorkers),
	}
}

// Submit schedules fn to run once a worker slot is free.
func (p *Pool) Submit(fn func(ctx context.Context) error) {
	p.g.Go(func() error {
		p.sem <- struct{}{}
		defer func() { <-p.sem }()

		return fn(p.ctx)
	})
}

// Wait blocks until every submitted task has returned.
func (p *Pool) Wait() error {
	return p.g.Wait()
}
