// Package lifecycle implements ServerLifecycle: the run-state machine
// gating which messages the server accepts at each point in its setup,
// initialize, and shutdown sequence, plus in-flight request bookkeeping.
package lifecycle

import (
	"sync"

	"github.com/SeleniaProject/qmlls/internal/errors"
)

// RunState is one state of the server's monotonic lifecycle.
type RunState int

const (
	NotSetup RunState = iota
	SettingUp
	DidSetup
	Initializing
	DidInitialize
	WaitPending
	Stopping
	Stopped
)

func (s RunState) String() string {
	switch s {
	case NotSetup:
		return "NotSetup"
	case SettingUp:
		return "SettingUp"
	case DidSetup:
		return "DidSetup"
	case Initializing:
		return "Initializing"
	case DidInitialize:
		return "DidInitialize"
	case WaitPending:
		return "WaitPending"
	case Stopping:
		return "Stopping"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Gate is the verdict Admit returns for an incoming message.
type Gate int

const (
	// GatePass means the message should be routed to its handler normally.
	GatePass Gate = iota
	// GateServerNotInitialized means the message is a request that must be
	// answered with a ServerNotInitialized error.
	GateServerNotInitialized
	// GateInvalidRequest means the message is a request that must be
	// answered with an InvalidRequest error.
	GateInvalidRequest
	// GateDrop means the message is a notification that must be silently
	// ignored.
	GateDrop
)

// requestInProgress tracks one in-flight request keyed by its id.
type requestInProgress struct {
	canceled bool
}

// Lifecycle is the mutex-gated run-state machine. runState only ever moves
// forward through the sequence declared by RunState's iota ordering;
// transitionTo reports any attempted backwards move as a LifecycleViolation
// rather than applying it.
type Lifecycle struct {
	mu    sync.Mutex
	state RunState

	inFlight map[string]*requestInProgress

	onDeferredShutdown func()
	deferredShutdown   bool

	onLifecycleError func(err *errors.StandardError)
}

// New creates a Lifecycle in NotSetup.
func New() *Lifecycle {
	return &Lifecycle{
		state:    NotSetup,
		inFlight: make(map[string]*requestInProgress),
	}
}

// OnLifecycleError registers a callback invoked (never panics, never
// crashes the server) whenever a backwards transition is attempted.
func (l *Lifecycle) OnLifecycleError(f func(err *errors.StandardError)) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.onLifecycleError = f
}

// State returns the current run-state.
func (l *Lifecycle) State() RunState {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state
}

// FinishSetup transitions NotSetup -> SettingUp.
func (l *Lifecycle) FinishSetup() { l.transitionTo(SettingUp) }

// HandlersRegistered transitions SettingUp -> DidSetup.
func (l *Lifecycle) HandlersRegistered() { l.transitionTo(DidSetup) }

// BeginInitialize transitions DidSetup -> Initializing, on receipt of the
// initialize request.
func (l *Lifecycle) BeginInitialize() { l.transitionTo(Initializing) }

// CapabilitiesBuilt transitions Initializing -> DidInitialize.
func (l *Lifecycle) CapabilitiesBuilt() { l.transitionTo(DidInitialize) }

func (l *Lifecycle) transitionTo(to RunState) {
	l.mu.Lock()
	from := l.state

	if to < from {
		cb := l.onLifecycleError
		l.mu.Unlock()

		if cb != nil {
			cb(errors.LifecycleViolation(from.String(), to.String()))
		}

		return
	}

	l.state = to
	l.mu.Unlock()
}

// Admit classifies an incoming message against the current run-state.
// hasID distinguishes requests (expect a response) from notifications.
func (l *Lifecycle) Admit(method string, hasID bool) Gate {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case NotSetup, SettingUp, DidSetup:
		if method == "initialize" || method == "exit" {
			return GatePass
		}

		if hasID {
			return GateServerNotInitialized
		}

		return GateDrop

	case WaitPending, Stopping, Stopped:
		if method == "exit" {
			return GatePass
		}

		if hasID {
			return GateInvalidRequest
		}

		return GateDrop

	default: // Initializing, DidInitialize
		return GatePass
	}
}

// RegisterInFlight records a new in-flight request, as Admit's caller must
// do for every request with an id once it passes the gate.
func (l *Lifecycle) RegisterInFlight(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.inFlight[id] = &requestInProgress{}
}

// Cancel marks an in-flight request canceled; the request handler observes
// this the next time it checks IsCanceled.
func (l *Lifecycle) Cancel(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r, ok := l.inFlight[id]; ok {
		r.canceled = true
	}
}

// IsCanceled reports whether id has been canceled.
func (l *Lifecycle) IsCanceled(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.inFlight[id]

	return ok && r.canceled
}

// CompleteInFlight removes id from the in-flight set on response dispatch.
// If the server is WaitPending and no in-flight requests remain, this
// transitions to Stopping and fires the deferred shutdown response.
func (l *Lifecycle) CompleteInFlight(id string) {
	l.mu.Lock()
	delete(l.inFlight, id)

	remaining := len(l.inFlight)
	shouldFireDeferred := l.state == WaitPending && remaining == 0 && l.deferredShutdown

	if shouldFireDeferred {
		l.state = Stopping
		l.deferredShutdown = false
	}

	cb := l.onDeferredShutdown
	l.mu.Unlock()

	if shouldFireDeferred && cb != nil {
		cb()
	}
}

// InFlightCount returns the number of currently registered in-flight
// requests.
func (l *Lifecycle) InFlightCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.inFlight)
}

// Shutdown handles receipt of the shutdown request. If no requests are
// in-flight, it transitions directly to Stopping and respondNow is called
// synchronously to send the shutdown response. If
// requests remain in-flight, the server moves to WaitPending and
// respondNow is instead stashed as the deferred shutdown response, fired
// automatically once the last in-flight response is dispatched.
func (l *Lifecycle) Shutdown(respondNow func()) {
	l.mu.Lock()

	if len(l.inFlight) == 0 {
		l.state = Stopping
		l.mu.Unlock()
		respondNow()

		return
	}

	l.state = WaitPending
	l.deferredShutdown = true
	l.onDeferredShutdown = respondNow
	l.mu.Unlock()
}

// ExecuteShutdown transitions Stopping -> Stopped, the terminal state
// reached after the shutdown response has been sent and the exit
// notification arrives.
func (l *Lifecycle) ExecuteShutdown() { l.transitionTo(Stopped) }
