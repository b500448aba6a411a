package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SeleniaProject/qmlls/internal/errors"
)

func TestTransitionsAdvanceInOrder(t *testing.T) {
	l := New()

	l.FinishSetup()
	require.Equal(t, SettingUp, l.State())

	l.HandlersRegistered()
	require.Equal(t, DidSetup, l.State())

	l.BeginInitialize()
	require.Equal(t, Initializing, l.State())

	l.CapabilitiesBuilt()
	require.Equal(t, DidInitialize, l.State())
}

func TestBackwardsTransitionIsRejectedAndReported(t *testing.T) {
	l := New()
	l.FinishSetup()
	l.HandlersRegistered()
	l.BeginInitialize()
	l.CapabilitiesBuilt()

	var reported *errors.StandardError
	l.OnLifecycleError(func(err *errors.StandardError) { reported = err })

	l.FinishSetup() // attempts DidInitialize -> SettingUp, a backwards move

	require.Equal(t, DidInitialize, l.State(), "expected state to remain DidInitialize")
	require.NotNil(t, reported, "expected onLifecycleError to be invoked for a backwards transition")
}

func TestAdmitBeforeInitializeOnlyPassesInitializeAndExit(t *testing.T) {
	l := New()

	require.Equal(t, GatePass, l.Admit("initialize", true), "expected initialize to pass pre-setup")
	require.Equal(t, GatePass, l.Admit("exit", false), "expected exit to pass pre-setup")
	require.Equal(t, GateServerNotInitialized, l.Admit("textDocument/completion", true), "expected a request to be rejected as ServerNotInitialized")
	require.Equal(t, GateDrop, l.Admit("textDocument/didOpen", false), "expected a notification to be dropped")
}

func TestAdmitAfterInitializePassesEverything(t *testing.T) {
	l := New()
	l.FinishSetup()
	l.HandlersRegistered()
	l.BeginInitialize()
	l.CapabilitiesBuilt()

	require.Equal(t, GatePass, l.Admit("textDocument/completion", true), "expected requests to pass once initialized")
}

func TestAdmitAfterShutdownOnlyPassesExit(t *testing.T) {
	l := New()
	l.FinishSetup()
	l.HandlersRegistered()
	l.BeginInitialize()
	l.CapabilitiesBuilt()

	l.Shutdown(func() {})

	require.Equal(t, GatePass, l.Admit("exit", false), "expected exit to pass post-shutdown")
	require.Equal(t, GateInvalidRequest, l.Admit("textDocument/completion", true), "expected a request to be rejected as InvalidRequest")
}

func TestShutdownRespondsImmediatelyWithNoInFlight(t *testing.T) {
	l := New()

	fired := false
	l.Shutdown(func() { fired = true })

	require.True(t, fired, "expected respondNow to fire synchronously when nothing is in flight")
	require.Equal(t, Stopping, l.State())
}

func TestShutdownDefersUntilInFlightDrains(t *testing.T) {
	l := New()
	l.RegisterInFlight("req-1")

	fired := false
	l.Shutdown(func() { fired = true })

	require.False(t, fired, "expected respondNow to be deferred while a request is in flight")
	require.Equal(t, WaitPending, l.State())

	l.CompleteInFlight("req-1")

	require.True(t, fired, "expected deferred respondNow to fire once the last in-flight request completes")
	require.Equal(t, Stopping, l.State(), "expected Stopping after deferred shutdown fires")
}

func TestCancelMarksInFlightCanceled(t *testing.T) {
	l := New()
	l.RegisterInFlight("req-1")

	require.False(t, l.IsCanceled("req-1"), "expected not canceled before Cancel is called")

	l.Cancel("req-1")

	require.True(t, l.IsCanceled("req-1"), "expected canceled after Cancel")
}

func TestExecuteShutdownReachesTerminalState(t *testing.T) {
	l := New()
	l.Shutdown(func() {})
	l.ExecuteShutdown()

	require.Equal(t, Stopped, l.State())
}
