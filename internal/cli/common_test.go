package cli

import (
	"encoding/json"
	"io"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetVersionInfoReflectsRuntime(t *testing.T) {
	info := GetVersionInfo()

	require.Equal(t, Version, info.Version)
	require.Equal(t, runtime.Version(), info.GoVersion)
	require.Equal(t, runtime.GOOS, info.Platform)
	require.Equal(t, runtime.GOARCH, info.Arch)
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()

	require.NoError(t, w.Close())

	out, err := io.ReadAll(r)
	require.NoError(t, err)

	return string(out)
}

func TestPrintVersionJSONOutputIsValidJSON(t *testing.T) {
	out := captureStdout(t, func() { PrintVersion("qmlls", true) })

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Equal(t, "qmlls", decoded["tool"])
}

func TestPrintVersionPlainTextIncludesToolName(t *testing.T) {
	out := captureStdout(t, func() { PrintVersion("qmlls", false) })

	require.Contains(t, out, "qmlls v"+Version)
}
