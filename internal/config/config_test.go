package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SeleniaProject/qmlls/internal/registry"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 4, cfg.MaxWorkers)
	require.Equal(t, 64, cfg.IndexDepthBudget)
}

func TestLoadSettingsFileOverlaysBuildDirAndLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".qmlls.ini")

	content := "buildDir = /proj/build\nlogLevel = debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := LoadSettingsFile(Default(), path)

	require.Equal(t, "debug", cfg.LogLevel)
	require.NotEmpty(t, cfg.BuildDirs)
	require.Equal(t, "/proj/build", cfg.BuildDirs[0])
}

func TestLoadSettingsFileIsNoopWhenMissing(t *testing.T) {
	cfg := Default()

	got := LoadSettingsFile(cfg, filepath.Join(t.TempDir(), "missing.ini"))

	require.Equal(t, cfg.LogLevel, got.LogLevel)
	require.Equal(t, cfg.MaxWorkers, got.MaxWorkers)
	require.Len(t, got.BuildDirs, len(cfg.BuildDirs))
}

func TestLoadEnvAppendsBuildDirs(t *testing.T) {
	t.Setenv(registry.BuildDirsEnvVar, "/a"+string(os.PathListSeparator)+"/b")

	cfg := LoadEnv(Default())

	require.Equal(t, []string{"/a", "/b"}, cfg.BuildDirs)
}

func TestParseFlagsOverridesLogLevelAndWorkers(t *testing.T) {
	cfg := ParseFlags(Default(), []string{"--log-level", "warn", "--max-workers", "8", "--build-dir", "/x"})

	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, 8, cfg.MaxWorkers)
	require.Equal(t, []string{"/x"}, cfg.BuildDirs)
}
