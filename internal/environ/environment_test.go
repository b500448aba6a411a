package environ

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStageCopyIsInvisibleUntilCommit(t *testing.T) {
	env := New()

	stage := env.StageCopy()
	_, err := stage.LoadFile("/a.qml", "Item {}", LoadOptions{})
	require.NoError(t, err)

	_, ok := env.File("/a.qml")
	require.False(t, ok, "base environment should not see staged-but-uncommitted files")

	_, ok = stage.File("/a.qml")
	require.True(t, ok, "stage handle should see its own staged file")

	stage.Commit(env)

	_, ok = env.File("/a.qml")
	require.True(t, ok, "expected committed file to become visible on the base environment")
}

func TestLoadFileReportsParseErrors(t *testing.T) {
	env := New()
	stage := env.StageCopy()

	_, err := stage.LoadFile("/bad.qml", "Item { property }", LoadOptions{})
	require.Error(t, err, "expected a parse error for a malformed property definition")
}

func TestLoadFileCollectsPendingImports(t *testing.T) {
	env := New()
	stage := env.StageCopy()

	_, err := stage.LoadFile("/a.qml", "import QtQuick 2.0\nItem {}", LoadOptions{})
	require.NoError(t, err)

	imports := stage.PendingImports()
	require.Equal(t, []string{"QtQuick"}, imports)
}

type fakeResolver struct {
	modules map[string][]string
}

func (f *fakeResolver) ResolveModule(name string) ([]string, error) {
	paths, ok := f.modules[name]
	if !ok {
		return nil, fmt.Errorf("unknown module %s", name)
	}

	return paths, nil
}

func TestLoadPendingDependenciesLoadsResolvedFiles(t *testing.T) {
	env := New()
	stage := env.StageCopy()

	_, err := stage.LoadFile("/a.qml", "import Widgets 1.0\nItem {}", LoadOptions{})
	require.NoError(t, err)

	resolver := &fakeResolver{modules: map[string][]string{
		"Widgets": {"/deps/Widgets/Button.qml"},
	}}

	reads := map[string]string{
		"/deps/Widgets/Button.qml": "Item {}",
	}

	err = stage.LoadPendingDependencies(resolver, func(p string) (string, error) {
		src, ok := reads[p]
		if !ok {
			return "", fmt.Errorf("no such file %s", p)
		}

		return src, nil
	})
	require.NoError(t, err)

	_, ok := stage.File("/deps/Widgets/Button.qml")
	require.True(t, ok, "expected resolved dependency to be staged")
}

func TestCachedReferenceRoundTrip(t *testing.T) {
	env := New()

	_, ok := env.CachedReference("/a.qml", 1)
	require.False(t, ok, "expected no cached reference before SetCachedReference")

	env.SetCachedReference("/a.qml", 1, "resolved-value")

	v, ok := env.CachedReference("/a.qml", 1)
	require.True(t, ok)
	require.Equal(t, "resolved-value", v)
}

func TestCommitClearsReferenceCache(t *testing.T) {
	env := New()
	env.SetCachedReference("/a.qml", 1, "stale")

	stage := env.StageCopy()
	_, err := stage.LoadFile("/b.qml", "Item {}", LoadOptions{})
	require.NoError(t, err)

	stage.Commit(env)

	_, ok := env.CachedReference("/a.qml", 1)
	require.False(t, ok, "expected commit to invalidate the reference cache")
}

func TestRemovePathDropsFileAndCache(t *testing.T) {
	env := New()
	stage := env.StageCopy()

	_, err := stage.LoadFile("/a.qml", "Item {}", LoadOptions{})
	require.NoError(t, err)

	stage.Commit(env)
	env.SetCachedReference("/a.qml", 1, "v")

	env.RemovePath("/a.qml")

	_, ok := env.File("/a.qml")
	require.False(t, ok, "expected file to be gone after RemovePath")

	_, ok = env.CachedReference("/a.qml", 1)
	require.False(t, ok, "expected RemovePath to clear the reference cache")
}
