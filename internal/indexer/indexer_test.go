package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	"github.com/SeleniaProject/qmlls/internal/environ"
	"github.com/SeleniaProject/qmlls/internal/registry"
)

func TestAddDirectoriesDropsSubpathOfQueued(t *testing.T) {
	ix := New(environ.New(), environ.New(), nil, nil)

	ix.AddDirectories([]string{"/proj"}, 4)
	ix.AddDirectories([]string{"/proj/sub"}, 4)

	require.Len(t, ix.worklist, 1, "expected subpath to be dropped")
}

func TestAddDirectoriesAbsorbsDescendants(t *testing.T) {
	ix := New(environ.New(), environ.New(), nil, nil)

	ix.AddDirectories([]string{"/proj/sub"}, 4)
	ix.AddDirectories([]string{"/proj"}, 4)

	require.Len(t, ix.worklist, 1, "expected ancestor to absorb descendant")
	require.Equal(t, filepath.Clean("/proj"), ix.worklist[0].path)
}

func TestProcessDirectoryIndexesRecognizedFiles(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Main.qml"), []byte("Item {}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	current := environ.New()
	valid := environ.New()

	ix := New(current, valid, nil, nil)
	ix.processDirectory(nil, entry{path: dir, depthRemaining: 0})

	mainPath := filepath.Join(dir, "Main.qml")

	_, ok := current.File(mainPath)
	require.True(t, ok, "expected Main.qml to be indexed into current")

	_, ok = valid.File(mainPath)
	require.True(t, ok, "expected a syntactically valid file to be promoted to valid")

	_, ok = current.File(filepath.Join(dir, "notes.txt"))
	require.False(t, ok, "expected unrecognized extension to be skipped")
}

func TestProcessDirectoryDoesNotPromoteInvalidParse(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Bad.qml"), []byte("Item { property }"), 0o644))

	current := environ.New()
	valid := environ.New()

	ix := New(current, valid, nil, nil)
	ix.processDirectory(nil, entry{path: dir, depthRemaining: 0})

	badPath := filepath.Join(dir, "Bad.qml")

	_, ok := current.File(badPath)
	require.True(t, ok, "expected malformed file to still be recorded in current")

	_, ok = valid.File(badPath)
	require.False(t, ok, "expected malformed file to not be promoted to valid")
}

func TestResolverReadsQmldirListing(t *testing.T) {
	dir := t.TempDir()
	widgetsDir := filepath.Join(dir, "Widgets")

	require.NoError(t, os.MkdirAll(widgetsDir, 0o755))

	qmldir := "module Widgets\nButton 1.0 Button.qml\nCard 1.0 Card.qml\n"
	require.NoError(t, os.WriteFile(filepath.Join(widgetsDir, "qmldir"), []byte(qmldir), 0o644))

	files, ok := readQmldir(widgetsDir)
	require.True(t, ok, "expected qmldir to be found")
	require.Len(t, files, 2)
}

func TestResolverFallsBackToDirectoryScan(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Plain.qml"), []byte("Item {}"), 0o644))

	_, ok := readQmldir(dir)
	require.False(t, ok, "expected no qmldir to be found in this directory")
}

func TestIsWatchedNameAcceptsSourceAndQmldir(t *testing.T) {
	for _, name := range []string{"Main.qml", "helper.js", "module.mjs", "Widgets.qmltypes", "qmldir"} {
		require.True(t, isWatchedName(name), "expected %q to be a watched name", name)
	}

	require.False(t, isWatchedName("notes.txt"), "expected an unrecognized extension to not be watched")
}

func TestHandleWatchEventReindexesSingleFileOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Main.qml")

	require.NoError(t, os.WriteFile(path, []byte("Item {}"), 0o644))

	current := environ.New()
	valid := environ.New()
	ix := New(current, valid, nil, nil)

	ix.handleWatchEvent(context.Background(), fsnotify.Event{Name: path, Op: fsnotify.Write})

	_, ok := current.File(path)
	require.True(t, ok, "expected a write event to reindex the file directly")
}

func TestHandleWatchEventRescansDirectoryOnCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "New.qml")

	ix := New(environ.New(), environ.New(), nil, nil)

	// Hold the single worker slot so Kick cannot drain the worklist before
	// this test inspects it.
	ix.sem.TryAcquire(1)

	ix.handleWatchEvent(context.Background(), fsnotify.Event{Name: path, Op: fsnotify.Create})

	require.Len(t, ix.worklist, 1, "expected the containing directory to be re-enqueued")
	require.Equal(t, filepath.Clean(dir), ix.worklist[0].path)
}

func TestHandleWatchEventIgnoresUnrecognizedNames(t *testing.T) {
	ix := New(environ.New(), environ.New(), nil, nil)
	ix.handleWatchEvent(context.Background(), fsnotify.Event{Name: "/tmp/notes.txt", Op: fsnotify.Write})

	require.Empty(t, ix.worklist, "expected no worklist entries from an ignored name")
}

func TestModuleResolverResolvesViaQmldir(t *testing.T) {
	buildDir := t.TempDir()
	widgetsDir := filepath.Join(buildDir, "Widgets")

	require.NoError(t, os.MkdirAll(widgetsDir, 0o755))

	qmldir := "module Widgets\nButton 1.0 Button.qml\n"
	require.NoError(t, os.WriteFile(filepath.Join(widgetsDir, "qmldir"), []byte(qmldir), 0o644))

	reg := registry.New()
	reg.SetBuildDirs("", []string{buildDir})

	resolver := &ModuleResolver{Registry: reg, FileURL: "file:///proj/main.qml"}

	paths, err := resolver.ResolveModule("Widgets")
	require.NoError(t, err)
	require.Len(t, paths, 1)
	require.Equal(t, "Button.qml", filepath.Base(paths[0]))
}
