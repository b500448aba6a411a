package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SeleniaProject/qmlls/internal/dom"
)

func TestUrlToPathRoundTrip(t *testing.T) {
	r := New()

	path, ok := r.UrlToPath("file:///home/user/app/main.qml", Force)
	require.True(t, ok, "expected successful decode")

	u, ok := r.PathToUrl(path, Cached)
	require.True(t, ok, "expected cached reverse lookup to hit after Force decode")
	require.Equal(t, "file:///home/user/app/main.qml", u, "expected round trip to original URL")
}

func TestUrlToPathCachedModeMissesWithoutDecoding(t *testing.T) {
	r := New()

	_, ok := r.UrlToPath("file:///a.qml", Cached)
	require.False(t, ok, "expected Cached mode to miss on an unseen URL")
}

func TestPublishSnapshotRejectsRegression(t *testing.T) {
	r := New()
	r.Open("file:///a.qml", "/a.qml", "Item {}", 1)

	v1, v2 := 1, 2

	require.True(t, r.PublishSnapshot("file:///a.qml", Snapshot{DocVersion: &v2}), "expected first publish to succeed")
	require.False(t, r.PublishSnapshot("file:///a.qml", Snapshot{DocVersion: &v1}), "expected publish with an older version to be rejected")

	snap, _ := r.Snapshot("file:///a.qml")
	require.Equal(t, v2, *snap.DocVersion, "expected snapshot to remain at the newer version")
}

func TestUpdateSnapshotIfCurrentSkipsWhenDocAdvanced(t *testing.T) {
	r := New()
	od := r.Open("file:///a.qml", "/a.qml", "Item {}", 5)

	applied := false
	ok := r.UpdateSnapshotIfCurrent("file:///a.qml", 3, func(cur Snapshot) Snapshot {
		applied = true
		return cur
	})

	require.False(t, ok, "expected stale rNow (3) to be skipped against current doc version 5")
	require.False(t, applied)

	v, _ := od.TextDocument.Version()

	ok = r.UpdateSnapshotIfCurrent("file:///a.qml", v, func(cur Snapshot) Snapshot {
		applied = true

		arena := dom.NewArena("/a.qml")
		nv := v
		cur.DocVersion = &nv
		cur.Doc = arena

		return cur
	})

	require.True(t, ok, "expected update at the current version to be applied")
	require.True(t, applied)

	snap, _ := r.Snapshot("file:///a.qml")
	require.NotNil(t, snap.Doc, "expected snapshot to carry the published arena")
}

func TestSnapshotUpdatedListenerFires(t *testing.T) {
	r := New()
	r.Open("file:///a.qml", "/a.qml", "Item {}", 1)

	var got string
	r.OnSnapshotUpdated(func(u string) { got = u })

	v := 1
	r.PublishSnapshot("file:///a.qml", Snapshot{DocVersion: &v})

	require.Equal(t, "file:///a.qml", got, "expected listener to observe the published URL")
}

func TestBuildPathsForFileUsesExplicitRootOverDefault(t *testing.T) {
	r := New()
	r.AddRoot("file:///proj/")
	r.SetBuildDirs("file:///proj/", []string{"/proj/build"})
	r.SetBuildDirs("", []string{"/default/build"})

	dirs := r.BuildPathsForFile("file:///proj/src/main.qml")

	require.NotEmpty(t, dirs)
	require.Equal(t, "/proj/build", dirs[0], "expected root-specific build dir to win")
}

func TestBuildPathsForFileFallsBackToDefaultRoot(t *testing.T) {
	r := New()
	r.SetBuildDirs("", []string{"/default/build"})

	dirs := r.BuildPathsForFile("file:///other/main.qml")

	require.NotEmpty(t, dirs)
	require.Equal(t, "/default/build", dirs[0])
}

func TestAddRootPrefersLongestMatch(t *testing.T) {
	r := New()
	r.AddRoot("file:///proj/")
	r.AddRoot("file:///proj/sub/")
	r.SetBuildDirs("file:///proj/", []string{"/proj/build"})
	r.SetBuildDirs("file:///proj/sub/", []string{"/proj/sub/build"})

	dirs := r.BuildPathsForFile("file:///proj/sub/main.qml")

	require.NotEmpty(t, dirs)
	require.Equal(t, "/proj/sub/build", dirs[0], "expected the longest matching root's build dir")
}
