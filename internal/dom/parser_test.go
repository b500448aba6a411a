package dom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSimpleObject(t *testing.T) {
	src := `import QtQuick 2.0

Item {
    id: root
    property int count: 0

    signal clicked()

    function increment() {
        count = count + 1
    }
}`

	arena, diags := Parse("test.qml", src)
	require.False(t, diags.HasErrors(), "unexpected parse errors: %v", diags.GetErrors())

	root := arena.Get(arena.Root())

	var sawImport, sawObject bool

	for _, idx := range root.Children {
		child := arena.Get(idx)

		switch child.Kind {
		case KindImport:
			sawImport = true
			require.Equal(t, "QtQuick", child.Name, "expected import name QtQuick")
		case KindQmlObject:
			sawObject = true
		}
	}

	require.True(t, sawImport, "expected an import node")
	require.True(t, sawObject, "expected a root QmlObject node")
}

func TestParsePragma(t *testing.T) {
	arena, diags := Parse("test.qml", "pragma Singleton\nItem {}")
	require.False(t, diags.HasErrors(), "unexpected parse errors: %v", diags.GetErrors())

	root := arena.Get(arena.Root())
	require.NotEmpty(t, root.Children, "expected at least one child")

	first := arena.Get(root.Children[0])
	require.Equal(t, KindPragma, first.Kind)
	require.Equal(t, "Singleton", first.Name)
}

func TestInnermostAtFindsNestedObject(t *testing.T) {
	src := `Item {
    Rectangle {
        width: 10
    }
}`

	arena, _ := Parse("test.qml", src)

	widthOffset := indexOf(src, "width")
	innermost := arena.InnermostAt(widthOffset)

	item := arena.Get(innermost)
	require.Equal(t, KindBinding, item.Kind, "expected innermost node at 'width' to be a binding")
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}

	return -1
}
