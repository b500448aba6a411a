package position

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPosition(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		pos      Position
		isValid  bool
	}{
		{
			name: "Valid position with filename",
			pos: Position{
				Filename: "test.qml",
				Line:     10,
				Column:   5,
				Offset:   100,
			},
			isValid:  true,
			expected: "test.qml:10:5",
		},
		{
			name: "Valid position without filename",
			pos: Position{
				Line:   1,
				Column: 1,
				Offset: 0,
			},
			isValid:  true,
			expected: "1:1",
		},
		{
			name: "Invalid position - zero line",
			pos: Position{
				Line:   0,
				Column: 1,
				Offset: 0,
			},
			isValid: false,
		},
		{
			name: "Invalid position - zero column",
			pos: Position{
				Line:   1,
				Column: 0,
				Offset: 0,
			},
			isValid: false,
		},
		{
			name: "Invalid position - negative offset",
			pos: Position{
				Line:   1,
				Column: 1,
				Offset: -1,
			},
			isValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.isValid, tt.pos.IsValid())

			if tt.isValid {
				require.Equal(t, tt.expected, tt.pos.String())
			}
		})
	}
}

func TestPositionComparison(t *testing.T) {
	pos1 := Position{Filename: "test.qml", Line: 1, Column: 5, Offset: 4}
	pos2 := Position{Filename: "test.qml", Line: 1, Column: 10, Offset: 9}
	pos3 := Position{Filename: "other.qml", Line: 1, Column: 1, Offset: 0}

	require.True(t, pos1.Before(pos2), "pos1 should be before pos2")
	require.True(t, pos2.After(pos1), "pos2 should be after pos1")
	require.True(t, pos3.Before(pos1), "pos3 should be before pos1 (different filename)")
}

func TestSpan(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		span     Span
		length   int
		isValid  bool
	}{
		{
			name: "Valid span same line",
			span: Span{
				Start: Position{Filename: "test.qml", Line: 1, Column: 5, Offset: 4},
				End:   Position{Filename: "test.qml", Line: 1, Column: 10, Offset: 9},
			},
			isValid:  true,
			expected: "test.qml:1:5-10",
			length:   5,
		},
		{
			name: "Valid span multiple lines",
			span: Span{
				Start: Position{Filename: "test.qml", Line: 1, Column: 5, Offset: 4},
				End:   Position{Filename: "test.qml", Line: 3, Column: 2, Offset: 20},
			},
			isValid:  true,
			expected: "test.qml:1:5-3:2",
			length:   16,
		},
		{
			name: "Invalid span - different files",
			span: Span{
				Start: Position{Filename: "test1.qml", Line: 1, Column: 1, Offset: 0},
				End:   Position{Filename: "test2.qml", Line: 1, Column: 5, Offset: 4},
			},
			isValid: false,
		},
		{
			name: "Invalid span - end before start",
			span: Span{
				Start: Position{Filename: "test.qml", Line: 1, Column: 10, Offset: 9},
				End:   Position{Filename: "test.qml", Line: 1, Column: 5, Offset: 4},
			},
			isValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.isValid, tt.span.IsValid())

			if tt.isValid {
				require.Equal(t, tt.expected, tt.span.String())
				require.Equal(t, tt.length, tt.span.Length())
			}
		})
	}
}

func TestSpanContains(t *testing.T) {
	span := Span{
		Start: Position{Filename: "test.qml", Line: 1, Column: 5, Offset: 4},
		End:   Position{Filename: "test.qml", Line: 1, Column: 10, Offset: 9},
	}

	tests := []struct {
		name     string
		pos      Position
		contains bool
	}{
		{
			name:     "Position at start",
			pos:      Position{Filename: "test.qml", Line: 1, Column: 5, Offset: 4},
			contains: true,
		},
		{
			name:     "Position in middle",
			pos:      Position{Filename: "test.qml", Line: 1, Column: 7, Offset: 6},
			contains: true,
		},
		{
			name:     "Position at end (exclusive)",
			pos:      Position{Filename: "test.qml", Line: 1, Column: 10, Offset: 9},
			contains: false,
		},
		{
			name:     "Position before span",
			pos:      Position{Filename: "test.qml", Line: 1, Column: 1, Offset: 0},
			contains: false,
		},
		{
			name:     "Position after span",
			pos:      Position{Filename: "test.qml", Line: 1, Column: 15, Offset: 14},
			contains: false,
		},
		{
			name:     "Position in different file",
			pos:      Position{Filename: "other.qml", Line: 1, Column: 7, Offset: 6},
			contains: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.contains, span.Contains(tt.pos))
		})
	}
}

func TestSpanOverlaps(t *testing.T) {
	span1 := Span{
		Start: Position{Filename: "test.qml", Line: 1, Column: 5, Offset: 4},
		End:   Position{Filename: "test.qml", Line: 1, Column: 10, Offset: 9},
	}

	tests := []struct {
		name     string
		span2    Span
		overlaps bool
	}{
		{
			name: "Overlapping spans",
			span2: Span{
				Start: Position{Filename: "test.qml", Line: 1, Column: 8, Offset: 7},
				End:   Position{Filename: "test.qml", Line: 1, Column: 15, Offset: 14},
			},
			overlaps: true,
		},
		{
			name: "Adjacent spans (no overlap)",
			span2: Span{
				Start: Position{Filename: "test.qml", Line: 1, Column: 10, Offset: 9},
				End:   Position{Filename: "test.qml", Line: 1, Column: 15, Offset: 14},
			},
			overlaps: false,
		},
		{
			name: "Separate spans",
			span2: Span{
				Start: Position{Filename: "test.qml", Line: 1, Column: 20, Offset: 19},
				End:   Position{Filename: "test.qml", Line: 1, Column: 25, Offset: 24},
			},
			overlaps: false,
		},
		{
			name: "Spans in different files",
			span2: Span{
				Start: Position{Filename: "other.qml", Line: 1, Column: 5, Offset: 4},
				End:   Position{Filename: "other.qml", Line: 1, Column: 10, Offset: 9},
			},
			overlaps: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.overlaps, span1.Overlaps(tt.span2))
		})
	}
}

func TestSpanUnion(t *testing.T) {
	span1 := Span{
		Start: Position{Filename: "test.qml", Line: 1, Column: 5, Offset: 4},
		End:   Position{Filename: "test.qml", Line: 1, Column: 10, Offset: 9},
	}

	span2 := Span{
		Start: Position{Filename: "test.qml", Line: 1, Column: 8, Offset: 7},
		End:   Position{Filename: "test.qml", Line: 1, Column: 15, Offset: 14},
	}

	union := span1.Union(span2)
	expected := Span{
		Start: Position{Filename: "test.qml", Line: 1, Column: 5, Offset: 4},
		End:   Position{Filename: "test.qml", Line: 1, Column: 15, Offset: 14},
	}

	require.Equal(t, expected, union)
}

func TestSourceFile(t *testing.T) {
	content := "Item {\n\tid: root\n}"
	file := NewSourceFile("test.qml", content)

	require.Equal(t, "test.qml", file.Filename)
	require.Equal(t, content, file.Content)

	expectedLines := []string{
		"Item {",
		"\tid: root",
		"}",
	}

	require.Len(t, file.Lines, len(expectedLines))

	for i, line := range expectedLines {
		require.Equal(t, line, file.GetLine(i+1))
	}
}

func TestSourceFilePositionFromOffset(t *testing.T) {
	content := "Item {\n\tid: root\n}"
	file := NewSourceFile("test.qml", content)

	tests := []struct {
		name     string
		expected Position
		offset   int
	}{
		{
			name:   "Start of file",
			offset: 0,
			expected: Position{
				Filename: "test.qml",
				Line:     1,
				Column:   1,
				Offset:   0,
			},
		},
		{
			name:   "Start of second line",
			offset: 7, // After "Item {\n"
			expected: Position{
				Filename: "test.qml",
				Line:     2,
				Column:   1,
				Offset:   7,
			},
		},
		{
			name:   "Middle of second line",
			offset: 9, // At 'd' in "id"
			expected: Position{
				Filename: "test.qml",
				Line:     2,
				Column:   3,
				Offset:   9,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, file.PositionFromOffset(tt.offset))
		})
	}
}

func TestSourceFileGetSpanText(t *testing.T) {
	content := "Item {\n\tid: root\n}"
	file := NewSourceFile("test.qml", content)

	span := Span{
		Start: Position{Filename: "test.qml", Line: 1, Column: 1, Offset: 0},
		End:   Position{Filename: "test.qml", Line: 1, Column: 5, Offset: 4},
	}

	require.Equal(t, "Item", file.GetSpanText(span))
}

func TestInvalidPositions(t *testing.T) {
	invalidPos := Position{Line: 0, Column: 1, Offset: 0}
	require.False(t, invalidPos.IsValid(), "Invalid position should not be valid")

	invalidSpan := Span{
		Start: invalidPos,
		End:   Position{Line: 1, Column: 1, Offset: 0},
	}
	require.False(t, invalidSpan.IsValid(), "Invalid span should not be valid")
	require.Zero(t, invalidSpan.Length(), "Invalid span length should be 0")

	validPos := Position{Line: 1, Column: 1, Offset: 0}
	require.False(t, invalidSpan.Contains(validPos), "Invalid span should not contain any position")
}
