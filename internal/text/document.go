// Package text implements the line-indexed, version-tracked text buffer
// that backs every open document: the coordinator's one unit of mutable
// state, and the place in the server that converts between byte offsets
// and LSP's UTF-16 code-unit columns.
package text

import (
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/SeleniaProject/qmlls/internal/errors"
)

// Position is an LSP-style (line, character) pair, counted in UTF-16 code
// units per the LSP wire contract.
type Position struct {
	Line      int
	Character int
}

// Range is a half-open [Start, End) pair of Positions.
type Range struct {
	Start Position
	End   Position
}

// Document is a mutable, version-tracked text buffer. All reads and writes
// go through its lock; the line-start table is rebuilt on every mutation
// so offset/position conversions stay O(log n) via binary search rather
// than O(n) per call.
type Document struct {
	mu         sync.RWMutex
	uri        string
	text       string
	version    int
	hasVersion bool
	lineStarts []int
}

// New creates a Document for uri with initial text and version.
func New(uri, initialText string, version int) *Document {
	d := &Document{uri: uri}
	d.setTextLocked(initialText, version)

	return d
}

func (d *Document) URI() string { return d.uri }

// Version returns the current version, and whether one has ever been set.
func (d *Document) Version() (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.version, d.hasVersion
}

// Text returns a snapshot of the current text.
func (d *Document) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.text
}

// SetText atomically replaces the whole buffer. version must be provided
// by the caller; the document never fabricates one.
func (d *Document) SetText(newText string, version int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.setTextLocked(newText, version)
}

func (d *Document) setTextLocked(newText string, version int) {
	d.text = newText
	d.version = version
	d.hasVersion = true
	d.rebuildLineStartsLocked()
}

func (d *Document) rebuildLineStartsLocked() {
	starts := []int{0}

	for i := 0; i < len(d.text); i++ {
		switch d.text[i] {
		case '\n':
			starts = append(starts, i+1)
		case '\r':
			if i+1 < len(d.text) && d.text[i+1] == '\n' {
				continue
			}

			starts = append(starts, i+1)
		}
	}

	d.lineStarts = starts
}

// ApplyChange replaces the text in [startOffset, endOffset) — computed
// from rng the same way OffsetOf does — with newText, provided version is
// strictly greater than the current version. A stale version (<=) is
// discarded and a STALE_VERSION StandardError is returned; the buffer is
// left untouched.
func (d *Document) ApplyChange(rng Range, newText string, version int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.hasVersion && version <= d.version {
		return errors.NewStandardError(errors.CategoryRequestTarget, "STALE_VERSION",
			"change version is not greater than the current document version",
			map[string]interface{}{"uri": d.uri, "current": d.version, "incoming": version})
	}

	startOff := d.offsetOfLocked(rng.Start)
	endOff := d.offsetOfLocked(rng.End)

	if startOff > endOff {
		startOff, endOff = endOff, startOff
	}

	var b strings.Builder

	b.WriteString(d.text[:startOff])
	b.WriteString(newText)
	b.WriteString(d.text[endOff:])

	d.setTextLocked(b.String(), version)

	return nil
}

// OffsetOf converts a Position to a byte offset, clamping to end-of-line
// when the character column exceeds the line's length.
func (d *Document) OffsetOf(pos Position) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.offsetOfLocked(pos)
}

func (d *Document) offsetOfLocked(pos Position) int {
	if pos.Line < 0 {
		return 0
	}

	if pos.Line >= len(d.lineStarts) {
		return len(d.text)
	}

	lineStart := d.lineStarts[pos.Line]
	lineEnd := len(d.text)

	if pos.Line+1 < len(d.lineStarts) {
		lineEnd = d.lineStarts[pos.Line+1]
	}

	line := d.text[lineStart:lineEnd]
	line = trimLineBreak(line)

	byteOff := utf16ColumnToByteOffset(line, pos.Character)

	return lineStart + byteOff
}

// PositionOf converts a byte offset into the buffer to a (line, character)
// Position, counting characters in UTF-16 code units.
func (d *Document) PositionOf(offset int) Position {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.positionOfLocked(offset)
}

func (d *Document) positionOfLocked(offset int) Position {
	if offset < 0 {
		offset = 0
	}

	if offset > len(d.text) {
		offset = len(d.text)
	}

	// Binary search for the line containing offset.
	lo, hi := 0, len(d.lineStarts)-1

	for lo < hi {
		mid := (lo + hi + 1) / 2
		if d.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	line := lo
	lineStart := d.lineStarts[line]
	lineEnd := len(d.text)

	if line+1 < len(d.lineStarts) {
		lineEnd = d.lineStarts[line+1]
	}

	prefix := d.text[lineStart:offset]
	if offset > lineEnd {
		prefix = d.text[lineStart:lineEnd]
	}

	char := byteOffsetToUTF16Column(prefix)

	return Position{Line: line, Character: char}
}

// LineCount returns the number of lines in the buffer.
func (d *Document) LineCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.lineStarts)
}

func trimLineBreak(line string) string {
	line = strings.TrimSuffix(line, "\r\n")
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")

	return line
}

// utf16ColumnToByteOffset converts a UTF-16 code-unit column within line
// (a single line's text, no line break) to a byte offset. A column past
// the end of the line clamps to len(line); a column that lands inside a
// surrogate pair moves to the code-unit boundary just after the pair (the
// byte following it), per the clamp-to-a-boundary decision recorded for
// the UTF-16 open question.
func utf16ColumnToByteOffset(line string, column int) int {
	if column <= 0 {
		return 0
	}

	units := utf16.Encode([]rune(line))
	if column >= len(units) {
		return len(line)
	}

	runes := []rune(line)
	byteOff := 0
	unitCount := 0

	for _, r := range runes {
		if unitCount >= column {
			break
		}

		w := utf16.RuneLen(r)
		if w < 0 {
			w = 1
		}

		byteOff += len(string(r))
		unitCount += w
	}

	return byteOff
}

// byteOffsetToUTF16Column converts a byte-offset-bounded prefix of a line
// to its length in UTF-16 code units.
func byteOffsetToUTF16Column(prefix string) int {
	count := 0

	for _, r := range prefix {
		w := utf16.RuneLen(r)
		if w < 0 {
			w = 1
		}

		count += w
	}

	return count
}
