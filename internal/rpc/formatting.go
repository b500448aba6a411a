package rpc

import (
	"encoding/json"
	"strings"

	lsp "github.com/sourcegraph/go-lsp"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/SeleniaProject/qmlls/internal/errors"
	"github.com/SeleniaProject/qmlls/internal/format"
	"github.com/SeleniaProject/qmlls/internal/text"
)

// onFormatting runs the whole-document formatter and diffs the result against
// the open buffer so the client only has to apply the hunks that actually
// changed, rather than a single edit replacing the entire document.
func (s *Server) onFormatting(req *jsonrpc2.Request) (interface{}, error) {
	var params lsp.DocumentFormattingParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, errors.MalformedMessage(err.Error())
	}

	u := string(params.TextDocument.URI)

	od := s.registry.OpenDocumentAt(u)
	if od == nil {
		return nil, errors.UnknownDocument(u)
	}

	return formattingEdits(od.TextDocument), nil
}

// onRangeFormatting formats the whole document, same as onFormatting, and
// keeps only the hunks that overlap the requested range.
func (s *Server) onRangeFormatting(req *jsonrpc2.Request) (interface{}, error) {
	var params lsp.DocumentRangeFormattingParams
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, errors.MalformedMessage(err.Error())
	}

	u := string(params.TextDocument.URI)

	od := s.registry.OpenDocumentAt(u)
	if od == nil {
		return nil, errors.UnknownDocument(u)
	}

	startLine := params.Range.Start.Line
	endLine := params.Range.End.Line

	var kept []lsp.TextEdit
	for _, edit := range formattingEdits(od.TextDocument) {
		if edit.Range.Start.Line <= endLine && edit.Range.End.Line >= startLine {
			kept = append(kept, edit)
		}
	}

	return kept, nil
}

// formattingEdits runs the formatter against doc's current text and converts
// the hunks the diff formatter reports into LSP text edits, so the reported
// ranges stay minimal instead of replacing the whole buffer on every keypress.
func formattingEdits(doc *text.Document) []lsp.TextEdit {
	original := doc.Text()
	formatted := format.FormatText(original, format.Options{PreserveNewlineStyle: true})

	if formatted == original {
		return []lsp.TextEdit{}
	}

	diffFormatter := format.NewDiffFormatter(format.DefaultDiffOptions())
	result := diffFormatter.GenerateDiff(doc.URI(), original, formatted)

	if !result.HasChanges {
		return []lsp.TextEdit{}
	}

	originalLines := strings.Split(original, "\n")
	formattedLines := strings.Split(formatted, "\n")

	edits := make([]lsp.TextEdit, 0, len(result.Hunks))

	for _, hunk := range result.Hunks {
		startLine := clampNonNegative(hunk.OriginalStart - 1)
		endLine := clampMax(startLine+hunk.OriginalCount, len(originalLines))

		newStartLine := clampNonNegative(hunk.ModifiedStart - 1)
		newEndLine := clampMax(newStartLine+hunk.ModifiedCount, len(formattedLines))

		var newText string
		if newEndLine > newStartLine {
			newText = strings.Join(formattedLines[newStartLine:newEndLine], "\n")
			if newEndLine < len(formattedLines) {
				newText += "\n"
			}
		}

		startOffset := lineOffset(originalLines, startLine)
		endOffset := lineOffset(originalLines, endLine)

		edits = append(edits, lsp.TextEdit{
			Range: lsp.Range{
				Start: lspPositionFromText(doc.PositionOf(startOffset)),
				End:   lspPositionFromText(doc.PositionOf(endOffset)),
			},
			NewText: newText,
		})
	}

	return edits
}

// lineOffset returns the byte offset of the start of lines[upTo] within the
// text lines was split from, counting the newline dropped by strings.Split.
func lineOffset(lines []string, upTo int) int {
	offset := 0
	for i := 0; i < upTo && i < len(lines); i++ {
		offset += len(lines[i]) + 1
	}
	return offset
}

func clampNonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func clampMax(n, max int) int {
	if n > max {
		return max
	}
	return n
}

func lspPositionFromText(p text.Position) lsp.Position {
	return lsp.Position{Line: p.Line, Character: p.Character}
}
