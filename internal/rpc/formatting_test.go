package rpc

import (
	"context"
	"testing"

	lsp "github.com/sourcegraph/go-lsp"
	"github.com/stretchr/testify/require"
)

func TestHandleFormattingTrimsTrailingWhitespace(t *testing.T) {
	s := newTestServer()

	initReq := mustRequest(t, "initialize", lsp.InitializeParams{}, 1, false)
	_, err := s.handle(context.Background(), nil, initReq)
	require.NoError(t, err, "initialize failed")

	openParams := lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{
			URI:     "file:///a.qml",
			Text:    "Item {   \n    width: 10\n}",
			Version: 1,
		},
	}

	openReq := mustRequest(t, "textDocument/didOpen", openParams, 0, true)
	_, err = s.handle(context.Background(), nil, openReq)
	require.NoError(t, err, "didOpen failed")

	formatParams := lsp.DocumentFormattingParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: "file:///a.qml"},
	}

	formatReq := mustRequest(t, "textDocument/formatting", formatParams, 2, false)

	val, err := s.handle(context.Background(), nil, formatReq)
	require.NoError(t, err, "unexpected formatting error")

	edits, ok := val.([]lsp.TextEdit)
	require.True(t, ok, "expected []lsp.TextEdit, got %T", val)
	require.NotEmpty(t, edits, "expected at least one edit to trim the trailing spaces")
}

func TestHandleFormattingOnUnknownDocumentErrors(t *testing.T) {
	s := newTestServer()

	initReq := mustRequest(t, "initialize", lsp.InitializeParams{}, 1, false)
	_, err := s.handle(context.Background(), nil, initReq)
	require.NoError(t, err, "initialize failed")

	formatParams := lsp.DocumentFormattingParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: "file:///missing.qml"},
	}

	req := mustRequest(t, "textDocument/formatting", formatParams, 2, false)

	_, err = s.handle(context.Background(), nil, req)
	require.Error(t, err, "expected an error for formatting against an unopened document")
}

func TestHandleRangeFormattingKeepsOnlyOverlappingEdits(t *testing.T) {
	s := newTestServer()

	initReq := mustRequest(t, "initialize", lsp.InitializeParams{}, 1, false)
	_, err := s.handle(context.Background(), nil, initReq)
	require.NoError(t, err, "initialize failed")

	openParams := lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{
			URI:     "file:///a.qml",
			Text:    "Item {   \n    width: 10   \n}",
			Version: 1,
		},
	}

	openReq := mustRequest(t, "textDocument/didOpen", openParams, 0, true)
	_, err = s.handle(context.Background(), nil, openReq)
	require.NoError(t, err, "didOpen failed")

	rangeParams := lsp.DocumentRangeFormattingParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: "file:///a.qml"},
		Range: lsp.Range{
			Start: lsp.Position{Line: 0, Character: 0},
			End:   lsp.Position{Line: 0, Character: 6},
		},
	}

	req := mustRequest(t, "textDocument/rangeFormatting", rangeParams, 2, false)

	val, err := s.handle(context.Background(), nil, req)
	require.NoError(t, err, "unexpected rangeFormatting error")

	edits, ok := val.([]lsp.TextEdit)
	require.True(t, ok, "expected []lsp.TextEdit, got %T", val)

	for _, e := range edits {
		require.Zero(t, e.Range.Start.Line, "expected only line-0 edits to survive range filtering, got %+v", e.Range)
	}
}
