package rpc

import (
	lsp "github.com/sourcegraph/go-lsp"

	"github.com/SeleniaProject/qmlls/internal/text"
)

func lspPositionToTextPosition(p lsp.Position) text.Position {
	return text.Position{Line: p.Line, Character: p.Character}
}

func lspRangeToTextRange(r lsp.Range) text.Range {
	return text.Range{
		Start: lspPositionToTextPosition(r.Start),
		End:   lspPositionToTextPosition(r.End),
	}
}
