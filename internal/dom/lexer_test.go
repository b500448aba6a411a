package dom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeBasic(t *testing.T) {
	toks := Tokenize(`import QtQuick 2.0

Item {
    id: root
    property int count: 0
}`)

	require.NotEmpty(t, toks, "expected at least one token")
	require.Equal(t, TokenImport, toks[0].Type, "expected first token to be import keyword")

	last := toks[len(toks)-1]
	require.Equal(t, TokenEOF, last.Type, "expected last token to be EOF")
}

func TestTokenizeStringsAndComments(t *testing.T) {
	toks := Tokenize(`// comment
property string s: "hello \"world\""
/* block
comment */
property string t: 'single'`)

	var strCount int

	for _, tok := range toks {
		if tok.Type == TokenString {
			strCount++
		}
	}

	require.Equal(t, 2, strCount, "expected 2 string tokens")
}

func TestTokenizeOperatorRuns(t *testing.T) {
	toks := Tokenize("a === b && c !== d")

	found := map[string]bool{}

	for _, tok := range toks {
		if tok.Type == TokenOperator {
			found[tok.Literal] = true
		}
	}

	for _, op := range []string{"===", "&&", "!=="} {
		require.True(t, found[op], "expected to find operator %q, got %v", op, found)
	}
}

func TestTokenizeUnrecognizedRune(t *testing.T) {
	toks := Tokenize("a \x01 b")

	var sawError bool

	for _, tok := range toks {
		if tok.Type == TokenError {
			sawError = true
		}
	}

	require.True(t, sawError, "expected an error token for the unrecognized control byte")
}
