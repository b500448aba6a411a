// Package completion implements CompletionEngine: given a snapshot and a
// cursor position, computes the completion list LSP's
// textDocument/completion expects.
package completion

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	lsp "github.com/sourcegraph/go-lsp"

	"github.com/SeleniaProject/qmlls/internal/dom"
	"github.com/SeleniaProject/qmlls/internal/registry"
)

// contextStrings is the result of step 1: the three adjacent backward-
// looking ranges the context dispatch table consults.
type contextStrings struct {
	filterChars string
	base        string
	preLine     string
	atLineStart bool
}

// computeContextStrings scans src backward from byte offset p.
func computeContextStrings(src string, p int) contextStrings {
	if p > len(src) {
		p = len(src)
	}

	filterStart := p
	for filterStart > 0 && isIdentByte(src[filterStart-1]) {
		filterStart--
	}

	baseEnd := filterStart
	baseStart := baseEnd

	for baseStart > 0 && src[baseStart-1] == '.' {
		cut := baseStart - 1
		for cut > 0 && isIdentByte(src[cut-1]) {
			cut--
		}

		if cut == baseStart-1 {
			break
		}

		baseStart = cut
	}

	lineStart := p
	for lineStart > 0 && src[lineStart-1] != '\n' {
		lineStart--
	}

	preLine := src[lineStart:p]

	atLineStart := strings.TrimSpace(src[lineStart:baseStart]) == ""

	return contextStrings{
		filterChars: src[filterStart:p],
		base:        strings.TrimSuffix(src[baseStart:baseEnd], "."),
		preLine:     preLine,
		atLineStart: atLineStart,
	}
}

func isIdentByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// Item is one completion result, before conversion to the wire format.
type Item struct {
	Label      string
	Kind       lsp.CompletionItemKind
	InsertText string
	IsSnippet  bool
	Detail     string
}

// dedupKey identifies an item for the per-kind deduplication tracker.
type dedupKey struct {
	label string
	kind  lsp.CompletionItemKind
}

// collector accumulates items while rejecting duplicate (label, kind)
// pairs, matching the prototype-chain traversal invariant that no such
// pair may appear twice in one list.
type collector struct {
	seen  map[dedupKey]bool
	items []Item
}

func newCollector() *collector {
	return &collector{seen: make(map[dedupKey]bool)}
}

func (c *collector) add(it Item) {
	key := dedupKey{label: it.Label, kind: it.Kind}
	if c.seen[key] {
		return
	}

	c.seen[key] = true
	c.items = append(c.items, it)
}

// ModuleIndex answers the import-statement completion producer's queries
// against the environment's known modules.
type ModuleIndex interface {
	KnownModuleURIs() []string
	VersionsForModule(uri string) []*semver.Version
}

// ScopeProvider answers the object-body / JS-identifier producers'
// queries about what is reachable from a given DomItem. Kept as an
// interface so this package has no dependency on whatever eventually
// performs prototype-chain and lexical-scope resolution.
type ScopeProvider interface {
	ObjectBodyCompletions(arena *dom.Arena, objectIdx dom.ItemIndex) []Item
	JSIdentifierCompletions(arena *dom.Arena, fromIdx dom.ItemIndex) []Item
	FieldMemberCompletions(arena *dom.Arena, receiverIdx dom.ItemIndex) []Item
	TypeNameCompletions() []Item
}

// Engine computes completion lists.
type Engine struct {
	modules ModuleIndex
	scope   ScopeProvider
}

// New creates an Engine consulting modules for import-statement
// completions and scope for everything requiring prototype-chain or
// lexical-scope knowledge.
func New(modules ModuleIndex, scope ScopeProvider) *Engine {
	return &Engine{modules: modules, scope: scope}
}

// knownPragmas and their legal values, the complete closed set this
// language recognizes.
var knownPragmas = map[string][]string{
	"Singleton":      nil,
	"ComponentBehaviorDeclaration": {"Bound", "Unbound"},
	"FunctionSignatureBehavior":    {"Enforced", "Ignored"},
	"ValueTypeBehavior":            {"Addressable", "Inaddressable"},
	"ListPropertyAssignBehavior":   {"Append", "Replace", "ReplaceIfNotDefault"},
}

var jsStatementKeywords = []string{
	"var", "let", "const", "if", "else", "for", "while", "do", "switch",
	"case", "default", "return", "throw", "break", "continue", "try",
	"catch", "finally", "function",
}

var jsExpressionGlobals = []string{
	"true", "false", "null", "undefined", "this", "Math", "JSON", "console",
}

// Complete runs the full algorithm: context strings, position-to-item,
// then context dispatch.
func (e *Engine) Complete(snap registry.Snapshot, line, column int, offset int) []Item {
	arena := snap.Doc
	if arena == nil {
		arena = snap.ValidDoc
	}

	if arena == nil {
		return nil
	}

	innermost := arena.InnermostAt(offset)
	item := arena.Get(innermost)

	c := newCollector()

	switch item.Kind {
	case dom.KindPragma:
		e.completePragma(c, arena, innermost, offset)
	case dom.KindImport:
		e.completeImport(c, arena, innermost, offset)
	case dom.KindQmlObject:
		e.completeObjectBody(c, arena, innermost)
	case dom.KindPropertyDefinition:
		e.completePropertyDefinition(c, item)
	case dom.KindBinding:
		e.completeBindingRHS(c, arena, innermost, offset)
	case dom.KindScriptFieldMemberExpression:
		e.completeFieldMember(c, arena, innermost)
	case dom.KindScriptIdentifierExpression,
		dom.KindScriptCallExpression,
		dom.KindScriptBinaryExpression,
		dom.KindScriptUnaryExpression,
		dom.KindScriptLiteral:
		e.completeJSExpression(c, arena, innermost)
	case dom.KindScriptSwitchStatement, dom.KindScriptCaseClause:
		e.completeSwitchSlot(c, arena, innermost, offset)
	case dom.KindScriptForStatement:
		e.completeLoopHeader(c, arena, innermost, offset)
	default:
		e.completeStatementSlot(c, arena, innermost)
	}

	return c.items
}

func (e *Engine) completePragma(c *collector, arena *dom.Arena, idx dom.ItemIndex, offset int) {
	item := arena.Get(idx)

	if colon, ok := item.Regions[dom.RegionColon]; ok && offset > colon[0] {
		for _, v := range knownPragmas[item.Name] {
			c.add(Item{Label: v, Kind: lsp.CIKValue})
		}

		return
	}

	for name := range knownPragmas {
		c.add(Item{Label: name, Kind: lsp.CIKKeyword})
	}
}

func (e *Engine) completeImport(c *collector, arena *dom.Arena, idx dom.ItemIndex, offset int) {
	c.add(Item{Label: "import", Kind: lsp.CIKKeyword})
	c.add(Item{Label: "as", Kind: lsp.CIKKeyword})

	if e.modules == nil {
		return
	}

	item := arena.Get(idx)

	for _, uri := range e.modules.KnownModuleURIs() {
		c.add(Item{Label: uri, Kind: lsp.CIKModule})
	}

	for _, v := range e.modules.VersionsForModule(item.Name) {
		c.add(Item{Label: v.String(), Kind: lsp.CIKValue})
	}
}

func (e *Engine) completeObjectBody(c *collector, arena *dom.Arena, idx dom.ItemIndex) {
	c.add(Item{Label: "property", Kind: lsp.CIKSnippet, InsertText: "property ${1:type} ${2:name}: ${3:value}", IsSnippet: true})
	c.add(Item{Label: "signal", Kind: lsp.CIKSnippet, InsertText: "signal ${1:name}()", IsSnippet: true})
	c.add(Item{Label: "function", Kind: lsp.CIKSnippet, InsertText: "function ${1:name}() {\n\t$0\n}", IsSnippet: true})
	c.add(Item{Label: "enum", Kind: lsp.CIKSnippet, InsertText: "enum ${1:Name} {\n\t$0\n}", IsSnippet: true})

	if e.scope != nil {
		for _, it := range e.scope.ObjectBodyCompletions(arena, idx) {
			c.add(it)
		}

		for _, it := range e.scope.TypeNameCompletions() {
			c.add(it)
		}
	}
}

func (e *Engine) completePropertyDefinition(c *collector, item *dom.Item) {
	written := item.Value // modifiers already written, space separated

	for _, kw := range []string{"readonly", "required", "default", "property"} {
		if !strings.Contains(written, kw) {
			c.add(Item{Label: kw, Kind: lsp.CIKKeyword})
		}
	}

	if e.scope != nil {
		for _, it := range e.scope.TypeNameCompletions() {
			c.add(it)
		}
	}
}

func (e *Engine) completeBindingRHS(c *collector, arena *dom.Arena, idx dom.ItemIndex, offset int) {
	e.completeJSExpression(c, arena, idx)

	if e.scope != nil {
		for _, it := range e.scope.TypeNameCompletions() {
			c.add(it)
		}
	}
}

func (e *Engine) completeFieldMember(c *collector, arena *dom.Arena, idx dom.ItemIndex) {
	if e.scope == nil {
		return
	}

	for _, it := range e.scope.FieldMemberCompletions(arena, idx) {
		c.add(it)
	}
}

func (e *Engine) completeJSExpression(c *collector, arena *dom.Arena, idx dom.ItemIndex) {
	for _, kw := range jsExpressionGlobals {
		c.add(Item{Label: kw, Kind: lsp.CIKKeyword})
	}

	if e.scope != nil {
		for _, it := range e.scope.JSIdentifierCompletions(arena, idx) {
			c.add(it)
		}
	}
}

func (e *Engine) completeStatementSlot(c *collector, arena *dom.Arena, idx dom.ItemIndex) {
	for _, kw := range jsStatementKeywords {
		c.add(Item{Label: kw, Kind: lsp.CIKKeyword})
	}

	e.completeJSExpression(c, arena, idx)
}

func (e *Engine) completeSwitchSlot(c *collector, arena *dom.Arena, idx dom.ItemIndex, offset int) {
	item := arena.Get(idx)

	if caseKw, ok := item.Regions[dom.RegionCaseKeyword]; ok && offset <= caseKw[1] {
		c.add(Item{Label: "case", Kind: lsp.CIKKeyword})
		c.add(Item{Label: "default", Kind: lsp.CIKKeyword})

		return
	}

	e.completeJSExpression(c, arena, idx)
}

func (e *Engine) completeLoopHeader(c *collector, arena *dom.Arena, idx dom.ItemIndex, offset int) {
	item := arena.Get(idx)

	if inOf, ok := item.Regions[dom.RegionInOf]; ok && offset <= inOf[1] {
		c.add(Item{Label: "in", Kind: lsp.CIKKeyword})
		c.add(Item{Label: "of", Kind: lsp.CIKKeyword})

		return
	}

	e.completeJSExpression(c, arena, idx)
}

// ToLSP converts Items into wire-format lsp.CompletionItems.
func ToLSP(items []Item) []lsp.CompletionItem {
	out := make([]lsp.CompletionItem, 0, len(items))

	for _, it := range items {
		ci := lsp.CompletionItem{
			Label: it.Label,
			Kind:  it.Kind,
		}

		if it.InsertText != "" {
			ci.InsertText = it.InsertText
		}

		if it.Detail != "" {
			ci.Detail = it.Detail
		}

		out = append(out, ci)
	}

	return out
}
