package dom

// Kind identifies the syntactic category of a DomItem. The completion
// engine's context dispatch table (internal/completion) switches on this
// value, one variant per syntactic kind, instead of a runtime type switch
// over a class hierarchy.
type Kind int

const (
	KindInvalid Kind = iota
	KindFile
	KindPragma
	KindImport
	KindQmlObject
	KindPropertyDefinition
	KindBinding
	KindSignalDefinition
	KindMethodDefinition
	KindEnumDefinition
	KindEnumValue
	KindId
	KindScriptExpression
	KindScriptBlock
	KindScriptForStatement
	KindScriptWhileStatement
	KindScriptIfStatement
	KindScriptSwitchStatement
	KindScriptCaseClause
	KindScriptVariableDeclaration
	KindScriptBinaryExpression
	KindScriptUnaryExpression
	KindScriptCallExpression
	KindScriptFieldMemberExpression
	KindScriptLiteral
	KindScriptIdentifierExpression
)

// Region names a semantic sub-span of a node: the byte offsets of a
// specific token (its opening brace, its colon, a case keyword, ...)
// rather than the node's whole extent.
type Region string

const (
	RegionFull            Region = "full"
	RegionIdentifier      Region = "identifier"
	RegionLeftBrace       Region = "leftBrace"
	RegionRightBrace      Region = "rightBrace"
	RegionLeftParen       Region = "leftParen"
	RegionRightParen      Region = "rightParen"
	RegionColon           Region = "colon"
	RegionFirstSemicolon  Region = "firstSemicolon"
	RegionSecondSemicolon Region = "secondSemicolon"
	RegionCaseKeyword     Region = "caseKeyword"
	RegionDefaultKeyword  Region = "defaultKeyword"
	RegionOperator        Region = "operator"
	RegionInOf            Region = "inOf"
	RegionQuestion        Region = "question"
)

// ItemIndex is an arena-relative reference to a node. The zero value refers
// to no node (arenas reserve index 0 as a sentinel root-parent marker).
type ItemIndex int

// Item is one arena-owned node of the parsed object tree. Children and the
// file-location tree are expressed as indices into the owning Arena, never
// as pointers, so the tree has no raw cycles: a "parent" link is just an
// index recomputed by the arena, not a live backpointer baked into the node.
type Item struct {
	Kind     Kind
	Name     string  // identifier text, binding name, property name, etc.
	Value    string  // literal text for script literals; pragma value; enum value
	Children []ItemIndex
	Parent   ItemIndex

	// Regions maps semantic sub-spans to byte-offset ranges within the
	// owning file. Not every kind populates every region.
	Regions map[Region][2]int
}

// Arena owns every Item parsed from a single file (or a single staged
// in-memory buffer). Callers address nodes by ItemIndex, never by pointer,
// so the tree can be freely copied and shared between environments without
// aliasing concerns.
type Arena struct {
	Path  string
	Items []Item
}

// NewArena creates an arena with a reserved root-file node at index 0.
func NewArena(path string) *Arena {
	a := &Arena{Path: path}
	a.Items = append(a.Items, Item{Kind: KindFile, Regions: map[Region][2]int{}})

	return a
}

// Root returns the index of the file-level node.
func (a *Arena) Root() ItemIndex { return 0 }

// Add appends a new node as a child of parent and returns its index.
func (a *Arena) Add(parent ItemIndex, it Item) ItemIndex {
	if it.Regions == nil {
		it.Regions = map[Region][2]int{}
	}

	it.Parent = parent
	idx := ItemIndex(len(a.Items))
	a.Items = append(a.Items, it)

	if int(parent) < len(a.Items) {
		a.Items[parent].Children = append(a.Items[parent].Children, idx)
	}

	return idx
}

// Get returns the node at idx. Panics on an out-of-range index, matching
// the arena's role as the sole owner of valid indices — callers never
// construct an ItemIndex themselves.
func (a *Arena) Get(idx ItemIndex) *Item {
	return &a.Items[idx]
}

// ParentOf returns the parent index of idx, recomputed from the stored
// link rather than a live backpointer.
func (a *Arena) ParentOf(idx ItemIndex) (ItemIndex, bool) {
	if idx == a.Root() {
		return 0, false
	}

	return a.Items[idx].Parent, true
}

// SetRegion records a named sub-span for idx.
func (a *Arena) SetRegion(idx ItemIndex, r Region, start, end int) {
	a.Items[idx].Regions[r] = [2]int{start, end}
}

// InnermostAt walks the arena to find the smallest region containing
// offset p. Ties favor the most recently visited (innermost-scanned) node,
// which in a depth-first walk is the most deeply nested match.
func (a *Arena) InnermostAt(p int) ItemIndex {
	best := a.Root()
	bestLen := -1

	var walk func(idx ItemIndex)

	walk = func(idx ItemIndex) {
		it := &a.Items[idx]
		if full, ok := it.Regions[RegionFull]; ok {
			if p >= full[0] && p <= full[1] {
				length := full[1] - full[0]
				if bestLen == -1 || length <= bestLen {
					best = idx
					bestLen = length
				}
			}
		}

		for _, c := range it.Children {
			walk(c)
		}
	}

	walk(a.Root())

	return best
}
