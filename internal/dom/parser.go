package dom

import (
	"github.com/SeleniaProject/qmlls/internal/diagnostic"
	"github.com/SeleniaProject/qmlls/internal/position"
)

// Parser is a recursive-descent parser over a flat Token stream, producing
// an Arena of Item nodes plus diagnostics for anything it can't make sense
// of. It never aborts on error: a malformed construct is recorded as a
// diagnostic and the parser resyncs at the next statement boundary. A parse
// failure never removes the file from the environment that holds it — only
// promotion to the valid environment is skipped, and that decision belongs
// to the caller (internal/environ), not here.
type Parser struct {
	path  string
	src   string
	toks  []Token
	pos   int
	arena *Arena
	diags *diagnostic.DiagnosticEngine
}

// Parse scans and parses src (the contents of the file at path) and
// returns the resulting arena together with any diagnostics raised.
func Parse(path, src string) (*Arena, *diagnostic.DiagnosticEngine) {
	p := &Parser{
		path:  path,
		src:   src,
		toks:  Tokenize(src),
		arena: NewArena(path),
		diags: diagnostic.NewDiagnosticEngine(diagnostic.DiagnosticConfig{MaxErrors: 200}),
	}

	p.parseFile()

	return p.arena, p.diags
}

func (p *Parser) cur() Token {
	if p.pos >= len(p.toks) {
		return Token{Type: TokenEOF, Start: len(p.src), End: len(p.src)}
	}

	return p.toks[p.pos]
}

func (p *Parser) peek(offset int) Token {
	idx := p.pos + offset
	if idx >= len(p.toks) || idx < 0 {
		return Token{Type: TokenEOF, Start: len(p.src), End: len(p.src)}
	}

	return p.toks[idx]
}

func (p *Parser) advance() Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}

	return t
}

func (p *Parser) at(tt TokenType) bool { return p.cur().Type == tt }

func (p *Parser) accept(tt TokenType) (Token, bool) {
	if p.at(tt) {
		return p.advance(), true
	}

	return Token{}, false
}

func (p *Parser) expect(tt TokenType) (Token, bool) {
	if tok, ok := p.accept(tt); ok {
		return tok, true
	}

	p.errorHere(tt.String())

	return Token{}, false
}

func (p *Parser) errorHere(expected string) {
	start := p.offsetToPosition(p.cur().Start)
	end := p.offsetToPosition(p.cur().End)
	span := position.Span{Start: start, End: end}

	actual := p.cur().Literal
	if actual == "" {
		actual = p.cur().Type.String()
	}

	p.diags.AddDiagnostic(diagnostic.Common.UnexpectedToken(span, expected, actual))
}

func (p *Parser) offsetToPosition(offset int) position.Position {
	sf := position.NewSourceFile(p.path, p.src)
	return sf.PositionFromOffset(offset)
}

func (p *Parser) parseFile() {
	root := p.arena.Root()
	p.arena.SetRegion(root, RegionFull, 0, len(p.src))

	for !p.at(TokenEOF) {
		switch p.cur().Type {
		case TokenPragma:
			p.parsePragma(root)
		case TokenImport:
			p.parseImport(root)
		case TokenIdentifier:
			p.parseQmlObject(root)
		default:
			// Unrecognized leading token: record and skip to resync.
			p.errorHere("unexpected token at file scope")
			p.advance()
		}
	}
}

func (p *Parser) parsePragma(parent ItemIndex) {
	start := p.cur().Start
	p.advance() // 'pragma'

	name, _ := p.expect(TokenIdentifier)

	idx := p.arena.Add(parent, Item{Kind: KindPragma, Name: name.Literal})
	p.arena.SetRegion(idx, RegionIdentifier, name.Start, name.End)

	if colon, ok := p.accept(TokenColon); ok {
		p.arena.SetRegion(idx, RegionColon, colon.Start, colon.End)

		if val, ok := p.accept(TokenIdentifier); ok {
			p.arena.Get(idx).Value = val.Literal
		}
	}

	p.skipOptionalSemicolon()
	p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)
}

func (p *Parser) parseImport(parent ItemIndex) {
	start := p.cur().Start
	p.advance() // 'import'

	idx := p.arena.Add(parent, Item{Kind: KindImport})

	switch p.cur().Type {
	case TokenIdentifier:
		nameTok := p.advance()
		name := nameTok.Literal

		for {
			if _, ok := p.accept(TokenDot); ok {
				if next, ok := p.accept(TokenIdentifier); ok {
					name += "." + next.Literal
				}

				continue
			}

			break
		}

		p.arena.Get(idx).Name = name
		p.arena.SetRegion(idx, RegionIdentifier, nameTok.Start, p.toks[p.pos-1].End)

	case TokenString:
		str := p.advance()
		p.arena.Get(idx).Name = str.Literal
	}

	if maj, ok := p.accept(TokenNumber); ok {
		p.arena.Get(idx).Value = maj.Literal

		if _, ok := p.accept(TokenDot); ok {
			if minor, ok := p.accept(TokenNumber); ok {
				p.arena.Get(idx).Value += "." + minor.Literal
			}
		}
	}

	if asTok, ok := p.accept(TokenAs); ok {
		p.arena.SetRegion(idx, RegionOperator, asTok.Start, asTok.End)
		p.accept(TokenIdentifier)
	}

	p.skipOptionalSemicolon()
	p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)
}

func (p *Parser) skipOptionalSemicolon() {
	p.accept(TokenSemicolon)
}

// parseQmlObject parses `Identifier { member* }`, the structural core of
// the markup language's object tree.
func (p *Parser) parseQmlObject(parent ItemIndex) ItemIndex {
	start := p.cur().Start
	nameTok, _ := p.expect(TokenIdentifier)

	idx := p.arena.Add(parent, Item{Kind: KindQmlObject, Name: nameTok.Literal})
	p.arena.SetRegion(idx, RegionIdentifier, nameTok.Start, nameTok.End)

	if lb, ok := p.accept(TokenLBrace); ok {
		p.arena.SetRegion(idx, RegionLeftBrace, lb.Start, lb.End)
	} else {
		p.errorHere("expected '{' after object type name")
		p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)

		return idx
	}

	for !p.at(TokenRBrace) && !p.at(TokenEOF) {
		p.parseObjectMember(idx)
	}

	if rb, ok := p.accept(TokenRBrace); ok {
		p.arena.SetRegion(idx, RegionRightBrace, rb.Start, rb.End)
	}

	p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)

	return idx
}

func (p *Parser) parseObjectMember(parent ItemIndex) {
	switch p.cur().Type {
	case TokenIdentifier:
		if p.cur().Literal == "id" && p.peek(1).Type == TokenColon {
			p.parseIdMember(parent)
			return
		}

		if p.peek(1).Type == TokenLBrace {
			p.parseQmlObject(parent)
			return
		}

		if p.peek(1).Type == TokenColon {
			p.parseBinding(parent)
			return
		}

		// Unrecognized identifier-led construct; treat as a binding with no
		// resolvable value so the tree still advances.
		p.parseBinding(parent)

	case TokenDefaultKw, TokenRequired, TokenReadonly, TokenProperty:
		p.parsePropertyDefinition(parent)

	case TokenSignal:
		p.parseSignalDefinition(parent)

	case TokenFunction:
		p.parseMethodDefinition(parent)

	case TokenEnum:
		p.parseEnumDefinition(parent)

	default:
		p.errorHere("unexpected token in object body")
		p.advance()
	}
}

func (p *Parser) parseIdMember(parent ItemIndex) {
	start := p.cur().Start
	p.advance() // 'id'

	colon, _ := p.expect(TokenColon)

	idx := p.arena.Add(parent, Item{Kind: KindId})
	p.arena.SetRegion(idx, RegionColon, colon.Start, colon.End)

	if val, ok := p.accept(TokenIdentifier); ok {
		p.arena.Get(idx).Name = val.Literal
		p.arena.SetRegion(idx, RegionIdentifier, val.Start, val.End)
	}

	p.skipOptionalSemicolon()
	p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)
}

func (p *Parser) parseBinding(parent ItemIndex) {
	start := p.cur().Start
	nameTok := p.advance()

	name := nameTok.Literal
	for {
		if _, ok := p.accept(TokenDot); ok {
			if next, ok := p.accept(TokenIdentifier); ok {
				name += "." + next.Literal
			}

			continue
		}

		break
	}

	idx := p.arena.Add(parent, Item{Kind: KindBinding, Name: name})
	p.arena.SetRegion(idx, RegionIdentifier, nameTok.Start, nameTok.End)

	if colon, ok := p.accept(TokenColon); ok {
		p.arena.SetRegion(idx, RegionColon, colon.Start, colon.End)
		p.parseBindingValue(idx)
	}

	p.skipOptionalSemicolon()
	p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)
}

// parseBindingValue parses the right-hand side of a binding: either a
// nested object (grouped binding, e.g. `anchors { ... }`) or a JS
// expression terminated by `;` or the enclosing `}`.
func (p *Parser) parseBindingValue(parent ItemIndex) {
	if p.at(TokenIdentifier) && p.peek(1).Type == TokenLBrace {
		p.parseQmlObject(parent)
		return
	}

	p.parseScriptExpression(parent, tokenSetOf(TokenSemicolon, TokenRBrace))
}

func (p *Parser) parsePropertyDefinition(parent ItemIndex) {
	start := p.cur().Start
	idx := p.arena.Add(parent, Item{Kind: KindPropertyDefinition})

	for p.at(TokenDefaultKw) || p.at(TokenRequired) || p.at(TokenReadonly) {
		mod := p.advance()
		if p.arena.Get(idx).Value == "" {
			p.arena.Get(idx).Value = mod.Literal
		} else {
			p.arena.Get(idx).Value += " " + mod.Literal
		}
	}

	p.expect(TokenProperty)

	// type name: identifier, possibly `list<Type>` or qualified
	if _, ok := p.accept(TokenIdentifier); ok {
		if lt, ok := p.accept(TokenOperator); ok && lt.Literal == "<" {
			p.accept(TokenIdentifier)
			p.accept(TokenOperator) // closing '>'
		}
	}

	nameTok, _ := p.expect(TokenIdentifier)
	p.arena.Get(idx).Name = nameTok.Literal
	p.arena.SetRegion(idx, RegionIdentifier, nameTok.Start, nameTok.End)

	if colon, ok := p.accept(TokenColon); ok {
		p.arena.SetRegion(idx, RegionColon, colon.Start, colon.End)
		p.parseBindingValue(idx)
	} else if op, ok := p.accept(TokenOperator); ok && op.Literal == "=" {
		p.parseScriptExpression(idx, tokenSetOf(TokenSemicolon, TokenRBrace))
	}

	p.skipOptionalSemicolon()
	p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)
}

func (p *Parser) parseSignalDefinition(parent ItemIndex) {
	start := p.cur().Start
	p.advance() // 'signal'

	nameTok, _ := p.expect(TokenIdentifier)
	idx := p.arena.Add(parent, Item{Kind: KindSignalDefinition, Name: nameTok.Literal})
	p.arena.SetRegion(idx, RegionIdentifier, nameTok.Start, nameTok.End)

	p.parseParamList(idx)
	p.skipOptionalSemicolon()
	p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)
}

func (p *Parser) parseMethodDefinition(parent ItemIndex) {
	start := p.cur().Start
	p.advance() // 'function'

	nameTok, _ := p.expect(TokenIdentifier)
	idx := p.arena.Add(parent, Item{Kind: KindMethodDefinition, Name: nameTok.Literal})
	p.arena.SetRegion(idx, RegionIdentifier, nameTok.Start, nameTok.End)

	p.parseParamList(idx)
	p.parseBlock(idx)
	p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)
}

func (p *Parser) parseParamList(parent ItemIndex) {
	lp, ok := p.accept(TokenLParen)
	if !ok {
		p.errorHere("expected '(' in parameter list")
		return
	}

	p.arena.SetRegion(parent, RegionLeftParen, lp.Start, lp.End)

	for !p.at(TokenRParen) && !p.at(TokenEOF) {
		p.advance()
	}

	if rp, ok := p.accept(TokenRParen); ok {
		p.arena.SetRegion(parent, RegionRightParen, rp.Start, rp.End)
	}
}

func (p *Parser) parseEnumDefinition(parent ItemIndex) {
	start := p.cur().Start
	p.advance() // 'enum'

	nameTok, _ := p.expect(TokenIdentifier)
	idx := p.arena.Add(parent, Item{Kind: KindEnumDefinition, Name: nameTok.Literal})
	p.arena.SetRegion(idx, RegionIdentifier, nameTok.Start, nameTok.End)

	if lb, ok := p.accept(TokenLBrace); ok {
		p.arena.SetRegion(idx, RegionLeftBrace, lb.Start, lb.End)
	}

	for !p.at(TokenRBrace) && !p.at(TokenEOF) {
		valTok, ok := p.accept(TokenIdentifier)
		if !ok {
			p.advance()
			continue
		}

		valIdx := p.arena.Add(idx, Item{Kind: KindEnumValue, Name: valTok.Literal})
		p.arena.SetRegion(valIdx, RegionIdentifier, valTok.Start, valTok.End)

		if op, ok := p.accept(TokenOperator); ok && op.Literal == "=" {
			if num, ok := p.accept(TokenNumber); ok {
				p.arena.Get(valIdx).Value = num.Literal
			}
		}

		p.accept(TokenComma)
	}

	if rb, ok := p.accept(TokenRBrace); ok {
		p.arena.SetRegion(idx, RegionRightBrace, rb.Start, rb.End)
	}

	p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)
}

// tokenSet is a small fixed set of stop tokens used by the expression/
// statement scanner below.
type tokenSet map[TokenType]bool

func tokenSetOf(tt ...TokenType) tokenSet {
	s := make(tokenSet, len(tt))
	for _, t := range tt {
		s[t] = true
	}

	return s
}

// parseBlock parses `{ statement* }`, recording brace regions and
// delegating each statement to parseStatement. The JS layer is
// intentionally shallow: it models enough structure (blocks, for/while/
// if/switch/case, try/catch, variable declarations, and a flat expression
// scan) for the completion engine's context dispatch to locate keyword and
// punctuation token regions, without building a full expression-precedence
// AST a type resolver would need.
func (p *Parser) parseBlock(parent ItemIndex) ItemIndex {
	start := p.cur().Start
	idx := p.arena.Add(parent, Item{Kind: KindScriptBlock})

	if lb, ok := p.accept(TokenLBrace); ok {
		p.arena.SetRegion(idx, RegionLeftBrace, lb.Start, lb.End)
	} else {
		p.errorHere("expected '{' to start block")
		p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)

		return idx
	}

	for !p.at(TokenRBrace) && !p.at(TokenEOF) {
		p.parseStatement(idx)
	}

	if rb, ok := p.accept(TokenRBrace); ok {
		p.arena.SetRegion(idx, RegionRightBrace, rb.Start, rb.End)
	}

	p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)

	return idx
}

func (p *Parser) parseStatement(parent ItemIndex) {
	start := p.cur().Start

	switch p.cur().Type {
	case TokenLBrace:
		p.parseBlock(parent)
		return

	case TokenVar, TokenLet, TokenConst:
		kwTok := p.advance()
		idx := p.arena.Add(parent, Item{Kind: KindScriptVariableDeclaration, Value: kwTok.Literal})

		for {
			nameTok, ok := p.accept(TokenIdentifier)
			if !ok {
				break
			}

			declIdx := p.arena.Add(idx, Item{Kind: KindScriptIdentifierExpression, Name: nameTok.Literal})
			p.arena.SetRegion(declIdx, RegionIdentifier, nameTok.Start, nameTok.End)

			if op, ok := p.accept(TokenOperator); ok && op.Literal == "=" {
				p.arena.SetRegion(declIdx, RegionOperator, op.Start, op.End)
				p.parseScriptExpression(declIdx, tokenSetOf(TokenSemicolon, TokenComma, TokenRBrace))
			}

			if _, ok := p.accept(TokenComma); !ok {
				break
			}
		}

		p.skipStatementSemicolon(idx, start)

	case TokenIf:
		p.parseIfStatement(parent, start)

	case TokenFor:
		p.parseForStatement(parent, start)

	case TokenWhile, TokenDo:
		p.parseWhileStatement(parent, start)

	case TokenSwitch:
		p.parseSwitchStatement(parent, start)

	case TokenReturn, TokenThrow, TokenBreak, TokenContinue:
		kwTok := p.advance()
		idx := p.arena.Add(parent, Item{Kind: KindScriptExpression, Name: kwTok.Literal})

		if !p.at(TokenSemicolon) && !p.at(TokenRBrace) {
			p.parseScriptExpression(idx, tokenSetOf(TokenSemicolon, TokenRBrace))
		}

		p.skipStatementSemicolon(idx, start)

	case TokenTry:
		p.parseTryStatement(parent, start)

	case TokenSemicolon:
		p.advance()

	default:
		idx := p.arena.Add(parent, Item{Kind: KindScriptExpression})
		p.parseScriptExpression(idx, tokenSetOf(TokenSemicolon, TokenRBrace))
		p.skipStatementSemicolon(idx, start)
	}
}

func (p *Parser) skipStatementSemicolon(idx ItemIndex, start int) {
	if semi, ok := p.accept(TokenSemicolon); ok {
		p.arena.SetRegion(idx, RegionFirstSemicolon, semi.Start, semi.End)
	}

	p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)
}

func (p *Parser) parseIfStatement(parent ItemIndex, start int) {
	idx := p.arena.Add(parent, Item{Kind: KindScriptIfStatement})
	p.advance() // 'if'
	p.parseParenCondition(idx)
	p.parseStatement(idx)

	if _, ok := p.accept(TokenElse); ok {
		p.parseStatement(idx)
	}

	p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)
}

func (p *Parser) parseWhileStatement(parent ItemIndex, start int) {
	idx := p.arena.Add(parent, Item{Kind: KindScriptWhileStatement})
	isDo := p.at(TokenDo)
	p.advance() // 'while' or 'do'

	if isDo {
		p.parseStatement(idx)
		p.accept(TokenWhile)
		p.parseParenCondition(idx)
		p.skipStatementSemicolon(idx, start)

		return
	}

	p.parseParenCondition(idx)
	p.parseStatement(idx)
	p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)
}

func (p *Parser) parseParenCondition(idx ItemIndex) {
	if lp, ok := p.accept(TokenLParen); ok {
		p.arena.SetRegion(idx, RegionLeftParen, lp.Start, lp.End)
	}

	p.parseScriptExpression(idx, tokenSetOf(TokenRParen))

	if rp, ok := p.accept(TokenRParen); ok {
		p.arena.SetRegion(idx, RegionRightParen, rp.Start, rp.End)
	}
}

func (p *Parser) parseForStatement(parent ItemIndex, start int) {
	idx := p.arena.Add(parent, Item{Kind: KindScriptForStatement})
	p.advance() // 'for'

	if lp, ok := p.accept(TokenLParen); ok {
		p.arena.SetRegion(idx, RegionLeftParen, lp.Start, lp.End)
	}

	for !p.at(TokenRParen) && !p.at(TokenEOF) {
		if p.at(TokenIn) || p.at(TokenOf) {
			t := p.advance()
			p.arena.SetRegion(idx, RegionInOf, t.Start, t.End)
			continue
		}

		p.advance()
	}

	if rp, ok := p.accept(TokenRParen); ok {
		p.arena.SetRegion(idx, RegionRightParen, rp.Start, rp.End)
	}

	p.parseStatement(idx)
	p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)
}

func (p *Parser) parseSwitchStatement(parent ItemIndex, start int) {
	idx := p.arena.Add(parent, Item{Kind: KindScriptSwitchStatement})
	p.advance() // 'switch'
	p.parseParenCondition(idx)

	if lb, ok := p.accept(TokenLBrace); ok {
		p.arena.SetRegion(idx, RegionLeftBrace, lb.Start, lb.End)
	}

	for !p.at(TokenRBrace) && !p.at(TokenEOF) {
		p.parseCaseClause(idx)
	}

	if rb, ok := p.accept(TokenRBrace); ok {
		p.arena.SetRegion(idx, RegionRightBrace, rb.Start, rb.End)
	}

	p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)
}

func (p *Parser) parseCaseClause(parent ItemIndex) {
	start := p.cur().Start
	idx := p.arena.Add(parent, Item{Kind: KindScriptCaseClause})

	switch p.cur().Type {
	case TokenCase:
		kw := p.advance()
		p.arena.SetRegion(idx, RegionCaseKeyword, kw.Start, kw.End)
		p.parseScriptExpression(idx, tokenSetOf(TokenColon))
	case TokenDefault, TokenDefaultKw:
		kw := p.advance()
		p.arena.SetRegion(idx, RegionDefaultKeyword, kw.Start, kw.End)
	default:
		p.errorHere("expected 'case' or 'default'")
		p.advance()

		return
	}

	if colon, ok := p.accept(TokenColon); ok {
		p.arena.SetRegion(idx, RegionColon, colon.Start, colon.End)
	}

	for !p.at(TokenCase) && !p.at(TokenDefault) && !p.at(TokenDefaultKw) && !p.at(TokenRBrace) && !p.at(TokenEOF) {
		p.parseStatement(idx)
	}

	p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)
}

func (p *Parser) parseTryStatement(parent ItemIndex, start int) {
	idx := p.arena.Add(parent, Item{Kind: KindScriptBlock, Value: "try"})
	p.advance() // 'try'
	p.parseBlock(idx)

	if _, ok := p.accept(TokenCatch); ok {
		if lp, ok := p.accept(TokenLParen); ok {
			p.arena.SetRegion(idx, RegionLeftParen, lp.Start, lp.End)
			p.accept(TokenIdentifier)
			p.accept(TokenRParen)
		}

		p.parseBlock(idx)
	}

	if _, ok := p.accept(TokenFinally); ok {
		p.parseBlock(idx)
	}

	p.arena.SetRegion(idx, RegionFull, start, p.cur().Start)
}

// parseScriptExpression consumes tokens until a member of stop is seen at
// nesting depth 0, building a flat sequence of child expression nodes
// (identifiers, literals, field-member accesses, operators, calls). It is
// not a precedence-climbing parser: statement-level context (what
// construct the expression sits in) is what the completion engine actually
// needs, and that context comes from the enclosing node's Kind and region
// set, not from expression shape.
func (p *Parser) parseScriptExpression(parent ItemIndex, stop tokenSet) {
	start := p.cur().Start
	depth := 0

	for {
		t := p.cur()
		if t.Type == TokenEOF {
			break
		}

		if depth == 0 && stop[t.Type] {
			break
		}

		switch t.Type {
		case TokenLParen, TokenLBracket, TokenLBrace:
			depth++
			p.advance()

		case TokenRParen, TokenRBracket, TokenRBrace:
			if depth == 0 {
				// Unbalanced close at depth 0 belongs to an enclosing
				// construct (e.g. the object body's closing brace).
				goto done
			}

			depth--
			p.advance()

		case TokenIdentifier:
			idTok := p.advance()
			idx := p.arena.Add(parent, Item{Kind: KindScriptIdentifierExpression, Name: idTok.Literal})
			p.arena.SetRegion(idx, RegionIdentifier, idTok.Start, idTok.End)

			for p.at(TokenDot) {
				dot := p.advance()
				memberTok, ok := p.accept(TokenIdentifier)

				if !ok {
					break
				}

				memberIdx := p.arena.Add(parent, Item{Kind: KindScriptFieldMemberExpression, Name: memberTok.Literal})
				p.arena.SetRegion(memberIdx, RegionOperator, dot.Start, dot.End)
				p.arena.SetRegion(memberIdx, RegionIdentifier, memberTok.Start, memberTok.End)
			}

			if p.at(TokenLParen) {
				p.arena.Get(idx).Kind = KindScriptCallExpression
				p.parseParamList(idx)
			}

		case TokenNumber, TokenString, TokenTemplateString, TokenTrue, TokenFalse, TokenNull, TokenThis:
			litTok := p.advance()
			litIdx := p.arena.Add(parent, Item{Kind: KindScriptLiteral, Value: litTok.Literal})
			p.arena.SetRegion(litIdx, RegionFull, litTok.Start, litTok.End)

		case TokenOperator, TokenQuestion, TokenColon:
			opTok := p.advance()
			p.arena.SetRegion(parent, RegionOperator, opTok.Start, opTok.End)

			if opTok.Type == TokenQuestion {
				p.arena.SetRegion(parent, RegionQuestion, opTok.Start, opTok.End)
			}

		default:
			p.advance()
		}
	}

done:
	exprIdx := p.arena.Add(parent, Item{Kind: KindScriptExpression})
	p.arena.SetRegion(exprIdx, RegionFull, start, p.cur().Start)
}
