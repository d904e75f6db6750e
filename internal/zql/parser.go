package zql

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse compiles query text into a Query. A malformed query yields exactly
// one *LexError or *ParseError; no partial result is returned.
func Parse(text string) (*Query, error) {
	p := &parser{lx: NewLexer(text)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	q := &Query{}

	if p.atKeyword(KwWhere) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		filter, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		q.Filter = filter
	}

	if p.atKeyword(KwOrder) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		order, err := p.parseOrderList()
		if err != nil {
			return nil, err
		}
		q.Order = order
	}

	if p.atKeyword(KwSkip) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parseCount("skip")
		if err != nil {
			return nil, err
		}
		q.Skip = &n
	}

	if p.atKeyword(KwLimit) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parseCount("limit")
		if err != nil {
			return nil, err
		}
		q.Limit = &n
	}

	if p.atKeyword(KwReturning) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		paths, err := p.parsePathList()
		if err != nil {
			return nil, err
		}
		q.Returning = paths
	}

	if p.tok != nil {
		if p.tok.Type == TokenKeyword {
			switch p.tok.Kw {
			case KwWhere, KwOrder, KwSkip, KwLimit, KwReturning:
				return nil, p.errorf("duplicate or misplaced '%s' clause (clause order is where, order, skip, limit, returning)", p.tok.Kw)
			}
		}
		return nil, p.errorf("expected end of query, found '%s'", p.tok)
	}

	return q, nil
}

// ParseFilter compiles a standalone filter expression, as used by
// conditional update and delete. The text is a bare expression with no
// clause keywords around it.
func ParseFilter(text string) (Expr, error) {
	p := &parser{lx: NewLexer(text)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok == nil {
		return nil, p.errorf("expected filter expression, found end of input")
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok != nil {
		return nil, p.errorf("expected end of filter, found '%s'", p.tok)
	}
	return expr, nil
}

// MustParse is a test and example helper; it panics on error.
func MustParse(text string) *Query {
	q, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return q
}

// parser is a recursive-descent parser with one-token lookahead.
type parser struct {
	lx      *Lexer
	tok     *Token // nil at end of input
	lastPos Position
}

func (p *parser) advance() error {
	if p.tok != nil {
		p.lastPos = p.tok.Pos
	}
	tok, err := p.lx.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) pos() Position {
	if p.tok != nil {
		return p.tok.Pos
	}
	return p.lastPos
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Msg: fmt.Sprintf(format, args...), Pos: p.pos()}
}

func (p *parser) atKeyword(k Keyword) bool {
	return p.tok != nil && p.tok.IsKeyword(k)
}

func (p *parser) at(tt TokenType) bool {
	return p.tok != nil && p.tok.Type == tt
}

// expect consumes a token of the given type or fails naming what was found.
func (p *parser) expect(tt TokenType, what string) (Token, error) {
	if p.tok == nil {
		return Token{}, p.errorf("expected %s, found end of query", what)
	}
	if p.tok.Type != tt {
		return Token{}, p.errorf("expected %s, found '%s'", what, p.tok)
	}
	tok := *p.tok
	if err := p.advance(); err != nil {
		return Token{}, err
	}
	return tok, nil
}

func (p *parser) expectKeyword(k Keyword) error {
	if p.tok == nil {
		return p.errorf("expected '%s', found end of query", k)
	}
	if !p.tok.IsKeyword(k) {
		return p.errorf("expected '%s', found '%s'", k, p.tok)
	}
	return p.advance()
}

// parseCount parses the non-negative integer operand of skip/limit. A
// negative literal here is a parse error, not clamped at runtime.
func (p *parser) parseCount(clause string) (int, error) {
	tok, err := p.expect(TokenNumber, fmt.Sprintf("non-negative integer after '%s'", clause))
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(tok.Text)
	if convErr != nil || n < 0 {
		return 0, &ParseError{
			Msg: fmt.Sprintf("'%s' requires a non-negative integer, found %s", clause, tok.Text),
			Pos: tok.Pos,
		}
	}
	return n, nil
}

func (p *parser) parseOrderList() ([]OrderKey, error) {
	var keys []OrderKey
	for {
		ref, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		key := OrderKey{Field: ref}
		if p.atKeyword(KwAsc) || p.atKeyword(KwDesc) {
			key.Desc = p.tok.Kw == KwDesc
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		keys = append(keys, key)
		if !p.at(TokenComma) {
			return keys, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parsePathList() ([]FieldRef, error) {
	var paths []FieldRef
	for {
		ref, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		paths = append(paths, ref)
		if !p.at(TokenComma) {
			return paths, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
}

// parsePath parses a field path: an optional ^/^^ prefix (only valid at the
// start) followed by dotted identifiers.
func (p *parser) parsePath() (FieldRef, error) {
	if p.tok == nil {
		return FieldRef{}, p.errorf("expected field path, found end of query")
	}
	switch p.tok.Type {
	case TokenParentRef, TokenGrandparentRef:
		scope := ScopeParent
		if p.tok.Type == TokenGrandparentRef {
			scope = ScopeGrandparent
		}
		ref := FieldRef{Scope: scope, Path: strings.Split(p.tok.Text, ".")}
		return ref, p.advance()
	case TokenIdent:
		return p.parseDottedPath()
	default:
		return FieldRef{}, p.errorf("expected field path, found '%s'", p.tok)
	}
}

func (p *parser) parseDottedPath() (FieldRef, error) {
	first, err := p.expect(TokenIdent, "field name")
	if err != nil {
		return FieldRef{}, err
	}
	path := []string{first.Text}
	for p.at(TokenDot) {
		if err := p.advance(); err != nil {
			return FieldRef{}, err
		}
		seg, err := p.expect(TokenIdent, "field name after '.'")
		if err != nil {
			return FieldRef{}, err
		}
		path = append(path, seg.Text)
	}
	return FieldRef{Scope: ScopeSelf, Path: path}, nil
}

// Precedence, low to high: or < and < not < comparison < additive <
// multiplicative < cast < primary.

func (p *parser) parseExpr() (Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.atKeyword(KwOr) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: OpOr, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.atKeyword(KwAnd) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Logical{Op: OpAnd, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.atKeyword(KwNot) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Not{Expr: inner}, nil
	}
	return p.parseComparison()
}

// parseComparison parses an additive expression followed by at most one
// comparison-level predicate.
func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.tok == nil {
		return left, nil
	}

	if op, ok := compareOpFor(p.tok.Type); ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &Compare{Op: op, Left: left, Right: right}, nil
	}

	if p.tok.Type != TokenKeyword {
		return left, nil
	}

	switch p.tok.Kw {
	case KwIn:
		if err := p.advance(); err != nil {
			return nil, err
		}
		list, err := p.parseBracketedList("in")
		if err != nil {
			return nil, err
		}
		return &In{Subject: left, List: list}, nil

	case KwBetween:
		if err := p.advance(); err != nil {
			return nil, err
		}
		low, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword(KwAnd); err != nil {
			return nil, err
		}
		high, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &Between{Subject: left, Low: low, High: high}, nil

	case KwLike:
		if err := p.advance(); err != nil {
			return nil, err
		}
		pat, err := p.expect(TokenString, "string pattern after 'like'")
		if err != nil {
			return nil, err
		}
		return &Like{Subject: left, Pattern: pat.Text}, nil

	case KwRegex:
		if err := p.advance(); err != nil {
			return nil, err
		}
		pat, err := p.expect(TokenString, "string pattern after 'regex'")
		if err != nil {
			return nil, err
		}
		return &Regex{Subject: left, Pattern: pat.Text}, nil

	case KwIs:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword(KwNull); err != nil {
			return nil, err
		}
		return &IsNull{Subject: left}, nil

	case KwExists:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Exists{Subject: left}, nil

	case KwContains:
		if err := p.advance(); err != nil {
			return nil, err
		}
		// contains takes a single value, never a bracketed list.
		if p.at(TokenOpenBracket) {
			return nil, p.errorf("'contains' takes a single value; use containsAny or containsAll for lists")
		}
		elem, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &Contains{Subject: left, Elem: elem}, nil

	case KwContainsAny:
		if err := p.advance(); err != nil {
			return nil, err
		}
		list, err := p.parseBracketedList("containsAny")
		if err != nil {
			return nil, err
		}
		return &ContainsAny{Subject: left, List: list}, nil

	case KwContainsAll:
		if err := p.advance(); err != nil {
			return nil, err
		}
		list, err := p.parseBracketedList("containsAll")
		if err != nil {
			return nil, err
		}
		return &ContainsAll{Subject: left, List: list}, nil
	}

	return left, nil
}

func (p *parser) parseBracketedList(operator string) ([]Expr, error) {
	if !p.at(TokenOpenBracket) {
		found := "end of query"
		if p.tok != nil {
			found = "'" + p.tok.String() + "'"
		}
		return nil, p.errorf("'%s' requires a bracketed list, found %s", operator, found)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	var elems []Expr
	if p.at(TokenCloseBracket) {
		return elems, p.advance()
	}
	for {
		elem, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		if p.at(TokenComma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := p.expect(TokenCloseBracket, "']' or ','"); err != nil {
			return nil, err
		}
		return elems, nil
	}
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(TokenPlus) || p.at(TokenMinus) {
		op := OpAdd
		if p.tok.Type == TokenMinus {
			op = OpSub
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Arith{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseCast()
	if err != nil {
		return nil, err
	}
	for p.at(TokenAsterisk) || p.at(TokenSlash) || p.at(TokenPercent) {
		var op ArithOp
		switch p.tok.Type {
		case TokenAsterisk:
			op = OpMul
		case TokenSlash:
			op = OpDiv
		default:
			op = OpMod
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseCast()
		if err != nil {
			return nil, err
		}
		left = &Arith{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseCast() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.at(TokenColonColon) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		name, err := p.expect(TokenIdent, "type name after '::'")
		if err != nil {
			return nil, err
		}
		expr = &Cast{Expr: expr, TypeName: name.Text}
	}
	return expr, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	if p.tok == nil {
		return nil, p.errorf("expected expression, found end of query")
	}

	switch p.tok.Type {
	case TokenNumber:
		n, err := strconv.ParseFloat(p.tok.Text, 64)
		if err != nil {
			return nil, p.errorf("invalid number literal %q", p.tok.Text)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Literal{Val: NumberValue(n)}, nil

	case TokenString:
		lit := &Literal{Val: StringValue(p.tok.Text)}
		return lit, p.advance()

	case TokenVariable:
		v := &Variable{Name: p.tok.Text}
		return v, p.advance()

	case TokenIdent, TokenParentRef, TokenGrandparentRef:
		ref, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		return &ref, nil

	case TokenKeyword:
		switch p.tok.Kw {
		case KwTrue:
			lit := &Literal{Val: BoolValue(true)}
			return lit, p.advance()
		case KwFalse:
			lit := &Literal{Val: BoolValue(false)}
			return lit, p.advance()
		case KwNull:
			lit := &Literal{Val: NullValue()}
			return lit, p.advance()
		}
		return nil, p.errorf("expected expression, found '%s'", p.tok)

	case TokenOpenParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenCloseParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil

	case TokenOpenBracket:
		elems, err := p.parseBracketedList("list literal")
		if err != nil {
			return nil, err
		}
		return &ListExpr{Elems: elems}, nil

	default:
		return nil, p.errorf("expected expression, found '%s'", p.tok)
	}
}

func compareOpFor(tt TokenType) (CompareOp, bool) {
	switch tt {
	case TokenEqual:
		return OpEq, true
	case TokenNotEqual:
		return OpNe, true
	case TokenGreaterThan:
		return OpGt, true
	case TokenGreaterThanOrEqual:
		return OpGte, true
	case TokenLessThan:
		return OpLt, true
	case TokenLessThanOrEqual:
		return OpLte, true
	default:
		return 0, false
	}
}
