package zql

import (
	"fmt"
	"unicode"
)

// Lexer is a single forward pass over the query text. Lookahead is bounded:
// one rune for most decisions, two runes only to disambiguate `--` comments
// and `N.` (number versus field-access dot).
type Lexer struct {
	runes []rune
	pos   int
	line  int
	col   int
}

// NewLexer returns a lexer positioned at the start of input.
func NewLexer(input string) *Lexer {
	return &Lexer{runes: []rune(input), line: 1, col: 1}
}

// Tokenize scans the whole input. On a malformed token it returns the
// tokens scanned so far and exactly one *LexError.
func Tokenize(input string) ([]Token, error) {
	lx := NewLexer(input)
	var tokens []Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return tokens, err
		}
		if tok == nil {
			return tokens, nil
		}
		tokens = append(tokens, *tok)
	}
}

// peek returns the rune at offset n from the cursor without consuming,
// or 0 past the end.
func (l *Lexer) peek(n int) rune {
	if l.pos+n >= len(l.runes) {
		return 0
	}
	return l.runes[l.pos+n]
}

func (l *Lexer) eof() bool { return l.pos >= len(l.runes) }

// advance consumes one rune, tracking line and column through newlines.
func (l *Lexer) advance() rune {
	c := l.runes[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *Lexer) takeWhile(pred func(rune) bool) string {
	start := l.pos
	for !l.eof() && pred(l.peek(0)) {
		l.advance()
	}
	return string(l.runes[start:l.pos])
}

// skipTrivia eats whitespace and `--` line comments. Position tracking
// advances through everything skipped so diagnostics stay accurate.
func (l *Lexer) skipTrivia() {
	for {
		for !l.eof() && unicode.IsSpace(l.peek(0)) {
			l.advance()
		}
		if l.peek(0) == '-' && l.peek(1) == '-' {
			l.advance()
			l.advance()
			for !l.eof() && l.peek(0) != '\n' {
				l.advance()
			}
			continue
		}
		return
	}
}

func (l *Lexer) position() Position { return Position{Line: l.line, Col: l.col} }

func (l *Lexer) errorf(pos Position, format string, args ...any) error {
	return &LexError{Msg: fmt.Sprintf(format, args...), Pos: pos}
}

// Next returns the next token, nil at end of input, or a *LexError.
func (l *Lexer) Next() (*Token, error) {
	l.skipTrivia()
	if l.eof() {
		return nil, nil
	}

	pos := l.position()
	c := l.peek(0)
	switch {
	case c == '"':
		return l.scanString(pos)
	case c == '$':
		return l.scanVariable(pos)
	case c == '^':
		return l.scanAncestorRef(pos)
	case c == '`':
		return l.scanQuotedIdent(pos)
	case c >= '0' && c <= '9':
		return l.scanNumber(pos, false)
	case unicode.IsLetter(c) || c == '_':
		return l.scanIdentOrKeyword(pos)
	default:
		return l.scanSymbol(pos)
	}
}

// scanSymbol handles punctuation and operators with greedy longest-match:
// the two-rune forms (::, >=, <=, !=) win over their one-rune prefixes.
func (l *Lexer) scanSymbol(pos Position) (*Token, error) {
	c := l.advance()

	tok := func(tt TokenType) (*Token, error) {
		return &Token{Type: tt, Pos: pos}, nil
	}

	switch c {
	case '(':
		return tok(TokenOpenParen)
	case ')':
		return tok(TokenCloseParen)
	case '{':
		return tok(TokenOpenBrace)
	case '}':
		return tok(TokenCloseBrace)
	case '[':
		return tok(TokenOpenBracket)
	case ']':
		return tok(TokenCloseBracket)
	case ',':
		return tok(TokenComma)
	case '.':
		return tok(TokenDot)
	case '=':
		return tok(TokenEqual)
	case '+':
		return tok(TokenPlus)
	case '*':
		return tok(TokenAsterisk)
	case '/':
		return tok(TokenSlash)
	case '%':
		return tok(TokenPercent)
	case ':':
		if l.peek(0) == ':' {
			l.advance()
			return tok(TokenColonColon)
		}
		return tok(TokenColon)
	case '>':
		if l.peek(0) == '=' {
			l.advance()
			return tok(TokenGreaterThanOrEqual)
		}
		return tok(TokenGreaterThan)
	case '<':
		if l.peek(0) == '=' {
			l.advance()
			return tok(TokenLessThanOrEqual)
		}
		return tok(TokenLessThan)
	case '!':
		// `!` alone is not valid, only `!=`.
		if l.peek(0) == '=' {
			l.advance()
			return tok(TokenNotEqual)
		}
		return nil, l.errorf(pos, "unexpected character '!' (did you mean '!='?)")
	case '-':
		// A minus glued to a digit folds into a negative number literal,
		// so `a-1` lexes as Ident("a"), Number("-1").
		if d := l.peek(0); d >= '0' && d <= '9' {
			return l.scanNumber(pos, true)
		}
		return tok(TokenMinus)
	default:
		return nil, l.errorf(pos, "unexpected character %q", c)
	}
}

// scanNumber scans digits with an optional fractional part. The decimal
// point is consumed only when a digit follows it, so `10.field` lexes as
// Number("10"), Dot, Ident("field"). When negative is set the leading `-`
// has already been consumed by scanSymbol.
func (l *Lexer) scanNumber(pos Position, negative bool) (*Token, error) {
	text := l.takeWhile(isDigit)
	if negative {
		text = "-" + text
	}
	if l.peek(0) == '.' && isDigit(l.peek(1)) {
		l.advance()
		text += "." + l.takeWhile(isDigit)
	}
	return &Token{Type: TokenNumber, Text: text, Pos: pos}, nil
}

// scanString scans a double-quoted literal with escapes \" \\ \n \t \r.
func (l *Lexer) scanString(pos Position) (*Token, error) {
	l.advance() // opening quote

	var out []rune
	for {
		if l.eof() {
			return nil, l.errorf(pos, "unterminated string literal")
		}
		c := l.advance()
		switch c {
		case '"':
			return &Token{Type: TokenString, Text: string(out), Pos: pos}, nil
		case '\\':
			if l.eof() {
				return nil, l.errorf(pos, "unterminated string escape")
			}
			esc := l.advance()
			switch esc {
			case '"':
				out = append(out, '"')
			case '\\':
				out = append(out, '\\')
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			default:
				return nil, l.errorf(pos, "invalid string escape: \\%c", esc)
			}
		default:
			out = append(out, c)
		}
	}
}

// scanVariable scans `$name`.
func (l *Lexer) scanVariable(pos Position) (*Token, error) {
	l.advance() // $
	name := l.takeWhile(isIdentRune)
	if name == "" {
		return nil, l.errorf(pos, "expected variable name after '$'")
	}
	return &Token{Type: TokenVariable, Text: name, Pos: pos}, nil
}

// scanAncestorRef scans `^path` or `^^path`. Paths may be dotted.
func (l *Lexer) scanAncestorRef(pos Position) (*Token, error) {
	l.advance() // first ^
	grandparent := l.peek(0) == '^'
	if grandparent {
		l.advance()
	}
	name := l.takeWhile(func(c rune) bool { return isIdentRune(c) || c == '.' })
	if name == "" {
		return nil, l.errorf(pos, "expected field name after '^'")
	}
	tt := TokenParentRef
	if grandparent {
		tt = TokenGrandparentRef
	}
	return &Token{Type: tt, Text: name, Pos: pos}, nil
}

// scanQuotedIdent scans a backtick-quoted identifier, the escape hatch for
// using reserved words as field names. Always yields an Ident.
func (l *Lexer) scanQuotedIdent(pos Position) (*Token, error) {
	l.advance() // opening backtick

	var out []rune
	for {
		if l.eof() {
			return nil, l.errorf(pos, "unterminated quoted identifier")
		}
		c := l.advance()
		if c == '`' {
			if len(out) == 0 {
				return nil, l.errorf(pos, "empty quoted identifier")
			}
			return &Token{Type: TokenIdent, Text: string(out), Pos: pos}, nil
		}
		out = append(out, c)
	}
}

func (l *Lexer) scanIdentOrKeyword(pos Position) (*Token, error) {
	name := l.takeWhile(isIdentRune)
	if kw, ok := LookupKeyword(name); ok {
		return &Token{Type: TokenKeyword, Kw: kw, Pos: pos}, nil
	}
	return &Token{Type: TokenIdent, Text: name, Pos: pos}, nil
}

func isDigit(c rune) bool { return c >= '0' && c <= '9' }

func isIdentRune(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_'
}
