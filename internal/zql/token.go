// Package zql implements the ZQL query language: lexing, parsing,
// evaluation against documents, and query execution over a document stream.
package zql

import "fmt"

// Keyword is a reserved word of the language. Identifiers are promoted to
// keywords only on an exact, case-sensitive match; backtick quoting defeats
// the promotion.
type Keyword int

const (
	KwAnd Keyword = iota
	KwOr
	KwNot
	KwIn
	KwBetween
	KwLike
	KwRegex
	KwIs
	KwExists
	KwContains
	KwContainsAny
	KwContainsAll
	KwWhere
	KwOrder
	KwSkip
	KwLimit
	KwReturning
	KwAsc
	KwDesc
	KwTrue
	KwFalse
	KwNull
)

var keywordNames = map[Keyword]string{
	KwAnd:         "and",
	KwOr:          "or",
	KwNot:         "not",
	KwIn:          "in",
	KwBetween:     "between",
	KwLike:        "like",
	KwRegex:       "regex",
	KwIs:          "is",
	KwExists:      "exists",
	KwContains:    "contains",
	KwContainsAny: "containsAny",
	KwContainsAll: "containsAll",
	KwWhere:       "where",
	KwOrder:       "order",
	KwSkip:        "skip",
	KwLimit:       "limit",
	KwReturning:   "returning",
	KwAsc:         "asc",
	KwDesc:        "desc",
	KwTrue:        "true",
	KwFalse:       "false",
	KwNull:        "null",
}

var keywords = func() map[string]Keyword {
	m := make(map[string]Keyword, len(keywordNames))
	for k, name := range keywordNames {
		m[name] = k
	}
	return m
}()

// LookupKeyword reports whether name is a reserved word.
func LookupKeyword(name string) (Keyword, bool) {
	k, ok := keywords[name]
	return k, ok
}

func (k Keyword) String() string {
	if name, ok := keywordNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Keyword(%d)", int(k))
}

// TokenType classifies a lexical unit.
type TokenType int

const (
	TokenNumber TokenType = iota
	TokenString
	TokenIdent
	TokenKeyword
	TokenVariable
	TokenParentRef
	TokenGrandparentRef
	TokenEqual
	TokenNotEqual
	TokenGreaterThan
	TokenGreaterThanOrEqual
	TokenLessThan
	TokenLessThanOrEqual
	TokenPlus
	TokenMinus
	TokenAsterisk
	TokenSlash
	TokenPercent
	TokenColonColon
	TokenColon
	TokenOpenParen
	TokenCloseParen
	TokenOpenBrace
	TokenCloseBrace
	TokenOpenBracket
	TokenCloseBracket
	TokenComma
	TokenDot
)

var symbolNames = map[TokenType]string{
	TokenEqual:              "=",
	TokenNotEqual:           "!=",
	TokenGreaterThan:        ">",
	TokenGreaterThanOrEqual: ">=",
	TokenLessThan:           "<",
	TokenLessThanOrEqual:    "<=",
	TokenPlus:               "+",
	TokenMinus:              "-",
	TokenAsterisk:           "*",
	TokenSlash:              "/",
	TokenPercent:            "%",
	TokenColonColon:         "::",
	TokenColon:              ":",
	TokenOpenParen:          "(",
	TokenCloseParen:         ")",
	TokenOpenBrace:          "{",
	TokenCloseBrace:         "}",
	TokenOpenBracket:        "[",
	TokenCloseBracket:       "]",
	TokenComma:              ",",
	TokenDot:                ".",
}

// Position is a 1-based line/column location in the query text.
type Position struct {
	Line int
	Col  int
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, col %d", p.Line, p.Col)
}

// Token is a classified lexical unit. Text carries the payload for numbers,
// strings, identifiers, variables and parent refs; Kw carries the keyword
// when Type is TokenKeyword.
type Token struct {
	Type TokenType
	Text string
	Kw   Keyword
	Pos  Position
}

// String renders the token back to source form. Relexing the rendering of
// any punctuation or keyword token yields the same token type.
func (t Token) String() string {
	switch t.Type {
	case TokenNumber, TokenIdent:
		return t.Text
	case TokenString:
		return `"` + t.Text + `"`
	case TokenKeyword:
		return t.Kw.String()
	case TokenVariable:
		return "$" + t.Text
	case TokenParentRef:
		return "^" + t.Text
	case TokenGrandparentRef:
		return "^^" + t.Text
	default:
		if s, ok := symbolNames[t.Type]; ok {
			return s
		}
		return fmt.Sprintf("Token(%d)", int(t.Type))
	}
}

// IsKeyword reports whether the token is the given keyword.
func (t Token) IsKeyword(k Keyword) bool {
	return t.Type == TokenKeyword && t.Kw == k
}
