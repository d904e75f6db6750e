package zql

import (
	"regexp"
	"strings"
	"sync"
)

// RefScope says which document a field path resolves against.
type RefScope int

const (
	ScopeSelf        RefScope = iota // plain path
	ScopeParent                      // ^path
	ScopeGrandparent                 // ^^path
)

// Expr is a node of the filter expression tree. Evaluation is a single
// exhaustive type switch over these structs; once parsed a tree is
// immutable and may be shared across goroutines.
type Expr interface {
	exprNode()
}

// Literal is an inline number, string, bool or null.
type Literal struct {
	Val Value
}

// FieldRef addresses a (possibly nested) document field by dotted path.
type FieldRef struct {
	Scope RefScope
	Path  []string
}

// Variable is a `$name` binding resolved from the evaluation context.
type Variable struct {
	Name string
}

// Not negates the truthiness of its operand.
type Not struct {
	Expr Expr
}

// CompareOp is one of = != > >= < <=.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
)

func (op CompareOp) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	default:
		return "?"
	}
}

// Compare is a binary comparison.
type Compare struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

// ArithOp is one of + - * / %.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
)

// Arith is binary arithmetic. Defined on numbers only; mismatched kinds
// evaluate to Null.
type Arith struct {
	Op    ArithOp
	Left  Expr
	Right Expr
}

// LogicalOp is and/or.
type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
)

// Logical is a binary and/or over truthiness.
type Logical struct {
	Op    LogicalOp
	Left  Expr
	Right Expr
}

// In tests membership of the subject in a bracketed list.
type In struct {
	Subject Expr
	List    []Expr
}

// Between is an inclusive range test with three operands.
type Between struct {
	Subject Expr
	Low     Expr
	High    Expr
}

// Like is the %/_ wildcard pattern predicate over UTF-8 text: `%` matches
// any run, `_` any single character. The translated matcher compiles lazily
// on first evaluation.
type Like struct {
	Subject Expr
	Pattern string

	once sync.Once
	re   *regexp.Regexp
}

func (l *Like) compiled() *regexp.Regexp {
	l.once.Do(func() {
		var b strings.Builder
		b.WriteString(`(?s)^`)
		for _, r := range l.Pattern {
			switch r {
			case '%':
				b.WriteString(`.*`)
			case '_':
				b.WriteString(`.`)
			default:
				b.WriteString(regexp.QuoteMeta(string(r)))
			}
		}
		b.WriteString(`$`)
		l.re = regexp.MustCompile(b.String())
	})
	return l.re
}

// Regex applies a regular expression to the subject's string value. The
// pattern compiles lazily on first evaluation; a bad pattern is an
// evaluation error, not a parse error.
type Regex struct {
	Subject Expr
	Pattern string

	once  sync.Once
	re    *regexp.Regexp
	reErr error
}

func (r *Regex) compiled() (*regexp.Regexp, error) {
	r.once.Do(func() {
		r.re, r.reErr = regexp.Compile(r.Pattern)
	})
	return r.re, r.reErr
}

// IsNull tests whether the subject evaluates to Null.
type IsNull struct {
	Subject Expr
}

// Exists tests whether the subject evaluates to anything but Null.
type Exists struct {
	Subject Expr
}

// Contains tests that a list-valued subject contains a single element.
type Contains struct {
	Subject Expr
	Elem    Expr
}

// ContainsAny tests that a list-valued subject shares at least one element
// with the bracketed list.
type ContainsAny struct {
	Subject Expr
	List    []Expr
}

// ContainsAll tests that a list-valued subject contains every element of
// the bracketed list.
type ContainsAll struct {
	Subject Expr
	List    []Expr
}

// Cast converts the operand to a named type (`expr :: typename`). Any
// identifier is accepted as a type name at parse time; validity is an
// evaluation concern.
type Cast struct {
	Expr     Expr
	TypeName string
}

func (*Literal) exprNode()     {}
func (*FieldRef) exprNode()    {}
func (*Variable) exprNode()    {}
func (*Not) exprNode()         {}
func (*Compare) exprNode()     {}
func (*Arith) exprNode()       {}
func (*Logical) exprNode()     {}
func (*In) exprNode()          {}
func (*Between) exprNode()     {}
func (*Like) exprNode()        {}
func (*Regex) exprNode()       {}
func (*IsNull) exprNode()      {}
func (*Exists) exprNode()      {}
func (*Contains) exprNode()    {}
func (*ContainsAny) exprNode() {}
func (*ContainsAll) exprNode() {}
func (*Cast) exprNode()        {}

// ListExpr is a bracketed list in expression position, e.g. `[1, 2, 3]`.
type ListExpr struct {
	Elems []Expr
}

func (*ListExpr) exprNode() {}

// OrderKey is one element of the `order` clause.
type OrderKey struct {
	Field FieldRef
	Desc  bool
}

// Query is the parse result: every clause optional, clause order fixed.
type Query struct {
	Filter    Expr       // nil when absent
	Order     []OrderKey // empty when absent
	Skip      *int       // non-negative when present
	Limit     *int       // non-negative when present
	Returning []FieldRef // empty means whole document
}
