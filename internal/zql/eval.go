package zql

import (
	"math"
)

// Context is the read-only environment for one document evaluation: the
// candidate document, optional parent/grandparent documents for ^ and ^^
// references, and the caller-supplied variable bindings.
type Context struct {
	Doc         map[string]any
	Parent      map[string]any
	Grandparent map[string]any
	Bindings    map[string]Value
}

// Resolve looks up a field reference. An absent path, an ancestor scope
// with no document supplied, or a path that dead-ends in a non-object all
// yield Null rather than an error.
func (c *Context) Resolve(ref *FieldRef) Value {
	var doc map[string]any
	switch ref.Scope {
	case ScopeSelf:
		doc = c.Doc
	case ScopeParent:
		doc = c.Parent
	case ScopeGrandparent:
		doc = c.Grandparent
	}
	if doc == nil {
		return NullValue()
	}

	var cur any = doc
	for _, seg := range ref.Path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return NullValue()
		}
		next, ok := obj[seg]
		if !ok {
			return NullValue()
		}
		cur = next
	}
	return FromAny(cur)
}

// Matches evaluates the filter as a predicate. A nil filter matches
// everything. Any non-true result (including Null from missing fields or
// kind mismatches) is a non-match; only genuine defects return an error.
func Matches(filter Expr, ctx *Context) (bool, error) {
	if filter == nil {
		return true, nil
	}
	v, err := Evaluate(filter, ctx)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

// truthy reports whether a value is boolean true. Everything else,
// including Null, fails a boolean context.
func truthy(v Value) bool {
	return v.Kind == KindBool && v.Bool
}

// Evaluate computes the value of an expression against a context. The
// switch is exhaustive over the node types in ast.go.
func Evaluate(e Expr, ctx *Context) (Value, error) {
	switch n := e.(type) {
	case *Literal:
		return n.Val, nil

	case *FieldRef:
		return ctx.Resolve(n), nil

	case *Variable:
		if v, ok := ctx.Bindings[n.Name]; ok {
			return v, nil
		}
		return NullValue(), nil

	case *ListExpr:
		list := make([]Value, len(n.Elems))
		for i, elem := range n.Elems {
			v, err := Evaluate(elem, ctx)
			if err != nil {
				return Value{}, err
			}
			list[i] = v
		}
		return Value{Kind: KindList, List: list}, nil

	case *Not:
		v, err := Evaluate(n.Expr, ctx)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(!truthy(v)), nil

	case *Logical:
		left, err := Evaluate(n.Left, ctx)
		if err != nil {
			return Value{}, err
		}
		// Short-circuit on the decided side.
		if n.Op == OpAnd && !truthy(left) {
			return BoolValue(false), nil
		}
		if n.Op == OpOr && truthy(left) {
			return BoolValue(true), nil
		}
		right, err := Evaluate(n.Right, ctx)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(truthy(right)), nil

	case *Compare:
		return evalCompare(n, ctx)

	case *Arith:
		return evalArith(n, ctx)

	case *In:
		subject, err := Evaluate(n.Subject, ctx)
		if err != nil {
			return Value{}, err
		}
		if subject.IsNull() {
			return BoolValue(false), nil
		}
		for _, elem := range n.List {
			v, err := Evaluate(elem, ctx)
			if err != nil {
				return Value{}, err
			}
			if !v.IsNull() && subject.Equal(v) {
				return BoolValue(true), nil
			}
		}
		return BoolValue(false), nil

	case *Between:
		subject, err := Evaluate(n.Subject, ctx)
		if err != nil {
			return Value{}, err
		}
		low, err := Evaluate(n.Low, ctx)
		if err != nil {
			return Value{}, err
		}
		high, err := Evaluate(n.High, ctx)
		if err != nil {
			return Value{}, err
		}
		// The subject and both bounds must share a kind; a mismatch makes
		// the predicate false, never an error.
		if subject.IsNull() || low.IsNull() || high.IsNull() {
			return BoolValue(false), nil
		}
		if subject.Kind != low.Kind || subject.Kind != high.Kind {
			return BoolValue(false), nil
		}
		ok := low.Compare(subject) <= 0 && subject.Compare(high) <= 0
		return BoolValue(ok), nil

	case *Like:
		subject, err := Evaluate(n.Subject, ctx)
		if err != nil {
			return Value{}, err
		}
		if subject.Kind != KindString {
			return BoolValue(false), nil
		}
		return BoolValue(n.compiled().MatchString(subject.Str)), nil

	case *Regex:
		subject, err := Evaluate(n.Subject, ctx)
		if err != nil {
			return Value{}, err
		}
		re, reErr := n.compiled()
		if reErr != nil {
			return Value{}, evalErrorf("invalid regex pattern %q: %v", n.Pattern, reErr)
		}
		if subject.Kind != KindString {
			return BoolValue(false), nil
		}
		return BoolValue(re.MatchString(subject.Str)), nil

	case *IsNull:
		subject, err := Evaluate(n.Subject, ctx)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(subject.IsNull()), nil

	case *Exists:
		subject, err := Evaluate(n.Subject, ctx)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(!subject.IsNull()), nil

	case *Contains:
		subject, err := Evaluate(n.Subject, ctx)
		if err != nil {
			return Value{}, err
		}
		elem, err := Evaluate(n.Elem, ctx)
		if err != nil {
			return Value{}, err
		}
		if subject.Kind != KindList || elem.IsNull() {
			return BoolValue(false), nil
		}
		return BoolValue(listHas(subject.List, elem)), nil

	case *ContainsAny:
		subject, err := Evaluate(n.Subject, ctx)
		if err != nil {
			return Value{}, err
		}
		if subject.Kind != KindList {
			return BoolValue(false), nil
		}
		for _, elem := range n.List {
			v, err := Evaluate(elem, ctx)
			if err != nil {
				return Value{}, err
			}
			if !v.IsNull() && listHas(subject.List, v) {
				return BoolValue(true), nil
			}
		}
		return BoolValue(false), nil

	case *ContainsAll:
		subject, err := Evaluate(n.Subject, ctx)
		if err != nil {
			return Value{}, err
		}
		if subject.Kind != KindList {
			return BoolValue(false), nil
		}
		for _, elem := range n.List {
			v, err := Evaluate(elem, ctx)
			if err != nil {
				return Value{}, err
			}
			if v.IsNull() || !listHas(subject.List, v) {
				return BoolValue(false), nil
			}
		}
		return BoolValue(true), nil

	case *Cast:
		v, err := Evaluate(n.Expr, ctx)
		if err != nil {
			return Value{}, err
		}
		return v.Cast(n.TypeName)

	default:
		return Value{}, evalErrorf("unsupported expression node %T", e)
	}
}

// evalCompare applies the three-valued comparison policy: Null is never
// `=`-equal to anything unless both sides are the literal null, and a kind
// mismatch is a non-match rather than an error.
func evalCompare(n *Compare, ctx *Context) (Value, error) {
	left, err := Evaluate(n.Left, ctx)
	if err != nil {
		return Value{}, err
	}
	right, err := Evaluate(n.Right, ctx)
	if err != nil {
		return Value{}, err
	}

	if left.IsNull() || right.IsNull() {
		if n.Op == OpEq && isNullLiteral(n.Left) && isNullLiteral(n.Right) {
			return BoolValue(true), nil
		}
		return BoolValue(false), nil
	}
	if left.Kind != right.Kind {
		return BoolValue(false), nil
	}

	switch n.Op {
	case OpEq:
		return BoolValue(left.Equal(right)), nil
	case OpNe:
		return BoolValue(!left.Equal(right)), nil
	}

	c := left.Compare(right)
	switch n.Op {
	case OpGt:
		return BoolValue(c > 0), nil
	case OpGte:
		return BoolValue(c >= 0), nil
	case OpLt:
		return BoolValue(c < 0), nil
	default:
		return BoolValue(c <= 0), nil
	}
}

// evalArith is defined on numbers only; any other operand kind yields
// Null. Overflow saturates to ±Inf and division by zero follows IEEE-754
// (±Inf, or NaN for 0/0).
func evalArith(n *Arith, ctx *Context) (Value, error) {
	left, err := Evaluate(n.Left, ctx)
	if err != nil {
		return Value{}, err
	}
	right, err := Evaluate(n.Right, ctx)
	if err != nil {
		return Value{}, err
	}
	if left.Kind != KindNumber || right.Kind != KindNumber {
		return NullValue(), nil
	}

	var out float64
	switch n.Op {
	case OpAdd:
		out = left.Num + right.Num
	case OpSub:
		out = left.Num - right.Num
	case OpMul:
		out = left.Num * right.Num
	case OpDiv:
		out = left.Num / right.Num
	default:
		out = math.Mod(left.Num, right.Num)
	}
	return NumberValue(out), nil
}

func isNullLiteral(e Expr) bool {
	lit, ok := e.(*Literal)
	return ok && lit.Val.IsNull()
}

func listHas(list []Value, v Value) bool {
	for _, e := range list {
		if e.Equal(v) {
			return true
		}
	}
	return false
}
