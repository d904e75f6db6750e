package zql

import (
	"errors"
	"testing"
)

func evalMatch(t *testing.T, filter string, doc map[string]any) bool {
	t.Helper()
	return evalMatchCtx(t, filter, &Context{Doc: doc})
}

func evalMatchCtx(t *testing.T, filter string, ctx *Context) bool {
	t.Helper()
	q := MustParse("where " + filter)
	ok, err := Matches(q.Filter, ctx)
	if err != nil {
		t.Fatalf("Matches(%q): %v", filter, err)
	}
	return ok
}

func TestMatchesNilFilter(t *testing.T) {
	ok, err := Matches(nil, &Context{})
	if err != nil || !ok {
		t.Errorf("nil filter: got (%v, %v), want (true, nil)", ok, err)
	}
}

func TestEvalComparisons(t *testing.T) {
	doc := map[string]any{"age": float64(30), "name": "alice", "active": true}
	tests := []struct {
		filter string
		want   bool
	}{
		{`age = 30`, true},
		{`age != 30`, false},
		{`age > 29`, true},
		{`age >= 30`, true},
		{`age < 30`, false},
		{`age <= 30`, true},
		{`name = "alice"`, true},
		{`name < "bob"`, true},
		{`active = true`, true},
		{`age = "30"`, false},
		{`age + 5 = 35`, true},
		{`age * 2 > 59`, true},
		{`age % 7 = 2`, true},
		{`age - 1 = 29`, true},
	}
	for _, tt := range tests {
		if got := evalMatch(t, tt.filter, doc); got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.filter, got, tt.want)
		}
	}
}

func TestEvalGluedMinusIsLiteral(t *testing.T) {
	// `age -1` lexes as the field followed by the literal -1, so the
	// whole thing is two adjacent expressions and fails to parse. Spacing
	// the minus on both sides subtracts normally.
	_, err := Parse(`where age -1 = 29`)
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("glued minus: got %v, want *ParseError", err)
	}
	if !evalMatch(t, `age - 1 = 29`, map[string]any{"age": float64(30)}) {
		t.Error("spaced minus should subtract")
	}
}

func TestEvalAbsentFieldIsNull(t *testing.T) {
	doc := map[string]any{"present": float64(1)}
	tests := []struct {
		filter string
		want   bool
	}{
		{`missing = 1`, false},
		{`missing != 1`, false},
		{`missing > 0`, false},
		{`missing is null`, true},
		{`missing exists`, false},
		{`present exists`, true},
		{`not missing = 1`, true},
		{`missing in [1, 2]`, false},
		{`missing between 1 and 2`, false},
		{`missing like "%"`, false},
		{`nested.deep.path is null`, true},
	}
	for _, tt := range tests {
		if got := evalMatch(t, tt.filter, doc); got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.filter, got, tt.want)
		}
	}
}

func TestEvalNullLiteralEquality(t *testing.T) {
	doc := map[string]any{"field": nil}
	// Only two literal nulls compare equal under `=`.
	if !evalMatch(t, `null = null`, doc) {
		t.Error("null = null should hold for literal nulls")
	}
	if evalMatch(t, `field = null`, doc) {
		t.Error("a null field must not `=`-equal the null literal")
	}
	if !evalMatch(t, `field is null`, doc) {
		t.Error("is null is the way to test for null")
	}
}

func TestEvalDottedPaths(t *testing.T) {
	doc := map[string]any{
		"address": map[string]any{
			"city": "berlin",
			"geo":  map[string]any{"lat": float64(52.5)},
		},
		"scalar": "x",
	}
	if !evalMatch(t, `address.city = "berlin"`, doc) {
		t.Error("two-segment path failed")
	}
	if !evalMatch(t, `address.geo.lat > 50`, doc) {
		t.Error("three-segment path failed")
	}
	// Descending through a non-object dead-ends in Null.
	if !evalMatch(t, `scalar.sub is null`, doc) {
		t.Error("path through scalar should be Null")
	}
}

func TestEvalBetweenKindMismatch(t *testing.T) {
	doc := map[string]any{"n": float64(5), "s": "m"}
	tests := []struct {
		filter string
		want   bool
	}{
		{`n between 1 and 10`, true},
		{`n between 6 and 10`, false},
		{`n between 5 and 5`, true},
		{`s between "a" and "z"`, true},
		{`n between "a" and "z"`, false},
		{`s between 1 and 10`, false},
		{`n between 1 and "z"`, false},
	}
	for _, tt := range tests {
		if got := evalMatch(t, tt.filter, doc); got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.filter, got, tt.want)
		}
	}
}

func TestEvalListPredicates(t *testing.T) {
	doc := map[string]any{
		"tags": []any{"go", "db", "query"},
		"nums": []any{float64(1), float64(2)},
	}
	tests := []struct {
		filter string
		want   bool
	}{
		{`tags contains "go"`, true},
		{`tags contains "rust"`, false},
		{`tags containsAny ["rust", "db"]`, true},
		{`tags containsAny ["rust", "zig"]`, false},
		{`tags containsAll ["go", "db"]`, true},
		{`tags containsAll ["go", "rust"]`, false},
		{`tags containsAll []`, true},
		{`nums contains 2`, true},
		{`nums contains "2"`, false},
		{`missing contains "go"`, false},
	}
	for _, tt := range tests {
		if got := evalMatch(t, tt.filter, doc); got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.filter, got, tt.want)
		}
	}
}

func TestEvalLike(t *testing.T) {
	doc := map[string]any{"name": "alice", "multi": "a\nb"}
	tests := []struct {
		filter string
		want   bool
	}{
		{`name like "al%"`, true},
		{`name like "%ice"`, true},
		{`name like "a_ice"`, true},
		{`name like "bob%"`, false},
		{`name like "alice"`, true},
		{`name like "%"`, true},
		{`multi like "a%b"`, true},
	}
	for _, tt := range tests {
		if got := evalMatch(t, tt.filter, doc); got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.filter, got, tt.want)
		}
	}
}

func TestEvalRegex(t *testing.T) {
	doc := map[string]any{"name": "alice42"}
	if !evalMatch(t, `name regex "^[a-z]+[0-9]+$"`, doc) {
		t.Error("regex should match")
	}
	if evalMatch(t, `name regex "^[0-9]+$"`, doc) {
		t.Error("regex should not match")
	}
}

func TestEvalBadRegexIsEvalError(t *testing.T) {
	// The pattern parses fine; the defect surfaces at evaluation.
	q := MustParse(`where name regex "["`)
	_, err := Matches(q.Filter, &Context{Doc: map[string]any{"name": "x"}})
	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("got %v, want *EvalError", err)
	}
	// Repeat evaluation keeps failing.
	_, err = Matches(q.Filter, &Context{Doc: map[string]any{"name": "y"}})
	if !errors.As(err, &evalErr) {
		t.Errorf("second evaluation: got %v, want *EvalError", err)
	}
}

func TestEvalArithmeticOnNonNumbers(t *testing.T) {
	doc := map[string]any{"s": "text", "n": float64(2)}
	// Non-number arithmetic yields Null, which fails the comparison.
	if evalMatch(t, `s + 1 = 1`, doc) {
		t.Error("string arithmetic should yield Null")
	}
	if !evalMatch(t, `s + 1 is null`, doc) {
		t.Error("string arithmetic should be Null under is null")
	}
	if !evalMatch(t, `n / 0 > 100`, doc) {
		t.Error("division by zero should be +Inf")
	}
}

func TestEvalVariables(t *testing.T) {
	doc := map[string]any{"age": float64(30)}
	ctx := &Context{
		Doc:      doc,
		Bindings: map[string]Value{"min": NumberValue(21)},
	}
	if !evalMatchCtx(t, `age >= $min`, ctx) {
		t.Error("bound variable comparison failed")
	}
	// Unbound variables resolve to Null and fail predicates.
	if evalMatchCtx(t, `age >= $unbound`, ctx) {
		t.Error("unbound variable should be Null")
	}
	if !evalMatchCtx(t, `$unbound is null`, ctx) {
		t.Error("unbound variable should be Null under is null")
	}
}

func TestEvalAncestorRefs(t *testing.T) {
	ctx := &Context{
		Doc:         map[string]any{"n": float64(1)},
		Parent:      map[string]any{"owner": "alice", "org": map[string]any{"id": float64(7)}},
		Grandparent: map[string]any{"region": "eu"},
	}
	if !evalMatchCtx(t, `^owner = "alice"`, ctx) {
		t.Error("parent ref failed")
	}
	if !evalMatchCtx(t, `^org.id = 7`, ctx) {
		t.Error("dotted parent ref failed")
	}
	if !evalMatchCtx(t, `^^region = "eu"`, ctx) {
		t.Error("grandparent ref failed")
	}

	// Without ancestor documents the refs are Null.
	bare := &Context{Doc: map[string]any{"n": float64(1)}}
	if evalMatchCtx(t, `^owner = "alice"`, bare) {
		t.Error("parent ref without parent should be Null")
	}
	if !evalMatchCtx(t, `^owner is null`, bare) {
		t.Error("parent ref without parent should satisfy is null")
	}
}

func TestEvalShortCircuit(t *testing.T) {
	// The right side of a decided and/or is not evaluated, so a defect
	// there stays hidden.
	doc := map[string]any{"name": "x"}
	if evalMatch(t, `name = "y" and name regex "["`, doc) {
		t.Error("decided and should be false")
	}
	if !evalMatch(t, `name = "x" or name regex "["`, doc) {
		t.Error("decided or should be true")
	}
}

func TestEvalReferenceEquality(t *testing.T) {
	doc := map[string]any{"owner": map[string]any{"$ref": "users/1"}}
	if !evalMatch(t, `owner exists`, doc) {
		t.Error("reference field should exist")
	}
	if evalMatch(t, `owner = "users/1"`, doc) {
		t.Error("reference must not equal its string spelling")
	}
}

func TestEvalInIgnoresNullElements(t *testing.T) {
	doc := map[string]any{"v": nil}
	if evalMatch(t, `v in [null, 1]`, doc) {
		t.Error("null subject never matches in")
	}
}
