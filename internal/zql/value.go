package zql

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates the six value kinds of the evaluation domain.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindReference:
		return "reference"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is a tagged union over the six kinds. Numbers are IEEE-754 float64,
// the natural JSON numeric type; overflow saturates to ±Inf.
type Value struct {
	Kind Kind
	Bool bool
	Num  float64
	Str  string // payload for KindString and KindReference
	List []Value
}

func NullValue() Value            { return Value{Kind: KindNull} }
func BoolValue(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Num: n} }
func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func ListValue(vs ...Value) Value { return Value{Kind: KindList, List: vs} }

// RefValue is an opaque document path, e.g. "users/42".
func RefValue(path string) Value { return Value{Kind: KindReference, Str: path} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

// FromAny converts a JSON-decoded Go value into the ZQL domain. A JSON
// object whose only key is "$ref" with a string value becomes a Reference;
// any other object is not addressable as a scalar and converts to Null.
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return NullValue()
	case bool:
		return BoolValue(x)
	case float64:
		return NumberValue(x)
	case float32:
		return NumberValue(float64(x))
	case int:
		return NumberValue(float64(x))
	case int64:
		return NumberValue(float64(x))
	case string:
		return StringValue(x)
	case []any:
		list := make([]Value, len(x))
		for i, e := range x {
			list[i] = FromAny(e)
		}
		return Value{Kind: KindList, List: list}
	case []Value:
		return Value{Kind: KindList, List: x}
	case map[string]any:
		if len(x) == 1 {
			if ref, ok := x["$ref"].(string); ok {
				return RefValue(ref)
			}
		}
		return NullValue()
	case Value:
		return x
	default:
		return NullValue()
	}
}

// ToAny converts a value back to its JSON-shaped Go form.
func (v Value) ToAny() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num
	case KindString:
		return v.Str
	case KindList:
		out := make([]any, len(v.List))
		for i, e := range v.List {
			out[i] = e.ToAny()
		}
		return out
	case KindReference:
		return map[string]any{"$ref": v.Str}
	default:
		return nil
	}
}

// Equal is kind-sensitive equality. Null compares equal only to Null; the
// `=` operator layers its own null policy on top of this.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindNumber:
		return v.Num == other.Num
	case KindString, KindReference:
		return v.Str == other.Str
	case KindList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare is the single total order spanning all kinds, used by `order by`
// so multi-type sorts stay deterministic. Canonical rank:
// Null < Bool < Number < String < List < Reference. Same-kind values use
// their natural order; among numbers NaN sorts before everything else.
func (v Value) Compare(other Value) int {
	if v.Kind != other.Kind {
		if v.Kind < other.Kind {
			return -1
		}
		return 1
	}
	switch v.Kind {
	case KindNull:
		return 0
	case KindBool:
		return boolCompare(v.Bool, other.Bool)
	case KindNumber:
		return numberCompare(v.Num, other.Num)
	case KindString, KindReference:
		return strings.Compare(v.Str, other.Str)
	case KindList:
		for i := 0; i < len(v.List) && i < len(other.List); i++ {
			if c := v.List[i].Compare(other.List[i]); c != 0 {
				return c
			}
		}
		return intCompare(len(v.List), len(other.List))
	default:
		return 0
	}
}

// Cast converts a value to the named type. Supported targets: string,
// number, bool. Null casts to Null (absence stays absence); anything else
// incompatible is an *EvalError.
func (v Value) Cast(typeName string) (Value, error) {
	if v.Kind == KindNull {
		return NullValue(), nil
	}
	switch typeName {
	case "string":
		switch v.Kind {
		case KindString:
			return v, nil
		case KindNumber:
			return StringValue(formatNumber(v.Num)), nil
		case KindBool:
			return StringValue(strconv.FormatBool(v.Bool)), nil
		}
	case "number":
		switch v.Kind {
		case KindNumber:
			return v, nil
		case KindString:
			n, err := strconv.ParseFloat(v.Str, 64)
			if err != nil {
				return Value{}, evalErrorf("cannot cast %q to number", v.Str)
			}
			return NumberValue(n), nil
		}
	case "bool":
		switch v.Kind {
		case KindBool:
			return v, nil
		case KindString:
			switch v.Str {
			case "true":
				return BoolValue(true), nil
			case "false":
				return BoolValue(false), nil
			}
			return Value{}, evalErrorf("cannot cast %q to bool", v.Str)
		}
	default:
		return Value{}, evalErrorf("unknown cast type %q", typeName)
	}
	return Value{}, evalErrorf("cannot cast %s to %s", v.Kind, typeName)
}

func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return formatNumber(v.Num)
	case KindString:
		return strconv.Quote(v.Str)
	case KindList:
		parts := make([]string, len(v.List))
		for i, e := range v.List {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindReference:
		return "ref(" + v.Str + ")"
	default:
		return "?"
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func boolCompare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func numberCompare(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	case a == b:
		return 0
	}
	// At least one NaN. NaN sorts first; two NaNs tie.
	aNaN, bNaN := a != a, b != b
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	default:
		return 1
	}
}

func intCompare(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
