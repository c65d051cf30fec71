// Package attr defines the tagged-union attribute value carried across the
// engine boundary. The tag selects the active member; constructing a value
// through one of Bool/Uint/Double/String and reading it back through the
// matching accessor is the only supported round trip. String payloads are
// borrowed for the duration of the call that receives them.
package attr

import (
	"fmt"
	"strconv"
)

// Kind discriminates the active member of a Value.
type Kind uint8

const (
	KindBool Kind = iota
	KindUint
	KindDouble
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindUint:
		return "uint"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Value is a tagged union over {bool, uint64, float64, string}.
// The zero Value is a false bool.
type Value struct {
	s    string
	u    uint64
	d    float64
	b    bool
	kind Kind
}

// Bool constructs a boolean attribute value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Uint constructs an unsigned integer attribute value.
func Uint(v uint64) Value { return Value{kind: KindUint, u: v} }

// Double constructs a double-precision attribute value.
func Double(v float64) Value { return Value{kind: KindDouble, d: v} }

// String constructs a UTF-8 string attribute value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Kind returns the type discriminator.
func (v Value) Kind() Kind { return v.kind }

// AsBool returns the boolean member; ok is false when the tag differs.
func (v Value) AsBool() (val bool, ok bool) { return v.b, v.kind == KindBool }

// AsUint returns the unsigned integer member; ok is false when the tag differs.
func (v Value) AsUint() (val uint64, ok bool) { return v.u, v.kind == KindUint }

// AsDouble returns the double member; ok is false when the tag differs.
func (v Value) AsDouble() (val float64, ok bool) { return v.d, v.kind == KindDouble }

// AsString returns the string member; ok is false when the tag differs.
func (v Value) AsString() (val string, ok bool) { return v.s, v.kind == KindString }

// Text renders the payload of any kind as a string, for engines that take
// attribute values in textual form.
func (v Value) Text() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindUint:
		return strconv.FormatUint(v.u, 10)
	case KindDouble:
		return strconv.FormatFloat(v.d, 'g', -1, 64)
	case KindString:
		return v.s
	default:
		return ""
	}
}

// String implements fmt.Stringer for diagnostics.
func (v Value) String() string {
	return fmt.Sprintf("%s(%s)", v.kind, v.Text())
}
