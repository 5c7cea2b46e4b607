// Package value defines the primitive values a binding can hold.
package value

import (
	"math"
	"math/big"
	"strconv"
	"unicode/utf8"
)

// Kind identifies which member of the value union a Value is.
type Kind int

const (
	KindInteger Kind = iota
	KindFloat
	KindText
	KindBoolean
	KindCharacter
)

var kindNames = [...]string{
	KindInteger:   "integer",
	KindFloat:     "float",
	KindText:      "text",
	KindBoolean:   "boolean",
	KindCharacter: "character",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

// Value is the interface for all binding values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	Kind() Kind
	// String renders the value the way a print statement shows it.
	String() string
	value() // sealed marker
}

// Integer is a fixed-width integer. Val is never mutated after construction.
type Integer struct {
	Val  *big.Int
	Type IntType
}

func (Integer) value()     {}
func (Integer) Kind() Kind { return KindInteger }
func (v Integer) String() string {
	if v.Val == nil {
		return "0"
	}
	return v.Val.String()
}

// Int64 returns the value as an int64 when it fits.
func (v Integer) Int64() (int64, bool) {
	if v.Val == nil {
		return 0, true
	}
	if !v.Val.IsInt64() {
		return 0, false
	}
	return v.Val.Int64(), true
}

// Uint64 returns the value as a uint64 when it fits.
func (v Integer) Uint64() (uint64, bool) {
	if v.Val == nil {
		return 0, true
	}
	if !v.Val.IsUint64() {
		return 0, false
	}
	return v.Val.Uint64(), true
}

// Float is an IEEE-754 value of width f32 or f64.
type Float struct {
	Val  float64
	Type FloatType
}

func (Float) value()     {}
func (Float) Kind() Kind { return KindFloat }
func (v Float) String() string {
	switch {
	case math.IsNaN(v.Val):
		return "NaN"
	case math.IsInf(v.Val, 1):
		return "inf"
	case math.IsInf(v.Val, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v.Val, 'f', -1, v.Type.Bits())
}

// Text is a UTF-8 string.
type Text struct {
	Val string
}

func (Text) value()           {}
func (Text) Kind() Kind       { return KindText }
func (v Text) String() string { return v.Val }

// Boolean is true or false.
type Boolean struct {
	Val bool
}

func (Boolean) value()           {}
func (Boolean) Kind() Kind       { return KindBoolean }
func (v Boolean) String() string { return strconv.FormatBool(v.Val) }

// Character is a single Unicode scalar value.
type Character struct {
	Val rune
}

func (Character) value()     {}
func (Character) Kind() Kind { return KindCharacter }
func (v Character) String() string {
	if !utf8.ValidRune(v.Val) {
		return string(utf8.RuneError)
	}
	return string(v.Val)
}

// NewInteger creates an integer of the given width. The caller is
// responsible for v being in range; see IntType.Contains.
func NewInteger(v int64, t IntType) Value {
	return Integer{Val: big.NewInt(v), Type: t}
}

// NewUnsigned creates an integer from a uint64.
func NewUnsigned(v uint64, t IntType) Value {
	return Integer{Val: new(big.Int).SetUint64(v), Type: t}
}

// NewBigInteger creates an integer from a copy of v.
func NewBigInteger(v *big.Int, t IntType) Value {
	return Integer{Val: new(big.Int).Set(v), Type: t}
}

// NewFloat creates a float value, rounding to float32 precision for f32.
func NewFloat(v float64, t FloatType) Value {
	if t == F32 {
		v = float64(float32(v))
	}
	return Float{Val: v, Type: t}
}

// NewText creates a text value.
func NewText(s string) Value {
	return Text{Val: s}
}

// NewBoolean creates a boolean value.
func NewBoolean(b bool) Value {
	return Boolean{Val: b}
}

// NewCharacter creates a character value.
func NewCharacter(r rune) Value {
	return Character{Val: r}
}

// TypeName returns the host-visible type name of v: an integer or float
// width, or one of "text", "bool", "char".
func TypeName(v Value) string {
	switch val := v.(type) {
	case Integer:
		return string(val.Type)
	case Float:
		return string(val.Type)
	case Text:
		return "text"
	case Boolean:
		return "bool"
	case Character:
		return "char"
	}
	return "<nil>"
}

// SameType reports whether a and b have the same kind and width.
func SameType(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return TypeName(a) == TypeName(b)
}

// Equal reports whether a and b have the same type and the same contents.
// NaN floats are never equal, matching IEEE semantics.
func Equal(a, b Value) bool {
	if !SameType(a, b) {
		return false
	}
	switch av := a.(type) {
	case Integer:
		bv := b.(Integer)
		return bigOrZero(av.Val).Cmp(bigOrZero(bv.Val)) == 0
	case Float:
		return av.Val == b.(Float).Val
	case Text:
		return av.Val == b.(Text).Val
	case Boolean:
		return av.Val == b.(Boolean).Val
	case Character:
		return av.Val == b.(Character).Val
	}
	return false
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
