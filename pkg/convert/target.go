package convert

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/thomasrohde/bindeval/pkg/value"
)

// ErrUnknownType is returned by ParseTarget for names that are not types.
var ErrUnknownType = errors.New("convert: unknown type")

// Target describes what Convert should produce.
type Target struct {
	Kind  value.Kind
	Int   value.IntType   // integer width, KindInteger only
	Base  int             // digit base 2..36, KindInteger only; 0 means 10
	Float value.FloatType // float width, KindFloat only
}

// Integer returns a decimal integer target of width t.
func Integer(t value.IntType) Target {
	return Target{Kind: value.KindInteger, Int: t, Base: 10}
}

// IntegerBase returns an integer target of width t whose digits are in base.
func IntegerBase(t value.IntType, base int) Target {
	return Target{Kind: value.KindInteger, Int: t, Base: base}
}

// Float returns a float target of width t.
func Float(t value.FloatType) Target {
	return Target{Kind: value.KindFloat, Float: t}
}

// Fixed targets for the width-less kinds.
var (
	Boolean   = Target{Kind: value.KindBoolean}
	Character = Target{Kind: value.KindCharacter}
	Text      = Target{Kind: value.KindText}
)

// Index is the target used for externally supplied sequence indices.
var Index = Integer(value.Usize)

// WithBase returns a copy of an integer target using the given digit base.
func (t Target) WithBase(base int) Target {
	t.Base = base
	return t
}

func (t Target) base() int {
	if t.Base == 0 {
		return 10
	}
	return t.Base
}

// Name returns the type name without base decoration.
func (t Target) Name() string {
	switch t.Kind {
	case value.KindInteger:
		return string(t.Int)
	case value.KindFloat:
		return string(t.Float)
	case value.KindBoolean:
		return "bool"
	case value.KindCharacter:
		return "char"
	case value.KindText:
		return "text"
	}
	return t.Kind.String()
}

func (t Target) String() string {
	if t.Kind == value.KindInteger && t.base() != 10 {
		return t.Name() + " (base " + strconv.Itoa(t.base()) + ")"
	}
	return t.Name()
}

// Matches reports whether v is a value this target produces.
func (t Target) Matches(v value.Value) bool {
	return v != nil && v.Kind() == t.Kind && value.TypeName(v) == t.Name()
}

func (t Target) validate() error {
	switch t.Kind {
	case value.KindInteger:
		if !t.Int.Valid() {
			return fmt.Errorf("%w: integer width %q", ErrUnknownType, t.Int)
		}
		if b := t.base(); b < 2 || b > 36 {
			return fmt.Errorf("convert: base %d out of range [2, 36]", b)
		}
	case value.KindFloat:
		if !t.Float.Valid() {
			return fmt.Errorf("%w: float width %q", ErrUnknownType, t.Float)
		}
	case value.KindBoolean, value.KindCharacter, value.KindText:
	default:
		return fmt.Errorf("%w: kind %v", ErrUnknownType, t.Kind)
	}
	return nil
}

// ParseTarget resolves a type name such as "u32", "f64", "bool", "char" or
// "text" to a Target.
func ParseTarget(name string) (Target, error) {
	n := strings.TrimSpace(name)
	switch n {
	case "bool":
		return Boolean, nil
	case "char":
		return Character, nil
	case "text", "str", "string", "String":
		return Text, nil
	}
	if it := value.IntType(n); it.Valid() {
		return Integer(it), nil
	}
	if ft := value.FloatType(n); ft.Valid() {
		return Float(ft), nil
	}
	return Target{}, fmt.Errorf("%w %q", ErrUnknownType, name)
}

// TargetOf returns the target that produces values of v's type.
func TargetOf(v value.Value) Target {
	switch val := v.(type) {
	case value.Integer:
		return Integer(val.Type)
	case value.Float:
		return Float(val.Type)
	case value.Boolean:
		return Boolean
	case value.Character:
		return Character
	}
	return Text
}

// Defaults are the widths used when a literal carries no annotation.
type Defaults struct {
	Integer value.IntType
	Float   value.FloatType
}

// DefaultWidths matches the usual integer and float defaults: i32 and f64.
var DefaultWidths = Defaults{Integer: value.I32, Float: value.F64}

// Infer picks a target from the shape of raw: boolean literals, decimal
// integers, decimal floats, and otherwise text.
func (d Defaults) Infer(raw string) Target {
	s := strings.TrimSpace(raw)
	switch {
	case s == "true" || s == "false":
		return Boolean
	case s != "" && looksInteger(s):
		return Integer(d.Integer)
	case s != "" && validDecimalFloat(s):
		return Float(d.Float)
	}
	return Text
}

func looksInteger(s string) bool {
	if s[0] == '+' || s[0] == '-' {
		s = s[1:]
	}
	if s == "" || s[0] == '_' || s[len(s)-1] == '_' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] != '_' && (s[i] < '0' || s[i] > '9') {
			return false
		}
	}
	return true
}
