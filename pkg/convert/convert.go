// Package convert turns raw text into typed values.
//
// Conversion is pure: the same input and target always produce the same
// result, and failures are returned as *ConversionError values carrying a
// Reason rather than raised as panics. Whether to retry, substitute a
// default, or abort is left to the caller.
package convert

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/thomasrohde/bindeval/pkg/value"
)

// Result is a successful conversion: the value and the kind it was coerced to.
type Result struct {
	Value value.Value
	Kind  value.Kind
}

func ok(v value.Value) (Result, error) {
	return Result{Value: v, Kind: v.Kind()}, nil
}

// Convert parses raw as target.
//
// Integer, float and boolean input is trimmed of surrounding whitespace
// first, so a line read from a prompt converts without the caller trimming
// it. Character and text input is taken verbatim.
func Convert(raw string, target Target) (Result, error) {
	if err := target.validate(); err != nil {
		return Result{}, err
	}
	switch target.Kind {
	case value.KindInteger:
		return convertInteger(raw, target)
	case value.KindFloat:
		return convertFloat(raw, target)
	case value.KindBoolean:
		return convertBoolean(raw, target)
	case value.KindCharacter:
		return convertCharacter(raw, target)
	default:
		return ok(value.NewText(raw))
	}
}

// MustConvert is like Convert but panics on failure. It is meant for
// literals known to be valid at compile time.
func MustConvert(raw string, target Target) value.Value {
	res, err := Convert(raw, target)
	if err != nil {
		panic(err)
	}
	return res.Value
}

func convertInteger(raw string, target Target) (Result, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fail(raw, target, Empty)
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if s == "" {
		return fail(raw, target, InvalidDigit)
	}
	// Separators are only permitted between digits.
	if s[0] == '_' || s[len(s)-1] == '_' {
		return fail(raw, target, InvalidDigit)
	}

	base := target.base()
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			continue
		}
		if digitValue(c) >= base {
			return fail(raw, target, InvalidDigit)
		}
		digits = append(digits, c)
	}

	n, good := new(big.Int).SetString(string(digits), base)
	if !good {
		return fail(raw, target, InvalidDigit)
	}
	if neg {
		n.Neg(n)
	}
	if !target.Int.Contains(n) {
		return fail(raw, target, Overflow)
	}
	return ok(value.Integer{Val: n, Type: target.Int})
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return math.MaxInt
}

func convertFloat(raw string, target Target) (Result, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fail(raw, target, Empty)
	}
	if f, special := floatSpecial(s); special {
		return ok(value.NewFloat(f, target.Float))
	}
	if !validDecimalFloat(s) {
		return fail(raw, target, InvalidDigit)
	}
	f, err := strconv.ParseFloat(s, target.Float.Bits())
	if err != nil {
		if errors.Is(err, strconv.ErrRange) && math.IsInf(f, 0) {
			return fail(raw, target, Overflow)
		}
		if !errors.Is(err, strconv.ErrRange) {
			return fail(raw, target, InvalidDigit)
		}
	}
	return ok(value.NewFloat(f, target.Float))
}

func floatSpecial(s string) (float64, bool) {
	sign := 1
	body := s
	switch body[0] {
	case '-':
		sign = -1
		body = body[1:]
	case '+':
		body = body[1:]
	}
	switch strings.ToLower(body) {
	case "inf", "infinity":
		return math.Inf(sign), true
	case "nan":
		return math.NaN(), true
	}
	return 0, false
}

// validDecimalFloat accepts [sign] (digits [. [digits]] | . digits) [(e|E) [sign] digits].
func validDecimalFloat(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	intDigits := 0
	for i < len(s) && isDecimal(s[i]) {
		i++
		intDigits++
	}
	fracDigits := 0
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDecimal(s[i]) {
			i++
			fracDigits++
		}
	}
	if intDigits == 0 && fracDigits == 0 {
		return false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		expDigits := 0
		for i < len(s) && isDecimal(s[i]) {
			i++
			expDigits++
		}
		if expDigits == 0 {
			return false
		}
	}
	return i == len(s)
}

func isDecimal(c byte) bool {
	return c >= '0' && c <= '9'
}

func convertBoolean(raw string, target Target) (Result, error) {
	switch s := strings.TrimSpace(raw); s {
	case "true":
		return ok(value.NewBoolean(true))
	case "false":
		return ok(value.NewBoolean(false))
	case "":
		return fail(raw, target, Empty)
	}
	return fail(raw, target, InvalidDigit)
}

func convertCharacter(raw string, target Target) (Result, error) {
	if raw == "" {
		return fail(raw, target, Empty)
	}
	if !utf8.ValidString(raw) {
		return fail(raw, target, InvalidDigit)
	}
	if utf8.RuneCountInString(raw) != 1 {
		return fail(raw, target, WrongArity)
	}
	r, _ := utf8.DecodeRuneInString(raw)
	return ok(value.NewCharacter(r))
}
