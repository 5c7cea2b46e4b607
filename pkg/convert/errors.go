package convert

import (
	"errors"
	"fmt"
)

// Reason classifies why a conversion failed.
type Reason int

const (
	// Empty means the input had no content after trimming.
	Empty Reason = iota + 1
	// InvalidDigit means a character is not valid for the target.
	InvalidDigit
	// Overflow means the value is outside the target's range.
	Overflow
	// WrongArity means a character target did not get exactly one scalar value.
	WrongArity
)

var reasonNames = map[Reason]string{
	Empty:        "empty",
	InvalidDigit: "invalid digit",
	Overflow:     "overflow",
	WrongArity:   "wrong arity",
}

func (r Reason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// Sentinel errors matched by errors.Is against a *ConversionError.
var (
	ErrEmpty        = errors.New("convert: empty input")
	ErrInvalidDigit = errors.New("convert: invalid digit")
	ErrOverflow     = errors.New("convert: value out of range")
	ErrWrongArity   = errors.New("convert: wrong number of characters")
)

func (r Reason) sentinel() error {
	switch r {
	case Empty:
		return ErrEmpty
	case InvalidDigit:
		return ErrInvalidDigit
	case Overflow:
		return ErrOverflow
	case WrongArity:
		return ErrWrongArity
	}
	return nil
}

// ConversionError reports a failed conversion of Input to Target.
type ConversionError struct {
	Input  string
	Target Target
	Reason Reason
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %q to %s: %s", e.Input, e.Target, e.Reason)
}

func (e *ConversionError) Unwrap() error {
	return e.Reason.sentinel()
}

func fail(raw string, target Target, reason Reason) (Result, error) {
	return Result{}, &ConversionError{Input: raw, Target: target, Reason: reason}
}
