// Package sequence provides a fixed-length sequence with checked access.
//
// Get never reads outside the sequence: an index at or past the end yields
// an *IndexError and nothing else. GetText additionally accepts the index as
// raw text, running it through the converter first, so external input can
// never crash the caller.
package sequence

import (
	"fmt"

	"github.com/thomasrohde/bindeval/pkg/convert"
	"github.com/thomasrohde/bindeval/pkg/value"
)

// Fixed is an immutable sequence whose length is set at construction.
type Fixed[T any] struct {
	elems []T
}

// New creates a sequence holding a copy of elems.
func New[T any](elems []T) *Fixed[T] {
	cp := make([]T, len(elems))
	copy(cp, elems)
	return &Fixed[T]{elems: cp}
}

// Len returns the number of elements.
func (s *Fixed[T]) Len() int {
	return len(s.elems)
}

// Values returns a copy of the elements.
func (s *Fixed[T]) Values() []T {
	cp := make([]T, len(s.elems))
	copy(cp, s.elems)
	return cp
}

// Get returns the element at i, or an *IndexError when i >= Len().
func (s *Fixed[T]) Get(i uint) (T, error) {
	if i >= uint(len(s.elems)) {
		var zero T
		return zero, &IndexError{Attempted: i, Length: uint(len(s.elems))}
	}
	return s.elems[i], nil
}

// At returns the element at i without a recoverable check. An out-of-range
// index is a bug in the caller and panics.
func (s *Fixed[T]) At(i int) T {
	return s.elems[i]
}

// GetText converts raw to an index (usize, decimal) and then reads it with
// Get. Either failure is reported as an *AccessError.
func (s *Fixed[T]) GetText(raw string) (T, error) {
	var zero T
	res, err := convert.Convert(raw, convert.Index)
	if err != nil {
		return zero, &AccessError{Kind: AccessConversion, Input: raw, Err: err}
	}
	// usize has the width of uint, so the conversion above bounds idx.
	idx, _ := res.Value.(value.Integer).Uint64()
	v, err := s.Get(uint(idx))
	if err != nil {
		return zero, &AccessError{Kind: AccessRange, Input: raw, Err: err}
	}
	return v, nil
}

// IndexError reports an index at or past the end of a sequence.
type IndexError struct {
	Attempted uint
	Length    uint
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index out of bounds: the len is %d but the index is %d", e.Length, e.Attempted)
}

// AccessKind says which step of GetText failed.
type AccessKind int

const (
	AccessConversion AccessKind = iota + 1
	AccessRange
)

func (k AccessKind) String() string {
	switch k {
	case AccessConversion:
		return "conversion"
	case AccessRange:
		return "range"
	}
	return fmt.Sprintf("access(%d)", int(k))
}

// AccessError wraps the *convert.ConversionError or *IndexError behind a
// failed GetText.
type AccessError struct {
	Kind  AccessKind
	Input string
	Err   error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("invalid access with index %q: %v", e.Input, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}
