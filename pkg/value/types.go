package value

import (
	"math/big"
	"strconv"
)

// IntType is the declared width and signedness of an integer.
type IntType string

const (
	I8    IntType = "i8"
	I16   IntType = "i16"
	I32   IntType = "i32"
	I64   IntType = "i64"
	I128  IntType = "i128"
	Isize IntType = "isize"
	U8    IntType = "u8"
	U16   IntType = "u16"
	U32   IntType = "u32"
	U64   IntType = "u64"
	U128  IntType = "u128"
	Usize IntType = "usize"
)

// IntTypes lists every integer width in declaration order.
var IntTypes = []IntType{I8, I16, I32, I64, I128, Isize, U8, U16, U32, U64, U128, Usize}

type intBounds struct {
	min, max *big.Int
}

var bounds = func() map[IntType]intBounds {
	m := make(map[IntType]intBounds, len(IntTypes))
	for _, t := range IntTypes {
		bits := uint(t.Bits())
		one := big.NewInt(1)
		if t.Signed() {
			limit := new(big.Int).Lsh(one, bits-1)
			m[t] = intBounds{
				min: new(big.Int).Neg(limit),
				max: new(big.Int).Sub(limit, one),
			}
		} else {
			m[t] = intBounds{
				min: new(big.Int),
				max: new(big.Int).Sub(new(big.Int).Lsh(one, bits), one),
			}
		}
	}
	return m
}()

// Valid reports whether t is a known integer width.
func (t IntType) Valid() bool {
	_, ok := bounds[t]
	return ok
}

// Signed reports whether t admits negative values.
func (t IntType) Signed() bool {
	switch t {
	case I8, I16, I32, I64, I128, Isize:
		return true
	}
	return false
}

// Bits returns the width of t. isize and usize follow the platform word.
func (t IntType) Bits() int {
	switch t {
	case I8, U8:
		return 8
	case I16, U16:
		return 16
	case I32, U32:
		return 32
	case I64, U64:
		return 64
	case I128, U128:
		return 128
	case Isize, Usize:
		return strconv.IntSize
	}
	return 0
}

// Min returns a copy of the smallest value representable by t.
func (t IntType) Min() *big.Int {
	b, ok := bounds[t]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(b.min)
}

// Max returns a copy of the largest value representable by t.
func (t IntType) Max() *big.Int {
	b, ok := bounds[t]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(b.max)
}

// Contains reports whether v is representable by t.
func (t IntType) Contains(v *big.Int) bool {
	b, ok := bounds[t]
	if !ok {
		return false
	}
	return v.Cmp(b.min) >= 0 && v.Cmp(b.max) <= 0
}

// FloatType is the declared width of a float.
type FloatType string

const (
	F32 FloatType = "f32"
	F64 FloatType = "f64"
)

// Valid reports whether t is a known float width.
func (t FloatType) Valid() bool {
	return t == F32 || t == F64
}

// Bits returns 32 or 64. Unknown widths are treated as f64.
func (t FloatType) Bits() int {
	if t == F32 {
		return 32
	}
	return 64
}
