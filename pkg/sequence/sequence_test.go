package sequence_test

import (
	"errors"
	"math"
	"testing"

	"github.com/thomasrohde/bindeval/pkg/convert"
	"github.com/thomasrohde/bindeval/pkg/sequence"
)

func fiveInts() *sequence.Fixed[int] {
	return sequence.New([]int{1, 2, 3, 4, 5})
}

func TestGetInBounds(t *testing.T) {
	s := fiveInts()
	for i := uint(0); i < uint(s.Len()); i++ {
		got, err := s.Get(i)
		if err != nil {
			t.Fatalf("Get(%d): %v", i, err)
		}
		if got != int(i)+1 {
			t.Errorf("Get(%d) = %d, want %d", i, got, i+1)
		}
	}
}

func TestGetOutOfBounds(t *testing.T) {
	s := fiveInts()
	tests := []uint{5, 6, 10, math.MaxUint}
	for _, idx := range tests {
		_, err := s.Get(idx)
		var ie *sequence.IndexError
		if !errors.As(err, &ie) {
			t.Fatalf("Get(%d) = %v, want *IndexError", idx, err)
		}
		if ie.Attempted != idx || ie.Length != 5 {
			t.Errorf("Get(%d) error = %+v", idx, *ie)
		}
	}
}

func TestIndexErrorMessage(t *testing.T) {
	_, err := fiveInts().Get(10)
	want := "index out of bounds: the len is 5 but the index is 10"
	if err == nil || err.Error() != want {
		t.Errorf("error = %v, want %q", err, want)
	}
}

func TestEmptySequence(t *testing.T) {
	s := sequence.New[string](nil)
	if s.Len() != 0 {
		t.Errorf("Len = %d", s.Len())
	}
	if _, err := s.Get(0); err == nil {
		t.Error("Get(0) on empty sequence succeeded")
	}
}

func TestNewCopies(t *testing.T) {
	src := []int{1, 2, 3}
	s := sequence.New(src)
	src[0] = 99
	if got, _ := s.Get(0); got != 1 {
		t.Errorf("sequence saw caller mutation: %d", got)
	}
	vals := s.Values()
	vals[1] = 99
	if got, _ := s.Get(1); got != 2 {
		t.Errorf("sequence saw Values mutation: %d", got)
	}
}

func TestAtPanicsOutOfRange(t *testing.T) {
	s := fiveInts()
	if s.At(4) != 5 {
		t.Errorf("At(4) = %d", s.At(4))
	}
	defer func() {
		if recover() == nil {
			t.Error("At(5) did not panic")
		}
	}()
	s.At(5)
}

func TestGetText(t *testing.T) {
	s := fiveInts()

	got, err := s.GetText("2")
	if err != nil || got != 3 {
		t.Errorf("GetText(2) = %d, %v", got, err)
	}
	if got, err := s.GetText(" 4 "); err != nil || got != 5 {
		t.Errorf("GetText(\" 4 \") = %d, %v", got, err)
	}
}

func TestGetTextRangeMatchesGet(t *testing.T) {
	s := fiveInts()
	_, direct := s.Get(10)
	_, err := s.GetText("10")

	var ae *sequence.AccessError
	if !errors.As(err, &ae) || ae.Kind != sequence.AccessRange {
		t.Fatalf("GetText(10) = %v, want range AccessError", err)
	}
	var ie *sequence.IndexError
	if !errors.As(err, &ie) {
		t.Fatalf("GetText(10) does not unwrap to *IndexError")
	}
	if *ie != *direct.(*sequence.IndexError) {
		t.Errorf("IndexError = %+v, want %+v", *ie, *direct.(*sequence.IndexError))
	}
}

func TestGetTextConversionFailures(t *testing.T) {
	s := fiveInts()
	tests := []struct {
		raw  string
		want error
	}{
		{"abc", convert.ErrInvalidDigit},
		{"", convert.ErrEmpty},
		{"-1", convert.ErrOverflow},
		{"99999999999999999999999", convert.ErrOverflow},
		{"1.5", convert.ErrInvalidDigit},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, err := s.GetText(tt.raw)
			var ae *sequence.AccessError
			if !errors.As(err, &ae) || ae.Kind != sequence.AccessConversion {
				t.Fatalf("GetText(%q) = %v, want conversion AccessError", tt.raw, err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("GetText(%q) = %v, want errors.Is %v", tt.raw, err, tt.want)
			}
			var ce *convert.ConversionError
			if !errors.As(err, &ce) || ce.Input != tt.raw {
				t.Errorf("wrapped ConversionError = %+v", ce)
			}
		})
	}
}

func TestAccessKindString(t *testing.T) {
	if sequence.AccessConversion.String() != "conversion" || sequence.AccessRange.String() != "range" {
		t.Error("unexpected AccessKind names")
	}
}

// FuzzGetText checks that text access never panics and that every failure
// is an *AccessError.
func FuzzGetText(f *testing.F) {
	for _, s := range []string{"0", "4", "5", "abc", "", "-1", "18446744073709551616", "1_0"} {
		f.Add(s)
	}
	s := fiveInts()
	f.Fuzz(func(t *testing.T, raw string) {
		_, err := s.GetText(raw)
		if err == nil {
			return
		}
		var ae *sequence.AccessError
		if !errors.As(err, &ae) {
			t.Fatalf("GetText(%q) = %T", raw, err)
		}
	})
}
