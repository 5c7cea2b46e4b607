package lexer

import (
	"testing"
)

// FuzzTokenize feeds random inputs to the lexer to catch panics.
// The lexer should never panic; invalid input yields a *LexError.
func FuzzTokenize(f *testing.F) {
	seeds := []string{
		// Keywords
		`let mut seq print parse as true false`,
		// Literals
		`42 3.14 -1 0 1_000 12a 2.5e3`,
		`"hello" "with\nescape" "quote\""`,
		`'z' '' 'ab' '\''`,
		// Punctuation
		`{ } [ ] : , = - ;`,
		// Comments
		`# this is a comment`,
		// Statements
		`let x = 42`,
		`let mut y: u32 = parse " 7 " as u32`,
		`seq a: i32 = [1, 2, 3]`,
		`print a["abc"]`,
		// Edge cases
		``,
		`   `,
		"\t\n\r",
		`"unterminated`,
		`'unterminated`,
		`"""`,
		`@#$^&`,
		`\x00`,
		`1.`,
		`1e`,
		"\"\xff\"",
		`"unicode: A"`,
		`"\uD800"`,
	}

	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Tokenize panicked on input %q: %v", input, r)
				}
			}()
			Tokenize(input, "fuzz.bnd")
		}()
	})
}
