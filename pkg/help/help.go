// Package help holds the text behind `bnd help`.
package help

import (
	"fmt"
	"strings"
)

// QUICKREF is printed by `bnd help` without a topic.
const QUICKREF = `bnd v0.1 - validated bindings and bounded access

USAGE
  bnd run <file.bnd> [--keep-going] [--no-check] [--trace <file.jsonl>] [--metrics <file.prom>] [--pretty]
  bnd check <file.bnd> [--pretty]
  bnd fmt <file.bnd> [--write]
  bnd repl
  bnd convert <type> <text> [--base <n>]
  bnd trace <file.jsonl> [--json|--text]
  bnd config [--yaml]
  bnd help [topic]

LANGUAGE
  let x = 5                 immutable binding, i32 inferred
  let mut y: u32 = 7        mutable binding with explicit width
  let later: i64            deferred initialisation
  later = 10                first assignment initialises
  seq a: i32 = [1, 2, 3]    fixed-length sequence
  print a[2]                checked access
  let g: u8 = parse "42"    text conversion
  { let x = 6 }             nested scope

TOPICS
  syntax types convert sequences scopes diagnostics config examples
`

// Topics maps each topic name to its text.
var Topics = map[string]string{
	"syntax": `SYNTAX

Statements are separated by newlines or ';'. '#' starts a comment.

  let [mut] name [: type] [= expr]
  name = expr
  seq name [: type] = [expr, ...]
  print expr
  expr
  { statements }

Expressions:
  123  -4  1_000            integer literals (decimal)
  2.5  1e3  -0.5            float literals
  true  false               booleans
  'c'  '\n'  'é'       characters
  "text"                    text; escapes \" \' \\ \n \r \t \0 \uXXXX
  name                      binding read
  name[expr]                sequence element
  parse expr [as type]      convert text
`,

	"types": `TYPES

  i8 i16 i32 i64 i128 isize     signed integers
  u8 u16 u32 u64 u128 usize     unsigned integers
  f32 f64                       floats
  bool  char  text

Unannotated integer literals are i32 and float literals f64; both defaults
can be changed with default_integer and default_float in the config file.
A binding keeps its type for life. Assigning a value of another type is
E_KIND_MISMATCH; declare a new binding with the same name to change it.
`,

	"convert": `CONVERT

parse turns text into a typed value. The target is the 'as' type, else the
type of the receiving binding, else inferred from the text.

  Empty          nothing but whitespace              E_EMPTY
  InvalidDigit   a character the target rejects      E_INVALID_DIGIT
  Overflow       outside the target's range          E_OVERFLOW
  WrongArity     char target, not exactly one char   E_WRONG_ARITY

Integer, float and boolean input is trimmed first. Underscores are allowed
between digits. A leading '-' on an unsigned target is an overflow.
integer_base in the config file changes the digit base for integer targets.

  bnd convert u8 300        → E_OVERFLOW
  bnd convert u8 ff --base 16
`,

	"sequences": `SEQUENCES

  seq a: i32 = [1, 2, 3, 4, 5]

A sequence has a fixed length and its elements share one type. It cannot be
assigned to. a[i] renders i as text and converts it to usize before the
bounds check, so a["abc"] is E_INVALID_DIGIT and a[10] is E_INDEX:

  index out of bounds: the len is 5 but the index is 10
`,

	"scopes": `SCOPES

'{' opens a scope and '}' closes it; every binding declared inside is
dropped. Declaring an existing name shadows it. The old binding becomes
visible again when the scope that shadowed it closes:

  let x = 5
  {
    let x = 6
    { let x = 12  print x }   # 12
    print x                   # 6
  }
  print x                     # 5
`,

	"diagnostics": `DIAGNOSTICS

  E_IMMUTABLE       second assignment to an immutable binding
  E_KIND_MISMATCH   value of another type than the binding
  E_EMPTY           conversion of empty text
  E_INVALID_DIGIT   conversion of malformed text
  E_OVERFLOW        conversion outside the target's range
  E_WRONG_ARITY     character conversion of zero or several chars
  E_INDEX           sequence index past the end
  E_LEX  E_PARSE    malformed source
  E_UNBOUND         name not declared in any enclosing scope
  E_UNINIT          read of a deferred binding before its first assignment
  E_TYPE            unknown type, assignment to a sequence, bad indexing
  E_BUDGET          depth, binding or statement budget exceeded
  E_IO  E_CONFIG    file and configuration errors

Exit codes: 0 ok, 1 usage or IO, 2 parse or static diagnostics, 4 runtime.
`,

	"config": `CONFIG

Settings come from the first file found: ./.bnd.toml, then
~/.bnd/config.toml, then built-in defaults. 'bnd config' prints them.

  default_integer = "i32"     default_float  = "f64"
  integer_base    = 10        keep_going     = false
  static_check    = true
  max_depth       = 0         max_bindings   = 0      (0 = unlimited)
  max_statements  = 0
  prompt          = "bnd> "   history_file   = ".bnd_history"
  log_level       = "warn"

BND_LOG_LEVEL, BND_LOG_TIMESTAMP and BND_LOG_NOCOLOR override logging.
`,

	"examples": `EXAMPLES

  let x = 5
  x = 6                       # E_IMMUTABLE: consider 'let mut x'

  let mut count: u8 = 250
  count = 300                 # E_OVERFLOW

  let input = " 42 "
  let n: u32 = parse input    # 42

  seq days = ["mon", "tue", "wed"]
  let pick = "1"
  print days[pick]            # tue
  print days["7"]             # E_INDEX
`,
}

// TopicList is the display order of Topics.
var TopicList = []string{"syntax", "types", "convert", "sequences", "scopes", "diagnostics", "config", "examples"}

// MatchTopic resolves an exact topic name or a unique prefix of one.
func MatchTopic(query string) (string, string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if content, ok := Topics[q]; ok {
		return q, content, nil
	}
	var matches []string
	if q != "" {
		for _, name := range TopicList {
			if strings.HasPrefix(name, q) {
				matches = append(matches, name)
			}
		}
	}
	switch len(matches) {
	case 0:
		return "", "", fmt.Errorf("unknown help topic %q", query)
	case 1:
		return matches[0], Topics[matches[0]], nil
	}
	return "", "", fmt.Errorf("help topic %q is ambiguous: %s", query, strings.Join(matches, ", "))
}
