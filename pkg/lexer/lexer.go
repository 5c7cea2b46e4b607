// Package lexer implements the binding-script tokenizer.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/thomasrohde/bindeval/pkg/ast"
	"github.com/thomasrohde/bindeval/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokLet TokenType = iota
	TokMut
	TokSeq
	TokPrint
	TokParse
	TokAs
	TokTrue
	TokFalse

	// Literals
	TokIntLit
	TokFloatLit
	TokStringLit
	TokCharLit

	// Identifiers
	TokIdent

	// Punctuation
	TokLBrace    // {
	TokRBrace    // }
	TokLBracket  // [
	TokRBracket  // ]
	TokColon     // :
	TokComma     // ,
	TokEquals    // =
	TokMinus     // -
	TokSemicolon // ;

	// Special
	TokEOF
)

var tokenNames = map[TokenType]string{
	TokLet:       "`let`",
	TokMut:       "`mut`",
	TokSeq:       "`seq`",
	TokPrint:     "`print`",
	TokParse:     "`parse`",
	TokAs:        "`as`",
	TokTrue:      "`true`",
	TokFalse:     "`false`",
	TokIntLit:    "integer literal",
	TokFloatLit:  "float literal",
	TokStringLit: "string literal",
	TokCharLit:   "character literal",
	TokIdent:     "identifier",
	TokLBrace:    "`{`",
	TokRBrace:    "`}`",
	TokLBracket:  "`[`",
	TokRBracket:  "`]`",
	TokColon:     "`:`",
	TokComma:     "`,`",
	TokEquals:    "`=`",
	TokMinus:     "`-`",
	TokSemicolon: "`;`",
	TokEOF:       "end of input",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

var keywords = map[string]TokenType{
	"let":   TokLet,
	"mut":   TokMut,
	"seq":   TokSeq,
	"print": TokPrint,
	"parse": TokParse,
	"as":    TokAs,
	"true":  TokTrue,
	"false": TokFalse,
}

// IsKeyword reports whether name is reserved.
func IsKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}

// pos is a location in the source, with 1-based line and column.
type pos struct {
	off, line, col int
}

type scanner struct {
	src  string
	file string
	pos
}

func (s *scanner) eof() bool { return s.off >= len(s.src) }

// at returns the byte n positions ahead, or 0 past the end.
func (s *scanner) at(n int) byte {
	if s.off+n >= len(s.src) {
		return 0
	}
	return s.src[s.off+n]
}

func (s *scanner) next() byte {
	c := s.src[s.off]
	s.off++
	s.col++
	if c == '\n' {
		s.line, s.col = s.line+1, 1
	}
	return c
}

// skip advances n bytes.
func (s *scanner) skip(n int) {
	for ; n > 0; n-- {
		s.next()
	}
}

// take advances while ok holds for the current byte.
func (s *scanner) take(ok func(byte) bool) {
	for !s.eof() && ok(s.at(0)) {
		s.next()
	}
}

func (s *scanner) spanFrom(start pos) ast.Span {
	return ast.Span{File: s.file, StartLine: start.line, StartCol: start.col, EndLine: s.line, EndCol: s.col}
}

func (s *scanner) emit(typ TokenType, start pos, text string) Token {
	return Token{Type: typ, Value: text, Span: s.spanFrom(start)}
}

func (s *scanner) skipTrivia() {
	for !s.eof() {
		switch s.at(0) {
		case ' ', '\t', '\r', '\n':
			s.next()
		case '#':
			s.take(func(c byte) bool { return c != '\n' })
		default:
			return
		}
	}
}

func isWordStart(c byte) bool { return c == '_' || (c|0x20 >= 'a' && c|0x20 <= 'z') }

func isDigit(c byte) bool { return '0' <= c && c <= '9' }

func isWord(c byte) bool { return isWordStart(c) || isDigit(c) }

func isDigitOrSep(c byte) bool { return isDigit(c) || c == '_' }

var escapes = map[byte]byte{
	'"': '"', '\'': '\'', '\\': '\\', 'n': '\n', 'r': '\r', 't': '\t', '0': 0,
}

// scanQuoted reads a "..." or '...' literal, decoding escapes.
func (s *scanner) scanQuoted(quote byte, typ TokenType, what string) (Token, error) {
	start := s.pos
	fail := func(msg string) (Token, error) { return Token{}, s.errorAt(start, msg) }
	s.next()

	var buf strings.Builder
	for !s.eof() {
		c := s.at(0)
		switch {
		case c == quote:
			s.next()
			return s.emit(typ, start, buf.String()), nil
		case c == '\n':
			return fail("unterminated " + what + " literal")
		case c == '\\':
			s.next()
			if s.eof() {
				return fail("unterminated " + what + " escape")
			}
			esc := s.next()
			if b, ok := escapes[esc]; ok {
				buf.WriteByte(b)
				continue
			}
			if esc != 'u' {
				return fail(fmt.Sprintf("invalid escape character: \\%c", esc))
			}
			if s.off+4 > len(s.src) {
				return fail("incomplete unicode escape")
			}
			hex := s.src[s.off : s.off+4]
			cp, err := strconv.ParseUint(hex, 16, 32)
			if err != nil || !utf8.ValidRune(rune(cp)) {
				return fail(fmt.Sprintf("invalid unicode escape: \\u%s", hex))
			}
			buf.WriteRune(rune(cp))
			s.skip(4)
		default:
			r, size := utf8.DecodeRuneInString(s.src[s.off:])
			if r == utf8.RuneError && size == 1 {
				return fail("invalid UTF-8 character in " + what)
			}
			buf.WriteRune(r)
			s.skip(size)
		}
	}
	return fail("unterminated " + what + " literal")
}

// scanNumber keeps trailing letters and separators in the token so that a
// literal such as 12a reaches the converter and fails there with a precise
// reason instead of splitting into two tokens.
func (s *scanner) scanNumber() Token {
	start := s.pos
	typ := TokIntLit

	s.take(isDigitOrSep)
	if s.at(0) == '.' && isDigit(s.at(1)) {
		typ = TokFloatLit
		s.next()
		s.take(isDigitOrSep)
	}
	if c := s.at(0); c == 'e' || c == 'E' {
		typ = TokFloatLit
		s.next()
		if c := s.at(0); c == '+' || c == '-' {
			s.next()
		}
	}
	s.take(isWord)
	return s.emit(typ, start, s.src[start.off:s.off])
}

func (s *scanner) scanWord() Token {
	start := s.pos
	s.take(isWord)
	word := s.src[start.off:s.off]
	typ, ok := keywords[word]
	if !ok {
		typ = TokIdent
	}
	return s.emit(typ, start, word)
}

// errorAt reports a one-column lex error at p.
func (s *scanner) errorAt(p pos, msg string) error {
	span := &ast.Span{File: s.file, StartLine: p.line, StartCol: p.col, EndLine: p.line, EndCol: p.col + 1}
	return &LexError{Diag: diagnostics.MakeDiag(diagnostics.ELex, msg, span, "")}
}

// LexError carries the diagnostic of a failed tokenization.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Message
}

var punctuation = map[byte]TokenType{
	'{': TokLBrace,
	'}': TokRBrace,
	'[': TokLBracket,
	']': TokRBracket,
	':': TokColon,
	',': TokComma,
	'=': TokEquals,
	'-': TokMinus,
	';': TokSemicolon,
}

func (s *scanner) scan() (Token, error) {
	s.skipTrivia()
	start := s.pos
	if s.eof() {
		return s.emit(TokEOF, start, ""), nil
	}

	c := s.at(0)
	if typ, ok := punctuation[c]; ok {
		s.next()
		return s.emit(typ, start, string(c)), nil
	}
	switch {
	case isDigit(c):
		return s.scanNumber(), nil
	case isWordStart(c):
		return s.scanWord(), nil
	case c == '"':
		return s.scanQuoted('"', TokStringLit, "string")
	case c == '\'':
		return s.scanQuoted('\'', TokCharLit, "character")
	}

	r, _ := utf8.DecodeRuneInString(s.src[s.off:])
	s.next()
	return Token{}, s.errorAt(start, fmt.Sprintf("unexpected character %q", r))
}

// Tokenize splits source into tokens ending with TokEOF. It stops at the
// first lex error.
func Tokenize(source, filename string) ([]Token, error) {
	s := &scanner{src: source, file: filename, pos: pos{line: 1, col: 1}}
	var tokens []Token
	for {
		tok, err := s.scan()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			return tokens, nil
		}
	}
}
