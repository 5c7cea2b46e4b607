// Package diagnostics defines diagnostic types for lex, parse, static and
// runtime errors in binding scripts.
package diagnostics

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/thomasrohde/bindeval/pkg/ast"
	"github.com/thomasrohde/bindeval/pkg/convert"
	"github.com/thomasrohde/bindeval/pkg/sequence"
	"github.com/thomasrohde/bindeval/pkg/store"
)

// Diagnostic code constants.
const (
	// Core errors.
	EImmutable    = "E_IMMUTABLE"
	EKindMismatch = "E_KIND_MISMATCH"
	EEmpty        = "E_EMPTY"
	EInvalidDigit = "E_INVALID_DIGIT"
	EOverflow     = "E_OVERFLOW"
	EWrongArity   = "E_WRONG_ARITY"
	EIndex        = "E_INDEX"

	// Host errors.
	ELex     = "E_LEX"
	EParse   = "E_PARSE"
	EUnbound = "E_UNBOUND"
	EUninit  = "E_UNINIT"
	EType    = "E_TYPE"
	EScope   = "E_SCOPE"
	EBudget  = "E_BUDGET"
	EIO      = "E_IO"
	EConfig  = "E_CONFIG"
)

// Diagnostic represents a parse, validation, or runtime diagnostic.
type Diagnostic struct {
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Span    *ast.Span `json:"span,omitempty"`
	Hint    string    `json:"hint,omitempty"`
}

// MakeDiag creates a new Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:    code,
		Message: message,
		Span:    span,
		Hint:    hint,
	}
}

// CodeFor maps an error returned by the store, the converter or a sequence
// to its diagnostic code. Unknown errors map to the empty string.
func CodeFor(err error) string {
	var (
		me *store.MutabilityError
		ke *store.KindMismatchError
		ce *convert.ConversionError
		ie *sequence.IndexError
	)
	switch {
	case errors.As(err, &me):
		return EImmutable
	case errors.As(err, &ke):
		return EKindMismatch
	case errors.As(err, &ce):
		switch ce.Reason {
		case convert.Empty:
			return EEmpty
		case convert.InvalidDigit:
			return EInvalidDigit
		case convert.Overflow:
			return EOverflow
		case convert.WrongArity:
			return EWrongArity
		}
	case errors.As(err, &ie):
		return EIndex
	case errors.Is(err, store.ErrRootScope):
		return EScope
	}
	return ""
}

// HintFor suggests a fix for common core errors.
func HintFor(err error) string {
	var (
		me *store.MutabilityError
		ke *store.KindMismatchError
		ie *sequence.IndexError
	)
	switch {
	case errors.As(err, &me):
		return fmt.Sprintf("consider making this binding mutable: `let mut %s`", me.Name)
	case errors.As(err, &ke):
		return fmt.Sprintf("shadow it instead: `let %s = ...`", ke.Name)
	case errors.As(err, &ie):
		if ie.Length == 0 {
			return "the sequence is empty"
		}
		return fmt.Sprintf("valid indices are 0 through %d", ie.Length-1)
	}
	return ""
}

// FromError builds a diagnostic for a core error at span.
func FromError(err error, span *ast.Span) Diagnostic {
	code := CodeFor(err)
	if code == "" {
		code = EType
	}
	return MakeDiag(code, err.Error(), span, HintFor(err))
}

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<unknown>"
	if d.Span != nil {
		loc = fmt.Sprintf("%s:%d:%d", d.Span.File, d.Span.StartLine, d.Span.StartCol)
	}
	out := fmt.Sprintf("error[%s]: %s\n  --> %s", d.Code, d.Message, loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  hint: %s", d.Hint)
	}
	return out
}

// FormatWithSource formats d like FormatDiagnostic and, when the span's
// line exists in source, quotes it with a caret underline.
func FormatWithSource(d Diagnostic, source string) string {
	if d.Span == nil || d.Span.StartLine < 1 {
		return FormatDiagnostic(d, true)
	}
	lines := strings.Split(source, "\n")
	if d.Span.StartLine > len(lines) {
		return FormatDiagnostic(d, true)
	}
	line := strings.TrimRight(lines[d.Span.StartLine-1], "\r")
	gutter := fmt.Sprintf("%d", d.Span.StartLine)
	pad := strings.Repeat(" ", len(gutter))

	width := 1
	if d.Span.EndLine == d.Span.StartLine && d.Span.EndCol > d.Span.StartCol {
		width = d.Span.EndCol - d.Span.StartCol
	}
	col := d.Span.StartCol - 1
	if col < 0 {
		col = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "error[%s]: %s\n", d.Code, d.Message)
	fmt.Fprintf(&b, "%s--> %s:%d:%d\n", pad, d.Span.File, d.Span.StartLine, d.Span.StartCol)
	fmt.Fprintf(&b, "%s |\n", pad)
	fmt.Fprintf(&b, "%s | %s\n", gutter, line)
	fmt.Fprintf(&b, "%s | %s%s", pad, strings.Repeat(" ", col), strings.Repeat("^", width))
	if d.Hint != "" {
		fmt.Fprintf(&b, "\n%s = hint: %s", pad, d.Hint)
	}
	return b.String()
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}
