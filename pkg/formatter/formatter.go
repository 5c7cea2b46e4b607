// Package formatter implements the binding-script source formatter.
package formatter

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/thomasrohde/bindeval/pkg/ast"
)

const indent = "  "

// Format pretty-prints a program back to source code: one statement per
// line, blocks indented by two spaces, and literals in canonical quoting.
// Numeric literals keep their source text.
func Format(program *ast.Program) string {
	if len(program.Statements) == 0 {
		return ""
	}
	lines := make([]string, len(program.Statements))
	for i, s := range program.Statements {
		lines[i] = formatStmt(s, 0)
	}
	return strings.Join(lines, "\n") + "\n"
}

// HasComments checks if a source string contains comments (# prefix).
// Formatting drops comments, so callers use this to refuse or warn.
func HasComments(source string) bool {
	for _, line := range strings.Split(source, "\n") {
		var quote byte
		for i := 0; i < len(line); i++ {
			ch := line[i]
			switch {
			case quote != 0 && ch == '\\':
				i++
			case quote != 0 && ch == quote:
				quote = 0
			case quote != 0:
			case ch == '"' || ch == '\'':
				quote = ch
			case ch == '#':
				return true
			}
		}
	}
	return false
}

func formatStmt(s ast.Stmt, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch stmt := s.(type) {
	case *ast.LetStmt:
		var b strings.Builder
		b.WriteString(prefix + "let ")
		if stmt.Mutable {
			b.WriteString("mut ")
		}
		b.WriteString(stmt.Name)
		if stmt.Type != nil {
			b.WriteString(": " + stmt.Type.Name)
		}
		if stmt.Value != nil {
			b.WriteString(" = " + formatExpr(stmt.Value))
		}
		return b.String()
	case *ast.AssignStmt:
		return prefix + stmt.Name + " = " + formatExpr(stmt.Value)
	case *ast.SeqStmt:
		head := prefix + "seq " + stmt.Name
		if stmt.Type != nil {
			head += ": " + stmt.Type.Name
		}
		elems := make([]string, len(stmt.Elements))
		for i, e := range stmt.Elements {
			elems[i] = formatExpr(e)
		}
		return head + " = [" + strings.Join(elems, ", ") + "]"
	case *ast.PrintStmt:
		return prefix + "print " + formatExpr(stmt.Value)
	case *ast.ExprStmt:
		return prefix + formatExpr(stmt.Expr)
	case *ast.BlockStmt:
		if len(stmt.Body) == 0 {
			return prefix + "{}"
		}
		lines := make([]string, len(stmt.Body))
		for i, inner := range stmt.Body {
			lines[i] = formatStmt(inner, depth+1)
		}
		return prefix + "{\n" + strings.Join(lines, "\n") + "\n" + prefix + "}"
	}
	return ""
}

func formatExpr(e ast.Expr) string {
	switch expr := e.(type) {
	case *ast.IntLiteral:
		return expr.Raw
	case *ast.FloatLiteral:
		return expr.Raw
	case *ast.BoolLiteral:
		if expr.Value {
			return "true"
		}
		return "false"
	case *ast.StrLiteral:
		return quote(expr.Value, '"')
	case *ast.CharLiteral:
		return quote(expr.Value, '\'')
	case *ast.Ident:
		return expr.Name
	case *ast.IndexExpr:
		return expr.Seq.Name + "[" + formatExpr(expr.Index) + "]"
	case *ast.ParseExpr:
		out := "parse " + formatExpr(expr.Source)
		if expr.As != nil {
			out += " as " + expr.As.Name
		}
		return out
	}
	return ""
}

// quote renders s with the escapes the lexer understands.
func quote(s string, q rune) string {
	var b strings.Builder
	b.WriteRune(q)
	for _, r := range s {
		switch {
		case r == q || r == '\\':
			b.WriteRune('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r == 0:
			b.WriteString(`\0`)
		case r < 0x10000 && !unicode.IsPrint(r):
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteRune(q)
	return b.String()
}
