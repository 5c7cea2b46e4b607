// Package validator implements static checks over binding scripts.
//
// Scripts have no control flow besides blocks, so every statement runs
// exactly once in order. That makes mutability and initialisation
// decidable ahead of time: the validator reports the same E_IMMUTABLE and
// E_UNINIT errors the evaluator would raise, before anything runs.
package validator

import (
	"fmt"
	"strings"

	"github.com/thomasrohde/bindeval/pkg/ast"
	"github.com/thomasrohde/bindeval/pkg/convert"
	"github.com/thomasrohde/bindeval/pkg/diagnostics"
	"github.com/thomasrohde/bindeval/pkg/store"
	"github.com/thomasrohde/bindeval/pkg/value"
)

type symbol struct {
	mutable  bool
	assigned bool
	isSeq    bool
	known    bool // kind is known statically
	kind     value.Kind
}

type scope struct {
	symbols map[string]*symbol
	parent  *scope
}

func newScope(parent *scope) *scope {
	return &scope{symbols: make(map[string]*symbol), parent: parent}
}

func (s *scope) lookup(name string) *symbol {
	if sym, ok := s.symbols[name]; ok {
		return sym
	}
	if s.parent != nil {
		return s.parent.lookup(name)
	}
	return nil
}

// clone copies s and its parents, symbols included, so checking against
// the copy never touches s.
func (s *scope) clone() *scope {
	if s == nil {
		return nil
	}
	c := newScope(s.parent.clone())
	for name, sym := range s.symbols {
		cp := *sym
		c.symbols[name] = &cp
	}
	return c
}

// declare shadows any earlier symbol of the same name in this scope.
func (s *scope) declare(name string, sym *symbol) {
	s.symbols[name] = sym
}

type validator struct {
	diags []diagnostics.Diagnostic
	scope *scope
}

// Validate performs static analysis on a program and returns diagnostics.
func Validate(program *ast.Program) []diagnostics.Diagnostic {
	v := &validator{scope: newScope(nil)}
	v.validateStatements(program.Statements)
	return v.diags
}

// Checker validates statements incrementally, keeping its scope between
// calls. Interactive hosts feed it one line at a time.
type Checker struct {
	v *validator
}

// NewChecker creates a checker with an empty root scope.
func NewChecker() *Checker {
	return &Checker{v: &validator{scope: newScope(nil)}}
}

// Check validates program against everything seen so far. The program's
// declarations and assignments are kept only when it produced no
// diagnostics; a rejected program leaves the checker unchanged.
func (c *Checker) Check(program *ast.Program) []diagnostics.Diagnostic {
	v := &validator{scope: c.v.scope.clone()}
	v.validateStatements(program.Statements)
	if len(v.diags) == 0 {
		c.v = v
	}
	return v.diags
}

// Sync replaces the checker's scope with the given bindings, in
// declaration order. Hosts call it when a program stopped partway, so the
// checker sees only what actually ran.
func (c *Checker) Sync(bindings []store.Binding) {
	root := newScope(nil)
	for _, b := range bindings {
		root.declare(b.Name, symbolOf(b))
	}
	c.v = &validator{scope: root}
}

// symbolOf recovers what the checker tracks from a live binding. Sequence
// bindings carry a type of the form "[T; n]".
func symbolOf(b store.Binding) *symbol {
	sym := &symbol{mutable: b.Mutable, assigned: b.Assigned}
	typ := b.Type
	if rest, ok := strings.CutPrefix(typ, "["); ok {
		sym.isSeq, sym.assigned = true, true
		typ, _, _ = strings.Cut(rest, ";")
	}
	if t, err := convert.ParseTarget(typ); err == nil {
		sym.known, sym.kind = true, t.Kind
	}
	return sym
}

func (v *validator) addDiag(code, msg string, span *ast.Span, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, span, hint))
}

func (v *validator) validateStatements(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		v.validateStmt(stmt)
	}
}

func (v *validator) validateStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		v.validateLet(s)
	case *ast.AssignStmt:
		v.validateAssign(s)
	case *ast.SeqStmt:
		v.validateSeq(s)
	case *ast.PrintStmt:
		v.validateDisplay(s.Value)
	case *ast.ExprStmt:
		v.validateDisplay(s.Expr)
	case *ast.BlockStmt:
		outer := v.scope
		v.scope = newScope(outer)
		v.validateStatements(s.Body)
		v.scope = outer
	}
}

func (v *validator) validateLet(s *ast.LetStmt) {
	sym := &symbol{mutable: s.Mutable}
	declared, declOK := v.resolveType(s.Type)
	if declOK && s.Type != nil {
		sym.known, sym.kind = true, declared.Kind
	}
	if s.Value != nil {
		kind, known := v.validateExpr(s.Value, sym)
		if known && sym.known && kind != sym.kind {
			span := s.Value.NodeSpan()
			v.addDiag(diagnostics.EKindMismatch,
				fmt.Sprintf("mismatched types: expected `%s`, found %s", s.Type.Name, kind), &span, "")
		}
		if !sym.known {
			sym.known, sym.kind = known, kind
		}
		sym.assigned = true
	}
	// Declared after the value so `let x = x` reads the outer x.
	v.scope.declare(s.Name, sym)
}

func (v *validator) validateAssign(s *ast.AssignStmt) {
	span := s.Span
	sym := v.scope.lookup(s.Name)

	kind, known := v.validateExpr(s.Value, sym)

	switch {
	case sym == nil:
		v.addDiag(diagnostics.EUnbound, fmt.Sprintf("cannot find value `%s` in this scope", s.Name), &span, "")
	case sym.isSeq:
		v.addDiag(diagnostics.EType, fmt.Sprintf("cannot assign to sequence `%s`", s.Name), &span,
			"sequences are immutable; declare a new one to shadow it")
	case sym.assigned && !sym.mutable:
		v.addDiag(diagnostics.EImmutable, fmt.Sprintf("cannot assign twice to immutable binding `%s`", s.Name), &span,
			fmt.Sprintf("consider making this binding mutable: `let mut %s`", s.Name))
	case known && sym.known && kind != sym.kind:
		vs := s.Value.NodeSpan()
		v.addDiag(diagnostics.EKindMismatch,
			fmt.Sprintf("mismatched types: `%s` holds %s, found %s", s.Name, sym.kind, kind), &vs,
			fmt.Sprintf("shadow it instead: `let %s = ...`", s.Name))
	default:
		if !sym.known && known {
			sym.known, sym.kind = true, kind
		}
		sym.assigned = true
	}
}

func (v *validator) validateSeq(s *ast.SeqStmt) {
	sym := &symbol{isSeq: true, assigned: true}
	declared, ok := v.resolveType(s.Type)
	if ok && s.Type != nil {
		sym.known, sym.kind = true, declared.Kind
	}
	for _, elem := range s.Elements {
		kind, known := v.validateExpr(elem, sym)
		if !known {
			continue
		}
		if !sym.known {
			sym.known, sym.kind = true, kind
			continue
		}
		if kind != sym.kind {
			span := elem.NodeSpan()
			v.addDiag(diagnostics.EKindMismatch,
				fmt.Sprintf("mismatched types: sequence `%s` holds %s, found %s", s.Name, sym.kind, kind), &span, "")
		}
	}
	v.scope.declare(s.Name, sym)
}

// validateDisplay checks an expression whose value is shown rather than
// bound; a bare sequence name is allowed there.
func (v *validator) validateDisplay(e ast.Expr) {
	if id, ok := e.(*ast.Ident); ok {
		if sym := v.scope.lookup(id.Name); sym != nil && sym.isSeq {
			return
		}
	}
	v.validateExpr(e, nil)
}

// validateExpr checks e and returns its value kind when it is known
// statically. into is the symbol receiving the value, or nil.
func (v *validator) validateExpr(e ast.Expr, into *symbol) (value.Kind, bool) {
	switch n := e.(type) {
	case *ast.IntLiteral:
		return value.KindInteger, true
	case *ast.FloatLiteral:
		return value.KindFloat, true
	case *ast.BoolLiteral:
		return value.KindBoolean, true
	case *ast.StrLiteral:
		return value.KindText, true
	case *ast.CharLiteral:
		return value.KindCharacter, true

	case *ast.Ident:
		return v.validateRead(n)

	case *ast.IndexExpr:
		if kind, known := v.validateExpr(n.Index, nil); known && kind != value.KindInteger && kind != value.KindText {
			span := n.Index.NodeSpan()
			v.addDiag(diagnostics.EType, fmt.Sprintf("cannot index `%s` with %s", n.Seq.Name, kind), &span,
				"an index is an integer or text holding one")
		}
		sym := v.scope.lookup(n.Seq.Name)
		span := n.Seq.Span
		switch {
		case sym == nil:
			v.addDiag(diagnostics.EUnbound, fmt.Sprintf("cannot find value `%s` in this scope", n.Seq.Name), &span, "")
		case !sym.isSeq:
			v.addDiag(diagnostics.EType, fmt.Sprintf("cannot index into `%s`, which is not a sequence", n.Seq.Name), &span, "")
		default:
			return sym.kind, sym.known
		}
		return 0, false

	case *ast.ParseExpr:
		v.validateExpr(n.Source, nil)
		if n.As != nil {
			if t, ok := v.resolveType(n.As); ok {
				return t.Kind, true
			}
			return 0, false
		}
		if into != nil && into.known {
			return into.kind, true
		}
		return 0, false
	}
	return 0, false
}

func (v *validator) validateRead(id *ast.Ident) (value.Kind, bool) {
	span := id.Span
	sym := v.scope.lookup(id.Name)
	switch {
	case sym == nil:
		v.addDiag(diagnostics.EUnbound, fmt.Sprintf("cannot find value `%s` in this scope", id.Name), &span, "")
	case sym.isSeq:
		v.addDiag(diagnostics.EType, fmt.Sprintf("sequence `%s` cannot be used as a value", id.Name), &span,
			fmt.Sprintf("read one element instead: `%s[0]`", id.Name))
	case !sym.assigned:
		v.addDiag(diagnostics.EUninit, fmt.Sprintf("used binding `%s` isn't initialized", id.Name), &span,
			fmt.Sprintf("assign `%s` before reading it", id.Name))
	default:
		return sym.kind, sym.known
	}
	return 0, false
}

// resolveType returns the target for tr. A nil tr resolves to the zero
// target with ok true; an unknown name is reported.
func (v *validator) resolveType(tr *ast.TypeRef) (convert.Target, bool) {
	if tr == nil {
		return convert.Target{}, true
	}
	t, err := convert.ParseTarget(tr.Name)
	if err != nil {
		span := tr.Span
		v.addDiag(diagnostics.EType, fmt.Sprintf("cannot find type `%s` in this scope", tr.Name), &span,
			"known types: i8 i16 i32 i64 i128 isize u8 u16 u32 u64 u128 usize f32 f64 bool char text")
		return convert.Target{}, false
	}
	return t, true
}
