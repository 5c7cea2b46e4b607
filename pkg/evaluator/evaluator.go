// Package evaluator executes binding scripts against a value store.
package evaluator

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/thomasrohde/bindeval/pkg/ast"
	"github.com/thomasrohde/bindeval/pkg/convert"
	"github.com/thomasrohde/bindeval/pkg/diagnostics"
	"github.com/thomasrohde/bindeval/pkg/sequence"
	"github.com/thomasrohde/bindeval/pkg/store"
	"github.com/thomasrohde/bindeval/pkg/value"
)

// TraceEventType identifies the type of a trace event.
type TraceEventType string

const (
	TraceRunStart  TraceEventType = "run_start"
	TraceRunEnd    TraceEventType = "run_end"
	TraceDeclare   TraceEventType = "declare"
	TraceAssign    TraceEventType = "assign"
	TraceScopePush TraceEventType = "scope_push"
	TraceScopePop  TraceEventType = "scope_pop"
	TraceConvert   TraceEventType = "convert"
	TraceAccess    TraceEventType = "access"
	TraceError     TraceEventType = "error"
)

// TraceEvent represents a single trace event emitted during execution.
type TraceEvent struct {
	Timestamp string         `json:"ts"`
	RunID     string         `json:"runId"`
	Event     TraceEventType `json:"event"`
	Span      *ast.Span      `json:"span,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// Metrics receives counters for store, converter and sequence activity.
// Results are "ok" or the lower-case diagnostic code without its prefix,
// such as "immutable" or "overflow".
type Metrics interface {
	RecordDeclare(typeName string)
	RecordAssign(result string)
	RecordConversion(target, result string)
	RecordAccess(result string)
	SetScopeDepth(depth int)
}

type noopMetrics struct{}

func (noopMetrics) RecordDeclare(string)            {}
func (noopMetrics) RecordAssign(string)             {}
func (noopMetrics) RecordConversion(string, string) {}
func (noopMetrics) RecordAccess(string)             {}
func (noopMetrics) SetScopeDepth(int)               {}

// ExecOptions configures program execution.
type ExecOptions struct {
	// Defaults are the widths of unannotated numeric literals.
	Defaults convert.Defaults
	// IntegerBase is the digit base parse uses for integer targets; 0 means 10.
	IntegerBase int
	Budget      Budget
	// KeepGoing records runtime errors as diagnostics and continues with
	// the next statement. Budget errors always stop execution.
	KeepGoing bool
	Trace     func(event TraceEvent)
	RunID     string
	Logger    *zerolog.Logger
	Metrics   Metrics
	// Output receives one line per print statement.
	Output io.Writer
}

// ExecResult holds the result of a program execution.
type ExecResult struct {
	Printed     []string
	Echo        string // rendering of the last bare expression statement
	Echoed      bool
	Statements  int
	Diagnostics []diagnostics.Diagnostic
}

// RuntimeError represents a runtime error during execution. Err is the
// store, converter or sequence error behind it, if any.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
	Hint    string
	Err     error
}

func (e *RuntimeError) Error() string {
	return e.Message
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// Diagnostic renders e for display.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, e.Hint)
}

// Session owns a store and the sequences declared in it. Bindings persist
// across Exec calls, so a prompt can feed it one line at a time.
// A Session is not safe for concurrent use.
type Session struct {
	opts    ExecOptions
	store   *store.Store
	seqs    map[store.BindingID]*sequence.Fixed[value.Value]
	tracker BudgetTracker
	log     zerolog.Logger
	metrics Metrics
	ctx     context.Context
	result  *ExecResult
}

// NewSession creates a session with an empty root scope.
func NewSession(opts ExecOptions) *Session {
	if opts.Defaults.Integer == "" {
		opts.Defaults.Integer = convert.DefaultWidths.Integer
	}
	if opts.Defaults.Float == "" {
		opts.Defaults.Float = convert.DefaultWidths.Float
	}
	ev := &Session{
		opts:    opts,
		store:   store.New(),
		seqs:    make(map[store.BindingID]*sequence.Fixed[value.Value]),
		log:     zerolog.Nop(),
		metrics: noopMetrics{},
	}
	if opts.Logger != nil {
		ev.log = *opts.Logger
	}
	if opts.Metrics != nil {
		ev.metrics = opts.Metrics
	}
	return ev
}

// Execute runs a program in a fresh session.
func Execute(ctx context.Context, program *ast.Program, opts ExecOptions) (*ExecResult, error) {
	return NewSession(opts).Exec(ctx, program)
}

// Reset discards every binding and sequence.
func (ev *Session) Reset() {
	ev.store = store.New()
	ev.seqs = make(map[store.BindingID]*sequence.Fixed[value.Value])
	ev.tracker = BudgetTracker{}
	ev.metrics.SetScopeDepth(0)
}

// Exec runs program's statements in the session's current scope. On a
// runtime error it returns the partial result along with the error.
// The context is checked between statements.
func (ev *Session) Exec(ctx context.Context, program *ast.Program) (*ExecResult, error) {
	start := time.Now()
	ev.ctx = ctx
	ev.result = &ExecResult{}
	ev.tracker.Statements = 0
	ev.tracker.StartMs = start.UnixMilli()
	defer func() { ev.ctx, ev.result = nil, nil }()

	span := program.Span
	ev.emit(TraceRunStart, &span, nil)

	err := ev.executeBlock(program.Statements)

	res := ev.result
	res.Statements = ev.tracker.Statements
	ev.emit(TraceRunEnd, &span, map[string]any{
		"statements":  ev.tracker.Statements,
		"bindings":    ev.store.Len(),
		"maxDepth":    ev.tracker.MaxDepth,
		"diagnostics": len(res.Diagnostics),
		"durationMs":  time.Since(start).Milliseconds(),
	})
	return res, err
}

// Lines describes every binding a lookup can currently reach, one per line,
// in declaration order.
func (ev *Session) Lines() []string {
	vis := ev.store.Visible()
	out := make([]string, 0, len(vis))
	for _, b := range vis {
		if seq, ok := ev.seqs[b.ID]; ok {
			out = append(out, fmt.Sprintf("seq %s: %s = %s", b.Name, b.Type, renderSeq(seq)))
			continue
		}
		decl := "let "
		if b.Mutable {
			decl += "mut "
		}
		decl += b.Name
		if b.Type != "" {
			decl += ": " + b.Type
		}
		if b.Assigned {
			decl += " = " + render(b.Value)
		}
		out = append(out, decl)
	}
	return out
}

// Visible returns the bindings a lookup can currently reach, in declaration
// order.
func (ev *Session) Visible() []store.Binding {
	return ev.store.Visible()
}

// Depth returns the current scope depth above the root.
func (ev *Session) Depth() int {
	return ev.store.Depth()
}

func (ev *Session) emit(event TraceEventType, span *ast.Span, data map[string]any) {
	if ev.opts.Trace != nil {
		ev.opts.Trace(TraceEvent{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RunID:     ev.opts.RunID,
			Event:     event,
			Span:      span,
			Data:      data,
		})
	}
}

// errorf builds a host-level runtime error and reports it.
func (ev *Session) errorf(code string, span ast.Span, hint, format string, args ...any) *RuntimeError {
	return ev.report(&RuntimeError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Span:    &span,
		Hint:    hint,
	})
}

// wrap turns a store, converter or sequence error into a runtime error and
// reports it.
func (ev *Session) wrap(err error, span ast.Span) *RuntimeError {
	d := diagnostics.FromError(err, &span)
	return ev.report(&RuntimeError{Code: d.Code, Message: d.Message, Span: d.Span, Hint: d.Hint, Err: err})
}

func (ev *Session) report(rt *RuntimeError) *RuntimeError {
	ev.log.Warn().Str("code", rt.Code).Int("line", rt.Span.StartLine).Msg(rt.Message)
	ev.emit(TraceError, rt.Span, map[string]any{"code": rt.Code, "message": rt.Message})
	return rt
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	code := diagnostics.CodeFor(err)
	if code == "" {
		code = diagnostics.EType
	}
	return strings.ToLower(strings.TrimPrefix(code, "E_"))
}

func (ev *Session) executeBlock(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		if err := ev.ctx.Err(); err != nil {
			return fmt.Errorf("evaluator: %w", err)
		}
		span := stmt.NodeSpan()
		if err := ev.checkStatementBudget(span); err != nil {
			return err
		}
		ev.tracker.Statements++
		ev.log.Debug().Str("stmt", stmt.Kind()).Int("line", span.StartLine).Int("depth", ev.store.Depth()).Msg("exec")

		if err := ev.executeStmt(stmt); err != nil {
			if rt, ok := err.(*RuntimeError); ok && ev.opts.KeepGoing && rt.Code != diagnostics.EBudget {
				ev.result.Diagnostics = append(ev.result.Diagnostics, rt.Diagnostic())
				continue
			}
			return err
		}
	}
	return nil
}

func (ev *Session) executeStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		return ev.executeLet(s)
	case *ast.AssignStmt:
		return ev.executeAssign(s)
	case *ast.SeqStmt:
		return ev.executeSeq(s)
	case *ast.PrintStmt:
		out, err := ev.renderExpr(s.Value)
		if err != nil {
			return err
		}
		ev.result.Printed = append(ev.result.Printed, out)
		if ev.opts.Output != nil {
			fmt.Fprintln(ev.opts.Output, out)
		}
		return nil
	case *ast.ExprStmt:
		out, err := ev.renderExpr(s.Expr)
		if err != nil {
			return err
		}
		ev.result.Echo, ev.result.Echoed = out, true
		return nil
	case *ast.BlockStmt:
		return ev.executeScope(s)
	}
	return ev.errorf(diagnostics.EType, stmt.NodeSpan(), "", "unsupported statement: %s", stmt.Kind())
}

func (ev *Session) executeLet(s *ast.LetStmt) error {
	var declared *convert.Target
	if s.Type != nil {
		t, err := ev.typeRef(s.Type)
		if err != nil {
			return err
		}
		declared = &t
	}
	if err := ev.checkBindingBudget(s.Span); err != nil {
		return err
	}

	if s.Value == nil {
		typeName := ""
		if declared != nil {
			typeName = declared.Name()
		}
		id := ev.store.Reserve(s.Name, typeName, s.Mutable)
		ev.declared(s.Span, id)
		return nil
	}

	v, err := ev.eval(s.Value, declared)
	if err != nil {
		return err
	}
	if declared != nil && !declared.Matches(v) {
		return ev.wrap(&store.KindMismatchError{Name: s.Name, Want: declared.Name(), Got: value.TypeName(v)}, s.Value.NodeSpan())
	}
	id := ev.store.Declare(s.Name, v, s.Mutable)
	ev.declared(s.Span, id)
	return nil
}

func (ev *Session) declared(span ast.Span, id store.BindingID) {
	b := ev.store.Info(id)
	ev.metrics.RecordDeclare(b.Type)
	data := map[string]any{
		"name":     b.Name,
		"type":     b.Type,
		"mutable":  b.Mutable,
		"depth":    b.Depth,
		"shadows":  ev.store.Shadows(id),
		"assigned": b.Assigned,
	}
	if b.Assigned {
		data["value"] = value.Tag(b.Value)
	}
	ev.emit(TraceDeclare, &span, data)
}

func (ev *Session) executeAssign(s *ast.AssignStmt) error {
	id, err := ev.resolve(s.Name, s.Span)
	if err != nil {
		return err
	}
	if _, ok := ev.seqs[id]; ok {
		return ev.errorf(diagnostics.EType, s.Span, "sequences are fixed when declared", "cannot assign to sequence `%s`", s.Name)
	}

	var hint *convert.Target
	if typ := ev.store.Info(id).Type; typ != "" {
		if t, err := convert.ParseTarget(typ); err == nil {
			hint = &t
		}
	}
	v, err := ev.eval(s.Value, hint)
	if err != nil {
		return err
	}

	err = ev.store.Assign(id, v)
	ev.metrics.RecordAssign(outcome(err))
	if err != nil {
		return ev.wrap(err, s.Span)
	}
	ev.emit(TraceAssign, &s.Span, map[string]any{"name": s.Name, "value": value.Tag(v)})
	return nil
}

func (ev *Session) executeSeq(s *ast.SeqStmt) error {
	var elemType *convert.Target
	if s.Type != nil {
		t, err := ev.typeRef(s.Type)
		if err != nil {
			return err
		}
		elemType = &t
	}
	if err := ev.checkBindingBudget(s.Span); err != nil {
		return err
	}

	elems := make([]value.Value, 0, len(s.Elements))
	for _, e := range s.Elements {
		v, err := ev.eval(e, elemType)
		if err != nil {
			return err
		}
		if elemType == nil {
			t := convert.TargetOf(v)
			elemType = &t
		}
		if !elemType.Matches(v) {
			return ev.wrap(&store.KindMismatchError{Name: s.Name, Want: elemType.Name(), Got: value.TypeName(v)}, e.NodeSpan())
		}
		elems = append(elems, v)
	}

	name := "_"
	if elemType != nil {
		name = elemType.Name()
	}
	id := ev.store.Reserve(s.Name, fmt.Sprintf("[%s; %d]", name, len(elems)), false)
	ev.seqs[id] = sequence.New(elems)
	ev.declared(s.Span, id)
	return nil
}

func (ev *Session) executeScope(s *ast.BlockStmt) error {
	if err := ev.checkDepthBudget(s.Span); err != nil {
		return err
	}
	ev.store.Push()
	depth := ev.store.Depth()
	if depth > ev.tracker.MaxDepth {
		ev.tracker.MaxDepth = depth
	}
	ev.metrics.SetScopeDepth(depth)
	ev.emit(TraceScopePush, &s.Span, map[string]any{"depth": depth})

	err := ev.executeBlock(s.Body)

	dropped := ev.store.Len()
	if popErr := ev.store.Pop(); popErr != nil {
		return ev.wrap(popErr, s.Span)
	}
	dropped -= ev.store.Len()
	for id := range ev.seqs {
		if !ev.store.Live(id) {
			delete(ev.seqs, id)
		}
	}
	ev.metrics.SetScopeDepth(ev.store.Depth())
	ev.emit(TraceScopePop, &s.Span, map[string]any{"depth": ev.store.Depth(), "dropped": dropped})
	return err
}

// resolve finds the binding a read of name sees.
func (ev *Session) resolve(name string, span ast.Span) (store.BindingID, error) {
	id, ok := ev.store.Lookup(name)
	if !ok {
		return id, ev.errorf(diagnostics.EUnbound, span, "", "cannot find value `%s` in this scope", name)
	}
	return id, nil
}

func (ev *Session) typeRef(ref *ast.TypeRef) (convert.Target, error) {
	t, err := convert.ParseTarget(ref.Name)
	if err != nil {
		return t, ev.errorf(diagnostics.EType, ref.Span, "", "cannot find type `%s` in this scope", ref.Name)
	}
	return t, nil
}

// renderExpr renders e for print or echo. A bare sequence name renders as
// its elements.
func (ev *Session) renderExpr(e ast.Expr) (string, error) {
	if id, ok := e.(*ast.Ident); ok {
		if b, found := ev.store.Lookup(id.Name); found {
			if seq, isSeq := ev.seqs[b]; isSeq {
				return renderSeq(seq), nil
			}
		}
	}
	v, err := ev.eval(e, nil)
	if err != nil {
		return "", err
	}
	return render(v), nil
}

// eval evaluates e. A non-nil hint is the type of the receiving binding:
// numeric literals and parse without `as` convert to it.
func (ev *Session) eval(e ast.Expr, hint *convert.Target) (value.Value, error) {
	switch expr := e.(type) {
	case *ast.IntLiteral:
		target := convert.Integer(ev.opts.Defaults.Integer)
		if hint != nil && hint.Kind == value.KindInteger {
			target = convert.Integer(hint.Int)
		}
		return ev.convert(expr.Raw, target, expr.Span)

	case *ast.FloatLiteral:
		target := convert.Float(ev.opts.Defaults.Float)
		if hint != nil && hint.Kind == value.KindFloat {
			target = *hint
		}
		return ev.convert(expr.Raw, target, expr.Span)

	case *ast.BoolLiteral:
		return value.NewBoolean(expr.Value), nil

	case *ast.StrLiteral:
		return value.NewText(expr.Value), nil

	case *ast.CharLiteral:
		return ev.convert(expr.Value, convert.Character, expr.Span)

	case *ast.Ident:
		id, err := ev.resolve(expr.Name, expr.Span)
		if err != nil {
			return nil, err
		}
		if _, ok := ev.seqs[id]; ok {
			return nil, ev.errorf(diagnostics.EType, expr.Span, fmt.Sprintf("read one element instead: `%s[0]`", expr.Name),
				"expected a value, found sequence `%s`", expr.Name)
		}
		if !ev.store.Info(id).Assigned {
			return nil, ev.errorf(diagnostics.EUninit, expr.Span, "", "used binding `%s` isn't initialized", expr.Name)
		}
		return ev.store.Read(id), nil

	case *ast.IndexExpr:
		return ev.evalIndex(expr)

	case *ast.ParseExpr:
		return ev.evalParse(expr, hint)
	}
	return nil, ev.errorf(diagnostics.EType, e.NodeSpan(), "", "unsupported expression type: %s", e.Kind())
}

func (ev *Session) evalIndex(e *ast.IndexExpr) (value.Value, error) {
	id, err := ev.resolve(e.Seq.Name, e.Seq.Span)
	if err != nil {
		return nil, err
	}
	seq, ok := ev.seqs[id]
	if !ok {
		return nil, ev.errorf(diagnostics.EType, e.Seq.Span, "", "cannot index into a value of type `%s`", ev.store.Info(id).Type)
	}

	var raw string
	switch idx := e.Index.(type) {
	case *ast.IntLiteral:
		raw = idx.Raw
	case *ast.StrLiteral:
		raw = idx.Value
	default:
		v, err := ev.eval(idx, nil)
		if err != nil {
			return nil, err
		}
		if k := v.Kind(); k != value.KindInteger && k != value.KindText {
			return nil, ev.errorf(diagnostics.EType, idx.NodeSpan(), "an index is an integer or text holding one",
				"cannot index `%s` with %s", e.Seq.Name, k)
		}
		raw = v.String()
	}

	v, err := seq.GetText(raw)
	ev.metrics.RecordAccess(outcome(err))
	data := map[string]any{"name": e.Seq.Name, "index": raw, "len": seq.Len(), "ok": err == nil}
	ev.emit(TraceAccess, &e.Span, data)
	if err != nil {
		return nil, ev.wrap(err, e.Span)
	}
	return v, nil
}

func (ev *Session) evalParse(e *ast.ParseExpr, hint *convert.Target) (value.Value, error) {
	src, err := ev.eval(e.Source, nil)
	if err != nil {
		return nil, err
	}
	raw := src.String()

	var target convert.Target
	switch {
	case e.As != nil:
		if target, err = ev.typeRef(e.As); err != nil {
			return nil, err
		}
	case hint != nil:
		target = *hint
	default:
		target = ev.opts.Defaults.Infer(raw)
	}
	if target.Kind == value.KindInteger && ev.opts.IntegerBase != 0 {
		target = target.WithBase(ev.opts.IntegerBase)
	}
	return ev.convert(raw, target, e.Span)
}

func (ev *Session) convert(raw string, target convert.Target, span ast.Span) (value.Value, error) {
	res, err := convert.Convert(raw, target)
	ev.metrics.RecordConversion(target.Name(), outcome(err))
	data := map[string]any{"input": raw, "target": target.String(), "ok": err == nil}
	if err == nil {
		data["value"] = value.Tag(res.Value)
	}
	ev.emit(TraceConvert, &span, data)
	if err != nil {
		return nil, ev.wrap(err, span)
	}
	return res.Value, nil
}

func render(v value.Value) string {
	if v == nil {
		return "<uninitialized>"
	}
	return v.String()
}

func renderSeq(seq *sequence.Fixed[value.Value]) string {
	parts := make([]string, seq.Len())
	for i := range parts {
		parts[i] = render(seq.At(i))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
