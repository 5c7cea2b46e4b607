package evaluator_test

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/thomasrohde/bindeval/pkg/convert"
	"github.com/thomasrohde/bindeval/pkg/diagnostics"
	"github.com/thomasrohde/bindeval/pkg/evaluator"
	"github.com/thomasrohde/bindeval/pkg/parser"
	"github.com/thomasrohde/bindeval/pkg/sequence"
	"github.com/thomasrohde/bindeval/pkg/store"
	"github.com/thomasrohde/bindeval/pkg/value"
)

// --- helpers ---

// run parses and executes source with default options, failing the test on
// parse errors.
func run(t *testing.T, src string) (*evaluator.ExecResult, error) {
	t.Helper()
	return runWith(t, src, evaluator.ExecOptions{})
}

// runWith parses and executes source with custom ExecOptions.
func runWith(t *testing.T, src string, opts evaluator.ExecOptions) (*evaluator.ExecResult, error) {
	t.Helper()
	prog, diags := parser.Parse(src, "test.bnd")
	if len(diags) > 0 {
		t.Fatalf("parse errors: %s", diagnostics.FormatDiagnostics(diags, true))
	}
	return evaluator.Execute(context.Background(), prog, opts)
}

// mustRun is like run but also fails on runtime errors.
func mustRun(t *testing.T, src string) *evaluator.ExecResult {
	t.Helper()
	res, err := run(t, src)
	if err != nil {
		t.Fatalf("unexpected runtime error: %v", err)
	}
	return res
}

// exec feeds one chunk to a long-lived session.
func exec(t *testing.T, s *evaluator.Session, src string) (*evaluator.ExecResult, error) {
	t.Helper()
	prog, diags, _ := parser.ParseLine(src)
	if len(diags) > 0 {
		t.Fatalf("parse errors: %s", diagnostics.FormatDiagnostics(diags, true))
	}
	return s.Exec(context.Background(), prog)
}

// expectPrinted asserts the printed lines.
func expectPrinted(t *testing.T, res *evaluator.ExecResult, want ...string) {
	t.Helper()
	if !reflect.DeepEqual(res.Printed, want) {
		t.Errorf("printed %q, want %q", res.Printed, want)
	}
}

// expectRuntimeError asserts the error is a *RuntimeError with the expected code.
func expectRuntimeError(t *testing.T, err error, expectedCode string) *evaluator.RuntimeError {
	t.Helper()
	if err == nil {
		t.Fatalf("expected runtime error with code %s, got nil", expectedCode)
	}
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected *RuntimeError, got %T: %v", err, err)
	}
	if rtErr.Code != expectedCode {
		t.Errorf("error code = %q, want %q (message: %s)", rtErr.Code, expectedCode, rtErr.Message)
	}
	return rtErr
}

// --- 1. Declarations and reads ---

func TestLet_Inferred(t *testing.T) {
	res := mustRun(t, "let x = 5\nlet f = 2.5\nlet b = true\nlet c = 'z'\nlet s = \"hello\"\nprint x\nprint f\nprint b\nprint c\nprint s")
	expectPrinted(t, res, "5", "2.5", "true", "z", "hello")
}

func TestLet_ExplicitWidth(t *testing.T) {
	res := mustRun(t, "let mut y: u32 = 7\nlet t: f64 = 2.5e3\nlet n: i8 = -128\nprint y\nprint t\nprint n")
	expectPrinted(t, res, "7", "2500", "-128")
}

func TestLet_Underscores(t *testing.T) {
	res := mustRun(t, "let big: u64 = 18_446_744_073_709_551_615\nprint big")
	expectPrinted(t, res, "18446744073709551615")
}

func TestLet_Overflow(t *testing.T) {
	_, err := run(t, "let x: u8 = 300")
	rt := expectRuntimeError(t, err, diagnostics.EOverflow)
	var ce *convert.ConversionError
	if !errors.As(rt, &ce) || ce.Input != "300" {
		t.Errorf("wrapped error = %v", rt.Err)
	}
}

func TestLet_DefaultWidthOverflow(t *testing.T) {
	_, err := run(t, "let x = 9000000000")
	expectRuntimeError(t, err, diagnostics.EOverflow)

	res, err := runWith(t, "let x = 9000000000\nprint x", evaluator.ExecOptions{
		Defaults: convert.Defaults{Integer: value.I64, Float: value.F64},
	})
	if err != nil {
		t.Fatal(err)
	}
	expectPrinted(t, res, "9000000000")
}

func TestLet_DeclaredKindMismatch(t *testing.T) {
	_, err := run(t, "let x: f64 = \"a\"")
	rt := expectRuntimeError(t, err, diagnostics.EKindMismatch)
	if rt.Span == nil || rt.Span.StartCol != 14 {
		t.Errorf("Span = %+v, want the value expression", rt.Span)
	}
}

func TestLet_UnknownType(t *testing.T) {
	_, err := run(t, "let x: u33 = 1")
	rt := expectRuntimeError(t, err, diagnostics.EType)
	if rt.Message != "cannot find type `u33` in this scope" {
		t.Errorf("Message = %q", rt.Message)
	}
}

func TestChar_WrongArity(t *testing.T) {
	_, err := run(t, "let c = 'ab'")
	expectRuntimeError(t, err, diagnostics.EWrongArity)
	_, err = run(t, "let c = ''")
	expectRuntimeError(t, err, diagnostics.EEmpty)
}

func TestRead_Unbound(t *testing.T) {
	_, err := run(t, "print y")
	rt := expectRuntimeError(t, err, diagnostics.EUnbound)
	if rt.Message != "cannot find value `y` in this scope" {
		t.Errorf("Message = %q", rt.Message)
	}
}

// --- 2. Mutability ---

func TestAssign_Immutable(t *testing.T) {
	_, err := run(t, "let x = 5\nx = 6")
	rt := expectRuntimeError(t, err, diagnostics.EImmutable)
	if rt.Hint != "consider making this binding mutable: `let mut x`" {
		t.Errorf("Hint = %q", rt.Hint)
	}
	var me *store.MutabilityError
	if !errors.As(err, &me) || me.Name != "x" {
		t.Errorf("wrapped error = %v", rt.Err)
	}
}

func TestAssign_ImmutableKeepsValue(t *testing.T) {
	res, err := runWith(t, "let x = 5\nx = 6\nprint x", evaluator.ExecOptions{KeepGoing: true})
	if err != nil {
		t.Fatal(err)
	}
	expectPrinted(t, res, "5")
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != diagnostics.EImmutable {
		t.Errorf("Diagnostics = %+v", res.Diagnostics)
	}
}

func TestAssign_Mutable(t *testing.T) {
	res := mustRun(t, "let mut x = 5\nprint x\nx = 6\nprint x")
	expectPrinted(t, res, "5", "6")
}

func TestAssign_KindMismatch(t *testing.T) {
	_, err := run(t, "let mut x = 5\nx = true")
	expectRuntimeError(t, err, diagnostics.EKindMismatch)
}

func TestAssign_UsesBindingWidth(t *testing.T) {
	res := mustRun(t, "let mut z: i64 = 1\nz = 9000000000\nprint z")
	expectPrinted(t, res, "9000000000")

	_, err := run(t, "let mut y: u8 = 1\ny = 300")
	expectRuntimeError(t, err, diagnostics.EOverflow)
}

func TestAssign_Sequence(t *testing.T) {
	_, err := run(t, "seq a = [1]\na = 2")
	expectRuntimeError(t, err, diagnostics.EType)
}

func TestDeferred_FirstAssignInitialises(t *testing.T) {
	res := mustRun(t, "let later: i64\nlater = 10\nprint later")
	expectPrinted(t, res, "10")

	_, err := run(t, "let later: i64\nlater = 10\nlater = 11")
	expectRuntimeError(t, err, diagnostics.EImmutable)
}

func TestDeferred_UntypedTakesFirstType(t *testing.T) {
	res := mustRun(t, "let mut v\nv = 'a'\nv = 'b'\nprint v")
	expectPrinted(t, res, "b")

	_, err := run(t, "let mut v\nv = 'a'\nv = 1")
	expectRuntimeError(t, err, diagnostics.EKindMismatch)
}

func TestDeferred_ReadBeforeInit(t *testing.T) {
	_, err := run(t, "let later: i64\nprint later")
	rt := expectRuntimeError(t, err, diagnostics.EUninit)
	if rt.Message != "used binding `later` isn't initialized" {
		t.Errorf("Message = %q", rt.Message)
	}
}

// --- 3. Shadowing and scopes ---

func TestShadow_NestedScopes(t *testing.T) {
	src := `let x = 5
{
  let x = 6
  {
    let x = 12
    print x
  }
  print x
}
print x`
	expectPrinted(t, mustRun(t, src), "12", "6", "5")
}

func TestShadow_SameScope(t *testing.T) {
	res := mustRun(t, "let x = 5\nlet x = \"five\"\nprint x")
	expectPrinted(t, res, "five")
}

func TestShadow_ChangesMutability(t *testing.T) {
	res := mustRun(t, "let x = 5\nlet mut x = x\nx = 6\nprint x")
	expectPrinted(t, res, "6")
}

func TestScope_InnerBindingsDropped(t *testing.T) {
	_, err := run(t, "{ let inner = 1 }\nprint inner")
	expectRuntimeError(t, err, diagnostics.EUnbound)
}

func TestScope_InitialiseOuterFromBlock(t *testing.T) {
	res := mustRun(t, "let x: i64\n{ x = 10 }\nprint x")
	expectPrinted(t, res, "10")
}

func TestScope_PoppedOnError(t *testing.T) {
	s := evaluator.NewSession(evaluator.ExecOptions{})
	_, err := exec(t, s, "{ let inner = 1\nprint missing }")
	expectRuntimeError(t, err, diagnostics.EUnbound)
	if s.Depth() != 0 {
		t.Errorf("Depth = %d after failed block, want 0", s.Depth())
	}
	_, err = exec(t, s, "print inner")
	expectRuntimeError(t, err, diagnostics.EUnbound)
}

// --- 4. Conversion ---

func TestParse_FromDeclaredType(t *testing.T) {
	res := mustRun(t, "let g: u32 = parse \" 42 \"\nprint g")
	expectPrinted(t, res, "42")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
	}{
		{"empty", `let e = parse "" as i32`, diagnostics.EEmpty},
		{"invalid digit", `let b = parse "12a" as i32`, diagnostics.EInvalidDigit},
		{"overflow", `let o = parse "99999999999999999999" as u32`, diagnostics.EOverflow},
		{"bad bool", `let t = parse "tru" as bool`, diagnostics.EInvalidDigit},
		{"arity", `let c: char = parse "ab"`, diagnostics.EWrongArity},
		{"negative unsigned", `let u: u8 = parse "-1"`, diagnostics.EOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.src)
			expectRuntimeError(t, err, tt.code)
		})
	}
}

func TestParse_Inferred(t *testing.T) {
	res := mustRun(t, "let a = parse \"true\"\nlet b = parse \"12\"\nlet c = parse \"1.5\"\nlet d = parse \"hi\"\nprint a\nprint b\nprint c\nprint d")
	expectPrinted(t, res, "true", "12", "1.5", "hi")
}

func TestParse_FromBinding(t *testing.T) {
	res := mustRun(t, "let raw = \"250\"\nlet n = parse raw as u8\nprint n")
	expectPrinted(t, res, "250")
}

func TestParse_IntegerBase(t *testing.T) {
	res, err := runWith(t, "let h: u8 = parse \"ff\"\nprint h", evaluator.ExecOptions{IntegerBase: 16})
	if err != nil {
		t.Fatal(err)
	}
	expectPrinted(t, res, "255")
}

// --- 5. Sequences ---

func TestSeq_Access(t *testing.T) {
	res := mustRun(t, "seq a: i32 = [1, 2, 3, 4, 5]\nprint a[2]\nprint a[\"4\"]\nprint a")
	expectPrinted(t, res, "3", "5", "[1, 2, 3, 4, 5]")
}

func TestSeq_OutOfBounds(t *testing.T) {
	_, err := run(t, "seq a: i32 = [1, 2, 3, 4, 5]\nprint a[10]")
	rt := expectRuntimeError(t, err, diagnostics.EIndex)
	var ie *sequence.IndexError
	if !errors.As(err, &ie) || ie.Attempted != 10 || ie.Length != 5 {
		t.Errorf("wrapped error = %v", rt.Err)
	}
	if rt.Hint != "valid indices are 0 through 4" {
		t.Errorf("Hint = %q", rt.Hint)
	}
}

func TestSeq_NonNumericIndex(t *testing.T) {
	_, err := run(t, "seq a = [1, 2]\nprint a[\"abc\"]")
	rt := expectRuntimeError(t, err, diagnostics.EInvalidDigit)
	var ae *sequence.AccessError
	if !errors.As(err, &ae) || ae.Kind != sequence.AccessConversion {
		t.Errorf("wrapped error = %v", rt.Err)
	}
}

func TestSeq_IndexFromBinding(t *testing.T) {
	res := mustRun(t, "seq a = ['x', 'y']\nlet i = \"1\"\nprint a[i]")
	expectPrinted(t, res, "y")
}

func TestSeq_IndexKind(t *testing.T) {
	_, err := run(t, "seq a = [10, 20, 30]\nlet f = 1.0\nprint a[f]")
	expectRuntimeError(t, err, diagnostics.EType)
	_, err = run(t, "seq a = [10, 20, 30]\nlet c = '2'\nprint a[c]")
	expectRuntimeError(t, err, diagnostics.EType)
	_, err = run(t, "seq a = [10, 20, 30]\nprint a[true]")
	expectRuntimeError(t, err, diagnostics.EType)

	res := mustRun(t, "seq a = [10, 20, 30]\nlet i: u8 = 2\nprint a[i]")
	expectPrinted(t, res, "30")
}

func TestSeq_ElementTypes(t *testing.T) {
	_, err := run(t, "seq a = [1, 'b']")
	expectRuntimeError(t, err, diagnostics.EKindMismatch)
	_, err = run(t, "seq a: u8 = [1, 256]")
	expectRuntimeError(t, err, diagnostics.EOverflow)
}

func TestSeq_Empty(t *testing.T) {
	_, err := run(t, "seq a: i32 = []\nprint a[0]")
	rt := expectRuntimeError(t, err, diagnostics.EIndex)
	if rt.Hint != "the sequence is empty" {
		t.Errorf("Hint = %q", rt.Hint)
	}
}

func TestSeq_ScopedAndShadowed(t *testing.T) {
	res := mustRun(t, "seq a = [1]\n{ let a = 2\nprint a }\nprint a[0]")
	expectPrinted(t, res, "2", "1")

	_, err := run(t, "{ seq b = [1] }\nprint b[0]")
	expectRuntimeError(t, err, diagnostics.EUnbound)
}

func TestSeq_AsValue(t *testing.T) {
	_, err := run(t, "seq a = [1]\nlet b = a")
	expectRuntimeError(t, err, diagnostics.EType)
	_, err = run(t, "let x = 1\nprint x[0]")
	expectRuntimeError(t, err, diagnostics.EType)
}

// --- 6. Sessions ---

func TestSession_PersistsBindings(t *testing.T) {
	s := evaluator.NewSession(evaluator.ExecOptions{})
	if _, err := exec(t, s, "let x = 5"); err != nil {
		t.Fatal(err)
	}
	res, err := exec(t, s, "x")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Echoed || res.Echo != "5" {
		t.Errorf("Echo = %q (echoed %v), want 5", res.Echo, res.Echoed)
	}
	_, err = exec(t, s, "x = 6")
	expectRuntimeError(t, err, diagnostics.EImmutable)
}

func TestSession_Visible(t *testing.T) {
	s := evaluator.NewSession(evaluator.ExecOptions{})
	_, err := exec(t, s, "let a = 1\nlet b: u8 = 300\nlet c = 3")
	expectRuntimeError(t, err, diagnostics.EOverflow)

	vis := s.Visible()
	if len(vis) != 1 || vis[0].Name != "a" || !vis[0].Assigned {
		t.Errorf("Visible = %+v, want only a", vis)
	}
}

func TestSession_Lines(t *testing.T) {
	s := evaluator.NewSession(evaluator.ExecOptions{})
	if _, err := exec(t, s, "let x = 5\nlet mut y: u32 = 7\nseq a = [1, 2]\nlet z: i64\nlet x = 'q'"); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"let mut y: u32 = 7",
		"seq a: [i32; 2] = [1, 2]",
		"let z: i64",
		"let x: char = q",
	}
	if got := s.Lines(); !reflect.DeepEqual(got, want) {
		t.Errorf("Lines = %q, want %q", got, want)
	}

	s.Reset()
	if got := s.Lines(); len(got) != 0 {
		t.Errorf("Lines after Reset = %q", got)
	}
}

func TestKeepGoing_NestedBlock(t *testing.T) {
	res, err := runWith(t, "{ print nope\nprint 1 }\nprint 2", evaluator.ExecOptions{KeepGoing: true})
	if err != nil {
		t.Fatal(err)
	}
	expectPrinted(t, res, "1", "2")
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Code != diagnostics.EUnbound {
		t.Errorf("Diagnostics = %+v", res.Diagnostics)
	}
}

func TestOutputWriter(t *testing.T) {
	var buf bytes.Buffer
	if _, err := runWith(t, "print 1\nprint \"two\"", evaluator.ExecOptions{Output: &buf}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "1\ntwo\n" {
		t.Errorf("output = %q", buf.String())
	}
}

func TestContextCancelled(t *testing.T) {
	prog, _ := parser.Parse("let x = 1", "test.bnd")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := evaluator.Execute(ctx, prog, evaluator.ExecOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// --- 7. Budgets ---

func TestBudget(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		budget evaluator.Budget
	}{
		{"depth", "{ { } }", evaluator.Budget{MaxDepth: 1}},
		{"statements", "let a = 1\nlet b = 2\nlet c = 3", evaluator.Budget{MaxStatements: 2}},
		{"bindings", "let a = 1\nlet a = 2", evaluator.Budget{MaxBindings: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runWith(t, tt.src, evaluator.ExecOptions{Budget: tt.budget, KeepGoing: true})
			rt := expectRuntimeError(t, err, diagnostics.EBudget)
			if !strings.Contains(rt.Message, "budget exceeded") {
				t.Errorf("Message = %q", rt.Message)
			}
		})
	}
}

func TestBudget_WithinLimits(t *testing.T) {
	opts := evaluator.ExecOptions{Budget: evaluator.Budget{MaxDepth: 2, MaxStatements: 4, MaxBindings: 2}}
	res, err := runWith(t, "let a = 1\n{ { let b = 2 } }", opts)
	if err != nil {
		t.Fatal(err)
	}
	if res.Statements != 4 {
		t.Errorf("Statements = %d, want 4", res.Statements)
	}
}

// --- 8. Trace and metrics ---

func TestTrace_Events(t *testing.T) {
	var events []evaluator.TraceEventType
	var declare evaluator.TraceEvent
	opts := evaluator.ExecOptions{
		RunID: "run-1",
		Trace: func(ev evaluator.TraceEvent) {
			if ev.RunID != "run-1" || ev.Timestamp == "" {
				t.Errorf("event %s: RunID %q, Timestamp %q", ev.Event, ev.RunID, ev.Timestamp)
			}
			if ev.Event == evaluator.TraceDeclare {
				declare = ev
			}
			events = append(events, ev.Event)
		},
	}
	if _, err := runWith(t, "let x = 5\n{ let x = 6 }", opts); err != nil {
		t.Fatal(err)
	}
	want := []evaluator.TraceEventType{
		evaluator.TraceRunStart,
		evaluator.TraceConvert, evaluator.TraceDeclare,
		evaluator.TraceScopePush,
		evaluator.TraceConvert, evaluator.TraceDeclare,
		evaluator.TraceScopePop,
		evaluator.TraceRunEnd,
	}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
	if declare.Data["name"] != "x" || declare.Data["shadows"] != true || declare.Data["depth"] != 1 {
		t.Errorf("declare data = %v", declare.Data)
	}
}

func TestTrace_Error(t *testing.T) {
	var codes []string
	opts := evaluator.ExecOptions{Trace: func(ev evaluator.TraceEvent) {
		if ev.Event == evaluator.TraceError {
			codes = append(codes, ev.Data["code"].(string))
		}
	}}
	_, _ = runWith(t, "{ { let x = 1\nx = 2 } }", opts)
	if !reflect.DeepEqual(codes, []string{diagnostics.EImmutable}) {
		t.Errorf("error events = %v", codes)
	}
}

type recorder struct {
	declares    []string
	assigns     []string
	conversions []string
	accesses    []string
	depths      []int
}

func (r *recorder) RecordDeclare(typeName string) { r.declares = append(r.declares, typeName) }
func (r *recorder) RecordAssign(result string)    { r.assigns = append(r.assigns, result) }
func (r *recorder) RecordConversion(target, result string) {
	r.conversions = append(r.conversions, target+":"+result)
}
func (r *recorder) RecordAccess(result string) { r.accesses = append(r.accesses, result) }
func (r *recorder) SetScopeDepth(depth int)    { r.depths = append(r.depths, depth) }

func TestMetrics(t *testing.T) {
	r := &recorder{}
	src := "let mut x: u8 = 1\nx = 2\nlet y = 3\ny = 4\nseq a = [7]\nprint a[0]\nprint a[1]\n{ }"
	res, err := runWith(t, src, evaluator.ExecOptions{Metrics: r, KeepGoing: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Diagnostics) != 2 {
		t.Fatalf("Diagnostics = %+v", res.Diagnostics)
	}
	check := func(name string, got, want any) {
		t.Helper()
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	check("declares", r.declares, []string{"u8", "i32", "[i32; 1]"})
	check("assigns", r.assigns, []string{"ok", "immutable"})
	check("conversions", r.conversions, []string{"u8:ok", "u8:ok", "i32:ok", "i32:ok", "i32:ok"})
	check("accesses", r.accesses, []string{"ok", "index"})
	check("depths", r.depths, []int{1, 0})
}
