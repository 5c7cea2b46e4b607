// Package runtime provides the top-level orchestrator for binding scripts.
package runtime

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/thomasrohde/bindeval/internal/config"
	"github.com/thomasrohde/bindeval/pkg/diagnostics"
	"github.com/thomasrohde/bindeval/pkg/evaluator"
	"github.com/thomasrohde/bindeval/pkg/formatter"
	"github.com/thomasrohde/bindeval/pkg/parser"
	"github.com/thomasrohde/bindeval/pkg/validator"
)

// Result holds the outcome of a program execution.
type Result struct {
	Printed     []string
	Statements  int
	Diagnostics []diagnostics.Diagnostic // runtime errors recorded with keep-going
}

// Runtime wires together the parser, validator and evaluator.
type Runtime struct {
	cfg         config.Config
	logger      zerolog.Logger
	metrics     evaluator.Metrics
	trace       func(event evaluator.TraceEvent)
	runID       string
	output      io.Writer
	staticCheck bool
	keepGoing   bool
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithConfig applies a loaded configuration. Options given after it override
// its keep_going and static_check settings.
func WithConfig(cfg config.Config) Option {
	return func(rt *Runtime) {
		rt.cfg = cfg
		rt.staticCheck = cfg.StaticCheck
		rt.keepGoing = cfg.KeepGoing
	}
}

// WithLogger sets the logger passed to the evaluator.
func WithLogger(l zerolog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = l
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event evaluator.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m evaluator.Metrics) Option {
	return func(rt *Runtime) {
		rt.metrics = m
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithOutput streams printed lines to w as they are produced.
func WithOutput(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.output = w
	}
}

// WithoutStaticCheck skips the validator, so every error surfaces at run time.
func WithoutStaticCheck() Option {
	return func(rt *Runtime) {
		rt.staticCheck = false
	}
}

// WithKeepGoing records runtime errors and continues with the next statement.
func WithKeepGoing() Option {
	return func(rt *Runtime) {
		rt.keepGoing = true
	}
}

// New creates a new Runtime with the given options.
// By default the built-in configuration applies and logging is disabled.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		logger: zerolog.Nop(),
		runID:  "cli",
	}
	WithConfig(config.Default())(rt)
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Run parses, validates, and executes a program. Parse and static
// diagnostics come back as *DiagnosticError before anything runs; the first
// runtime error comes back as *evaluator.RuntimeError with the partial result.
func (rt *Runtime) Run(ctx context.Context, source, filename string) (*Result, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}

	if rt.staticCheck {
		if vDiags := validator.Validate(program); len(vDiags) > 0 {
			return nil, &DiagnosticError{Diagnostics: vDiags}
		}
	}

	opts, err := rt.buildExecOptions()
	if err != nil {
		return nil, err
	}
	res, err := evaluator.Execute(ctx, program, opts)
	var out *Result
	if res != nil {
		out = &Result{Printed: res.Printed, Statements: res.Statements, Diagnostics: res.Diagnostics}
	}
	return out, err
}

// Check parses and validates a program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return diags
	}
	return validator.Validate(program)
}

// Format parses and formats a program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, diags := parser.Parse(source, filename)
	if len(diags) > 0 {
		return "", &DiagnosticError{Diagnostics: diags}
	}
	return formatter.Format(program), nil
}

// NewSession returns an interactive session using the runtime's settings.
func (rt *Runtime) NewSession() (*Session, error) {
	opts, err := rt.buildExecOptions()
	if err != nil {
		return nil, err
	}
	s := &Session{eval: evaluator.NewSession(opts)}
	if rt.staticCheck {
		s.checker = validator.NewChecker()
	}
	return s, nil
}

// buildExecOptions constructs evaluator options from the runtime's configuration.
func (rt *Runtime) buildExecOptions() (evaluator.ExecOptions, error) {
	defaults, err := rt.cfg.Defaults()
	if err != nil {
		return evaluator.ExecOptions{}, &DiagnosticError{Diagnostics: []diagnostics.Diagnostic{
			diagnostics.MakeDiag(diagnostics.EConfig, err.Error(), nil, ""),
		}}
	}
	base := rt.cfg.IntegerBase
	if base == 10 {
		base = 0
	}
	logger := rt.logger
	return evaluator.ExecOptions{
		Defaults:    defaults,
		IntegerBase: base,
		Budget: evaluator.Budget{
			MaxDepth:      rt.cfg.MaxDepth,
			MaxBindings:   rt.cfg.MaxBindings,
			MaxStatements: rt.cfg.MaxStatements,
		},
		KeepGoing: rt.keepGoing,
		Trace:     rt.trace,
		RunID:     rt.runID,
		Logger:    &logger,
		Metrics:   rt.metrics,
		Output:    rt.output,
	}, nil
}

// Session runs interactive input one chunk at a time. Static checking, when
// enabled, remembers the declarations of earlier chunks. A chunk rejected by
// the checker changes nothing; one that fails while running leaves the
// checker in step with the bindings it did create.
type Session struct {
	eval    *evaluator.Session
	checker *validator.Checker
}

// Outcome is the result of one interactive chunk.
type Outcome struct {
	Printed []string
	Echo    string
	Echoed  bool
	// Diagnostics holds runtime errors recorded with keep-going.
	Diagnostics []diagnostics.Diagnostic
	// Incomplete is set when the chunk ended inside a construct; the caller
	// should read more input and submit the concatenation.
	Incomplete bool
}

// Exec parses and runs one chunk. A chunk that fails static checks is not
// executed.
func (s *Session) Exec(ctx context.Context, source string) (*Outcome, error) {
	program, diags, incomplete := parser.ParseLine(source)
	if len(diags) > 0 {
		if incomplete {
			return &Outcome{Incomplete: true}, nil
		}
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	if s.checker != nil {
		if vDiags := s.checker.Check(program); len(vDiags) > 0 {
			return nil, &DiagnosticError{Diagnostics: vDiags}
		}
	}
	res, err := s.eval.Exec(ctx, program)
	if s.checker != nil && (err != nil || (res != nil && len(res.Diagnostics) > 0)) {
		s.checker.Sync(s.eval.Visible())
	}
	if res == nil {
		return nil, err
	}
	return &Outcome{Printed: res.Printed, Echo: res.Echo, Echoed: res.Echoed, Diagnostics: res.Diagnostics}, err
}

// Lines describes the visible bindings.
func (s *Session) Lines() []string {
	return s.eval.Lines()
}

// Reset discards every binding.
func (s *Session) Reset() {
	s.eval.Reset()
	if s.checker != nil {
		s.checker = validator.NewChecker()
	}
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}
