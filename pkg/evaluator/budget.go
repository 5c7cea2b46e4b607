package evaluator

import (
	"github.com/thomasrohde/bindeval/pkg/ast"
	"github.com/thomasrohde/bindeval/pkg/diagnostics"
)

// Budget holds the resource limits for a session. Zero means unlimited.
type Budget struct {
	MaxDepth      int // nested scopes above the root
	MaxBindings   int // live bindings, shadowed ones included
	MaxStatements int // statements executed per Exec call
}

// BudgetTracker tracks resource consumption during execution.
type BudgetTracker struct {
	Statements int
	MaxDepth   int
	StartMs    int64
}

func (ev *Session) checkStatementBudget(span ast.Span) error {
	if ev.opts.Budget.MaxStatements > 0 && ev.tracker.Statements >= ev.opts.Budget.MaxStatements {
		return ev.errorf(diagnostics.EBudget, span, "",
			"statement budget exceeded (max %d)", ev.opts.Budget.MaxStatements)
	}
	return nil
}

func (ev *Session) checkDepthBudget(span ast.Span) error {
	if ev.opts.Budget.MaxDepth > 0 && ev.store.Depth() >= ev.opts.Budget.MaxDepth {
		return ev.errorf(diagnostics.EBudget, span, "",
			"scope depth budget exceeded (max %d)", ev.opts.Budget.MaxDepth)
	}
	return nil
}

func (ev *Session) checkBindingBudget(span ast.Span) error {
	if ev.opts.Budget.MaxBindings > 0 && ev.store.Len() >= ev.opts.Budget.MaxBindings {
		return ev.errorf(diagnostics.EBudget, span,
			"shadowed bindings stay live until their scope ends",
			"binding budget exceeded (max %d)", ev.opts.Budget.MaxBindings)
	}
	return nil
}
