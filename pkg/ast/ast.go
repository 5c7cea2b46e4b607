// Package ast defines the node types of binding scripts.
package ast

// Span represents a source location range.
type Span struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
	EndLine   int    `json:"endLine"`
	EndCol    int    `json:"endCol"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- Literal Expressions ---

// Numeric literals keep their source text, sign and separators included;
// the converter decides whether it fits the binding's type.

type IntLiteral struct {
	Span Span
	Raw  string
}

func (n *IntLiteral) Kind() string   { return "IntLiteral" }
func (n *IntLiteral) NodeSpan() Span { return n.Span }
func (n *IntLiteral) exprNode()      {}

type FloatLiteral struct {
	Span Span
	Raw  string
}

func (n *FloatLiteral) Kind() string   { return "FloatLiteral" }
func (n *FloatLiteral) NodeSpan() Span { return n.Span }
func (n *FloatLiteral) exprNode()      {}

type BoolLiteral struct {
	Span  Span
	Value bool
}

func (n *BoolLiteral) Kind() string   { return "BoolLiteral" }
func (n *BoolLiteral) NodeSpan() Span { return n.Span }
func (n *BoolLiteral) exprNode()      {}

type StrLiteral struct {
	Span  Span
	Value string
}

func (n *StrLiteral) Kind() string   { return "StrLiteral" }
func (n *StrLiteral) NodeSpan() Span { return n.Span }
func (n *StrLiteral) exprNode()      {}

// CharLiteral holds the decoded contents between single quotes, which may
// be any number of scalar values; only exactly one converts.
type CharLiteral struct {
	Span  Span
	Value string
}

func (n *CharLiteral) Kind() string   { return "CharLiteral" }
func (n *CharLiteral) NodeSpan() Span { return n.Span }
func (n *CharLiteral) exprNode()      {}

// --- Names and access ---

type Ident struct {
	Span Span
	Name string
}

func (n *Ident) Kind() string   { return "Ident" }
func (n *Ident) NodeSpan() Span { return n.Span }
func (n *Ident) exprNode()      {}

// IndexExpr reads one element of a sequence. The index is rendered to text
// and goes through checked text access, so any expression is accepted.
type IndexExpr struct {
	Span  Span
	Seq   *Ident
	Index Expr
}

func (n *IndexExpr) Kind() string   { return "IndexExpr" }
func (n *IndexExpr) NodeSpan() Span { return n.Span }
func (n *IndexExpr) exprNode()      {}

// ParseExpr converts the text of Source. Without As, the target comes from
// the enclosing declaration, or is inferred from the text.
type ParseExpr struct {
	Span   Span
	Source Expr
	As     *TypeRef
}

func (n *ParseExpr) Kind() string   { return "ParseExpr" }
func (n *ParseExpr) NodeSpan() Span { return n.Span }
func (n *ParseExpr) exprNode()      {}

// TypeRef names a value type such as i32, f64, bool, char or text.
type TypeRef struct {
	Span Span
	Name string
}

func (n *TypeRef) Kind() string   { return "TypeRef" }
func (n *TypeRef) NodeSpan() Span { return n.Span }

// --- Statements ---

// LetStmt declares a binding. A nil Value reserves it for a later first
// assignment.
type LetStmt struct {
	Span    Span
	Name    string
	Mutable bool
	Type    *TypeRef
	Value   Expr
}

func (n *LetStmt) Kind() string   { return "LetStmt" }
func (n *LetStmt) NodeSpan() Span { return n.Span }
func (n *LetStmt) stmtNode()      {}

type AssignStmt struct {
	Span  Span
	Name  string
	Value Expr
}

func (n *AssignStmt) Kind() string   { return "AssignStmt" }
func (n *AssignStmt) NodeSpan() Span { return n.Span }
func (n *AssignStmt) stmtNode()      {}

// SeqStmt declares an immutable fixed-length sequence.
type SeqStmt struct {
	Span     Span
	Name     string
	Type     *TypeRef
	Elements []Expr
}

func (n *SeqStmt) Kind() string   { return "SeqStmt" }
func (n *SeqStmt) NodeSpan() Span { return n.Span }
func (n *SeqStmt) stmtNode()      {}

type PrintStmt struct {
	Span  Span
	Value Expr
}

func (n *PrintStmt) Kind() string   { return "PrintStmt" }
func (n *PrintStmt) NodeSpan() Span { return n.Span }
func (n *PrintStmt) stmtNode()      {}

// ExprStmt is a bare expression; interactive hosts echo its value.
type ExprStmt struct {
	Span Span
	Expr Expr
}

func (n *ExprStmt) Kind() string   { return "ExprStmt" }
func (n *ExprStmt) NodeSpan() Span { return n.Span }
func (n *ExprStmt) stmtNode()      {}

// BlockStmt opens a scope for its body.
type BlockStmt struct {
	Span Span
	Body []Stmt
}

func (n *BlockStmt) Kind() string   { return "BlockStmt" }
func (n *BlockStmt) NodeSpan() Span { return n.Span }
func (n *BlockStmt) stmtNode()      {}

// --- Program ---

type Program struct {
	Span       Span
	Statements []Stmt
}

func (n *Program) Kind() string   { return "Program" }
func (n *Program) NodeSpan() Span { return n.Span }
