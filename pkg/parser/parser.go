// Package parser implements the binding-script parser.
package parser

import (
	"fmt"

	"github.com/thomasrohde/bindeval/pkg/ast"
	"github.com/thomasrohde/bindeval/pkg/diagnostics"
	"github.com/thomasrohde/bindeval/pkg/lexer"
)

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
	// atEOF is set when an error was raised on the EOF token, meaning more
	// input could complete the program.
	atEOF bool
}

// Parse tokenizes source and parses it into an AST.
func Parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic) {
	prog, diags, _ := parse(source, filename)
	return prog, diags
}

// ParseLine parses one chunk of interactive input. When the chunk is a
// prefix of a valid program (an open block, a dangling `=`), incomplete is
// true and the caller should read another line and retry with both.
func ParseLine(source string) (prog *ast.Program, diags []diagnostics.Diagnostic, incomplete bool) {
	return parse(source, "<repl>")
}

func parse(source, filename string) (*ast.Program, []diagnostics.Diagnostic, bool) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, []diagnostics.Diagnostic{le.Diag}, false
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}, false
	}

	p := &parser{tokens: tokens, pos: 0}
	prog := p.parseProgram()
	if len(p.diags) > 0 {
		return nil, p.diags, p.atEOF
	}
	return prog, nil, false
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) peekAt(offset int) lexer.TokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.TokEOF
	}
	return p.tokens[idx].Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.addError(fmt.Sprintf("expected %s, found %s", typ, describe(tok)), &tok.Span)
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) addError(msg string, span *ast.Span) {
	if p.peek() == lexer.TokEOF {
		p.atEOF = true
	}
	p.diags = append(p.diags, diagnostics.MakeDiag(diagnostics.EParse, msg, span, ""))
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.TokEOF:
		return "end of input"
	case lexer.TokStringLit:
		return fmt.Sprintf("string %q", tok.Value)
	case lexer.TokCharLit:
		return fmt.Sprintf("character '%s'", tok.Value)
	}
	return fmt.Sprintf("`%s`", tok.Value)
}

// --- Program ---

func (p *parser) parseProgram() *ast.Program {
	startSpan := p.current().Span
	stmts := p.parseStmts(lexer.TokEOF)
	if stmts == nil && len(p.diags) > 0 {
		return nil
	}
	if p.peek() == lexer.TokRBrace {
		tok := p.current()
		p.addError("unexpected closing delimiter `}`", &tok.Span)
		return nil
	}
	return &ast.Program{
		Span:       p.spanFromTo(startSpan, p.current().Span),
		Statements: stmts,
	}
}

// parseStmts reads statements until end, a stray `}` or EOF. It returns
// nil after recording a diagnostic.
func (p *parser) parseStmts(end lexer.TokenType) []ast.Stmt {
	stmts := []ast.Stmt{}
	for p.peek() != end && p.peek() != lexer.TokEOF && p.peek() != lexer.TokRBrace {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
		for p.peek() == lexer.TokSemicolon {
			p.advance()
		}
	}
	return stmts
}

// --- Statements ---

func (p *parser) parseStmt() ast.Stmt {
	switch p.peek() {
	case lexer.TokLet:
		if s := p.parseLetStmt(); s != nil {
			return s
		}
	case lexer.TokSeq:
		if s := p.parseSeqStmt(); s != nil {
			return s
		}
	case lexer.TokPrint:
		if s := p.parsePrintStmt(); s != nil {
			return s
		}
	case lexer.TokLBrace:
		if s := p.parseBlockStmt(); s != nil {
			return s
		}
	case lexer.TokIdent:
		if p.peekAt(1) == lexer.TokEquals {
			if s := p.parseAssignStmt(); s != nil {
				return s
			}
			return nil
		}
		fallthrough
	default:
		if s := p.parseExprStmt(); s != nil {
			return s
		}
	}
	return nil
}

func (p *parser) parseLetStmt() *ast.LetStmt {
	start := p.advance() // consume 'let'
	mutable := false
	if p.peek() == lexer.TokMut {
		p.advance()
		mutable = true
	}
	nameTok, ok := p.expectName()
	if !ok {
		return nil
	}
	stmt := &ast.LetStmt{Name: nameTok.Value, Mutable: mutable}
	end := nameTok.Span

	if p.peek() == lexer.TokColon {
		p.advance()
		tr := p.parseTypeRef()
		if tr == nil {
			return nil
		}
		stmt.Type = tr
		end = tr.Span
	}
	if p.peek() == lexer.TokEquals {
		p.advance()
		value := p.parseExpr()
		if value == nil {
			return nil
		}
		stmt.Value = value
		end = value.NodeSpan()
	}
	stmt.Span = p.spanFromTo(start.Span, end)
	return stmt
}

func (p *parser) parseSeqStmt() *ast.SeqStmt {
	start := p.advance() // consume 'seq'
	nameTok, ok := p.expectName()
	if !ok {
		return nil
	}
	stmt := &ast.SeqStmt{Name: nameTok.Value}
	if p.peek() == lexer.TokColon {
		p.advance()
		tr := p.parseTypeRef()
		if tr == nil {
			return nil
		}
		stmt.Type = tr
	}
	if _, ok := p.expect(lexer.TokEquals); !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokLBracket); !ok {
		return nil
	}
	stmt.Elements = []ast.Expr{}
	for p.peek() != lexer.TokRBracket && p.peek() != lexer.TokEOF {
		elem := p.parseExpr()
		if elem == nil {
			return nil
		}
		stmt.Elements = append(stmt.Elements, elem)
		if p.peek() != lexer.TokComma {
			break
		}
		p.advance()
	}
	end, ok := p.expect(lexer.TokRBracket)
	if !ok {
		return nil
	}
	stmt.Span = p.spanFromTo(start.Span, end.Span)
	return stmt
}

func (p *parser) parsePrintStmt() *ast.PrintStmt {
	start := p.advance() // consume 'print'
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	return &ast.PrintStmt{
		Span:  p.spanFromTo(start.Span, value.NodeSpan()),
		Value: value,
	}
}

func (p *parser) parseBlockStmt() *ast.BlockStmt {
	start := p.advance() // consume '{'
	body := p.parseStmts(lexer.TokRBrace)
	if body == nil {
		return nil
	}
	end, ok := p.expect(lexer.TokRBrace)
	if !ok {
		return nil
	}
	return &ast.BlockStmt{
		Span: p.spanFromTo(start.Span, end.Span),
		Body: body,
	}
}

func (p *parser) parseAssignStmt() *ast.AssignStmt {
	nameTok := p.advance()
	p.advance() // consume '='
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	return &ast.AssignStmt{
		Span:  p.spanFromTo(nameTok.Span, value.NodeSpan()),
		Name:  nameTok.Value,
		Value: value,
	}
}

func (p *parser) parseExprStmt() *ast.ExprStmt {
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	return &ast.ExprStmt{Span: expr.NodeSpan(), Expr: expr}
}

func (p *parser) expectName() (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != lexer.TokIdent {
		msg := fmt.Sprintf("expected identifier, found %s", describe(tok))
		if lexer.IsKeyword(tok.Value) {
			msg = fmt.Sprintf("expected identifier, found keyword `%s`", tok.Value)
		}
		p.addError(msg, &tok.Span)
		return tok, false
	}
	return p.advance(), true
}

func (p *parser) parseTypeRef() *ast.TypeRef {
	tok, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	return &ast.TypeRef{Span: tok.Span, Name: tok.Value}
}

// --- Expressions ---

func (p *parser) parseExpr() ast.Expr {
	switch p.peek() {
	case lexer.TokParse:
		return p.parseParseExpr()

	case lexer.TokMinus:
		minus := p.advance()
		switch p.peek() {
		case lexer.TokIntLit:
			tok := p.advance()
			return &ast.IntLiteral{Span: p.spanFromTo(minus.Span, tok.Span), Raw: "-" + tok.Value}
		case lexer.TokFloatLit:
			tok := p.advance()
			return &ast.FloatLiteral{Span: p.spanFromTo(minus.Span, tok.Span), Raw: "-" + tok.Value}
		}
		tok := p.current()
		p.addError(fmt.Sprintf("expected a number after `-`, found %s", describe(tok)), &tok.Span)
		return nil

	case lexer.TokIntLit:
		tok := p.advance()
		return &ast.IntLiteral{Span: tok.Span, Raw: tok.Value}

	case lexer.TokFloatLit:
		tok := p.advance()
		return &ast.FloatLiteral{Span: tok.Span, Raw: tok.Value}

	case lexer.TokStringLit:
		tok := p.advance()
		return &ast.StrLiteral{Span: tok.Span, Value: tok.Value}

	case lexer.TokCharLit:
		tok := p.advance()
		return &ast.CharLiteral{Span: tok.Span, Value: tok.Value}

	case lexer.TokTrue:
		tok := p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: true}

	case lexer.TokFalse:
		tok := p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: false}

	case lexer.TokIdent:
		return p.parseIdentOrIndex()

	default:
		tok := p.current()
		p.addError(fmt.Sprintf("expected expression, found %s", describe(tok)), &tok.Span)
		return nil
	}
}

func (p *parser) parseParseExpr() ast.Expr {
	start := p.advance() // consume 'parse'
	src := p.parseExpr()
	if src == nil {
		return nil
	}
	expr := &ast.ParseExpr{Source: src}
	end := src.NodeSpan()
	if p.peek() == lexer.TokAs {
		p.advance()
		tr := p.parseTypeRef()
		if tr == nil {
			return nil
		}
		expr.As = tr
		end = tr.Span
	}
	expr.Span = p.spanFromTo(start.Span, end)
	return expr
}

func (p *parser) parseIdentOrIndex() ast.Expr {
	tok := p.advance()
	ident := &ast.Ident{Span: tok.Span, Name: tok.Value}
	if p.peek() != lexer.TokLBracket {
		return ident
	}
	p.advance() // consume '['
	index := p.parseExpr()
	if index == nil {
		return nil
	}
	end, ok := p.expect(lexer.TokRBracket)
	if !ok {
		return nil
	}
	return &ast.IndexExpr{
		Span:  p.spanFromTo(tok.Span, end.Span),
		Seq:   ident,
		Index: index,
	}
}
