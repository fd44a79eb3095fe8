// Package parser is a recursive-descent parser: it turns a token.Token
// stream into an ast.Node tree using the New* constructors, with a flat
// token buffer, current/previous, match/check/expect helpers, and a
// precedence-climbing expression grammar for this language's
// class/interface declaration grammar.
package parser

import (
	"strconv"

	"github.com/decafc/decafc/pkg/ast"
	"github.com/decafc/decafc/pkg/diag"
	"github.com/decafc/decafc/pkg/lexer"
	"github.com/decafc/decafc/pkg/token"
	"github.com/decafc/decafc/pkg/types"
)

// Parser holds the state for the parsing process.
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	reporter diag.Reporter
}

// New drains lex to EOF and initializes a Parser over the resulting
// token buffer, so the whole grammar operates on a random-access array
// rather than driving the lexer one token ahead.
func New(lex *lexer.Lexer, reporter diag.Reporter) *Parser {
	var toks []token.Token
	for {
		t := lex.Next()
		toks = append(toks, t)
		if t.Type == token.EOF {
			break
		}
	}
	p := &Parser{tokens: toks, reporter: reporter}
	p.current = p.tokens[0]
	return p
}

func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	} else {
		p.previous = p.current
	}
}

func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) check(t token.Type) bool { return p.current.Type == t }

func (p *Parser) match(t token.Type) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(t token.Type) token.Token {
	if p.check(t) {
		tok := p.current
		p.advance()
		return tok
	}
	p.reporter.Report(diag.SyntaxError, p.current.Pos, "Expected %s but found %s", t, p.current.Type)
	return p.current
}

// parseType parses a type: a base primitive or
// class name followed by any number of "[]" suffixes.
func (p *Parser) parseType() *types.Type {
	var t *types.Type
	switch {
	case p.match(token.KwInt):
		t = types.Int
	case p.match(token.KwDouble):
		t = types.Double
	case p.match(token.KwBool):
		t = types.Bool
	case p.match(token.KwString):
		t = types.String
	case p.match(token.KwVoid):
		t = types.Void
	case p.check(token.Ident):
		name := p.current.Value
		p.advance()
		t = types.NewNamed(name)
	default:
		p.reporter.Report(diag.SyntaxError, p.current.Pos, "Expected a type but found %s", p.current.Type)
		t = types.Error
	}
	for p.match(token.LBracket) {
		p.expect(token.RBracket)
		t = types.NewArray(t)
	}
	return t
}

// Parse implements the Program production: a sequence of class,
// interface, function, and global variable declarations.
func (p *Parser) Parse() *ast.Node {
	var decls []*ast.Node
	for !p.check(token.EOF) {
		decls = append(decls, p.parseTopLevelDecl())
	}
	program := ast.NewProgram(decls)
	ast.Link(program)
	return program
}

func (p *Parser) parseTopLevelDecl() *ast.Node {
	switch {
	case p.check(token.KwClass):
		return p.parseClassDecl()
	case p.check(token.KwInterface):
		return p.parseInterfaceDecl()
	default:
		return p.parseVarOrFuncDecl(ast.StorageGlobal)
	}
}

// parseVarOrFuncDecl parses "Type ident ;" or "Type ident ( Formals ) Block",
// disambiguated by a single token of lookahead after the name.
func (p *Parser) parseVarOrFuncDecl(storage ast.StorageClass) *ast.Node {
	pos := p.current.Pos
	typ := p.parseType()
	name := p.expect(token.Ident).Value
	if p.check(token.LParen) {
		p.advance()
		formals := p.parseFormals()
		p.expect(token.RParen)
		body := p.parseBlock()
		return ast.NewFnDecl(pos, name, typ, formals, body)
	}
	p.expect(token.Semi)
	return ast.NewVarDecl(pos, name, typ, storage)
}

func (p *Parser) parseClassDecl() *ast.Node {
	pos := p.current.Pos
	p.expect(token.KwClass)
	name := p.expect(token.Ident).Value

	var base string
	if p.match(token.KwExtends) {
		base = p.expect(token.Ident).Value
	}

	var implements []string
	if p.match(token.KwImplements) {
		implements = append(implements, p.expect(token.Ident).Value)
		for p.match(token.Comma) {
			implements = append(implements, p.expect(token.Ident).Value)
		}
	}

	p.expect(token.LBrace)
	var members []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		members = append(members, p.parseVarOrFuncDecl(ast.StorageField))
	}
	p.expect(token.RBrace)

	return ast.NewClassDecl(pos, name, base, implements, members)
}

func (p *Parser) parseInterfaceDecl() *ast.Node {
	pos := p.current.Pos
	p.expect(token.KwInterface)
	name := p.expect(token.Ident).Value
	p.expect(token.LBrace)

	var members []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		mpos := p.current.Pos
		typ := p.parseType()
		mname := p.expect(token.Ident).Value
		p.expect(token.LParen)
		formals := p.parseFormals()
		p.expect(token.RParen)
		p.expect(token.Semi)
		members = append(members, ast.NewFnDecl(mpos, mname, typ, formals, nil))
	}
	p.expect(token.RBrace)

	return ast.NewInterfaceDecl(pos, name, members)
}

func (p *Parser) parseFormals() []*ast.Node {
	var formals []*ast.Node
	if p.check(token.RParen) {
		return formals
	}
	for {
		fpos := p.current.Pos
		typ := p.parseType()
		name := p.expect(token.Ident).Value
		formals = append(formals, ast.NewVarDecl(fpos, name, typ, ast.StorageParam))
		if !p.match(token.Comma) {
			break
		}
	}
	return formals
}

// parseBlock parses a brace-delimited block: local variable declarations and
// statements interleaved, both living inside Block.Stmts.
func (p *Parser) parseBlock() *ast.Node {
	pos := p.current.Pos
	p.expect(token.LBrace)
	var stmts []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		if p.isLocalVarDeclStart() {
			stmts = append(stmts, p.parseVarOrFuncDecl(ast.StorageLocal))
		} else {
			stmts = append(stmts, p.parseStmt())
		}
	}
	p.expect(token.RBrace)
	return ast.NewBlock(pos, stmts)
}

// isLocalVarDeclStart disambiguates "Type ident ;" from an expression
// statement that happens to start with an identifier (a bare call or an
// assignment): a primitive keyword always starts a declaration, and an
// identifier only does when followed by another identifier -- possibly
// after a run of "[]" suffixes -- which can only be the declared
// variable's own name.
func (p *Parser) isLocalVarDeclStart() bool {
	switch p.current.Type {
	case token.KwInt, token.KwDouble, token.KwBool, token.KwString:
		return true
	case token.Ident:
		if p.peek().Type == token.Ident {
			return true
		}
		return p.peek().Type == token.LBracket && p.bracketsThenIdent()
	}
	return false
}

func (p *Parser) bracketsThenIdent() bool {
	i := p.pos + 1
	for i+1 < len(p.tokens) && p.tokens[i].Type == token.LBracket && p.tokens[i+1].Type == token.RBracket {
		i += 2
	}
	return i < len(p.tokens) && p.tokens[i].Type == token.Ident
}

func (p *Parser) parseStmt() *ast.Node {
	switch {
	case p.check(token.LBrace):
		return p.parseBlock()
	case p.check(token.KwIf):
		return p.parseIf()
	case p.check(token.KwWhile):
		return p.parseWhile()
	case p.check(token.KwFor):
		return p.parseFor()
	case p.check(token.KwReturn):
		return p.parseReturn()
	case p.check(token.KwBreak):
		return p.parseBreak()
	case p.check(token.KwPrint):
		return p.parsePrint()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseIf() *ast.Node {
	pos := p.current.Pos
	p.expect(token.KwIf)
	p.expect(token.LParen)
	cond := p.parseExpr()
	p.expect(token.RParen)
	then := p.parseStmt()
	var els *ast.Node
	if p.match(token.KwElse) {
		els = p.parseStmt()
	}
	return ast.NewIf(pos, cond, then, els)
}

func (p *Parser) parseWhile() *ast.Node {
	pos := p.current.Pos
	p.expect(token.KwWhile)
	p.expect(token.LParen)
	cond := p.parseExpr()
	p.expect(token.RParen)
	body := p.parseStmt()
	return ast.NewWhile(pos, cond, body)
}

func (p *Parser) parseFor() *ast.Node {
	pos := p.current.Pos
	p.expect(token.KwFor)
	p.expect(token.LParen)
	var init *ast.Node
	if !p.check(token.Semi) {
		init = p.parseExpr()
	}
	p.expect(token.Semi)
	cond := p.parseExpr()
	p.expect(token.Semi)
	var step *ast.Node
	if !p.check(token.RParen) {
		step = p.parseExpr()
	}
	p.expect(token.RParen)
	body := p.parseStmt()
	return ast.NewFor(pos, init, cond, step, body)
}

func (p *Parser) parseReturn() *ast.Node {
	pos := p.current.Pos
	p.expect(token.KwReturn)
	var expr *ast.Node
	if !p.check(token.Semi) {
		expr = p.parseExpr()
	}
	p.expect(token.Semi)
	return ast.NewReturn(pos, expr)
}

func (p *Parser) parseBreak() *ast.Node {
	pos := p.current.Pos
	p.expect(token.KwBreak)
	p.expect(token.Semi)
	return ast.NewBreak(pos)
}

func (p *Parser) parsePrint() *ast.Node {
	pos := p.current.Pos
	p.expect(token.KwPrint)
	p.expect(token.LParen)
	var args []*ast.Node
	if !p.check(token.RParen) {
		args = append(args, p.parseExpr())
		for p.match(token.Comma) {
			args = append(args, p.parseExpr())
		}
	}
	p.expect(token.RParen)
	p.expect(token.Semi)
	return ast.NewPrint(pos, args)
}

func (p *Parser) parseExprStmt() *ast.Node {
	pos := p.current.Pos
	expr := p.parseExpr()
	p.expect(token.Semi)
	return ast.NewExprStmt(pos, expr)
}

// --- Expressions, lowest to highest precedence: assignment, ||, &&,
// equality, relational, additive, multiplicative, unary, postfix,
// primary.

func (p *Parser) parseExpr() *ast.Node { return p.parseAssign() }

func (p *Parser) parseAssign() *ast.Node {
	left := p.parseLogicalOr()
	if p.check(token.Assign) {
		pos := p.current.Pos
		p.advance()
		right := p.parseAssign()
		return ast.NewAssign(pos, left, right)
	}
	return left
}

func (p *Parser) parseLogicalOr() *ast.Node {
	left := p.parseLogicalAnd()
	for p.check(token.OrOr) {
		pos := p.current.Pos
		p.advance()
		right := p.parseLogicalAnd()
		left = ast.NewLogical(pos, ast.OpOr, left, right)
	}
	return left
}

func (p *Parser) parseLogicalAnd() *ast.Node {
	left := p.parseEquality()
	for p.check(token.AndAnd) {
		pos := p.current.Pos
		p.advance()
		right := p.parseEquality()
		left = ast.NewLogical(pos, ast.OpAnd, left, right)
	}
	return left
}

func (p *Parser) parseEquality() *ast.Node {
	left := p.parseRelational()
	for p.check(token.Eq) || p.check(token.Ne) {
		op := ast.OpEq
		if p.current.Type == token.Ne {
			op = ast.OpNe
		}
		pos := p.current.Pos
		p.advance()
		right := p.parseRelational()
		left = ast.NewBinary(pos, op, left, right)
	}
	return left
}

func (p *Parser) parseRelational() *ast.Node {
	left := p.parseAdditive()
	for {
		var op ast.BinaryOp
		switch p.current.Type {
		case token.Lt:
			op = ast.OpLt
		case token.Le:
			op = ast.OpLe
		case token.Gt:
			op = ast.OpGt
		case token.Ge:
			op = ast.OpGe
		default:
			return left
		}
		pos := p.current.Pos
		p.advance()
		right := p.parseAdditive()
		left = ast.NewBinary(pos, op, left, right)
	}
}

func (p *Parser) parseAdditive() *ast.Node {
	left := p.parseMultiplicative()
	for p.check(token.Plus) || p.check(token.Minus) {
		op := ast.OpAdd
		if p.current.Type == token.Minus {
			op = ast.OpSub
		}
		pos := p.current.Pos
		p.advance()
		right := p.parseMultiplicative()
		left = ast.NewBinary(pos, op, left, right)
	}
	return left
}

func (p *Parser) parseMultiplicative() *ast.Node {
	left := p.parseUnary()
	for {
		var op ast.BinaryOp
		switch p.current.Type {
		case token.Star:
			op = ast.OpMul
		case token.Slash:
			op = ast.OpDiv
		case token.Percent:
			op = ast.OpMod
		default:
			return left
		}
		pos := p.current.Pos
		p.advance()
		right := p.parseUnary()
		left = ast.NewBinary(pos, op, left, right)
	}
}

func (p *Parser) parseUnary() *ast.Node {
	if p.check(token.Minus) {
		pos := p.current.Pos
		p.advance()
		return ast.NewUnary(pos, ast.OpNeg, p.parseUnary())
	}
	if p.check(token.Not) {
		pos := p.current.Pos
		p.advance()
		return ast.NewUnary(pos, ast.OpNot, p.parseUnary())
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() *ast.Node {
	expr := p.parsePrimary()
	for {
		switch {
		case p.check(token.Dot):
			pos := p.current.Pos
			p.advance()
			name := p.expect(token.Ident).Value
			if p.check(token.LParen) {
				args := p.parseArgs()
				expr = ast.NewCall(pos, expr, name, args)
			} else {
				expr = ast.NewFieldAccess(pos, expr, name)
			}
		case p.check(token.LBracket):
			pos := p.current.Pos
			p.advance()
			index := p.parseExpr()
			p.expect(token.RBracket)
			expr = ast.NewArraySubscript(pos, expr, index)
		default:
			return expr
		}
	}
}

func (p *Parser) parseArgs() []*ast.Node {
	p.expect(token.LParen)
	var args []*ast.Node
	if !p.check(token.RParen) {
		args = append(args, p.parseExpr())
		for p.match(token.Comma) {
			args = append(args, p.parseExpr())
		}
	}
	p.expect(token.RParen)
	return args
}

func (p *Parser) parsePrimary() *ast.Node {
	pos := p.current.Pos
	switch {
	case p.check(token.IntLiteral):
		v, err := strconv.ParseInt(p.current.Value, 10, 64)
		if err != nil {
			v = 0
		}
		p.advance()
		return ast.NewIntLit(pos, v)
	case p.check(token.DoubleLiteral):
		v, _ := strconv.ParseFloat(p.current.Value, 64)
		p.advance()
		return ast.NewDoubleLit(pos, v)
	case p.check(token.KwTrue):
		p.advance()
		return ast.NewBoolLit(pos, true)
	case p.check(token.KwFalse):
		p.advance()
		return ast.NewBoolLit(pos, false)
	case p.check(token.StringLiteral):
		v := p.current.Value
		p.advance()
		return ast.NewStringLit(pos, v)
	case p.check(token.KwNull):
		p.advance()
		return ast.NewNullLit(pos)
	case p.check(token.KwThis):
		p.advance()
		return ast.NewThis(pos)
	case p.check(token.KwReadInteger):
		p.advance()
		p.expect(token.LParen)
		p.expect(token.RParen)
		return ast.NewReadInteger(pos)
	case p.check(token.KwReadLine):
		p.advance()
		p.expect(token.LParen)
		p.expect(token.RParen)
		return ast.NewReadLine(pos)
	case p.check(token.KwNew):
		p.advance()
		name := p.expect(token.Ident).Value
		p.expect(token.LParen)
		p.expect(token.RParen)
		return ast.NewNewObject(pos, name)
	case p.check(token.KwNewArray):
		p.advance()
		p.expect(token.LParen)
		size := p.parseExpr()
		p.expect(token.Comma)
		elem := p.parseType()
		p.expect(token.RParen)
		if elem.Kind == types.KindNamed {
			return ast.NewNewArray(pos, elem.Name, nil, size)
		}
		return ast.NewNewArray(pos, "", elem, size)
	case p.check(token.LParen):
		p.advance()
		expr := p.parseExpr()
		p.expect(token.RParen)
		return expr
	case p.check(token.Ident):
		name := p.current.Value
		p.advance()
		if p.check(token.LParen) {
			args := p.parseArgs()
			return ast.NewCall(pos, nil, name, args)
		}
		return ast.NewIdent(pos, name)
	default:
		p.reporter.Report(diag.SyntaxError, pos, "Expected an expression but found %s", p.current.Type)
		p.advance()
		return ast.NewNullLit(pos)
	}
}
