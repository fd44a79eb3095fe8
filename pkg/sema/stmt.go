package sema

import (
	"github.com/decafc/decafc/pkg/ast"
	"github.com/decafc/decafc/pkg/diag"
	"github.com/decafc/decafc/pkg/symtab"
	"github.com/decafc/decafc/pkg/types"
)

func (c *Checker) checkFunction(fn *ast.Node) {
	symtab.Build(fn, c.conflictReporter())
	fd := fn.Data.(ast.FnDeclData)
	if fd.Body != nil {
		c.checkBlock(fd.Body)
	}
}

func (c *Checker) conflictReporter() func(name string, first, dup *ast.Node) {
	return func(name string, _, dup *ast.Node) {
		c.reporter.Report(diag.DeclarationConflict, dup.Pos, "Declaration of '%s' conflicts with prior declaration", name)
	}
}

// checkBlock implements this "Stmt blocks: check each
// declaration then each statement" -- the block's own symbol table
// already gathers every VarDecl regardless of position (symtab.Build),
// so declaration order within one block does not gate visibility.
func (c *Checker) checkBlock(block *ast.Node) {
	symtab.Build(block, c.conflictReporter())
	bd := block.Data.(ast.BlockData)
	for _, s := range bd.Stmts {
		c.checkStmt(s)
	}
}

func (c *Checker) checkStmt(n *ast.Node) {
	switch n.Type {
	case ast.VarDecl:
		// Registered by the enclosing block's symbol table; nothing else
		// to check since this language has no local initializers.
	case ast.Block:
		c.checkBlock(n)
	case ast.IfStmt:
		d := n.Data.(ast.IfStmtData)
		c.checkExpr(d.Cond)
		if !d.Cond.Typ.IsEquivalentTo(types.Bool) && !d.Cond.Typ.IsEquivalentTo(types.Error) {
			c.reporter.Report(diag.TestNotBoolean, d.Cond.Pos, "Test expression must have boolean type")
		}
		c.checkStmt(d.Then)
		if d.Else != nil {
			c.checkStmt(d.Else)
		}
	case ast.WhileStmt:
		d := n.Data.(ast.WhileStmtData)
		c.checkExpr(d.Cond)
		if !d.Cond.Typ.IsEquivalentTo(types.Bool) && !d.Cond.Typ.IsEquivalentTo(types.Error) {
			c.reporter.Report(diag.TestNotBoolean, d.Cond.Pos, "Test expression must have boolean type")
		}
		c.checkStmt(d.Body)
	case ast.ForStmt:
		d := n.Data.(ast.ForStmtData)
		if d.Init != nil {
			c.checkStmt(d.Init)
		}
		if d.Cond != nil {
			c.checkExpr(d.Cond)
			if !d.Cond.Typ.IsEquivalentTo(types.Bool) && !d.Cond.Typ.IsEquivalentTo(types.Error) {
				c.reporter.Report(diag.TestNotBoolean, d.Cond.Pos, "Test expression must have boolean type")
			}
		}
		if d.Step != nil {
			c.checkStmt(d.Step)
		}
		c.checkStmt(d.Body)
	case ast.ReturnStmt:
		c.checkReturn(n)
	case ast.BreakStmt:
		if ast.AncestorLoop(n) == nil {
			c.reporter.Report(diag.BreakOutsideLoop, n.Pos, "break is only allowed inside a loop")
		}
	case ast.PrintStmt:
		d := n.Data.(ast.PrintStmtData)
		for _, a := range d.Args {
			c.checkExpr(a)
			if !isPrintable(a.Typ) {
				c.reporter.Report(diag.PrintArgMismatch, a.Pos, "Incompatible argument %s: must be int, bool or string", a.Typ)
			}
		}
	case ast.ExprStmt:
		d := n.Data.(ast.ExprStmtData)
		c.checkExpr(d.Expr)
	}
}

func isPrintable(t *types.Type) bool {
	if t.IsEquivalentTo(types.Error) {
		return true
	}
	return t.IsEquivalentTo(types.Int) || t.IsEquivalentTo(types.Bool) || t.IsEquivalentTo(types.String)
}

func (c *Checker) checkReturn(n *ast.Node) {
	d := n.Data.(ast.ReturnStmtData)
	fn := ast.AncestorFunc(n)
	if fn == nil {
		diag.Fatalf("return statement at %v has no enclosing function", n.Pos)
	}
	want := fn.Data.(ast.FnDeclData).ReturnType
	if d.Expr == nil {
		if !want.IsEquivalentTo(types.Void) {
			c.reporter.Report(diag.ReturnMismatch, n.Pos, "Incompatible return: void given, %s expected", want)
		}
		return
	}
	c.checkExpr(d.Expr)
	if want.IsEquivalentTo(types.Void) {
		c.reporter.Report(diag.ReturnMismatch, d.Expr.Pos, "Incompatible return: %s given, void expected", d.Expr.Typ)
		return
	}
	if !c.convertible(d.Expr.Typ, want) {
		c.reporter.Report(diag.ReturnMismatch, d.Expr.Pos, "Incompatible return: %s given, %s expected", d.Expr.Typ, want)
	}
}
