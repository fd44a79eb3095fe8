package sema

import (
	"github.com/decafc/decafc/pkg/ast"
	"github.com/decafc/decafc/pkg/diag"
	"github.com/decafc/decafc/pkg/symtab"
	"github.com/decafc/decafc/pkg/types"
)

// checkExpr computes and caches n.Typ. Most branches that detect a
// user error report a diagnostic and poison n.Typ to types.Error so the
// failure does not cascade into the parent expression. Assignment,
// relational, equality and logical expressions and '!' keep their
// result type (the right side's type, or bool) after reporting, as do
// NewArray with a bad size and a subscript with a bad index.
func (c *Checker) checkExpr(n *ast.Node) {
	if n.Typ != nil {
		return
	}
	switch n.Type {
	case ast.IntLit:
		n.Typ = types.Int
	case ast.DoubleLit:
		n.Typ = types.Double
	case ast.BoolLit:
		n.Typ = types.Bool
	case ast.StringLit:
		n.Typ = types.String
	case ast.NullLit:
		n.Typ = types.Null
	case ast.ReadIntegerExpr:
		n.Typ = types.Int
	case ast.ReadLineExpr:
		n.Typ = types.String
	case ast.ThisExpr:
		c.checkThis(n)
	case ast.Ident:
		c.checkIdent(n)
	case ast.FieldAccess:
		c.checkFieldAccess(n)
	case ast.Call:
		c.checkCall(n)
	case ast.NewObject:
		c.checkNewObject(n)
	case ast.NewArrayExpr:
		c.checkNewArray(n)
	case ast.ArrayAccess:
		c.checkArrayAccess(n)
	case ast.AssignExpr:
		c.checkAssign(n)
	case ast.BinaryExpr:
		c.checkBinary(n)
	case ast.UnaryExpr:
		c.checkUnary(n)
	case ast.LogicalExpr:
		c.checkLogical(n)
	default:
		diag.Fatalf("checkExpr: unhandled node type %v at %v", n.Type, n.Pos)
	}
}

func (c *Checker) checkThis(n *ast.Node) {
	class := ast.AncestorClass(n)
	if class == nil {
		c.reporter.Report(diag.ThisOutsideClassScope, n.Pos, "'this' is only valid within class scope")
		n.Typ = types.Error
		return
	}
	n.Typ = c.classType(class.Data.(ast.ClassDeclData).Name)
}

// resolveName resolves an unqualified name: first in class-chain (if
// inside a class), then in ancestor-chain.
func (c *Checker) resolveName(n *ast.Node, name string) (*ast.Node, bool) {
	if class := ast.AncestorClass(n); class != nil {
		if d, ok := symtab.LookupClassChain(class, name); ok {
			return d, true
		}
	}
	return symtab.LookupAncestorChain(n, name)
}

func (c *Checker) checkIdent(n *ast.Node) {
	d := n.Data.(ast.IdentData)
	decl, ok := c.resolveName(n, d.Name)
	if !ok || decl.Type != ast.VarDecl {
		c.reporter.Report(diag.IdentifierNotDeclared, n.Pos, "No declaration for variable '%s' found", d.Name)
		n.Typ = types.Error
		return
	}
	d.Decl = decl
	n.Data = d
	n.Typ = decl.Data.(ast.VarDeclData).Typ
}

// checkFieldAccess resolves an explicit-base access ("base.field"); a
// nil Base is an unqualified reference handled the same way checkIdent
// resolves one.
func (c *Checker) checkFieldAccess(n *ast.Node) {
	d := n.Data.(ast.FieldAccessData)
	if d.Base == nil {
		decl, ok := c.resolveName(n, d.Name)
		if !ok || decl.Type != ast.VarDecl {
			c.reporter.Report(diag.IdentifierNotDeclared, n.Pos, "No declaration for variable '%s' found", d.Name)
			n.Typ = types.Error
			return
		}
		d.Decl = decl
		n.Data = d
		n.Typ = decl.Data.(ast.VarDeclData).Typ
		return
	}

	c.checkExpr(d.Base)
	if d.Base.Typ.IsEquivalentTo(types.Error) {
		n.Typ = types.Error
		return
	}
	if d.Base.Typ.Kind != types.KindNamed {
		c.reporter.Report(diag.FieldNotFoundInBase, n.Pos, "Field '%s' not found in base type '%s'", d.Name, d.Base.Typ)
		n.Typ = types.Error
		return
	}
	declClass, _ := d.Base.Typ.Class().(*ast.Node)
	if declClass == nil {
		n.Typ = types.Error
		return
	}
	member, found := symtab.LookupClassChain(declClass, d.Name)
	if !found || member.Type != ast.VarDecl {
		c.reporter.Report(diag.FieldNotFoundInBase, n.Pos, "Field '%s' not found in base type '%s'", d.Name, d.Base.Typ)
		n.Typ = types.Error
		return
	}
	if !c.fieldAccessible(n, member) {
		c.reporter.Report(diag.InaccessibleField, n.Pos, "Field '%s' is not accessible from this context", d.Name)
		n.Typ = types.Error
		return
	}
	d.Decl = member
	n.Data = d
	n.Typ = member.Data.(ast.VarDeclData).Typ
}

// fieldAccessible reports whether accessSite may read field: access to
// a field is allowed only from a derived-or-equal class. The owning
// class of a field is found by walking up the field node's own Parent
// to its ClassDecl.
func (c *Checker) fieldAccessible(accessSite, field *ast.Node) bool {
	fieldOwner := ast.AncestorClass(field)
	if fieldOwner == nil {
		return true
	}
	accessorClass := ast.AncestorClass(accessSite)
	if accessorClass == nil {
		return false
	}
	return c.IsDerivedFrom(accessorClass, fieldOwner)
}

// checkCall resolves a call expression, including
// the `length` builtin specialization for an Array base.
func (c *Checker) checkCall(n *ast.Node) {
	d := n.Data.(ast.CallData)

	if d.Base == nil {
		decl, ok := c.resolveName(n, d.Name)
		if !ok || decl.Type != ast.FnDecl {
			c.reporter.Report(diag.IdentifierNotDeclared, n.Pos, "No declaration for function '%s' found", d.Name)
			n.Typ = types.Error
			c.checkArgsIgnoringSignature(d.Args)
			return
		}
		d.Decl = decl
		n.Data = d
		c.checkArgs(n, decl.Data.(ast.FnDeclData).Formals, d.Args)
		n.Typ = decl.Data.(ast.FnDeclData).ReturnType
		return
	}

	c.checkExpr(d.Base)
	if d.Base.Typ.IsEquivalentTo(types.Error) {
		n.Typ = types.Error
		c.checkArgsIgnoringSignature(d.Args)
		return
	}

	if d.Base.Typ.Kind == types.KindArray && d.Name == lengthBuiltinName {
		d.IsLength = true
		n.Data = d
		if len(d.Args) != 0 {
			c.reporter.Report(diag.NumArgsMismatch, n.Pos, "Function 'length' expects 0 arguments but %d given", len(d.Args))
		}
		n.Typ = types.Int
		return
	}

	if d.Base.Typ.Kind != types.KindNamed {
		c.reporter.Report(diag.FieldNotFoundInBase, n.Pos, "Method '%s' not found in base type '%s'", d.Name, d.Base.Typ)
		n.Typ = types.Error
		c.checkArgsIgnoringSignature(d.Args)
		return
	}
	declClass, _ := d.Base.Typ.Class().(*ast.Node)
	if declClass == nil {
		n.Typ = types.Error
		c.checkArgsIgnoringSignature(d.Args)
		return
	}
	member, found := symtab.LookupClassChain(declClass, d.Name)
	if !found || member.Type != ast.FnDecl {
		c.reporter.Report(diag.FieldNotFoundInBase, n.Pos, "Method '%s' not found in base type '%s'", d.Name, d.Base.Typ)
		n.Typ = types.Error
		c.checkArgsIgnoringSignature(d.Args)
		return
	}
	d.Decl = member
	n.Data = d
	c.checkArgs(n, member.Data.(ast.FnDeclData).Formals, d.Args)
	n.Typ = member.Data.(ast.FnDeclData).ReturnType
}

func (c *Checker) checkArgsIgnoringSignature(args []*ast.Node) {
	for _, a := range args {
		c.checkExpr(a)
	}
}

// checkArgs verifies call argument arity and per-position
// convertibility against formals.
func (c *Checker) checkArgs(call *ast.Node, formals, args []*ast.Node) {
	for _, a := range args {
		c.checkExpr(a)
	}
	if len(formals) != len(args) {
		c.reporter.Report(diag.NumArgsMismatch, call.Pos, "Function called with wrong number of arguments: %d given, %d expected", len(args), len(formals))
		return
	}
	for i, a := range args {
		want := formals[i].Data.(ast.VarDeclData).Typ
		if !c.convertible(a.Typ, want) {
			c.reporter.Report(diag.ArgMismatch, a.Pos, "Incompatible argument %d: %s given, %s expected", i+1, a.Typ, want)
		}
	}
}

func (c *Checker) checkNewObject(n *ast.Node) {
	d := n.Data.(ast.NewObjectData)
	class, ok := c.classes[d.ClassName]
	if !ok {
		c.reporter.Report(diag.IdentifierNotDeclared, n.Pos, "No declaration for class '%s' found", d.ClassName)
		n.Typ = types.Error
		return
	}
	d.Decl = class
	n.Data = d
	n.Typ = c.classType(d.ClassName)
}

func (c *Checker) checkNewArray(n *ast.Node) {
	d := n.Data.(ast.NewArrayExprData)
	c.checkExpr(d.Size)
	if !d.Size.Typ.IsEquivalentTo(types.Int) && !d.Size.Typ.IsEquivalentTo(types.Error) {
		c.reporter.Report(diag.NewArraySizeNotInteger, d.Size.Pos, "Size for NewArray must be an integer")
	}
	elem := d.ElemType
	if d.ElemTypeName != "" {
		if _, ok := c.classes[d.ElemTypeName]; !ok {
			c.reporter.Report(diag.IdentifierNotDeclared, n.Pos, "No declaration for class '%s' found", d.ElemTypeName)
			n.Typ = types.Error
			return
		}
		elem = c.classType(d.ElemTypeName)
	}
	n.Typ = types.NewArray(elem)
}

func (c *Checker) checkArrayAccess(n *ast.Node) {
	d := n.Data.(ast.ArrayAccessData)
	c.checkExpr(d.Array)
	c.checkExpr(d.Index)
	if !d.Index.Typ.IsEquivalentTo(types.Int) && !d.Index.Typ.IsEquivalentTo(types.Error) {
		c.reporter.Report(diag.SubscriptNotInteger, d.Index.Pos, "Array subscript must be an integer")
	}
	if d.Array.Typ.IsEquivalentTo(types.Error) {
		n.Typ = types.Error
		return
	}
	if d.Array.Typ.Kind != types.KindArray {
		c.reporter.Report(diag.BracketsOnNonArray, d.Array.Pos, "[] can only be applied to arrays")
		n.Typ = types.Error
		return
	}
	n.Typ = d.Array.Typ.Elem
}

func (c *Checker) checkAssign(n *ast.Node) {
	d := n.Data.(ast.AssignData)
	c.checkExpr(d.Lhs)
	c.checkExpr(d.Rhs)
	if !d.Lhs.Typ.IsEquivalentTo(types.Error) && !c.convertible(d.Rhs.Typ, d.Lhs.Typ) {
		c.reporter.Report(diag.IncompatibleOperands, n.Pos, "Incompatible operands: %s = %s", d.Lhs.Typ, d.Rhs.Typ)
	}
	n.Typ = d.Rhs.Typ
}

func (c *Checker) checkBinary(n *ast.Node) {
	d := n.Data.(ast.BinaryExprData)
	c.checkExpr(d.Left)
	c.checkExpr(d.Right)
	switch d.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpMod:
		n.Typ = c.checkArithmetic(n, d.Left, d.Right)
	case ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
		c.checkRelational(n, d.Left, d.Right)
		n.Typ = types.Bool
	case ast.OpEq, ast.OpNe:
		c.checkEquality(n, d.Left, d.Right)
		n.Typ = types.Bool
	}
}

func (c *Checker) checkArithmetic(n, l, r *ast.Node) *types.Type {
	if l.Typ.IsEquivalentTo(types.Error) || r.Typ.IsEquivalentTo(types.Error) {
		return types.Error
	}
	if l.Typ.IsNumeric() && l.Typ.IsEquivalentTo(r.Typ) {
		return l.Typ
	}
	c.reporter.Report(diag.IncompatibleOperands, n.Pos, "Incompatible operands: %s, %s", l.Typ, r.Typ)
	return types.Error
}

func (c *Checker) checkRelational(n, l, r *ast.Node) {
	if l.Typ.IsEquivalentTo(types.Error) || r.Typ.IsEquivalentTo(types.Error) {
		return
	}
	if !(l.Typ.IsNumeric() && l.Typ.IsEquivalentTo(r.Typ)) {
		c.reporter.Report(diag.IncompatibleOperands, n.Pos, "Incompatible operands: %s, %s", l.Typ, r.Typ)
	}
}

func (c *Checker) checkEquality(n, l, r *ast.Node) {
	if l.Typ.IsEquivalentTo(types.Error) || r.Typ.IsEquivalentTo(types.Error) {
		return
	}
	if !c.convertible(l.Typ, r.Typ) && !c.convertible(r.Typ, l.Typ) {
		c.reporter.Report(diag.IncompatibleOperands, n.Pos, "Incompatible operands: %s, %s", l.Typ, r.Typ)
	}
}

func (c *Checker) checkUnary(n *ast.Node) {
	d := n.Data.(ast.UnaryExprData)
	c.checkExpr(d.Expr)
	switch d.Op {
	case ast.OpNeg:
		if d.Expr.Typ.IsEquivalentTo(types.Error) {
			n.Typ = types.Error
			return
		}
		if !d.Expr.Typ.IsNumeric() {
			c.reporter.Report(diag.IncompatibleOperands, n.Pos, "Incompatible operand: %s", d.Expr.Typ)
			n.Typ = types.Error
			return
		}
		n.Typ = d.Expr.Typ
	case ast.OpNot:
		if !d.Expr.Typ.IsEquivalentTo(types.Bool) && !d.Expr.Typ.IsEquivalentTo(types.Error) {
			c.reporter.Report(diag.IncompatibleOperands, n.Pos, "Incompatible operand: %s", d.Expr.Typ)
		}
		n.Typ = types.Bool
	}
}

func (c *Checker) checkLogical(n *ast.Node) {
	d := n.Data.(ast.LogicalExprData)
	c.checkExpr(d.Left)
	c.checkExpr(d.Right)
	for _, side := range []*ast.Node{d.Left, d.Right} {
		if !side.Typ.IsEquivalentTo(types.Bool) && !side.Typ.IsEquivalentTo(types.Error) {
			c.reporter.Report(diag.IncompatibleOperands, side.Pos, "Incompatible operand: %s", side.Typ)
		}
	}
	n.Typ = types.Bool
}
