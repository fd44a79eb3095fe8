// Package ast defines the declaration tree as a closed tagged union
// over declaration, statement, and expression variants: a single
// NodeType enum plus an interface{} Data payload, rather than one Go
// type per node kind.
package ast

import (
	"github.com/decafc/decafc/pkg/source"
	"github.com/decafc/decafc/pkg/types"
)

// NodeType tags the variant carried by Node.Data.
type NodeType int

const (
	// Declarations
	Program NodeType = iota
	ClassDecl
	InterfaceDecl
	FnDecl
	VarDecl

	// Statements
	Block
	IfStmt
	WhileStmt
	ForStmt
	ReturnStmt
	BreakStmt
	PrintStmt
	ExprStmt

	// Expressions
	IntLit
	DoubleLit
	BoolLit
	StringLit
	NullLit
	ThisExpr
	ReadIntegerExpr
	ReadLineExpr
	Ident
	FieldAccess
	Call
	NewObject
	NewArrayExpr
	ArrayAccess
	AssignExpr
	BinaryExpr
	UnaryExpr
	LogicalExpr
)

// StorageClass tags where a VarDecl lives: global, parameter, local, or field.
type StorageClass int

const (
	StorageGlobal StorageClass = iota
	StorageParam
	StorageLocal
	StorageField
)

// Node is the base every tree node shares: an optional source position,
// a parent back-pointer installed bottom-up during construction, and an
// optional symbol table, created only at scopes that introduce bindings
// (Program, ClassDecl, InterfaceDecl, FnDecl, Block).
type Node struct {
	Type   NodeType
	Pos    source.Pos
	Parent *Node
	Data   interface{}
	Typ    *types.Type // set by pkg/sema during expression checking

	// Scope is populated lazily by pkg/symtab.Build on first visit; it is
	// nil for nodes that do not introduce a scope.
	Scope interface{}
}

// --- Data payloads ---

type ProgramData struct{ Decls []*Node }

type ClassDeclData struct {
	Name       string
	Base       string // unresolved name; "" if none
	Implements []string
	Members    []*Node // VarDecl / FnDecl

	// Populated by pkg/sema layout assignment :
	InstanceSize int64
	MethodTable  []*Node // FnDecl, index == vtable slot
	ResolvedBase *Node   // ClassDecl, nil if none/unresolved/cyclic
}

type InterfaceDeclData struct {
	Name    string
	Members []*Node // FnDecl (signatures only, Body == nil)
}

type FnDeclData struct {
	Name       string
	ReturnType *types.Type
	Formals    []*Node // VarDecl, StorageParam
	Body       *Node   // Block, nil for interface signatures
	Label      string  // assigned by pkg/tac
	VtableOff  int64   // -1 if not a method
}

type VarDeclData struct {
	Name    string
	Typ     *types.Type
	Storage StorageClass
	Offset  int64 // assigned by pkg/tac (frame/global slot) or pkg/sema (field)
}

type BlockData struct{ Stmts []*Node }

type IfStmtData struct{ Cond, Then, Else *Node }

type WhileStmtData struct {
	Cond, Body  *Node
	BeforeLabel string // set by pkg/tac
	AfterLabel  string
}

type ForStmtData struct {
	Init, Cond, Step, Body *Node
	BeforeLabel            string
	AfterLabel             string
}

type ReturnStmtData struct{ Expr *Node } // nil for `return;`

type BreakStmtData struct{}

type PrintStmtData struct{ Args []*Node }

type ExprStmtData struct{ Expr *Node }

type IntLitData struct{ Value int64 }
type DoubleLitData struct{ Value float64 }
type BoolLitData struct{ Value bool }
type StringLitData struct{ Value string }
type NullLitData struct{}
type ThisExprData struct{}
type ReadIntegerExprData struct{}
type ReadLineExprData struct{}

type IdentData struct {
	Name string
	Decl *Node // resolved by pkg/sema
}

type FieldAccessData struct {
	Base *Node // nil for an unqualified reference resolved via scope chain
	Name string
	Decl *Node // resolved by pkg/sema
}

type CallData struct {
	Base     *Node // nil for an unqualified call
	Name     string
	Args     []*Node
	Decl     *Node // resolved FnDecl, nil for the `length` builtin
	IsLength bool
}

type NewObjectData struct {
	ClassName string
	Decl      *Node // resolved ClassDecl
}

type NewArrayExprData struct {
	ElemTypeName string // "" if primitive; Typ already carries the elem type
	ElemType     *types.Type
	Size         *Node
}

type ArrayAccessData struct{ Array, Index *Node }

// AssignData: this language has no compound assignment operators.
type AssignData struct{ Lhs, Rhs *Node }

type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLt
	OpGt
	OpLe
	OpGe
	OpEq
	OpNe
)

type BinaryExprData struct {
	Op          BinaryOp
	Left, Right *Node
}

type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
)

type UnaryExprData struct {
	Op   UnaryOp
	Expr *Node
}

type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
)

type LogicalExprData struct {
	Op          LogicalOp
	Left, Right *Node
}

// --- Constructors ---

func newNode(pos source.Pos, t NodeType, data interface{}, children ...*Node) *Node {
	n := &Node{Type: t, Pos: pos, Data: data}
	for _, c := range children {
		if c != nil {
			c.Parent = n
		}
	}
	return n
}

func NewProgram(decls []*Node) *Node {
	n := newNode(source.Pos{}, Program, ProgramData{Decls: decls})
	for _, d := range decls {
		d.Parent = n
	}
	return n
}

func NewClassDecl(pos source.Pos, name, base string, implements []string, members []*Node) *Node {
	n := newNode(pos, ClassDecl, ClassDeclData{Name: name, Base: base, Implements: implements, Members: members})
	for _, m := range members {
		m.Parent = n
	}
	return n
}

func NewInterfaceDecl(pos source.Pos, name string, members []*Node) *Node {
	n := newNode(pos, InterfaceDecl, InterfaceDeclData{Name: name, Members: members})
	for _, m := range members {
		m.Parent = n
	}
	return n
}

func NewFnDecl(pos source.Pos, name string, returnType *types.Type, formals []*Node, body *Node) *Node {
	n := newNode(pos, FnDecl, FnDeclData{Name: name, ReturnType: returnType, Formals: formals, Body: body, VtableOff: -1}, body)
	for _, f := range formals {
		f.Parent = n
	}
	return n
}

func NewVarDecl(pos source.Pos, name string, typ *types.Type, storage StorageClass) *Node {
	return newNode(pos, VarDecl, VarDeclData{Name: name, Typ: typ, Storage: storage})
}

func NewBlock(pos source.Pos, stmts []*Node) *Node {
	n := newNode(pos, Block, BlockData{Stmts: stmts})
	for _, s := range stmts {
		if s != nil {
			s.Parent = n
		}
	}
	return n
}

func NewIf(pos source.Pos, cond, then, els *Node) *Node {
	return newNode(pos, IfStmt, IfStmtData{Cond: cond, Then: then, Else: els}, cond, then, els)
}

func NewWhile(pos source.Pos, cond, body *Node) *Node {
	return newNode(pos, WhileStmt, WhileStmtData{Cond: cond, Body: body}, cond, body)
}

func NewFor(pos source.Pos, init, cond, step, body *Node) *Node {
	return newNode(pos, ForStmt, ForStmtData{Init: init, Cond: cond, Step: step, Body: body}, init, cond, step, body)
}

func NewReturn(pos source.Pos, expr *Node) *Node {
	return newNode(pos, ReturnStmt, ReturnStmtData{Expr: expr}, expr)
}

func NewBreak(pos source.Pos) *Node { return newNode(pos, BreakStmt, BreakStmtData{}) }

func NewPrint(pos source.Pos, args []*Node) *Node {
	n := newNode(pos, PrintStmt, PrintStmtData{Args: args})
	for _, a := range args {
		a.Parent = n
	}
	return n
}

func NewExprStmt(pos source.Pos, expr *Node) *Node {
	return newNode(pos, ExprStmt, ExprStmtData{Expr: expr}, expr)
}

func NewIntLit(pos source.Pos, v int64) *Node      { return newNode(pos, IntLit, IntLitData{Value: v}) }
func NewDoubleLit(pos source.Pos, v float64) *Node { return newNode(pos, DoubleLit, DoubleLitData{Value: v}) }
func NewBoolLit(pos source.Pos, v bool) *Node      { return newNode(pos, BoolLit, BoolLitData{Value: v}) }
func NewStringLit(pos source.Pos, v string) *Node  { return newNode(pos, StringLit, StringLitData{Value: v}) }
func NewNullLit(pos source.Pos) *Node              { return newNode(pos, NullLit, NullLitData{}) }
func NewThis(pos source.Pos) *Node                 { return newNode(pos, ThisExpr, ThisExprData{}) }
func NewReadInteger(pos source.Pos) *Node          { return newNode(pos, ReadIntegerExpr, ReadIntegerExprData{}) }
func NewReadLine(pos source.Pos) *Node             { return newNode(pos, ReadLineExpr, ReadLineExprData{}) }

func NewIdent(pos source.Pos, name string) *Node { return newNode(pos, Ident, IdentData{Name: name}) }

func NewFieldAccess(pos source.Pos, base *Node, name string) *Node {
	return newNode(pos, FieldAccess, FieldAccessData{Base: base, Name: name}, base)
}

func NewCall(pos source.Pos, base *Node, name string, args []*Node) *Node {
	n := newNode(pos, Call, CallData{Base: base, Name: name, Args: args}, base)
	for _, a := range args {
		a.Parent = n
	}
	return n
}

func NewNewObject(pos source.Pos, className string) *Node {
	return newNode(pos, NewObject, NewObjectData{ClassName: className})
}

func NewNewArray(pos source.Pos, elemTypeName string, elemType *types.Type, size *Node) *Node {
	return newNode(pos, NewArrayExpr, NewArrayExprData{ElemTypeName: elemTypeName, ElemType: elemType, Size: size}, size)
}

func NewArraySubscript(pos source.Pos, array, index *Node) *Node {
	return newNode(pos, ArrayAccess, ArrayAccessData{Array: array, Index: index}, array, index)
}

func NewAssign(pos source.Pos, lhs, rhs *Node) *Node {
	return newNode(pos, AssignExpr, AssignData{Lhs: lhs, Rhs: rhs}, lhs, rhs)
}

func NewBinary(pos source.Pos, op BinaryOp, left, right *Node) *Node {
	return newNode(pos, BinaryExpr, BinaryExprData{Op: op, Left: left, Right: right}, left, right)
}

func NewUnary(pos source.Pos, op UnaryOp, expr *Node) *Node {
	return newNode(pos, UnaryExpr, UnaryExprData{Op: op, Expr: expr}, expr)
}

func NewLogical(pos source.Pos, op LogicalOp, left, right *Node) *Node {
	return newNode(pos, LogicalExpr, LogicalExprData{Op: op, Left: left, Right: right}, left, right)
}

// Link walks the tree top-down from root and sets every descendant's
// Parent to the node it hangs under, overwriting any earlier link; it
// performs no validation. It is used by tests and by the parser after
// splicing subtrees built independently with the New* constructors.
func Link(root *Node) {
	var walk func(n, parent *Node)
	walk = func(n, parent *Node) {
		if n == nil {
			return
		}
		if parent != nil {
			n.Parent = parent
		}
		for _, c := range Children(n) {
			walk(c, n)
		}
	}
	walk(root, nil)
}

// Children returns the direct child nodes of n, dispatched by NodeType.
// Centralizing this here keeps the tree's shape defined in one place
// instead of duplicated across sema, tac, and any future pass.
func Children(n *Node) []*Node {
	if n == nil {
		return nil
	}
	switch d := n.Data.(type) {
	case ProgramData:
		return d.Decls
	case ClassDeclData:
		return d.Members
	case InterfaceDeclData:
		return d.Members
	case FnDeclData:
		out := append([]*Node{}, d.Formals...)
		if d.Body != nil {
			out = append(out, d.Body)
		}
		return out
	case BlockData:
		return d.Stmts
	case IfStmtData:
		return nonNil(d.Cond, d.Then, d.Else)
	case WhileStmtData:
		return nonNil(d.Cond, d.Body)
	case ForStmtData:
		return nonNil(d.Init, d.Cond, d.Step, d.Body)
	case ReturnStmtData:
		return nonNil(d.Expr)
	case PrintStmtData:
		return d.Args
	case ExprStmtData:
		return nonNil(d.Expr)
	case FieldAccessData:
		return nonNil(d.Base)
	case CallData:
		out := nonNil(d.Base)
		return append(out, d.Args...)
	case NewArrayExprData:
		return nonNil(d.Size)
	case ArrayAccessData:
		return nonNil(d.Array, d.Index)
	case AssignData:
		return nonNil(d.Lhs, d.Rhs)
	case BinaryExprData:
		return nonNil(d.Left, d.Right)
	case UnaryExprData:
		return nonNil(d.Expr)
	case LogicalExprData:
		return nonNil(d.Left, d.Right)
	}
	return nil
}

func nonNil(nodes ...*Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// AncestorFunc walks Parent pointers to find the nearest enclosing
// FnDecl, used by pkg/sema to check `return` against the right
// function's declared return type.
func AncestorFunc(n *Node) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == FnDecl {
			return p
		}
	}
	return nil
}

// AncestorClass walks Parent pointers to find the nearest enclosing
// ClassDecl, used to type `this` and to resolve unqualified member
// references.
func AncestorClass(n *Node) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == ClassDecl {
			return p
		}
	}
	return nil
}

// AncestorLoop walks Parent pointers to find the nearest enclosing
// WhileStmt/ForStmt, used to validate `break` and to know which loop's
// AfterLabel a break should target.
func AncestorLoop(n *Node) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == WhileStmt || p.Type == ForStmt {
			return p
		}
	}
	return nil
}
