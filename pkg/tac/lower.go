package tac

import (
	"math"

	"github.com/decafc/decafc/pkg/ast"
	"github.com/decafc/decafc/pkg/diag"
	"github.com/decafc/decafc/pkg/types"
)

// Lowering drives a post-order traversal of a checked declaration
// tree, translating it into the flat instruction stream held by a
// Builder. It must run only after pkg/sema.Check has resolved every
// Decl/Typ field and assigned class layout; it does not re-validate
// anything sema already checked.
type Lowering struct {
	b       *Builder
	locs    map[*ast.Node]*Location // VarDecl (param/local/global) -> materialized slot
	curThis *Location                // non-nil while lowering a method body
}

func NewLowering(b *Builder) *Lowering {
	return &Lowering{b: b, locs: make(map[*ast.Node]*Location)}
}

// BuildProgram lowers every top-level declaration and returns the
// resulting flat instruction stream.
func (lw *Lowering) BuildProgram(program *ast.Node) []Instruction {
	data := program.Data.(ast.ProgramData)

	for _, d := range data.Decls {
		if d.Type == ast.VarDecl {
			vd := d.Data.(ast.VarDeclData)
			lw.locs[d] = lw.b.NewGlobal(vd.Name)
		}
	}

	for _, d := range data.Decls {
		switch d.Type {
		case ast.FnDecl:
			lw.lowerFunction(d)
		case ast.ClassDecl:
			lw.lowerClass(d)
		}
	}

	lw.b.FlushVTables()
	return lw.b.Instructions()
}

func (lw *Lowering) lowerClass(class *ast.Node) {
	cd := class.Data.(ast.ClassDeclData)
	for _, m := range cd.Members {
		if m.Type == ast.FnDecl {
			lw.lowerFunction(m)
		}
	}
	labels := make([]string, len(cd.MethodTable))
	for i, slot := range cd.MethodTable {
		labels[i] = lw.labelOf(slot)
	}
	lw.b.AddVTable(vtableLabel(cd.Name), labels)
}

// labelOf names the entry label for a FnDecl,
// derived from the node's own enclosing class rather than from which
// class's vtable currently references it -- an inherited, unoverridden
// method keeps its declaring class's label everywhere it appears.
func (lw *Lowering) labelOf(fn *ast.Node) string {
	fd := fn.Data.(ast.FnDeclData)
	owner := ast.AncestorClass(fn)
	if owner == nil {
		return functionLabel(fd.Name)
	}
	ownerData := owner.Data.(ast.ClassDeclData)
	return methodLabel(ownerData.Name, fd.Name)
}

func (lw *Lowering) lowerFunction(fn *ast.Node) {
	fd := fn.Data.(ast.FnDeclData)
	label := lw.labelOf(fn)
	begin := lw.b.BeginFunction(label)

	prevThis := lw.curThis
	lw.curThis = nil
	if ast.AncestorClass(fn) != nil {
		lw.curThis = &Location{Name: "this", Segment: FPRelative, Offset: OffsetToFirstParam}
		lw.b.paramCounter = 1
	}
	for _, formal := range fd.Formals {
		vd := formal.Data.(ast.VarDeclData)
		lw.locs[formal] = lw.b.NewParam(vd.Name)
	}

	if fd.Body != nil {
		lw.lowerBlock(fd.Body)
	}
	lw.b.EndFunction(begin)
	lw.curThis = prevThis
}

func (lw *Lowering) lowerBlock(block *ast.Node) {
	bd := block.Data.(ast.BlockData)
	for _, s := range bd.Stmts {
		lw.lowerStmt(s)
	}
}

func (lw *Lowering) lowerStmt(n *ast.Node) {
	switch n.Type {
	case ast.VarDecl:
		vd := n.Data.(ast.VarDeclData)
		lw.locs[n] = lw.b.NewLocal(vd.Name)
	case ast.Block:
		lw.lowerBlock(n)
	case ast.IfStmt:
		lw.lowerIf(n)
	case ast.WhileStmt:
		lw.lowerWhile(n)
	case ast.ForStmt:
		lw.lowerFor(n)
	case ast.ReturnStmt:
		lw.lowerReturn(n)
	case ast.BreakStmt:
		lw.lowerBreak(n)
	case ast.PrintStmt:
		lw.lowerPrint(n)
	case ast.ExprStmt:
		lw.lowerExpr(n.Data.(ast.ExprStmtData).Expr)
	}
}

func (lw *Lowering) lowerIf(n *ast.Node) {
	d := n.Data.(ast.IfStmtData)
	cond := lw.lowerExpr(d.Cond)
	elseLabel := lw.b.NewLabelName()
	lw.b.Emit(&IfZ{Test: cond, Target: elseLabel})
	lw.lowerStmt(d.Then)
	if d.Else != nil {
		afterLabel := lw.b.NewLabelName()
		lw.b.Emit(&Goto{Target: afterLabel})
		lw.b.EmitLabel(elseLabel)
		lw.lowerStmt(d.Else)
		lw.b.EmitLabel(afterLabel)
		return
	}
	lw.b.EmitLabel(elseLabel)
}

func (lw *Lowering) lowerWhile(n *ast.Node) {
	d := n.Data.(ast.WhileStmtData)
	before := lw.b.NewLabelName()
	after := lw.b.NewLabelName()
	d.BeforeLabel, d.AfterLabel = before, after
	n.Data = d

	lw.b.EmitLabel(before)
	cond := lw.lowerExpr(d.Cond)
	lw.b.Emit(&IfZ{Test: cond, Target: after})
	lw.lowerStmt(d.Body)
	lw.b.Emit(&Goto{Target: before})
	lw.b.EmitLabel(after)
}

func (lw *Lowering) lowerFor(n *ast.Node) {
	d := n.Data.(ast.ForStmtData)
	if d.Init != nil {
		lw.lowerStmt(d.Init)
	}
	before := lw.b.NewLabelName()
	after := lw.b.NewLabelName()
	d.BeforeLabel, d.AfterLabel = before, after
	n.Data = d

	lw.b.EmitLabel(before)
	if d.Cond != nil {
		cond := lw.lowerExpr(d.Cond)
		lw.b.Emit(&IfZ{Test: cond, Target: after})
	}
	lw.lowerStmt(d.Body)
	if d.Step != nil {
		lw.lowerStmt(d.Step)
	}
	lw.b.Emit(&Goto{Target: before})
	lw.b.EmitLabel(after)
}

func (lw *Lowering) lowerReturn(n *ast.Node) {
	d := n.Data.(ast.ReturnStmtData)
	if d.Expr == nil {
		lw.b.Emit(&Return{})
		return
	}
	v := lw.lowerExpr(d.Expr)
	lw.b.Emit(&Return{Val: v})
}

func (lw *Lowering) lowerBreak(n *ast.Node) {
	loop := ast.AncestorLoop(n)
	if loop == nil {
		diag.Fatalf("break at %v has no enclosing loop; sema should have rejected this", n.Pos)
	}
	var after string
	switch d := loop.Data.(type) {
	case ast.WhileStmtData:
		after = d.AfterLabel
	case ast.ForStmtData:
		after = d.AfterLabel
	}
	lw.b.Emit(&Goto{Target: after})
}

func (lw *Lowering) lowerPrint(n *ast.Node) {
	d := n.Data.(ast.PrintStmtData)
	for _, a := range d.Args {
		v := lw.lowerExpr(a)
		label := builtinPrintInt
		switch {
		case a.Typ.IsEquivalentTo(types.String):
			label = builtinPrintString
		case a.Typ.IsEquivalentTo(types.Bool):
			label = builtinPrintBool
		}
		lw.b.Emit(&PushParam{Param: v})
		lw.b.Emit(&LCall{Label: label})
		lw.b.Emit(&PopParams{NumBytes: WordSize})
	}
}

// lowerExpr lowers n and returns the Location holding its runtime
// value, so its parent can read the result.
func (lw *Lowering) lowerExpr(n *ast.Node) *Location {
	switch n.Type {
	case ast.IntLit:
		dst := lw.b.NewTemp()
		lw.b.Emit(&LoadConst{Dst: dst, Value: n.Data.(ast.IntLitData).Value})
		return dst
	case ast.DoubleLit:
		dst := lw.b.NewTemp()
		bits := int64(math.Float64bits(n.Data.(ast.DoubleLitData).Value))
		lw.b.Emit(&LoadConst{Dst: dst, Value: bits})
		return dst
	case ast.BoolLit:
		dst := lw.b.NewTemp()
		v := int64(0)
		if n.Data.(ast.BoolLitData).Value {
			v = 1
		}
		lw.b.Emit(&LoadConst{Dst: dst, Value: v})
		return dst
	case ast.StringLit:
		dst := lw.b.NewTemp()
		lw.b.Emit(&LoadStringConst{Dst: dst, Value: n.Data.(ast.StringLitData).Value})
		return dst
	case ast.NullLit:
		dst := lw.b.NewTemp()
		lw.b.Emit(&LoadConst{Dst: dst, Value: 0})
		return dst
	case ast.ThisExpr:
		return lw.curThis
	case ast.ReadIntegerExpr:
		dst := lw.b.NewTemp()
		lw.b.Emit(&LCall{Label: builtinReadInteger, Dst: dst})
		return dst
	case ast.ReadLineExpr:
		dst := lw.b.NewTemp()
		lw.b.Emit(&LCall{Label: builtinReadLine, Dst: dst})
		return dst
	case ast.Ident:
		return lw.readVar(n.Data.(ast.IdentData).Decl)
	case ast.FieldAccess:
		return lw.lowerFieldAccess(n)
	case ast.Call:
		return lw.lowerCall(n)
	case ast.NewObject:
		return lw.lowerNewObject(n)
	case ast.NewArrayExpr:
		return lw.lowerNewArray(n)
	case ast.ArrayAccess:
		dst := lw.b.NewTemp()
		addr := lw.arrayElemAddr(n)
		lw.b.Emit(&Load{Dst: dst, Src: addr, Offset: 0})
		return dst
	case ast.AssignExpr:
		return lw.lowerAssign(n)
	case ast.BinaryExpr:
		return lw.lowerBinary(n)
	case ast.UnaryExpr:
		return lw.lowerUnary(n)
	case ast.LogicalExpr:
		return lw.lowerLogical(n)
	}
	diag.Fatalf("lowerExpr: unhandled node type %v at %v", n.Type, n.Pos)
	return nil
}

// readVar loads decl's value: a materialized param/local/global slot is
// read directly, but a field decl has no standing Location and is read
// through the implicit `this` at its assigned offset.
func (lw *Lowering) readVar(decl *ast.Node) *Location {
	vd := decl.Data.(ast.VarDeclData)
	if vd.Storage == ast.StorageField {
		dst := lw.b.NewTemp()
		lw.b.Emit(&Load{Dst: dst, Src: lw.curThis, Offset: vd.Offset})
		return dst
	}
	return lw.locs[decl]
}

func (lw *Lowering) lowerFieldAccess(n *ast.Node) *Location {
	d := n.Data.(ast.FieldAccessData)
	if d.Base == nil {
		return lw.readVar(d.Decl)
	}
	base := lw.lowerExpr(d.Base)
	vd := d.Decl.Data.(ast.VarDeclData)
	dst := lw.b.NewTemp()
	lw.b.Emit(&Load{Dst: dst, Src: base, Offset: vd.Offset})
	return dst
}

func (lw *Lowering) lowerCall(n *ast.Node) *Location {
	d := n.Data.(ast.CallData)

	if d.IsLength {
		base := lw.lowerExpr(d.Base)
		dst := lw.b.NewTemp()
		lw.b.Emit(&Load{Dst: dst, Src: base, Offset: -WordSize})
		return dst
	}

	if d.Base == nil {
		if ast.AncestorClass(d.Decl) != nil {
			return lw.emitMethodCall(d.Decl, lw.curThis, d.Args)
		}
		return lw.emitFreeCall(d.Decl, d.Args)
	}

	base := lw.lowerExpr(d.Base)
	return lw.emitMethodCall(d.Decl, base, d.Args)
}

func (lw *Lowering) lowerArgs(args []*ast.Node) []*Location {
	out := make([]*Location, len(args))
	for i, a := range args {
		out[i] = lw.lowerExpr(a)
	}
	return out
}

// emitFreeCall lowers a call to a free function: lower arguments, push
// in reverse order, LCall(label, has-return?), pop.
func (lw *Lowering) emitFreeCall(decl *ast.Node, args []*ast.Node) *Location {
	argLocs := lw.lowerArgs(args)
	for i := len(argLocs) - 1; i >= 0; i-- {
		lw.b.Emit(&PushParam{Param: argLocs[i]})
	}
	fd := decl.Data.(ast.FnDeclData)
	var dst *Location
	if !fd.ReturnType.IsEquivalentTo(types.Void) {
		dst = lw.b.NewTemp()
	}
	lw.b.Emit(&LCall{Label: lw.labelOf(decl), Dst: dst})
	lw.b.Emit(&PopParams{NumBytes: int64(WordSize) * int64(len(argLocs))})
	return dst
}

// emitMethodCall lowers a virtual dispatch: load
// the vtable from [obj], load the target address from
// [vtable+method.vtable-offset], pass the object as the first
// (leftmost, so last-pushed) argument, ACall, pop.
func (lw *Lowering) emitMethodCall(decl *ast.Node, base *Location, args []*ast.Node) *Location {
	argLocs := lw.lowerArgs(args)
	vtable := lw.b.NewTemp()
	lw.b.Emit(&Load{Dst: vtable, Src: base, Offset: 0})
	fd := decl.Data.(ast.FnDeclData)
	methodAddr := lw.b.NewTemp()
	lw.b.Emit(&Load{Dst: methodAddr, Src: vtable, Offset: fd.VtableOff})

	for i := len(argLocs) - 1; i >= 0; i-- {
		lw.b.Emit(&PushParam{Param: argLocs[i]})
	}
	lw.b.Emit(&PushParam{Param: base})

	var dst *Location
	if !fd.ReturnType.IsEquivalentTo(types.Void) {
		dst = lw.b.NewTemp()
	}
	lw.b.Emit(&ACall{MethodAddr: methodAddr, Dst: dst})
	lw.b.Emit(&PopParams{NumBytes: int64(WordSize) * int64(len(argLocs)+1)})
	return dst
}

// lowerNewObject calls _Alloc(class.size) and stores the vtable label
// at offset 0 of the result.
func (lw *Lowering) lowerNewObject(n *ast.Node) *Location {
	d := n.Data.(ast.NewObjectData)
	cd := d.Decl.Data.(ast.ClassDeclData)

	sizeTemp := lw.b.NewTemp()
	lw.b.Emit(&LoadConst{Dst: sizeTemp, Value: cd.InstanceSize})
	lw.b.Emit(&PushParam{Param: sizeTemp})
	result := lw.b.NewTemp()
	lw.b.Emit(&LCall{Label: builtinAlloc, Dst: result})
	lw.b.Emit(&PopParams{NumBytes: WordSize})

	vtLabel := lw.b.NewTemp()
	lw.b.Emit(&LoadLabel{Dst: vtLabel, Label: vtableLabel(cd.Name)})
	lw.b.Emit(&Store{Dst: result, Src: vtLabel, Offset: 0})
	return result
}

// lowerNewArray lowers a `new T[n]` expression: guard
// n >= 1, allocate word-size*(n+1) bytes, store n at the header word,
// return one word past the header.
func (lw *Lowering) lowerNewArray(n *ast.Node) *Location {
	d := n.Data.(ast.NewArrayExprData)
	size := lw.lowerExpr(d.Size)

	one := lw.b.NewTemp()
	lw.b.Emit(&LoadConst{Dst: one, Value: 1})
	tooSmall := lw.b.NewTemp()
	lw.b.Emit(&BinOp{Op: "<", Dst: tooSmall, Op1: size, Op2: one})
	badLabel := lw.b.NewLabelName()
	okLabel := lw.b.NewLabelName()
	lw.b.Emit(&IfZ{Test: tooSmall, Target: okLabel})
	lw.b.EmitLabel(badLabel)
	lw.emitRuntimeError(errArrBadSize)
	lw.b.EmitLabel(okLabel)

	word := lw.b.NewTemp()
	lw.b.Emit(&LoadConst{Dst: word, Value: WordSize})
	nPlus1 := lw.b.NewTemp()
	lw.b.Emit(&BinOp{Op: "+", Dst: nPlus1, Op1: size, Op2: one})
	bytes := lw.b.NewTemp()
	lw.b.Emit(&BinOp{Op: "*", Dst: bytes, Op1: word, Op2: nPlus1})
	lw.b.Emit(&PushParam{Param: bytes})
	header := lw.b.NewTemp()
	lw.b.Emit(&LCall{Label: builtinAlloc, Dst: header})
	lw.b.Emit(&PopParams{NumBytes: WordSize})
	lw.b.Emit(&Store{Dst: header, Src: size, Offset: 0})
	arr := lw.b.NewTemp()
	lw.b.Emit(&BinOp{Op: "+", Dst: arr, Op1: header, Op2: word})
	return arr
}

func (lw *Lowering) emitRuntimeError(message string) {
	msg := lw.b.NewTemp()
	lw.b.Emit(&LoadStringConst{Dst: msg, Value: message})
	lw.b.Emit(&PushParam{Param: msg})
	lw.b.Emit(&LCall{Label: builtinPrintString})
	lw.b.Emit(&PopParams{NumBytes: WordSize})
	lw.b.Emit(&LCall{Label: builtinHalt})
}

// arrayElemAddr emits the array bounds guard and
// returns the element's address, shared by both the read and the
// write path of an array subscript.
func (lw *Lowering) arrayElemAddr(n *ast.Node) *Location {
	d := n.Data.(ast.ArrayAccessData)
	base := lw.lowerExpr(d.Array)
	index := lw.lowerExpr(d.Index)

	length := lw.b.NewTemp()
	lw.b.Emit(&Load{Dst: length, Src: base, Offset: -WordSize})

	negOne := lw.b.NewTemp()
	lw.b.Emit(&LoadConst{Dst: negOne, Value: -1})
	geZero := lw.b.NewTemp()
	lw.b.Emit(&BinOp{Op: ">", Dst: geZero, Op1: index, Op2: negOne})
	ltLen := lw.b.NewTemp()
	lw.b.Emit(&BinOp{Op: "<", Dst: ltLen, Op1: index, Op2: length})
	inBounds := lw.b.NewTemp()
	lw.b.Emit(&BinOp{Op: "&&", Dst: inBounds, Op1: geZero, Op2: ltLen})

	badLabel := lw.b.NewLabelName()
	okLabel := lw.b.NewLabelName()
	lw.b.Emit(&IfZ{Test: inBounds, Target: badLabel})
	lw.b.Emit(&Goto{Target: okLabel})
	lw.b.EmitLabel(badLabel)
	lw.emitRuntimeError(errArrOutOfBounds)
	lw.b.EmitLabel(okLabel)

	word := lw.b.NewTemp()
	lw.b.Emit(&LoadConst{Dst: word, Value: WordSize})
	offset := lw.b.NewTemp()
	lw.b.Emit(&BinOp{Op: "*", Dst: offset, Op1: index, Op2: word})
	addr := lw.b.NewTemp()
	lw.b.Emit(&BinOp{Op: "+", Dst: addr, Op1: base, Op2: offset})
	return addr
}

func (lw *Lowering) lowerAssign(n *ast.Node) *Location {
	d := n.Data.(ast.AssignData)
	rhs := lw.lowerExpr(d.Rhs)
	lw.assignTo(d.Lhs, rhs)
	return rhs
}

func (lw *Lowering) assignTo(lhs *ast.Node, rhs *Location) {
	switch lhs.Type {
	case ast.Ident:
		lw.assignVar(lhs.Data.(ast.IdentData).Decl, rhs)
	case ast.FieldAccess:
		d := lhs.Data.(ast.FieldAccessData)
		if d.Base == nil {
			lw.assignVar(d.Decl, rhs)
			return
		}
		base := lw.lowerExpr(d.Base)
		vd := d.Decl.Data.(ast.VarDeclData)
		lw.b.Emit(&Store{Dst: base, Src: rhs, Offset: vd.Offset})
	case ast.ArrayAccess:
		addr := lw.arrayElemAddr(lhs)
		lw.b.Emit(&Store{Dst: addr, Src: rhs, Offset: 0})
	default:
		diag.Fatalf("assignTo: node type %v at %v is not an lvalue; sema should have rejected this", lhs.Type, lhs.Pos)
	}
}

func (lw *Lowering) assignVar(decl *ast.Node, rhs *Location) {
	vd := decl.Data.(ast.VarDeclData)
	if vd.Storage == ast.StorageField {
		lw.b.Emit(&Store{Dst: lw.curThis, Src: rhs, Offset: vd.Offset})
		return
	}
	lw.b.Emit(&Assign{Dst: lw.locs[decl], Src: rhs})
}

func (lw *Lowering) lowerBinary(n *ast.Node) *Location {
	d := n.Data.(ast.BinaryExprData)
	left := lw.lowerExpr(d.Left)
	right := lw.lowerExpr(d.Right)

	switch d.Op {
	case ast.OpAdd:
		return lw.binOp("+", left, right)
	case ast.OpSub:
		return lw.binOp("-", left, right)
	case ast.OpMul:
		return lw.binOp("*", left, right)
	case ast.OpDiv:
		return lw.binOp("/", left, right)
	case ast.OpMod:
		return lw.binOp("%", left, right)
	case ast.OpLt:
		return lw.binOp("<", left, right)
	case ast.OpGt:
		// > lowers as < with operands swapped.
		return lw.binOp("<", right, left)
	case ast.OpLe:
		lt := lw.binOp("<", left, right)
		eq := lw.binOp("==", left, right)
		return lw.binOp("||", lt, eq)
	case ast.OpGe:
		gt := lw.binOp("<", right, left)
		eq := lw.binOp("==", left, right)
		return lw.binOp("||", gt, eq)
	case ast.OpEq:
		return lw.equality(d.Left.Typ, left, right)
	case ast.OpNe:
		eq := lw.equality(d.Left.Typ, left, right)
		zero := lw.b.NewTemp()
		lw.b.Emit(&LoadConst{Dst: zero, Value: 0})
		return lw.binOp("==", eq, zero)
	}
	diag.Fatalf("lowerBinary: unhandled operator %v at %v", d.Op, n.Pos)
	return nil
}

func (lw *Lowering) binOp(op string, a, b *Location) *Location {
	dst := lw.b.NewTemp()
	lw.b.Emit(&BinOp{Op: op, Dst: dst, Op1: a, Op2: b})
	return dst
}

// equality lowers an == comparison: string operands go through the
// _StringEqual builtin, everything else through a plain == BinOp.
func (lw *Lowering) equality(operandType *types.Type, left, right *Location) *Location {
	if operandType.IsEquivalentTo(types.String) {
		lw.b.Emit(&PushParam{Param: right})
		lw.b.Emit(&PushParam{Param: left})
		dst := lw.b.NewTemp()
		lw.b.Emit(&LCall{Label: builtinStringEqual, Dst: dst})
		lw.b.Emit(&PopParams{NumBytes: 2 * WordSize})
		return dst
	}
	return lw.binOp("==", left, right)
}

func (lw *Lowering) lowerUnary(n *ast.Node) *Location {
	d := n.Data.(ast.UnaryExprData)
	operand := lw.lowerExpr(d.Expr)
	zero := lw.b.NewTemp()
	lw.b.Emit(&LoadConst{Dst: zero, Value: 0})
	switch d.Op {
	case ast.OpNeg:
		// Unary minus lowers as BinOp(-, zero, operand).
		return lw.binOp("-", zero, operand)
	case ast.OpNot:
		// Unary ! lowers as == 0.
		return lw.binOp("==", operand, zero)
	}
	diag.Fatalf("lowerUnary: unhandled operator %v at %v", d.Op, n.Pos)
	return nil
}

func (lw *Lowering) lowerLogical(n *ast.Node) *Location {
	d := n.Data.(ast.LogicalExprData)
	left := lw.lowerExpr(d.Left)
	right := lw.lowerExpr(d.Right)
	op := "&&"
	if d.Op == ast.OpOr {
		op = "||"
	}
	return lw.binOp(op, left, right)
}
