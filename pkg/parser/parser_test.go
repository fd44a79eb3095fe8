package parser

import (
	"testing"

	"github.com/decafc/decafc/pkg/ast"
	"github.com/decafc/decafc/pkg/diag"
	"github.com/decafc/decafc/pkg/lexer"
	"github.com/decafc/decafc/pkg/types"
)

func parseSource(t *testing.T, src string) (*ast.Node, *diag.NullReporter) {
	t.Helper()
	reporter := diag.NewNullReporter()
	lx := lexer.New([]rune(src), 0, reporter)
	p := New(lx, reporter)
	return p.Parse(), reporter
}

func TestParseClassWithFieldsAndMethods(t *testing.T) {
	src := `
class Animal {
    int age;
    void speak() { Print("..."); }
}
`
	program, reporter := parseSource(t, src)
	if reporter.Count() != 0 {
		t.Fatalf("unexpected syntax errors: %v", reporter.Kinds())
	}
	decls := program.Data.(ast.ProgramData).Decls
	if len(decls) != 1 || decls[0].Type != ast.ClassDecl {
		t.Fatalf("expected a single ClassDecl, got %v", decls)
	}
	cd := decls[0].Data.(ast.ClassDeclData)
	if cd.Name != "Animal" || len(cd.Members) != 2 {
		t.Fatalf("Animal should have 2 members, got %+v", cd)
	}
	if cd.Members[0].Type != ast.VarDecl || cd.Members[1].Type != ast.FnDecl {
		t.Fatalf("expected field then method, got %v then %v", cd.Members[0].Type, cd.Members[1].Type)
	}
}

func TestParseClassExtendsAndImplements(t *testing.T) {
	src := `
interface Barks { void bark(); }
class Dog extends Animal implements Barks {
    void bark() { }
}
`
	program, reporter := parseSource(t, src)
	if reporter.Count() != 0 {
		t.Fatalf("unexpected syntax errors: %v", reporter.Kinds())
	}
	decls := program.Data.(ast.ProgramData).Decls
	dog := decls[1].Data.(ast.ClassDeclData)
	if dog.Base != "Animal" {
		t.Fatalf("Base = %q, want Animal", dog.Base)
	}
	if len(dog.Implements) != 1 || dog.Implements[0] != "Barks" {
		t.Fatalf("Implements = %v, want [Barks]", dog.Implements)
	}
}

func TestOperatorPrecedenceClimbing(t *testing.T) {
	// 1 + 2 * 3 must parse as 1 + (2 * 3), not (1 + 2) * 3.
	src := `int main() { int x; x = 1 + 2 * 3; }`
	program, reporter := parseSource(t, src)
	if reporter.Count() != 0 {
		t.Fatalf("unexpected syntax errors: %v", reporter.Kinds())
	}
	fn := program.Data.(ast.ProgramData).Decls[0].Data.(ast.FnDeclData)
	stmts := fn.Body.Data.(ast.BlockData).Stmts
	assignStmt := stmts[1].Data.(ast.ExprStmtData).Expr
	assign := assignStmt.Data.(ast.AssignData)
	top := assign.Rhs.Data.(ast.BinaryExprData)
	if top.Op != ast.OpAdd {
		t.Fatalf("top-level operator = %v, want OpAdd", top.Op)
	}
	right := top.Right.Data.(ast.BinaryExprData)
	if right.Op != ast.OpMul {
		t.Fatalf("right operand should be the (2 * 3) subtree, got op %v", right.Op)
	}
}

func TestLocalVarDeclDisambiguatedFromExprStmt(t *testing.T) {
	// "Foo x;" is a local declaration; "x.bar();" is an expression
	// statement -- both start with an identifier, disambiguated by
	// whether a second identifier follows.
	src := `
void f() {
    Foo x;
    x.bar();
}
`
	program, reporter := parseSource(t, src)
	if reporter.Count() != 0 {
		t.Fatalf("unexpected syntax errors: %v", reporter.Kinds())
	}
	fn := program.Data.(ast.ProgramData).Decls[0].Data.(ast.FnDeclData)
	stmts := fn.Body.Data.(ast.BlockData).Stmts
	if len(stmts) != 2 {
		t.Fatalf("got %d statements, want 2", len(stmts))
	}
	if stmts[0].Type != ast.VarDecl {
		t.Fatalf("first statement should be a VarDecl, got %v", stmts[0].Type)
	}
	if stmts[1].Type != ast.ExprStmt {
		t.Fatalf("second statement should be an ExprStmt, got %v", stmts[1].Type)
	}
}

func TestArrayTypeAndNewArray(t *testing.T) {
	src := `void f() { int[] xs; xs = NewArray(10, int); }`
	program, reporter := parseSource(t, src)
	if reporter.Count() != 0 {
		t.Fatalf("unexpected syntax errors: %v", reporter.Kinds())
	}
	fn := program.Data.(ast.ProgramData).Decls[0].Data.(ast.FnDeclData)
	stmts := fn.Body.Data.(ast.BlockData).Stmts
	decl := stmts[0].Data.(ast.VarDeclData)
	if decl.Typ.Kind != types.KindArray {
		t.Fatalf("declared type should be an array kind, got %v", decl.Typ.Kind)
	}
	assign := stmts[1].Data.(ast.ExprStmtData).Expr.Data.(ast.AssignData)
	if assign.Rhs.Type != ast.NewArrayExpr {
		t.Fatalf("rhs should be a NewArrayExpr, got %v", assign.Rhs.Type)
	}
}

func TestSyntaxErrorReportedOnMissingSemicolon(t *testing.T) {
	src := `void f() { int x }`
	_, reporter := parseSource(t, src)
	if reporter.Count() == 0 {
		t.Fatalf("expected a syntax error for a missing semicolon")
	}
	found := false
	for _, k := range reporter.Kinds() {
		if k == diag.SyntaxError {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a SyntaxError diagnostic, got %v", reporter.Kinds())
	}
}

func TestUnqualifiedCallVsFieldAccess(t *testing.T) {
	src := `void f() { foo(); this.bar; }`
	program, reporter := parseSource(t, src)
	if reporter.Count() != 0 {
		t.Fatalf("unexpected syntax errors: %v", reporter.Kinds())
	}
	fn := program.Data.(ast.ProgramData).Decls[0].Data.(ast.FnDeclData)
	stmts := fn.Body.Data.(ast.BlockData).Stmts

	call := stmts[0].Data.(ast.ExprStmtData).Expr
	if call.Type != ast.Call {
		t.Fatalf("expected a Call node, got %v", call.Type)
	}
	if call.Data.(ast.CallData).Base != nil {
		t.Fatalf("an unqualified call should have a nil Base")
	}

	access := stmts[1].Data.(ast.ExprStmtData).Expr
	if access.Type != ast.FieldAccess {
		t.Fatalf("expected a FieldAccess node, got %v", access.Type)
	}
	if access.Data.(ast.FieldAccessData).Base.Type != ast.ThisExpr {
		t.Fatalf("this.bar's Base should be a ThisExpr")
	}
}
