package sema

import (
	"testing"

	"github.com/decafc/decafc/pkg/ast"
	"github.com/decafc/decafc/pkg/diag"
	"github.com/decafc/decafc/pkg/source"
	"github.com/decafc/decafc/pkg/types"
)

func classDecl(name, base string, members ...*ast.Node) *ast.Node {
	return ast.NewClassDecl(source.Pos{}, name, base, nil, members)
}

func fnDecl(name string, ret *types.Type, formals ...*ast.Node) *ast.Node {
	return ast.NewFnDecl(source.Pos{}, name, ret, formals, ast.NewBlock(source.Pos{}, nil))
}

func mainFn() *ast.Node { return fnDecl("main", types.Void) }

func TestLayoutGrowsMonotonicallyThroughInheritance(t *testing.T) {
	base := classDecl("Base", "",
		ast.NewVarDecl(source.Pos{}, "x", types.Int, ast.StorageField),
	)
	derived := classDecl("Derived", "Base",
		ast.NewVarDecl(source.Pos{}, "y", types.Int, ast.StorageField),
	)
	program := ast.NewProgram([]*ast.Node{base, derived, mainFn()})

	c := NewChecker(diag.NewNullReporter())
	c.Check(program)

	baseData := base.Data.(ast.ClassDeclData)
	derivedData := derived.Data.(ast.ClassDeclData)

	if derivedData.ResolvedBase != base {
		t.Fatalf("Derived.ResolvedBase = %v, want Base", derivedData.ResolvedBase)
	}
	if derivedData.InstanceSize <= baseData.InstanceSize {
		t.Fatalf("Derived.InstanceSize (%d) must exceed Base.InstanceSize (%d)", derivedData.InstanceSize, baseData.InstanceSize)
	}
	if derivedData.InstanceSize != baseData.InstanceSize+WordSize {
		t.Fatalf("Derived.InstanceSize = %d, want Base's %d + one field word", derivedData.InstanceSize, baseData.InstanceSize)
	}

	// One reserved word for the vtable pointer, then one field.
	wantBaseSize := int64(WordSize) + int64(WordSize)
	if baseData.InstanceSize != wantBaseSize {
		t.Fatalf("Base.InstanceSize = %d, want %d (vtable word + one field)", baseData.InstanceSize, wantBaseSize)
	}
}

func TestVtableInheritsAndAppendsMethods(t *testing.T) {
	baseMethod := fnDecl("speak", types.Void)
	base := classDecl("Animal", "", baseMethod)
	derivedMethod := fnDecl("fetch", types.Void)
	derived := classDecl("Dog", "Animal", derivedMethod)
	program := ast.NewProgram([]*ast.Node{base, derived, mainFn()})

	c := NewChecker(diag.NewNullReporter())
	c.Check(program)

	dd := derived.Data.(ast.ClassDeclData)
	if len(dd.MethodTable) != 2 {
		t.Fatalf("Dog's method table has %d entries, want 2 (inherited speak + own fetch)", len(dd.MethodTable))
	}
	if dd.MethodTable[0] != baseMethod {
		t.Fatalf("slot 0 should be the inherited speak method")
	}
	if dd.MethodTable[1] != derivedMethod {
		t.Fatalf("slot 1 should be Dog's own fetch method")
	}
}

func TestOverrideReplacesVtableSlotInPlace(t *testing.T) {
	baseMethod := fnDecl("speak", types.Void)
	base := classDecl("Animal", "", baseMethod)
	overrideMethod := fnDecl("speak", types.Void)
	derived := classDecl("Dog", "Animal", overrideMethod)
	program := ast.NewProgram([]*ast.Node{base, derived, mainFn()})

	c := NewChecker(diag.NewNullReporter())
	c.Check(program)

	dd := derived.Data.(ast.ClassDeclData)
	if len(dd.MethodTable) != 1 {
		t.Fatalf("Dog's method table has %d entries, want 1 (override replaces in place)", len(dd.MethodTable))
	}
	if dd.MethodTable[0] != overrideMethod {
		t.Fatalf("Dog's speak slot should hold the override, not the base method")
	}
	overrideVtableOff := overrideMethod.Data.(ast.FnDeclData).VtableOff
	baseVtableOff := baseMethod.Data.(ast.FnDeclData).VtableOff
	if overrideVtableOff != baseVtableOff {
		t.Fatalf("override's vtable offset (%d) must match the base method's (%d)", overrideVtableOff, baseVtableOff)
	}
}

func TestOverrideMismatchReported(t *testing.T) {
	base := classDecl("Animal", "", fnDecl("speak", types.Void))
	// Same name, incompatible return type: must be flagged.
	derived := classDecl("Dog", "Animal", fnDecl("speak", types.Int))
	program := ast.NewProgram([]*ast.Node{base, derived, mainFn()})

	reporter := diag.NewNullReporter()
	c := NewChecker(reporter)
	c.Check(program)

	found := false
	for _, k := range reporter.Kinds() {
		if k == diag.OverrideMismatch {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an OverrideMismatch diagnostic, got kinds %v", reporter.Kinds())
	}
}

func TestMissingMainReported(t *testing.T) {
	program := ast.NewProgram([]*ast.Node{classDecl("Empty", "")})
	reporter := diag.NewNullReporter()
	c := NewChecker(reporter)
	c.Check(program)

	found := false
	for _, k := range reporter.Kinds() {
		if k == diag.NoMainFound {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a NoMainFound diagnostic when no zero-arg main exists")
	}
}

func TestSelfExtendingClassStripsBaseAndReports(t *testing.T) {
	// A class whose Base names itself: resolveBase's single-step check
	// must catch this directly (indirect cycles are not checked there).
	self := ast.NewClassDecl(source.Pos{}, "Loop", "Loop", nil, nil)
	program := ast.NewProgram([]*ast.Node{self, mainFn()})

	reporter := diag.NewNullReporter()
	c := NewChecker(reporter)
	c.Check(program)

	cd := self.Data.(ast.ClassDeclData)
	if cd.ResolvedBase != nil {
		t.Fatalf("a class extending itself must end up with no ResolvedBase")
	}
	found := false
	for _, k := range reporter.Kinds() {
		if k == diag.DeclarationConflict {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a DeclarationConflict diagnostic for a self-extending class")
	}
}

func TestFieldConflictWithBaseReported(t *testing.T) {
	base := classDecl("Base", "", ast.NewVarDecl(source.Pos{}, "x", types.Int, ast.StorageField))
	derived := classDecl("Derived", "Base", ast.NewVarDecl(source.Pos{}, "x", types.Int, ast.StorageField))
	program := ast.NewProgram([]*ast.Node{base, derived, mainFn()})

	reporter := diag.NewNullReporter()
	c := NewChecker(reporter)
	c.Check(program)

	found := false
	for _, k := range reporter.Kinds() {
		if k == diag.DeclarationConflict {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a DeclarationConflict diagnostic when a derived field shadows a base field")
	}
}

func TestIsDerivedFromWalksChain(t *testing.T) {
	base := classDecl("Animal", "")
	mid := classDecl("Dog", "Animal")
	leaf := classDecl("Puppy", "Dog")
	program := ast.NewProgram([]*ast.Node{base, mid, leaf, mainFn()})

	c := NewChecker(diag.NewNullReporter())
	c.Check(program)

	if !c.IsDerivedFrom(leaf, base) {
		t.Fatalf("Puppy should transitively derive from Animal")
	}
	if !c.IsDerivedFrom(leaf, leaf) {
		t.Fatalf("a class is derived from itself")
	}
	if c.IsDerivedFrom(base, leaf) {
		t.Fatalf("Animal must not be considered derived from Puppy")
	}
}
