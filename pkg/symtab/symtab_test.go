package symtab

import (
	"testing"

	"github.com/decafc/decafc/pkg/ast"
	"github.com/decafc/decafc/pkg/source"
	"github.com/decafc/decafc/pkg/types"
)

func TestInsertFirstOccurrenceWins(t *testing.T) {
	tbl := newTable(nil)
	first := ast.NewVarDecl(source.Pos{}, "x", types.Int, ast.StorageLocal)
	dup := ast.NewVarDecl(source.Pos{Line: 2}, "x", types.Int, ast.StorageLocal)

	if ok := tbl.Insert("x", first); !ok {
		t.Fatalf("first Insert of a fresh name must succeed")
	}
	if ok := tbl.Insert("x", dup); ok {
		t.Fatalf("second Insert of the same name must fail")
	}
	got, ok := tbl.Local("x")
	if !ok || got != first {
		t.Fatalf("Local(%q) = %v, %v; want the first declaration", "x", got, ok)
	}
}

func TestBuildReportsConflictOnce(t *testing.T) {
	a := ast.NewVarDecl(source.Pos{}, "n", types.Int, ast.StorageField)
	b := ast.NewVarDecl(source.Pos{Line: 2}, "n", types.Int, ast.StorageField)
	c := ast.NewVarDecl(source.Pos{Line: 3}, "n", types.Int, ast.StorageField)
	class := ast.NewClassDecl(source.Pos{}, "C", "", nil, []*ast.Node{a, b, c})

	var conflicts []string
	Build(class, func(name string, first, dup *ast.Node) {
		conflicts = append(conflicts, name)
		if first != a {
			t.Errorf("conflict callback's first should always be the original declaration")
		}
	})

	if len(conflicts) != 2 {
		t.Fatalf("got %d conflicts, want 2 (b and c both collide with a)", len(conflicts))
	}
}

func TestBuildIsMemoized(t *testing.T) {
	class := ast.NewClassDecl(source.Pos{}, "C", "", nil, nil)
	t1 := Build(class, nil)
	t2 := Build(class, nil)
	if t1 != t2 {
		t.Fatalf("Build should return the same *Table on a second call for the same node")
	}
}

func TestLookupLocalDoesNotEscapeScope(t *testing.T) {
	inner := ast.NewVarDecl(source.Pos{}, "x", types.Int, ast.StorageLocal)
	block := ast.NewBlock(source.Pos{}, []*ast.Node{inner})
	outer := ast.NewVarDecl(source.Pos{}, "y", types.Int, ast.StorageGlobal)
	fn := ast.NewFnDecl(source.Pos{}, "f", types.Void, nil, block)
	program := ast.NewProgram([]*ast.Node{outer, fn})
	ast.Link(program)
	Build(program, nil)
	Build(block, nil)

	if _, ok := LookupLocal(block, "x"); !ok {
		t.Fatalf("LookupLocal should find x declared directly in block")
	}
	if _, ok := LookupLocal(block, "y"); ok {
		t.Fatalf("LookupLocal should not find y, which is bound only in the enclosing program scope")
	}
}

func TestLookupAncestorChainWalksToRoot(t *testing.T) {
	outer := ast.NewVarDecl(source.Pos{}, "outer", types.Int, ast.StorageLocal)
	inner := ast.NewBlock(source.Pos{}, nil)
	fn := ast.NewFnDecl(source.Pos{}, "f", types.Void, nil, inner)
	program := ast.NewProgram([]*ast.Node{outer, fn})
	ast.Link(program)

	Build(program, nil)
	Build(inner, nil)

	if _, ok := LookupAncestorChain(inner, "outer"); !ok {
		t.Fatalf("LookupAncestorChain should walk from inner block up to the program scope")
	}
	if _, ok := LookupAncestorChain(inner, "missing"); ok {
		t.Fatalf("LookupAncestorChain should not fabricate a binding")
	}
}

func TestLookupClassChainFollowsResolvedBaseOnly(t *testing.T) {
	baseField := ast.NewVarDecl(source.Pos{}, "f", types.Int, ast.StorageField)
	base := ast.NewClassDecl(source.Pos{}, "Base", "", nil, []*ast.Node{baseField})
	derived := ast.NewClassDecl(source.Pos{}, "Derived", "Base", nil, nil)
	derived.Data = ast.ClassDeclData{
		Name:         "Derived",
		Base:         "Base",
		ResolvedBase: base,
	}

	Build(base, nil)
	Build(derived, nil)

	if _, ok := LookupClassChain(derived, "f"); !ok {
		t.Fatalf("LookupClassChain should find a field declared on the resolved base")
	}

	// An unresolved base name (ResolvedBase == nil) must not fall through
	// to program scope, or class lookups would leak into module globals.
	orphan := ast.NewClassDecl(source.Pos{}, "Orphan", "Missing", nil, nil)
	Build(orphan, nil)
	if _, ok := LookupClassChain(orphan, "f"); ok {
		t.Fatalf("LookupClassChain must not resolve past an unresolved base")
	}
}

func TestForEachIsDeterministic(t *testing.T) {
	names := []string{"zeta", "alpha", "mu", "beta"}
	var members []*ast.Node
	for _, n := range names {
		members = append(members, ast.NewVarDecl(source.Pos{}, n, types.Int, ast.StorageField))
	}
	class := ast.NewClassDecl(source.Pos{}, "C", "", nil, members)
	tbl := Build(class, nil)

	var got []string
	tbl.ForEach(func(name string, _ *ast.Node) { got = append(got, name) })

	want := []string{"alpha", "beta", "mu", "zeta"}
	if len(got) != len(want) {
		t.Fatalf("got %d names, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ForEach order = %v, want sorted %v", got, want)
		}
	}

	// Two independent ForEach calls must agree, since the order comes from
	// sorting the names rather than from map iteration.
	var second []string
	tbl.ForEach(func(name string, _ *ast.Node) { second = append(second, name) })
	for i := range got {
		if got[i] != second[i] {
			t.Fatalf("ForEach order changed between calls: %v vs %v", got, second)
		}
	}
}
