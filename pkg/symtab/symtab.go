// Package symtab implements per-scope symbol tables: a name->Decl
// mapping with unique keys per table, and three lookup disciplines
// (local, ancestor-chain, class-chain).
package symtab

import (
	"github.com/cespare/xxhash/v2"

	"github.com/decafc/decafc/pkg/ast"
)

// Table is a single scope's mapping from name to declaration.
type Table struct {
	names map[string]*ast.Node
	owner *ast.Node
}

func newTable(owner *ast.Node) *Table {
	return &Table{names: make(map[string]*ast.Node), owner: owner}
}

// key hashes a name with xxhash. Table and Build key on the name string
// itself and do not call key.
func key(name string) uint64 { return xxhash.Sum64String(name) }

// Insert adds name->decl to the table. It returns false, without
// modifying the table, if name is already bound locally: first
// occurrence wins.
func (t *Table) Insert(name string, decl *ast.Node) bool {
	if _, exists := t.names[name]; exists {
		return false
	}
	t.names[name] = decl
	return true
}

// Local looks up name only in this table .
func (t *Table) Local(name string) (*ast.Node, bool) {
	d, ok := t.names[name]
	return d, ok
}

// forEach yields every binding, deterministically sorted by name, so a
// caller does not depend on Go's randomized map order.
func (t *Table) forEach(fn func(name string, decl *ast.Node)) {
	names := make([]string, 0, len(t.names))
	for n := range t.names {
		names = append(names, n)
	}
	sortStrings(names)
	for _, n := range names {
		fn(n, t.names[n])
	}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// ForEach exposes the deterministic iteration order.
func (t *Table) ForEach(fn func(name string, decl *ast.Node)) { t.forEach(fn) }

// tableOf fetches (or the caller may lazily build) the Table an AST node
// holds in its Scope field, isolating the interface{} type assertion the
// ast package intentionally avoids owning (it must not import symtab,
// or symtab would need to import ast for Node, forming a cycle the other
// way -- so ast.Node.Scope stays untyped and symtab type-asserts here).
func tableOf(n *ast.Node) (*Table, bool) {
	if n == nil || n.Scope == nil {
		return nil, false
	}
	t, ok := n.Scope.(*Table)
	return t, ok
}

// Build lazily constructs the symbol table for a scope-introducing node
// (Program, ClassDecl, InterfaceDecl, FnDecl, Block) on first visit: a
// fresh table is built by scanning immediate members and inserting each;
// duplicates at the same scope emit a declaration-conflict diagnostic,
// with first occurrence winning. onConflict is invoked (not resolved
// here) so callers control diagnostic wording/kind.
func Build(n *ast.Node, onConflict func(name string, first, dup *ast.Node)) *Table {
	if t, ok := tableOf(n); ok {
		return t
	}
	t := newTable(n)
	for _, member := range membersOf(n) {
		name, ok := bindableName(member)
		if !ok {
			continue
		}
		if !t.Insert(name, member) {
			if onConflict != nil {
				first, _ := t.Local(name)
				onConflict(name, first, member)
			}
			continue
		}
	}
	n.Scope = t
	return t
}

// membersOf returns the declarations a scope-introducing node binds
// directly: class/interface members, function formals, block
// declarations, or top-level program declarations.
func membersOf(n *ast.Node) []*ast.Node {
	switch d := n.Data.(type) {
	case ast.ProgramData:
		return d.Decls
	case ast.ClassDeclData:
		return d.Members
	case ast.InterfaceDeclData:
		return d.Members
	case ast.FnDeclData:
		return d.Formals
	case ast.BlockData:
		out := make([]*ast.Node, 0, len(d.Stmts))
		for _, s := range d.Stmts {
			if s.Type == ast.VarDecl {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func bindableName(n *ast.Node) (string, bool) {
	switch d := n.Data.(type) {
	case ast.VarDeclData:
		return d.Name, true
	case ast.FnDeclData:
		return d.Name, true
	case ast.ClassDeclData:
		return d.Name, true
	case ast.InterfaceDeclData:
		return d.Name, true
	}
	return "", false
}

// LookupLocal implements the "local" discipline: the receiving node's
// own table only.
func LookupLocal(n *ast.Node, name string) (*ast.Node, bool) {
	t, ok := tableOf(n)
	if !ok {
		return nil, false
	}
	return t.Local(name)
}

// LookupAncestorChain implements the "ancestor-chain" discipline: local,
// else recurse into Parent, all the way to the Program root.
func LookupAncestorChain(n *ast.Node, name string) (*ast.Node, bool) {
	for cur := n; cur != nil; cur = cur.Parent {
		if t, ok := tableOf(cur); ok {
			if d, found := t.Local(name); found {
				return d, true
			}
		}
	}
	return nil, false
}

// LookupClassChain implements the "class-chain" discipline used for
// inherited field/method resolution: local, else if the owning class
// has a resolved base, continue into the base's class-chain. It does
// NOT escape into the enclosing program scope.
func LookupClassChain(class *ast.Node, name string) (*ast.Node, bool) {
	for cur := class; cur != nil; {
		if t, ok := tableOf(cur); ok {
			if d, found := t.Local(name); found {
				return d, true
			}
		}
		cd, ok := cur.Data.(ast.ClassDeclData)
		if !ok {
			return nil, false
		}
		cur = cd.ResolvedBase
	}
	return nil, false
}
