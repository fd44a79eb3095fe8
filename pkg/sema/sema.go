// Package sema is the semantic checker: it walks the declaration tree,
// resolves names via pkg/symtab, verifies type rules via pkg/types, and
// assigns field/method offsets.
//
// Class layout is computed here during checking, not deferred to code
// emission: any semantic query that needs a field offset or instance
// size runs after checking has already assigned it. assignLayout is
// memoized and idempotent (checked via a nonzero instance size), and
// pkg/tac simply reads the already-assigned offsets. See DESIGN.md.
package sema

import (
	"github.com/decafc/decafc/pkg/ast"
	"github.com/decafc/decafc/pkg/diag"
	"github.com/decafc/decafc/pkg/source"
	"github.com/decafc/decafc/pkg/symtab"
	"github.com/decafc/decafc/pkg/types"
)

// WordSize is the target machine word size in bytes (32-bit words),
// used only for layout arithmetic here; pkg/tac uses the same constant
// for frame offsets.
const WordSize = 4

const lengthBuiltinName = "length"

type Checker struct {
	reporter diag.Reporter
	classes  map[string]*ast.Node
	ifaces   map[string]*ast.Node
	classTy  map[string]*types.Type
	program  *ast.Node
}

func NewChecker(reporter diag.Reporter) *Checker {
	return &Checker{
		reporter: reporter,
		classes:  make(map[string]*ast.Node),
		ifaces:   make(map[string]*ast.Node),
		classTy:  make(map[string]*types.Type),
	}
}

// Check runs the full semantic pass over program: build the top-level
// table, resolve/strip base classes,
// check every class member, assign layout, check function bodies, then
// require `main`. It never panics on user errors: type errors poison
// the offending subtree to types.Error and checking continues.
func (c *Checker) Check(program *ast.Node) {
	ast.Link(program)
	c.program = program

	symtab.Build(program, func(name string, _, dup *ast.Node) {
		c.reporter.Report(diag.DeclarationConflict, dup.Pos, "Declaration of '%s' conflicts with prior declaration", name)
	})

	data := program.Data.(ast.ProgramData)
	for _, d := range data.Decls {
		switch d.Type {
		case ast.ClassDecl:
			cd := d.Data.(ast.ClassDeclData)
			c.classes[cd.Name] = d
		case ast.InterfaceDecl:
			id := d.Data.(ast.InterfaceDeclData)
			c.ifaces[id.Name] = d
		}
	}

	c.bindDeclaredTypes(program)

	for _, d := range data.Decls {
		if d.Type == ast.ClassDecl {
			c.resolveBase(d)
		}
	}
	for _, d := range data.Decls {
		if d.Type == ast.ClassDecl {
			c.checkClassMembers(d)
		}
	}
	for _, d := range data.Decls {
		if d.Type == ast.ClassDecl {
			c.assignLayout(d)
		}
	}
	for _, d := range data.Decls {
		if d.Type == ast.FnDecl {
			c.checkFunction(d)
		}
		if d.Type == ast.ClassDecl {
			cd := d.Data.(ast.ClassDeclData)
			for _, m := range cd.Members {
				if m.Type == ast.FnDecl {
					c.checkFunction(m)
				}
			}
		}
	}

	c.requireMain(data.Decls)
}

// resolveBase looks up a class's `extends` name and either binds
// ResolvedBase or strips the link: an unresolved base name is reported
// and the extends link stripped; a class extending itself directly is
// also reported and stripped. The cycle check here is deliberately a
// single-step identity comparison -- a longer cycle (A extends B, B
// extends A) is not caught at this point. IsDerivedFrom below bounds
// its own walk with a visited set and treats a runaway chain as an
// internal invariant failure rather than looping forever.
func (c *Checker) resolveBase(class *ast.Node) {
	cd := class.Data.(ast.ClassDeclData)
	if cd.Base == "" {
		return
	}
	base, ok := c.classes[cd.Base]
	if !ok {
		c.reporter.Report(diag.IdentifierNotDeclared, class.Pos, "No declaration for class '%s' found", cd.Base)
		cd.Base = ""
		class.Data = cd
		return
	}
	if base == class {
		c.reporter.Report(diag.DeclarationConflict, class.Pos, "Class '%s' extends itself", cd.Name)
		cd.Base = ""
		class.Data = cd
		return
	}
	cd.ResolvedBase = base
	class.Data = cd
}

// IsDerivedFrom reports whether class a is b or transitively extends b.
// fieldAccessible in expr.go uses it for field-access accessibility
// (access to a field is allowed only from a derived-or-equal class).
func (c *Checker) IsDerivedFrom(a, b *ast.Node) bool {
	if a == nil || b == nil {
		return false
	}
	visited := make(map[*ast.Node]bool)
	for cur := a; cur != nil; {
		if cur == b {
			return true
		}
		if visited[cur] {
			diag.Fatalf("cyclic class hierarchy escaped resolveBase's guard at %v", cur.Pos)
		}
		visited[cur] = true
		cd, ok := cur.Data.(ast.ClassDeclData)
		if !ok {
			return false
		}
		cur = cd.ResolvedBase
	}
	return false
}

// derivesWalker adapts IsDerivedFrom to types.BaseChainWalker so pkg/types
// stays independent of pkg/ast.
func (c *Checker) derivesWalker() types.BaseChainWalker {
	return func(a, b interface{}) bool {
		an, aok := a.(*ast.Node)
		bn, bok := b.(*ast.Node)
		if !aok || !bok {
			return false
		}
		return c.IsDerivedFrom(an, bn)
	}
}

func (c *Checker) convertible(from, to *types.Type) bool {
	return from.IsConvertibleTo(to, c.derivesWalker())
}

// classType returns the canonical Named type for a class, bound to its
// declaration so convertibility's base-chain walk works. Unresolved
// names still get a Type (bound to nil) so callers can poison an
// expression's Typ to it without a nil check at every use site.
func (c *Checker) classType(name string) *types.Type {
	if t, ok := c.classTy[name]; ok {
		return t
	}
	t := types.NewNamed(name)
	if class, ok := c.classes[name]; ok {
		t.BindClass(class)
	}
	c.classTy[name] = t
	return t
}

// checkClassMembers checks per-member rules: field
// name conflicts with an ancestor, and method override compatibility.
func (c *Checker) checkClassMembers(class *ast.Node) {
	symtab.Build(class, func(name string, _, dup *ast.Node) {
		c.reporter.Report(diag.DeclarationConflict, dup.Pos, "Declaration of '%s' conflicts with prior declaration", name)
	})
	cd := class.Data.(ast.ClassDeclData)
	for _, m := range cd.Members {
		switch m.Type {
		case ast.VarDecl:
			c.checkFieldConflict(cd, m)
		case ast.FnDecl:
			c.checkOverride(cd, m)
			c.checkReturnTypeResolves(m)
		}
	}
}

func (c *Checker) checkFieldConflict(cd ast.ClassDeclData, field *ast.Node) {
	vd := field.Data.(ast.VarDeclData)
	if cd.ResolvedBase == nil {
		return
	}
	if _, found := symtab.LookupClassChain(cd.ResolvedBase, vd.Name); found {
		c.reporter.Report(diag.DeclarationConflict, field.Pos, "Declaration of '%s' conflicts with declaration in base class", vd.Name)
	}
}

// checkOverride requires a method to match any same-named method in
// its base class: same return type and same arity with position-wise
// equivalent formal types; a mismatch reports override-mismatch, and a
// base name that resolves to a non-function reports a conflict.
func (c *Checker) checkOverride(cd ast.ClassDeclData, fn *ast.Node) {
	if cd.ResolvedBase == nil {
		return
	}
	baseMember, found := symtab.LookupClassChain(cd.ResolvedBase, fn.Data.(ast.FnDeclData).Name)
	if !found {
		return
	}
	if baseMember.Type != ast.FnDecl {
		c.reporter.Report(diag.DeclarationConflict, fn.Pos, "Declaration of '%s' conflicts with declaration in base class", fn.Data.(ast.FnDeclData).Name)
		return
	}
	fd, bd := fn.Data.(ast.FnDeclData), baseMember.Data.(ast.FnDeclData)
	mismatched := !fd.ReturnType.IsEquivalentTo(bd.ReturnType) || len(fd.Formals) != len(bd.Formals)
	if !mismatched {
		for i := range fd.Formals {
			ft := fd.Formals[i].Data.(ast.VarDeclData).Typ
			bt := bd.Formals[i].Data.(ast.VarDeclData).Typ
			if !ft.IsEquivalentTo(bt) {
				mismatched = true
				break
			}
		}
	}
	if mismatched {
		c.reporter.Report(diag.OverrideMismatch, fn.Pos, "Method '%s' must match inherited signature", fd.Name)
	}
}

func (c *Checker) checkReturnTypeResolves(fn *ast.Node) {
	fd := fn.Data.(ast.FnDeclData)
	if fd.ReturnType != nil && fd.ReturnType.Kind == types.KindNamed {
		if _, ok := c.classes[fd.ReturnType.Name]; !ok {
			c.reporter.Report(diag.IdentifierNotDeclared, fn.Pos, "No declaration for class '%s' found", fd.ReturnType.Name)
		}
	}
}

// assignLayout computes a class's memory layout: base's size
// first (recursively, memoized via nonzero InstanceSize), one reserved
// word for the vtable pointer, then each own field grows the size by a
// word; the method table starts as a copy of the base's, own methods
// either replace a matching slot in place or append.
func (c *Checker) assignLayout(class *ast.Node) {
	cd := class.Data.(ast.ClassDeclData)
	if cd.InstanceSize != 0 {
		return
	}
	var size int64 = int64(WordSize)
	var methodTable []*ast.Node
	if cd.ResolvedBase != nil {
		c.assignLayout(cd.ResolvedBase)
		baseData := cd.ResolvedBase.Data.(ast.ClassDeclData)
		size = baseData.InstanceSize
		methodTable = append(methodTable, baseData.MethodTable...)
	}
	for _, m := range cd.Members {
		switch m.Type {
		case ast.VarDecl:
			vd := m.Data.(ast.VarDeclData)
			vd.Offset = size
			vd.Storage = ast.StorageField
			m.Data = vd
			size += int64(WordSize)
		case ast.FnDecl:
			fd := m.Data.(ast.FnDeclData)
			replaced := false
			for i, slot := range methodTable {
				if slot.Data.(ast.FnDeclData).Name == fd.Name {
					fd.VtableOff = int64(i) * int64(WordSize)
					m.Data = fd
					methodTable[i] = m
					replaced = true
					break
				}
			}
			if !replaced {
				fd.VtableOff = int64(len(methodTable)) * int64(WordSize)
				m.Data = fd
				methodTable = append(methodTable, m)
			}
		}
	}
	cd.InstanceSize = size
	cd.MethodTable = methodTable
	class.Data = cd
}

// bindDeclaredTypes rewrites every declared type -- VarDecl.Typ and
// FnDecl.ReturnType -- created by the parser so that any Named type
// (bare or array-of) shares the single classType instance for its name.
// The parser has no Checker to consult when it reads a type annotation,
// so it stamps a plain types.NewNamed(name) with no class binding;
// without this pass a declared type like "Animal a" would never
// satisfy IsConvertibleTo's base-chain walk against a "new Dog()"
// expression's checker-bound type.
func (c *Checker) bindDeclaredTypes(n *ast.Node) {
	if n == nil {
		return
	}
	for _, child := range ast.Children(n) {
		c.bindDeclaredTypes(child)
	}
	switch d := n.Data.(type) {
	case ast.VarDeclData:
		d.Typ = c.rebindType(d.Typ)
		n.Data = d
	case ast.FnDeclData:
		d.ReturnType = c.rebindType(d.ReturnType)
		n.Data = d
	}
}

func (c *Checker) rebindType(t *types.Type) *types.Type {
	if t == nil {
		return nil
	}
	switch t.Kind {
	case types.KindNamed:
		return c.classType(t.Name)
	case types.KindArray:
		return types.NewArray(c.rebindType(t.Elem))
	default:
		return t
	}
}

func (c *Checker) requireMain(decls []*ast.Node) {
	for _, d := range decls {
		if d.Type != ast.FnDecl {
			continue
		}
		fd := d.Data.(ast.FnDeclData)
		if fd.Name == "main" && len(fd.Formals) == 0 {
			return
		}
	}
	c.reporter.Report(diag.NoMainFound, source.Pos{}, "Linker: function 'main' not found")
}
