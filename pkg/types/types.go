// Package types is the type registry: primitive
// singletons, equivalence, and convertibility. It has no dependency on
// pkg/ast so that pkg/ast, pkg/symtab and pkg/sema can all sit on top of
// it without a cycle.
package types

// Kind tags a Type's variant: primitive, named class/interface, or array.
type Kind int

const (
	KindPrimitive Kind = iota
	KindNamed
	KindArray
)

// Intrinsic enumerates the primitive type set, including the two
// internal sentinels: Error (absorptive, suppresses cascades) and Null
// (convertible to any Named type only).
type Intrinsic int

const (
	IntInt Intrinsic = iota
	IntDouble
	IntBool
	IntString
	IntVoid
	IntNull
	IntError
)

func (i Intrinsic) String() string {
	switch i {
	case IntInt:
		return "int"
	case IntDouble:
		return "double"
	case IntBool:
		return "bool"
	case IntString:
		return "string"
	case IntVoid:
		return "void"
	case IntNull:
		return "null"
	case IntError:
		return "error"
	default:
		return "?"
	}
}

// Type is the tagged variant of a checked value's type: Primitive,
// Named, or Array. Primitive values are process-wide singletons (see below);
// Named/Array values are allocated per distinct declaration/element type.
type Type struct {
	Kind      Kind
	Intrinsic Intrinsic // valid when Kind == KindPrimitive
	Name      string    // valid when Kind == KindNamed
	Elem      *Type     // valid when Kind == KindArray

	// class is set lazily by pkg/sema once the Named type resolves to a
	// declared class, so IsDerivedFrom can walk the base chain. It is
	// opaque here (an interface{}) to avoid an import cycle with pkg/ast;
	// pkg/sema is the only consumer that type-asserts it.
	class interface{}
}

// Primitive singletons, created once at package init.
var (
	Int    = &Type{Kind: KindPrimitive, Intrinsic: IntInt}
	Double = &Type{Kind: KindPrimitive, Intrinsic: IntDouble}
	Bool   = &Type{Kind: KindPrimitive, Intrinsic: IntBool}
	String = &Type{Kind: KindPrimitive, Intrinsic: IntString}
	Void   = &Type{Kind: KindPrimitive, Intrinsic: IntVoid}
	Null   = &Type{Kind: KindPrimitive, Intrinsic: IntNull}
	Error  = &Type{Kind: KindPrimitive, Intrinsic: IntError}
)

// NewNamed builds a Named type for class/interface name n. Two calls
// with the same name are distinct objects; equivalence is by string
// comparison, which permits false positives if two distinct entities
// share a name across scopes -- accepted rather than resolved, since
// this language has a single flat class namespace.
func NewNamed(name string) *Type { return &Type{Kind: KindNamed, Name: name} }

// NewArray builds an Array type over elem.
func NewArray(elem *Type) *Type { return &Type{Kind: KindArray, Elem: elem} }

// BindClass attaches sema's class declaration to a Named type so that
// IsDerivedFrom can be evaluated later.
func (t *Type) BindClass(class interface{}) { t.class = class }

// Class returns whatever pkg/sema bound via BindClass.
func (t *Type) Class() interface{} { return t.class }

// IsEquivalentTo implements the type-equivalence rule: primitives
// compare by identity, Named by name equality, Array by recursive
// element equivalence.
func (t *Type) IsEquivalentTo(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindPrimitive:
		return t == o
	case KindNamed:
		return t.Name == o.Name
	case KindArray:
		return t.Elem.IsEquivalentTo(o.Elem)
	}
	return false
}

// BaseChainWalker lets pkg/sema supply "does A derive from B" without
// pkg/types depending on pkg/ast: it is called with each Type's bound
// class value and must report whether a is a subclass of (or equal to)
// b, walking the base chain transitively.
type BaseChainWalker func(classA, classB interface{}) bool

// IsConvertibleTo implements the convertibility rule exactly:
//
//	A->B iff A≡B, or A/B is error (absorptive), or A is null and B is
//	Named, or A and B are Named classes with A derived from B.
func (t *Type) IsConvertibleTo(o *Type, derives BaseChainWalker) bool {
	if t.IsEquivalentTo(o) {
		return true
	}
	if t.isError() || o.isError() {
		return true
	}
	if t.isNull() && o.Kind == KindNamed {
		return true
	}
	if t.Kind == KindNamed && o.Kind == KindNamed && derives != nil {
		return derives(t.class, o.class)
	}
	return false
}

func (t *Type) isError() bool { return t.Kind == KindPrimitive && t.Intrinsic == IntError }
func (t *Type) isNull() bool  { return t.Kind == KindPrimitive && t.Intrinsic == IntNull }

// IsNumeric reports whether t is int or double, used pervasively by
// pkg/sema's arithmetic/relational checks.
func (t *Type) IsNumeric() bool {
	return t.Kind == KindPrimitive && (t.Intrinsic == IntInt || t.Intrinsic == IntDouble)
}

func (t *Type) String() string {
	switch t.Kind {
	case KindPrimitive:
		return t.Intrinsic.String()
	case KindNamed:
		return t.Name
	case KindArray:
		return t.Elem.String() + "[]"
	}
	return "?"
}
