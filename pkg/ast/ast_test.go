package ast

import (
	"testing"

	"github.com/decafc/decafc/pkg/source"
	"github.com/decafc/decafc/pkg/types"
)

func TestChildrenReflectsEachNodeKindsShape(t *testing.T) {
	cond := NewIntLit(source.Pos{}, 1)
	then := NewBlock(source.Pos{}, nil)
	els := NewBlock(source.Pos{}, nil)
	ifNode := NewIf(source.Pos{}, cond, then, els)

	kids := Children(ifNode)
	if len(kids) != 3 || kids[0] != cond || kids[1] != then || kids[2] != els {
		t.Fatalf("If's Children = %v, want [cond then els]", kids)
	}

	// A nil branch must be omitted, not returned as a nil entry.
	ifNoElse := NewIf(source.Pos{}, cond, then, nil)
	kids = Children(ifNoElse)
	if len(kids) != 2 {
		t.Fatalf("If with no else should yield 2 children, got %d", len(kids))
	}
}

func TestChildrenNilNode(t *testing.T) {
	if Children(nil) != nil {
		t.Fatalf("Children(nil) should return nil")
	}
}

func TestLinkInstallsParentPointersRecursively(t *testing.T) {
	inner := NewIntLit(source.Pos{}, 42)
	stmt := NewExprStmt(source.Pos{}, inner)
	block := NewBlock(source.Pos{}, []*Node{stmt})
	fn := NewFnDecl(source.Pos{}, "f", types.Void, nil, block)
	program := NewProgram([]*Node{fn})

	Link(program)

	if fn.Parent != program {
		t.Fatalf("fn.Parent should be program")
	}
	if block.Parent != fn {
		t.Fatalf("block.Parent should be fn")
	}
	if stmt.Parent != block {
		t.Fatalf("stmt.Parent should be block")
	}
	if inner.Parent != stmt {
		t.Fatalf("inner.Parent should be stmt")
	}
}

func TestAncestorFuncSkipsIntermediateBlocksAndStopsAtNearest(t *testing.T) {
	inner := NewIntLit(source.Pos{}, 1)
	innerBlock := NewBlock(source.Pos{}, []*Node{NewExprStmt(source.Pos{}, inner)})
	innerFn := NewFnDecl(source.Pos{}, "inner", types.Void, nil, innerBlock)
	outerBlock := NewBlock(source.Pos{}, []*Node{innerFn})
	outerFn := NewFnDecl(source.Pos{}, "outer", types.Void, nil, outerBlock)
	program := NewProgram([]*Node{outerFn})
	Link(program)

	if AncestorFunc(inner) != innerFn {
		t.Fatalf("AncestorFunc should find the nearest enclosing FnDecl, not an outer one")
	}
}

func TestAncestorClassFindsEnclosingClass(t *testing.T) {
	body := NewBlock(source.Pos{}, nil)
	method := NewFnDecl(source.Pos{}, "speak", types.Void, nil, body)
	class := NewClassDecl(source.Pos{}, "Animal", "", nil, []*Node{method})
	program := NewProgram([]*Node{class})
	Link(program)

	if AncestorClass(body) != class {
		t.Fatalf("AncestorClass(body) should find Animal")
	}
	if AncestorClass(class) != nil {
		t.Fatalf("a ClassDecl node has no enclosing class of its own")
	}
}

func TestAncestorLoopDistinguishesWhileAndFor(t *testing.T) {
	brk := NewBreak(source.Pos{})
	forBrk := NewBreak(source.Pos{})
	forStmt := NewFor(source.Pos{}, nil, NewIntLit(source.Pos{}, 1), nil, NewBlock(source.Pos{}, []*Node{forBrk}))
	whileBody := NewBlock(source.Pos{}, []*Node{brk, forStmt})
	whileStmt := NewWhile(source.Pos{}, NewIntLit(source.Pos{}, 1), whileBody)
	fn := NewFnDecl(source.Pos{}, "f", types.Void, nil, NewBlock(source.Pos{}, []*Node{whileStmt}))
	program := NewProgram([]*Node{fn})
	Link(program)

	if AncestorLoop(brk) != whileStmt {
		t.Fatalf("AncestorLoop(brk) should find the enclosing while loop")
	}
	if AncestorLoop(forBrk) != forStmt {
		t.Fatalf("AncestorLoop(forBrk) should find the nearest enclosing for loop, not the outer while")
	}
}

func TestAncestorLoopReturnsNilOutsideAnyLoop(t *testing.T) {
	stmt := NewExprStmt(source.Pos{}, NewIntLit(source.Pos{}, 1))
	fn := NewFnDecl(source.Pos{}, "f", types.Void, nil, NewBlock(source.Pos{}, []*Node{stmt}))
	program := NewProgram([]*Node{fn})
	Link(program)

	if AncestorLoop(stmt) != nil {
		t.Fatalf("AncestorLoop should return nil when there is no enclosing loop")
	}
}
