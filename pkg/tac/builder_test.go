package tac

import (
	"fmt"
	"testing"
)

func TestNewTempAndNewLocalShareTheSameCounterAndGrowDownward(t *testing.T) {
	b := NewBuilder()
	first := b.NewTemp()
	second := b.NewLocal("x")
	third := b.NewTemp()

	if first.Offset != OffsetToFirstLocal {
		t.Fatalf("first slot offset = %d, want %d", first.Offset, OffsetToFirstLocal)
	}
	if second.Offset != OffsetToFirstLocal-WordSize {
		t.Fatalf("second slot offset = %d, want %d", second.Offset, OffsetToFirstLocal-WordSize)
	}
	if third.Offset != OffsetToFirstLocal-2*WordSize {
		t.Fatalf("third slot offset = %d, want %d", third.Offset, OffsetToFirstLocal-2*WordSize)
	}
	if first == second || second == third {
		t.Fatalf("each allocation must return a distinct Location")
	}
}

func TestNewParamGrowsUpwardFromFirstParam(t *testing.T) {
	b := NewBuilder()
	a := b.NewParam("a")
	c := b.NewParam("c")
	if a.Offset != OffsetToFirstParam {
		t.Fatalf("first param offset = %d, want %d", a.Offset, OffsetToFirstParam)
	}
	if c.Offset != OffsetToFirstParam+WordSize {
		t.Fatalf("second param offset = %d, want %d", c.Offset, OffsetToFirstParam+WordSize)
	}
}

func TestBeginEndFunctionResetsCountersAndBackpatchesFrameSize(t *testing.T) {
	b := NewBuilder()
	begin := b.BeginFunction("_Foo")
	b.NewLocal("x")
	b.NewLocal("y")
	b.EndFunction(begin)

	if begin.FrameSize != 2*WordSize {
		t.Fatalf("FrameSize = %d, want %d after allocating 2 locals", begin.FrameSize, 2*WordSize)
	}

	// A second function must not see the first function's local counter.
	begin2 := b.BeginFunction("_Bar")
	b.NewLocal("z")
	b.EndFunction(begin2)
	if begin2.FrameSize != WordSize {
		t.Fatalf("FrameSize = %d, want %d (second function's own count, not accumulated)", begin2.FrameSize, WordSize)
	}
}

func TestNewLabelNameIsMonotonicAndUnique(t *testing.T) {
	b := NewBuilder()
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		name := b.NewLabelName()
		if want := fmt.Sprintf("_L%d", i); name != want {
			t.Fatalf("label %d = %q, want %q", i, name, want)
		}
		if seen[name] {
			t.Fatalf("label %q generated twice", name)
		}
		seen[name] = true
	}
}

func TestFlushVTablesEmitsAfterClearingPending(t *testing.T) {
	b := NewBuilder()
	b.AddVTable("_Animal_vtable", []string{"_Animal_speak"})
	b.AddVTable("_Dog_vtable", []string{"_Animal_speak", "_Dog_fetch"})
	b.FlushVTables()

	instrs := b.Instructions()
	if len(instrs) != 2 {
		t.Fatalf("got %d instructions after flush, want 2 vtables", len(instrs))
	}
	first, ok := instrs[0].(*VTable)
	if !ok || first.Label != "_Animal_vtable" {
		t.Fatalf("first flushed instruction = %+v, want Animal's vtable first (insertion order preserved)", instrs[0])
	}

	// A second flush with nothing pending must emit nothing further.
	b.FlushVTables()
	if len(b.Instructions()) != 2 {
		t.Fatalf("flushing again with no pending vtables should not append anything")
	}
}

func TestLocationIdentityNotValueEquality(t *testing.T) {
	a := &Location{Name: "t", Segment: FPRelative, Offset: -8}
	c := &Location{Name: "t", Segment: FPRelative, Offset: -8}
	if a == c {
		t.Fatalf("two independently allocated Locations must never share identity even with identical fields")
	}
}
