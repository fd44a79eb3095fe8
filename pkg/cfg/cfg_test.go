package cfg

import (
	"testing"

	"github.com/decafc/decafc/pkg/tac"
)

func loc(name string) *tac.Location { return &tac.Location{Name: name} }

// TestStraightLineLiveness builds x = 1; y = x + 1; Return y and checks
// that x is live only across the instruction that consumes it, and
// that nothing survives past the Return.
func TestStraightLineLiveness(t *testing.T) {
	x, y := loc("x"), loc("y")
	instrs := []tac.Instruction{
		&tac.BeginFunc{FrameSize: 8},
		&tac.LoadConst{Dst: x, Value: 1},
		&tac.BinOp{Op: "+", Dst: y, Op1: x, Op2: x},
		&tac.Return{Val: y},
		&tac.EndFunc{},
	}
	g := Build(instrs)

	if g.Out[len(instrs)-1][x] || g.Out[len(instrs)-1][y] {
		t.Fatalf("nothing should be live out of EndFunc")
	}
	if !g.In[2][x] {
		t.Fatalf("x must be live into the BinOp that reads it twice")
	}
	if g.In[0][x] || g.In[0][y] {
		t.Fatalf("neither x nor y is live before BeginFunc defines them")
	}
}

// TestBranchMergeLiveness checks that a variable live on only one arm of
// an IfZ is live in the union at the branch point. It uses PushParam
// (ordinary Gen semantics) rather than Return to consume a/b, since
// Return's Gen is deliberately empty (see tac.Return's doc comment) and
// would not exercise the merge this test is after.
func TestBranchMergeLiveness(t *testing.T) {
	cond, a, b := loc("cond"), loc("a"), loc("b")
	instrs := []tac.Instruction{
		&tac.BeginFunc{FrameSize: 0},
		&tac.IfZ{Test: cond, Target: "else"},
		&tac.PushParam{Param: a},
		&tac.Goto{Target: "end"},
		&tac.Label{Name: "else"},
		&tac.PushParam{Param: b},
		&tac.Label{Name: "end"},
		&tac.EndFunc{},
	}
	g := Build(instrs)

	if !g.In[1][a] {
		t.Fatalf("a must be live at the branch since the fallthrough arm uses it")
	}
	if !g.In[1][b] {
		t.Fatalf("b must be live at the branch since the taken arm uses it")
	}
	if !g.In[1][cond] {
		t.Fatalf("cond itself must be live into the IfZ that tests it")
	}
}

// TestLoopBackEdgeConverges checks that liveness across a Goto back-edge
// reaches a fixed point rather than looping forever or under-computing.
func TestLoopBackEdgeConverges(t *testing.T) {
	i, sum := loc("i"), loc("sum")
	instrs := []tac.Instruction{
		&tac.BeginFunc{FrameSize: 0},
		&tac.Label{Name: "top"},
		&tac.IfZ{Test: i, Target: "done"},
		&tac.BinOp{Op: "+", Dst: sum, Op1: sum, Op2: i},
		&tac.Goto{Target: "top"},
		&tac.Label{Name: "done"},
		&tac.Return{Val: sum},
		&tac.EndFunc{},
	}
	g := Build(instrs)

	// sum is live across the whole loop body, including back into the
	// top of the loop, since each iteration both uses and redefines it.
	for idx := 1; idx <= 4; idx++ {
		if !g.In[idx][sum] {
			t.Fatalf("sum should be live-in at instruction %d inside the loop", idx)
		}
	}
	if !g.In[1][i] {
		t.Fatalf("i must be live at the loop top since IfZ tests it every iteration")
	}
}

func TestFunctionRangesSplitsMultipleFunctions(t *testing.T) {
	instrs := []tac.Instruction{
		&tac.BeginFunc{FrameSize: 0},
		&tac.Return{},
		&tac.EndFunc{},
		&tac.BeginFunc{FrameSize: 4},
		&tac.LoadConst{Dst: loc("t"), Value: 1},
		&tac.EndFunc{},
	}
	ranges := FunctionRanges(instrs)
	if len(ranges) != 2 {
		t.Fatalf("got %d ranges, want 2", len(ranges))
	}
	if ranges[0] != [2]int{0, 3} || ranges[1] != [2]int{3, 6} {
		t.Fatalf("ranges = %v, want [[0 3] [3 6]]", ranges)
	}
}
