// Package cfg builds the per-function instruction-level control-flow
// graph and runs backward liveness analysis over it. The graph is
// index-based over a function's instruction slice rather than a
// pointer graph, so it can be discarded cheaply once regalloc's
// interference graph is built from it -- both are scoped to a single
// function and disposed after allocation.
package cfg

import "github.com/decafc/decafc/pkg/tac"

// Graph is the control-flow graph for one function's instruction range,
// indices relative to the start of that range.
type Graph struct {
	Instrs []tac.Instruction
	Succs  [][]int

	// In/Out are the fixed-point live-variable sets per instruction,
	// keyed by Location pointer identity.
	In  []map[*tac.Location]bool
	Out []map[*tac.Location]bool
}

// Build constructs the CFG for one function's instruction range
// [begin,end) -- begin points at the BeginFunc, end one past the
// matching EndFunc -- and immediately runs liveness to a fixed point.
func Build(instrs []tac.Instruction) *Graph {
	g := &Graph{
		Instrs: instrs,
		Succs:  make([][]int, len(instrs)),
		In:     make([]map[*tac.Location]bool, len(instrs)),
		Out:    make([]map[*tac.Location]bool, len(instrs)),
	}
	labels := labelIndex(instrs)
	for i, instr := range instrs {
		g.Succs[i] = successorsOf(instr, i, labels, len(instrs))
	}
	for i := range instrs {
		g.In[i] = make(map[*tac.Location]bool)
		g.Out[i] = make(map[*tac.Location]bool)
	}
	g.solve()
	return g
}

func labelIndex(instrs []tac.Instruction) map[string]int {
	m := make(map[string]int)
	for i, instr := range instrs {
		if l, ok := instr.(*tac.Label); ok {
			m[l.Name] = i
		}
	}
	return m
}

// successorsOf computes the per-kind successor rule for one instruction.
func successorsOf(instr tac.Instruction, i int, labels map[string]int, n int) []int {
	switch v := instr.(type) {
	case *tac.Goto:
		if target, ok := labels[v.Target]; ok {
			return []int{target}
		}
		return nil
	case *tac.IfZ:
		out := []int{}
		if target, ok := labels[v.Target]; ok {
			out = append(out, target)
		}
		if i+1 < n {
			out = append(out, i+1)
		}
		return out
	case *tac.Return, *tac.EndFunc:
		return nil
	default:
		if i+1 < n {
			return []int{i + 1}
		}
		return nil
	}
}

// solve is the standard backward fixed-point liveness computation:
// out(i) = union of in(s) over successors s; in(i) = gen(i) ∪
// (out(i) \ kill(i)). Iterating from the end tends to converge in
// fewer passes for the common straight-line/backward-branch shapes
// this language produces, but termination does not depend on order:
// Gen/Kill are finite per instruction and the transfer function is
// monotone.
func (g *Graph) solve() {
	changed := true
	for changed {
		changed = false
		for i := len(g.Instrs) - 1; i >= 0; i-- {
			newOut := make(map[*tac.Location]bool)
			for _, s := range g.Succs[i] {
				for loc := range g.In[s] {
					newOut[loc] = true
				}
			}
			newIn := make(map[*tac.Location]bool)
			kill := setOf(g.Instrs[i].Kill())
			for loc := range newOut {
				if !kill[loc] {
					newIn[loc] = true
				}
			}
			for _, loc := range g.Instrs[i].Gen() {
				newIn[loc] = true
			}
			if !sameSet(newIn, g.In[i]) {
				g.In[i] = newIn
				changed = true
			}
			if !sameSet(newOut, g.Out[i]) {
				g.Out[i] = newOut
				changed = true
			}
		}
	}
}

func setOf(locs []*tac.Location) map[*tac.Location]bool {
	m := make(map[*tac.Location]bool, len(locs))
	for _, l := range locs {
		m[l] = true
	}
	return m
}

func sameSet(a, b map[*tac.Location]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// FunctionRanges splits a full instruction stream into [begin,end)
// index pairs, one per BeginFunc/EndFunc pair, so each function's
// instructions can be fed to Build independently.
func FunctionRanges(instrs []tac.Instruction) [][2]int {
	var ranges [][2]int
	start := -1
	for i, instr := range instrs {
		switch instr.(type) {
		case *tac.BeginFunc:
			start = i
		case *tac.EndFunc:
			if start >= 0 {
				ranges = append(ranges, [2]int{start, i + 1})
				start = -1
			}
		}
	}
	return ranges
}
