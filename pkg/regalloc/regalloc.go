// Package regalloc implements a Chaitin-style graph-coloring register
// allocator: build an interference graph over a function's Locations,
// simplify/spill/select, and assign a color (register index, 0
// reserved for memory-resident) to each.
//
// The simplify/select worklist is modeled as an explicit index stack
// rather than recursion, since the number of nodes is unbounded by
// call depth.
package regalloc

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/decafc/decafc/pkg/cfg"
	"github.com/decafc/decafc/pkg/tac"
)

// Result maps each Location in a function's variable universe to its
// assigned color. Color 0 means "no register" (memory-resident,
// spilled); a positive color is a 1-based general-purpose register
// index into the target's pool.
type Result map[*tac.Location]int

// stack is a simple LIFO of graph node indices, used for the
// simplify/select worklist.
type stack struct{ items []int }

func (s *stack) push(i int)   { s.items = append(s.items, i) }
func (s *stack) empty() bool  { return len(s.items) == 0 }
func (s *stack) pop() int {
	i := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return i
}

// graph is the interference graph for one function: nodes are the
// distinct Locations in the variable universe, in a fixed, deterministic
// order so coloring is reproducible run to run.
type graph struct {
	nodes []*tac.Location
	index map[*tac.Location]int
	adj   []map[int]bool
}

func newGraph(nodes []*tac.Location) *graph {
	g := &graph{
		nodes: nodes,
		index: make(map[*tac.Location]int, len(nodes)),
		adj:   make([]map[int]bool, len(nodes)),
	}
	for i, n := range nodes {
		g.index[n] = i
		g.adj[i] = make(map[int]bool)
	}
	return g
}

func (g *graph) addEdge(a, b *tac.Location) {
	if a == b {
		return
	}
	ai, aok := g.index[a]
	bi, bok := g.index[b]
	if !aok || !bok {
		return
	}
	g.adj[ai][bi] = true
	g.adj[bi][ai] = true
}

func (g *graph) degree(i int, removed []bool) int {
	n := 0
	for j := range g.adj[i] {
		if !removed[j] {
			n++
		}
	}
	return n
}

// Allocate runs the full allocation pipeline end to end for one
// function's CFG: interference-set construction, greedy simplify/spill,
// then select. numColors is the target's general-purpose register pool
// size.
func Allocate(g *cfg.Graph, numColors int) Result {
	universe, ig := buildInterferenceGraph(g)
	popOrder := simplify(ig, numColors)
	return selectColors(ig, popOrder, numColors, universe)
}

// buildInterferenceGraph computes, for each instruction, the
// interference set as kill ∪ out; for every ordered pair within that
// set it adds an undirected edge, and it accumulates all kill ∪ gen
// locations into the variable universe.
func buildInterferenceGraph(g *cfg.Graph) ([]*tac.Location, *graph) {
	seen := make(map[*tac.Location]bool)
	var universe []*tac.Location
	add := func(l *tac.Location) {
		if l != nil && !seen[l] {
			seen[l] = true
			universe = append(universe, l)
		}
	}
	for i, instr := range g.Instrs {
		for _, l := range instr.Kill() {
			add(l)
		}
		for _, l := range instr.Gen() {
			add(l)
		}
		_ = i
	}
	// Deterministic order: universe is already insertion-ordered by
	// instruction emission order, which is itself deterministic; sort
	// defensively by name so two runs over the same program never
	// diverge even if a future caller changes traversal order.
	slices.SortFunc(universe, func(a, b *tac.Location) int {
		if a.Name == b.Name {
			return 0
		}
		if a.Name < b.Name {
			return -1
		}
		return 1
	})

	ig := newGraph(universe)
	for i, instr := range g.Instrs {
		interfering := make(map[*tac.Location]bool)
		for _, l := range instr.Kill() {
			if l != nil {
				interfering[l] = true
			}
		}
		for l := range g.Out[i] {
			interfering[l] = true
		}
		pairs := maps.Keys(interfering)
		slices.SortFunc(pairs, func(a, b *tac.Location) int {
			if a.Name == b.Name {
				return 0
			}
			if a.Name < b.Name {
				return -1
			}
			return 1
		})
		for x := 0; x < len(pairs); x++ {
			for y := x + 1; y < len(pairs); y++ {
				ig.addEdge(pairs[x], pairs[y])
			}
		}
	}
	return universe, ig
}

// simplify runs the greedy simplify/spill loop: repeatedly
// remove a node of degree < k and push it, or spill (mark uncolored,
// remove anyway) when none exists. It returns the pushed nodes in the
// order selectColors should consume them: the reverse of removal order,
// i.e. the last node removed is colored first. Spilled nodes are not in
// the returned order, so they keep color 0.
func simplify(g *graph, k int) []int {
	n := len(g.nodes)
	removed := make([]bool, n)
	st := &stack{}
	remaining := n

	for remaining > 0 {
		progressed := false
		for i := 0; i < n; i++ {
			if removed[i] {
				continue
			}
			if g.degree(i, removed) < k {
				removed[i] = true
				st.push(i)
				remaining--
				progressed = true
			}
		}
		if progressed {
			continue
		}
		// No node has degree < k: spill the first remaining node in
		// deterministic order and continue simplifying around it.
		for i := 0; i < n; i++ {
			if !removed[i] {
				removed[i] = true
				remaining--
				break
			}
		}
	}

	order := make([]int, 0, n)
	for !st.empty() {
		order = append(order, st.pop())
	}
	return order
}

// selectColors walks popOrder (already the correct pop sequence: last
// node removed by simplify first) and assigns each node the smallest
// color not used by an already-colored neighbor; a node with no
// available color among 1..k-1 is left at color 0 (spilled to memory).
func selectColors(g *graph, popOrder []int, k int, universe []*tac.Location) Result {
	colors := make([]int, len(g.nodes))
	for _, node := range popOrder {
		used := make(map[int]bool)
		for neighbor := range g.adj[node] {
			if colors[neighbor] != 0 {
				used[colors[neighbor]] = true
			}
		}
		assigned := 0
		for c := 1; c < k; c++ {
			if !used[c] {
				assigned = c
				break
			}
		}
		colors[node] = assigned
	}

	result := make(Result, len(universe))
	for i, loc := range universe {
		result[loc] = colors[i]
	}
	return result
}
