package jointree

import "sort"

// TreeHeuristicID names the join-tree-level variable-order heuristics,
// distinct from the CNF-level heuristics in internal/cnf: these order the
// diagram variables from the shape of the planned tree.
type TreeHeuristicID int

const (
	BiggestNode TreeHeuristicID = iota + 1
	HighestNode
	LexPOnTree
)

// varSizes maps each apparent var to the size of the biggest
// preProjectionVars set it appears in (a nonterminal's projection vars are
// counted against that nonterminal's set).
func (t *Tree) varSizes() map[int]int {
	sizes := make(map[int]int)
	update := func(vars map[int]struct{}, width int) {
		for v := range vars {
			if cur, ok := sizes[v]; !ok || width > cur {
				sizes[v] = width
			}
		}
	}
	for _, term := range t.Terminals {
		update(term.PreProjectionVars(), len(term.PreProjectionVars()))
	}
	for idx := 0; idx < t.DeclaredNodeCount; idx++ {
		nt, ok := t.Nonterminals[idx]
		if !ok {
			continue
		}
		w := len(nt.PreProjectionVars())
		update(nt.PreProjectionVars(), w)
		update(nt.ProjectionVars(), w)
	}
	return sizes
}

// BiggestNodeVarOrder orders vars by descending varSizes, breaking ties
// by ascending var index.
func (t *Tree) BiggestNodeVarOrder() []int {
	sizes := t.varSizes()
	vars := make([]int, 0, len(sizes))
	for v := range sizes {
		vars = append(vars, v)
	}
	sort.Slice(vars, func(i, j int) bool {
		if sizes[vars[i]] != sizes[vars[j]] {
			return sizes[vars[i]] > sizes[vars[j]]
		}
		return vars[i] < vars[j]
	})
	return vars
}

// HighestNodeVarOrder performs a breadth-first traversal from the root
// down, emitting each nonterminal's projectionVars (in ascending order)
// the first time it is visited. Because elimination happens bottom-up,
// vars eliminated near the root (high in the tree) are emitted first.
func (t *Tree) HighestNodeVarOrder() []int {
	root, ok := t.Root()
	if !ok {
		return nil
	}
	var order []int
	queue := []*Nonterminal{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, sortedVars(n.projectionVars)...)
		for _, ch := range n.children {
			if childNt, ok := ch.(*Nonterminal); ok {
				queue = append(queue, childNt)
			}
		}
	}
	return order
}

// label mirrors cnf's lexicographic label: numbers kept in descending
// order, compared lexicographically. Duplicated here (rather than
// exported from internal/cnf) because the adjacency it labels is the
// join tree's "remaining vars" projection, not the CNF's primal graph.
type label []int

func (l label) less(other label) bool {
	for i := 0; i < len(l) && i < len(other); i++ {
		if l[i] != other[i] {
			return l[i] < other[i]
		}
	}
	return len(l) < len(other)
}

func (l label) add(n int) label {
	out := append(append(label{}, l...), n)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// primalAdjacency computes, for the vars in remaining, the primal-graph
// adjacency induced by preProjectionVars co-occurrence across all nodes,
// used by LexPVarOrder.
func (t *Tree) primalAdjacency(remaining map[int]struct{}) map[int]map[int]struct{} {
	adj := make(map[int]map[int]struct{}, len(remaining))
	for v := range remaining {
		adj[v] = make(map[int]struct{})
	}
	connect := func(vars map[int]struct{}) {
		present := make([]int, 0, len(vars))
		for v := range vars {
			if _, ok := remaining[v]; ok {
				present = append(present, v)
			}
		}
		for i := 0; i < len(present); i++ {
			for j := i + 1; j < len(present); j++ {
				adj[present[i]][present[j]] = struct{}{}
				adj[present[j]][present[i]] = struct{}{}
			}
		}
	}
	for _, term := range t.Terminals {
		connect(term.PreProjectionVars())
	}
	for _, nt := range t.Nonterminals {
		connect(nt.PreProjectionVars())
	}
	return adj
}

// LexPVarOrder orders the tree's vars by lexicographic-BFS over the
// primal graph induced by node variable co-occurrence, the tree-level
// counterpart of cnf's LEX-P heuristic.
func (t *Tree) LexPVarOrder() []int {
	present := make(map[int]struct{})
	for _, term := range t.Terminals {
		for v := range term.PreProjectionVars() {
			present[v] = struct{}{}
		}
	}
	for _, nt := range t.Nonterminals {
		for v := range nt.PreProjectionVars() {
			present[v] = struct{}{}
		}
		for v := range nt.ProjectionVars() {
			present[v] = struct{}{}
		}
	}

	adj := t.primalAdjacency(present)
	labels := make(map[int]label, len(present))
	for v := range present {
		labels[v] = label{}
	}
	n := len(present)
	order := make([]int, 0, n)
	for number := n; number > 0; number-- {
		v := maxLabelVertex(labels)
		order = append(order, v)
		delete(labels, v)
		for neighbor := range adj[v] {
			if lbl, ok := labels[neighbor]; ok {
				labels[neighbor] = lbl.add(number)
			}
		}
	}
	return order
}

func maxLabelVertex(labels map[int]label) int {
	best := 0
	var bestLabel label
	first := true
	keys := make([]int, 0, len(labels))
	for v := range labels {
		keys = append(keys, v)
	}
	sort.Ints(keys)
	for _, v := range keys {
		l := labels[v]
		if first || bestLabel.less(l) {
			best = v
			bestLabel = l
			first = false
		}
	}
	return best
}

// VarOrder dispatches to the named tree-level heuristic. A negative id
// reverses the order, matching internal/cnf's convention.
func (t *Tree) VarOrder(id int) []int {
	reverse := id < 0
	h := TreeHeuristicID(id)
	if reverse {
		h = TreeHeuristicID(-id)
	}
	var order []int
	switch h {
	case BiggestNode:
		order = t.BiggestNodeVarOrder()
	case HighestNode:
		order = t.HighestNodeVarOrder()
	case LexPOnTree:
		order = t.LexPVarOrder()
	default:
		order = t.BiggestNodeVarOrder()
	}
	if reverse {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}
	return order
}
