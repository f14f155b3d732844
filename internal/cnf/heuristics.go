package cnf

import (
	"math/rand"
	"sort"
)

// HeuristicID names the CNF-level variable-order heuristics. Negating an
// ID reverses the order it produces.
type HeuristicID int

const (
	Random HeuristicID = iota + 1
	Declaration
	MostClauses
	MCS
	LexP
	LexM
	MinFill
	COLAMD
)

// VarOrder returns a permutation of ApparentVars under the named
// heuristic. A negative id reverses the order produced by abs(id).
func (c *Cnf) VarOrder(id int) []int {
	reverse := id < 0
	h := HeuristicID(id)
	if reverse {
		h = HeuristicID(-id)
	}

	var order []int
	switch h {
	case Random:
		order = c.randomVarOrder()
	case Declaration:
		order = c.declarationVarOrder()
	case MostClauses:
		order = c.mostClausesVarOrder()
	case MCS:
		order = c.mcsVarOrder()
	case LexP:
		order = c.lexPVarOrder()
	case LexM:
		order = c.lexMVarOrder()
	case MinFill:
		order = c.minFillVarOrder()
	case COLAMD:
		order = c.colamdVarOrder()
	default:
		order = c.declarationVarOrder()
	}

	if reverse {
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	}
	return order
}

func (c *Cnf) randomVarOrder() []int {
	order := c.ApparentVars()
	r := rand.New(rand.NewSource(c.randomSeed))
	r.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}

func (c *Cnf) declarationVarOrder() []int {
	order := make([]int, 0, len(c.VarToClauses))
	for v := 1; v <= c.DeclaredVarCount; v++ {
		if _, ok := c.VarToClauses[v]; ok {
			order = append(order, v)
		}
	}
	return order
}

// mostClausesVarOrder ranks vars by descending clause-membership count,
// ties broken by ascending var index.
func (c *Cnf) mostClausesVarOrder() []int {
	vars := c.ApparentVars()
	sort.SliceStable(vars, func(i, j int) bool {
		ci, cj := len(c.VarToClauses[vars[i]]), len(c.VarToClauses[vars[j]])
		if ci != cj {
			return ci > cj
		}
		return vars[i] < vars[j]
	})
	return vars
}

func (c *Cnf) minFillVarOrder() []int {
	g := c.primalGraph()
	order := make([]int, 0, len(g.vertices))
	for len(g.vertices) > 0 {
		v, ok := g.minFillVertex()
		if !ok {
			break
		}
		g.fillInEdges(v)
		g.removeVertex(v)
		order = append(order, v)
	}
	return order
}

// mcsVarOrder implements Maximum Cardinality Search: start from the
// smallest apparent var, repeatedly pick the unranked vertex with the
// most ranked neighbors.
func (c *Cnf) mcsVarOrder() []int {
	g := c.primalGraph()
	verts := sortedKeys(g.vertices)
	if len(verts) == 0 {
		return nil
	}
	start := verts[0]
	ranked := map[int]int{} // unranked vertex -> ranked-neighbor count
	for _, v := range verts[1:] {
		ranked[v] = 0
	}

	order := []int{start}
	current := start
	for {
		delete(ranked, current)
		for n := range g.adjacency[current] {
			if _, ok := ranked[n]; ok {
				ranked[n]++
			}
		}
		best := 0
		bestCount := -1
		found := false
		for _, v := range sortedKeys(toSet(ranked)) {
			cnt := ranked[v]
			if !found || cnt > bestCount {
				bestCount = cnt
				best = v
				found = true
			}
		}
		if !found {
			break
		}
		order = append(order, best)
		current = best
	}
	return order
}

func toSet(m map[int]int) map[int]struct{} {
	s := make(map[int]struct{}, len(m))
	for k := range m {
		s[k] = struct{}{}
	}
	return s
}

// label is a lexicographic-search label: a list of numbers kept in
// descending order, compared lexicographically.
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

// lexPVarOrder implements Lexicographic-BFS-style ordering (LEX-P):
// repeatedly pick the unnumbered vertex with the lexicographically
// largest label, then propagate the current number to its unnumbered
// neighbors' labels.
func (c *Cnf) lexPVarOrder() []int {
	g := c.primalGraph()
	vars := c.ApparentVars()
	labels := make(map[int]label, len(vars))
	for _, v := range vars {
		labels[v] = label{}
	}
	numbered := make([]int, 0, len(vars))
	n := len(vars)
	for number := n; number > 0; number-- {
		v := maxLabelVertex(labels)
		numbered = append(numbered, v)
		delete(labels, v)
		for neighbor := range g.adjacency[v] {
			if lbl, ok := labels[neighbor]; ok {
				labels[neighbor] = lbl.add(number)
			}
		}
	}
	return numbered
}

func maxLabelVertex(labels map[int]label) int {
	best := 0
	var bestLabel label
	first := true
	for _, v := range sortedKeysFromLabelMap(labels) {
		l := labels[v]
		if first || bestLabel.less(l) {
			best = v
			bestLabel = l
			first = false
		}
	}
	return best
}

func sortedKeysFromLabelMap(m map[int]label) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sortInts(out)
	return out
}

// lexMVarOrder implements LEX-M: like LEX-P, but a neighbor's label is
// propagated only when there is a path to it through already-unnumbered
// vertices whose labels are strictly smaller, fill-in for chordality.
func (c *Cnf) lexMVarOrder() []int {
	vars := c.ApparentVars()
	labels := make(map[int]label, len(vars))
	for _, v := range vars {
		labels[v] = label{}
	}
	numbered := make([]int, 0, len(vars))
	n := len(vars)
	for i := n; i > 0; i-- {
		v := maxLabelVertex(labels)
		numbered = append(numbered, v)
		delete(labels, v)

		for _, w := range sortedKeysFromLabelMap(labels) {
			wLabel := labels[w]
			sub := c.primalGraph()
			for _, numberedVertex := range numbered {
				if numberedVertex != v {
					sub.removeVertex(numberedVertex)
				}
			}
			for other, otherLabel := range labels {
				if other != w && !otherLabel.less(wLabel) {
					sub.removeVertex(other)
				}
			}
			if _, ok := sub.vertices[v]; !ok {
				continue
			}
			if sub.hasPath(v, w, map[int]struct{}{}) {
				labels[w] = wLabel.add(i)
			}
		}
	}
	return numbered
}

// colamdVarOrder approximates a column approximate-minimum-degree
// ordering over the clause/var incidence pattern: greedily remove the
// variable currently touching the fewest clauses, ties broken by
// ascending var index, deterministic given the clause layout.
func (c *Cnf) colamdVarOrder() []int {
	remaining := map[int]map[int]struct{}{} // var -> remaining clause indices
	for _, v := range c.ApparentVars() {
		set := make(map[int]struct{}, len(c.VarToClauses[v]))
		for _, ci := range c.VarToClauses[v] {
			set[ci] = struct{}{}
		}
		remaining[v] = set
	}
	order := make([]int, 0, len(remaining))
	for len(remaining) > 0 {
		best := 0
		bestDegree := -1
		found := false
		for _, v := range sortedKeysFromIntSetMap(remaining) {
			d := len(remaining[v])
			if !found || d < bestDegree {
				bestDegree = d
				best = v
				found = true
			}
		}
		order = append(order, best)
		delete(remaining, best)
	}
	return order
}

func sortedKeysFromIntSetMap(m map[int]map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sortInts(out)
	return out
}
