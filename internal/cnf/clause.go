// Package cnf implements the structural half of the formula: clauses (with
// optional XOR parity semantics), the Cnf container, its reader for the
// line-oriented DIMACS-derived input format, and the variable-order
// heuristics computed over the formula's primal graph.
package cnf

import "sort"

// Clause is a set of literals (nonzero signed variable indices) plus an
// XOR flag. For an ordinary (disjunctive) clause, inserting a literal
// already present is a no-op. For an XOR clause, inserting a literal
// already present removes it instead (parity semantics).
type Clause struct {
	XOR      bool
	literals map[int]struct{}
	order    []int // insertion order, for deterministic printing/iteration
}

// NewClause returns an empty clause; xor selects parity-insertion semantics.
func NewClause(xor bool) *Clause {
	return &Clause{XOR: xor, literals: make(map[int]struct{})}
}

// Insert adds literal to the clause under its parity rule.
func (c *Clause) Insert(literal int) {
	if _, ok := c.literals[literal]; ok {
		if c.XOR {
			delete(c.literals, literal)
			c.removeFromOrder(literal)
		}
		return
	}
	c.literals[literal] = struct{}{}
	c.order = append(c.order, literal)
}

func (c *Clause) removeFromOrder(literal int) {
	for i, l := range c.order {
		if l == literal {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Len returns the number of literals currently in the clause.
func (c *Clause) Len() int { return len(c.literals) }

// Empty reports whether the clause has no literals (an empty ordinary
// clause means the formula is unsatisfiable).
func (c *Clause) Empty() bool { return len(c.literals) == 0 }

// Literals returns the clause's literals in insertion order.
func (c *Clause) Literals() []int {
	out := make([]int, len(c.order))
	copy(out, c.order)
	return out
}

// Vars returns the set of variables (unsigned) appearing in the clause.
func (c *Clause) Vars() map[int]struct{} {
	vars := make(map[int]struct{}, len(c.literals))
	for lit := range c.literals {
		v := lit
		if v < 0 {
			v = -v
		}
		vars[v] = struct{}{}
	}
	return vars
}

// SortedLiterals returns literals sorted by variable then polarity, for
// deterministic diagnostics.
func (c *Clause) SortedLiterals() []int {
	out := c.Literals()
	sort.Slice(out, func(i, j int) bool {
		ai, aj := abs(out[i]), abs(out[j])
		if ai != aj {
			return ai < aj
		}
		return out[i] < out[j]
	})
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
