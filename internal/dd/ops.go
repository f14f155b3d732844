// Clause-level diagram synthesis: building a terminal's Dd handle from its
// literals, the two concrete constructions the facade exposes to the
// SAT-filter pass (disjunction or parity, boolean) and the executor
// (disjunction or parity, algebraic).
package dd

import "github.com/xDarkicex/dpve/internal/assign"

// BuildClauseBdd returns the BDD that is the disjunction (or, for an XOR
// clause, the parity) of literals: the clause's satisfiability, the
// "upward build" step at a SAT-filter terminal.
func (m *Manager) BuildClauseBdd(literals []int, xor bool) Dd {
	acc := m.BddZero()
	for _, lit := range literals {
		v, positive := litVar(lit)
		if xor {
			acc = m.BddXor(acc, m.VarBdd(v, positive))
		} else {
			acc = m.Or(acc, m.VarBdd(v, positive))
		}
	}
	return acc
}

// BuildClauseAdd synthesizes a clause's ADD directly from its literals and
// the XOR flag, honoring any literals already fixed by assignment.
//
// Ordinary (disjunctive) clauses accumulate by max: a satisfied assigned
// literal collapses the whole clause to 1; an unsatisfied assigned literal
// contributes nothing; each unassigned literal is OR'd (maxed) into the
// accumulator. XOR clauses accumulate by parity instead: a satisfied
// assigned literal toggles the accumulator, an unassigned literal is
// XOR'd in.
func (m *Manager) BuildClauseAdd(literals []int, xor bool, assignment *assign.Assignment) Dd {
	if xor {
		acc := m.Zero()
		for _, lit := range literals {
			v, positive := litVar(lit)
			if val, has := assignment.Get(v); has {
				satisfied := val == positive
				if satisfied {
					acc = m.Xor(acc, m.One())
				}
				continue
			}
			acc = m.Xor(acc, m.VarAdd(v, positive))
		}
		return acc
	}

	acc := m.Zero()
	for _, lit := range literals {
		v, positive := litVar(lit)
		if val, has := assignment.Get(v); has {
			if val == positive {
				return m.One() // clause satisfied outright
			}
			continue // unsatisfied assigned literal contributes nothing
		}
		acc = m.MaxDd(acc, m.VarAdd(v, positive))
	}
	return acc
}

func litVar(lit int) (v int, positive bool) {
	if lit < 0 {
		return -lit, false
	}
	return lit, true
}
