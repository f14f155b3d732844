// Package satseed wraps internal/satsolver as the SAT pruning-bound seed
// collaborator: run one satisfiable solve over a Cnf's clauses, returning
// a full model to derive an initial log-bound from, and ban that model so
// a later call (if any) is forced to find a different one.
package satseed

import (
	"github.com/xDarkicex/dpve/internal/cnf"
	"github.com/xDarkicex/dpve/internal/errs"
	"github.com/xDarkicex/dpve/internal/satsolver"
)

// Seed holds the solver-facing formula built from a Cnf, reusable across
// repeated Solve calls (each banning the model the previous call found).
type Seed struct {
	formula *satsolver.Formula
}

// New builds a Seed from c's ordinary and XOR clauses.
func New(c *cnf.Cnf) *Seed {
	formula := satsolver.NewFormula(c.DeclaredVarCount)
	for _, clause := range c.Clauses {
		if clause.XOR {
			vars, parity := xorVarsAndParity(clause)
			formula.AddXORClause(vars, parity)
			continue
		}
		literals := make([]satsolver.Literal, 0, clause.Len())
		for _, lit := range clause.Literals() {
			literals = append(literals, satsolver.Literal(lit))
		}
		formula.AddClause(literals)
	}
	return &Seed{formula: formula}
}

// Solve finds one satisfying model over the declared variables, banning it
// so a subsequent Solve call returns a different model if one exists.
// Returns an *errs.Unsat if no model exists.
func (s *Seed) Solve() (satsolver.Assignment, error) {
	res := satsolver.NewSolver(s.formula).Solve()
	if !res.Satisfiable {
		return nil, errs.NewUnsat("SAT pruning seed found no satisfying assignment")
	}
	s.formula.BanModel(res.Model)
	return res.Model, nil
}

// xorVarsAndParity converts a cnf.Clause's signed XOR literals into the
// unsigned-variable/target-parity form satsolver.XORClause expects: the
// clause is satisfied when an odd number of its literals evaluate true,
// which (folding each literal's fixed polarity into the target) reduces to
// a parity constraint over the plain variable values with
// Parity = (number of negative literals is even).
func xorVarsAndParity(clause *cnf.Clause) ([]int, bool) {
	literals := clause.Literals()
	vars := make([]int, 0, len(literals))
	negCount := 0
	for _, lit := range literals {
		if lit < 0 {
			vars = append(vars, -lit)
			negCount++
		} else {
			vars = append(vars, lit)
		}
	}
	return vars, negCount%2 == 0
}
