package satsolver

// Formula holds the clauses a Solver works over: ordinary disjunctive
// clauses plus XOR parity constraints, declared over VarCount variables.
type Formula struct {
	VarCount   int
	Clauses    []*Clause
	XORClauses []*XORClause
}

// NewFormula allocates an empty formula over [1, varCount].
func NewFormula(varCount int) *Formula {
	return &Formula{VarCount: varCount}
}

// AddClause appends an ordinary disjunctive clause.
func (f *Formula) AddClause(literals []Literal) {
	f.Clauses = append(f.Clauses, &Clause{Literals: literals})
}

// AddXORClause appends a parity constraint over vars.
func (f *Formula) AddXORClause(vars []int, parity bool) {
	f.XORClauses = append(f.XORClauses, &XORClause{Vars: vars, Parity: parity})
}

// BanModel adds a blocking clause excluding exactly model (the negation of
// model's conjunction), so a subsequent Solve call is forced to find a
// different satisfying assignment if one exists.
func (f *Formula) BanModel(model Assignment) {
	block := make([]Literal, 0, len(model))
	for v, val := range model {
		if val {
			block = append(block, Literal(-v))
		} else {
			block = append(block, Literal(v))
		}
	}
	f.AddClause(block)
}

// Solver is a recursive DPLL search: unit propagation (ordinary and XOR
// parity) and pure-literal elimination between decisions, first-unassigned
// variable choice, true tried before false.
type Solver struct {
	formula    *Formula
	assignment Assignment
	stats      Statistics
}

// NewSolver builds a Solver over formula.
func NewSolver(formula *Formula) *Solver {
	return &Solver{formula: formula, assignment: make(Assignment)}
}

// Solve searches for one satisfying assignment. Returns Satisfiable=false
// with no model if the formula (as currently banned/extended) is UNSAT.
// The returned model is total over [1, VarCount]: variables the search
// never had to constrain default to true, so callers can ban the model or
// evaluate a diagram under it without holes.
func (s *Solver) Solve() *Result {
	s.assignment = make(Assignment)
	s.stats = Statistics{}
	sat := s.search()
	if !sat {
		return &Result{Satisfiable: false, Stats: s.stats}
	}
	model := s.assignment.Clone()
	for v := 1; v <= s.formula.VarCount; v++ {
		if _, ok := model[v]; !ok {
			model[v] = true
		}
	}
	return &Result{Satisfiable: true, Model: model, Stats: s.stats}
}

func (s *Solver) search() bool {
	for {
		changed, conflict := s.propagateOnce()
		if conflict {
			return false
		}
		if !changed {
			break
		}
	}
	s.eliminatePureLiterals()

	if s.allSatisfied() {
		return true
	}

	v := s.chooseUnassigned()
	if v == 0 {
		return false // every variable assigned but some clause unsatisfied
	}

	s.stats.Decisions++
	saved := s.assignment.Clone()
	for _, try := range [2]bool{true, false} {
		s.assignment[v] = try
		if s.search() {
			return true
		}
		s.assignment = saved.Clone()
	}
	return false
}

// propagateOnce runs one full pass of ordinary unit propagation and XOR
// parity propagation, returning whether anything changed and whether a
// conflict (falsified clause, or parity already violated) was found.
func (s *Solver) propagateOnce() (changed bool, conflict bool) {
	for _, c := range s.formula.Clauses {
		status, unit := s.clauseStatus(c)
		switch status {
		case clauseFalsified:
			return changed, true
		case clauseUnit:
			lit := unit
			s.assignment[lit.Var()] = lit.Positive()
			s.stats.Propagations++
			changed = true
		}
	}
	for _, x := range s.formula.XORClauses {
		unassigned := 0
		parity := false
		lastVar := 0
		for _, v := range x.Vars {
			val, ok := s.assignment[v]
			if !ok {
				unassigned++
				lastVar = v
				continue
			}
			if val {
				parity = !parity
			}
		}
		if unassigned == 0 {
			if parity != x.Parity {
				return changed, true
			}
			continue
		}
		if unassigned == 1 {
			// forced value: parity of assigned vars XOR forced == x.Parity
			s.assignment[lastVar] = parity != x.Parity
			s.stats.Propagations++
			changed = true
		}
	}
	return changed, false
}

type clauseState int

const (
	clauseUnresolved clauseState = iota
	clauseSatisfied
	clauseFalsified
	clauseUnit
)

func (s *Solver) clauseStatus(c *Clause) (clauseState, Literal) {
	var unassignedLit Literal
	unassignedCount := 0
	for _, lit := range c.Literals {
		val, ok := s.assignment[lit.Var()]
		if !ok {
			unassignedCount++
			unassignedLit = lit
			continue
		}
		if val == lit.Positive() {
			return clauseSatisfied, 0
		}
	}
	switch unassignedCount {
	case 0:
		return clauseFalsified, 0
	case 1:
		return clauseUnit, unassignedLit
	default:
		return clauseUnresolved, 0
	}
}

func (s *Solver) eliminatePureLiterals() {
	// A variable constrained by an XOR clause has no pure polarity: fixing
	// it to its CNF-pure value can flip the parity the wrong way.
	inXOR := make(map[int]bool)
	for _, x := range s.formula.XORClauses {
		for _, v := range x.Vars {
			inXOR[v] = true
		}
	}
	seenPositive := make(map[int]bool)
	seenNegative := make(map[int]bool)
	for _, c := range s.formula.Clauses {
		if s.clauseSatisfied(c) {
			continue
		}
		for _, lit := range c.Literals {
			if _, ok := s.assignment[lit.Var()]; ok {
				continue
			}
			if lit.Positive() {
				seenPositive[lit.Var()] = true
			} else {
				seenNegative[lit.Var()] = true
			}
		}
	}
	for v := 1; v <= s.formula.VarCount; v++ {
		if _, ok := s.assignment[v]; ok {
			continue
		}
		if inXOR[v] {
			continue
		}
		pos, neg := seenPositive[v], seenNegative[v]
		if pos && !neg {
			s.assignment[v] = true
		} else if neg && !pos {
			s.assignment[v] = false
		}
	}
}

func (s *Solver) clauseSatisfied(c *Clause) bool {
	status, _ := s.clauseStatus(c)
	return status == clauseSatisfied
}

func (s *Solver) allSatisfied() bool {
	for _, c := range s.formula.Clauses {
		if !s.clauseSatisfied(c) {
			return false
		}
	}
	for _, x := range s.formula.XORClauses {
		parity := false
		for _, v := range x.Vars {
			val, ok := s.assignment[v]
			if !ok {
				return false
			}
			if val {
				parity = !parity
			}
		}
		if parity != x.Parity {
			return false
		}
	}
	return true
}

func (s *Solver) chooseUnassigned() int {
	for v := 1; v <= s.formula.VarCount; v++ {
		if _, ok := s.assignment[v]; !ok {
			return v
		}
	}
	return 0
}
