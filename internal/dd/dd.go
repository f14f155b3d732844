// Package dd is the uniform decision-diagram facade: a tagged union over
// two backends, algebraic (leaves are Numbers) and boolean, so the
// executor and SAT-filter pass can share one vocabulary (product/sum/max,
// restriction, abstraction, reordering hooks) without caring which backend
// a given handle belongs to. The boolean half wraps dalzilio/rudd; the
// algebraic half is the in-process table in add.go.
package dd

import (
	"github.com/dalzilio/rudd"

	"github.com/xDarkicex/dpve/internal/assign"
	"github.com/xDarkicex/dpve/internal/errs"
	"github.com/xDarkicex/dpve/internal/number"
)

// Variant tags a Dd handle as boolean or algebraic.
type Variant int

const (
	VariantBDD Variant = iota
	VariantADD
)

// Dd is an opaque, cheaply-copyable reference into one of the two
// backends. Its zero value is not a valid handle; always obtain one from
// a Manager.
type Dd struct {
	variant Variant
	bdd     rudd.Node
	add     addRef
}

func (d Dd) Variant() Variant { return d.variant }

// Manager owns the process-wide diagram state: the rudd BDD set and the
// hand-rolled ADD table. init is this constructor, stop is dropping the
// Manager; handles from two different Managers must never be mixed.
//
// cnfToDd/ddToCnf carry the diagram variable order the driver computes
// from a join-tree heuristic: every public method that takes or returns a
// variable number does so in cnfVar space, translating through this map
// at the boundary, so a custom diagram order only ever affects diagram
// size, never the vocabulary callers use.
type Manager struct {
	bdd    rudd.Set
	addMgr *addManager
	varNum int

	cnfToDd []int // cnfToDd[cnfVar] = ddVar, 1-indexed
	ddToCnf []int // ddToCnf[ddVar] = cnfVar, 0-indexed
}

// NewManager allocates a diagram manager over declared variables
// [1, varNum] using the identity diagram order (ddVar == cnfVar - 1).
func NewManager(varNum int) (*Manager, error) {
	return NewManagerWithOrder(varNum, nil)
}

// NewManagerWithOrder allocates a diagram manager whose diagram variable
// order is given by order, a permutation of a subset of [1, varNum] (the
// order a join-tree heuristic such as BiggestNodeVarOrder returns). Vars
// in [1, varNum] absent from order (declared-but-hidden vars, or when
// order is nil) are appended afterward in ascending order so every
// declared var still gets a ddVar slot.
func NewManagerWithOrder(varNum int, order []int) (*Manager, error) {
	b, err := newRuddBDD(varNum + 1) // ddVars 0..varNum-1 are used; the last rudd variable is spare
	if err != nil {
		return nil, err
	}
	cnfToDd, ddToCnf := buildVarMap(varNum, order)
	return &Manager{bdd: b, addMgr: newAddManager(), varNum: varNum, cnfToDd: cnfToDd, ddToCnf: ddToCnf}, nil
}

// buildVarMap assigns ddVar slots in the order vars appear in order, then
// appends any remaining declared var (ascending) that order omitted.
func buildVarMap(varNum int, order []int) (cnfToDd, ddToCnf []int) {
	cnfToDd = make([]int, varNum+1)
	ddToCnf = make([]int, 0, varNum)
	seen := make(map[int]bool, varNum)
	next := 0
	assign := func(v int) {
		if v < 1 || v > varNum || seen[v] {
			return
		}
		seen[v] = true
		cnfToDd[v] = next
		ddToCnf = append(ddToCnf, v)
		next++
	}
	for _, v := range order {
		assign(v)
	}
	for v := 1; v <= varNum; v++ {
		assign(v)
	}
	return cnfToDd, ddToCnf
}

func (m *Manager) toDdVar(v int) int { return m.cnfToDd[v] }

func (m *Manager) toCnfVar(v int) int { return m.ddToCnf[v] }

// --- constants ---

func (m *Manager) BddZero() Dd { return Dd{variant: VariantBDD, bdd: m.bdd.False()} }
func (m *Manager) BddOne() Dd  { return Dd{variant: VariantBDD, bdd: m.bdd.True()} }
func (m *Manager) Zero() Dd    { return Dd{variant: VariantADD, add: m.addMgr.zero} }
func (m *Manager) One() Dd     { return Dd{variant: VariantADD, add: m.addMgr.one} }

// Constant returns the constant ADD leaf holding v, the handle the
// executor's threshold-model abstraction case uses to scale a restricted
// diagram by a fixed literal weight without going through the general
// two-cofactor Abstract path.
func (m *Manager) Constant(v number.Number) Dd {
	return Dd{variant: VariantADD, add: m.addMgr.mkLeaf(v)}
}

// --- literals ---

// VarBdd returns the BDD literal for v (x_v if positive, !x_v otherwise).
func (m *Manager) VarBdd(v int, positive bool) Dd {
	return Dd{variant: VariantBDD, bdd: m.bddLiteral(m.toDdVar(v), positive)}
}

// VarAdd returns the ADD literal for v: the 0/1-leaved indicator of x_v
// (or of 1 - x_v for a negative literal).
func (m *Manager) VarAdd(v int, positive bool) Dd {
	return Dd{variant: VariantADD, add: m.addMgr.varLiteral(m.toDdVar(v), positive)}
}

// --- boolean (BDD) ops ---

func (m *Manager) And(a, b Dd) Dd {
	m.assertVariant(a, VariantBDD)
	m.assertVariant(b, VariantBDD)
	return Dd{variant: VariantBDD, bdd: m.bdd.Apply(a.bdd, b.bdd, rudd.OPand)}
}

func (m *Manager) Or(a, b Dd) Dd {
	m.assertVariant(a, VariantBDD)
	m.assertVariant(b, VariantBDD)
	return Dd{variant: VariantBDD, bdd: m.bdd.Apply(a.bdd, b.bdd, rudd.OPor)}
}

func (m *Manager) BddXor(a, b Dd) Dd {
	m.assertVariant(a, VariantBDD)
	m.assertVariant(b, VariantBDD)
	return Dd{variant: VariantBDD, bdd: m.bdd.Apply(a.bdd, b.bdd, rudd.OPxor)}
}

func (m *Manager) BddNot(a Dd) Dd {
	m.assertVariant(a, VariantBDD)
	return Dd{variant: VariantBDD, bdd: m.bdd.Not(a.bdd)}
}

// Cube builds the existential/restriction cube (conjunction of positive
// literals) over vars, the handle Exist and AndExist take as their
// variable-set argument.
func (m *Manager) Cube(vars []int) Dd {
	ddVars := make([]int, len(vars))
	for i, v := range vars {
		ddVars[i] = m.toDdVar(v)
	}
	return Dd{variant: VariantBDD, bdd: m.bddCube(ddVars)}
}

// Exist existentially abstracts n over the variables in cube. Abstracting
// over an empty cube is the identity, matching rudd's own Exist(n, one).
func (m *Manager) Exist(n, cube Dd) Dd {
	m.assertVariant(n, VariantBDD)
	m.assertVariant(cube, VariantBDD)
	return Dd{variant: VariantBDD, bdd: m.bdd.Exist(n.bdd, cube.bdd)}
}

// AndExist computes (a & b) existentially abstracted over cube in one
// pass, the "and-abstract" operation the upward SAT-filter build uses at
// every nonterminal.
func (m *Manager) AndExist(a, b, cube Dd) Dd {
	m.assertVariant(a, VariantBDD)
	m.assertVariant(b, VariantBDD)
	m.assertVariant(cube, VariantBDD)
	return Dd{variant: VariantBDD, bdd: m.bdd.AppEx(a.bdd, b.bdd, rudd.OPand, cube.bdd)}
}

// IsConstantZero reports whether a BDD handle is the constant-false leaf,
// the condition the SAT-filter's UnsatException check looks for.
func (m *Manager) IsConstantZero(a Dd) bool {
	m.assertVariant(a, VariantBDD)
	return m.bdd.Equal(a.bdd, m.bdd.False())
}

func (m *Manager) Support(a Dd) []int {
	if a.variant == VariantBDD {
		ddVars := m.bdd.Scanset(a.bdd)
		out := make([]int, len(ddVars))
		for i, dv := range ddVars {
			out[i] = m.toCnfVar(dv)
		}
		return out
	}
	vars := m.addMgr.support(a.add)
	out := make([]int, 0, len(vars))
	for dv := range vars {
		out = append(out, m.toCnfVar(dv))
	}
	return out
}

// --- algebraic (ADD) ops ---

func (m *Manager) Product(a, b Dd) Dd {
	m.assertVariant(a, VariantADD)
	m.assertVariant(b, VariantADD)
	return Dd{variant: VariantADD, add: m.addMgr.apply(addOpProduct, a.add, b.add)}
}

func (m *Manager) Sum(a, b Dd) Dd {
	m.assertVariant(a, VariantADD)
	m.assertVariant(b, VariantADD)
	return Dd{variant: VariantADD, add: m.addMgr.apply(addOpSum, a.add, b.add)}
}

func (m *Manager) MaxDd(a, b Dd) Dd {
	m.assertVariant(a, VariantADD)
	m.assertVariant(b, VariantADD)
	return Dd{variant: VariantADD, add: m.addMgr.apply(addOpMax, a.add, b.add)}
}

// Xor is defined only for boolean ADDs (0/1 leaves).
func (m *Manager) Xor(a, b Dd) Dd {
	m.assertVariant(a, VariantADD)
	m.assertVariant(b, VariantADD)
	return Dd{variant: VariantADD, add: m.addMgr.apply(addOpXor, a.add, b.add)}
}

// BooleanDifference computes [d1 >= d2] as a 0/1 ADD.
func (m *Manager) BooleanDifference(d1, d2 Dd) Dd {
	m.assertVariant(d1, VariantADD)
	m.assertVariant(d2, VariantADD)
	return Dd{variant: VariantADD, add: m.addMgr.apply(addOpGE, d1.add, d2.add)}
}

// Restrict composes n with x_v := value, v dropping out of the support.
func (m *Manager) Restrict(n Dd, v int, value bool) Dd {
	m.assertVariant(n, VariantADD)
	return Dd{variant: VariantADD, add: m.addMgr.restrict(n.add, m.toDdVar(v), value)}
}

// Abstract eliminates v from n's support, scaling the v=1 cofactor by pos
// and the v=0 cofactor by neg, then combining additively (weighted sum,
// log-sum-exp under log mode) or by max (for max-quantified vars).
func (m *Manager) Abstract(n Dd, v int, pos, neg number.Number, additive bool) Dd {
	m.assertVariant(n, VariantADD)
	return Dd{variant: VariantADD, add: m.addMgr.abstract(n.add, m.toDdVar(v), pos, neg, additive)}
}

// AbstractSum eliminates every var in vars from n in a single bulk pass,
// summing each variable's two weighted cofactors: the one-shot form used
// when an entire projection set is additive and unassigned. weight
// returns a var's positive and negative literal weights as Numbers in the
// active representation (log10 values under log counting); the backend
// combines them with Number arithmetic, which handles log space.
func (m *Manager) AbstractSum(n Dd, vars []int, weight func(v int) (pos, neg number.Number)) Dd {
	m.assertVariant(n, VariantADD)
	ddVars := make([]int, len(vars))
	byDd := make(map[int]int, len(vars)) // ddVar -> cnfVar
	for i, v := range vars {
		ddVars[i] = m.toDdVar(v)
		byDd[ddVars[i]] = v
	}
	sortInts(ddVars)
	pos := make([]number.Number, len(ddVars))
	neg := make([]number.Number, len(ddVars))
	for i, dv := range ddVars {
		pos[i], neg[i] = weight(byDd[dv])
	}
	return Dd{variant: VariantADD, add: m.addMgr.abstractSumAll(n.add, ddVars, pos, neg)}
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// ScaledCofactors returns v's two cofactors of n, each already multiplied
// by its polarity's weight (posWt for v=1, negWt for v=0), without
// combining them. The executor's per-variable abstraction step needs both
// separately to build the maximizer stack's boolean-difference indicator
// before deciding how (or whether) to combine them.
func (m *Manager) ScaledCofactors(n Dd, v int, posWt, negWt number.Number) (hi, lo Dd) {
	m.assertVariant(n, VariantADD)
	h, l := m.addMgr.scaledCofactors(n.add, m.toDdVar(v), posWt, negWt)
	return Dd{variant: VariantADD, add: h}, Dd{variant: VariantADD, add: l}
}

// Threshold implements log-mode pruning: every leaf below bound is
// replaced by the zero leaf. Only meaningful in log-counting mode; callers
// guard on number.LogSpace() before applying it.
func (m *Manager) Threshold(n Dd, bound number.Number) Dd {
	m.assertVariant(n, VariantADD)
	return Dd{variant: VariantADD, add: m.addMgr.threshold(n.add, bound)}
}

// ConstantValue returns (value, true) if n is a constant ADD leaf.
func (m *Manager) ConstantValue(n Dd) (number.Number, bool) {
	m.assertVariant(n, VariantADD)
	return m.addMgr.isConstant(n.add)
}

// Eval walks n to a leaf under assignment a, every var in n's support must
// be present in a. The walk sees ddVars; a is keyed by cnfVar, so the
// lookup translates at the boundary like every other public method.
func (m *Manager) Eval(n Dd, a *assign.Assignment) number.Number {
	m.assertVariant(n, VariantADD)
	return m.addMgr.eval(n.add, func(ddVar int) bool {
		val, _ := a.Get(m.toCnfVar(ddVar))
		return val
	})
}

// BddToAdd converts a BDD into the 0/1 ADD indicating it (1 where the BDD
// is true, 0 elsewhere; 0/−∞ in log mode), the bridge the executor uses to
// multiply the SAT-filter's per-node BDD constraint into its running
// product.
func (m *Manager) BddToAdd(b Dd) Dd {
	m.assertVariant(b, VariantBDD)
	if m.IsConstantZero(b) {
		return m.Zero()
	}
	if m.bdd.Equal(b.bdd, m.bdd.True()) {
		return m.One()
	}
	// Build via indicator: for each satisfying assignment emitted by
	// Allsat, OR in the corresponding minterm's ADD cube (don't-care
	// positions report -1 and contribute no factor).
	acc := m.Zero()
	_ = m.bdd.Allsat(b.bdd, func(bits []int) error {
		term := m.One()
		for ddVar, bit := range bits {
			if ddVar >= len(m.ddToCnf) {
				break
			}
			v := m.toCnfVar(ddVar)
			switch bit {
			case 1:
				term = m.Product(term, m.VarAdd(v, true))
			case 0:
				term = m.Product(term, m.VarAdd(v, false))
			}
		}
		acc = m.MaxDd(acc, term)
		return nil
	})
	return acc
}

// NodeCount returns the number of distinct nodes reachable from d, the
// ranking key the smallest/biggest-pair join-priority policies use.
func (m *Manager) NodeCount(d Dd) int {
	if d.variant == VariantBDD {
		count := 0
		_ = m.bdd.Allnodes(func(id, level, low, high int) error {
			count++
			return nil
		}, d.bdd)
		return count
	}
	seen := make(map[addRef]struct{})
	var walk func(addRef)
	walk = func(r addRef) {
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		n := m.addMgr.get(r)
		if n.leaf {
			return
		}
		walk(n.low)
		walk(n.high)
	}
	walk(d.add)
	return len(seen)
}

func (m *Manager) assertVariant(d Dd, want Variant) {
	if d.variant != want {
		panic(errs.InvariantViolationErr.New("diagram handle used with the wrong backend variant").Error())
	}
}
