// Package exec implements the join-tree executor: bottom-up recursive
// evaluation that synthesizes a clause ADD at each terminal (or converts
// the SAT-filter's BDD when that pass ran), combines children into a
// product per the join-priority policy at each nonterminal, and abstracts
// the node's projection variables, accumulating a maximizer stack for
// exist-random runs and applying threshold pruning when a log bound is in
// force. Diagram operations are reached entirely through internal/dd.
package exec

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/xDarkicex/dpve/internal/assign"
	"github.com/xDarkicex/dpve/internal/dd"
	"github.com/xDarkicex/dpve/internal/errs"
	"github.com/xDarkicex/dpve/internal/jointree"
	"github.com/xDarkicex/dpve/internal/number"
	"github.com/xDarkicex/dpve/internal/priority"
	"github.com/xDarkicex/dpve/internal/satfilter"
)

// MaximizerFormat names the "mf" flag's four settings: whether (and how)
// the executor should retain enough information to reconstruct an
// outer-variable maximizer after the root is evaluated.
type MaximizerFormat int

const (
	MaximizerNone MaximizerFormat = iota
	MaximizerShort
	MaximizerLong
	MaximizerDual
)

// atomicTolerance is the slack allowed when checking that a variable's
// two literal weights sum to one before weighted atomic abstraction.
const atomicTolerance = 1e-3

// ClauseLiterals and ClauseXOR abstract over internal/cnf so this package
// doesn't need to import it directly, matching internal/satfilter's
// ClauseLiterals closure convention.
type ClauseLiterals func(clauseIndex int) []int
type ClauseXOR func(clauseIndex int) bool
type LiteralWeight func(literal int) number.Number

// Options configures one Evaluate run.
type Options struct {
	Mgr              *dd.Manager
	DeclaredVarCount int

	ClauseLiterals ClauseLiterals
	ClauseXOR      ClauseXOR
	LiteralWeight  LiteralWeight

	OuterVars   map[int]struct{}
	ExistRandom bool
	Policy      priority.Policy

	// SatFilter, if non-nil, supplies the filtered per-node BDDs from
	// internal/satfilter; each node's BDD (constant-true except at
	// projection nonterminals) is converted to a 0/1 ADD and multiplied
	// into that node's product instead of synthesizing clause ADDs at the
	// terminals.
	SatFilter *satfilter.Result

	// ThresholdModel is the optional partial assignment (the "tm" flag)
	// whose fixed variables short-circuit abstraction to a plain
	// restrict-and-scale instead of computing both cofactors.
	ThresholdModel *assign.Assignment

	// Weighted reports whether the run parses literal weights; atomic
	// abstraction validates its pos+neg≈1 invariant only in that case.
	Weighted bool

	HasLogBound bool
	LogBound    number.Number

	MaximizerFormat          MaximizerFormat
	SubstitutionMaximization bool
	AtomicAbstract           bool

	// Reorder, when non-nil, is consulted before each binary product in
	// evalNonterminal, the dynamic-reordering trigger point. Left nil to
	// disable (ReorderMode ReorderNone behaves identically).
	Reorder *dd.ReorderController

	Log *logrus.Logger
}

// maxEntry is one frame of the maximizer stack: the variable and the
// boolean-valued "dsgn" ADD ([hi >= lo]) that decides its value once
// every variable above it in elimination order is known.
type maxEntry struct {
	v    int
	dsgn dd.Dd
}

// Executor runs one bottom-up evaluation of a join tree.
type Executor struct {
	opts       Options
	assignment *assign.Assignment
	maxStack   []maxEntry
}

// New builds an Executor from opts.
func New(opts Options) *Executor {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	opts.Log = log
	assignment := opts.ThresholdModel
	if assignment == nil {
		assignment = assign.New(opts.DeclaredVarCount)
	}
	return &Executor{opts: opts, assignment: assignment}
}

// Evaluate walks tree bottom-up from its root and returns the resulting
// Number, the formula's (weighted, projected, or exist-random) valuation
// restricted to the clauses and weights the options carry.
func (e *Executor) Evaluate(tree *jointree.Tree) (number.Number, error) {
	root, ok := tree.Root()
	if !ok {
		return number.Number{}, errs.InvariantViolationErr.New("join tree has no root")
	}
	d, err := e.evalNode(root)
	if err != nil {
		return number.Number{}, err
	}
	val, ok := e.opts.Mgr.ConstantValue(d)
	if !ok {
		return number.Number{}, errs.InvariantViolationErr.New("root diagram did not reduce to a constant after full abstraction")
	}
	return val, nil
}

// Maximizer pops the maximizer stack in LIFO order, evaluating each
// frame's dsgn under the partial assignment built by frames popped before
// it, and returns the resulting full outer-variable assignment. Call only
// after Evaluate and only when MaximizerFormat != MaximizerNone.
func (e *Executor) Maximizer() *assign.Assignment {
	out := assign.New(e.opts.DeclaredVarCount)
	for i := len(e.maxStack) - 1; i >= 0; i-- {
		entry := e.maxStack[i]
		val := e.opts.Mgr.Eval(entry.dsgn, out)
		out.Set(entry.v, !val.Equal(number.Zero()))
	}
	return out
}

func (e *Executor) evalNode(node jointree.Node) (dd.Dd, error) {
	if term, ok := node.(*jointree.Terminal); ok {
		return e.evalTerminal(term)
	}
	nt, ok := node.(*jointree.Nonterminal)
	if !ok {
		return dd.Dd{}, errs.InvariantViolationErr.New("join tree node is neither terminal nor nonterminal")
	}
	return e.evalNonterminal(nt)
}

func (e *Executor) evalTerminal(term *jointree.Terminal) (dd.Dd, error) {
	idx := term.Index()
	if e.opts.SatFilter != nil {
		// The downward filter pass has already folded this clause's
		// constraint into the conjunction stored at its projection
		// ancestor; the terminal's own stored BDD is constant-true.
		b, ok := e.opts.SatFilter.Filtered[idx]
		if !ok {
			return dd.Dd{}, errs.InvariantViolationErr.New("SAT-filter result missing terminal node")
		}
		return e.opts.Mgr.BddToAdd(b), nil
	}
	literals := e.opts.ClauseLiterals(idx)
	xor := e.opts.ClauseXOR(idx)
	return e.opts.Mgr.BuildClauseAdd(literals, xor, e.assignment), nil
}

func (e *Executor) evalNonterminal(nt *jointree.Nonterminal) (dd.Dd, error) {
	children := nt.Children()
	diagrams := make([]sizedDd, 0, len(children)+1)
	if e.opts.SatFilter != nil {
		// The node's filtered satisfiability BDD joins the product as one
		// more multiplicand, zeroing assignments its subtree can never
		// satisfy before abstraction sums them.
		b, ok := e.opts.SatFilter.Filtered[nt.Index()]
		if !ok {
			return dd.Dd{}, errs.InvariantViolationErr.New("SAT-filter result missing nonterminal node")
		}
		diagrams = append(diagrams, sizedDd{mgr: e.opts.Mgr, d: e.opts.Mgr.BddToAdd(b)})
	}
	for _, ch := range children {
		d, err := e.evalNode(ch)
		if err != nil {
			return dd.Dd{}, err
		}
		diagrams = append(diagrams, sizedDd{mgr: e.opts.Mgr, d: d})
	}
	if len(diagrams) == 0 {
		diagrams = append(diagrams, sizedDd{mgr: e.opts.Mgr, d: e.opts.Mgr.One()})
	}
	acc := priority.Combine(e.opts.Policy, diagrams, func(a, b sizedDd) sizedDd {
		left := a.d
		if e.opts.Reorder != nil {
			left = e.opts.Mgr.MaybeReorder(e.opts.Reorder, left)
		}
		return sizedDd{mgr: e.opts.Mgr, d: e.opts.Mgr.Product(left, b.d)}
	}).d

	projVars := sortedVarSlice(nt.ProjectionVars())

	if e.opts.AtomicAbstract && e.allAtomicEligible(projVars) {
		var err error
		acc, err = e.atomicAbstract(acc, projVars)
		if err != nil {
			return dd.Dd{}, err
		}
	} else {
		for _, v := range projVars {
			acc = e.abstractVar(acc, v)
		}
	}
	return acc, nil
}

// allAtomicEligible reports whether every var in vars is unassigned and
// additive, the precondition under which atomic (bulk) abstraction is a
// sum of weighted restrictions with no interleaved max.
func (e *Executor) allAtomicEligible(vars []int) bool {
	for _, v := range vars {
		if e.assignment.Has(v) {
			return false
		}
		if !e.additive(v) {
			return false
		}
	}
	return true
}

// atomicAbstract eliminates the whole projection set with one bulk
// backend call instead of one diagram rewrite per variable. The weighted
// form requires each var's two literal weights to sum to one within
// tolerance and fails otherwise; both weights are then passed to the
// backend. Unweighted counting bulk-abstracts with unit weights and needs
// no such check.
func (e *Executor) atomicAbstract(acc dd.Dd, vars []int) (dd.Dd, error) {
	if e.opts.Weighted {
		for _, v := range vars {
			sum := e.opts.LiteralWeight(v).Float64() + e.opts.LiteralWeight(-v).Float64()
			if math.Abs(sum-1) > atomicTolerance {
				return dd.Dd{}, errs.InvariantViolationErr.New("atomic abstraction weight invariant violated for var (pos+neg not within tolerance of 1)")
			}
		}
	}
	return e.opts.Mgr.AbstractSum(acc, vars, func(v int) (number.Number, number.Number) {
		return e.opts.LiteralWeight(v), e.opts.LiteralWeight(-v)
	}), nil
}

// abstractVar eliminates one projection variable: a fixed
// (threshold-model) assignment short-circuits to a plain
// restrict-and-scale; otherwise the two cofactors are computed, the
// maximizer stack is fed when the var is max-quantified and maximizer
// output was requested, and substitution maximization (when enabled)
// replaces the accumulator instead of combining the cofactors directly.
func (e *Executor) abstractVar(acc dd.Dd, v int) dd.Dd {
	pos := e.opts.LiteralWeight(v)
	neg := e.opts.LiteralWeight(-v)
	additive := e.additive(v)

	switch {
	case e.assignment.Has(v):
		val, _ := e.assignment.Get(v)
		wt := neg
		if val {
			wt = pos
		}
		restricted := e.opts.Mgr.Restrict(acc, v, val)
		acc = e.opts.Mgr.Product(restricted, e.opts.Mgr.Constant(wt))

	case e.opts.MaximizerFormat != MaximizerNone && !additive:
		hi, lo := e.opts.Mgr.ScaledCofactors(acc, v, pos, neg)
		dsgn := e.opts.Mgr.BooleanDifference(hi, lo)
		e.maxStack = append(e.maxStack, maxEntry{v: v, dsgn: dsgn})
		if e.opts.SubstitutionMaximization {
			notDsgn := e.opts.Mgr.Xor(dsgn, e.opts.Mgr.One())
			acc = e.opts.Mgr.Sum(e.opts.Mgr.Product(dsgn, hi), e.opts.Mgr.Product(notDsgn, lo))
		} else {
			acc = e.opts.Mgr.MaxDd(hi, lo)
		}

	default:
		acc = e.opts.Mgr.Abstract(acc, v, pos, neg, additive)
	}

	// Pruning happens after every single-variable elimination, not once
	// per node: each abstraction step can only lower leaf values when
	// weights stay at most one, so leaves already below the bound can
	// never recover.
	one := number.One()
	if number.LogSpace() && e.opts.HasLogBound && (!pos.Equal(one) || !neg.Equal(one)) {
		acc = e.opts.Mgr.Threshold(acc, e.opts.LogBound)
	}
	return acc
}

// additive implements outerVars.contains(v) XOR existRandom: a var is
// summed (rather than max-quantified) when it is an outer var under
// ordinary projected counting, or an inner var under exist-random
// valuation.
func (e *Executor) additive(v int) bool {
	_, outer := e.opts.OuterVars[v]
	return outer != e.opts.ExistRandom
}

// sizedDd adapts a dd.Dd handle to priority.Sized so the join-priority
// scheduler can rank children by live node count, mirroring
// internal/satfilter's identical adapter for BDDs.
type sizedDd struct {
	mgr *dd.Manager
	d   dd.Dd
}

func (s sizedDd) NodeCount() int { return s.mgr.NodeCount(s.d) }

func sortedVarSlice(vars map[int]struct{}) []int {
	out := make([]int, 0, len(vars))
	for v := range vars {
		out = append(out, v)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
