// Package satfilter implements the SAT-filter pre-pruning pass: an upward
// build of one BDD per join-tree subtree capturing pure boolean
// satisfiability (ignoring weights), followed by a downward pass that
// strengthens the conjunction stored at each projection nonterminal with
// the constraints its ancestors already imply. The executor later
// multiplies each node's surviving BDD (converted to a 0/1 ADD) into its
// running product, so assignments that cannot be extended to satisfy the
// subtree are zeroed before abstraction ever sums them.
//
// All diagram work goes through internal/dd; this package never touches
// the backends directly.
package satfilter

import (
	"sort"

	"github.com/xDarkicex/dpve/internal/dd"
	"github.com/xDarkicex/dpve/internal/errs"
	"github.com/xDarkicex/dpve/internal/jointree"
	"github.com/xDarkicex/dpve/internal/priority"
)

// sizedDd adapts a dd.Dd handle to priority.Sized, letting the
// smallest/biggest-pair scheduler rank BDDs by live node count.
type sizedDd struct {
	mgr *dd.Manager
	d   dd.Dd
}

func (s sizedDd) NodeCount() int { return s.mgr.NodeCount(s.d) }

// Clause abstracts over the Cnf type so this package doesn't need to
// import internal/cnf directly; the driver passes closures over its loaded
// Cnf.
type ClauseLiterals func(clauseIndex int) []int
type ClauseXOR func(clauseIndex int) bool

// Result is the outcome of a full upward-build/downward-filter run: for
// every node index, the BDD constraint the executor should multiply in.
// Terminals and non-projection nonterminals always end up with the
// constant-true BDD; a projection nonterminal keeps its strengthened
// pre-abstraction conjunction when its subtree contains at least one
// terminal, and constant-true otherwise.
type Result struct {
	Filtered map[int]dd.Dd
}

// Run executes both passes over tree using mgr and policy. Returns an
// *errs.Unsat if the root's satisfiability BDD is the constant zero.
func Run(tree *jointree.Tree, literalsOf ClauseLiterals, xorOf ClauseXOR, mgr *dd.Manager, policy priority.Policy) (*Result, error) {
	pass := &pass{tree: tree, literalsOf: literalsOf, xorOf: xorOf, mgr: mgr, policy: policy,
		filtered: make(map[int]dd.Dd)}

	root, ok := tree.Root()
	if !ok {
		return nil, errs.InvariantViolationErr.New("join tree has no root")
	}
	rootBdd := pass.buildUp(root)
	if mgr.IsConstantZero(rootBdd) {
		return nil, errs.NewUnsat("SAT-filter root is constant zero")
	}

	pass.downwardFilter(root, mgr.BddOne())
	return &Result{Filtered: pass.filtered}, nil
}

type pass struct {
	tree       *jointree.Tree
	literalsOf ClauseLiterals
	xorOf      ClauseXOR
	mgr        *dd.Manager
	policy     priority.Policy
	filtered   map[int]dd.Dd // node index -> stored BDD (pre-abstraction conjunction, later strengthened or reset)
}

// buildUp is the upward pass: a terminal's subtree BDD is its clause's
// satisfiability (it stores constant-true, the clause constraint lives in
// the conjunction above); a nonterminal's subtree BDD is its children's
// conjunction (combined per the join-priority policy), existentially
// abstracted over its projection vars. The pre-abstraction conjunction is
// what a projection nonterminal stores for the downward pass.
func (p *pass) buildUp(node jointree.Node) dd.Dd {
	if term, ok := node.(*jointree.Terminal); ok {
		idx := term.Index()
		p.filtered[idx] = p.mgr.BddOne()
		return p.mgr.BuildClauseBdd(p.literalsOf(idx), p.xorOf(idx))
	}

	nt := node.(*jointree.Nonterminal)
	children := nt.Children()
	childBdds := make([]sizedDd, 0, len(children)+1)
	for _, child := range children {
		childBdds = append(childBdds, sizedDd{mgr: p.mgr, d: p.buildUp(child)})
	}
	if len(childBdds) == 0 {
		childBdds = append(childBdds, sizedDd{mgr: p.mgr, d: p.mgr.BddOne()})
	}
	conjunction := priority.Combine(p.policy, childBdds, func(a, b sizedDd) sizedDd {
		return sizedDd{mgr: p.mgr, d: p.mgr.And(a.d, b.d)}
	}).d

	projVars := sortedVarSlice(nt.ProjectionVars())
	if len(projVars) == 0 {
		p.filtered[nt.Index()] = p.mgr.BddOne()
		return conjunction
	}
	p.filtered[nt.Index()] = conjunction
	return p.mgr.Exist(conjunction, p.mgr.Cube(projVars))
}

// downwardFilter strengthens each projection nonterminal's stored
// conjunction b with the constraint its ancestors imply: b becomes
// (b ∧ parent) existentially abstracted over the parent-support vars b
// does not mention, projecting the ancestor constraint onto b's own
// variables. The strengthened BDD is kept only at projection nodes with a
// terminal somewhere below; everywhere else the stored BDD is reset to
// constant-true so it contributes no constraint. Returns whether node's
// subtree contains any terminal.
func (p *pass) downwardFilter(node jointree.Node, parent dd.Dd) bool {
	if node.IsTerminal() {
		return true
	}
	nt := node.(*jointree.Nonterminal)

	bottomMost := len(nt.ProjectionVars()) > 0
	next := parent
	if bottomMost {
		b := p.filtered[nt.Index()]
		extra := setDiffSlice(p.mgr.Support(parent), p.mgr.Support(b))
		strengthened := p.mgr.AndExist(b, parent, p.mgr.Cube(extra))
		p.filtered[nt.Index()] = strengthened
		next = strengthened
	}

	hasNewClauses := false
	for _, child := range nt.Children() {
		if p.downwardFilter(child, next) {
			hasNewClauses = true
		}
	}
	if !(hasNewClauses && bottomMost) {
		p.filtered[nt.Index()] = p.mgr.BddOne()
	}
	return hasNewClauses
}

func sortedVarSlice(vars map[int]struct{}) []int {
	out := make([]int, 0, len(vars))
	for v := range vars {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func setDiffSlice(a, b []int) []int {
	inB := make(map[int]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}
	out := make([]int, 0, len(a))
	for _, v := range a {
		if _, ok := inB[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}
