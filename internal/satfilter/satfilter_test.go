package satfilter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xDarkicex/dpve/internal/dd"
	"github.com/xDarkicex/dpve/internal/errs"
	"github.com/xDarkicex/dpve/internal/exec"
	"github.com/xDarkicex/dpve/internal/jointree"
	"github.com/xDarkicex/dpve/internal/number"
	"github.com/xDarkicex/dpve/internal/priority"
	"github.com/xDarkicex/dpve/internal/satfilter"
)

func varSet(vs ...int) map[int]struct{} {
	out := make(map[int]struct{}, len(vs))
	for _, v := range vs {
		out[v] = struct{}{}
	}
	return out
}

func buildFlatTree(clauseVars []map[int]struct{}, projVars map[int]struct{}) *jointree.Tree {
	tree := jointree.NewTree(len(projVars), len(clauseVars), len(clauseVars)+1)
	children := make([]jointree.Node, len(clauseVars))
	for i, vars := range clauseVars {
		tree.Terminals[i] = jointree.NewTerminal(i, vars)
		children[i] = tree.Terminals[i]
	}
	tree.Nonterminals[len(clauseVars)] = jointree.NewNonterminal(children, projVars, len(clauseVars))
	return tree
}

func evaluate(t *testing.T, mgr *dd.Manager, tree *jointree.Tree, literals map[int][]int, filtered *satfilter.Result) float64 {
	t.Helper()
	e := exec.New(exec.Options{
		Mgr:              mgr,
		DeclaredVarCount: 2,
		ClauseLiterals:   func(i int) []int { return literals[i] },
		ClauseXOR:        func(i int) bool { return false },
		LiteralWeight:    func(lit int) number.Number { return number.One() },
		OuterVars:        varSet(1, 2),
		SatFilter:        filtered,
	})
	got, err := e.Evaluate(tree)
	require.NoError(t, err)
	return got.Float64()
}

// Enabling the filter must not change an unweighted count: the filtered
// BDDs restrict the support but never zero an assignment whose subtree
// has models.
func TestFilterIsCountNeutral(t *testing.T) {
	number.Configure(number.ModeFloat, false)
	literals := map[int][]int{0: {1, -2}}
	clauseVars := []map[int]struct{}{varSet(1, 2)}

	mgrPlain, err := dd.NewManager(2)
	require.NoError(t, err)
	tree := buildFlatTree(clauseVars, varSet(1, 2))
	plain := evaluate(t, mgrPlain, tree, literals, nil)

	mgrFiltered, err := dd.NewManager(2)
	require.NoError(t, err)
	result, err := satfilter.Run(tree, func(i int) []int { return literals[i] }, func(i int) bool { return false }, mgrFiltered, priority.FCFS)
	require.NoError(t, err)
	withFilter := evaluate(t, mgrFiltered, tree, literals, result)

	require.InDelta(t, 3.0, plain, 1e-9)
	require.InDelta(t, plain, withFilter, 1e-9)
}

func TestTerminalsEndUpUnconstrained(t *testing.T) {
	number.Configure(number.ModeFloat, false)
	literals := map[int][]int{0: {1, -2}}
	mgr, err := dd.NewManager(2)
	require.NoError(t, err)
	tree := buildFlatTree([]map[int]struct{}{varSet(1, 2)}, varSet(1, 2))

	result, err := satfilter.Run(tree, func(i int) []int { return literals[i] }, func(i int) bool { return false }, mgr, priority.FCFS)
	require.NoError(t, err)

	// The clause constraint migrates to the projection root; the terminal's
	// stored BDD is constant-true.
	require.False(t, mgr.IsConstantZero(result.Filtered[0]))
	require.False(t, mgr.IsConstantZero(result.Filtered[1]))
	require.Greater(t, mgr.NodeCount(result.Filtered[1]), mgr.NodeCount(result.Filtered[0]))
}

func TestRootConstantZeroIsUnsat(t *testing.T) {
	number.Configure(number.ModeFloat, false)
	literals := map[int][]int{0: {1}, 1: {-1}}
	mgr, err := dd.NewManager(1)
	require.NoError(t, err)
	tree := buildFlatTree([]map[int]struct{}{varSet(1), varSet(1)}, varSet(1))

	_, err = satfilter.Run(tree, func(i int) []int { return literals[i] }, func(i int) bool { return false }, mgr, priority.FCFS)
	require.Error(t, err)
	var unsat *errs.Unsat
	require.ErrorAs(t, err, &unsat)
}
