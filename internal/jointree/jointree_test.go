package jointree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func varSet(vs ...int) map[int]struct{} {
	s := make(map[int]struct{}, len(vs))
	for _, v := range vs {
		s[v] = struct{}{}
	}
	return s
}

// buildSmallTree builds: terminal0{1,2}, terminal1{2,3}, nt2 = join(t0,t1)
// projecting {2}, nt3 = join(nt2) projecting {1,3}.
func buildSmallTree(t *testing.T) *Tree {
	t.Helper()
	tree := NewTree(3, 2, 4)
	t0 := NewTerminal(0, varSet(1, 2))
	t1 := NewTerminal(1, varSet(2, 3))
	tree.Terminals[0] = t0
	tree.Terminals[1] = t1

	nt2 := NewNonterminal([]Node{t0, t1}, varSet(2), 2)
	tree.Nonterminals[2] = nt2

	nt3 := NewNonterminal([]Node{nt2}, varSet(1, 3), 3)
	tree.Nonterminals[3] = nt3
	return tree
}

func TestNonterminalPreProjectionVarsUnionsChildrenPostProjection(t *testing.T) {
	tree := buildSmallTree(t)
	nt2 := tree.Nonterminals[2]
	require.ElementsMatch(t, []int{1, 2, 3}, sortedVars(nt2.PreProjectionVars()))

	nt3 := tree.Nonterminals[3]
	// nt2's postProjectionVars = preVars \ {2} = {1,3}
	require.ElementsMatch(t, []int{1, 3}, sortedVars(nt3.PreProjectionVars()))
}

func TestWidthIsMaxOverSubtree(t *testing.T) {
	tree := buildSmallTree(t)
	root, ok := tree.Root()
	require.True(t, ok)
	// nt3 width: max(|{1,3}|=2, nt2.Width) ; nt2 width: max(|{1,2,3}|=3, t0=2, t1=2) = 3
	require.Equal(t, 3, root.Width(nil))
}

func TestWellFormedDetectsDoublyProjectedVar(t *testing.T) {
	tree := buildSmallTree(t)
	// project var 2 again at nt3 alongside 1,3: invalid
	tree.Nonterminals[3] = NewNonterminal([]Node{tree.Nonterminals[2]}, varSet(1, 2, 3), 3)
	apparent := varSet(1, 2, 3)
	err := tree.WellFormed(apparent)
	require.Error(t, err)
}

func TestWellFormedAcceptsValidTree(t *testing.T) {
	tree := buildSmallTree(t)
	apparent := varSet(1, 2, 3)
	require.NoError(t, tree.WellFormed(apparent))
}

func TestBiggestNodeVarOrderCoversAllVars(t *testing.T) {
	tree := buildSmallTree(t)
	order := tree.BiggestNodeVarOrder()
	require.ElementsMatch(t, []int{1, 2, 3}, order)
}

func TestHighestNodeVarOrderEmitsRootProjectionFirst(t *testing.T) {
	tree := buildSmallTree(t)
	order := tree.HighestNodeVarOrder()
	require.Len(t, order, 3)
	require.ElementsMatch(t, []int{1, 3}, order[:2])
	require.Equal(t, 2, order[2])
}

func TestLexPVarOrderCoversAllVars(t *testing.T) {
	tree := buildSmallTree(t)
	order := tree.LexPVarOrder()
	require.ElementsMatch(t, []int{1, 2, 3}, order)
}

func TestVarOrderNegationReverses(t *testing.T) {
	tree := buildSmallTree(t)
	fwd := tree.VarOrder(int(BiggestNode))
	rev := tree.VarOrder(-int(BiggestNode))
	require.Equal(t, len(fwd), len(rev))
	for i := range fwd {
		require.Equal(t, fwd[i], rev[len(rev)-1-i])
	}
}
