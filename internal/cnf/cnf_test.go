package cnf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xDarkicex/dpve/internal/number"
)

func TestXORClauseParity(t *testing.T) {
	c := NewClause(true)
	c.Insert(1)
	c.Insert(2)
	c.Insert(1) // parity: removes 1
	require.False(t, c.Empty())
	lits := c.Literals()
	require.ElementsMatch(t, []int{2}, lits)
}

func TestOrdinaryClauseIdempotent(t *testing.T) {
	c := NewClause(false)
	c.Insert(1)
	c.Insert(1)
	require.Equal(t, 1, c.Len())
}

func TestWeightCompletion(t *testing.T) {
	number.Configure(number.ModeFloat, false)
	c := &Cnf{
		DeclaredVarCount: 2,
		LiteralWeights:   map[int]number.Number{},
		weightedCounting: true,
	}
	w, _ := number.Parse("0.3")
	c.LiteralWeights[1] = w
	require.NoError(t, c.CompleteLiteralWeights())

	neg, ok := c.LiteralWeights[-1]
	require.True(t, ok)
	require.InDelta(t, 0.7, neg.Float64(), 1e-9)

	pos2, ok := c.LiteralWeights[2]
	require.True(t, ok)
	require.InDelta(t, 1.0, pos2.Float64(), 1e-9)
}

func TestReadUnweightedDefaults(t *testing.T) {
	number.Configure(number.ModeFloat, false)
	src := "p cnf 2 1\n1 -2 0\n"
	c, err := Read(strings.NewReader(src), ReadOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, c.DeclaredVarCount)
	require.Len(t, c.Clauses, 1)
	require.Len(t, c.OuterVars, 2) // projected counting off => all vars outer
}

func TestReadXORClauses(t *testing.T) {
	src := "p cnf 2 2\nx 1 2 0\n1 0\n"
	c, err := Read(strings.NewReader(src), ReadOptions{})
	require.NoError(t, err)
	require.Len(t, c.Clauses, 2)
	require.True(t, c.Clauses[0].XOR)
	require.False(t, c.Clauses[1].XOR)
}

func TestReadWeightLines(t *testing.T) {
	number.Configure(number.ModeFloat, false)
	src := "p cnf 1 1\nc p weight 1 0.3\nc p weight -1 0.7\n1 0\n"
	c, err := Read(strings.NewReader(src), ReadOptions{WeightedCounting: true})
	require.NoError(t, err)
	pos := c.LiteralWeights[1]
	require.InDelta(t, 0.3, pos.Float64(), 1e-9)
}

func TestReadShowLineRestrictsOuterVars(t *testing.T) {
	src := "p cnf 3 2\nc p show 1 0\n1 2 0\n1 3 0\n"
	c, err := Read(strings.NewReader(src), ReadOptions{ProjectedCounting: true})
	require.NoError(t, err)
	_, isOuter := c.OuterVars[1]
	require.True(t, isOuter)
	_, isOuter2 := c.OuterVars[2]
	require.False(t, isOuter2)
}

func TestEmptyClauseIsUnsat(t *testing.T) {
	src := "p cnf 1 1\n0\n"
	_, err := Read(strings.NewReader(src), ReadOptions{})
	require.Error(t, err)
}

func TestHeuristicsCoverEveryApparentVar(t *testing.T) {
	src := "p cnf 4 3\n1 2 0\n2 3 0\n3 4 0\n"
	c, err := Read(strings.NewReader(src), ReadOptions{})
	require.NoError(t, err)

	for _, id := range []HeuristicID{Declaration, MostClauses, MCS, LexP, LexM, MinFill, COLAMD} {
		order := c.VarOrder(int(id))
		require.ElementsMatchf(t, c.ApparentVars(), order, "heuristic %d must return every apparent var exactly once", id)
	}
}

func TestHeuristicNegationReverses(t *testing.T) {
	src := "p cnf 3 1\n1 2 3 0\n"
	c, err := Read(strings.NewReader(src), ReadOptions{})
	require.NoError(t, err)

	fwd := c.VarOrder(int(Declaration))
	rev := c.VarOrder(-int(Declaration))
	require.Equal(t, len(fwd), len(rev))
	for i := range fwd {
		require.Equal(t, fwd[i], rev[len(rev)-1-i])
	}
}
