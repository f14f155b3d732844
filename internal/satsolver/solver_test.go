package satsolver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSolveSimpleSatisfiable(t *testing.T) {
	f := NewFormula(2)
	f.AddClause([]Literal{1, 2})
	f.AddClause([]Literal{-1, 2})

	res := NewSolver(f).Solve()
	require.True(t, res.Satisfiable)
	require.True(t, res.Model[2])
}

func TestSolveUnitPropagationForcesValue(t *testing.T) {
	f := NewFormula(2)
	f.AddClause([]Literal{1})
	f.AddClause([]Literal{-1, -2})

	res := NewSolver(f).Solve()
	require.True(t, res.Satisfiable)
	require.True(t, res.Model[1])
	require.False(t, res.Model[2])
}

func TestSolveUnsatisfiable(t *testing.T) {
	f := NewFormula(1)
	f.AddClause([]Literal{1})
	f.AddClause([]Literal{-1})

	res := NewSolver(f).Solve()
	require.False(t, res.Satisfiable)
	require.Nil(t, res.Model)
}

func TestSolveXorClauseParity(t *testing.T) {
	f := NewFormula(2)
	f.AddClause([]Literal{1})
	f.AddXORClause([]int{1, 2}, true)

	res := NewSolver(f).Solve()
	require.True(t, res.Satisfiable)
	require.True(t, res.Model[1])
	require.False(t, res.Model[2])
}

func TestSolveXorClauseConflict(t *testing.T) {
	f := NewFormula(2)
	f.AddClause([]Literal{1})
	f.AddClause([]Literal{2})
	f.AddXORClause([]int{1, 2}, true)

	res := NewSolver(f).Solve()
	require.False(t, res.Satisfiable)
}

func TestBanModelForcesDifferentAssignment(t *testing.T) {
	f := NewFormula(2)
	first := NewSolver(f).Solve()
	require.True(t, first.Satisfiable)

	f.BanModel(first.Model)
	second := NewSolver(f).Solve()
	require.True(t, second.Satisfiable)
	require.NotEqual(t, first.Model, second.Model)
}

func TestBanModelEventuallyExhaustsSpace(t *testing.T) {
	f := NewFormula(1)
	for i := 0; i < 2; i++ {
		res := NewSolver(f).Solve()
		require.True(t, res.Satisfiable)
		f.BanModel(res.Model)
	}
	res := NewSolver(f).Solve()
	require.False(t, res.Satisfiable)
}

func TestLiteralHelpers(t *testing.T) {
	lit := Literal(-3)
	require.Equal(t, 3, lit.Var())
	require.False(t, lit.Positive())
	require.Equal(t, Literal(3), lit.Negate())
}
