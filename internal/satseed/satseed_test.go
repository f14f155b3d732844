package satseed

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xDarkicex/dpve/internal/cnf"
)

func clause(xor bool, literals ...int) *cnf.Clause {
	c := cnf.NewClause(xor)
	for _, l := range literals {
		c.Insert(l)
	}
	return c
}

func TestSolveFindsModelAndBansIt(t *testing.T) {
	c := &cnf.Cnf{DeclaredVarCount: 2}
	c.Clauses = append(c.Clauses, clause(false, 1, 2), clause(false, -1, 2))

	s := New(c)
	first, err := s.Solve()
	require.NoError(t, err)
	require.True(t, first[2])

	second, err := s.Solve()
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestSolveUnsatReturnsError(t *testing.T) {
	c := &cnf.Cnf{DeclaredVarCount: 1}
	c.Clauses = append(c.Clauses, clause(false, 1), clause(false, -1))

	_, err := New(c).Solve()
	require.Error(t, err)
}

func TestSolveHonorsXorClause(t *testing.T) {
	c := &cnf.Cnf{DeclaredVarCount: 2}
	c.Clauses = append(c.Clauses, clause(false, 1), clause(true, 1, 2))

	model, err := New(c).Solve()
	require.NoError(t, err)
	require.True(t, model[1])
	require.False(t, model[2])
}
