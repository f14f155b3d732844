package dd

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xDarkicex/dpve/internal/number"
)

func newTestAddManager() *addManager {
	number.Configure(number.ModeFloat, false)
	return newAddManager()
}

func TestVarLiteralEvalsCorrectly(t *testing.T) {
	m := newTestAddManager()
	lit := m.varLiteral(1, true)
	require.Equal(t, number.One(), m.eval(lit, func(v int) bool { return true }))
	require.Equal(t, number.Zero(), m.eval(lit, func(v int) bool { return false }))
}

func TestProductAndSum(t *testing.T) {
	m := newTestAddManager()
	a := m.mkLeaf(number.FromFloat(2))
	b := m.mkLeaf(number.FromFloat(3))
	require.Equal(t, 6.0, m.get(m.apply(addOpProduct, a, b)).value.Float64())
	require.Equal(t, 5.0, m.get(m.apply(addOpSum, a, b)).value.Float64())
}

func TestMaxAndXor(t *testing.T) {
	m := newTestAddManager()
	zero, one := m.zero, m.one
	require.Equal(t, number.One(), m.get(m.apply(addOpMax, zero, one)).value)
	require.Equal(t, number.One(), m.get(m.apply(addOpXor, zero, one)).value)
	require.Equal(t, number.Zero(), m.get(m.apply(addOpXor, one, one)).value)
}

func TestRestrictDropsVariable(t *testing.T) {
	m := newTestAddManager()
	lit := m.varLiteral(1, true)
	require.Equal(t, number.One(), m.get(m.restrict(lit, 1, true)).value)
	require.Equal(t, number.Zero(), m.get(m.restrict(lit, 1, false)).value)
}

func TestAbstractAdditiveSumsCofactors(t *testing.T) {
	m := newTestAddManager()
	lit := m.varLiteral(1, true) // 1 if v1, 0 otherwise
	half := number.FromFloat(0.5)
	r := m.abstract(lit, 1, half, half, true)
	require.InDelta(t, 0.5, m.get(r).value.Float64(), 1e-9)
}

func TestAbstractMaxQuantified(t *testing.T) {
	m := newTestAddManager()
	lit := m.varLiteral(1, true)
	one := number.One()
	r := m.abstract(lit, 1, one, one, false)
	require.Equal(t, 1.0, m.get(r).value.Float64())
}

func TestScaledCofactorsMatchAbstract(t *testing.T) {
	m := newTestAddManager()
	lit := m.varLiteral(1, true)
	pos, neg := number.FromFloat(2), number.FromFloat(3)
	hi, lo := m.scaledCofactors(lit, 1, pos, neg)
	require.Equal(t, 2.0, m.get(hi).value.Float64())
	// x1 restricted to 0 is the zero leaf, so the scaled low cofactor is 0.
	require.Equal(t, 0.0, m.get(lo).value.Float64())
	summed := m.get(m.apply(addOpSum, hi, lo)).value.Float64()
	require.Equal(t, m.get(m.abstract(lit, 1, pos, neg, true)).value.Float64(), summed)
}

func TestAbstractSumAllMatchesPerVariableAbstraction(t *testing.T) {
	m := newTestAddManager()
	// f = x1 * indicator(x3), with x2 absent from the support.
	f := m.apply(addOpProduct, m.varLiteral(1, true), m.varLiteral(3, true))
	weights := map[int][2]number.Number{
		1: {number.FromFloat(0.3), number.FromFloat(0.7)},
		2: {number.FromFloat(0.5), number.FromFloat(0.5)},
		3: {number.FromFloat(0.9), number.FromFloat(0.1)},
	}

	loop := f
	for _, v := range []int{1, 2, 3} {
		w := weights[v]
		loop = m.abstract(loop, v, w[0], w[1], true)
	}

	bulk := m.abstractSumAll(f, []int{1, 2, 3},
		[]number.Number{weights[1][0], weights[2][0], weights[3][0]},
		[]number.Number{weights[1][1], weights[2][1], weights[3][1]})

	require.True(t, m.get(loop).leaf)
	require.True(t, m.get(bulk).leaf)
	require.InDelta(t, m.get(loop).value.Float64(), m.get(bulk).value.Float64(), 1e-9)
	require.InDelta(t, 0.27, m.get(bulk).value.Float64(), 1e-9)
}

func TestThresholdPrunesBelowBound(t *testing.T) {
	number.Configure(number.ModeFloat, true)
	m := newAddManager()
	low := m.mkLeaf(number.FromFloat(0.001))  // log10 well below bound
	high := m.mkLeaf(number.FromFloat(10))
	n := m.mkNode(1, low, high)
	bound := number.FromFloat(1)
	pruned := m.threshold(n, bound)
	require.Equal(t, m.zero, m.get(pruned).low)
	require.Equal(t, high, m.get(pruned).high)
	number.Configure(number.ModeFloat, false)
}

func TestSupportReportsVariables(t *testing.T) {
	m := newTestAddManager()
	a := m.varLiteral(1, true)
	b := m.varLiteral(2, true)
	prod := m.apply(addOpProduct, a, b)
	support := m.support(prod)
	require.Len(t, support, 2)
	require.Contains(t, support, 1)
	require.Contains(t, support, 2)
}
