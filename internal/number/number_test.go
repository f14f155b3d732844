package number

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRationalArithmetic(t *testing.T) {
	Configure(ModeRational, false)

	a, err := Parse("1/3")
	require.NoError(t, err)
	b, err := Parse("1/6")
	require.NoError(t, err)

	sum := a.Add(b)
	require.Equal(t, "1/2", sum.RatString())

	prod := a.Mul(b)
	require.Equal(t, "1/18", prod.RatString())

	require.True(t, b.Less(a))
	require.False(t, a.Less(a))
}

func TestFloatLogSpaceAdd(t *testing.T) {
	Configure(ModeFloat, true)

	a := FromFloat(0.3)
	b := FromFloat(0.7)
	sum := a.Add(b)

	require.InDelta(t, 1.0, sum.Float64(), 1e-9)
}

func TestLogSpaceZeroIsNegInf(t *testing.T) {
	Configure(ModeFloat, true)
	z := Zero()
	require.True(t, math.IsInf(z.float, -1))

	one := One()
	require.Equal(t, 0.0, one.float)
}

func TestMulExp2(t *testing.T) {
	Configure(ModeFloat, false)
	n := FromFloat(3)
	scaled := MulExp2(n, 2)
	require.InDelta(t, 12.0, scaled.Float64(), 1e-9)

	Configure(ModeFloat, true)
	nLog := FromFloat(3)
	scaledLog := MulExp2(nLog, 2)
	require.InDelta(t, nLog.float+2*math.Log10(2), scaledLog.float, 1e-9)
}

func TestParseDecimalAndFraction(t *testing.T) {
	Configure(ModeFloat, false)
	n, err := Parse("0.25")
	require.NoError(t, err)
	require.InDelta(t, 0.25, n.Float64(), 1e-12)

	n2, err := Parse("1/4")
	require.NoError(t, err)
	require.InDelta(t, 0.25, n2.Float64(), 1e-12)
}
