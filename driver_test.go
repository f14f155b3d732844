package dpve_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	dpve "github.com/xDarkicex/dpve"
	"github.com/xDarkicex/dpve/internal/cnf"
	"github.com/xDarkicex/dpve/internal/exec"
	"github.com/xDarkicex/dpve/internal/number"
)

func readCnf(t *testing.T, src string, opts cnf.ReadOptions) *cnf.Cnf {
	t.Helper()
	c, err := cnf.Read(strings.NewReader(src), opts)
	require.NoError(t, err)
	return c
}

func TestRunUnweightedCount(t *testing.T) {
	c := readCnf(t, "p cnf 2 1\n1 -2 0\n", cnf.ReadOptions{})
	planner := strings.NewReader("p jt 2 1 2\n2 1 e 1 2\n=\n")

	report, err := dpve.Run(c, planner, dpve.Config{NumberMode: number.ModeFloat})
	require.NoError(t, err)
	require.True(t, report.Satisfiable)
	require.Equal(t, "mc", report.Type)
	require.InDelta(t, 3.0, report.Value.Float64(), 1e-9)
}

func TestRunWeightedCount(t *testing.T) {
	src := "p cnf 1 1\nc p weight 1 0.3\nc p weight -1 0.7\n1 0\n"
	c := readCnf(t, src, cnf.ReadOptions{WeightedCounting: true})
	planner := strings.NewReader("p jt 1 1 2\n2 1 e 1\n=\n")

	report, err := dpve.Run(c, planner, dpve.Config{NumberMode: number.ModeFloat, Weighted: true})
	require.NoError(t, err)
	require.Equal(t, "wmc", report.Type)
	require.InDelta(t, 0.3, report.Value.Float64(), 1e-9)
}

func TestRunExistRandomWithMaximizer(t *testing.T) {
	src := "p cnf 2 2\nc p show 1 0\nc p weight 2 0.5\nc p weight -2 0.5\n1 2 0\n-1 -2 0\n"
	c := readCnf(t, src, cnf.ReadOptions{WeightedCounting: true, ProjectedCounting: true})
	planner := strings.NewReader("p jt 2 2 4\n3 1 2 e 2\n4 3 e 1\n=\n")

	report, err := dpve.Run(c, planner, dpve.Config{
		NumberMode:            number.ModeFloat,
		Weighted:              true,
		ExistRandom:           true,
		MaximizerFormat:       exec.MaximizerShort,
		MaximizerVerification: true,
	})
	require.NoError(t, err)
	require.Equal(t, "maximum", report.Type)
	require.InDelta(t, 0.5, report.Value.Float64(), 1e-9)
	require.NotNil(t, report.Maximizer)
	require.True(t, report.Maximizer.Has(1))
	require.Len(t, report.MaximizerRows, 1)
	require.NotNil(t, report.MaximizerVerified)
	require.True(t, *report.MaximizerVerified)
}

func TestRunDualMaximizerFormatEmitsBothRows(t *testing.T) {
	src := "p cnf 2 2\nc p show 1 0\nc p weight 2 0.5\nc p weight -2 0.5\n1 2 0\n-1 -2 0\n"
	c := readCnf(t, src, cnf.ReadOptions{WeightedCounting: true, ProjectedCounting: true})
	planner := strings.NewReader("p jt 2 2 4\n3 1 2 e 2\n4 3 e 1\n=\n")

	report, err := dpve.Run(c, planner, dpve.Config{
		NumberMode:      number.ModeFloat,
		Weighted:        true,
		ExistRandom:     true,
		MaximizerFormat: exec.MaximizerDual,
	})
	require.NoError(t, err)
	require.Len(t, report.MaximizerRows, 2)
	require.Equal(t, "10", report.MaximizerRows[0])
	require.Equal(t, " 1 -2", report.MaximizerRows[1])
}

func TestRunSatFilterNeutralOnUnweightedCount(t *testing.T) {
	c := readCnf(t, "p cnf 2 1\n1 -2 0\n", cnf.ReadOptions{})
	planner := strings.NewReader("p jt 2 1 2\n2 1 e 1 2\n=\n")

	report, err := dpve.Run(c, planner, dpve.Config{
		NumberMode:    number.ModeFloat,
		SatFilterMode: dpve.SatFilterAndExecute,
	})
	require.NoError(t, err)
	require.InDelta(t, 3.0, report.Value.Float64(), 1e-9)
}

func TestRunSatFilterDetectsUnsat(t *testing.T) {
	c := readCnf(t, "p cnf 1 2\n1 0\n-1 0\n", cnf.ReadOptions{})
	planner := strings.NewReader("p jt 1 2 3\n3 1 2 e 1\n=\n")

	report, err := dpve.Run(c, planner, dpve.Config{
		NumberMode:    number.ModeFloat,
		SatFilterMode: dpve.SatFilterAndExecute,
	})
	require.NoError(t, err)
	require.False(t, report.Satisfiable)
	require.InDelta(t, 0.0, report.Value.Float64(), 1e-9)
}

func TestRunAdjustsHiddenVars(t *testing.T) {
	// Var 2 is declared but appears in no clause: the count over x1 (one
	// model) doubles when the hidden additive var's two unit weights fold in.
	c := readCnf(t, "p cnf 2 1\n1 0\n", cnf.ReadOptions{})
	planner := strings.NewReader("p jt 2 1 2\n2 1 e 1\n=\n")

	report, err := dpve.Run(c, planner, dpve.Config{NumberMode: number.ModeFloat})
	require.NoError(t, err)
	require.InDelta(t, 2.0, report.Value.Float64(), 1e-9)
	require.InDelta(t, 1.0, report.ApparentSolution.Float64(), 1e-9)
}

func TestRunScalingFactor(t *testing.T) {
	c := readCnf(t, "p cnf 2 1\n1 -2 0\n", cnf.ReadOptions{})
	planner := strings.NewReader("p jt 2 1 2\n2 1 e 1 2\n=\n")

	report, err := dpve.Run(c, planner, dpve.Config{NumberMode: number.ModeFloat, ScalingFactor: 2})
	require.NoError(t, err)
	require.InDelta(t, 12.0, report.Value.Float64(), 1e-9)
}

func TestRunLogCountingCount(t *testing.T) {
	c := readCnf(t, "p cnf 2 1\n1 -2 0\n", cnf.ReadOptions{NumberMode: number.ModeFloat, LogCounting: true})
	planner := strings.NewReader("p jt 2 1 2\n2 1 e 1 2\n=\n")

	report, err := dpve.Run(c, planner, dpve.Config{NumberMode: number.ModeFloat, LogCounting: true})
	require.NoError(t, err)
	require.InDelta(t, 0.47712125471966244, report.Log10Estimate, 1e-9) // log10 3
	require.InDelta(t, 3.0, report.Value.Float64(), 1e-9)
}

func TestRunRationalCount(t *testing.T) {
	src := "p cnf 1 1\nc p weight 1 3/10\nc p weight -1 7/10\n1 0\n"
	c := readCnf(t, src, cnf.ReadOptions{WeightedCounting: true, NumberMode: number.ModeRational})
	planner := strings.NewReader("p jt 1 1 2\n2 1 e 1\n=\n")

	report, err := dpve.Run(c, planner, dpve.Config{NumberMode: number.ModeRational, Weighted: true})
	require.NoError(t, err)
	require.Equal(t, "3/10", report.Value.RatString())
}

func TestRunRejectsMismatchedParseMode(t *testing.T) {
	c := readCnf(t, "p cnf 2 1\n1 -2 0\n", cnf.ReadOptions{})
	planner := strings.NewReader("p jt 2 1 2\n2 1 e 1 2\n=\n")

	_, err := dpve.Run(c, planner, dpve.Config{NumberMode: number.ModeRational})
	require.Error(t, err)
}

func TestRunRejectsPruningWithUnprunableWeights(t *testing.T) {
	src := "p cnf 1 1\nc p weight 1 1.5\nc p weight -1 0.5\n1 0\n"
	c := readCnf(t, src, cnf.ReadOptions{WeightedCounting: true, NumberMode: number.ModeFloat, LogCounting: true})
	planner := strings.NewReader("p jt 1 1 2\n2 1 e 1\n=\n")

	_, err := dpve.Run(c, planner, dpve.Config{
		NumberMode:       number.ModeFloat,
		LogCounting:      true,
		Weighted:         true,
		SatSolverPruning: true,
	})
	require.Error(t, err)
}
