package dpve

import (
	"github.com/xDarkicex/dpve/internal/assign"
	"github.com/xDarkicex/dpve/internal/number"
)

// Report is the result of one Run call: either an unsatisfiable formula
// (Satisfiable false, Value the zero sentinel) or a valuation, carrying
// the fields the canonical report rows are printed from ("s type", the
// satisfiability verdict, "s log10-estimate", the exact value, and the
// maximizer assignment rows).
type Report struct {
	Satisfiable bool
	UnsatReason string

	// Type names the valuation: "mc",
	// "wmc", "pmc", "wpmc", or "maximum" for exist-random runs.
	Type string

	// Value is the fully adjusted solution (hidden-variable weights and
	// the scaling factor folded in), the number Run's caller reports.
	Value number.Number

	// ApparentSolution is the raw root-diagram value before hidden-var
	// adjustment and scaling, kept for diagnostics.
	ApparentSolution number.Number

	// Log10Estimate is Value's base-10 logarithm.
	Log10Estimate float64

	// Maximizer is non-nil only when cfg.MaximizerFormat is not
	// exec.MaximizerNone: the outer-variable assignment achieving Value.
	Maximizer *assign.Assignment

	// MaximizerRows holds the assignment rendered per the requested
	// format: the bit-string row (short), the signed-literal row (long),
	// or both in that order (dual).
	MaximizerRows []string

	// MaximizerVerified is set when cfg.MaximizerVerification requested a
	// check and reports whether re-evaluating under Maximizer reproduced
	// Value.
	MaximizerVerified *bool
}

// ValuationType derives the "s type" report row's value.
func ValuationType(existRandom, weighted, projected bool) string {
	if existRandom {
		return "maximum"
	}
	t := "mc"
	if projected {
		t = "p" + t
	}
	if weighted {
		t = "w" + t // weighted+projected reads "wpmc"
	}
	return t
}
