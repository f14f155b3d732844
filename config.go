// Package dpve is the top-level driver: it wires the parsed formula,
// join-tree ingestion, the optional SAT-filter pass, and the executor
// into one Run call, then adjusts the result for hidden variables and the
// scaling factor.
package dpve

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xDarkicex/dpve/internal/assign"
	"github.com/xDarkicex/dpve/internal/dd"
	"github.com/xDarkicex/dpve/internal/exec"
	"github.com/xDarkicex/dpve/internal/number"
	"github.com/xDarkicex/dpve/internal/priority"
)

// SatFilterMode names the "sa" flag's three settings.
type SatFilterMode int

const (
	// SatFilterNone skips the SAT-filter pass entirely.
	SatFilterNone SatFilterMode = iota
	// SatFilterOnly runs the SAT-filter pass and reports satisfiability
	// without running the executor at all.
	SatFilterOnly
	// SatFilterAndExecute runs the SAT-filter pass first and feeds its
	// filtered diagrams into the executor as a pre-pruning step.
	SatFilterAndExecute
)

// Config collects every run option: the counting mode, the pruning-bound
// source, the maximizer request, and the ambient knobs (join priority,
// planner timeout, numeric representation).
type Config struct {
	// NumberMode and LogCounting select the process-wide number
	// representation. They must match the cnf.ReadOptions the formula was
	// parsed with: weights are stored under the mode active at parse
	// time, and Run refuses a Cnf read under a different one.
	NumberMode  number.Mode
	LogCounting bool

	// Weighted mirrors cnf.Cnf.WeightedCounting(); carried separately so
	// Run doesn't need to re-derive it from the parsed formula.
	Weighted bool

	// ExistRandom selects exist-random max-sum valuation (a maximizer
	// over outer vars of a sum over inner vars) instead of plain
	// (weighted/projected) model counting.
	ExistRandom bool

	Policy priority.Policy

	SatFilterMode SatFilterMode

	// ThresholdModel, when non-nil, seeds the pruning bound from a fixed
	// partial assignment (the "tm" flag) instead of a direct log bound or
	// a SAT-solver-discovered model. It is never passed to the main
	// evaluation pass, only to the one throwaway bound-seeding pass.
	ThresholdModel *assign.Assignment

	// SatSolverPruning seeds the pruning bound from one satisfying model
	// found by internal/satseed, when ThresholdModel is not set directly.
	SatSolverPruning bool

	// HasLogBound and LogBound set the pruning bound directly (the "lb"
	// flag), taking priority over ThresholdModel and SatSolverPruning.
	HasLogBound bool
	LogBound    number.Number

	MaximizerFormat          exec.MaximizerFormat
	MaximizerVerification    bool
	SubstitutionMaximization bool

	AtomicAbstract bool

	// DiagramVarOrderHeuristic selects the jointree.TreeHeuristicID (the
	// "dv" flag) used to compute the diagram variable order before the
	// cnfVar -> ddVar map is built; zero keeps the identity order (ddVar
	// == cnfVar - 1), matching dd.NewManagerWithOrder's nil-order case.
	// A negative id reverses the named heuristic's order, per
	// jointree.Tree.VarOrder.
	DiagramVarOrderHeuristic int

	// ReorderMode selects the "dy" flag's dynamic-reordering policy. See
	// internal/dd.ReorderController for why the underlying transform is a
	// documented no-op against both backends this module ships; the
	// threshold/epoch schedule still runs so the knob's timing stays
	// observable.
	ReorderMode dd.ReorderMode

	// ThreadCount and MaxMemoryMB mirror the "tc" and "mm" flags. Neither
	// backend here exposes internal worker-pool concurrency or a hard
	// memory cap to configure (rudd is single-threaded and relies on the
	// Go garbage collector), so these are accepted and logged rather than
	// enforced.
	ThreadCount int
	MaxMemoryMB int

	// ScalingFactor is the power-of-two exponent folded into the final
	// answer after hidden-var adjustment; zero is a no-op.
	ScalingFactor int

	PlannerTimeout time.Duration
	Verbose        bool

	Log *logrus.Logger
}

func (c Config) logger() *logrus.Logger {
	if c.Log != nil {
		return c.Log
	}
	return logrus.StandardLogger()
}
