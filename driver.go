package dpve

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/xDarkicex/dpve/internal/assign"
	"github.com/xDarkicex/dpve/internal/cnf"
	"github.com/xDarkicex/dpve/internal/dd"
	"github.com/xDarkicex/dpve/internal/errs"
	"github.com/xDarkicex/dpve/internal/exec"
	"github.com/xDarkicex/dpve/internal/ingest"
	"github.com/xDarkicex/dpve/internal/jointree"
	"github.com/xDarkicex/dpve/internal/number"
	"github.com/xDarkicex/dpve/internal/satfilter"
	"github.com/xDarkicex/dpve/internal/satseed"
	"github.com/xDarkicex/dpve/internal/satsolver"
)

// Run parses plannerStream into a join tree over c, evaluates it per cfg,
// and returns the adjusted solution. Unsatisfiability is reported through
// Report.Satisfiable rather than as a returned error; every other failure
// (malformed input, configuration conflicts, internal invariants) is
// returned as an error from the internal/errs taxonomy.
func Run(c *cnf.Cnf, plannerStream io.Reader, cfg Config) (*Report, error) {
	// Number values carry no mode tag, so weights parsed under one
	// representation are garbage under another. The Cnf must have been
	// read with the same mode this run evaluates under.
	wantLog := cfg.LogCounting && cfg.NumberMode == number.ModeFloat
	if c.NumberMode() != cfg.NumberMode || c.LogCounting() != wantLog {
		return nil, errs.ConfigErr.New("formula was parsed under a different numeric mode than the run is configured for")
	}
	number.Configure(cfg.NumberMode, cfg.LogCounting)

	if err := validateConfig(c, cfg); err != nil {
		return nil, err
	}

	log := cfg.logger()

	tree, err := readTree(c, plannerStream, cfg, log)
	if err != nil {
		var unsat *errs.Unsat
		if errors.As(err, &unsat) {
			return unsatReport(unsat, cfg, c), nil
		}
		return nil, err
	}

	// The diagram variable order comes from the join-root via the chosen
	// tree heuristic, computed before the cnfVar -> ddVar map is built;
	// id 0 keeps the identity order.
	var diagramOrder []int
	if cfg.DiagramVarOrderHeuristic != 0 {
		diagramOrder = tree.VarOrder(cfg.DiagramVarOrderHeuristic)
		log.Debugf("dpve: diagram variable order from heuristic %d: %v", cfg.DiagramVarOrderHeuristic, diagramOrder)
	}
	mgr, err := dd.NewManagerWithOrder(c.DeclaredVarCount, diagramOrder)
	if err != nil {
		return nil, err
	}
	if cfg.ThreadCount > 1 {
		log.Debugf("dpve: thread count %d requested; rudd and the in-process ADD table are single-threaded, running unparallelized", cfg.ThreadCount)
	}
	if cfg.MaxMemoryMB > 0 {
		log.Debugf("dpve: max memory %dMB requested; enforced by the Go runtime's own GC, not a hard cap", cfg.MaxMemoryMB)
	}
	reorder := dd.NewReorderController(cfg.ReorderMode)

	clauseLiterals := func(i int) []int { return c.Clauses[i].Literals() }
	clauseXOR := func(i int) bool { return c.Clauses[i].XOR }
	literalWeight := func(lit int) number.Number { return c.LiteralWeights[lit] }

	var satResult *satfilter.Result
	if cfg.SatFilterMode != SatFilterNone {
		satResult, err = satfilter.Run(tree, clauseLiterals, clauseXOR, mgr, cfg.Policy)
		if err != nil {
			var unsat *errs.Unsat
			if errors.As(err, &unsat) {
				return unsatReport(unsat, cfg, c), nil
			}
			return nil, err
		}
		if cfg.SatFilterMode == SatFilterOnly {
			return &Report{Satisfiable: true, Type: ValuationType(cfg.ExistRandom, cfg.Weighted, c.ProjectedCounting())}, nil
		}
	}

	baseOpts := exec.Options{
		Mgr:                      mgr,
		DeclaredVarCount:         c.DeclaredVarCount,
		ClauseLiterals:           clauseLiterals,
		ClauseXOR:                clauseXOR,
		LiteralWeight:            literalWeight,
		OuterVars:                c.OuterVars,
		ExistRandom:              cfg.ExistRandom,
		Policy:                   cfg.Policy,
		Weighted:                 cfg.Weighted,
		MaximizerFormat:          cfg.MaximizerFormat,
		SubstitutionMaximization: cfg.SubstitutionMaximization,
		AtomicAbstract:           cfg.AtomicAbstract,
		Reorder:                  reorder,
		Log:                      log,
	}
	if cfg.SatFilterMode == SatFilterAndExecute {
		baseOpts.SatFilter = satResult
	}

	logBound, hasLogBound, err := seedLogBound(tree, baseOpts, cfg, c, log)
	if err != nil {
		var unsat *errs.Unsat
		if errors.As(err, &unsat) {
			return unsatReport(unsat, cfg, c), nil
		}
		return nil, err
	}

	mainOpts := baseOpts
	mainOpts.ThresholdModel = nil
	mainOpts.HasLogBound = hasLogBound
	mainOpts.LogBound = logBound

	executor := exec.New(mainOpts)
	apparentSolution, err := executor.Evaluate(tree)
	if err != nil {
		return nil, err
	}

	adjusted := getAdjustedSolution(apparentSolution, c, cfg)

	report := &Report{
		Satisfiable:      true,
		Type:             ValuationType(cfg.ExistRandom, cfg.Weighted, c.ProjectedCounting()),
		Value:            adjusted,
		ApparentSolution: apparentSolution,
		Log10Estimate:    adjusted.Log10(),
	}

	if cfg.MaximizerFormat != exec.MaximizerNone {
		maximizer := executor.Maximizer()
		report.Maximizer = maximizer
		report.MaximizerRows = maximizerRows(maximizer, cfg.MaximizerFormat)
		if cfg.MaximizerVerification {
			verified, verr := verifyMaximizer(tree, baseOpts, cfg, c, maximizer, adjusted)
			if verr != nil {
				return nil, verr
			}
			report.MaximizerVerified = &verified
		}
	}

	return report, nil
}

func validateConfig(c *cnf.Cnf, cfg Config) error {
	if cfg.MaximizerFormat != exec.MaximizerNone && !cfg.ExistRandom {
		return errs.ConfigErr.New("maximizer format requires exist-random valuation")
	}
	if cfg.MaximizerVerification && cfg.MaximizerFormat == exec.MaximizerNone {
		return errs.ConfigErr.New("maximizer verification requires a maximizer format")
	}
	if cfg.SubstitutionMaximization && cfg.MaximizerFormat == exec.MaximizerNone {
		return errs.ConfigErr.New("substitution maximization requires a maximizer format")
	}
	if cfg.SubstitutionMaximization && cfg.Weighted {
		return errs.ConfigErr.New("substitution maximization is valid only when literal weights are all one")
	}

	pruning := cfg.HasLogBound || cfg.ThresholdModel != nil || cfg.SatSolverPruning
	if pruning {
		if !cfg.LogCounting {
			return errs.ConfigErr.New("threshold pruning requires log counting")
		}
		if unprunable := c.UnprunableWeights(); len(unprunable) > 0 {
			return errs.ConfigErr.New("must not prune if there are unprunable weights")
		}
	}
	return nil
}

func readTree(c *cnf.Cnf, plannerStream io.Reader, cfg Config, log *logrus.Logger) (*jointree.Tree, error) {
	clauseVars := make([]map[int]struct{}, len(c.Clauses))
	for i, clause := range c.Clauses {
		clauseVars[i] = clause.Vars()
	}
	apparentVars := make(map[int]struct{}, len(c.VarToClauses))
	for v := range c.VarToClauses {
		apparentVars[v] = struct{}{}
	}
	processor := ingest.NewProcessor(ingest.Options{Timeout: cfg.PlannerTimeout, Verbose: cfg.Verbose, Logger: log})
	return processor.ReadJoinTree(plannerStream, clauseVars, apparentVars)
}

// seedLogBound resolves the pruning bound per setLogBound's priority order:
// an explicit bound wins outright; otherwise a threshold model or a
// SAT-solver-discovered model seeds one throwaway evaluation whose result
// becomes the bound for the real pass.
func seedLogBound(tree *jointree.Tree, baseOpts exec.Options, cfg Config, c *cnf.Cnf, log *logrus.Logger) (number.Number, bool, error) {
	if cfg.HasLogBound {
		return cfg.LogBound, true, nil
	}
	if cfg.ThresholdModel != nil {
		seedOpts := baseOpts
		seedOpts.ThresholdModel = cfg.ThresholdModel
		value, err := exec.New(seedOpts).Evaluate(tree)
		if err != nil {
			return number.Number{}, false, err
		}
		bound := number.FromLog10(value.Log10())
		log.Infof("dpve: log bound seeded from threshold model: %v", bound)
		return bound, true, nil
	}
	if cfg.SatSolverPruning {
		seed := satseed.New(c)
		model, err := seed.Solve()
		if err != nil {
			return number.Number{}, false, err
		}
		seedOpts := baseOpts
		seedOpts.ThresholdModel = assignmentFromModel(model, c.DeclaredVarCount)
		value, err := exec.New(seedOpts).Evaluate(tree)
		if err != nil {
			return number.Number{}, false, err
		}
		bound := number.FromLog10(value.Log10())
		log.Infof("dpve: log bound seeded from SAT solver model: %v", bound)
		return bound, true, nil
	}
	return number.Number{}, false, nil
}

// maximizerRows renders the recovered assignment per the requested
// format: short is the bit-string row, long the signed-literal row, dual
// both.
func maximizerRows(maximizer *assign.Assignment, format exec.MaximizerFormat) []string {
	switch format {
	case exec.MaximizerShort:
		return []string{maximizer.ShortFormat()}
	case exec.MaximizerLong:
		return []string{maximizer.LongFormat()}
	case exec.MaximizerDual:
		return []string{maximizer.ShortFormat(), maximizer.LongFormat()}
	default:
		return nil
	}
}

func verifyMaximizer(tree *jointree.Tree, baseOpts exec.Options, cfg Config, c *cnf.Cnf, maximizer *assign.Assignment, want number.Number) (bool, error) {
	verifyOpts := baseOpts
	verifyOpts.ThresholdModel = maximizer
	verifyOpts.HasLogBound = false
	value, err := exec.New(verifyOpts).Evaluate(tree)
	if err != nil {
		return false, err
	}
	adjusted := getAdjustedSolution(value, c, cfg)
	return adjusted.Equal(want), nil
}

// getAdjustedSolution folds each hidden (non-apparent) variable's weight
// factor into apparentSolution, then applies the scaling factor, matching
// Dpve::getAdjustedSolution.
func getAdjustedSolution(apparentSolution number.Number, c *cnf.Cnf, cfg Config) number.Number {
	apparent := make(map[int]struct{}, len(c.VarToClauses))
	for v := range c.VarToClauses {
		apparent[v] = struct{}{}
	}

	n := apparentSolution
	for v := 1; v <= c.DeclaredVarCount; v++ {
		if _, outer := c.OuterVars[v]; !outer {
			n = adjustSolutionToHiddenVar(n, v, apparent, c, cfg.ExistRandom)
		}
	}
	for v := range c.OuterVars {
		n = adjustSolutionToHiddenVar(n, v, apparent, c, !cfg.ExistRandom)
	}
	if cfg.ScalingFactor != 0 {
		n = number.MulExp2(n, cfg.ScalingFactor)
	}
	return n
}

// adjustSolutionToHiddenVar folds in the weight of one declared variable
// that never appears in any clause: additive vars contribute the sum of
// their two literal weights, max-quantified vars contribute the larger one.
// Variables that do appear (apparent) are left untouched; the executor
// already eliminated them.
func adjustSolutionToHiddenVar(solution number.Number, v int, apparent map[int]struct{}, c *cnf.Cnf, additive bool) number.Number {
	if _, ok := apparent[v]; ok {
		return solution
	}
	pos := c.LiteralWeights[v]
	neg := c.LiteralWeights[-v]
	if additive {
		return solution.Mul(pos.Add(neg))
	}
	return solution.Mul(number.Max(pos, neg))
}

func assignmentFromModel(model satsolver.Assignment, declaredVarCount int) *assign.Assignment {
	out := assign.New(declaredVarCount)
	for v, val := range model {
		out.Set(v, val)
	}
	return out
}

func unsatReport(u *errs.Unsat, cfg Config, c *cnf.Cnf) *Report {
	zero := number.Zero() // -Inf leaf in log mode, 0 otherwise
	return &Report{
		Satisfiable:   false,
		UnsatReason:   u.Reason,
		Type:          ValuationType(cfg.ExistRandom, cfg.Weighted, c.ProjectedCounting()),
		Value:         zero,
		Log10Estimate: zero.Log10(),
	}
}
