// Command dpve reads a CNF formula and an externally-planned join tree
// (on stdin) and reports its (weighted/projected) model count or
// exist-random max-sum valuation.
package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	dpve "github.com/xDarkicex/dpve"
	"github.com/xDarkicex/dpve/internal/assign"
	"github.com/xDarkicex/dpve/internal/cnf"
	"github.com/xDarkicex/dpve/internal/dd"
	"github.com/xDarkicex/dpve/internal/errs"
	"github.com/xDarkicex/dpve/internal/exec"
	"github.com/xDarkicex/dpve/internal/number"
	"github.com/xDarkicex/dpve/internal/priority"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "dpve:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("dpve", flag.ContinueOnError)

	cnfPath := fs.String("cnf", "", "path to the CNF file (required)")
	weighted := fs.Bool("weighted", false, "parse weight lines and compute a weighted count")
	projected := fs.Bool("projected", false, "parse the show line and project onto its variables")
	existRandom := fs.Bool("exist-random", false, "compute exist-random max-sum valuation instead of model counting")
	policyName := fs.String("join-priority", "fcfs", "join-priority policy: fcfs, arbitrary, smallest, biggest")
	satFilter := fs.Int("sat-filter", 0, "SAT-filter mode: 0=off, 1=filter-only, 2=filter-and-execute")
	atomic := fs.Bool("atomic-abstract", false, "use bulk per-node abstraction when every projected var is additive and unassigned")
	maximizerFormat := fs.Int("maximizer-format", 0, "maximizer format: 0=none, 1=short, 2=long, 3=dual")
	maximizerVerify := fs.Bool("maximizer-verification", false, "re-evaluate under the recovered maximizer and compare")
	substitutionMax := fs.Bool("substitution-maximization", false, "use substitution-style maximization instead of direct max combine")
	logBound := fs.Float64("log-bound", math.Inf(-1), "fixed pruning bound in log10 space; -Inf disables")
	thresholdModel := fs.String("threshold-model", "", "seed the pruning bound from a fixed DIMACS-style bit string ('tm'), one char per variable starting at 1")
	satSolverPruning := fs.Bool("sat-solver-pruning", false, "seed the pruning bound from one SAT-solver model")
	scalingFactor := fs.Int("scaling-factor", 0, "power-of-two exponent folded into the final answer")
	plannerTimeout := fs.Duration("planner-timeout", 10*time.Second, "how long to wait for a join tree on stdin")
	rational := fs.Bool("rational", false, "use exact rational arithmetic instead of float64")
	logCounting := fs.Bool("log-counting", false, "represent float values in log10 space")
	randomSeed := fs.Int64("random-seed", 0, "seed for the CNF/tie-break heuristics ('rs')")
	diagramVarOrder := fs.Int("diagram-var-order", 0, "diagram var order heuristic id ('dv'): 1=biggest-node, 2=highest-node, 3=lex-p-on-tree, negated reverses, 0=identity")
	reorderMode := fs.Int("reorder-mode", 0, "dynamic reorder mode ('dy'): 0=off, 1=manual-1, 2=manual-2, 3=auto")
	threadCount := fs.Int("thread-count", 1, "worker-pool thread count hint ('tc')")
	maxMemMB := fs.Int("max-memory-mb", 0, "advisory max memory in MB ('mm'); 0 disables the hint")
	verbose := fs.Bool("verbose", false, "enable verbose logging")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cnfPath == "" {
		return fmt.Errorf("missing required -cnf flag")
	}

	policy, err := parsePolicy(*policyName)
	if err != nil {
		return err
	}

	log := logrus.StandardLogger()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	mode := number.ModeFloat
	if *rational {
		mode = number.ModeRational
	}

	cnfFile, err := os.Open(*cnfPath)
	if err != nil {
		return err
	}
	defer cnfFile.Close()

	c, err := cnf.Read(cnfFile, cnf.ReadOptions{
		WeightedCounting:  *weighted,
		ProjectedCounting: *projected,
		RandomSeed:        *randomSeed,
		NumberMode:        mode,
		LogCounting:       *logCounting,
	})
	if err != nil {
		// An empty clause makes unsatisfiability a parse-time result, not
		// a failure: print the UNSAT rows and exit cleanly.
		var unsat *errs.Unsat
		if errors.As(err, &unsat) {
			printUnsat(unsat, *existRandom, *weighted, *projected)
			return nil
		}
		return err
	}

	cfg := dpve.Config{
		NumberMode:               mode,
		LogCounting:              *logCounting,
		Weighted:                 *weighted,
		ExistRandom:              *existRandom,
		Policy:                   policy,
		SatFilterMode:            dpve.SatFilterMode(*satFilter),
		SatSolverPruning:         *satSolverPruning,
		MaximizerFormat:          exec.MaximizerFormat(*maximizerFormat),
		MaximizerVerification:    *maximizerVerify,
		SubstitutionMaximization: *substitutionMax,
		AtomicAbstract:           *atomic,
		DiagramVarOrderHeuristic: *diagramVarOrder,
		ReorderMode:              dd.ReorderMode(*reorderMode),
		ThreadCount:              *threadCount,
		MaxMemoryMB:              *maxMemMB,
		ScalingFactor:            *scalingFactor,
		PlannerTimeout:           *plannerTimeout,
		Verbose:                 *verbose,
		Log:                      log,
	}
	if !math.IsInf(*logBound, -1) {
		cfg.HasLogBound = true
		cfg.LogBound = number.FromLog10(*logBound)
	} else if *thresholdModel != "" {
		cfg.ThresholdModel = assign.FromBitString(*thresholdModel)
	}

	report, err := dpve.Run(c, os.Stdin, cfg)
	if err != nil {
		return err
	}
	printReport(report)
	return nil
}

func parsePolicy(name string) (priority.Policy, error) {
	switch name {
	case "fcfs":
		return priority.FCFS, nil
	case "arbitrary":
		return priority.Arbitrary, nil
	case "smallest":
		return priority.SmallestPair, nil
	case "biggest":
		return priority.BiggestPair, nil
	default:
		return 0, fmt.Errorf("unknown join-priority policy %q", name)
	}
}

func printUnsat(u *errs.Unsat, existRandom, weighted, projected bool) {
	fmt.Printf("s type %s\n", dpve.ValuationType(existRandom, weighted, projected))
	fmt.Println("s UNSATISFIABLE")
	if u.Reason != "" {
		fmt.Printf("c reason %s\n", u.Reason)
	}
}

func printReport(r *dpve.Report) {
	fmt.Printf("s type %s\n", r.Type)
	if !r.Satisfiable {
		fmt.Println("s UNSATISFIABLE")
		if r.UnsatReason != "" {
			fmt.Printf("c reason %s\n", r.UnsatReason)
		}
		return
	}
	fmt.Println("s SATISFIABLE")
	fmt.Printf("s log10-estimate %g\n", r.Log10Estimate)
	fmt.Printf("s exact %s\n", r.Value.String())
	for _, row := range r.MaximizerRows {
		fmt.Printf("v %s\n", row)
	}
	if r.MaximizerVerified != nil {
		fmt.Printf("c maximizer verified: %v\n", *r.MaximizerVerified)
	}
}
