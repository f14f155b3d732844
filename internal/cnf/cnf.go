package cnf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xDarkicex/dpve/internal/errs"
	"github.com/xDarkicex/dpve/internal/number"
)

// Cnf is the parsed formula plus its structural indices.
type Cnf struct {
	DeclaredVarCount int
	OuterVars        map[int]struct{}   // subset of [1, DeclaredVarCount]
	Clauses          []*Clause          // ordered
	VarToClauses     map[int][]int      // apparent var -> clause indices
	LiteralWeights   map[int]number.Number
	XORClauseCount   int

	weightedCounting  bool
	projectedCounting bool
	randomSeed        int64
	numberMode        number.Mode
	logCounting       bool
}

// WeightedCounting reports whether Read was configured to parse weight
// lines.
func (c *Cnf) WeightedCounting() bool { return c.weightedCounting }

// ProjectedCounting reports whether Read was configured to parse a show
// line restricting OuterVars.
func (c *Cnf) ProjectedCounting() bool { return c.projectedCounting }

// RandomSeed returns the seed ReadOptions carried, for components (join
// priority tie-breaking, the SAT seeder) that need reproducible randomness.
func (c *Cnf) RandomSeed() int64 { return c.randomSeed }

// NumberMode and LogCounting report the numeric representation the
// formula's literal weights were parsed under. Number values are not
// self-describing, so every later consumer must run under the same
// process-wide mode; the driver refuses a Cnf whose parse mode differs
// from its own configuration.
func (c *Cnf) NumberMode() number.Mode { return c.numberMode }
func (c *Cnf) LogCounting() bool       { return c.logCounting }

// UnprunableWeights returns every literal weight exceeding one: threshold
// pruning assumes every abstraction step can only shrink a node's value,
// an assumption that breaks once some literal weighs more than unit.
func (c *Cnf) UnprunableWeights() map[int]number.Number {
	out := make(map[int]number.Number)
	one := number.One()
	for lit, weight := range c.LiteralWeights {
		if one.Less(weight) {
			out[lit] = weight
		}
	}
	return out
}

// ApparentVars returns the keys of VarToClauses (vars appearing in some
// clause), sorted ascending for determinism.
func (c *Cnf) ApparentVars() []int {
	vars := make([]int, 0, len(c.VarToClauses))
	for v := range c.VarToClauses {
		vars = append(vars, v)
	}
	sortInts(vars)
	return vars
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// AddClause appends clause and indexes its variables.
func (c *Cnf) AddClause(clause *Clause) {
	idx := len(c.Clauses)
	c.Clauses = append(c.Clauses, clause)
	for v := range clause.Vars() {
		c.VarToClauses[v] = append(c.VarToClauses[v], idx)
	}
}

// CompleteLiteralWeights fills in any missing literal weight so that every
// variable in [1, DeclaredVarCount] has both polarities defined: all ones
// when unweighted, and 1 - w for a single given polarity w (which must be
// below one) when weighted.
func (c *Cnf) CompleteLiteralWeights() error {
	one := number.One()
	if !c.weightedCounting {
		for v := 1; v <= c.DeclaredVarCount; v++ {
			c.LiteralWeights[v] = one
			c.LiteralWeights[-v] = one
		}
		return nil
	}
	for v := 1; v <= c.DeclaredVarCount; v++ {
		_, hasPos := c.LiteralWeights[v]
		_, hasNeg := c.LiteralWeights[-v]
		switch {
		case !hasPos && !hasNeg:
			c.LiteralWeights[v] = one
			c.LiteralWeights[-v] = one
		case !hasPos:
			neg := c.LiteralWeights[-v]
			if !neg.Less(one) {
				return errs.InvariantViolationErr.New(fmt.Sprintf("literal weight for -%d is not below 1", v))
			}
			if number.LogSpace() {
				c.LiteralWeights[v] = number.FromFloat(1 - neg.Float64())
			} else {
				c.LiteralWeights[v] = one.Sub(neg)
			}
		case !hasNeg:
			pos := c.LiteralWeights[v]
			if !pos.Less(one) {
				return errs.InvariantViolationErr.New(fmt.Sprintf("literal weight for %d is not below 1", v))
			}
			if number.LogSpace() {
				c.LiteralWeights[-v] = number.FromFloat(1 - pos.Float64())
			} else {
				c.LiteralWeights[-v] = one.Sub(pos)
			}
		}
	}
	return nil
}

// ReadOptions configures how Read interprets the incoming stream.
// NumberMode and LogCounting fix the process-wide numeric representation
// before any weight literal is parsed; they must match the mode the rest
// of the run uses.
type ReadOptions struct {
	WeightedCounting  bool
	ProjectedCounting bool
	RandomSeed        int64
	NumberMode        number.Mode
	LogCounting       bool
}

// Read parses the line-oriented CNF format from r: a "p cnf V C" header,
// optional "c p show"/"c p weight" declarations, ordinary clause lines
// terminated by 0, and "x"-prefixed XOR clause lines. The numeric mode is
// configured first so every weight is stored under the representation the
// rest of the run reads it with.
func Read(r io.Reader, opts ReadOptions) (*Cnf, error) {
	number.Configure(opts.NumberMode, opts.LogCounting)
	c := &Cnf{
		OuterVars:        make(map[int]struct{}),
		VarToClauses:     make(map[int][]int),
		LiteralWeights:   make(map[int]number.Number),
		weightedCounting: opts.WeightedCounting,
		projectedCounting: opts.ProjectedCounting,
		randomSeed:        opts.RandomSeed,
		numberMode:        opts.NumberMode,
		logCounting:       opts.LogCounting && opts.NumberMode == number.ModeFloat,
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineIndex := 0
	problemLineIndex := -1

	for scanner.Scan() {
		lineIndex++
		line := scanner.Text()
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}
		front := words[0]

		switch {
		case front == "p":
			if problemLineIndex != -1 {
				return nil, errs.InputErr.New(lineIndex, "multiple problem lines")
			}
			problemLineIndex = lineIndex
			if len(words) != 4 {
				return nil, errs.InputErr.New(lineIndex, fmt.Sprintf("problem line has %d words (should be 4)", len(words)))
			}
			v, err := strconv.Atoi(words[2])
			if err != nil {
				return nil, errs.InputErr.New(lineIndex, "bad declared var count")
			}
			c.DeclaredVarCount = v
			// words[3] (declared clause count) is informational; the real
			// count is the number of clause lines actually read.

		case front == "c":
			if problemLineIndex == -1 {
				continue // ordinary leading comment
			}
			if opts.ProjectedCounting && isShowLine(words) {
				if err := c.parseShowLine(words, lineIndex); err != nil {
					return nil, err
				}
			} else if opts.WeightedCounting && isWeightLine(words) {
				if err := c.parseWeightLine(words, lineIndex); err != nil {
					return nil, err
				}
			}
			// other comments ignored

		case !strings.HasPrefix(front, "c"):
			if problemLineIndex == -1 {
				return nil, errs.InputErr.New(lineIndex, "no problem line before clause")
			}
			if err := c.parseClauseLine(words, lineIndex); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cnf: reading input: %w", err)
	}
	if problemLineIndex == -1 {
		return nil, errs.InputErr.New(lineIndex, "no problem line before CNF ends")
	}

	if !opts.ProjectedCounting {
		for v := 1; v <= c.DeclaredVarCount; v++ {
			c.OuterVars[v] = struct{}{}
		}
	}
	if err := c.CompleteLiteralWeights(); err != nil {
		return nil, err
	}
	return c, nil
}

func isShowLine(words []string) bool {
	return len(words) >= 3 && words[1] == "p" && words[2] == "show"
}

func isWeightLine(words []string) bool {
	return len(words) >= 5 && words[1] == "p" && words[2] == "weight"
}

func (c *Cnf) parseShowLine(words []string, lineIndex int) error {
	for i := 3; i < len(words); i++ {
		num, err := strconv.Atoi(words[i])
		if err != nil {
			return errs.InputErr.New(lineIndex, "bad outer-var token")
		}
		if num == 0 {
			if i != len(words)-1 {
				return errs.InputErr.New(lineIndex, "outer vars terminated prematurely by '0'")
			}
			continue
		}
		if num < 0 || num > c.DeclaredVarCount {
			return errs.InputErr.New(lineIndex, fmt.Sprintf("var '%d' inconsistent with declared var count '%d'", num, c.DeclaredVarCount))
		}
		c.OuterVars[num] = struct{}{}
	}
	return nil
}

func (c *Cnf) parseWeightLine(words []string, lineIndex int) error {
	lit, err := strconv.Atoi(words[3])
	if err != nil || lit == 0 {
		return errs.InputErr.New(lineIndex, "bad literal in weight line")
	}
	absLit := lit
	if absLit < 0 {
		absLit = -absLit
	}
	if absLit > c.DeclaredVarCount {
		return errs.InputErr.New(lineIndex, fmt.Sprintf("literal '%d' inconsistent with declared var count '%d'", lit, c.DeclaredVarCount))
	}
	weight, err := number.Parse(words[4])
	if err != nil {
		return errs.InputErr.New(lineIndex, "bad weight value")
	}
	zero := number.Zero()
	if !zero.Less(weight) {
		return errs.InputErr.New(lineIndex, "weight must be positive")
	}
	c.LiteralWeights[lit] = weight
	return nil
}

func (c *Cnf) parseClauseLine(words []string, lineIndex int) error {
	xor := false
	front := words[0]
	if strings.HasPrefix(front, "x") {
		xor = true
		c.XORClauseCount++
		if front == "x" {
			words = words[1:]
		} else {
			words[0] = front[1:]
		}
	}
	clause := NewClause(xor)
	for i, w := range words {
		num, err := strconv.Atoi(w)
		if err != nil {
			return errs.InputErr.New(lineIndex, "non-integer literal")
		}
		abs := num
		if abs < 0 {
			abs = -abs
		}
		if abs > c.DeclaredVarCount {
			return errs.InputErr.New(lineIndex, fmt.Sprintf("literal '%d' inconsistent with declared var count '%d'", num, c.DeclaredVarCount))
		}
		if num == 0 {
			if i != len(words)-1 {
				return errs.InputErr.New(lineIndex, "clause terminated prematurely by '0'")
			}
			if clause.Empty() {
				return errs.NewUnsat(fmt.Sprintf("empty clause at line %d", lineIndex))
			}
			c.AddClause(clause)
			return nil
		}
		if i == len(words)-1 {
			return errs.InputErr.New(lineIndex, "missing end-of-clause indicator '0'")
		}
		clause.Insert(num)
	}
	return nil
}
