// Package ingest reads externally-planned join trees from an anytime
// planner process's stdout. The planner may emit several improving
// candidate trees before exhausting its time budget; the ingester keeps
// whichever candidate has the smallest width, killing the planner (by the
// pid it reports in a comment line) once a wall-clock timeout elapses.
// The timeout only kills once at least one tree has started arriving
// (with nothing received yet it keeps waiting for the first tree), and
// the read loop stops at the first tree separator after the timer fires.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/xDarkicex/dpve/internal/errs"
	"github.com/xDarkicex/dpve/internal/jointree"
)

// Options configures a single planner-reading session.
type Options struct {
	Timeout time.Duration // 0 disables the timeout entirely
	Verbose bool
	Logger  *logrus.Logger
}

// Processor tracks one reading session's state: the planner's pid (for
// killing it), whether any candidate tree has started arriving, and the
// session start time for duration logging.
type Processor struct {
	opts Options
	log  *logrus.Logger

	mu         sync.Mutex
	plannerPid int
	hasPid     bool
	sawTree    bool // a problem line has been read, or a candidate finalized
	expired    bool

	startPoint time.Time
	timer      *time.Timer
}

// NewProcessor builds a Processor for one ReadJoinTree call.
func NewProcessor(opts Options) *Processor {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Processor{opts: opts, log: log, startPoint: time.Now()}
}

// killPlanner sends SIGKILL to the tracked planner pid. Callers hold p.mu.
func (p *Processor) killPlanner() {
	if !p.hasPid {
		p.log.Warn("ingest: found no pid for planner process")
		return
	}
	if err := unix.Kill(p.plannerPid, unix.SIGKILL); err == nil {
		p.log.Infof("ingest: killed planner process with pid %d", p.plannerPid)
	}
}

// armTimer schedules the timeout after d. Firing before any tree has
// arrived just marks the expiry and keeps waiting for the first tree;
// firing after at least one tree kills the planner so its stdout closes
// and the read loop drains.
func (p *Processor) armTimer(d time.Duration) {
	if d <= 0 {
		return
	}
	p.timer = time.AfterFunc(d, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.expired = true
		if !p.sawTree {
			p.log.Infof("ingest: timeout after %s with no join tree yet; waiting for the first tree", time.Since(p.startPoint))
			return
		}
		p.log.Infof("ingest: timeout after %s; killing planner", time.Since(p.startPoint))
		p.killPlanner()
	})
}

func (p *Processor) disarmTimer() {
	if p.timer != nil {
		p.timer.Stop()
	}
}

func (p *Processor) timedOut() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.expired
}

// buildState accumulates one in-progress candidate tree as its nonterminal
// lines stream in.
type buildState struct {
	tree      *jointree.Tree
	nextIndex int // next nonterminal index expected to appear
	width     int // planner-reported width from a comment line, or -1
	seconds   float64
}

// ReadJoinTree reads candidate join trees from r (the planner's stdout)
// until the stream ends or the timeout fires, returning the
// smallest-width candidate seen. clauseVars supplies each clause's
// variable set so terminals can be constructed; apparentVars validates
// well-formedness.
func (p *Processor) ReadJoinTree(r io.Reader, clauseVars []map[int]struct{}, apparentVars map[int]struct{}) (*jointree.Tree, error) {
	p.armTimer(p.opts.Timeout)
	defer p.disarmTimer()
	defer func() {
		p.mu.Lock()
		if p.hasPid {
			// A known planner process has nothing left to tell us either
			// way; killing an already-dead pid is a harmless no-op.
			p.killPlanner()
		}
		p.mu.Unlock()
	}()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var backup *jointree.Tree
	var current *buildState

	finishCurrent := func() error {
		if current == nil {
			return nil
		}
		defer func() { current = nil }()
		wantNonterminals := current.tree.DeclaredNodeCount - current.tree.DeclaredClauseCount
		if len(current.tree.Nonterminals) < wantNonterminals {
			p.log.Warnf("ingest: missing internal nodes (%d expected, %d found) before current join tree ends; dropping candidate",
				wantNonterminals, len(current.tree.Nonterminals))
			return nil
		}
		if err := current.tree.WellFormed(apparentVars); err != nil {
			return err
		}
		root, ok := current.tree.Root()
		if !ok {
			return errs.InvariantViolationErr.New("join tree has no root")
		}
		if current.width >= 0 {
			current.tree.Width = current.width
		} else {
			current.tree.Width = root.Width(nil)
		}
		current.tree.PlannerDurationSecs = current.seconds
		if backup == nil || current.tree.Width < backup.Width {
			backup = current.tree
			if p.opts.Verbose {
				p.log.Infof("ingest: new backup join tree, width %d", backup.Width)
			}
		}
		return nil
	}

readLoop:
	for scanner.Scan() {
		line := scanner.Text()
		words := strings.Fields(line)
		if len(words) == 0 {
			continue
		}
		switch words[0] {
		case "=":
			if err := finishCurrent(); err != nil {
				return nil, err
			}
			if p.timedOut() {
				break readLoop
			}
		case "c":
			p.processCommentLine(words, current)
		case "p":
			if current != nil {
				return nil, errs.InputErr.New(0, "multiple problem lines in one join tree")
			}
			var err error
			current, err = newBuildState(words, clauseVars)
			if err != nil {
				return nil, err
			}
			p.mu.Lock()
			p.sawTree = true
			p.mu.Unlock()
		default:
			if current == nil {
				return nil, errs.InvariantViolationErr.New("nonterminal line before problem line")
			}
			if err := p.processNonterminalLine(words, current); err != nil {
				return nil, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ingest: reading planner stream: %w", err)
	}
	if err := finishCurrent(); err != nil {
		return nil, err
	}
	if backup == nil {
		return nil, errs.PlannerAbsentErr.New()
	}
	return backup, nil
}

func (p *Processor) processNonterminalLine(words []string, current *buildState) error {
	idx, err := strconv.Atoi(words[0])
	if err != nil {
		return errs.InputErr.New(0, "bad nonterminal index")
	}
	idx-- // 1-based in the stream, 0-based internally
	if idx < current.tree.DeclaredClauseCount || idx >= current.tree.DeclaredNodeCount {
		return errs.InvariantViolationErr.New(fmt.Sprintf("nonterminal index %d out of range", idx+1))
	}
	if idx != current.nextIndex {
		return errs.InvariantViolationErr.New(fmt.Sprintf("nonterminal index %d out of sequence (expected %d)", idx+1, current.nextIndex+1))
	}

	var children []jointree.Node
	projVars := make(map[int]struct{})
	elimMode := false
	for _, w := range words[1:] {
		if w == "e" {
			elimMode = true
			continue
		}
		n, convErr := strconv.Atoi(w)
		if convErr != nil {
			return errs.InputErr.New(0, "bad nonterminal token")
		}
		if elimMode {
			if n <= 0 || n > current.tree.DeclaredVarCount {
				return errs.InputErr.New(0, fmt.Sprintf("var '%d' inconsistent with declared var count '%d'", n, current.tree.DeclaredVarCount))
			}
			projVars[n] = struct{}{}
			continue
		}
		childIdx := n - 1
		if childIdx < 0 || childIdx >= idx {
			return errs.InvariantViolationErr.New(fmt.Sprintf("nonterminal %d has non-lower child %d", idx+1, n))
		}
		child, ok := current.tree.Node(childIdx)
		if !ok {
			return errs.InvariantViolationErr.New(fmt.Sprintf("nonterminal %d references unknown child %d", idx+1, n))
		}
		children = append(children, child)
	}
	current.tree.Nonterminals[idx] = jointree.NewNonterminal(children, projVars, idx)
	current.nextIndex++
	return nil
}

func newBuildState(words []string, clauseVars []map[int]struct{}) (*buildState, error) {
	if len(words) != 5 {
		return nil, errs.InputErr.New(0, fmt.Sprintf("problem line has %d words (should be 5)", len(words)))
	}
	if words[1] != "jt" {
		return nil, errs.InputErr.New(0, fmt.Sprintf("expected 'jt'; found %q", words[1]))
	}
	declaredVarCount, err1 := strconv.Atoi(words[2])
	declaredClauseCount, err2 := strconv.Atoi(words[3])
	declaredNodeCount, err3 := strconv.Atoi(words[4])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, errs.InputErr.New(0, "bad problem line counts")
	}
	tree := jointree.NewTree(declaredVarCount, declaredClauseCount, declaredNodeCount)
	for i := 0; i < declaredClauseCount && i < len(clauseVars); i++ {
		tree.Terminals[i] = jointree.NewTerminal(i, clauseVars[i])
	}
	return &buildState{tree: tree, nextIndex: declaredClauseCount, width: -1}, nil
}

// processCommentLine parses the planner's "c <key> <value>" lines:
// "pid" reports the planner's own process id (so the timeout can kill
// it), "joinTreeWidth" and "seconds" annotate the tree currently being
// read.
func (p *Processor) processCommentLine(words []string, current *buildState) {
	if len(words) != 3 {
		return
	}
	key, val := words[1], words[2]
	switch key {
	case "pid":
		if pid, err := strconv.Atoi(val); err == nil {
			p.mu.Lock()
			p.plannerPid = pid
			p.hasPid = true
			p.mu.Unlock()
		}
	case "joinTreeWidth":
		if current != nil {
			if w, err := strconv.Atoi(val); err == nil {
				current.width = w
			}
		}
	case "seconds":
		if current != nil {
			if s, err := strconv.ParseFloat(val, 64); err == nil {
				current.seconds = s
			}
		}
	}
}
