// Package jointree implements the join-tree model: terminal nodes indexed
// by clause, nonterminal nodes labeled with a projection-var set, the
// tree-level width/well-formedness checks the ingester and driver rely
// on, and the tree-driven diagram variable-order heuristics.
package jointree

import (
	"fmt"
	"sort"

	"github.com/xDarkicex/dpve/internal/assign"
	"github.com/xDarkicex/dpve/internal/errs"
)

// Node is the common interface for JoinTerminal and JoinNonterminal.
type Node interface {
	Index() int
	IsTerminal() bool
	PreProjectionVars() map[int]struct{}
	// Width returns |preProjectionVars \ assignment| for this node, taking
	// the max over the subtree for nonterminals.
	Width(a *assign.Assignment) int
}

// Terminal is a leaf node, one per clause (nodeIndex == clauseIndex).
type Terminal struct {
	nodeIndex int
	preVars   map[int]struct{}
}

// NewTerminal builds a terminal for clauseIndex, whose preProjectionVars is
// the clause's variable set.
func NewTerminal(clauseIndex int, clauseVars map[int]struct{}) *Terminal {
	return &Terminal{nodeIndex: clauseIndex, preVars: clauseVars}
}

func (t *Terminal) Index() int                            { return t.nodeIndex }
func (t *Terminal) IsTerminal() bool                       { return true }
func (t *Terminal) PreProjectionVars() map[int]struct{}    { return t.preVars }
func (t *Terminal) Width(a *assign.Assignment) int         { return diffSize(t.preVars, a) }

// Nonterminal combines children and eliminates projectionVars.
type Nonterminal struct {
	nodeIndex      int
	children       []Node
	projectionVars map[int]struct{}
	preVars        map[int]struct{}
}

// NewNonterminal builds a nonterminal node. preProjectionVars is the union
// of children's postProjectionVars (preVars minus that child's own
// projectionVars).
func NewNonterminal(children []Node, projectionVars map[int]struct{}, nodeIndex int) *Nonterminal {
	pre := make(map[int]struct{})
	for _, ch := range children {
		for v := range postProjectionVars(ch) {
			pre[v] = struct{}{}
		}
	}
	if projectionVars == nil {
		projectionVars = make(map[int]struct{})
	}
	return &Nonterminal{nodeIndex: nodeIndex, children: children, projectionVars: projectionVars, preVars: pre}
}

func postProjectionVars(n Node) map[int]struct{} {
	pre := n.PreProjectionVars()
	if nt, ok := n.(*Nonterminal); ok {
		out := make(map[int]struct{}, len(pre))
		for v := range pre {
			if _, proj := nt.projectionVars[v]; !proj {
				out[v] = struct{}{}
			}
		}
		return out
	}
	return pre
}

func (n *Nonterminal) Index() int                         { return n.nodeIndex }
func (n *Nonterminal) IsTerminal() bool                   { return false }
func (n *Nonterminal) PreProjectionVars() map[int]struct{} { return n.preVars }
func (n *Nonterminal) ProjectionVars() map[int]struct{}    { return n.projectionVars }
func (n *Nonterminal) Children() []Node                   { return n.children }

func (n *Nonterminal) Width(a *assign.Assignment) int {
	width := diffSize(n.preVars, a)
	for _, child := range n.children {
		if w := child.Width(a); w > width {
			width = w
		}
	}
	return width
}

func diffSize(vars map[int]struct{}, a *assign.Assignment) int {
	if a == nil {
		return len(vars)
	}
	count := 0
	for v := range vars {
		if !a.Has(v) {
			count++
		}
	}
	return count
}

// Tree is the whole join tree as read by the ingester.
type Tree struct {
	DeclaredVarCount     int
	DeclaredClauseCount  int
	DeclaredNodeCount    int
	Terminals            map[int]*Terminal
	Nonterminals         map[int]*Nonterminal
	Width                int
	PlannerDurationSecs  float64
}

// NewTree allocates the tree shell; terminals are populated by the
// ingester as it reads the problem line.
func NewTree(declaredVarCount, declaredClauseCount, declaredNodeCount int) *Tree {
	return &Tree{
		DeclaredVarCount:    declaredVarCount,
		DeclaredClauseCount: declaredClauseCount,
		DeclaredNodeCount:   declaredNodeCount,
		Terminals:           make(map[int]*Terminal),
		Nonterminals:        make(map[int]*Nonterminal),
	}
}

// Node returns the node at nodeIndex (0-based), terminal or nonterminal.
func (t *Tree) Node(nodeIndex int) (Node, bool) {
	if term, ok := t.Terminals[nodeIndex]; ok {
		return term, true
	}
	if nt, ok := t.Nonterminals[nodeIndex]; ok {
		return nt, true
	}
	return nil, false
}

// Root returns the final nonterminal, the tree's root.
func (t *Tree) Root() (*Nonterminal, bool) {
	nt, ok := t.Nonterminals[t.DeclaredNodeCount-1]
	return nt, ok
}

// WellFormed checks the tree invariants: every terminal index below
// declaredClauseCount, every nonterminal's children strictly below it, and
// every apparent var projected at exactly one nonterminal. Vars that
// appear in no clause must not be projected anywhere: the planner never
// sees them, and the driver's hidden-var adjustment accounts for their
// weights after evaluation; projecting one in-tree would fold its weight
// factor in twice.
func (t *Tree) WellFormed(apparentVars map[int]struct{}) error {
	for idx := range t.Terminals {
		if idx < 0 || idx >= t.DeclaredClauseCount {
			return errs.InvariantViolationErr.New(fmt.Sprintf("terminal index %d out of range", idx))
		}
	}
	projectedAt := make(map[int]int) // var -> count of nonterminals projecting it
	for idx, nt := range t.Nonterminals {
		for _, ch := range nt.children {
			if ch.Index() >= idx {
				return errs.InvariantViolationErr.New(fmt.Sprintf("nonterminal %d has child %d with non-lower index", idx, ch.Index()))
			}
		}
		for v := range nt.projectionVars {
			projectedAt[v]++
		}
	}
	for v, count := range projectedAt {
		if count > 1 {
			return errs.InvariantViolationErr.New(fmt.Sprintf("var %d projected at %d nonterminals (must be exactly one)", v, count))
		}
		if _, apparent := apparentVars[v]; !apparent {
			return errs.InvariantViolationErr.New(fmt.Sprintf("var %d projected but appears in no clause", v))
		}
	}
	for v := range apparentVars {
		if projectedAt[v] != 1 {
			return errs.InvariantViolationErr.New(fmt.Sprintf("apparent var %d projected at %d nonterminals (must be exactly one)", v, projectedAt[v]))
		}
	}
	return nil
}

// sortedVars returns the keys of a var set in ascending order, used
// wherever deterministic iteration is required (BFS emission order).
func sortedVars(vars map[int]struct{}) []int {
	out := make([]int, 0, len(vars))
	for v := range vars {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
