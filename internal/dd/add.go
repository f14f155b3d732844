// Algebraic decision diagram backend: the standard unique-table plus
// apply-cache construction, with Number-valued leaves instead of boolean
// ones. Nodes keep ascending variable order along every root-to-leaf
// path; mkNode canonicalizes (equal children collapse, shared structure
// dedupes) so handle equality is structural equality.
package dd

import (
	"fmt"

	"github.com/xDarkicex/dpve/internal/number"
)

type addRef int32

const addInvalid addRef = -1

type addNode struct {
	leaf      bool
	value     number.Number
	v         int
	low, high addRef
}

type addOp int

const (
	addOpProduct addOp = iota
	addOpSum
	addOpMax
	addOpXor
	addOpGE // boolean difference: 1 where left >= right, else 0
)

type applyKey struct {
	op   addOp
	a, b addRef
}

// addManager owns every ADD node created during one Manager's lifetime.
// Nodes are never freed individually; the whole table is dropped when the
// Manager is discarded (the same "one process-wide owner, freed at stop"
// model the facade's shared-resource note describes).
type addManager struct {
	nodes      []addNode
	leafCache  map[string]addRef
	nodeCache  map[[3]int]addRef // (v, low, high) -> ref
	applyCache map[applyKey]addRef

	zero, one addRef
}

func newAddManager() *addManager {
	m := &addManager{
		leafCache:  make(map[string]addRef),
		nodeCache:  make(map[[3]int]addRef),
		applyCache: make(map[applyKey]addRef),
	}
	m.zero = m.mkLeaf(number.Zero())
	m.one = m.mkLeaf(number.One())
	return m
}

func (m *addManager) mkLeaf(v number.Number) addRef {
	key := v.String()
	if r, ok := m.leafCache[key]; ok {
		return r
	}
	m.nodes = append(m.nodes, addNode{leaf: true, value: v})
	r := addRef(len(m.nodes) - 1)
	m.leafCache[key] = r
	return r
}

func (m *addManager) mkNode(v int, low, high addRef) addRef {
	if low == high {
		return low
	}
	key := [3]int{v, int(low), int(high)}
	if r, ok := m.nodeCache[key]; ok {
		return r
	}
	m.nodes = append(m.nodes, addNode{v: v, low: low, high: high})
	r := addRef(len(m.nodes) - 1)
	m.nodeCache[key] = r
	return r
}

func (m *addManager) get(r addRef) addNode { return m.nodes[r] }

// topVar returns a node's variable, or an arbitrarily large sentinel for
// leaves so recursion treats a leaf as if it has no variable left to
// branch on.
func (m *addManager) topVar(r addRef) int {
	n := m.get(r)
	if n.leaf {
		return 1<<31 - 1
	}
	return n.v
}

func (m *addManager) varLiteral(v int, positive bool) addRef {
	if positive {
		return m.mkNode(v, m.zero, m.one)
	}
	return m.mkNode(v, m.one, m.zero)
}

func (m *addManager) apply(op addOp, a, b addRef) addRef {
	key := applyKey{op, a, b}
	if r, ok := m.applyCache[key]; ok {
		return r
	}
	na, nb := m.get(a), m.get(b)
	var result addRef
	switch {
	case na.leaf && nb.leaf:
		result = m.mkLeaf(combineLeaves(op, na.value, nb.value))
	default:
		va, vb := m.topVar(a), m.topVar(b)
		v := va
		if vb < v {
			v = vb
		}
		lowA, highA := a, a
		if va == v {
			lowA, highA = na.low, na.high
		}
		lowB, highB := b, b
		if vb == v {
			lowB, highB = nb.low, nb.high
		}
		low := m.apply(op, lowA, lowB)
		high := m.apply(op, highA, highB)
		result = m.mkNode(v, low, high)
	}
	m.applyCache[key] = result
	return result
}

func combineLeaves(op addOp, a, b number.Number) number.Number {
	switch op {
	case addOpProduct:
		return a.Mul(b)
	case addOpSum:
		return a.Add(b)
	case addOpMax:
		return number.Max(a, b)
	case addOpXor:
		// boolean ADDs only: leaves are 0/1 in the same mode a and b use.
		av, bv := a.Float64() != 0, b.Float64() != 0
		if av != bv {
			return number.One()
		}
		return number.Zero()
	case addOpGE:
		if !a.Less(b) {
			return number.One()
		}
		return number.Zero()
	default:
		panic(fmt.Sprintf("dd: unknown apply op %d", op))
	}
}

// restrict fixes variable v to value, returning the resulting ADD with v
// no longer appearing. Nodes whose variable precedes v in the diagram
// order are rebuilt as needed; a subdiagram whose top variable follows v
// cannot contain v and is returned unchanged.
func (m *addManager) restrict(r addRef, v int, value bool) addRef {
	n := m.get(r)
	if n.leaf {
		return r
	}
	if n.v == v {
		if value {
			return n.high
		}
		return n.low
	}
	if n.v > v {
		return r
	}
	low := m.restrict(n.low, v, value)
	high := m.restrict(n.high, v, value)
	return m.mkNode(n.v, low, high)
}

// abstract eliminates variable v by combining its two cofactors, scaled by
// pos/neg weights: additive abstraction computes pos*f(v=1) + neg*f(v=0)
// (log-sum-exp in log mode, via Number.Add); non-additive (max-quantified)
// abstraction computes max(pos*f(v=1), neg*f(v=0)).
func (m *addManager) abstract(r addRef, v int, pos, neg number.Number, additive bool) addRef {
	n := m.get(r)
	if n.leaf || n.v > v {
		return m.combineScaled(r, r, pos, neg, additive)
	}
	if n.v == v {
		return m.combineScaled(n.high, n.low, pos, neg, additive)
	}
	low := m.abstract(n.low, v, pos, neg, additive)
	high := m.abstract(n.high, v, pos, neg, additive)
	return m.mkNode(n.v, low, high)
}

// abstractSumAll eliminates every variable in vars (ddVars, sorted
// ascending, weights aligned by index) in one recursion instead of one
// diagram rewrite per variable. A variable absent from a path's support
// contributes its pos+neg factor to that path directly. Memoized on
// (node, next-variable index) since subgraphs recur across branches.
func (m *addManager) abstractSumAll(r addRef, vars []int, pos, neg []number.Number) addRef {
	type key struct {
		r   addRef
		idx int
	}
	memo := make(map[key]addRef)
	var rec func(addRef, int) addRef
	rec = func(r addRef, idx int) addRef {
		if idx == len(vars) {
			return r
		}
		k := key{r, idx}
		if out, ok := memo[k]; ok {
			return out
		}
		n := m.get(r)
		v := vars[idx]
		var result addRef
		switch {
		case n.leaf || n.v > v:
			rest := rec(r, idx+1)
			result = m.apply(addOpProduct, rest, m.mkLeaf(pos[idx].Add(neg[idx])))
		case n.v == v:
			hi := m.apply(addOpProduct, rec(n.high, idx+1), m.mkLeaf(pos[idx]))
			lo := m.apply(addOpProduct, rec(n.low, idx+1), m.mkLeaf(neg[idx]))
			result = m.apply(addOpSum, hi, lo)
		default:
			result = m.mkNode(n.v, rec(n.low, idx), rec(n.high, idx))
		}
		memo[k] = result
		return result
	}
	return rec(r, 0)
}

func (m *addManager) combineScaled(hi, lo addRef, pos, neg number.Number, additive bool) addRef {
	scaledHi := m.apply(addOpProduct, hi, m.mkLeaf(pos))
	scaledLo := m.apply(addOpProduct, lo, m.mkLeaf(neg))
	if additive {
		return m.apply(addOpSum, scaledHi, scaledLo)
	}
	return m.apply(addOpMax, scaledHi, scaledLo)
}

// scaledCofactors returns v's two cofactors of r, each already multiplied
// by its polarity's weight, without combining them; the executor's
// per-variable abstraction step needs both separately to build the
// maximizer's dsgn indicator before deciding how to combine them.
func (m *addManager) scaledCofactors(r addRef, v int, pos, neg number.Number) (hi, lo addRef) {
	hiRaw := m.restrict(r, v, true)
	loRaw := m.restrict(r, v, false)
	return m.apply(addOpProduct, hiRaw, m.mkLeaf(pos)), m.apply(addOpProduct, loRaw, m.mkLeaf(neg))
}

// threshold replaces every leaf below bound with the zero leaf, the
// recursion logThreshold(bound) runs in log-counting mode. Memoized by
// node since the same subgraph can be reached from several parents.
func (m *addManager) threshold(r addRef, bound number.Number) addRef {
	return m.thresholdRec(r, bound, make(map[addRef]addRef))
}

func (m *addManager) thresholdRec(r addRef, bound number.Number, memo map[addRef]addRef) addRef {
	if v, ok := memo[r]; ok {
		return v
	}
	n := m.get(r)
	var result addRef
	if n.leaf {
		if n.value.Less(bound) {
			result = m.zero
		} else {
			result = r
		}
	} else {
		low := m.thresholdRec(n.low, bound, memo)
		high := m.thresholdRec(n.high, bound, memo)
		result = m.mkNode(n.v, low, high)
	}
	memo[r] = result
	return result
}

// eval walks the diagram to a leaf under a full assignment (1 = high, 0 = low
// per remaining variable) and returns its value.
func (m *addManager) eval(r addRef, value func(v int) bool) number.Number {
	for {
		n := m.get(r)
		if n.leaf {
			return n.value
		}
		if value(n.v) {
			r = n.high
		} else {
			r = n.low
		}
	}
}

// support returns the set of variables appearing in the diagram rooted at r.
func (m *addManager) support(r addRef) map[int]struct{} {
	out := make(map[int]struct{})
	seen := make(map[addRef]struct{})
	var walk func(addRef)
	walk = func(ref addRef) {
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}
		n := m.get(ref)
		if n.leaf {
			return
		}
		out[n.v] = struct{}{}
		walk(n.low)
		walk(n.high)
	}
	walk(r)
	return out
}

func (m *addManager) isConstant(r addRef) (number.Number, bool) {
	n := m.get(r)
	if n.leaf {
		return n.value, true
	}
	return number.Number{}, false
}
