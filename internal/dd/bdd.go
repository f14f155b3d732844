// BDD backend: a thin wrapper over github.com/dalzilio/rudd, the one real
// Go BDD library retrieved for this corpus. rudd already implements the
// unique-table/apply-cache machinery the hand-rolled ADD backend in add.go
// has to build from scratch, so the BDD half of the facade is mostly
// forwarding.
package dd

import (
	"github.com/dalzilio/rudd"

	"github.com/xDarkicex/dpve/internal/errs"
)

const (
	defaultBddNodesize  = 1 << 16
	defaultBddCachesize = 1 << 14
)

// newRuddBDD allocates a rudd BDD manager sized for varCount variables.
// rudd mirrors BuDDy's two-step construction: allocate the node/cache
// tables, then declare the variable count separately. The Set wrapper
// supplies Equal and the variadic And/Or conveniences on top of the raw
// BDD interface.
func newRuddBDD(varCount int) (rudd.Set, error) {
	b := rudd.Set{BDD: rudd.NewBDD(defaultBddNodesize, defaultBddCachesize)}
	if err := b.SetVarnum(varCount); err != nil {
		return rudd.Set{}, errs.ResourceExhaustedErr.New(0, err.Error())
	}
	return b, nil
}

func (m *Manager) bddLiteral(v int, positive bool) rudd.Node {
	if positive {
		return m.bdd.Ithvar(v)
	}
	return m.bdd.NIthvar(v)
}

func (m *Manager) bddCube(vars []int) rudd.Node {
	return m.bdd.Makeset(vars)
}
