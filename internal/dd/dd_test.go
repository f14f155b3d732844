package dd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xDarkicex/dpve/internal/assign"
	"github.com/xDarkicex/dpve/internal/number"
)

func newTestManager(t *testing.T, varNum int, order []int) *Manager {
	t.Helper()
	number.Configure(number.ModeFloat, false)
	mgr, err := NewManagerWithOrder(varNum, order)
	require.NoError(t, err)
	return mgr
}

func TestVarMapIdentityWhenOrderNil(t *testing.T) {
	mgr := newTestManager(t, 3, nil)
	require.Equal(t, []int{0, 1, 2}, mgr.cnfToDd[1:])
	require.Equal(t, []int{1, 2, 3}, mgr.ddToCnf)
}

func TestVarMapFollowsGivenOrderThenAppendsRemainder(t *testing.T) {
	mgr := newTestManager(t, 4, []int{3, 1})
	require.Equal(t, 0, mgr.toDdVar(3))
	require.Equal(t, 1, mgr.toDdVar(1))
	// 2 and 4 are appended afterward in ascending order.
	require.Equal(t, 2, mgr.toDdVar(2))
	require.Equal(t, 3, mgr.toDdVar(4))
	for v := 1; v <= 4; v++ {
		require.Equal(t, v, mgr.toCnfVar(mgr.toDdVar(v)))
	}
}

func TestVarAddRoundTripsThroughCustomOrder(t *testing.T) {
	mgr := newTestManager(t, 2, []int{2, 1})
	lit := mgr.VarAdd(2, true)
	a := assign.New(2)
	a.Set(2, true)
	val := mgr.Eval(lit, a)
	require.Equal(t, number.One(), val)
}

func TestSupportReturnsCnfVars(t *testing.T) {
	mgr := newTestManager(t, 3, []int{3, 2, 1})
	a := mgr.VarAdd(3, true)
	b := mgr.VarAdd(1, true)
	prod := mgr.Product(a, b)
	support := mgr.Support(prod)
	require.ElementsMatch(t, []int{1, 3}, support)
}

func TestReorderControllerThresholdEvolvesOnlyOnAcceptance(t *testing.T) {
	ctrl := NewReorderController(ReorderManual1)
	require.False(t, ctrl.ShouldAttempt(0))
	require.True(t, ctrl.ShouldAttempt(defaultReorderThreshold))

	ctrl.RecordAttempt(false)
	require.False(t, ctrl.DidReordering())
	require.False(t, ctrl.ShouldAttempt(defaultReorderThreshold), "no reorder allowed again before a GC epoch")

	ctrl.RecordGC()
	require.True(t, ctrl.ShouldAttempt(defaultReorderThreshold))
	ctrl.RecordAttempt(true)
	require.True(t, ctrl.DidReordering())
}

func TestReorderControllerDisabledNeverAttempts(t *testing.T) {
	ctrl := NewReorderController(ReorderNone)
	require.False(t, ctrl.ShouldAttempt(1 << 30))
}

func TestWriteDotEmitsDigraph(t *testing.T) {
	mgr := newTestManager(t, 2, nil)
	d := mgr.Product(mgr.VarAdd(1, true), mgr.VarAdd(2, false))

	var buf strings.Builder
	require.NoError(t, mgr.WriteDot(&buf, d))
	out := buf.String()
	require.Contains(t, out, "digraph dd {")
	require.Contains(t, out, "x1")
	require.Contains(t, out, "x2")
}
