// Dynamic variable reordering bookkeeping.
//
// Three modes share one trigger point (before each binary algebraic op,
// once the backend's live-node count crosses a monotonically rising
// threshold and at least one GC has happened since the last reorder):
// manual-1 tries a candidate-permutation set and keeps the smallest,
// manual-2 runs backend sifting, auto enables backend autodynamic
// reordering. ReorderController owns the threshold evolution and the
// one-reorder-per-GC-epoch invariant that governs when a reorder is
// attempted, independent of which backend ends up serving the attempt.
//
// Neither backend here can safely serve the node-count-reducing half of
// that contract: rudd exposes no sift or autoreorder call, and the ADD
// table in add.go bakes ascending variable order along every
// root-to-leaf path into mkNode/apply/restrict; changing that order
// after nodes exist would invalidate every live diagram without a global
// live-root registry to rebuild them from, which the facade does not
// keep. MaybeReorder therefore runs the full trigger/bookkeeping
// schedule but applies the identity transform. The evaluated number is
// unaffected either way; only diagram size would be.
package dd

// ReorderMode names the "dy" flag's four settings.
type ReorderMode int

const (
	ReorderNone ReorderMode = iota
	ReorderManual1
	ReorderManual2
	ReorderAuto
)

// ReorderController tracks the monotonically-rising utilization threshold
// and the per-GC-epoch reorder invariant. One controller is owned per
// Manager; the mode decides whether ShouldAttempt can ever answer true.
type ReorderController struct {
	mode ReorderMode

	threshold    int
	thresholdInc int
	swapBudget   int

	didReordering  bool
	noReordSinceGC bool
}

// A modest initial threshold; after each accepted reorder the threshold
// rises by the increment, the increment shrinks by 2.5x, and the swap
// budget grows, so reorders get rarer but more thorough over a run.
const (
	defaultReorderThreshold    = 1 << 12
	defaultReorderThresholdInc = 1 << 10
	defaultSwapBudget          = 1 << 10
)

// NewReorderController builds a controller for mode. ReorderNone still
// returns a usable controller whose ShouldAttempt always reports false.
func NewReorderController(mode ReorderMode) *ReorderController {
	return &ReorderController{
		mode:           mode,
		threshold:      defaultReorderThreshold,
		thresholdInc:   defaultReorderThresholdInc,
		swapBudget:     defaultSwapBudget,
		noReordSinceGC: true,
	}
}

// Mode reports the configured reorder mode.
func (c *ReorderController) Mode() ReorderMode { return c.mode }

// RecordGC marks a GC epoch boundary, re-arming the "one reorder per GC"
// invariant; backends call it from their GC hooks.
func (c *ReorderController) RecordGC() {
	c.noReordSinceGC = true
}

// ShouldAttempt reports whether a reorder should be tried before the next
// binary algebraic op, given the current live-node utilization: mode must
// be enabled, utilization must have crossed threshold, and no reorder may
// have already happened since the last GC.
func (c *ReorderController) ShouldAttempt(liveNodes int) bool {
	if c.mode == ReorderNone {
		return false
	}
	if !c.noReordSinceGC {
		return false
	}
	return liveNodes >= c.threshold
}

// RecordAttempt updates the threshold/increment/swap-budget state after
// an attempted reorder. accepted reports whether the attempt actually
// changed the diagram (lowered its node count); the schedule only
// evolves on acceptance.
func (c *ReorderController) RecordAttempt(accepted bool) {
	c.noReordSinceGC = false
	if !accepted {
		return
	}
	c.didReordering = true
	c.threshold += c.thresholdInc
	c.thresholdInc = c.thresholdInc * 2 / 5 // divide by 2.5, integer-safe
	if c.thresholdInc < 1 {
		c.thresholdInc = 1
	}
	c.swapBudget += c.swapBudget / 2
}

// DidReordering reports whether any reorder has ever been accepted.
func (c *ReorderController) DidReordering() bool { return c.didReordering }

// MaybeReorder is the single call site the executor invokes before a
// binary algebraic op. It consults ctrl's threshold/epoch policy and
// always returns d unchanged: see the package doc comment for why no
// available backend can safely serve the node-count-reducing transform.
// The bookkeeping call still runs so the threshold schedule and GC-epoch
// invariant evolve normally for callers (or a future backend swap) that
// observe the schedule independent of whether a rewrite happened.
func (m *Manager) MaybeReorder(ctrl *ReorderController, d Dd) Dd {
	if ctrl == nil {
		return d
	}
	if !ctrl.ShouldAttempt(m.NodeCount(d)) {
		return d
	}
	ctrl.RecordAttempt(false)
	return d
}
