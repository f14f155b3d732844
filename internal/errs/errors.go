// Package errs defines the error taxonomy shared across the engine.
//
// Each class from the design's error handling section is a package-level
// *errors.Kind, following the same pattern dolthub's auth package uses
// (ErrNotAuthorized = errors.NewKind("not authorized")): a format string
// declared once, instantiated with .New(args...) at the raise site. Callers
// match on kind with errors.Is / Kind.Is rather than string comparison.
package errs

import (
	goerrors "gopkg.in/src-d/go-errors.v1"
)

var (
	// InputErr covers malformed CNF or join-tree lines, inconsistent
	// declared counts, and literals out of range. Reported with a line
	// number; always fatal.
	InputErr = goerrors.NewKind("input error at line %d: %s")

	// ConfigErr covers incompatible flag/option combinations, detected
	// before any evaluation begins.
	ConfigErr = goerrors.NewKind("configuration error: %s")

	// ResourceExhaustedErr covers diagram-backend memory or cache
	// exhaustion. Reported with the last successfully processed join
	// node index.
	ResourceExhaustedErr = goerrors.NewKind("resource exhausted at join node %d: %s")

	// PlannerAbsentErr covers stdin ending before any join tree arrived.
	PlannerAbsentErr = goerrors.NewKind("planner produced no join tree before timeout")

	// InvariantViolationErr covers internal assertions: weights that do
	// not sum to one within tolerance, node indices out of range, and
	// similar conditions that indicate a caller or ingester bug.
	InvariantViolationErr = goerrors.NewKind("invariant violated: %s")
)

// Unsat is not an error condition to the calling program; it is a result.
// It is still modeled as a Go error type so it can propagate through the
// same call chains as the fatal classes above and be distinguished with
// errors.As at the one place (the driver) that must special-case it.
type Unsat struct {
	Reason string
}

func (u *Unsat) Error() string {
	if u.Reason == "" {
		return "formula is unsatisfiable"
	}
	return "formula is unsatisfiable: " + u.Reason
}

// NewUnsat constructs an Unsat result carrying a human-readable reason
// (e.g. "empty clause at line 12", "SAT-filter root is constant zero").
func NewUnsat(reason string) *Unsat {
	return &Unsat{Reason: reason}
}
