// Package raerr defines the error taxonomy shared by every component of
// the reconstructability analysis engine: invalid input, violated
// invariants, and numeric divergence (see SPEC_FULL.md section 4.13).
package raerr

import "errors"

// InvalidInput marks an error caused by malformed caller-supplied data:
// an unknown variable abbreviation, a row length mismatch, an unparsable
// model string. Wrap with fmt.Errorf("%w: ...", InvalidInput).
var InvalidInput = errors.New("invalid input")

// InvariantViolated marks a precondition violation that indicates a bug
// in the caller rather than bad data: projecting onto an empty subset,
// mutating a frozen variable list, normalizing a zero-sum table.
var InvariantViolated = errors.New("invariant violated")

// NumericDivergence marks a numerical failure local to one computation,
// such as IPF not converging within its iteration cap. Callers that see
// this for one model in a search level should keep evaluating the rest.
var NumericDivergence = errors.New("numeric divergence")

// Is reports whether err is (or wraps) one of the three sentinel kinds.
// It exists purely as a documentation aid; callers are equally free to
// call errors.Is directly against the package-level sentinels.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}
