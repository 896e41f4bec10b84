package quant

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Algorithms return one of these (optionally wrapped in
// *Error for positional context); callers match with errors.Is. Every message
// is prefixed "quant: ..." for consistent grepping, matching the convention in
// katalvlaran/lvlath's matrix package.
//
// ERROR PRIORITY: empty input -> non-finite input -> invalid config ->
// dimension mismatch -> plan invariant -> degenerate clustering (stage 1) ->
// assignment overflow. DegenerateClusteringStage2 is never returned to a
// caller; it is handled internally as a soft recovery (spec.md §7).
var (
	// ErrEmptyInput is returned when a tensor with zero elements enters the
	// pipeline.
	ErrEmptyInput = errors.New("quant: tensor has zero elements")

	// ErrNonFiniteInput is returned when any element is NaN or +/-Inf. Wrap in
	// *Error with Row/Col set so the offending position is reported.
	ErrNonFiniteInput = errors.New("quant: non-finite value in input")

	// ErrInvalidConfig is returned when a Config bound is violated.
	ErrInvalidConfig = errors.New("quant: invalid configuration")

	// ErrDimensionMismatch is returned when a teacher matrix's shape differs
	// from the weights it is meant to blend against.
	ErrDimensionMismatch = errors.New("quant: dimension mismatch")

	// ErrPlanInvariantViolation is returned when a subspace plan has a gap,
	// overlap, or out-of-range endpoint. This indicates an internal bug in the
	// planner or a hand-built plan passed by a caller, and is always fatal.
	ErrPlanInvariantViolation = errors.New("quant: subspace plan invariant violated")

	// ErrDegenerateClustering is returned when stage-1 centroids fail the
	// minimum pairwise distance check. Fatal for the layer.
	ErrDegenerateClustering = errors.New("quant: degenerate clustering")

	// ErrAssignmentOverflow is returned when a subspace's row count would
	// require assignment indices wider than 16 bits.
	ErrAssignmentOverflow = errors.New("quant: assignment count exceeds 16-bit capacity")
)

// Error carries a sentinel plus structured positional context. Callers that
// only care about the error kind should use errors.Is(err, quant.ErrX);
// callers that want the offending coordinates can type-assert to *Error.
type Error struct {
	Kind    error  // one of the sentinels above
	Message string // human-readable detail, never a file name or line number
	Row     int    // -1 when not applicable
	Col     int    // -1 when not applicable
}

func (e *Error) Error() string {
	if e.Row >= 0 && e.Col >= 0 {
		return fmt.Sprintf("%s: %s at (%d, %d)", e.Kind, e.Message, e.Row, e.Col)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Kind }

func newErr(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Row: -1, Col: -1}
}

func newPositionalErr(kind error, row, col int, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Row: row, Col: col}
}
