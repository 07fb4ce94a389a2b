package trajectory

import (
	"math"

	"github.com/edaniels/golog"
)

// StateTolerance bounds the instantaneous error of one joint. A zero or
// negative threshold disables the corresponding check.
type StateTolerance struct {
	Position     float64
	Velocity     float64
	Acceleration float64
}

// SegmentTolerances carries one joint's execution tolerances. State is
// checked while a segment is actively tracked; GoalState is checked at and
// after the final segment's nominal end, with GoalTime seconds of grace to
// settle into it.
type SegmentTolerances struct {
	State     StateTolerance
	GoalState StateTolerance
	GoalTime  float64
}

// CheckStateTolerance reports whether errState is within tol. The position
// error is expected to already be a wrap-aware angular distance. The
// acceleration threshold is carried in the structure but never evaluated:
// no acceleration error is computed for an instantaneous sample. verbose
// additionally logs per-field detail without altering the result.
func CheckStateTolerance(errState Point, tol StateTolerance, verbose bool, logger golog.Logger) bool {
	ok := true
	if tol.Position > 0 && math.Abs(errState.Position) > tol.Position {
		ok = false
		if verbose {
			logger.Errorf("position error %.6f outside tolerance %.6f", errState.Position, tol.Position)
		}
	}
	if tol.Velocity > 0 && math.Abs(errState.Velocity) > tol.Velocity {
		ok = false
		if verbose {
			logger.Errorf("velocity error %.6f outside tolerance %.6f", errState.Velocity, tol.Velocity)
		}
	}
	return ok
}
