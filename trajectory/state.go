// Package trajectory holds sampled joint-space trajectories: per-joint
// segment lists backed by polynomial motion primitives, plus the tolerance
// structures supervised against them during execution.
package trajectory

// Point is the instantaneous motion state of a single joint.
type Point struct {
	Position     float64
	Velocity     float64
	Acceleration float64
}

// State is the motion state of every controlled joint, indexed in controller
// joint order. The same joint set backs the current, desired and error
// instances for a controller's whole lifetime.
type State struct {
	Position     []float64 `json:"positions"`
	Velocity     []float64 `json:"velocities"`
	Acceleration []float64 `json:"accelerations"`
}

// NewState preallocates a State for n joints.
func NewState(n int) *State {
	return &State{
		Position:     make([]float64, n),
		Velocity:     make([]float64, n),
		Acceleration: make([]float64, n),
	}
}

// Len returns the number of joints the state covers.
func (s *State) Len() int { return len(s.Position) }

// CopyFrom copies src into s without allocating. The two states must cover
// the same joint set.
func (s *State) CopyFrom(src *State) {
	copy(s.Position, src.Position)
	copy(s.Velocity, src.Velocity)
	copy(s.Acceleration, src.Acceleration)
}
