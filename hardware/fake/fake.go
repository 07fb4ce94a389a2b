// Package fake provides in-memory joints, adapters and sensors for tests and
// demos.
package fake

import (
	"sync"
	"time"

	"go.viam.com/trajctl/trajectory"
)

// Joint is a settable in-memory joint. It satisfies both the controller's
// joint handle and the adapter's joint commander.
type Joint struct {
	mu       sync.Mutex
	position float64
	velocity float64
	command  float64
}

// NewJoint returns a joint resting at the given position.
func NewJoint(position float64) *Joint {
	return &Joint{position: position}
}

// Position returns the joint's measured position.
func (j *Joint) Position() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.position
}

// Velocity returns the joint's measured velocity.
func (j *Joint) Velocity() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.velocity
}

// SetState moves the joint to the given measured state.
func (j *Joint) SetState(position, velocity float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.position = position
	j.velocity = velocity
}

// SetCommand records the latest hardware command.
func (j *Joint) SetCommand(v float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.command = v
}

// Command returns the latest hardware command.
func (j *Joint) Command() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.command
}

// TrackingAdapter is a command adapter that teleports the fake joints onto
// the desired state every tick, emulating hardware that tracks perfectly.
// Optionally a fixed position offset models imperfect tracking.
type TrackingAdapter struct {
	mu     sync.Mutex
	joints []*Joint
	parked []bool
	offset float64
	calls  int
}

// NewTrackingAdapter builds a perfect-tracking adapter over the given
// joints.
func NewTrackingAdapter(joints []*Joint) *TrackingAdapter {
	return &TrackingAdapter{joints: joints, parked: make([]bool, len(joints))}
}

// SetOffset makes every joint track with a constant position offset.
func (a *TrackingAdapter) SetOffset(offset float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.offset = offset
}

// Park stops the adapter from moving joint i, emulating a joint that is
// stuck wherever the test last placed it.
func (a *TrackingAdapter) Park(i int, parked bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.parked[i] = parked
}

// Joints returns the number of joints the adapter commands.
func (a *TrackingAdapter) Joints() int { return len(a.joints) }

// Calls returns how many times UpdateCommand ran.
func (a *TrackingAdapter) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// UpdateCommand moves the joints to the desired state (plus any offset).
func (a *TrackingAdapter) UpdateCommand(uptime, period time.Duration, desired, stateError *trajectory.State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	for i, j := range a.joints {
		if a.parked[i] {
			continue
		}
		j.SetState(desired.Position[i]+a.offset, desired.Velocity[i])
	}
}

// ContactSensors reports a fixed set of contact-force readings.
type ContactSensors struct {
	mu     sync.Mutex
	forces []float64
}

// NewContactSensors returns a sensor set with n zeroed readings.
func NewContactSensors(n int) *ContactSensors {
	return &ContactSensors{forces: make([]float64, n)}
}

// SetForces replaces the readings.
func (s *ContactSensors) SetForces(forces []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy(s.forces, forces)
}

// Forces returns the latest readings.
func (s *ContactSensors) Forces() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]float64, len(s.forces))
	copy(out, s.forces)
	return out
}
