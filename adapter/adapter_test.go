package adapter

import (
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/trajctl/trajectory"
)

type recordingCommander struct {
	last float64
	n    int
}

func (r *recordingCommander) SetCommand(v float64) {
	r.last = v
	r.n++
}

func TestPositionPassThrough(t *testing.T) {
	_, err := NewPosition(nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewPosition([]JointCommander{nil})
	test.That(t, err, test.ShouldNotBeNil)

	c0, c1 := &recordingCommander{}, &recordingCommander{}
	a, err := NewPosition([]JointCommander{c0, c1})
	test.That(t, err, test.ShouldBeNil)

	desired := &trajectory.State{Position: []float64{1.5, -2}, Velocity: []float64{9, 9}}
	errState := trajectory.NewState(2)
	a.UpdateCommand(time.Second, 10*time.Millisecond, desired, errState)

	test.That(t, c0.last, test.ShouldEqual, 1.5)
	test.That(t, c1.last, test.ShouldEqual, -2)
}

func TestPDEffortLaw(t *testing.T) {
	_, err := NewPDEffort([]JointCommander{&recordingCommander{}}, nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewPDEffort([]JointCommander{nil}, []PDGains{{}})
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewPDEffort([]JointCommander{&recordingCommander{}}, []PDGains{{P: -1}})
	test.That(t, err, test.ShouldNotBeNil)

	cmd := &recordingCommander{}
	a, err := NewPDEffort([]JointCommander{cmd}, []PDGains{{P: 10, D: 2, MaxEffort: 5}})
	test.That(t, err, test.ShouldBeNil)

	desired := trajectory.NewState(1)
	errState := &trajectory.State{
		Position:     []float64{0.2},
		Velocity:     []float64{0.5},
		Acceleration: []float64{0},
	}
	a.UpdateCommand(0, 10*time.Millisecond, desired, errState)
	test.That(t, cmd.last, test.ShouldAlmostEqual, 10*0.2+2*0.5)

	// Saturation in both directions.
	errState.Position[0] = 10
	a.UpdateCommand(0, 10*time.Millisecond, desired, errState)
	test.That(t, cmd.last, test.ShouldEqual, 5.0)

	errState.Position[0] = -10
	errState.Velocity[0] = 0
	a.UpdateCommand(0, 10*time.Millisecond, desired, errState)
	test.That(t, cmd.last, test.ShouldEqual, -5.0)
}
