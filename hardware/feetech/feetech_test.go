package feetech

import (
	"testing"

	"go.viam.com/test"
)

func TestConfigValidate(t *testing.T) {
	good := Config{
		Port: "/dev/ttyACM0",
		Joints: []JointConfig{
			{Name: "shoulder", ID: 1},
			{Name: "elbow", ID: 2, Offset: 2048, Inverted: true},
		},
	}
	test.That(t, good.Validate(), test.ShouldBeNil)

	bad := Config{
		BaudRate: -1,
		Joints: []JointConfig{
			{Name: "a", ID: 1},
			{Name: "a", ID: 1},
			{Name: "", ID: 300},
		},
	}
	err := bad.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "serial port")
	test.That(t, err.Error(), test.ShouldContainSubstring, "baud rate")
	test.That(t, err.Error(), test.ShouldContainSubstring, "duplicate joint name")
	test.That(t, err.Error(), test.ShouldContainSubstring, "duplicate servo ID")
	test.That(t, err.Error(), test.ShouldContainSubstring, "outside [1, 253]")
}

func TestJointConfigConversions(t *testing.T) {
	jc := JointConfig{Name: "j", ID: 1, Offset: 2048}

	test.That(t, jc.Radians(2048), test.ShouldEqual, 0.0)
	// A quarter turn is 1024 counts at the default resolution.
	test.That(t, jc.Radians(3072), test.ShouldAlmostEqual, 1.5707963267948966)
	test.That(t, jc.Counts(jc.Radians(3072)), test.ShouldEqual, 3072)

	inv := JointConfig{Name: "j", ID: 1, Offset: 2048, Inverted: true}
	test.That(t, inv.Radians(3072), test.ShouldAlmostEqual, -1.5707963267948966)
	test.That(t, inv.Counts(inv.Radians(1024)), test.ShouldEqual, 1024)

	coarse := JointConfig{Name: "j", ID: 1, CountsPerRev: 360}
	test.That(t, coarse.Radians(90), test.ShouldAlmostEqual, 1.5707963267948966)
}

func TestJointCommandStaging(t *testing.T) {
	j := newJoint(JointConfig{Name: "j", ID: 1})

	_, ok := j.takeTarget()
	test.That(t, ok, test.ShouldBeFalse)

	// Only the latest target between flushes reaches the bus.
	j.SetCommand(0.5)
	j.SetCommand(0.7)
	rad, ok := j.takeTarget()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, rad, test.ShouldEqual, 0.7)

	_, ok = j.takeTarget()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestJointVelocityEstimate(t *testing.T) {
	j := newJoint(JointConfig{Name: "j", ID: 1})
	j.observe(0, 0)
	test.That(t, j.Velocity(), test.ShouldEqual, 0.0)

	// A constant 1 rad/s sweep converges onto the true velocity.
	pos := 0.0
	for i := 0; i < 100; i++ {
		pos += 0.01
		j.observe(pos, 0.01)
	}
	test.That(t, j.Position(), test.ShouldAlmostEqual, 1.0)
	test.That(t, j.Velocity(), test.ShouldAlmostEqual, 1.0, 1e-6)
}
