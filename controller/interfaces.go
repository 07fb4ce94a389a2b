package controller

import (
	"time"

	"go.viam.com/trajctl/trajectory"
)

// JointHandle reads one joint's measured state from the hardware layer.
// Reads must be cheap and non-blocking: they happen once per tick on the
// real-time path. There is no acceleration read path on a joint handle.
type JointHandle interface {
	Position() float64
	Velocity() float64
}

// CommandAdapter converts a tick's desired state and tracking error into
// hardware commands. It is invoked once per tick, after tolerance
// supervision, and must not block or allocate; the command law itself is
// outside the controller core. An adapter that additionally implements
// `Joints() int` has its joint count checked against the configuration at
// construction.
type CommandAdapter interface {
	UpdateCommand(uptime, period time.Duration, desired, stateError *trajectory.State)
}

// ContactSensors supplies the latest supplementary contact-force readings,
// sampled asynchronously by an external subsystem. Forces must return
// immediately with whatever values are current; the readings are advisory
// and only ever logged, never fed into control decisions.
type ContactSensors interface {
	Forces() []float64
}
