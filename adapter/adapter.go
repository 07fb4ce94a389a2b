// Package adapter provides command-generation stages that turn a tick's
// desired state and tracking error into hardware commands. Which stage fits
// depends on what the hardware accepts: position-controlled joints take the
// desired position straight through, effort-controlled joints need a control
// law closed over the tracking error.
package adapter

// JointCommander writes one joint's command to the hardware layer. Writes
// happen once per tick on the real-time path and must not block; hardware
// backends stage the value and flush it off the tick path.
type JointCommander interface {
	SetCommand(v float64)
}
