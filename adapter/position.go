package adapter

import (
	"time"

	"github.com/pkg/errors"

	"go.viam.com/trajctl/trajectory"
)

// Position forwards each joint's desired position straight to its commander,
// the command law for position-controlled hardware.
type Position struct {
	cmds []JointCommander
}

// NewPosition builds a position pass-through over one commander per joint.
func NewPosition(cmds []JointCommander) (*Position, error) {
	if len(cmds) == 0 {
		return nil, errors.New("at least one joint commander is required")
	}
	for i, cmd := range cmds {
		if cmd == nil {
			return nil, errors.Errorf("joint commander %d is nil", i)
		}
	}
	return &Position{cmds: cmds}, nil
}

// Joints returns the number of joints the adapter commands.
func (a *Position) Joints() int { return len(a.cmds) }

// UpdateCommand writes the desired positions. The error state plays no role
// for position-controlled hardware.
func (a *Position) UpdateCommand(uptime, period time.Duration, desired, stateError *trajectory.State) {
	for i, cmd := range a.cmds {
		cmd.SetCommand(desired.Position[i])
	}
}
