package adapter

import (
	"time"

	"github.com/pkg/errors"

	"go.viam.com/trajctl/trajectory"
)

// PDGains configures one joint's effort law.
type PDGains struct {
	P float64 `yaml:"p"`
	D float64 `yaml:"d"`
	// MaxEffort clamps the command magnitude. Zero means unclamped.
	MaxEffort float64 `yaml:"max_effort"`
}

// PDEffort closes a proportional-derivative law over the tracking error to
// produce joint efforts, the command law for effort-controlled hardware.
type PDEffort struct {
	cmds  []JointCommander
	gains []PDGains
}

// NewPDEffort builds an effort stage with one commander and gain set per
// joint.
func NewPDEffort(cmds []JointCommander, gains []PDGains) (*PDEffort, error) {
	if len(cmds) == 0 {
		return nil, errors.New("at least one joint commander is required")
	}
	for i, cmd := range cmds {
		if cmd == nil {
			return nil, errors.Errorf("joint commander %d is nil", i)
		}
	}
	if len(gains) != len(cmds) {
		return nil, errors.Errorf("%d commanders but %d gain sets", len(cmds), len(gains))
	}
	for i, g := range gains {
		if g.P < 0 || g.D < 0 || g.MaxEffort < 0 {
			return nil, errors.Errorf("gains for joint %d must be non-negative", i)
		}
	}
	return &PDEffort{cmds: cmds, gains: gains}, nil
}

// Joints returns the number of joints the adapter commands.
func (a *PDEffort) Joints() int { return len(a.cmds) }

// UpdateCommand writes one effort per joint from the tracking error.
func (a *PDEffort) UpdateCommand(uptime, period time.Duration, desired, stateError *trajectory.State) {
	for i, cmd := range a.cmds {
		g := a.gains[i]
		effort := g.P*stateError.Position[i] + g.D*stateError.Velocity[i]
		if g.MaxEffort > 0 {
			if effort > g.MaxEffort {
				effort = g.MaxEffort
			} else if effort < -g.MaxEffort {
				effort = -g.MaxEffort
			}
		}
		cmd.SetCommand(effort)
	}
}
