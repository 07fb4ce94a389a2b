package controller

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"go.viam.com/trajctl/trajectory"
)

// JointConstraints configures one joint's execution tolerances. Zero values
// disable the corresponding check.
type JointConstraints struct {
	// Trajectory bounds the position error while a segment is tracked.
	Trajectory float64 `yaml:"trajectory"`
	// Goal bounds the position error at the end of the trajectory.
	Goal float64 `yaml:"goal"`
}

// Constraints configures the controller-wide tolerance defaults applied to
// every accepted goal unless the goal overrides them.
type Constraints struct {
	// GoalTime is the grace period, in seconds, granted past the end of the
	// last segment to settle into the goal tolerances.
	GoalTime float64 `yaml:"goal_time"`
	// StoppedVelocityTolerance bounds the velocity error at the end of the
	// trajectory.
	StoppedVelocityTolerance float64 `yaml:"stopped_velocity_tolerance"`
	// Joints holds per-joint position bounds, keyed by joint name.
	Joints map[string]JointConstraints `yaml:"joints"`
}

// Config is the controller configuration.
type Config struct {
	Name      string   `yaml:"name"`
	Joints    []string `yaml:"joints"`
	Frequency float64  `yaml:"frequency"`

	// ActionMonitorRate is the rate, in Hz, of the non-real-time goal
	// status worker.
	ActionMonitorRate float64 `yaml:"action_monitor_rate"`

	AllowPartialJointsGoal bool `yaml:"allow_partial_joints_goal"`
	Verbose                bool `yaml:"verbose"`

	Constraints Constraints `yaml:"constraints"`
}

const (
	defaultFrequency         = 50.0
	defaultActionMonitorRate = 20.0
)

// Validate checks the configuration, reporting every problem at once.
func (c *Config) Validate() error {
	var err error
	if c.Name == "" {
		err = multierr.Append(err, errors.New("name must be set"))
	}
	if len(c.Joints) == 0 {
		err = multierr.Append(err, errors.New("at least one joint must be configured"))
	}
	seen := map[string]bool{}
	for _, j := range c.Joints {
		if j == "" {
			err = multierr.Append(err, errors.New("joint names may not be empty"))
			continue
		}
		if seen[j] {
			err = multierr.Append(err, errors.Errorf("duplicate joint name %q", j))
		}
		seen[j] = true
	}
	if c.Frequency < 0 || c.Frequency > 1000 {
		err = multierr.Append(err, errors.Errorf("frequency %f must be within [0, 1000] Hz; zero selects the default", c.Frequency))
	}
	if c.ActionMonitorRate < 0 {
		err = multierr.Append(err, errors.New("action_monitor_rate may not be negative"))
	}
	for name := range c.Constraints.Joints {
		if !seen[name] {
			err = multierr.Append(err, errors.Errorf("constraints reference unknown joint %q", name))
		}
	}
	return err
}

// withDefaults returns a copy of the config with unset rates filled in.
func (c Config) withDefaults() Config {
	if c.Frequency == 0 {
		c.Frequency = defaultFrequency
	}
	if c.ActionMonitorRate == 0 {
		c.ActionMonitorRate = defaultActionMonitorRate
	}
	return c
}

// Period returns the control tick duration implied by the configured
// frequency.
func (c Config) Period() time.Duration {
	return time.Duration(float64(time.Second) / c.Frequency)
}

// defaultTolerances expands the configured constraints into per-joint
// segment tolerances in controller joint order.
func (c Config) defaultTolerances() []trajectory.SegmentTolerances {
	tols := make([]trajectory.SegmentTolerances, len(c.Joints))
	for i, name := range c.Joints {
		jc := c.Constraints.Joints[name]
		tols[i] = trajectory.SegmentTolerances{
			State:     trajectory.StateTolerance{Position: jc.Trajectory},
			GoalState: trajectory.StateTolerance{Position: jc.Goal, Velocity: c.Constraints.StoppedVelocityTolerance},
			GoalTime:  c.Constraints.GoalTime,
		}
	}
	return tols
}

// ParseConfig decodes and validates a YAML controller configuration.
func ParseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "cannot parse controller config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
