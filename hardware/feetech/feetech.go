// Package feetech exposes the joints of a Feetech STS serial servo bus to the
// controller. A background poller owns the serial line: it reads every servo
// position in one sync read, derives filtered velocities, and flushes the
// latest staged commands in one sync write. The controller's real-time tick
// only ever touches atomics.
package feetech

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	sts "github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
)

const (
	defaultBaudRate = 1_000_000
	defaultPollRate = 100.0

	// Smoothing factor for the finite-difference velocity estimate. Raw
	// differences of quantized encoder counts are far too noisy to feed a
	// derivative term directly.
	velocityFilterAlpha = 0.25
)

// JointConfig maps one servo on the bus to a named controller joint.
type JointConfig struct {
	Name string `yaml:"name"`
	ID   int    `yaml:"id"`
	// Offset is the raw encoder count at the joint's zero position.
	Offset int `yaml:"offset"`
	// CountsPerRev is the encoder resolution. Zero selects the STS default
	// of 4096 counts per revolution.
	CountsPerRev int  `yaml:"counts_per_rev"`
	Inverted     bool `yaml:"inverted"`
}

// Radians converts a raw encoder count to the joint position in radians.
func (jc JointConfig) Radians(raw int) float64 {
	rad := float64(raw-jc.Offset) * 2 * math.Pi / float64(jc.countsPerRev())
	if jc.Inverted {
		return -rad
	}
	return rad
}

// Counts converts a joint position in radians to the nearest encoder count.
func (jc JointConfig) Counts(rad float64) int {
	if jc.Inverted {
		rad = -rad
	}
	return int(math.Round(rad*float64(jc.countsPerRev())/(2*math.Pi))) + jc.Offset
}

func (jc JointConfig) countsPerRev() int {
	if jc.CountsPerRev == 0 {
		return 4096
	}
	return jc.CountsPerRev
}

// Config describes a servo bus and the joints on it.
type Config struct {
	Port     string        `yaml:"port"`
	BaudRate int           `yaml:"baud_rate"`
	PollRate float64       `yaml:"poll_rate"`
	Joints   []JointConfig `yaml:"joints"`
}

// Validate checks the bus description, reporting every problem found.
func (cfg Config) Validate() error {
	var err error
	if cfg.Port == "" {
		err = multierr.Append(err, errors.New("a serial port is required"))
	}
	if cfg.BaudRate < 0 {
		err = multierr.Append(err, errors.New("baud rate must be non-negative"))
	}
	if cfg.PollRate < 0 {
		err = multierr.Append(err, errors.New("poll rate must be non-negative"))
	}
	if len(cfg.Joints) == 0 {
		err = multierr.Append(err, errors.New("at least one joint is required"))
	}
	names := map[string]struct{}{}
	ids := map[int]struct{}{}
	for i, jc := range cfg.Joints {
		if jc.Name == "" {
			err = multierr.Append(err, errors.Errorf("joint %d has no name", i))
		}
		if _, ok := names[jc.Name]; ok {
			err = multierr.Append(err, errors.Errorf("duplicate joint name %q", jc.Name))
		}
		names[jc.Name] = struct{}{}
		if jc.ID < 1 || jc.ID > 253 {
			err = multierr.Append(err, errors.Errorf("joint %q has servo ID %d outside [1, 253]", jc.Name, jc.ID))
		}
		if _, ok := ids[jc.ID]; ok {
			err = multierr.Append(err, errors.Errorf("duplicate servo ID %d", jc.ID))
		}
		ids[jc.ID] = struct{}{}
		if jc.CountsPerRev < 0 {
			err = multierr.Append(err, errors.Errorf("joint %q has a negative encoder resolution", jc.Name))
		}
	}
	return err
}

func (cfg Config) pollPeriod() time.Duration {
	rate := cfg.PollRate
	if rate == 0 {
		rate = defaultPollRate
	}
	return time.Duration(float64(time.Second) / rate)
}

// Joint is one servo viewed as a controller joint. Reads and command staging
// are wait-free; the bus poller does all serial traffic.
type Joint struct {
	cfg      JointConfig
	position atomic.Float64
	velocity atomic.Float64
	target   atomic.Float64
	staged   atomic.Bool
}

func newJoint(cfg JointConfig) *Joint {
	return &Joint{cfg: cfg}
}

// Name returns the configured joint name.
func (j *Joint) Name() string { return j.cfg.Name }

// Position returns the last polled position in radians.
func (j *Joint) Position() float64 { return j.position.Load() }

// Velocity returns the filtered velocity estimate in radians per second.
func (j *Joint) Velocity() float64 { return j.velocity.Load() }

// SetCommand stages a position target in radians. Targets overwrite each
// other between bus flushes; only the latest one reaches the hardware.
func (j *Joint) SetCommand(v float64) {
	j.target.Store(v)
	j.staged.Store(true)
}

// takeTarget returns the staged target, if any, and clears the staging flag.
func (j *Joint) takeTarget() (float64, bool) {
	if !j.staged.Swap(false) {
		return 0, false
	}
	return j.target.Load(), true
}

func (j *Joint) observe(rad float64, dt float64) {
	if dt > 0 {
		raw := (rad - j.position.Load()) / dt
		filtered := velocityFilterAlpha*raw + (1-velocityFilterAlpha)*j.velocity.Load()
		j.velocity.Store(filtered)
	}
	j.position.Store(rad)
}

// Arm owns one servo bus and its polling worker.
type Arm struct {
	cfg    Config
	logger golog.Logger
	clk    clock.Clock

	bus    *sts.Bus
	group  *sts.ServoGroup
	joints []*Joint
	byID   map[int]*Joint

	lastPoll                time.Time
	cancelCtx               context.Context
	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
}

// Open connects to the bus, primes every joint with an initial position read,
// and starts the polling worker.
func Open(cfg Config, clk clock.Clock, logger golog.Logger) (*Arm, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	baud := cfg.BaudRate
	if baud == 0 {
		baud = defaultBaudRate
	}
	bus, err := sts.NewBus(sts.BusConfig{
		Port:     cfg.Port,
		BaudRate: baud,
		Protocol: sts.ProtocolSTS,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open servo bus on %q", cfg.Port)
	}

	ids := make([]int, 0, len(cfg.Joints))
	joints := make([]*Joint, 0, len(cfg.Joints))
	byID := make(map[int]*Joint, len(cfg.Joints))
	for _, jc := range cfg.Joints {
		ids = append(ids, jc.ID)
		j := newJoint(jc)
		joints = append(joints, j)
		byID[jc.ID] = j
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	a := &Arm{
		cfg:       cfg,
		logger:    logger,
		clk:       clk,
		bus:       bus,
		group:     sts.NewServoGroupByIDs(bus, ids...),
		joints:    joints,
		byID:      byID,
		cancelCtx: cancelCtx,
		cancel:    cancel,
	}

	if err := a.poll(cancelCtx); err != nil {
		cancel()
		return nil, multierr.Combine(errors.Wrap(err, "initial position read failed"), bus.Close())
	}

	a.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		a.pollLoop(cancelCtx)
	}, a.activeBackgroundWorkers.Done)
	return a, nil
}

// Joints returns the bus joints in configuration order.
func (a *Arm) Joints() []*Joint { return a.joints }

// JointNames returns the configured joint names in configuration order.
func (a *Arm) JointNames() []string {
	names := make([]string, len(a.joints))
	for i, j := range a.joints {
		names[i] = j.Name()
	}
	return names
}

// Enable switches torque on for every servo.
func (a *Arm) Enable(ctx context.Context) error {
	return a.group.EnableAll(ctx)
}

// Disable switches torque off for every servo.
func (a *Arm) Disable(ctx context.Context) error {
	return a.group.DisableAll(ctx)
}

// Close stops the polling worker and closes the bus.
func (a *Arm) Close() error {
	a.cancel()
	a.activeBackgroundWorkers.Wait()
	return a.bus.Close()
}

func (a *Arm) pollLoop(ctx context.Context) {
	ticker := a.clk.Ticker(a.cfg.pollPeriod())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := a.poll(ctx); err != nil {
			a.logger.Errorw("servo bus poll failed", "error", err)
			continue
		}
		if err := a.flushCommands(ctx); err != nil {
			a.logger.Errorw("servo command flush failed", "error", err)
		}
	}
}

// poll reads every servo position in one sync read and updates the joints'
// position and velocity estimates.
func (a *Arm) poll(ctx context.Context) error {
	raw, err := a.group.Positions(ctx)
	if err != nil {
		return err
	}
	now := a.clk.Now()
	dt := 0.0
	if !a.lastPoll.IsZero() {
		dt = now.Sub(a.lastPoll).Seconds()
	}
	a.lastPoll = now

	for id, counts := range raw {
		j, ok := a.byID[id]
		if !ok {
			continue
		}
		j.observe(j.cfg.Radians(counts), dt)
	}
	return nil
}

// flushCommands writes the latest staged target of every joint in one sync
// write. Joints with nothing staged since the previous flush are skipped.
func (a *Arm) flushCommands(ctx context.Context) error {
	targets := make(sts.PositionMap, len(a.joints))
	for _, j := range a.joints {
		if rad, ok := j.takeTarget(); ok {
			targets[j.cfg.ID] = j.cfg.Counts(rad)
		}
	}
	if len(targets) == 0 {
		return nil
	}
	return a.group.SetPositions(ctx, targets)
}
