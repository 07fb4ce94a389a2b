// Package controller implements the real-time execution core of a
// multi-joint trajectory-following controller: a fixed-period loop that
// samples the active trajectory, supervises execution tolerances, drives a
// command-generation adapter and reports progress through an asynchronous
// goal-tracking protocol.
package controller

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"

	"go.viam.com/trajctl/goal"
	"go.viam.com/trajctl/rtsync"
	"go.viam.com/trajctl/trajectory"
)

// Deps are the collaborators a Controller is constructed around.
type Deps struct {
	// Joints supplies measured state, one handle per configured joint, in
	// configuration order.
	Joints []JointHandle
	// Adapter generates hardware commands from the desired state and error.
	Adapter CommandAdapter
	// Sensors optionally supplies contact-force readings for diagnostic
	// logging. May be nil.
	Sensors ContactSensors
	// Clock drives the control loop and status workers when the controller
	// runs its own loop. Defaults to the wall clock.
	Clock clock.Clock
}

// Controller follows multi-joint trajectories at a fixed period. All shared
// state between the real-time tick and the non-real-time goal path crosses
// through the rtsync exchanges; no mutex is ever held on the tick path.
type Controller struct {
	name   string
	cfg    Config
	logger golog.Logger
	// forcesLogger carries the per-tick contact-force diagnostics so they
	// can be silenced independently of the controller's own logs.
	forcesLogger golog.Logger

	jointNames []string
	joints     []JointHandle
	adapter    CommandAdapter
	sensors    ContactSensors

	clk                 clock.Clock
	period              time.Duration
	actionMonitorPeriod time.Duration

	timeData       rtsync.TimeBuffer
	currTrajectory rtsync.Box[trajectory.Trajectory]
	activeGoal     atomic.Pointer[goal.RTHandle]

	// Preallocated real-time scratch state; the joint set is fixed at
	// construction and identical across all three.
	currentState *trajectory.State
	desiredState *trajectory.State
	errorState   *trajectory.State

	stateLock     rtsync.Seqlock
	stateSnapshot snapshotCells
	statePrimed   atomic.Bool

	running      atomic.Bool
	realtimeBusy atomic.Bool

	// mu serializes the non-real-time goal acceptance path only.
	mu sync.Mutex

	cancelCtx               context.Context
	cancel                  context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
}

// New constructs a controller from a validated configuration and its
// hardware-facing collaborators.
func New(cfg Config, deps Deps, logger golog.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	if len(deps.Joints) != len(cfg.Joints) {
		return nil, errors.Errorf("config names %d joints but %d joint handles were supplied",
			len(cfg.Joints), len(deps.Joints))
	}
	if deps.Adapter == nil {
		return nil, errors.New("a command adapter is required")
	}
	if sized, ok := deps.Adapter.(interface{ Joints() int }); ok && sized.Joints() != len(cfg.Joints) {
		return nil, errors.Errorf("adapter commands %d joints but the controller has %d",
			sized.Joints(), len(cfg.Joints))
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}

	n := len(cfg.Joints)
	cancelCtx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		name:                cfg.Name,
		cfg:                 cfg,
		logger:              logger,
		forcesLogger:        logger.Named("forces"),
		jointNames:          append([]string(nil), cfg.Joints...),
		joints:              deps.Joints,
		adapter:             deps.Adapter,
		sensors:             deps.Sensors,
		clk:                 clk,
		period:              cfg.Period(),
		actionMonitorPeriod: time.Duration(float64(time.Second) / cfg.ActionMonitorRate),
		currentState:        trajectory.NewState(n),
		desiredState:        trajectory.NewState(n),
		errorState:          trajectory.NewState(n),
		stateSnapshot:       newSnapshotCells(n),
		cancelCtx:           cancelCtx,
		cancel:              cancel,
	}
	return c, nil
}

// Name returns the controller's configured name.
func (c *Controller) Name() string { return c.name }

// Period returns the control tick duration.
func (c *Controller) Period() time.Duration { return c.period }

// IsRunning reports whether the controller accepts goals and executes ticks.
func (c *Controller) IsRunning() bool { return c.running.Load() }

// RealtimeBusy reports whether a control tick is executing right now.
// Diagnostics only.
func (c *Controller) RealtimeBusy() bool { return c.realtimeBusy.Load() }

// TimeData returns the most recently published tick timing.
func (c *Controller) TimeData() rtsync.TimeData { return c.timeData.Read() }

// Start marks the controller running and installs a hold trajectory at the
// current measured position so the very first tick has a valid segment for
// every joint. It does not start a loop; ticks come either from Run or from
// an external fixed-rate caller invoking Update.
func (c *Controller) Start() error {
	if !c.running.CompareAndSwap(false, true) {
		return errors.Errorf("controller %q is already running", c.name)
	}
	c.holdCurrentPosition()
	c.logger.Infof("controller %q started with joints %v at %v per tick", c.name, c.jointNames, c.period)
	return nil
}

// Run starts the controller and drives Update from the controller's own
// clock at the configured frequency until Stop is called.
func (c *Controller) Run() error {
	if err := c.Start(); err != nil {
		return err
	}
	ticker := c.clk.Ticker(c.period)
	c.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		defer ticker.Stop()
		last := c.clk.Now()
		for {
			select {
			case <-c.cancelCtx.Done():
				return
			case now := <-ticker.C:
				c.Update(now, now.Sub(last))
				last = now
			}
		}
	}, c.activeBackgroundWorkers.Done)
	return nil
}

// Stop halts the loop and the goal status workers and marks the controller
// stopped. A goal still active is preempted.
func (c *Controller) Stop() {
	if !c.running.CompareAndSwap(true, false) {
		return
	}
	c.mu.Lock()
	c.preemptActiveGoal()
	c.mu.Unlock()
	c.cancel()
	c.activeBackgroundWorkers.Wait()
	c.logger.Infof("controller %q stopped", c.name)
}

// holdCurrentPosition installs a trajectory that keeps every joint at its
// current measured position from the current uptime on. Non-real-time path;
// called before the loop observes the trajectory exchange.
func (c *Controller) holdCurrentPosition() {
	td := c.timeData.Read()
	positions := make([]float64, len(c.joints))
	for i, j := range c.joints {
		positions[i] = j.Position()
	}
	traj := trajectory.Hold(td.Uptime.Seconds(), positions)
	c.currTrajectory.Set(&traj)
	c.seedStateSnapshot(positions)
}
