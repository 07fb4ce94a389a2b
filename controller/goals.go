package controller

import (
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/trajctl/goal"
	"go.viam.com/trajctl/trajectory"
)

// GoalRequest is one incoming trajectory-following request.
type GoalRequest struct {
	// JointNames lays out the joint order used by Waypoints. The names must
	// all belong to the controller's joint set; the order may differ.
	JointNames []string
	// Waypoints describes the target trajectory in JointNames order.
	Waypoints []trajectory.Waypoint
	// StartTime is the controller uptime at which the trajectory starts.
	// Zero means the next control cycle.
	StartTime time.Duration
	// PathTolerances and GoalTolerances override the configured defaults for
	// the named joints.
	PathTolerances map[string]trajectory.StateTolerance
	GoalTolerances map[string]trajectory.StateTolerance
	// GoalTimeTolerance is the grace period past the end of the trajectory.
	// Negative means the configured default; zero disables the grace window.
	GoalTimeTolerance time.Duration
}

// SubmitGoal validates an incoming goal request and, on success, preempts
// any active goal, installs the new trajectory for the next tick and arms
// the goal's status worker. Acceptance or rejection is reported to the
// responder synchronously; feedback and the terminal result follow
// asynchronously. Non-real-time path.
func (c *Controller) SubmitGoal(req GoalRequest, responder goal.Responder) (*goal.RTHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger.Debug("received new trajectory goal")

	if !c.running.Load() {
		return nil, c.reject(responder, goal.InvalidGoal, "cannot accept trajectory goals: controller is not running")
	}
	if !c.cfg.AllowPartialJointsGoal && len(req.JointNames) != len(c.jointNames) {
		return nil, c.reject(responder, goal.InvalidJoints, "joints on the incoming goal do not match the controller joints")
	}
	mapping := jointMapping(req.JointNames, c.jointNames)
	if mapping == nil {
		return nil, c.reject(responder, goal.InvalidJoints, "joints on the incoming goal do not match the controller joints")
	}

	gh := goal.NewRTHandle(c.jointNames, responder)

	start := req.StartTime
	if start == 0 {
		td := c.timeData.Read()
		start = td.Uptime + td.Period
	}
	startState := c.desiredPoints()
	traj, err := trajectory.FromWaypoints(
		startState,
		start.Seconds(),
		req.Waypoints,
		mapping,
		c.tolerancesFor(req),
		gh,
	)
	if err != nil {
		return nil, c.reject(responder, goal.InvalidGoal, err.Error())
	}

	// Joints the goal does not command have nothing to achieve; their
	// completion flags are set before the goal becomes visible to the loop.
	covered := make([]bool, len(c.jointNames))
	for _, ci := range mapping {
		covered[ci] = true
	}
	for ci, ok := range covered {
		if !ok {
			gh.MarkJointCompleted(ci)
		}
	}

	c.preemptActiveGoal()
	responder.Accepted()
	c.currTrajectory.Set(&traj)
	c.activeGoal.Store(gh)

	c.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		goal.Monitor(c.cancelCtx, c.clk, c.actionMonitorPeriod, gh)
	}, c.activeBackgroundWorkers.Done)

	c.logger.Infof("accepted trajectory goal %s starting at uptime %v", gh.ID(), start)
	return gh, nil
}

// ActiveGoal returns the currently tracked goal, or nil.
func (c *Controller) ActiveGoal() *goal.RTHandle {
	return c.activeGoal.Load()
}

func (c *Controller) reject(responder goal.Responder, code goal.ErrorCode, msg string) error {
	c.logger.Error(msg)
	responder.Rejected(&goal.Result{Code: code, Message: msg})
	return errors.New(msg)
}

// preemptActiveGoal transitions the active goal, if any, out of ACTIVE and
// clears goal tracking. Callers hold c.mu.
func (c *Controller) preemptActiveGoal() {
	if prev := c.activeGoal.Swap(nil); prev != nil && prev.SetPreempted() {
		c.logger.Infof("preempted trajectory goal %s", prev.ID())
	}
}

// jointMapping maps each requested joint name onto its controller joint
// index: requested[i] == controller[mapping[i]]. The order may differ; the
// names may not. Returns nil when any requested name is unknown or repeated.
func jointMapping(requested, controller []string) []int {
	if len(requested) == 0 || len(requested) > len(controller) {
		return nil
	}
	mapping := make([]int, len(requested))
	used := make([]bool, len(controller))
	for ri, name := range requested {
		found := false
		for ci, cname := range controller {
			if name == cname && !used[ci] {
				mapping[ri] = ci
				used[ci] = true
				found = true
				break
			}
		}
		if !found {
			return nil
		}
	}
	return mapping
}

// tolerancesFor expands the configured default tolerances and applies the
// request's per-joint overrides and goal time tolerance.
func (c *Controller) tolerancesFor(req GoalRequest) []trajectory.SegmentTolerances {
	tols := c.cfg.defaultTolerances()
	if req.GoalTimeTolerance >= 0 {
		for i := range tols {
			tols[i].GoalTime = req.GoalTimeTolerance.Seconds()
		}
	}
	for i, name := range c.jointNames {
		if tol, ok := req.PathTolerances[name]; ok {
			tols[i].State = tol
		}
		if tol, ok := req.GoalTolerances[name]; ok {
			tols[i].GoalState = tol
		}
	}
	return tols
}

// desiredPoints snapshots the per-joint desired state the loop most recently
// published, used as the blend-from state for a new trajectory. Before the
// first tick it reflects the measured positions seeded at Start.
func (c *Controller) desiredPoints() []trajectory.Point {
	pts := make([]trajectory.Point, len(c.jointNames))
	c.stateLock.Read(func() {
		for i := range pts {
			pts[i] = trajectory.Point{
				Position:     c.stateSnapshot.desired.pos[i].Load(),
				Velocity:     c.stateSnapshot.desired.vel[i].Load(),
				Acceleration: c.stateSnapshot.desired.acc[i].Load(),
			}
		}
	})
	return pts
}
