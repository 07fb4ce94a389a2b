package controller

import (
	"time"

	"go.viam.com/trajctl/goal"
	"go.viam.com/trajctl/rtsync"
	"go.viam.com/trajctl/trajectory"
	"go.viam.com/trajctl/utils"
)

// Update executes one control tick. It is the real-time entry point: no
// blocking, no allocation, no mutexes. The caller supplies the tick's wall
// time and the period since the previous tick; Update accumulates uptime
// itself. Ticks on a stopped controller are ignored.
func (c *Controller) Update(now time.Time, period time.Duration) {
	if !c.running.Load() {
		return
	}
	c.realtimeBusy.Store(true)
	defer c.realtimeBusy.Store(false)

	if c.sensors != nil {
		c.forcesLogger.Debugf("forces: %v", c.sensors.Forces())
	}

	// The trajectory must be fetched before uptime advances. The acceptance
	// path installs trajectories that may start exactly at the next control
	// cycle; advancing uptime first could leave this cycle sampling a
	// trajectory whose first segment is already in its future.
	trajPtr := c.currTrajectory.Get()
	if trajPtr == nil {
		c.logger.Error("no trajectory installed; was the controller started?")
		return
	}
	curTraj := *trajPtr

	td := rtsync.TimeData{
		Time:   now,
		Period: period,
		Uptime: c.timeData.Read().Uptime + period,
	}
	c.timeData.Write(td)
	t := td.Uptime.Seconds()

	activeGoal := c.activeGoal.Load()

	var desired, errState trajectory.Point
	for i := range c.joints {
		c.currentState.Position[i] = c.joints[i].Position()
		c.currentState.Velocity[i] = c.joints[i].Velocity()
		// No acceleration read path exists on a joint handle.

		segIdx := curTraj[i].Sample(t, &desired)
		if segIdx < 0 {
			// Should never happen with a correctly installed trajectory;
			// skip command generation entirely rather than extrapolate.
			c.logger.Errorw("no segment defined at current time; dropping this cycle's commands",
				"joint", c.jointNames[i], "uptime", t)
			return
		}
		seg := &curTraj[i][segIdx]

		c.desiredState.Position[i] = desired.Position
		c.desiredState.Velocity[i] = desired.Velocity
		c.desiredState.Acceleration[i] = desired.Acceleration

		errState.Position = utils.ShortestAngularDistance(c.currentState.Position[i], desired.Position)
		errState.Velocity = desired.Velocity - c.currentState.Velocity[i]
		errState.Acceleration = 0

		c.errorState.Position[i] = errState.Position
		c.errorState.Velocity[i] = errState.Velocity
		c.errorState.Acceleration[i] = 0

		// Only segments owned by the currently active goal are supervised;
		// stale back-references from a preempted goal fail the identity
		// check and are ignored.
		segGoal := seg.Goal()
		if segGoal == nil || segGoal != activeGoal {
			continue
		}
		tol := seg.Tolerances()

		if t < seg.EndTime() {
			// Currently executing the segment: supervise path tolerances.
			if trajectory.CheckStateTolerance(errState, tol.State, false, c.logger) {
				continue
			}
			if c.cfg.Verbose {
				c.logger.Errorf("path tolerances failed for joint %q", c.jointNames[i])
				trajectory.CheckStateTolerance(errState, tol.State, true, c.logger)
			}
			if res := segGoal.Result(); res != nil {
				res.Code = goal.PathToleranceViolated
				segGoal.SetAborted()
				c.activeGoal.CompareAndSwap(activeGoal, nil)
				activeGoal = nil
			} else {
				c.logger.Error("active goal has no preallocated result payload")
			}
		} else if segIdx == len(curTraj[i])-1 {
			// Finished the joint's last segment: check the goal tolerances,
			// with a grace window to settle into them.
			if c.cfg.Verbose {
				c.logger.Debugf("joint %q finished its last segment, checking goal tolerances", c.jointNames[i])
			}
			switch {
			case trajectory.CheckStateTolerance(errState, tol.GoalState, false, c.logger):
				segGoal.MarkJointCompleted(i)
			case t < seg.EndTime()+tol.GoalTime:
				// Still inside the grace window; give the joint time to
				// settle.
			default:
				if c.cfg.Verbose {
					c.logger.Errorf("goal tolerances failed for joint %q", c.jointNames[i])
					trajectory.CheckStateTolerance(errState, tol.GoalState, true, c.logger)
				}
				if res := segGoal.Result(); res != nil {
					res.Code = goal.GoalToleranceViolated
					segGoal.SetAborted()
				} else {
					c.logger.Error("active goal has no preallocated result payload")
				}
				c.activeGoal.CompareAndSwap(activeGoal, nil)
				activeGoal = nil
			}
		}
	}

	// All joints reported completion for the active goal: it succeeded.
	if activeGoal != nil && activeGoal.Result() != nil && activeGoal.AllJointsCompleted() {
		activeGoal.Result().Code = goal.Successful
		activeGoal.SetSucceeded()
		c.activeGoal.CompareAndSwap(activeGoal, nil)
		activeGoal = nil
	}

	c.adapter.UpdateCommand(td.Uptime, td.Period, c.desiredState, c.errorState)

	if activeGoal != nil {
		fb := activeGoal.Feedback()
		fb.Stamp = td.Time
		copy(fb.Desired.Positions, c.desiredState.Position)
		copy(fb.Desired.Velocities, c.desiredState.Velocity)
		copy(fb.Desired.Accelerations, c.desiredState.Acceleration)
		copy(fb.Actual.Positions, c.currentState.Position)
		copy(fb.Actual.Velocities, c.currentState.Velocity)
		copy(fb.Error.Positions, c.errorState.Position)
		copy(fb.Error.Velocities, c.errorState.Velocity)
		activeGoal.SetFeedback()
	}

	c.publishState(td)
}
