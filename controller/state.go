package controller

import (
	"time"

	"go.uber.org/atomic"

	"go.viam.com/trajctl/rtsync"
	"go.viam.com/trajctl/trajectory"
)

// Snapshot is one tick's observable controller state: the desired, actual
// and error state of every joint plus the tick timing that produced them.
type Snapshot struct {
	Time       time.Time        `json:"time"`
	Uptime     time.Duration    `json:"uptime"`
	JointNames []string         `json:"joint_names"`
	Desired    trajectory.State `json:"desired"`
	Actual     trajectory.State `json:"actual"`
	Error      trajectory.State `json:"error"`
}

func newSnapshot(jointNames []string) Snapshot {
	n := len(jointNames)
	return Snapshot{
		JointNames: append([]string(nil), jointNames...),
		Desired:    *trajectory.NewState(n),
		Actual:     *trajectory.NewState(n),
		Error:      *trajectory.NewState(n),
	}
}

// stateCells is the atomic backing store for one State inside the snapshot
// exchange.
type stateCells struct {
	pos, vel, acc rtsync.Float64s
}

func newStateCells(n int) stateCells {
	return stateCells{
		pos: rtsync.NewFloat64s(n),
		vel: rtsync.NewFloat64s(n),
		acc: rtsync.NewFloat64s(n),
	}
}

func (sc *stateCells) store(src *trajectory.State) {
	sc.pos.StoreSlice(src.Position)
	sc.vel.StoreSlice(src.Velocity)
	sc.acc.StoreSlice(src.Acceleration)
}

func (sc *stateCells) load(dst *trajectory.State) {
	sc.pos.LoadSlice(dst.Position)
	sc.vel.LoadSlice(dst.Velocity)
	sc.acc.LoadSlice(dst.Acceleration)
}

func (sc *stateCells) zero() {
	sc.pos.Zero()
	sc.vel.Zero()
	sc.acc.Zero()
}

// snapshotCells is the snapshot's atomic backing store: the control loop
// stores into the cells under the seqlock, readers copy them out under the
// same lock.
type snapshotCells struct {
	sec, nsec, uptime         atomic.Int64
	desired, actual, errState stateCells
}

func newSnapshotCells(n int) snapshotCells {
	return snapshotCells{
		desired:  newStateCells(n),
		actual:   newStateCells(n),
		errState: newStateCells(n),
	}
}

// publishState rewrites the snapshot cells from the tick's state. Real-time
// path: the seqlock write is wait-free and nothing allocates.
func (c *Controller) publishState(td rtsync.TimeData) {
	c.stateLock.Write(func() {
		c.stateSnapshot.sec.Store(td.Time.Unix())
		c.stateSnapshot.nsec.Store(int64(td.Time.Nanosecond()))
		c.stateSnapshot.uptime.Store(int64(td.Uptime))
		c.stateSnapshot.desired.store(c.desiredState)
		c.stateSnapshot.actual.store(c.currentState)
		c.stateSnapshot.errState.store(c.errorState)
	})
	c.statePrimed.Store(true)
}

// seedStateSnapshot primes the snapshot with measured positions before the
// loop has produced a tick, so goal acceptance always has a valid blend-from
// state. Called while the loop is not running.
func (c *Controller) seedStateSnapshot(positions []float64) {
	c.stateLock.Write(func() {
		c.stateSnapshot.desired.zero()
		c.stateSnapshot.actual.zero()
		c.stateSnapshot.errState.zero()
		c.stateSnapshot.desired.pos.StoreSlice(positions)
		c.stateSnapshot.actual.pos.StoreSlice(positions)
	})
	c.statePrimed.Store(true)
}

// LatestState copies the most recent state snapshot into out, growing its
// slices if needed, and reports whether a snapshot was available yet.
// Non-real-time consumers only.
func (c *Controller) LatestState(out *Snapshot) bool {
	if !c.statePrimed.Load() {
		return false
	}
	n := len(c.jointNames)
	if out.Desired.Len() != n {
		*out = newSnapshot(c.jointNames)
	}
	c.stateLock.Read(func() {
		out.Time = time.Unix(c.stateSnapshot.sec.Load(), c.stateSnapshot.nsec.Load())
		out.Uptime = time.Duration(c.stateSnapshot.uptime.Load())
		c.stateSnapshot.desired.load(&out.Desired)
		c.stateSnapshot.actual.load(&out.Actual)
		c.stateSnapshot.errState.load(&out.Error)
	})
	return true
}
