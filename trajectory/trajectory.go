package trajectory

import "sort"

// PerJoint is one joint's time-ordered, contiguous segment list.
type PerJoint []Segment

// Sample locates the segment covering uptime t and evaluates it into out,
// returning the segment's index. It returns -1 when the list is empty or t
// precedes the first segment's start; that only happens when a trajectory
// was installed to start in the future relative to t, which the control loop
// treats as a severe anomaly. At or past the end of the last segment, the
// last segment is returned with its final position held and velocity and
// acceleration zeroed, which is what goal-time supervision samples.
//
// Sampling is purely a function of (pj, t); nothing is retained between
// calls beyond the caller-supplied output.
func (pj PerJoint) Sample(t float64, out *Point) int {
	if len(pj) == 0 || t < pj[0].start {
		return -1
	}
	// Last segment whose start is at or before t.
	i := sort.Search(len(pj), func(k int) bool { return pj[k].start > t }) - 1
	pj[i].Sample(t, out)
	return i
}

// Trajectory is the full set of per-joint segment lists, indexed in
// controller joint order. One trajectory is active per controller at a time
// and is swapped whole through the exchange, never mutated in place.
type Trajectory []PerJoint

// Hold returns a trajectory that keeps every joint at the given position
// from startTime on.
func Hold(startTime float64, positions []float64) Trajectory {
	traj := make(Trajectory, len(positions))
	for i, p := range positions {
		traj[i] = PerJoint{NewHoldSegment(startTime, p)}
	}
	return traj
}
