package trajectory

import (
	"time"

	"github.com/pkg/errors"

	"go.viam.com/trajctl/goal"
)

// Waypoint is one multi-joint trajectory sample, timed relative to the
// trajectory start and laid out in the requesting caller's joint order.
// Velocities and Accelerations are optional; when present they must cover
// every requested joint.
type Waypoint struct {
	TimeFromStart time.Duration
	Positions     []float64
	Velocities    []float64
	Accelerations []float64
}

// FromWaypoints builds a trajectory beginning at startTime seconds of
// controller uptime. start holds the desired state of every controller joint
// at startTime, used to blend from the currently followed trajectory into
// the first waypoint. mapping translates request joint indices to controller
// joint indices; controller joints absent from the mapping receive an
// unsupervised hold segment at their start position. tols is indexed in
// controller joint order and every built segment carries its joint's
// tolerances plus a back-reference to gh.
func FromWaypoints(
	start []Point,
	startTime float64,
	wps []Waypoint,
	mapping []int,
	tols []SegmentTolerances,
	gh *goal.RTHandle,
) (Trajectory, error) {
	if err := validateWaypoints(wps, len(mapping)); err != nil {
		return nil, err
	}
	if len(tols) != len(start) {
		return nil, errors.Errorf("expected %d per-joint tolerances, got %d", len(start), len(tols))
	}
	for _, ci := range mapping {
		if ci < 0 || ci >= len(start) {
			return nil, errors.Errorf("joint mapping index %d out of range", ci)
		}
	}

	traj := make(Trajectory, len(start))
	covered := make([]bool, len(start))

	for ri, ci := range mapping {
		covered[ci] = true
		knotTimes, knots := jointKnots(start[ci], startTime, wps, ri)

		if len(knots) == 1 {
			// An instantaneous target: a zero-duration segment that holds it.
			seg := NewSegment(knotTimes[0], knotTimes[0], knots[0], knots[0], SplineLinear, gh, tols[ci])
			traj[ci] = PerJoint{seg}
			continue
		}

		pj := make(PerJoint, 0, len(knots)-1)
		for k := 0; k+1 < len(knots); k++ {
			order := pairSplineOrder(wps, k, len(knots))
			pj = append(pj, NewSegment(knotTimes[k], knotTimes[k+1], knots[k], knots[k+1], order, gh, tols[ci]))
		}
		traj[ci] = pj
	}

	for ci := range traj {
		if !covered[ci] {
			traj[ci] = PerJoint{NewHoldSegment(startTime, start[ci].Position)}
		}
	}
	return traj, nil
}

func validateWaypoints(wps []Waypoint, jointCount int) error {
	if len(wps) == 0 {
		return errors.New("trajectory must contain at least one waypoint")
	}
	if jointCount == 0 {
		return errors.New("trajectory must name at least one joint")
	}
	prev := time.Duration(-1)
	for i, wp := range wps {
		if wp.TimeFromStart < 0 {
			return errors.Errorf("waypoint %d has a negative time from start", i)
		}
		if wp.TimeFromStart <= prev {
			return errors.Errorf("waypoint times must be strictly increasing (waypoint %d)", i)
		}
		prev = wp.TimeFromStart
		if len(wp.Positions) != jointCount {
			return errors.Errorf("waypoint %d has %d positions, expected %d", i, len(wp.Positions), jointCount)
		}
		if len(wp.Velocities) != 0 && len(wp.Velocities) != jointCount {
			return errors.Errorf("waypoint %d has %d velocities, expected 0 or %d", i, len(wp.Velocities), jointCount)
		}
		if len(wp.Accelerations) != 0 && len(wp.Accelerations) != jointCount {
			return errors.Errorf("waypoint %d has %d accelerations, expected 0 or %d", i, len(wp.Accelerations), jointCount)
		}
	}
	return nil
}

// jointKnots extracts one joint's knot sequence: the blend-from state at
// startTime (skipped when the first waypoint starts immediately) followed by
// the waypoint states on the uptime axis.
func jointKnots(blendFrom Point, startTime float64, wps []Waypoint, ri int) ([]float64, []Point) {
	times := make([]float64, 0, len(wps)+1)
	knots := make([]Point, 0, len(wps)+1)
	if wps[0].TimeFromStart > 0 {
		times = append(times, startTime)
		knots = append(knots, blendFrom)
	}
	for _, wp := range wps {
		times = append(times, startTime+wp.TimeFromStart.Seconds())
		knots = append(knots, waypointPoint(wp, ri))
	}
	return times, knots
}

func waypointPoint(wp Waypoint, ri int) Point {
	p := Point{Position: wp.Positions[ri]}
	if len(wp.Velocities) != 0 {
		p.Velocity = wp.Velocities[ri]
	}
	if len(wp.Accelerations) != 0 {
		p.Acceleration = wp.Accelerations[ri]
	}
	return p
}

// pairSplineOrder picks the primitive for the pair ending at knot k+1. The
// blend-from knot carries a full state, so only the waypoint data limits the
// order: positions alone give a linear fit, velocities a cubic, velocities
// plus accelerations a quintic.
func pairSplineOrder(wps []Waypoint, k, knotCount int) SplineOrder {
	// With a blend-from knot prepended, waypoint j sits at knot j+1.
	offset := knotCount - len(wps)
	fromIdx := k - offset
	toIdx := k + 1 - offset

	order := splineOrderOf(wps[toIdx])
	if fromIdx >= 0 {
		if o := splineOrderOf(wps[fromIdx]); o < order {
			order = o
		}
	}
	return order
}

func splineOrderOf(wp Waypoint) SplineOrder {
	switch {
	case len(wp.Velocities) != 0 && len(wp.Accelerations) != 0:
		return SplineQuintic
	case len(wp.Velocities) != 0:
		return SplineCubic
	default:
		return SplineLinear
	}
}
