package trajectory

import (
	"testing"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/test"

	"go.viam.com/trajctl/goal"
)

type nopResponder struct{}

func (nopResponder) Accepted()                         {}
func (nopResponder) Rejected(*goal.Result)             {}
func (nopResponder) PublishFeedback(*goal.Feedback)    {}
func (nopResponder) PublishResult(goal.State, *goal.Result) {}

func twoSegmentList(t *testing.T) PerJoint {
	t.Helper()
	return PerJoint{
		NewSegment(1, 2, Point{Position: 0}, Point{Position: 1}, SplineLinear, nil, SegmentTolerances{}),
		NewSegment(2, 4, Point{Position: 1}, Point{Position: 3}, SplineLinear, nil, SegmentTolerances{}),
	}
}

func TestPerJointSampleSelection(t *testing.T) {
	pj := twoSegmentList(t)
	var p Point

	// Before the first segment starts there is nothing valid to follow.
	test.That(t, pj.Sample(0.5, &p), test.ShouldEqual, -1)
	test.That(t, PerJoint{}.Sample(0.5, &p), test.ShouldEqual, -1)

	test.That(t, pj.Sample(1.5, &p), test.ShouldEqual, 0)
	test.That(t, p.Position, test.ShouldAlmostEqual, 0.5)

	test.That(t, pj.Sample(3, &p), test.ShouldEqual, 1)
	test.That(t, p.Position, test.ShouldAlmostEqual, 2)

	// Past the last segment's end, the last segment answers with its final
	// position held.
	test.That(t, pj.Sample(10, &p), test.ShouldEqual, 1)
	test.That(t, p.Position, test.ShouldAlmostEqual, 3)
	test.That(t, p.Velocity, test.ShouldAlmostEqual, 0)
}

func TestHoldTrajectory(t *testing.T) {
	traj := Hold(2, []float64{0.1, -0.2})
	test.That(t, traj, test.ShouldHaveLength, 2)

	var p Point
	test.That(t, traj[1].Sample(50, &p), test.ShouldEqual, 0)
	test.That(t, p.Position, test.ShouldAlmostEqual, -0.2)
}

func TestCheckStateTolerance(t *testing.T) {
	logger := golog.NewTestLogger(t)
	tol := StateTolerance{Position: 0.1, Velocity: 0.5}

	test.That(t, CheckStateTolerance(Point{Position: 0.05, Velocity: -0.4}, tol, false, logger), test.ShouldBeTrue)
	test.That(t, CheckStateTolerance(Point{Position: -0.2}, tol, false, logger), test.ShouldBeFalse)
	test.That(t, CheckStateTolerance(Point{Velocity: 0.6}, tol, false, logger), test.ShouldBeFalse)

	// verbose reports detail but never changes the outcome.
	test.That(t, CheckStateTolerance(Point{Position: -0.2, Velocity: 0.6}, tol, true, logger), test.ShouldBeFalse)
	test.That(t, CheckStateTolerance(Point{Position: 0.05}, tol, true, logger), test.ShouldBeTrue)

	// Zero or negative thresholds disable the corresponding check.
	test.That(t, CheckStateTolerance(Point{Position: 100, Velocity: 100}, StateTolerance{}, false, logger), test.ShouldBeTrue)
	test.That(t, CheckStateTolerance(Point{Position: 100}, StateTolerance{Position: -1}, false, logger), test.ShouldBeTrue)

	// The acceleration threshold is carried but never evaluated.
	test.That(t, CheckStateTolerance(Point{Acceleration: 100}, StateTolerance{Acceleration: 0.01}, false, logger), test.ShouldBeTrue)
}

func TestFromWaypointsBlendsAndMaps(t *testing.T) {
	gh := goal.NewRTHandle([]string{"a", "b"}, nopResponder{})
	start := []Point{{Position: 0}, {Position: 10}}
	tols := []SegmentTolerances{{GoalTime: 1}, {GoalTime: 1}}

	// The request names the controller joints in reverse order: request
	// index 0 maps to controller joint 1 and vice versa.
	wps := []Waypoint{
		{TimeFromStart: time.Second, Positions: []float64{11, 1}},
		{TimeFromStart: 2 * time.Second, Positions: []float64{12, 2}},
	}
	traj, err := FromWaypoints(start, 5, wps, []int{1, 0}, tols, gh)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, traj, test.ShouldHaveLength, 2)

	// Each joint gets a blend segment from its start state plus one per
	// waypoint pair.
	test.That(t, traj[0], test.ShouldHaveLength, 2)
	test.That(t, traj[1], test.ShouldHaveLength, 2)

	var p Point
	test.That(t, traj[0].Sample(5, &p), test.ShouldEqual, 0)
	test.That(t, p.Position, test.ShouldAlmostEqual, 0)
	traj[0].Sample(6, &p)
	test.That(t, p.Position, test.ShouldAlmostEqual, 1)
	traj[0].Sample(7, &p)
	test.That(t, p.Position, test.ShouldAlmostEqual, 2)

	traj[1].Sample(7, &p)
	test.That(t, p.Position, test.ShouldAlmostEqual, 12)

	// Segments belong to the goal and carry their joint's tolerances.
	test.That(t, traj[0][0].Goal(), test.ShouldEqual, gh)
	test.That(t, traj[0][0].Tolerances().GoalTime, test.ShouldEqual, 1.0)
}

func TestFromWaypointsImmediateStartSkipsBlend(t *testing.T) {
	gh := goal.NewRTHandle([]string{"a"}, nopResponder{})
	wps := []Waypoint{
		{TimeFromStart: 0, Positions: []float64{1}},
		{TimeFromStart: time.Second, Positions: []float64{2}},
	}
	traj, err := FromWaypoints([]Point{{Position: 0}}, 3, wps, []int{0}, []SegmentTolerances{{}}, gh)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, traj[0], test.ShouldHaveLength, 1)
	test.That(t, traj[0][0].StartTime(), test.ShouldAlmostEqual, 3)
	test.That(t, traj[0][0].EndTime(), test.ShouldAlmostEqual, 4)
}

func TestFromWaypointsHoldsUnrequestedJoints(t *testing.T) {
	gh := goal.NewRTHandle([]string{"a", "b"}, nopResponder{})
	start := []Point{{Position: 0.5}, {Position: -0.5}}
	wps := []Waypoint{{TimeFromStart: time.Second, Positions: []float64{1}}}

	// Only controller joint 1 is requested.
	traj, err := FromWaypoints(start, 0, wps, []int{1}, []SegmentTolerances{{}, {}}, gh)
	test.That(t, err, test.ShouldBeNil)

	var p Point
	traj[0].Sample(10, &p)
	test.That(t, p.Position, test.ShouldAlmostEqual, 0.5)
	test.That(t, traj[0][0].Goal(), test.ShouldBeNil)
	test.That(t, traj[1][len(traj[1])-1].Goal(), test.ShouldEqual, gh)
}

func TestFromWaypointsValidation(t *testing.T) {
	start := []Point{{}}
	tols := []SegmentTolerances{{}}

	_, err := FromWaypoints(start, 0, nil, []int{0}, tols, nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = FromWaypoints(start, 0, []Waypoint{{Positions: []float64{1, 2}}}, []int{0}, tols, nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = FromWaypoints(start, 0, []Waypoint{
		{TimeFromStart: time.Second, Positions: []float64{1}},
		{TimeFromStart: time.Second, Positions: []float64{2}},
	}, []int{0}, tols, nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = FromWaypoints(start, 0, []Waypoint{
		{TimeFromStart: time.Second, Positions: []float64{1}, Velocities: []float64{1, 2}},
	}, []int{0}, tols, nil)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = FromWaypoints(start, 0, []Waypoint{
		{TimeFromStart: time.Second, Positions: []float64{1}},
	}, []int{3}, tols, nil)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFromWaypointsQuinticUsesWaypointDerivatives(t *testing.T) {
	wps := []Waypoint{
		{
			TimeFromStart: 2 * time.Second,
			Positions:     []float64{1},
			Velocities:    []float64{0.5},
			Accelerations: []float64{0},
		},
	}
	traj, err := FromWaypoints([]Point{{Position: 0}}, 0, wps, []int{0}, []SegmentTolerances{{}}, nil)
	test.That(t, err, test.ShouldBeNil)

	var p Point
	traj[0].Sample(2, &p)
	test.That(t, p.Position, test.ShouldAlmostEqual, 1)
	test.That(t, p.Velocity, test.ShouldAlmostEqual, 0.5)
	test.That(t, p.Acceleration, test.ShouldAlmostEqual, 0)
}
