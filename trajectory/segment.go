package trajectory

import (
	"go.viam.com/trajctl/goal"
)

// Segment is one time-bounded piece of a single joint's trajectory. It owns
// a polynomial motion primitive, the tolerances to supervise execution with,
// and a back-reference to the goal that created it (nil for hold segments).
type Segment struct {
	start, end float64 // seconds on the controller uptime axis

	// Polynomial coefficients over time-since-start, constant term first.
	// Linear, cubic and quintic primitives leave the higher terms zero.
	coeffs [6]float64

	gh  *goal.RTHandle
	tol SegmentTolerances
}

// NewSegment fits a polynomial between two single-joint states over
// [startTime, endTime). The primitive order follows the boundary data: with
// positions only it is linear, with velocities cubic, and with accelerations
// quintic, matching how waypoints are specified.
func NewSegment(startTime, endTime float64, from, to Point, order SplineOrder, gh *goal.RTHandle, tol SegmentTolerances) Segment {
	s := Segment{start: startTime, end: endTime, gh: gh, tol: tol}
	duration := endTime - startTime
	switch {
	case duration <= 0:
		s.coeffs[0] = to.Position
	case order >= SplineQuintic:
		s.coeffs = quinticCoefficients(from, to, duration)
	case order >= SplineCubic:
		s.coeffs = cubicCoefficients(from, to, duration)
	default:
		s.coeffs[0] = from.Position
		s.coeffs[1] = (to.Position - from.Position) / duration
	}
	return s
}

// NewHoldSegment returns a zero-duration segment that holds position forever
// when sampled at or past startTime. Hold segments carry no goal and are
// never supervised.
func NewHoldSegment(startTime, position float64) Segment {
	var s Segment
	s.start = startTime
	s.end = startTime
	s.coeffs[0] = position
	return s
}

// SplineOrder selects the polynomial degree of a segment's primitive.
type SplineOrder int

const (
	SplineLinear SplineOrder = iota
	SplineCubic
	SplineQuintic
)

// StartTime returns the start of the segment's interval in seconds.
func (s *Segment) StartTime() float64 { return s.start }

// EndTime returns the end of the segment's interval in seconds.
func (s *Segment) EndTime() float64 { return s.end }

// Goal returns the goal that created the segment, or nil.
func (s *Segment) Goal() *goal.RTHandle { return s.gh }

// Tolerances returns the segment's execution tolerances.
func (s *Segment) Tolerances() SegmentTolerances { return s.tol }

// Sample evaluates the segment's primitive at uptime t into out. Outside
// [start, end] the sample time is clamped to the interval and velocity and
// acceleration are zeroed, so a joint holds its boundary position rather
// than extrapolating the polynomial.
func (s *Segment) Sample(t float64, out *Point) {
	switch {
	case t < s.start:
		s.eval(0, out)
		out.Velocity = 0
		out.Acceleration = 0
	case t > s.end:
		s.eval(s.end-s.start, out)
		out.Velocity = 0
		out.Acceleration = 0
	default:
		s.eval(t-s.start, out)
	}
}

func (s *Segment) eval(dt float64, out *Point) {
	c := &s.coeffs
	out.Position = ((((c[5]*dt+c[4])*dt+c[3])*dt+c[2])*dt+c[1])*dt + c[0]
	out.Velocity = (((5*c[5]*dt+4*c[4])*dt+3*c[3])*dt+2*c[2])*dt + c[1]
	out.Acceleration = ((20*c[5]*dt+12*c[4])*dt+6*c[3])*dt + 2*c[2]
}

func cubicCoefficients(from, to Point, duration float64) [6]float64 {
	var c [6]float64
	t := duration
	c[0] = from.Position
	c[1] = from.Velocity
	c[2] = (-3*(from.Position-to.Position) - (2*from.Velocity+to.Velocity)*t) / (t * t)
	c[3] = (2*(from.Position-to.Position) + (from.Velocity+to.Velocity)*t) / (t * t * t)
	return c
}

func quinticCoefficients(from, to Point, duration float64) [6]float64 {
	var c [6]float64
	t := duration
	t2 := t * t
	h := to.Position - from.Position
	c[0] = from.Position
	c[1] = from.Velocity
	c[2] = from.Acceleration / 2
	c[3] = (20*h - (8*to.Velocity+12*from.Velocity)*t - (3*from.Acceleration-to.Acceleration)*t2) / (2 * t2 * t)
	c[4] = (-30*h + (14*to.Velocity+16*from.Velocity)*t + (3*from.Acceleration-2*to.Acceleration)*t2) / (2 * t2 * t2)
	c[5] = (12*h - 6*(to.Velocity+from.Velocity)*t + (to.Acceleration-from.Acceleration)*t2) / (2 * t2 * t2 * t)
	return c
}
