// Package utils contains shared math helpers.
package utils

import "math"

func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// NormalizeAngle maps an angle in radians onto (-π, π].
func NormalizeAngle(theta float64) float64 {
	theta = math.Mod(theta, 2*math.Pi)
	if theta > math.Pi {
		theta -= 2 * math.Pi
	} else if theta <= -math.Pi {
		theta += 2 * math.Pi
	}
	return theta
}

// ShortestAngularDistance returns the signed rotation of minimum magnitude
// from one angle to another. The result is always within (-π, π], so the
// error between two revolute joint positions never exceeds half a turn
// regardless of how the raw readings wrap.
func ShortestAngularDistance(from, to float64) float64 {
	return NormalizeAngle(to - from)
}
