// Package geometry converts canvas coordinates into compass bearings.
//
// The canvas is normalized to [0, 1] on both axes with Y growing downwards,
// so north is negative Y and east is positive X.
package geometry

import "math"

// Point is a canvas-relative position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Azimuth returns the bearing in degrees [0, 360) from source to target.
// Coincident points have a bearing of 0.
func Azimuth(source, target Point) float64 {
	dx := finiteOr(target.X, 0) - finiteOr(source.X, 0)
	dy := finiteOr(target.Y, 0) - finiteOr(source.Y, 0)
	if dx == 0 && dy == 0 {
		return 0
	}

	return NormalizeDegrees(RadiansToDegrees(math.Atan2(dx, -dy)))
}

// NormalizeDegrees wraps an angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(finiteOr(deg, 0), 360)
	if deg < 0 {
		deg += 360
	}
	// -1e-15 + 360 rounds to 360
	if deg >= 360 {
		deg = 0
	}

	return deg
}

// NormalizeOffsetDegrees wraps an angle into (-180, 180].
func NormalizeOffsetDegrees(deg float64) float64 {
	deg = NormalizeDegrees(deg)
	if deg > 180 {
		deg -= 360
	}

	return deg
}

// AngularDistance is the absolute smallest difference between two angles, in [0, 180].
func AngularDistance(a, b float64) float64 {
	return math.Abs(NormalizeOffsetDegrees(a - b))
}

func RadiansToDegrees(rad float64) float64 {
	return finiteOr(rad, 0) * (180 / math.Pi)
}

func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
