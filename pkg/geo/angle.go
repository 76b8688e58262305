package geo

import (
	"math"
)

// NormalizeBearing. reduce a bearing (degrees) into [-180, 180].
func NormalizeBearing(bearing float64) float64 {
	r := math.Mod(bearing, 360)
	if r > 180 {
		r -= 360
	} else if r < -180 {
		r += 360
	}
	return r
}

// BearingDiff. signed turn angle from bearing a to bearing b, or its magnitude when abs is set.
func BearingDiff(a, b float64, abs bool) float64 {
	d := NormalizeBearing(b - a)
	if abs {
		return math.Abs(d)
	}
	return d
}
