package geo

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/paulmach/orb"
)

const earthRadiusKM = 6371.0

func toS2Point(p orb.Point) s2.Point {
	return s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat(), p.Lon()))
}

// ProjectPointToLine. closest point on the great-circle polyline to p.
func ProjectPointToLine(line orb.LineString, p orb.Point) (orb.Point, int) {
	if len(line) == 0 {
		return p, 0
	}
	pts := make([]s2.Point, len(line))
	for i, c := range line {
		pts[i] = toS2Point(c)
	}
	polyline := s2.Polyline(pts)

	projection, next := polyline.Project(toS2Point(p))
	ll := s2.LatLngFromPoint(projection)
	return orb.Point{ll.Lng.Degrees(), ll.Lat.Degrees()}, next
}

// PointToLineDistance. perpendicular distance in meters from p to the line, math.MaxFloat64 for lines with less than two points.
func PointToLineDistance(line orb.LineString, p orb.Point) float64 {
	if len(line) < 2 {
		return math.MaxFloat64
	}

	pts := make([]s2.Point, len(line))
	for i, c := range line {
		pts[i] = toS2Point(c)
	}
	polyline := s2.Polyline(pts)

	q := toS2Point(p)
	projection, _ := polyline.Project(q)

	return q.Distance(projection).Radians() * earthRadiusKM * 1000
}
