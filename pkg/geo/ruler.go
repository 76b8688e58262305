package geo

import (
	"math"

	"github.com/lintang-b-s/ehorizon/pkg/util"
	"github.com/paulmach/orb"
)

type Unit uint8

const (
	Kilometers Unit = iota
	Miles
	NauticalMiles
	Meters
	Yards
	Feet
	Inches
)

// multiplier from kilometers to the unit.
func (u Unit) factor() float64 {
	switch u {
	case Miles:
		return 1000.0 / 1609.344
	case NauticalMiles:
		return 1000.0 / 1852.0
	case Meters:
		return 1000.0
	case Yards:
		return 1000.0 / 0.9144
	case Feet:
		return 1000.0 / 0.3048
	case Inches:
		return 1000.0 / 0.0254
	default:
		return 1.0
	}
}

/*
CheapRuler. fast approximations of common geodesic measurements around a reference latitude,
https://blog.mapbox.com/fast-geodesic-approximations-with-cheap-ruler-106f229ad016

the earth is treated as locally flat: kx and ky are the number of units per degree of longitude and
latitude at the reference latitude (taylor series of the WGS84 ellipsoid curvature). error stays below
0.1% for distances under 500 km when the points are close to the reference latitude.
*/
type CheapRuler struct {
	kx float64
	ky float64
}

func NewCheapRuler(lat float64, unit Unit) CheapRuler {
	m := unit.factor()

	cos := math.Cos(util.DegreeToRadians(lat))
	cos2 := 2*cos*cos - 1
	cos3 := 2*cos*cos2 - cos
	cos4 := 2*cos*cos3 - cos2
	cos5 := 2*cos*cos4 - cos3

	return CheapRuler{
		kx: m * (111.41513*cos - 0.09455*cos3 + 0.00012*cos5),
		ky: m * (111.13209 - 0.56605*cos2 + 0.0012*cos4),
	}
}

// NewMeterRuler. ruler in meters, the unit used by the matcher and the horizon builder.
func NewMeterRuler(lat float64) CheapRuler {
	return NewCheapRuler(lat, Meters)
}

func (r CheapRuler) GetKx() float64 {
	return r.kx
}

func (r CheapRuler) GetKy() float64 {
	return r.ky
}

func wrapLongitude(deg float64) float64 {
	for deg < -180 {
		deg += 360
	}
	for deg > 180 {
		deg -= 360
	}
	return deg
}

func (r CheapRuler) Distance(a, b orb.Point) float64 {
	dx := wrapLongitude(a.Lon()-b.Lon()) * r.kx
	dy := (a.Lat() - b.Lat()) * r.ky
	return math.Sqrt(dx*dx + dy*dy)
}

// Bearing. bearing from a to b in degrees, in (-180, 180]. 0 when a == b.
func (r CheapRuler) Bearing(a, b orb.Point) float64 {
	dx := wrapLongitude(b.Lon()-a.Lon()) * r.kx
	dy := (b.Lat() - a.Lat()) * r.ky
	if dx == 0 && dy == 0 {
		return 0
	}
	return util.RadiansToDegree(math.Atan2(dx, dy))
}

func (r CheapRuler) Offset(p orb.Point, dx, dy float64) orb.Point {
	return orb.Point{p.Lon() + dx/r.kx, p.Lat() + dy/r.ky}
}

func (r CheapRuler) Destination(p orb.Point, dist, bearing float64) orb.Point {
	a := util.DegreeToRadians(bearing)
	return r.Offset(p, math.Sin(a)*dist, math.Cos(a)*dist)
}

func (r CheapRuler) LineDistance(line orb.LineString) float64 {
	total := 0.0
	for i := 0; i < len(line)-1; i++ {
		total += r.Distance(line[i], line[i+1])
	}
	return total
}

// BufferPoint. bounding box of p extended by buffer units in every direction.
func (r CheapRuler) BufferPoint(p orb.Point, buffer float64) orb.Bound {
	v := buffer / r.ky
	h := buffer / r.kx
	return orb.Bound{
		Min: orb.Point{p.Lon() - h, p.Lat() - v},
		Max: orb.Point{p.Lon() + h, p.Lat() + v},
	}
}

// PointOnLine. closest point of a line to p, the segment index it lies on and its position t within that segment.
type PointOnLine struct {
	Point orb.Point
	Index int
	T     float64
}

func (pol PointOnLine) GetPoint() orb.Point {
	return pol.Point
}

func (pol PointOnLine) GetIndex() int {
	return pol.Index
}

func (pol PointOnLine) GetT() float64 {
	return pol.T
}

func (r CheapRuler) PointOnLine(line orb.LineString, p orb.Point) PointOnLine {
	minDist := math.Inf(1)
	var (
		minX, minY, minT float64
		minI             int
	)

	for i := 0; i < len(line)-1; i++ {
		x := line[i].Lon()
		y := line[i].Lat()
		dx := wrapLongitude(line[i+1].Lon()-x) * r.kx
		dy := (line[i+1].Lat() - y) * r.ky
		t := 0.0

		if dx != 0 || dy != 0 {
			t = (wrapLongitude(p.Lon()-x)*r.kx*dx + (p.Lat()-y)*r.ky*dy) / (dx*dx + dy*dy)

			if t > 1 {
				x = line[i+1].Lon()
				y = line[i+1].Lat()
			} else if t > 0 {
				x += (dx / r.kx) * t
				y += (dy / r.ky) * t
			}
		}

		dx = wrapLongitude(p.Lon()-x) * r.kx
		dy = (p.Lat() - y) * r.ky

		sqDist := dx*dx + dy*dy
		if sqDist < minDist {
			minDist = sqDist
			minX = x
			minY = y
			minI = i
			minT = t
		}
	}

	return PointOnLine{
		Point: orb.Point{minX, minY},
		Index: minI,
		T:     util.Clamp(minT, 0, 1),
	}
}

// DistanceAlong. distance from the start of the line to pol, measured along the line.
func (r CheapRuler) DistanceAlong(line orb.LineString, pol PointOnLine) float64 {
	if len(line) == 0 {
		return 0
	}
	d := 0.0
	for i := 0; i < pol.Index && i < len(line)-1; i++ {
		d += r.Distance(line[i], line[i+1])
	}
	return d + r.Distance(line[util.Clamp(pol.Index, 0, len(line)-1)], pol.Point)
}

// Along. point at dist units along the line.
func (r CheapRuler) Along(line orb.LineString, dist float64) orb.Point {
	if len(line) == 0 {
		return orb.Point{}
	}
	if dist <= 0 {
		return line[0]
	}

	sum := 0.0
	for i := 0; i < len(line)-1; i++ {
		p0 := line[i]
		p1 := line[i+1]
		d := r.Distance(p0, p1)
		sum += d
		if sum > dist {
			return interpolate(p0, p1, (dist-(sum-d))/d)
		}
	}

	return line[len(line)-1]
}

// LineSliceAlong. part of the line between the start and stop distances along it.
func (r CheapRuler) LineSliceAlong(start, stop float64, line orb.LineString) orb.LineString {
	sum := 0.0
	slice := make(orb.LineString, 0, len(line))

	for i := 0; i < len(line)-1; i++ {
		p0 := line[i]
		p1 := line[i+1]
		d := r.Distance(p0, p1)

		sum += d

		if sum > start && len(slice) == 0 {
			slice = append(slice, interpolate(p0, p1, ratio(start-(sum-d), d)))
		}

		if sum >= stop {
			slice = append(slice, interpolate(p0, p1, ratio(stop-(sum-d), d)))
			return slice
		}

		if sum > start {
			slice = append(slice, p1)
		}
	}

	return slice
}

func ratio(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole
}

func interpolate(a, b orb.Point, t float64) orb.Point {
	dx := wrapLongitude(b.Lon() - a.Lon())
	dy := b.Lat() - a.Lat()
	return orb.Point{a.Lon() + dx*t, a.Lat() + dy*t}
}
