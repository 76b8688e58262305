package tile

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// max latitude of the web mercator projection.
const LATITUDE_MAX = 85.0511

/*
CanonicalTileID. tile coordinate of a slippy map, normalized to the valid ranges of its zoom level:
x wraps around the antimeridian and y is clamped to [0, 2^z-1].
https://wiki.openstreetmap.org/wiki/Slippy_map_tilenames
*/
type CanonicalTileID struct {
	Z uint8  `json:"z"`
	X uint32 `json:"x"`
	Y uint32 `json:"y"`
}

func NewCanonicalTileID(z uint8, x, y uint32) CanonicalTileID {
	return CanonicalTileID{Z: z, X: x, Y: y}
}

func (t CanonicalTileID) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

func (t CanonicalTileID) maptile() maptile.Tile {
	return maptile.New(t.X, t.Y, maptile.Zoom(t.Z))
}

func (t CanonicalTileID) Bound() orb.Bound {
	return t.maptile().Bound()
}

func (t CanonicalTileID) Southwest() orb.Point {
	return orb.Point{tile2lon(int64(t.X), t.Z), tile2lat(int64(t.Y)+1, t.Z)}
}

func (t CanonicalTileID) Northeast() orb.Point {
	return orb.Point{tile2lon(int64(t.X)+1, t.Z), tile2lat(int64(t.Y), t.Z)}
}

// UnwrappedTileID. tile coordinate that may lie outside of [0, 2^z) on the x axis (going around the globe).
type UnwrappedTileID struct {
	Z uint8
	X int64
	Y int64
}

func NewUnwrappedTileID(z uint8, x, y int64) UnwrappedTileID {
	return UnwrappedTileID{Z: z, X: x, Y: y}
}

// UnwrappedTileIDFromPoint. tile containing the lon/lat point, clamped to the tile grid of the zoom level.
func UnwrappedTileIDFromPoint(p orb.Point, zoom uint8) UnwrappedTileID {
	n := math.Exp2(float64(zoom))
	latRad := p.Lat() * math.Pi / 180.0

	x := int64(math.Floor((p.Lon() + 180.0) / 360.0 * n))
	y := int64(math.Floor((1.0 - math.Log(math.Tan(latRad)+1.0/math.Cos(latRad))/math.Pi) / 2.0 * n))

	maxIndex := int64(1)<<zoom - 1
	return UnwrappedTileID{
		Z: zoom,
		X: clampIndex(x, maxIndex),
		Y: clampIndex(y, maxIndex),
	}
}

func clampIndex(v, maxIndex int64) int64 {
	if v < 0 {
		return 0
	}
	if v > maxIndex {
		return maxIndex
	}
	return v
}

func (u UnwrappedTileID) String() string {
	return fmt.Sprintf("%d/%d/%d", u.Z, u.X, u.Y)
}

// Canonical. wrap x modulo 2^z and clamp y.
func (u UnwrappedTileID) Canonical() CanonicalTileID {
	dim := int64(1) << u.Z

	x := u.X
	if x < 0 {
		x = x - dim + 1
	}
	wrap := x / dim

	return CanonicalTileID{
		Z: u.Z,
		X: uint32(u.X - wrap*dim),
		Y: uint32(clampIndex(u.Y, dim-1)),
	}
}

func (u UnwrappedTileID) Southwest() orb.Point {
	return orb.Point{tile2lon(u.X, u.Z), tile2lat(u.Y+1, u.Z)}
}

func (u UnwrappedTileID) Northeast() orb.Point {
	return orb.Point{tile2lon(u.X+1, u.Z), tile2lat(u.Y, u.Z)}
}

func tile2lon(x int64, z uint8) float64 {
	return float64(x)/math.Exp2(float64(z))*360.0 - 180.0
}

func tile2lat(y int64, z uint8) float64 {
	n := math.Pi - (2.0*math.Pi*float64(y))/math.Exp2(float64(z))
	return 180.0 / math.Pi * math.Atan(math.Sinh(n))
}
