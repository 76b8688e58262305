package tile

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
)

func isEmpty(bound orb.Bound) bool {
	return bound.Min.Lat() > bound.Max.Lat() || bound.Min.Lon() > bound.Max.Lon()
}

/*
Cover. minimum set of tiles covering a rectangular bounding box at a zoom level, computed with
scanlines over the unwrapped tile range spanned by the box corners. returns nothing for an empty box
or a box that lies entirely outside the latitude range of the web mercator projection.

a big bounding box at a high zoom level returns an absurd amount of tiles.
*/
func Cover(bound orb.Bound, zoom uint8) []CanonicalTileID {
	if isEmpty(bound) || bound.Min.Lat() > LATITUDE_MAX || bound.Max.Lat() < -LATITUDE_MAX {
		return []CanonicalTileID{}
	}

	southwest := orb.Point{bound.Min.Lon(), math.Max(bound.Min.Lat(), -LATITUDE_MAX)}
	northeast := orb.Point{bound.Max.Lon(), math.Min(bound.Max.Lat(), LATITUDE_MAX)}

	sw := UnwrappedTileIDFromPoint(southwest, zoom)
	ne := UnwrappedTileIDFromPoint(northeast, zoom)

	seen := make(map[CanonicalTileID]struct{})
	tiles := make([]CanonicalTileID, 0, (ne.X-sw.X+1)*(sw.Y-ne.Y+1))

	// scanlines
	for x := sw.X; x <= ne.X; x++ {
		for y := ne.Y; y <= sw.Y; y++ {
			t := NewUnwrappedTileID(zoom, x, y).Canonical()
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tiles = append(tiles, t)
		}
	}

	return tiles
}

// Set. tile ids as a set keyed by the canonical tile.
type Set map[CanonicalTileID]struct{}

func NewSet(tiles ...CanonicalTileID) Set {
	s := make(Set, len(tiles))
	for _, t := range tiles {
		s[t] = struct{}{}
	}
	return s
}

func (s Set) Contains(t CanonicalTileID) bool {
	_, ok := s[t]
	return ok
}

// Sorted. tiles ordered by zoom, x, then y.
func (s Set) Sorted() []CanonicalTileID {
	tiles := make([]CanonicalTileID, 0, len(s))
	for t := range s {
		tiles = append(tiles, t)
	}
	sort.Slice(tiles, func(i, j int) bool {
		if tiles[i].Z != tiles[j].Z {
			return tiles[i].Z < tiles[j].Z
		}
		if tiles[i].X != tiles[j].X {
			return tiles[i].X < tiles[j].X
		}
		return tiles[i].Y < tiles[j].Y
	})
	return tiles
}
