package mapmatcher

import (
	"math"

	"github.com/lintang-b-s/ehorizon/pkg/costfunction"
	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/geo"
	"github.com/paulmach/orb"
)

const (
	THRESHOLD_MATCH_DISTANCE_M     = 10.0 // meters
	THRESHOLD_MATCH_BEARING_OFFSET = 30.0 // degrees

	WEIGHT_SAME_EDGE = 10.0
	WEIGHT_BEARING   = 0.5
	WEIGHT_DISTANCE  = 1.0

	// number of nearest edges scored when matching from the location history.
	MATCH_LIMIT = 3
)

// Match. a candidate edge scored against a raw position. lower cost is better, only candidates that Matches() can be selected.
type Match interface {
	Matches() bool
	Cost() float64
	Edge() *datastructure.Edge
	PointOnLine() geo.PointOnLine
}

type baseMatch struct {
	edge          *datastructure.Edge
	pointOnLine   geo.PointOnLine
	distance      float64
	bearingOffset float64
	valid         bool // false when the edge has no usable centerline
}

func newBaseMatch(ruler geo.CheapRuler, edge *datastructure.Edge, position orb.Point, referenceBearing float64) baseMatch {
	line := edge.GetCenterline()
	if len(line) < 2 {
		return baseMatch{
			edge:          edge,
			distance:      math.Inf(1),
			bearingOffset: math.Inf(1),
		}
	}

	pol := ruler.PointOnLine(line, position)

	// bearing of the matched segment
	bearing := ruler.Bearing(line[pol.Index], line[pol.Index+1])

	return baseMatch{
		edge:          edge,
		pointOnLine:   pol,
		distance:      ruler.Distance(position, pol.Point),
		bearingOffset: geo.BearingDiff(referenceBearing, bearing, true),
		valid:         true,
	}
}

// passed. the projection lies on the last vertex of the centerline, the vehicle already left the edge.
func (m baseMatch) passed() bool {
	return m.pointOnLine.T == 1 && m.pointOnLine.Index == len(m.edge.GetCenterline())-2
}

func (m baseMatch) Matches() bool {
	return m.valid &&
		m.distance < THRESHOLD_MATCH_DISTANCE_M &&
		m.bearingOffset < THRESHOLD_MATCH_BEARING_OFFSET &&
		!m.passed()
}

func (m baseMatch) Edge() *datastructure.Edge {
	return m.edge
}

func (m baseMatch) PointOnLine() geo.PointOnLine {
	return m.pointOnLine
}

func (m baseMatch) GetDistance() float64 {
	return m.distance
}

func (m baseMatch) GetBearingOffset() float64 {
	return m.bearingOffset
}

// LocationHistoryMatch. candidate scored only by the raw position and the travel bearing between the two last positions.
type LocationHistoryMatch struct {
	baseMatch
}

func NewLocationHistoryMatch(ruler geo.CheapRuler, edge *datastructure.Edge, position orb.Point,
	referenceBearing float64) *LocationHistoryMatch {
	return &LocationHistoryMatch{
		baseMatch: newBaseMatch(ruler, edge, position, referenceBearing),
	}
}

func (m *LocationHistoryMatch) Cost() float64 {
	return costfunction.WeightedSum(
		costfunction.NewTerm(WEIGHT_BEARING, m.bearingOffset),
		costfunction.NewTerm(WEIGHT_DISTANCE, m.distance),
	)
}

// EdgeAndLocationMatch. candidate reached from the previously matched edge, staying on the previous edge is cheaper.
type EdgeAndLocationMatch struct {
	baseMatch
	sameEdge bool
}

func NewEdgeAndLocationMatch(ruler geo.CheapRuler, previousEdge, edge *datastructure.Edge,
	previousPosition, newPosition orb.Point) *EdgeAndLocationMatch {
	return &EdgeAndLocationMatch{
		baseMatch: newBaseMatch(ruler, edge, newPosition, ruler.Bearing(previousPosition, newPosition)),
		sameEdge:  previousEdge.Equals(edge),
	}
}

func (m *EdgeAndLocationMatch) Cost() float64 {
	sameEdgeCost := 1.0
	if m.sameEdge {
		sameEdgeCost = 0
	}
	return costfunction.WeightedSum(
		costfunction.NewTerm(WEIGHT_SAME_EDGE, sameEdgeCost),
		costfunction.NewTerm(WEIGHT_BEARING, m.bearingOffset),
		costfunction.NewTerm(WEIGHT_DISTANCE, m.distance),
	)
}

// Best. minimum cost match among the candidates that match, nil if none does. ties keep the first candidate.
func Best(candidates []Match) Match {
	var best Match
	for _, c := range candidates {
		if !c.Matches() {
			continue
		}
		if best == nil || c.Cost() < best.Cost() {
			best = c
		}
	}
	return best
}
