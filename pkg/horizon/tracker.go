package horizon

import (
	"github.com/lintang-b-s/ehorizon/pkg/costfunction"
	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/geo"
	"github.com/lintang-b-s/ehorizon/pkg/mapmatcher"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

const (
	// consecutive positions further apart (meters) than this reset the tracker.
	IMPLICIT_RESET_THRESHOLD = 100.0
)

type RoadGraph interface {
	mapmatcher.Graph
	IsEmpty() bool
}

/*
Tracker. matches every new position onto the road graph and builds the horizon ahead of the match.

while the vehicle is on a known edge, the new position is first matched against that edge and its successors.
only when none of them matches is the position matched from the location history (the nearest edges and the
bearing between the two last positions). a jump of more than IMPLICIT_RESET_THRESHOLD meters forgets the
current edge and the previous position.
*/
type Tracker struct {
	graph   RoadGraph
	matcher *mapmatcher.Matcher
	builder *Builder
	ruler   geo.CheapRuler

	previousPosition orb.Point
	hasPrevious      bool
	edge             *datastructure.Edge
	offset           float64 // meters along edge to the last projected position
	lastPosition     orb.Point

	log *zap.Logger
}

func NewTracker(graph RoadGraph, costFunction costfunction.CostFunction, horizonDistance float64,
	expansion Expansion, log *zap.Logger) *Tracker {
	return &Tracker{
		graph:   graph,
		matcher: mapmatcher.NewMatcher(graph, log),
		builder: NewBuilder(graph, costFunction, horizonDistance, expansion, log),
		ruler:   geo.NewMeterRuler(0),
		log:     log,
	}
}

func (t *Tracker) SetGraph(graph RoadGraph) {
	t.graph = graph
	t.matcher.SetGraph(graph)
	t.builder.SetGraph(graph)
}

func (t *Tracker) SetHorizonDistance(horizonDistance float64) {
	t.builder.SetHorizonDistance(horizonDistance)
}

func (t *Tracker) GetHorizonDistance() float64 {
	return t.builder.GetHorizonDistance()
}

func (t *Tracker) SetExpansion(expansion Expansion) {
	t.builder.SetExpansion(expansion)
}

func (t *Tracker) GetExpansion() Expansion {
	return t.builder.GetExpansion()
}

// CurrentEdge. edge of the last positive match, nil after a reset.
func (t *Tracker) CurrentEdge() *datastructure.Edge {
	return t.edge
}

func (t *Tracker) Reset() {
	t.hasPrevious = false
	t.previousPosition = orb.Point{}
	t.edge = nil
	t.offset = 0
}

// Horizon. track the new raw position, a *Positive carries the projected position and the horizon ahead of it.
func (t *Tracker) Horizon(newPosition orb.Point) Result {
	t.ruler = geo.NewMeterRuler(newPosition.Lat())

	if t.hasPrevious && t.ruler.Distance(t.previousPosition, newPosition) > IMPLICIT_RESET_THRESHOLD {
		t.log.Info("reset position",
			zap.Float64s("previous_position", t.previousPosition[:]),
			zap.Float64s("position", newPosition[:]))
		t.Reset()
	}

	var result Result
	switch {
	case t.graph == nil || t.graph.IsEmpty() || (t.edge == nil && !t.hasPrevious):
		t.log.Debug("cannot determine the horizon yet, returning the raw position")
		result = NewNegative(newPosition)
	case newPosition.Equal(t.previousPosition):
		// no travel bearing, keep the last match.
		result = t.stationary(newPosition)
	default:
		result = t.match(newPosition)
	}

	t.previousPosition = newPosition
	t.hasPrevious = true

	return result
}

func (t *Tracker) stationary(newPosition orb.Point) Result {
	if t.edge == nil {
		return NewNegative(newPosition)
	}
	return NewPositive(t.lastPosition, t.builder.Build(t.ruler, t.edge, t.offset))
}

func (t *Tracker) match(newPosition orb.Point) Result {
	if t.edge != nil {
		if m := t.matcher.MatchFromEdge(t.ruler, t.edge, t.previousPosition, newPosition); m != nil {
			return t.positive(m)
		}
	}

	if m := t.matcher.MatchFromLocationHistory(t.ruler, t.previousPosition, newPosition); m != nil {
		return t.positive(m)
	}

	t.log.Warn("no edge matches the position", zap.Float64s("position", newPosition[:]))
	return NewNegative(newPosition)
}

func (t *Tracker) positive(m mapmatcher.Match) *Positive {
	t.edge = m.Edge()
	t.offset = t.ruler.DistanceAlong(t.edge.GetCenterline(), m.PointOnLine())
	t.lastPosition = m.PointOnLine().Point

	return NewPositive(t.lastPosition, t.builder.Build(t.ruler, t.edge, t.offset))
}
