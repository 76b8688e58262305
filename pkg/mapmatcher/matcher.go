package mapmatcher

import (
	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/geo"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

type Graph interface {
	OutEdges(e *datastructure.Edge) []*datastructure.Edge
	WeightedMatch(p orb.Point, limit int) []datastructure.WeightedEdge
}

// Matcher. snaps raw positions onto the road graph edges.
type Matcher struct {
	graph Graph
	log   *zap.Logger
}

func NewMatcher(graph Graph, log *zap.Logger) *Matcher {
	return &Matcher{
		graph: graph,
		log:   log,
	}
}

func (m *Matcher) SetGraph(graph Graph) {
	m.graph = graph
}

/*
MatchFromEdge. continue from the previously matched edge: the candidates are the successors of the current edge
(without its counterpart, the vehicle does not flip around) and the current edge itself. nil if no candidate matches.
*/
func (m *Matcher) MatchFromEdge(ruler geo.CheapRuler, current *datastructure.Edge,
	previousPosition, newPosition orb.Point) Match {
	outEdges := m.graph.OutEdges(current)
	candidates := make([]Match, 0, len(outEdges)+1)
	for _, e := range outEdges {
		if current.IsCounterpartOf(e) {
			continue
		}
		candidates = append(candidates, NewEdgeAndLocationMatch(ruler, current, e, previousPosition, newPosition))
	}
	candidates = append(candidates, NewEdgeAndLocationMatch(ruler, current, current, previousPosition, newPosition))

	best := Best(candidates)
	if best != nil {
		m.log.Debug("found most likely match from the previous edge",
			zap.Int64("previous_edge_id", int64(current.GetID())),
			zap.Int64("edge_id", int64(best.Edge().GetID())),
			zap.Float64("cost", best.Cost()))
	}
	return best
}

// MatchFromLocationHistory. score the MATCH_LIMIT nearest edges against the travel bearing between the two last positions.
func (m *Matcher) MatchFromLocationHistory(ruler geo.CheapRuler, previousPosition, newPosition orb.Point) Match {
	bearing := ruler.Bearing(previousPosition, newPosition)

	nearest := m.graph.WeightedMatch(newPosition, MATCH_LIMIT)
	candidates := make([]Match, 0, len(nearest))
	for _, w := range nearest {
		candidates = append(candidates, NewLocationHistoryMatch(ruler, w.Edge, newPosition, bearing))
	}

	best := Best(candidates)
	if best == nil {
		m.log.Debug("no edge matches the location history",
			zap.Float64s("previous_position", previousPosition[:]),
			zap.Float64s("position", newPosition[:]))
	}
	return best
}
