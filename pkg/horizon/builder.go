package horizon

import (
	"github.com/lintang-b-s/ehorizon/pkg/costfunction"
	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/geo"
	"go.uber.org/zap"
)

const (
	// clipped successors at most this long (meters) are dropped.
	MIN_SEGMENT_LENGTH = 1.0
)

type Graph interface {
	OutEdges(e *datastructure.Edge) []*datastructure.Edge
}

// Builder. grows the horizon tree from the matched edge until the horizon distance is used up.
type Builder struct {
	graph           Graph
	costFunction    costfunction.CostFunction
	horizonDistance float64
	expansion       Expansion
	log             *zap.Logger
}

func NewBuilder(graph Graph, costFunction costfunction.CostFunction, horizonDistance float64,
	expansion Expansion, log *zap.Logger) *Builder {
	return &Builder{
		graph:           graph,
		costFunction:    costFunction,
		horizonDistance: horizonDistance,
		expansion:       expansion,
		log:             log,
	}
}

func (b *Builder) SetGraph(graph Graph) {
	b.graph = graph
}

func (b *Builder) SetHorizonDistance(horizonDistance float64) {
	b.horizonDistance = horizonDistance
}

func (b *Builder) GetHorizonDistance() float64 {
	return b.horizonDistance
}

func (b *Builder) SetExpansion(expansion Expansion) {
	b.expansion = expansion
}

func (b *Builder) GetExpansion() Expansion {
	return b.expansion
}

/*
Build. horizon starting t meters into the current edge.
the current edge is clipped to [t, t+horizonDistance]; if the clipped edge is shorter than the horizon
distance, its successors are expanded until the distance budget is used up.

an edge id appears at most once in the whole tree, a successor already reached through another branch is not
added again.
*/
func (b *Builder) Build(ruler geo.CheapRuler, current *datastructure.Edge, t float64) *EHorizon {
	visited := map[datastructure.EdgeID]struct{}{
		current.GetID(): {},
	}

	clipped := b.Clip(ruler, current, t, t+b.horizonDistance)
	root := NewSegment(clipped)

	if clipped.GetLength() < b.horizonDistance {
		b.expand(ruler, root, clipped.GetLength(), visited)
	}

	return NewEHorizon(root)
}

// expand. attach the successors of seg, t is the distance already covered from the vehicle to the end of seg.
func (b *Builder) expand(ruler geo.CheapRuler, seg *Segment, t float64, visited map[datastructure.EdgeID]struct{}) {
	if t >= b.horizonDistance {
		return
	}

	current := seg.edge
	candidates := make([]*datastructure.Edge, 0)
	for _, e := range b.graph.OutEdges(current) {
		if _, ok := visited[e.GetID()]; ok {
			continue
		}
		if current.IsCounterpartOf(e) {
			continue
		}

		clipped := b.Clip(ruler, e, 0, b.horizonDistance-t)
		line := clipped.GetCenterline()
		clipped = clipped.WithCenterline(line, ruler.LineDistance(line))

		if clipped.GetLength() <= MIN_SEGMENT_LENGTH || len(line) < 2 {
			continue
		}
		candidates = append(candidates, clipped)
	}

	for _, c := range candidates {
		visited[c.GetID()] = struct{}{}
	}

	b.addNodes(seg, candidates)

	switch b.expansion {
	case FULL:
		for _, n := range seg.out {
			b.expand(ruler, n.segment, t+n.segment.edge.GetLength(), visited)
		}
	default:
		if n := seg.mostProbable(); n != nil {
			b.expand(ruler, n.segment, t+n.segment.edge.GetLength(), visited)
		}
	}
}

func (b *Builder) addNodes(seg *Segment, candidates []*datastructure.Edge) {
	costs := make([]float64, len(candidates))
	for i, c := range candidates {
		costs[i] = b.costFunction.TransitionCost(seg.edge, c)
	}

	probabilities := NormalizedProbabilities(ShiftToPositiveRange(costs))
	for i, c := range candidates {
		seg.addNode(NewNode(NewSegment(c), probabilities[i], costfunction.BearingDiff(seg.edge, c, false)))
	}
}

// Clip. part of the edge between tStart and tEnd meters along its centerline. the edge itself if the window covers it.
func (b *Builder) Clip(ruler geo.CheapRuler, edge *datastructure.Edge, tStart, tEnd float64) *datastructure.Edge {
	if tStart <= 0 && tEnd >= edge.GetLength() {
		return edge
	}

	end := min(tEnd, edge.GetLength())
	clipped := ruler.LineSliceAlong(tStart, end, edge.GetCenterline())
	return edge.WithCenterline(clipped, ruler.LineDistance(clipped))
}
