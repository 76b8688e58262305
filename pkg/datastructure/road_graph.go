package datastructure

import (
	"fmt"
	"sort"

	"github.com/lintang-b-s/ehorizon/pkg/geo"
	"github.com/lintang-b-s/ehorizon/pkg/spatialindex"
	"github.com/lintang-b-s/ehorizon/pkg/util"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

type nodeEdges struct {
	out map[EdgeID]struct{}
	in  map[EdgeID]struct{}
}

func newNodeEdges() *nodeEdges {
	return &nodeEdges{
		out: make(map[EdgeID]struct{}),
		in:  make(map[EdgeID]struct{}),
	}
}

func (n *nodeEdges) degree() int {
	return len(n.out) + len(n.in)
}

/*
RoadGraph. directed multigraph of the road topology currently loaded from tiles. edges are keyed by id,
every edge has both endpoints present as nodes and a node without any edge is removed.

not safe for concurrent use, the engine loop is the only writer and reader.
*/
type RoadGraph struct {
	nodes map[NodeID]*nodeEdges
	edges map[EdgeID]*Edge
	index *spatialindex.EdgeIndex
	log   *zap.Logger
}

func NewRoadGraph(log *zap.Logger) *RoadGraph {
	return &RoadGraph{
		nodes: make(map[NodeID]*nodeEdges),
		edges: make(map[EdgeID]*Edge),
		index: spatialindex.NewEdgeIndex(),
		log:   log,
	}
}

func (g *RoadGraph) node(id NodeID) *nodeEdges {
	n, ok := g.nodes[id]
	if !ok {
		n = newNodeEdges()
		g.nodes[id] = n
	}
	return n
}

// AddEdge. edges whose ends resolve to the same node are discarded, an edge id already in the graph is a no-op.
func (g *RoadGraph) AddEdge(e *Edge) {
	if e.GetInNode() == e.GetOutNode() {
		g.log.Debug("discarding invalid edge, in and out node are the same",
			zap.Int64("edge_id", int64(e.GetID())), zap.Int64("node_id", int64(e.GetInNode())))
		return
	}

	if _, ok := g.edges[e.GetID()]; ok {
		g.log.Debug("edge already in graph", zap.Int64("edge_id", int64(e.GetID())))
		return
	}

	g.edges[e.GetID()] = e
	g.node(e.GetInNode()).out[e.GetID()] = struct{}{}
	g.node(e.GetOutNode()).in[e.GetID()] = struct{}{}

	if bound, ok := e.GetBound(); ok {
		g.index.Insert(int64(e.GetID()), bound)
	}
}

func (g *RoadGraph) AddEdges(edges []*Edge) {
	for _, e := range edges {
		g.AddEdge(e)
	}
}

// RemoveEdge. panics if e is not in the graph. endpoints left without any edge are removed too.
func (g *RoadGraph) RemoveEdge(e *Edge) {
	stored, ok := g.edges[e.GetID()]
	util.AssertPanic(ok, fmt.Sprintf("edge %d is not in the graph", e.GetID()))

	delete(g.edges, stored.GetID())

	if in, ok := g.nodes[stored.GetInNode()]; ok {
		delete(in.out, stored.GetID())
		if in.degree() == 0 {
			delete(g.nodes, stored.GetInNode())
		}
	}
	if out, ok := g.nodes[stored.GetOutNode()]; ok {
		delete(out.in, stored.GetID())
		if out.degree() == 0 {
			delete(g.nodes, stored.GetOutNode())
		}
	}

	if bound, ok := stored.GetBound(); ok {
		g.index.Delete(int64(stored.GetID()), bound)
	}
}

func (g *RoadGraph) HasEdge(id EdgeID) bool {
	_, ok := g.edges[id]
	return ok
}

// Edge. nil if the id is unknown.
func (g *RoadGraph) Edge(id EdgeID) *Edge {
	return g.edges[id]
}

func (g *RoadGraph) HasNode(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

func (g *RoadGraph) NumberOfEdges() int {
	return len(g.edges)
}

func (g *RoadGraph) NumberOfNodes() int {
	return len(g.nodes)
}

func (g *RoadGraph) IsEmpty() bool {
	return len(g.edges) == 0
}

func (g *RoadGraph) edgesOf(ids map[EdgeID]struct{}) []*Edge {
	edges := make([]*Edge, 0, len(ids))
	for id := range ids {
		if e, ok := g.edges[id]; ok {
			edges = append(edges, e)
		}
	}
	sortByID(edges)
	return edges
}

func sortByID(edges []*Edge) {
	sort.Slice(edges, func(i, j int) bool {
		return edges[i].GetID() < edges[j].GetID()
	})
}

// OutEdges. successor arcs of e (edges leaving the out node of e), ordered by id. empty for unknown edges or nodes.
func (g *RoadGraph) OutEdges(e *Edge) []*Edge {
	if e == nil {
		return []*Edge{}
	}
	n, ok := g.nodes[e.GetOutNode()]
	if !ok {
		return []*Edge{}
	}
	return g.edgesOf(n.out)
}

// InEdges. predecessor arcs of e (edges entering the in node of e), ordered by id.
func (g *RoadGraph) InEdges(e *Edge) []*Edge {
	if e == nil {
		return []*Edge{}
	}
	n, ok := g.nodes[e.GetInNode()]
	if !ok {
		return []*Edge{}
	}
	return g.edgesOf(n.in)
}

// ConnectedEdges. every edge entering or leaving the node, ordered by id.
func (g *RoadGraph) ConnectedEdges(id NodeID) []*Edge {
	n, ok := g.nodes[id]
	if !ok {
		return []*Edge{}
	}
	all := make(map[EdgeID]struct{}, n.degree())
	for eid := range n.out {
		all[eid] = struct{}{}
	}
	for eid := range n.in {
		all[eid] = struct{}{}
	}
	return g.edgesOf(all)
}

// Edges. every edge of the graph ordered by id.
func (g *RoadGraph) Edges() []*Edge {
	edges := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, e)
	}
	sortByID(edges)
	return edges
}

func (g *RoadGraph) Nodes() []NodeID {
	nodes := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		nodes = append(nodes, id)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	return nodes
}

type queuedEdge struct {
	edge     *Edge
	distance float64 // distance travelled before entering the edge
}

/*
OutEdgesAtMaxDistanceFromEdge. edges reachable from e within maxDistance meters, offset meters of e already
travelled. fifo traversal: every edge is explored at most once and the counterpart of an explored edge is
never entered (no u-turns). a branch stops once its cumulative distance reaches offset+maxDistance.
*/
func (g *RoadGraph) OutEdgesAtMaxDistanceFromEdge(e *Edge, offset, maxDistance float64) []*Edge {
	explored := make([]*Edge, 0)
	if e == nil || maxDistance <= 0 {
		return explored
	}

	total := maxDistance + offset
	excluded := make(map[EdgeID]struct{})

	queue := []queuedEdge{{edge: e, distance: 0}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if _, ok := excluded[current.edge.GetID()]; ok {
			continue
		}
		excluded[current.edge.GetID()] = struct{}{}
		if current.edge.HasCounterpart() {
			excluded[current.edge.GetCounterpartID()] = struct{}{}
		}

		explored = append(explored, current.edge)

		reached := current.distance + current.edge.GetLength()
		if reached >= total {
			continue
		}

		for _, out := range g.OutEdges(current.edge) {
			if _, ok := excluded[out.GetID()]; !ok {
				queue = append(queue, queuedEdge{edge: out, distance: reached})
			}
		}
	}

	return explored
}

// OutEdgesAtMaxDistanceFromEdgeID. OutEdgesAtMaxDistanceFromEdge by edge id, empty for unknown ids.
func (g *RoadGraph) OutEdgesAtMaxDistanceFromEdgeID(id EdgeID, offset, maxDistance float64) []*Edge {
	e, ok := g.edges[id]
	if !ok {
		return []*Edge{}
	}
	return g.OutEdgesAtMaxDistanceFromEdge(e, offset, maxDistance)
}

// Match. every edge whose bounding box contains p, ordered by id.
func (g *RoadGraph) Match(p orb.Point) []*Edge {
	return g.indexedEdges(g.index.Contains(p))
}

// MatchWithinRadius. every edge whose bounding box intersects the box of radius meters around p, ordered by id.
func (g *RoadGraph) MatchWithinRadius(p orb.Point, radius float64) []*Edge {
	return g.indexedEdges(g.index.SearchWithinRadius(p, radius))
}

func (g *RoadGraph) indexedEdges(ids []int64) []*Edge {
	edges := make([]*Edge, 0, len(ids))
	for _, id := range ids {
		if e, ok := g.edges[EdgeID(id)]; ok {
			edges = append(edges, e)
		}
	}
	sortByID(edges)
	return edges
}

type WeightedEdge struct {
	Edge     *Edge
	Distance float64 // meters
}

// WeightedMatch. the limit edges with a centerline closest to p, ascending by point to line distance.
func (g *RoadGraph) WeightedMatch(p orb.Point, limit int) []WeightedEdge {
	weighted := make([]WeightedEdge, 0)
	if limit <= 0 {
		return weighted
	}

	for _, e := range g.edges {
		if !e.HasCenterline() {
			continue
		}
		weighted = append(weighted, WeightedEdge{
			Edge:     e,
			Distance: geo.PointToLineDistance(e.GetCenterline(), p),
		})
	}

	sort.Slice(weighted, func(i, j int) bool {
		if weighted[i].Distance != weighted[j].Distance {
			return weighted[i].Distance < weighted[j].Distance
		}
		return weighted[i].Edge.GetID() < weighted[j].Edge.GetID()
	})

	if len(weighted) > limit {
		weighted = weighted[:limit]
	}
	return weighted
}

// AddDrivablePaths. merge the geometry, way type and speed of each path into the edges it references.
func (g *RoadGraph) AddDrivablePaths(paths []*DrivablePath) {
	for _, path := range paths {
		for _, id := range path.EdgeIDs {
			old, ok := g.edges[id]
			if !ok {
				g.log.Debug("drivable path references an edge that is not in the graph",
					zap.Int64("drivable_path_id", path.ID), zap.Int64("edge_id", int64(id)))
				continue
			}

			merged := old.WithDrivablePath(path)
			g.edges[id] = merged

			oldBound, hadBound := old.GetBound()
			newBound, hasBound := merged.GetBound()
			if hadBound && hasBound && oldBound == newBound {
				continue
			}
			if hadBound {
				g.index.Delete(int64(id), oldBound)
			}
			if hasBound {
				g.index.Insert(int64(id), newBound)
			}
		}
	}
}

func (g *RoadGraph) String() string {
	return fmt.Sprintf("nodes=%d, edges=%d", len(g.nodes), len(g.edges))
}
