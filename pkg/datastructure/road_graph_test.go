package datastructure

import (
	"testing"

	"github.com/lintang-b-s/ehorizon/pkg"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEdge(id EdgeID, in, out NodeID, counterpart EdgeID, line orb.LineString) *Edge {
	return NewEdge(EdgeParams{
		ID:            id,
		Length:        100,
		InNode:        in,
		OutNode:       out,
		CounterpartID: counterpart,
		WayID:         osm.WayID(id),
		Centerline:    line,
	})
}

func edgeIDs(edges []*Edge) []EdgeID {
	ids := make([]EdgeID, len(edges))
	for i, e := range edges {
		ids[i] = e.GetID()
	}
	return ids
}

// chain 1 -> 2 -> 3 -> 4 -> 5 along the equator, edge 2 has a counterpart 20 (3 -> 2).
func newChainGraph() *RoadGraph {
	g := NewRoadGraph(zap.NewNop())
	g.AddEdge(newTestEdge(1, 1, 2, 0, orb.LineString{{0, 0}, {0.001, 0}}))
	g.AddEdge(newTestEdge(2, 2, 3, 20, orb.LineString{{0.001, 0}, {0.002, 0}}))
	g.AddEdge(newTestEdge(20, 3, 2, 2, orb.LineString{{0.002, 0}, {0.001, 0}}))
	g.AddEdge(newTestEdge(3, 3, 4, 0, orb.LineString{{0.002, 0}, {0.003, 0}}))
	g.AddEdge(newTestEdge(4, 4, 5, 0, orb.LineString{{0.003, 0}, {0.004, 0}}))
	return g
}

func TestNewEdgeDeadEndRemap(t *testing.T) {
	testCases := []struct {
		name    string
		in      NodeID
		out     NodeID
		wantIn  NodeID
		wantOut NodeID
	}{
		{name: "no dead end", in: 3, out: 7, wantIn: 3, wantOut: 7},
		{name: "dead end in", in: NULL_NODE, out: 5, wantIn: -6, wantOut: 5},
		{name: "dead end out", in: 3, out: NULL_NODE, wantIn: 3, wantOut: -4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEdge(1, tc.in, tc.out, 0, nil)
			assert.Equal(t, tc.wantIn, e.GetInNode())
			assert.Equal(t, tc.wantOut, e.GetOutNode())
		})
	}
}

func TestNewEdgeDefaults(t *testing.T) {
	e := newTestEdge(1, 1, 2, 0, nil)
	assert.Equal(t, pkg.UNKNOWN, e.GetWayType())
	assert.False(t, e.HasCenterline())
	_, hasBound := e.GetBound()
	assert.False(t, hasBound)

	motorway := pkg.MOTORWAY
	m := NewEdge(EdgeParams{ID: 2, Length: 10, InNode: 1, OutNode: 2, WayType: &motorway})
	assert.True(t, m.IsOneway())
}

func TestRoadGraphAddEdge(t *testing.T) {
	t.Run("duplicate id is a no-op", func(t *testing.T) {
		g := newChainGraph()
		before := g.NumberOfEdges()
		g.AddEdge(newTestEdge(1, 7, 8, 0, nil))
		assert.Equal(t, before, g.NumberOfEdges())
		assert.Equal(t, NodeID(1), g.Edge(1).GetInNode())
		assert.False(t, g.HasNode(7))
	})

	t.Run("self loop is discarded", func(t *testing.T) {
		g := NewRoadGraph(zap.NewNop())
		g.AddEdge(newTestEdge(1, 4, 4, 0, nil))
		assert.True(t, g.IsEmpty())
		assert.Equal(t, 0, g.NumberOfNodes())
	})

	t.Run("dead ends of different edges do not collide", func(t *testing.T) {
		g := NewRoadGraph(zap.NewNop())
		g.AddEdge(newTestEdge(1, 1, NULL_NODE, 0, nil))
		g.AddEdge(newTestEdge(2, 2, NULL_NODE, 0, nil))
		assert.Equal(t, 4, g.NumberOfNodes())
		assert.Equal(t, "nodes=4, edges=2", g.String())
	})
}

func TestRoadGraphRemoveEdge(t *testing.T) {
	g := newChainGraph()

	g.RemoveEdge(g.Edge(4))
	assert.False(t, g.HasEdge(4))
	assert.False(t, g.HasNode(5), "node left without edges must be removed")
	assert.True(t, g.HasNode(4))

	g.RemoveEdge(g.Edge(1))
	assert.False(t, g.HasNode(1))
	assert.True(t, g.HasNode(2))
	assert.Empty(t, g.Match(orb.Point{0.0005, 0}))

	assert.Panics(t, func() {
		g.RemoveEdge(newTestEdge(99, 1, 2, 0, nil))
	})
}

func TestRoadGraphOutEdges(t *testing.T) {
	g := newChainGraph()

	assert.Equal(t, []EdgeID{2}, edgeIDs(g.OutEdges(g.Edge(1))))
	assert.Equal(t, []EdgeID{3, 20}, edgeIDs(g.OutEdges(g.Edge(2))))
	assert.Equal(t, []EdgeID{1}, edgeIDs(g.InEdges(g.Edge(2))))
	assert.Empty(t, g.OutEdges(g.Edge(4)))
	assert.Empty(t, g.OutEdges(newTestEdge(50, 60, 70, 0, nil)))
	assert.Empty(t, g.OutEdges(nil))

	assert.Equal(t, []EdgeID{2, 3, 20}, edgeIDs(g.ConnectedEdges(3)))
	assert.Empty(t, g.ConnectedEdges(42))
	assert.Equal(t, []NodeID{1, 2, 3, 4, 5}, g.Nodes())
	assert.Equal(t, []EdgeID{1, 2, 3, 4, 20}, edgeIDs(g.Edges()))
}

func TestRoadGraphOutEdgesAtMaxDistanceFromEdge(t *testing.T) {
	g := newChainGraph()

	testCases := []struct {
		name        string
		offset      float64
		maxDistance float64
		want        []EdgeID
	}{
		{name: "zero budget", offset: 0, maxDistance: 0, want: []EdgeID{}},
		{name: "inside first edge", offset: 0, maxDistance: 50, want: []EdgeID{1}},
		{name: "one successor", offset: 0, maxDistance: 150, want: []EdgeID{1, 2}},
		{name: "no u-turn onto counterpart", offset: 0, maxDistance: 250, want: []EdgeID{1, 2, 3}},
		{name: "offset extends the budget", offset: 60, maxDistance: 250, want: []EdgeID{1, 2, 3, 4}},
		{name: "whole chain", offset: 0, maxDistance: 10000, want: []EdgeID{1, 2, 3, 4}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := g.OutEdgesAtMaxDistanceFromEdge(g.Edge(1), tc.offset, tc.maxDistance)
			assert.Equal(t, tc.want, edgeIDs(got))
		})
	}

	assert.Empty(t, g.OutEdgesAtMaxDistanceFromEdgeID(999, 0, 1000))
	assert.Equal(t, []EdgeID{3, 4}, edgeIDs(g.OutEdgesAtMaxDistanceFromEdgeID(3, 0, 1000)))
}

func TestRoadGraphMatch(t *testing.T) {
	g := newChainGraph()

	assert.Equal(t, []EdgeID{1}, edgeIDs(g.Match(orb.Point{0.0005, 0})))
	assert.Equal(t, []EdgeID{2, 20}, edgeIDs(g.Match(orb.Point{0.0015, 0})))
	assert.Empty(t, g.Match(orb.Point{1, 1}))
}

func TestRoadGraphMatchWithinRadius(t *testing.T) {
	g := newChainGraph()
	p := orb.Point{0.0015, 0.0001}

	testCases := []struct {
		name   string
		radius float64
		want   []EdgeID
	}{
		{name: "off the road", radius: 5, want: []EdgeID{}},
		{name: "nearest road", radius: 20, want: []EdgeID{2, 20}},
		{name: "neighbours", radius: 100, want: []EdgeID{1, 2, 3, 20}},
		{name: "whole graph", radius: 1000, want: []EdgeID{1, 2, 3, 4, 20}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, edgeIDs(g.MatchWithinRadius(p, tc.radius)))
		})
	}

	g.RemoveEdge(g.Edge(20))
	assert.Equal(t, []EdgeID{2}, edgeIDs(g.MatchWithinRadius(p, 20)))
}

func TestRoadGraphWeightedMatch(t *testing.T) {
	g := newChainGraph()
	g.AddEdge(newTestEdge(9, 9, 10, 0, nil))

	got := g.WeightedMatch(orb.Point{0.0031, 0.0001}, 3)
	require.Len(t, got, 3)
	assert.Equal(t, EdgeID(4), got[0].Edge.GetID())
	assert.InDelta(t, 11.12, got[0].Distance, 0.05)
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Distance, got[i].Distance)
	}
	for _, w := range got {
		assert.NotEqual(t, EdgeID(9), w.Edge.GetID(), "edges without a centerline are never matched")
	}

	assert.Empty(t, g.WeightedMatch(orb.Point{0, 0}, 0))
}

func TestRoadGraphAddDrivablePaths(t *testing.T) {
	g := NewRoadGraph(zap.NewNop())
	g.AddEdge(NewEdge(EdgeParams{ID: 1, Length: 222, InNode: 1, OutNode: 2, CounterpartID: 2}))
	g.AddEdge(NewEdge(EdgeParams{ID: 2, Length: 222, InNode: 2, OutNode: 1, CounterpartID: 1, Inverse: true}))

	path := NewDrivablePath(7, []EdgeID{1, 2, 3}, orb.LineString{{0, 0}, {0.001, 0}, {0.002, 0}})
	path.WayType = pkg.PRIMARY
	path.MaxSpeed = 50
	path.Name = "Jalan Malioboro"

	g.AddDrivablePaths([]*DrivablePath{path})

	forward := g.Edge(1)
	backward := g.Edge(2)
	assert.Equal(t, orb.LineString{{0, 0}, {0.001, 0}, {0.002, 0}}, forward.GetCenterline())
	assert.Equal(t, orb.LineString{{0.002, 0}, {0.001, 0}, {0, 0}}, backward.GetCenterline())
	assert.Equal(t, pkg.PRIMARY, backward.GetWayType())
	assert.Equal(t, 50.0, forward.GetMaxSpeed())
	assert.Equal(t, orb.LineString{{0, 0}, {0.001, 0}, {0.002, 0}}, path.Points, "path points must not be mutated")

	assert.Equal(t, []EdgeID{1, 2}, edgeIDs(g.Match(orb.Point{0.0015, 0})))
	assert.False(t, g.HasEdge(3))
}
