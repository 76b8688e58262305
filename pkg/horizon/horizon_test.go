package horizon

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/lintang-b-s/ehorizon/pkg/costfunction"
	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/geo"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var ruler = geo.NewMeterRuler(0)

func newTestEdge(id datastructure.EdgeID, in, out datastructure.NodeID, counterpart datastructure.EdgeID,
	wayID osm.WayID, line orb.LineString) *datastructure.Edge {
	return datastructure.NewEdge(datastructure.EdgeParams{
		ID:            id,
		Length:        ruler.LineDistance(line),
		InNode:        in,
		OutNode:       out,
		CounterpartID: counterpart,
		WayID:         wayID,
		Centerline:    line,
	})
}

func edgeIDs(edges []*datastructure.Edge) []datastructure.EdgeID {
	ids := make([]datastructure.EdgeID, len(edges))
	for i, e := range edges {
		ids[i] = e.GetID()
	}
	return ids
}

// 1 -> 2 -> 3 -> 4 along the equator (each ~111 m), 2 is two way with counterpart 20.
func newChainGraph() *datastructure.RoadGraph {
	g := datastructure.NewRoadGraph(zap.NewNop())
	g.AddEdge(newTestEdge(1, 1, 2, 0, 1, orb.LineString{{0, 0}, {0.001, 0}}))
	g.AddEdge(newTestEdge(2, 2, 3, 20, 1, orb.LineString{{0.001, 0}, {0.002, 0}}))
	g.AddEdge(newTestEdge(20, 3, 2, 2, 1, orb.LineString{{0.002, 0}, {0.001, 0}}))
	g.AddEdge(newTestEdge(3, 3, 4, 0, 1, orb.LineString{{0.002, 0}, {0.003, 0}}))
	g.AddEdge(newTestEdge(4, 4, 5, 0, 1, orb.LineString{{0.003, 0}, {0.004, 0}}))
	return g
}

// at node 3 the way 1 continues east (3) and way 2 turns north (5).
func newForkGraph() *datastructure.RoadGraph {
	g := datastructure.NewRoadGraph(zap.NewNop())
	g.AddEdge(newTestEdge(2, 2, 3, 0, 1, orb.LineString{{0.001, 0}, {0.002, 0}}))
	g.AddEdge(newTestEdge(3, 3, 4, 0, 1, orb.LineString{{0.002, 0}, {0.003, 0}}))
	g.AddEdge(newTestEdge(7, 4, 8, 0, 1, orb.LineString{{0.003, 0}, {0.004, 0}}))
	g.AddEdge(newTestEdge(5, 3, 6, 0, 2, orb.LineString{{0.002, 0}, {0.002, 0.001}}))
	g.AddEdge(newTestEdge(6, 6, 7, 0, 2, orb.LineString{{0.002, 0.001}, {0.002, 0.002}}))
	return g
}

func newTestBuilder(g Graph, horizonDistance float64, expansion Expansion) *Builder {
	return NewBuilder(g, costfunction.NewTransitionFunction(), horizonDistance, expansion, zap.NewNop())
}

func TestShiftToPositiveRange(t *testing.T) {
	testCases := []struct {
		name  string
		costs []float64
		want  []float64
	}{
		{name: "empty", costs: []float64{}, want: []float64{}},
		{name: "single cost is not shifted", costs: []float64{-5}, want: []float64{-5}},
		{name: "positive costs shift by one", costs: []float64{1, 3}, want: []float64{2, 4}},
		{name: "negative costs", costs: []float64{-7, 2}, want: []float64{1, 10}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ShiftToPositiveRange(tc.costs))
		})
	}
}

func TestNormalizedProbabilities(t *testing.T) {
	testCases := []struct {
		name  string
		costs []float64
		want  []float64
	}{
		{name: "no candidates", costs: []float64{}, want: []float64{}},
		{name: "single candidate", costs: []float64{42}, want: []float64{1}},
		{name: "ties are uniform", costs: []float64{3, 3, 3, 3}, want: []float64{0.25, 0.25, 0.25, 0.25}},
		{name: "inverse cost", costs: []float64{1, 3}, want: []float64{0.75, 0.25}},
		{name: "zero cost counts as one", costs: []float64{0, 2}, want: []float64{2.0 / 3.0, 1.0 / 3.0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizedProbabilities(tc.costs)
			require.Len(t, got, len(tc.want))
			assert.InDeltaSlice(t, tc.want, got, 1e-12)
		})
	}
}

func TestNormalizedProbabilitiesSumToOne(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("shifted probabilities are in (0,1] and sum to 1", prop.ForAll(
		func(costs []float64) bool {
			probabilities := NormalizedProbabilities(ShiftToPositiveRange(costs))
			if len(probabilities) != len(costs) {
				return false
			}
			sum := 0.0
			for _, p := range probabilities {
				if p <= 0 || p > 1 {
					return false
				}
				sum += p
			}
			return math.Abs(sum-1) < 1e-9
		},
		gen.SliceOfN(6, gen.Float64Range(-100, 100)),
	))

	properties.TestingRun(t)
}

func TestParseExpansion(t *testing.T) {
	testCases := []struct {
		in      string
		want    Expansion
		wantErr bool
	}{
		{in: "LIMITED", want: LIMITED},
		{in: "full", want: FULL},
		{in: " Full ", want: FULL},
		{in: "partial", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseExpansion(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	var e Expansion
	require.NoError(t, e.UnmarshalText([]byte("FULL")))
	assert.Equal(t, FULL, e)
	text, err := LIMITED.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "LIMITED", string(text))
}

func TestClipIdentityOnFullRange(t *testing.T) {
	b := newTestBuilder(newChainGraph(), 1000, LIMITED)
	edge := newTestEdge(9, 1, 2, 0, 1, orb.LineString{{0, 0}, {0.001, 0.0005}, {0.002, 0.0005}, {0.003, 0}})

	assert.Same(t, edge, b.Clip(ruler, edge, 0, edge.GetLength()))
	assert.Same(t, edge, b.Clip(ruler, edge, -1, edge.GetLength()+10))
}

func TestClipLength(t *testing.T) {
	b := newTestBuilder(newChainGraph(), 1000, LIMITED)
	edge := newTestEdge(9, 1, 2, 0, 1, orb.LineString{{0, 0}, {0.001, 0.0005}, {0.002, 0.0005}, {0.003, 0}})
	length := edge.GetLength()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("clipped length is the window length", prop.ForAll(
		func(u, v float64) bool {
			start := math.Min(u, v) * length
			end := math.Max(u, v) * length
			if end-start < 1e-3 {
				return true
			}
			clipped := b.Clip(ruler, edge, start, end)
			return math.Abs(clipped.GetLength()-(end-start)) < 1e-6 &&
				clipped.GetID() == edge.GetID() &&
				clipped.GetOutNode() == edge.GetOutNode()
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

func TestBuildSingleSegment(t *testing.T) {
	g := newChainGraph()
	b := newTestBuilder(g, 50, LIMITED)

	h := b.Build(ruler, g.Edge(1), 20)
	assert.True(t, h.Start().IsLeaf())
	assert.Equal(t, datastructure.EdgeID(1), h.Current().GetID())
	assert.InDelta(t, 50, h.Length(), 1e-6)
	assert.InDelta(t, 0.001*20/ruler.Distance(orb.Point{0, 0}, orb.Point{0.001, 0}), h.Current().GetCenterline()[0].Lon(), 1e-12)
}

func TestBuildChain(t *testing.T) {
	g := newChainGraph()
	b := newTestBuilder(g, 300, LIMITED)

	h := b.Build(ruler, g.Edge(1), 50)

	// the counterpart 20 of edge 2 is never part of the horizon.
	assert.Equal(t, []datastructure.EdgeID{1, 2, 3, 4}, edgeIDs(h.MostProbablePath()))
	assert.Equal(t, []datastructure.EdgeID{1, 2, 3, 4}, edgeIDs(h.Edges()))
	assert.InDelta(t, 300, h.Length(), 1e-6)

	for _, n := range h.Start().GetOut() {
		assert.Equal(t, 1.0, n.GetProbability())
		assert.InDelta(t, 0, n.GetBearingDiff(), 1e-9)
	}
}

func TestBuildNeverExceedsHorizonDistance(t *testing.T) {
	g := newChainGraph()

	for _, distance := range []float64{10, 120, 250, 333, 1000} {
		h := newTestBuilder(g, distance, FULL).Build(ruler, g.Edge(1), 0)
		assert.LessOrEqual(t, h.Length(), distance+1e-6)
	}
}

func TestBuildDropsDegenerateSuccessors(t *testing.T) {
	g := newChainGraph()
	edgeLength := g.Edge(1).GetLength()

	// less than a meter of budget left after edge 1.
	h := newTestBuilder(g, edgeLength+0.5, LIMITED).Build(ruler, g.Edge(1), 0)
	assert.True(t, h.Start().IsLeaf())
}

func TestBuildExpansion(t *testing.T) {
	testCases := []struct {
		name      string
		expansion Expansion
		want      []datastructure.EdgeID
	}{
		{name: "limited expands only the most probable successor", expansion: LIMITED, want: []datastructure.EdgeID{2, 3, 7, 5}},
		{name: "full expands every successor", expansion: FULL, want: []datastructure.EdgeID{2, 3, 7, 5, 6}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := newForkGraph()
			h := newTestBuilder(g, 400, tc.expansion).Build(ruler, g.Edge(2), 0)

			assert.Equal(t, tc.want, edgeIDs(h.Edges()))
			assert.Equal(t, []datastructure.EdgeID{2, 3, 7}, edgeIDs(h.MostProbablePath()))

			out := h.Start().GetOut()
			require.Len(t, out, 2)
			assert.Greater(t, out[0].GetProbability(), out[1].GetProbability())
			assert.InDelta(t, 1, out[0].GetProbability()+out[1].GetProbability(), 1e-12)
			assert.InDelta(t, -90, out[1].GetBearingDiff(), 1e-6)
		})
	}
}

func TestBuildVisitsEachEdgeOnce(t *testing.T) {
	// diamond 3 -> {4, 5} -> 6 -> 7, edge 14 is reachable through both branches.
	g := datastructure.NewRoadGraph(zap.NewNop())
	g.AddEdge(newTestEdge(2, 2, 3, 0, 1, orb.LineString{{0.001, 0}, {0.002, 0}}))
	g.AddEdge(newTestEdge(10, 3, 4, 0, 2, orb.LineString{{0.002, 0}, {0.003, 0.0005}}))
	g.AddEdge(newTestEdge(11, 3, 5, 0, 3, orb.LineString{{0.002, 0}, {0.003, -0.0005}}))
	g.AddEdge(newTestEdge(12, 4, 6, 0, 2, orb.LineString{{0.003, 0.0005}, {0.004, 0}}))
	g.AddEdge(newTestEdge(13, 5, 6, 0, 3, orb.LineString{{0.003, -0.0005}, {0.004, 0}}))
	g.AddEdge(newTestEdge(14, 6, 7, 0, 4, orb.LineString{{0.004, 0}, {0.005, 0}}))

	h := newTestBuilder(g, 1000, FULL).Build(ruler, g.Edge(2), 0)

	ids := edgeIDs(h.Edges())
	assert.Equal(t, []datastructure.EdgeID{2, 10, 12, 14, 11, 13}, ids)

	seen := make(map[datastructure.EdgeID]struct{})
	for _, id := range ids {
		_, dup := seen[id]
		assert.False(t, dup, "edge %d appears twice", id)
		seen[id] = struct{}{}
	}
}

func TestEHorizonDepth(t *testing.T) {
	g := newForkGraph()
	h := newTestBuilder(g, 400, FULL).Build(ruler, g.Edge(2), 0)
	assert.Equal(t, 3, h.Depth())
}
