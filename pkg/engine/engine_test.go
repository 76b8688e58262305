package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lintang-b-s/ehorizon/pkg/concurrent"
	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/geo"
	"github.com/lintang-b-s/ehorizon/pkg/horizon"
	"github.com/lintang-b-s/ehorizon/pkg/metrics"
	"github.com/lintang-b-s/ehorizon/pkg/storage"
	"github.com/lintang-b-s/ehorizon/pkg/tile"
	"github.com/lintang-b-s/ehorizon/pkg/util"
	"github.com/lintang-b-s/ehorizon/pkg/vectortile"
	"github.com/paulmach/orb"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testHorizonDistance = 200
	testUpdateFrequency = 10
	waitFor             = 2 * time.Second
	tick                = 5 * time.Millisecond
)

var (
	start = orb.Point{0.0002, 0.00001}
	ahead = orb.Point{0.0005, 0.00001}

	roadTile = tile.UnwrappedTileIDFromPoint(start, 15).Canonical()
	t1       = tile.NewCanonicalTileID(15, 100, 100)
	t2       = tile.NewCanonicalTileID(15, 101, 100)
	t3       = tile.NewCanonicalTileID(15, 102, 100)
)

type fakeSource struct {
	mu        sync.Mutex
	requested []tile.CanonicalTileID
	cancelled []tile.CanonicalTileID
	failing   map[tile.CanonicalTileID]storage.ErrorKind
	held      map[tile.CanonicalTileID]bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		failing: make(map[tile.CanonicalTileID]storage.ErrorKind),
		held:    make(map[tile.CanonicalTileID]bool),
	}
}

// Request. held tiles only complete once cancelled.
func (s *fakeSource) Request(ctx context.Context, t tile.CanonicalTileID) *storage.Request {
	s.mu.Lock()
	s.requested = append(s.requested, t)
	kind, fails := s.failing[t]
	held := s.held[t]
	s.mu.Unlock()

	return storage.NewRequest(ctx, t, func(ctx context.Context) storage.Response {
		switch {
		case held:
			<-ctx.Done()
			s.mu.Lock()
			s.cancelled = append(s.cancelled, t)
			s.mu.Unlock()
			return storage.Failure(storage.OTHER, "cancelled")
		case fails:
			return storage.Failure(kind, "tile %s failed", t)
		default:
			return storage.Success([]byte(t.String()))
		}
	})
}

func (s *fakeSource) getRequested() []tile.CanonicalTileID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tile.CanonicalTileID(nil), s.requested...)
}

func (s *fakeSource) getCancelled() []tile.CanonicalTileID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tile.CanonicalTileID(nil), s.cancelled...)
}

type fakeDecoder struct {
	edges  map[tile.CanonicalTileID][]*datastructure.Edge
	broken map[tile.CanonicalTileID]bool
}

func (d *fakeDecoder) Decode(t tile.CanonicalTileID, data []byte) (*vectortile.Tile, error) {
	if d.broken[t] {
		return nil, errors.New("malformed tile")
	}
	return &vectortile.Tile{
		ID:            t,
		Edges:         d.edges[t],
		DrivablePaths: make([]*datastructure.DrivablePath, 0),
	}, nil
}

type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) OnUpdate(u Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func (r *recorder) first() Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return nil
	}
	return r.updates[0]
}

func (r *recorder) last() Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return nil
	}
	return r.updates[len(r.updates)-1]
}

func newTestEdge(id datastructure.EdgeID, in, out datastructure.NodeID, counterpart datastructure.EdgeID,
	line orb.LineString) *datastructure.Edge {
	return datastructure.NewEdge(datastructure.EdgeParams{
		ID:            id,
		Length:        geo.NewMeterRuler(0).LineDistance(line),
		InNode:        in,
		OutNode:       out,
		CounterpartID: counterpart,
		WayID:         1,
		Centerline:    line,
	})
}

// 1 -> 2 -> 3 -> 4 along the equator, 2 is two way with counterpart 20.
func chainEdges() []*datastructure.Edge {
	return []*datastructure.Edge{
		newTestEdge(1, 1, 2, 0, orb.LineString{{0, 0}, {0.001, 0}}),
		newTestEdge(2, 2, 3, 20, orb.LineString{{0.001, 0}, {0.002, 0}}),
		newTestEdge(20, 3, 2, 2, orb.LineString{{0.002, 0}, {0.001, 0}}),
		newTestEdge(3, 3, 4, 0, orb.LineString{{0.002, 0}, {0.003, 0}}),
		newTestEdge(4, 4, 5, 0, orb.LineString{{0.003, 0}, {0.004, 0}}),
	}
}

func newTestEngine(t *testing.T, source storage.TileSource, decoder vectortile.Decoder,
	registry *metrics.Registry) *MapEngine {
	t.Helper()
	opts := DefaultOptions()
	opts.Configuration = DefaultConfiguration().
		WithHorizonDistance(testHorizonDistance).
		WithUpdateFrequency(testUpdateFrequency)
	opts.Metrics = registry

	e, err := NewMapEngine(source, decoder, opts, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func roadDecoder() *fakeDecoder {
	return &fakeDecoder{
		edges: map[tile.CanonicalTileID][]*datastructure.Edge{
			roadTile: chainEdges(),
		},
	}
}

func expectedCover(p orb.Point) []tile.CanonicalTileID {
	area := geo.NewMeterRuler(p.Lat()).BufferPoint(p, testHorizonDistance)
	return tile.NewSet(tile.Cover(area, 15)...).Sorted()
}

func graphEdges(t *testing.T, e *MapEngine) int {
	stats, err := e.GraphStats(context.Background())
	require.NoError(t, err)
	return stats.Edges
}

func TestEngineMatchesOnceTilesAreLoaded(t *testing.T) {
	source := newFakeSource()
	e := newTestEngine(t, source, roadDecoder(), nil)
	e.Start()

	rec := &recorder{}
	e.RegisterListener(rec)

	e.UpdateState(start)
	require.Eventually(t, func() bool { return graphEdges(t, e) == 5 }, waitFor, tick)
	assert.ElementsMatch(t, expectedCover(start), source.getRequested())

	// without a travel bearing the position stays unmatched, the nearest edges are reported.
	require.Eventually(t, func() bool {
		u, ok := rec.last().(*Unmatched)
		return ok && len(u.PossibleMatches()) > 0
	}, waitFor, tick)
	unmatched := rec.last().(*Unmatched)
	assert.Equal(t, start, unmatched.Position())
	assert.Equal(t, datastructure.EdgeID(1), unmatched.PossibleMatches()[0].Edge.GetID())

	e.UpdateState(ahead)
	require.Eventually(t, func() bool { return rec.last().Kind() == MATCHED }, waitFor, tick)

	matched := rec.last().(*Matched)
	assert.Equal(t, datastructure.EdgeID(1), matched.Horizon().Current().GetID())
	assert.InDelta(t, ahead.Lon(), matched.Position().Lon(), 1e-9)
	assert.InDelta(t, 0, matched.Position().Lat(), 1e-9)
	assert.Equal(t, expectedCover(ahead), matched.TileIDs())

	last, err := e.LastUpdate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, MATCHED, last.Kind())
}

func TestEngineDebounce(t *testing.T) {
	source := newFakeSource()
	e := newTestEngine(t, source, roadDecoder(), nil)
	e.Start()

	rec := &recorder{}
	e.RegisterListener(rec)

	// a burst collapses into the latest position.
	for i := 0; i < 10; i++ {
		e.UpdateState(orb.Point{0.0002 + float64(i)*0.00001, 0.00001})
	}

	require.Eventually(t, func() bool { return rec.count() > 0 }, waitFor, tick)
	assert.InDelta(t, 0.0002+9*0.00001, rec.first().Position().Lon(), 1e-12)
}

func TestEngineEvictsStaleTiles(t *testing.T) {
	source := newFakeSource()
	source.held[t1] = true
	source.held[t2] = true
	source.held[t3] = true
	e := newTestEngine(t, source, &fakeDecoder{}, nil)

	// loop not started, the test goroutine owns the loop state.
	e.request(tile.NewSet(t1, t2))
	edges := chainEdges()
	e.graph.AddEdges(edges)
	e.tileEdges[t1] = []datastructure.EdgeID{1, 2, 20}
	e.tileEdges[t2] = []datastructure.EdgeID{2, 20, 3, 4}

	required := tile.NewSet(t2, t3)
	e.evict(required)
	e.request(required)

	assert.Equal(t, []tile.CanonicalTileID{t2, t3}, e.tileIDs())
	assert.Equal(t, []tile.CanonicalTileID{t1, t2, t3}, source.getRequested())

	assert.False(t, e.graph.HasEdge(1))
	for _, id := range []datastructure.EdgeID{2, 20, 3, 4} {
		assert.True(t, e.graph.HasEdge(id), "edge %d", id)
	}
	_, ok := e.tileEdges[t1]
	assert.False(t, ok)

	require.Eventually(t, func() bool { return len(source.getCancelled()) == 1 }, waitFor, tick)
	assert.Equal(t, []tile.CanonicalTileID{t1}, source.getCancelled())
}

func TestEngineEvictToleratesMissingEdges(t *testing.T) {
	e := newTestEngine(t, newFakeSource(), &fakeDecoder{}, nil)

	e.tileEdges[t1] = []datastructure.EdgeID{42}
	assert.NotPanics(t, func() { e.evict(tile.NewSet()) })
	assert.Empty(t, e.tileEdges)
}

func TestEngineDiscardsResponsesOfEvictedTiles(t *testing.T) {
	registry := metrics.NewRegistry()
	e := newTestEngine(t, newFakeSource(), roadDecoder(), registry)

	req := e.source.Request(context.Background(), roadTile)
	e.requests[roadTile] = req
	e.evict(tile.NewSet())

	e.handleResponse(req, storage.Success([]byte("late")))
	decoded, err := e.decoder.Decode(roadTile, nil)
	require.NoError(t, err)
	e.applyTile(req, decoded, nil)

	assert.True(t, e.graph.IsEmpty())
	assert.Empty(t, e.requests)

	var m dto.Metric
	require.NoError(t, registry.StaleTileResponseTotal.Write(&m))
	assert.Equal(t, 2.0, m.GetCounter().GetValue())
}

func TestEngineDropsFailedRequests(t *testing.T) {
	registry := metrics.NewRegistry()
	e := newTestEngine(t, newFakeSource(), roadDecoder(), registry)

	req := e.source.Request(context.Background(), roadTile)
	e.requests[roadTile] = req
	e.handleResponse(req, storage.Failure(storage.NOT_FOUND, "missing"))

	assert.Empty(t, e.requests)
	assert.True(t, e.graph.IsEmpty())

	var m dto.Metric
	require.NoError(t, registry.TileResponsesTotal.WithLabelValues("NotFound").Write(&m))
	assert.Equal(t, 1.0, m.GetCounter().GetValue())
}

func TestEngineApplyTile(t *testing.T) {
	registry := metrics.NewRegistry()
	e := newTestEngine(t, newFakeSource(), roadDecoder(), registry)

	req := e.source.Request(context.Background(), roadTile)
	e.requests[roadTile] = req

	decoded, err := e.decoder.Decode(roadTile, nil)
	require.NoError(t, err)
	e.applyTile(req, decoded, nil)

	assert.Equal(t, 5, e.graph.NumberOfEdges())
	assert.ElementsMatch(t, []datastructure.EdgeID{1, 2, 20, 3, 4}, e.tileEdges[roadTile])
	assert.True(t, e.loaded.Contains(roadTile))

	var m dto.Metric
	require.NoError(t, registry.GraphEdges.Write(&m))
	assert.Equal(t, 5.0, m.GetGauge().GetValue())

	// a decode failure keeps the handle so the tile is not fetched again.
	broken := tile.NewCanonicalTileID(15, 1, 1)
	brokenReq := e.source.Request(context.Background(), broken)
	e.requests[broken] = brokenReq
	e.applyTile(brokenReq, nil, errors.New("malformed tile"))
	assert.Contains(t, e.requests, broken)
	assert.False(t, e.loaded.Contains(broken))
}

func TestEngineConfiguration(t *testing.T) {
	e := newTestEngine(t, newFakeSource(), roadDecoder(), nil)
	e.Start()
	ctx := context.Background()

	cfg, err := e.Configuration(ctx)
	require.NoError(t, err)
	assert.Equal(t, testHorizonDistance, cfg.GetHorizonDistance())
	assert.Equal(t, testUpdateFrequency*time.Millisecond, cfg.GetUpdateFrequency())
	assert.Equal(t, horizon.LIMITED, cfg.GetExpansion())

	require.NoError(t, e.UpdateConfiguration(NewConfiguration().WithExpansion(horizon.FULL)))
	cfg, err = e.Configuration(ctx)
	require.NoError(t, err)
	assert.Equal(t, horizon.FULL, cfg.GetExpansion())
	assert.Equal(t, testHorizonDistance, cfg.GetHorizonDistance())

	require.NoError(t, e.UpdateConfiguration(NewConfiguration().WithHorizonDistance(500).WithUpdateFrequency(50)))
	cfg, err = e.Configuration(ctx)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.GetHorizonDistance())
	assert.Equal(t, 50*time.Millisecond, e.debouncer.Interval())

	err = e.UpdateConfiguration(NewConfiguration().WithHorizonDistance(-1))
	require.Error(t, err)
	assert.Equal(t, util.ErrBadParamInput, util.ErrorCode(err))

	err = e.UpdateConfiguration(NewConfiguration().WithHorizonDistance(MAX_HORIZON_DISTANCE * 100))
	require.Error(t, err)
	cfg, err = e.Configuration(ctx)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.GetHorizonDistance())
}

func TestEngineListeners(t *testing.T) {
	e := newTestEngine(t, newFakeSource(), roadDecoder(), nil)
	e.Start()

	removed := &recorder{}
	kept := &recorder{}
	id := e.RegisterListener(removed)
	e.RegisterListener(ListenerFunc(func(Update) { panic("listener failure") }))
	e.RegisterListener(kept)
	e.UnregisterListener(id)

	e.UpdateState(start)
	require.Eventually(t, func() bool { return kept.count() > 0 }, waitFor, tick)
	assert.Equal(t, 0, removed.count())

	// the panicking listener does not halt the loop.
	_, err := e.GraphStats(context.Background())
	assert.NoError(t, err)
}

func TestEngineDebugAsks(t *testing.T) {
	e := newTestEngine(t, newFakeSource(), roadDecoder(), nil)
	e.Start()
	ctx := context.Background()

	e.UpdateState(start)
	require.Eventually(t, func() bool { return graphEdges(t, e) == 5 }, waitFor, tick)

	all, err := e.AllEdges(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	connected, err := e.ConnectedEdges(ctx, 2)
	require.NoError(t, err)
	ids := make([]datastructure.EdgeID, 0)
	for _, edge := range connected {
		ids = append(ids, edge.GetID())
	}
	assert.ElementsMatch(t, []datastructure.EdgeID{1, 2, 20}, ids)

	reachable, err := e.OutEdgesAtMaxDistance(ctx, 1, 0, 150)
	require.NoError(t, err)
	assert.NotEmpty(t, reachable)

	edge, err := e.Edge(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, datastructure.EdgeID(3), edge.GetID())

	_, err = e.Edge(ctx, 99)
	assert.Equal(t, util.ErrNotFound, util.ErrorCode(err))

	matched, err := e.Match(ctx, orb.Point{0.0015, 0}, 0)
	require.NoError(t, err)
	ids = ids[:0]
	for _, edge := range matched {
		ids = append(ids, edge.GetID())
	}
	assert.Equal(t, []datastructure.EdgeID{2, 20}, ids)

	nearby, err := e.Match(ctx, orb.Point{0.0015, 0.0001}, 100)
	require.NoError(t, err)
	assert.Len(t, nearby, 4)

	empty, err := e.Match(ctx, orb.Point{0.0015, 0.0001}, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	tiles, err := e.TileIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, expectedCover(start), tiles)

	require.Eventually(t, func() bool {
		stats, err := e.GraphStats(ctx)
		return err == nil && stats.LoadedTiles == len(expectedCover(start))
	}, waitFor, tick)
}

func TestEngineClose(t *testing.T) {
	source := newFakeSource()
	source.held[roadTile] = true
	e := newTestEngine(t, source, roadDecoder(), nil)
	e.Start()

	e.UpdateState(start)
	require.Eventually(t, func() bool { return len(source.getRequested()) > 0 }, waitFor, tick)
	e.Close()

	require.Eventually(t, func() bool { return len(source.getCancelled()) == 1 }, waitFor, tick)
	assert.ErrorIs(t, e.UpdateConfiguration(NewConfiguration().WithHorizonDistance(10)), concurrent.ErrLooperStopped)
	_, err := e.Configuration(context.Background())
	assert.Error(t, err)

	assert.NotPanics(t, func() {
		e.UpdateState(ahead)
		e.Close()
	})
}

func TestConfigurationMerge(t *testing.T) {
	base := DefaultConfiguration()
	assert.Equal(t, DEFAULT_HORIZON_DISTANCE, base.GetHorizonDistance())
	assert.Equal(t, DEFAULT_UPDATE_FREQUENCY*time.Millisecond, base.GetUpdateFrequency())
	assert.Equal(t, horizon.LIMITED, base.GetExpansion())

	testCases := []struct {
		name     string
		update   Configuration
		distance int
		freq     time.Duration
		exp      horizon.Expansion
	}{
		{name: "empty update keeps everything", update: NewConfiguration(),
			distance: 1000, freq: 200 * time.Millisecond, exp: horizon.LIMITED},
		{name: "distance only", update: NewConfiguration().WithHorizonDistance(300),
			distance: 300, freq: 200 * time.Millisecond, exp: horizon.LIMITED},
		{name: "all fields", update: NewConfiguration().WithHorizonDistance(10).WithUpdateFrequency(5).WithExpansion(horizon.FULL),
			distance: 10, freq: 5 * time.Millisecond, exp: horizon.FULL},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			merged := base.Merge(tc.update)
			assert.Equal(t, tc.distance, merged.GetHorizonDistance())
			assert.Equal(t, tc.freq, merged.GetUpdateFrequency())
			assert.Equal(t, tc.exp, merged.GetExpansion())
		})
	}

	// base is not modified by a merge.
	assert.Equal(t, DEFAULT_HORIZON_DISTANCE, base.GetHorizonDistance())
	assert.True(t, NewConfiguration().IsEmpty())
}

func TestConfigurationValidate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Configuration
		wantErr bool
	}{
		{name: "empty", cfg: NewConfiguration()},
		{name: "defaults", cfg: DefaultConfiguration()},
		{name: "max distance", cfg: NewConfiguration().WithHorizonDistance(MAX_HORIZON_DISTANCE)},
		{name: "distance above max", cfg: NewConfiguration().WithHorizonDistance(MAX_HORIZON_DISTANCE + 1), wantErr: true},
		{name: "huge distance", cfg: NewConfiguration().WithHorizonDistance(1_000_000), wantErr: true},
		{name: "zero distance", cfg: NewConfiguration().WithHorizonDistance(0), wantErr: true},
		{name: "negative frequency", cfg: NewConfiguration().WithUpdateFrequency(-5), wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, util.ErrBadParamInput, util.ErrorCode(err))
		})
	}
}

func TestFacadeDefaults(t *testing.T) {
	h, err := NewEHorizon("token", "example.roads", zap.NewNop())
	require.NoError(t, err)
	h.Start()
	defer h.Close()

	require.NoError(t, h.UpdateConfiguration(nil))
	cfg, err := h.Engine().Configuration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FACADE_UPDATE_FREQUENCY*time.Millisecond, cfg.GetUpdateFrequency())
	assert.Equal(t, DEFAULT_HORIZON_DISTANCE, cfg.GetHorizonDistance())
}
