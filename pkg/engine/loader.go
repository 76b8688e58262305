package engine

import (
	"time"

	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/storage"
	"github.com/lintang-b-s/ehorizon/pkg/tile"
	"github.com/lintang-b-s/ehorizon/pkg/vectortile"
	"go.uber.org/zap"
)

const (
	OUTCOME_SUCCESS    = "success"
	OUTCOME_NO_CONTENT = "no_content"
)

// evict. cancel the requests of tiles outside required and remove the edges no required tile references.
func (e *MapEngine) evict(required tile.Set) {
	for t, req := range e.requests {
		if required.Contains(t) {
			continue
		}
		e.log.Debug("removing request for tile", zap.String("tile", t.String()))
		req.Cancel()
		delete(e.requests, t)
		delete(e.loaded, t)
	}

	retained := make(map[datastructure.EdgeID]struct{})
	stale := make(map[datastructure.EdgeID]struct{})
	for t, ids := range e.tileEdges {
		if required.Contains(t) {
			for _, id := range ids {
				retained[id] = struct{}{}
			}
			continue
		}
		for _, id := range ids {
			stale[id] = struct{}{}
		}
		delete(e.tileEdges, t)
	}

	removed := 0
	for id := range stale {
		if _, ok := retained[id]; ok {
			continue
		}
		edge := e.graph.Edge(id)
		if edge == nil {
			e.log.Warn("cannot remove edge, it is not in the graph", zap.Int64("edge_id", int64(id)))
			continue
		}
		e.graph.RemoveEdge(edge)
		removed++
	}

	if removed > 0 {
		e.log.Info("removed edges", zap.Int("removed", removed), zap.Int("edges", e.graph.NumberOfEdges()))
		e.metrics.RecordEviction(removed)
		e.reportGraphSize()
	}
}

// request. start fetching every required tile that is neither pending nor loaded.
func (e *MapEngine) request(required tile.Set) {
	for _, t := range required.Sorted() {
		if _, ok := e.requests[t]; ok {
			continue
		}

		req := e.source.Request(e.ctx, t)
		e.requests[t] = req
		e.metrics.RecordTileRequest(1)
		go e.await(req)
	}
}

func (e *MapEngine) await(req *storage.Request) {
	resp := <-req.Done()
	e.metrics.RecordTileRequest(-1)

	if err := e.looper.Post(func() {
		e.handleResponse(req, resp)
	}); err != nil {
		e.log.Debug("dropping tile response, engine loop stopped", zap.String("tile", req.Tile().String()))
	}
}

// current. false once the tile of req was evicted or requested again.
func (e *MapEngine) current(req *storage.Request) bool {
	return e.requests[req.Tile()] == req
}

func (e *MapEngine) handleResponse(req *storage.Request, resp storage.Response) {
	t := req.Tile()
	if !e.current(req) {
		e.log.Debug("ignoring response of evicted tile", zap.String("tile", t.String()))
		e.metrics.RecordStaleTile()
		return
	}

	if resp.IsError() {
		e.log.Error("failed to load tile", zap.String("tile", t.String()), zap.Error(resp.Err))
		e.metrics.RecordTileResponse(resp.Err.Kind.String())
		delete(e.requests, t)
		return
	}

	if resp.NoContent {
		e.metrics.RecordTileResponse(OUTCOME_NO_CONTENT)
	} else {
		e.metrics.RecordTileResponse(OUTCOME_SUCCESS)
	}

	data := resp.Data
	if err := e.pool.Schedule(func() {
		e.decode(req, data)
	}); err != nil {
		e.log.Error("cannot schedule tile decode", zap.String("tile", t.String()), zap.Error(err))
		delete(e.requests, t)
	}
}

// decode. runs on the decode pool, the result is applied on the loop.
func (e *MapEngine) decode(req *storage.Request, data []byte) {
	start := time.Now()
	decoded, err := e.decoder.Decode(req.Tile(), data)
	e.metrics.RecordDecode(time.Since(start), err)

	if perr := e.looper.Post(func() {
		e.applyTile(req, decoded, err)
	}); perr != nil {
		e.log.Debug("dropping decoded tile, engine loop stopped", zap.String("tile", req.Tile().String()))
	}
}

func (e *MapEngine) applyTile(req *storage.Request, decoded *vectortile.Tile, err error) {
	t := req.Tile()
	if !e.current(req) {
		e.log.Debug("ignoring decoded tile, it was evicted", zap.String("tile", t.String()))
		e.metrics.RecordStaleTile()
		return
	}

	if err != nil {
		// the handle stays, the tile is not requested again while it is part of the cover.
		e.log.Error("could not decode tile", zap.String("tile", t.String()), zap.Error(err))
		return
	}

	e.graph.AddEdges(decoded.Edges)
	e.graph.AddDrivablePaths(decoded.DrivablePaths)

	ids := make([]datastructure.EdgeID, 0, len(decoded.Edges))
	for _, edge := range decoded.Edges {
		if e.graph.HasEdge(edge.GetID()) {
			ids = append(ids, edge.GetID())
		}
	}
	e.tileEdges[t] = ids
	e.loaded[t] = struct{}{}
	e.reportGraphSize()

	e.log.Debug("loaded tile", zap.String("tile", t.String()), zap.Int("edges", len(ids)),
		zap.Int("drivable_paths", len(decoded.DrivablePaths)), zap.String("graph", e.graph.String()))

	e.updateHorizon()
}
