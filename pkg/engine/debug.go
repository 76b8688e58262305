package engine

import (
	"context"

	"github.com/lintang-b-s/ehorizon/pkg/concurrent"
	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/tile"
	"github.com/lintang-b-s/ehorizon/pkg/util"
	"github.com/paulmach/orb"
)

// introspection of the loop owned state. edges are never mutated after construction, sharing them is safe.

type GraphStats struct {
	Edges          int `json:"edges"`
	Nodes          int `json:"nodes"`
	RequestedTiles int `json:"requested_tiles"`
	LoadedTiles    int `json:"loaded_tiles"`
}

func (e *MapEngine) AllEdges(ctx context.Context) ([]*datastructure.Edge, error) {
	return concurrent.Ask(ctx, e.looper, func() []*datastructure.Edge {
		return e.graph.Edges()
	})
}

func (e *MapEngine) Edge(ctx context.Context, id datastructure.EdgeID) (*datastructure.Edge, error) {
	edge, err := concurrent.Ask(ctx, e.looper, func() *datastructure.Edge {
		return e.graph.Edge(id)
	})
	if err != nil {
		return nil, err
	}
	if edge == nil {
		return nil, util.WrapErrorf(nil, util.ErrNotFound, "edge %d is not loaded", id)
	}
	return edge, nil
}

// ConnectedEdges. incoming and outgoing edges of the node.
func (e *MapEngine) ConnectedEdges(ctx context.Context, node datastructure.NodeID) ([]*datastructure.Edge, error) {
	return concurrent.Ask(ctx, e.looper, func() []*datastructure.Edge {
		return e.graph.ConnectedEdges(node)
	})
}

// OutEdgesAtMaxDistance. edges reachable from the edge within maxDistance meters after offset.
func (e *MapEngine) OutEdgesAtMaxDistance(ctx context.Context, id datastructure.EdgeID, offset,
	maxDistance float64) ([]*datastructure.Edge, error) {
	return concurrent.Ask(ctx, e.looper, func() []*datastructure.Edge {
		return e.graph.OutEdgesAtMaxDistanceFromEdgeID(id, offset, maxDistance)
	})
}

/*
Match. loaded edges around the position. with radius <= 0 the edges whose bounding box contains the position,
otherwise the edges whose bounding box intersects the box of radius meters around it.
*/
func (e *MapEngine) Match(ctx context.Context, position orb.Point, radius float64) ([]*datastructure.Edge, error) {
	return concurrent.Ask(ctx, e.looper, func() []*datastructure.Edge {
		if radius <= 0 {
			return e.graph.Match(position)
		}
		return e.graph.MatchWithinRadius(position, radius)
	})
}

func (e *MapEngine) TileIDs(ctx context.Context) ([]tile.CanonicalTileID, error) {
	return concurrent.Ask(ctx, e.looper, e.tileIDs)
}

func (e *MapEngine) GraphStats(ctx context.Context) (GraphStats, error) {
	return concurrent.Ask(ctx, e.looper, func() GraphStats {
		return GraphStats{
			Edges:          e.graph.NumberOfEdges(),
			Nodes:          e.graph.NumberOfNodes(),
			RequestedTiles: len(e.requests),
			LoadedTiles:    len(e.loaded),
		}
	})
}
