package usecases

import (
	"context"

	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/engine"
	"github.com/lintang-b-s/ehorizon/pkg/util"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

type HorizonService struct {
	log    *zap.Logger
	engine HorizonEngine
}

func NewHorizonService(log *zap.Logger, engine HorizonEngine) *HorizonService {
	return &HorizonService{
		log:    log,
		engine: engine,
	}
}

func (hs *HorizonService) UpdatePosition(lat, lon float64) {
	hs.engine.UpdateState(orb.Point{lon, lat})
}

func (hs *HorizonService) Configuration(ctx context.Context) (engine.Configuration, error) {
	cfg, err := hs.engine.Configuration(ctx)
	if err != nil {
		return engine.Configuration{}, util.WrapErrorf(err, util.ErrInternalServerError, "reading engine configuration")
	}
	return cfg, nil
}

// UpdateConfiguration. applies cfg and returns the resulting configuration.
func (hs *HorizonService) UpdateConfiguration(ctx context.Context, cfg engine.Configuration) (engine.Configuration, error) {
	if err := hs.engine.UpdateConfiguration(cfg); err != nil {
		if util.ErrorCode(err) == util.ErrBadParamInput {
			return engine.Configuration{}, err
		}
		return engine.Configuration{}, util.WrapErrorf(err, util.ErrInternalServerError, "updating engine configuration")
	}
	return hs.Configuration(ctx)
}

func (hs *HorizonService) LastUpdate(ctx context.Context) (engine.Update, error) {
	update, err := hs.engine.LastUpdate(ctx)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "reading last horizon update")
	}
	if update == nil {
		return nil, util.WrapErrorf(nil, util.ErrNotFound, "no position received yet")
	}
	return update, nil
}

func (hs *HorizonService) Edges(ctx context.Context) ([]*datastructure.Edge, error) {
	edges, err := hs.engine.AllEdges(ctx)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "reading graph edges")
	}
	return edges, nil
}

func (hs *HorizonService) Edge(ctx context.Context, id datastructure.EdgeID) (*datastructure.Edge, error) {
	return hs.engine.Edge(ctx, id)
}

func (hs *HorizonService) ConnectedEdges(ctx context.Context, node datastructure.NodeID) ([]*datastructure.Edge, error) {
	edges, err := hs.engine.ConnectedEdges(ctx, node)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "reading edges of node %d", node)
	}
	return edges, nil
}

// Reachable. ErrNotFound if the start edge is not loaded.
func (hs *HorizonService) Reachable(ctx context.Context, id datastructure.EdgeID, offset,
	distance float64) ([]*datastructure.Edge, error) {
	if _, err := hs.engine.Edge(ctx, id); err != nil {
		return nil, err
	}
	edges, err := hs.engine.OutEdgesAtMaxDistance(ctx, id, offset, distance)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "reading edges reachable from %d", id)
	}
	return edges, nil
}

// Match. loaded edges at the position, or around it when radius is positive.
func (hs *HorizonService) Match(ctx context.Context, lat, lon, radius float64) ([]*datastructure.Edge, error) {
	edges, err := hs.engine.Match(ctx, orb.Point{lon, lat}, radius)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "matching position %f,%f", lat, lon)
	}
	return edges, nil
}

func (hs *HorizonService) Stats(ctx context.Context) (engine.GraphStats, error) {
	stats, err := hs.engine.GraphStats(ctx)
	if err != nil {
		return engine.GraphStats{}, util.WrapErrorf(err, util.ErrInternalServerError, "reading graph stats")
	}
	return stats, nil
}
