package usecases

import (
	"context"

	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/engine"
	"github.com/paulmach/orb"
)

type HorizonEngine interface {
	UpdateState(position orb.Point)
	UpdateConfiguration(cfg engine.Configuration) error
	Configuration(ctx context.Context) (engine.Configuration, error)
	LastUpdate(ctx context.Context) (engine.Update, error)
	AllEdges(ctx context.Context) ([]*datastructure.Edge, error)
	Edge(ctx context.Context, id datastructure.EdgeID) (*datastructure.Edge, error)
	ConnectedEdges(ctx context.Context, node datastructure.NodeID) ([]*datastructure.Edge, error)
	OutEdgesAtMaxDistance(ctx context.Context, id datastructure.EdgeID, offset, maxDistance float64) ([]*datastructure.Edge, error)
	Match(ctx context.Context, position orb.Point, radius float64) ([]*datastructure.Edge, error)
	GraphStats(ctx context.Context) (engine.GraphStats, error)
}

// EngineFactory. a new engine, not yet started, for one vehicle session.
type EngineFactory func() (*engine.MapEngine, error)
