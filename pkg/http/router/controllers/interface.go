package controllers

import (
	"context"

	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/engine"
)

type HorizonService interface {
	UpdatePosition(lat, lon float64)
	Configuration(ctx context.Context) (engine.Configuration, error)
	UpdateConfiguration(ctx context.Context, cfg engine.Configuration) (engine.Configuration, error)
	LastUpdate(ctx context.Context) (engine.Update, error)
	Edges(ctx context.Context) ([]*datastructure.Edge, error)
	Edge(ctx context.Context, id datastructure.EdgeID) (*datastructure.Edge, error)
	ConnectedEdges(ctx context.Context, node datastructure.NodeID) ([]*datastructure.Edge, error)
	Reachable(ctx context.Context, id datastructure.EdgeID, offset, distance float64) ([]*datastructure.Edge, error)
	Match(ctx context.Context, lat, lon, radius float64) ([]*datastructure.Edge, error)
	Stats(ctx context.Context) (engine.GraphStats, error)
}

type SessionService interface {
	NewSession() (*engine.MapEngine, error)
	CloseSession(e *engine.MapEngine)
}
