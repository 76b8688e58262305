package engine

import (
	"github.com/lintang-b-s/ehorizon/pkg/storage"
	"github.com/lintang-b-s/ehorizon/pkg/tile"
	"github.com/lintang-b-s/ehorizon/pkg/vectortile"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

// update frequency (ms) the facade applies when UpdateConfiguration is called without a configuration.
const FACADE_UPDATE_FREQUENCY = 2000

// EHorizon. map engine on the mapbox vector tile api at zoom 15.
type EHorizon struct {
	engine *MapEngine
}

func NewEHorizon(accessToken, tileset string, log *zap.Logger) (*EHorizon, error) {
	source := storage.NewHTTPSource(storage.NewHTTPSourceConfig(tile.NewMapboxEndpoint(tileset), accessToken), log)

	engine, err := NewMapEngine(source, vectortile.NewMVTDecoder(log), DefaultOptions(), log)
	if err != nil {
		return nil, err
	}
	return &EHorizon{engine: engine}, nil
}

func (h *EHorizon) Start() {
	h.engine.Start()
}

func (h *EHorizon) Close() {
	h.engine.Close()
}

// UpdateConfiguration. nil applies the facade defaults.
func (h *EHorizon) UpdateConfiguration(cfg *Configuration) error {
	if cfg == nil {
		defaults := DefaultConfiguration().WithUpdateFrequency(FACADE_UPDATE_FREQUENCY)
		cfg = &defaults
	}
	return h.engine.UpdateConfiguration(*cfg)
}

func (h *EHorizon) RegisterListener(l Listener) ListenerID {
	return h.engine.RegisterListener(l)
}

func (h *EHorizon) UnregisterListener(id ListenerID) {
	h.engine.UnregisterListener(id)
}

func (h *EHorizon) UpdatePosition(position orb.Point) {
	h.engine.UpdateState(position)
}

func (h *EHorizon) Engine() *MapEngine {
	return h.engine
}
