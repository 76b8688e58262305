package usecases

import (
	"github.com/lintang-b-s/ehorizon/pkg/engine"
	"github.com/lintang-b-s/ehorizon/pkg/metrics"
	"github.com/lintang-b-s/ehorizon/pkg/util"
	"go.uber.org/zap"
)

// SessionService. one map engine per websocket vehicle, all sharing the tile source of the factory.
type SessionService struct {
	log      *zap.Logger
	factory  EngineFactory
	registry *metrics.Registry
}

func NewSessionService(log *zap.Logger, factory EngineFactory, registry *metrics.Registry) *SessionService {
	return &SessionService{
		log:      log,
		factory:  factory,
		registry: registry,
	}
}

// NewSession. a started engine, the caller closes it.
func (s *SessionService) NewSession() (*engine.MapEngine, error) {
	e, err := s.factory()
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrInternalServerError, "creating session engine")
	}
	e.Start()
	s.registry.RecordWebsocketSession(1)
	return e, nil
}

func (s *SessionService) CloseSession(e *engine.MapEngine) {
	e.Close()
	s.registry.RecordWebsocketSession(-1)
}
