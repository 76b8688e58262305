package http

import (
	"context"

	http_router "github.com/lintang-b-s/ehorizon/pkg/http/router"
	"github.com/lintang-b-s/ehorizon/pkg/http/router/controllers"
	http_server "github.com/lintang-b-s/ehorizon/pkg/http/server"
	"github.com/lintang-b-s/ehorizon/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	Log      *zap.Logger
	Registry *metrics.Registry
}

func NewServer(log *zap.Logger, registry *metrics.Registry) *Server {
	return &Server{Log: log, Registry: registry}
}

// Use. runs the rest api, the websocket server and its proxy until ctx is done or one of them fails.
func (s *Server) Use(
	ctx context.Context,
	useRateLimit bool,
	horizonService controllers.HorizonService,
	sessionService controllers.SessionService,
) error {
	config := http_server.NewConfig()

	api := http_router.NewAPI(s.Log, s.Registry)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return api.Run(
			gctx, config,
			useRateLimit, horizonService, sessionService,
		)
	})

	return g.Wait()
}
