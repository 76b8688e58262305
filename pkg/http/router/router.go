package router

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/lintang-b-s/ehorizon/pkg/concurrent"
	"github.com/lintang-b-s/ehorizon/pkg/http/router/controllers"
	router_helper "github.com/lintang-b-s/ehorizon/pkg/http/router/routerhelper"
	http_server "github.com/lintang-b-s/ehorizon/pkg/http/server"
	"github.com/lintang-b-s/ehorizon/pkg/metrics"
	"github.com/mailru/easygo/netpoll"
	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type API struct {
	log      *zap.Logger
	registry *metrics.Registry
	hub      *controllers.Hub
	poller   netpoll.Poller
	pool     *concurrent.Pool
}

func NewAPI(log *zap.Logger, registry *metrics.Registry) *API {
	return &API{log: log, registry: registry}
}

//	@title			ehorizon API
//	@version		1.0
//	@description	electronic horizon engine: map matching of raw vehicle positions on vector tile road graphs and
//	@description	the most probable paths ahead of the vehicle.

//	@contact.name	Lintang Birda Saputra
//	@contact.url	_
//	@contact.email	lintang.birda.saputra@mail.ugm.ac.id

//	@license.name	BSD License
//	@license.url	https://opensource.org/license/bsd-2-clause

// @host		localhost
// @BasePath	/api
func (api *API) Run(
	ctx context.Context,
	config http_server.Config,

	useRateLimit bool,
	horizonService controllers.HorizonService,
	sessionService controllers.SessionService,
) error {
	api.log.Info("Run httprouter API")

	handler, err := api.Handler(config, useRateLimit, horizonService)
	if err != nil {
		return err
	}

	srv := http_server.New(ctx, handler, config, false)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", api.upstream("horizon websocket", "tcp", "localhost:"+strconv.Itoa(config.WebsocketPort)))
	proxy := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.ProxyPort),
		Handler: mux,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
		ReadHeaderTimeout: srv.ReadHeaderTimeout,
		IdleTimeout:       srv.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		api.log.Info(fmt.Sprintf("API run on port %d", config.Port))
		return ignoreServerClosed(srv.ListenAndServe())
	})

	g.Go(func() error {
		api.log.Info(fmt.Sprintf("WebSocket proxy running on port %d", config.ProxyPort))
		return ignoreServerClosed(proxy.ListenAndServe())
	})

	g.Go(func() error {
		return api.handleWebsocket(gctx, config, sessionService)
	})

	g.Go(func() error {
		<-gctx.Done()
		api.log.Info("shutting down http servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		defer cancel()
		_ = proxy.Shutdown(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Handler. rest api routes behind the middleware chain.
func (api *API) Handler(config http_server.Config, useRateLimit bool,
	horizonService controllers.HorizonService) (http.Handler, error) {
	router := httprouter.New()

	corsHandler := cors.New(cors.Options{ //nolint:gocritic // ignore
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Request-ID"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300, //nolint:mnd // ignore
	})

	router.GET("/doc/*any", swaggerHandler)
	router.Handler(http.MethodGet, "/debug/pprof/*item", http.DefaultServeMux)
	router.Handler(http.MethodGet, "/metrics", api.registry.Handler())

	group := router_helper.NewRouteGroup(router, "/api")
	horizonRoutes := controllers.New(horizonService, api.log)
	horizonRoutes.Routes(group)

	mwChain := []alice.Constructor{corsHandler.Handler, EnforceJSONHandler, api.recoverPanic,
		RealIP, Heartbeat("healthz"), Labels, Logger(api.log), Metrics(api.registry)}
	if useRateLimit {
		limit, err := Limit(config.RateLimit, config.RateBurst)
		if err != nil {
			return nil, err
		}
		mwChain = append(mwChain, limit)
	}

	return alice.New(mwChain...).Then(router), nil
}

func ignoreServerClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func swaggerHandler(res http.ResponseWriter, req *http.Request, p httprouter.Params) {
	httpSwagger.WrapHandler(res, req)
}
