package main

import (
	"github.com/lintang-b-s/ehorizon/pkg/engine"
	"github.com/lintang-b-s/ehorizon/pkg/http"
	"github.com/lintang-b-s/ehorizon/pkg/http/usecases"
	"github.com/lintang-b-s/ehorizon/pkg/metrics"
	"github.com/lintang-b-s/ehorizon/pkg/vectortile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	useRateLimit bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "run the rest api and the websocket vehicle session server",
		RunE:  runServe,
	}
)

func init() {
	serveCmd.Flags().BoolVar(&useRateLimit, "rate-limit", false, "rate limit rest api requests per client ip")
	viper.SetDefault("WATCH_CONFIG", true)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	registry := metrics.NewRegistry()

	source, err := tileSource(ctx, log)
	if err != nil {
		return err
	}
	decoder := vectortile.NewMVTDecoder(log)

	opts, err := engineOptions(registry)
	if err != nil {
		return err
	}

	newEngine := func() (*engine.MapEngine, error) {
		return engine.NewMapEngine(source, decoder, opts, log)
	}

	// the rest api drives one shared engine, every websocket vehicle gets its own.
	shared, err := newEngine()
	if err != nil {
		return err
	}
	shared.Start()
	defer shared.Close()

	if viper.GetBool("WATCH_CONFIG") {
		watchConfiguration(opts.Configuration, shared.UpdateConfiguration, log)
	}

	horizonService := usecases.NewHorizonService(log, shared)
	sessionService := usecases.NewSessionService(log, newEngine, registry)

	server := http.NewServer(log, registry)
	err = server.Use(ctx, useRateLimit, horizonService, sessionService)

	log.Info("ehorizon server stopped", zap.Error(err))
	return err
}
