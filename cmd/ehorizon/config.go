package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lintang-b-s/ehorizon/pkg"
	"github.com/lintang-b-s/ehorizon/pkg/engine"
	"github.com/lintang-b-s/ehorizon/pkg/horizon"
	"github.com/lintang-b-s/ehorizon/pkg/metrics"
	"github.com/lintang-b-s/ehorizon/pkg/storage"
	"github.com/lintang-b-s/ehorizon/pkg/tile"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	TILE_SOURCE_HTTP = "http"
	TILE_SOURCE_FILE = "file"
	TILE_SOURCE_S3   = "s3"
)

func init() {
	viper.SetDefault("EHORIZON_ZOOM", pkg.TILE_ZOOM)
	viper.SetDefault("EHORIZON_HORIZON_DISTANCE", engine.DEFAULT_HORIZON_DISTANCE)
	viper.SetDefault("EHORIZON_UPDATE_FREQUENCY", engine.DEFAULT_UPDATE_FREQUENCY)
	viper.SetDefault("EHORIZON_EXPANSION", horizon.LIMITED.String())
	viper.SetDefault("EHORIZON_DECODE_WORKERS", engine.DECODE_WORKERS)

	viper.SetDefault("TILE_SOURCE", TILE_SOURCE_HTTP)
	viper.SetDefault("TILE_ENDPOINT", "")
	viper.SetDefault("TILE_TILESET", "")
	viper.SetDefault("TILE_ACCESS_TOKEN", "")
	viper.SetDefault("TILE_DIR", "./data/tiles")
	viper.SetDefault("TILE_S3_BUCKET", "")
	viper.SetDefault("TILE_S3_KEY_TEMPLATE", storage.DEFAULT_S3_KEY_TEMPLATE)
	viper.SetDefault("TILE_S3_REGION", "")
	viper.SetDefault("TILE_S3_ENDPOINT", "")
	viper.SetDefault("TILE_MAX_CONNECTIONS", storage.TILE_MAX_CONNECTIONS)
	viper.SetDefault("TILE_REQUESTS_PER_SECOND", storage.TILE_REQUESTS_PER_SECOND)
	viper.SetDefault("TILE_CACHE_SIZE", storage.DEFAULT_TILE_CACHE_SIZE)
	viper.SetDefault("TILE_RETRY_MAX", 0)
	viper.SetDefault("TILE_RETRY_BASE", "200ms")
	viper.SetDefault("TILE_RETRY_MAX_DELAY", "5s")
}

// engineConfiguration. horizon settings from viper.
func engineConfiguration() (engine.Configuration, error) {
	expansion, err := horizon.ParseExpansion(viper.GetString("EHORIZON_EXPANSION"))
	if err != nil {
		return engine.Configuration{}, err
	}
	cfg := engine.NewConfiguration().
		WithHorizonDistance(viper.GetInt("EHORIZON_HORIZON_DISTANCE")).
		WithUpdateFrequency(viper.GetInt("EHORIZON_UPDATE_FREQUENCY")).
		WithExpansion(expansion)
	return cfg, cfg.Validate()
}

func engineOptions(registry *metrics.Registry) (engine.Options, error) {
	cfg, err := engineConfiguration()
	if err != nil {
		return engine.Options{}, err
	}

	opts := engine.DefaultOptions()
	opts.Zoom = uint8(viper.GetUint("EHORIZON_ZOOM"))
	opts.DecodeWorkers = viper.GetInt("EHORIZON_DECODE_WORKERS")
	opts.Configuration = cfg
	opts.Metrics = registry
	return opts, nil
}

func tileEndpoint() (tile.Endpoint, error) {
	if template := viper.GetString("TILE_ENDPOINT"); template != "" {
		return tile.NewEndpoint(template), nil
	}
	tileset := viper.GetString("TILE_TILESET")
	if tileset == "" {
		return tile.Endpoint{}, fmt.Errorf("either TILE_ENDPOINT or TILE_TILESET must be set for the http tile source")
	}
	return tile.NewMapboxEndpoint(tileset), nil
}

func httpTileSource(log *zap.Logger) (*storage.HTTPSource, error) {
	endpoint, err := tileEndpoint()
	if err != nil {
		return nil, err
	}

	cache, err := storage.NewTileCache(viper.GetInt("TILE_CACHE_SIZE"))
	if err != nil {
		return nil, err
	}

	cfg := storage.NewHTTPSourceConfig(endpoint, viper.GetString("TILE_ACCESS_TOKEN"))
	cfg.MaxConnections = viper.GetInt("TILE_MAX_CONNECTIONS")
	cfg.RequestsPerSecond = viper.GetFloat64("TILE_REQUESTS_PER_SECOND")
	cfg.Burst = cfg.MaxConnections
	cfg.Cache = cache
	if retries := viper.GetInt("TILE_RETRY_MAX"); retries > 0 {
		cfg.Retry = storage.NewExponentialBackoff(retries, viper.GetDuration("TILE_RETRY_BASE"),
			viper.GetDuration("TILE_RETRY_MAX_DELAY"))
	}

	return storage.NewHTTPSource(cfg, log), nil
}

// tileSource. the source selected by TILE_SOURCE.
func tileSource(ctx context.Context, log *zap.Logger) (storage.TileSource, error) {
	kind := strings.ToLower(viper.GetString("TILE_SOURCE"))
	log.Info("using tile source", zap.String("source", kind))

	switch kind {
	case TILE_SOURCE_HTTP:
		return httpTileSource(log)
	case TILE_SOURCE_FILE:
		return storage.NewFileSource(viper.GetString("TILE_DIR"), log), nil
	case TILE_SOURCE_S3:
		bucket := viper.GetString("TILE_S3_BUCKET")
		if bucket == "" {
			return nil, fmt.Errorf("TILE_S3_BUCKET must be set for the s3 tile source")
		}
		return storage.NewS3SourceFromConfig(ctx, storage.S3SourceConfig{
			Bucket:      bucket,
			KeyTemplate: viper.GetString("TILE_S3_KEY_TEMPLATE"),
			Region:      viper.GetString("TILE_S3_REGION"),
			Endpoint:    viper.GetString("TILE_S3_ENDPOINT"),
		}, log)
	default:
		return nil, fmt.Errorf("unknown tile source %q, expected one of http, file, s3", kind)
	}
}

// configurationChange. fields of next that differ from prev, empty when nothing changed.
func configurationChange(prev, next engine.Configuration) engine.Configuration {
	change := engine.NewConfiguration()
	if next.GetHorizonDistance() != prev.GetHorizonDistance() {
		change = change.WithHorizonDistance(next.GetHorizonDistance())
	}
	if next.GetUpdateFrequency() != prev.GetUpdateFrequency() {
		change = change.WithUpdateFrequency(int(next.GetUpdateFrequency() / time.Millisecond))
	}
	if next.GetExpansion() != prev.GetExpansion() {
		change = change.WithExpansion(next.GetExpansion())
	}
	return change
}

/*
watchConfiguration. reloads config.yaml on change and pushes the changed horizon settings into apply.
settings that need a restart (tile source, ports) are only read at startup.
*/
func watchConfiguration(initial engine.Configuration, apply func(engine.Configuration) error, log *zap.Logger) {
	current := initial
	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := engineConfiguration()
		if err != nil {
			log.Error("ignoring invalid configuration change", zap.String("file", e.Name), zap.Error(err))
			return
		}
		change := configurationChange(current, next)
		if change.IsEmpty() {
			return
		}
		if err := apply(change); err != nil {
			log.Error("cannot apply configuration change", zap.Error(err))
			return
		}
		current = next
		log.Info("applied configuration change", zap.String("file", e.Name), zap.String("configuration", next.String()))
	})
	viper.WatchConfig()
}
