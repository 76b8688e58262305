package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const NAMESPACE = "ehorizon"

// Registry. every instrument of the engine, tile transport and http api. a nil *Registry records nothing.
type Registry struct {
	registry *prometheus.Registry

	// tiles
	TileResponsesTotal     *prometheus.CounterVec
	TileDecodeFailures     prometheus.Counter
	TileRequestsInFlight   prometheus.Gauge
	TileDecodeDuration     prometheus.Histogram
	EvictedEdgesTotal      prometheus.Counter
	StaleTileResponseTotal prometheus.Counter

	// graph & horizon
	GraphEdges           prometheus.Gauge
	GraphNodes           prometheus.Gauge
	HorizonUpdatesTotal  *prometheus.CounterVec
	HorizonBuildDuration prometheus.Histogram
	LoopBacklog          prometheus.Gauge
	ActiveEngines        prometheus.Gauge

	// http
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	WebsocketSessions   prometheus.Gauge
}

func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initTileMetrics()
	r.initHorizonMetrics()
	r.initHTTPMetrics()

	return r
}

func (r *Registry) initTileMetrics() {
	r.TileResponsesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "tile_responses_total",
			Help:      "Tile responses by outcome",
		},
		[]string{"outcome"},
	)

	r.TileDecodeFailures = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "tile_decode_failures_total",
			Help:      "Tiles that could not be decoded",
		},
	)

	r.TileRequestsInFlight = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: NAMESPACE,
			Name:      "tile_requests_in_flight",
			Help:      "Tile requests waiting for a response",
		},
	)

	r.TileDecodeDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Name:      "tile_decode_duration_seconds",
			Help:      "Vector tile decode duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		},
	)

	r.EvictedEdgesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "evicted_edges_total",
			Help:      "Edges removed from the road graph after their tile left the cover",
		},
	)

	r.StaleTileResponseTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "stale_tile_responses_total",
			Help:      "Decoded tiles discarded because they were evicted while in flight",
		},
	)
}

func (r *Registry) initHorizonMetrics() {
	r.GraphEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: NAMESPACE,
			Name:      "graph_edges",
			Help:      "Edges in the road graphs of all engines",
		},
	)

	r.GraphNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: NAMESPACE,
			Name:      "graph_nodes",
			Help:      "Nodes in the road graphs of all engines",
		},
	)

	r.HorizonUpdatesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "horizon_updates_total",
			Help:      "Horizon updates delivered to listeners by result",
		},
		[]string{"result"},
	)

	r.HorizonBuildDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Name:      "horizon_build_duration_seconds",
			Help:      "Map matching plus horizon construction duration in seconds",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	r.LoopBacklog = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: NAMESPACE,
			Name:      "loop_backlog",
			Help:      "Messages queued on the most recently sampled engine loop",
		},
	)

	r.ActiveEngines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: NAMESPACE,
			Name:      "active_engines",
			Help:      "Running map engines",
		},
	)
}

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: NAMESPACE,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: NAMESPACE,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	r.WebsocketSessions = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: NAMESPACE,
			Name:      "websocket_sessions",
			Help:      "Open websocket vehicle sessions",
		},
	)
}

func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler. /metrics endpoint for this registry only.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
