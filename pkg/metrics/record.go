package metrics

import (
	"time"
)

const (
	RESULT_MATCHED   = "matched"
	RESULT_UNMATCHED = "unmatched"
)

func (r *Registry) RecordTileResponse(outcome string) {
	if r == nil {
		return
	}
	r.TileResponsesTotal.WithLabelValues(outcome).Inc()
}

func (r *Registry) RecordTileRequest(delta int) {
	if r == nil {
		return
	}
	r.TileRequestsInFlight.Add(float64(delta))
}

func (r *Registry) RecordDecode(duration time.Duration, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.TileDecodeFailures.Inc()
		return
	}
	r.TileDecodeDuration.Observe(duration.Seconds())
}

func (r *Registry) RecordStaleTile() {
	if r == nil {
		return
	}
	r.StaleTileResponseTotal.Inc()
}

func (r *Registry) RecordEviction(edges int) {
	if r == nil {
		return
	}
	r.EvictedEdgesTotal.Add(float64(edges))
}

// RecordGraphSize. deltas, the gauges sum the graphs of every engine sharing the registry.
func (r *Registry) RecordGraphSize(deltaEdges, deltaNodes int) {
	if r == nil {
		return
	}
	r.GraphEdges.Add(float64(deltaEdges))
	r.GraphNodes.Add(float64(deltaNodes))
}

func (r *Registry) RecordHorizon(matched bool, duration time.Duration) {
	if r == nil {
		return
	}
	result := RESULT_UNMATCHED
	if matched {
		result = RESULT_MATCHED
	}
	r.HorizonUpdatesTotal.WithLabelValues(result).Inc()
	r.HorizonBuildDuration.Observe(duration.Seconds())
}

func (r *Registry) RecordBacklog(n int) {
	if r == nil {
		return
	}
	r.LoopBacklog.Set(float64(n))
}

func (r *Registry) RecordEngine(delta int) {
	if r == nil {
		return
	}
	r.ActiveEngines.Add(float64(delta))
}

func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (r *Registry) RecordWebsocketSession(delta int) {
	if r == nil {
		return
	}
	r.WebsocketSessions.Add(float64(delta))
}
