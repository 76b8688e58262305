package storage

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/lintang-b-s/ehorizon/pkg/tile"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	TILE_MAX_CONNECTIONS      = 10
	TILE_REQUEST_TIMEOUT      = 10 * time.Second
	TILE_REQUESTS_PER_SECOND  = 50.0
	TILE_REQUEST_BURST        = TILE_MAX_CONNECTIONS
	TILE_MAX_RESPONSE_BYTES   = 16 << 20
	DEFAULT_TILE_USER_AGENT   = "ehorizon"
	DEFAULT_TILE_ACCEPT_TYPES = "application/vnd.mapbox-vector-tile,application/x-protobuf"
)

type HTTPSourceConfig struct {
	Endpoint          tile.Endpoint
	AccessToken       string
	MaxConnections    int
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
	UserAgent         string
	Retry             RetryPolicy
	Cache             *TileCache
	Client            *http.Client
	MaxResponseBytes  int64
}

func NewHTTPSourceConfig(endpoint tile.Endpoint, accessToken string) HTTPSourceConfig {
	return HTTPSourceConfig{
		Endpoint:          endpoint,
		AccessToken:       accessToken,
		MaxConnections:    TILE_MAX_CONNECTIONS,
		RequestsPerSecond: TILE_REQUESTS_PER_SECOND,
		Burst:             TILE_REQUEST_BURST,
		Timeout:           TILE_REQUEST_TIMEOUT,
		UserAgent:         DEFAULT_TILE_USER_AGENT,
		Retry:             NoRetry{},
		MaxResponseBytes:  TILE_MAX_RESPONSE_BYTES,
	}
}

/*
HTTPSource. fetches tiles from a templated tile server url.

at most MaxConnections requests are in flight and requests are rate limited on the client side. concurrent
requests for the same tile share one fetch, the shared fetch is not cancelled when a single caller cancels, so the
tile still ends up in the cache for the other callers.
*/
type HTTPSource struct {
	client   *http.Client
	endpoint tile.Endpoint
	token    string
	agent    string
	sem      chan struct{}
	limiter  *rate.Limiter
	group    singleflight.Group
	retry    RetryPolicy
	cache    *TileCache
	maxBytes int64
	log      *zap.Logger
}

func NewHTTPSource(cfg HTTPSourceConfig, log *zap.Logger) *HTTPSource {
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: cfg.MaxConnections,
				MaxConnsPerHost:     cfg.MaxConnections,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	maxConnections := cfg.MaxConnections
	if maxConnections <= 0 {
		maxConnections = TILE_MAX_CONNECTIONS
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = TILE_MAX_RESPONSE_BYTES
	}

	retry := cfg.Retry
	if retry == nil {
		retry = NoRetry{}
	}

	return &HTTPSource{
		client:   client,
		endpoint: cfg.Endpoint,
		token:    cfg.AccessToken,
		agent:    cfg.UserAgent,
		sem:      make(chan struct{}, maxConnections),
		limiter:  rate.NewLimiter(limit, max(cfg.Burst, 1)),
		retry:    retry,
		cache:    cfg.Cache,
		maxBytes: maxBytes,
		log:      log,
	}
}

func (s *HTTPSource) Request(ctx context.Context, t tile.CanonicalTileID) *Request {
	return NewRequest(ctx, t, func(ctx context.Context) Response {
		return s.fetch(ctx, t)
	})
}

func (s *HTTPSource) fetch(ctx context.Context, t tile.CanonicalTileID) Response {
	if s.cache != nil {
		if data, ok := s.cache.Get(t); ok {
			return Success(data)
		}
	}

	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(t.String(), func() (interface{}, error) {
		resp := s.fetchWithRetry(shared, t)
		if resp.Err == nil && s.cache != nil {
			s.cache.Add(t, resp.Data)
		}
		return resp, nil
	})

	select {
	case res := <-ch:
		return res.Val.(Response)
	case <-ctx.Done():
		return cancelled(ctx, t)
	}
}

func (s *HTTPSource) fetchWithRetry(ctx context.Context, t tile.CanonicalTileID) Response {
	for attempt := 0; ; attempt++ {
		resp := s.fetchOnce(ctx, t)
		if resp.Err == nil || !resp.Err.Retryable() {
			return resp
		}

		delay, ok := s.retry.Backoff(attempt)
		if !ok {
			return resp
		}

		s.log.Debug("retrying tile request", zap.String("tile", t.String()),
			zap.Int("attempt", attempt+1), zap.Duration("delay", delay), zap.Error(resp.Err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return cancelled(ctx, t)
		case <-timer.C:
		}
	}
}

func (s *HTTPSource) fetchOnce(ctx context.Context, t tile.CanonicalTileID) Response {
	if err := s.limiter.Wait(ctx); err != nil {
		return Failure(RATE_LIMITED, "client rate limit for tile %s: %v", t, err)
	}

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-ctx.Done():
		return cancelled(ctx, t)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint.Resolve(t, s.token), nil)
	if err != nil {
		return Failure(OTHER, "invalid tile url for %s: %v", t, err)
	}
	req.Header.Set("User-Agent", s.agent)
	req.Header.Set("Accept", DEFAULT_TILE_ACCEPT_TYPES)

	resp, err := s.client.Do(req)
	if err != nil {
		return Failure(CONNECTION_ERROR, "request for tile %s failed: %v", t, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return Response{NoContent: true}
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return readTile(resp.Body, t, s.maxBytes)
	default:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<10))
		return Failure(ErrorKindFromStatus(resp.StatusCode), "tile %s: %s", t, resp.Status)
	}
}
