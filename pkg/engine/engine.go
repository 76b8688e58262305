package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lintang-b-s/ehorizon/pkg"
	"github.com/lintang-b-s/ehorizon/pkg/concurrent"
	"github.com/lintang-b-s/ehorizon/pkg/costfunction"
	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/geo"
	"github.com/lintang-b-s/ehorizon/pkg/horizon"
	"github.com/lintang-b-s/ehorizon/pkg/metrics"
	"github.com/lintang-b-s/ehorizon/pkg/storage"
	"github.com/lintang-b-s/ehorizon/pkg/tile"
	"github.com/lintang-b-s/ehorizon/pkg/vectortile"
	"github.com/paulmach/orb"
	"go.uber.org/zap"
)

const (
	DECODE_WORKERS         = 4
	DECODE_QUEUE           = 64
	POSSIBLE_MATCHES_LIMIT = 3
)

type Options struct {
	Zoom          uint8
	DecodeWorkers int
	Configuration Configuration
	CostFunction  costfunction.CostFunction
	Metrics       *metrics.Registry
}

func DefaultOptions() Options {
	return Options{
		Zoom:          pkg.TILE_ZOOM,
		DecodeWorkers: DECODE_WORKERS,
		Configuration: DefaultConfiguration(),
	}
}

/*
MapEngine. keeps the road graph around the vehicle loaded from vector tiles and publishes the electronic horizon
of every position update to the registered listeners.

all mutable state below the loop marker is owned by the engine loop: public methods only post messages to the
loop or ask it for a result, tile decoding runs on the decode pool and posts its result back to the loop.
*/
type MapEngine struct {
	source  storage.TileSource
	decoder vectortile.Decoder
	zoom    uint8

	looper    *concurrent.Looper
	debouncer *concurrent.Debouncer[orb.Point]
	pool      *concurrent.Pool
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// loop
	graph       *datastructure.RoadGraph
	tracker     *horizon.Tracker
	config      Configuration
	requests    map[tile.CanonicalTileID]*storage.Request // pending and loaded tiles
	loaded      tile.Set
	tileEdges   map[tile.CanonicalTileID][]datastructure.EdgeID
	listeners   []registeredListener
	position    orb.Point
	hasPosition bool
	lastUpdate  Update
	graphEdges  int
	graphNodes  int

	metrics *metrics.Registry
	log     *zap.Logger
}

func NewMapEngine(source storage.TileSource, decoder vectortile.Decoder, opts Options,
	log *zap.Logger) (*MapEngine, error) {
	if err := opts.Configuration.Validate(); err != nil {
		return nil, err
	}
	if opts.Zoom == 0 {
		opts.Zoom = pkg.TILE_ZOOM
	}
	if opts.DecodeWorkers <= 0 {
		opts.DecodeWorkers = DECODE_WORKERS
	}
	if opts.CostFunction == nil {
		opts.CostFunction = costfunction.NewTransitionFunction()
	}

	config := DefaultConfiguration().Merge(opts.Configuration)
	graph := datastructure.NewRoadGraph(log)
	ctx, cancel := context.WithCancel(context.Background())

	e := &MapEngine{
		source:    source,
		decoder:   decoder,
		zoom:      opts.Zoom,
		pool:      concurrent.NewPool(opts.DecodeWorkers, DECODE_QUEUE, log),
		ctx:       ctx,
		cancel:    cancel,
		graph:     graph,
		tracker:   horizon.NewTracker(graph, opts.CostFunction, float64(config.GetHorizonDistance()), config.GetExpansion(), log),
		config:    config,
		requests:  make(map[tile.CanonicalTileID]*storage.Request),
		loaded:    tile.NewSet(),
		tileEdges: make(map[tile.CanonicalTileID][]datastructure.EdgeID),
		listeners: make([]registeredListener, 0),
		metrics:   opts.Metrics,
		log:       log,
	}
	e.looper = concurrent.NewLooper("map-engine", log)
	e.debouncer = concurrent.NewDebouncer(e.looper.Handle(), config.GetUpdateFrequency(), e.updateState, log)

	return e, nil
}

// Start. blocks until the engine loop accepts messages.
func (e *MapEngine) Start() {
	e.log.Info("starting map engine", zap.Uint8("zoom", e.zoom), zap.String("configuration", e.config.String()))
	e.looper.Start()
	e.metrics.RecordEngine(1)
}

// Close. cancels pending tile requests and waits for the messages already posted to the loop.
func (e *MapEngine) Close() {
	e.closeOnce.Do(func() {
		e.debouncer.Terminate()
		if err := e.looper.Post(e.teardown); err != nil {
			e.log.Debug("engine loop already stopped", zap.Error(err))
		}
		e.looper.Shutdown()
		e.looper.Stop()
		e.cancel()
		e.pool.Close()
		e.log.Info("map engine stopped")
	})
}

func (e *MapEngine) teardown() {
	for t, req := range e.requests {
		req.Cancel()
		delete(e.requests, t)
	}
	e.listeners = e.listeners[:0]
	e.metrics.RecordGraphSize(-e.graphEdges, -e.graphNodes)
	e.graphEdges, e.graphNodes = 0, 0
	e.metrics.RecordEngine(-1)
}

// UpdateState. new raw vehicle position, bursts within the update frequency collapse into the latest position.
func (e *MapEngine) UpdateState(position orb.Point) {
	e.debouncer.Call(position)
}

// UpdateConfiguration. applies the fields set in cfg on the loop.
func (e *MapEngine) UpdateConfiguration(cfg Configuration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return e.looper.Post(func() {
		e.applyConfiguration(cfg)
	})
}

func (e *MapEngine) applyConfiguration(cfg Configuration) {
	if cfg.UpdateFrequency != nil {
		e.log.Info("setting update frequency", zap.Duration("update_frequency", cfg.GetUpdateFrequency()))
		e.debouncer.SetInterval(cfg.GetUpdateFrequency())
	}
	if cfg.HorizonDistance != nil {
		e.log.Info("setting horizon distance", zap.Int("horizon_distance", cfg.GetHorizonDistance()))
		e.tracker.SetHorizonDistance(float64(cfg.GetHorizonDistance()))
	}
	if cfg.Expansion != nil {
		e.log.Info("setting horizon expansion", zap.String("expansion", cfg.GetExpansion().String()))
		e.tracker.SetExpansion(cfg.GetExpansion())
	}
	e.config = e.config.Merge(cfg)
}

func (e *MapEngine) Configuration(ctx context.Context) (Configuration, error) {
	return concurrent.Ask(ctx, e.looper, func() Configuration {
		return e.config
	})
}

func (e *MapEngine) RegisterListener(l Listener) ListenerID {
	id := ListenerID(uuid.New())
	if err := e.looper.Post(func() {
		e.log.Debug("registering horizon listener", zap.String("listener_id", id.String()))
		e.listeners = append(e.listeners, registeredListener{id: id, listener: l})
	}); err != nil {
		e.log.Warn("cannot register listener", zap.Error(err))
	}
	return id
}

func (e *MapEngine) UnregisterListener(id ListenerID) {
	if err := e.looper.Post(func() {
		for i, l := range e.listeners {
			if l.id == id {
				e.log.Debug("unregistering horizon listener", zap.String("listener_id", id.String()))
				e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
				return
			}
		}
	}); err != nil {
		e.log.Debug("cannot unregister listener", zap.Error(err))
	}
}

// LastUpdate. the update of the latest horizon computation, nil before the first position.
func (e *MapEngine) LastUpdate(ctx context.Context) (Update, error) {
	return concurrent.Ask(ctx, e.looper, func() Update {
		return e.lastUpdate
	})
}

func (e *MapEngine) updateState(position orb.Point) {
	e.position = position
	e.hasPosition = true

	area := geo.NewMeterRuler(position.Lat()).BufferPoint(position, float64(e.config.GetHorizonDistance()))
	required := tile.NewSet(tile.Cover(area, e.zoom)...)

	// stale tiles go first so an edge is never counted as both required and stale.
	e.evict(required)
	e.request(required)

	e.updateHorizon()
}

func (e *MapEngine) updateHorizon() {
	if !e.hasPosition {
		return
	}

	start := time.Now()
	result := e.tracker.Horizon(e.position)
	tileIDs := e.tileIDs()

	var update Update
	if positive, ok := result.(*horizon.Positive); ok {
		update = NewMatched(positive.Position(), positive.Horizon(), tileIDs)
	} else {
		possible := e.graph.WeightedMatch(result.Position(), POSSIBLE_MATCHES_LIMIT)
		update = NewUnmatched(result.Position(), possible, tileIDs)
	}

	e.metrics.RecordHorizon(update.Kind() == MATCHED, time.Since(start))
	e.metrics.RecordBacklog(e.looper.Backlog())
	e.lastUpdate = update

	e.log.Debug("updating horizon listeners", zap.Int("listeners", len(e.listeners)),
		zap.String("update", update.Kind().String()))
	for _, l := range e.listeners {
		e.notify(l, update)
	}
}

// notify. a panicking listener is logged, it must not halt the loop.
func (e *MapEngine) notify(l registeredListener, update Update) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("horizon listener panicked", zap.String("listener_id", l.id.String()), zap.Any("panic", r))
		}
	}()
	l.listener.OnUpdate(update)
}

func (e *MapEngine) tileIDs() []tile.CanonicalTileID {
	set := tile.NewSet()
	for t := range e.requests {
		set[t] = struct{}{}
	}
	return set.Sorted()
}

func (e *MapEngine) reportGraphSize() {
	edges, nodes := e.graph.NumberOfEdges(), e.graph.NumberOfNodes()
	e.metrics.RecordGraphSize(edges-e.graphEdges, nodes-e.graphNodes)
	e.graphEdges, e.graphNodes = edges, nodes
}
