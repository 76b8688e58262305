package vectortile

import (
	"bytes"

	"github.com/lintang-b-s/ehorizon/pkg"
	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/tile"
	"github.com/lintang-b-s/ehorizon/pkg/util"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/paulmach/osm"
	"go.uber.org/zap"
)

const (
	LAYER_EDGES          = "edges"
	LAYER_DRIVABLE_PATHS = "drivablePaths"
)

var gzipMagic = []byte{0x1f, 0x8b}

// Tile. road graph content of one vector tile.
type Tile struct {
	ID            tile.CanonicalTileID
	Edges         []*datastructure.Edge
	DrivablePaths []*datastructure.DrivablePath
}

func (t *Tile) EdgeIDs() []datastructure.EdgeID {
	ids := make([]datastructure.EdgeID, len(t.Edges))
	for i, e := range t.Edges {
		ids[i] = e.GetID()
	}
	return ids
}

type Decoder interface {
	Decode(t tile.CanonicalTileID, data []byte) (*Tile, error)
}

/*
MVTDecoder. decodes mapbox vector tiles with an "edges" layer (one bounding box polygon per directed edge) and a
"drivablePaths" layer (the centerline shared by an edge and its counterpart). geometry is projected to WGS84.
*/
type MVTDecoder struct {
	log *zap.Logger
}

func NewMVTDecoder(log *zap.Logger) *MVTDecoder {
	return &MVTDecoder{log: log}
}

func (d *MVTDecoder) Decode(t tile.CanonicalTileID, data []byte) (*Tile, error) {
	result := &Tile{
		ID:            t,
		Edges:         make([]*datastructure.Edge, 0),
		DrivablePaths: make([]*datastructure.DrivablePath, 0),
	}
	if len(data) == 0 {
		return result, nil
	}

	var (
		layers mvt.Layers
		err    error
	)
	if bytes.HasPrefix(data, gzipMagic) {
		layers, err = mvt.UnmarshalGzipped(data)
	} else {
		layers, err = mvt.Unmarshal(data)
	}
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "decoding tile %s", t)
	}

	layers.ProjectToWGS84(maptile.New(t.X, t.Y, maptile.Zoom(t.Z)))

	seenEdges := make(map[datastructure.EdgeID]struct{})
	seenPaths := make(map[int64]struct{})

	for _, layer := range layers {
		switch layer.Name {
		case LAYER_EDGES:
			for _, f := range layer.Features {
				e, err := d.parseEdge(f)
				if err != nil {
					d.log.Error("dropping edge feature", zap.String("tile", t.String()), zap.Error(err))
					continue
				}
				if _, ok := seenEdges[e.GetID()]; ok {
					d.log.Warn("duplicate edge in tile", zap.String("tile", t.String()), zap.Int64("edge_id", int64(e.GetID())))
					continue
				}
				seenEdges[e.GetID()] = struct{}{}
				result.Edges = append(result.Edges, e)
			}
		case LAYER_DRIVABLE_PATHS:
			for _, f := range layer.Features {
				p, err := d.parseDrivablePath(f)
				if err != nil {
					d.log.Error("dropping drivable path feature", zap.String("tile", t.String()), zap.Error(err))
					continue
				}
				if _, ok := seenPaths[p.ID]; ok {
					d.log.Warn("duplicate drivable path in tile", zap.String("tile", t.String()), zap.Int64("drivable_path_id", p.ID))
					continue
				}
				seenPaths[p.ID] = struct{}{}
				result.DrivablePaths = append(result.DrivablePaths, p)
			}
		default:
			d.log.Warn("ignoring features of unknown layer", zap.String("tile", t.String()), zap.String("layer", layer.Name))
		}
	}

	return result, nil
}

func invalidProperty(key string, value interface{}) error {
	return util.WrapErrorf(nil, util.ErrBadParamInput, "invalid value %v (%T) for property %s", value, value, key)
}

func (d *MVTDecoder) parseEdge(f *geojson.Feature) (*datastructure.Edge, error) {
	p := datastructure.EdgeParams{
		InNode:  datastructure.NULL_NODE,
		OutNode: datastructure.NULL_NODE,
	}
	if id, ok := toInt64(f.ID); ok {
		p.ID = datastructure.EdgeID(id)
	}

	for key, value := range f.Properties {
		var ok bool
		switch key {
		case "id":
			var id int64
			id, ok = toInt64(value)
			p.ID = datastructure.EdgeID(id)
		case "length":
			p.Length, ok = toFloat64(value)
		case "node_id_in":
			var id int64
			id, ok = toInt64(value)
			p.InNode = datastructure.NodeID(id)
		case "node_id_out":
			var id int64
			id, ok = toInt64(value)
			p.OutNode = datastructure.NodeID(id)
		case "counterpart_id":
			var id int64
			id, ok = toInt64(value)
			p.CounterpartID = datastructure.EdgeID(id)
		case "inverse_geometry":
			p.Inverse, ok = toBool(value)
		case "osm_way_id":
			var id int64
			id, ok = toInt64(value)
			p.WayID = osm.WayID(id)
		case "osm_oneway":
			p.Oneway, ok = toOneway(value)
		case "osm_way_type":
			var s string
			s, ok = value.(string)
			wayType := pkg.GetWayType(s)
			p.WayType = &wayType
		case "maxspeed":
			p.MaxSpeed, ok = toFloat64(value)
		case "drivable_path_id":
			p.DrivablePathID, ok = toInt64(value)
		default:
			d.log.Error("unknown edge property", zap.String("property", key))
			ok = true
		}
		if !ok {
			return nil, invalidProperty(key, value)
		}
	}

	if f.Geometry != nil {
		bound := f.Geometry.Bound()
		p.Bound = &bound
	}

	return datastructure.NewEdge(p), nil
}

func (d *MVTDecoder) parseDrivablePath(f *geojson.Feature) (*datastructure.DrivablePath, error) {
	id, _ := toInt64(f.ID)
	path := datastructure.NewDrivablePath(id, nil, lineOf(f.Geometry))
	hasEdgeIDs := false

	for key, value := range f.Properties {
		var ok bool
		switch key {
		case "id":
			path.ID, ok = toInt64(value)
		case "edge_ids":
			var ids []int64
			ids, ok = toIDList(value)
			path.EdgeIDs = make([]datastructure.EdgeID, len(ids))
			for i, id := range ids {
				path.EdgeIDs[i] = datastructure.EdgeID(id)
			}
			hasEdgeIDs = ok
		case "name":
			path.Name, ok = value.(string)
		case "type":
			var s string
			s, ok = value.(string)
			path.WayType = pkg.GetWayType(s)
		case "destination":
			path.Destination, ok = value.(string)
		case "osm_way_id":
			var wayID int64
			wayID, ok = toInt64(value)
			path.WayID = osm.WayID(wayID)
		case "osm_oneway":
			path.Oneway, ok = toOneway(value)
		case "maxspeed":
			path.MaxSpeed, ok = toFloat64(value)
		default:
			d.log.Error("unknown drivable path property", zap.String("property", key))
			ok = true
		}
		if !ok {
			return nil, invalidProperty(key, value)
		}
	}

	if !hasEdgeIDs {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "no edge ids for drivable path %d, osm way id: %d",
			path.ID, path.WayID)
	}

	return path, nil
}

// lineOf. vertices of a line geometry, the parts of a multi line are joined in order.
func lineOf(g orb.Geometry) orb.LineString {
	switch geom := g.(type) {
	case orb.LineString:
		return geom
	case orb.MultiLineString:
		line := make(orb.LineString, 0)
		for _, part := range geom {
			if len(line) > 0 && len(part) > 0 && line[len(line)-1].Equal(part[0]) {
				part = part[1:]
			}
			line = append(line, part...)
		}
		return line
	default:
		return orb.LineString{}
	}
}
