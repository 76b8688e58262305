package controllers

import (
	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/engine"
	"github.com/lintang-b-s/ehorizon/pkg/geo"
	"github.com/lintang-b-s/ehorizon/pkg/horizon"
	"github.com/lintang-b-s/ehorizon/pkg/tile"
	"github.com/paulmach/orb"
)

type positionRequest struct {
	Lat float64 `json:"lat" validate:"min=-90,max=90"`
	Lon float64 `json:"lon" validate:"min=-180,max=180"`
}

func (p positionRequest) Point() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// matchRequest. query of the debug match route, radius in meters, 0 matches bounding boxes containing the point.
type matchRequest struct {
	Lat    float64 `validate:"min=-90,max=90"`
	Lon    float64 `validate:"min=-180,max=180"`
	Radius float64 `validate:"gte=0,lte=10000"`
}

type configurationRequest struct {
	HorizonDistance *int    `json:"horizon_distance,omitempty" validate:"omitempty,gt=0,lte=10000"`
	UpdateFrequency *int    `json:"update_frequency,omitempty" validate:"omitempty,gt=0"`
	Expansion       *string `json:"expansion,omitempty" validate:"omitempty,oneof=FULL LIMITED full limited"`
}

func (c configurationRequest) ToConfiguration() (engine.Configuration, error) {
	cfg := engine.NewConfiguration()
	if c.HorizonDistance != nil {
		cfg = cfg.WithHorizonDistance(*c.HorizonDistance)
	}
	if c.UpdateFrequency != nil {
		cfg = cfg.WithUpdateFrequency(*c.UpdateFrequency)
	}
	if c.Expansion != nil {
		expansion, err := horizon.ParseExpansion(*c.Expansion)
		if err != nil {
			return engine.Configuration{}, err
		}
		cfg = cfg.WithExpansion(expansion)
	}
	return cfg, nil
}

type configurationResponse struct {
	HorizonDistance int    `json:"horizon_distance"`
	UpdateFrequency int64  `json:"update_frequency"` // milliseconds
	Expansion       string `json:"expansion"`
}

func NewConfigurationResponse(cfg engine.Configuration) configurationResponse {
	return configurationResponse{
		HorizonDistance: cfg.GetHorizonDistance(),
		UpdateFrequency: cfg.GetUpdateFrequency().Milliseconds(),
		Expansion:       cfg.GetExpansion().String(),
	}
}

type positionResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func NewPositionResponse(p orb.Point) positionResponse {
	return positionResponse{Lat: p.Lat(), Lon: p.Lon()}
}

type edgeResponse struct {
	ID            int64   `json:"id"`
	Length        float64 `json:"length"`
	InNode        int64   `json:"in_node"`
	OutNode       int64   `json:"out_node"`
	CounterpartID int64   `json:"counterpart_id,omitempty"`
	Inverse       bool    `json:"inverse"`
	WayID         int64   `json:"osm_way_id"`
	WayType       string  `json:"way_type"`
	Oneway        bool    `json:"oneway"`
	MaxSpeed      float64 `json:"maxspeed,omitempty"`
	Geometry      string  `json:"geometry,omitempty"` // encoded polyline of the centerline
}

func NewEdgeResponse(e *datastructure.Edge) edgeResponse {
	resp := edgeResponse{
		ID:       int64(e.GetID()),
		Length:   e.GetLength(),
		InNode:   int64(e.GetInNode()),
		OutNode:  int64(e.GetOutNode()),
		Inverse:  e.IsInverse(),
		WayID:    int64(e.GetWayID()),
		WayType:  e.GetWayType().String(),
		Oneway:   e.IsOneway(),
		MaxSpeed: e.GetMaxSpeed(),
	}
	if e.HasCounterpart() {
		resp.CounterpartID = int64(e.GetCounterpartID())
	}
	if e.HasCenterline() {
		resp.Geometry = geo.PolylineFromLine(e.GetCenterline())
	}
	return resp
}

func NewEdgesResponse(edges []*datastructure.Edge) []edgeResponse {
	resp := make([]edgeResponse, len(edges))
	for i, e := range edges {
		resp[i] = NewEdgeResponse(e)
	}
	return resp
}

type segmentResponse struct {
	Edge edgeResponse   `json:"edge"`
	Out  []nodeResponse `json:"out,omitempty"`
}

type nodeResponse struct {
	Probability float64         `json:"probability"`
	BearingDiff float64         `json:"bearing_diff"`
	Segment     segmentResponse `json:"segment"`
}

func newSegmentResponse(s *horizon.Segment) segmentResponse {
	resp := segmentResponse{Edge: NewEdgeResponse(s.GetEdge())}
	for _, n := range s.GetOut() {
		resp.Out = append(resp.Out, nodeResponse{
			Probability: n.GetProbability(),
			BearingDiff: n.GetBearingDiff(),
			Segment:     newSegmentResponse(n.GetSegment()),
		})
	}
	return resp
}

type horizonResponse struct {
	Length           float64         `json:"length"`
	Depth            int             `json:"depth"`
	MostProbablePath []int64         `json:"most_probable_path"`
	Start            segmentResponse `json:"start"`
}

func NewHorizonResponse(h *horizon.EHorizon) horizonResponse {
	mpp := h.MostProbablePath()
	ids := make([]int64, len(mpp))
	for i, e := range mpp {
		ids[i] = int64(e.GetID())
	}
	return horizonResponse{
		Length:           h.Length(),
		Depth:            h.Depth(),
		MostProbablePath: ids,
		Start:            newSegmentResponse(h.Start()),
	}
}

type possibleMatchResponse struct {
	Distance float64      `json:"distance"`
	Edge     edgeResponse `json:"edge"`
}

type updateResponse struct {
	Type            string                  `json:"type"`
	Position        positionResponse        `json:"position"`
	Horizon         *horizonResponse        `json:"horizon,omitempty"`
	PossibleMatches []possibleMatchResponse `json:"possible_matches,omitempty"`
	TileIDs         []string                `json:"tile_ids"`
}

func NewUpdateResponse(u engine.Update) updateResponse {
	resp := updateResponse{
		Type:     u.Kind().String(),
		Position: NewPositionResponse(u.Position()),
		TileIDs:  tileIDStrings(u.TileIDs()),
	}
	switch update := u.(type) {
	case *engine.Matched:
		h := NewHorizonResponse(update.Horizon())
		resp.Horizon = &h
	case *engine.Unmatched:
		for _, m := range update.PossibleMatches() {
			resp.PossibleMatches = append(resp.PossibleMatches, possibleMatchResponse{
				Distance: m.Distance,
				Edge:     NewEdgeResponse(m.Edge),
			})
		}
	}
	return resp
}

func tileIDStrings(ids []tile.CanonicalTileID) []string {
	out := make([]string, len(ids))
	for i, t := range ids {
		out[i] = t.String()
	}
	return out
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
