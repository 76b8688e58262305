package datastructure

import (
	"github.com/lintang-b-s/ehorizon/pkg"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

type NodeID int64

type EdgeID int64

const (
	// node id of an edge side that has no node (dead end).
	NULL_NODE NodeID = -1

	// counterpart id of an edge without a reverse direction edge.
	NO_COUNTERPART EdgeID = 0
)

/*
Edge. directed arc of the road graph. an edge and its counterpart (the reverse direction arc) share the same
physical roadway, the inverse flag tells whether the centerline runs against the osm way direction.

edges are immutable, topology and drivable path data are merged by building a new edge value.
*/
type Edge struct {
	id             EdgeID
	length         float64 // meters
	inNode         NodeID
	outNode        NodeID
	counterpartID  EdgeID
	inverse        bool
	wayID          osm.WayID
	oneway         bool
	maxSpeed       float64
	wayType        pkg.WayType
	drivablePathID int64
	centerline     orb.LineString
	bound          orb.Bound
	hasBound       bool
}

type EdgeParams struct {
	ID             EdgeID
	Length         float64
	InNode         NodeID
	OutNode        NodeID
	CounterpartID  EdgeID
	Inverse        bool
	WayID          osm.WayID
	Oneway         bool
	MaxSpeed       float64
	WayType        *pkg.WayType // nil means pkg.UNKNOWN
	DrivablePathID int64
	Centerline     orb.LineString
	Bound          *orb.Bound // nil means the bound of the centerline, if any
}

// NewEdge. dead end sides are remapped to a synthetic node id derived from the opposite node so that
// dead ends of different edges never collide: in = -out-1 and out = -in-1.
func NewEdge(p EdgeParams) *Edge {
	in, out := p.InNode, p.OutNode
	if in == NULL_NODE {
		in = -out - 1
	}
	if out == NULL_NODE {
		out = -in - 1
	}

	wayType := pkg.UNKNOWN
	if p.WayType != nil {
		wayType = *p.WayType
	}

	e := &Edge{
		id:             p.ID,
		length:         p.Length,
		inNode:         in,
		outNode:        out,
		counterpartID:  p.CounterpartID,
		inverse:        p.Inverse,
		wayID:          p.WayID,
		oneway:         p.Oneway || wayType.ImpliesOneway(),
		maxSpeed:       p.MaxSpeed,
		wayType:        wayType,
		drivablePathID: p.DrivablePathID,
		centerline:     p.Centerline,
	}

	if p.Bound != nil {
		e.bound = *p.Bound
		e.hasBound = true
	} else if len(p.Centerline) > 0 {
		e.bound = p.Centerline.Bound()
		e.hasBound = true
	}

	return e
}

func (e *Edge) GetID() EdgeID {
	return e.id
}

func (e *Edge) GetLength() float64 {
	return e.length
}

func (e *Edge) GetInNode() NodeID {
	return e.inNode
}

func (e *Edge) GetOutNode() NodeID {
	return e.outNode
}

func (e *Edge) GetCounterpartID() EdgeID {
	return e.counterpartID
}

func (e *Edge) HasCounterpart() bool {
	return e.counterpartID > NO_COUNTERPART
}

// IsCounterpartOf. true if other is the reverse direction arc of e.
func (e *Edge) IsCounterpartOf(other *Edge) bool {
	return e.HasCounterpart() && e.counterpartID == other.id
}

func (e *Edge) IsInverse() bool {
	return e.inverse
}

func (e *Edge) GetWayID() osm.WayID {
	return e.wayID
}

func (e *Edge) IsOneway() bool {
	return e.oneway
}

func (e *Edge) GetMaxSpeed() float64 {
	return e.maxSpeed
}

func (e *Edge) GetWayType() pkg.WayType {
	return e.wayType
}

func (e *Edge) GetDrivablePathID() int64 {
	return e.drivablePathID
}

func (e *Edge) GetCenterline() orb.LineString {
	return e.centerline
}

func (e *Edge) HasCenterline() bool {
	return len(e.centerline) > 0
}

func (e *Edge) GetBound() (orb.Bound, bool) {
	return e.bound, e.hasBound
}

func (e *Edge) Equals(other *Edge) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.id == other.id
}

func (e *Edge) params() EdgeParams {
	wayType := e.wayType
	p := EdgeParams{
		ID:             e.id,
		Length:         e.length,
		InNode:         e.inNode,
		OutNode:        e.outNode,
		CounterpartID:  e.counterpartID,
		Inverse:        e.inverse,
		WayID:          e.wayID,
		Oneway:         e.oneway,
		MaxSpeed:       e.maxSpeed,
		WayType:        &wayType,
		DrivablePathID: e.drivablePathID,
		Centerline:     e.centerline,
	}
	if e.hasBound {
		bound := e.bound
		p.Bound = &bound
	}
	return p
}

// WithDrivablePath. copy of e carrying the geometry, way type and speed of the drivable path it lies on.
// the path points are reversed for inverse edges.
func (e *Edge) WithDrivablePath(path *DrivablePath) *Edge {
	p := e.params()

	points := make(orb.LineString, len(path.Points))
	copy(points, path.Points)
	if e.inverse {
		points.Reverse()
	}

	wayType := path.WayType
	p.Centerline = points
	p.WayType = &wayType
	p.MaxSpeed = path.MaxSpeed
	p.Oneway = e.oneway || path.Oneway
	if p.Bound == nil && len(points) > 0 {
		bound := points.Bound()
		p.Bound = &bound
	}

	return NewEdge(p)
}

// WithCenterline. copy of e with a new centerline and length, used when the horizon clips an edge.
func (e *Edge) WithCenterline(centerline orb.LineString, length float64) *Edge {
	p := e.params()
	p.Centerline = centerline
	p.Length = length
	bound := centerline.Bound()
	p.Bound = &bound
	return NewEdge(p)
}
