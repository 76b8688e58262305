package datastructure

import (
	"github.com/lintang-b-s/ehorizon/pkg"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
)

// DrivablePath. physical roadway geometry shared by the edges listed in EdgeIDs (an edge and its counterpart
// traverse it in opposite directions). only lives until it is merged into the graph edges.
type DrivablePath struct {
	ID          int64
	EdgeIDs     []EdgeID
	Points      orb.LineString
	WayID       osm.WayID
	WayType     pkg.WayType
	Oneway      bool
	Name        string
	Destination string
	MaxSpeed    float64
}

func NewDrivablePath(id int64, edgeIDs []EdgeID, points orb.LineString) *DrivablePath {
	return &DrivablePath{
		ID:      id,
		EdgeIDs: edgeIDs,
		Points:  points,
		WayType: pkg.UNKNOWN,
	}
}
