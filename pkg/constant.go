package pkg

import "strings"

// zoom level of the road topology tileset.
const TILE_ZOOM = 15

type WayType uint8

// enum of osm highway classes that can appear in the road topology tiles: https://wiki.openstreetmap.org/wiki/Key:highway
const (
	MOTORWAY WayType = iota
	TRUNK
	PRIMARY
	SECONDARY
	TERTIARY
	UNCLASSIFIED
	RESIDENTIAL
	SERVICE
	MOTORWAY_LINK
	TRUNK_LINK
	PRIMARY_LINK
	SECONDARY_LINK
	TERTIARY_LINK
	LIVING_STREET
	UNKNOWN
)

var wayTypeNames = [...]string{
	MOTORWAY:       "motorway",
	TRUNK:          "trunk",
	PRIMARY:        "primary",
	SECONDARY:      "secondary",
	TERTIARY:       "tertiary",
	UNCLASSIFIED:   "unclassified",
	RESIDENTIAL:    "residential",
	SERVICE:        "service",
	MOTORWAY_LINK:  "motorway_link",
	TRUNK_LINK:     "trunk_link",
	PRIMARY_LINK:   "primary_link",
	SECONDARY_LINK: "secondary_link",
	TERTIARY_LINK:  "tertiary_link",
	LIVING_STREET:  "living_street",
	UNKNOWN:        "unknown",
}

// class order of each way type. lower is a more major road.
var wayTypeOrders = [...]int{
	MOTORWAY:       1,
	TRUNK:          2,
	PRIMARY:        3,
	SECONDARY:      4,
	TERTIARY:       5,
	UNCLASSIFIED:   6,
	RESIDENTIAL:    7,
	SERVICE:        8,
	MOTORWAY_LINK:  2,
	TRUNK_LINK:     3,
	PRIMARY_LINK:   4,
	SECONDARY_LINK: 5,
	TERTIARY_LINK:  6,
	LIVING_STREET:  8,
	UNKNOWN:        10,
}

func (w WayType) String() string {
	if int(w) >= len(wayTypeNames) {
		return wayTypeNames[UNKNOWN]
	}
	return wayTypeNames[w]
}

func (w WayType) Order() int {
	if int(w) >= len(wayTypeOrders) {
		return wayTypeOrders[UNKNOWN]
	}
	return wayTypeOrders[w]
}

// ImpliesOneway. motorways and motorway links are oneway even without an explicit oneway tag.
func (w WayType) ImpliesOneway() bool {
	return w == MOTORWAY || w == MOTORWAY_LINK
}

func (w WayType) IsMotorwayOrTrunk() bool {
	return w == MOTORWAY || w == TRUNK
}

func (w WayType) IsPrimaryOrSecondary() bool {
	return w == PRIMARY || w == SECONDARY
}

// GetWayType. case-insensitive lookup of an osm highway value, unknown values map to UNKNOWN.
func GetWayType(roadType string) WayType {
	roadType = strings.ToLower(strings.TrimSpace(roadType))
	for i, name := range wayTypeNames {
		if name == roadType {
			return WayType(i)
		}
	}
	return UNKNOWN
}
