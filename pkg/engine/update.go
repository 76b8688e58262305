package engine

import (
	"github.com/google/uuid"
	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/horizon"
	"github.com/lintang-b-s/ehorizon/pkg/tile"
	"github.com/paulmach/orb"
)

type UpdateKind uint8

const (
	UNMATCHED UpdateKind = iota
	MATCHED
)

func (k UpdateKind) String() string {
	if k == MATCHED {
		return "matched"
	}
	return "unmatched"
}

// Update. one horizon update delivered to listeners, either *Matched or *Unmatched.
type Update interface {
	Kind() UpdateKind
	Position() orb.Point
	// TileIDs. tiles requested or loaded when the update was computed, sorted.
	TileIDs() []tile.CanonicalTileID
}

type baseUpdate struct {
	position orb.Point
	tileIDs  []tile.CanonicalTileID
}

func (u baseUpdate) Position() orb.Point {
	return u.position
}

func (u baseUpdate) TileIDs() []tile.CanonicalTileID {
	return u.tileIDs
}

// Matched. position is the projection onto the current edge.
type Matched struct {
	baseUpdate
	horizon *horizon.EHorizon
}

func NewMatched(position orb.Point, h *horizon.EHorizon, tileIDs []tile.CanonicalTileID) *Matched {
	return &Matched{
		baseUpdate: baseUpdate{position: position, tileIDs: tileIDs},
		horizon:    h,
	}
}

func (m *Matched) Kind() UpdateKind {
	return MATCHED
}

func (m *Matched) Horizon() *horizon.EHorizon {
	return m.horizon
}

// Unmatched. position is the raw position, possible matches are the nearest edges by distance.
type Unmatched struct {
	baseUpdate
	possibleMatches []datastructure.WeightedEdge
}

func NewUnmatched(position orb.Point, possibleMatches []datastructure.WeightedEdge, tileIDs []tile.CanonicalTileID) *Unmatched {
	return &Unmatched{
		baseUpdate:      baseUpdate{position: position, tileIDs: tileIDs},
		possibleMatches: possibleMatches,
	}
}

func (u *Unmatched) Kind() UpdateKind {
	return UNMATCHED
}

func (u *Unmatched) PossibleMatches() []datastructure.WeightedEdge {
	return u.possibleMatches
}

// Listener. OnUpdate runs on the engine loop and must not block.
type Listener interface {
	OnUpdate(update Update)
}

type ListenerFunc func(update Update)

func (f ListenerFunc) OnUpdate(update Update) {
	f(update)
}

type ListenerID uuid.UUID

func (id ListenerID) String() string {
	return uuid.UUID(id).String()
}

type registeredListener struct {
	id       ListenerID
	listener Listener
}
