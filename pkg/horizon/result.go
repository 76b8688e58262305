package horizon

import (
	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/paulmach/orb"
)

type ResultKind uint8

const (
	NEGATIVE ResultKind = iota
	POSITIVE
)

func (k ResultKind) String() string {
	if k == POSITIVE {
		return "POSITIVE"
	}
	return "NEGATIVE"
}

// Result. outcome of one tracker step, either *Positive or *Negative.
type Result interface {
	Kind() ResultKind
	Position() orb.Point
}

// Positive. the position matched an edge, position is the projection onto that edge.
type Positive struct {
	position orb.Point
	horizon  *EHorizon
}

func NewPositive(position orb.Point, horizon *EHorizon) *Positive {
	return &Positive{
		position: position,
		horizon:  horizon,
	}
}

func (p *Positive) Kind() ResultKind {
	return POSITIVE
}

func (p *Positive) Position() orb.Point {
	return p.position
}

func (p *Positive) Horizon() *EHorizon {
	return p.horizon
}

func (p *Positive) Edge() *datastructure.Edge {
	return p.horizon.Current()
}

// Negative. no edge matched, position is the raw position.
type Negative struct {
	position orb.Point
}

func NewNegative(position orb.Point) *Negative {
	return &Negative{position: position}
}

func (n *Negative) Kind() ResultKind {
	return NEGATIVE
}

func (n *Negative) Position() orb.Point {
	return n.position
}
