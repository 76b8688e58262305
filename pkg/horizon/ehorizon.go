package horizon

import (
	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
)

// Segment. one (possibly clipped) edge of the horizon tree and the branches leaving its end.
type Segment struct {
	edge *datastructure.Edge
	out  []*Node
}

func NewSegment(edge *datastructure.Edge) *Segment {
	return &Segment{
		edge: edge,
		out:  make([]*Node, 0),
	}
}

func (s *Segment) GetEdge() *datastructure.Edge {
	return s.edge
}

func (s *Segment) GetOut() []*Node {
	return s.out
}

func (s *Segment) IsLeaf() bool {
	return len(s.out) == 0
}

func (s *Segment) addNode(n *Node) {
	s.out = append(s.out, n)
}

// mostProbable. first child with the highest probability, nil for a leaf.
func (s *Segment) mostProbable() *Node {
	var best *Node
	for _, n := range s.out {
		if best == nil || n.probability > best.probability {
			best = n
		}
	}
	return best
}

// Node. branch from a segment into one successor, probability is the chance the vehicle takes it.
type Node struct {
	segment     *Segment
	probability float64
	bearingDiff float64
}

func NewNode(segment *Segment, probability, bearingDiff float64) *Node {
	return &Node{
		segment:     segment,
		probability: probability,
		bearingDiff: bearingDiff,
	}
}

func (n *Node) GetSegment() *Segment {
	return n.segment
}

func (n *Node) GetProbability() float64 {
	return n.probability
}

func (n *Node) GetBearingDiff() float64 {
	return n.bearingDiff
}

/*
EHorizon. tree of road segments ahead of the vehicle. the root segment is the matched edge clipped from the
vehicle position onwards, every other segment is a successor clipped to the remaining distance budget.
*/
type EHorizon struct {
	start *Segment
}

func NewEHorizon(start *Segment) *EHorizon {
	return &EHorizon{start: start}
}

func (h *EHorizon) Start() *Segment {
	return h.start
}

// Current. the (clipped) edge the vehicle is on.
func (h *EHorizon) Current() *datastructure.Edge {
	return h.start.edge
}

// MostProbablePath. edges from the root following the highest probability branch at every junction.
func (h *EHorizon) MostProbablePath() []*datastructure.Edge {
	path := []*datastructure.Edge{h.start.edge}
	for s := h.start; !s.IsLeaf(); {
		s = s.mostProbable().segment
		path = append(path, s.edge)
	}
	return path
}

// Length. length of the most probable path.
func (h *EHorizon) Length() float64 {
	length := 0.0
	for _, e := range h.MostProbablePath() {
		length += e.GetLength()
	}
	return length
}

// Edges. every edge of the tree, depth first.
func (h *EHorizon) Edges() []*datastructure.Edge {
	edges := make([]*datastructure.Edge, 0)
	stack := []*Segment{h.start}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		edges = append(edges, s.edge)
		for i := len(s.out) - 1; i >= 0; i-- {
			stack = append(stack, s.out[i].segment)
		}
	}
	return edges
}

// Depth. number of segments on the longest root to leaf branch.
func (h *EHorizon) Depth() int {
	var depth func(s *Segment) int
	depth = func(s *Segment) int {
		d := 0
		for _, n := range s.out {
			d = max(d, depth(n.segment))
		}
		return d + 1
	}
	return depth(h.start)
}
