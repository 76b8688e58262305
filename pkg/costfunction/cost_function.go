package costfunction

import (
	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
)

// CostFunction. cost of moving from edge in onto its successor out, lower is better.
type CostFunction interface {
	TransitionCost(in, out *datastructure.Edge) float64
}

// Term. one weighted component of a cost.
type Term struct {
	Weight float64
	Value  float64
}

func NewTerm(weight, value float64) Term {
	return Term{Weight: weight, Value: value}
}

func WeightedSum(terms ...Term) float64 {
	sum := 0.0
	for _, t := range terms {
		sum += t.Weight * t.Value
	}
	return sum
}
