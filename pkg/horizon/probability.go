package horizon

import "slices"

// ShiftToPositiveRange. shift the costs so the smallest one is at least 1. lists with fewer than two costs are returned as is.
func ShiftToPositiveRange(costs []float64) []float64 {
	if len(costs) < 2 {
		return costs
	}

	lower := max(1, 1-slices.Min(costs))

	shifted := make([]float64, len(costs))
	for i, c := range costs {
		shifted[i] = c + lower
	}
	return shifted
}

/*
NormalizedProbabilities. turn costs into probabilities summing to 1, the probability of a candidate is
proportional to the inverse of its cost. equal costs give a uniform distribution.
*/
func NormalizedProbabilities(costs []float64) []float64 {
	switch len(costs) {
	case 0:
		return []float64{}
	case 1:
		return []float64{1}
	}

	probabilities := make([]float64, len(costs))

	if slices.Min(costs) == slices.Max(costs) {
		for i := range probabilities {
			probabilities[i] = 1 / float64(len(costs))
		}
		return probabilities
	}

	sum := 0.0
	for i, c := range costs {
		p := 1.0
		if c != 0 {
			p = 1 / c
		}
		probabilities[i] = p
		sum += p
	}

	for i := range probabilities {
		probabilities[i] /= sum
	}
	return probabilities
}
