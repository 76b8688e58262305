package costfunction

import (
	"github.com/lintang-b-s/ehorizon/pkg"
	"github.com/lintang-b-s/ehorizon/pkg/datastructure"
	"github.com/lintang-b-s/ehorizon/pkg/geo"
)

const (
	WEIGHT_BASE               = 1.0
	WEIGHT_WAY_CONTINUATION   = 1.0
	WEIGHT_SERVICE_ROAD       = 4.0
	WEIGHT_BEARING_MOTORWAY   = 4.0
	WEIGHT_WAY_CLASS_MOTOR    = 10.0
	WEIGHT_BEARING            = 3.0
	WEIGHT_HIGH_BEARING_MAJOR = 40.0
	WEIGHT_HIGH_BEARING       = 15.0
	WEIGHT_WAY_CLASS          = 4.0

	HIGH_BEARING_THRESHOLD = 120.0 // degrees
)

/*
TransitionFunction. turn cost between two consecutive edges, used to rank the successors of an edge when
expanding the horizon. the cost always includes a base term, a way continuation term and a service road
entry term; the remaining terms depend on the class of the incoming road:

  - motorway/trunk: bearing change and road class change.
  - primary/secondary: bearing change, a steep penalty for turns sharper than 120 degrees and road class change.
  - other roads: the same terms with a milder sharp turn penalty.
*/
type TransitionFunction struct {
}

func NewTransitionFunction() *TransitionFunction {
	return &TransitionFunction{}
}

func (tf *TransitionFunction) TransitionCost(in, out *datastructure.Edge) float64 {
	diff := BearingDiff(in, out, true)

	terms := []Term{
		NewTerm(WEIGHT_BASE, 1),
		NewTerm(WEIGHT_WAY_CONTINUATION, wayContinuationCost(in, out)),
		NewTerm(WEIGHT_SERVICE_ROAD, serviceRoadCost(in, out)),
	}

	switch {
	case in.GetWayType().IsMotorwayOrTrunk():
		terms = append(terms,
			NewTerm(WEIGHT_BEARING_MOTORWAY, bearingCost(diff)),
			NewTerm(WEIGHT_WAY_CLASS_MOTOR, wayClassCost(in, out)))
	case in.GetWayType().IsPrimaryOrSecondary():
		terms = append(terms,
			NewTerm(WEIGHT_BEARING, bearingCost(diff)),
			NewTerm(WEIGHT_HIGH_BEARING_MAJOR, highBearingCost(diff)),
			NewTerm(WEIGHT_WAY_CLASS, wayClassCost(in, out)))
	default:
		terms = append(terms,
			NewTerm(WEIGHT_BEARING, bearingCost(diff)),
			NewTerm(WEIGHT_HIGH_BEARING, highBearingCost(diff)),
			NewTerm(WEIGHT_WAY_CLASS, wayClassCost(in, out)))
	}

	return WeightedSum(terms...)
}

// 0 when out continues the osm way of in without doubling back onto the counterpart of in.
func wayContinuationCost(in, out *datastructure.Edge) float64 {
	if in.GetWayID() == out.GetWayID() && !in.IsCounterpartOf(out) {
		return 0
	}
	return 1
}

func serviceRoadCost(in, out *datastructure.Edge) float64 {
	if in.GetWayType() != pkg.SERVICE && out.GetWayType() == pkg.SERVICE {
		return 1
	}
	return 0
}

func bearingCost(diff float64) float64 {
	return diff / 180.0
}

func highBearingCost(diff float64) float64 {
	if diff > HIGH_BEARING_THRESHOLD {
		return diff / 90.0
	}
	return 0
}

// negative when moving onto a more major road.
func wayClassCost(in, out *datastructure.Edge) float64 {
	return -float64(in.GetWayType().Order() - out.GetWayType().Order())
}

// BearingDiff. turn angle between the last segment of in and the first segment of out, 0 when either edge has no geometry.
func BearingDiff(in, out *datastructure.Edge, abs bool) float64 {
	inLine := in.GetCenterline()
	outLine := out.GetCenterline()
	if len(inLine) < 2 || len(outLine) < 2 {
		return 0
	}

	ruler := geo.NewMeterRuler(inLine[len(inLine)-1].Lat())
	inBearing := ruler.Bearing(inLine[len(inLine)-2], inLine[len(inLine)-1])
	outBearing := ruler.Bearing(outLine[0], outLine[1])

	return geo.BearingDiff(inBearing, outBearing, abs)
}
