package geo

import (
	"math"

	"github.com/lintang-b-s/ehorizon/pkg/util"
	"github.com/paulmach/orb"
)

// spherical reference formulas the planar ruler is checked against.
// https://www.movable-type.co.uk/scripts/latlong.html

func havFunction(angleRad float64) float64 {
	return (1 - math.Cos(angleRad)) / 2.0
}

// haversineMeters. great-circle distance between two lon/lat points in meters.
func haversineMeters(a, b orb.Point) float64 {
	latOne := util.DegreeToRadians(a.Lat())
	longOne := util.DegreeToRadians(a.Lon())
	latTwo := util.DegreeToRadians(b.Lat())
	longTwo := util.DegreeToRadians(b.Lon())

	h := havFunction(latOne-latTwo) + math.Cos(latOne)*math.Cos(latTwo)*havFunction(longOne-longTwo)
	return 2.0 * math.Asin(math.Sqrt(h)) * earthRadiusKM * 1000
}

// destinationPoint. lat, lon reached from lat1, lon1 after dist km on the initial bearing.
func destinationPoint(lat1, lon1 float64, bearing float64, dist float64) (float64, float64) {
	dr := dist / earthRadiusKM
	bearing = util.DegreeToRadians(bearing)
	lat1 = util.DegreeToRadians(lat1)
	lon1 = util.DegreeToRadians(lon1)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(dr) + math.Cos(lat1)*math.Sin(dr)*math.Cos(bearing))
	lon2 := lon1 + math.Atan2(math.Sin(bearing)*math.Sin(dr)*math.Cos(lat1), math.Cos(dr)-math.Sin(lat1)*math.Sin(lat2))

	lon := math.Mod(util.RadiansToDegree(lon2)+540, 360) - 180.0
	return util.RadiansToDegree(lat2), lon
}

// initialBearing. great-circle bearing from p1 to p2 in [0, 360).
func initialBearing(p1Lat, p1Lon, p2Lat, p2Lon float64) float64 {
	dLon := util.DegreeToRadians(p2Lon - p1Lon)
	lat1 := util.DegreeToRadians(p1Lat)
	lat2 := util.DegreeToRadians(p2Lat)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return math.Mod(util.RadiansToDegree(math.Atan2(y, x))+360, 360.0)
}
