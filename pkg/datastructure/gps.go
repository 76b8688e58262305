package datastructure

import (
	"time"

	"github.com/paulmach/orb"
)

// GPSPoint. raw vehicle position sample.
type GPSPoint struct {
	lon   float64
	lat   float64
	time  time.Time
	speed float64 // 0 if unknown
}

func NewGPSPoint(lat, lon float64, t time.Time, speed float64) *GPSPoint {
	return &GPSPoint{
		lon:   lon,
		lat:   lat,
		time:  t,
		speed: speed,
	}
}

func (gp *GPSPoint) Lon() float64 {
	return gp.lon
}

func (gp *GPSPoint) Lat() float64 {
	return gp.lat
}

func (gp *GPSPoint) Time() time.Time {
	return gp.time
}

func (gp *GPSPoint) Speed() float64 {
	return gp.speed
}

func (gp *GPSPoint) Point() orb.Point {
	return orb.Point{gp.lon, gp.lat}
}
