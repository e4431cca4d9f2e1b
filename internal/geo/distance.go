// Package geo holds the great-circle math shared by the ranker and the storage
// layer's radius queries.
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadius is the mean Earth radius in meters used by the haversine formula.
const EarthRadius = 6371000.0

func toRadians(d float64) float64 {
	return d * math.Pi / 180.0
}

// Distance returns the haversine great-circle distance in meters between two
// (lng, lat) points.
func Distance(p1, p2 orb.Point) float64 {
	lat1 := toRadians(p1.Lat())
	lat2 := toRadians(p2.Lat())
	dLat := lat2 - lat1
	dLng := toRadians(p2.Lon() - p1.Lon())

	// a = sin²(Δφ/2) + cos(φ1)·cos(φ2)·sin²(Δλ/2)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

// ProximityScore maps a distance to a 0..100 urgency score that loses
// pointsPerKm for every kilometer.
func ProximityScore(distanceMeters, pointsPerKm float64) float64 {
	return math.Max(0, 100-(distanceMeters/1000)*pointsPerKm)
}

// BoundingBox returns the box enclosing a circle of radiusMeters around center.
// Used to pre-filter candidate families before exact distance checks. orb.Bound
// cannot wrap, so a circle that crosses the antimeridian or reaches a pole gets
// the full longitude range; callers still rank by exact distance.
func BoundingBox(center orb.Point, radiusMeters float64) orb.Bound {
	dLat := radiusMeters / EarthRadius * 180 / math.Pi
	minLat := math.Max(-90, center.Lat()-dLat)
	maxLat := math.Min(90, center.Lat()+dLat)

	minLng, maxLng := -180.0, 180.0
	if cosLat := math.Cos(toRadians(center.Lat())); cosLat > 1e-9 && minLat > -90 && maxLat < 90 {
		dLng := dLat / cosLat
		if center.Lon()-dLng >= -180 && center.Lon()+dLng <= 180 {
			minLng, maxLng = center.Lon()-dLng, center.Lon()+dLng
		}
	}

	return orb.Bound{
		Min: orb.Point{minLng, minLat},
		Max: orb.Point{maxLng, maxLat},
	}
}
