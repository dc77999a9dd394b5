package matching

import (
	"math"

	"servifix/models"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometres between two
// GeoJSON points, rounded to two decimals.
func HaversineKm(a, b models.GeoPoint) float64 {
	lat1 := degreesToRadians(a.Lat())
	lat2 := degreesToRadians(b.Lat())
	dLat := degreesToRadians(b.Lat() - a.Lat())
	dLon := degreesToRadians(b.Lon() - a.Lon())

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return round2(earthRadiusKm * c)
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
