package geo

import (
	"math"

	"github.com/UnknownOlympus/hermes/internal/models"
)

// EarthRadiusKm is Earth's mean radius in kilometers used by the Haversine calculation.
const EarthRadiusKm = 6371.0

// DistanceKm calculates the great-circle distance between two points in kilometers
// using the Haversine formula. The result is rounded to two decimal places.
func DistanceKm(a, b models.Coordinates) float64 {
	const degToRad = math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * degToRad
	dLng := (b.Longitude - a.Longitude) * degToRad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Latitude*degToRad)*math.Cos(b.Latitude*degToRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return math.Round(EarthRadiusKm*c*100) / 100
}
