package models

import "math"

// Coordinates represents a geographical point defined by its longitude and latitude.
type Coordinates struct {
	Longitude float64 `json:"lng" bson:"lng" mapstructure:"lng"` // Longitude of the geographical point.
	Latitude  float64 `json:"lat" bson:"lat" mapstructure:"lat"` // Latitude of the geographical point.
}

// Valid reports whether the point is finite and lies within the latitude [-90, 90]
// and longitude [-180, 180] ranges.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) ||
		math.IsInf(c.Latitude, 0) || math.IsInf(c.Longitude, 0) {
		return false
	}

	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}
