package radius

import (
	"errors"
	"fmt"
	"math"

	"github.com/UnknownOlympus/hermes/internal/geo"
	"github.com/UnknownOlympus/hermes/internal/models"
)

// DefaultMaxRadiusKm is the delivery radius used when none is configured.
const DefaultMaxRadiusKm = 2.0

// ErrUnknownRestaurant is returned when the restaurant id is not in the registry.
var ErrUnknownRestaurant = errors.New("restaurant not found in registry")

// Locator resolves restaurant ids to their coordinates.
type Locator interface {
	CoordinatesOf(id string) (models.Coordinates, bool)
}

// Validator answers whether a point is inside the delivery radius of a restaurant.
type Validator struct {
	locator     Locator
	maxRadiusKm float64
}

// NewValidator creates a Validator. A non-positive radius falls back to DefaultMaxRadiusKm.
func NewValidator(locator Locator, maxRadiusKm float64) *Validator {
	if maxRadiusKm <= 0 || math.IsNaN(maxRadiusKm) {
		maxRadiusKm = DefaultMaxRadiusKm
	}

	return &Validator{locator: locator, maxRadiusKm: maxRadiusKm}
}

// MaxRadiusKm returns the configured delivery radius.
func (v *Validator) MaxRadiusKm() float64 {
	return v.maxRadiusKm
}

// Check computes the distance between the restaurant and the point and reports whether it
// is within the delivery radius.
func (v *Validator) Check(restaurantID string, point models.Coordinates) (models.EligibilityResult, error) {
	origin, ok := v.locator.CoordinatesOf(restaurantID)
	if !ok {
		return models.EligibilityResult{RestaurantID: restaurantID}, fmt.Errorf("%w: %s", ErrUnknownRestaurant, restaurantID)
	}

	distance := geo.DistanceKm(origin, point)

	return models.EligibilityResult{
		RestaurantID: restaurantID,
		DistanceKm:   distance,
		WithinRadius: distance <= v.maxRadiusKm,
	}, nil
}

// IsWithinRadius reports whether point is inside the delivery radius of the restaurant.
// Unknown restaurants are never within radius.
func (v *Validator) IsWithinRadius(restaurantID string, point models.Coordinates) bool {
	res, err := v.Check(restaurantID, point)
	return err == nil && res.WithinRadius
}

// FormatDistance renders distances below one kilometer in whole meters and everything
// else in kilometers with one decimal.
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%d m", int(math.Round(km*1000)))
	}

	return fmt.Sprintf("%.1f km", km)
}
