package models

// Restaurant is the lightweight location record of a restaurant that serves deliveries.
type Restaurant struct {
	ID          string      // ID is the stable restaurant identifier ("1", "2", ...).
	Name        string      // Name is the display name.
	Coordinates Coordinates // Coordinates of the kitchen the orders are dispatched from.
	Address     string      // Address is the full postal address shown to customers.
	Aliases     []string    // Aliases are extra lower-case keys matched against free-text restaurant names.
}

// EligibilityResult is the outcome of a radius check for a single restaurant.
type EligibilityResult struct {
	RestaurantID string  `json:"restaurantId"`
	DistanceKm   float64 `json:"distanceKm"`
	WithinRadius bool    `json:"withinRadius"`
}
