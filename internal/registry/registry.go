package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/UnknownOlympus/hermes/internal/models"
)

// UnknownAddress is returned by AddressOf when the restaurant is not registered.
const UnknownAddress = "our restaurant location"

// Common errors for registry construction.
var (
	ErrEmptyID          = errors.New("restaurant id is empty")
	ErrDuplicateID      = errors.New("duplicate restaurant id")
	ErrInvalidLocation  = errors.New("restaurant has invalid coordinates")
	ErrEmptyRestaurants = errors.New("restaurant table is empty")
)

// Registry is an immutable lookup table of restaurant locations.
// It is safe for concurrent use since nothing mutates it after New returns.
type Registry struct {
	byID map[string]models.Restaurant
	ids  []string // ids sorted ascending, the order in which names are matched
}

// New builds a registry from the given restaurants. The slice is copied.
func New(restaurants []models.Restaurant) (*Registry, error) {
	if len(restaurants) == 0 {
		return nil, ErrEmptyRestaurants
	}

	reg := &Registry{byID: make(map[string]models.Restaurant, len(restaurants))}
	for _, r := range restaurants {
		r.ID = strings.TrimSpace(r.ID)
		if r.ID == "" {
			return nil, fmt.Errorf("%w (name %q)", ErrEmptyID, r.Name)
		}
		if _, ok := reg.byID[r.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		if !r.Coordinates.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidLocation, r.ID)
		}

		aliases := make([]string, 0, len(r.Aliases))
		for _, alias := range r.Aliases {
			if alias = strings.ToLower(strings.TrimSpace(alias)); alias != "" {
				aliases = append(aliases, alias)
			}
		}
		r.Aliases = aliases

		reg.byID[r.ID] = r
		reg.ids = append(reg.ids, r.ID)
	}
	sort.Strings(reg.ids)

	return reg, nil
}

// Default returns the registry of the restaurants the platform currently serves.
func Default() *Registry {
	reg, err := New(DefaultRestaurants())
	if err != nil {
		panic("default restaurant table is invalid: " + err.Error())
	}

	return reg
}

// DefaultRestaurants returns a fresh copy of the built-in restaurant table.
func DefaultRestaurants() []models.Restaurant {
	return []models.Restaurant{
		{
			ID:          "1",
			Name:        "Panache",
			Coordinates: models.Coordinates{Latitude: 28.5891, Longitude: 77.0467},
			Address:     "Plot 7, Sector 12, Dwarka, New Delhi, Delhi 110075",
		},
		{
			ID:          "2",
			Name:        "Symposium",
			Coordinates: models.Coordinates{Latitude: 28.5921, Longitude: 77.0460},
			Address:     "Vegas Mall, Sector 14, Dwarka, New Delhi, Delhi 110078",
		},
		{
			ID:          "3",
			Name:        "Sevoy",
			Coordinates: models.Coordinates{Latitude: 28.5823, Longitude: 77.0500},
			Address:     "Shop 3, Sector 10 Market, Dwarka, New Delhi, Delhi 110075",
		},
	}
}

// Restaurants returns every registered restaurant ordered by id.
func (r *Registry) Restaurants() []models.Restaurant {
	out := make([]models.Restaurant, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.byID[id])
	}

	return out
}

// Lookup returns the restaurant registered under id.
func (r *Registry) Lookup(id string) (models.Restaurant, bool) {
	rest, ok := r.byID[id]
	return rest, ok
}

// CoordinatesOf returns the coordinates of the restaurant registered under id.
func (r *Registry) CoordinatesOf(id string) (models.Coordinates, bool) {
	rest, ok := r.byID[id]
	if !ok {
		return models.Coordinates{}, false
	}

	return rest.Coordinates, true
}

// AddressOf returns the postal address of the restaurant, or UnknownAddress.
func (r *Registry) AddressOf(id string) string {
	rest, ok := r.byID[id]
	if !ok || rest.Address == "" {
		return UnknownAddress
	}

	return rest.Address
}

// NameOf returns the display name of the restaurant, or its id when it is not registered.
func (r *Registry) NameOf(id string) string {
	if rest, ok := r.byID[id]; ok && rest.Name != "" {
		return rest.Name
	}

	return id
}

// ResolveID maps a restaurant reference coming from order data to a registered id.
// Order payloads carry either a display name ("Panache Dwarka") or the id itself ("1"),
// so a case-insensitive substring match on the known names runs first, followed by an
// exact id lookup. Matching is limited to the registered restaurants; anything else is
// reported as not found.
func (r *Registry) ResolveID(nameOrID string) (string, bool) {
	ref := strings.ToLower(strings.TrimSpace(nameOrID))
	if ref == "" {
		return "", false
	}

	for _, id := range r.ids {
		for _, key := range r.matchKeys(r.byID[id]) {
			if strings.Contains(ref, key) {
				return id, true
			}
		}
	}

	if _, ok := r.byID[strings.TrimSpace(nameOrID)]; ok {
		return strings.TrimSpace(nameOrID), true
	}

	return "", false
}

func (r *Registry) matchKeys(rest models.Restaurant) []string {
	keys := make([]string, 0, len(rest.Aliases)+1)
	if name := strings.ToLower(strings.TrimSpace(rest.Name)); name != "" {
		keys = append(keys, name)
	}

	return append(keys, rest.Aliases...)
}
