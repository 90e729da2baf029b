package config

import (
	"errors"
	"fmt"

	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/spf13/viper"
)

// ErrNoRestaurants is returned when a restaurants file has no entries.
var ErrNoRestaurants = errors.New("restaurants file has no restaurants")

type restaurantEntry struct {
	ID      string   `mapstructure:"id"`
	Name    string   `mapstructure:"name"`
	Lat     float64  `mapstructure:"lat"`
	Lng     float64  `mapstructure:"lng"`
	Address string   `mapstructure:"address"`
	Aliases []string `mapstructure:"aliases"`
}

// LoadRestaurants reads the restaurant table from a YAML, JSON or TOML file shaped as
//
//	restaurants:
//	  - id: "1"
//	    name: Panache
//	    lat: 28.5891
//	    lng: 77.0467
//	    address: Plot 7, Sector 12, Dwarka
//
// The entries are returned as they are; validation is left to the registry.
func LoadRestaurants(path string) ([]models.Restaurant, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read restaurants file: %w", err)
	}

	var file struct {
		Restaurants []restaurantEntry `mapstructure:"restaurants"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to decode restaurants file: %w", err)
	}

	if len(file.Restaurants) == 0 {
		return nil, ErrNoRestaurants
	}

	restaurants := make([]models.Restaurant, 0, len(file.Restaurants))
	for _, e := range file.Restaurants {
		restaurants = append(restaurants, models.Restaurant{
			ID:          e.ID,
			Name:        e.Name,
			Coordinates: models.Coordinates{Latitude: e.Lat, Longitude: e.Lng},
			Address:     e.Address,
			Aliases:     e.Aliases,
		})
	}

	return restaurants, nil
}
