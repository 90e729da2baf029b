package geo_test

import (
	"testing"

	"github.com/UnknownOlympus/hermes/internal/geo"
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var panache = models.Coordinates{Latitude: 28.5891, Longitude: 77.0467}

func TestDistanceKm(t *testing.T) {
	t.Parallel()

	t.Run("zero distance", func(t *testing.T) {
		t.Parallel()
		points := []models.Coordinates{
			panache,
			{Latitude: 0, Longitude: 0},
			{Latitude: -33.8688, Longitude: 151.2093},
			{Latitude: 90, Longitude: 180},
		}
		for _, p := range points {
			assert.Zero(t, geo.DistanceKm(p, p))
		}
	})

	t.Run("symmetry", func(t *testing.T) {
		t.Parallel()
		pairs := [][2]models.Coordinates{
			{panache, {Latitude: 28.70, Longitude: 77.20}},
			{{Latitude: 51.5074, Longitude: -0.1278}, {Latitude: 40.7128, Longitude: -74.0060}},
			{{Latitude: -89.9, Longitude: 179.9}, {Latitude: 89.9, Longitude: -179.9}},
		}
		for _, pair := range pairs {
			assert.Equal(t, geo.DistanceKm(pair[0], pair[1]), geo.DistanceKm(pair[1], pair[0]))
		}
	})

	t.Run("nearby point", func(t *testing.T) {
		t.Parallel()
		d := geo.DistanceKm(panache, models.Coordinates{Latitude: 28.5895, Longitude: 77.0470})
		assert.InDelta(t, 0.05, d, 0.01)
	})

	t.Run("across the city", func(t *testing.T) {
		t.Parallel()
		d := geo.DistanceKm(panache, models.Coordinates{Latitude: 28.70, Longitude: 77.20})
		assert.Greater(t, d, 15.0)
		assert.Less(t, d, 25.0)
	})

	t.Run("rounded to two decimals", func(t *testing.T) {
		t.Parallel()
		d := geo.DistanceKm(panache, models.Coordinates{Latitude: 28.6, Longitude: 77.1})
		require.InDelta(t, d, float64(int64(d*100+0.5))/100, 1e-9)
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		t.Parallel()
		d := geo.DistanceKm(models.Coordinates{}, models.Coordinates{Latitude: 1})
		assert.InDelta(t, 111.19, d, 0.01)
	})
}
