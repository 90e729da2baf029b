package radius_test

import (
	"testing"

	"github.com/UnknownOlympus/hermes/internal/geo"
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/UnknownOlympus/hermes/internal/radius"
	"github.com/UnknownOlympus/hermes/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var restaurantOne = models.Coordinates{Latitude: 28.5891, Longitude: 77.0467}

func TestNewValidator_DefaultRadius(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, radius.DefaultMaxRadiusKm, radius.NewValidator(registry.Default(), 0).MaxRadiusKm(), 1e-9)
	assert.InDelta(t, radius.DefaultMaxRadiusKm, radius.NewValidator(registry.Default(), -3).MaxRadiusKm(), 1e-9)
	assert.InDelta(t, 5.0, radius.NewValidator(registry.Default(), 5).MaxRadiusKm(), 1e-9)
}

func TestValidator_Check(t *testing.T) {
	t.Parallel()
	validator := radius.NewValidator(registry.Default(), 2)

	t.Run("close to restaurant", func(t *testing.T) {
		t.Parallel()
		res, err := validator.Check("1", models.Coordinates{Latitude: 28.5895, Longitude: 77.0470})

		require.NoError(t, err)
		assert.Equal(t, "1", res.RestaurantID)
		assert.InDelta(t, 0.05, res.DistanceKm, 0.01)
		assert.True(t, res.WithinRadius)
	})

	t.Run("across the city", func(t *testing.T) {
		t.Parallel()
		res, err := validator.Check("1", models.Coordinates{Latitude: 28.70, Longitude: 77.20})

		require.NoError(t, err)
		assert.Greater(t, res.DistanceKm, 15.0)
		assert.False(t, res.WithinRadius)
	})

	t.Run("unknown restaurant", func(t *testing.T) {
		t.Parallel()
		res, err := validator.Check("unknown-id", restaurantOne)

		require.ErrorIs(t, err, radius.ErrUnknownRestaurant)
		assert.False(t, res.WithinRadius)
	})
}

func TestValidator_IsWithinRadius(t *testing.T) {
	t.Parallel()
	validator := radius.NewValidator(registry.Default(), 2)

	t.Run("fail closed on unknown restaurant", func(t *testing.T) {
		t.Parallel()
		assert.False(t, validator.IsWithinRadius("unknown-id", restaurantOne))
	})

	t.Run("restaurant location itself", func(t *testing.T) {
		t.Parallel()
		assert.True(t, validator.IsWithinRadius("1", restaurantOne))
	})

	t.Run("monotonic along a meridian", func(t *testing.T) {
		t.Parallel()
		inside := false
		// Walk toward the restaurant; once a point is inside, every closer point must be too.
		for step := 40; step >= 0; step-- {
			point := models.Coordinates{Latitude: restaurantOne.Latitude + float64(step)*0.001, Longitude: restaurantOne.Longitude}
			within := validator.IsWithinRadius("1", point)
			if inside {
				assert.True(t, within, "closer point at step %d must stay within radius", step)
			}
			inside = within
		}
		assert.True(t, inside)
	})

	t.Run("boundary distance is inclusive", func(t *testing.T) {
		t.Parallel()
		point := models.Coordinates{Latitude: restaurantOne.Latitude + 0.0179, Longitude: restaurantOne.Longitude}
		d := geo.DistanceKm(restaurantOne, point)
		exact := radius.NewValidator(registry.Default(), d)

		assert.True(t, exact.IsWithinRadius("1", point))
	})
}

func TestFormatDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		km   float64
		want string
	}{
		{0, "0 m"},
		{0.05, "50 m"},
		{0.999, "999 m"},
		{0.4567, "457 m"},
		{1.0, "1.0 km"},
		{1.04, "1.0 km"},
		{15.76, "15.8 km"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, radius.FormatDistance(tt.km), "km=%v", tt.km)
	}
}
