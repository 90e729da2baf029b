package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/UnknownOlympus/hermes/internal/models"
)

// BoundingBox is a coarse latitude/longitude rectangle used to sanity-check geocoding results.
type BoundingBox struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// India covers the mainland and the island territories of the country of operation.
var India = BoundingBox{MinLat: 6.0, MaxLat: 37.6, MinLon: 68.0, MaxLon: 97.5}

// ErrInvalidBounds is returned when a bounding box specification cannot be parsed.
var ErrInvalidBounds = errors.New("invalid bounding box")

// Contains reports whether c lies inside the box. Edges are inclusive.
func (b BoundingBox) Contains(c models.Coordinates) bool {
	return c.Valid() &&
		c.Latitude >= b.MinLat && c.Latitude <= b.MaxLat &&
		c.Longitude >= b.MinLon && c.Longitude <= b.MaxLon
}

// String renders the box in the same "minLat,maxLat,minLon,maxLon" form ParseBoundingBox accepts.
func (b BoundingBox) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
}

// ParseBoundingBox parses "minLat,maxLat,minLon,maxLon".
func ParseBoundingBox(raw string) (BoundingBox, error) {
	const parts = 4

	fields := strings.Split(raw, ",")
	if len(fields) != parts {
		return BoundingBox{}, fmt.Errorf("%w: expected %d comma separated values, got %q", ErrInvalidBounds, parts, raw)
	}

	values := make([]float64, parts)
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("%w: %q is not a number", ErrInvalidBounds, field)
		}
		values[i] = v
	}

	box := BoundingBox{MinLat: values[0], MaxLat: values[1], MinLon: values[2], MaxLon: values[3]}
	if box.MinLat >= box.MaxLat || box.MinLon >= box.MaxLon {
		return BoundingBox{}, fmt.Errorf("%w: minimums must be lower than maximums in %q", ErrInvalidBounds, raw)
	}

	return box, nil
}
