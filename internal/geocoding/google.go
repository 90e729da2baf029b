package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/hermes/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes. It is used to interact with the
// Google Maps geocoding services.
type GoogleProvider struct {
	client      GoogleAPIClient // client is the Google Maps API client
	countryCode string          // countryCode restricts results to one country (ISO 3166-1 alpha-2)
	log         *slog.Logger    // log is the logger for logging operations
}

// GoogleAPIClient is the subset of *maps.Client used by GoogleProvider.
type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// ErrGoogleEmptyResponse is returned when the Google Maps API responds with an empty result.
var ErrGoogleEmptyResponse = errors.New("get empty response from Google Maps API")

// NewGoogleProvider creates a GoogleProvider on top of an existing Google Maps client.
// An empty countryCode disables the country restriction.
func NewGoogleProvider(client GoogleAPIClient, countryCode string, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, countryCode: countryCode, log: log}
}

// Geocode returns the coordinates of the first result Google Maps returns for the address.
// Non-OK statuses reported by the API (ZERO_RESULTS, OVER_QUERY_LIMIT, ...) surface as errors
// from the client and are returned wrapped; an OK response without results is ErrGoogleEmptyResponse.
func (gp *GoogleProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "address", address)

	req := gp.request(address)
	geocodeResponse, err := gp.client.Geocode(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	if len(geocodeResponse) == 0 {
		return nil, ErrGoogleEmptyResponse
	}
	coords := geocodeResponse[0].Geometry.Location

	gp.log.DebugContext(ctx, "Google Maps found result",
		"formatted_address", geocodeResponse[0].FormattedAddress, "lat", coords.Lat, "lng", coords.Lng)

	return &models.Coordinates{Longitude: coords.Lng, Latitude: coords.Lat}, nil
}

func (gp *GoogleProvider) request(address string) *maps.GeocodingRequest {
	req := &maps.GeocodingRequest{Address: address}
	if gp.countryCode != "" {
		req.Components = map[maps.Component]string{maps.ComponentCountry: gp.countryCode}
	}

	return req
}
