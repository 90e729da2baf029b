package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UnknownOlympus/hermes/internal/models"
	"golang.org/x/time/rate"
)

// VisicomBaseURL -- Visicom API base URL.
const VisicomBaseURL = "https://api.visicom.ua/data-api/5.0/en/geocode.json"

// VisicomProvider implements geocoding using Visicom API.
type VisicomProvider struct {
	client      HTTPClient    // HTTP client for making requests
	baseURL     string        // Base URL for the Visicom API
	apiKey      string        // API key with geocoding access
	countryCode string        // countryCode narrows the search, empty means worldwide
	log         *slog.Logger  // Logger for logging operations
	limiter     *rate.Limiter // Rate limiter
}

// Common errors for Visicom provider.
var (
	ErrVisicomEmptyResponse = errors.New("visicom API returned empty response")
	ErrVisicomEmptyAddress  = errors.New("visicom provider got empty address")
	ErrVisicomInvalidCoords = errors.New("visicom API returned invalid coordinates")
)

// Visicom API response (simplified for geocoding use-case).
type visicomResponse struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"geo_centroid"`
}

// NewVisicomProvider creates a new Visicom geocoding provider.
func NewVisicomProvider(apiKey, countryCode string, rateLimit int, log *slog.Logger) *VisicomProvider {
	const timeout = 10

	return NewVisicomProviderWithClient(
		&http.Client{Timeout: timeout * time.Second},
		apiKey,
		countryCode,
		rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		log,
	)
}

// NewVisicomProviderWithClient allows injecting custom HTTP client.
func NewVisicomProviderWithClient(
	client HTTPClient,
	apiKey string,
	countryCode string,
	limiter *rate.Limiter,
	log *slog.Logger,
) *VisicomProvider {
	return &VisicomProvider{
		client:      client,
		baseURL:     VisicomBaseURL,
		apiKey:      apiKey,
		countryCode: strings.ToLower(countryCode),
		log:         log,
		limiter:     limiter,
	}
}

// Geocode converts address into geographic coordinates using Visicom API.
func (vp *VisicomProvider) Geocode(
	ctx context.Context,
	address string,
) (*models.Coordinates, error) {
	const coordsListLength = 2

	if address == "" {
		return nil, ErrVisicomEmptyAddress
	}

	// Rate limit
	if err := vp.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	vp.log.DebugContext(ctx, "Geocoding using Visicom", "address", address)

	reqURL, err := url.Parse(vp.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("text", address)
	query.Set("limit", "1")
	query.Set("key", vp.apiKey)
	if vp.countryCode != "" {
		query.Set("country", vp.countryCode)
	}
	reqURL.RawQuery = query.Encode()

	header := http.Header{}
	header.Set("Accept", "application/json")

	body, err := fetch(ctx, vp.client, "visicom", reqURL.String(), header)
	if err != nil {
		vp.log.ErrorContext(ctx, "Visicom API error", "error", err)
		return nil, err
	}

	vp.log.DebugContext(ctx, "Visicom raw response", "body", string(body))

	var result visicomResponse
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode visicom response: %w", err)
	}

	coords := result.Geometry.Coordinates
	if len(coords) == 0 {
		return nil, ErrVisicomEmptyResponse
	}

	if len(coords) != coordsListLength {
		return nil, ErrVisicomInvalidCoords
	}

	lon := coords[0]
	lat := coords[1]

	vp.log.DebugContext(ctx, "Visicom found result", "address", address, "lat", lat, "lon", lon)

	return &models.Coordinates{
		Latitude:  lat,
		Longitude: lon,
	}, nil
}
