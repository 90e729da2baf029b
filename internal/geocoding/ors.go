package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/UnknownOlympus/hermes/internal/models"
)

// ORSBaseURL is the OpenRouteService forward geocoding endpoint.
const ORSBaseURL = "https://api.openrouteservice.org/geocode/search"

// ORSProvider implements geocoding using the OpenRouteService (Pelias) API.
type ORSProvider struct {
	client      HTTPClient    // HTTP client for making requests
	baseURL     string        // Base URL for the ORS geocoding endpoint
	apiKey      string        // API key sent in the Authorization header
	countryCode string        // countryCode is passed as boundary.country
	log         *slog.Logger  // Logger for logging operations
	maxAttempts int           // maxAttempts bounds retries of transient failures
	backoff     time.Duration // backoff is the initial delay between retries, doubled each time
}

// Common errors for OpenRouteService provider.
var (
	ErrORSEmptyResponse = errors.New("openrouteservice returned no features")
	ErrORSInvalidCoords = errors.New("openrouteservice returned invalid coordinates")
)

type orsResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // [lon, lat]
		} `json:"geometry"`
		Properties struct {
			Label string `json:"label"`
		} `json:"properties"`
	} `json:"features"`
}

// NewORSProvider creates an OpenRouteService provider with a default HTTP client.
func NewORSProvider(apiKey, countryCode string, log *slog.Logger) *ORSProvider {
	const timeout = 10
	return NewORSProviderWithClient(&http.Client{Timeout: timeout * time.Second}, apiKey, countryCode, log)
}

// NewORSProviderWithClient allows injecting custom HTTP client.
func NewORSProviderWithClient(client HTTPClient, apiKey, countryCode string, log *slog.Logger) *ORSProvider {
	const (
		attempts = 3
		backoff  = 200 * time.Millisecond
	)

	return &ORSProvider{
		client:      client,
		baseURL:     ORSBaseURL,
		apiKey:      apiKey,
		countryCode: strings.ToUpper(countryCode),
		log:         log,
		maxAttempts: attempts,
		backoff:     backoff,
	}
}

// WithBackoff overrides the initial retry delay.
func (op *ORSProvider) WithBackoff(d time.Duration) *ORSProvider {
	op.backoff = d
	return op
}

// Geocode resolves the address with ORS. Rate limiting (429), 5xx responses and network
// errors are retried with exponential backoff while the context allows it.
func (op *ORSProvider) Geocode(ctx context.Context, address string) (*models.Coordinates, error) {
	const coordsListLength = 2

	op.log.DebugContext(ctx, "Geocoding using OpenRouteService", "address", address)

	reqURL, err := url.Parse(op.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("text", address)
	query.Set("size", "1")
	if op.countryCode != "" {
		query.Set("boundary.country", op.countryCode)
	}
	reqURL.RawQuery = query.Encode()

	header := http.Header{}
	header.Set("Authorization", op.apiKey)
	header.Set("Accept", "application/json")

	body, err := op.fetchWithRetry(ctx, reqURL.String(), header)
	if err != nil {
		return nil, err
	}

	var decoded orsResponse
	if err = json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode openrouteservice response: %w", err)
	}

	if len(decoded.Features) == 0 {
		return nil, ErrORSEmptyResponse
	}

	coords := decoded.Features[0].Geometry.Coordinates
	if len(coords) != coordsListLength {
		return nil, ErrORSInvalidCoords
	}

	op.log.DebugContext(ctx, "OpenRouteService found result",
		"label", decoded.Features[0].Properties.Label, "lat", coords[1], "lon", coords[0])

	return &models.Coordinates{Longitude: coords[0], Latitude: coords[1]}, nil
}

func (op *ORSProvider) fetchWithRetry(ctx context.Context, reqURL string, header http.Header) ([]byte, error) {
	backoff := op.backoff

	var lastErr error
	for attempt := 1; attempt <= op.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := fetch(ctx, op.client, "openrouteservice", reqURL, header)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !retryable(err) || attempt == op.maxAttempts {
			return nil, lastErr
		}

		op.log.DebugContext(ctx, "Retrying OpenRouteService request", "attempt", attempt, "error", err)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff *= 2
	}

	return nil, lastErr
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
