package geocoding_test

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/UnknownOlympus/hermes/internal/geocoding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestORSProvider_Geocode(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()
	apiKey := "ors-key"

	t.Run("successful geocoding", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Contains(t, req.URL.String(), geocoding.ORSBaseURL)
				assert.Equal(t, "Sector 12, Dwarka", req.URL.Query().Get("text"))
				assert.Equal(t, "IN", req.URL.Query().Get("boundary.country"))
				assert.Equal(t, "1", req.URL.Query().Get("size"))
				assert.Equal(t, apiKey, req.Header.Get("Authorization"))

				return jsonResponse(http.StatusOK,
					`{"features":[{"geometry":{"coordinates":[77.0460,28.5921]},"properties":{"label":"Sector 12"}}]}`), nil
			},
		}

		provider := geocoding.NewORSProviderWithClient(mockClient, apiKey, "in", logger)
		coords, err := provider.Geocode(ctx, "Sector 12, Dwarka")

		require.NoError(t, err)
		assert.InEpsilon(t, 28.5921, coords.Latitude, 0.0001)
		assert.InEpsilon(t, 77.0460, coords.Longitude, 0.0001)
	})

	t.Run("no features", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"features":[]}`), nil
			},
		}

		provider := geocoding.NewORSProviderWithClient(mockClient, apiKey, "IN", logger)
		coords, err := provider.Geocode(ctx, "nowhere")

		require.ErrorIs(t, err, geocoding.ErrORSEmptyResponse)
		assert.Nil(t, coords)
	})

	t.Run("invalid coordinates", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `{"features":[{"geometry":{"coordinates":[77.04]}}]}`), nil
			},
		}

		provider := geocoding.NewORSProviderWithClient(mockClient, apiKey, "IN", logger)
		_, err := provider.Geocode(ctx, "somewhere")

		require.ErrorIs(t, err, geocoding.ErrORSInvalidCoords)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		calls := 0
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				calls++
				if calls == 1 {
					return jsonResponse(http.StatusServiceUnavailable, `busy`), nil
				}
				return jsonResponse(http.StatusOK, `{"features":[{"geometry":{"coordinates":[77.04,28.59]}}]}`), nil
			},
		}

		provider := geocoding.NewORSProviderWithClient(mockClient, apiKey, "IN", logger).WithBackoff(time.Millisecond)
		coords, err := provider.Geocode(ctx, "Sector 12, Dwarka")

		require.NoError(t, err)
		assert.InEpsilon(t, 28.59, coords.Latitude, 0.0001)
		assert.Equal(t, 2, calls)
	})

	t.Run("gives up after the last attempt", func(t *testing.T) {
		calls := 0
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				calls++
				return jsonResponse(http.StatusTooManyRequests, `slow down`), nil
			},
		}

		provider := geocoding.NewORSProviderWithClient(mockClient, apiKey, "IN", logger).WithBackoff(time.Millisecond)
		_, err := provider.Geocode(ctx, "Sector 12, Dwarka")

		var statusErr *geocoding.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusTooManyRequests, statusErr.Code)
		assert.Equal(t, 3, calls)
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		calls := 0
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				calls++
				return jsonResponse(http.StatusUnauthorized, `bad key`), nil
			},
		}

		provider := geocoding.NewORSProviderWithClient(mockClient, apiKey, "IN", logger).WithBackoff(time.Millisecond)
		_, err := provider.Geocode(ctx, "Sector 12, Dwarka")

		require.ErrorIs(t, err, geocoding.ErrUnauthorized)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				t.Fatal("HTTP client should not be called with a cancelled context")
				return nil, assert.AnError
			},
		}

		provider := geocoding.NewORSProviderWithClient(mockClient, apiKey, "IN", logger)
		_, err := provider.Geocode(cancelled, "Sector 12, Dwarka")

		require.ErrorIs(t, err, context.Canceled)
	})
}
