package api_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/UnknownOlympus/hermes/internal/api"
	"github.com/UnknownOlympus/hermes/internal/geo"
	"github.com/UnknownOlympus/hermes/internal/geocoding"
	"github.com/UnknownOlympus/hermes/internal/metrics"
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/UnknownOlympus/hermes/internal/radius"
	"github.com/UnknownOlympus/hermes/internal/registry"
	"github.com/UnknownOlympus/hermes/internal/repository"
	"github.com/UnknownOlympus/hermes/internal/service"
	"github.com/UnknownOlympus/hermes/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	router    http.Handler
	repo      *mocks.Interface
	publisher *mocks.Publisher
	provider  *mocks.Provider
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	logger := slog.Default()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	restaurants := registry.Default()
	provider := mocks.NewProvider(t)
	repo := mocks.NewInterface(t)
	publisher := mocks.NewPublisher(t)

	geocoder := geocoding.NewGeocoder(geocoding.GeocoderConfig{
		Primary: geocoding.NamedProvider{Name: "google", Provider: provider},
		Bounds:  geo.India,
		Country: "India",
		Logger:  logger,
	})
	gate := service.NewEligibilityService(logger, geocoder, restaurants, radius.NewValidator(restaurants, 2), m)
	orders := service.NewOrderService(logger, gate, repo, publisher, m)

	return fixture{
		router:    api.NewHandler(logger, orders, gate, restaurants, m).Router(nil),
		repo:      repo,
		publisher: publisher,
		provider:  provider,
	}
}

func (fx fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

const nearOrder = `{
	"customerId": "customer-1",
	"items": [{"restaurant": "Panache", "name": "Paneer Tikka", "quantity": 2, "price": "249.50"}],
	"address": {"street": "Plot 7, Sector 12", "city": "New Delhi", "state": "Delhi", "postalCode": "110075"},
	"coordinates": {"lat": 28.5895, "lng": 77.0470}
}`

func TestPlaceOrder(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		fx := newFixture(t)
		fx.repo.On("CreateOrder", mock.Anything, mock.Anything).Return(nil).Once()
		fx.publisher.On("PublishOrderPlaced", mock.Anything, mock.Anything).Return(nil).Once()

		rec := fx.do(http.MethodPost, "/api/orders", nearOrder)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		var order models.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
		assert.NotEmpty(t, order.ID)
		assert.Equal(t, "499", order.Total.String())
		assert.Equal(t, models.OrderStatusPending, order.Status)
		assert.InDelta(t, 28.5895, order.Delivery.Latitude, 1e-9)
	})

	t.Run("out of radius", func(t *testing.T) {
		fx := newFixture(t)
		body := strings.Replace(nearOrder, `"lat": 28.5895, "lng": 77.0470`, `"lat": 28.70, "lng": 77.20`, 1)

		rec := fx.do(http.MethodPost, "/api/orders", body)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		resp := decodeError(t, rec)
		assert.Equal(t, string(service.ReasonOutOfRadius), resp.Error)
		assert.Contains(t, resp.Message, "km away")
		assert.Equal(t, "1", resp.Details["restaurantId"])
		fx.repo.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
	})

	t.Run("outside the service area", func(t *testing.T) {
		fx := newFixture(t)
		body := strings.Replace(nearOrder, `"lat": 28.5895, "lng": 77.0470`, `"lat": 40.0, "lng": -74.0`, 1)

		rec := fx.do(http.MethodPost, "/api/orders", body)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(service.ReasonInvalidLocation), decodeError(t, rec).Error)
	})

	t.Run("address cannot be geocoded", func(t *testing.T) {
		fx := newFixture(t)
		fx.provider.On("Geocode", mock.Anything, mock.Anything).Return(nil, geocoding.ErrGoogleEmptyResponse).Twice()
		body := strings.Replace(nearOrder, `{"lat": 28.5895, "lng": 77.0470}`, `null`, 1)

		rec := fx.do(http.MethodPost, "/api/orders", body)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, string(service.ReasonUnverifiable), decodeError(t, rec).Error)
	})

	t.Run("unknown restaurant", func(t *testing.T) {
		fx := newFixture(t)
		body := strings.Replace(nearOrder, `"restaurant": "Panache"`, `"restaurant": "Nowhere Cafe"`, 1)

		rec := fx.do(http.MethodPost, "/api/orders", body)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(service.ReasonRestaurantNotFound), decodeError(t, rec).Error)
	})

	t.Run("invalid item", func(t *testing.T) {
		fx := newFixture(t)
		body := strings.Replace(nearOrder, `"quantity": 2`, `"quantity": 0`, 1)

		rec := fx.do(http.MethodPost, "/api/orders", body)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid order item", decodeError(t, rec).Error)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		fx := newFixture(t)

		rec := fx.do(http.MethodPost, "/api/orders", `{"customerId": "c", "coupon": "FREE"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid request body", decodeError(t, rec).Error)
	})

	t.Run("trailing data is rejected", func(t *testing.T) {
		fx := newFixture(t)

		rec := fx.do(http.MethodPost, "/api/orders", `{"customerId": "c"}{"customerId": "d"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeError(t, rec).Message, "single JSON object")
	})

	t.Run("store failure", func(t *testing.T) {
		fx := newFixture(t)
		fx.repo.On("CreateOrder", mock.Anything, mock.Anything).Return(assert.AnError).Once()

		rec := fx.do(http.MethodPost, "/api/orders", nearOrder)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestCheckDelivery(t *testing.T) {
	fx := newFixture(t)

	rec := fx.do(http.MethodPost, "/api/delivery/check", `{
		"items": [{"restaurant": "1", "name": "Dal", "quantity": 1, "price": 300},
		          {"restaurant": "2", "name": "Naan", "quantity": 2, "price": 60}],
		"address": {"street": "Plot 7", "city": "New Delhi", "state": "Delhi", "postalCode": "110075"},
		"coordinates": {"lat": 28.5895, "lng": 77.0470}
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var decision service.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	assert.True(t, decision.Approved)
	assert.Equal(t, geocoding.SourceClient, decision.Source)
	assert.Len(t, decision.Results, 2)
}

func TestGetOrder(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		fx := newFixture(t)
		fx.repo.On("GetOrder", mock.Anything, "order-1").
			Return(&models.Order{ID: "order-1", Status: models.OrderStatusPreparing}, nil).Once()

		rec := fx.do(http.MethodGet, "/api/orders/order-1", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"preparing"`)
	})

	t.Run("not found", func(t *testing.T) {
		fx := newFixture(t)
		fx.repo.On("GetOrder", mock.Anything, "missing").Return(nil, repository.ErrOrderNotFound).Once()

		rec := fx.do(http.MethodGet, "/api/orders/missing", "")

		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	t.Run("updated", func(t *testing.T) {
		fx := newFixture(t)
		fx.repo.On("UpdateOrderStatus", mock.Anything, "order-1", models.OrderStatusOutForDelivery).Return(nil).Once()

		rec := fx.do(http.MethodPatch, "/api/orders/order-1/status", `{"status": "out_for_delivery"}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id": "order-1", "status": "out_for_delivery"}`, rec.Body.String())
	})

	t.Run("invalid status", func(t *testing.T) {
		fx := newFixture(t)

		rec := fx.do(http.MethodPatch, "/api/orders/order-1/status", `{"status": "teleported"}`)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		fx := newFixture(t)
		fx.repo.On("UpdateOrderStatus", mock.Anything, "missing", models.OrderStatusCancelled).
			Return(repository.ErrOrderNotFound).Once()

		rec := fx.do(http.MethodPatch, "/api/orders/missing/status", `{"status": "cancelled"}`)

		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListRestaurants(t *testing.T) {
	fx := newFixture(t)

	rec := fx.do(http.MethodGet, "/api/restaurants", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var restaurants []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &restaurants))
	require.Len(t, restaurants, 3)
	assert.Equal(t, "1", restaurants[0]["id"])
	assert.Equal(t, "Panache", restaurants[0]["name"])
}

func TestRouter_CORS(t *testing.T) {
	fx := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	fx := newFixture(t)

	rec := fx.do(http.MethodDelete, "/api/orders/order-1", "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
