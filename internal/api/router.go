package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/UnknownOlympus/hermes/internal/metrics"
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/UnknownOlympus/hermes/internal/service"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Orders is the order workflow served by the API.
type Orders interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error
}

// RestaurantLister lists the restaurants that deliver.
type RestaurantLister interface {
	Restaurants() []models.Restaurant
}

// Handler serves the order API.
type Handler struct {
	log         *slog.Logger
	orders      Orders
	gate        service.Gate
	restaurants RestaurantLister
	metrics     *metrics.Metrics
}

// NewHandler creates a new instance of Handler.
func NewHandler(
	log *slog.Logger,
	orders Orders,
	gate service.Gate,
	restaurants RestaurantLister,
	metrics *metrics.Metrics,
) *Handler {
	return &Handler{
		log:         log,
		orders:      orders,
		gate:        gate,
		restaurants: restaurants,
		metrics:     metrics,
	}
}

// Router builds the HTTP handler of the API with its middleware chain.
// An empty origins list allows every origin.
func (h *Handler) Router(origins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(h.recoveryMiddleware)
	r.Use(h.loggingMiddleware)
	r.Use(h.inflightMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/orders", h.placeOrder).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id}", h.getOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id}/status", h.updateOrderStatus).Methods(http.MethodPatch)
	api.HandleFunc("/delivery/check", h.checkDelivery).Methods(http.MethodPost)
	api.HandleFunc("/restaurants", h.listRestaurants).Methods(http.MethodGet)

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"Origin",
		},
		MaxAge: 86400,
	})

	return corsHandler.Handler(r)
}
