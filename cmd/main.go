package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UnknownOlympus/hermes/internal/api"
	"github.com/UnknownOlympus/hermes/internal/config"
	"github.com/UnknownOlympus/hermes/internal/events"
	"github.com/UnknownOlympus/hermes/internal/geocoding"
	"github.com/UnknownOlympus/hermes/internal/metrics"
	"github.com/UnknownOlympus/hermes/internal/radius"
	"github.com/UnknownOlympus/hermes/internal/registry"
	"github.com/UnknownOlympus/hermes/internal/repository"
	"github.com/UnknownOlympus/hermes/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Constants for different environment types.
const (
	envLocal = "local"
	envDev   = "development"
	envProd  = "production"
)

// pinger is implemented by every order store.
type pinger interface {
	Ping(ctx context.Context) error
}

// store is an order repository that can report its health.
type store interface {
	repository.Interface
	pinger
}

// main is the entry point of the application.
func main() {
	// Create a context that will be canceled when an interrupt signal is received.
	// This allows for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load application configuration.
	cfg := config.MustLoad()

	// Set up the logger based on the environment.
	logger := setupLogger(cfg.Env)

	// Create a separate registry for metrics with exemplar
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	restaurants, err := loadRegistry(cfg.RestaurantsFile)
	if err != nil {
		log.Fatalf("Failed to load restaurants: %v", err)
	}
	logger.InfoContext(ctx, "Restaurant registry loaded", "restaurants", len(restaurants.Restaurants()))

	geocoder, err := newGeocoder(cfg, logger, appMetrics)
	if err != nil {
		log.Fatalf("Failed to create geocoding providers: %v", err)
	}

	orderStore, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to connect to the order store: %v", err)
	}
	defer closeStore()

	publisher, closePublisher, err := openPublisher(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer closePublisher()

	validator := radius.NewValidator(restaurants, cfg.MaxRadiusKm)
	gate := service.NewEligibilityService(logger, geocoder, restaurants, validator, appMetrics)
	orders := service.NewOrderService(logger, gate, orderStore, publisher, appMetrics)
	handler := api.NewHandler(logger, orders, gate, restaurants, appMetrics)

	apiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler.Router(cfg.CORSOrigins),
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Log that the application has started.
	logger.InfoContext(ctx, "Application started. Press Ctrl+C to stop.",
		"max_radius_km", validator.MaxRadiusKm(), "store", cfg.Store)

	// Start the monitoring server in a goroutine to allow main to listen for signals.
	monitoring := startMonitoringServer(ctx, logger, reg, orderStore, cfg.HealthPort)

	go func() {
		logger.InfoContext(ctx, "Starting order API server", "port", cfg.HTTPPort)
		if errServe := apiServer.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "Order API server failed", "error", errServe)
			stop()
		}
	}()

	// Wait for the context to be canceled (e.g., by Ctrl+C).
	<-ctx.Done()

	// Log that a shutdown signal has been received.
	logger.InfoContext(ctx, "Shutdown signal received. Stopping application...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err = apiServer.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(shutdownCtx, "Order API server shutdown failed", "error", err)
	}
	if err = monitoring.Shutdown(shutdownCtx); err != nil {
		logger.ErrorContext(shutdownCtx, "Monitoring server shutdown failed", "error", err)
	}

	// Log graceful shutdown completion.
	logger.InfoContext(shutdownCtx, "Application stopped gracefully.")
}

// loadRegistry builds the restaurant registry from the file, or the built-in table when no file is set.
func loadRegistry(path string) (*registry.Registry, error) {
	if path == "" {
		return registry.Default(), nil
	}

	restaurants, err := config.LoadRestaurants(path)
	if err != nil {
		return nil, err
	}

	return registry.New(restaurants)
}

// newGeocoder creates the primary and secondary providers with the factory and chains them.
// An empty secondary provider type leaves the chain with the primary provider only.
func newGeocoder(cfg *config.Config, logger *slog.Logger, appMetrics *metrics.Metrics) (*geocoding.Geocoder, error) {
	primary, err := geocoding.NewProvider(geocoding.ProviderConfig{
		Type:        geocoding.ProviderType(cfg.Geocoder.Primary.Type),
		APIKey:      cfg.Geocoder.Primary.APIKey,
		RateLimit:   cfg.Geocoder.RateLimit,
		CountryCode: cfg.Geocoder.CountryCode,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("primary provider: %w", err)
	}

	var secondary geocoding.Provider
	if cfg.Geocoder.Secondary.Type != "" {
		secondary, err = geocoding.NewProvider(geocoding.ProviderConfig{
			Type:        geocoding.ProviderType(cfg.Geocoder.Secondary.Type),
			APIKey:      cfg.Geocoder.Secondary.APIKey,
			RateLimit:   cfg.Geocoder.RateLimit,
			CountryCode: cfg.Geocoder.CountryCode,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("secondary provider: %w", err)
		}
	}

	logger.Info("Geocoding providers initialized",
		"primary", cfg.Geocoder.Primary.Type, "secondary", cfg.Geocoder.Secondary.Type)

	return geocoding.NewGeocoder(geocoding.GeocoderConfig{
		Primary:   geocoding.NamedProvider{Name: cfg.Geocoder.Primary.Type, Provider: primary},
		Secondary: geocoding.NamedProvider{Name: cfg.Geocoder.Secondary.Type, Provider: secondary},
		Bounds:    cfg.Geocoder.Bounds,
		Country:   cfg.Geocoder.Country,
		LocalArea: cfg.Geocoder.LocalArea,
		Timeout:   cfg.Geocoder.Timeout,
		Logger:    logger,
		Metrics:   appMetrics,
	}), nil
}

// openStore connects the configured order store and prepares its schema.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, func(), error) {
	switch cfg.Store {
	case config.StoreMongo:
		client, err := repository.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoRepository(client.Database(cfg.Mongo.Name), logger)
		if err = repo.EnsureIndexes(ctx); err != nil {
			logger.WarnContext(ctx, "Failed to create order indexes", "error", err)
		}

		return repo, func() { _ = client.Disconnect(context.Background()) }, nil
	default:
		dtb, err := repository.NewDatabase(ctx,
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password, cfg.Database.Name,
		)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewRepository(dtb, logger)
		if err = repo.EnsureSchema(ctx); err != nil {
			dtb.Close()
			return nil, nil, err
		}

		return repo, dtb.Close, nil
	}
}

// openPublisher connects to RabbitMQ, or drops events when no broker is configured.
func openPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, func(), error) {
	if cfg.RabbitMQ.URL == "" {
		logger.Warn("RabbitMQ is not configured, order events are disabled")
		return events.NopPublisher{}, func() {}, nil
	}

	conn, ch, err := events.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, nil, err
	}

	publisher, err := events.NewRabbitPublisher(ch, cfg.RabbitMQ.Exchange, logger)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	return publisher, func() {
		_ = publisher.Close()
		_ = conn.Close()
	}, nil
}

// startMonitoringServer starts an HTTP server that provides health check and metrics endpoints.
// It listens on the specified port and logs the server's status and any errors encountered.
//
// Parameters:
// - ctx: A context.Context for managing cancellation and timeouts.
// - log: A logger for logging server events and errors.
// - reg: A registry with Prometheus collectors.
// - db: The order store, pinged by the health check.
// - port: The port number on which the server will listen.
func startMonitoringServer(
	ctx context.Context,
	log *slog.Logger,
	reg *prometheus.Registry,
	db pinger,
	port int,
) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, req *http.Request) {
		log.DebugContext(req.Context(), "Performing health checks...")
		status, body := http.StatusOK, "OK"
		if err := db.Ping(req.Context()); err != nil {
			status, body = http.StatusServiceUnavailable, "DB ping failed"
		}
		writer.WriteHeader(status)
		_, err := writer.Write([]byte(body))
		if err != nil {
			log.ErrorContext(req.Context(), "failed to write reply", "error", err)
		}

		log.DebugContext(req.Context(), "Health checks completed", "status", status)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	readTimeout := 5
	writeTimeout := 10
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  time.Duration(readTimeout) * time.Second,
		WriteTimeout: time.Duration(writeTimeout) * time.Second,
	}

	go func() {
		log.InfoContext(ctx, "Starting monitoring server", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "Monitoring server failed", "error", err)
		}
	}()

	return server
}

// setupLogger initializes and returns a logger based on the environment provided.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelDebug,
				AddSource: true,
			}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:     slog.LevelInfo,
				AddSource: false,
			}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelWarn,
				AddSource:   false,
				ReplaceAttr: dropTime,
			}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level:       slog.LevelError,
				AddSource:   false,
				ReplaceAttr: dropTime,
			}),
		)

		log.Error(
			"The env parameter was not specified or was invalid. Logging will be minimal, by default.",
			slog.String("available_envs", "local, development, production"))
	}

	return log
}

func dropTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
