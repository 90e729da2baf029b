package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/UnknownOlympus/hermes/internal/geo"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported order stores.
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config holds the configuration settings for the delivery service.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - HTTPPort: The port of the public order API.
// - HealthPort: The port for the monitoring server (/healthz, /metrics).
// - MaxRadiusKm: The maximum delivery distance from every restaurant of an order.
// - Geocoder: Settings of the geocoding provider chain.
// - RestaurantsFile: Optional YAML/JSON file with the restaurant table.
// - Store: Which order store to use (postgres, mongo).
// - Database, Mongo, RabbitMQ: Connection settings of the external collaborators.
type Config struct {
	Env             string         `mapstructure:"env"`              // Env is the current environment: local, development, production.
	HTTPPort        int            `mapstructure:"http_port"`        // HTTPPort is the order API port.
	HealthPort      int            `mapstructure:"health_port"`      // HealthPort is the monitoring server port.
	MaxRadiusKm     float64        `mapstructure:"max_radius_km"`    // MaxRadiusKm is the delivery radius of every restaurant.
	Geocoder        GeocoderConfig `mapstructure:"geocoder"`         // Geocoder holds the provider chain settings.
	RestaurantsFile string         `mapstructure:"restaurants_file"` // RestaurantsFile overrides the built-in restaurant table.
	Store           string         `mapstructure:"store"`            // Store selects the order persistence backend.
	CORSOrigins     []string       `mapstructure:"cors_origins"`     // CORSOrigins allowed to call the order API.
	Database        PostgresConfig `mapstructure:"postgres"`         // Database holds the postgres database configuration
	Mongo           MongoConfig    `mapstructure:"mongo"`            // Mongo holds the mongo database configuration
	RabbitMQ        RabbitConfig   `mapstructure:"rabbitmq"`         // RabbitMQ holds the order events broker configuration
}

// GeocoderConfig holds the settings of the address geocoder.
type GeocoderConfig struct {
	Timeout     time.Duration   // Timeout bounds each provider call.
	Country     string          // Country is appended to the full address text.
	CountryCode string          // CountryCode restricts provider results to one country.
	LocalArea   string          // LocalArea biases the simplified address.
	Bounds      geo.BoundingBox // Bounds every delivery point must fall into.
	RateLimit   int             // RateLimit in requests per second for providers that support it.
	Primary     ProviderConfig  // Primary provider of the chain.
	Secondary   ProviderConfig  // Secondary provider, the last resort.
}

// ProviderConfig selects one geocoding provider.
type ProviderConfig struct {
	Type   string // Type is google, nominatim, visicom or ors.
	APIKey string // APIKey of the provider, if it needs one.
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

// MongoConfig holds the MongoDB connection settings.
type MongoConfig struct {
	URI  string
	Name string
}

// RabbitConfig holds the RabbitMQ connection settings. An empty URL disables order events.
type RabbitConfig struct {
	URL      string
	Exchange string
}

// MustLoad loads the configuration from the environment (and an optional .env file) and
// returns a Config struct. It panics when a value cannot be parsed.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := newViper()

	httpPort, err := strconv.Atoi(v.GetString("http_port"))
	if err != nil {
		panic("failed to parse port for order API server from configuration")
	}

	healthPort, err := strconv.Atoi(v.GetString("health_port"))
	if err != nil {
		panic("failed to parse port for monitoring server from configuration")
	}

	maxRadius, err := strconv.ParseFloat(v.GetString("max_radius_km"), 64)
	if err != nil || maxRadius <= 0 {
		panic("failed to parse max radius from configuration, must be a positive number")
	}

	timeout, err := time.ParseDuration(v.GetString("geocoder_timeout"))
	if err != nil || timeout <= 0 {
		panic("failed to parse geocoder timeout from configuration")
	}

	rateLimit, err := strconv.Atoi(v.GetString("provider_rate_limit"))
	if err != nil {
		panic("failed to parse provider rate limit from configuration, must be an integer types")
	}

	bounds, err := geo.ParseBoundingBox(v.GetString("bounds"))
	if err != nil {
		panic("failed to parse bounds from configuration: " + err.Error())
	}

	store := strings.ToLower(v.GetString("store"))
	if store != StorePostgres && store != StoreMongo {
		panic("unsupported order store in configuration, must be postgres or mongo")
	}

	return &Config{
		Env:         v.GetString("env"),
		HTTPPort:    httpPort,
		HealthPort:  healthPort,
		MaxRadiusKm: maxRadius,
		Geocoder: GeocoderConfig{
			Timeout:     timeout,
			Country:     v.GetString("geocoder_country"),
			CountryCode: v.GetString("geocoder_country_code"),
			LocalArea:   v.GetString("geocoder_local_area"),
			Bounds:      bounds,
			RateLimit:   rateLimit,
			Primary: ProviderConfig{
				Type:   v.GetString("primary_provider"),
				APIKey: v.GetString("primary_provider_key"),
			},
			Secondary: ProviderConfig{
				Type:   v.GetString("secondary_provider"),
				APIKey: v.GetString("secondary_provider_key"),
			},
		},
		RestaurantsFile: v.GetString("restaurants_file"),
		Store:           store,
		CORSOrigins:     splitList(v.GetString("cors_origins")),
		Database: PostgresConfig{
			Host:     v.GetString("postgres.host"),
			Port:     v.GetString("postgres.port"),
			User:     v.GetString("postgres.user"),
			Password: v.GetString("postgres.password"),
			Name:     v.GetString("postgres.db_name"),
		},
		Mongo: MongoConfig{
			URI:  v.GetString("mongo.uri"),
			Name: v.GetString("mongo.db_name"),
		},
		RabbitMQ: RabbitConfig{
			URL:      v.GetString("rabbitmq.url"),
			Exchange: v.GetString("rabbitmq.exchange"),
		},
	}
}

// newViper reads HERMES_* variables plus the unprefixed connection variables shared with
// the other services of the platform.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("HERMES")
	v.AutomaticEnv()

	v.SetDefault("env", "production")
	v.SetDefault("http_port", "8081")
	v.SetDefault("health_port", "8080")
	v.SetDefault("max_radius_km", "2")
	v.SetDefault("geocoder_timeout", "5s")
	v.SetDefault("geocoder_country", "India")
	v.SetDefault("geocoder_country_code", "IN")
	v.SetDefault("geocoder_local_area", "Dwarka")
	v.SetDefault("primary_provider", "google")
	v.SetDefault("secondary_provider", "nominatim")
	v.SetDefault("provider_rate_limit", "10")
	v.SetDefault("bounds", geo.India.String())
	v.SetDefault("store", StorePostgres)
	v.SetDefault("cors_origins", "*")

	bindings := map[string]string{
		"postgres.host":     "DB_HOST",
		"postgres.port":     "DB_PORT",
		"postgres.user":     "DB_USERNAME",
		"postgres.password": "DB_PASSWORD",
		"postgres.db_name":  "DB_NAME",
		"mongo.uri":         "MONGO_URI",
		"mongo.db_name":     "MONGO_DB_NAME",
		"rabbitmq.url":      "RABBITMQ_URL",
		"rabbitmq.exchange": "RABBITMQ_EXCHANGE",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
	v.SetDefault("postgres.port", "5432")
	v.SetDefault("mongo.db_name", "hermes")
	v.SetDefault("rabbitmq.exchange", "orders_topic")

	return v
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	return out
}
