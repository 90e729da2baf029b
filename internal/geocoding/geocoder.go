package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/UnknownOlympus/hermes/internal/geo"
	"github.com/UnknownOlympus/hermes/internal/metrics"
	"github.com/UnknownOlympus/hermes/internal/models"
)

// SourceClient marks coordinates supplied by the client instead of a provider.
const SourceClient = "client"

// Step names of the fallback chain.
const (
	StepPrimary    = "primary"
	StepSimplified = "simplified"
	StepSecondary  = "secondary"
)

// Common errors returned by Geocoder.Resolve.
var (
	ErrIncompleteAddress = errors.New("street, city, state and postal code are required")
	ErrOutOfBounds       = errors.New("coordinates are outside the service area")
)

// NamedProvider pairs a provider with the name used in logs and metrics.
type NamedProvider struct {
	Name     string
	Provider Provider
}

// GeocoderConfig holds the settings of a Geocoder.
type GeocoderConfig struct {
	Primary   NamedProvider    // Primary is tried with the full and the simplified address.
	Secondary NamedProvider    // Secondary is the last resort, queried with the full address.
	Bounds    geo.BoundingBox  // Bounds every resolved point must fall into.
	Country   string           // Country is appended to the full address text.
	LocalArea string           // LocalArea biases the simplified address when the city mentions it.
	Timeout   time.Duration    // Timeout of each provider call.
	Logger    *slog.Logger     // Logger for logging operations, slog.Default() when nil.
	Metrics   *metrics.Metrics // Metrics is optional.
}

// Resolution is a successfully resolved delivery point.
type Resolution struct {
	Coordinates models.Coordinates
	Source      string // Source is SourceClient or the chain step that produced the point.
	Provider    string // Provider is empty for client supplied coordinates.
}

// Geocoder turns a delivery address into a single coordinate, or fails.
type Geocoder struct {
	primary   NamedProvider
	secondary NamedProvider
	bounds    geo.BoundingBox
	country   string
	localArea string
	chain     Chain
	log       *slog.Logger
}

// NewGeocoder creates a Geocoder from the config.
func NewGeocoder(cfg GeocoderConfig) *Geocoder {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Geocoder{
		primary:   cfg.Primary,
		secondary: cfg.Secondary,
		bounds:    cfg.Bounds,
		country:   cfg.Country,
		localArea: cfg.LocalArea,
		chain:     Chain{Timeout: cfg.Timeout, Log: cfg.Logger, Metrics: cfg.Metrics},
		log:       cfg.Logger,
	}
}

// Resolve returns the delivery point of the address.
//
// Client supplied coordinates (a GPS reading) are used as they are and no provider is called.
// Otherwise the address is resolved by the first successful step of:
//  1. the primary provider with the full address;
//  2. the primary provider with a simplified address;
//  3. the secondary provider with the full address.
//
// Whatever the source, the point must lie inside the configured bounding box, else
// ErrOutOfBounds is returned. When every step fails the error matches ErrGeocodingExhausted.
// There is no default location: failing to resolve is always an error.
func (g *Geocoder) Resolve(
	ctx context.Context,
	addr models.DeliveryAddress,
	client *models.Coordinates,
) (Resolution, error) {
	if client != nil {
		g.log.DebugContext(ctx, "Using client supplied coordinates",
			"lat", client.Latitude, "lng", client.Longitude)
		return g.checkBounds(ctx, Resolution{Coordinates: *client, Source: SourceClient})
	}

	if !addr.Complete() {
		return Resolution{}, ErrIncompleteAddress
	}

	full := g.FullAddress(addr)
	steps := []Step{
		{Name: StepPrimary, ProviderName: g.primary.Name, Provider: g.primary.Provider, Address: full},
		{Name: StepSimplified, ProviderName: g.primary.Name, Provider: g.primary.Provider, Address: g.SimplifiedAddress(addr)},
		{Name: StepSecondary, ProviderName: g.secondary.Name, Provider: g.secondary.Provider, Address: full},
	}

	attempt, err := g.chain.TryInOrder(ctx, steps)
	if err != nil {
		g.log.WarnContext(ctx, "Unable to geocode delivery address", "address", full, "error", err)
		return Resolution{}, err
	}

	return g.checkBounds(ctx, Resolution{
		Coordinates: attempt.Coordinates,
		Source:      attempt.Step,
		Provider:    attempt.Provider,
	})
}

func (g *Geocoder) checkBounds(ctx context.Context, res Resolution) (Resolution, error) {
	if !g.bounds.Contains(res.Coordinates) {
		g.log.WarnContext(ctx, "Resolved coordinates outside of the service area",
			"source", res.Source, "provider", res.Provider,
			"lat", res.Coordinates.Latitude, "lng", res.Coordinates.Longitude, "bounds", g.bounds.String())
		return Resolution{}, fmt.Errorf("%w: (%f, %f)", ErrOutOfBounds, res.Coordinates.Latitude, res.Coordinates.Longitude)
	}

	return res, nil
}

// FullAddress renders "street, city, state, postal code, country".
func (g *Geocoder) FullAddress(addr models.DeliveryAddress) string {
	return joinParts(addr.Street, addr.City, addr.State, addr.PostalCode, g.country)
}

// SimplifiedAddress renders "street, [local area], city, postal code". State and country are
// dropped since providers tend to match them instead of the street; the local area is inserted
// only when the city field mentions it.
func (g *Geocoder) SimplifiedAddress(addr models.DeliveryAddress) string {
	parts := []string{addr.Street}
	if g.localArea != "" && strings.Contains(strings.ToLower(addr.City), strings.ToLower(g.localArea)) {
		parts = append(parts, g.localArea)
	}
	parts = append(parts, addr.City, addr.PostalCode)

	return joinParts(parts...)
}

// joinParts joins the non-empty parts with ", ", skipping case-insensitive duplicates.
func joinParts(parts ...string) string {
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		key := strings.ToLower(p)
		if p == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, p)
	}

	return strings.Join(out, ", ")
}
