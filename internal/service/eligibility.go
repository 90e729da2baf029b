package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/UnknownOlympus/hermes/internal/geocoding"
	"github.com/UnknownOlympus/hermes/internal/metrics"
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/UnknownOlympus/hermes/internal/radius"
)

// Reason is the user facing explanation of a delivery decision.
type Reason string

// Reasons a delivery can be refused.
const (
	ReasonInvalidLocation    Reason = "Invalid delivery location"
	ReasonUnverifiable       Reason = "Unable to verify delivery distance"
	ReasonRestaurantNotFound Reason = "Restaurant not found for distance validation"
	ReasonOutOfRadius        Reason = "We can't deliver to this location"
	ReasonIncompleteAddress  Reason = "Incomplete delivery address"
	ReasonEmptyOrder         Reason = "Order has no items"
)

// Label returns the metric label of the reason.
func (r Reason) Label() string {
	switch r {
	case "":
		return "approved"
	case ReasonInvalidLocation:
		return "invalid_location"
	case ReasonUnverifiable:
		return "unverifiable"
	case ReasonRestaurantNotFound:
		return "restaurant_not_found"
	case ReasonOutOfRadius:
		return "out_of_radius"
	case ReasonIncompleteAddress:
		return "incomplete_address"
	case ReasonEmptyOrder:
		return "empty_order"
	default:
		return "other"
	}
}

// Decision is the outcome of the delivery eligibility check of an order.
type Decision struct {
	Approved     bool                       `json:"approved"`
	Reason       Reason                     `json:"reason,omitempty"`
	Message      string                     `json:"message,omitempty"`
	RestaurantID string                     `json:"restaurantId,omitempty"` // RestaurantID is the restaurant that caused a refusal.
	Coordinates  *models.Coordinates        `json:"coordinates,omitempty"`
	Source       string                     `json:"source,omitempty"`
	Results      []models.EligibilityResult `json:"results,omitempty"`
}

// Resolver turns a delivery address into a single point.
type Resolver interface {
	Resolve(ctx context.Context, addr models.DeliveryAddress, client *models.Coordinates) (geocoding.Resolution, error)
}

// Restaurants maps the restaurant references of order data to registered restaurants.
type Restaurants interface {
	ResolveID(nameOrID string) (string, bool)
	NameOf(id string) string
	AddressOf(id string) string
}

// RadiusChecker computes the distance of a point to a restaurant.
type RadiusChecker interface {
	Check(restaurantID string, point models.Coordinates) (models.EligibilityResult, error)
	MaxRadiusKm() float64
}

// EligibilityService decides whether an order can be delivered to an address.
// It never writes anything; the only external calls are the geocoding providers.
type EligibilityService struct {
	log         *slog.Logger
	resolver    Resolver
	restaurants Restaurants
	radius      RadiusChecker
	metrics     *metrics.Metrics // metrics is optional.
}

// NewEligibilityService creates a new instance of EligibilityService.
func NewEligibilityService(
	log *slog.Logger,
	resolver Resolver,
	restaurants Restaurants,
	radius RadiusChecker,
	metrics *metrics.Metrics,
) *EligibilityService {
	return &EligibilityService{
		log:         log,
		resolver:    resolver,
		restaurants: restaurants,
		radius:      radius,
		metrics:     metrics,
	}
}

// ValidateOrderDelivery approves the order only when every restaurant it contains is within
// the delivery radius of the resolved delivery point. Any doubt (unresolvable address,
// implausible location, unknown restaurant) refuses the whole order.
func (es *EligibilityService) ValidateOrderDelivery(
	ctx context.Context,
	items []models.LineItem,
	addr models.DeliveryAddress,
	client *models.Coordinates,
) Decision {
	decision := es.decide(ctx, items, addr, client)
	if es.metrics != nil {
		es.metrics.Decisions.WithLabelValues(decision.Reason.Label()).Inc()
	}

	return decision
}

func (es *EligibilityService) decide(
	ctx context.Context,
	items []models.LineItem,
	addr models.DeliveryAddress,
	client *models.Coordinates,
) Decision {
	refs := restaurantRefs(items)
	if len(refs) == 0 {
		es.log.InfoContext(ctx, "Order refused: no items")
		return reject(ReasonEmptyOrder, "Add at least one item to the order.")
	}

	es.log.DebugContext(ctx, "Validating delivery", "restaurants", refs, "client_coordinates", client != nil)

	res, err := es.resolver.Resolve(ctx, addr, client)
	if err != nil {
		return es.geocodingFailure(ctx, err)
	}
	point := res.Coordinates

	es.log.DebugContext(ctx, "Delivery point resolved",
		"source", res.Source, "provider", res.Provider, "lat", point.Latitude, "lng", point.Longitude)

	checked := make(map[string]bool, len(refs))
	results := make([]models.EligibilityResult, 0, len(refs))
	for _, ref := range refs {
		id, ok := es.restaurants.ResolveID(ref)
		if !ok {
			es.log.ErrorContext(ctx, "Order references an unknown restaurant", "restaurant", ref)
			return es.withPoint(reject(ReasonRestaurantNotFound,
				fmt.Sprintf("Restaurant %q could not be found. Please refresh your cart and try again.", ref)), res, ref)
		}
		if checked[id] {
			continue
		}
		checked[id] = true

		result, errCheck := es.radius.Check(id, point)
		if errCheck != nil {
			es.log.ErrorContext(ctx, "Restaurant has no coordinates", "restaurant", id, "error", errCheck)
			return es.withPoint(reject(ReasonRestaurantNotFound,
				fmt.Sprintf("Restaurant %q could not be found. Please refresh your cart and try again.", ref)), res, id)
		}

		if math.IsNaN(result.DistanceKm) || math.IsInf(result.DistanceKm, 0) || result.DistanceKm < 0 {
			es.log.ErrorContext(ctx, "Distance could not be computed", "restaurant", id, "distance", result.DistanceKm)
			return es.withPoint(reject(ReasonUnverifiable,
				"We couldn't verify the distance to your delivery address. Please try again."), res, id)
		}

		es.log.DebugContext(ctx, "Radius checked",
			"restaurant", id, "distance_km", result.DistanceKm, "within_radius", result.WithinRadius)
		results = append(results, result)

		if !result.WithinRadius {
			es.log.InfoContext(ctx, "Order refused: out of delivery radius",
				"restaurant", id, "distance_km", result.DistanceKm, "max_km", es.radius.MaxRadiusKm())
			decision := es.withPoint(reject(ReasonOutOfRadius, fmt.Sprintf(
				"%s is %s away from your delivery address. We only deliver within %s of %s.",
				es.restaurants.NameOf(id),
				radius.FormatDistance(result.DistanceKm),
				radius.FormatDistance(es.radius.MaxRadiusKm()),
				es.restaurants.AddressOf(id),
			)), res, id)
			decision.Results = results
			return decision
		}
	}

	es.log.InfoContext(ctx, "Delivery approved", "restaurants", len(results), "source", res.Source)

	return Decision{
		Approved:    true,
		Coordinates: &point,
		Source:      res.Source,
		Results:     results,
	}
}

func (es *EligibilityService) geocodingFailure(ctx context.Context, err error) Decision {
	switch {
	case errors.Is(err, geocoding.ErrIncompleteAddress):
		es.log.InfoContext(ctx, "Order refused: incomplete address")
		return reject(ReasonIncompleteAddress,
			"Street, city, state and postal code are required to verify the delivery distance.")
	case errors.Is(err, geocoding.ErrOutOfBounds):
		es.log.WarnContext(ctx, "Order refused: delivery point outside the service area", "error", err)
		return reject(ReasonInvalidLocation,
			"The delivery address could not be located within our service area. Please check the address.")
	default:
		es.log.WarnContext(ctx, "Order refused: delivery address could not be geocoded", "error", err)
		return reject(ReasonUnverifiable,
			"We couldn't verify the distance to your delivery address. Please check the address or share your location.")
	}
}

func (es *EligibilityService) withPoint(d Decision, res geocoding.Resolution, restaurantID string) Decision {
	point := res.Coordinates
	d.Coordinates = &point
	d.Source = res.Source
	d.RestaurantID = restaurantID

	return d
}

func reject(reason Reason, message string) Decision {
	return Decision{Reason: reason, Message: message}
}

// restaurantRefs partitions the items by restaurant reference, keeping first-seen order.
func restaurantRefs(items []models.LineItem) []string {
	return models.Order{Items: items}.RestaurantIDs()
}
