package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/UnknownOlympus/hermes/internal/events"
	"github.com/UnknownOlympus/hermes/internal/metrics"
	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/UnknownOlympus/hermes/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common errors of the order service.
var (
	ErrInvalidItem   = errors.New("invalid order item")
	ErrInvalidStatus = errors.New("invalid order status")
)

// RejectedError is returned by PlaceOrder when the delivery check refuses the order.
type RejectedError struct {
	Decision Decision
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("order rejected: %s", e.Decision.Reason)
}

// Gate decides whether an order may be delivered.
type Gate interface {
	ValidateOrderDelivery(
		ctx context.Context,
		items []models.LineItem,
		addr models.DeliveryAddress,
		client *models.Coordinates,
	) Decision
}

// PlaceOrderRequest is a prospective order as submitted by a customer.
type PlaceOrderRequest struct {
	CustomerID  string                 `json:"customerId"`
	Items       []models.LineItem      `json:"items"`
	Address     models.DeliveryAddress `json:"address"`
	Coordinates *models.Coordinates    `json:"coordinates,omitempty"` // Coordinates is an optional GPS reading of the client.
}

// OrderService places orders that passed the delivery check and manages their status.
type OrderService struct {
	log       *slog.Logger
	gate      Gate
	repo      repository.Interface
	publisher events.Publisher
	metrics   *metrics.Metrics // metrics is optional.
	now       func() time.Time
}

// NewOrderService creates a new instance of OrderService.
func NewOrderService(
	log *slog.Logger,
	gate Gate,
	repo repository.Interface,
	publisher events.Publisher,
	metrics *metrics.Metrics,
) *OrderService {
	return &OrderService{
		log:       log,
		gate:      gate,
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		now:       time.Now,
	}
}

// PlaceOrder validates the delivery of the whole order and persists it only when every
// restaurant is within range. Nothing is stored for a refused order. A refusal is returned
// as *RejectedError carrying the decision.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	if err := validateItems(req.Items); err != nil {
		s.count("invalid")
		return nil, err
	}

	decision := s.gate.ValidateOrderDelivery(ctx, req.Items, req.Address, req.Coordinates)
	if !decision.Approved {
		s.count("rejected")
		return nil, &RejectedError{Decision: decision}
	}

	total := decimal.Zero
	for _, item := range req.Items {
		total = total.Add(item.Subtotal())
	}

	order := models.Order{
		ID:         uuid.NewString(),
		CustomerID: req.CustomerID,
		Items:      req.Items,
		Address:    req.Address,
		Delivery:   *decision.Coordinates,
		Total:      total,
		Status:     models.OrderStatusPending,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.repo.CreateOrder(ctx, order); err != nil {
		s.count("failed")
		s.log.ErrorContext(ctx, "Failed to store order", "error", err)
		return nil, fmt.Errorf("failed to store order: %w", err)
	}
	s.count("placed")

	if err := s.publisher.PublishOrderPlaced(ctx, order); err != nil {
		s.log.WarnContext(ctx, "Failed to publish order event", "order", order.ID, "error", err)
	}

	s.log.InfoContext(ctx, "Order placed", "order", order.ID, "total", order.Total.String())

	return &order, nil
}

// GetOrder returns a stored order.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// UpdateOrderStatus moves an order to another status of the lifecycle.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if err := s.repo.UpdateOrderStatus(ctx, id, status); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "Order status updated", "order", id, "status", status)

	return nil
}

func (s *OrderService) count(status string) {
	if s.metrics != nil {
		s.metrics.Orders.WithLabelValues(status).Inc()
	}
}

func validateItems(items []models.LineItem) error {
	for i, item := range items {
		switch {
		case strings.TrimSpace(item.Restaurant) == "":
			return fmt.Errorf("%w: item %d has no restaurant", ErrInvalidItem, i)
		case item.Quantity <= 0:
			return fmt.Errorf("%w: item %d must have a positive quantity", ErrInvalidItem, i)
		case item.Price.IsNegative():
			return fmt.Errorf("%w: item %d has a negative price", ErrInvalidItem, i)
		}
	}

	return nil
}
