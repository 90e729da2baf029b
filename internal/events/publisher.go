package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
)

// RoutingKeyOrderPlaced is the routing key of events emitted for every persisted order.
const RoutingKeyOrderPlaced = "order.placed"

// Publisher announces order lifecycle events to the rest of the platform.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, order models.Order) error
}

// Channel is the subset of *amqp091.Channel used by RabbitPublisher.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// OrderPlaced is the body of an order.placed message.
type OrderPlaced struct {
	EventID     string             `json:"eventId"`
	OrderID     string             `json:"orderId"`
	CustomerID  string             `json:"customerId"`
	Restaurants []string           `json:"restaurants"`
	Delivery    models.Coordinates `json:"deliveryCoordinates"`
	Total       decimal.Decimal    `json:"total"`
	PlacedAt    time.Time          `json:"placedAt"`
}

// RabbitPublisher publishes JSON events to a RabbitMQ topic exchange.
type RabbitPublisher struct {
	mu       sync.Mutex
	ch       Channel
	exchange string
	log      *slog.Logger
}

// NewRabbitPublisher declares the durable topic exchange and returns a publisher bound to it.
func NewRabbitPublisher(ch Channel, exchange string, log *slog.Logger) (*RabbitPublisher, error) {
	err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &RabbitPublisher{ch: ch, exchange: exchange, log: log}, nil
}

// PublishOrderPlaced sends an order.placed event for a persisted order.
func (p *RabbitPublisher) PublishOrderPlaced(ctx context.Context, order models.Order) error {
	event := OrderPlaced{
		EventID:     uuid.NewString(),
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		Restaurants: order.RestaurantIDs(),
		Delivery:    order.Delivery,
		Total:       order.Total,
		PlacedAt:    order.CreatedAt,
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx,
		p.exchange,            // exchange
		RoutingKeyOrderPlaced, // routing key
		false,                 // mandatory
		false,                 // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			MessageId:    event.EventID,
			Body:         body,
			Timestamp:    time.Now(),
			DeliveryMode: amqp091.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.log.DebugContext(ctx, "Published order event", "order", order.ID, "routing_key", RoutingKeyOrderPlaced)

	return nil
}

// Close closes the underlying channel.
func (p *RabbitPublisher) Close() error {
	return p.ch.Close()
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

// PublishOrderPlaced does nothing.
func (NopPublisher) PublishOrderPlaced(context.Context, models.Order) error {
	return nil
}

// Dial connects to RabbitMQ and opens a channel.
func Dial(url string) (*amqp091.Connection, *amqp091.Channel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	return conn, ch, nil
}
