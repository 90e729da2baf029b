package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a persisted order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known order statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// LineItem is a single menu item in an order. Restaurant carries whatever the client sent,
// which is either the restaurant id or its display name.
type LineItem struct {
	Restaurant string          `json:"restaurant"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

// Subtotal returns price multiplied by quantity.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Order is an order that passed delivery validation and is ready to be persisted.
type Order struct {
	ID         string          `json:"id"`
	CustomerID string          `json:"customerId"`
	Items      []LineItem      `json:"items"`
	Address    DeliveryAddress `json:"address"`
	Delivery   Coordinates     `json:"deliveryCoordinates"` // Delivery is the validated destination point.
	Total      decimal.Decimal `json:"total"`
	Status     OrderStatus     `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// RestaurantIDs returns the distinct restaurant references of the items in first-seen order.
func (o Order) RestaurantIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, item := range o.Items {
		if !seen[item.Restaurant] {
			seen[item.Restaurant] = true
			ids = append(ids, item.Restaurant)
		}
	}

	return ids
}
