package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// EnsureSchema creates the orders table when it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS orders (
			id          TEXT PRIMARY KEY,
			customer_id TEXT NOT NULL,
			items       JSONB NOT NULL,
			street      TEXT NOT NULL,
			city        TEXT NOT NULL,
			state       TEXT NOT NULL,
			postal_code TEXT NOT NULL,
			landmark    TEXT NOT NULL DEFAULT '',
			latitude    DOUBLE PRECISION NOT NULL,
			longitude   DOUBLE PRECISION NOT NULL,
			total       NUMERIC(12, 2) NOT NULL,
			status      TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		);
	`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create orders table: %w", err)
	}

	return nil
}

// CreateOrder inserts a validated order. The line items are stored as a JSONB document.
func (r *Repository) CreateOrder(ctx context.Context, order models.Order) error {
	query := `
		INSERT INTO orders (
			id, customer_id, items, street, city, state, postal_code, landmark,
			latitude, longitude, total, status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`

	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to encode order items: %w", err)
	}

	_, err = r.db.Exec(ctx, query,
		order.ID, order.CustomerID, items,
		order.Address.Street, order.Address.City, order.Address.State, order.Address.PostalCode, order.Address.Landmark,
		order.Delivery.Latitude, order.Delivery.Longitude,
		order.Total.String(), string(order.Status), order.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrOrderExists, order.ID)
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	r.log.DebugContext(ctx, "Order stored", "id", order.ID, "status", order.Status)

	return nil
}

// GetOrder returns the order with the given id, or ErrOrderNotFound.
func (r *Repository) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	query := `
		SELECT
			id, customer_id, items, street, city, state, postal_code, landmark,
			latitude, longitude, total::text, status, created_at
		FROM orders
		WHERE id = $1;
	`

	var (
		order  models.Order
		items  []byte
		total  string
		status string
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&order.ID, &order.CustomerID, &items,
		&order.Address.Street, &order.Address.City, &order.Address.State, &order.Address.PostalCode, &order.Address.Landmark,
		&order.Delivery.Latitude, &order.Delivery.Longitude,
		&total, &status, &order.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	if err = json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}

	if order.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("failed to parse order total: %w", err)
	}
	order.Status = models.OrderStatus(status)

	return &order, nil
}

// UpdateOrderStatus sets the status of an order, or returns ErrOrderNotFound.
func (r *Repository) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $1
		WHERE id = $2;
	`

	tag, err := r.db.Exec(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
