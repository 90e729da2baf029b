package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// OrdersCollection is the MongoDB collection orders are stored in.
const OrdersCollection = "orders"

// MongoRepository stores orders as documents in MongoDB.
type MongoRepository struct {
	coll *mongo.Collection
	log  *slog.Logger
}

type lineItemDocument struct {
	Restaurant string               `bson:"restaurant"`
	Name       string               `bson:"name"`
	Quantity   int                  `bson:"quantity"`
	Price      primitive.Decimal128 `bson:"price"`
}

type orderDocument struct {
	ID         string                 `bson:"_id"`
	CustomerID string                 `bson:"customer_id"`
	Items      []lineItemDocument     `bson:"items"`
	Address    models.DeliveryAddress `bson:"address"`
	Delivery   models.Coordinates     `bson:"delivery"`
	Total      primitive.Decimal128   `bson:"total"`
	Status     string                 `bson:"status"`
	CreatedAt  time.Time              `bson:"created_at"`
}

// ConnectMongo connects to MongoDB and checks the primary is reachable.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	const timeout = 10 * time.Second

	clientOptions := options.Client().ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("error connecting to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("error pinging MongoDB: %w", err)
	}

	return client, nil
}

// NewMongoRepository creates a repository over the orders collection of db.
func NewMongoRepository(db *mongo.Database, log *slog.Logger) *MongoRepository {
	return &MongoRepository{coll: db.Collection(OrdersCollection), log: log}
}

// EnsureIndexes creates the secondary indexes of the orders collection.
func (m *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "customer_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("customer_created_idx"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}},
			Options: options.Index().SetName("status_idx"),
		},
	})
	if err != nil {
		return fmt.Errorf("error creating order indexes: %w", err)
	}

	return nil
}

// CreateOrder inserts a validated order document.
func (m *MongoRepository) CreateOrder(ctx context.Context, order models.Order) error {
	doc, err := toDocument(order)
	if err != nil {
		return err
	}

	if _, err = m.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrOrderExists, order.ID)
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	m.log.DebugContext(ctx, "Order stored", "id", order.ID, "status", order.Status)

	return nil
}

// GetOrder returns the order with the given id, or ErrOrderNotFound.
func (m *MongoRepository) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var doc orderDocument
	if err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	return fromDocument(doc)
}

// UpdateOrderStatus sets the status of an order, or returns ErrOrderNotFound.
func (m *MongoRepository) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	res, err := m.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": string(status)}})
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if res.MatchedCount == 0 {
		return ErrOrderNotFound
	}

	return nil
}

// Ping checks the MongoDB connection.
func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func toDocument(order models.Order) (orderDocument, error) {
	total, err := primitive.ParseDecimal128(order.Total.String())
	if err != nil {
		return orderDocument{}, fmt.Errorf("failed to encode order total: %w", err)
	}

	items := make([]lineItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		price, errPrice := primitive.ParseDecimal128(item.Price.String())
		if errPrice != nil {
			return orderDocument{}, fmt.Errorf("failed to encode price of %q: %w", item.Name, errPrice)
		}
		items = append(items, lineItemDocument{
			Restaurant: item.Restaurant,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Price:      price,
		})
	}

	return orderDocument{
		ID:         order.ID,
		CustomerID: order.CustomerID,
		Items:      items,
		Address:    order.Address,
		Delivery:   order.Delivery,
		Total:      total,
		Status:     string(order.Status),
		CreatedAt:  order.CreatedAt,
	}, nil
}

func fromDocument(doc orderDocument) (*models.Order, error) {
	total, err := decimal.NewFromString(doc.Total.String())
	if err != nil {
		return nil, fmt.Errorf("failed to decode order total: %w", err)
	}

	items := make([]models.LineItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		price, errPrice := decimal.NewFromString(item.Price.String())
		if errPrice != nil {
			return nil, fmt.Errorf("failed to decode price of %q: %w", item.Name, errPrice)
		}
		items = append(items, models.LineItem{
			Restaurant: item.Restaurant,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Price:      price,
		})
	}

	return &models.Order{
		ID:         doc.ID,
		CustomerID: doc.CustomerID,
		Items:      items,
		Address:    doc.Address,
		Delivery:   doc.Delivery,
		Total:      total,
		Status:     models.OrderStatus(doc.Status),
		CreatedAt:  doc.CreatedAt,
	}, nil
}
