package repository_test

import (
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/hermes/internal/models"
	"github.com/UnknownOlympus/hermes/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func mustDecimal128(t *testing.T, s string) primitive.Decimal128 {
	t.Helper()
	d, err := primitive.ParseDecimal128(s)
	require.NoError(t, err)
	return d
}

func TestMongoRepository(t *testing.T) {
	logger := slog.Default()
	order := sampleOrder()
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create order", func(mt *mtest.T) {
		repo := repository.NewMongoRepository(mt.DB, logger)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := repo.CreateOrder(t.Context(), order)

		require.NoError(mt, err)
	})

	mt.Run("create duplicate order", func(mt *mtest.T) {
		repo := repository.NewMongoRepository(mt.DB, logger)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.CreateOrder(t.Context(), order)

		require.ErrorIs(mt, err, repository.ErrOrderExists)
	})

	mt.Run("get order", func(mt *mtest.T) {
		repo := repository.NewMongoRepository(mt.DB, logger)
		ns := mt.DB.Name() + "." + repository.OrdersCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: order.ID},
			{Key: "customer_id", Value: order.CustomerID},
			{Key: "items", Value: bson.A{bson.D{
				{Key: "restaurant", Value: "1"},
				{Key: "name", Value: "Paneer Tikka"},
				{Key: "quantity", Value: 2},
				{Key: "price", Value: mustDecimal128(t, "249.50")},
			}}},
			{Key: "address", Value: bson.D{
				{Key: "street", Value: order.Address.Street},
				{Key: "city", Value: order.Address.City},
				{Key: "state", Value: order.Address.State},
				{Key: "postal_code", Value: order.Address.PostalCode},
			}},
			{Key: "delivery", Value: bson.D{{Key: "lng", Value: 77.0470}, {Key: "lat", Value: 28.5895}}},
			{Key: "total", Value: mustDecimal128(t, "499.00")},
			{Key: "status", Value: "pending"},
			{Key: "created_at", Value: primitive.NewDateTimeFromTime(order.CreatedAt)},
		}))

		got, err := repo.GetOrder(t.Context(), order.ID)

		require.NoError(mt, err)
		assert.Equal(mt, order.ID, got.ID)
		assert.Equal(mt, order.Address, got.Address)
		assert.Equal(mt, order.Delivery, got.Delivery)
		assert.True(mt, order.Total.Equal(got.Total))
		assert.True(mt, order.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(mt, models.OrderStatusPending, got.Status)
		require.Len(mt, got.Items, 1)
		assert.True(mt, decimal.RequireFromString("249.5").Equal(got.Items[0].Price))
	})

	mt.Run("get missing order", func(mt *mtest.T) {
		repo := repository.NewMongoRepository(mt.DB, logger)
		ns := mt.DB.Name() + "." + repository.OrdersCollection
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		got, err := repo.GetOrder(t.Context(), "missing")

		assert.Nil(mt, got)
		require.ErrorIs(mt, err, repository.ErrOrderNotFound)
	})

	mt.Run("update status", func(mt *mtest.T) {
		repo := repository.NewMongoRepository(mt.DB, logger)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		err := repo.UpdateOrderStatus(t.Context(), order.ID, models.OrderStatusPreparing)

		require.NoError(mt, err)
	})

	mt.Run("update status of missing order", func(mt *mtest.T) {
		repo := repository.NewMongoRepository(mt.DB, logger)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := repo.UpdateOrderStatus(t.Context(), "missing", models.OrderStatusPreparing)

		require.ErrorIs(mt, err, repository.ErrOrderNotFound)
	})

	mt.Run("update status failure", func(mt *mtest.T) {
		repo := repository.NewMongoRepository(mt.DB, logger)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Name:    "BadValue",
			Message: "bad value",
		}))

		err := repo.UpdateOrderStatus(t.Context(), order.ID, models.OrderStatusPreparing)

		require.ErrorContains(mt, err, "failed to update order status")
	})
}
