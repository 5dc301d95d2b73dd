package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"impulse-backend/internal/models"
)

func (s *Store) pings() *mongo.Collection {
	return s.db.Collection("location_pings")
}

func (s *Store) CreatePing(ctx context.Context, orderID primitive.ObjectID, lat, lng, accuracy float64) (*models.LocationPing, error) {
	ping := models.LocationPing{
		OrderID:   orderID,
		Latitude:  lat,
		Longitude: lng,
		Accuracy:  accuracy,
		CreatedAt: time.Now().UTC(),
	}
	res, err := s.pings().InsertOne(ctx, ping)
	if err != nil {
		return nil, err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		ping.ID = id
	}
	return &ping, nil
}

func (s *Store) CountPings(ctx context.Context, orderID primitive.ObjectID) (int64, error) {
	return s.pings().CountDocuments(ctx, bson.M{"orderId": orderID})
}

// LatestPing returns the most recent ping for the order, or nil when the
// courier has not shared a location yet.
func (s *Store) LatestPing(ctx context.Context, orderID primitive.ObjectID) (*models.LocationPing, error) {
	var ping models.LocationPing
	err := s.pings().FindOne(
		ctx,
		bson.M{"orderId": orderID},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	).Decode(&ping)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ping, nil
}
