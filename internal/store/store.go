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

// Store wraps the Mongo database with the order-tracking data access
// operations. Items live embedded on the order document, so replacing them on
// a webhook re-submission is a single atomic $set.
type Store struct {
	db *mongo.Database
}

func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) orders() *mongo.Collection {
	return s.db.Collection("orders")
}

func (s *Store) FindOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := s.orders().FindOne(ctx, bson.M{"orderNumber": orderNumber}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) FindOrderByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := s.orders().FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	res, err := s.orders().InsertOne(ctx, order)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return nil
}

// OrderDetails is the mutable portion of an order on webhook re-submission.
// Tokens and orderStatus are deliberately absent: they are never touched by
// the update path.
type OrderDetails struct {
	CustomerName  string
	CustomerPhone string
	Total         string
	PaymentStatus string
	PaymentMethod string
	Address       string
	Items         []models.OrderItem
}

func (s *Store) UpdateOrderDetails(ctx context.Context, id primitive.ObjectID, details OrderDetails) (*models.Order, error) {
	update := bson.M{"$set": bson.M{
		"customerName":  details.CustomerName,
		"customerPhone": details.CustomerPhone,
		"total":         details.Total,
		"paymentStatus": details.PaymentStatus,
		"paymentMethod": details.PaymentMethod,
		"address":       details.Address,
		"items":         details.Items,
		"updatedAt":     time.Now().UTC(),
	}}

	var order models.Order
	err := s.orders().FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionStatus applies an already-validated status change with a single
// conditional update. The filter pins the expected current status, so a
// concurrent transition makes the update match nothing instead of clobbering.
func (s *Store) TransitionStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus) error {
	res, err := s.orders().UpdateOne(
		ctx,
		bson.M{"_id": id, "orderStatus": from},
		bson.M{"$set": bson.M{"orderStatus": to, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, err := s.FindOrderByID(ctx, id); err != nil {
			return err
		}
		return models.ErrStatusConflict
	}
	return nil
}

func (s *Store) UpdateLastLocation(ctx context.Context, id primitive.ObjectID, lat, lng, accuracy float64, at time.Time) error {
	res, err := s.orders().UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"lastLatitude":          lat,
			"lastLongitude":         lng,
			"lastLocationAccuracy":  accuracy,
			"lastLocationUpdatedAt": at,
			"updatedAt":             at,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.ErrOrderNotFound
	}
	return nil
}

func (s *Store) ListRecentOrders(ctx context.Context, limit int64) ([]models.Order, error) {
	return s.listOrders(ctx, bson.M{}, limit)
}

// ListKitchenOrders returns the newest orders for the dashboard, optionally
// filtered by status, capped at 100.
func (s *Store) ListKitchenOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	filter := bson.M{}
	if status != "" {
		filter["orderStatus"] = status
	}
	return s.listOrders(ctx, filter, 100)
}

func (s *Store) listOrders(ctx context.Context, filter bson.M, limit int64) ([]models.Order, error) {
	cursor, err := s.orders().Find(
		ctx,
		filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) CountOrdersByStatus(ctx context.Context, status models.OrderStatus) (int64, error) {
	return s.orders().CountDocuments(ctx, bson.M{"orderStatus": status})
}
