package store

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"impulse-backend/internal/models"
)

func (s *Store) events() *mongo.Collection {
	return s.db.Collection("order_events")
}

// LedgerHas reports whether a notification kind has already been committed
// for the order. Callers use this to skip needless dispatch attempts; the
// unique index behind LedgerMark is the actual correctness guarantee.
func (s *Store) LedgerHas(ctx context.Context, orderID primitive.ObjectID, eventType models.EventType) (bool, error) {
	err := s.events().FindOne(ctx, bson.M{
		"orderId":   orderID,
		"eventType": eventType,
	}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LedgerMark commits the "sent" fact for (orderId, eventType). A concurrent
// caller losing the insert race observes the duplicate-key outcome, which is
// a benign no-op: the ledger entry exists either way.
func (s *Store) LedgerMark(ctx context.Context, orderID primitive.ObjectID, eventType models.EventType) error {
	_, err := s.events().InsertOne(ctx, models.OrderEvent{
		OrderID:   orderID,
		EventType: eventType,
		CreatedAt: time.Now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		log.Printf("[LEDGER] [WARN] event %s already marked for order %s", eventType, orderID.Hex())
		return nil
	}
	return err
}
