package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("orders").Indexes()

	orderNumberIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "orderNumber", Value: 1}},
		Options: options.Index().
			SetName("orderNumber_unique").
			SetUnique(true),
	}

	log.Println("EnsureOrderIndexes: creating orderNumber_unique index")
	_, err := indexes.CreateOne(ctx, orderNumberIndex)
	if err != nil {
		log.Println("EnsureOrderIndexes: orderNumber index error:", err)
		return err
	}
	return nil
}

// EnsureOrderEventIndexes creates the unique (orderId, eventType) index the
// event ledger relies on. Insert-if-absent against this index is the only
// concurrency control the notification guarantees depend on.
func EnsureOrderEventIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("order_events").Indexes()

	ledgerIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "orderId", Value: 1},
			{Key: "eventType", Value: 1},
		},
		Options: options.Index().
			SetName("orderId_eventType_unique").
			SetUnique(true),
	}

	log.Println("EnsureOrderEventIndexes: creating orderId_eventType_unique index")
	_, err := indexes.CreateOne(ctx, ledgerIndex)
	if err != nil {
		log.Println("EnsureOrderEventIndexes: ledger index error:", err)
		return err
	}
	return nil
}

func EnsureLocationPingIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("location_pings").Indexes()

	pingIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "orderId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
		Options: options.Index().SetName("orderId_createdAt_index"),
	}

	log.Println("EnsureLocationPingIndexes: creating orderId_createdAt_index index")
	_, err := indexes.CreateOne(ctx, pingIndex)
	if err != nil {
		log.Println("EnsureLocationPingIndexes: ping index error:", err)
		return err
	}
	return nil
}

func EnsureStaffIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("staff").Indexes()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}

	log.Println("EnsureStaffIndexes: creating email_unique index")
	_, err := indexes.CreateOne(ctx, emailIndex)
	if err != nil {
		log.Println("EnsureStaffIndexes: email index error:", err)
		return err
	}
	return nil
}
