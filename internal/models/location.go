package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LocationPing is one immutable courier position sample. Ping history is
// append-only; the latest ping is derived by createdAt descending.
type LocationPing struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID   primitive.ObjectID `bson:"orderId" json:"orderId"`
	Latitude  float64            `bson:"latitude" json:"lat"`
	Longitude float64            `bson:"longitude" json:"lng"`
	Accuracy  float64            `bson:"accuracy" json:"accuracy"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
