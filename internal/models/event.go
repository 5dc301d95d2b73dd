package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType tags a notification milestone in the event ledger.
type EventType string

const (
	EventConfirmSent  EventType = "CONFIRM_SENT"
	EventOnTheWaySent EventType = "ON_THE_WAY_SENT"
)

// OrderEvent records that a notification kind has been dispatched for an
// order. Exactly one document may exist per (orderId, eventType); the unique
// index enforces it. Documents are never updated or deleted.
type OrderEvent struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID   primitive.ObjectID `bson:"orderId" json:"orderId"`
	EventType EventType          `bson:"eventType" json:"eventType"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
