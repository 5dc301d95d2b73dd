package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus values mirror what the payment webhook reports.
const (
	PaymentPending = "PENDING"
	PaymentPaid    = "PAID"
	PaymentFailed  = "FAILED"
)

// OrderItem is a single line of an order. Items are owned by the order and
// replaced wholesale when the webhook re-submits an order number.
type OrderItem struct {
	Name     string `bson:"name" json:"name"`
	Quantity int    `bson:"quantity" json:"quantity"`
}

// Order defines the persisted order document.
type Order struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber   string             `bson:"orderNumber" json:"orderNumber"`
	CustomerName  string             `bson:"customerName" json:"customerName"`
	CustomerPhone string             `bson:"customerPhone" json:"customerPhone"`
	CustomerToken string             `bson:"customerToken" json:"-"`
	CourierToken  string             `bson:"courierToken" json:"-"`
	PaymentStatus string             `bson:"paymentStatus" json:"paymentStatus"`
	OrderStatus   OrderStatus        `bson:"orderStatus" json:"orderStatus"`
	Total         string             `bson:"total" json:"total"`
	PaymentMethod string             `bson:"paymentMethod" json:"paymentMethod"`
	Address       string             `bson:"address" json:"address"`
	Items         []OrderItem        `bson:"items" json:"items"`

	LastLatitude          *float64   `bson:"lastLatitude" json:"lastLatitude"`
	LastLongitude         *float64   `bson:"lastLongitude" json:"lastLongitude"`
	LastLocationAccuracy  *float64   `bson:"lastLocationAccuracy" json:"lastLocationAccuracy"`
	LastLocationUpdatedAt *time.Time `bson:"lastLocationUpdatedAt" json:"lastLocationUpdatedAt"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
