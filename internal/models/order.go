package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderItem snapshots the price at session-creation time, as opposed to the
// catalog's current price.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product" json:"productId"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Price     float64            `bson:"price" json:"price"`
}

// Order is immutable once created. StripeSessionID is the idempotency key:
// at most one order per checkout session.
type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"userId" json:"userId"`
	Products        []OrderItem        `bson:"products" json:"products"`
	TotalAmount     float64            `bson:"totalAmount" json:"totalAmount"`
	StripeSessionID string             `bson:"stripeSessionId" json:"stripeSessionId"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
}
