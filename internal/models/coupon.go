package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Coupon is per-user: at most one active coupon per user by application
// convention, not by a uniqueness constraint.
type Coupon struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID             primitive.ObjectID `bson:"userId" json:"userId"`
	Code               string             `bson:"code" json:"code"`
	DiscountPercentage float64            `bson:"discountPercentage" json:"discountPercentage"`
	ExpirationDate     time.Time          `bson:"expirationDate" json:"expirationDate"`
	IsActive           bool               `bson:"isActive" json:"isActive"`
	CreatedAt          time.Time          `bson:"createdAt" json:"createdAt"`
}

func (c Coupon) Expired(now time.Time) bool {
	return c.ExpirationDate.Before(now)
}
