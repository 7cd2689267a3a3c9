package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("users").Indexes()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}

	_, err := indexes.CreateOne(ctx, emailIndex)
	if err != nil {
		log.Println("EnsureUserIndexes: email index error:", err)
		return err
	}
	return nil
}

// EnsureOrderIndexes backs the one-order-per-checkout-session guarantee with a
// unique index, so a race between two confirmation calls cannot insert twice.
func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("orders").Indexes()

	sessionIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "stripeSessionId", Value: 1}},
		Options: options.Index().
			SetName("stripeSessionId_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{
				"stripeSessionId": bson.M{
					"$exists": true,
				},
			}),
	}

	userIDIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetName("userId_index"),
	}

	_, err := indexes.CreateMany(ctx, []mongo.IndexModel{sessionIndex, userIDIndex})
	if err != nil {
		log.Println("EnsureOrderIndexes: index error:", err)
		return err
	}
	return nil
}

func EnsureCouponIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("coupons").Indexes()

	userCodeIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "code", Value: 1},
		},
		Options: options.Index().SetName("userId_code_index"),
	}

	_, err := indexes.CreateOne(ctx, userCodeIndex)
	if err != nil {
		log.Println("EnsureCouponIndexes: index error:", err)
		return err
	}
	return nil
}
