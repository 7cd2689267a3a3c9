package handlers

import (
	"context"
	"crypto/rand"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/middleware"
	"storefront/internal/models"
)

const (
	loyaltyDiscountPercentage = 10
	loyaltyCouponLifetime     = 30 * 24 * time.Hour
)

type validateCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// GetCoupon returns the user's active coupon, or JSON null when none exists.
func GetCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var coupon models.Coupon
		err := db.Collection("coupons").FindOne(ctx, bson.M{
			"userId":   user.ID,
			"isActive": true,
		}).Decode(&coupon)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusOK, nil)
			return
		}
		if err != nil {
			log.Println("[COUPON] [ERROR] lookup failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		c.JSON(http.StatusOK, coupon)
	}
}

// ValidateCoupon checks a code for the requesting user. An expired coupon is
// persisted inactive before the validation failure is reported.
func ValidateCoupon(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req validateCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var coupon models.Coupon
		err := db.Collection("coupons").FindOne(ctx, bson.M{
			"code":     strings.TrimSpace(req.Code),
			"userId":   user.ID,
			"isActive": true,
		}).Decode(&coupon)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "coupon not found"})
			return
		}
		if err != nil {
			log.Println("[COUPON] [ERROR] validate lookup failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		verdict := evaluateCoupon(coupon, time.Now())
		if !verdict.OK {
			if verdict.Deactivate {
				if _, err := db.Collection("coupons").UpdateByID(ctx, coupon.ID, bson.M{
					"$set": bson.M{"isActive": false},
				}); err != nil {
					log.Println("[COUPON] [ERROR] expire deactivation failed:", err)
				}
			}
			c.JSON(http.StatusNotFound, gin.H{"error": verdict.Message})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":            "coupon is valid",
			"code":               coupon.Code,
			"discountPercentage": coupon.DiscountPercentage,
		})
	}
}

// couponVerdict is the outcome of checking a coupon against the clock.
// Deactivate means the coupon must be persisted inactive even though the
// validation itself fails.
type couponVerdict struct {
	OK         bool
	Deactivate bool
	Message    string
}

func evaluateCoupon(coupon models.Coupon, now time.Time) couponVerdict {
	if coupon.Expired(now) {
		return couponVerdict{Deactivate: true, Message: "coupon expired"}
	}
	return couponVerdict{OK: true}
}

// CreateLoyaltyCoupon replaces any existing coupon for the user with a fresh
// 10%-off code valid for 30 days.
func CreateLoyaltyCoupon(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) (models.Coupon, error) {
	if _, err := db.Collection("coupons").DeleteMany(ctx, bson.M{"userId": userID}); err != nil {
		return models.Coupon{}, err
	}

	code, err := newGiftCode()
	if err != nil {
		return models.Coupon{}, err
	}

	now := time.Now()
	coupon := models.Coupon{
		UserID:             userID,
		Code:               code,
		DiscountPercentage: loyaltyDiscountPercentage,
		ExpirationDate:     now.Add(loyaltyCouponLifetime),
		IsActive:           true,
		CreatedAt:          now,
	}

	res, err := db.Collection("coupons").InsertOne(ctx, coupon)
	if err != nil {
		return models.Coupon{}, err
	}
	coupon.ID, _ = res.InsertedID.(primitive.ObjectID)
	return coupon, nil
}

const giftCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func newGiftCode() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = giftCodeCharset[int(b)%len(giftCodeCharset)]
	}
	return "GIFT" + string(buf), nil
}
