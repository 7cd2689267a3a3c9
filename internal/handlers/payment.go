package handlers

import (
	"context"
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
	"storefront/internal/payments"
)

type createCheckoutSessionRequest struct {
	Products   []checkoutProductRequest `json:"products" binding:"required"`
	CouponCode string                   `json:"couponCode"`
}

type checkoutSuccessRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// CreateCheckoutSession registers a provider checkout session for the cart.
// Line amounts come from client-supplied prices; the captured amount reported
// back by the provider is what the order will record.
func CreateCheckoutSession(db *mongo.Database, provider payments.Provider, clientURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/payments/create-checkout-session"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req createCheckoutSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		if len(req.Products) == 0 {
			respondWithError(c, http.StatusBadRequest, route, "invalid or empty products array")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		lineItems, totalAmount := buildLineItems(req.Products)
		chargedAmount := totalAmount

		metadata := map[string]string{
			"userId": user.ID.Hex(),
		}

		snapshot, err := encodeProductSnapshot(req.Products)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "error creating checkout session")
			return
		}
		metadata["products"] = snapshot

		providerCouponID := ""
		if code := strings.TrimSpace(req.CouponCode); code != "" {
			var coupon models.Coupon
			err := db.Collection("coupons").FindOne(ctx, bson.M{
				"code":     code,
				"userId":   user.ID,
				"isActive": true,
			}).Decode(&coupon)
			switch {
			case err == mongo.ErrNoDocuments:
				// An unknown code is ignored rather than failing the session.
				log.Println("[PAYMENT] [WARN] coupon not found at session creation:", code)
			case err != nil:
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			default:
				providerCouponID, err = provider.CreateCoupon(ctx, coupon.DiscountPercentage)
				if err != nil {
					log.Println("[PAYMENT] [ERROR] provider coupon creation failed:", err)
					respondWithError(c, http.StatusInternalServerError, route, "error creating checkout session")
					return
				}
				chargedAmount = applyDiscount(totalAmount, coupon.DiscountPercentage)
				metadata["couponCode"] = coupon.Code
			}
		}

		session, err := provider.CreateSession(ctx, payments.SessionParams{
			LineItems:  lineItems,
			SuccessURL: clientURL + "/purchase-success?session_id={CHECKOUT_SESSION_ID}",
			CancelURL:  clientURL + "/purchase-cancel",
			Metadata:   metadata,
			CouponID:   providerCouponID,
		})
		if err != nil {
			log.Println("[PAYMENT] [ERROR] session creation failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "error creating checkout session")
			return
		}

		// Loyalty issuance happens here, before the payment completes, and is
		// keyed to the pre-discount total. Flagged as a policy decision; kept
		// as observed.
		if qualifiesForLoyaltyCoupon(totalAmount) {
			if _, err := CreateLoyaltyCoupon(ctx, db, user.ID); err != nil {
				log.Println("[PAYMENT] [ERROR] loyalty coupon issuance failed:", err)
			} else {
				log.Println("[PAYMENT] [INFO] loyalty coupon issued to:", user.ID.Hex())
			}
		}

		log.Println("[PAYMENT] [INFO] checkout session created:", session.ID)
		c.JSON(http.StatusOK, gin.H{
			"id":          session.ID,
			"url":         session.URL,
			"totalAmount": float64(chargedAmount) / 100,
		})
	}
}

// CheckoutSuccess confirms a checkout session and creates the order. The
// provider's captured amount is the source of truth for the total, and the
// session id is the idempotency key.
func CheckoutSuccess(db *mongo.Database, provider payments.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/payments/checkout-success"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req checkoutSuccessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		session, err := provider.RetrieveSession(ctx, strings.TrimSpace(req.SessionID))
		if err == payments.ErrSessionNotFound {
			respondWithError(c, http.StatusNotFound, route, "checkout session not found")
			return
		}
		if err != nil {
			log.Println("[PAYMENT] [ERROR] session retrieval failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "error processing checkout")
			return
		}

		if !session.Paid {
			respondWithError(c, http.StatusBadRequest, route, "payment not completed")
			return
		}

		orders := db.Collection("orders")

		var existing models.Order
		err = orders.FindOne(ctx, bson.M{"stripeSessionId": session.ID}).Decode(&existing)
		if err == nil {
			log.Println("[PAYMENT] [INFO] duplicate confirmation for session:", session.ID)
			c.JSON(http.StatusOK, gin.H{
				"success": true,
				"message": "order already created for this session",
				"orderId": existing.ID.Hex(),
			})
			return
		}
		if err != mongo.ErrNoDocuments {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		// The session metadata names the buyer; the authenticated principal
		// only backstops a session created before metadata was recorded.
		orderUserID := user.ID
		if metaID, err := primitive.ObjectIDFromHex(session.Metadata["userId"]); err == nil {
			orderUserID = metaID
		}

		if code, ok := session.Metadata["couponCode"]; ok && code != "" {
			if _, err := db.Collection("coupons").UpdateOne(ctx,
				bson.M{"code": code, "userId": orderUserID},
				bson.M{"$set": bson.M{"isActive": false}},
			); err != nil {
				log.Println("[PAYMENT] [ERROR] coupon deactivation failed:", err)
			}
		}

		order := models.Order{
			UserID:          orderUserID,
			Products:        snapshotToOrderItems(parseProductSnapshot(session.Metadata["products"])),
			TotalAmount:     float64(session.AmountTotal) / 100,
			StripeSessionID: session.ID,
			CreatedAt:       time.Now(),
		}

		res, err := orders.InsertOne(ctx, order)
		if err != nil {
			// A concurrent confirmation can win the insert race; the unique
			// session index turns that into a duplicate-key error and the
			// existing order is the answer.
			if orderExistsForSession(err) {
				if lookupErr := orders.FindOne(ctx, bson.M{"stripeSessionId": session.ID}).Decode(&existing); lookupErr == nil {
					c.JSON(http.StatusOK, gin.H{
						"success": true,
						"message": "order already created for this session",
						"orderId": existing.ID.Hex(),
					})
					return
				}
			}
			log.Println("[PAYMENT] [ERROR] order insert failed:", err)
			respondWithError(c, http.StatusInternalServerError, route, "error processing checkout")
			return
		}
		order.ID, _ = res.InsertedID.(primitive.ObjectID)

		log.Println("[PAYMENT] [INFO] order created:", order.ID.Hex(), "session:", session.ID)
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "payment successful and order created",
			"orderId": order.ID.Hex(),
		})
	}
}

// orderExistsForSession reports whether an order insert failed because another
// confirmation already created the order for this session. The unique index on
// stripeSessionId is what surfaces the race as a duplicate-key error.
func orderExistsForSession(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

func snapshotToOrderItems(items []snapshotItem) []models.OrderItem {
	orderItems := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		productID, err := primitive.ObjectIDFromHex(item.ID)
		if err != nil {
			log.Println("[PAYMENT] [WARN] snapshot line has invalid product id:", item.ID)
			continue
		}
		orderItems = append(orderItems, models.OrderItem{
			ProductID: productID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return orderItems
}
