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
)

type cartItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
}

type removeCartItemRequest struct {
	ProductID string `json:"productId"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,gte=0"`
}

// CartProduct is a cart line joined against the current catalog state, so the
// displayed price can drift from what checkout will charge.
type CartProduct struct {
	models.Product
	Quantity int `json:"quantity"`
}

// AddToCart increments quantity when the line exists, otherwise appends a new
// line with quantity 1. Every step is a single-statement conditional update:
// the append only matches while the line is still absent, so two concurrent
// first-adds cannot both append, and the loser retries the increment.
func AddToCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req cartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ProductID))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		users := db.Collection("users")
		res, err := users.UpdateOne(ctx, cartLineFilter(user.ID, productID), cartIncrementUpdate())
		if err != nil {
			log.Println("[CART] [ERROR] add increment failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		if res.MatchedCount == 0 {
			pushRes, err := users.UpdateOne(ctx, cartLineAbsentFilter(user.ID, productID), cartAppendUpdate(productID))
			if err != nil {
				log.Println("[CART] [ERROR] add append failed:", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
				return
			}
			if pushRes.MatchedCount == 0 {
				// Lost the first-add race: the line exists now, increment it.
				if _, err := users.UpdateOne(ctx, cartLineFilter(user.ID, productID), cartIncrementUpdate()); err != nil {
					log.Println("[CART] [ERROR] add retry increment failed:", err)
					c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
					return
				}
			}
		}

		items, err := loadCartItems(ctx, db, user.ID)
		if err != nil {
			log.Println("[CART] [ERROR] cart reload failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		c.JSON(http.StatusOK, items)
	}
}

// GetCartProducts joins the cart lines against current product records.
func GetCartProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		productIDs := make([]primitive.ObjectID, 0, len(user.CartItems))
		for _, item := range user.CartItems {
			productIDs = append(productIDs, item.ProductID)
		}

		products := []models.Product{}
		if len(productIDs) > 0 {
			cursor, err := db.Collection("products").Find(ctx, bson.M{"_id": bson.M{"$in": productIDs}})
			if err != nil {
				log.Println("[CART] [ERROR] product join failed:", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
				return
			}
			defer cursor.Close(ctx)

			if err := cursor.All(ctx, &products); err != nil {
				log.Println("[CART] [ERROR] product join decode failed:", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
				return
			}
		}

		c.JSON(http.StatusOK, mergeCartView(user.CartItems, products))
	}
}

// RemoveAllFromCart removes one line, or clears the whole cart when no
// product id is given.
func RemoveAllFromCart(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var req removeCartItemRequest
		if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		update := bson.M{"$set": bson.M{"cartItems": []models.CartItem{}, "updatedAt": time.Now()}}
		if trimmed := strings.TrimSpace(req.ProductID); trimmed != "" {
			productID, err := primitive.ObjectIDFromHex(trimmed)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
				return
			}
			update = bson.M{
				"$pull": bson.M{"cartItems": bson.M{"product": productID}},
				"$set":  bson.M{"updatedAt": time.Now()},
			}
		}

		if _, err := db.Collection("users").UpdateByID(ctx, user.ID, update); err != nil {
			log.Println("[CART] [ERROR] remove failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		items, err := loadCartItems(ctx, db, user.ID)
		if err != nil {
			log.Println("[CART] [ERROR] cart reload failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		c.JSON(http.StatusOK, items)
	}
}

// UpdateQuantity overwrites a line's quantity; quantity 0 removes the line.
func UpdateQuantity(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
			return
		}

		var req updateQuantityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}
		quantity := *req.Quantity

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		users := db.Collection("users")

		var res *mongo.UpdateResult
		if quantity == 0 {
			res, err = users.UpdateOne(ctx,
				bson.M{"_id": user.ID, "cartItems.product": productID},
				bson.M{
					"$pull": bson.M{"cartItems": bson.M{"product": productID}},
					"$set":  bson.M{"updatedAt": time.Now()},
				},
			)
		} else {
			res, err = users.UpdateOne(ctx,
				bson.M{"_id": user.ID, "cartItems.product": productID},
				bson.M{
					"$set": bson.M{
						"cartItems.$.quantity": quantity,
						"updatedAt":            time.Now(),
					},
				},
			)
		}
		if err != nil {
			log.Println("[CART] [ERROR] quantity update failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found in cart"})
			return
		}

		items, err := loadCartItems(ctx, db, user.ID)
		if err != nil {
			log.Println("[CART] [ERROR] cart reload failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		c.JSON(http.StatusOK, items)
	}
}

// cartLineFilter matches the user document only when a cart line for the
// product already exists, so the positional increment has a target.
func cartLineFilter(userID, productID primitive.ObjectID) bson.M {
	return bson.M{"_id": userID, "cartItems.product": productID}
}

// cartLineAbsentFilter matches only while no line for the product exists.
// The guard is what keeps two concurrent first-adds from both appending.
func cartLineAbsentFilter(userID, productID primitive.ObjectID) bson.M {
	return bson.M{"_id": userID, "cartItems.product": bson.M{"$ne": productID}}
}

func cartIncrementUpdate() bson.M {
	return bson.M{
		"$inc": bson.M{"cartItems.$.quantity": 1},
		"$set": bson.M{"updatedAt": time.Now()},
	}
}

func cartAppendUpdate(productID primitive.ObjectID) bson.M {
	return bson.M{
		"$push": bson.M{"cartItems": models.CartItem{ProductID: productID, Quantity: 1}},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
}

func loadCartItems(ctx context.Context, db *mongo.Database, userID primitive.ObjectID) ([]models.CartItem, error) {
	var user models.User
	if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		return nil, err
	}
	if user.CartItems == nil {
		return []models.CartItem{}, nil
	}
	return user.CartItems, nil
}

// mergeCartView pairs cart lines with their current product documents. Lines
// whose product no longer exists in the catalog are dropped from the view.
func mergeCartView(lines []models.CartItem, products []models.Product) []CartProduct {
	byID := make(map[primitive.ObjectID]models.Product, len(products))
	for _, product := range products {
		byID[product.ID] = product
	}

	view := make([]CartProduct, 0, len(lines))
	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok {
			continue
		}
		view = append(view, CartProduct{Product: product, Quantity: line.Quantity})
	}
	return view
}
