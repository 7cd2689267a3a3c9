package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/cache"
	"storefront/internal/models"
	"storefront/internal/uploads"
)

const featuredProductsCacheKey = "featured_products"

type createProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" binding:"required,gte=0"`
	Image       string  `json:"image"`
	Category    string  `json:"category" binding:"required"`
}

func GetAllProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("products").Find(ctx, bson.M{})
		if err != nil {
			log.Println("[PRODUCT] [ERROR] list failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		defer cursor.Close(ctx)

		products := []models.Product{}
		if err := cursor.All(ctx, &products); err != nil {
			log.Println("[PRODUCT] [ERROR] list decode failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"products": products})
	}
}

// GetFeaturedProducts serves the featured list cache-aside: any cache failure
// degrades to the catalog store, then repopulates best-effort.
func GetFeaturedProducts(db *mongo.Database, store cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if cached, ok := cache.TryGet(ctx, store, featuredProductsCacheKey); ok {
			var products []models.Product
			if err := json.Unmarshal([]byte(cached), &products); err == nil {
				c.JSON(http.StatusOK, products)
				return
			}
			log.Println("[PRODUCT] [WARN] featured cache entry unreadable, falling back")
		}

		products, err := loadFeaturedProducts(ctx, db)
		if err != nil {
			log.Println("[PRODUCT] [ERROR] featured lookup failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		if encoded, err := json.Marshal(products); err == nil {
			cache.TrySet(ctx, store, featuredProductsCacheKey, string(encoded), 0)
		}

		c.JSON(http.StatusOK, products)
	}
}

func GetProductsByCategory(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		category := strings.TrimSpace(c.Param("category"))
		if category == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "category is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("products").Find(ctx, bson.M{"category": category})
		if err != nil {
			log.Println("[PRODUCT] [ERROR] category lookup failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		defer cursor.Close(ctx)

		products := []models.Product{}
		if err := cursor.All(ctx, &products); err != nil {
			log.Println("[PRODUCT] [ERROR] category decode failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"products": products})
	}
}

func GetRecommendedProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		pipeline := mongo.Pipeline{
			{{Key: "$sample", Value: bson.M{"size": 3}}},
			{{Key: "$project", Value: bson.M{
				"_id":         1,
				"name":        1,
				"description": 1,
				"image":       1,
				"price":       1,
			}}},
		}

		cursor, err := db.Collection("products").Aggregate(ctx, pipeline)
		if err != nil {
			log.Println("[PRODUCT] [ERROR] recommended aggregation failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		defer cursor.Close(ctx)

		products := []models.Product{}
		if err := cursor.All(ctx, &products); err != nil {
			log.Println("[PRODUCT] [ERROR] recommended decode failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		c.JSON(http.StatusOK, products)
	}
}

func CreateProduct(db *mongo.Database, images uploads.ImageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /api/products"
		defer handlePanic(c, route)

		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		imageURL := ""
		if strings.TrimSpace(req.Image) != "" {
			uploaded, err := images.Upload(ctx, req.Image)
			if err != nil {
				log.Println("[PRODUCT] [ERROR] image upload failed:", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "image upload failed"})
				return
			}
			imageURL = uploaded
		}

		now := time.Now()
		product := models.Product{
			Name:        strings.TrimSpace(req.Name),
			Description: strings.TrimSpace(req.Description),
			Price:       req.Price,
			Image:       imageURL,
			Category:    strings.TrimSpace(req.Category),
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		res, err := db.Collection("products").InsertOne(ctx, product)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		product.ID, _ = res.InsertedID.(primitive.ObjectID)

		log.Println("[PRODUCT] [INFO] product created:", product.ID.Hex())
		c.JSON(http.StatusCreated, product)
	}
}

// ToggleFeaturedProduct flips the isFeatured flag and refreshes the cached
// featured list; a cache failure never fails the toggle.
func ToggleFeaturedProduct(db *mongo.Database, store cache.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var product models.Product
		if err := db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Decode(&product); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}

		product.IsFeatured = !product.IsFeatured
		product.UpdatedAt = time.Now()

		_, err = db.Collection("products").UpdateByID(ctx, productID, bson.M{
			"$set": bson.M{
				"isFeatured": product.IsFeatured,
				"updatedAt":  product.UpdatedAt,
			},
		})
		if err != nil {
			log.Println("[PRODUCT] [ERROR] feature toggle failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		refreshFeaturedCache(ctx, db, store)

		log.Println("[PRODUCT] [INFO] feature toggled:", productID.Hex(), "->", product.IsFeatured)
		c.JSON(http.StatusOK, product)
	}
}

// DeleteProduct removes the catalog entry and fires an image-store delete for
// its picture. The image delete is tolerant: failure is logged and does not
// block record deletion.
func DeleteProduct(db *mongo.Database, images uploads.ImageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(c.Param("id")))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		var product models.Product
		if err := db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Decode(&product); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}

		if publicID := uploads.PublicIDFromURL(product.Image); publicID != "" {
			if err := images.Destroy(ctx, publicID); err != nil {
				log.Println("[PRODUCT] [WARN] image delete failed for", publicID, ":", err)
			}
		}

		if _, err := db.Collection("products").DeleteOne(ctx, bson.M{"_id": productID}); err != nil {
			log.Println("[PRODUCT] [ERROR] delete failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		log.Println("[PRODUCT] [INFO] product deleted:", productID.Hex())
		c.JSON(http.StatusOK, gin.H{"message": "product deleted successfully"})
	}
}

func loadFeaturedProducts(ctx context.Context, db *mongo.Database) ([]models.Product, error) {
	cursor, err := db.Collection("products").Find(ctx, bson.M{"isFeatured": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func refreshFeaturedCache(ctx context.Context, db *mongo.Database, store cache.Store) {
	products, err := loadFeaturedProducts(ctx, db)
	if err != nil {
		log.Println("[PRODUCT] [WARN] featured cache refresh lookup failed:", err)
		return
	}

	encoded, err := json.Marshal(products)
	if err != nil {
		log.Println("[PRODUCT] [WARN] featured cache encode failed:", err)
		return
	}

	cache.TrySet(ctx, store, featuredProductsCacheKey, string(encoded), 0)
}
