package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/payments"
	"storefront/internal/uploads"
)

func main() {
	config.Load()

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}
	if err := database.EnsureCouponIndexes(db); err != nil {
		log.Printf("coupon index warning: %v", err)
	}

	store, err := cache.NewRedisStore(config.AppEnv.RedisURL)
	if err != nil {
		log.Fatal("redis connection failed:", err)
	}

	imageStore, err := uploads.NewCloudinaryStore(config.AppEnv.CloudinaryURL)
	if err != nil {
		log.Fatal("cloudinary setup failed:", err)
	}

	provider := payments.NewStripeProvider(config.AppEnv.StripeSecretKey)

	tokens := handlers.TokenSettings{
		AccessSecret:  config.AppEnv.AccessTokenSecret,
		RefreshSecret: config.AppEnv.RefreshTokenSecret,
		AccessTTL:     config.AppEnv.AccessTokenTTL,
		RefreshTTL:    config.AppEnv.RefreshTokenTTL,
		SecureCookies: config.AppEnv.IsProduction(),
	}

	r := gin.Default()

	protect := middleware.ProtectRoute(db, tokens.AccessSecret)
	adminOnly := middleware.AdminRoute()

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/signup", handlers.Signup(db, store, tokens))
		auth.POST("/login", handlers.Login(db, store, tokens))
		auth.POST("/logout", handlers.Logout(store, tokens))
		auth.POST("/refresh-token", handlers.RefreshToken(store, tokens))
		auth.GET("/profile", protect, handlers.GetProfile())
	}

	products := api.Group("/products")
	{
		products.GET("", protect, adminOnly, handlers.GetAllProducts(db))
		products.GET("/featured", handlers.GetFeaturedProducts(db, store))
		products.GET("/category/:category", handlers.GetProductsByCategory(db))
		products.GET("/recommended", handlers.GetRecommendedProducts(db))
		products.POST("", protect, adminOnly, handlers.CreateProduct(db, imageStore))
		products.PATCH("/:id", protect, adminOnly, handlers.ToggleFeaturedProduct(db, store))
		products.DELETE("/:id", protect, adminOnly, handlers.DeleteProduct(db, imageStore))
	}

	carts := api.Group("/cart", protect)
	{
		carts.GET("", handlers.GetCartProducts(db))
		carts.POST("", handlers.AddToCart(db))
		carts.PUT("/:id", handlers.UpdateQuantity(db))
		carts.DELETE("", handlers.RemoveAllFromCart(db))
	}

	coupons := api.Group("/coupons", protect)
	{
		coupons.GET("", handlers.GetCoupon(db))
		coupons.POST("/validate", handlers.ValidateCoupon(db))
	}

	pay := api.Group("/payments", protect)
	{
		pay.POST("/create-checkout-session", handlers.CreateCheckoutSession(db, provider, config.AppEnv.ClientURL))
		pay.POST("/checkout-success", handlers.CheckoutSuccess(db, provider))
	}

	api.GET("/analytics", protect, adminOnly, handlers.GetAnalytics(db))

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
