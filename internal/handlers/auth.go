package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"storefront/internal/cache"
	"storefront/internal/middleware"
	"storefront/internal/models"
)

type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenSettings bundles the signing material for the two bearer tokens.
// SecureCookies restricts the auth cookies to HTTPS and is switched on in
// production.
type TokenSettings struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SecureCookies bool
}

func Signup(db *mongo.Database, store cache.Store, tokens TokenSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		name := strings.TrimSpace(req.Name)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		count, err := db.Collection("users").CountDocuments(ctx, bson.M{"email": email})
		if err != nil {
			log.Println("[AUTH] [ERROR] signup db error:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		if count > 0 {
			log.Println("[AUTH] [ERROR] signup email exists:", email)
			c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Println("[AUTH] [ERROR] signup password hash failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "password hash failed"})
			return
		}

		now := time.Now()
		user := models.User{
			Name:         name,
			Email:        email,
			PasswordHash: string(hash),
			Role:         models.RoleCustomer,
			CartItems:    []models.CartItem{},
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		res, err := db.Collection("users").InsertOne(ctx, user)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
				return
			}
			log.Println("[AUTH] [ERROR] signup insert failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		user.ID, _ = res.InsertedID.(primitive.ObjectID)

		if err := establishSession(c, store, user.ID, tokens); err != nil {
			return
		}

		log.Println("[AUTH] [INFO] user signed up:", email)
		c.JSON(http.StatusCreated, gin.H{
			"user":    user,
			"success": true,
			"message": "user signed up successfully",
		})
	}
}

func Login(db *mongo.Database, store cache.Store, tokens TokenSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
			log.Println("[AUTH] [ERROR] login unknown email")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			log.Println("[AUTH] [ERROR] login password mismatch for:", email)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}

		if err := establishSession(c, store, user.ID, tokens); err != nil {
			return
		}

		log.Println("[AUTH] [INFO] user logged in:", email)
		c.JSON(http.StatusOK, gin.H{
			"user":    user,
			"success": true,
			"message": "user logged in successfully",
		})
	}
}

func Logout(store cache.Store, tokens TokenSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(middleware.RefreshTokenCookie)
		if err != nil || strings.TrimSpace(raw) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no refresh token found"})
			return
		}

		userID, err := middleware.ParseUserID(raw, tokens.RefreshSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := store.Del(ctx, refreshTokenKey(userID)); err != nil {
			log.Println("[AUTH] [ERROR] refresh token delete failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
			return
		}

		clearAuthCookies(c, tokens.SecureCookies)
		log.Println("[AUTH] [INFO] user logged out:", userID.Hex())
		c.JSON(http.StatusOK, gin.H{"message": "user logged out successfully"})
	}
}

// RefreshToken issues a fresh access cookie when the refresh cookie is valid
// and still matches the server-side copy, which is what makes server-side
// revocation possible.
func RefreshToken(store cache.Store, tokens TokenSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(middleware.RefreshTokenCookie)
		if err != nil || strings.TrimSpace(raw) == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "no refresh token provided"})
			return
		}

		userID, err := middleware.ParseUserID(raw, tokens.RefreshSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		stored, err := store.Get(ctx, refreshTokenKey(userID))
		if err != nil || stored != raw {
			log.Println("[AUTH] [ERROR] refresh token rejected for:", userID.Hex())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
			return
		}

		accessToken, err := issueToken(userID, tokens.AccessSecret, tokens.AccessTTL)
		if err != nil {
			log.Println("[AUTH] [ERROR] access token generation failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
			return
		}

		setAuthCookie(c, middleware.AccessTokenCookie, accessToken, tokens.AccessTTL, tokens.SecureCookies)
		c.JSON(http.StatusOK, gin.H{"message": "token refreshed successfully"})
	}
}

func GetProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

func establishSession(c *gin.Context, store cache.Store, userID primitive.ObjectID, tokens TokenSettings) error {
	accessToken, err := issueToken(userID, tokens.AccessSecret, tokens.AccessTTL)
	if err != nil {
		log.Println("[AUTH] [ERROR] access token generation failed:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return err
	}

	refreshToken, err := issueToken(userID, tokens.RefreshSecret, tokens.RefreshTTL)
	if err != nil {
		log.Println("[AUTH] [ERROR] refresh token generation failed:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := store.Set(ctx, refreshTokenKey(userID), refreshToken, tokens.RefreshTTL); err != nil {
		// The session still works without the server-side copy; only refresh
		// and revocation are affected.
		log.Println("[AUTH] [WARN] refresh token store failed:", err)
	}

	setAuthCookie(c, middleware.AccessTokenCookie, accessToken, tokens.AccessTTL, tokens.SecureCookies)
	setAuthCookie(c, middleware.RefreshTokenCookie, refreshToken, tokens.RefreshTTL, tokens.SecureCookies)
	return nil
}

func issueToken(userID primitive.ObjectID, secret string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"userId": userID.Hex(),
		"exp":    time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func setAuthCookie(c *gin.Context, name, value string, ttl time.Duration, secure bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", "", secure, true)
}

func clearAuthCookies(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", secure, true)
	c.SetCookie(middleware.RefreshTokenCookie, "", -1, "/", "", secure, true)
}

func refreshTokenKey(userID primitive.ObjectID) string {
	return "refresh_token:" + userID.Hex()
}
