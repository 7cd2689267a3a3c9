package middleware

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

	"storefront/internal/models"
)

const principalKey = "currentUser"

// AccessTokenCookie and RefreshTokenCookie carry the two bearer tokens.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// ProtectRoute verifies the access-token cookie, resolves the account once and
// attaches it to the request as the authenticated principal.
func ProtectRoute(db *mongo.Database, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(AccessTokenCookie)
		if err != nil || strings.TrimSpace(raw) == "" {
			log.Println("[AUTH] [ERROR] missing access token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized - no access token provided"})
			return
		}

		userID, err := ParseUserID(raw, secret)
		if err != nil {
			log.Println("[AUTH] [ERROR] access token validation failed:", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized - invalid access token"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
			log.Println("[AUTH] [ERROR] principal lookup failed:", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized - user not found"})
			return
		}

		c.Set(principalKey, user)
		c.Next()
	}
}

// AdminRoute gates a route to principals with the admin role. It must run
// after ProtectRoute.
func AdminRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied - admin only"})
			return
		}
		c.Next()
	}
}

// SetCurrentUser attaches a principal directly, bypassing token verification.
// Handler tests use it in place of ProtectRoute.
func SetCurrentUser(c *gin.Context, user models.User) {
	c.Set(principalKey, user)
}

// CurrentUser returns the authenticated principal resolved by ProtectRoute.
func CurrentUser(c *gin.Context) (models.User, bool) {
	value, ok := c.Get(principalKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}

// ParseUserID verifies an HS256 token and extracts its userId claim.
func ParseUserID(tokenString, secret string) (primitive.ObjectID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return primitive.NilObjectID, err
	}
	if !token.Valid {
		return primitive.NilObjectID, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return primitive.NilObjectID, jwt.ErrTokenInvalidClaims
	}

	userIDValue, ok := claims["userId"].(string)
	if !ok || strings.TrimSpace(userIDValue) == "" {
		return primitive.NilObjectID, jwt.ErrTokenInvalidClaims
	}

	return primitive.ObjectIDFromHex(userIDValue)
}
