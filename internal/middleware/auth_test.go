package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

func signToken(t *testing.T, userID string, secret string, ttl time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"userId": userID,
		"exp":    time.Now().Add(ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("token signing failed: %v", err)
	}
	return token
}

func TestParseUserIDRoundTrip(t *testing.T) {
	userID := primitive.NewObjectID()
	token := signToken(t, userID.Hex(), "secret", time.Minute)

	parsed, err := ParseUserID(token, "secret")
	if err != nil {
		t.Fatalf("ParseUserID failed: %v", err)
	}
	if parsed != userID {
		t.Fatalf("expected %s, got %s", userID.Hex(), parsed.Hex())
	}
}

func TestParseUserIDRejectsWrongSecret(t *testing.T) {
	token := signToken(t, primitive.NewObjectID().Hex(), "secret", time.Minute)
	if _, err := ParseUserID(token, "other-secret"); err == nil {
		t.Fatal("expected an error for a token signed with another secret")
	}
}

func TestParseUserIDRejectsExpiredToken(t *testing.T) {
	token := signToken(t, primitive.NewObjectID().Hex(), "secret", -time.Minute)
	if _, err := ParseUserID(token, "secret"); err == nil {
		t.Fatal("expected an error for an expired token")
	}
}

func TestParseUserIDRejectsMissingClaim(t *testing.T) {
	claims := jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("token signing failed: %v", err)
	}
	if _, err := ParseUserID(token, "secret"); err == nil {
		t.Fatal("expected an error for a token without a userId claim")
	}
}

func TestAdminRouteForbidsCustomers(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest("GET", "/api/analytics", nil)
	c.Set(principalKey, models.User{Role: models.RoleCustomer})

	AdminRoute()(c)

	if recorder.Code != 403 {
		t.Fatalf("expected 403 for a customer, got %d", recorder.Code)
	}
}

func TestAdminRouteAllowsAdmins(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request = httptest.NewRequest("GET", "/api/analytics", nil)
	c.Set(principalKey, models.User{Role: models.RoleAdmin})

	AdminRoute()(c)

	if c.IsAborted() {
		t.Fatal("expected admin request to pass the role gate")
	}
}
