package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/payments"
)

type stubPaymentProvider struct {
	session payments.Session
	err     error
}

func (s stubPaymentProvider) CreateSession(_ context.Context, _ payments.SessionParams) (payments.Session, error) {
	return s.session, s.err
}

func (s stubPaymentProvider) RetrieveSession(_ context.Context, _ string) (payments.Session, error) {
	return s.session, s.err
}

func (s stubPaymentProvider) CreateCoupon(_ context.Context, _ float64) (string, error) {
	return "", s.err
}

func checkoutSuccessContext(t *testing.T, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/payments/checkout-success", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	middleware.SetCurrentUser(c, models.User{ID: primitive.NewObjectID(), Role: models.RoleCustomer})
	return c, rec
}

func TestCheckoutSuccessRejectsUnpaidSession(t *testing.T) {
	provider := stubPaymentProvider{session: payments.Session{ID: "cs_test_unpaid", Paid: false}}
	// db is nil on purpose: an unpaid session must be rejected before any
	// order state is touched, so the handler never reaches the database.
	c, rec := checkoutSuccessContext(t, `{"sessionId":"cs_test_unpaid"}`)
	CheckoutSuccess(nil, provider)(c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unpaid session, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "payment not completed") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestCheckoutSuccessUnknownSession(t *testing.T) {
	provider := stubPaymentProvider{err: payments.ErrSessionNotFound}
	c, rec := checkoutSuccessContext(t, `{"sessionId":"cs_test_missing"}`)
	CheckoutSuccess(nil, provider)(c)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for an unknown session, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCheckoutSuccessRequiresSessionID(t *testing.T) {
	provider := stubPaymentProvider{session: payments.Session{ID: "cs_test", Paid: true}}
	c, rec := checkoutSuccessContext(t, `{}`)
	CheckoutSuccess(nil, provider)(c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing session id, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSecondConfirmationResolvesToExistingOrder(t *testing.T) {
	// The unique stripeSessionId index reports a racing insert as a
	// duplicate-key write error; that and only that means the order already
	// exists and the first confirmation's record is the answer.
	raceErr := mongo.WriteException{
		WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}},
	}
	if !orderExistsForSession(raceErr) {
		t.Fatal("expected a duplicate-key insert to resolve to the existing order")
	}

	if orderExistsForSession(errors.New("connection reset")) {
		t.Fatal("expected an unrelated insert failure to stay an error")
	}
	if orderExistsForSession(nil) {
		t.Fatal("expected a successful insert not to be treated as a duplicate")
	}
}
