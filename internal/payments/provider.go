package payments

import (
	"context"
	"errors"
)

// ErrSessionNotFound reports an unknown checkout-session id.
var ErrSessionNotFound = errors.New("payments: checkout session not found")

// LineItem is one purchasable line handed to the provider. UnitAmount is in
// minor units (cents).
type LineItem struct {
	Name       string
	Image      string
	UnitAmount int64
	Quantity   int64
}

type SessionParams struct {
	LineItems  []LineItem
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
	CouponID   string
}

// Session is the provider-side view of a checkout flow. AmountTotal is the
// authoritative captured amount in minor units once Paid is true.
type Session struct {
	ID          string
	URL         string
	Paid        bool
	AmountTotal int64
	Metadata    map[string]string
}

// Provider is the payment capability the checkout flow depends on. It is the
// sole source of truth for whether a payment was actually captured.
type Provider interface {
	CreateSession(ctx context.Context, params SessionParams) (Session, error)
	RetrieveSession(ctx context.Context, id string) (Session, error)
	CreateCoupon(ctx context.Context, percentOff float64) (string, error)
}
