package payments

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

const currency = "usd"

type StripeProvider struct {
	api *client.API
}

func NewStripeProvider(secretKey string) *StripeProvider {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProvider{api: api}
}

func (p *StripeProvider) CreateSession(ctx context.Context, params SessionParams) (Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(params.LineItems))
	for _, item := range params.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Image != "" {
			productData.Images = stripe.StringSlice([]string{item.Image})
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	sessionParams := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(params.SuccessURL),
		CancelURL:          stripe.String(params.CancelURL),
	}
	sessionParams.Context = ctx
	if params.CouponID != "" {
		sessionParams.Discounts = []*stripe.CheckoutSessionDiscountParams{
			{Coupon: stripe.String(params.CouponID)},
		}
	}
	for key, value := range params.Metadata {
		sessionParams.AddMetadata(key, value)
	}

	created, err := p.api.CheckoutSessions.New(sessionParams)
	if err != nil {
		return Session{}, err
	}
	return fromStripeSession(created), nil
}

func (p *StripeProvider) RetrieveSession(ctx context.Context, id string) (Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	retrieved, err := p.api.CheckoutSessions.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}
	return fromStripeSession(retrieved), nil
}

func (p *StripeProvider) CreateCoupon(ctx context.Context, percentOff float64) (string, error) {
	params := &stripe.CouponParams{
		PercentOff: stripe.Float64(percentOff),
		Duration:   stripe.String(string(stripe.CouponDurationOnce)),
	}
	params.Context = ctx

	created, err := p.api.Coupons.New(params)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func fromStripeSession(s *stripe.CheckoutSession) Session {
	return Session{
		ID:          s.ID,
		URL:         s.URL,
		Paid:        s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal: s.AmountTotal,
		Metadata:    s.Metadata,
	}
}
