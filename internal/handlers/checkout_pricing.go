package handlers

import (
	"encoding/json"
	"math"

	"storefront/internal/payments"
)

// All checkout math runs in integer minor units (cents); major units appear
// only at the response boundary.

const loyaltyThresholdMinorUnits = 20000

type checkoutProductRequest struct {
	ID       string  `json:"_id" binding:"required"`
	Name     string  `json:"name" binding:"required"`
	Image    string  `json:"image"`
	Price    float64 `json:"price" binding:"required,gt=0"`
	Quantity int     `json:"quantity"`
}

// snapshotItem is the serialized purchase line carried in the checkout-session
// metadata until the order is created.
type snapshotItem struct {
	ID       string  `json:"id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

func minorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

// buildLineItems converts the client's cart into provider line items and
// returns the pre-discount total in minor units. A missing quantity means 1.
func buildLineItems(products []checkoutProductRequest) ([]payments.LineItem, int64) {
	items := make([]payments.LineItem, 0, len(products))
	var total int64

	for _, product := range products {
		quantity := product.Quantity
		if quantity <= 0 {
			quantity = 1
		}

		amount := minorUnits(product.Price)
		items = append(items, payments.LineItem{
			Name:       product.Name,
			Image:      product.Image,
			UnitAmount: amount,
			Quantity:   int64(quantity),
		})
		total += amount * int64(quantity)
	}

	return items, total
}

// applyDiscount subtracts a percentage discount, rounding the discount to the
// nearest minor unit first.
func applyDiscount(total int64, percentage float64) int64 {
	discount := int64(math.Round(float64(total) * percentage / 100))
	return total - discount
}

// qualifiesForLoyaltyCoupon is evaluated against the pre-discount total.
func qualifiesForLoyaltyCoupon(preDiscountTotal int64) bool {
	return preDiscountTotal >= loyaltyThresholdMinorUnits
}

func encodeProductSnapshot(products []checkoutProductRequest) (string, error) {
	items := make([]snapshotItem, 0, len(products))
	for _, product := range products {
		quantity := product.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		items = append(items, snapshotItem{
			ID:       product.ID,
			Quantity: quantity,
			Price:    product.Price,
		})
	}

	encoded, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// parseProductSnapshot degrades an unreadable snapshot to an empty list
// instead of failing the confirmation. Callers must tolerate empty orders.
func parseProductSnapshot(raw string) []snapshotItem {
	var items []snapshotItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []snapshotItem{}
	}
	if items == nil {
		return []snapshotItem{}
	}
	return items
}
