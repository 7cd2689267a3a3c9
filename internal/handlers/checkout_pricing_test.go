package handlers

import (
	"testing"
)

func TestBuildLineItemsTotalsInMinorUnits(t *testing.T) {
	items, total := buildLineItems([]checkoutProductRequest{
		{ID: "a", Name: "Widget", Price: 100, Quantity: 2},
	})

	if total != 20000 {
		t.Fatalf("expected pre-discount total 20000, got %d", total)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(items))
	}
	if items[0].UnitAmount != 10000 || items[0].Quantity != 2 {
		t.Fatalf("expected unit 10000 x2, got %d x%d", items[0].UnitAmount, items[0].Quantity)
	}
}

func TestBuildLineItemsDefaultsQuantityToOne(t *testing.T) {
	items, total := buildLineItems([]checkoutProductRequest{
		{ID: "a", Name: "Widget", Price: 19.99},
	})

	if items[0].Quantity != 1 {
		t.Fatalf("expected default quantity 1, got %d", items[0].Quantity)
	}
	if total != 1999 {
		t.Fatalf("expected total 1999, got %d", total)
	}
}

func TestApplyDiscountRoundsToNearestMinorUnit(t *testing.T) {
	if got := applyDiscount(25000, 10); got != 22500 {
		t.Fatalf("expected 22500 after 10%% off 25000, got %d", got)
	}
	// 10% of 999 is 99.9, which rounds to 100 before subtracting.
	if got := applyDiscount(999, 10); got != 899 {
		t.Fatalf("expected 899 after 10%% off 999, got %d", got)
	}
}

func TestLoyaltyThresholdUsesPreDiscountTotal(t *testing.T) {
	if qualifiesForLoyaltyCoupon(19999) {
		t.Fatal("19999 minor units must not qualify")
	}
	if !qualifiesForLoyaltyCoupon(20000) {
		t.Fatal("20000 minor units must qualify")
	}

	// A 250.00 cart with a 10% coupon charges 225.00, but the threshold is
	// evaluated against the undiscounted 250.00 - so it still qualifies.
	preDiscount := int64(25000)
	charged := applyDiscount(preDiscount, 10)
	if charged != 22500 {
		t.Fatalf("expected charged amount 22500, got %d", charged)
	}
	if !qualifiesForLoyaltyCoupon(preDiscount) {
		t.Fatal("pre-discount total of 25000 must qualify for a loyalty coupon")
	}
}

func TestParseProductSnapshotDegradesToEmpty(t *testing.T) {
	for _, raw := range []string{"", "not json", "{\"id\":", "null"} {
		items := parseProductSnapshot(raw)
		if items == nil || len(items) != 0 {
			t.Fatalf("expected empty snapshot for %q, got %v", raw, items)
		}
	}
}

func TestEncodeProductSnapshotCarriesPriceAndQuantity(t *testing.T) {
	encoded, err := encodeProductSnapshot([]checkoutProductRequest{
		{ID: "656f1e6b8f1b2c0012345678", Name: "Widget", Price: 12.5, Quantity: 3},
		{ID: "656f1e6b8f1b2c0012345679", Name: "Gadget", Price: 4},
	})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	items := parseProductSnapshot(encoded)
	if len(items) != 2 {
		t.Fatalf("expected 2 snapshot lines, got %d", len(items))
	}
	if items[0].Price != 12.5 || items[0].Quantity != 3 {
		t.Fatalf("first line lost its snapshot: %+v", items[0])
	}
	if items[1].Quantity != 1 {
		t.Fatalf("expected omitted quantity to default to 1, got %d", items[1].Quantity)
	}
}

func TestSnapshotToOrderItemsSkipsInvalidIDs(t *testing.T) {
	items := snapshotToOrderItems([]snapshotItem{
		{ID: "656f1e6b8f1b2c0012345678", Quantity: 2, Price: 100},
		{ID: "not-an-object-id", Quantity: 1, Price: 5},
	})

	if len(items) != 1 {
		t.Fatalf("expected 1 order item, got %d", len(items))
	}
	if items[0].Quantity != 2 || items[0].Price != 100 {
		t.Fatalf("order item lost its snapshot: %+v", items[0])
	}
}
