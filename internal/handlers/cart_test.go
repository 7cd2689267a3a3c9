package handlers

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

func TestCartAppendFilterExcludesExistingLines(t *testing.T) {
	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()

	filter := cartLineAbsentFilter(userID, productID)
	if filter["_id"] != userID {
		t.Fatalf("expected filter scoped to user, got %v", filter)
	}
	guard, ok := filter["cartItems.product"].(bson.M)
	if !ok {
		t.Fatalf("expected a guarded product condition, got %v", filter["cartItems.product"])
	}
	if guard["$ne"] != productID {
		t.Fatalf("expected the append to match only while the line is absent, got %v", guard)
	}
}

func TestCartAddFiltersAreMutuallyExclusive(t *testing.T) {
	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()

	// The increment requires the line to exist; the append requires it to be
	// absent. A document can never satisfy both, so two concurrent first-adds
	// of the same product cannot both append.
	increment := cartLineFilter(userID, productID)
	if increment["cartItems.product"] != productID {
		t.Fatalf("expected increment filter to require the line, got %v", increment)
	}

	absent := cartLineAbsentFilter(userID, productID)
	guard := absent["cartItems.product"].(bson.M)
	if guard["$ne"] != increment["cartItems.product"] {
		t.Fatalf("expected append guard to negate the increment condition, got %v", guard)
	}
}

func TestCartAddUpdatesAreSingleLine(t *testing.T) {
	increment := cartIncrementUpdate()
	inc := increment["$inc"].(bson.M)
	if inc["cartItems.$.quantity"] != 1 {
		t.Fatalf("expected positional +1, got %v", inc)
	}

	productID := primitive.NewObjectID()
	appendUpdate := cartAppendUpdate(productID)
	line := appendUpdate["$push"].(bson.M)["cartItems"].(models.CartItem)
	if line.ProductID != productID || line.Quantity != 1 {
		t.Fatalf("expected a fresh line with quantity 1, got %+v", line)
	}
}

func TestMergeCartViewJoinsCurrentProductState(t *testing.T) {
	productID := primitive.NewObjectID()
	lines := []models.CartItem{{ProductID: productID, Quantity: 3}}
	products := []models.Product{{ID: productID, Name: "Widget", Price: 49.99}}

	view := mergeCartView(lines, products)
	if len(view) != 1 {
		t.Fatalf("expected 1 cart product, got %d", len(view))
	}
	if view[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", view[0].Quantity)
	}
	if view[0].Price != 49.99 || view[0].Name != "Widget" {
		t.Fatalf("expected current catalog fields, got %+v", view[0])
	}
}

func TestMergeCartViewDropsVanishedProducts(t *testing.T) {
	kept := primitive.NewObjectID()
	gone := primitive.NewObjectID()
	lines := []models.CartItem{
		{ProductID: kept, Quantity: 1},
		{ProductID: gone, Quantity: 2},
	}
	products := []models.Product{{ID: kept, Name: "Widget"}}

	view := mergeCartView(lines, products)
	if len(view) != 1 {
		t.Fatalf("expected vanished product to be dropped, got %d lines", len(view))
	}
	if view[0].ID != kept {
		t.Fatalf("expected the surviving product, got %+v", view[0])
	}
}

func TestMergeCartViewEmptyCart(t *testing.T) {
	view := mergeCartView(nil, nil)
	if len(view) != 0 {
		t.Fatalf("expected empty view, got %v", view)
	}
}
