package handlers

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"healup/internal/models"
)

func TestMergeCartItemAppendsNewMedicine(t *testing.T) {
	medicineID := primitive.NewObjectID()

	items := mergeCartItem(nil, medicineID, 2, 10)
	if len(items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(items))
	}
	if items[0].Quantity != 2 || items[0].Price != 10 {
		t.Fatalf("unexpected line: %+v", items[0])
	}
	if got := cartTotal(items); got != 20 {
		t.Fatalf("expected total 20, got %v", got)
	}
}

func TestMergeCartItemMergesInsteadOfDuplicating(t *testing.T) {
	medicineID := primitive.NewObjectID()

	items := mergeCartItem(nil, medicineID, 2, 10)
	items = mergeCartItem(items, medicineID, 3, 12)

	if len(items) != 1 {
		t.Fatalf("expected a single merged line, got %d", len(items))
	}
	if items[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", items[0].Quantity)
	}
	if items[0].Price != 10 {
		t.Fatalf("merge must keep the original price snapshot, got %v", items[0].Price)
	}
	if got := cartTotal(items); got != 50 {
		t.Fatalf("expected total 50, got %v", got)
	}
}

func TestMergeCartItemKeepsOtherLines(t *testing.T) {
	first := primitive.NewObjectID()
	second := primitive.NewObjectID()

	items := mergeCartItem(nil, first, 1, 5)
	items = mergeCartItem(items, second, 2, 7)

	if len(items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(items))
	}
	if got := cartTotal(items); got != 19 {
		t.Fatalf("expected total 19, got %v", got)
	}
}

func TestRemoveCartItem(t *testing.T) {
	first := primitive.NewObjectID()
	second := primitive.NewObjectID()

	items := mergeCartItem(nil, first, 1, 5)
	items = mergeCartItem(items, second, 2, 7)

	items, found := removeCartItem(items, first)
	if !found {
		t.Fatal("expected medicine to be found")
	}
	if len(items) != 1 || items[0].MedicineID != second {
		t.Fatalf("unexpected remaining lines: %+v", items)
	}
	if got := cartTotal(items); got != 14 {
		t.Fatalf("expected total 14, got %v", got)
	}
}

func TestRemoveCartItemAbsentLeavesCartUnchanged(t *testing.T) {
	medicineID := primitive.NewObjectID()
	items := mergeCartItem(nil, medicineID, 2, 10)

	after, found := removeCartItem(items, primitive.NewObjectID())
	if found {
		t.Fatal("expected medicine to be absent")
	}
	if len(after) != 1 || after[0].Quantity != 2 {
		t.Fatalf("cart changed on failed removal: %+v", after)
	}
	if got := cartTotal(after); got != 20 {
		t.Fatalf("expected total 20, got %v", got)
	}
}

func TestCartTotalMatchesLineSums(t *testing.T) {
	items := []models.CartItem{
		{MedicineID: primitive.NewObjectID(), Quantity: 3, Price: 2.5},
		{MedicineID: primitive.NewObjectID(), Quantity: 1, Price: 12},
		{MedicineID: primitive.NewObjectID(), Quantity: 4, Price: 0.75},
	}
	if got, want := cartTotal(items), 3*2.5+12+4*0.75; got != want {
		t.Fatalf("expected total %v, got %v", want, got)
	}
}

func TestOrderTotalUsesSnapshotPrices(t *testing.T) {
	items := []models.OrderItem{
		{MedicineID: primitive.NewObjectID(), Quantity: 5, Price: 4},
		{MedicineID: primitive.NewObjectID(), Quantity: 2, Price: 9.5},
	}
	if got := orderTotal(items); got != 39 {
		t.Fatalf("expected total 39, got %v", got)
	}
	if got := orderTotal(nil); got != 0 {
		t.Fatalf("expected empty total 0, got %v", got)
	}
}
