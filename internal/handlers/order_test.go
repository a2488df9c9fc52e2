package handlers

import (
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"healup/internal/models"
)

func validOrderRequest() createOrderRequest {
	return createOrderRequest{
		Medicines: []orderItemRequest{
			{MedicineID: primitive.NewObjectID().Hex(), Quantity: 2},
		},
		PaymentMethod: "Cash",
		ShippingAddress: shippingAddressRequest{
			FullName: "Jane Doe",
			Phone:    "+201000000000",
			Address:  "1 Nile St",
		},
	}
}

func TestNewOrderFromRequestDefaults(t *testing.T) {
	customer := primitive.NewObjectID()

	order, err := newOrderFromRequest(validOrderRequest(), customer)
	if err != nil {
		t.Fatalf("newOrderFromRequest returned error: %v", err)
	}
	if order.Status != models.OrderPending {
		t.Fatalf("expected status Pending, got %s", order.Status)
	}
	if order.IsPaid {
		t.Fatal("expected isPaid=false on a fresh order")
	}
	if order.Customer != customer || order.CreatedBy != customer {
		t.Fatal("expected customer and createdBy to match the caller")
	}
	if len(order.Medicines) != 1 || order.Medicines[0].Quantity != 2 {
		t.Fatalf("unexpected items: %+v", order.Medicines)
	}
}

func TestNewOrderFromRequestRejectsBadPaymentMethod(t *testing.T) {
	req := validOrderRequest()
	req.PaymentMethod = "Barter"

	_, err := newOrderFromRequest(req, primitive.NewObjectID())
	var api apiError
	if !errors.As(err, &api) || api.status != 400 {
		t.Fatalf("expected 400 apiError, got %v", err)
	}
}

func TestNewOrderFromRequestRequiresShippingAddressFields(t *testing.T) {
	req := validOrderRequest()
	req.ShippingAddress.Phone = "  "

	if _, err := newOrderFromRequest(req, primitive.NewObjectID()); err == nil {
		t.Fatal("expected error for missing phone")
	}
}

func TestOrderItemsFromRequestRejectsInvalidEntries(t *testing.T) {
	if _, err := orderItemsFromRequest(nil); err == nil {
		t.Fatal("expected error for empty item list")
	}

	if _, err := orderItemsFromRequest([]orderItemRequest{
		{MedicineID: "not-a-hex-id", Quantity: 1},
	}); err == nil {
		t.Fatal("expected error for invalid medicineId")
	}

	if _, err := orderItemsFromRequest([]orderItemRequest{
		{MedicineID: primitive.NewObjectID().Hex(), Quantity: 0},
	}); err == nil {
		t.Fatal("expected error for zero quantity")
	}

	id := primitive.NewObjectID().Hex()
	if _, err := orderItemsFromRequest([]orderItemRequest{
		{MedicineID: id, Quantity: 1},
		{MedicineID: id, Quantity: 2},
	}); err == nil {
		t.Fatal("expected error for duplicate medicineId")
	}
}

func TestOrderFailureReason(t *testing.T) {
	if got := orderFailureReason(insufficientStockError{}); got != "insufficient_stock" {
		t.Fatalf("unexpected reason %q", got)
	}
	if got := orderFailureReason(medicineNotFoundError{}); got != "not_found" {
		t.Fatalf("unexpected reason %q", got)
	}
	if got := orderFailureReason(errBadRequest("bad")); got != "invalid_input" {
		t.Fatalf("unexpected reason %q", got)
	}
	if got := orderFailureReason(errors.New("boom")); got != "db_error" {
		t.Fatalf("unexpected reason %q", got)
	}
}
