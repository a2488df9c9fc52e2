package models

import "testing"

func TestParseOrderStatusAcceptsAllStates(t *testing.T) {
	for _, value := range []string{"Pending", "Processing", "Shipped", "Delivered", "Cancelled"} {
		status, err := ParseOrderStatus(value)
		if err != nil {
			t.Fatalf("ParseOrderStatus(%q) returned error: %v", value, err)
		}
		if string(status) != value {
			t.Fatalf("ParseOrderStatus(%q) = %q", value, status)
		}
	}
}

func TestParseOrderStatusRejectsUnknownAndCaseMismatch(t *testing.T) {
	for _, value := range []string{"", "pending", "Returned", "SHIPPED"} {
		if _, err := ParseOrderStatus(value); err == nil {
			t.Fatalf("expected error for status %q", value)
		}
	}
}

func TestParsePaymentMethod(t *testing.T) {
	if _, err := ParsePaymentMethod("Online"); err != nil {
		t.Fatalf("Online should be valid: %v", err)
	}
	if _, err := ParsePaymentMethod("bitcoin"); err == nil {
		t.Fatal("expected error for unknown payment method")
	}
}

func TestParseRole(t *testing.T) {
	if _, err := ParseRole("super-admin"); err != nil {
		t.Fatalf("super-admin should be valid: %v", err)
	}
	if _, err := ParseRole("root"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
