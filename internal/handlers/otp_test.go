package handlers

import "testing"

func TestGenerateOTPShapeAndVariability(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		otp, err := generateOTP()
		if err != nil {
			t.Fatalf("generateOTP returned error: %v", err)
		}
		if len(otp) != otpLength {
			t.Fatalf("expected %d digits, got %q", otpLength, otp)
		}
		for _, r := range otp {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in otp %q", otp)
			}
		}
		seen[otp] = struct{}{}
	}
	if len(seen) < 2 {
		t.Fatal("expected otp values to vary")
	}
}
