package handlers

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const otpLength = 6

// generateOTP produces a 6-digit one-time code from crypto/rand.
func generateOTP() (string, error) {
	digits := make([]byte, otpLength)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
