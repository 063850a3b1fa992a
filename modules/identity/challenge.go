package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const otpCodeLength = 6

// OTPChallenge records an outstanding verification code. Only the bcrypt hash
// of the code is stored; the plaintext exists solely in the delivery email.
type OTPChallenge struct {
	ID                uuid.UUID
	Email             string
	FullName          string
	CodeHash          []byte
	ExpiresAt         time.Time
	AttemptsRemaining int
	Consumed          bool
	CreatedAt         time.Time
}

// Expired reports whether the challenge is past its deadline.
func (c *OTPChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// generateOTPCode returns a fixed-length numeric code from crypto/rand.
// Leading zeros are preserved.
func generateOTPCode() (string, error) {
	code := make([]byte, otpCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate code digit: %w", err)
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), nil
}

// hashOTPCode hashes the code for storage.
func hashOTPCode(code string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash code: %w", err)
	}
	return hash, nil
}

// matchOTPCode reports whether the code matches the stored hash.
func matchOTPCode(hash []byte, code string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(code)) == nil
}
