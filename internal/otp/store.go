package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

var (
	ErrNotFound        = errors.New("otp not found")
	ErrExpired         = errors.New("otp expired")
	ErrMismatch        = errors.New("otp mismatch")
	ErrTooManyAttempts = errors.New("too many otp attempts")
)

// Store keeps one pending code per phone. Codes are single-use: a successful
// Verify removes the entry, and so does the failure that exhausts the attempt budget.
type Store interface {
	Save(ctx context.Context, phone, code string, ttl time.Duration) error
	Verify(ctx context.Context, phone, code string) error
	Delete(ctx context.Context, phone string) error
}

// Generate returns a random 6-digit code in [100000, 999999].
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
