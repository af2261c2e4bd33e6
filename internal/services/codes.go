package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"

	"github.com/channelpartner/position-backend/internal/models"
	"gorm.io/gorm"
)

// CodeGenerator yields candidate person codes. Candidates are checked for uniqueness by the caller.
type CodeGenerator func() (string, error)

// RandomPersonCode draws a 6-digit code in [100000, 999999].
func RandomPersonCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate person code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// uniquePersonCode samples codes until one is unused by both users and applications.
// The unique indexes on both tables still guard against a concurrent insert of the same code.
func uniquePersonCode(db *gorm.DB, gen CodeGenerator, attempts int) (string, error) {
	for i := 0; i < attempts; i++ {
		code, err := gen()
		if err != nil {
			return "", err
		}

		var n int64
		if err := db.Model(&models.User{}).Where("person_code = ?", code).Count(&n).Error; err != nil {
			return "", fmt.Errorf("failed to check person code: %w", err)
		}
		if n > 0 {
			continue
		}
		if err := db.Model(&models.Application{}).Where("person_code = ?", code).Count(&n).Error; err != nil {
			return "", fmt.Errorf("failed to check person code: %w", err)
		}
		if n > 0 {
			continue
		}
		return code, nil
	}
	return "", ErrCodeGenerationExhausted
}

// DefaultPassword is the first four letters of name with whitespace removed,
// upper-cased and right-padded with 'X' to four characters ("Asha Verma" -> "ASHA", "Al" -> "ALXX").
func DefaultPassword(name string) string {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)

	runes := []rune(compact)
	if len(runes) > 4 {
		runes = runes[:4]
	}
	pw := strings.ToUpper(string(runes))
	for len([]rune(pw)) < 4 {
		pw += "X"
	}
	return pw
}
