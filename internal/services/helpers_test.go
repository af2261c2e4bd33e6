package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/channelpartner/position-backend/internal/config"
	"github.com/channelpartner/position-backend/internal/database"
	"github.com/channelpartner/position-backend/internal/events"
	"github.com/channelpartner/position-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:               "test-secret",
		JWTExpiry:               7 * 24 * time.Hour,
		InitialBonusCredits:     500,
		ReferralBonusCredits:    100,
		ReferralBonusCap:        20,
		TemplateContribution:    10000,
		TemplateCredits:         60000,
		PaymentCreditMultiplier: 6,
		AdCostCredits:           1020,
		OTPTTL:                  5 * time.Minute,
		OTPMaxAttempts:          3,
		SMSTimeout:              time.Second,
		PersonCodeAttempts:      10,
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// createUser inserts a user with a known password and balance, recording the
// balance as an opening ledger entry so reconciliation holds.
func createUser(t *testing.T, db *gorm.DB, name, phone, code string, credits int) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		Name:         name,
		Phone:        phone,
		PersonCode:   code,
		LoginID:      phone,
		Password:     string(hash),
		Role:         "user",
		Credits:      credits,
		IsFirstLogin: true,
	}
	require.NoError(t, db.Create(u).Error)
	if credits != 0 {
		require.NoError(t, db.Create(&models.CreditTransaction{
			UserID: u.ID, Type: models.CreditOther, Amount: credits, BalanceAfter: credits, Description: "opening balance",
		}).Error)
	}
	return u
}

func reload(t *testing.T, db *gorm.DB, id uuid.UUID) *models.User {
	t.Helper()
	var u models.User
	require.NoError(t, db.First(&u, "id = ?", id).Error)
	return &u
}

func seedLocations(t *testing.T, db *gorm.DB, rows ...models.LocationPath) {
	t.Helper()
	for _, r := range rows {
		require.NoError(t, db.Create(&models.Location{Path: r.Normalized()}).Error)
	}
}

func village(zone, state, division, district, tehsil, pincode, name string) models.LocationPath {
	return models.LocationPath{
		Zone: zone, State: state, Division: division, District: district,
		Tehsil: tehsil, Pincode: pincode, Village: name,
	}
}
