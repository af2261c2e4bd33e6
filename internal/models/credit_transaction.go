package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CreditBonus     = "bonus"
	CreditDeduction = "deduction"
	CreditReferral  = "referral"
	CreditInitial   = "initial"
	CreditOther     = "other"
)

// CreditTransaction is an append-only ledger entry. Amount is signed.
type CreditTransaction struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	Type         string    `gorm:"size:20;not null" json:"type"`
	Amount       int       `gorm:"not null" json:"amount"`
	BalanceAfter int       `gorm:"not null" json:"balanceAfter"`
	Description  string    `gorm:"size:500" json:"description"`
	CreatedAt    time.Time `gorm:"index" json:"date"`
}

func (t *CreditTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
