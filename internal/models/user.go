package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserDocuments struct {
	PanCard     string     `json:"panCard,omitempty"`
	AadhaarCard string     `json:"aadhaarCard,omitempty"`
	UploadedAt  *time.Time `json:"uploadedAt,omitempty"`
}

// User is an approved channel partner. Credits is the ledger balance and never goes negative.
type User struct {
	ID                        uuid.UUID                         `gorm:"type:uuid;primaryKey" json:"id"`
	Name                      string                            `gorm:"size:255;not null" json:"name"`
	Phone                     string                            `gorm:"size:20;not null;uniqueIndex" json:"phone"`
	Email                     string                            `gorm:"size:255" json:"email"`
	PersonCode                string                            `gorm:"size:6;not null;uniqueIndex" json:"personCode"`
	LoginID                   string                            `gorm:"size:50;not null;uniqueIndex" json:"loginId"`
	Password                  string                            `gorm:"not null" json:"-"`
	Role                      string                            `gorm:"size:20;default:'user'" json:"role"`
	Credits                   int                               `gorm:"not null;default:0" json:"credits"`
	HasReceivedInitialCredits bool                              `gorm:"not null;default:false" json:"hasReceivedInitialCredits"`
	IntroducedBy              string                            `gorm:"size:20" json:"introducedBy"`
	IntroducedCount           int                               `gorm:"not null;default:0" json:"introducedCount"`
	PositionID                string                            `gorm:"size:255" json:"positionId"`
	Photo                     string                            `gorm:"type:text" json:"photo"`
	Documents                 datatypes.JSONType[UserDocuments] `json:"documents"`
	IsVerified                bool                              `json:"isVerified"`
	IsFirstLogin              bool                              `gorm:"default:true" json:"isFirstLogin"`
	AppliedDate               *time.Time                        `json:"appliedDate,omitempty"`
	ApprovedDate              *time.Time                        `json:"approvedDate,omitempty"`
	PaymentStatus             string                            `gorm:"size:20;default:'pending'" json:"paymentStatus"`
	PaymentAmount             int                               `json:"paymentAmount"`
	PaymentDate               *time.Time                        `json:"paymentDate,omitempty"`
	CreatedAt                 time.Time                         `json:"createdAt"`
	UpdatedAt                 time.Time                         `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
