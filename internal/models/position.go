package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	PositionAvailable = "Available"
	PositionPending   = "Pending"
	PositionApproved  = "Approved"
	PositionOccupied  = "Occupied"
)

// Position is a slot in the hierarchy. Persisted rows exist once an admin creates them;
// everything else is synthesized by the resolver with IsTemplate set.
type Position struct {
	ID           string             `gorm:"primaryKey;size:255" json:"id"`
	SNo          int                `gorm:"index" json:"sNo"`
	Post         string             `gorm:"size:30;not null" json:"post"`
	Designation  string             `gorm:"size:255" json:"designation"`
	Location     LocationPath       `gorm:"embedded" json:"location"`
	Contribution int                `gorm:"not null" json:"contribution"`
	Credits      int                `gorm:"not null" json:"credits"`
	Status       string             `gorm:"size:20;not null;index" json:"status"`
	Applicant    *ApplicantSnapshot `gorm:"serializer:json;type:text" json:"applicantDetails"`
	IsVerified   bool               `json:"isVerified"`
	IsTemplate   bool               `gorm:"-" json:"isTemplate"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

func (p *Position) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = p.Location.PositionKey()
	}
	if p.Status == "" {
		p.Status = PositionAvailable
	}
	return nil
}

// ApplicantSnapshot is the applicant overlay shown on an occupied slot.
type ApplicantSnapshot struct {
	ApplicationID   string    `json:"applicationId"`
	UserID          string    `json:"userId,omitempty"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	Photo           string    `json:"photo"`
	Address         string    `json:"address"`
	CompanyName     string    `json:"companyName"`
	BusinessName    string    `json:"businessName"`
	PersonCode      string    `json:"personCode,omitempty"`
	IntroducedBy    string    `json:"introducedBy"`
	IntroducedCount int       `json:"introducedCount"`
	AppliedDate     time.Time `json:"appliedDate"`
	Days            int       `json:"days"`
	IsVerified      bool      `json:"isVerified"`
}
