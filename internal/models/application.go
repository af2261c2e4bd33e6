package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationRejected = "rejected"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// IntroducerSelf marks an application with no referrer.
const IntroducerSelf = "Self"

// DefaultPhoto is the placeholder avatar used when an applicant uploads none.
const DefaultPhoto = "data:image/svg+xml;base64,PHN2ZyB3aWR0aD0iODAiIGhlaWdodD0iODAiIHZpZXdCb3g9IjAgMCA4MCA4MCIgZmlsbD0ibm9uZSIgeG1sbnM9Imh0dHA6Ly93d3cudzMub3JnLzIwMDAvc3ZnIj4KPGNpcmNsZSBjeD0iNDAiIGN5PSI0MCIgcj0iNDAiIGZpbGw9IiNlMmU4ZjAiLz4KPC9zdmc+"

type ApplicantInfo struct {
	Name         string `gorm:"size:255;not null" json:"name"`
	Phone        string `gorm:"size:20;not null;index" json:"phone"`
	Email        string `gorm:"size:255" json:"email"`
	Photo        string `gorm:"type:text" json:"photo"`
	Address      string `gorm:"type:text" json:"address"`
	CompanyName  string `gorm:"size:255" json:"companyName"`
	BusinessName string `gorm:"size:255" json:"businessName"`
}

// Application is a submission against a position reference. PositionID is not a foreign key:
// it usually names a template slot that only exists in resolver output.
type Application struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	PositionID    string        `gorm:"size:255;not null;index" json:"positionId"`
	Applicant     ApplicantInfo `gorm:"embedded;embeddedPrefix:applicant_" json:"applicantInfo"`
	Location      LocationPath  `gorm:"embedded" json:"location"`
	PersonCode    string        `gorm:"size:6;not null;uniqueIndex" json:"personCode"`
	UserID        *uuid.UUID    `gorm:"type:uuid;index" json:"userId,omitempty"`
	IntroducedBy  string        `gorm:"size:20;not null;index" json:"introducedBy"`
	Status        string        `gorm:"size:20;not null;index" json:"status"`
	AppliedDate   time.Time     `gorm:"not null;index" json:"appliedDate"`
	ApprovedDate  *time.Time    `json:"approvedDate,omitempty"`
	AdminNotes    string        `gorm:"type:text" json:"adminNotes"`
	PaymentStatus string        `gorm:"size:20;not null" json:"paymentStatus"`
	PaymentAmount int           `gorm:"not null" json:"paymentAmount"`
	PaymentDate   *time.Time    `json:"paymentDate,omitempty"`
	IsVerified    bool          `json:"isVerified"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Snapshot builds the overlay shown on the slot this application occupies.
func (a *Application) Snapshot(now time.Time) *ApplicantSnapshot {
	s := &ApplicantSnapshot{
		ApplicationID: a.ID.String(),
		Name:          a.Applicant.Name,
		Phone:         a.Applicant.Phone,
		Email:         a.Applicant.Email,
		Photo:         a.Applicant.Photo,
		Address:       a.Applicant.Address,
		CompanyName:   a.Applicant.CompanyName,
		BusinessName:  a.Applicant.BusinessName,
		PersonCode:    a.PersonCode,
		IntroducedBy:  a.IntroducedBy,
		AppliedDate:   a.AppliedDate,
		Days:          int(now.Sub(a.AppliedDate).Hours() / 24),
		IsVerified:    a.IsVerified,
	}
	if a.UserID != nil {
		s.UserID = a.UserID.String()
	}
	return s
}

// PositionStatus maps the workflow state onto the slot status.
func (a *Application) PositionStatus() string {
	switch a.Status {
	case ApplicationPending:
		return PositionPending
	case ApplicationApproved:
		return PositionApproved
	}
	return PositionAvailable
}
