package dto

import (
	"time"

	"github.com/channelpartner/position-backend/internal/models"
)

type SubmitApplicationRequest struct {
	PositionID    string               `json:"positionId"`
	ApplicantInfo models.ApplicantInfo `json:"applicantInfo"`
	Location      models.LocationPath  `json:"location"`
	IntroducedBy  string               `json:"introducedBy"`
}

type SubmitApplicationResponse struct {
	Message       string `json:"message"`
	ApplicationID string `json:"applicationId"`
	PersonCode    string `json:"personCode"`
	Status        string `json:"status"`
}

type DecideApplicationRequest struct {
	AdminNotes string `json:"adminNotes"`
}

type UpdatePaymentRequest struct {
	PaymentStatus string `json:"paymentStatus"`
	PaymentAmount *int   `json:"paymentAmount"`
}

type ApplicationListResponse struct {
	Applications []models.Application `json:"applications"`
	Total        int64                `json:"total"`
	Page         int                  `json:"page"`
	Limit        int                  `json:"limit"`
}

// ApprovalResponse reports the side effects of an approval.
type ApprovalResponse struct {
	Application     models.Application `json:"application"`
	UserID          string             `json:"userId"`
	UserCreated     bool               `json:"userCreated"`
	LoginID         string             `json:"loginId,omitempty"`
	InitialCredits  int                `json:"initialCredits"`
	ReferralCredits int                `json:"referralCredits"`
	AlreadyApproved bool               `json:"alreadyApproved"`
}

type DashboardStats struct {
	TotalApplications int64 `json:"totalApplications"`
	Pending           int64 `json:"pendingApplications"`
	Approved          int64 `json:"approvedApplications"`
	Rejected          int64 `json:"rejectedApplications"`
	TotalUsers        int64 `json:"totalUsers"`
	TotalCredits      int64 `json:"totalCredits"`
	TotalPositions    int64 `json:"totalPositions"`
}

type PositionApplication struct {
	ApplicationID string              `json:"applicationId"`
	ApplicantName string              `json:"applicantName"`
	Phone         string              `json:"phone"`
	Status        string              `json:"status"`
	AppliedDate   time.Time           `json:"appliedDate"`
	Location      models.LocationPath `json:"location"`
}

// ApplicationsByPosition groups every application under its position id, newest first.
type ApplicationsByPosition struct {
	TotalApplications         int                              `json:"totalApplications"`
	PositionsWithApplications int                              `json:"positionsWithApplications"`
	ApplicationsByPosition    map[string][]PositionApplication `json:"applicationsByPosition"`
}
