package dto

import (
	"time"

	"github.com/channelpartner/position-backend/internal/models"
)

type CreatePositionRequest struct {
	ID           string              `json:"id"`
	SNo          int                 `json:"sNo"`
	Post         string              `json:"post"`
	Designation  string              `json:"designation"`
	Location     models.LocationPath `json:"location"`
	Contribution int                 `json:"contribution"`
	Credits      int                 `json:"credits"`
	Status       string              `json:"status"`
}

type UpdatePositionRequest struct {
	SNo          *int    `json:"sNo"`
	Designation  *string `json:"designation"`
	Contribution *int    `json:"contribution"`
	Credits      *int    `json:"credits"`
	Status       *string `json:"status"`
	IsVerified   *bool   `json:"isVerified"`
}

type PositionListResponse struct {
	Positions []models.Position `json:"positions"`
	Total     int64             `json:"total"`
	Skip      int               `json:"skip"`
	Limit     int               `json:"limit"`
}

type PositionStatusResponse struct {
	PositionID        string                   `json:"positionId"`
	Status            string                   `json:"status"`
	ApplicationStatus *string                  `json:"applicationStatus"`
	Applicant         *PositionStatusApplicant `json:"applicant"`
}

type PositionStatusApplicant struct {
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	AppliedDate time.Time `json:"appliedDate"`
	Days        int       `json:"days"`
}
