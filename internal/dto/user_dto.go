package dto

import (
	"time"

	"github.com/channelpartner/position-backend/internal/models"
	"github.com/google/uuid"
)

type UserDocumentsView struct {
	ID        uuid.UUID            `json:"id"`
	Name      string               `json:"name"`
	Phone     string               `json:"phone"`
	Email     string               `json:"email"`
	Credits   int                  `json:"credits"`
	Documents models.UserDocuments `json:"documents"`
	CreatedAt time.Time            `json:"createdAt"`
}

type UserDocumentsResponse struct {
	User UserDocumentsView `json:"user"`
}

type SetVerifiedRequest struct {
	IsVerified *bool `json:"isVerified"`
}

type IntroducedCountResponse struct {
	PersonCode string `json:"personCode"`
	Count      int64  `json:"count"`
}
